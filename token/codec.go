package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalid is returned for any access token that fails structural checks,
// signature verification, or claim validation other than expiry.
var ErrInvalid = errors.New("invalid access token")

// ErrExpired is returned only for well-formed tokens carrying a valid
// signature whose expiry has passed. Callers may offer a refresh path.
var ErrExpired = errors.New("access token expired")

// ErrWrongType is returned when a verified token is not an access token.
// It matches ErrInvalid under errors.Is.
var ErrWrongType = fmt.Errorf("%w: wrong token type", ErrInvalid)

// TypeAccess is the value of the private "type" claim on access tokens.
const TypeAccess = "access"

// Method defines a public type used by authshift APIs.
//
// Method instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Method string

const (
	// MethodHS256 is an exported constant or variable used by the token codec.
	MethodHS256 Method = "hs256"
	// MethodHS384 is an exported constant or variable used by the token codec.
	MethodHS384 Method = "hs384"
	// MethodHS512 is an exported constant or variable used by the token codec.
	MethodHS512 Method = "hs512"
)

// Config defines a public type used by authshift APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	SigningKey   []byte
	Method       Method
	AccessTTL    time.Duration
	Issuer       string
	Audience     string
	Leeway       time.Duration
	MaxFutureIAT time.Duration
}

// Claims defines a public type used by authshift APIs.
//
// Claims instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Claims struct {
	TokenType string `json:"type"`
	jwt.RegisteredClaims
}

// Codec signs and verifies HMAC access tokens. It is pure and safe for
// concurrent use after construction.
type Codec struct {
	config Config
	method jwt.SigningMethod
}

// NewCodec describes the newcodec operation and its observable behavior.
//
// NewCodec may return an error when input validation, dependency calls, or security checks fail.
// NewCodec does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewCodec(cfg Config) (*Codec, error) {
	if len(cfg.SigningKey) < 32 {
		return nil, errors.New("signing key shorter than 32 bytes")
	}
	if cfg.AccessTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	if cfg.MaxFutureIAT == 0 {
		cfg.MaxFutureIAT = 10 * time.Minute
	}
	if cfg.MaxFutureIAT < 0 || cfg.MaxFutureIAT > 24*time.Hour {
		return nil, errors.New("invalid MaxFutureIAT configuration")
	}

	var method jwt.SigningMethod
	switch cfg.Method {
	case MethodHS256, "":
		method = jwt.SigningMethodHS256
	case MethodHS384:
		method = jwt.SigningMethodHS384
	case MethodHS512:
		method = jwt.SigningMethodHS512
	default:
		return nil, errors.New("unsupported signing method")
	}

	return &Codec{config: cfg, method: method}, nil
}

// IssueAccess describes the issueaccess operation and its observable behavior.
//
// IssueAccess may return an error when input validation, dependency calls, or security checks fail.
// IssueAccess does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Codec) IssueAccess(userID string) (string, error) {
	if userID == "" {
		return "", errors.New("empty user id")
	}

	now := time.Now()
	claims := Claims{
		TokenType: TypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.config.AccessTTL)),
			Issuer:    c.config.Issuer,
		},
	}
	if c.config.Audience != "" {
		claims.Audience = jwt.ClaimStrings{c.config.Audience}
	}

	return jwt.NewWithClaims(c.method, claims).SignedString(c.config.SigningKey)
}

// AccessTTL returns the configured access token lifetime.
func (c *Codec) AccessTTL() time.Duration {
	return c.config.AccessTTL
}

// VerifyAccess verifies a token and returns its subject. Failures map to
// exactly one of ErrExpired, ErrWrongType, or ErrInvalid.
//
// VerifyAccess may return an error when input validation, dependency calls, or security checks fail.
// VerifyAccess does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Codec) VerifyAccess(tokenStr string) (string, error) {
	claims, err := c.ParseAccess(tokenStr)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// ParseAccess verifies a token and returns its full claims. Error semantics
// match VerifyAccess.
//
// ParseAccess may return an error when input validation, dependency calls, or security checks fail.
// ParseAccess does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Codec) ParseAccess(tokenStr string) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{c.method.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if c.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(c.config.Leeway))
	}
	if c.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(c.config.Issuer))
	}
	if c.config.Audience != "" {
		options = append(options, jwt.WithAudience(c.config.Audience))
	}

	parser := jwt.NewParser(options...)
	parsed, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != c.method.Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return c.config.SigningKey, nil
	})
	if err != nil {
		// The parser verifies the signature before validating claims, so an
		// expiry error here implies the token was authentic.
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %v", ErrExpired, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalid
	}
	if claims.TokenType != TypeAccess {
		return nil, ErrWrongType
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalid)
	}
	if claims.IssuedAt != nil && c.config.MaxFutureIAT > 0 {
		if claims.IssuedAt.Time.After(time.Now().Add(c.config.MaxFutureIAT)) {
			return nil, fmt.Errorf("%w: iat too far in the future", ErrInvalid)
		}
	}

	return claims, nil
}

// PeekSubject extracts the subject claim without verifying the signature.
// The result must never be used to grant authentication; rollout gating is
// its only consumer.
func PeekSubject(tokenStr string) (string, bool) {
	parser := jwt.NewParser()
	parsed, _, err := parser.ParseUnverified(tokenStr, &Claims{})
	if err != nil {
		return "", false
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || claims.Subject == "" {
		return "", false
	}

	return claims.Subject, true
}
