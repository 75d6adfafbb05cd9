package authshift

// Source identifies which credential path authenticated a request.
//
//	Docs: docs/resolver.md
type Source uint8

const (
	// SourceToken is an exported constant or variable used by the authentication engine.
	SourceToken Source = iota
	// SourceLegacy is an exported constant or variable used by the authentication engine.
	SourceLegacy
)

// String returns the wire name of the source.
func (s Source) String() string {
	switch s {
	case SourceToken:
		return "token"
	case SourceLegacy:
		return "legacy"
	default:
		return "unknown"
	}
}

// Principal is the authenticated identity returned by [Engine.Resolve]. The
// Source tag lets callers observe migration progress without changing their
// authorization logic.
type Principal struct {
	UserID string
	Source Source
}

// TokenPair is returned by [Engine.Issue] and [Engine.Refresh]. Expiry
// fields are unix seconds so HTTP layers can set cookie lifetimes without
// re-parsing the tokens.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  int64
	RefreshExpiresAt int64
}

// LogoutReceipt is returned by [Engine.Logout]. Revoked reports whether a
// stored record was actually deleted; ClearCookie is always true because
// clients must drop their refresh cookie no matter what the token named.
type LogoutReceipt struct {
	Revoked     bool
	ClearCookie bool
}

// Mode selects how the engine treats an incoming credential.
//
//	Docs: docs/resolver.md
type Mode uint8

const (
	// ModeInherit is an exported constant or variable used by the authentication engine.
	ModeInherit Mode = iota
	// ModeHybrid is an exported constant or variable used by the authentication engine.
	ModeHybrid
	// ModeTokenOnly is an exported constant or variable used by the authentication engine.
	ModeTokenOnly
	// ModeLegacyOnly is an exported constant or variable used by the authentication engine.
	ModeLegacyOnly
)

// String returns the configuration name of the mode.
func (m Mode) String() string {
	switch m {
	case ModeInherit:
		return "inherit"
	case ModeHybrid:
		return "hybrid"
	case ModeTokenOnly:
		return "token-only"
	case ModeLegacyOnly:
		return "legacy-only"
	default:
		return "unknown"
	}
}
