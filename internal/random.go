package internal

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"

	"github.com/google/uuid"
)

const (
	refreshTokenRawSize = 48
	refreshSecretSize   = 32
)

func NewRecordID() (uuid.UUID, error) {
	return uuid.NewRandom()
}

func NewRefreshSecret() ([refreshSecretSize]byte, error) {
	var secret [refreshSecretSize]byte
	_, err := rand.Read(secret[:])
	return secret, err
}

func HashRefreshSecret(secret [refreshSecretSize]byte) [32]byte {
	return sha256.Sum256(secret[:])
}

func HashSecretBytes(secret []byte) [32]byte {
	return sha256.Sum256(secret)
}

// EncodeRefreshToken packs a record ID and secret into the opaque composite
// refresh token handed to clients: base64url(id[16] || secret[32]), no padding.
func EncodeRefreshToken(id uuid.UUID, secret [refreshSecretSize]byte) string {
	var raw [refreshTokenRawSize]byte
	copy(raw[:len(id)], id[:])
	copy(raw[len(id):], secret[:])

	return base64.RawURLEncoding.EncodeToString(raw[:])
}

func DecodeRefreshToken(token string) (uuid.UUID, [refreshSecretSize]byte, error) {
	var (
		id     uuid.UUID
		secret [refreshSecretSize]byte
	)

	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return id, secret, err
	}
	if len(raw) != refreshTokenRawSize {
		return id, secret, errors.New("invalid refresh token size")
	}

	copy(id[:], raw[:len(id)])
	copy(secret[:], raw[len(id):])

	return id, secret, nil
}
