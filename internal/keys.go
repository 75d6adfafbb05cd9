package internal

import (
	"crypto/sha256"
	"errors"
	"io"

	"golang.org/x/crypto/hkdf"
)

// DerivedKeySize is the byte length of every key derived from the master secret.
const DerivedKeySize = 32

// Key derivation labels. Changing a label invalidates every artifact signed or
// hashed under it, so labels are versioned.
const (
	LabelAccessSigning = "authshift/access-signing/v1"
	LabelLegacyHash    = "authshift/legacy-hash/v1"
)

// DeriveKey expands the master secret into an independent subkey for the given
// label via HKDF-SHA256. The master secret itself is never used directly, so a
// compromise of one derived key does not expose the others.
func DeriveKey(master []byte, label string) ([]byte, error) {
	if len(master) < DerivedKeySize {
		return nil, errors.New("master secret too short")
	}
	if label == "" {
		return nil, errors.New("empty derivation label")
	}

	key := make([]byte, DerivedKeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, master, nil, []byte(label)), key); err != nil {
		return nil, err
	}

	return key, nil
}
