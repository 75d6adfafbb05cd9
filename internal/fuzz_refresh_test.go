package internal

import (
	"testing"
)

// FuzzDecodeRefreshToken exercises refresh token decoding with arbitrary
// strings. Goal: no panics; invalid inputs should return errors cleanly.
func FuzzDecodeRefreshToken(f *testing.F) {
	// Seed with base64url-looking strings of various lengths.
	f.Add("")
	f.Add("abc")
	f.Add("AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA")

	// And one genuine token.
	if id, err := NewRecordID(); err == nil {
		if secret, err := NewRefreshSecret(); err == nil {
			f.Add(EncodeRefreshToken(id, secret))
		}
	}

	// Malformed base64.
	f.Add("!!!not-base64!!!")
	f.Add("aGVsbG8=")
	f.Add("dG9vLXNob3J0")

	f.Fuzz(func(t *testing.T, input string) {
		// Must not panic. Errors are fine for invalid inputs.
		id, secret, err := DecodeRefreshToken(input)
		if err != nil {
			return
		}

		reEncoded := EncodeRefreshToken(id, secret)
		id2, secret2, err := DecodeRefreshToken(reEncoded)
		if err != nil {
			t.Fatalf("roundtrip decode failed: %v", err)
		}
		if id2 != id {
			t.Errorf("roundtrip record ID mismatch: %s vs %s", id2, id)
		}
		if secret2 != secret {
			t.Error("roundtrip secret mismatch")
		}
	})
}
