package refresh

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

// FuzzRecordDecode exercises the binary record decoder with arbitrary inputs.
// Goal: no panics, no unexpected nil dereferences, graceful error handling.
func FuzzRecordDecode(f *testing.F) {
	now := time.Now().Unix()
	rec := &Record{
		ID:        uuid.MustParse("aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee"),
		UserID:    "fuzz-user",
		TokenHash: [32]byte{0xAA, 0xBB},
		IPAddress: "198.51.100.7",
		UserAgent: "fuzz/1.0",
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now + 600,
	}
	encoded, err := Encode(rec)
	if err == nil {
		f.Add(encoded)
	}

	// Empty and short inputs.
	f.Add([]byte{})
	f.Add([]byte{0})
	f.Add([]byte{1})
	f.Add([]byte{255, 255, 255})

	// Truncated at various offsets.
	if len(encoded) > 10 {
		f.Add(encoded[:10])
	}
	if len(encoded) > recordUserIDOffset {
		f.Add(encoded[:recordUserIDOffset])
	}

	f.Fuzz(func(t *testing.T, data []byte) {
		// Must not panic. Errors are expected for malformed input.
		r, err := Decode(data)
		if err != nil {
			return
		}

		// If decode succeeded, re-encode must succeed too.
		if _, err := Encode(r); err != nil {
			t.Fatalf("re-encode of decoded record failed: %v", err)
		}
	})
}
