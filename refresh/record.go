package refresh

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"

	"github.com/google/uuid"
)

const recordFormatVersionCurrent = 1

// Fixed byte offsets inside the encoded blob. The rotation script patches the
// hash and updated-at fields in place, so these must never move within a
// format version.
const (
	recordHashOffset      = 1
	recordExpiresAtOffset = 33
	recordUpdatedAtOffset = 49
	recordUserIDOffset    = 57
)

// Record is one stored refresh token: the SHA-256 hash of its secret plus
// audit metadata. The plaintext secret is never part of a Record.
type Record struct {
	ID        uuid.UUID
	UserID    string
	TokenHash [32]byte
	IPAddress string
	UserAgent string

	CreatedAt int64
	UpdatedAt int64
	ExpiresAt int64
}

// Expired reports whether the record is past its expiry at the given unix time.
func (r *Record) Expired(nowUnix int64) bool {
	return r.ExpiresAt <= nowUnix
}

func Encode(r *Record) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(recordFormatVersionCurrent)
	buf.Write(r.TokenHash[:])

	if err := binary.Write(&buf, binary.BigEndian, r.ExpiresAt); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, r.CreatedAt); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, r.UpdatedAt); err != nil {
		return nil, err
	}

	if len(r.UserID) == 0 {
		return nil, errors.New("empty userID")
	}
	if len(r.UserID) > 255 {
		return nil, errors.New("userID too long")
	}
	buf.WriteByte(byte(len(r.UserID)))
	buf.WriteString(r.UserID)

	if len(r.IPAddress) > 255 {
		return nil, errors.New("ip address too long")
	}
	buf.WriteByte(byte(len(r.IPAddress)))
	buf.WriteString(r.IPAddress)

	if len(r.UserAgent) > 65535 {
		return nil, errors.New("user agent too long")
	}
	if err := binary.Write(&buf, binary.BigEndian, uint16(len(r.UserAgent))); err != nil {
		return nil, err
	}
	buf.WriteString(r.UserAgent)

	return buf.Bytes(), nil
}

func Decode(data []byte) (*Record, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != recordFormatVersionCurrent {
		return nil, errors.New("invalid record version")
	}

	r := &Record{}

	if _, err := io.ReadFull(reader, r.TokenHash[:]); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &r.ExpiresAt); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &r.CreatedAt); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &r.UpdatedAt); err != nil {
		return nil, err
	}

	userLen, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if userLen == 0 {
		return nil, errors.New("empty userID")
	}
	userID := make([]byte, userLen)
	if _, err := io.ReadFull(reader, userID); err != nil {
		return nil, err
	}
	r.UserID = string(userID)

	ipLen, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	ip := make([]byte, ipLen)
	if _, err := io.ReadFull(reader, ip); err != nil {
		return nil, err
	}
	r.IPAddress = string(ip)

	var uaLen uint16
	if err := binary.Read(reader, binary.BigEndian, &uaLen); err != nil {
		return nil, err
	}
	ua := make([]byte, uaLen)
	if _, err := io.ReadFull(reader, ua); err != nil {
		return nil, err
	}
	r.UserAgent = string(ua)

	return r, nil
}
