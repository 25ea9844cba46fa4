package session

import (
	"encoding/binary"
	"errors"
	"time"
)

const rowFormatVersionV1 = 1

// Row layout v1: version byte, then user id, created-at, expires-at as
// big-endian int64 (unix seconds). The token is the storage key and is not
// repeated inside the row.
const encodedRowSize = 1 + 8 + 8 + 8

// Encode serializes a session row for storage.
func Encode(s *Session) []byte {
	buf := make([]byte, encodedRowSize)
	buf[0] = rowFormatVersionV1
	binary.BigEndian.PutUint64(buf[1:], uint64(s.UserID))
	binary.BigEndian.PutUint64(buf[9:], uint64(s.CreatedAt.Unix()))
	binary.BigEndian.PutUint64(buf[17:], uint64(s.ExpiresAt.Unix()))
	return buf
}

// Decode parses a stored row. The caller fills in the token. A row of the
// wrong size or version is corrupt and is rejected, never half-read.
func Decode(data []byte) (*Session, error) {
	if len(data) != encodedRowSize {
		return nil, errors.New("invalid session row size")
	}
	if data[0] != rowFormatVersionV1 {
		return nil, errors.New("invalid session row version")
	}

	s := &Session{
		UserID: int64(binary.BigEndian.Uint64(data[1:])),
	}
	s.CreatedAt = time.Unix(int64(binary.BigEndian.Uint64(data[9:])), 0)
	s.ExpiresAt = time.Unix(int64(binary.BigEndian.Uint64(data[17:])), 0)
	return s, nil
}
