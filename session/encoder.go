package session

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
)

const sessionFormatVersion = 1

var (
	ErrInvalidVersion = errors.New("invalid session version")
	ErrFieldTooLong   = errors.New("session field too long")
)

// Encode writes s as: version byte, four length-prefixed strings (user id,
// name, email, role) and two big-endian int64 timestamps. SessionID is the
// Redis key and is not encoded.
func Encode(s *Session) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(1 + 4 + len(s.UserID) + len(s.Name) + len(s.Email) + len(s.Role) + 16)

	buf.WriteByte(sessionFormatVersion)

	for _, field := range []string{s.UserID, s.Name, s.Email, s.Role} {
		if len(field) > 255 {
			return nil, ErrFieldTooLong
		}
		buf.WriteByte(byte(len(field)))
		buf.WriteString(field)
	}

	if err := binary.Write(&buf, binary.BigEndian, s.CreatedAt); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, s.ExpiresAt); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func Decode(data []byte) (*Session, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != sessionFormatVersion {
		return nil, ErrInvalidVersion
	}

	s := &Session{}
	for _, dst := range []*string{&s.UserID, &s.Name, &s.Email, &s.Role} {
		n, err := reader.ReadByte()
		if err != nil {
			return nil, err
		}
		field := make([]byte, n)
		if _, err := io.ReadFull(reader, field); err != nil {
			return nil, err
		}
		*dst = string(field)
	}

	if err := binary.Read(reader, binary.BigEndian, &s.CreatedAt); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &s.ExpiresAt); err != nil {
		return nil, err
	}
	if reader.Len() != 0 {
		return nil, errors.New("trailing session bytes")
	}

	return s, nil
}
