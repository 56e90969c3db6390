package session

import (
	"bytes"
	"errors"
	"testing"
)

func FuzzDecode(f *testing.F) {
	seed, _ := Encode(&Session{UserID: "u-3", Name: "Cliente Demo", Email: "cliente@portal.local", Role: "CLIENT", CreatedAt: 1700000000, ExpiresAt: 1700003600})
	for _, s := range [][]byte{seed, seed[:len(seed)-3], append(seed, 0), nil, {sessionFormatVersion}, {2, 0, 0, 0, 0}} {
		f.Add(s)
	}

	f.Fuzz(func(t *testing.T, data []byte) {
		s, err := Decode(data)
		if err != nil {
			return
		}
		// Anything Decode accepts is canonical.
		again, err := Encode(s)
		if err != nil {
			t.Fatalf("re-encode failed: %v", err)
		}
		if !bytes.Equal(again, data) {
			t.Fatalf("round trip mismatch: %x != %x", again, data)
		}
	})
}

func FuzzEncodeFields(f *testing.F) {
	f.Add("u-1", "Ada", "admin@portal.local", "ADMIN", int64(0), int64(-1))
	f.Add("", "", "", "", int64(1)<<62, int64(42))

	f.Fuzz(func(t *testing.T, uid, name, email, role string, created, expires int64) {
		in := &Session{UserID: uid, Name: name, Email: email, Role: role, CreatedAt: created, ExpiresAt: expires}
		data, err := Encode(in)
		if err != nil {
			if !errors.Is(err, ErrFieldTooLong) {
				t.Fatalf("unexpected encode error: %v", err)
			}
			return
		}
		out, err := Decode(data)
		if err != nil {
			t.Fatalf("decode of encoded session: %v", err)
		}
		if *out != *in {
			t.Fatalf("got %+v, want %+v", out, in)
		}
	})
}
