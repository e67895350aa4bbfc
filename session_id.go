package rtspd

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
)

const (
	sessionIDLength = 8
	sessionIDChars  = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

// SessionIDGenerator generates random identifiers.
type SessionIDGenerator func() (string, error)

func randUint32() (uint32, error) {
	var b [4]byte
	_, err := rand.Read(b[:])
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b[:]), nil
}

// generateSessionID returns a random alphanumeric string of 8 characters.
func generateSessionID() (string, error) {
	// bytes above this value are discarded, so that every character
	// has the same probability.
	limit := 256 - (256 % len(sessionIDChars))

	out := make([]byte, 0, sessionIDLength)
	buf := make([]byte, sessionIDLength*2)

	for len(out) < sessionIDLength {
		_, err := rand.Read(buf)
		if err != nil {
			return "", err
		}

		for _, b := range buf {
			if int(b) >= limit {
				continue
			}

			out = append(out, sessionIDChars[int(b)%len(sessionIDChars)])
			if len(out) == sessionIDLength {
				break
			}
		}
	}

	return string(out), nil
}

// generateTrackID returns a random identifier of 8 hex characters.
func generateTrackID() (string, error) {
	v, err := randUint32()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%08X", v), nil
}
