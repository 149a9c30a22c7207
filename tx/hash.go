package tx

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"time"
)

// HashSize is the size of a section or header digest in bytes.
const HashSize = 32

// Hash is a SHA-256 digest identifying a section or a header.
type Hash [HashSize]byte

func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

func (h Hash) IsZero() bool {
	return h == Hash{}
}

// HashFromHex parses a hex encoded hash.
func HashFromHex(s string) (Hash, error) {
	var h Hash
	b, err := hex.DecodeString(s)
	if err != nil {
		return h, err
	}
	if len(b) != HashSize {
		return h, fmt.Errorf("hash must be %d bytes, got %d", HashSize, len(b))
	}
	copy(h[:], b)
	return h, nil
}

// Salt distinguishes sections with identical content.
type Salt [8]byte

// SaltAt derives a salt from a creation time: the Unix milliseconds, little endian.
func SaltAt(t time.Time) Salt {
	var s Salt
	binary.LittleEndian.PutUint64(s[:], uint64(t.UnixMilli()))
	return s
}

// NewSalt is SaltAt(time.Now()).
func NewSalt() Salt {
	return SaltAt(time.Now())
}
