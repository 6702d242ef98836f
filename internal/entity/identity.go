package entity

import (
	"crypto/rand"
	"math/big"

	"github.com/google/uuid"
)

const (
	base62Alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
	bookingUIDLen  = 12
)

// NewID returns a fresh primary-key identifier.
func NewID() string {
	return uuid.NewString()
}

// NewBookingUID returns the short public identity of a booking:
// 12 base62 characters from a CSPRNG, unguessable by construction.
func NewBookingUID() string {
	max := big.NewInt(int64(len(base62Alphabet)))
	buf := make([]byte, bookingUIDLen)
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand only fails when the platform entropy source is
			// broken; fall back to a uuid-derived character.
			buf[i] = base62Alphabet[uuid.New()[i%16]%byte(len(base62Alphabet))]
			continue
		}
		buf[i] = base62Alphabet[n.Int64()]
	}
	return string(buf)
}
