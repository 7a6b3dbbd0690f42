package lobby

import (
	"crypto/rand"
	"math/big"
	"strings"
)

// IDGenerator produces candidate lobby codes. Uniqueness is checked by the Coordinator.
type IDGenerator interface {
	NewID() string
}

// IDGeneratorFunc adapts a plain function to IDGenerator.
type IDGeneratorFunc func() string

func (f IDGeneratorFunc) NewID() string { return f() }

// NumericIDs generates fixed-width decimal codes such as "042137", short enough to read out loud.
type NumericIDs struct {
	Digits int
}

// NewID returns a uniformly random code of n.Digits digits, leading zeros kept.
func (n NumericIDs) NewID() string {
	digits := n.Digits
	if digits <= 0 {
		digits = 6
	}
	var b strings.Builder
	b.Grow(digits)
	ten := big.NewInt(10)
	for i := 0; i < digits; i++ {
		d, err := rand.Int(rand.Reader, ten)
		if err != nil {
			// crypto/rand only fails when the OS entropy source is broken
			panic("lobby: reading random digits: " + err.Error())
		}
		b.WriteByte(byte('0' + d.Int64()))
	}
	return b.String()
}
