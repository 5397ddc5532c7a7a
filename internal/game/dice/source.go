package dice

import (
	"crypto/rand"
	"math/big"
)

// cryptoSource draws die faces from crypto/rand so table rolls cannot be
// predicted or replayed from a seed.
type cryptoSource struct{}

// NewCryptoSource returns the Source used by the live roller. Tests
// substitute a fixed Source instead of seeding this one.
func NewCryptoSource() Source {
	return &cryptoSource{}
}

// Intn returns a uniform random int in [0, n).
//
// Precondition: n > 0. A non-positive n or a crypto/rand failure panics;
// both indicate a bug rather than a rollable expression.
func (c *cryptoSource) Intn(n int) int {
	if n <= 0 {
		panic("dice: Intn called with n <= 0")
	}
	val, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		panic("dice: crypto/rand failure: " + err.Error())
	}
	return int(val.Int64())
}
