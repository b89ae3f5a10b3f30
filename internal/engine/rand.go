package engine

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// RandSource provides the randomness used for spotlight selection and
// team grouping. Tests inject a deterministic sequence.
type RandSource interface {
	// Intn returns a random integer in [0, n). Panics if n <= 0.
	Intn(n int) int
}

type cryptoRandSource struct{}

func (cryptoRandSource) Intn(n int) int {
	if n <= 0 {
		panic(fmt.Sprintf("cryptoRandSource.Intn: n must be positive, got %d", n))
	}
	// rand.Int does not error when using rand.Reader
	nBig, _ := rand.Int(rand.Reader, big.NewInt(int64(n)))
	return int(nBig.Int64())
}

// DefaultRandSource is backed by crypto/rand.
var DefaultRandSource RandSource = cryptoRandSource{}

func orDefault(rng RandSource) RandSource {
	if rng == nil {
		return DefaultRandSource
	}
	return rng
}
