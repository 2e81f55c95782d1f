package otp

import (
	"crypto/rand"
	"math/big"
	"strconv"
)

const (
	codeMin = 100000
	codeMax = 999999
)

// RandomSource produces verification codes.
type RandomSource interface {
	NewCode() (string, error)
}

// CryptoSource draws codes uniformly from 100000..999999 using crypto/rand.
type CryptoSource struct{}

// NewCode returns a 6-digit code with no leading zero.
func (CryptoSource) NewCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(codeMax-codeMin+1))
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(n.Int64()+codeMin, 10), nil
}

// StaticSource always returns the same code. Useful in tests.
type StaticSource string

func (s StaticSource) NewCode() (string, error) { return string(s), nil }
