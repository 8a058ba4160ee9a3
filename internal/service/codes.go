package service

import (
	"crypto/rand"
	"math/big"
)

// Activation-code alphabet: uppercase letters and digits without the
// lookalikes 0/O and 1/I.
const (
	codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	codeLength   = 12
)

// GenerateCode returns a random activation code.
func GenerateCode() (string, error) {
	buf := make([]byte, codeLength)
	max := big.NewInt(int64(len(codeAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = codeAlphabet[n.Int64()]
	}
	return string(buf), nil
}
