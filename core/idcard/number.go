package idcard

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

// no 0/O or 1/I
const numberAlphabet = "23456789ABCDEFGHJKLMNPQRSTUVWXYZ"

// GenerateNumber returns a card number like "HR-2026-7KQ2M9XA".
func GenerateNumber(now time.Time) (string, error) {
	suffix := make([]byte, 8)
	max := big.NewInt(int64(len(numberAlphabet)))
	for i := range suffix {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		suffix[i] = numberAlphabet[n.Int64()]
	}
	return fmt.Sprintf("HR-%d-%s", now.Year(), suffix), nil
}
