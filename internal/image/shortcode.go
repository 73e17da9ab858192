package image

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	shortCodeCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	// DefaultShortCodeLength is the starting candidate length.
	DefaultShortCodeLength = 6
	// redraws at one length before widening the candidate.
	redrawsPerLength = 5
	// lengths tried before giving up entirely.
	maxWidenings = 3
)

// codeIndex answers whether a candidate code is already taken.
type codeIndex interface {
	ShortCodeExists(ctx context.Context, code string) (bool, error)
}

// ShortCodeIssuer draws random alphanumeric codes and collision-checks them
// against the asset index, widening the length when a level fills up.
type ShortCodeIssuer struct {
	index  codeIndex
	length int
}

// NewShortCodeIssuer constructs an issuer over the given index.
func NewShortCodeIssuer(index codeIndex, length int) *ShortCodeIssuer {
	if length <= 0 {
		length = DefaultShortCodeLength
	}
	return &ShortCodeIssuer{index: index, length: length}
}

// Issue returns a code not present in the index at call time.
func (i *ShortCodeIssuer) Issue(ctx context.Context) (string, error) {
	length := i.length
	for widening := 0; widening <= maxWidenings; widening++ {
		for attempt := 0; attempt < redrawsPerLength; attempt++ {
			code, err := randomCode(length)
			if err != nil {
				return "", fmt.Errorf("draw short code: %w", err)
			}
			taken, err := i.index.ShortCodeExists(ctx, code)
			if err != nil {
				return "", fmt.Errorf("check short code: %w", err)
			}
			if !taken {
				return code, nil
			}
		}
		length++
	}
	return "", ErrCodeSpaceExhausted
}

func randomCode(length int) (string, error) {
	max := big.NewInt(int64(len(shortCodeCharset)))
	buf := make([]byte, length)
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = shortCodeCharset[n.Int64()]
	}
	return string(buf), nil
}
