// Package bigint parses and adds the arbitrary-precision planck amounts that
// flow through the indexer as decimal strings. math/big rather than a
// fixed-width type since planck amounts (sum-of-stakes-squared especially)
// routinely exceed 64 bits.
package bigint

import (
	"math/big"
	"strings"

	"github.com/pkg/errors"
)

// ErrInvalidDecimal is returned by Parse when the input is not a base-10,
// non-negative integer string.
var ErrInvalidDecimal = errors.New("bigint: not a non-negative decimal integer")

// Parse reads s as a non-negative base-10 integer. The empty string parses
// as zero, since optional event fields arrive as absent rather than "0".
func Parse(s string) (*big.Int, error) {
	if s == "" {
		return big.NewInt(0), nil
	}
	n, ok := new(big.Int).SetString(s, 10)
	if !ok || n.Sign() < 0 {
		return nil, errors.Wrapf(ErrInvalidDecimal, "value %q", s)
	}
	return n, nil
}

// Add returns the decimal-string sum a+b. Either operand may be empty (treated as 0).
// Invalid operands are reported rather than silently truncated, so callers (e.g. the
// EraPaid handler) can log and skip instead of corrupting an era row.
func Add(a, b string) (string, error) {
	x, err := Parse(a)
	if err != nil {
		return "", errors.Wrap(err, "addend a")
	}
	y, err := Parse(b)
	if err != nil {
		return "", errors.Wrap(err, "addend b")
	}
	return new(big.Int).Add(x, y).String(), nil
}

// IsZeroOrEmpty reports whether s is empty or made only of '0' digits; any other
// string, including a non-numeric one, reports false. It expresses the non-zero-preserves
// rule for score fields (a new value of "0" or "" must not clobber an existing non-zero
// score field); the store's upserts apply that rule in SQL and do not call it.
func IsZeroOrEmpty(s string) bool {
	if s == "" {
		return true
	}
	trimmed := strings.TrimLeft(s, "0")
	return trimmed == ""
}
