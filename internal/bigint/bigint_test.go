package bigint

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestParseEmptyIsZero(t *testing.T) {
	n, err := Parse("")
	require.NoError(t, err)
	assert.Equal(t, "0", n.String())
}

func TestParseRejectsNegativeAndGarbage(t *testing.T) {
	for _, s := range []string{"-1", "abc", "1.5", " 1"} {
		_, err := Parse(s)
		assert.Error(t, err, "expected error for %q", s)
	}
}

func TestAddTreatsEmptyOperandsAsZero(t *testing.T) {
	sum, err := Add("", "42")
	require.NoError(t, err)
	assert.Equal(t, "42", sum)
}

func TestIsZeroOrEmpty(t *testing.T) {
	assert.True(t, IsZeroOrEmpty(""))
	assert.True(t, IsZeroOrEmpty("0"))
	assert.True(t, IsZeroOrEmpty("000"))
	assert.False(t, IsZeroOrEmpty("10"))
	assert.False(t, IsZeroOrEmpty("001"))
}

// TestAddMatchesMathBig checks Add against math/big directly over randomly
// generated non-negative decimal strings, covering magnitudes well past
// uint64 range the way planck balances routinely do.
func TestAddMatchesMathBig(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := rapid.StringMatching(`[0-9]{1,40}`).Draw(t, "a")
		b := rapid.StringMatching(`[0-9]{1,40}`).Draw(t, "b")

		got, err := Add(a, b)
		require.NoError(t, err)

		want := new(big.Int)
		aBig, _ := new(big.Int).SetString(a, 10)
		bBig, _ := new(big.Int).SetString(b, 10)
		want.Add(aBig, bBig)

		assert.Equal(t, want.String(), got)
	})
}

// TestAddCommutative checks a+b == b+a for arbitrary decimal operands.
func TestAddCommutative(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := rapid.StringMatching(`[0-9]{1,30}`).Draw(t, "a")
		b := rapid.StringMatching(`[0-9]{1,30}`).Draw(t, "b")

		ab, err := Add(a, b)
		require.NoError(t, err)
		ba, err := Add(b, a)
		require.NoError(t, err)

		assert.Equal(t, ab, ba)
	})
}
