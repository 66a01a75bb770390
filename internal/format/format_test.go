package format

import (
	"strings"
	"testing"
	"unicode"

	"github.com/stretchr/testify/require"
)

func digitsOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
}

func TestAmount(t *testing.T) {
	t.Parallel()

	require.Equal(t, "XAF 12,345", Amount(12345, "XAF", "en"))
	require.Equal(t, "XAF 0", Amount(0, "xaf", "en"))
	require.Equal(t, "XAF 1,000,000", Amount(1000000, "", "en"))

	fr := Amount(12345, "XAF", "fr")
	require.True(t, strings.HasSuffix(fr, " XAF"), fr)
	require.Equal(t, "12345", digitsOnly(fr))
}

func TestAmountUnknownLanguageFallsBackToEnglish(t *testing.T) {
	t.Parallel()

	require.Equal(t, "XAF 3,000", Amount(3000, "XAF", "!!"))
}

func TestAmountUnknownCurrencyFallsBackToXAF(t *testing.T) {
	t.Parallel()

	require.Equal(t, "XAF 5,000", Amount(5000, "ZZZ", "en"))
	require.Equal(t, "XAF 250", Amount(250, "not-a-code", "en"))
}

func TestPercent(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   float64
		want int
	}{
		{in: -5, want: 0},
		{in: 0, want: 0},
		{in: 33.33, want: 33},
		{in: 66.5, want: 67},
		{in: 100, want: 100},
		{in: 140, want: 100},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, Percent(tc.in), "input %v", tc.in)
	}
}
