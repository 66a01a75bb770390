package catalog

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDerivedMetrics(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name        string
		item        Item
		remaining   int64
		percentage  float64
		fullyFunded bool
	}{
		{name: "partially funded", item: Item{TargetAmount: 5000, ContributedAmount: 2000}, remaining: 3000, percentage: 40},
		{name: "untouched", item: Item{TargetAmount: 5000}, remaining: 5000, percentage: 0},
		{name: "exactly funded", item: Item{TargetAmount: 3000, ContributedAmount: 3000}, remaining: 0, percentage: 100, fullyFunded: true},
		{name: "over funded", item: Item{TargetAmount: 3000, ContributedAmount: 4500}, remaining: 0, percentage: 100, fullyFunded: true},
		{name: "zero target", item: Item{}, remaining: 0, percentage: 0, fullyFunded: true},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.remaining, tc.item.RemainingAmount())
			require.InDelta(t, tc.percentage, tc.item.FundedPercentage(), 0.0001)
			require.Equal(t, tc.fullyFunded, tc.item.IsFullyFunded())

			require.GreaterOrEqual(t, tc.item.RemainingAmount(), int64(0))
			require.GreaterOrEqual(t, tc.item.FundedPercentage(), 0.0)
			require.LessOrEqual(t, tc.item.FundedPercentage(), 100.0)
		})
	}
}
