package catalog

// Item is a fundable gift as published by the catalog document.
type Item struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	Description       string `json:"description"`
	Image             string `json:"image"`
	TargetAmount      int64  `json:"targetAmount"`
	ContributedAmount int64  `json:"contributedAmount"`
}

// RemainingAmount is the amount still needed, never negative.
func (i Item) RemainingAmount() int64 {
	if rest := i.TargetAmount - i.ContributedAmount; rest > 0 {
		return rest
	}
	return 0
}

// FundedPercentage is in [0, 100]. Items without a target report 0.
func (i Item) FundedPercentage() float64 {
	if i.TargetAmount <= 0 {
		return 0
	}
	pct := float64(i.ContributedAmount) / float64(i.TargetAmount) * 100
	if pct > 100 {
		return 100
	}
	if pct < 0 {
		return 0
	}
	return pct
}

// IsFullyFunded reports whether contributions reached the target.
func (i Item) IsFullyFunded() bool {
	return i.ContributedAmount >= i.TargetAmount
}

type document struct {
	Items []Item `json:"items"`
}
