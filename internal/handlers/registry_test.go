package handlers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"finitefield.org/gift-registry/internal/catalog"
	"finitefield.org/gift-registry/internal/content"
	"finitefield.org/gift-registry/internal/contribution"
)

type nopSubmitter struct{}

func (nopSubmitter) Submit(context.Context, contribution.Draft) error { return nil }

func TestBuildCard(t *testing.T) {
	t.Parallel()

	card := BuildCard(catalog.Item{
		ID:                "stove",
		Name:              "Gas stove",
		Description:       "Four *burners*",
		TargetAmount:      5000,
		ContributedAmount: 2000,
	}, "en", "XAF")

	require.Equal(t, "XAF 5,000", card.Target)
	require.Equal(t, "XAF 2,000", card.Contributed)
	require.Equal(t, "XAF 3,000", card.Remaining)
	require.Equal(t, 40, card.Percent)
	require.False(t, card.FullyFunded)
	require.Equal(t, PlaceholderImage, card.Image)
	require.Contains(t, string(card.Description), "<em>burners</em>")
}

func TestBuildFlowFollowsState(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cat := catalog.NewCatalog(catalog.Item{ID: "stove", Name: "Gas stove", TargetAmount: 5000, ContributedAmount: 2000})
	ctrl := contribution.NewController(cat, nopSubmitter{})

	v := BuildFlow(ctrl, "en", "XAF")
	require.False(t, v.ModalOpen())

	_, err := ctrl.Select(ctx, "stove")
	require.NoError(t, err)
	v = BuildFlow(ctrl, "en", "XAF")
	require.True(t, v.Selecting)
	require.False(t, v.Confirming)
	require.Equal(t, "3000", v.Form.AmountContribute)
	require.Equal(t, int64(3000), v.MaxAmount)
	require.Equal(t, "XAF 1,000", v.MinLabel)

	_, err = ctrl.Submit(ctx, contribution.FormValues{
		SubmitterName:    "Ada",
		ContactEmail:     "ada@example.com",
		Relationship:     "Friend",
		AmountContribute: "2500",
	})
	require.NoError(t, err)
	v = BuildFlow(ctrl, "en", "XAF")
	require.False(t, v.Selecting)
	require.True(t, v.Confirming)
	require.Equal(t, "XAF 2,500", v.Draft.Amount)
	require.Equal(t, "Gas stove", v.Draft.Item)

	data := BuildRegistryData(content.Page{Title: "Registry"}, cat.Items(), v, "en", "XAF")
	require.Equal(t, "modal-open", data.BodyClass)
	require.Equal(t, "Registry", data.SEO.Title)
	require.Len(t, data.Cards, 1)
}
