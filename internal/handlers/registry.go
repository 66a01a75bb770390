package handlers

import (
	"html/template"
	"strings"

	"finitefield.org/gift-registry/internal/catalog"
	"finitefield.org/gift-registry/internal/content"
	"finitefield.org/gift-registry/internal/contribution"
	"finitefield.org/gift-registry/internal/format"
)

// PlaceholderImage is shown when an item has no picture or it fails to load.
const PlaceholderImage = "/assets/img/placeholder.svg"

// RegistryData is the view model for the registry page.
type RegistryData struct {
	Lang      string
	Langs     []string
	Title     string
	Summary   string
	Intro     template.HTML
	Banner    *content.Banner
	SEO       SEOData
	Cards     []CardView
	Flow      FlowView
	CSRFToken string
	BodyClass string
}

// SEOData carries head metadata.
type SEOData struct {
	Title       string
	Description string
	OGImage     string
}

// CardView is one gift card of the grid.
type CardView struct {
	ID          string
	Name        string
	Description template.HTML
	Image       string
	Target      string
	Contributed string
	Remaining   string
	Percent     int
	FullyFunded bool
}

// FlowView renders whichever contribution surface matches the controller state.
type FlowView struct {
	Lang      string
	CSRFToken string
	State     contribution.State
	Error     string

	Selecting  bool
	Confirming bool
	Item       *CardView
	Form       contribution.FormValues
	MinAmount  int64
	MaxAmount  int64
	MinLabel   string
	MaxLabel   string
	Draft      *DraftView
}

// ModalOpen reports whether a surface is visible.
func (f FlowView) ModalOpen() bool { return f.Selecting || f.Confirming }

// MaxLen is the maxlength hint for a free-text input.
func (f FlowView) MaxLen(field string) int {
	switch field {
	case "submitterName":
		return contribution.MaxNameBytes
	case "contactEmail":
		return contribution.MaxEmailBytes
	case "relationship":
		return contribution.MaxRelationshipBytes
	default:
		return contribution.MaxMessageBytes
	}
}

// DraftView is the confirmation summary.
type DraftView struct {
	Item          string
	SubmitterName string
	ContactEmail  string
	Relationship  string
	Message       string
	Amount        string
}

// BuildCard derives the display values of item.
func BuildCard(item catalog.Item, lang, currency string) CardView {
	image := strings.TrimSpace(item.Image)
	if image == "" {
		image = PlaceholderImage
	}
	return CardView{
		ID:          item.ID,
		Name:        item.Name,
		Description: content.Markdown(item.Description),
		Image:       image,
		Target:      format.Amount(item.TargetAmount, currency, lang),
		Contributed: format.Amount(item.ContributedAmount, currency, lang),
		Remaining:   format.Amount(item.RemainingAmount(), currency, lang),
		Percent:     format.Percent(item.FundedPercentage()),
		FullyFunded: item.IsFullyFunded(),
	}
}

// BuildCards maps items in catalog order.
func BuildCards(items []catalog.Item, lang, currency string) []CardView {
	cards := make([]CardView, 0, len(items))
	for _, item := range items {
		cards = append(cards, BuildCard(item, lang, currency))
	}
	return cards
}

// FlowState is the subset of the controller the flow view reads.
type FlowState interface {
	State() contribution.State
	Selection() (contribution.Selection, bool)
	Form() contribution.FormValues
	Draft() (contribution.Draft, bool)
}

// BuildFlow builds the flow view for the controller's current state.
func BuildFlow(flow FlowState, lang, currency string) FlowView {
	v := FlowView{Lang: lang, State: flow.State()}
	if sel, ok := flow.Selection(); ok {
		card := BuildCard(sel.Item, lang, currency)
		v.Selecting = true
		v.Item = &card
		v.Form = flow.Form()
		v.MinAmount = sel.MinAmount
		v.MaxAmount = sel.MaxAmount
		v.MinLabel = format.Amount(sel.MinAmount, currency, lang)
		v.MaxLabel = format.Amount(sel.MaxAmount, currency, lang)
	}
	if d, ok := flow.Draft(); ok && flow.State() == contribution.StateConfirming {
		v.Confirming = true
		v.Draft = &DraftView{
			Item:          d.Item,
			SubmitterName: d.SubmitterName,
			ContactEmail:  d.ContactEmail,
			Relationship:  d.Relationship,
			Message:       d.Message,
			Amount:        format.Amount(d.AmountContribute, currency, lang),
		}
	}
	return v
}

// BuildRegistryData assembles the full page.
func BuildRegistryData(page content.Page, items []catalog.Item, flow FlowView, lang, currency string) RegistryData {
	data := RegistryData{
		Lang:    lang,
		Title:   page.Title,
		Summary: page.Summary,
		Intro:   page.Body,
		Banner:  page.Banner,
		SEO: SEOData{
			Title:       firstNonEmpty(page.SEO.Title, page.Title),
			Description: firstNonEmpty(page.SEO.Description, page.Summary),
			OGImage:     page.SEO.OGImage,
		},
		Cards:     BuildCards(items, lang, currency),
		Flow:      flow,
		CSRFToken: flow.CSRFToken,
	}
	if flow.ModalOpen() {
		data.BodyClass = "modal-open"
	}
	return data
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
