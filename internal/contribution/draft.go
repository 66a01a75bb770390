package contribution

import (
	"strconv"

	"finitefield.org/gift-registry/internal/catalog"
)

// State is a step of the contribution flow.
type State string

const (
	StateIdle        State = "idle"
	StateSelecting   State = "selecting"
	StateConfirming  State = "confirming"
	StateSubmitting  State = "submitting"
	StateRedirecting State = "redirecting"
)

// FormValues are the raw values entered in the contribution form.
type FormValues struct {
	SubmitterName    string `json:"submitterName,omitempty"`
	ContactEmail     string `json:"contactEmail,omitempty"`
	Relationship     string `json:"relationship,omitempty"`
	AmountContribute string `json:"amountContribute,omitempty"`
	Message          string `json:"message,omitempty"`
}

// Draft is a validated contribution awaiting confirmation.
type Draft struct {
	Reference        string `json:"reference"`
	ItemID           string `json:"itemId"`
	Item             string `json:"item"`
	SubmitterName    string `json:"submitterName"`
	Relationship     string `json:"relationship"`
	AmountContribute int64  `json:"amountContribute"`
	Message          string `json:"message,omitempty"`
	ContactEmail     string `json:"contactEmail"`
}

// Selection describes the item currently open in the contribution form.
type Selection struct {
	Item            catalog.Item
	SuggestedAmount int64
	MinAmount       int64
	MaxAmount       int64
}

// Redirect is the hand-off target after a successful submission.
type Redirect struct {
	URL string
}

// Snapshot is the serialisable form of a Controller.
type Snapshot struct {
	State  State      `json:"state"`
	ItemID string     `json:"itemId,omitempty"`
	Form   FormValues `json:"form"`
	Draft  *Draft     `json:"draft,omitempty"`
}

func prefilledForm(item catalog.Item) FormValues {
	return FormValues{AmountContribute: strconv.FormatInt(item.RemainingAmount(), 10)}
}
