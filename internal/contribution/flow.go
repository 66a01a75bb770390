package contribution

import (
	"context"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"finitefield.org/gift-registry/internal/catalog"
	"finitefield.org/gift-registry/internal/observability"
)

// DefaultMinimumAmount is the smallest accepted contribution in whole currency units.
const DefaultMinimumAmount int64 = 1000

// Catalog is the item lookup the controller depends on.
type Catalog interface {
	FindByID(id string) (catalog.Item, bool)
}

// Controller sequences one session's contribution flow:
// Idle -> Selecting -> Confirming -> Submitting -> Redirecting.
// A Controller is not safe for concurrent use; the shared Ledger is.
type Controller struct {
	catalog       Catalog
	submitter     Submitter
	ledger        *Ledger
	metrics       *Metrics
	paymentURL    string
	minimum       int64
	submitTimeout time.Duration
	now           func() time.Time

	state  State
	itemID string
	form   FormValues
	draft  *Draft
}

// Option customises a Controller.
type Option func(*Controller)

// WithPaymentURL sets the redirect target returned after a successful submission.
func WithPaymentURL(url string) Option {
	return func(c *Controller) { c.paymentURL = url }
}

// WithMinimumAmount overrides DefaultMinimumAmount.
func WithMinimumAmount(amount int64) Option {
	return func(c *Controller) {
		if amount > 0 {
			c.minimum = amount
		}
	}
}

// WithSubmitTimeout bounds the hand-off call.
func WithSubmitTimeout(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.submitTimeout = d
		}
	}
}

// WithLedger shares a ledger between controllers of different requests.
func WithLedger(l *Ledger) Option {
	return func(c *Controller) { c.ledger = l }
}

// WithMetrics attaches flow metrics.
func WithMetrics(m *Metrics) Option {
	return func(c *Controller) { c.metrics = m }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

// NewController returns an Idle controller.
func NewController(cat Catalog, submitter Submitter, opts ...Option) *Controller {
	c := &Controller{
		catalog:       cat,
		submitter:     submitter,
		minimum:       DefaultMinimumAmount,
		submitTimeout: defaultSubmitTimeout,
		now:           time.Now,
		state:         StateIdle,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.ledger == nil {
		c.ledger = NewLedger(0)
	}
	return c
}

// State returns the current state.
func (c *Controller) State() State { return c.state }

// MinimumAmount returns the smallest accepted amount.
func (c *Controller) MinimumAmount() int64 { return c.minimum }

// Form returns the values shown in the contribution form.
func (c *Controller) Form() FormValues { return c.form }

// Selection returns the open item while Selecting.
func (c *Controller) Selection() (Selection, bool) {
	if c.state != StateSelecting {
		return Selection{}, false
	}
	item, ok := c.catalog.FindByID(c.itemID)
	if !ok {
		return Selection{}, false
	}
	return c.selectionFor(item), true
}

// Draft returns the draft awaiting confirmation.
func (c *Controller) Draft() (Draft, bool) {
	if c.draft == nil {
		return Draft{}, false
	}
	return *c.draft, true
}

// Select opens the contribution form for id. Unknown and fully funded items are rejected
// without a transition.
func (c *Controller) Select(ctx context.Context, id string) (Selection, error) {
	sel, err := c.selectItem(id)
	c.metrics.event(ctx, "select", err)
	return sel, err
}

func (c *Controller) selectItem(id string) (Selection, error) {
	if c.state != StateIdle && c.state != StateSelecting {
		return Selection{}, &TransitionError{From: c.state, Event: "select"}
	}
	item, ok := c.catalog.FindByID(id)
	if !ok {
		return Selection{}, ErrItemNotFound
	}
	if item.IsFullyFunded() {
		return Selection{}, ErrFullyFunded
	}
	c.open(item)
	return c.selectionFor(item), nil
}

// Cancel closes the contribution form. It is a no-op while Idle.
func (c *Controller) Cancel(ctx context.Context) error {
	var err error
	switch c.state {
	case StateIdle:
	case StateSelecting:
		c.reset()
	default:
		err = &TransitionError{From: c.state, Event: "cancel"}
	}
	c.metrics.event(ctx, "cancel", err)
	return err
}

// Dismiss handles an escape-style close of whichever surface is visible.
func (c *Controller) Dismiss(ctx context.Context) error {
	var err error
	switch c.state {
	case StateIdle:
	case StateSelecting:
		c.reset()
	case StateConfirming:
		err = c.decline()
	default:
		err = &TransitionError{From: c.state, Event: "dismiss"}
	}
	c.metrics.event(ctx, "dismiss", err)
	return err
}

// Submit validates form against the current remaining amount of the selected item and moves
// to Confirming. On a validation failure the form keeps the entered values.
func (c *Controller) Submit(ctx context.Context, form FormValues) (Draft, error) {
	d, err := c.submit(form)
	c.metrics.event(ctx, "submit", err)
	return d, err
}

func (c *Controller) submit(form FormValues) (Draft, error) {
	if c.state != StateSelecting {
		return Draft{}, &TransitionError{From: c.state, Event: "submit"}
	}
	item, ok := c.catalog.FindByID(c.itemID)
	if !ok {
		c.reset()
		return Draft{}, ErrItemNotFound
	}

	draft, err := Validate(form, item, c.minimum)
	if err != nil {
		c.form = clipForm(form)
		return Draft{}, err
	}
	draft.Reference = c.newReference()

	c.draft = &draft
	c.form = FormValues{}
	c.state = StateConfirming
	return draft, nil
}

// Decline returns from the confirmation to a fresh form for the same item. When the item is
// no longer selectable the flow goes Idle and the lookup error is returned.
func (c *Controller) Decline(ctx context.Context) error {
	var err error
	if c.state != StateConfirming {
		err = &TransitionError{From: c.state, Event: "decline"}
	} else {
		err = c.decline()
	}
	c.metrics.event(ctx, "decline", err)
	return err
}

func (c *Controller) decline() error {
	itemID := c.itemID
	c.reset()
	item, ok := c.catalog.FindByID(itemID)
	if !ok {
		return ErrItemNotFound
	}
	if item.IsFullyFunded() {
		return ErrFullyFunded
	}
	c.open(item)
	return nil
}

// Confirm hands the draft off exactly once and returns the payment redirect. On failure the
// draft is discarded and the flow is Idle.
func (c *Controller) Confirm(ctx context.Context) (Redirect, error) {
	redirect, err := c.confirm(ctx)
	c.metrics.event(ctx, "confirm", err)
	return redirect, err
}

func (c *Controller) confirm(ctx context.Context) (Redirect, error) {
	if c.state != StateConfirming || c.draft == nil {
		return Redirect{}, &TransitionError{From: c.state, Event: "confirm"}
	}
	draft := *c.draft
	logger := observability.FromContext(ctx).With(zap.String("reference", draft.Reference))

	switch res := c.ledger.Reserve(draft.Reference, c.now()); res.State {
	case ReservationCompleted:
		c.redirecting()
		return Redirect{URL: res.RedirectURL}, nil
	case ReservationPending:
		return Redirect{}, ErrSubmissionInFlight
	case ReservationFailed:
		c.reset()
		return Redirect{}, &SubmissionError{Reference: draft.Reference, Err: ErrDraftDiscarded}
	}

	c.state = StateSubmitting
	submitCtx, cancel := context.WithTimeout(ctx, c.submitTimeout)
	start := c.now()
	err := c.submitter.Submit(submitCtx, draft)
	cancel()
	elapsed := c.now().Sub(start)

	if err != nil {
		c.ledger.Fail(draft.Reference, c.now())
		c.reset()
		result := "error"
		if errors.Is(err, context.DeadlineExceeded) {
			result = "timeout"
		}
		c.metrics.submission(ctx, result, elapsed)
		logger.Error("contribution submission failed", zap.Error(err), zap.String("item_id", draft.ItemID))
		return Redirect{}, &SubmissionError{Reference: draft.Reference, Err: err}
	}

	c.ledger.Complete(draft.Reference, c.paymentURL, c.now())
	c.metrics.submission(ctx, "ok", elapsed)
	logger.Info("contribution submitted", zap.String("item_id", draft.ItemID), zap.Int64("amount", draft.AmountContribute))
	c.redirecting()
	return Redirect{URL: c.paymentURL}, nil
}

// Snapshot captures the controller state for persistence between requests.
func (c *Controller) Snapshot() Snapshot {
	s := Snapshot{State: c.state, ItemID: c.itemID, Form: c.form}
	if c.draft != nil {
		d := *c.draft
		s.Draft = &d
	}
	return s
}

// Restore loads a snapshot. Snapshots that no longer describe a reachable state restore to Idle.
// Transient states never survive a restore.
func (c *Controller) Restore(s Snapshot) error {
	c.reset()
	switch s.State {
	case "", StateIdle, StateSubmitting, StateRedirecting:
		return nil
	case StateSelecting:
		item, ok := c.catalog.FindByID(s.ItemID)
		if !ok || item.IsFullyFunded() {
			return nil
		}
		c.state = StateSelecting
		c.itemID = item.ID
		c.form = clipForm(s.Form)
		return nil
	case StateConfirming:
		if s.Draft == nil || s.Draft.Reference == "" {
			return nil
		}
		// Drafts the ledger cannot vouch for could be handed off twice.
		if !c.ledger.Covers(s.Draft.Reference, c.now()) {
			return nil
		}
		d := *s.Draft
		c.state = StateConfirming
		c.itemID = s.ItemID
		c.draft = &d
		return nil
	default:
		return ErrInvalidSnapshot
	}
}

func (c *Controller) open(item catalog.Item) {
	c.state = StateSelecting
	c.itemID = item.ID
	c.form = prefilledForm(item)
	c.draft = nil
}

func (c *Controller) redirecting() {
	c.reset()
	c.state = StateRedirecting
}

func (c *Controller) reset() {
	c.state = StateIdle
	c.itemID = ""
	c.form = FormValues{}
	c.draft = nil
}

func (c *Controller) selectionFor(item catalog.Item) Selection {
	remaining := item.RemainingAmount()
	return Selection{
		Item:            item,
		SuggestedAmount: remaining,
		MinAmount:       c.minimum,
		MaxAmount:       remaining,
	}
}

func (c *Controller) newReference() string {
	return ulid.MustNew(ulid.Timestamp(c.now()), ulid.DefaultEntropy()).String()
}
