package main

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"finitefield.org/gift-registry/internal/content"
	"finitefield.org/gift-registry/internal/contribution"
	"finitefield.org/gift-registry/internal/format"
	"finitefield.org/gift-registry/internal/handlers"
	mw "finitefield.org/gift-registry/internal/middleware"
	"finitefield.org/gift-registry/internal/observability"
)

// errSessionState means the flow could not be kept in the session cookie.
var errSessionState = errors.New("flow does not fit in the session")

// controller rebuilds the visitor's flow from the session snapshot.
func (a *app) controller(r *http.Request) (*contribution.Controller, *mw.SessionData) {
	sess := mw.GetSession(r)
	ctrl := contribution.NewController(a.loader.Catalog(), a.submitter,
		contribution.WithPaymentURL(a.cfg.Contribution.PaymentURL),
		contribution.WithMinimumAmount(a.cfg.Contribution.MinimumAmount),
		contribution.WithSubmitTimeout(a.cfg.Contribution.SubmitTimeout),
		contribution.WithLedger(a.ledger),
		contribution.WithMetrics(a.metrics),
	)
	if err := ctrl.Restore(sess.Flow); err != nil {
		observability.FromContext(r.Context()).Warn("discarding session flow", zap.Error(err), zap.String("state", string(sess.Flow.State)))
		sess.SaveFlow(contribution.Snapshot{})
	}
	return ctrl, sess
}

func (a *app) flowView(r *http.Request, ctrl *contribution.Controller, lang string) handlers.FlowView {
	v := handlers.BuildFlow(ctrl, lang, a.cfg.Contribution.Currency)
	v.CSRFToken = mw.CSRFToken(r)
	return v
}

// handleRegistry reloads the catalog and renders the page with whichever surface the
// visitor's flow has open.
func (a *app) handleRegistry(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := observability.FromContext(ctx)
	lang := mw.Lang(r)

	items := a.loader.Load(ctx)
	ctrl, sess := a.controller(r)
	if ctrl.State() != sess.Flow.State {
		sess.SaveFlow(ctrl.Snapshot())
	}

	flow := a.flowView(r, ctrl, lang)
	if f := sess.PopFlash(); f != nil {
		flow.Error = f.Message
	}

	page, err := a.pages.PageOrDefault(registrySlug, lang, content.Page{Title: a.bundle.T(lang, "site.title")})
	if err != nil {
		logger.Warn("registry page unavailable", zap.Error(err), zap.String("lang", lang))
	}

	data := handlers.BuildRegistryData(page, items, flow, lang, a.cfg.Contribution.Currency)
	data.Langs = a.bundle.Supported()
	a.views.page(w, r, data)
}

func (a *app) handleSelect(w http.ResponseWriter, r *http.Request) {
	ctrl, sess := a.controller(r)
	_, err := ctrl.Select(r.Context(), strings.TrimSpace(r.PostFormValue("item_id")))
	a.respond(w, r, ctrl, sess, err)
}

func (a *app) handleCancel(w http.ResponseWriter, r *http.Request) {
	ctrl, sess := a.controller(r)
	a.respond(w, r, ctrl, sess, ctrl.Cancel(r.Context()))
}

func (a *app) handleDismiss(w http.ResponseWriter, r *http.Request) {
	ctrl, sess := a.controller(r)
	a.respond(w, r, ctrl, sess, ctrl.Dismiss(r.Context()))
}

func (a *app) handleDraft(w http.ResponseWriter, r *http.Request) {
	ctrl, sess := a.controller(r)
	_, err := ctrl.Submit(r.Context(), contribution.FormValues{
		SubmitterName:    r.PostFormValue("submitterName"),
		ContactEmail:     r.PostFormValue("contactEmail"),
		Relationship:     r.PostFormValue("relationship"),
		AmountContribute: r.PostFormValue("amountContribute"),
		Message:          r.PostFormValue("message"),
	})
	a.respond(w, r, ctrl, sess, err)
}

func (a *app) handleDecline(w http.ResponseWriter, r *http.Request) {
	ctrl, sess := a.controller(r)
	a.respond(w, r, ctrl, sess, ctrl.Decline(r.Context()))
}

// handleConfirm hands the draft off and sends the visitor to the payment page.
func (a *app) handleConfirm(w http.ResponseWriter, r *http.Request) {
	ctrl, sess := a.controller(r)
	redirect, err := ctrl.Confirm(r.Context())
	if err != nil {
		a.respond(w, r, ctrl, sess, err)
		return
	}
	if err := a.saveFlow(r, ctrl, sess); err != nil {
		observability.FromContext(r.Context()).Warn("redirect state not saved", zap.Error(err))
	}
	mw.Redirect(w, r, redirect.URL)
}

// saveFlow stores the controller's snapshot. When the session would no longer encode, the flow
// is reset to Idle so the cookie stays writable.
func (a *app) saveFlow(r *http.Request, ctrl *contribution.Controller, sess *mw.SessionData) error {
	sess.SaveFlow(ctrl.Snapshot())
	err := mw.VerifySession(r)
	if err == nil {
		return nil
	}
	_ = ctrl.Restore(contribution.Snapshot{})
	sess.SaveFlow(contribution.Snapshot{})
	return fmt.Errorf("%w: %w", errSessionState, err)
}

// respond persists the flow and answers htmx with the #flow fragment. Plain form posts get a
// redirect back to the page with the error carried as a flash.
func (a *app) respond(w http.ResponseWriter, r *http.Request, ctrl *contribution.Controller, sess *mw.SessionData, err error) {
	if serr := a.saveFlow(r, ctrl, sess); serr != nil {
		err = serr
	}
	lang := mw.Lang(r)

	var msg string
	if err != nil {
		msg = a.flowErrorMessage(r, lang, err)
	}

	if mw.IsHTMX(r.Context()) {
		view := a.flowView(r, ctrl, lang)
		view.Error = msg
		a.views.fragment(w, r, "flow", view)
		return
	}
	if msg != "" {
		sess.SetFlash("error", msg)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// flowErrorMessage maps controller errors to localized text.
func (a *app) flowErrorMessage(r *http.Request, lang string, err error) string {
	var (
		verr   *contribution.ValidationError
		subErr *contribution.SubmissionError
	)
	switch {
	case errors.As(err, &verr):
		switch verr.Rule {
		case contribution.RuleMissingField:
			return a.bundle.T(lang, "error.missing_fields")
		case contribution.RuleTooLong:
			field := "message"
			if len(verr.Fields) > 0 {
				field = verr.Fields[0]
			}
			return a.bundle.Tf(lang, "error.too_long", a.bundle.T(lang, "field."+field), verr.Limit)
		case contribution.RuleInvalidEmail:
			return a.bundle.T(lang, "error.invalid_email")
		case contribution.RuleBelowMinimum:
			return a.bundle.Tf(lang, "error.below_minimum", format.Amount(verr.Limit, a.cfg.Contribution.Currency, lang))
		case contribution.RuleAboveRemaining:
			return a.bundle.Tf(lang, "error.above_remaining", format.Amount(verr.Limit, a.cfg.Contribution.Currency, lang))
		default:
			return a.bundle.T(lang, "error.invalid_amount")
		}
	case errors.Is(err, contribution.ErrItemNotFound):
		return a.bundle.T(lang, "error.item_not_found")
	case errors.Is(err, contribution.ErrFullyFunded):
		return a.bundle.T(lang, "error.fully_funded")
	case errors.Is(err, contribution.ErrSubmissionInFlight):
		return a.bundle.T(lang, "error.in_flight")
	case errors.As(err, &subErr):
		return a.bundle.T(lang, "error.submission_failed")
	case errors.Is(err, contribution.ErrInvalidTransition):
		observability.FromContext(r.Context()).Info("flow action rejected", zap.Error(err))
		return a.bundle.T(lang, "error.invalid_transition")
	default:
		observability.FromContext(r.Context()).Error("flow action failed", zap.Error(err))
		return a.bundle.T(lang, "error.generic")
	}
}
