package contribution

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"finitefield.org/gift-registry/internal/observability"
)

const (
	defaultSubmitTimeout = 10 * time.Second
	idempotencyHeader    = "Idempotency-Key"
)

var tracer = otel.Tracer("finitefield.org/gift-registry/internal/contribution")

// Submitter hands a confirmed draft to the intake endpoint.
type Submitter interface {
	Submit(ctx context.Context, draft Draft) error
}

// HTTPSubmitter posts drafts as JSON to the intake endpoint.
type HTTPSubmitter struct {
	endpoint string
	http     *http.Client
}

// NewHTTPSubmitter constructs a submitter. When endpoint is empty, drafts are only logged.
func NewHTTPSubmitter(endpoint string, client *http.Client) *HTTPSubmitter {
	if client == nil {
		client = &http.Client{Timeout: defaultSubmitTimeout}
	}
	return &HTTPSubmitter{
		endpoint: strings.TrimSpace(endpoint),
		http:     client,
	}
}

// DryRun reports whether no endpoint is configured.
func (s *HTTPSubmitter) DryRun() bool { return s == nil || s.endpoint == "" }

// Submit performs one POST. Any non-2xx answer is a *StatusError.
func (s *HTTPSubmitter) Submit(ctx context.Context, draft Draft) error {
	if s.DryRun() {
		return dryRunSubmit(ctx, draft)
	}

	ctx, span := tracer.Start(ctx, "contribution.Submit")
	defer span.End()
	span.SetAttributes(
		attribute.String("contribution.reference", draft.Reference),
		attribute.String("contribution.item_id", draft.ItemID),
	)

	body, err := json.Marshal(newPayload(draft))
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if draft.Reference != "" {
		req.Header.Set(idempotencyHeader, draft.Reference)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport")
		return err
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		statusErr := &StatusError{StatusCode: resp.StatusCode, Body: drainError(resp.Body)}
		span.RecordError(statusErr)
		span.SetStatus(codes.Error, "status")
		return statusErr
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
	return nil
}

// payload is the intake wire format. The amount travels as a decimal string.
type payload struct {
	SubmitterName    string `json:"submitterName"`
	Item             string `json:"item"`
	Relationship     string `json:"relationship"`
	AmountContribute string `json:"amountContribute"`
	Message          string `json:"message"`
	ContactEmail     string `json:"contactEmail"`
}

func newPayload(d Draft) payload {
	return payload{
		SubmitterName:    d.SubmitterName,
		Item:             d.Item,
		Relationship:     d.Relationship,
		AmountContribute: strconv.FormatInt(d.AmountContribute, 10),
		Message:          d.Message,
		ContactEmail:     d.ContactEmail,
	}
}

func dryRunSubmit(ctx context.Context, draft Draft) error {
	observability.FromContext(ctx).Info("contribution endpoint not configured; draft accepted without hand-off",
		zap.String("reference", draft.Reference),
		zap.String("item_id", draft.ItemID),
		zap.Int64("amount", draft.AmountContribute),
	)
	return nil
}

func drainError(r io.Reader) string {
	if r == nil {
		return ""
	}
	b, _ := io.ReadAll(io.LimitReader(r, 256))
	return strings.TrimSpace(string(b))
}
