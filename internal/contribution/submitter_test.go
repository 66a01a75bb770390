package contribution

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"finitefield.org/gift-registry/internal/observability"
)

func sampleDraft() Draft {
	return Draft{
		Reference:        "01J9ZQ4K7V3W8X2Y5Z6A7B8C9D",
		ItemID:           "stove",
		Item:             "Gas stove",
		SubmitterName:    "Ada",
		Relationship:     "Friend",
		AmountContribute: 2500,
		ContactEmail:     "ada@example.com",
	}
}

func TestHTTPSubmitterPostsDraft(t *testing.T) {
	t.Parallel()

	type captured struct {
		method, contentType, key string
		body                     map[string]any
	}
	got := make(chan captured, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		var body map[string]any
		_ = json.Unmarshal(raw, &body)
		got <- captured{
			method:      r.Method,
			contentType: r.Header.Get("Content-Type"),
			key:         r.Header.Get("Idempotency-Key"),
			body:        body,
		}
		w.WriteHeader(http.StatusCreated)
	}))
	t.Cleanup(srv.Close)

	err := NewHTTPSubmitter(srv.URL, srv.Client()).Submit(context.Background(), sampleDraft())
	require.NoError(t, err)

	c := <-got
	require.Equal(t, http.MethodPost, c.method)
	require.Equal(t, "application/json", c.contentType)
	require.Equal(t, "01J9ZQ4K7V3W8X2Y5Z6A7B8C9D", c.key)
	require.Equal(t, map[string]any{
		"submitterName":    "Ada",
		"item":             "Gas stove",
		"relationship":     "Friend",
		"amountContribute": "2500",
		"message":          "",
		"contactEmail":     "ada@example.com",
	}, c.body)
}

func TestHTTPSubmitterStatusError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "intake closed", http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	err := NewHTTPSubmitter(srv.URL, srv.Client()).Submit(context.Background(), sampleDraft())
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	require.Equal(t, http.StatusBadGateway, statusErr.StatusCode)
	require.Equal(t, "intake closed", statusErr.Body)
}

func TestHTTPSubmitterDryRun(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.InfoLevel)
	ctx := observability.WithLogger(context.Background(), zap.New(core))

	sub := NewHTTPSubmitter("  ", nil)
	require.True(t, sub.DryRun())
	require.NoError(t, sub.Submit(ctx, sampleDraft()))
	require.Equal(t, 1, logs.Len())
	require.Equal(t, "01J9ZQ4K7V3W8X2Y5Z6A7B8C9D", logs.All()[0].ContextMap()["reference"])
}
