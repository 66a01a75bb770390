package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// Submission is one request received by an IntakeServer.
type Submission struct {
	IdempotencyKey string
	Body           map[string]string
}

// IntakeServer is a fake contribution endpoint that records every request.
type IntakeServer struct {
	*httptest.Server

	mu          sync.Mutex
	submissions []Submission
	status      int
}

// NewIntakeServer starts a server answering status to every POST.
func NewIntakeServer(t testing.TB, status int) *IntakeServer {
	t.Helper()

	s := &IntakeServer{status: status}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		body := map[string]string{}
		_ = json.Unmarshal(raw, &body)

		s.mu.Lock()
		s.submissions = append(s.submissions, Submission{
			IdempotencyKey: r.Header.Get("Idempotency-Key"),
			Body:           body,
		})
		code := s.status
		s.mu.Unlock()

		w.WriteHeader(code)
	}))
	t.Cleanup(s.Close)
	return s
}

// Submissions returns a copy of the recorded requests.
func (s *IntakeServer) Submissions() []Submission {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Submission, len(s.submissions))
	copy(out, s.submissions)
	return out
}

// CatalogServer serves document as the catalog JSON.
func CatalogServer(t testing.TB, status int, document string) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, document)
	}))
	t.Cleanup(srv.Close)
	return srv
}
