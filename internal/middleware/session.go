package middleware

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
	"go.uber.org/zap"

	"finitefield.org/gift-registry/internal/contribution"
	"finitefield.org/gift-registry/internal/observability"
)

const (
	defaultSessionCookie   = "REGISTRY_SESSION"
	defaultSessionLifetime = 7 * 24 * time.Hour
)

// ErrInvalidSessionKeys is returned for hash or block keys securecookie cannot use.
var ErrInvalidSessionKeys = errors.New("session: invalid keys")

// SessionData is the per-visitor state carried in the encrypted cookie.
type SessionData struct {
	ID        string                `json:"id"`
	Locale    string                `json:"locale,omitempty"`
	CSRFToken string                `json:"csrf,omitempty"`
	Flow      contribution.Snapshot `json:"flow"`
	Flash     *Flash                `json:"flash,omitempty"`
	CreatedAt time.Time             `json:"createdAt"`
	UpdatedAt time.Time             `json:"updatedAt"`

	dirty bool
}

// Flash is a one-shot message shown on the next full page render.
type Flash struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// MarkDirty flags the session for writing before the response is sent.
func (s *SessionData) MarkDirty() { s.dirty = true; s.UpdatedAt = time.Now().UTC() }

// SetFlash stores a message for the next render.
func (s *SessionData) SetFlash(kind, message string) {
	s.Flash = &Flash{Kind: kind, Message: message}
	s.MarkDirty()
}

// PopFlash returns and clears the pending flash.
func (s *SessionData) PopFlash() *Flash {
	f := s.Flash
	if f != nil {
		s.Flash = nil
		s.MarkDirty()
	}
	return f
}

// SaveFlow stores the contribution flow snapshot.
func (s *SessionData) SaveFlow(snap contribution.Snapshot) {
	s.Flow = snap
	s.MarkDirty()
}

// SessionOptions configures the session cookie.
type SessionOptions struct {
	CookieName string
	Secure     bool
	Lifetime   time.Duration
}

// Sessions encodes SessionData into a signed and encrypted cookie.
type Sessions struct {
	codec    *securecookie.SecureCookie
	name     string
	secure   bool
	lifetime time.Duration
}

// NewSessions builds the cookie codec. blockKey must be 16, 24 or 32 bytes when set.
func NewSessions(hashKey, blockKey []byte, opts SessionOptions) (*Sessions, error) {
	if len(hashKey) == 0 {
		return nil, fmt.Errorf("%w: hash key is required", ErrInvalidSessionKeys)
	}
	switch len(blockKey) {
	case 0, 16, 24, 32:
	default:
		return nil, fmt.Errorf("%w: block key must be 16, 24 or 32 bytes", ErrInvalidSessionKeys)
	}
	if opts.CookieName == "" {
		opts.CookieName = defaultSessionCookie
	}
	if opts.Lifetime <= 0 {
		opts.Lifetime = defaultSessionLifetime
	}

	codec := securecookie.New(hashKey, blockKey)
	codec.SetSerializer(compactJSON{})
	codec.MaxAge(int(opts.Lifetime.Seconds()))

	return &Sessions{codec: codec, name: opts.CookieName, secure: opts.Secure, lifetime: opts.Lifetime}, nil
}

// compactJSON is securecookie.JSONEncoder without HTML escaping, which would otherwise grow
// every '<', '>' and '&' in visitor text to six bytes.
type compactJSON struct{}

func (compactJSON) Serialize(src interface{}) ([]byte, error) {
	buf := new(bytes.Buffer)
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(src); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func (compactJSON) Deserialize(src []byte, dst interface{}) error {
	return json.Unmarshal(src, dst)
}

// GenerateKey returns a random key suitable for NewSessions.
func GenerateKey(n int) []byte {
	return securecookie.GenerateRandomKey(n)
}

// Middleware loads the session into the request context and writes it back before the first
// byte of the response when it changed.
func (s *Sessions) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sd, fromCookie := s.read(r)
		if sd.ID == "" {
			now := time.Now().UTC()
			sd = &SessionData{ID: randID(), CSRFToken: newCSRFToken(), CreatedAt: now, UpdatedAt: now, dirty: true}
		}
		ctx := context.WithValue(r.Context(), ctxKeySession, sd)
		ctx = context.WithValue(ctx, ctxKeySessions, s)
		r = r.WithContext(ctx)

		persist := func(w http.ResponseWriter) {
			if sd.dirty || !fromCookie {
				s.write(w, r, sd)
			}
		}
		rw := newHookWriter(w, persist)
		next.ServeHTTP(rw, r)
		if !rw.wrote {
			persist(w)
		}
	})
}

func (s *Sessions) read(r *http.Request) (*SessionData, bool) {
	c, err := r.Cookie(s.name)
	if err != nil || c.Value == "" {
		return &SessionData{}, false
	}
	var sd SessionData
	if err := s.codec.Decode(s.name, c.Value, &sd); err != nil {
		observability.FromContext(r.Context()).Debug("session cookie rejected", zap.Error(err))
		return &SessionData{}, false
	}
	return &sd, true
}

// encode fails when the session no longer fits in a cookie.
func (s *Sessions) encode(sd *SessionData) (string, error) {
	encoded, err := s.codec.Encode(s.name, sd)
	if err != nil {
		return "", fmt.Errorf("session: encode: %w", err)
	}
	return encoded, nil
}

func (s *Sessions) write(w http.ResponseWriter, r *http.Request, sd *SessionData) {
	encoded, err := s.encode(sd)
	if err != nil {
		observability.FromContext(r.Context()).Error("session encode failed", zap.Error(err))
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     s.name,
		Value:    encoded,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(s.lifetime.Seconds()),
	})
	sd.dirty = false
}

// GetSession returns the session stored by Sessions.Middleware or an empty one.
func GetSession(r *http.Request) *SessionData {
	if sd, ok := r.Context().Value(ctxKeySession).(*SessionData); ok && sd != nil {
		return sd
	}
	return &SessionData{}
}

// VerifySession reports whether the request's session can still be written back. Handlers call
// it after changing the session so an oversized cookie is caught while they can still react.
func VerifySession(r *http.Request) error {
	s, ok := r.Context().Value(ctxKeySessions).(*Sessions)
	if !ok || s == nil {
		return nil
	}
	_, err := s.encode(GetSession(r))
	return err
}

func randID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(b)
}
