package main

import (
	"io/fs"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	mw "finitefield.org/gift-registry/internal/middleware"
	"finitefield.org/gift-registry/internal/observability"
	"finitefield.org/gift-registry/public"
)

const maxFormBytes = 64 << 10

func newRouter(a *app) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	// RealIP trusts X-Forwarded-For; deploy behind a proxy that sets it.
	r.Use(middleware.RealIP)
	r.Use(observability.InjectLogger(a.logger))
	r.Use(observability.TraceMiddleware)
	r.Use(observability.RequestLogger)
	r.Use(observability.Recovery)
	r.Use(middleware.Compress(5))
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Handle("/assets/*", http.StripPrefix("/assets", mw.Assets(mustSub(public.FS, "assets"))))

	r.Group(func(r chi.Router) {
		r.Use(limitBody)
		r.Use(mw.HTMX)
		r.Use(a.sessions.Middleware)
		r.Use(mw.Locale(a.bundle))
		r.Use(mw.CSRF(a.cfg.Secure()))

		r.Get("/", a.handleRegistry)
		r.Route("/contributions", func(r chi.Router) {
			r.Post("/select", a.handleSelect)
			r.Post("/cancel", a.handleCancel)
			r.Post("/dismiss", a.handleDismiss)
			r.Post("/draft", a.handleDraft)
			r.Post("/decline", a.handleDecline)
			r.Post("/confirm", a.handleConfirm)
		})
	})
	return r
}

func limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
		}
		next.ServeHTTP(w, r)
	})
}

func mustSub(fsys fs.FS, dir string) fs.FS {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		panic(err)
	}
	return sub
}
