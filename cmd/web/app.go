package main

import (
	"context"
	"encoding/base64"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"

	sitecontent "finitefield.org/gift-registry/content"
	"finitefield.org/gift-registry/internal/catalog"
	"finitefield.org/gift-registry/internal/config"
	"finitefield.org/gift-registry/internal/content"
	"finitefield.org/gift-registry/internal/contribution"
	"finitefield.org/gift-registry/internal/i18n"
	mw "finitefield.org/gift-registry/internal/middleware"
	"finitefield.org/gift-registry/locales"
	"finitefield.org/gift-registry/templates"
)

const (
	registrySlug     = "registry"
	ledgerSweepEvery = time.Minute
	ledgerSweepLimit = 500
)

var supportedLangs = []string{"en", "fr"}

// app holds the long-lived collaborators shared by every request.
type app struct {
	cfg       config.Config
	logger    *zap.Logger
	loader    *catalog.Loader
	submitter contribution.Submitter
	ledger    *contribution.Ledger
	metrics   *contribution.Metrics
	bundle    *i18n.Bundle
	pages     *content.Store
	sessions  *mw.Sessions
	views     *renderer
}

func newApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*app, error) {
	bundle, err := i18n.Load(locales.FS, cfg.Site.DefaultLang, supportedLangs)
	if err != nil {
		return nil, fmt.Errorf("load locales: %w", err)
	}

	views, err := newRenderer(templates.FS, cfg.Site.TemplatesDir, cfg.Site.DevMode && dirExists(cfg.Site.TemplatesDir), bundle)
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	sessions, err := newSessions(cfg, logger)
	if err != nil {
		return nil, err
	}

	client := &http.Client{}
	loader := catalog.NewLoader(catalogSource(cfg.Catalog, client), catalog.NewCatalog())
	items := loader.Load(ctx)
	logger.Info("catalog loaded", zap.Int("items", len(items)), zap.String("source", catalogSourceName(cfg.Catalog)))

	submitter := contribution.NewHTTPSubmitter(cfg.Contribution.Endpoint, client)
	if submitter.DryRun() {
		logger.Warn("contribution endpoint not configured; drafts are accepted without hand-off")
	}

	return &app{
		cfg:       cfg,
		logger:    logger,
		loader:    loader,
		submitter: submitter,
		ledger:    contribution.NewLedger(contribution.DefaultLedgerTTL),
		metrics:   contribution.NewMetrics(nil, logger),
		bundle:    bundle,
		pages:     content.NewStore(contentFS(cfg.Site.ContentDir), 0),
		sessions:  sessions,
		views:     views,
	}, nil
}

func catalogSource(cfg config.CatalogConfig, client *http.Client) catalog.Source {
	if cfg.URL != "" {
		return catalog.NewHTTPSource(cfg.URL, client, cfg.Timeout)
	}
	return catalog.NewFileSource(nil, cfg.Path)
}

func catalogSourceName(cfg config.CatalogConfig) string {
	if cfg.URL != "" {
		return cfg.URL
	}
	return cfg.Path
}

func contentFS(dir string) fs.FS {
	if dir != "" && dirExists(dir) {
		return os.DirFS(dir)
	}
	return sitecontent.FS
}

func newSessions(cfg config.Config, logger *zap.Logger) (*mw.Sessions, error) {
	hashKey, err := decodeKey(cfg.Session.HashKey)
	if err != nil {
		return nil, fmt.Errorf("session hash key: %w", err)
	}
	blockKey, err := decodeKey(cfg.Session.BlockKey)
	if err != nil {
		return nil, fmt.Errorf("session block key: %w", err)
	}
	if len(hashKey) == 0 {
		logger.Warn("session keys not configured; using ephemeral keys")
		hashKey = mw.GenerateKey(32)
		blockKey = mw.GenerateKey(32)
	}
	return mw.NewSessions(hashKey, blockKey, mw.SessionOptions{Secure: cfg.Secure()})
}

func decodeKey(v string) ([]byte, error) {
	if v == "" {
		return nil, nil
	}
	return base64.StdEncoding.DecodeString(v)
}

// sweepLedger drops expired submission records until ctx ends.
func (a *app) sweepLedger(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := a.ledger.CleanupExpired(now, ledgerSweepLimit); n > 0 {
				a.logger.Debug("ledger entries expired", zap.Int("count", n))
			}
		}
	}
}
