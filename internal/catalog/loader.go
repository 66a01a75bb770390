package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"finitefield.org/gift-registry/internal/observability"
)

var tracer = otel.Tracer("finitefield.org/gift-registry/internal/catalog")

// Catalog is the process-wide list of fundable items. Safe for concurrent use.
type Catalog struct {
	mu       sync.RWMutex
	items    []Item
	byID     map[string]int
	loadedAt time.Time
}

// NewCatalog returns a catalog seeded with items.
func NewCatalog(items ...Item) *Catalog {
	c := &Catalog{}
	c.Replace(items)
	return c
}

// Replace swaps the whole item list.
func (c *Catalog) Replace(items []Item) {
	byID := make(map[string]int, len(items))
	copied := make([]Item, len(items))
	copy(copied, items)
	for i, item := range copied {
		byID[item.ID] = i
	}

	c.mu.Lock()
	c.items = copied
	c.byID = byID
	c.loadedAt = time.Now()
	c.mu.Unlock()
}

// Items returns a copy of the items in document order.
func (c *Catalog) Items() []Item {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Item, len(c.items))
	copy(out, c.items)
	return out
}

// FindByID looks up an item by identifier.
func (c *Catalog) FindByID(id string) (Item, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	idx, ok := c.byID[id]
	if !ok {
		return Item{}, false
	}
	return c.items[idx], true
}

// Len reports the number of items.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// LoadedAt is the time of the last Replace.
func (c *Catalog) LoadedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loadedAt
}

// Loader fetches the catalog document from a Source into a Catalog.
type Loader struct {
	source  Source
	catalog *Catalog
}

// NewLoader wires a source to the catalog it refreshes. A nil catalog gets a fresh one.
func NewLoader(source Source, catalog *Catalog) *Loader {
	if catalog == nil {
		catalog = NewCatalog()
	}
	return &Loader{source: source, catalog: catalog}
}

// Catalog returns the catalog refreshed by Load.
func (l *Loader) Catalog() *Catalog { return l.catalog }

// Fetch performs a single fetch and returns the normalised items or a *LoadError.
func (l *Loader) Fetch(ctx context.Context) ([]Item, error) {
	ctx, span := tracer.Start(ctx, "catalog.Fetch")
	defer span.End()
	span.SetAttributes(attribute.String("catalog.source", l.source.String()))

	body, err := l.source.Open(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "open failed")
		return nil, err
	}
	defer body.Close()

	var doc document
	if err := json.NewDecoder(body).Decode(&doc); err != nil {
		loadErr := &LoadError{Kind: KindDecode, Source: l.source.String(), Err: err}
		span.RecordError(loadErr)
		span.SetStatus(codes.Error, "decode failed")
		return nil, loadErr
	}

	items := normalize(ctx, doc.Items)
	span.SetAttributes(attribute.Int("catalog.items", len(items)))
	return items, nil
}

// Load fetches and replaces the catalog. Failures are logged and leave the catalog empty.
func (l *Loader) Load(ctx context.Context) []Item {
	logger := observability.FromContext(ctx)

	items, err := l.Fetch(ctx)
	if err != nil {
		fields := []zap.Field{zap.Error(err), zap.String("source", l.source.String())}
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			fields = append(fields, zap.String("kind", string(loadErr.Kind)))
			if loadErr.Status != 0 {
				fields = append(fields, zap.Int("status", loadErr.Status))
			}
		}
		logger.Error("catalog load failed", fields...)
		items = []Item{}
	} else {
		logger.Debug("catalog loaded", zap.Int("items", len(items)))
	}
	l.catalog.Replace(items)
	return l.catalog.Items()
}

func normalize(ctx context.Context, raw []Item) []Item {
	logger := observability.FromContext(ctx)
	out := make([]Item, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for idx, item := range raw {
		if item.ID == "" {
			logger.Warn("catalog item without id dropped", zap.Int("index", idx), zap.String("name", item.Name))
			continue
		}
		if _, dup := seen[item.ID]; dup {
			logger.Warn("duplicate catalog item dropped", zap.Int("index", idx), zap.String("id", item.ID))
			continue
		}
		seen[item.ID] = struct{}{}
		if item.TargetAmount < 0 {
			item.TargetAmount = 0
		}
		if item.ContributedAmount < 0 {
			item.ContributedAmount = 0
		}
		out = append(out, item)
	}
	return out
}
