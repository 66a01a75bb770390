package catalog

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"finitefield.org/gift-registry/internal/observability"
)

const sampleDocument = `{"items":[
  {"id":"stove","name":"Gas stove","description":"Four burners","image":"/img/stove.jpg","targetAmount":5000,"contributedAmount":2000},
  {"id":"kettle","name":"Kettle","description":"","image":"","targetAmount":3000,"contributedAmount":3000}
]}`

func TestHTTPLoaderSuccess(t *testing.T) {
	t.Parallel()

	var accept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		accept = r.Header.Get("Accept")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(sampleDocument))
	}))
	t.Cleanup(srv.Close)

	loader := NewLoader(NewHTTPSource(srv.URL, srv.Client(), 0), nil)
	items := loader.Load(context.Background())

	require.Equal(t, "application/json", accept)
	require.Len(t, items, 2)
	require.Equal(t, "stove", items[0].ID)
	require.Equal(t, int64(3000), items[0].RemainingAmount())

	item, ok := loader.Catalog().FindByID("kettle")
	require.True(t, ok)
	require.True(t, item.IsFullyFunded())

	_, ok = loader.Catalog().FindByID("missing")
	require.False(t, ok)
}

func TestLoadFailuresLeaveCatalogEmpty(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		handler http.HandlerFunc
		kind    Kind
	}{
		{
			name: "non 2xx",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "gone", http.StatusServiceUnavailable)
			},
			kind: KindStatus,
		},
		{
			name: "malformed json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"items":[`))
			},
			kind: KindDecode,
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			srv := httptest.NewServer(tc.handler)
			t.Cleanup(srv.Close)

			core, logs := observer.New(zapcore.DebugLevel)
			ctx := observability.WithLogger(context.Background(), zap.New(core))

			cat := NewCatalog(Item{ID: "stale", TargetAmount: 10})
			loader := NewLoader(NewHTTPSource(srv.URL, srv.Client(), 0), cat)

			_, err := loader.Fetch(ctx)
			var loadErr *LoadError
			require.True(t, errors.As(err, &loadErr))
			require.Equal(t, tc.kind, loadErr.Kind)

			items := loader.Load(ctx)
			require.Empty(t, items)
			require.Equal(t, 0, cat.Len())
			require.Equal(t, 1, logs.FilterMessage("catalog load failed").Len())
		})
	}
}

func TestLoadTransportFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	loader := NewLoader(NewHTTPSource(url, nil, 0), nil)
	_, err := loader.Fetch(context.Background())
	var loadErr *LoadError
	require.True(t, errors.As(err, &loadErr))
	require.Equal(t, KindTransport, loadErr.Kind)
	require.Empty(t, loader.Load(context.Background()))
}

func TestFileSourceNormalises(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"items.json": {Data: []byte(`{"items":[
			{"id":"","name":"No id","targetAmount":100},
			{"id":"a","name":"A","targetAmount":-5,"contributedAmount":-1},
			{"id":"a","name":"A again","targetAmount":100},
			{"id":"b","name":"B","targetAmount":100,"contributedAmount":40}
		]}`)},
	}
	core, logs := observer.New(zapcore.DebugLevel)
	ctx := observability.WithLogger(context.Background(), zap.New(core))

	items, err := NewLoader(NewFileSource(fsys, "items.json"), nil).Fetch(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, Item{ID: "a", Name: "A"}, items[0])
	require.Equal(t, "b", items[1].ID)
	require.Equal(t, 2, logs.FilterLevelExact(zapcore.WarnLevel).Len())
}

func TestFileSourceMissing(t *testing.T) {
	t.Parallel()

	_, err := NewLoader(NewFileSource(fstest.MapFS{}, "items.json"), nil).Fetch(context.Background())
	var loadErr *LoadError
	require.True(t, errors.As(err, &loadErr))
	require.Equal(t, KindStatus, loadErr.Kind)
}

func TestCatalogConcurrentAccess(t *testing.T) {
	t.Parallel()

	cat := NewCatalog(Item{ID: "a", TargetAmount: 10})
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			cat.Replace([]Item{{ID: "a", TargetAmount: 20}})
		}()
		go func() {
			defer wg.Done()
			_, _ = cat.FindByID("a")
			_ = cat.Items()
		}()
	}
	wg.Wait()
	item, ok := cat.FindByID("a")
	require.True(t, ok)
	require.Equal(t, int64(20), item.TargetAmount)
}
