package content

import (
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/require"
)

const registryEN = `---
title: Amina & Paul
summary: Help us furnish our first home.
updated_at: 2026-05-01
seo:
  description: Wedding gift registry
banner:
  title: Thank you
  message: Every contribution counts.
---

We are **grateful** for your support.

<script>alert("x")</script>
`

func TestStorePageParsesFrontMatter(t *testing.T) {
	t.Parallel()

	store := NewStore(fstest.MapFS{"en/registry.md": {Data: []byte(registryEN)}}, time.Minute)
	page, err := store.Page("registry", "en")
	require.NoError(t, err)

	require.Equal(t, "Amina & Paul", page.Title)
	require.Equal(t, "Help us furnish our first home.", page.Summary)
	require.Equal(t, "Wedding gift registry", page.SEO.Description)
	require.Equal(t, time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC), page.UpdatedAt)
	require.NotNil(t, page.Banner)
	require.Equal(t, "info", page.Banner.Variant)
	require.Contains(t, string(page.Body), "<strong>grateful</strong>")
	require.NotContains(t, string(page.Body), "<script>")
}

func TestStoreFallsBackToEnglish(t *testing.T) {
	t.Parallel()

	store := NewStore(fstest.MapFS{"en/registry.md": {Data: []byte(registryEN)}}, time.Minute)
	page, err := store.Page("registry", "fr")
	require.NoError(t, err)
	require.Equal(t, "en", page.Lang)

	_, err = store.Page("missing", "fr")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = store.Page("../secrets", "en")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestStoreCachesWithinTTL(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{"en/registry.md": {Data: []byte("---\ntitle: First\n---\nbody")}}
	store := NewStore(fsys, time.Minute)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	page, err := store.Page("registry", "en")
	require.NoError(t, err)
	require.Equal(t, "First", page.Title)

	fsys["en/registry.md"] = &fstest.MapFile{Data: []byte("---\ntitle: Second\n---\nbody")}
	page, err = store.Page("registry", "en")
	require.NoError(t, err)
	require.Equal(t, "First", page.Title)

	now = now.Add(2 * time.Minute)
	page, err = store.Page("registry", "en")
	require.NoError(t, err)
	require.Equal(t, "Second", page.Title)
}

func TestPageOrDefault(t *testing.T) {
	t.Parallel()

	fallback := Page{Title: "Gift Registry"}
	page, err := NewStore(fstest.MapFS{}, 0).PageOrDefault("registry", "en", fallback)
	require.NoError(t, err)
	require.Equal(t, fallback, page)

	broken := fstest.MapFS{"en/registry.md": {Data: []byte("---\ntitle: [unclosed\n---\n")}}
	page, err = NewStore(broken, 0).PageOrDefault("registry", "en", fallback)
	require.Error(t, err)
	require.Equal(t, fallback, page)
}

func TestMarkdownSanitizes(t *testing.T) {
	t.Parallel()

	require.Equal(t, "", string(Markdown("  ")))
	out := string(Markdown("[site](https://example.com) <img src=x onerror=alert(1)>"))
	require.Contains(t, out, `rel="nofollow"`)
	require.NotContains(t, out, "onerror")
}
