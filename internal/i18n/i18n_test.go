package i18n

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"

	"finitefield.org/gift-registry/locales"
)

func TestBundleTranslatesWithFallback(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"en.json": {Data: []byte(`{"greeting":"Hello","only.en":"English only","amount":"Min %s"}`)},
		"fr.json": {Data: []byte(`{"greeting":"Bonjour"}`)},
	}
	b, err := Load(fsys, "en", []string{"en", "fr"})
	require.NoError(t, err)

	require.Equal(t, "Bonjour", b.T("fr", "greeting"))
	require.Equal(t, "English only", b.T("fr", "only.en"))
	require.Equal(t, "missing.key", b.T("fr", "missing.key"))
	require.Equal(t, "Min XAF 1,000", b.Tf("en", "amount", "XAF 1,000"))
	require.Equal(t, []string{"en", "fr"}, b.Supported())
}

func TestLoadRequiresFallback(t *testing.T) {
	t.Parallel()

	_, err := Load(fstest.MapFS{"fr.json": {Data: []byte(`{}`)}}, "en", []string{"en", "fr"})
	require.Error(t, err)
}

func TestLoadToleratesMissingSecondaryLocale(t *testing.T) {
	t.Parallel()

	b, err := Load(fstest.MapFS{"en.json": {Data: []byte(`{}`)}}, "en", []string{"en", "fr"})
	require.NoError(t, err)
	require.False(t, b.IsSupported("fr"))
	require.Equal(t, "en", b.Resolve("fr-FR,fr;q=0.9"))
}

func TestResolve(t *testing.T) {
	t.Parallel()

	b, err := Load(locales.FS, "en", []string{"en", "fr"})
	require.NoError(t, err)

	cases := []struct {
		header string
		want   string
	}{
		{header: "", want: "en"},
		{header: "fr-CA,fr;q=0.9,en;q=0.8", want: "fr"},
		{header: "de-DE,en;q=0.5", want: "en"},
		{header: "ja", want: "en"},
		{header: "en-GB", want: "en"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, b.Resolve(tc.header), "header %q", tc.header)
	}
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	b, err := Load(locales.FS, "en", nil)
	require.NoError(t, err)
	require.Equal(t, "fr", b.Normalize(" FR-ca "))
	require.Equal(t, "", b.Normalize("de"))
}

func TestBundledLocalesShareKeys(t *testing.T) {
	t.Parallel()

	b, err := Load(locales.FS, "en", []string{"en", "fr"})
	require.NoError(t, err)
	for key := range b.dict["en"] {
		_, ok := b.dict["fr"][key]
		require.True(t, ok, "fr is missing %s", key)
	}
}
