package templates

import "embed"

// FS holds the page layout and partials.
//
//go:embed *.tmpl partials/*.tmpl
var FS embed.FS
