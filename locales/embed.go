package locales

import "embed"

// FS holds the message bundles keyed by language, e.g. en.json.
//
//go:embed *.json
var FS embed.FS
