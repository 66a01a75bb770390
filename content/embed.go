package content

import "embed"

// FS holds the bundled page documents laid out as <lang>/<slug>.md.
//
//go:embed en fr
var FS embed.FS
