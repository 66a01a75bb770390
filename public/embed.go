package public

import "embed"

// FS holds the static assets served under /assets/.
//
//go:embed assets
var FS embed.FS
