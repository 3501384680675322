package web

import "embed"

// TemplatesFS embeds the printable report and invoice templates.
//
//go:embed templates/*.html
var TemplatesFS embed.FS
