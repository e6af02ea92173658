package promptx

import (
	_ "embed"
	"strings"
)

//go:embed template/auditor.txt
var auditorRaw string

// Auditor returns the trimmed system prompt for the compliance judge. The
// template is embedded at compile time; the {rules} placeholder is filled per
// request.
func Auditor() string {
	return strings.TrimSpace(auditorRaw)
}
