// Package views renders the HTML fragments returned to HTMX clients.
//
// The components live in views.templ; run `templ generate` after editing it.
package views

//go:generate templ generate

import "github.com/JonMunkholm/ems/internal/core"

// reportStatus classifies a report for styling: every row saved, some rows
// rejected, or nothing saved at all.
func reportStatus(r *core.ImportReport) string {
	switch {
	case r.SuccessCount == 0 && r.TotalRows > 0:
		return "failed"
	case r.FailureCount > 0:
		return "partial"
	default:
		return "success"
	}
}
