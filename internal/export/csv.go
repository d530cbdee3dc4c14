// Package export renders the live Q&A snapshot as CSV for spreadsheet
// IMPORTDATA pulls and CSV-consuming broadcast software.
package export

import (
	"strings"
	"time"

	"github.com/crowdcue/backend/internal/models"
)

// Header is the fixed CSV column row.
const Header = "Question,Answer,Submitter,Event,Updated"

// Placeholder is emitted in the Question column when no Q&A is live, so
// downstream spreadsheet formulas show actionable text instead of blanks.
const Placeholder = "No question is currently live"

// bom forces correct character-encoding detection in spreadsheet imports.
const bom = "\uFEFF"

// Escape quotes a CSV field when it contains a comma, double quote or line
// break; embedded double quotes are doubled. All other values pass through
// unchanged.
func Escape(v string) string {
	if !strings.ContainsAny(v, ",\"\r\n") {
		return v
	}
	return `"` + strings.ReplaceAll(v, `"`, `""`) + `"`
}

// Render produces the full BOM-prefixed, CRLF-terminated CSV document for
// a live snapshot. A nil snapshot or one without an active Q&A renders the
// placeholder row.
func Render(ls *models.LiveState) string {
	var b strings.Builder
	b.WriteString(bom)
	b.WriteString(Header)
	b.WriteString("\r\n")

	question, answer, submitter, event, updated := Placeholder, "", "", "", ""
	if ls != nil {
		event = ls.EventName
		if !ls.UpdatedAt.IsZero() {
			updated = ls.UpdatedAt.UTC().Format(time.RFC3339)
		}
		if ls.ActiveQA != nil && ls.ActiveQA.Question != "" {
			question = ls.ActiveQA.Question
			answer = ls.ActiveQA.Answer
			submitter = ls.ActiveQA.SubmitterName
		}
	}
	for i, field := range []string{question, answer, submitter, event, updated} {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(Escape(field))
	}
	b.WriteString("\r\n")
	return b.String()
}
