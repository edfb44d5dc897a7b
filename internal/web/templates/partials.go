// Package templates renders the HTMX fragments returned by the web handlers.
//
// The fragments are small enough that they are written by hand as
// templ.ComponentFunc values instead of being generated from .templ files.
// They satisfy templ.Component like generated output does, so handlers and
// layouts can compose them either way. Every dynamic value must pass through
// templ.EscapeString.
package templates

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/sheetbridge/internal/core"
)

// ErrorAlert renders a dismissable error box with the support code.
func ErrorAlert(message, action, code string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		b.WriteString(`<div class="alert alert-error" role="alert">`)
		fmt.Fprintf(&b, `<p class="alert-message">%s</p>`, templ.EscapeString(message))
		if action != "" {
			fmt.Fprintf(&b, `<p class="alert-action">%s</p>`, templ.EscapeString(action))
		}
		if code != "" {
			fmt.Fprintf(&b, `<p class="alert-code">Code: %s</p>`, templ.EscapeString(code))
		}
		b.WriteString(`</div>`)
		_, err := io.WriteString(w, b.String())
		return err
	})
}

// PreviewSummary renders the counts of an import preview, the header check
// and the sampled error rows.
func PreviewSummary(p *core.PreviewResponse) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		fmt.Fprintf(&b, `<section class="preview" data-import-id="%s">`, templ.EscapeString(p.ImportID))
		fmt.Fprintf(&b, `<h3>%s</h3>`, templ.EscapeString(p.FileName))

		b.WriteString(`<ul class="preview-summary">`)
		summaryItem(&b, "Rows", p.Summary.TotalRows)
		summaryItem(&b, "New", p.Summary.NewRows)
		summaryItem(&b, "Updates", p.Summary.UpdateRows)
		summaryItem(&b, "Errors", p.Summary.ErrorRows)
		if p.Summary.DuplicateInFile > 0 {
			summaryItem(&b, "Duplicates in file", p.Summary.DuplicateInFile)
		}
		b.WriteString(`</ul>`)

		if len(p.Headers.Missing) > 0 {
			fmt.Fprintf(&b, `<p class="preview-missing">Missing columns: %s</p>`,
				templ.EscapeString(strings.Join(p.Headers.Missing, ", ")))
		}
		if len(p.Headers.Unknown) > 0 {
			fmt.Fprintf(&b, `<p class="preview-unknown">Ignored columns: %s</p>`,
				templ.EscapeString(strings.Join(p.Headers.Unknown, ", ")))
		}

		if len(p.ErrorSamples) > 0 {
			b.WriteString(`<table class="preview-errors"><thead><tr><th>Line</th><th>Errors</th></tr></thead><tbody>`)
			for _, e := range p.ErrorSamples {
				fmt.Fprintf(&b, `<tr><td>%d</td><td>%s</td></tr>`,
					e.LineNumber, templ.EscapeString(strings.Join(e.Errors, "; ")))
			}
			b.WriteString(`</tbody></table>`)
		}

		b.WriteString(`</section>`)
		_, err := io.WriteString(w, b.String())
		return err
	})
}

func summaryItem(b *strings.Builder, label string, n int) {
	fmt.Fprintf(b, `<li><span class="label">%s</span> <span class="count">%d</span></li>`, label, n)
}
