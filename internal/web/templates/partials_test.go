package templates

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/sheetbridge/internal/core"
)

func TestErrorAlert(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, ErrorAlert(`<b>File "x.csv"</b> is broken`, "", "E42").Render(context.Background(), &buf))
	html := buf.String()

	assert.Contains(t, html, `role="alert"`)
	assert.Contains(t, html, "&lt;b&gt;File &#34;x.csv&#34;&lt;/b&gt; is broken")
	assert.NotContains(t, html, "<b>")
	assert.NotContains(t, html, "alert-action", "empty action is omitted")
	assert.Contains(t, html, "Code: E42")
}

func TestPreviewSummary(t *testing.T) {
	p := &core.PreviewResponse{
		ImportID: "imp-1",
		FileName: "<script>.xlsx",
		Summary:  core.PreviewSummary{TotalRows: 3, NewRows: 1, UpdateRows: 1, ErrorRows: 1},
		Headers:  core.HeaderReport{Missing: []string{"Company Name"}},
		ErrorSamples: []core.ErrorPreview{
			{LineNumber: 4, Errors: []string{"Email: invalid", "Employees: not a number"}},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, PreviewSummary(p).Render(context.Background(), &buf))
	html := buf.String()

	assert.Contains(t, html, `data-import-id="imp-1"`)
	assert.Contains(t, html, "<h3>&lt;script&gt;.xlsx</h3>")
	assert.Contains(t, html, `<span class="label">New</span> <span class="count">1</span>`)
	assert.NotContains(t, html, "Duplicates in file")
	assert.Contains(t, html, "Missing columns: Company Name")
	assert.NotContains(t, html, "preview-unknown")
	assert.Contains(t, html, "<tr><td>4</td><td>Email: invalid; Employees: not a number</td></tr>")
}
