package core

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
)

// PreviewSummary contains the summary counts for an import preview.
type PreviewSummary struct {
	TotalRows       int `json:"totalRows"`
	NewRows         int `json:"newRows"`
	UpdateRows      int `json:"updateRows"`
	ErrorRows       int `json:"errorRows"`
	DuplicateInFile int `json:"duplicateInFile"`
}

// RowPreview represents a single row for preview display.
type RowPreview struct {
	LineNumber int    `json:"lineNumber"`
	RowKey     string `json:"rowKey"`
	Values     Row    `json:"values"`
}

// UpdateDiff is a before/after view of a row that will update a record.
type UpdateDiff struct {
	LineNumber int      `json:"lineNumber"`
	RowKey     string   `json:"rowKey"`
	Current    Row      `json:"current"`
	Incoming   Row      `json:"incoming"`
	Changed    []string `json:"changed"`
}

// ErrorPreview represents a row with validation errors.
type ErrorPreview struct {
	LineNumber int      `json:"lineNumber"`
	RowKey     string   `json:"rowKey,omitempty"`
	Values     Row      `json:"values"`
	Errors     []string `json:"errors"`
}

// PreviewResponse is the read-only analysis of an import.
type PreviewResponse struct {
	ImportID         string         `json:"importId"`
	Dataset          string         `json:"dataset"`
	FileName         string         `json:"fileName"`
	HasMetadata      bool           `json:"hasMetadata"`
	Headers          HeaderReport   `json:"headers"`
	Summary          PreviewSummary `json:"summary"`
	NewRowSamples    []RowPreview   `json:"newRowSamples"`
	UpdateDiffs      []UpdateDiff   `json:"updateDiffs"`
	ErrorSamples     []ErrorPreview `json:"errorSamples"`
	ProcessingTimeMs int64          `json:"processingTimeMs"`
}

// Sample limits
const (
	defaultPreviewSamples = 10
	maxErrorSamples       = 20
)

// Preview parses, validates and matches an upload without writing anything.
func (s *Service) Preview(ctx context.Context, datasetKey, fileName string, r io.Reader) (*PreviewResponse, error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, ImportTimeout)
	defer cancel()

	a, err := s.analyze(ctx, datasetKey, fileName, r)
	if err != nil {
		return nil, err
	}

	samples := s.cfg.PreviewSamples
	if samples <= 0 {
		samples = defaultPreviewSamples
	}

	resp := BuildPreview(a.def, a.report, samples)
	resp.ImportID = newImportID()
	resp.Dataset = datasetKey
	resp.FileName = fileName
	resp.HasMetadata = a.parsed.Metadata != nil
	resp.Headers = CheckHeaders(a.headers, a.def.Columns)
	resp.ProcessingTimeMs = time.Since(start).Milliseconds()
	return resp, nil
}

// BuildPreview summarizes a match report with at most samples new rows and
// update diffs.
func BuildPreview(def DatasetDefinition, report MatchReport, samples int) *PreviewResponse {
	resp := &PreviewResponse{
		Summary: PreviewSummary{
			TotalRows:       report.Summary.Total,
			NewRows:         report.Summary.Create,
			UpdateRows:      report.Summary.Update,
			ErrorRows:       report.Summary.Error,
			DuplicateInFile: report.Summary.DuplicateInFile,
		},
		NewRowSamples: []RowPreview{},
		UpdateDiffs:   []UpdateDiff{},
		ErrorSamples:  []ErrorPreview{},
	}

	for _, res := range report.Results {
		switch res.Action {
		case ActionCreate:
			if len(resp.NewRowSamples) < samples {
				resp.NewRowSamples = append(resp.NewRowSamples, RowPreview{
					LineNumber: res.Line,
					RowKey:     res.Key,
					Values:     def.Payload(res.Row),
				})
			}
		case ActionUpdate:
			if len(resp.UpdateDiffs) < samples {
				resp.UpdateDiffs = append(resp.UpdateDiffs, diffRecord(def, res))
			}
		case ActionError:
			if len(resp.ErrorSamples) < maxErrorSamples {
				msgs := make([]string, len(res.Errors))
				for i, e := range res.Errors {
					msgs[i] = e.Error()
				}
				resp.ErrorSamples = append(resp.ErrorSamples, ErrorPreview{
					LineNumber: res.Line,
					RowKey:     res.Key,
					Values:     res.Row,
					Errors:     msgs,
				})
			}
		}
	}
	return resp
}

// diffRecord compares the incoming payload with the matched record column by
// column. Only columns present in the upload are compared.
func diffRecord(def DatasetDefinition, res MatchResult) UpdateDiff {
	incoming := def.Payload(res.Row)
	current := SanitizeRow(*res.MatchedRecord)

	diff := UpdateDiff{
		LineNumber: res.Line,
		RowKey:     res.Key,
		Current:    current,
		Incoming:   incoming,
		Changed:    []string{},
	}
	for _, col := range def.Columns.Collapsed() {
		in, ok := incoming.Get(col.Key)
		if !ok {
			continue
		}
		cur, _ := current.Get(col.Key)
		if !sameValue(col, cur, in) {
			diff.Changed = append(diff.Changed, col.Header)
		}
	}
	return diff
}

func sameValue(col ColumnDefinition, a, b any) bool {
	if col.Type == TypeNumber {
		fa, okA := numericValue(a)
		fb, okB := numericValue(b)
		if okA && okB {
			return fa == fb
		}
	}
	return strings.TrimSpace(stringifyValue(a)) == strings.TrimSpace(stringifyValue(b))
}

func joinValidationErrors(errs []ValidationError) string {
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}

func newImportID() string {
	return uuid.New().String()
}
