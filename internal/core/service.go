package core

import (
	"context"
	"fmt"
	"io"
	"time"
)

// ImportTimeout bounds a single preview or commit.
var ImportTimeout = 5 * time.Minute

// ServiceConfig tunes the service.
type ServiceConfig struct {
	MaxFileSize    int64 // bytes, <= 0 disables
	MaxRows        int   // data rows per import, <= 0 disables
	FreezeColumns  int
	SheetPassword  string
	MaxConcurrent  int
	MaxWait        time.Duration
	PreviewSamples int
}

// Service is the entry point for dataset export and import.
type Service struct {
	store    RecordStore
	exporter func(Destination) *Exporter
	parser   *Parser
	limiter  *ImportLimiter
	cfg      ServiceConfig
}

// NewService creates a Service over store, reading and writing workbooks
// through backend.
func NewService(store RecordStore, backend WorkbookBackend, cfg ServiceConfig) *Service {
	if cfg.FreezeColumns < 1 {
		cfg.FreezeColumns = DefaultFreezeCol
	}
	return &Service{
		store: store,
		exporter: func(dst Destination) *Exporter {
			return NewExporter(backend, dst)
		},
		parser:  NewParser(backend, cfg.MaxFileSize),
		limiter: NewImportLimiter(cfg.MaxConcurrent, cfg.MaxWait),
		cfg:     cfg,
	}
}

// Limiter exposes the import limiter for graceful shutdown.
func (s *Service) Limiter() *ImportLimiter { return s.limiter }

// ListDatasets returns information about all registered datasets.
func (s *Service) ListDatasets() []DatasetInfo {
	defs := All()
	infos := make([]DatasetInfo, len(defs))
	for i, def := range defs {
		infos[i] = def.Info
	}
	return infos
}

// Export writes a dataset in format (xlsx, csv or json) to dst. The error
// covers lookup failures; export failures are reported in the result.
func (s *Service) Export(ctx context.Context, datasetKey, format string, dst Destination) (ExportResult, error) {
	def, err := Lookup(datasetKey)
	if err != nil {
		return ExportResult{}, err
	}

	records, err := s.store.LoadRecords(ctx, datasetKey)
	if err != nil {
		return ExportResult{}, fmt.Errorf("load %s: %w", datasetKey, err)
	}

	exp := s.exporter(dst)
	base := def.ExportFileBase()

	switch format {
	case FormatJSON:
		return exp.ExportToJSON(ctx, SanitizeRows(records), base), nil
	case FormatCSV, FormatXLSX, "":
	default:
		return ExportResult{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	rows, columns, err := s.prepare(ctx, def, records)
	if err != nil {
		return ExportResult{}, err
	}
	if format == FormatCSV {
		return exp.ExportToCSV(ctx, rows, columns, base), nil
	}
	return exp.ExportToExcel(ctx, rows, columns, base, s.exportOptions(ctx, def)), nil
}

// Template writes an xlsx with the dataset's columns and no data rows.
func (s *Service) Template(ctx context.Context, datasetKey string, dst Destination) (ExportResult, error) {
	def, err := Lookup(datasetKey)
	if err != nil {
		return ExportResult{}, err
	}
	_, columns, err := s.prepare(ctx, def, nil)
	if err != nil {
		return ExportResult{}, err
	}
	opts := s.exportOptions(ctx, def)
	opts.Metadata["template"] = true
	return s.exporter(dst).ExportToExcel(ctx, nil, columns, def.ExportFileBase()+"-template", opts), nil
}

func (s *Service) prepare(ctx context.Context, def DatasetDefinition, records []Row) ([]Row, ColumnSchema, error) {
	if def.Prepare == nil {
		return records, def.Columns, nil
	}
	categories, err := s.categories(ctx, def)
	if err != nil {
		return nil, nil, err
	}
	rows, columns := def.Prepare(records, def.Columns, categories)
	return rows, columns, nil
}

func (s *Service) categories(ctx context.Context, def DatasetDefinition) ([]Row, error) {
	if def.CategorySource == "" {
		return nil, nil
	}
	cats, err := s.store.LoadRecords(ctx, def.CategorySource)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", def.CategorySource, err)
	}
	return cats, nil
}

func (s *Service) exportOptions(ctx context.Context, def DatasetDefinition) ExportOptions {
	md := map[string]any{
		"dataset":    def.Info.Key,
		"exportedAt": time.Now().UTC().Format(time.RFC3339),
	}
	if origin := OriginFromContext(ctx); origin != "" {
		md["exportedBy"] = origin
	}
	return ExportOptions{
		Metadata:      md,
		FreezeColumns: s.cfg.FreezeColumns,
		Password:      s.cfg.SheetPassword,
	}
}

// analysis is the shared first half of preview and commit.
type analysis struct {
	def     DatasetDefinition
	parsed  ParseResult
	headers []string
	report  MatchReport
}

func (s *Service) analyze(ctx context.Context, datasetKey, fileName string, r io.Reader) (*analysis, error) {
	def, err := Lookup(datasetKey)
	if err != nil {
		return nil, err
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	parsed := s.parser.Parse(ctx, fileName, r)
	if parsed.Err != nil {
		return nil, parsed.Err
	}
	if len(parsed.Data) == 0 {
		return nil, fmt.Errorf("%s: %w", fileName, ErrEmptyData)
	}
	if s.cfg.MaxRows > 0 && len(parsed.Data) > s.cfg.MaxRows {
		return nil, fmt.Errorf("file too large: %d rows exceeds limit of %d", len(parsed.Data), s.cfg.MaxRows)
	}

	existing, err := s.store.LoadRecords(ctx, datasetKey)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", datasetKey, err)
	}

	validator, err := s.validator(ctx, def)
	if err != nil {
		return nil, err
	}

	return &analysis{
		def:     def,
		parsed:  parsed,
		headers: parsed.Data[0].Keys(),
		report:  MatchRecords(parsed.Data, existing, def.Match, validator),
	}, nil
}

func (s *Service) validator(ctx context.Context, def DatasetDefinition) (Validator, error) {
	vs := []Validator{NewSchemaValidator(def.Columns)}
	if def.rules != nil {
		vs = append(vs, def.rules)
	}
	if def.CategorySource != "" {
		cats, err := s.categories(ctx, def)
		if err != nil {
			return nil, err
		}
		vs = append(vs, NewCategoryValidator(BuildLookupMap(cats, "slug", "name", false)))
	}
	return Validators(vs...), nil
}

// CommitResult reports what an import wrote.
type CommitResult struct {
	ImportID string `json:"importId"`
	Dataset  string `json:"dataset"`
	FileName string `json:"fileName"`
	ApplyResult
	Skipped    int   `json:"skipped"`
	DurationMs int64 `json:"durationMs"`
}

// Commit applies an import. lines selects rows by line number; when empty
// every CREATE and UPDATE row is applied. Selected ERROR rows are counted as
// failed with their validation messages.
func (s *Service) Commit(ctx context.Context, datasetKey, fileName string, r io.Reader, lines []int) (*CommitResult, error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, ImportTimeout)
	defer cancel()

	a, err := s.analyze(ctx, datasetKey, fileName, r)
	if err != nil {
		return nil, err
	}

	selected := make(map[int]bool, len(lines))
	for _, l := range lines {
		selected[l] = true
	}

	result := &CommitResult{
		ImportID: newImportID(),
		Dataset:  datasetKey,
		FileName: fileName,
	}

	var changes []Change
	for _, res := range a.report.Results {
		if len(selected) > 0 && !selected[res.Line] {
			result.Skipped++
			continue
		}
		switch res.Action {
		case ActionError:
			if len(selected) == 0 {
				result.Skipped++
				continue
			}
			result.Failed++
			result.Errors = append(result.Errors, RowError{Line: res.Line, Message: joinValidationErrors(res.Errors)})
		case ActionCreate:
			changes = append(changes, Change{Line: res.Line, Action: ActionCreate, Payload: a.def.Payload(res.Row)})
		case ActionUpdate:
			changes = append(changes, Change{
				Line:     res.Line,
				Action:   ActionUpdate,
				RecordID: res.MatchedRecord.String(RecordIDField),
				Payload:  a.def.Payload(res.Row),
			})
		}
	}

	if len(changes) > 0 {
		applied, err := s.store.Apply(ctx, datasetKey, changes)
		if err != nil {
			return nil, fmt.Errorf("apply %s: %w", datasetKey, err)
		}
		result.Created += applied.Created
		result.Updated += applied.Updated
		result.Failed += applied.Failed
		result.Errors = append(result.Errors, applied.Errors...)
	}

	result.DurationMs = time.Since(start).Milliseconds()
	logFromContext(ctx).Info("import committed",
		"import_id", result.ImportID,
		"dataset", datasetKey,
		"file", fileName,
		"created", result.Created,
		"updated", result.Updated,
		"failed", result.Failed,
		"skipped", result.Skipped,
	)
	return result, nil
}
