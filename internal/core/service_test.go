package core

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testCompanies  = "test_companies"
	testCategories = "test_categories"
)

// fakeStore is a RecordStore over fixed records that remembers applied changes.
type fakeStore struct {
	records  map[string][]Row
	applied  []Change
	loadErr  error
	applyErr error
}

func (s *fakeStore) LoadRecords(_ context.Context, dataset string) ([]Row, error) {
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	return s.records[dataset], nil
}

func (s *fakeStore) Apply(_ context.Context, _ string, changes []Change) (ApplyResult, error) {
	if s.applyErr != nil {
		return ApplyResult{}, s.applyErr
	}
	s.applied = append(s.applied, changes...)
	var res ApplyResult
	for _, c := range changes {
		switch c.Action {
		case ActionCreate:
			res.Created++
		case ActionUpdate:
			res.Updated++
		}
	}
	return res, nil
}

// expandTestCategories swaps the Categories column for one boolean column per
// category record.
func expandTestCategories(records []Row, columns ColumnSchema, categories []Row) ([]Row, ColumnSchema) {
	var expanded ColumnSchema
	for _, col := range columns {
		if col.Key != CategoriesField {
			expanded = append(expanded, col)
			continue
		}
		for _, c := range categories {
			expanded = append(expanded, CategoryColumn(c.String("slug"), c.String("name")))
		}
	}

	rows := make([]Row, len(records))
	for i, rec := range records {
		member := make(map[string]bool)
		for _, slug := range SplitCategories(rec.String(CategoriesField)) {
			member[slug] = true
		}
		row := rec.Clone()
		row.Delete(CategoriesField)
		for _, c := range categories {
			slug := c.String("slug")
			row.Set(CategoryKeyPrefix+slug, member[slug])
		}
		rows[i] = row
	}
	return rows, expanded
}

func registerTestDatasets(t *testing.T) {
	t.Helper()
	resetRegistry(t)

	Register(DatasetDefinition{
		Info: DatasetInfo{Key: testCategories, Group: "Directory", Label: "Categories"},
		Columns: ColumnSchema{
			{Key: "slug", Header: "Slug", Required: true},
			{Key: "name", Header: "Name", Required: true},
		},
		Match: MatchConfig{Fields: []MatchField{{Key: "slug"}}, Mode: MatchStrict},
	})
	Register(DatasetDefinition{
		Info: DatasetInfo{Key: testCompanies, Group: "Directory", Label: "Companies"},
		Columns: ColumnSchema{
			{Key: "name", Header: "Company Name", Required: true},
			{Key: "email", Header: "Email", Type: TypeEmail},
			{Key: CategoriesField, Header: CategoriesField},
			{Key: "employees", Header: "Employees", Type: TypeNumber},
		},
		Match: MatchConfig{Fields: []MatchField{{Key: "name", Headers: []string{"Company Name"}}}},
		Rules: []Rule{
			{Field: "employees", Expression: "employees == nil || employees >= 0", Message: "employees must not be negative"},
		},
		CategorySource: testCategories,
		Prepare:        expandTestCategories,
		Transform: func(p Row) Row {
			p.Set("_source", "upload")
			return p
		},
	})
}

func newTestStore() *fakeStore {
	return &fakeStore{records: map[string][]Row{
		testCompanies: {
			NewRow(RecordIDField, "1", "name", "Acme", "email", "info@acme.io", CategoriesField, "food", "employees", 12),
		},
		testCategories: {
			NewRow(RecordIDField, "c1", "slug", "food", "name", "Food"),
			NewRow(RecordIDField, "c2", "slug", "tech", "name", "Tech"),
		},
	}}
}

func newTestService(store RecordStore, cfg ServiceConfig) (*Service, *memBackend) {
	backend := &memBackend{}
	return NewService(store, backend, cfg), backend
}

const companiesUpload = "Company Name,Email,Categories,Employees\n" +
	"Acme,sales@acme.io,food,15\n" +
	"NewCo,not-an-email,,3\n" +
	"Fresh,,tech,\n" +
	"Neg,,,-4\n"

func TestService_ListDatasets(t *testing.T) {
	registerTestDatasets(t)
	svc, _ := newTestService(newTestStore(), ServiceConfig{})

	infos := svc.ListDatasets()
	require.Len(t, infos, 2)
	assert.Equal(t, testCategories, infos[0].Key)
	assert.Equal(t, []string{"Company Name", "Email", "Categories", "Employees"}, infos[1].Columns)
}

func TestService_ExportXLSX(t *testing.T) {
	registerTestDatasets(t)
	svc, backend := newTestService(newTestStore(), ServiceConfig{FreezeColumns: 2, SheetPassword: "pw"})
	dst := &captureDestination{}
	ctx := ContextWithOrigin(context.Background(), "10.1.2.3")

	res, err := svc.Export(ctx, testCompanies, FormatXLSX, dst)
	require.NoError(t, err)
	require.True(t, res.Success, res.Error)
	assert.Equal(t, "test-companies.xlsx", res.FileName)
	assert.Equal(t, 1, res.Rows)

	data := backend.last.sheets[DataSheetName]
	assert.Equal(t, "pw", data.password)
	assert.Equal(t, 2, data.pane.XSplit)
	assert.Equal(t, "Food", data.value(3, 1))
	assert.Equal(t, TokenTrue, data.value(3, 2))
	assert.Equal(t, TokenFalse, data.value(4, 2))

	parsed := NewParser(backend, 0).Parse(context.Background(), res.FileName, bytes.NewReader(dst.data))
	require.NoError(t, parsed.Err)
	require.NotNil(t, parsed.Metadata)
	assert.Equal(t, testCompanies, parsed.Metadata.Extensions["dataset"])
	assert.Equal(t, "10.1.2.3", parsed.Metadata.Extensions["exportedBy"])
	assert.NotEmpty(t, parsed.Metadata.Extensions["exportedAt"])

	require.Len(t, parsed.Data, 1)
	assert.Equal(t, "food", parsed.Data[0].String(CategoriesField))
	assert.False(t, parsed.Data[0].Has(RecordIDField), "ids are not exported")
}

func TestService_ExportCSVAndJSON(t *testing.T) {
	registerTestDatasets(t)
	svc, _ := newTestService(newTestStore(), ServiceConfig{})

	csvDst := &captureDestination{}
	res, err := svc.Export(context.Background(), testCompanies, FormatCSV, csvDst)
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.Equal(t, "Company Name,Email,Food,Tech,Employees\nAcme,info@acme.io,+,-,12\n", string(csvDst.data))

	jsonDst := &captureDestination{}
	res, err = svc.Export(context.Background(), testCompanies, FormatJSON, jsonDst)
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.JSONEq(t, `[{"name":"Acme","email":"info@acme.io","Categories":"food","employees":12}]`, string(jsonDst.data))
}

func TestService_ExportErrors(t *testing.T) {
	registerTestDatasets(t)

	svc, _ := newTestService(newTestStore(), ServiceConfig{})
	_, err := svc.Export(context.Background(), "missing", FormatXLSX, &captureDestination{})
	assert.ErrorIs(t, err, ErrUnknownDataset)

	_, err = svc.Export(context.Background(), testCompanies, "pdf", &captureDestination{})
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	broken := newTestStore()
	broken.loadErr = errors.New("connection refused")
	svc, _ = newTestService(broken, ServiceConfig{})
	_, err = svc.Export(context.Background(), testCompanies, FormatXLSX, &captureDestination{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestService_Template(t *testing.T) {
	registerTestDatasets(t)
	svc, backend := newTestService(newTestStore(), ServiceConfig{})
	dst := &captureDestination{}

	res, err := svc.Template(context.Background(), testCompanies, dst)
	require.NoError(t, err)
	require.True(t, res.Success, res.Error)
	assert.Equal(t, "test-companies-template.xlsx", res.FileName)
	assert.Equal(t, 0, res.Rows)
	data := backend.last.sheets[DataSheetName]
	require.Len(t, data.validations, 2, "blank category cells are still restricted")
	assert.Equal(t, ValidatedRows, data.validations[0].LastRow)
	assert.False(t, data.style(2, 2).Locked, "template rows can be typed into")

	parsed := NewParser(backend, 0).Parse(context.Background(), res.FileName, bytes.NewReader(dst.data))
	require.NoError(t, parsed.Err)
	assert.Empty(t, parsed.Data)
	require.NotNil(t, parsed.Metadata)
	assert.Equal(t, true, parsed.Metadata.Extensions["template"])
	assert.Equal(t, []string{"name", "email", "category:food", "category:tech", "employees"}, parsed.Metadata.Columns.Keys())
}

func TestService_Preview(t *testing.T) {
	registerTestDatasets(t)
	svc, _ := newTestService(newTestStore(), ServiceConfig{})

	resp, err := svc.Preview(context.Background(), testCompanies, "companies.csv", strings.NewReader(companiesUpload))
	require.NoError(t, err)

	assert.NotEmpty(t, resp.ImportID)
	assert.Equal(t, testCompanies, resp.Dataset)
	assert.False(t, resp.HasMetadata)
	assert.Empty(t, resp.Headers.Missing)
	assert.Empty(t, resp.Headers.Unknown)
	assert.Equal(t, PreviewSummary{TotalRows: 4, NewRows: 1, UpdateRows: 1, ErrorRows: 2}, resp.Summary)

	require.Len(t, resp.UpdateDiffs, 1)
	diff := resp.UpdateDiffs[0]
	assert.Equal(t, 2, diff.LineNumber)
	assert.Equal(t, []string{"Email", "Employees"}, diff.Changed)
	assert.False(t, diff.Current.Has(RecordIDField))
	assert.False(t, diff.Incoming.Has("_source"))

	require.Len(t, resp.NewRowSamples, 1)
	assert.Equal(t, 4, resp.NewRowSamples[0].LineNumber)
	assert.Equal(t, "Fresh", resp.NewRowSamples[0].Values.String("name"))

	require.Len(t, resp.ErrorSamples, 2)
	assert.Equal(t, 3, resp.ErrorSamples[0].LineNumber)
	assert.Equal(t, []string{"Email: invalid email address"}, resp.ErrorSamples[0].Errors)
	assert.Equal(t, []string{"employees: employees must not be negative"}, resp.ErrorSamples[1].Errors)
}

func TestService_PreviewUnknownCategory(t *testing.T) {
	registerTestDatasets(t)
	svc, _ := newTestService(newTestStore(), ServiceConfig{})

	upload := "Company Name,Categories\nAcme,\"food,space\"\n"
	resp, err := svc.Preview(context.Background(), testCompanies, "companies.csv", strings.NewReader(upload))
	require.NoError(t, err)
	require.Len(t, resp.ErrorSamples, 1)
	assert.Equal(t, []string{`Categories: unknown category "space"`}, resp.ErrorSamples[0].Errors)
}

func TestService_PreviewRoundTripHasNoChanges(t *testing.T) {
	registerTestDatasets(t)
	svc, _ := newTestService(newTestStore(), ServiceConfig{})
	dst := &captureDestination{}

	res, err := svc.Export(context.Background(), testCompanies, FormatXLSX, dst)
	require.NoError(t, err)
	require.True(t, res.Success)

	resp, err := svc.Preview(context.Background(), testCompanies, res.FileName, bytes.NewReader(dst.data))
	require.NoError(t, err)
	assert.True(t, resp.HasMetadata)
	assert.Equal(t, 1, resp.Summary.UpdateRows)
	require.Len(t, resp.UpdateDiffs, 1)
	assert.Empty(t, resp.UpdateDiffs[0].Changed)
}

func TestService_PreviewErrors(t *testing.T) {
	registerTestDatasets(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		cfg    ServiceConfig
		key    string
		file   string
		upload string
		check  func(t *testing.T, err error)
	}{
		{
			name: "unknown dataset", key: "missing", file: "a.csv", upload: companiesUpload,
			check: func(t *testing.T, err error) { assert.ErrorIs(t, err, ErrUnknownDataset) },
		},
		{
			name: "unsupported format", key: testCompanies, file: "a.txt", upload: companiesUpload,
			check: func(t *testing.T, err error) { assert.ErrorIs(t, err, ErrUnsupportedFormat) },
		},
		{
			name: "header only", key: testCompanies, file: "a.csv", upload: "Company Name\n",
			check: func(t *testing.T, err error) { assert.ErrorIs(t, err, ErrEmptyData) },
		},
		{
			name: "too many rows", cfg: ServiceConfig{MaxRows: 2}, key: testCompanies, file: "a.csv", upload: companiesUpload,
			check: func(t *testing.T, err error) {
				require.Error(t, err)
				assert.Equal(t, "file too large: 4 rows exceeds limit of 2", err.Error())
			},
		},
		{
			name: "too many bytes", cfg: ServiceConfig{MaxFileSize: 10}, key: testCompanies, file: "a.xlsx", upload: companiesUpload,
			check: func(t *testing.T, err error) { assert.ErrorIs(t, err, errTooLarge) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestService(newTestStore(), tt.cfg)
			resp, err := svc.Preview(ctx, tt.key, tt.file, strings.NewReader(tt.upload))
			assert.Nil(t, resp)
			tt.check(t, err)
		})
	}
}

func TestService_PreviewBusy(t *testing.T) {
	registerTestDatasets(t)
	svc, _ := newTestService(newTestStore(), ServiceConfig{MaxConcurrent: 1, MaxWait: 10 * time.Millisecond})

	require.True(t, svc.Limiter().TryAcquire())
	defer svc.Limiter().Release()

	_, err := svc.Preview(context.Background(), testCompanies, "a.csv", strings.NewReader(companiesUpload))
	assert.ErrorIs(t, err, ErrTooManyImports)
}

func TestService_CommitAll(t *testing.T) {
	registerTestDatasets(t)
	store := newTestStore()
	svc, _ := newTestService(store, ServiceConfig{})

	res, err := svc.Commit(context.Background(), testCompanies, "companies.csv", strings.NewReader(companiesUpload), nil)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Created)
	assert.Equal(t, 1, res.Updated)
	assert.Equal(t, 0, res.Failed)
	assert.Equal(t, 2, res.Skipped, "error rows are skipped when nothing is selected")
	assert.NotEmpty(t, res.ImportID)

	require.Len(t, store.applied, 2)
	update := store.applied[0]
	assert.Equal(t, ActionUpdate, update.Action)
	assert.Equal(t, "1", update.RecordID)
	assert.Equal(t, 2, update.Line)
	assert.Equal(t, "sales@acme.io", update.Payload.String("email"))

	create := store.applied[1]
	assert.Equal(t, ActionCreate, create.Action)
	assert.Empty(t, create.RecordID)
	for _, k := range create.Payload.Keys() {
		assert.False(t, strings.HasPrefix(k, InternalKeyPrefix), "payload key %q", k)
	}
	assert.Equal(t, "tech", create.Payload.String(CategoriesField))
}

func TestService_CommitSelectedLines(t *testing.T) {
	registerTestDatasets(t)
	store := newTestStore()
	svc, _ := newTestService(store, ServiceConfig{})

	res, err := svc.Commit(context.Background(), testCompanies, "companies.csv", strings.NewReader(companiesUpload), []int{3, 4})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Created)
	assert.Equal(t, 0, res.Updated)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, 2, res.Skipped)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, RowError{Line: 3, Message: "Email: invalid email address"}, res.Errors[0])

	require.Len(t, store.applied, 1)
	assert.Equal(t, 4, store.applied[0].Line)
}

func TestService_CommitNothingToApply(t *testing.T) {
	registerTestDatasets(t)
	store := newTestStore()
	svc, _ := newTestService(store, ServiceConfig{})

	res, err := svc.Commit(context.Background(), testCompanies, "companies.csv", strings.NewReader(companiesUpload), []int{3})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Failed)
	assert.Empty(t, store.applied, "the store is not called without changes")
}

func TestService_CommitApplyError(t *testing.T) {
	registerTestDatasets(t)
	store := newTestStore()
	store.applyErr = errors.New("deadlock detected")
	svc, _ := newTestService(store, ServiceConfig{})

	_, err := svc.Commit(context.Background(), testCompanies, "companies.csv", strings.NewReader(companiesUpload), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "apply test_companies")
	assert.Contains(t, err.Error(), "deadlock detected")
}

func TestBuildPreview_SampleLimit(t *testing.T) {
	def := DatasetDefinition{Columns: ColumnSchema{{Key: "name", Header: "Name"}}}
	rows := []Row{NewRow("Name", "a"), NewRow("Name", "b"), NewRow("Name", "c")}
	report := MatchRecords(rows, nil, MatchConfig{Fields: []MatchField{{Key: "name"}}}, nil)

	resp := BuildPreview(def, report, 2)
	assert.Equal(t, 3, resp.Summary.NewRows)
	assert.Len(t, resp.NewRowSamples, 2)
	assert.NotNil(t, resp.UpdateDiffs)
	assert.NotNil(t, resp.ErrorSamples)
}
