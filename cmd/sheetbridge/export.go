package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/sheetbridge/internal/core"
	"github.com/JonMunkholm/sheetbridge/internal/xlsx"
)

var exportFlags struct {
	columns  string
	rows     string
	format   string
	out      string
	name     string
	freeze   int
	password string
	meta     map[string]string
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write rows to an xlsx, csv or json file",
	Long: `Export reads a column schema and an array of rows, both JSON, and writes
them to <out>/<name>.<format>. xlsx output carries the hidden metadata sheet.

Example:
  sheetbridge export --columns columns.json --rows companies.json --format xlsx --out ./exports
  sheetbridge export --columns columns.json --rows companies.json --meta source=crm`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func init() {
	f := exportCmd.Flags()
	f.StringVar(&exportFlags.columns, "columns", "", "JSON file with the column schema (required)")
	f.StringVar(&exportFlags.rows, "rows", "", "JSON file with an array of rows keyed by column key (required)")
	f.StringVar(&exportFlags.format, "format", core.FormatXLSX, "output format: xlsx, csv or json")
	f.StringVar(&exportFlags.out, "out", ".", "output directory")
	f.StringVar(&exportFlags.name, "name", "", "file name without extension (default: rows file name)")
	f.IntVar(&exportFlags.freeze, "freeze", 0, "leading columns to freeze and lock (default: EXPORT_FREEZE_COLUMNS)")
	f.StringVar(&exportFlags.password, "password", "", "sheet protection password (default: EXPORT_SHEET_PASSWORD)")
	f.StringToStringVar(&exportFlags.meta, "meta", nil, "extra metadata fields as key=value")
	_ = exportCmd.MarkFlagRequired("columns")
	_ = exportCmd.MarkFlagRequired("rows")
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)

	var columns core.ColumnSchema
	if err := readJSONFile(exportFlags.columns, &columns); err != nil {
		return err
	}
	var rows []core.Row
	if err := readJSONFile(exportFlags.rows, &rows); err != nil {
		return err
	}

	name := exportFlags.name
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(exportFlags.rows), filepath.Ext(exportFlags.rows))
	}

	exp := core.NewExporter(xlsx.Backend{}, dirDestination(exportFlags.out))

	var result core.ExportResult
	switch exportFlags.format {
	case core.FormatXLSX:
		result = exp.ExportToExcel(ctx, rows, columns, name, exportOptions(ctx))
	case core.FormatCSV:
		result = exp.ExportToCSV(ctx, rows, columns, name)
	case core.FormatJSON:
		result = exp.ExportToJSON(ctx, core.SanitizeRows(rows), name)
	default:
		return fmt.Errorf("%w: %q (use xlsx, csv or json)", core.ErrUnsupportedFormat, exportFlags.format)
	}

	if err := printJSON(cmd.OutOrStdout(), result); err != nil {
		return err
	}
	if !result.Success {
		return fmt.Errorf("export %s: %s", result.FileName, result.Error)
	}
	return nil
}

func exportOptions(ctx context.Context) core.ExportOptions {
	md := map[string]any{"exportedBy": core.OriginFromContext(ctx)}
	for k, v := range exportFlags.meta {
		md[k] = v
	}

	opts := core.ExportOptions{
		Metadata:      md,
		FreezeColumns: cfg.Export.FreezeColumns,
		Password:      cfg.Export.SheetPassword,
	}
	if exportFlags.freeze > 0 {
		opts.FreezeColumns = exportFlags.freeze
	}
	if exportFlags.password != "" {
		opts.Password = exportFlags.password
	}
	return opts
}

// dirDestination writes finished exports into dir, creating it if needed.
func dirDestination(dir string) core.Destination {
	return core.DestinationFunc(func(ctx context.Context, fileName, contentType string, data []byte) error {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
		path := filepath.Join(dir, fileName)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return err
		}
		logger.Info("file written", "path", path, "bytes", len(data), "content_type", contentType)
		return nil
	})
}

func readJSONFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
