// Package main provides the sheetbridge CLI for working with exports and
// uploads offline, without the HTTP server or a database.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/user"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/sheetbridge/internal/config"
	"github.com/JonMunkholm/sheetbridge/internal/core"
	_ "github.com/JonMunkholm/sheetbridge/internal/core/datasets" // Register all datasets
	"github.com/JonMunkholm/sheetbridge/internal/logging"
)

var (
	// logLevel overrides LOG_LEVEL when set by --log-level.
	logLevel string

	cfg    *config.Config
	logger = slog.Default()
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "sheetbridge",
	Short: "Export datasets to spreadsheets and read them back",
	Long: `sheetbridge writes records to xlsx, CSV and JSON files with a hidden
metadata sheet describing the columns, and parses edited files back into
rows ready for import.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (default: LOG_LEVEL or info)")

	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(previewCmd)
	rootCmd.AddCommand(datasetsCmd)
	rootCmd.AddCommand(templateCmd)
}

func setup(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load()

	loaded, err := config.Load()
	if err != nil {
		return err
	}
	cfg = loaded

	level := cfg.Logging.Level
	if logLevel != "" {
		level = logLevel
	}
	// stdout carries command output
	logger = logging.New(os.Stderr, level, cfg.Logging.Format)
	return nil
}

// commandContext carries the CLI logger and the local user name into the
// engine.
func commandContext(cmd *cobra.Command) context.Context {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = core.ContextWithLogger(ctx, logger)
	return core.ContextWithOrigin(ctx, origin())
}

func origin() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return "cli"
}

func serviceConfig() core.ServiceConfig {
	return core.ServiceConfig{
		MaxFileSize:    cfg.Import.MaxFileSize,
		MaxRows:        cfg.Import.MaxRows,
		FreezeColumns:  cfg.Export.FreezeColumns,
		SheetPassword:  cfg.Export.SheetPassword,
		MaxConcurrent:  1,
		MaxWait:        cfg.Import.MaxWaitTime,
		PreviewSamples: cfg.Import.PreviewSamples,
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	return nil
}
