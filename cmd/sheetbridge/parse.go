package main

import (
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/sheetbridge/internal/core"
	"github.com/JonMunkholm/sheetbridge/internal/xlsx"
)

var parseCmd = &cobra.Command{
	Use:   "parse <file>",
	Short: "Parse an xlsx, csv or json file into rows",
	Long: `Parse reads a file and prints {"data": [...], "metadata": {...}} as JSON.
Category columns of an xlsx with a metadata sheet are collapsed back into a
single Categories field.

Example:
  sheetbridge parse companies.xlsx`,
	Args: cobra.ExactArgs(1),
	RunE: runParse,
}

func runParse(cmd *cobra.Command, args []string) error {
	parser := core.NewParser(xlsx.Backend{}, cfg.Import.MaxFileSize)

	result := parser.ParseFile(commandContext(cmd), args[0])
	if result.Err != nil {
		return result.Err
	}
	return printJSON(cmd.OutOrStdout(), result)
}
