package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/sheetbridge/internal/core"
	"github.com/JonMunkholm/sheetbridge/internal/store"
	"github.com/JonMunkholm/sheetbridge/internal/xlsx"
)

var previewFlags struct {
	dataset    string
	existing   string
	categories string
}

var previewCmd = &cobra.Command{
	Use:   "preview <file>",
	Short: "Show what importing a file would create, update or reject",
	Long: `Preview parses a file, validates every row against the dataset and
matches it against existing records read from a JSON file. Nothing is written.

Example:
  sheetbridge preview companies.xlsx --dataset companies --existing companies.json --categories categories.json`,
	Args: cobra.ExactArgs(1),
	RunE: runPreview,
}

func init() {
	f := previewCmd.Flags()
	f.StringVar(&previewFlags.dataset, "dataset", "", "dataset key (required, see 'sheetbridge datasets')")
	f.StringVar(&previewFlags.existing, "existing", "", "JSON file with the existing records")
	f.StringVar(&previewFlags.categories, "categories", "", "JSON file with {slug, name} category records")
	_ = previewCmd.MarkFlagRequired("dataset")
}

func runPreview(cmd *cobra.Command, args []string) error {
	def, err := core.Lookup(previewFlags.dataset)
	if err != nil {
		return fmt.Errorf("%w: %q", err, previewFlags.dataset)
	}

	records := store.NewMemory()
	if err := seedFromFile(records, def.Info.Key, previewFlags.existing); err != nil {
		return err
	}
	if def.CategorySource != "" {
		if err := seedFromFile(records, def.CategorySource, previewFlags.categories); err != nil {
			return err
		}
	}

	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	service := core.NewService(records, xlsx.Backend{}, serviceConfig())
	resp, err := service.Preview(commandContext(cmd), def.Info.Key, filepath.Base(args[0]), f)
	if err != nil {
		return fmt.Errorf("%s (%s)", core.FormatUserError(err), err)
	}
	return printJSON(cmd.OutOrStdout(), resp)
}

func seedFromFile(m *store.Memory, dataset, path string) error {
	if path == "" {
		return nil
	}
	var rows []core.Row
	if err := readJSONFile(path, &rows); err != nil {
		return err
	}
	m.Seed(dataset, rows)
	return nil
}
