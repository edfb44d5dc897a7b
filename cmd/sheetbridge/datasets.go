package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/sheetbridge/internal/core"
	"github.com/JonMunkholm/sheetbridge/internal/store"
	"github.com/JonMunkholm/sheetbridge/internal/xlsx"
)

var datasetsJSON bool

var datasetsCmd = &cobra.Command{
	Use:   "datasets",
	Short: "List the registered datasets",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var infos []core.DatasetInfo
		for _, def := range core.All() {
			infos = append(infos, def.Info)
		}
		if datasetsJSON {
			return printJSON(cmd.OutOrStdout(), infos)
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "KEY\tGROUP\tLABEL\tCOLUMNS")
		for _, info := range infos {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", info.Key, info.Group, info.Label, len(info.Columns))
		}
		return tw.Flush()
	},
}

var templateFlags struct {
	dataset    string
	out        string
	categories string
}

var templateCmd = &cobra.Command{
	Use:   "template",
	Short: "Write an empty xlsx template for a dataset",
	Long: `Template writes <out>/<dataset>-template.xlsx with the dataset's header
row, styling and metadata sheet but no data rows.

Example:
  sheetbridge template --dataset companies --categories categories.json --out ./templates`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		def, err := core.Lookup(templateFlags.dataset)
		if err != nil {
			return fmt.Errorf("%w: %q", err, templateFlags.dataset)
		}

		records := store.NewMemory()
		if def.CategorySource != "" {
			if err := seedFromFile(records, def.CategorySource, templateFlags.categories); err != nil {
				return err
			}
		}

		service := core.NewService(records, xlsx.Backend{}, serviceConfig())
		result, err := service.Template(commandContext(cmd), def.Info.Key, dirDestination(templateFlags.out))
		if err != nil {
			return err
		}
		if err := printJSON(cmd.OutOrStdout(), result); err != nil {
			return err
		}
		if !result.Success {
			return fmt.Errorf("template %s: %s", result.FileName, result.Error)
		}
		return nil
	},
}

func init() {
	datasetsCmd.Flags().BoolVar(&datasetsJSON, "json", false, "print JSON instead of a table")

	f := templateCmd.Flags()
	f.StringVar(&templateFlags.dataset, "dataset", "", "dataset key (required)")
	f.StringVar(&templateFlags.out, "out", ".", "output directory")
	f.StringVar(&templateFlags.categories, "categories", "", "JSON file with {slug, name} category records")
	_ = templateCmd.MarkFlagRequired("dataset")
}
