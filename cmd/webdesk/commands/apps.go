package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/bryanchriswhite/webdesk/internal/desktop"
	"github.com/spf13/cobra"
)

var appsCmd = &cobra.Command{
	Use:   "apps",
	Short: "List configured applications",
	Long: `List the applications shown on every desktop, in icon order.

The grid column shows where each icon lands on the desktop.`,
	Example: `  # List applications in table format (default)
  webdesk apps

  # List applications in JSON format
  webdesk apps --format json`,
	RunE: runApps,
}

var appsFormat string

func init() {
	rootCmd.AddCommand(appsCmd)

	appsCmd.Flags().StringVarP(&appsFormat, "format", "f", "table", "output format (table or json)")
}

func runApps(cmd *cobra.Command, args []string) error {
	configMgr, err := loadConfig()
	if err != nil {
		return err
	}
	cfg := configMgr.Get()

	catalog, err := cfg.Catalog()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch appsFormat {
	case "json":
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(catalog.All())
	case "table":
		return printAppsTable(out, catalog, cfg.Desktop.IconColumns)
	default:
		return fmt.Errorf("unsupported format: %s (use 'table' or 'json')", appsFormat)
	}
}

func printAppsTable(out io.Writer, catalog *desktop.Catalog, columns int) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintln(w, "ID\tNAME\tSURFACE\tGRID")
	fmt.Fprintln(w, "--\t----\t-------\t----")

	for i, app := range catalog.All() {
		col, row := desktop.IconCell(i, columns)
		fmt.Fprintf(w, "%d\t%s\t%s\t%d,%d\n", app.ID, app.Name, app.Surface, col, row)
	}

	return nil
}
