package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"pcbaerp/internal/handlers/common"
	"pcbaerp/internal/server"
)

var (
	exportFormat string
	exportSearch string
	exportOut    string
)

var exportCmd = &cobra.Command{
	Use:   "export <collection>",
	Short: "Write a collection to CSV or XLSX",
	Long: `Export writes the records of one collection, optionally filtered by a
search term, as CSV or an Excel workbook.

Example:
  pcbaerp export work-orders --format xlsx --out wo.xlsx
  pcbaerp export defects --search SN2401`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "csv", "Output format: csv or xlsx")
	exportCmd.Flags().StringVarP(&exportSearch, "search", "s", "", "Only export records matching this term")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "Output file (default stdout)")
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	app, closeDB, err := buildApp(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer closeDB()

	n, err := exportCollection(cmd.Context(), app, args[0], cmd.OutOrStdout())
	if err != nil {
		return err
	}
	logger.Info("export complete",
		zap.String("collection", args[0]),
		zap.String("format", exportFormat),
		zap.Int("records", n),
	)
	return nil
}

// exportCollection writes the named collection to exportOut, or to stdout
// when no file was given.
func exportCollection(ctx context.Context, app *server.App, name string, stdout io.Writer) (n int, err error) {
	sources := app.Exportables()
	src, ok := sources[name]
	if !ok {
		return 0, fmt.Errorf("unknown collection %q (have %s)", name, strings.Join(common.SortedNames(sources), ", "))
	}

	w := stdout
	if exportOut != "" {
		f, err := os.Create(exportOut)
		if err != nil {
			return 0, fmt.Errorf("create %s: %w", exportOut, err)
		}
		defer func() {
			if cerr := f.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}()
		w = f
	}
	return src.ExportTo(ctx, w, exportFormat, exportSearch)
}
