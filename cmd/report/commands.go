package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"custos/internal/charts"
	"custos/internal/config"
	"custos/internal/files"
	"custos/internal/infrastructure"
	"custos/internal/middleware"
)

const (
	defaultChartFile  = "custos-charts.html"
	defaultExportFile = "custos-summary.xlsx"
	// stdoutPath sends file output to stdout
	stdoutPath = "-"
)

func newFindCmd(o *rootOptions) *cobra.Command {
	var latestOnly bool
	cmd := &cobra.Command{
		Use:   "find [dir]",
		Short: "List the workbooks of a directory, newest first",
		Long: `find lists the workbooks the other commands accept. Any command given a
directory instead of a file analyzes the newest workbook listed here.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			cfg, err := config.Load(o.configFile)
			if err != nil {
				return err
			}
			found, err := files.NewDiscovery("", cfg.Upload.AllowedExtensions).FindWorkbooks(dir)
			if err != nil {
				return err
			}
			if latestOnly && len(found) > 1 {
				found = found[:1]
			}
			return printWorkbooks(cmd.OutOrStdout(), o.format, found)
		},
	}
	cmd.Flags().BoolVar(&latestOnly, "latest", false, "Only print the newest workbook")
	return cmd
}

func newSheetsCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sheets <workbook.xlsx>",
		Short: "List the months (sheets) of a workbook in file order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := o.open(cmd, args[0])
			if err != nil {
				return err
			}
			return printSheets(cmd.OutOrStdout(), o.format, r)
		},
	}
}

func newSummaryCmd(o *rootOptions) *cobra.Command {
	var showRows bool
	cmd := &cobra.Command{
		Use:   "summary <workbook.xlsx>",
		Short: "Print the sale, cost and weighted margin totals of each selected month",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := o.open(cmd, args[0])
			if err != nil {
				return err
			}
			summaries, err := r.service.Summaries(cmd.Context(), r.sessionID, r.months)
			if err != nil {
				return err
			}
			return printSummaries(cmd.OutOrStdout(), o.format, summaries, showRows)
		},
	}
	cmd.Flags().BoolVar(&showRows, "rows", false, "Also print the rows of every month (text format)")
	return cmd
}

func newSeriesCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "series <workbook.xlsx>",
		Short: "Print the month-by-month sales, costs and weighted margins",
		Long: `series aggregates every selected month in order. A month without the
required columns makes the whole command fail.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := o.open(cmd, args[0])
			if err != nil {
				return err
			}
			series, err := r.service.Series(cmd.Context(), r.sessionID, r.months)
			if err != nil {
				return err
			}
			return printSeries(cmd.OutOrStdout(), o.format, series)
		},
	}
}

func newMarginsCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "margins <workbook.xlsx>",
		Short: "Print the per-product margins of the selected months",
		Long: `margins merges MARGEM and MARGEM PONDERADA of every product across the
selected months. Months without the product columns are reported on stderr
and left out.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := o.open(cmd, args[0])
			if err != nil {
				return err
			}
			margins, err := r.service.ProductMargins(cmd.Context(), r.sessionID, r.months)
			if err != nil {
				return err
			}
			printSkipped(cmd.ErrOrStderr(), margins.Skipped)
			return printMargins(cmd.OutOrStdout(), o.format, margins)
		},
	}
}

func newChartCmd(o *rootOptions) *cobra.Command {
	var outputPath, theme string
	cmd := &cobra.Command{
		Use:   "chart <workbook.xlsx>",
		Short: "Write the dashboard charts of the selection as an HTML page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := o.open(cmd, args[0])
			if err != nil {
				return err
			}
			if theme == "" {
				theme = r.cfg.Dashboard.ChartTheme
			}
			q := middleware.ChartQuery{Theme: theme}
			if err := middleware.NewValidator(infrastructure.GetLogger()).ValidateStruct(q); err != nil {
				return fmt.Errorf("invalid --theme: %w", err)
			}

			view, err := r.service.Dashboard(cmd.Context(), r.sessionID, r.months)
			if err != nil {
				return err
			}
			if view.SeriesError != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "Gráficos comparativos indisponíveis: %s\n", view.SeriesError)
			}
			printSkipped(cmd.ErrOrStderr(), view.Margins.Skipped)

			return writeOutput(cmd, outputPath, func(w io.Writer) error {
				return charts.RenderDashboard(w, view.Series, view.Margins, q.Theme)
			})
		},
	}
	cmd.Flags().StringVarP(&outputPath, "output", "o", defaultChartFile, `Output file path ("-" for stdout)`)
	cmd.Flags().StringVar(&theme, "theme", "", "Chart theme (default: the configured theme)")
	return cmd
}

func newExportCmd(o *rootOptions) *cobra.Command {
	var outputPath string
	cmd := &cobra.Command{
		Use:   "export <workbook.xlsx>",
		Short: "Write the summaries and product margins of the selection as an xlsx file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := o.open(cmd, args[0])
			if err != nil {
				return err
			}
			return writeOutput(cmd, outputPath, func(w io.Writer) error {
				return r.service.ExportWorkbook(cmd.Context(), r.sessionID, r.months, w)
			})
		},
	}
	cmd.Flags().StringVarP(&outputPath, "output", "o", defaultExportFile, `Output file path ("-" for stdout)`)
	return cmd
}

// writeOutput runs write against the named file, or stdout for "-".
// A failed write removes the partial file.
func writeOutput(cmd *cobra.Command, path string, write func(io.Writer) error) error {
	if path == stdoutPath {
		return write(cmd.OutOrStdout())
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output: %w", err)
	}
	if err := write(f); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", path)
	return nil
}
