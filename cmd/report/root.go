package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"custos/internal/config"
	"custos/internal/files"
	"custos/internal/infrastructure"
	"custos/internal/middleware"
	"custos/internal/services"
	"custos/internal/validation"
	"custos/pkg/contracts"
)

const (
	formatText = "text"
	formatJSON = "json"
	formatCSV  = "csv"
)

// rootOptions holds the flags shared by every subcommand
type rootOptions struct {
	configFile string
	months     []string
	format     string
	logLevel   string
}

// report is one loaded workbook ready to be queried
type report struct {
	service   *services.DashboardService
	sessionID string
	fileName  string
	sheets    []string
	// months defaults to every sheet in file order
	months []string
	cfg    *config.Config
}

func newRootCmd() *cobra.Command {
	o := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "custos-report",
		Short: "Analyze monthly sales workbooks",
		Long: `custos-report reads an Excel workbook with one sheet per month and
prints the same totals, series and product margins the dashboard shows.`,
		Version:      contracts.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// one trace_id ties together the diagnostics of a single run
			cmd.SetContext(infrastructure.EnsureTraceID(cmd.Context()))
			switch o.format {
			case formatText, formatJSON, formatCSV:
				return nil
			default:
				return fmt.Errorf("invalid format: %s (must be text, json, or csv)", o.format)
			}
		},
	}

	rootCmd.SetVersionTemplate(contracts.GetFullVersionString() + "\n")

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&o.configFile, "config", "", "Path to a YAML config file")
	flags.StringArrayVarP(&o.months, "months", "m", nil, "Month to analyze, repeatable and kept in order (default: every sheet)")
	flags.StringVarP(&o.format, "format", "f", formatText, "Output format: text, json, or csv")
	flags.StringVar(&o.logLevel, "log-level", "warn", "Diagnostic log level written to stderr")

	rootCmd.AddCommand(
		newFindCmd(o),
		newSheetsCmd(o),
		newSummaryCmd(o),
		newSeriesCmd(o),
		newMarginsCmd(o),
		newChartCmd(o),
		newExportCmd(o),
	)
	return rootCmd
}

// open validates and loads the workbook at path into a private session
func (o *rootOptions) open(cmd *cobra.Command, path string) (*report, error) {
	cfg, err := config.Load(o.configFile)
	if err != nil {
		return nil, err
	}
	logger := infrastructure.WithComponent(infrastructure.NewLogger(cmd.ErrOrStderr(), o.logLevel), "report")

	months, err := o.selection(cmd, logger)
	if err != nil {
		return nil, err
	}

	path, err = resolveWorkbook(cfg, path)
	if err != nil {
		return nil, err
	}

	validator := validation.NewUploadValidator(cfg.Upload.MaxBytes, cfg.Upload.AllowedExtensions, logger)
	data, err := validator.ReadFile(path)
	if err != nil {
		return nil, err
	}

	store := services.NewSessionStore(cfg.Session.TTL, 1, nil, logger)
	service := services.NewDashboardService(store, validator, cfg.Dashboard, nil, logger)
	res, err := service.Upload(cmd.Context(), "", filepath.Base(path), data)
	if err != nil {
		return nil, err
	}

	if months == nil {
		months = res.Sheets
	}

	return &report{
		service:   service,
		sessionID: res.SessionID,
		fileName:  res.FileName,
		sheets:    res.Sheets,
		months:    months,
		cfg:       cfg,
	}, nil
}

// resolveWorkbook turns a directory argument into its newest workbook
func resolveWorkbook(cfg *config.Config, path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return path, nil
	}
	latest, err := files.NewDiscovery("", cfg.Upload.AllowedExtensions).Latest(path)
	if err != nil {
		return "", err
	}
	return latest.Path, nil
}

// selection returns nil when --months was not given. An explicit empty
// value selects nothing. Values are sheet names taken verbatim, commas included.
func (o *rootOptions) selection(cmd *cobra.Command, logger *slog.Logger) ([]string, error) {
	if !cmd.Flags().Changed("months") {
		return nil, nil
	}
	months := make([]string, 0, len(o.months))
	for _, m := range o.months {
		if strings.TrimSpace(m) != "" {
			months = append(months, m)
		}
	}
	if err := middleware.NewValidator(logger).ValidateStruct(middleware.MonthSelection{Months: months}); err != nil {
		return nil, fmt.Errorf("invalid --months: %w", err)
	}
	logger.DebugContext(cmd.Context(), "month selection", slog.Any("months", months))
	return months, nil
}
