package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"lcaparam/internal/config"
	"lcaparam/internal/importer"
	"lcaparam/internal/table"
)

func importCmd() *cobra.Command {
	var linkMode string
	var overwrite bool
	var metricsFile string
	cmd := &cobra.Command{
		Use:   "import <table>",
		Short: "Import a parameter table (file, s3://bucket/key or - for stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, args[0], linkMode, overwrite, metricsFile)
		},
	}
	cmd.Flags().StringVar(&linkMode, "link-mode", "", "Final link pass: first, every-activity or per-group (default from config)")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace existing parameters of each group")
	cmd.Flags().StringVar(&metricsFile, "metrics-file", "", "Write import metrics in Prometheus text format to this path")
	return cmd
}

func runImport(cmd *cobra.Command, location, linkMode string, overwrite bool, metricsFile string) error {
	ctx := context.Background()

	cfg, err := loadProject()
	if err != nil {
		return err
	}

	if linkMode == "" {
		linkMode = cfg.Import.LinkMode
	}
	mode, err := importer.ParseLinkMode(linkMode)
	if err != nil {
		return err
	}
	if !cmd.Flags().Changed("overwrite") {
		overwrite = cfg.Import.Overwrite
	}
	if metricsFile == "" {
		metricsFile = cfg.Metrics.Textfile
	}

	tbl, err := loadTable(ctx, cfg, location)
	if err != nil {
		return err
	}

	db, err := openDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close(ctx)

	registry := prometheus.NewRegistry()
	result, runErr := importer.Run(ctx, tbl, db, importer.Options{
		LinkMode:  mode,
		Overwrite: overwrite,
		Logger:    logger,
		Metrics:   importer.NewMetrics(registry),
	})

	if metricsFile != "" {
		if err := prometheus.WriteToTextfile(metricsFile, registry); err != nil {
			logger.Warn("writing metrics textfile failed", zap.String("path", metricsFile), zap.Error(err))
		}
	}

	if result != nil {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "Import complete.")
		fmt.Fprintf(out, "  Groups:             %d\n", result.Groups)
		fmt.Fprintf(out, "  Parameters created: %d\n", result.ParametersCreated)
		fmt.Fprintf(out, "  Codes resolved:     %d\n", result.CodesResolved)
		fmt.Fprintf(out, "  Codes missing:      %d\n", result.CodesMissing)
		for _, link := range result.Links {
			fmt.Fprintf(out, "  Linked %s -> %s (%d exchanges)\n", link.Activity, link.Group, link.Exchanges)
		}
	}
	return runErr
}

func loadTable(ctx context.Context, cfg *config.ProjectConfig, location string) (*table.Table, error) {
	s3opts := table.S3Options{
		Region:    cfg.Input.S3.Region,
		Endpoint:  cfg.Input.S3.Endpoint,
		PathStyle: cfg.Input.S3.PathStyle,
	}
	return table.Load(ctx, location, s3opts, table.Options{Delimiter: cfg.DelimiterRune()})
}
