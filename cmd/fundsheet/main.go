// Package main provides the CLI entry point for fundsheet.
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/javajack/fundsheet"
)

var (
	configPath   string
	sheetName    string
	noBackup     bool
	maxRows      int
	recalcOnOpen bool
	validateOnly bool
	describeOnly bool
	logLevel     string
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "fundsheet <spreadsheet> <input.json> <column>",
		Short: "Write financial fundamentals into a spreadsheet template",
		Long: `fundsheet writes the periods of a fundamentals JSON file into consecutive
columns of a spreadsheet (ODS or XLSX), oldest first, starting at <column>,
and recomputes the formulas of every column it writes.

The input file name selects the sheet, the statement and the period type:
<company>-<statement>-<period_type>[-<limit>].json`,
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          run,
	}

	rootCmd.Flags().StringVarP(&configPath, "config", "c", os.Getenv("FUNDSHEET_CONFIG"), "YAML layout overlaid on the built-in tables (env FUNDSHEET_CONFIG)")
	rootCmd.Flags().StringVar(&sheetName, "sheet", "", "Sheet name (default: company token of the input file name)")
	rootCmd.Flags().BoolVar(&noBackup, "no-backup", false, "Do not write <spreadsheet>.back before updating")
	rootCmd.Flags().IntVar(&maxRows, "max-rows", 0, "Rows scanned per column (default: max_rows of the config)")
	rootCmd.Flags().BoolVar(&recalcOnOpen, "recalc-on-open", false, "Ask the spreadsheet application to recalculate on open (xlsx only)")
	rootCmd.Flags().BoolVar(&validateOnly, "validate", false, "Check the template column and exit without writing")
	rootCmd.Flags().BoolVar(&describeOnly, "describe", false, "Print the template column and exit without writing")
	rootCmd.Flags().StringVar(&logLevel, "log-level", envOr("FUNDSHEET_LOG_LEVEL", "info"), "Log level: debug, info, warn, error (env FUNDSHEET_LOG_LEVEL)")

	if err := rootCmd.Execute(); err != nil {
		var evalErr *fundsheet.EvalError
		if errors.As(err, &evalErr) {
			fmt.Fprintf(os.Stderr, "error evaluating cell %s\n  formula: %s\n  cause: %v\n", evalErr.Coordinate, evalErr.Formula, evalErr.Err)
		} else {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	docPath, inputPath, column := args[0], args[1], strings.ToUpper(args[2])

	level, err := parseLevel(logLevel)
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})).
		With("run_id", uuid.NewString())
	slog.SetDefault(logger)

	if _, err := os.Stat(docPath); os.IsNotExist(err) {
		return fmt.Errorf("file not found: %s", docPath)
	}

	opts := []fundsheet.Option{
		fundsheet.WithListener(fundsheet.NewLogListener(logger)),
		fundsheet.WithBackup(!noBackup),
		fundsheet.WithMaxRows(maxRows),
		fundsheet.WithRecalculateOnOpen(recalcOnOpen),
	}
	if sheetName != "" {
		opts = append(opts, fundsheet.WithSheet(sheetName))
	}
	if configPath != "" {
		cfg, err := fundsheet.LoadConfig(configPath)
		if err != nil {
			return err
		}
		opts = append(opts, fundsheet.WithConfig(cfg))
	}

	switch {
	case describeOnly:
		out, err := fundsheet.DescribeFile(docPath, inputPath, column, opts...)
		if err != nil {
			return err
		}
		fmt.Print(out)
		return nil

	case validateOnly:
		issues, err := fundsheet.ValidateFile(docPath, inputPath, column, opts...)
		if err != nil {
			return err
		}
		failed := false
		for _, issue := range issues {
			fmt.Println(issue)
			failed = failed || issue.Severity == fundsheet.SeverityError
		}
		if failed {
			return fmt.Errorf("%d issue(s) found in %s", len(issues), docPath)
		}
		return nil
	}

	logger.Info("updating spreadsheet", "document", docPath, "input", inputPath, "column", column)
	report, err := fundsheet.Update(docPath, inputPath, column, opts...)
	if err != nil {
		return err
	}
	logger.Info("spreadsheet updated",
		"sheet", report.Sheet,
		"periods", report.Periods,
		"skipped", report.Skipped,
		"writes", report.Writes,
		"evaluations", report.Evaluations,
		"last_column", report.LastColumn)
	return nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return level, fmt.Errorf("invalid log level %q (must be debug, info, warn or error)", s)
	}
	return level, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
