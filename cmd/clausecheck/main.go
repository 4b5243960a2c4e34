// Command clausecheck classifies lease clauses in a spreadsheet and writes
// the summary table to a file.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dgallion1/clausecheck/internal/app"
	"github.com/dgallion1/clausecheck/internal/config"
	"github.com/dgallion1/clausecheck/internal/logging"
	"github.com/dgallion1/clausecheck/internal/pipeline"
	"github.com/dgallion1/clausecheck/internal/sheet"
)

type runOptions struct {
	output           string
	mode             string
	locationColumn   string
	clauseTypeColumn string
	clauseColumn     string
	keyword          string
	subject          string
	configPath       string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "clausecheck",
		Short:         "Classify lease clauses with an LLM",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRunCmd())
	return root
}

func newRunCmd() *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run <input>",
		Short: "Analyze a spreadsheet of lease clauses",
		Long: `run loads a table (.xlsx, .xlsm, .csv, .docx, .html), classifies each
row (mode rows) or each location group (mode groups), and writes the results.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			err := run(ctx, cmd, args[0], opts)
			if err != nil {
				if stage := pipeline.FailedStage(err); stage != "" {
					fmt.Fprintf(cmd.ErrOrStderr(), "clausecheck: %s failed: %v\n", stage, err)
				} else {
					fmt.Fprintf(cmd.ErrOrStderr(), "clausecheck: %v\n", err)
				}
			}
			return err
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.output, "output", "o", sheet.DefaultOutputName, "Output file (.xlsx or .csv)")
	f.StringVar(&opts.mode, "mode", "", "Processing mode: rows or groups")
	f.StringVar(&opts.locationColumn, "location-column", "", "Location column name")
	f.StringVar(&opts.clauseTypeColumn, "clause-type-column", "", "Clause type column name (groups mode)")
	f.StringVar(&opts.clauseColumn, "clause-column", "", "Clause text column name")
	f.StringVar(&opts.keyword, "keyword", "", "Only classify rows whose clause contains this keyword (rows mode)")
	f.StringVar(&opts.subject, "subject", "", "Product the prompts ask about")
	f.StringVar(&opts.configPath, "config", "", "YAML config file (default $CONFIG_PATH or clausecheck.yaml)")
	return cmd
}

func run(ctx context.Context, cmd *cobra.Command, input string, opts *runOptions) error {
	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return err
	}
	applyFlags(cmd, &cfg.Analysis, opts)

	log := logging.New(cmd.ErrOrStderr(), cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		return err
	}

	a, err := app.New(cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.Runner.Run(ctx, pipeline.FileSource{Path: input}, pipeline.FileSink(opts.output), a.Settings, nil)
	if err != nil {
		return err
	}

	report := res.Report
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d rows, %d output rows (%d skipped, %d calls, %d failed) -> %s\n",
		report.Mode, report.Rows, report.Emitted, report.Skipped, report.Calls, report.Failures, opts.output)
	return nil
}

func loadConfig(path string) (config.Config, error) {
	if path != "" {
		return config.LoadFile(path, true)
	}
	return config.Load()
}

// applyFlags overrides the analysis section with flags the user set.
func applyFlags(cmd *cobra.Command, a *config.Analysis, opts *runOptions) {
	set := func(name string, dst *string, v string) {
		if cmd.Flags().Changed(name) {
			*dst = v
		}
	}
	set("mode", &a.Mode, opts.mode)
	set("location-column", &a.LocationColumn, opts.locationColumn)
	set("clause-type-column", &a.ClauseTypeColumn, opts.clauseTypeColumn)
	set("clause-column", &a.ClauseColumn, opts.clauseColumn)
	set("keyword", &a.SearchKeyword, opts.keyword)
	set("subject", &a.Subject, opts.subject)
}
