package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/joshharrison/critpath/internal/claude"
	"github.com/joshharrison/critpath/internal/config"
	"github.com/joshharrison/critpath/internal/cpm"
	"github.com/joshharrison/critpath/internal/dot"
	"github.com/joshharrison/critpath/internal/graph"
	"github.com/joshharrison/critpath/internal/logging"
	"github.com/joshharrison/critpath/internal/plan"
	"github.com/joshharrison/critpath/internal/render"
	"github.com/joshharrison/critpath/internal/reporter"
	"github.com/joshharrison/critpath/internal/ui"
)

var (
	flagConfig    string
	flagLogLevel  string
	flagLogFormat string
	flagNoColor   bool
	flagDelimiter string
	flagTitle     string
	flagInput     string
	flagJSON      bool
	flagOutputDir string
	flagFormat    string
	flagDotBin    string
	flagRankDir   string
	flagModel     string
	flagOutput    string
	flagFromFile  string
)

// Effective settings, resolved before any subcommand runs.
var (
	cfg    *config.Config
	logger = logging.Discard()
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		reportError(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "critpath",
		Short: "Compute critical path schedules and precedence diagrams",
		Long: `critpath reads a task list (id, description, duration, predecessors),
runs the critical path method over it and reports earliest/latest start and
finish, total and free float, and the critical path. It can also emit the
precedence network as Graphviz DOT or render it to an image.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: setup,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file (default: global config, then ./"+config.FileName+")")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&flagLogFormat, "log-format", "", "Log format: text, json, logfmt")
	rootCmd.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().StringVar(&flagDelimiter, "delimiter", "", "CSV field delimiter (default ';')")
	rootCmd.PersistentFlags().StringVar(&flagTitle, "title", "", "Schedule title (default: input file name)")

	rootCmd.AddCommand(scheduleCmd())
	rootCmd.AddCommand(dotCmd())
	rootCmd.AddCommand(renderCmd())
	rootCmd.AddCommand(inferDepsCmd())
	rootCmd.AddCommand(configCmd())

	return rootCmd
}

// setup loads the configuration, applies flag overrides and builds the logger.
func setup(cmd *cobra.Command, args []string) error {
	var err error
	if flagConfig != "" {
		cfg, err = config.LoadFile(flagConfig)
	} else {
		wd, wdErr := os.Getwd()
		if wdErr != nil {
			return wdErr
		}
		cfg, err = config.NewLoader(wd).Load()
	}
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Flags given explicitly win over every config file.
	overrides := map[string]*string{
		"log-level":  &cfg.LogLevel,
		"log-format": &cfg.LogFormat,
		"delimiter":  &cfg.Delimiter,
		"output-dir": &cfg.OutputDir,
		"format":     &cfg.Format,
		"dot-bin":    &cfg.DotBin,
		"rankdir":    &cfg.RankDir,
		"model":      &cfg.Model,
	}
	for name, dst := range overrides {
		if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
			*dst = f.Value.String()
		}
	}

	if flagNoColor || os.Getenv("NO_COLOR") != "" {
		ui.SetNoColor(true)
	}

	logger, err = logging.New(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	logger.Debug("configuration resolved", "format", cfg.Format, "dot_bin", cfg.DotBin, "rankdir", cfg.RankDir)
	return nil
}

// loadPlan reads the task list named by --input.
func loadPlan() (*plan.File, error) {
	if flagInput == "" {
		return nil, fmt.Errorf("no input file given (use --input)")
	}
	delim, err := cfg.DelimiterRune()
	if err != nil {
		return nil, err
	}
	f, err := plan.Load(flagInput, plan.Options{Delimiter: delim, Title: flagTitle})
	if err != nil {
		return nil, err
	}
	logger.Debug("read task list", "path", flagInput, "title", f.Title, "records", len(f.Records))
	return f, nil
}

// buildSchedule is shared logic for schedule, dot and render.
func buildSchedule() (*graph.Schedule, *cpm.CPMResult, error) {
	f, err := loadPlan()
	if err != nil {
		return nil, nil, err
	}

	s, err := graph.Build(f.Title, f.Records)
	if err != nil {
		return nil, nil, err
	}
	logger.Debug("built task graph", "tasks", s.TaskCount())

	result, err := cpm.Analyze(s)
	if err != nil {
		return nil, nil, err
	}
	logger.Debug("scheduled", "project_duration", result.ProjectDuration, "critical", len(result.CriticalTasks))

	return s, result, nil
}

func addInputFlag(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&flagInput, "input", "i", "", "Task list file (.csv, .txt, .json, .yaml)")
	_ = cmd.MarkFlagRequired("input")
}

func scheduleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Print the CPM schedule of a task list",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, result, err := buildSchedule()
			if err != nil {
				return err
			}

			rpt := reporter.New(s, result)
			if flagJSON {
				data, err := rpt.JSON()
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			}
			return rpt.PrintSchedule(cmd.OutOrStdout())
		},
	}

	addInputFlag(cmd)
	cmd.Flags().BoolVar(&flagJSON, "json", false, "Machine-readable JSON output")

	return cmd
}

func dotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dot",
		Short: "Print the precedence network as Graphviz DOT",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, result, err := buildSchedule()
			if err != nil {
				return err
			}
			return dot.Write(cmd.OutOrStdout(), s, result, dot.Options{RankDir: cfg.RankDir})
		},
	}

	addInputFlag(cmd)
	cmd.Flags().StringVar(&flagRankDir, "rankdir", "", "Graph direction: LR, RL, TB, BT")

	return cmd
}

func renderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render the precedence network to <output-dir>/<title>.<format>",
		Long: `Render the scheduled precedence network with Graphviz.
Formats: ` + strings.Join(render.Formats(), ", ") + `. The dot format writes the
description itself and does not need Graphviz installed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := render.ValidateFormat(cfg.Format)
			if err != nil {
				return err
			}

			s, result, err := buildSchedule()
			if err != nil {
				return err
			}

			desc, err := dot.Marshal(s, result, dot.Options{RankDir: cfg.RankDir})
			if err != nil {
				return err
			}

			client := render.NewClient(cfg.DotBin)
			if format != render.FormatDOT {
				if v, err := client.Version(cmd.Context()); err == nil {
					logger.Debug("graphviz", "version", v)
				} else {
					logger.Debug("graphviz version unavailable", "err", err)
				}
			}
			logger.Debug("invoking renderer", "bin", client.DotBin, "format", format, "output_dir", cfg.OutputDir)
			path, err := client.WriteFile(cmd.Context(), desc, cfg.OutputDir, s.Title, format)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s\n",
				ui.Green("✓"), ui.Bold(path), ui.Dim(fmt.Sprintf("(project duration %d)", result.ProjectDuration)))
			return nil
		},
	}

	addInputFlag(cmd)
	cmd.Flags().StringVarP(&flagOutputDir, "output-dir", "o", "", "Output directory (default '.')")
	cmd.Flags().StringVarP(&flagFormat, "format", "f", "", "Output format (default png)")
	cmd.Flags().StringVar(&flagDotBin, "dot-bin", "", "Graphviz dot binary (default 'dot')")
	cmd.Flags().StringVar(&flagRankDir, "rankdir", "", "Graph direction: LR, RL, TB, BT")

	return cmd
}

func inferDepsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "infer-deps",
		Short: "Use Claude to infer task predecessors from descriptions",
		Long: `Sends task ids, descriptions and durations to Claude and infers which
tasks must precede which. Existing predecessors are kept. The completed task
list is printed as CSV, or written to --output.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			errOut := cmd.ErrOrStderr()

			f, err := loadPlan()
			if err != nil {
				return err
			}
			if err := claude.ValidatePredecessors(f.Records); err != nil {
				return err
			}

			var result *claude.InferDepsResult
			if flagFromFile != "" {
				data, err := os.ReadFile(flagFromFile)
				if err != nil {
					return fmt.Errorf("read from-file: %w", err)
				}
				result, err = claude.ParseResult(data)
				if err != nil {
					return fmt.Errorf("parse from-file: %w", err)
				}
				fmt.Fprintf(errOut, "📂 Loaded %s edges from %s\n", ui.Bold(len(result.Edges)), ui.Dim(flagFromFile))
			} else {
				summaries := claude.Summaries(f.Records)
				fmt.Fprintf(errOut, "🔍 Sending %s tasks to Claude for predecessor inference...\n", ui.Bold(len(summaries)))

				client, err := claude.NewClient("", cfg.Model)
				if err != nil {
					return err
				}
				result, err = client.InferDeps(cmd.Context(), summaries)
				if err != nil {
					return fmt.Errorf("infer deps: %w", err)
				}
			}

			accepted, skipped := claude.FilterEdges(f.Records, result.Edges)
			for _, s := range skipped {
				logger.Warn("skipping inferred edge", "task", s.Edge.TaskID, "predecessor", s.Edge.PredecessorID, "reason", s.Reason)
			}
			fmt.Fprintf(errOut, "🔗 Inferred %s predecessors (%d from Claude, %d after validation)\n",
				ui.Bold(len(accepted)), len(result.Edges), len(accepted))
			for _, e := range accepted {
				fmt.Fprintf(errOut, "  %s %s after %s  %s\n", ui.Cyan("→"), ui.BoldMagenta(e.TaskID), ui.BoldMagenta(e.PredecessorID), ui.Dim(e.Reason))
			}
			if result.Summary != "" {
				fmt.Fprintf(errOut, "💡 %s %s\n", ui.BoldWhite("Summary:"), result.Summary)
			}

			records := claude.ApplyEdges(f.Records, accepted)
			if _, err := graph.Build(f.Title, records); err != nil {
				logger.Warn("completed task list is not schedulable yet", "err", err)
			}

			delim, err := cfg.DelimiterRune()
			if err != nil {
				return err
			}

			var w io.Writer = cmd.OutOrStdout()
			if flagOutput != "" {
				out, err := os.Create(flagOutput)
				if err != nil {
					return err
				}
				defer out.Close()
				w = out
			}
			if err := plan.WriteCSV(w, records, delim); err != nil {
				return err
			}
			if flagOutput != "" {
				fmt.Fprintf(errOut, "Wrote %d tasks to %s\n", len(records), flagOutput)
			}
			return nil
		},
	}

	addInputFlag(cmd)
	cmd.Flags().StringVar(&flagModel, "model", "", "Claude model to use (default "+claude.DefaultModel+")")
	cmd.Flags().StringVar(&flagOutput, "output", "", "Write the completed CSV to this file")
	cmd.Flags().StringVar(&flagFromFile, "from-file", "", "Load a saved Claude response instead of calling the API")

	return cmd
}

func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as TOML",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := cfg.Marshal()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}

// reportError prints err in red. Joined validation errors get one line each.
func reportError(w io.Writer, err error) {
	if errors.Is(err, cpm.ErrInvariant) {
		ui.PrintError(w, "bug", err)
		return
	}

	var inputErr *plan.InputError
	if joined, ok := err.(interface{ Unwrap() []error }); ok && !errors.As(err, &inputErr) {
		errs := joined.Unwrap()
		fmt.Fprintf(w, "%s\n", ui.BoldRed(fmt.Sprintf("%d problems in task list:", len(errs))))
		for _, e := range errs {
			ui.PrintError(w, "error", e)
		}
		return
	}
	ui.PrintError(w, "error", err)
}
