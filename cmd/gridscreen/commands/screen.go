package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Sumatoshi-tech/gridscreen/pkg/config"
	"github.com/Sumatoshi-tech/gridscreen/pkg/observability"
	"github.com/Sumatoshi-tech/gridscreen/pkg/report"
	"github.com/Sumatoshi-tech/gridscreen/pkg/screening"
	"github.com/Sumatoshi-tech/gridscreen/pkg/series"
)

const screenedSuffix = ".screened.csv"

const outputDirPerm = 0o750

// ScreenCommand holds the state of one screen invocation.
type ScreenCommand struct {
	initObs  observabilityInit
	showZero bool
	bindings map[string]string
}

func newScreenCommand(initObs observabilityInit) *cobra.Command {
	sc := &ScreenCommand{initObs: initObs}

	cmd := &cobra.Command{
		Use:   "screen <file.csv>...",
		Short: "Screen CSV series files and write labeled copies",
		Long: `Screen each CSV series file and write <name>.screened.csv next to it (or
into --output-dir). Every value a filter rejects is emptied and its category
column names the filter. A summary per file is printed in the chosen format.

Files ending in .lz4 are read and written LZ4-compressed.`,
		Args: cobra.MinimumNArgs(1),
		RunE: sc.run,
	}

	flags := cmd.Flags()
	sc.bindings = screeningBindings(flags)

	flags.String("timestamp-column", config.DefaultTimestampColumn, "Timestamp column name")
	flags.String("value-column", config.DefaultValueColumn, "Demand value column name")
	flags.String("category-column", config.DefaultCategoryColumn, "Category column name")
	flags.String("time-layout", config.DefaultTimeLayout, "Go time layout of the timestamp column")
	flags.String("delimiter", config.DefaultDelimiter, "CSV field delimiter")
	flags.Bool("fill-gaps", config.DefaultFillGaps, "Insert missing samples for absent hours before screening")
	flags.StringP("output-dir", "o", config.DefaultOutputDir, "Directory for screened files (default: next to each input)")
	flags.StringP("format", "f", config.DefaultOutputFormat, "Summary format: table, json, yaml")
	flags.Bool("with-derived", config.DefaultWithDerived, "Write the derived statistics as extra columns")
	flags.Bool("compress", config.DefaultCompress, "Write LZ4-compressed output files")
	flags.Bool("no-color", config.DefaultNoColor, "Disable colored table output")
	flags.IntP("workers", "w", config.DefaultBatchWorkers, "Files screened in parallel (0 = use CPU count)")
	flags.BoolVar(&sc.showZero, "show-zero", false, "List categories with no samples in the table")

	maps.Copy(sc.bindings, map[string]string{
		"timestamp-column": "input.timestamp_column",
		"value-column":     "input.value_column",
		"category-column":  "input.category_column",
		"time-layout":      "input.time_layout",
		"delimiter":        "input.delimiter",
		"fill-gaps":        "input.fill_gaps",
		"output-dir":       "output.dir",
		"format":           "output.format",
		"with-derived":     "output.with_derived",
		"compress":         "output.compress",
		"no-color":         "output.no_color",
		"workers":          "batch.workers",
	})

	return cmd
}

func (sc *ScreenCommand) run(cmd *cobra.Command, args []string) (err error) {
	cfg, err := loadConfig(cmd, sc.bindings)
	if err != nil {
		return err
	}

	providers, err := sc.initObs(cfg, observability.ModeCLI, cmd.ErrOrStderr())
	if err != nil {
		return fmt.Errorf("init observability: %w", err)
	}

	defer func() {
		err = errors.Join(err, providers.Shutdown(context.WithoutCancel(cmd.Context())))
	}()

	sm, err := observability.NewScreeningMetrics(providers.Meter)
	if err != nil {
		return err
	}

	screener, err := screening.NewScreener(cfg.Screening,
		screening.WithLogger(providers.Logger),
		screening.WithTracer(providers.Tracer),
		screening.WithRecorder(sm),
	)
	if err != nil {
		return err
	}

	b := batch{cfg: cfg, screener: screener, logger: providers.Logger}

	summaries, err := b.screenFiles(cmd.Context(), args)
	if err != nil {
		return err
	}

	return report.Render(cmd.OutOrStdout(), cfg.Output.Format, summaries, report.Options{
		NoColor:  cfg.Output.NoColor,
		ShowZero: sc.showZero,
	})
}

// batch screens a set of files with a shared screener.
type batch struct {
	cfg      *config.Config
	screener *screening.Screener
	logger   *slog.Logger
}

// screenFiles screens paths concurrently and returns their summaries in
// argument order. The first failure cancels the files not yet started.
func (b batch) screenFiles(ctx context.Context, paths []string) ([]report.Summary, error) {
	workers := b.cfg.Batch.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	summaries := make([]report.Summary, len(paths))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(workers)

	for i, path := range paths {
		group.Go(func() error {
			err := groupCtx.Err()
			if err != nil {
				return err
			}

			sum, err := b.screenFile(groupCtx, path)
			if err != nil {
				return err
			}

			summaries[i] = sum

			return nil
		})
	}

	err := group.Wait()
	if err != nil {
		return nil, err
	}

	return summaries, nil
}

func (b batch) screenFile(ctx context.Context, path string) (report.Summary, error) {
	opts := b.cfg.Input.CSVOptions()

	in, err := series.ReadFile(path, opts)
	if err != nil {
		return report.Summary{}, err
	}

	ctx = observability.ContextWithSeries(ctx, in.Name)

	if b.cfg.Input.FillGaps {
		filled, stats, regErr := series.Regularize(in)
		if regErr != nil {
			return report.Summary{}, fmt.Errorf("regularize %s: %w", path, regErr)
		}

		if stats.Inserted > 0 || stats.Duplicates > 0 {
			b.logger.InfoContext(ctx, "series regularized",
				"inserted", stats.Inserted, "duplicates", stats.Duplicates)
		}

		in = filled
	}

	err = series.Validate(in)
	if err != nil {
		return report.Summary{}, fmt.Errorf("%s: %w", path, err)
	}

	res := b.screener.Screen(ctx, in)

	var extra []series.Column
	if b.cfg.Output.WithDerived {
		extra = res.Derived.Columns()
	}

	out, err := outputPath(path, b.cfg.Output)
	if err != nil {
		return report.Summary{}, err
	}

	err = series.WriteFile(out, res.Series, opts, extra...)
	if err != nil {
		return report.Summary{}, fmt.Errorf("write %s: %w", out, err)
	}

	b.logger.DebugContext(ctx, "screened file written", "input", path, "output", out)

	return report.Summarize(in.Name, res), nil
}

// outputPath names the screened copy of input, creating the output directory
// when one is configured.
func outputPath(input string, cfg config.OutputConfig) (string, error) {
	dir := cfg.Dir
	if dir == "" {
		dir = filepath.Dir(input)
	} else {
		err := os.MkdirAll(dir, outputDirPerm)
		if err != nil {
			return "", fmt.Errorf("create output dir: %w", err)
		}
	}

	name := series.BaseName(input) + screenedSuffix
	if cfg.Compress {
		name += series.CompressedSuffix
	}

	return filepath.Join(dir, name), nil
}
