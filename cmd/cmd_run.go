// Copyright 2025 The MapAudit Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/mapaudit/mapaudit/analysis"
	"github.com/mapaudit/mapaudit/config"
	"github.com/mapaudit/mapaudit/report"
	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var runOptions struct {
	JSON        bool
	JSONOut     string
	Serve       bool
	Parallelism int
	Concurrency int
}

// progress draws one bar per analysis on stderr.
type progress struct {
	mu   sync.Mutex
	bars map[string]*progressbar.ProgressBar
}

func (p *progress) update(name string, done, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	bar, ok := p.bars[name]
	if !ok {
		bar = progressbar.NewOptions(total,
			progressbar.OptionSetDescription("Correlating "+name),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
		p.bars[name] = bar
	}

	_ = bar.Set(done)
}

// selectAnalyses returns the named analyses, all of them when none is.
func selectAnalyses(names []string) ([]*analysis.Definition, error) {
	if len(names) == 0 {
		if len(cfg.Analyses) == 0 {
			return nil, fmt.Errorf("no analyses configured")
		}

		return cfg.Analyses, nil
	}

	defs := make([]*analysis.Definition, 0, len(names))

	for _, name := range names {
		def, err := cfg.Analysis(name)
		if err != nil {
			return nil, err
		}

		defs = append(defs, def)
	}

	return defs, nil
}

func writeReports(reports []*report.Report) error {
	if runOptions.JSONOut != "" {
		f, err := os.Create(runOptions.JSONOut)
		if err != nil {
			return fmt.Errorf("creating %s: %w", runOptions.JSONOut, err)
		}
		defer f.Close()

		if err := report.WriteJSON(f, reports...); err != nil {
			return fmt.Errorf("writing %s: %w", runOptions.JSONOut, err)
		}
	}

	if runOptions.JSON {
		return report.WriteJSON(os.Stdout, reports...)
	}

	return report.WriteText(os.Stdout, reports...)
}

var runCmd = &cobra.Command{
	Use:   "run [analysis...]",
	Short: "Runs the configured analyses, all of them when none is named",
	RunE: func(_ *cobra.Command, args []string) error {
		defs, err := selectAnalyses(args)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		fetcher, err := newFetcher()
		if err != nil {
			return err
		}

		resolver, err := newResolver(ctx, db)
		if err != nil {
			return err
		}

		metrics := report.NewMetrics()
		runner := &analysis.Runner{
			Sources:     analysis.Catalog(fetcher),
			Resolver:    resolver,
			Metrics:     metrics,
			Parallelism: runOptions.Parallelism,
			Concurrency: runOptions.Concurrency,
		}

		if err := withSnapshot(ctx, db, runner); err != nil {
			return err
		}

		if isatty.IsTerminal(os.Stderr.Fd()) {
			// bars of concurrent runs would overwrite each other
			runner.Concurrency = 1
			runner.Progress = (&progress{bars: map[string]*progressbar.ProgressBar{}}).update
		}

		reports, runErr := runner.RunAll(ctx, defs)
		if err := writeReports(reports); err != nil {
			return err
		}

		if runErr != nil {
			return runErr
		}

		if !runOptions.Serve {
			return nil
		}

		fmt.Fprintf(os.Stderr, "Serving reports on http://%s\n", cfg.Server.Addr)

		return report.NewServer(report.NewStore(reports...), metrics).Run(ctx, cfg.Server.Addr)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	flags := runCmd.Flags()
	flags.BoolVar(&runOptions.JSON, "json", false, "print the reports as JSON")
	flags.StringVar(&runOptions.JSONOut, "json-out", "", "also write the reports as JSON to this file, see 'serve'")
	flags.BoolVar(&runOptions.Serve, "serve", false, "keep serving the reports over HTTP once done")
	flags.IntVar(&runOptions.Parallelism, "parallelism", 4, "concurrent candidate lookups within an analysis")
	flags.IntVar(&runOptions.Concurrency, "concurrency", 0, "analyses run at once, all when 0")
	flags.String("locator", config.LocatorMemory, "where candidates are looked up: memory or sql")
	_ = config.Viper().BindPFlag("features.locator", flags.Lookup("locator"))
}
