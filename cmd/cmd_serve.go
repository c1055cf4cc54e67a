// Copyright 2025 The MapAudit Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mapaudit/mapaudit/config"
	"github.com/mapaudit/mapaudit/report"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve <reports.json>",
	Short: "Serves reports written by 'run --json-out'",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("opening reports: %w", err)
		}

		reports, err := report.ReadJSON(f)
		f.Close()

		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		fmt.Fprintf(os.Stderr, "Serving %d reports on http://%s\n", len(reports), cfg.Server.Addr)

		return report.NewServer(report.NewStore(reports...), report.NewMetrics()).Run(ctx, cfg.Server.Addr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "localhost:8080", "address to listen on")
	_ = config.Viper().BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
}
