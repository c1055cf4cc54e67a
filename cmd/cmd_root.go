// Copyright 2025 The MapAudit Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"os"

	"github.com/mapaudit/mapaudit/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configFile string
	cfg        *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "mapaudit",
	Short: "audit OpenStreetMap against third-party listings",
	Long: `
mapaudit compares the features of an OpenStreetMap extract against external
listings (operator websites, open data portals, store locators) and reports
what is missing, misplaced or inconsistent on either side.
`,
	SilenceUsage: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		var err error

		cfg, err = config.Load(configFile)
		if err != nil {
			return err
		}

		if err := config.InitLogger(cfg.Log); err != nil {
			return err
		}

		return cfg.RegisterSources()
	},
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		_ = zap.L().Sync()
	},
}

var Version = "dev"

func userAgent() string {
	return fmt.Sprintf("%s mapaudit/%s", cfg.HTTP.UserAgent, Version)
}

func Execute(version string) {
	Version = version

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "configuration file (default is ./mapaudit.yaml or $HOME/.mapaudit/mapaudit.yaml)")
	flags.String("db-path", "db", "directory holding the database and the download cache")
	flags.String("log-level", "info", "log level: debug, info, warn or error")

	v := config.Viper()
	_ = v.BindPFlag("db_path", flags.Lookup("db-path"))
	_ = v.BindPFlag("log.level", flags.Lookup("log-level"))
}
