// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/CarSurvey/cmd/carsurvey/config"
	"github.com/AleutianAI/CarSurvey/pkg/logging"
	"github.com/AleutianAI/CarSurvey/services/survey"
	"github.com/AleutianAI/CarSurvey/services/survey/datatypes"
	"github.com/AleutianAI/CarSurvey/services/survey/form"
	"github.com/AleutianAI/CarSurvey/services/survey/tui"
)

// isTerminal reports whether fd is an interactive terminal.
var isTerminal = func(fd uintptr) bool {
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// rootOptions holds the persistent flags.
type rootOptions struct {
	configPath string
	logLevel   string
}

// load reads the config file and applies flag overrides.
func (o *rootOptions) load() (config.CarSurveyConfig, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return cfg, &ExitError{Code: CLIExitError, Err: err}
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	return cfg, nil
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "carsurvey",
		Short: "Car preference survey with cross-field constraints",
		Long: `carsurvey hosts the car survey form: brands, colors and transmission,
kept consistent by a small rule engine and submitted through a simulated save.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to a carsurvey YAML config")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override the configured log level")

	root.AddCommand(
		newServeCmd(opts),
		newTUICmd(opts),
		newCheckCmd(),
		newCatalogCmd(),
	)
	return root
}

// =============================================================================
// serve
// =============================================================================

func newServeCmd(opts *rootOptions) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the survey HTTP service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}

			logger, closeLog, err := logging.New(cfg.Log)
			if err != nil {
				return &ExitError{Code: CLIExitError, Err: err}
			}
			defer closeLog()
			slog.SetDefault(logger)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			svc, err := survey.New(cfg.ServiceConfig(), logger)
			if err != nil {
				return &ExitError{Code: CLIExitError, Err: err}
			}
			return svc.Run(ctx)
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (overrides config)")
	return cmd
}

// =============================================================================
// tui
// =============================================================================

func newTUICmd(opts *rootOptions) *cobra.Command {
	var latency time.Duration

	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Fill in the survey interactively in the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !isTerminal(os.Stdin.Fd()) || !isTerminal(os.Stdout.Fd()) {
				return &ExitError{Code: CLIExitError, Err: errors.New("tui requires an interactive terminal")}
			}

			cfg, err := opts.load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("save-latency") {
				cfg.Submit.SaveLatency = latency
			}

			// Console logging would tear the screen; only the log file stays.
			logCfg := cfg.Log
			logCfg.Quiet = true
			logger, closeLog, err := logging.New(logCfg)
			if err != nil {
				return &ExitError{Code: CLIExitError, Err: err}
			}
			defer closeLog()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			ctrl := form.NewController(form.Options{
				Saver:  form.DelaySaver{Latency: cfg.Submit.SaveLatency},
				Logger: logger,
			})
			return tui.Run(ctx, ctrl)
		},
	}
	cmd.Flags().DurationVar(&latency, "save-latency", form.DefaultSaveLatency, "simulated save delay")
	return cmd
}

// =============================================================================
// catalog
// =============================================================================

func newCatalogCmd() *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Print the selectable brands, colors and transmissions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			start := time.Now()
			catalogs := datatypes.AllCatalogs()
			out := cmd.OutOrStdout()

			if jsonOut {
				return writeResult(out, "catalog", start, catalogs, true)
			}
			printCatalogs(out, catalogs)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output as JSON")
	return cmd
}

func printCatalogs(w io.Writer, c datatypes.Catalogs) {
	transmissions := make([]string, 0, len(c.Transmissions))
	for _, t := range c.Transmissions {
		transmissions = append(transmissions, t.String())
	}
	fmt.Fprintf(w, "Brands:        %s\n", strings.Join(c.Brands, ", "))
	fmt.Fprintf(w, "Colors:        %s\n", strings.Join(c.Colors, ", "))
	fmt.Fprintf(w, "Transmissions: %s\n", strings.Join(transmissions, ", "))
}
