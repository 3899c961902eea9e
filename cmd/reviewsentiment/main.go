//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// Copyright (C) 2025 Aaron Mathis aaron.mathis@gmail.com
//
// This file is part of ReviewSentiment.
//
// ReviewSentiment is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// ReviewSentiment is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with ReviewSentiment. If not, see https://www.gnu.org/licenses/.
//

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/aaronlmathis/reviewsentiment"
	"github.com/aaronlmathis/reviewsentiment/config"
	"github.com/aaronlmathis/reviewsentiment/logger"
	"github.com/aaronlmathis/reviewsentiment/metrics"
	"github.com/aaronlmathis/reviewsentiment/readers"
	"github.com/aaronlmathis/reviewsentiment/sentiment"
)

var version = "0.1.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configFile string

	root := &cobra.Command{
		Use:   "reviewsentiment",
		Short: "Score and label the sentiment of customer reviews",
		Long: `reviewsentiment fetches customer reviews from the marketing database, cleans the
review text, scores its polarity, labels each review Positive, Negative or Neutral and
saves the enriched table as a spreadsheet.

Without --config the built-in defaults are used.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Default()
			if configFile != "" {
				loaded, err := config.Load(configFile)
				if err != nil {
					return err
				}
				cfg = loaded
			}
			return run(cmd.Context(), cfg)
		},
	}
	root.Flags().StringVarP(&configFile, "config", "c", "", "Path to a YAML configuration file (optional)")

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			printVersion(cmd.OutOrStdout())
		},
	})

	return root
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "reviewsentiment v%s\n", version)
	fmt.Fprintf(w, "Go version: %s\n", runtime.Version())
	fmt.Fprintf(w, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
}

// run executes one batch with cfg.
func run(ctx context.Context, cfg config.Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	scorer, err := sentiment.NewScorer(cfg.Scorer)
	if err != nil {
		return err
	}

	loc, err := cfg.Output.Location(ctx)
	if err != nil {
		return err
	}

	collector := metrics.NewCollector()

	p, err := reviewsentiment.NewPipeline().
		From(reviewsentiment.SQLSource(
			readers.WithConnection(cfg.Source.ConnectionInfo),
			readers.WithQuery(cfg.Source.Query),
			readers.WithQueryTimeout(cfg.Source.QueryTimeout),
		)).
		Score(scorer).
		To(loc).
		WithTextColumn(cfg.Source.TextColumn).
		WithPreviewRows(cfg.PreviewRows).
		WithLogger(log).
		WithMetrics(collector).
		Build()
	if err != nil {
		return err
	}

	_, runErr := p.Execute(ctx)

	if cfg.Metrics.Pushgateway != "" {
		if err := collector.Push(ctx, cfg.Metrics.Pushgateway, cfg.Metrics.Job); err != nil {
			log.Warn("Failed to push metrics", zap.Error(err))
		}
	}
	return runErr
}
