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

// Package config loads the run configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/aaronlmathis/reviewsentiment/logger"
	"github.com/aaronlmathis/reviewsentiment/metrics"
	"github.com/aaronlmathis/reviewsentiment/output"
	"github.com/aaronlmathis/reviewsentiment/readers"
	"github.com/aaronlmathis/reviewsentiment/sentiment"
)

// Defaults of the built-in run.
const (
	DefaultHost        = `THUSI\SQLEXPRESS`
	DefaultDatabase    = "MarketingAnalytics"
	DefaultQuery       = "SELECT * FROM dbo.customer_reviews"
	DefaultTextColumn  = "ReviewText"
	DefaultPreviewRows = 5
)

// SourceConfig describes the review table to read.
type SourceConfig struct {
	readers.ConnectionInfo `yaml:",inline"`
	Query                  string        `yaml:"query"`
	TextColumn             string        `yaml:"text_column"`
	QueryTimeout           time.Duration `yaml:"query_timeout"`
}

// Config is the complete run configuration.
type Config struct {
	Source      SourceConfig     `yaml:"source"`
	Scorer      sentiment.Config `yaml:"scorer"`
	Output      output.Config    `yaml:"output"`
	Log         logger.Config    `yaml:"log"`
	Metrics     metrics.Config   `yaml:"metrics"`
	PreviewRows int              `yaml:"preview_rows"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Source: SourceConfig{
			ConnectionInfo: readers.ConnectionInfo{
				Driver:   readers.DriverSQLServer,
				Host:     DefaultHost,
				Database: DefaultDatabase,
				Auth:     readers.AuthTrusted,
			},
			Query:      DefaultQuery,
			TextColumn: DefaultTextColumn,
		},
		Scorer:      sentiment.Config{Backend: sentiment.BackendVader},
		Output:      output.Config{Path: output.DefaultPath},
		Log:         logger.DefaultConfig(),
		Metrics:     metrics.Config{Job: metrics.DefaultJob},
		PreviewRows: DefaultPreviewRows,
	}
}

// Load reads a YAML file over the defaults. Keys absent from the file keep their
// default values. ${VAR} references are replaced with environment values first.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML content over the defaults. Unknown keys are rejected and an
// empty document yields the defaults.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	content := substituteEnvVars(string(data))

	dec := yaml.NewDecoder(strings.NewReader(content))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	src := c.Source
	if !slices.Contains(readers.SupportedDrivers(), src.Driver) {
		return fmt.Errorf("source.driver: unsupported driver %q", src.Driver)
	}
	if src.RawDSN == "" {
		switch src.Auth {
		case "", readers.AuthTrusted:
		case readers.AuthSQL:
			if src.User == "" {
				return fmt.Errorf("source.user: required for sql authentication")
			}
		default:
			return fmt.Errorf("source.auth: unknown mode %q", src.Auth)
		}
		if src.Database == "" {
			return fmt.Errorf("source.database: required")
		}
	}
	if strings.TrimSpace(src.Query) == "" {
		return fmt.Errorf("source.query: required")
	}
	if src.TextColumn == "" {
		return fmt.Errorf("source.text_column: required")
	}
	if src.QueryTimeout < 0 {
		return fmt.Errorf("source.query_timeout: must not be negative")
	}

	if c.Scorer.Backend != "" && !slices.Contains(sentiment.Backends(), c.Scorer.Backend) {
		return fmt.Errorf("scorer.backend: unknown backend %q", c.Scorer.Backend)
	}
	if c.Scorer.Backend == sentiment.BackendHTTP && c.Scorer.Endpoint == "" {
		return fmt.Errorf("scorer.endpoint: required for the http backend")
	}

	if err := c.Output.Validate(); err != nil {
		return fmt.Errorf("output: %w", err)
	}
	if err := c.Log.Validate(); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	if c.PreviewRows < 0 {
		return fmt.Errorf("preview_rows: must not be negative")
	}
	return nil
}

// substituteEnvVars replaces ${VAR_NAME} with environment variable values
func substituteEnvVars(content string) string {
	var b strings.Builder
	for {
		start := strings.Index(content, "${")
		if start == -1 {
			break
		}
		end := strings.Index(content[start:], "}")
		if end == -1 {
			break
		}
		end += start

		b.WriteString(content[:start])
		b.WriteString(os.Getenv(content[start+2 : end]))
		content = content[end+1:]
	}
	b.WriteString(content)
	return b.String()
}
