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

package output

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aaronlmathis/reviewsentiment/core"
	"github.com/aaronlmathis/reviewsentiment/writers"
)

// Package output resolves where and in which format the enriched dataset is persisted.

// Format represents a supported sink format.
type Format string

const (
	FormatXLSX    Format = "xlsx"
	FormatCSV     Format = "csv"
	FormatParquet Format = "parquet"
)

// DefaultPath is the spreadsheet written when no path is configured.
const DefaultPath = "data/processed/sentiment_results.xlsx"

// Formats lists the accepted format names.
func Formats() []Format {
	return []Format{FormatXLSX, FormatCSV, FormatParquet}
}

// ResolveFormat returns explicit when set, otherwise the format implied by the
// extension of path.
func ResolveFormat(path string, explicit Format) (Format, error) {
	if explicit != "" {
		f := Format(strings.ToLower(string(explicit)))
		for _, known := range Formats() {
			if f == known {
				return f, nil
			}
		}
		return "", fmt.Errorf("unsupported output format %q", explicit)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return FormatXLSX, nil
	case ".csv":
		return FormatCSV, nil
	case ".parquet":
		return FormatParquet, nil
	default:
		return "", fmt.Errorf("cannot infer output format from %q", path)
	}
}

// ContentType returns the MIME type of files written in format f.
func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv"
	case FormatParquet:
		return "application/vnd.apache.parquet"
	default:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
}

// Location creates a DataSink for the given column order.
type Location interface {
	NewSink(ctx context.Context, headers []string) (core.DataSink, error)
	String() string
}

// FileLocation writes output to a local filesystem path. An existing file is
// overwritten.
type FileLocation struct {
	Path   string
	Format Format // Inferred from Path when empty
	Sheet  string // XLSX worksheet name
}

// NewSink creates the destination file and a writer for it. Nothing is created on
// disk until NewSink is called, and an aborted sink removes the partial file.
func (f FileLocation) NewSink(_ context.Context, headers []string) (core.DataSink, error) {
	format, err := ResolveFormat(f.Path, f.Format)
	if err != nil {
		return nil, err
	}

	if dir := filepath.Dir(f.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create output directory: %w", err)
		}
	}

	file, err := os.Create(f.Path)
	if err != nil {
		return nil, fmt.Errorf("create output file: %w", err)
	}

	opts := []writers.WriterOption{writers.WithHeaders(headers)}
	var sink core.AbortableSink
	switch format {
	case FormatCSV:
		sink, err = writers.NewCSVWriter(file, opts...)
	case FormatParquet:
		sink, err = writers.NewParquetWriter(file, opts...)
	default:
		if f.Sheet != "" {
			opts = append(opts, writers.WithSheet(f.Sheet))
		}
		sink, err = writers.NewXLSXWriter(file, opts...)
	}
	if err != nil {
		file.Close()
		os.Remove(f.Path)
		return nil, err
	}
	return &fileSink{AbortableSink: sink, path: f.Path}, nil
}

func (f FileLocation) String() string {
	return f.Path
}

type fileSink struct {
	core.AbortableSink
	path string
}

// Abort discards the writer and deletes the partial file.
func (f *fileSink) Abort() error {
	err := f.AbortableSink.Abort()
	if rmErr := os.Remove(f.path); rmErr != nil && !os.IsNotExist(rmErr) && err == nil {
		err = rmErr
	}
	return err
}

// Abort discards sink's output when it supports it and closes it otherwise.
func Abort(sink core.DataSink) error {
	if a, ok := sink.(core.AbortableSink); ok {
		return a.Abort()
	}
	return sink.Close()
}
