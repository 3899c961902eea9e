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

package writers

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/aaronlmathis/reviewsentiment/core"
)

// Package writers provides core.DataSink implementations that persist the enriched dataset.
//
// This file contains the options and value formatting shared by the spreadsheet and CSV writers.

// WriterError wraps sink-specific write errors with context.
type WriterError struct {
	Format string // "xlsx", "csv" or "parquet"
	Op     string
	Err    error
}

func (e *WriterError) Error() string {
	return fmt.Sprintf("%s writer %s: %v", e.Format, e.Op, e.Err)
}

func (e *WriterError) Unwrap() error {
	return e.Err
}

// WriterStats holds write statistics.
type WriterStats struct {
	RecordsWritten  int64
	NullValueCounts map[string]int64
	SaveDuration    time.Duration
}

// WriterOptions configures either writer.
type WriterOptions struct {
	Headers     []string // Column order; defaults to the sorted keys of the first record
	WriteHeader bool
	Sheet       string // XLSX only
	Comma       rune   // CSV only
	UseCRLF     bool   // CSV only
	BatchSize   int    // Parquet only
}

// WriterOption is a functional option.
type WriterOption func(*WriterOptions)

// WithHeaders fixes the column order.
func WithHeaders(headers []string) WriterOption {
	return func(opts *WriterOptions) {
		opts.Headers = append([]string(nil), headers...)
	}
}

// WithWriteHeader toggles the header row.
func WithWriteHeader(write bool) WriterOption {
	return func(opts *WriterOptions) {
		opts.WriteHeader = write
	}
}

// WithSheet sets the worksheet name for XLSX output.
func WithSheet(name string) WriterOption {
	return func(opts *WriterOptions) {
		opts.Sheet = name
	}
}

// WithComma sets the CSV field delimiter.
func WithComma(delim rune) WriterOption {
	return func(opts *WriterOptions) {
		opts.Comma = delim
	}
}

// WithUseCRLF makes the CSV writer end lines with \r\n.
func WithUseCRLF(useCRLF bool) WriterOption {
	return func(opts *WriterOptions) {
		opts.UseCRLF = useCRLF
	}
}

// WithBatchSize sets how many records the Parquet writer buffers per batch.
func WithBatchSize(size int) WriterOption {
	return func(opts *WriterOptions) {
		opts.BatchSize = size
	}
}

func newWriterOptions(opts []WriterOption) WriterOptions {
	options := WriterOptions{
		WriteHeader: true,
		Sheet:       DefaultSheet,
		Comma:       ',',
		BatchSize:   DefaultParquetBatchSize,
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.Sheet == "" {
		options.Sheet = DefaultSheet
	}
	if options.BatchSize <= 0 {
		options.BatchSize = DefaultParquetBatchSize
	}
	return options
}

// headersFrom returns the sorted keys of record.
func headersFrom(record core.Record) []string {
	headers := make([]string, 0, len(record))
	for key := range record {
		headers = append(headers, key)
	}
	sort.Strings(headers)
	return headers
}

// formatText renders a value for text-based sinks. nil becomes "".
func formatText(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case time.Time:
		return v.Format(time.RFC3339)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}

func trackNulls(stats *WriterStats, record core.Record) {
	for k, v := range record {
		if v == nil {
			stats.NullValueCounts[k]++
		}
	}
}
