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
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/aaronlmathis/reviewsentiment/core"
)

// CSVWriter implements core.DataSink for CSV output.
type CSVWriter struct {
	mu          sync.Mutex
	writer      *csv.Writer
	closer      io.Closer
	options     WriterOptions
	headers     []string
	wroteHeader bool
	closed      bool
	errorState  bool
	stats       WriterStats
}

// NewCSVWriter creates a new CSV writer over w.
func NewCSVWriter(w io.WriteCloser, opts ...WriterOption) (*CSVWriter, error) {
	options := newWriterOptions(opts)

	cw := csv.NewWriter(w)
	cw.Comma = options.Comma
	cw.UseCRLF = options.UseCRLF

	return &CSVWriter{
		writer:  cw,
		closer:  w,
		options: options,
		headers: append([]string(nil), options.Headers...),
		stats:   WriterStats{NullValueCounts: make(map[string]int64)},
	}, nil
}

// Write implements the DataSink interface.
func (c *CSVWriter) Write(ctx context.Context, record core.Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.errorState {
		return &WriterError{Format: "csv", Op: "write", Err: fmt.Errorf("writer is in error state")}
	}
	if c.closed {
		return &WriterError{Format: "csv", Op: "write", Err: fmt.Errorf("writer is closed")}
	}
	if err := ctx.Err(); err != nil {
		return &WriterError{Format: "csv", Op: "write", Err: err}
	}

	if len(c.headers) == 0 {
		c.headers = headersFrom(record)
	}

	if !c.wroteHeader && c.options.WriteHeader {
		if err := c.writer.Write(c.headers); err != nil {
			c.errorState = true
			return &WriterError{Format: "csv", Op: "write_header", Err: err}
		}
		c.wroteHeader = true
	}

	trackNulls(&c.stats, record)

	row := make([]string, len(c.headers))
	for i, key := range c.headers {
		row[i] = formatText(record[key])
	}
	if err := c.writer.Write(row); err != nil {
		c.errorState = true
		return &WriterError{Format: "csv", Op: "write_row", Err: err}
	}
	c.stats.RecordsWritten++
	return nil
}

// Flush implements the DataSink interface.
func (c *CSVWriter) Flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.flushUnsafe()
}

// flushUnsafe pushes buffered rows to the destination (must hold mutex).
func (c *CSVWriter) flushUnsafe() error {
	start := time.Now()
	c.writer.Flush()
	if err := c.writer.Error(); err != nil {
		c.errorState = true
		return &WriterError{Format: "csv", Op: "flush", Err: err}
	}
	c.stats.SaveDuration += time.Since(start)
	return nil
}

// Close implements the DataSink interface.
func (c *CSVWriter) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	if err := c.flushUnsafe(); err != nil {
		if c.closer != nil {
			c.closer.Close()
		}
		return err
	}
	if c.closer != nil {
		if err := c.closer.Close(); err != nil {
			return &WriterError{Format: "csv", Op: "close", Err: err}
		}
	}
	return nil
}

// Abort closes the destination without flushing buffered rows.
func (c *CSVWriter) Abort() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	if c.closer != nil {
		return c.closer.Close()
	}
	return nil
}

// Stats returns write statistics.
func (c *CSVWriter) Stats() WriterStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	statsCopy := c.stats
	statsCopy.NullValueCounts = make(map[string]int64, len(c.stats.NullValueCounts))
	for k, v := range c.stats.NullValueCounts {
		statsCopy.NullValueCounts[k] = v
	}
	return statsCopy
}
