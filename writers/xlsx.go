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
	"fmt"
	"io"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/aaronlmathis/reviewsentiment/core"
)

// DefaultSheet is the worksheet name used when none is configured.
const DefaultSheet = "Sheet1"

// XLSXWriter implements core.DataSink for spreadsheet output.
//
// Rows are streamed into an in-memory workbook; Close serializes the workbook to the
// underlying writer and closes it.
type XLSXWriter struct {
	mu          sync.Mutex
	file        *excelize.File
	stream      *excelize.StreamWriter
	out         io.WriteCloser
	options     WriterOptions
	headers     []string
	nextRow     int
	wroteHeader bool
	closed      bool
	errorState  bool
	stats       WriterStats
}

// NewXLSXWriter creates a spreadsheet writer that saves to w on Close.
func NewXLSXWriter(w io.WriteCloser, opts ...WriterOption) (*XLSXWriter, error) {
	options := newWriterOptions(opts)

	f := excelize.NewFile()
	if options.Sheet != DefaultSheet {
		if err := f.SetSheetName(DefaultSheet, options.Sheet); err != nil {
			f.Close()
			return nil, &WriterError{Format: "xlsx", Op: "sheet", Err: err}
		}
	}

	sw, err := f.NewStreamWriter(options.Sheet)
	if err != nil {
		f.Close()
		return nil, &WriterError{Format: "xlsx", Op: "stream", Err: err}
	}

	return &XLSXWriter{
		file:    f,
		stream:  sw,
		out:     w,
		options: options,
		headers: append([]string(nil), options.Headers...),
		nextRow: 1,
		stats:   WriterStats{NullValueCounts: make(map[string]int64)},
	}, nil
}

// Write implements the DataSink interface.
func (x *XLSXWriter) Write(ctx context.Context, record core.Record) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	if x.closed {
		return &WriterError{Format: "xlsx", Op: "write", Err: fmt.Errorf("writer is closed")}
	}
	if x.errorState {
		return &WriterError{Format: "xlsx", Op: "write", Err: fmt.Errorf("writer is in error state")}
	}
	if err := ctx.Err(); err != nil {
		return &WriterError{Format: "xlsx", Op: "write", Err: err}
	}

	if len(x.headers) == 0 {
		x.headers = headersFrom(record)
	}

	if !x.wroteHeader && x.options.WriteHeader {
		header := make([]interface{}, len(x.headers))
		for i, h := range x.headers {
			header[i] = h
		}
		if err := x.setRow(header); err != nil {
			x.errorState = true
			return &WriterError{Format: "xlsx", Op: "write_header", Err: err}
		}
		x.wroteHeader = true
	}

	trackNulls(&x.stats, record)

	row := make([]interface{}, len(x.headers))
	for i, key := range x.headers {
		row[i] = cellValue(record[key])
		if s, ok := row[i].(string); ok && utf8.RuneCountInString(s) > excelize.TotalCellChars {
			return &WriterError{Format: "xlsx", Op: "cell_length", Err: fmt.Errorf(
				"row %d column %s: %d characters exceeds the %d character cell limit",
				x.stats.RecordsWritten+1, key, utf8.RuneCountInString(s), excelize.TotalCellChars)}
		}
	}
	if err := x.setRow(row); err != nil {
		x.errorState = true
		return &WriterError{Format: "xlsx", Op: "write_row", Err: err}
	}
	x.stats.RecordsWritten++
	return nil
}

func (x *XLSXWriter) setRow(values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, x.nextRow)
	if err != nil {
		return err
	}
	if err := x.stream.SetRow(cell, values); err != nil {
		return err
	}
	x.nextRow++
	return nil
}

// Flush implements the DataSink interface. Workbook rows are only serialized on
// Close, so Flush has nothing to push out.
func (x *XLSXWriter) Flush() error {
	return nil
}

// Close finalizes the worksheet, writes the workbook and closes the destination.
func (x *XLSXWriter) Close() error {
	x.mu.Lock()
	defer x.mu.Unlock()

	if x.closed {
		return nil
	}
	x.closed = true
	defer x.file.Close()

	start := time.Now()
	if err := x.stream.Flush(); err != nil {
		x.out.Close()
		return &WriterError{Format: "xlsx", Op: "flush", Err: err}
	}
	if _, err := x.file.WriteTo(x.out); err != nil {
		x.out.Close()
		return &WriterError{Format: "xlsx", Op: "save", Err: err}
	}
	if err := x.out.Close(); err != nil {
		return &WriterError{Format: "xlsx", Op: "close", Err: err}
	}
	x.stats.SaveDuration = time.Since(start)
	return nil
}

// Abort discards the workbook and closes the destination without saving.
func (x *XLSXWriter) Abort() error {
	x.mu.Lock()
	defer x.mu.Unlock()

	if x.closed {
		return nil
	}
	x.closed = true
	x.file.Close()
	return x.out.Close()
}

// Stats returns write statistics.
func (x *XLSXWriter) Stats() WriterStats {
	x.mu.Lock()
	defer x.mu.Unlock()

	statsCopy := x.stats
	statsCopy.NullValueCounts = make(map[string]int64, len(x.stats.NullValueCounts))
	for k, v := range x.stats.NullValueCounts {
		statsCopy.NullValueCounts[k] = v
	}
	return statsCopy
}

// cellValue maps record values onto types the stream writer stores natively.
// nil leaves the cell empty.
func cellValue(value interface{}) interface{} {
	switch v := value.(type) {
	case nil, string, bool, time.Time,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return v
	case []byte:
		return string(v)
	default:
		return formatText(v)
	}
}
