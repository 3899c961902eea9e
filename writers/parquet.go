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

	"github.com/apache/arrow/go/v12/arrow"
	"github.com/apache/arrow/go/v12/arrow/array"
	"github.com/apache/arrow/go/v12/arrow/memory"
	"github.com/apache/arrow/go/v12/parquet"
	"github.com/apache/arrow/go/v12/parquet/compress"
	"github.com/apache/arrow/go/v12/parquet/pqarrow"

	"github.com/aaronlmathis/reviewsentiment/core"
)

// DefaultParquetBatchSize is the number of records buffered per row group batch.
const DefaultParquetBatchSize = 1000

// ParquetWriter implements core.DataSink for Parquet output.
//
// The Arrow schema is inferred from the first buffered batch: each column takes the
// type of its first non-nil value, and all-nil columns become strings. Records are
// buffered and written in batches; Close writes the footer and closes the destination.
type ParquetWriter struct {
	mu         sync.Mutex
	out        io.WriteCloser
	writer     *pqarrow.FileWriter
	schema     *arrow.Schema
	builders   []array.Builder
	allocator  memory.Allocator
	options    WriterOptions
	headers    []string
	buffer     []core.Record
	closed     bool
	errorState bool
	stats      WriterStats
}

// NewParquetWriter creates a Parquet writer that streams to w.
func NewParquetWriter(w io.WriteCloser, opts ...WriterOption) (*ParquetWriter, error) {
	options := newWriterOptions(opts)
	return &ParquetWriter{
		out:       w,
		allocator: memory.NewGoAllocator(),
		options:   options,
		headers:   append([]string(nil), options.Headers...),
		buffer:    make([]core.Record, 0, options.BatchSize),
		stats:     WriterStats{NullValueCounts: make(map[string]int64)},
	}, nil
}

// Write implements the DataSink interface.
func (p *ParquetWriter) Write(ctx context.Context, record core.Record) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return &WriterError{Format: "parquet", Op: "write", Err: fmt.Errorf("writer is closed")}
	}
	if p.errorState {
		return &WriterError{Format: "parquet", Op: "write", Err: fmt.Errorf("writer is in error state")}
	}
	if err := ctx.Err(); err != nil {
		return &WriterError{Format: "parquet", Op: "write", Err: err}
	}

	if len(p.headers) == 0 {
		p.headers = headersFrom(record)
	}
	p.buffer = append(p.buffer, record)
	if len(p.buffer) >= p.options.BatchSize {
		return p.flushBatch()
	}
	return nil
}

// Flush writes any buffered records.
func (p *ParquetWriter) Flush() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	return p.flushBatch()
}

// Close flushes remaining records, writes the file footer and closes the destination.
// A writer that never saw a record still produces a valid file when headers are known.
func (p *ParquetWriter) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	start := time.Now()
	flushErr := p.flushBatch()
	p.closed = true

	if flushErr == nil && p.writer == nil && len(p.headers) > 0 {
		flushErr = p.initSchema(nil)
	}
	for _, b := range p.builders {
		b.Release()
	}
	p.builders = nil

	if p.writer != nil {
		if err := p.writer.Close(); err != nil && flushErr == nil {
			flushErr = &WriterError{Format: "parquet", Op: "close_writer", Err: err}
		}
	}
	if err := p.out.Close(); err != nil && flushErr == nil {
		flushErr = &WriterError{Format: "parquet", Op: "close", Err: err}
	}
	if flushErr != nil {
		return flushErr
	}
	p.stats.SaveDuration = time.Since(start)
	return nil
}

// Abort closes the destination without writing buffered records or the footer.
func (p *ParquetWriter) Abort() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	for _, b := range p.builders {
		b.Release()
	}
	p.builders = nil
	p.buffer = nil
	return p.out.Close()
}

// Stats returns write statistics.
func (p *ParquetWriter) Stats() WriterStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	statsCopy := p.stats
	statsCopy.NullValueCounts = make(map[string]int64, len(p.stats.NullValueCounts))
	for k, v := range p.stats.NullValueCounts {
		statsCopy.NullValueCounts[k] = v
	}
	return statsCopy
}

// flushBatch writes the buffered records as one Arrow record batch.
func (p *ParquetWriter) flushBatch() error {
	if p.errorState {
		return &WriterError{Format: "parquet", Op: "flush", Err: fmt.Errorf("writer is in error state")}
	}
	if len(p.buffer) == 0 {
		return nil
	}
	if p.writer == nil {
		if err := p.initSchema(p.buffer); err != nil {
			p.errorState = true
			return err
		}
	}

	for _, record := range p.buffer {
		for i, name := range p.headers {
			value := record[name]
			if value == nil {
				p.builders[i].AppendNull()
				p.stats.NullValueCounts[name]++
				continue
			}
			if err := appendArrowValue(p.builders[i], value); err != nil {
				p.errorState = true
				return &WriterError{Format: "parquet", Op: "append_value", Err: fmt.Errorf("column %s: %w", name, err)}
			}
		}
	}

	arrays := make([]arrow.Array, len(p.builders))
	for i, b := range p.builders {
		arrays[i] = b.NewArray()
	}
	batch := array.NewRecord(p.schema, arrays, int64(len(p.buffer)))
	for _, a := range arrays {
		a.Release()
	}
	defer batch.Release()

	if err := p.writer.Write(batch); err != nil {
		p.errorState = true
		return &WriterError{Format: "parquet", Op: "write_batch", Err: err}
	}
	p.stats.RecordsWritten += int64(len(p.buffer))
	p.buffer = p.buffer[:0]
	return nil
}

// initSchema infers the Arrow schema from records and opens the file writer.
func (p *ParquetWriter) initSchema(records []core.Record) error {
	fields := make([]arrow.Field, len(p.headers))
	for i, name := range p.headers {
		dataType := arrow.DataType(arrow.BinaryTypes.String)
		for _, record := range records {
			if value := record[name]; value != nil {
				dataType = arrowType(value)
				break
			}
		}
		fields[i] = arrow.Field{Name: name, Type: dataType, Nullable: true}
	}
	p.schema = arrow.NewSchema(fields, nil)

	props := parquet.NewWriterProperties(
		parquet.WithCompression(compress.Codecs.Snappy),
		parquet.WithMaxRowGroupLength(int64(p.options.BatchSize)),
	)
	// The destination is closed by Close, never by the file writer.
	writer, err := pqarrow.NewFileWriter(p.schema, writerOnly{p.out}, props, pqarrow.DefaultWriterProps())
	if err != nil {
		return &WriterError{Format: "parquet", Op: "schema", Err: err}
	}
	p.writer = writer

	p.builders = make([]array.Builder, len(fields))
	for i, f := range fields {
		p.builders[i] = array.NewBuilder(p.allocator, f.Type)
	}
	return nil
}

type writerOnly struct {
	w io.Writer
}

func (w writerOnly) Write(b []byte) (int, error) {
	return w.w.Write(b)
}

// arrowType maps a record value to its column type. Unknown types are stored as text.
func arrowType(value interface{}) arrow.DataType {
	switch value.(type) {
	case bool:
		return arrow.FixedWidthTypes.Boolean
	case int, int8, int16, int32, int64:
		return arrow.PrimitiveTypes.Int64
	case uint, uint8, uint16, uint32, uint64:
		return arrow.PrimitiveTypes.Uint64
	case float32, float64:
		return arrow.PrimitiveTypes.Float64
	case time.Time:
		return arrow.FixedWidthTypes.Timestamp_us
	case []byte:
		return arrow.BinaryTypes.Binary
	default:
		return arrow.BinaryTypes.String
	}
}

// appendArrowValue appends value to b. A value whose type differs from the column's
// inferred type is an error, except for string columns which take any value as text.
func appendArrowValue(b array.Builder, value interface{}) error {
	switch b := b.(type) {
	case *array.StringBuilder:
		b.Append(formatText(value))
		return nil
	case *array.BooleanBuilder:
		if v, ok := value.(bool); ok {
			b.Append(v)
			return nil
		}
	case *array.Int64Builder:
		switch v := value.(type) {
		case int:
			b.Append(int64(v))
			return nil
		case int8:
			b.Append(int64(v))
			return nil
		case int16:
			b.Append(int64(v))
			return nil
		case int32:
			b.Append(int64(v))
			return nil
		case int64:
			b.Append(v)
			return nil
		}
	case *array.Uint64Builder:
		switch v := value.(type) {
		case uint:
			b.Append(uint64(v))
			return nil
		case uint8:
			b.Append(uint64(v))
			return nil
		case uint16:
			b.Append(uint64(v))
			return nil
		case uint32:
			b.Append(uint64(v))
			return nil
		case uint64:
			b.Append(v)
			return nil
		}
	case *array.Float64Builder:
		switch v := value.(type) {
		case float32:
			b.Append(float64(v))
			return nil
		case float64:
			b.Append(v)
			return nil
		}
	case *array.TimestampBuilder:
		if v, ok := value.(time.Time); ok {
			b.Append(arrow.Timestamp(v.UnixMicro()))
			return nil
		}
	case *array.BinaryBuilder:
		if v, ok := value.([]byte); ok {
			b.Append(v)
			return nil
		}
	}
	return fmt.Errorf("value %v of type %T does not match the column type", value, value)
}
