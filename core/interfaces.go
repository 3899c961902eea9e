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

package core

import (
	"context"
)

// Package core defines the core interfaces for the ReviewSentiment pipeline.
//
// This file contains the interfaces for data sources and sinks.

// DataSource defines the interface for data extraction.
// Implementations stream records from a source (e.g., SQL Server, PostgreSQL, SQLite).
type DataSource interface {
	// Read returns the next record or io.EOF when no more records are available.
	Read(ctx context.Context) (Record, error)
	// Close releases any resources held by the data source.
	Close() error
}

// ColumnSource is a DataSource that knows its column order up front.
type ColumnSource interface {
	DataSource
	// Columns returns the column names in source order.
	Columns() []string
}

// DataSink defines the interface for data loading.
// Implementations write records to a destination (e.g., XLSX, CSV).
type DataSink interface {
	// Write outputs a single record to the sink.
	Write(ctx context.Context, record Record) error
	// Flush ensures all buffered data is written to the sink.
	Flush() error
	// Close releases any resources held by the data sink.
	Close() error
}

// AbortableSink is a DataSink that can discard its output after a failed write.
type AbortableSink interface {
	DataSink
	// Abort releases resources without finalizing the output. Close after Abort is a no-op.
	Abort() error
}
