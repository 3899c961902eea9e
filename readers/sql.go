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

package readers

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"math"
	"reflect"
	"strings"
	"sync"
	"time"

	mssql "github.com/microsoft/go-mssqldb"

	"github.com/aaronlmathis/reviewsentiment/core"
)

// Package readers provides implementations of core.DataSource for reading review rows.
//
// This file implements a database/sql reader that runs one query and streams its rows.
// The connection is opened by NewSQLReader and released by Close; there is no pooling
// or retry logic.

// SQLReaderError provides structured error information for SQL reader operations
type SQLReaderError struct {
	Op  string // Operation that failed (e.g., "connect", "ping", "query", "scan", "read")
	Err error  // Underlying error
}

func (e *SQLReaderError) Error() string {
	return fmt.Sprintf("sql reader %s: %v", e.Op, e.Err)
}

func (e *SQLReaderError) Unwrap() error {
	return e.Err
}

// SQLReader implements core.DataSource for relational databases reachable through database/sql.
type SQLReader struct {
	mu          sync.Mutex
	db          *sql.DB
	cancel      context.CancelFunc
	rows        *sql.Rows
	columnNames []string
	columnTypes []*sql.ColumnType
	scanBuffer  []interface{}
	values      []interface{}
	stats       SQLReaderStats
	opts        *SQLReaderOptions
	isFinished  bool
}

// SQLReaderStats holds statistics about the reader's activity
type SQLReaderStats struct {
	RecordsRead     int64
	ConnectionTime  time.Duration
	QueryDuration   time.Duration
	ReadDuration    time.Duration
	NullValueCounts map[string]int64
}

// SQLReaderOptions configures the SQL reader
type SQLReaderOptions struct {
	Driver       string        // database/sql driver name
	DSN          string        // Database connection string
	Query        string        // SQL query to execute
	Params       []interface{} // Optional query parameters
	QueryTimeout time.Duration // Connect and query timeout, 0 disables it
}

// SQLReaderOption represents a configuration function for SQLReaderOptions
type SQLReaderOption func(*SQLReaderOptions)

// WithDriver sets the database/sql driver name.
func WithDriver(driver string) SQLReaderOption {
	return func(opts *SQLReaderOptions) {
		opts.Driver = driver
	}
}

// WithDSN sets the connection string.
func WithDSN(dsn string) SQLReaderOption {
	return func(opts *SQLReaderOptions) {
		opts.DSN = dsn
	}
}

// WithConnection sets driver and DSN from a connection descriptor.
func WithConnection(info ConnectionInfo) SQLReaderOption {
	return func(opts *SQLReaderOptions) {
		if info.Driver != "" {
			opts.Driver = info.Driver
		}
		opts.DSN = info.DSN()
	}
}

// WithQuery sets the SQL query and optional parameters.
func WithQuery(query string, params ...interface{}) SQLReaderOption {
	return func(opts *SQLReaderOptions) {
		opts.Query = query
		if len(params) > 0 {
			opts.Params = make([]interface{}, len(params))
			copy(opts.Params, params)
		}
	}
}

// WithQueryTimeout bounds the connect and query round-trip.
func WithQueryTimeout(timeout time.Duration) SQLReaderOption {
	return func(opts *SQLReaderOptions) {
		opts.QueryTimeout = timeout
	}
}

// NewSQLReader connects to the database and executes the query.
// The returned reader is positioned before the first row. Any failure is a *SQLReaderError.
func NewSQLReader(ctx context.Context, options ...SQLReaderOption) (*SQLReader, error) {
	opts := (&SQLReaderOptions{}).withDefaults()
	for _, option := range options {
		option(opts)
	}

	if opts.DSN == "" {
		return nil, &SQLReaderError{Op: "validate", Err: fmt.Errorf("dsn is required")}
	}
	if opts.Query == "" {
		return nil, &SQLReaderError{Op: "validate", Err: fmt.Errorf("query is required")}
	}

	// The query context must outlive this call because rows are bound to it,
	// so the cancel func is released by Close.
	cancel := context.CancelFunc(func() {})
	if opts.QueryTimeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, opts.QueryTimeout)
	}

	startTime := time.Now()
	db, err := sql.Open(opts.Driver, opts.DSN)
	if err != nil {
		cancel()
		return nil, &SQLReaderError{Op: "connect", Err: err}
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		cancel()
		return nil, &SQLReaderError{Op: "ping", Err: err}
	}

	reader := &SQLReader{
		db:     db,
		cancel: cancel,
		opts:   opts,
		stats: SQLReaderStats{
			NullValueCounts: make(map[string]int64),
			ConnectionTime:  time.Since(startTime),
		},
	}

	if err := reader.executeQuery(ctx); err != nil {
		reader.Close()
		return nil, err
	}

	return reader, nil
}

// withDefaults applies default values to SQLReaderOptions
func (opts *SQLReaderOptions) withDefaults() *SQLReaderOptions {
	result := &SQLReaderOptions{}
	if opts != nil {
		*result = *opts
	}
	if result.Driver == "" {
		result.Driver = DriverSQLServer
	}
	return result
}

// executeQuery runs the query and prepares the scan buffers
func (r *SQLReader) executeQuery(ctx context.Context) error {
	startTime := time.Now()

	rows, err := r.db.QueryContext(ctx, r.opts.Query, r.opts.Params...)
	if err != nil {
		return &SQLReaderError{Op: "query", Err: err}
	}
	r.rows = rows
	r.stats.QueryDuration = time.Since(startTime)

	columnNames, err := rows.Columns()
	if err != nil {
		return &SQLReaderError{Op: "columns", Err: err}
	}
	r.columnNames = columnNames

	columnTypes, err := rows.ColumnTypes()
	if err != nil {
		return &SQLReaderError{Op: "column_types", Err: err}
	}
	r.columnTypes = columnTypes

	r.scanBuffer = make([]interface{}, len(columnNames))
	r.values = make([]interface{}, len(columnNames))
	for i := range r.scanBuffer {
		r.scanBuffer[i] = &r.values[i]
	}
	return nil
}

// Columns returns the result column names in query order.
func (r *SQLReader) Columns() []string {
	return append([]string(nil), r.columnNames...)
}

// Read implements the core.DataSource interface.
func (r *SQLReader) Read(ctx context.Context) (core.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	startTime := time.Now()
	defer func() {
		r.stats.ReadDuration += time.Since(startTime)
	}()

	select {
	case <-ctx.Done():
		return nil, &SQLReaderError{Op: "read", Err: ctx.Err()}
	default:
	}

	if r.db == nil {
		return nil, &SQLReaderError{Op: "read", Err: fmt.Errorf("reader is closed")}
	}
	if r.isFinished || r.rows == nil {
		return nil, io.EOF
	}

	if !r.rows.Next() {
		if err := r.rows.Err(); err != nil {
			return nil, &SQLReaderError{Op: "read", Err: err}
		}
		r.isFinished = true
		return nil, io.EOF
	}

	if err := r.rows.Scan(r.scanBuffer...); err != nil {
		return nil, &SQLReaderError{Op: "scan", Err: err}
	}

	r.stats.RecordsRead++
	return r.convertRowToRecord(), nil
}

// Close releases the result set and the database handle.
func (r *SQLReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var errs []error

	if r.rows != nil {
		if err := r.rows.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing rows: %w", err))
		}
		r.rows = nil
	}

	if r.db != nil {
		if err := r.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing database: %w", err))
		}
		r.db = nil
	}

	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}

	if len(errs) > 0 {
		return &SQLReaderError{Op: "close", Err: fmt.Errorf("multiple errors: %v", errs)}
	}
	return nil
}

// Stats returns a copy of the reader statistics.
func (r *SQLReader) Stats() SQLReaderStats {
	r.mu.Lock()
	defer r.mu.Unlock()

	statsCopy := r.stats
	statsCopy.NullValueCounts = make(map[string]int64, len(r.stats.NullValueCounts))
	for k, v := range r.stats.NullValueCounts {
		statsCopy.NullValueCounts[k] = v
	}
	return statsCopy
}

// convertRowToRecord converts the scanned values to a core.Record
func (r *SQLReader) convertRowToRecord() core.Record {
	record := make(core.Record, len(r.columnNames))
	for i, columnName := range r.columnNames {
		value := r.values[i]
		if value == nil {
			r.stats.NullValueCounts[columnName]++
			record[columnName] = nil
			continue
		}
		var dbType string
		if i < len(r.columnTypes) && r.columnTypes[i] != nil {
			dbType = r.columnTypes[i].DatabaseTypeName()
		}
		record[columnName] = convertSQLValue(value, dbType)
	}
	return record
}

// textTypes lists database type names whose []byte values are rendered as strings.
// Decimal types are included so their exact textual form survives.
var textTypes = map[string]bool{
	"TEXT": true, "NTEXT": true, "VARCHAR": true, "NVARCHAR": true,
	"CHAR": true, "NCHAR": true, "BPCHAR": true, "CLOB": true,
	"TINYTEXT": true, "MEDIUMTEXT": true, "LONGTEXT": true,
	"DECIMAL": true, "NUMERIC": true, "MONEY": true, "SMALLMONEY": true,
	"UUID": true, "XML": true, "JSON": true,
}

// convertSQLValue converts driver values to the Go types a record carries
func convertSQLValue(value interface{}, dbType string) interface{} {
	if b, ok := value.([]byte); ok {
		// SQL Server sends GUIDs as 16 bytes with the first three groups little-endian
		if strings.EqualFold(dbType, "UNIQUEIDENTIFIER") {
			var id mssql.UniqueIdentifier
			if err := id.Scan(b); err == nil {
				return id.String()
			}
			return append([]byte(nil), b...)
		}
		if dbType == "" || textTypes[strings.ToUpper(dbType)] {
			return string(b)
		}
		return append([]byte(nil), b...)
	}

	switch v := value.(type) {
	case time.Time, bool, int64, float64, string:
		return v
	default:
		rv := reflect.ValueOf(v)
		switch rv.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32:
			return rv.Int()
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			u := rv.Uint()
			if u > math.MaxInt64 {
				return u
			}
			return int64(u)
		case reflect.Float32:
			return rv.Float()
		default:
			return fmt.Sprintf("%v", v)
		}
	}
}

// ReadAll drains src into a Dataset, preserving row order.
// Missing columns in a row are filled with nil so every row shares the schema.
func ReadAll(ctx context.Context, src core.ColumnSource) (*core.Dataset, error) {
	ds := core.NewDataset(src.Columns())
	for {
		record, err := src.Read(ctx)
		if err == io.EOF {
			return ds, nil
		}
		if err != nil {
			return nil, err
		}
		for _, col := range ds.Columns {
			if _, ok := record[col]; !ok {
				record[col] = nil
			}
		}
		ds.Append(record)
	}
}
