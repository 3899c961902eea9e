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
	"errors"
	"fmt"
)

// Package core defines the shared types for the ReviewSentiment pipeline.
//
// This file contains the record and dataset types that every stage reads and augments.

// Record represents a single review row in the pipeline.
// Each record is a map from column names to values, supporting heterogeneous source schemas.
type Record map[string]interface{}

// ErrColumnExists is returned when a derived column would overwrite a source column.
var ErrColumnExists = errors.New("column already exists")

// Dataset is an ordered, in-memory table of records sharing one column schema.
// Row order is the order the source produced them and is never changed.
type Dataset struct {
	Columns []string
	Rows    []Record
}

// NewDataset creates an empty dataset with the given column order.
func NewDataset(columns []string) *Dataset {
	return &Dataset{
		Columns: append([]string(nil), columns...),
		Rows:    make([]Record, 0),
	}
}

// Len returns the number of rows.
func (d *Dataset) Len() int {
	return len(d.Rows)
}

// Append adds a row at the end of the dataset.
func (d *Dataset) Append(record Record) {
	d.Rows = append(d.Rows, record)
}

// HasColumn reports whether name is part of the schema.
func (d *Dataset) HasColumn(name string) bool {
	for _, c := range d.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// AddColumn appends a derived column to the schema.
// Existing columns are never replaced; a name collision returns ErrColumnExists.
func (d *Dataset) AddColumn(name string) error {
	if d.HasColumn(name) {
		return fmt.Errorf("%w: %s", ErrColumnExists, name)
	}
	d.Columns = append(d.Columns, name)
	return nil
}

// Head returns up to n rows from the start of the dataset.
func (d *Dataset) Head(n int) []Record {
	if n < 0 {
		n = 0
	}
	if n > len(d.Rows) {
		n = len(d.Rows)
	}
	return d.Rows[:n]
}
