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

// validators.go - Output dataset quality checks run before the sink
package validators

import (
	"fmt"
	"math"

	"github.com/aaronlmathis/reviewsentiment/core"
	"github.com/aaronlmathis/reviewsentiment/sentiment"
)

// DatasetValidator checks the enriched dataset before it is persisted.
// It verifies the row count did not change and that every row carries well-formed
// derived columns.
type DatasetValidator struct {
	ExpectedRows   int                         // Row count the source produced (negative skips the check)
	RequiredFields []string                    // Fields that must be present in every record
	FieldChecks    map[string]FieldValidator   // Per-field value checks
	Custom         []func(*core.Dataset) error // Extra dataset-wide checks
}

// FieldValidator validates a single field value.
type FieldValidator func(value interface{}) error

// ValidationError reports the first record that failed validation.
type ValidationError struct {
	Row   int    // Row index, -1 for dataset-wide failures
	Field string // Field name if applicable
	Err   error
}

func (e *ValidationError) Error() string {
	switch {
	case e.Row < 0:
		return fmt.Sprintf("dataset validation: %v", e.Err)
	case e.Field == "":
		return fmt.Sprintf("dataset validation: row %d: %v", e.Row, e.Err)
	default:
		return fmt.Sprintf("dataset validation: row %d field %s: %v", e.Row, e.Field, e.Err)
	}
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Validate runs every configured check and returns the first failure.
func (v *DatasetValidator) Validate(ds *core.Dataset) error {
	if ds == nil {
		return &ValidationError{Row: -1, Err: fmt.Errorf("dataset is nil")}
	}

	if v.ExpectedRows >= 0 && ds.Len() != v.ExpectedRows {
		return &ValidationError{Row: -1, Err: fmt.Errorf("row count changed: got %d, expected %d", ds.Len(), v.ExpectedRows)}
	}

	for _, field := range v.RequiredFields {
		if !ds.HasColumn(field) {
			return &ValidationError{Row: -1, Field: field, Err: fmt.Errorf("column %s missing from schema", field)}
		}
	}

	for i, record := range ds.Rows {
		for _, field := range v.RequiredFields {
			if _, exists := record[field]; !exists {
				return &ValidationError{Row: i, Field: field, Err: fmt.Errorf("missing required field")}
			}
		}
		for field, check := range v.FieldChecks {
			value, exists := record[field]
			if !exists {
				continue // handled by RequiredFields
			}
			if err := check(value); err != nil {
				return &ValidationError{Row: i, Field: field, Err: err}
			}
		}
	}

	for i, check := range v.Custom {
		if err := check(ds); err != nil {
			return &ValidationError{Row: -1, Err: fmt.Errorf("custom validator %d: %w", i, err)}
		}
	}

	return nil
}

// IsString requires a string value.
func IsString(value interface{}) error {
	if _, ok := value.(string); !ok {
		return fmt.Errorf("expected string, got %T", value)
	}
	return nil
}

// FloatInRange requires a finite float64 within [min, max].
func FloatInRange(min, max float64) FieldValidator {
	return func(value interface{}) error {
		f, ok := value.(float64)
		if !ok {
			return fmt.Errorf("expected float64, got %T", value)
		}
		if math.IsNaN(f) || f < min || f > max {
			return fmt.Errorf("value %v outside [%v, %v]", f, min, max)
		}
		return nil
	}
}

// IsLabel requires one of the sentiment labels.
func IsLabel(value interface{}) error {
	l, ok := value.(sentiment.Label)
	if !ok {
		return fmt.Errorf("expected sentiment label, got %T", value)
	}
	if !l.Valid() {
		return fmt.Errorf("unknown label %q", l)
	}
	return nil
}

// NewEnrichedValidator builds the validator for a pipeline output with the given
// derived column names.
func NewEnrichedValidator(expectedRows int, cleanedField, scoreField, labelField string) *DatasetValidator {
	return &DatasetValidator{
		ExpectedRows:   expectedRows,
		RequiredFields: []string{cleanedField, scoreField, labelField},
		FieldChecks: map[string]FieldValidator{
			cleanedField: IsString,
			scoreField:   FloatInRange(-1, 1),
			labelField:   IsLabel,
		},
	}
}
