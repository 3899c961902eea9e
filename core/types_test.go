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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDataset_AddColumn(t *testing.T) {
	ds := NewDataset([]string{"ReviewID", "ReviewText"})

	require.NoError(t, ds.AddColumn("cleaned_review"))
	assert.Equal(t, []string{"ReviewID", "ReviewText", "cleaned_review"}, ds.Columns)

	err := ds.AddColumn("ReviewText")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrColumnExists))
	assert.Contains(t, err.Error(), "ReviewText")
	assert.Len(t, ds.Columns, 3)
}

func TestDataset_ColumnsAreCopied(t *testing.T) {
	cols := []string{"a", "b"}
	ds := NewDataset(cols)
	cols[0] = "changed"

	assert.Equal(t, "a", ds.Columns[0])
}

func TestDataset_AppendPreservesOrder(t *testing.T) {
	ds := NewDataset([]string{"id"})
	for i := 0; i < 5; i++ {
		ds.Append(Record{"id": i})
	}

	require.Equal(t, 5, ds.Len())
	for i, row := range ds.Rows {
		assert.Equal(t, i, row["id"])
	}
}

func TestDataset_Head(t *testing.T) {
	ds := NewDataset([]string{"id"})
	for i := 0; i < 3; i++ {
		ds.Append(Record{"id": i})
	}

	tests := []struct {
		name string
		n    int
		want int
	}{
		{"fewer than rows", 2, 2},
		{"more than rows", 10, 3},
		{"zero", 0, 0},
		{"negative", -1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, ds.Head(tt.n), tt.want)
		})
	}
}

func TestResult(t *testing.T) {
	ok := Ok("value")
	assert.False(t, ok.Failed())
	assert.Equal(t, "value", ok.Value)

	cause := errors.New("boom")
	fb := Fallback(0.0, cause)
	assert.True(t, fb.Failed())
	assert.Equal(t, 0.0, fb.Value)
	assert.Same(t, cause, fb.Err)
}
