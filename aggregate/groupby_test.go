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

package aggregate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aaronlmathis/reviewsentiment/core"
)

func TestGroupBy_CountAndAvg(t *testing.T) {
	records := []core.Record{
		{"sentiment": "Positive", "sentiment_score": 0.8},
		{"sentiment": "Neutral", "sentiment_score": 0.0},
		{"sentiment": "Positive", "sentiment_score": 0.4},
		{"sentiment": "Negative", "sentiment_score": -0.5},
	}

	results, err := NewGroupBy("sentiment").
		Count("reviews").
		Avg("sentiment_score", "avg_score").
		Process(context.Background(), records)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, core.Record{"sentiment": "Negative", "reviews": int64(1), "avg_score": -0.5}, results[0])
	assert.Equal(t, core.Record{"sentiment": "Neutral", "reviews": int64(1), "avg_score": 0.0}, results[1])
	assert.Equal(t, "Positive", results[2]["sentiment"])
	assert.Equal(t, int64(2), results[2]["reviews"])
	assert.InDelta(t, 0.6, results[2]["avg_score"], 1e-9)
}

func TestGroupBy_Empty(t *testing.T) {
	results, err := NewGroupBy("sentiment").Count("reviews").Process(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestAvgAggregator_SkipsNil(t *testing.T) {
	agg := &AvgAggregator{Field: "score"}
	require.NoError(t, agg.Add(context.Background(), core.Record{"score": nil}))
	require.NoError(t, agg.Add(context.Background(), core.Record{}))
	assert.Equal(t, 0.0, agg.Result())

	require.NoError(t, agg.Add(context.Background(), core.Record{"score": int64(2)}))
	assert.Equal(t, 2.0, agg.Result())
}

func TestAvgAggregator_RejectsText(t *testing.T) {
	_, err := NewGroupBy("g").
		Avg("score", "avg").
		Process(context.Background(), []core.Record{{"g": "a", "score": "high"}})
	assert.Error(t, err)
}

func TestGroupBy_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewGroupBy("g").Count("n").Process(ctx, []core.Record{{"g": 1}})
	assert.ErrorIs(t, err, context.Canceled)
}
