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

package sentiment

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		score    float64
		expected Label
	}{
		{0.1, Neutral},
		{0.1000001, Positive},
		{-0.1, Neutral},
		{-0.1000001, Negative},
		{-0.2, Negative},
		{0, Neutral},
		{0.8, Positive},
		{1, Positive},
		{-1, Negative},
		{0.05, Neutral},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, Classify(tt.score), "score %v", tt.score)
	}
}

func TestClassify_StepFunction(t *testing.T) {
	for i := -1000; i <= 1000; i++ {
		score := float64(i) / 1000
		label := Classify(score)
		require.True(t, label.Valid())

		switch {
		case score > 0.1:
			assert.Equal(t, Positive, label, "score %v", score)
		case score < -0.1:
			assert.Equal(t, Negative, label, "score %v", score)
		default:
			assert.Equal(t, Neutral, label, "score %v", score)
		}
	}
}

func TestLabel_Valid(t *testing.T) {
	for _, l := range Labels() {
		assert.True(t, l.Valid())
	}
	assert.False(t, Label("Mixed").Valid())
	assert.False(t, Label("").Valid())
}

func TestScore(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		res := Score(ctx, ScorerFunc(func(context.Context, string) (float64, error) { return 0.8, nil }), "x")
		require.NoError(t, res.Err)
		assert.Equal(t, 0.8, res.Value)
	})

	t.Run("error defaults to zero", func(t *testing.T) {
		cause := errors.New("unscoreable")
		res := Score(ctx, ScorerFunc(func(context.Context, string) (float64, error) { return 0.7, cause }), "x")
		assert.True(t, errors.Is(res.Err, cause))
		assert.Equal(t, 0.0, res.Value)
	})

	t.Run("panic defaults to zero", func(t *testing.T) {
		res := Score(ctx, ScorerFunc(func(context.Context, string) (float64, error) { panic("model crashed") }), "x")
		require.Error(t, res.Err)
		assert.Contains(t, res.Err.Error(), "model crashed")
		assert.Equal(t, 0.0, res.Value)
	})

	for _, bad := range []float64{math.NaN(), math.Inf(1), math.Inf(-1), 1.5, -1.01} {
		res := Score(ctx, ScorerFunc(func(context.Context, string) (float64, error) { return bad, nil }), "x")
		assert.True(t, errors.Is(res.Err, ErrOutOfRange), "value %v", bad)
		assert.Equal(t, 0.0, res.Value)
	}
}

func TestVaderScorer(t *testing.T) {
	scorer := NewVaderScorer()
	ctx := context.Background()

	positive, err := scorer.Polarity(ctx, "great product highly recommended")
	require.NoError(t, err)
	assert.Equal(t, Positive, Classify(positive))

	negative, err := scorer.Polarity(ctx, "terrible quality it broke after one day")
	require.NoError(t, err)
	assert.Equal(t, Negative, Classify(negative))

	empty, err := scorer.Polarity(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 0.0, empty)

	for _, p := range []float64{positive, negative} {
		assert.GreaterOrEqual(t, p, -1.0)
		assert.LessOrEqual(t, p, 1.0)
	}
}

func TestVaderScorer_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewVaderScorer().Polarity(ctx, "great")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHTTPScorer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "secret", r.Header.Get("X-Api-Key"))

		var req scoreRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		switch req.Text {
		case "great":
			w.Write([]byte(`{"polarity": 0.8}`))
		case "missing":
			w.Write([]byte(`{"label": "positive"}`))
		case "garbage":
			w.Write([]byte(`not json`))
		default:
			http.Error(w, "cannot score", http.StatusUnprocessableEntity)
		}
	}))
	defer server.Close()

	scorer, err := NewHTTPScorer(server.URL, HTTPOptions{
		Timeout: time.Second,
		Headers: map[string]string{"X-Api-Key": "secret"},
	})
	require.NoError(t, err)
	ctx := context.Background()

	score, err := scorer.Polarity(ctx, "great")
	require.NoError(t, err)
	assert.Equal(t, 0.8, score)

	_, err = scorer.Polarity(ctx, "reject")
	var scorerErr *HTTPScorerError
	require.True(t, errors.As(err, &scorerErr))
	assert.Equal(t, "status_check", scorerErr.Op)
	assert.Equal(t, http.StatusUnprocessableEntity, scorerErr.StatusCode)

	_, err = scorer.Polarity(ctx, "missing")
	require.True(t, errors.As(err, &scorerErr))
	assert.Equal(t, "decode", scorerErr.Op)

	_, err = scorer.Polarity(ctx, "garbage")
	require.True(t, errors.As(err, &scorerErr))
	assert.Equal(t, "decode", scorerErr.Op)

	// Failures become a neutral default through Score
	res := Score(ctx, scorer, "reject")
	assert.True(t, res.Failed())
	assert.Equal(t, 0.0, res.Value)
}

func TestNewHTTPScorer_RequiresEndpoint(t *testing.T) {
	_, err := NewHTTPScorer("", HTTPOptions{})
	assert.Error(t, err)
}

func TestNewScorer(t *testing.T) {
	s, err := NewScorer(Config{})
	require.NoError(t, err)
	assert.IsType(t, &VaderScorer{}, s)

	s, err = NewScorer(Config{Backend: BackendHTTP, Endpoint: "http://localhost:9999/score"})
	require.NoError(t, err)
	assert.IsType(t, &HTTPScorer{}, s)

	_, err = NewScorer(Config{Backend: "textblob"})
	assert.Error(t, err)
}
