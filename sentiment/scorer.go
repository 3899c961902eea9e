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

// Package sentiment scores review text for polarity and maps scores to labels.
//
// The scoring backend sits behind the Scorer interface so the pipeline never depends
// on a particular model. Score wraps any backend with per-record failure isolation.
package sentiment

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/aaronlmathis/reviewsentiment/core"
)

// Supported backend names for NewScorer.
const (
	BackendVader = "vader"
	BackendHTTP  = "http"
)

// ErrOutOfRange is returned when a backend produces a polarity outside [-1, 1].
var ErrOutOfRange = errors.New("polarity out of range")

// Scorer turns text into a polarity in [-1.0, 1.0].
type Scorer interface {
	Polarity(ctx context.Context, text string) (float64, error)
}

// ScorerFunc is a function adapter for the Scorer interface.
type ScorerFunc func(ctx context.Context, text string) (float64, error)

// Polarity implements the Scorer interface for ScorerFunc.
func (f ScorerFunc) Polarity(ctx context.Context, text string) (float64, error) {
	return f(ctx, text)
}

// Score asks scorer for the polarity of text. Any error, panic, NaN or value outside
// [-1, 1] yields a Result holding 0.0 and the cause; the caller keeps going.
func Score(ctx context.Context, scorer Scorer, text string) (res core.Result[float64]) {
	defer func() {
		if r := recover(); r != nil {
			res = core.Fallback(0.0, fmt.Errorf("scoring panicked: %v", r))
		}
	}()

	polarity, err := scorer.Polarity(ctx, text)
	if err != nil {
		return core.Fallback(0.0, err)
	}
	if math.IsNaN(polarity) || polarity < -1 || polarity > 1 {
		return core.Fallback(0.0, fmt.Errorf("%w: %v", ErrOutOfRange, polarity))
	}
	return core.Ok(polarity)
}

// Config selects and configures a scoring backend.
type Config struct {
	Backend  string      `yaml:"backend"`
	Endpoint string      `yaml:"endpoint"`
	HTTP     HTTPOptions `yaml:",inline"`
}

// Backends lists the names NewScorer accepts.
func Backends() []string {
	return []string{BackendVader, BackendHTTP}
}

// NewScorer builds the backend named by cfg.Backend. An empty name selects VADER.
func NewScorer(cfg Config) (Scorer, error) {
	switch cfg.Backend {
	case "", BackendVader:
		return NewVaderScorer(), nil
	case BackendHTTP:
		return NewHTTPScorer(cfg.Endpoint, cfg.HTTP)
	default:
		return nil, fmt.Errorf("unknown sentiment backend %q", cfg.Backend)
	}
}
