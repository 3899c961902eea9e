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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPScorerError provides structured error information for remote scoring calls
type HTTPScorerError struct {
	Op         string // Operation that failed (e.g., "encode", "request", "status_check", "decode")
	StatusCode int    // HTTP status code if applicable
	URL        string // Endpoint being called
	Err        error  // Underlying error
}

func (e *HTTPScorerError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("http scorer %s [%d] %s: %v", e.Op, e.StatusCode, e.URL, e.Err)
	}
	return fmt.Sprintf("http scorer %s %s: %v", e.Op, e.URL, e.Err)
}

func (e *HTTPScorerError) Unwrap() error {
	return e.Err
}

// HTTPOptions configures the remote scoring client.
type HTTPOptions struct {
	Timeout         time.Duration     `yaml:"timeout"`
	Headers         map[string]string `yaml:"headers"`
	MaxResponseSize int64             `yaml:"max_response_size"`
	Client          *http.Client      `yaml:"-"`
}

type scoreRequest struct {
	Text string `json:"text"`
}

type scoreResponse struct {
	Polarity *float64 `json:"polarity"`
}

// HTTPScorer delegates scoring to a remote service.
// It POSTs {"text": "..."} and expects {"polarity": <float>} back.
type HTTPScorer struct {
	endpoint string
	client   *http.Client
	opts     HTTPOptions
}

// NewHTTPScorer creates a scorer for the given endpoint.
func NewHTTPScorer(endpoint string, opts HTTPOptions) (*HTTPScorer, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("http scorer endpoint is required")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.MaxResponseSize <= 0 {
		opts.MaxResponseSize = 1 << 20
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	return &HTTPScorer{endpoint: endpoint, client: client, opts: opts}, nil
}

// Polarity implements Scorer.
func (h *HTTPScorer) Polarity(ctx context.Context, text string) (float64, error) {
	body, err := json.Marshal(scoreRequest{Text: text})
	if err != nil {
		return 0, &HTTPScorerError{Op: "encode", URL: h.endpoint, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, &HTTPScorerError{Op: "create_request", URL: h.endpoint, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range h.opts.Headers {
		req.Header.Set(k, v)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return 0, &HTTPScorerError{Op: "request", URL: h.endpoint, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, &HTTPScorerError{
			Op:         "status_check",
			URL:        h.endpoint,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status code: %d", resp.StatusCode),
		}
	}

	var out scoreResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, h.opts.MaxResponseSize)).Decode(&out); err != nil {
		return 0, &HTTPScorerError{Op: "decode", URL: h.endpoint, Err: err}
	}
	if out.Polarity == nil {
		return 0, &HTTPScorerError{Op: "decode", URL: h.endpoint, Err: fmt.Errorf("response has no polarity")}
	}
	return *out.Polarity, nil
}
