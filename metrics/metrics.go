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

// Package metrics collects per-run counters and stage timings.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

const namespace = "reviewsentiment"

// DefaultJob is the Pushgateway job name when none is configured.
const DefaultJob = "reviewsentiment"

// Config controls where run metrics are pushed. An empty Pushgateway disables pushing.
type Config struct {
	Pushgateway string `yaml:"pushgateway"`
	Job         string `yaml:"job"`
}

// Collector holds the metrics of a single pipeline run on its own registry.
// A nil *Collector is valid and records nothing.
type Collector struct {
	registry       *prometheus.Registry
	rowsRead       prometheus.Counter
	cleanFailures  prometheus.Counter
	scoreFailures  prometheus.Counter
	labels         *prometheus.CounterVec
	stageDurations *prometheus.GaugeVec
}

// NewCollector creates a Collector with every metric registered.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		rowsRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "rows_read_total", Help: "Review rows fetched from the source.",
		}),
		cleanFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "clean_failures_total", Help: "Rows whose text could not be cleaned.",
		}),
		scoreFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "score_failures_total", Help: "Rows scored 0.0 because the scorer failed.",
		}),
		labels: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "labels_total", Help: "Rows by sentiment label.",
		}, []string{"label"}),
		stageDurations: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "stage_duration_seconds", Help: "Wall time of each pipeline stage in the last run.",
		}, []string{"stage"}),
	}
	c.registry.MustRegister(c.rowsRead, c.cleanFailures, c.scoreFailures, c.labels, c.stageDurations)
	return c
}

// Registry exposes the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// RowsRead adds n fetched rows.
func (c *Collector) RowsRead(n int) {
	if c == nil {
		return
	}
	c.rowsRead.Add(float64(n))
}

// CleanFailure counts one cleaning failure.
func (c *Collector) CleanFailure() {
	if c == nil {
		return
	}
	c.cleanFailures.Inc()
}

// ScoreFailure counts one scoring failure.
func (c *Collector) ScoreFailure() {
	if c == nil {
		return
	}
	c.scoreFailures.Inc()
}

// Label counts one row classified as label.
func (c *Collector) Label(label string) {
	if c == nil {
		return
	}
	c.labels.WithLabelValues(label).Inc()
}

// ObserveStage records how long stage took.
func (c *Collector) ObserveStage(stage string, d time.Duration) {
	if c == nil {
		return
	}
	c.stageDurations.WithLabelValues(stage).Set(d.Seconds())
}

// Push sends the collected metrics to a Pushgateway, replacing earlier pushes for job.
func (c *Collector) Push(ctx context.Context, url, job string) error {
	if c == nil {
		return nil
	}
	if job == "" {
		job = DefaultJob
	}
	if err := push.New(url, job).Gatherer(c.registry).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics to %s: %w", url, err)
	}
	return nil
}
