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
	"fmt"
	"sort"

	"github.com/aaronlmathis/reviewsentiment/core"
)

// Package aggregate summarizes an enriched dataset by group.

// Aggregator defines the interface for data aggregation operations.
// Aggregators process multiple records and produce a single summary value.
type Aggregator interface {
	// Add processes a record for aggregation.
	Add(ctx context.Context, record core.Record) error
	// Result returns the aggregated value.
	Result() interface{}
	// Clone returns an empty aggregator with the same configuration.
	Clone() Aggregator
}

// GroupBy implements grouping and aggregation operations over a single field.
type GroupBy struct {
	groupField  string
	outputs     []string
	aggregators map[string]Aggregator
}

// NewGroupBy creates a new GroupBy aggregator keyed on groupField.
func NewGroupBy(groupField string) *GroupBy {
	return &GroupBy{
		groupField:  groupField,
		aggregators: make(map[string]Aggregator),
	}
}

// Count adds a count aggregator for the specified output field
func (g *GroupBy) Count(outputField string) *GroupBy {
	return g.add(outputField, &CountAggregator{})
}

// Avg adds an average aggregator for the specified field
func (g *GroupBy) Avg(field, outputField string) *GroupBy {
	return g.add(outputField, &AvgAggregator{Field: field})
}

func (g *GroupBy) add(outputField string, agg Aggregator) *GroupBy {
	if _, exists := g.aggregators[outputField]; !exists {
		g.outputs = append(g.outputs, outputField)
	}
	g.aggregators[outputField] = agg
	return g
}

// Process aggregates records and returns one record per group, ordered by the
// string form of the group value. Each result holds the group field and every
// configured output field.
func (g *GroupBy) Process(ctx context.Context, records []core.Record) ([]core.Record, error) {
	type group struct {
		value       interface{}
		aggregators map[string]Aggregator
	}
	groups := make(map[string]*group)

	for _, record := range records {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		value := record[g.groupField]
		key := fmt.Sprintf("%v", value)

		grp, exists := groups[key]
		if !exists {
			grp = &group{value: value, aggregators: make(map[string]Aggregator, len(g.aggregators))}
			for outputField, agg := range g.aggregators {
				grp.aggregators[outputField] = agg.Clone()
			}
			groups[key] = grp
		}

		for outputField, agg := range grp.aggregators {
			if err := agg.Add(ctx, record); err != nil {
				return nil, fmt.Errorf("aggregation error for field %s: %w", outputField, err)
			}
		}
	}

	keys := make([]string, 0, len(groups))
	for key := range groups {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	results := make([]core.Record, 0, len(keys))
	for _, key := range keys {
		grp := groups[key]
		result := core.Record{g.groupField: grp.value}
		for _, outputField := range g.outputs {
			result[outputField] = grp.aggregators[outputField].Result()
		}
		results = append(results, result)
	}
	return results, nil
}

// CountAggregator counts records
type CountAggregator struct {
	count int64
}

func (c *CountAggregator) Add(ctx context.Context, record core.Record) error {
	c.count++
	return nil
}

func (c *CountAggregator) Result() interface{} {
	return c.count
}

func (c *CountAggregator) Clone() Aggregator {
	return &CountAggregator{}
}

// AvgAggregator calculates the mean of a numeric field. Missing and nil values are skipped.
type AvgAggregator struct {
	Field string
	sum   float64
	count int64
}

func (a *AvgAggregator) Add(ctx context.Context, record core.Record) error {
	value, exists := record[a.Field]
	if !exists || value == nil {
		return nil
	}
	num, err := convertToFloat64(value)
	if err != nil {
		return err
	}
	a.sum += num
	a.count++
	return nil
}

func (a *AvgAggregator) Result() interface{} {
	if a.count == 0 {
		return 0.0
	}
	return a.sum / float64(a.count)
}

func (a *AvgAggregator) Clone() Aggregator {
	return &AvgAggregator{Field: a.Field}
}

func convertToFloat64(value interface{}) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	default:
		return 0, fmt.Errorf("cannot convert %T to float64", value)
	}
}
