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

package reviewsentiment

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/aaronlmathis/reviewsentiment/aggregate"
	"github.com/aaronlmathis/reviewsentiment/core"
	"github.com/aaronlmathis/reviewsentiment/metrics"
	"github.com/aaronlmathis/reviewsentiment/output"
	"github.com/aaronlmathis/reviewsentiment/readers"
	"github.com/aaronlmathis/reviewsentiment/sentiment"
	"github.com/aaronlmathis/reviewsentiment/transform"
	"github.com/aaronlmathis/reviewsentiment/validators"
)

// Package reviewsentiment runs the customer review sentiment batch.
//
// A run fetches every review row from a relational source, derives a cleaned text
// column, scores each cleaned review with a polarity Scorer, labels the score and
// writes the enriched dataset to the configured Location.
//
// Example usage:
//
//   p, err := reviewsentiment.NewPipeline().
//       From(reviewsentiment.SQLSource(readers.WithConnection(info), readers.WithQuery(q))).
//       Score(sentiment.NewVaderScorer()).
//       To(output.FileLocation{Path: "data/processed/sentiment_results.xlsx"}).
//       WithLogger(log).
//       Build()
//   if err != nil { log.Fatal(err) }
//   if _, err := p.Execute(ctx); err != nil { log.Fatal(err) }
//
// Per-row cleaning and scoring failures never stop a run; they are logged, counted and
// replaced with "" and 0.0. Every other failure aborts the run with a *StageError.

// Derived column names, appended in this order.
const (
	ColumnCleaned = "cleaned_review"
	ColumnScore   = "sentiment_score"
	ColumnLabel   = "sentiment"
)

// Stage names reported in StageError and metrics.
const (
	StageFetch    = "fetch"
	StagePrepare  = "prepare"
	StageClean    = "clean"
	StageScore    = "score"
	StageClassify = "classify"
	StageValidate = "validate"
	StageWrite    = "write"
)

// DefaultPreviewRows is the number of rows logged as a sample before saving.
const DefaultPreviewRows = 5

// StageError reports the stage a run failed in.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// SourceFunc opens the review source. It is called once per run.
type SourceFunc func(ctx context.Context) (core.ColumnSource, error)

// SQLSource opens a readers.SQLReader with the given options.
func SQLSource(opts ...readers.SQLReaderOption) SourceFunc {
	return func(ctx context.Context) (core.ColumnSource, error) {
		return readers.NewSQLReader(ctx, opts...)
	}
}

// PipelineBuilder provides a fluent API for constructing a run.
type PipelineBuilder struct {
	pipeline *Pipeline
}

// NewPipeline creates a new PipelineBuilder with the default text column and preview size.
func NewPipeline() *PipelineBuilder {
	return &PipelineBuilder{
		pipeline: &Pipeline{
			textColumn:  "ReviewText",
			previewRows: DefaultPreviewRows,
			log:         zap.NewNop(),
		},
	}
}

// From sets how the review source is opened.
func (pb *PipelineBuilder) From(open SourceFunc) *PipelineBuilder {
	pb.pipeline.open = open
	return pb
}

// Score sets the polarity scorer.
func (pb *PipelineBuilder) Score(scorer sentiment.Scorer) *PipelineBuilder {
	pb.pipeline.scorer = scorer
	return pb
}

// To sets where the enriched dataset is written.
func (pb *PipelineBuilder) To(loc output.Location) *PipelineBuilder {
	pb.pipeline.location = loc
	return pb
}

// WithTextColumn names the source column holding the review text.
func (pb *PipelineBuilder) WithTextColumn(name string) *PipelineBuilder {
	pb.pipeline.textColumn = name
	return pb
}

// WithPreviewRows sets how many rows are logged as a sample. Zero disables the preview.
func (pb *PipelineBuilder) WithPreviewRows(n int) *PipelineBuilder {
	pb.pipeline.previewRows = n
	return pb
}

// WithLogger sets the logger. A nil logger discards output.
func (pb *PipelineBuilder) WithLogger(log *zap.Logger) *PipelineBuilder {
	if log == nil {
		log = zap.NewNop()
	}
	pb.pipeline.log = log
	return pb
}

// WithMetrics sets the collector that receives run counters.
func (pb *PipelineBuilder) WithMetrics(m *metrics.Collector) *PipelineBuilder {
	pb.pipeline.metrics = m
	return pb
}

// Build validates and constructs the Pipeline from the builder.
func (pb *PipelineBuilder) Build() (*Pipeline, error) {
	p := pb.pipeline
	if p.open == nil {
		return nil, fmt.Errorf("pipeline requires a data source")
	}
	if p.scorer == nil {
		return nil, fmt.Errorf("pipeline requires a sentiment scorer")
	}
	if p.location == nil {
		return nil, fmt.Errorf("pipeline requires an output location")
	}
	if p.textColumn == "" {
		return nil, fmt.Errorf("pipeline requires a text column")
	}
	if p.previewRows < 0 {
		return nil, fmt.Errorf("preview rows must not be negative")
	}
	return p, nil
}

// Pipeline is a single configured batch run.
type Pipeline struct {
	open        SourceFunc
	scorer      sentiment.Scorer
	location    output.Location
	textColumn  string
	previewRows int
	log         *zap.Logger
	metrics     *metrics.Collector
}

// Execute runs every stage once and returns the enriched dataset.
//
// Stages run strictly in order: fetch, prepare, clean, score, classify, validate, write.
// On a fatal error no later stage runs and the destination is never created if the
// failure happened before the write stage.
func (p *Pipeline) Execute(ctx context.Context) (*core.Dataset, error) {
	ds, err := p.fetch(ctx)
	if err != nil {
		return nil, err
	}

	steps := []struct {
		stage string
		run   func(context.Context, *core.Dataset) error
	}{
		{StagePrepare, p.prepare},
		{StageClean, p.clean},
		{StageScore, p.score},
		{StageClassify, p.classify},
		{StageValidate, p.validate},
		{StageWrite, p.write},
	}
	for _, step := range steps {
		start := time.Now()
		if err := step.run(ctx, ds); err != nil {
			return nil, &StageError{Stage: step.stage, Err: err}
		}
		p.metrics.ObserveStage(step.stage, time.Since(start))
	}

	p.log.Info("Sentiment analysis completed successfully", zap.Int("rows", ds.Len()))
	return ds, nil
}

// fetch opens the source, drains it and closes it again.
func (p *Pipeline) fetch(ctx context.Context) (*core.Dataset, error) {
	start := time.Now()

	src, err := p.open(ctx)
	if err != nil {
		p.log.Error("Connection failed", zap.Error(err))
		p.log.Error("Failed to fetch review data")
		return nil, &StageError{Stage: StageFetch, Err: err}
	}
	p.log.Info("Connected to review database")

	ds, err := readers.ReadAll(ctx, src)
	closeErr := src.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		p.log.Error("Failed to fetch review data", zap.Error(err))
		return nil, &StageError{Stage: StageFetch, Err: err}
	}

	p.metrics.RowsRead(ds.Len())
	p.metrics.ObserveStage(StageFetch, time.Since(start))
	p.log.Info("Fetched reviews", zap.Int("rows", ds.Len()), zap.Int("columns", len(ds.Columns)))
	return ds, nil
}

// prepare appends the derived columns. It fails if any already exists.
func (p *Pipeline) prepare(_ context.Context, ds *core.Dataset) error {
	for _, name := range []string{ColumnCleaned, ColumnScore, ColumnLabel} {
		if err := ds.AddColumn(name); err != nil {
			return err
		}
	}
	return nil
}

func (p *Pipeline) clean(ctx context.Context, ds *core.Dataset) error {
	p.log.Info("Cleaning review text")
	failures := 0
	for i, record := range ds.Rows {
		if err := ctx.Err(); err != nil {
			return err
		}
		res := transform.CleanText(transform.TextOf(record[p.textColumn]))
		if res.Failed() {
			failures++
			p.metrics.CleanFailure()
			p.log.Warn("Error cleaning text", zap.Int("row", i), zap.Error(res.Err))
		}
		record[ColumnCleaned] = res.Value
	}
	if failures > 0 {
		p.log.Warn("Some reviews could not be cleaned", zap.Int("failures", failures))
	}
	return nil
}

func (p *Pipeline) score(ctx context.Context, ds *core.Dataset) error {
	p.log.Info("Calculating sentiment scores")
	failures := 0
	for i, record := range ds.Rows {
		if err := ctx.Err(); err != nil {
			return err
		}
		text, _ := record[ColumnCleaned].(string)
		res := sentiment.Score(ctx, p.scorer, text)
		if res.Failed() {
			if err := ctx.Err(); err != nil {
				return err
			}
			failures++
			p.metrics.ScoreFailure()
			p.log.Warn("Error in sentiment analysis", zap.Int("row", i), zap.Error(res.Err))
		}
		record[ColumnScore] = res.Value
	}
	if failures > 0 {
		p.log.Warn("Some reviews were scored 0.0 after scorer failures", zap.Int("failures", failures))
	}
	return nil
}

func (p *Pipeline) classify(ctx context.Context, ds *core.Dataset) error {
	for _, record := range ds.Rows {
		score, _ := record[ColumnScore].(float64)
		label := sentiment.Classify(score)
		record[ColumnLabel] = label
		p.metrics.Label(label.String())
	}
	p.log.Info("Sentiment classification complete")
	return p.summarize(ctx, ds)
}

// summarize logs the row count and mean score of each label.
func (p *Pipeline) summarize(ctx context.Context, ds *core.Dataset) error {
	groups, err := aggregate.NewGroupBy(ColumnLabel).
		Count("reviews").
		Avg(ColumnScore, "avg_score").
		Process(ctx, ds.Rows)
	if err != nil {
		return err
	}
	for _, g := range groups {
		label, _ := g[ColumnLabel].(sentiment.Label)
		reviews, _ := g["reviews"].(int64)
		avg, _ := g["avg_score"].(float64)
		p.log.Info("Sentiment summary",
			zap.Stringer(ColumnLabel, label),
			zap.Int64("reviews", reviews),
			zap.Float64("avg_score", avg),
		)
	}
	return nil
}

func (p *Pipeline) validate(_ context.Context, ds *core.Dataset) error {
	v := validators.NewEnrichedValidator(ds.Len(), ColumnCleaned, ColumnScore, ColumnLabel)
	return v.Validate(ds)
}

// write logs the preview and persists the dataset. The sink is created here so
// earlier failures leave no output behind.
func (p *Pipeline) write(ctx context.Context, ds *core.Dataset) error {
	p.preview(ds)

	sink, err := p.location.NewSink(ctx, ds.Columns)
	if err != nil {
		return err
	}
	for _, record := range ds.Rows {
		if err := sink.Write(ctx, record); err != nil {
			output.Abort(sink)
			return err
		}
	}
	if err := sink.Flush(); err != nil {
		output.Abort(sink)
		return err
	}
	if err := sink.Close(); err != nil {
		return err
	}

	p.log.Info("Output saved", zap.Stringer("location", p.location))
	return nil
}

func (p *Pipeline) preview(ds *core.Dataset) {
	head := ds.Head(p.previewRows)
	if len(head) == 0 {
		return
	}
	p.log.Info("Sample results", zap.Int("rows", len(head)))
	for i, record := range head {
		score, _ := record[ColumnScore].(float64)
		label, _ := record[ColumnLabel].(sentiment.Label)
		cleaned, _ := record[ColumnCleaned].(string)
		p.log.Info("Sample",
			zap.Int("row", i),
			zap.String(ColumnCleaned, cleaned),
			zap.Float64(ColumnScore, score),
			zap.Stringer(ColumnLabel, label),
		)
	}
}
