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
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/aaronlmathis/reviewsentiment/core"
	"github.com/aaronlmathis/reviewsentiment/metrics"
	"github.com/aaronlmathis/reviewsentiment/output"
	"github.com/aaronlmathis/reviewsentiment/readers"
	"github.com/aaronlmathis/reviewsentiment/sentiment"
	"github.com/aaronlmathis/reviewsentiment/writers"
)

// seedDB creates a SQLite database with a customer_reviews table holding texts.
// A nil entry is stored as NULL.
func seedDB(t *testing.T, texts ...*string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "reviews.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE customer_reviews (ReviewID INTEGER PRIMARY KEY, ProductID INTEGER, ReviewText TEXT)`)
	require.NoError(t, err)
	for i, text := range texts {
		_, err = db.Exec(`INSERT INTO customer_reviews (ReviewID, ProductID, ReviewText) VALUES (?, ?, ?)`, i+1, 100+i, text)
		require.NoError(t, err)
	}
	return path
}

func strPtr(s string) *string { return &s }

func sqliteSource(dbPath string) SourceFunc {
	return SQLSource(
		readers.WithConnection(readers.ConnectionInfo{Driver: readers.DriverSQLite, Database: dbPath}),
		readers.WithQuery("SELECT * FROM customer_reviews ORDER BY ReviewID"),
	)
}

// fixedScorer returns the polarity mapped to the cleaned text, 0 for unknown text.
func fixedScorer(calls *int, scores map[string]float64) sentiment.Scorer {
	return sentiment.ScorerFunc(func(_ context.Context, text string) (float64, error) {
		*calls++
		return scores[text], nil
	})
}

func observedLogger() (*zap.Logger, *observer.ObservedLogs) {
	obsCore, logs := observer.New(zap.InfoLevel)
	return zap.New(obsCore), logs
}

func readSheet(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Sheet1")
	require.NoError(t, err)
	return rows
}

func TestPipeline_EndToEnd(t *testing.T) {
	dbPath := seedDB(t,
		strPtr("Great Product!! Highly-recommended."),
		nil,
		strPtr("Terrible - broke after ONE day..."),
	)
	outPath := filepath.Join(t.TempDir(), "data", "processed", "sentiment_results.xlsx")

	calls := 0
	scorer := fixedScorer(&calls, map[string]float64{
		"great product highly recommended": 0.8,
		"terrible broke after one day":     -0.6,
	})
	log, logs := observedLogger()
	collector := metrics.NewCollector()

	p, err := NewPipeline().
		From(sqliteSource(dbPath)).
		Score(scorer).
		To(output.FileLocation{Path: outPath}).
		WithLogger(log).
		WithMetrics(collector).
		Build()
	require.NoError(t, err)

	ds, err := p.Execute(context.Background())
	require.NoError(t, err)

	// Row count and order are preserved; derived columns are appended in order
	require.Equal(t, 3, ds.Len())
	assert.Equal(t, []string{"ReviewID", "ProductID", "ReviewText", ColumnCleaned, ColumnScore, ColumnLabel}, ds.Columns)

	first := ds.Rows[0]
	assert.Equal(t, int64(1), first["ReviewID"])
	assert.Equal(t, "Great Product!! Highly-recommended.", first["ReviewText"])
	assert.Equal(t, "great product highly recommended", first[ColumnCleaned])
	assert.Equal(t, 0.8, first[ColumnScore])
	assert.Equal(t, sentiment.Positive, first[ColumnLabel])

	missing := ds.Rows[1]
	assert.Nil(t, missing["ReviewText"])
	assert.Equal(t, "", missing[ColumnCleaned])
	assert.Equal(t, 0.0, missing[ColumnScore])
	assert.Equal(t, sentiment.Neutral, missing[ColumnLabel])

	assert.Equal(t, sentiment.Negative, ds.Rows[2][ColumnLabel])
	assert.Equal(t, 3, calls)

	rows := readSheet(t, outPath)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"ReviewID", "ProductID", "ReviewText", "cleaned_review", "sentiment_score", "sentiment"}, rows[0])
	assert.Equal(t, "great product highly recommended", rows[1][3])
	score, err := strconv.ParseFloat(rows[1][4], 64)
	require.NoError(t, err)
	assert.InDelta(t, 0.8, score, 1e-9)
	assert.Equal(t, "Positive", rows[1][5])
	assert.Equal(t, "", rows[2][2])
	assert.Equal(t, "Neutral", rows[2][5])
	assert.Equal(t, "Negative", rows[3][5])

	// Each stage boundary is logged once
	for _, msg := range []string{
		"Connected to review database",
		"Cleaning review text",
		"Calculating sentiment scores",
		"Sentiment classification complete",
		"Sample results",
		"Output saved",
		"Sentiment analysis completed successfully",
	} {
		assert.Equal(t, 1, logs.FilterMessage(msg).Len(), msg)
	}
	assert.Equal(t, 3, logs.FilterMessage("Sample").Len())

	summary := logs.FilterMessage("Sentiment summary").All()
	require.Len(t, summary, 3)
	assert.Equal(t, "Negative", summary[0].ContextMap()[ColumnLabel])
	assert.Equal(t, int64(1), summary[0].ContextMap()["reviews"])

	expected := `
# HELP reviewsentiment_rows_read_total Review rows fetched from the source.
# TYPE reviewsentiment_rows_read_total counter
reviewsentiment_rows_read_total 3
`
	require.NoError(t, testutil.GatherAndCompare(collector.Registry(), strings.NewReader(expected), "reviewsentiment_rows_read_total"))
}

func TestPipeline_ConnectionFailure(t *testing.T) {
	outPath := filepath.Join(t.TempDir(), "out.xlsx")
	calls := 0
	log, logs := observedLogger()

	p, err := NewPipeline().
		From(SQLSource(
			readers.WithDriver("nosuchdriver"),
			readers.WithDSN("server=nowhere"),
			readers.WithQuery("SELECT * FROM dbo.customer_reviews"),
		)).
		Score(fixedScorer(&calls, nil)).
		To(output.FileLocation{Path: outPath}).
		WithLogger(log).
		Build()
	require.NoError(t, err)

	ds, err := p.Execute(context.Background())
	require.Error(t, err)
	assert.Nil(t, ds)

	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, StageFetch, stageErr.Stage)

	var readerErr *readers.SQLReaderError
	require.ErrorAs(t, err, &readerErr)
	assert.Equal(t, "connect", readerErr.Op)

	// No later stage ran and nothing was written
	assert.Equal(t, 0, calls)
	_, statErr := os.Stat(outPath)
	assert.True(t, os.IsNotExist(statErr))
	assert.Equal(t, 1, logs.FilterMessage("Connection failed").Len())
	assert.Equal(t, 0, logs.FilterMessage("Cleaning review text").Len())
}

func TestPipeline_QueryFailure(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "empty.db")
	outPath := filepath.Join(t.TempDir(), "out.xlsx")
	calls := 0

	p, err := NewPipeline().
		From(sqliteSource(dbPath)).
		Score(fixedScorer(&calls, nil)).
		To(output.FileLocation{Path: outPath}).
		Build()
	require.NoError(t, err)

	_, err = p.Execute(context.Background())
	var readerErr *readers.SQLReaderError
	require.ErrorAs(t, err, &readerErr)
	assert.Equal(t, "query", readerErr.Op)

	_, statErr := os.Stat(outPath)
	assert.True(t, os.IsNotExist(statErr))
}

func TestPipeline_ScoringFailuresDefaultToZero(t *testing.T) {
	dbPath := seedDB(t, strPtr("Love it"), strPtr("Hate it"), strPtr("It is fine"))
	outPath := filepath.Join(t.TempDir(), "out.csv")
	log, logs := observedLogger()
	collector := metrics.NewCollector()

	scorer := sentiment.ScorerFunc(func(_ context.Context, text string) (float64, error) {
		switch text {
		case "love it":
			return 0.9, nil
		case "hate it":
			return 0, errors.New("model unavailable")
		default:
			panic("boom")
		}
	})

	p, err := NewPipeline().
		From(sqliteSource(dbPath)).
		Score(scorer).
		To(output.FileLocation{Path: outPath}).
		WithLogger(log).
		WithMetrics(collector).
		Build()
	require.NoError(t, err)

	ds, err := p.Execute(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, ds.Len())

	assert.Equal(t, sentiment.Positive, ds.Rows[0][ColumnLabel])
	for _, i := range []int{1, 2} {
		assert.Equal(t, 0.0, ds.Rows[i][ColumnScore])
		assert.Equal(t, sentiment.Neutral, ds.Rows[i][ColumnLabel])
	}

	warnings := logs.FilterMessage("Error in sentiment analysis").All()
	require.Len(t, warnings, 2)
	assert.Equal(t, int64(1), warnings[0].ContextMap()["row"])
	assert.Equal(t, int64(2), warnings[1].ContextMap()["row"])

	expected := `
# HELP reviewsentiment_score_failures_total Rows scored 0.0 because the scorer failed.
# TYPE reviewsentiment_score_failures_total counter
reviewsentiment_score_failures_total 2
`
	require.NoError(t, testutil.GatherAndCompare(collector.Registry(), strings.NewReader(expected), "reviewsentiment_score_failures_total"))

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Equal(t, "ReviewID,ProductID,ReviewText,cleaned_review,sentiment_score,sentiment\n"+
		"1,100,Love it,love it,0.9,Positive\n"+
		"2,101,Hate it,hate it,0,Neutral\n"+
		"3,102,It is fine,it is fine,0,Neutral\n", string(data))
}

func TestPipeline_DerivedColumnCollision(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "reviews.db")
	db, err := sql.Open("sqlite", dbPath)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE customer_reviews (ReviewID INTEGER, ReviewText TEXT, sentiment TEXT)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO customer_reviews VALUES (1, 'ok', 'legacy')`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	outPath := filepath.Join(t.TempDir(), "out.xlsx")
	calls := 0
	p, err := NewPipeline().
		From(sqliteSource(dbPath)).
		Score(fixedScorer(&calls, nil)).
		To(output.FileLocation{Path: outPath}).
		Build()
	require.NoError(t, err)

	_, err = p.Execute(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrColumnExists)

	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, StagePrepare, stageErr.Stage)
	assert.Equal(t, 0, calls)

	_, statErr := os.Stat(outPath)
	assert.True(t, os.IsNotExist(statErr))
}

func TestPipeline_PreviewLimit(t *testing.T) {
	texts := make([]*string, 8)
	for i := range texts {
		texts[i] = strPtr(fmt.Sprintf("review number %d", i))
	}
	dbPath := seedDB(t, texts...)

	tests := []struct {
		name    string
		preview int
		want    int
	}{
		{"default", DefaultPreviewRows, 5},
		{"disabled", 0, 0},
		{"more_than_rows", 20, 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			log, logs := observedLogger()
			p, err := NewPipeline().
				From(sqliteSource(dbPath)).
				Score(fixedScorer(&calls, nil)).
				To(output.FileLocation{Path: filepath.Join(t.TempDir(), "out.xlsx")}).
				WithLogger(log).
				WithPreviewRows(tt.preview).
				Build()
			require.NoError(t, err)

			ds, err := p.Execute(context.Background())
			require.NoError(t, err)
			assert.Equal(t, 8, ds.Len())
			assert.Equal(t, tt.want, logs.FilterMessage("Sample").Len())
		})
	}
}

func TestPipeline_WriteFailure(t *testing.T) {
	dbPath := seedDB(t, strPtr("fine"))
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	calls := 0
	p, err := NewPipeline().
		From(sqliteSource(dbPath)).
		Score(fixedScorer(&calls, nil)).
		To(output.FileLocation{Path: filepath.Join(blocker, "out.xlsx")}).
		Build()
	require.NoError(t, err)

	_, err = p.Execute(context.Background())
	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, StageWrite, stageErr.Stage)
}

func TestPipeline_OversizedReviewFailsXLSX(t *testing.T) {
	long := strings.Repeat("great ", 40000/6+1)
	dbPath := seedDB(t, strPtr("fine"), strPtr(long))
	outPath := filepath.Join(t.TempDir(), "out.xlsx")

	calls := 0
	p, err := NewPipeline().
		From(sqliteSource(dbPath)).
		Score(fixedScorer(&calls, nil)).
		To(output.FileLocation{Path: outPath}).
		Build()
	require.NoError(t, err)

	_, err = p.Execute(context.Background())
	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, StageWrite, stageErr.Stage)

	var writerErr *writers.WriterError
	require.ErrorAs(t, err, &writerErr)
	assert.Equal(t, "cell_length", writerErr.Op)
	assert.Contains(t, err.Error(), "column ReviewText")

	// The partial workbook is removed
	_, statErr := os.Stat(outPath)
	assert.True(t, os.IsNotExist(statErr))

	// CSV has no cell limit and keeps the review intact
	csvPath := filepath.Join(t.TempDir(), "out.csv")
	p, err = NewPipeline().
		From(sqliteSource(dbPath)).
		Score(fixedScorer(&calls, nil)).
		To(output.FileLocation{Path: csvPath}).
		Build()
	require.NoError(t, err)
	ds, err := p.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, long, ds.Rows[1]["ReviewText"])

	data, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), long)
}

func TestPipeline_CancelledContext(t *testing.T) {
	dbPath := seedDB(t, strPtr("a"), strPtr("b"))
	calls := 0

	ctx, cancel := context.WithCancel(context.Background())
	scorer := sentiment.ScorerFunc(func(_ context.Context, _ string) (float64, error) {
		calls++
		cancel()
		return 0.5, nil
	})

	outPath := filepath.Join(t.TempDir(), "out.xlsx")
	p, err := NewPipeline().
		From(sqliteSource(dbPath)).
		Score(scorer).
		To(output.FileLocation{Path: outPath}).
		Build()
	require.NoError(t, err)

	_, err = p.Execute(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)

	_, statErr := os.Stat(outPath)
	assert.True(t, os.IsNotExist(statErr))
}

func TestPipelineBuilder_Validation(t *testing.T) {
	calls := 0
	src := sqliteSource("unused.db")
	scorer := fixedScorer(&calls, nil)
	loc := output.FileLocation{Path: "unused.xlsx"}

	_, err := NewPipeline().Score(scorer).To(loc).Build()
	assert.Error(t, err)

	_, err = NewPipeline().From(src).To(loc).Build()
	assert.Error(t, err)

	_, err = NewPipeline().From(src).Score(scorer).Build()
	assert.Error(t, err)

	_, err = NewPipeline().From(src).Score(scorer).To(loc).WithTextColumn("").Build()
	assert.Error(t, err)

	_, err = NewPipeline().From(src).Score(scorer).To(loc).WithPreviewRows(-1).Build()
	assert.Error(t, err)

	_, err = NewPipeline().From(src).Score(scorer).To(loc).WithLogger(nil).Build()
	assert.NoError(t, err)
}

func TestStageError(t *testing.T) {
	cause := errors.New("disk full")
	err := &StageError{Stage: StageWrite, Err: cause}
	assert.Equal(t, "write stage: disk full", err.Error())
	assert.ErrorIs(t, err, cause)
}
