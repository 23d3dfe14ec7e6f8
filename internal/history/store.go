// Package history persists review results: a SQLite store for querying
// past reviews and an append-only JSONL audit log safe to share across
// processes. Both implement the review loop's Recorder interface and are
// optional.
package history

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/harrison/greenlight/internal/models"
)

//go:embed schema.sql
var schemaSQL string

// defaultRecentLimit caps Recent queries that pass no explicit limit.
const defaultRecentLimit = 20

// Store persists review results to SQLite.
type Store struct {
	db     *sql.DB
	dbPath string
}

// NewStore opens the review history database, creating the file and schema
// when missing. Pass ":memory:" for an ephemeral store.
func NewStore(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// busy_timeout must come first so the remaining pragmas wait on locks
	// held by concurrent openers of the same file.
	pragmas := []string{
		"PRAGMA busy_timeout=5000",
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA cache_size=-64000",
	}
	for _, pragma := range pragmas {
		if err := execWithRetry(db, pragma, 5, 10*time.Millisecond); err != nil {
			db.Close()
			return nil, fmt.Errorf("set %s: %w", pragma, err)
		}
	}

	if err := execWithRetry(db, schemaSQL, 5, 10*time.Millisecond); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &Store{db: db, dbPath: dbPath}, nil
}

// execWithRetry executes a statement with exponential backoff on
// "database is locked" errors from concurrent initialization.
func execWithRetry(db *sql.DB, stmt string, maxRetries int, baseDelay time.Duration) error {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		_, err := db.Exec(stmt)
		if err == nil {
			return nil
		}
		if !strings.Contains(err.Error(), "database is locked") {
			return err
		}
		lastErr = err
		time.Sleep(baseDelay * time.Duration(1<<attempt))
	}
	return lastErr
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Record stores one review result. Requirements, coverage, and gaps are
// stored as JSON columns.
func (s *Store) Record(ctx context.Context, result *models.ReviewResult) error {
	requirementsJSON := "[]"
	if len(result.Requirements) > 0 {
		data, err := json.Marshal(result.Requirements)
		if err != nil {
			return fmt.Errorf("marshal requirements: %w", err)
		}
		requirementsJSON = string(data)
	}

	coverageJSON := "[]"
	if len(result.Coverage) > 0 {
		data, err := json.Marshal(result.Coverage)
		if err != nil {
			return fmt.Errorf("marshal coverage: %w", err)
		}
		coverageJSON = string(data)
	}

	gapsJSON := "[]"
	if len(result.Gaps) > 0 {
		data, err := json.Marshal(result.Gaps)
		if err != nil {
			return fmt.Errorf("marshal gaps: %w", err)
		}
		gapsJSON = string(data)
	}

	query := `INSERT INTO reviews
		(review_id, task_id, agent_id, iteration, quality_score, completeness_score, correctness_score, overall_score, requirements, coverage, gaps, critical_gaps, major_gaps, minor_gaps, decision, reasoning, duration_ms, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	if _, err := s.db.ExecContext(ctx, query,
		result.ReviewID,
		result.TaskID,
		result.AgentID,
		result.Iteration,
		result.QualityScore,
		result.CompletenessScore,
		result.CorrectnessScore,
		result.OverallScore,
		requirementsJSON,
		coverageJSON,
		gapsJSON,
		result.CriticalGaps,
		result.MajorGaps,
		result.MinorGaps,
		result.Decision,
		result.Reasoning,
		result.DurationMs,
		result.Timestamp,
	); err != nil {
		return fmt.Errorf("insert review: %w", err)
	}

	return nil
}

const reviewColumns = `review_id, task_id, agent_id, iteration, quality_score, completeness_score, correctness_score, overall_score, requirements, coverage, gaps, critical_gaps, major_gaps, minor_gaps, decision, reasoning, duration_ms, timestamp`

// GetByTask returns every review recorded for a task, oldest iteration
// first.
func (s *Store) GetByTask(ctx context.Context, taskID string) ([]*models.ReviewResult, error) {
	query := `SELECT ` + reviewColumns + ` FROM reviews WHERE task_id = ? ORDER BY iteration ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, query, taskID)
	if err != nil {
		return nil, fmt.Errorf("query reviews by task: %w", err)
	}
	defer rows.Close()

	return scanReviews(rows)
}

// Recent returns the latest reviews across all tasks, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]*models.ReviewResult, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	query := `SELECT ` + reviewColumns + ` FROM reviews ORDER BY id DESC LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent reviews: %w", err)
	}
	defer rows.Close()

	return scanReviews(rows)
}

func scanReviews(rows *sql.Rows) ([]*models.ReviewResult, error) {
	var reviews []*models.ReviewResult
	for rows.Next() {
		review := &models.ReviewResult{}
		var requirementsJSON, coverageJSON, gapsJSON string

		if err := rows.Scan(
			&review.ReviewID,
			&review.TaskID,
			&review.AgentID,
			&review.Iteration,
			&review.QualityScore,
			&review.CompletenessScore,
			&review.CorrectnessScore,
			&review.OverallScore,
			&requirementsJSON,
			&coverageJSON,
			&gapsJSON,
			&review.CriticalGaps,
			&review.MajorGaps,
			&review.MinorGaps,
			&review.Decision,
			&review.Reasoning,
			&review.DurationMs,
			&review.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("scan review row: %w", err)
		}

		if err := json.Unmarshal([]byte(requirementsJSON), &review.Requirements); err != nil {
			return nil, fmt.Errorf("unmarshal requirements: %w", err)
		}
		if err := json.Unmarshal([]byte(coverageJSON), &review.Coverage); err != nil {
			return nil, fmt.Errorf("unmarshal coverage: %w", err)
		}
		if err := json.Unmarshal([]byte(gapsJSON), &review.Gaps); err != nil {
			return nil, fmt.Errorf("unmarshal gaps: %w", err)
		}

		reviews = append(reviews, review)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate review rows: %w", err)
	}

	return reviews, nil
}
