//
// Tencent is pleased to support the open source community by making trpc-vischart-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-vischart-go is licensed under the Apache License Version 2.0.
//
//

// Package sqldb stores run results in a SQL table through database/sql.
//
// Statements use "?" placeholders and REPLACE INTO, which MySQL and SQLite
// both accept.
package sqldb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"

	"trpc.group/trpc-go/trpc-vischart-go/evaluation/evalresult"
)

const defaultTableName = "vischart_eval_runs"

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Option configures a Manager.
type Option func(*options)

type options struct {
	tableName  string
	skipDBInit bool
}

// WithTableName overrides the table name.
func WithTableName(name string) Option {
	return func(o *options) { o.tableName = name }
}

// WithSkipDBInit skips the CREATE TABLE statement.
func WithSkipDBInit(skip bool) Option {
	return func(o *options) { o.skipDBInit = skip }
}

// Manager is a SQL-backed evalresult.Manager.
type Manager struct {
	db    *sql.DB
	table string
}

// New wraps db and creates the results table unless disabled.
func New(ctx context.Context, db *sql.DB, opt ...Option) (*Manager, error) {
	if db == nil {
		return nil, errors.New("db is nil")
	}
	opts := &options{tableName: defaultTableName}
	for _, o := range opt {
		o(opts)
	}
	if !tableNamePattern.MatchString(opts.tableName) {
		return nil, fmt.Errorf("invalid table name %q", opts.tableName)
	}
	m := &Manager{db: db, table: opts.tableName}
	if !opts.skipDBInit {
		if err := m.init(ctx); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Manager) init(ctx context.Context) error {
	stmt := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
  run_id VARCHAR(64) NOT NULL PRIMARY KEY,
  created_at TIMESTAMP NOT NULL,
  reference_name VARCHAR(512) NOT NULL,
  candidate_name VARCHAR(512) NOT NULL,
  turn_accuracy DOUBLE NOT NULL,
  dialogue_accuracy DOUBLE NOT NULL,
  result LONGTEXT NOT NULL
)`, m.table)
	if _, err := m.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("create table %s: %w", m.table, err)
	}
	return nil
}

// Save upserts the run row.
func (m *Manager) Save(ctx context.Context, run *evalresult.RunResult) (string, error) {
	if run == nil {
		return "", errors.New("run result is nil")
	}
	if run.RunID == "" {
		return "", errors.New("run id is empty")
	}
	b, err := json.Marshal(run)
	if err != nil {
		return "", fmt.Errorf("encode run %s: %w", run.RunID, err)
	}
	var turnAcc, dialogueAcc float64
	if run.Summary != nil {
		turnAcc = run.Summary.TurnAccuracy
		dialogueAcc = run.Summary.DialogueAccuracy
	}
	stmt := fmt.Sprintf(`REPLACE INTO %s (run_id, created_at, reference_name, candidate_name,
  turn_accuracy, dialogue_accuracy, result) VALUES (?, ?, ?, ?, ?, ?, ?)`, m.table)
	if _, err := m.db.ExecContext(ctx, stmt, run.RunID, run.CreatedAt.UTC(), run.Reference, run.Candidate,
		turnAcc, dialogueAcc, string(b)); err != nil {
		return "", fmt.Errorf("save run %s: %w", run.RunID, err)
	}
	return run.RunID, nil
}

// Get loads a run.
func (m *Manager) Get(ctx context.Context, runID string) (*evalresult.RunResult, error) {
	stmt := fmt.Sprintf(`SELECT result FROM %s WHERE run_id = ?`, m.table)
	var raw string
	if err := m.db.QueryRowContext(ctx, stmt, runID).Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("get run %s: %w", runID, evalresult.ErrNotFound)
		}
		return nil, fmt.Errorf("get run %s: %w", runID, err)
	}
	var run evalresult.RunResult
	if err := json.Unmarshal([]byte(raw), &run); err != nil {
		return nil, fmt.Errorf("decode run %s: %w", runID, err)
	}
	return &run, nil
}

// List returns run ids ordered by creation time.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	stmt := fmt.Sprintf(`SELECT run_id FROM %s ORDER BY created_at, run_id`, m.table)
	rows, err := m.db.QueryContext(ctx, stmt)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan run id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return ids, nil
}

// Close closes the underlying database.
func (m *Manager) Close() error {
	return m.db.Close()
}
