//
// Tencent is pleased to support the open source community by making trpc-vischart-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-vischart-go is licensed under the Apache License Version 2.0.
//
//

// Package sqlite stores run results in a SQLite database file.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	// Registers the sqlite3 driver.
	_ "github.com/mattn/go-sqlite3"

	"trpc.group/trpc-go/trpc-vischart-go/evaluation/evalresult/sqldb"
)

const driverName = "sqlite3"

// New opens (or creates) the database at path.
func New(ctx context.Context, path string, opt ...sqldb.Option) (*sqldb.Manager, error) {
	if path == "" {
		return nil, errors.New("sqlite path is empty")
	}
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// One writer at a time.
	db.SetMaxOpenConns(1)
	m, err := sqldb.New(ctx, db, opt...)
	if err != nil {
		db.Close()
		return nil, err
	}
	return m, nil
}
