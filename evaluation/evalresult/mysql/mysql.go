//
// Tencent is pleased to support the open source community by making trpc-vischart-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-vischart-go is licensed under the Apache License Version 2.0.
//
//

// Package mysql stores run results in a MySQL table.
package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"trpc.group/trpc-go/trpc-vischart-go/evaluation/evalresult/sqldb"
)

const driverName = "mysql"

// NormalizeDSN parses dsn and enables time parsing so TIMESTAMP columns scan
// into time.Time.
func NormalizeDSN(dsn string) (string, error) {
	if dsn == "" {
		return "", errors.New("mysql dsn is empty")
	}
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("parse mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	return cfg.FormatDSN(), nil
}

// New connects to the database named by dsn.
func New(ctx context.Context, dsn string, opt ...sqldb.Option) (*sqldb.Manager, error) {
	normalized, err := NormalizeDSN(dsn)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(driverName, normalized)
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping mysql: %w", err)
	}
	m, err := sqldb.New(ctx, db, opt...)
	if err != nil {
		db.Close()
		return nil, err
	}
	return m, nil
}
