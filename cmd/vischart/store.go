//
// Tencent is pleased to support the open source community by making trpc-vischart-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-vischart-go is licensed under the Apache License Version 2.0.
//
//

package main

import (
	"context"
	"fmt"

	"trpc.group/trpc-go/trpc-vischart-go/config"
	"trpc.group/trpc-go/trpc-vischart-go/evaluation/evalresult"
	"trpc.group/trpc-go/trpc-vischart-go/evaluation/evalresult/inmemory"
	"trpc.group/trpc-go/trpc-vischart-go/evaluation/evalresult/local"
	"trpc.group/trpc-go/trpc-vischart-go/evaluation/evalresult/mysql"
	"trpc.group/trpc-go/trpc-vischart-go/evaluation/evalresult/sqldb"
	"trpc.group/trpc-go/trpc-vischart-go/evaluation/evalresult/sqlite"
)

func openStore(ctx context.Context, cfg config.StoreConfig) (evalresult.Manager, error) {
	var opts []sqldb.Option
	if cfg.Table != "" {
		opts = append(opts, sqldb.WithTableName(cfg.Table))
	}
	switch cfg.Backend {
	case config.StoreInMemory:
		return inmemory.New(), nil
	case config.StoreLocal:
		return local.New(cfg.Dir)
	case config.StoreSQLite:
		return sqlite.New(ctx, cfg.DSN, opts...)
	case config.StoreMySQL:
		return mysql.New(ctx, cfg.DSN, opts...)
	}
	return nil, fmt.Errorf("unknown store backend: %q", cfg.Backend)
}
