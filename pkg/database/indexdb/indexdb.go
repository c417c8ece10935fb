// Kodi Mirror
// Copyright (c) 2026 The Kodi Mirror Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of Kodi Mirror.
//
// Kodi Mirror is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Kodi Mirror is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Kodi Mirror.  If not, see <http://www.gnu.org/licenses/>.

// Package indexdb is the SQLite-backed persisted index. It holds the mirrored
// media items, the transient snapshot table used by delta scans, the scan
// audit log and the materialized favorites list.
package indexdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
)

var ErrNullSQL = errors.New("IndexDB is not connected")

const sqliteConnParams = "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_foreign_keys=on"

type IndexDB struct {
	sql  *sql.DB
	path string
}

// Open opens (creating if needed) the index database at path and applies
// pending migrations.
func Open(ctx context.Context, path string) (*IndexDB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create directory for database: %w", err)
	}

	sqlInstance, err := sql.Open("sqlite3", path+sqliteConnParams)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := sqlInstance.PingContext(ctx); err != nil {
		_ = sqlInstance.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db := &IndexDB{sql: sqlInstance, path: path}
	if err := db.MigrateUp(); err != nil {
		_ = sqlInstance.Close()
		return nil, err
	}

	log.Debug().Str("path", path).Msg("index database opened")
	return db, nil
}

// OpenInMemory opens a private in-memory index. The pool is pinned to a
// single connection because every connection to ":memory:" is a separate
// database.
func OpenInMemory(ctx context.Context) (*IndexDB, error) {
	sqlInstance, err := sql.Open("sqlite3", ":memory:?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory database: %w", err)
	}
	sqlInstance.SetMaxOpenConns(1)
	if err := sqlInstance.PingContext(ctx); err != nil {
		_ = sqlInstance.Close()
		return nil, fmt.Errorf("failed to connect to in-memory database: %w", err)
	}

	db := &IndexDB{sql: sqlInstance, path: ":memory:"}
	if err := db.MigrateUp(); err != nil {
		_ = sqlInstance.Close()
		return nil, err
	}
	return db, nil
}

// NewWithSQL wraps an existing connection without running migrations.
// Used with sqlmock in tests.
func NewWithSQL(sqlDB *sql.DB) *IndexDB {
	return &IndexDB{sql: sqlDB}
}

func (db *IndexDB) GetDBPath() string {
	return db.path
}

func (db *IndexDB) UnsafeGetSQLDb() *sql.DB {
	return db.sql
}

func (db *IndexDB) MigrateUp() error {
	if db.sql == nil {
		return ErrNullSQL
	}
	return sqlMigrateUp(db.sql)
}

func (db *IndexDB) Vacuum(ctx context.Context) error {
	if db.sql == nil {
		return ErrNullSQL
	}
	if _, err := db.sql.ExecContext(ctx, "vacuum;"); err != nil {
		return fmt.Errorf("failed to vacuum database: %w", err)
	}
	return nil
}

func (db *IndexDB) Close() error {
	if db.sql == nil {
		return nil
	}
	if err := db.sql.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

// NewBatchWriter starts a batched writer on this database.
func (db *IndexDB) NewBatchWriter(ctx context.Context, opts BatchOptions) (*BatchWriter, error) {
	if db.sql == nil {
		return nil, ErrNullSQL
	}
	return NewBatchWriter(ctx, db.sql, opts)
}
