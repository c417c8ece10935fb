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

package indexdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
)

// BatchOptions configures a BatchWriter.
type BatchOptions struct {
	// Checkpoint is called every CheckEvery statements, before the
	// statement runs. A non-nil error stops the writer; statements already
	// committed stay committed.
	Checkpoint func() error
	// Size is the number of statements per transaction.
	Size int
	// CheckEvery is the checkpoint interval in statements. Zero disables
	// checkpoints.
	CheckEvery int
}

// BatchWriter executes statements inside short transactions, committing
// every Size statements instead of once per statement or once per pass.
// Prepared statements are cached per transaction.
type BatchWriter struct {
	ctx        context.Context
	db         *sql.DB
	tx         *sql.Tx
	stmts      map[string]*sql.Stmt
	checkpoint func() error
	batchSize  int
	checkEvery int
	pending    int
	total      int
	committed  int
	closed     bool
}

// NewBatchWriter creates a batch writer on db.
func NewBatchWriter(ctx context.Context, db *sql.DB, opts BatchOptions) (*BatchWriter, error) {
	if db == nil {
		return nil, ErrNullSQL
	}
	if opts.Size <= 0 {
		return nil, fmt.Errorf("batch size must be positive, got %d", opts.Size)
	}
	if opts.CheckEvery < 0 {
		return nil, fmt.Errorf("checkpoint interval must not be negative, got %d", opts.CheckEvery)
	}

	return &BatchWriter{
		ctx:        ctx,
		db:         db,
		stmts:      make(map[string]*sql.Stmt),
		checkpoint: opts.Checkpoint,
		batchSize:  opts.Size,
		checkEvery: opts.CheckEvery,
	}, nil
}

// Exec runs one statement in the current batch, committing when the batch
// is full.
func (b *BatchWriter) Exec(query string, args ...any) (sql.Result, error) {
	if b.closed {
		return nil, errors.New("batch writer is closed")
	}

	if b.checkpoint != nil && b.checkEvery > 0 && b.total > 0 && b.total%b.checkEvery == 0 {
		if err := b.checkpoint(); err != nil {
			return nil, err
		}
	}

	if b.tx == nil {
		tx, err := b.db.BeginTx(b.ctx, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to begin batch transaction: %w", err)
		}
		b.tx = tx
	}

	stmt, ok := b.stmts[query]
	if !ok {
		var err error
		stmt, err = b.tx.PrepareContext(b.ctx, query)
		if err != nil {
			return nil, fmt.Errorf("failed to prepare batch statement: %w", err)
		}
		b.stmts[query] = stmt
	}

	res, err := stmt.ExecContext(b.ctx, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute batch statement: %w", err)
	}

	b.pending++
	b.total++

	if b.pending >= b.batchSize {
		if err := b.Commit(); err != nil {
			return res, err
		}
	}

	return res, nil
}

// Commit commits the statements executed since the last commit.
func (b *BatchWriter) Commit() error {
	if b.tx == nil {
		return nil
	}

	b.closeStatements()
	err := b.tx.Commit()
	b.tx = nil
	if err != nil {
		return fmt.Errorf("failed to commit batch transaction: %w", err)
	}

	log.Debug().
		Int("statements", b.pending).
		Int("total", b.total).
		Msg("committed batch")

	b.committed += b.pending
	b.pending = 0
	return nil
}

// Rollback discards statements executed since the last commit and closes
// the writer.
func (b *BatchWriter) Rollback() error {
	b.closed = true
	if b.tx == nil {
		return nil
	}

	b.closeStatements()
	err := b.tx.Rollback()
	b.tx = nil
	b.total -= b.pending
	b.pending = 0
	if err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("failed to rollback batch transaction: %w", err)
	}
	return nil
}

// Close commits any remaining statements.
func (b *BatchWriter) Close() error {
	if b.closed {
		return nil
	}
	b.closed = true
	return b.Commit()
}

// Committed returns the number of statements durably committed.
func (b *BatchWriter) Committed() int {
	return b.committed
}

func (b *BatchWriter) closeStatements() {
	for query, stmt := range b.stmts {
		if err := stmt.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close batch statement")
		}
		delete(b.stmts, query)
	}
}
