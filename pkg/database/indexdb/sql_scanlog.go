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
	"time"

	"github.com/kodimirror/kodimirror/pkg/database"
	"github.com/rs/zerolog/log"
)

// ErrScanLogFinalized is returned when finalizing an entry that was already
// finalized or does not exist.
var ErrScanLogFinalized = errors.New("scan log entry already finalized")

const scanLogColumns = `DBID, ScanType, MediaType, Status, StartedAt, CompletedAt,
	Found, Added, Updated, Removed, LastOffset, Error, ErrorKind`

// StartScanLog records the start of a pass and returns the entry's DBID.
func (db *IndexDB) StartScanLog(
	ctx context.Context,
	scanType database.ScanType,
	mediaType database.MediaType,
	startedAt time.Time,
) (int64, error) {
	if db.sql == nil {
		return 0, ErrNullSQL
	}
	res, err := db.sql.ExecContext(ctx,
		`INSERT INTO ScanLog (ScanType, MediaType, Status, StartedAt) VALUES (?, ?, ?, ?)`,
		string(scanType), string(mediaType), string(database.ScanStatusRunning), startedAt.Unix(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert scan log entry: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get scan log entry ID: %w", err)
	}
	return id, nil
}

// ScanLogFinal is the outcome written when a pass ends.
type ScanLogFinal struct {
	CompletedAt time.Time
	Status      database.ScanStatus
	Error       string
	ErrorKind   string
	database.ScanCounts
	LastOffset int
}

// FinalizeScanLog writes the outcome of a pass. An entry can only be
// finalized once.
func (db *IndexDB) FinalizeScanLog(ctx context.Context, id int64, final *ScanLogFinal) error {
	if db.sql == nil {
		return ErrNullSQL
	}

	var errMsg, errKind any
	if final.Error != "" {
		errMsg = final.Error
	}
	if final.ErrorKind != "" {
		errKind = final.ErrorKind
	}

	res, err := db.sql.ExecContext(ctx, `UPDATE ScanLog SET
		Status = ?, CompletedAt = ?, Found = ?, Added = ?, Updated = ?, Removed = ?,
		LastOffset = ?, Error = ?, ErrorKind = ?
		WHERE DBID = ? AND CompletedAt IS NULL`,
		string(final.Status),
		final.CompletedAt.Unix(),
		final.Found,
		final.Added,
		final.Updated,
		final.Removed,
		final.LastOffset,
		errMsg,
		errKind,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to finalize scan log entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to count finalized scan log entries: %w", err)
	}
	if n == 0 {
		return ErrScanLogFinalized
	}
	return nil
}

// LastScanLog returns the most recent entry for a media type, or nil.
func (db *IndexDB) LastScanLog(ctx context.Context, mediaType database.MediaType) (*database.ScanLogEntry, error) {
	if db.sql == nil {
		return nil, ErrNullSQL
	}
	entry, err := scanScanLog(db.sql.QueryRowContext(ctx, `SELECT `+scanLogColumns+` FROM ScanLog
		WHERE MediaType = ?
		ORDER BY StartedAt DESC, DBID DESC
		LIMIT 1`,
		string(mediaType),
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to scan scan log row: %w", err)
	}
	return &entry, nil
}

// ListScanLogs returns the newest entries first.
func (db *IndexDB) ListScanLogs(ctx context.Context, limit int) ([]database.ScanLogEntry, error) {
	if db.sql == nil {
		return nil, ErrNullSQL
	}
	rows, err := db.sql.QueryContext(ctx, `SELECT `+scanLogColumns+` FROM ScanLog
		ORDER BY StartedAt DESC, DBID DESC
		LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query scan log: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("failed to close rows")
		}
	}()

	entries := make([]database.ScanLogEntry, 0)
	for rows.Next() {
		entry, err := scanScanLog(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan scan log row: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate scan log: %w", err)
	}
	return entries, nil
}

func scanScanLog(rs rowScanner) (database.ScanLogEntry, error) {
	var (
		entry       database.ScanLogEntry
		scanType    string
		mediaType   string
		status      string
		startedAt   int64
		completedAt sql.NullInt64
		errMsg      sql.NullString
		errKind     sql.NullString
	)
	err := rs.Scan(
		&entry.DBID,
		&scanType,
		&mediaType,
		&status,
		&startedAt,
		&completedAt,
		&entry.Found,
		&entry.Added,
		&entry.Updated,
		&entry.Removed,
		&entry.LastOffset,
		&errMsg,
		&errKind,
	)
	if err != nil {
		return entry, err
	}
	entry.ScanType = database.ScanType(scanType)
	entry.MediaType, err = database.ParseMediaType(mediaType)
	if err != nil {
		return entry, err
	}
	entry.Status = database.ScanStatus(status)
	entry.StartedAt = time.Unix(startedAt, 0)
	if completedAt.Valid {
		t := time.Unix(completedAt.Int64, 0)
		entry.CompletedAt = &t
	}
	if errMsg.Valid {
		entry.Error = &errMsg.String
	}
	if errKind.Valid {
		entry.ErrorKind = &errKind.String
	}
	return entry, nil
}
