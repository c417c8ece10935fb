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
	"fmt"
	"time"

	"github.com/kodimirror/kodimirror/pkg/database"
	"github.com/rs/zerolog/log"
)

const insertSnapshotSQL = `INSERT OR REPLACE INTO Snapshot
	(ExternalID, MediaType, Title, Path, AddedAt, CreatedAt)
	VALUES (?, ?, ?, ?, ?, ?)`

// Identities in the snapshot with no live index row.
const snapshotNewSQL = `SELECT s.ExternalID FROM Snapshot s
	WHERE s.MediaType = ?
	AND NOT EXISTS (
		SELECT 1 FROM Items i
		WHERE i.MediaType = s.MediaType
		AND i.ExternalID = s.ExternalID
		AND i.IsRemoved = 0
	)
	ORDER BY s.ExternalID`

// Live index identities missing from the snapshot.
const snapshotRemovedSQL = `SELECT i.ExternalID FROM Items i
	WHERE i.MediaType = ?
	AND i.IsRemoved = 0
	AND i.ExternalID IS NOT NULL
	AND NOT EXISTS (
		SELECT 1 FROM Snapshot s
		WHERE s.MediaType = i.MediaType
		AND s.ExternalID = i.ExternalID
	)
	ORDER BY i.ExternalID`

// Live index identities present in the snapshot, touched in place.
const snapshotTouchSQL = `UPDATE Items SET LastSeenAt = ?
	WHERE MediaType = ?
	AND IsRemoved = 0
	AND EXISTS (
		SELECT 1 FROM Snapshot s
		WHERE s.MediaType = Items.MediaType
		AND s.ExternalID = Items.ExternalID
	)`

// InsertSnapshotRow queues a snapshot row in the batch.
func (b *BatchWriter) InsertSnapshotRow(row database.SnapshotRow, createdAt time.Time) error {
	_, err := b.Exec(insertSnapshotSQL,
		row.ExternalID,
		string(row.MediaType),
		row.Title,
		row.Path,
		row.AddedAt,
		createdAt.Unix(),
	)
	return err
}

// ClearSnapshot truncates the snapshot table.
//
//goland:noinspection SqlWithoutWhere
func (db *IndexDB) ClearSnapshot(ctx context.Context) error {
	if db.sql == nil {
		return ErrNullSQL
	}
	if _, err := db.sql.ExecContext(ctx, `DELETE FROM Snapshot`); err != nil {
		return fmt.Errorf("failed to clear snapshot: %w", err)
	}
	return nil
}

// PurgeStaleSnapshot deletes snapshot rows created before cutoff, left
// behind by an interrupted pass.
func (db *IndexDB) PurgeStaleSnapshot(ctx context.Context, cutoff time.Time) (int64, error) {
	if db.sql == nil {
		return 0, ErrNullSQL
	}
	res, err := db.sql.ExecContext(ctx, `DELETE FROM Snapshot WHERE CreatedAt < ?`, cutoff.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to purge stale snapshot rows: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count purged snapshot rows: %w", err)
	}
	return n, nil
}

// CountSnapshot counts the snapshot rows of a media type.
func (db *IndexDB) CountSnapshot(ctx context.Context, mediaType database.MediaType) (int, error) {
	if db.sql == nil {
		return 0, ErrNullSQL
	}
	var count int
	err := db.sql.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM Snapshot WHERE MediaType = ?`,
		string(mediaType),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count snapshot rows: %w", err)
	}
	return count, nil
}

// SnapshotNewIDs returns identities present in the snapshot but not live
// in the index.
func (db *IndexDB) SnapshotNewIDs(ctx context.Context, mediaType database.MediaType) ([]int64, error) {
	return db.queryIDs(ctx, snapshotNewSQL, string(mediaType))
}

// SnapshotRemovedIDs returns identities live in the index but absent from
// the snapshot.
func (db *IndexDB) SnapshotRemovedIDs(ctx context.Context, mediaType database.MediaType) ([]int64, error) {
	return db.queryIDs(ctx, snapshotRemovedSQL, string(mediaType))
}

// TouchSnapshotExisting refreshes LastSeenAt for every live item that is
// also in the snapshot and returns how many rows were touched.
func (db *IndexDB) TouchSnapshotExisting(
	ctx context.Context,
	mediaType database.MediaType,
	seenAt time.Time,
) (int, error) {
	if db.sql == nil {
		return 0, ErrNullSQL
	}
	res, err := db.sql.ExecContext(ctx, snapshotTouchSQL, seenAt.Unix(), string(mediaType))
	if err != nil {
		return 0, fmt.Errorf("failed to touch existing items: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count touched items: %w", err)
	}
	return int(n), nil
}

func (db *IndexDB) queryIDs(ctx context.Context, query string, args ...any) ([]int64, error) {
	if db.sql == nil {
		return nil, ErrNullSQL
	}
	rows, err := db.sql.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query identities: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("failed to close rows")
		}
	}()

	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan identity: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate identities: %w", err)
	}
	return ids, nil
}
