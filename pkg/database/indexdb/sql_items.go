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
	"strings"
	"time"

	"github.com/kodimirror/kodimirror/pkg/database"
	"github.com/rs/zerolog/log"
)

const itemColumns = `DBID, ExternalID, MediaType, Title, Year, Path, NormalizedPath,
	IMDbID, TMDbID, TVDbID, IsRemoved, LastSeenAt, AddedAt,
	ShowID, ShowTitle, Season, Episode`

const insertItemSQL = `INSERT INTO Items (
	ExternalID, MediaType, Title, Year, Path, NormalizedPath,
	IMDbID, TMDbID, TVDbID, IsRemoved, LastSeenAt, AddedAt,
	ShowID, ShowTitle, Season, Episode
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?, ?, ?, ?, ?)`

const markRemovedSQL = `UPDATE Items
	SET IsRemoved = 1, LastSeenAt = ?
	WHERE MediaType = ? AND ExternalID = ? AND IsRemoved = 0`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(rs rowScanner) (database.IndexRow, error) {
	var (
		row        database.IndexRow
		externalID sql.NullInt64
		mediaType  string
		removed    int
		lastSeen   int64
	)
	err := rs.Scan(
		&row.DBID,
		&externalID,
		&mediaType,
		&row.Title,
		&row.Year,
		&row.Path,
		&row.NormalizedPath,
		&row.IMDbID,
		&row.TMDbID,
		&row.TVDbID,
		&removed,
		&lastSeen,
		&row.AddedAt,
		&row.ShowID,
		&row.ShowTitle,
		&row.Season,
		&row.Episode,
	)
	if err != nil {
		return row, err
	}
	if externalID.Valid {
		id := externalID.Int64
		row.ExternalID = &id
	}
	row.MediaType, err = database.ParseMediaType(mediaType)
	if err != nil {
		return row, err
	}
	row.IsRemoved = removed != 0
	row.LastSeenAt = time.Unix(lastSeen, 0)
	return row, nil
}

func insertItemArgs(row *database.IndexRow) []any {
	var externalID any
	if row.ExternalID != nil {
		externalID = *row.ExternalID
	}
	return []any{
		externalID,
		string(row.MediaType),
		row.Title,
		row.Year,
		row.Path,
		row.NormalizedPath,
		row.IMDbID,
		row.TMDbID,
		row.TVDbID,
		row.LastSeenAt.Unix(),
		row.AddedAt,
		row.ShowID,
		row.ShowTitle,
		row.Season,
		row.Episode,
	}
}

// InsertItem queues an item insert in the batch.
func (b *BatchWriter) InsertItem(row *database.IndexRow) error {
	_, err := b.Exec(insertItemSQL, insertItemArgs(row)...)
	return err
}

// MarkItemRemoved queues a soft delete of a live item in the batch.
func (b *BatchWriter) MarkItemRemoved(mediaType database.MediaType, externalID int64, seenAt time.Time) error {
	_, err := b.Exec(markRemovedSQL, seenAt.Unix(), string(mediaType), externalID)
	return err
}

// InsertItem inserts a single item and returns it with its DBID set.
func (db *IndexDB) InsertItem(ctx context.Context, row database.IndexRow) (database.IndexRow, error) {
	if db.sql == nil {
		return row, ErrNullSQL
	}
	res, err := db.sql.ExecContext(ctx, insertItemSQL, insertItemArgs(&row)...)
	if err != nil {
		return row, fmt.Errorf("failed to insert item: %w", err)
	}
	lastID, err := res.LastInsertId()
	if err != nil {
		return row, fmt.Errorf("failed to get last insert ID for item: %w", err)
	}
	row.DBID = lastID
	return row, nil
}

// ClearItems hard deletes every item of a media type, ahead of a full
// rebuild.
//
//goland:noinspection SqlWithoutWhere
func (db *IndexDB) ClearItems(ctx context.Context, mediaType database.MediaType) (int64, error) {
	if db.sql == nil {
		return 0, ErrNullSQL
	}
	res, err := db.sql.ExecContext(ctx, `DELETE FROM Items WHERE MediaType = ?`, string(mediaType))
	if err != nil {
		return 0, fmt.Errorf("failed to clear %s items: %w", mediaType, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count cleared items: %w", err)
	}
	return n, nil
}

// CountItems counts live items of a media type, optionally including
// soft deleted ones.
func (db *IndexDB) CountItems(ctx context.Context, mediaType database.MediaType, includeRemoved bool) (int, error) {
	if db.sql == nil {
		return 0, ErrNullSQL
	}
	q := `SELECT COUNT(*) FROM Items WHERE MediaType = ?`
	if !includeRemoved {
		q += ` AND IsRemoved = 0`
	}
	var count int
	if err := db.sql.QueryRowContext(ctx, q, string(mediaType)).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count items: %w", err)
	}
	return count, nil
}

// GetItem returns the item with the given DBID, removed or not.
func (db *IndexDB) GetItem(ctx context.Context, dbid int64) (*database.IndexRow, error) {
	return db.queryOneItem(ctx, `SELECT `+itemColumns+` FROM Items WHERE DBID = ?`, dbid)
}

// FindItemByExternalID returns the live item with a host catalog identity,
// or nil if there is none.
func (db *IndexDB) FindItemByExternalID(
	ctx context.Context,
	mediaType database.MediaType,
	externalID int64,
) (*database.IndexRow, error) {
	return db.queryOneItem(ctx, `SELECT `+itemColumns+` FROM Items
		WHERE MediaType = ? AND ExternalID = ? AND IsRemoved = 0
		LIMIT 1`,
		string(mediaType), externalID,
	)
}

// FindEpisodeByKey returns the live episode matching a show, season and
// episode number, or nil if there is none.
func (db *IndexDB) FindEpisodeByKey(ctx context.Context, key database.EpisodeKey) (*database.IndexRow, error) {
	return db.queryOneItem(ctx, `SELECT `+itemColumns+` FROM Items
		WHERE MediaType = 'episode' AND ShowID = ? AND Season = ? AND Episode = ? AND IsRemoved = 0
		ORDER BY DBID
		LIMIT 1`,
		key.ShowID, key.Season, key.Episode,
	)
}

// FindItemsByNormalizedPath returns live items whose normalized path is
// exactly np.
func (db *IndexDB) FindItemsByNormalizedPath(ctx context.Context, np string) ([]database.IndexRow, error) {
	return db.queryItems(ctx, `SELECT `+itemColumns+` FROM Items
		WHERE NormalizedPath = ? AND IsRemoved = 0
		ORDER BY DBID`,
		np,
	)
}

// FindItemsByPathNoCase returns live items whose raw path equals p,
// ignoring ASCII case.
func (db *IndexDB) FindItemsByPathNoCase(ctx context.Context, p string) ([]database.IndexRow, error) {
	return db.queryItems(ctx, `SELECT `+itemColumns+` FROM Items
		WHERE Path = ? COLLATE NOCASE AND IsRemoved = 0
		ORDER BY DBID`,
		p,
	)
}

// FindItemsByPathFragment returns live items whose normalized path
// contains fragment. The fragment is matched literally.
func (db *IndexDB) FindItemsByPathFragment(ctx context.Context, fragment string) ([]database.IndexRow, error) {
	if fragment == "" {
		return nil, nil
	}
	return db.queryItems(ctx, `SELECT `+itemColumns+` FROM Items
		WHERE NormalizedPath LIKE ? ESCAPE '\' AND IsRemoved = 0
		ORDER BY DBID`,
		"%"+escapeLike(fragment)+"%",
	)
}

// ListItems returns every item of a media type ordered by DBID.
func (db *IndexDB) ListItems(ctx context.Context, mediaType database.MediaType, includeRemoved bool) ([]database.IndexRow, error) {
	q := `SELECT ` + itemColumns + ` FROM Items WHERE MediaType = ?`
	if !includeRemoved {
		q += ` AND IsRemoved = 0`
	}
	return db.queryItems(ctx, q+` ORDER BY DBID`, string(mediaType))
}

func (db *IndexDB) queryOneItem(ctx context.Context, query string, args ...any) (*database.IndexRow, error) {
	if db.sql == nil {
		return nil, ErrNullSQL
	}
	row, err := scanItem(db.sql.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to scan item row: %w", err)
	}
	return &row, nil
}

func (db *IndexDB) queryItems(ctx context.Context, query string, args ...any) ([]database.IndexRow, error) {
	if db.sql == nil {
		return nil, ErrNullSQL
	}
	rows, err := db.sql.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("failed to close rows")
		}
	}()

	items := make([]database.IndexRow, 0)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate items: %w", err)
	}
	return items, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
