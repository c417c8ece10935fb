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

	"github.com/kodimirror/kodimirror/pkg/database"
	"github.com/rs/zerolog/log"
)

func ensureFavoriteList(ctx context.Context, tx *sql.Tx, name string) (int64, error) {
	_, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO FavoriteLists (Name) VALUES (?)`, name)
	if err != nil {
		return 0, fmt.Errorf("failed to create favorites list: %w", err)
	}
	var id int64
	err = tx.QueryRowContext(ctx, `SELECT DBID FROM FavoriteLists WHERE Name = ?`, name).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to find favorites list: %w", err)
	}
	return id, nil
}

func memberIDs(ctx context.Context, tx *sql.Tx, listID int64) ([]int64, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT ItemDBID FROM FavoriteMembers WHERE ListDBID = ? ORDER BY Position`,
		listID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query favorite members: %w", err)
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
			return nil, fmt.Errorf("failed to scan favorite member: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate favorite members: %w", err)
	}
	return ids, nil
}

// ReplaceFavorites makes the named list contain exactly itemIDs, in order,
// in one transaction. The list is created if missing. Returns the member
// IDs the list held before.
func (db *IndexDB) ReplaceFavorites(ctx context.Context, listName string, itemIDs []int64) (previous []int64, err error) {
	if db.sql == nil {
		return nil, ErrNullSQL
	}

	tx, err := db.sql.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin favorites transaction: %w", err)
	}
	defer func() {
		if err == nil {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			log.Error().Err(rbErr).Msg("failed to rollback favorites transaction")
		}
	}()

	listID, err := ensureFavoriteList(ctx, tx, listName)
	if err != nil {
		return nil, err
	}

	previous, err = memberIDs(ctx, tx, listID)
	if err != nil {
		return nil, err
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM FavoriteMembers WHERE ListDBID = ?`, listID); err != nil {
		return nil, fmt.Errorf("failed to clear favorite members: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO FavoriteMembers (ListDBID, ItemDBID, Position) VALUES (?, ?, ?)`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare favorite member insert: %w", err)
	}
	defer func() {
		if closeErr := stmt.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("failed to close sql statement")
		}
	}()

	for i, itemID := range itemIDs {
		if _, err = stmt.ExecContext(ctx, listID, itemID, i+1); err != nil {
			return nil, fmt.Errorf("failed to insert favorite member %d: %w", itemID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit favorites transaction: %w", err)
	}
	return previous, nil
}

// ListFavorites returns the members of the named list in position order.
// A missing list has no members.
func (db *IndexDB) ListFavorites(ctx context.Context, listName string) ([]database.FavoriteMember, error) {
	if db.sql == nil {
		return nil, ErrNullSQL
	}
	rows, err := db.sql.QueryContext(ctx, `SELECT m.Position, `+prefixedItemColumns("i")+`
		FROM FavoriteMembers m
		JOIN FavoriteLists l ON l.DBID = m.ListDBID
		JOIN Items i ON i.DBID = m.ItemDBID
		WHERE l.Name = ?
		ORDER BY m.Position`,
		listName,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query favorites: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("failed to close rows")
		}
	}()

	members := make([]database.FavoriteMember, 0)
	for rows.Next() {
		var position int
		item, err := scanItem(prefixScanner{rows: rows, prefix: &position})
		if err != nil {
			return nil, fmt.Errorf("failed to scan favorite: %w", err)
		}
		members = append(members, database.FavoriteMember{Item: item, Position: position})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate favorites: %w", err)
	}
	return members, nil
}

// prefixScanner scans one leading column before the item columns.
type prefixScanner struct {
	rows   *sql.Rows
	prefix any
}

func (p prefixScanner) Scan(dest ...any) error {
	return p.rows.Scan(append([]any{p.prefix}, dest...)...)
}

func prefixedItemColumns(alias string) string {
	cols := []string{
		"DBID", "ExternalID", "MediaType", "Title", "Year", "Path", "NormalizedPath",
		"IMDbID", "TMDbID", "TVDbID", "IsRemoved", "LastSeenAt", "AddedAt",
		"ShowID", "ShowTitle", "Season", "Episode",
	}
	out := ""
	for i, c := range cols {
		if i > 0 {
			out += ", "
		}
		out += alias + "." + c
	}
	return out
}
