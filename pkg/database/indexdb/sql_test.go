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

package indexdb_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/kodimirror/kodimirror/pkg/database"
	"github.com/kodimirror/kodimirror/pkg/database/indexdb"
	testsqlmock "github.com/kodimirror/kodimirror/pkg/testing/sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var itemCols = []string{
	"DBID", "ExternalID", "MediaType", "Title", "Year", "Path", "NormalizedPath",
	"IMDbID", "TMDbID", "TVDbID", "IsRemoved", "LastSeenAt", "AddedAt",
	"ShowID", "ShowTitle", "Season", "Episode",
}

func TestReplaceFavorites_Success(t *testing.T) {
	t.Parallel()
	db, mock := testsqlmock.NewMockIndexDB(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT OR IGNORE INTO FavoriteLists`).
		WithArgs("favourites").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT DBID FROM FavoriteLists WHERE Name = \?`).
		WithArgs("favourites").
		WillReturnRows(sqlmock.NewRows([]string{"DBID"}).AddRow(7))
	mock.ExpectQuery(`SELECT ItemDBID FROM FavoriteMembers WHERE ListDBID = \? ORDER BY Position`).
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"ItemDBID"}).AddRow(3).AddRow(4))
	mock.ExpectExec(`DELETE FROM FavoriteMembers WHERE ListDBID = \?`).
		WithArgs(7).
		WillReturnResult(sqlmock.NewResult(0, 2))
	prep := mock.ExpectPrepare(`INSERT INTO FavoriteMembers`)
	prep.ExpectExec().WithArgs(7, 10, 1).WillReturnResult(sqlmock.NewResult(1, 1))
	prep.ExpectExec().WithArgs(7, 3, 2).WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	previous, err := db.ReplaceFavorites(context.Background(), "favourites", []int64{10, 3})
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 4}, previous)
}

func TestReplaceFavorites_InsertErrorRollsBack(t *testing.T) {
	t.Parallel()
	db, mock := testsqlmock.NewMockIndexDB(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT OR IGNORE INTO FavoriteLists`).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery(`SELECT DBID FROM FavoriteLists`).
		WillReturnRows(sqlmock.NewRows([]string{"DBID"}).AddRow(1))
	mock.ExpectQuery(`SELECT ItemDBID FROM FavoriteMembers`).
		WillReturnRows(sqlmock.NewRows([]string{"ItemDBID"}))
	mock.ExpectExec(`DELETE FROM FavoriteMembers`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectPrepare(`INSERT INTO FavoriteMembers`).
		ExpectExec().
		WithArgs(1, 10, 1).
		WillReturnError(errors.New("FOREIGN KEY constraint failed"))
	mock.ExpectRollback()

	previous, err := db.ReplaceFavorites(context.Background(), "favourites", []int64{10})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to insert favorite member 10")
	assert.Nil(t, previous)
}

func TestFinalizeScanLog_AlreadyFinalized(t *testing.T) {
	t.Parallel()
	db, mock := testsqlmock.NewMockIndexDB(t)

	mock.ExpectExec(`(?s)UPDATE ScanLog SET.*WHERE DBID = \? AND CompletedAt IS NULL`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := db.FinalizeScanLog(context.Background(), 42, &indexdb.ScanLogFinal{
		CompletedAt: time.Unix(1000, 0),
		Status:      database.ScanStatusCompleted,
	})
	require.ErrorIs(t, err, indexdb.ErrScanLogFinalized)
}

func TestFinalizeScanLog_StoresNullErrorWhenEmpty(t *testing.T) {
	t.Parallel()
	db, mock := testsqlmock.NewMockIndexDB(t)

	mock.ExpectExec(`UPDATE ScanLog SET`).
		WithArgs("completed", int64(1000), 5, 5, 0, 0, 0, nil, nil, int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := db.FinalizeScanLog(context.Background(), 42, &indexdb.ScanLogFinal{
		CompletedAt: time.Unix(1000, 0),
		Status:      database.ScanStatusCompleted,
		ScanCounts:  database.ScanCounts{Found: 5, Added: 5},
	})
	require.NoError(t, err)
}

func TestFindItemByExternalID_NotFound(t *testing.T) {
	t.Parallel()
	db, mock := testsqlmock.NewMockIndexDB(t)

	mock.ExpectQuery(`FROM Items\s+WHERE MediaType = \? AND ExternalID = \? AND IsRemoved = 0`).
		WithArgs("movie", int64(5)).
		WillReturnRows(sqlmock.NewRows(itemCols))

	row, err := db.FindItemByExternalID(context.Background(), database.MediaTypeMovie, 5)
	require.NoError(t, err)
	assert.Nil(t, row)
}

func TestFindItemsByPathFragment_EscapesLikeWildcards(t *testing.T) {
	t.Parallel()
	db, mock := testsqlmock.NewMockIndexDB(t)

	mock.ExpectQuery(`WHERE NormalizedPath LIKE \? ESCAPE`).
		WithArgs(`%100\%\_done%`).
		WillReturnRows(sqlmock.NewRows(itemCols).AddRow(
			9, nil, "movie", "Done", 2001, "/media/100%_done.mkv", "/media/100%_done.mkv",
			"", "", "", 0, int64(1700000000), "", 0, "", 0, 0,
		))

	rows, err := db.FindItemsByPathFragment(context.Background(), "100%_done")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(9), rows[0].DBID)
	assert.Nil(t, rows[0].ExternalID, "NULL identity marks a legacy row")
	assert.False(t, rows[0].IsRemoved)
	assert.Equal(t, time.Unix(1700000000, 0), rows[0].LastSeenAt)
}

func TestFindItemsByPathFragment_EmptyFragment(t *testing.T) {
	t.Parallel()
	db, _ := testsqlmock.NewMockIndexDB(t)

	rows, err := db.FindItemsByPathFragment(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestCountItems_QueryError(t *testing.T) {
	t.Parallel()
	db, mock := testsqlmock.NewMockIndexDB(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM Items WHERE MediaType = \? AND IsRemoved = 0`).
		WithArgs("episode").
		WillReturnError(sqlmock.ErrCancelled)

	_, err := db.CountItems(context.Background(), database.MediaTypeEpisode, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to count items")
}

func TestNullSQL(t *testing.T) {
	t.Parallel()
	db := indexdb.NewWithSQL(nil)
	ctx := context.Background()

	_, err := db.CountItems(ctx, database.MediaTypeMovie, false)
	require.ErrorIs(t, err, indexdb.ErrNullSQL)
	_, err = db.ReplaceFavorites(ctx, "favourites", nil)
	require.ErrorIs(t, err, indexdb.ErrNullSQL)
	_, err = db.NewBatchWriter(ctx, indexdb.BatchOptions{Size: 1})
	require.ErrorIs(t, err, indexdb.ErrNullSQL)
	require.NoError(t, db.Close())
}

func TestBatchWriter_CommitsEverySize(t *testing.T) {
	t.Parallel()
	db, mock := testsqlmock.NewMockIndexDB(t)
	created := time.Unix(2000, 0)

	mock.ExpectBegin()
	first := mock.ExpectPrepare(`INSERT OR REPLACE INTO Snapshot`)
	first.ExpectExec().WithArgs(int64(1), "movie", "A", "/a", "", int64(2000)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	first.ExpectExec().WithArgs(int64(2), "movie", "B", "/b", "", int64(2000)).
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()
	mock.ExpectBegin()
	second := mock.ExpectPrepare(`INSERT OR REPLACE INTO Snapshot`)
	second.ExpectExec().WithArgs(int64(3), "movie", "C", "/c", "", int64(2000)).
		WillReturnResult(sqlmock.NewResult(3, 1))
	mock.ExpectCommit()

	bw, err := db.NewBatchWriter(context.Background(), indexdb.BatchOptions{Size: 2})
	require.NoError(t, err)

	for i, title := range []string{"A", "B", "C"} {
		require.NoError(t, bw.InsertSnapshotRow(database.SnapshotRow{
			ExternalID: int64(i + 1),
			MediaType:  database.MediaTypeMovie,
			Title:      title,
			Path:       "/" + string(rune('a'+i)),
		}, created))
	}
	assert.Equal(t, 2, bw.Committed())

	require.NoError(t, bw.Close())
	assert.Equal(t, 3, bw.Committed())
	require.NoError(t, bw.Close(), "second close is a no-op")
}

func TestBatchWriter_CheckpointStopsWriter(t *testing.T) {
	t.Parallel()
	db, mock := testsqlmock.NewMockIndexDB(t)
	errStop := errors.New("stop")

	mock.ExpectBegin()
	prep := mock.ExpectPrepare(`UPDATE Items\s+SET IsRemoved = 1`)
	prep.ExpectExec().WithArgs(int64(50), "movie", int64(1)).WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().WithArgs(int64(50), "movie", int64(2)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectRollback()

	checks := 0
	bw, err := db.NewBatchWriter(context.Background(), indexdb.BatchOptions{
		Size:       10,
		CheckEvery: 2,
		Checkpoint: func() error {
			checks++
			return errStop
		},
	})
	require.NoError(t, err)

	seen := time.Unix(50, 0)
	require.NoError(t, bw.MarkItemRemoved(database.MediaTypeMovie, 1, seen))
	require.NoError(t, bw.MarkItemRemoved(database.MediaTypeMovie, 2, seen))
	err = bw.MarkItemRemoved(database.MediaTypeMovie, 3, seen)
	require.ErrorIs(t, err, errStop)
	assert.Equal(t, 1, checks)

	require.NoError(t, bw.Rollback())
	assert.Zero(t, bw.Committed())

	_, err = bw.Exec("SELECT 1")
	require.Error(t, err, "writer is closed after rollback")
}

func TestNewBatchWriter_RejectsBadOptions(t *testing.T) {
	t.Parallel()
	db, _ := testsqlmock.NewMockIndexDB(t)

	_, err := db.NewBatchWriter(context.Background(), indexdb.BatchOptions{})
	require.ErrorContains(t, err, "batch size must be positive")
	_, err = db.NewBatchWriter(context.Background(), indexdb.BatchOptions{Size: 1, CheckEvery: -1})
	require.ErrorContains(t, err, "checkpoint interval")
}
