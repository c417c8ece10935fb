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
	"testing"
	"time"

	"github.com/kodimirror/kodimirror/pkg/database"
	"github.com/kodimirror/kodimirror/pkg/database/indexdb"
	"github.com/kodimirror/kodimirror/pkg/testing/helpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var seen = time.Unix(1_750_000_000, 0)

func movieRow(id int64, path string) database.IndexRow {
	return database.IndexRow{
		ExternalID:     &id,
		MediaType:      database.MediaTypeMovie,
		Title:          path,
		Path:           path,
		NormalizedPath: path,
		LastSeenAt:     seen,
	}
}

func insertMovies(t *testing.T, db *indexdb.IndexDB, rows ...database.IndexRow) []database.IndexRow {
	t.Helper()
	out := make([]database.IndexRow, 0, len(rows))
	for _, row := range rows {
		inserted, err := db.InsertItem(context.Background(), row)
		require.NoError(t, err)
		out = append(out, inserted)
	}
	return out
}

func TestSnapshotDiff(t *testing.T) {
	t.Parallel()
	db := helpers.NewInMemoryIndexDB(t)
	ctx := context.Background()

	insertMovies(t, db,
		movieRow(1, "/m/one.mkv"),
		movieRow(2, "/m/two.mkv"),
		movieRow(3, "/m/three.mkv"),
	)

	bw, err := db.NewBatchWriter(ctx, indexdb.BatchOptions{Size: 2})
	require.NoError(t, err)
	for _, id := range []int64{2, 3, 4} {
		require.NoError(t, bw.InsertSnapshotRow(database.SnapshotRow{
			ExternalID: id,
			MediaType:  database.MediaTypeMovie,
		}, seen))
	}
	require.NoError(t, bw.Close())

	count, err := db.CountSnapshot(ctx, database.MediaTypeMovie)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	newIDs, err := db.SnapshotNewIDs(ctx, database.MediaTypeMovie)
	require.NoError(t, err)
	assert.Equal(t, []int64{4}, newIDs)

	removedIDs, err := db.SnapshotRemovedIDs(ctx, database.MediaTypeMovie)
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, removedIDs)

	later := seen.Add(time.Hour)
	touched, err := db.TouchSnapshotExisting(ctx, database.MediaTypeMovie, later)
	require.NoError(t, err)
	assert.Equal(t, 2, touched)

	row, err := db.FindItemByExternalID(ctx, database.MediaTypeMovie, 2)
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, later, row.LastSeenAt)

	episodes, err := db.SnapshotNewIDs(ctx, database.MediaTypeEpisode)
	require.NoError(t, err)
	assert.Empty(t, episodes, "media types do not mix")

	require.NoError(t, db.ClearSnapshot(ctx))
	count, err = db.CountSnapshot(ctx, database.MediaTypeMovie)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestPurgeStaleSnapshot(t *testing.T) {
	t.Parallel()
	db := helpers.NewInMemoryIndexDB(t)
	ctx := context.Background()

	bw, err := db.NewBatchWriter(ctx, indexdb.BatchOptions{Size: 10})
	require.NoError(t, err)
	require.NoError(t, bw.InsertSnapshotRow(database.SnapshotRow{ExternalID: 1, MediaType: database.MediaTypeMovie},
		seen.Add(-2*time.Hour)))
	require.NoError(t, bw.InsertSnapshotRow(database.SnapshotRow{ExternalID: 2, MediaType: database.MediaTypeMovie},
		seen))
	require.NoError(t, bw.Close())

	purged, err := db.PurgeStaleSnapshot(ctx, seen.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)
}

func TestMarkItemRemoved_HidesFromLookups(t *testing.T) {
	t.Parallel()
	db := helpers.NewInMemoryIndexDB(t)
	ctx := context.Background()

	insertMovies(t, db, movieRow(7, "smb://nas/movies/heat.mkv"))

	bw, err := db.NewBatchWriter(ctx, indexdb.BatchOptions{Size: 5})
	require.NoError(t, err)
	require.NoError(t, bw.MarkItemRemoved(database.MediaTypeMovie, 7, seen))
	require.NoError(t, bw.Close())
	assert.Equal(t, 1, bw.Committed())

	rows, err := db.FindItemsByNormalizedPath(ctx, "smb://nas/movies/heat.mkv")
	require.NoError(t, err)
	assert.Empty(t, rows)

	row, err := db.FindItemByExternalID(ctx, database.MediaTypeMovie, 7)
	require.NoError(t, err)
	assert.Nil(t, row)

	live, err := db.CountItems(ctx, database.MediaTypeMovie, false)
	require.NoError(t, err)
	all, err := db.CountItems(ctx, database.MediaTypeMovie, true)
	require.NoError(t, err)
	assert.Equal(t, 0, live)
	assert.Equal(t, 1, all)

	// A removed identity can come back as a new live row.
	insertMovies(t, db, movieRow(7, "smb://nas/movies/heat.mkv"))
	live, err = db.CountItems(ctx, database.MediaTypeMovie, false)
	require.NoError(t, err)
	assert.Equal(t, 1, live)
}

func TestInsertItem_DuplicateLiveIdentity(t *testing.T) {
	t.Parallel()
	db := helpers.NewInMemoryIndexDB(t)

	insertMovies(t, db, movieRow(1, "/a.mkv"))
	_, err := db.InsertItem(context.Background(), movieRow(1, "/b.mkv"))
	require.Error(t, err)
}

func TestPathLookups(t *testing.T) {
	t.Parallel()
	db := helpers.NewInMemoryIndexDB(t)
	ctx := context.Background()

	rows := insertMovies(t, db,
		movieRow(1, `C:\Movies\Alien (1979).mkv`),
		movieRow(2, "/media/a_b.mkv"),
		movieRow(3, "/media/axb.mkv"),
	)

	found, err := db.FindItemsByPathNoCase(ctx, `c:\movies\ALIEN (1979).MKV`)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, rows[0].DBID, found[0].DBID)

	found, err = db.FindItemsByPathFragment(ctx, "a_b")
	require.NoError(t, err)
	require.Len(t, found, 1, "underscore is matched literally")
	assert.Equal(t, rows[1].DBID, found[0].DBID)

	got, err := db.GetItem(ctx, rows[2].DBID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "/media/axb.mkv", got.Path)
	assert.Equal(t, seen, got.LastSeenAt)

	cleared, err := db.ClearItems(ctx, database.MediaTypeMovie)
	require.NoError(t, err)
	assert.Equal(t, int64(3), cleared)

	items, err := db.ListItems(ctx, database.MediaTypeMovie, true)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestFindEpisodeByKey(t *testing.T) {
	t.Parallel()
	db := helpers.NewInMemoryIndexDB(t)
	ctx := context.Background()

	id := int64(205)
	inserted, err := db.InsertItem(ctx, database.IndexRow{
		ExternalID: &id,
		MediaType:  database.MediaTypeEpisode,
		Title:      "Breakage",
		ShowID:     10,
		ShowTitle:  "Breaking Bad",
		Season:     2,
		Episode:    5,
		LastSeenAt: seen,
	})
	require.NoError(t, err)

	row, err := db.FindEpisodeByKey(ctx, database.EpisodeKey{ShowID: 10, Season: 2, Episode: 5})
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, inserted.DBID, row.DBID)
	assert.Equal(t, "Breaking Bad", row.ShowTitle)

	row, err = db.FindEpisodeByKey(ctx, database.EpisodeKey{ShowID: 10, Season: 2, Episode: 6})
	require.NoError(t, err)
	assert.Nil(t, row)
}

func TestScanLogLifecycle(t *testing.T) {
	t.Parallel()
	db := helpers.NewInMemoryIndexDB(t)
	ctx := context.Background()

	first, err := db.StartScanLog(ctx, database.ScanTypeFull, database.MediaTypeMovie, seen)
	require.NoError(t, err)

	entry, err := db.LastScanLog(ctx, database.MediaTypeMovie)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, database.ScanStatusRunning, entry.Status)
	assert.Nil(t, entry.CompletedAt)

	final := &indexdb.ScanLogFinal{
		CompletedAt: seen.Add(time.Minute),
		Status:      database.ScanStatusFailed,
		Error:       "timeout",
		ErrorKind:   "timeout",
		ScanCounts:  database.ScanCounts{Found: 40, Added: 20},
		LastOffset:  20,
	}
	require.NoError(t, db.FinalizeScanLog(ctx, first, final))
	require.ErrorIs(t, db.FinalizeScanLog(ctx, first, final), indexdb.ErrScanLogFinalized)

	second, err := db.StartScanLog(ctx, database.ScanTypeDelta, database.MediaTypeMovie, seen.Add(time.Hour))
	require.NoError(t, err)

	entry, err = db.LastScanLog(ctx, database.MediaTypeMovie)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, second, entry.DBID)

	logs, err := db.ListScanLogs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, second, logs[0].DBID)
	assert.Equal(t, first, logs[1].DBID)
	require.NotNil(t, logs[1].Error)
	assert.Equal(t, "timeout", *logs[1].Error)
	assert.Equal(t, 20, logs[1].LastOffset)
	assert.Equal(t, 40, logs[1].Found)

	none, err := db.LastScanLog(ctx, database.MediaTypeEpisode)
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestReplaceFavorites_RoundTrip(t *testing.T) {
	t.Parallel()
	db := helpers.NewInMemoryIndexDB(t)
	ctx := context.Background()

	rows := insertMovies(t, db,
		movieRow(1, "/a.mkv"),
		movieRow(2, "/b.mkv"),
		movieRow(3, "/c.mkv"),
	)

	members, err := db.ListFavorites(ctx, "favourites")
	require.NoError(t, err)
	assert.Empty(t, members, "missing list has no members")

	previous, err := db.ReplaceFavorites(ctx, "favourites", []int64{rows[2].DBID, rows[0].DBID})
	require.NoError(t, err)
	assert.Empty(t, previous)

	previous, err = db.ReplaceFavorites(ctx, "favourites", []int64{rows[1].DBID})
	require.NoError(t, err)
	assert.Equal(t, []int64{rows[2].DBID, rows[0].DBID}, previous)

	members, err = db.ListFavorites(ctx, "favourites")
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, rows[1].DBID, members[0].Item.DBID)
	assert.Equal(t, 1, members[0].Position)

	other, err := db.ListFavorites(ctx, "bedroom")
	require.NoError(t, err)
	assert.Empty(t, other, "lists are independent")
}

func TestOpen_FileDatabase(t *testing.T) {
	t.Parallel()
	db := helpers.NewFileIndexDB(t)

	assert.NotEmpty(t, db.GetDBPath())
	require.NoError(t, db.MigrateUp(), "migrations are idempotent")
	require.NoError(t, db.Vacuum(context.Background()))
}

func TestGetItem_UnknownMediaType(t *testing.T) {
	t.Parallel()
	db := helpers.NewInMemoryIndexDB(t)
	ctx := context.Background()

	rows := insertMovies(t, db, movieRow(1, "/a.mkv"))
	_, err := db.UnsafeGetSQLDb().ExecContext(ctx,
		"UPDATE Items SET MediaType = 'music' WHERE DBID = ?", rows[0].DBID)
	require.NoError(t, err)

	_, err = db.GetItem(ctx, rows[0].DBID)
	require.ErrorContains(t, err, `unknown media type: "music"`)
}
