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

package matcher_test

import (
	"context"
	"errors"
	"html"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/kodimirror/kodimirror/pkg/database"
	"github.com/kodimirror/kodimirror/pkg/database/indexdb"
	"github.com/kodimirror/kodimirror/pkg/favorites"
	"github.com/kodimirror/kodimirror/pkg/favorites/matcher"
	"github.com/kodimirror/kodimirror/pkg/kodi"
	"github.com/kodimirror/kodimirror/pkg/testing/fixtures"
	"github.com/kodimirror/kodimirror/pkg/testing/helpers"
	"github.com/kodimirror/kodimirror/pkg/testing/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func entries(t *testing.T, targets ...string) []favorites.Entry {
	t.Helper()
	doc := "<favourites>"
	for _, target := range targets {
		doc += `<favourite name="` + html.EscapeString(target) + `">` + html.EscapeString(target) + "</favourite>"
	}
	doc += "</favourites>"
	parsed := favorites.Parse([]byte(doc))
	require.Len(t, parsed, len(targets))
	return parsed
}

func insertRemote(t *testing.T, db *indexdb.IndexDB, item database.RemoteItem) database.IndexRow {
	t.Helper()
	row, err := db.InsertItem(context.Background(), item.IndexRow(favorites.NormalizePath(item.Path), epoch))
	require.NoError(t, err)
	return row
}

func insertLegacy(t *testing.T, db *indexdb.IndexDB, externalID int64, path string) database.IndexRow {
	t.Helper()
	row, err := db.InsertItem(context.Background(), database.IndexRow{
		ExternalID: &externalID,
		MediaType:  database.MediaTypeMovie,
		Title:      path,
		Path:       path,
		LastSeenAt: epoch,
	})
	require.NoError(t, err)
	return row
}

func movie(id int64, path string) database.RemoteItem {
	return database.RemoteItem{
		MediaType:  database.MediaTypeMovie,
		ExternalID: id,
		Title:      path,
		Path:       path,
	}
}

func newMatcher(db *indexdb.IndexDB, gw kodi.Gateway) *matcher.Matcher {
	return matcher.NewMatcher(db, matcher.NewEpisodeResolver(db, gw, clockwork.NewFakeClockAt(epoch)))
}

func TestMatcher_Cascade(t *testing.T) {
	t.Parallel()

	db := helpers.NewInMemoryIndexDB(t)
	heat := insertRemote(t, db, movie(42, "smb://nas/movies/Heat (1995).mkv"))
	legacy := insertLegacy(t, db, 43, "/media/Legacy.mkv")
	windows := insertLegacy(t, db, 44, `C:\Movies\Ronin.avi`)
	moved := insertRemote(t, db, movie(45, "smb://old-nas/films/Collateral (2004).mkv"))
	insertRemote(t, db, movie(46, "smb://nas/films/Theater.mkv"))

	m := newMatcher(db, fixtures.NewCatalog())

	tests := []struct {
		name   string
		target string
		method matcher.MatchMethod
		dbid   int64
	}{
		{
			name:   "host id",
			target: "videodb://movies/titles/42",
			method: matcher.MatchHostID,
			dbid:   heat.DBID,
		},
		{
			name:   "normalized path",
			target: `PlayMedia("smb://guest:pw@NAS/movies//heat (1995).mkv")`,
			method: matcher.MatchNormalizedPath,
			dbid:   heat.DBID,
		},
		{
			name:   "raw path ignoring case",
			target: "/MEDIA/legacy.mkv",
			method: matcher.MatchRawPath,
			dbid:   legacy.DBID,
		},
		{
			name:   "flipped slashes",
			target: "C:/Movies/Ronin.avi",
			method: matcher.MatchFlippedPath,
			dbid:   windows.DBID,
		},
		{
			name:   "fuzzy file name",
			target: "/mnt/films/Collateral (2004).mkv",
			method: matcher.MatchFuzzy,
			dbid:   moved.DBID,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := entries(t, tt.target)[0]
			match, err := m.Resolve(context.Background(), &entry)
			require.NoError(t, err)
			require.NotNil(t, match.Row)
			assert.Equal(t, tt.method, match.Method)
			assert.Equal(t, tt.dbid, match.Row.DBID)
			assert.False(t, match.Created)
		})
	}
}

func TestMatcher_Unresolvable(t *testing.T) {
	t.Parallel()

	db := helpers.NewInMemoryIndexDB(t)
	insertRemote(t, db, movie(1, "smb://nas/movies/Heat.mkv"))
	m := newMatcher(db, fixtures.NewCatalog())

	for _, target := range []string{
		"videodb://movies/titles/999",
		"videodb://movies/genres/",
		`RunPlugin("plugin://plugin.video.x/?file=Heat.mkv")`,
		"ActivateWindow(Weather)",
		"whatever",
		"/nowhere/Unknown.mkv",
	} {
		entry := entries(t, target)[0]
		match, err := m.Resolve(context.Background(), &entry)
		require.NoError(t, err, target)
		assert.Nil(t, match.Row, target)
		assert.Equal(t, matcher.MatchNone, match.Method, target)
	}
}

func TestMatcher_RemovedRowsDoNotMatch(t *testing.T) {
	t.Parallel()

	db := helpers.NewInMemoryIndexDB(t)
	insertRemote(t, db, movie(7, "smb://nas/movies/Gone.mkv"))

	bw, err := db.NewBatchWriter(context.Background(), indexdb.BatchOptions{Size: 10})
	require.NoError(t, err)
	require.NoError(t, bw.MarkItemRemoved(database.MediaTypeMovie, 7, epoch))
	require.NoError(t, bw.Close())

	m := newMatcher(db, fixtures.NewCatalog())
	for _, target := range []string{"videodb://movies/titles/7", "smb://nas/movies/Gone.mkv"} {
		entry := entries(t, target)[0]
		match, err := m.Resolve(context.Background(), &entry)
		require.NoError(t, err)
		assert.Nil(t, match.Row, target)
	}
}

func TestEpisodeResolver_CreatesMissingEpisode(t *testing.T) {
	t.Parallel()

	db := helpers.NewInMemoryIndexDB(t)
	catalog := fixtures.NewCatalog().
		AddShows(fixtures.TestShow).
		AddEpisodes(fixtures.TestEpisodes...)
	resolver := matcher.NewEpisodeResolver(db, catalog, clockwork.NewFakeClockAt(epoch))
	key := database.EpisodeKey{ShowID: 10, Season: 2, Episode: 5}

	row, created, err := resolver.ResolveOrCreateEpisode(context.Background(), key)
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.True(t, created)
	require.NotNil(t, row.ExternalID)
	assert.Equal(t, int64(205), *row.ExternalID)
	assert.Equal(t, "Breaking Bad", row.ShowTitle)
	assert.Equal(t, "smb://nas/tv/breaking bad/s02e05.mkv", row.NormalizedPath)
	assert.Equal(t, epoch.Unix(), row.LastSeenAt.Unix())

	again, created, err := resolver.ResolveOrCreateEpisode(context.Background(), key)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, row.DBID, again.DBID)

	count, err := db.CountItems(context.Background(), database.MediaTypeEpisode, true)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, 1, catalog.Calls("GetEpisodeByKey"))
	assert.Equal(t, 1, catalog.Calls("GetShowDetail"))
}

func TestEpisodeResolver_UnknownEpisode(t *testing.T) {
	t.Parallel()

	db := helpers.NewInMemoryIndexDB(t)
	catalog := fixtures.NewCatalog().AddShows(fixtures.TestShow)
	resolver := matcher.NewEpisodeResolver(db, catalog, clockwork.NewFakeClockAt(epoch))

	row, created, err := resolver.ResolveOrCreateEpisode(
		context.Background(), database.EpisodeKey{ShowID: 10, Season: 9, Episode: 9})
	require.NoError(t, err)
	assert.Nil(t, row)
	assert.False(t, created)
	assert.Equal(t, 0, catalog.Calls("GetShowDetail"))
}

func TestEpisodeResolver_ReusesRowWithSameHostID(t *testing.T) {
	t.Parallel()

	db := helpers.NewInMemoryIndexDB(t)
	stale := fixtures.TestEpisodes[1]
	stale.MediaType = database.MediaTypeEpisode
	stale.Season = 0
	stale.Episode = 0
	existing := insertRemote(t, db, stale)

	catalog := fixtures.NewCatalog().
		AddShows(fixtures.TestShow).
		AddEpisodes(fixtures.TestEpisodes...)
	resolver := matcher.NewEpisodeResolver(db, catalog, clockwork.NewFakeClockAt(epoch))

	row, created, err := resolver.ResolveOrCreateEpisode(
		context.Background(), database.EpisodeKey{ShowID: 10, Season: 2, Episode: 5})
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.False(t, created)
	assert.Equal(t, existing.DBID, row.DBID)
}

func TestEpisodeResolver_GatewayError(t *testing.T) {
	t.Parallel()

	db := helpers.NewInMemoryIndexDB(t)
	rpcErr := &kodi.RPCError{Kind: kodi.KindTimeout, Err: context.DeadlineExceeded}
	gw := mocks.NewMockGateway()
	gw.On("GetEpisodeByKey", mock.Anything, mock.Anything).Return(nil, rpcErr)

	resolver := matcher.NewEpisodeResolver(db, gw, nil)
	_, _, err := resolver.ResolveOrCreateEpisode(
		context.Background(), database.EpisodeKey{ShowID: 1, Season: 1, Episode: 1})
	require.Error(t, err)
	var got *kodi.RPCError
	require.True(t, errors.As(err, &got))
	assert.Equal(t, kodi.KindTimeout, got.Kind)
}
