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

package fixtures

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/kodimirror/kodimirror/pkg/database"
	"github.com/kodimirror/kodimirror/pkg/helpers/syncutil"
	"github.com/kodimirror/kodimirror/pkg/kodi"
)

// Catalog is an in-memory kodi.Gateway serving a fixed library. Hooks can
// inject failures per call.
type Catalog struct {
	// PageHook runs before each GetPage and fails the call when it returns
	// an error. ErrEmptyPage answers with no items instead.
	PageHook   func(mediaType database.MediaType, offset int) error
	DetailHook func(mediaType database.MediaType, externalID int64) error
	movies     map[int64]database.RemoteItem
	episodes   map[int64]database.RemoteItem
	shows      map[int]database.RemoteShow
	calls      map[string]int
	mu         syncutil.Mutex
}

var _ kodi.Gateway = (*Catalog)(nil)

// ErrEmptyPage makes a PageHook answer with an empty page, as a host does
// when its library shrinks mid-pass.
var ErrEmptyPage = errors.New("empty page")

func NewCatalog() *Catalog {
	return &Catalog{
		movies:   make(map[int64]database.RemoteItem),
		episodes: make(map[int64]database.RemoteItem),
		shows:    make(map[int]database.RemoteShow),
		calls:    make(map[string]int),
	}
}

// AddMovies adds movies to the catalog, replacing any with the same ID.
func (c *Catalog) AddMovies(items ...database.RemoteItem) *Catalog {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, item := range items {
		item.MediaType = database.MediaTypeMovie
		c.movies[item.ExternalID] = item
	}
	return c
}

// AddEpisodes adds episodes to the catalog, replacing any with the same ID.
func (c *Catalog) AddEpisodes(items ...database.RemoteItem) *Catalog {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, item := range items {
		item.MediaType = database.MediaTypeEpisode
		c.episodes[item.ExternalID] = item
	}
	return c
}

func (c *Catalog) AddShows(shows ...database.RemoteShow) *Catalog {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, show := range shows {
		c.shows[show.ID] = show
	}
	return c
}

// Remove deletes an item from the catalog.
func (c *Catalog) Remove(mediaType database.MediaType, externalID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items(mediaType), externalID)
}

// Calls returns how many times a Gateway method was called.
func (c *Catalog) Calls(method string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[method]
}

func (c *Catalog) items(mediaType database.MediaType) map[int64]database.RemoteItem {
	if mediaType == database.MediaTypeEpisode {
		return c.episodes
	}
	return c.movies
}

func (c *Catalog) sorted(mediaType database.MediaType) []database.RemoteItem {
	items := c.items(mediaType)
	out := make([]database.RemoteItem, 0, len(items))
	for _, item := range items {
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ExternalID < out[j].ExternalID
	})
	return out
}

func (c *Catalog) CountItems(_ context.Context, mediaType database.MediaType) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls["CountItems"]++
	return len(c.items(mediaType)), nil
}

func (c *Catalog) GetPage(
	ctx context.Context,
	mediaType database.MediaType,
	offset, limit int,
	_ kodi.PropertySet,
) (kodi.Page, error) {
	if err := ctx.Err(); err != nil {
		return kodi.Page{}, &kodi.RPCError{Kind: kodi.KindTransport, Err: err}
	}

	c.mu.Lock()
	c.calls["GetPage"]++
	hook := c.PageHook
	all := c.sorted(mediaType)
	c.mu.Unlock()

	page := kodi.Page{Total: len(all), Items: []database.RemoteItem{}}
	if hook != nil {
		if err := hook(mediaType, offset); errors.Is(err, ErrEmptyPage) {
			return page, nil
		} else if err != nil {
			return kodi.Page{}, err
		}
	}

	if offset >= len(all) {
		return page, nil
	}
	end := min(offset+limit, len(all))
	page.Items = append(page.Items, all[offset:end]...)
	return page, nil
}

func (c *Catalog) GetItemDetail(
	_ context.Context,
	mediaType database.MediaType,
	externalID int64,
) (*database.RemoteItem, error) {
	c.mu.Lock()
	c.calls["GetItemDetail"]++
	hook := c.DetailHook
	item, ok := c.items(mediaType)[externalID]
	c.mu.Unlock()

	if hook != nil {
		if err := hook(mediaType, externalID); err != nil {
			return nil, err
		}
	}
	if !ok {
		return nil, nil
	}
	return &item, nil
}

func (c *Catalog) GetEpisodeByKey(_ context.Context, key database.EpisodeKey) (*database.RemoteItem, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls["GetEpisodeByKey"]++
	for _, item := range c.episodes {
		if item.ShowID == key.ShowID && item.Season == key.Season && item.Episode == key.Episode {
			return &item, nil
		}
	}
	return nil, nil
}

func (c *Catalog) GetShowDetail(_ context.Context, showID int) (*database.RemoteShow, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls["GetShowDetail"]++
	show, ok := c.shows[showID]
	if !ok {
		return nil, nil
	}
	return &show, nil
}

// Movies builds n movies with IDs from first upward.
func Movies(first int64, n int) []database.RemoteItem {
	items := make([]database.RemoteItem, 0, n)
	for i := range int64(n) {
		id := first + i
		items = append(items, database.RemoteItem{
			MediaType:  database.MediaTypeMovie,
			ExternalID: id,
			Title:      fmt.Sprintf("Movie %d", id),
			Path:       fmt.Sprintf("smb://nas/movies/Movie %d.mkv", id),
			AddedAt:    "2024-01-01 00:00:00",
			Year:       2000 + int(id%20),
		})
	}
	return items
}

// TestShow is a show with episodes used across scanner and matcher tests.
var TestShow = database.RemoteShow{
	ID:     10,
	Title:  "Breaking Bad",
	Year:   2008,
	IMDbID: "tt0903747",
	TVDbID: "81189",
}

// TestEpisodes are episodes of TestShow keyed by season and episode.
var TestEpisodes = []database.RemoteItem{
	{
		ExternalID: 101, Title: "Pilot", ShowID: 10, ShowTitle: "Breaking Bad", Season: 1, Episode: 1,
		Path: "smb://nas/tv/Breaking Bad/S01E01.mkv",
	},
	{
		ExternalID: 205, Title: "Breakage", ShowID: 10, ShowTitle: "Breaking Bad", Season: 2, Episode: 5,
		Path: "smb://nas/tv/Breaking Bad/S02E05.mkv",
	},
}
