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

package matcher

import (
	"context"
	"fmt"

	"github.com/jonboulle/clockwork"
	"github.com/kodimirror/kodimirror/pkg/database"
	"github.com/kodimirror/kodimirror/pkg/database/indexdb"
	"github.com/kodimirror/kodimirror/pkg/favorites"
	"github.com/kodimirror/kodimirror/pkg/kodi"
	"github.com/rs/zerolog/log"
)

// EpisodeResolver looks up episodes by show, season and episode number and
// indexes them on demand. Episodes referenced by favourites are not
// guaranteed to have been scanned yet.
type EpisodeResolver struct {
	db      *indexdb.IndexDB
	gateway kodi.Gateway
	clock   clockwork.Clock
}

func NewEpisodeResolver(db *indexdb.IndexDB, gateway kodi.Gateway, clock clockwork.Clock) *EpisodeResolver {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &EpisodeResolver{db: db, gateway: gateway, clock: clock}
}

// ResolveOrCreateEpisode returns the live index row for key. When the index
// has none, the episode and its show are fetched from the gateway and one
// row is inserted; created reports that. An episode the host does not know
// returns a nil row and no error.
func (r *EpisodeResolver) ResolveOrCreateEpisode(
	ctx context.Context,
	key database.EpisodeKey,
) (row *database.IndexRow, created bool, err error) {
	row, err = r.db.FindEpisodeByKey(ctx, key)
	if err != nil {
		return nil, false, fmt.Errorf("failed to look up episode %s: %w", key, err)
	}
	if row != nil {
		return row, false, nil
	}

	remote, err := r.gateway.GetEpisodeByKey(ctx, key)
	if err != nil {
		return nil, false, fmt.Errorf("failed to fetch episode %s: %w", key, err)
	}
	if remote == nil {
		log.Debug().Stringer("key", key).Msg("episode not found on host")
		return nil, false, nil
	}

	// The row may exist under its host ID with stale numbering.
	existing, err := r.db.FindItemByExternalID(ctx, database.MediaTypeEpisode, remote.ExternalID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to look up episode %d: %w", remote.ExternalID, err)
	}
	if existing != nil {
		return existing, false, nil
	}

	show, err := r.gateway.GetShowDetail(ctx, key.ShowID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to fetch show %d: %w", key.ShowID, err)
	}

	remote.MediaType = database.MediaTypeEpisode
	if remote.ShowID == 0 {
		remote.ShowID = key.ShowID
	}
	if show != nil {
		if show.Title != "" {
			remote.ShowTitle = show.Title
		}
		if remote.IMDbID == "" {
			remote.IMDbID = show.IMDbID
		}
		if remote.TVDbID == "" {
			remote.TVDbID = show.TVDbID
		}
		if remote.Year == 0 {
			remote.Year = show.Year
		}
	}

	inserted, err := r.db.InsertItem(ctx, remote.IndexRow(favorites.NormalizePath(remote.Path), r.clock.Now()))
	if err != nil {
		return nil, false, fmt.Errorf("failed to index episode %s: %w", key, err)
	}
	log.Info().
		Stringer("key", key).
		Int64("externalId", remote.ExternalID).
		Int64("dbid", inserted.DBID).
		Msg("indexed episode on demand")
	return &inserted, true, nil
}
