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

// Package matcher resolves parsed favourites to rows of the persisted index
// and materializes them as an ordered favorites list.
package matcher

import (
	"context"
	"fmt"
	"strings"

	"github.com/kodimirror/kodimirror/pkg/database"
	"github.com/kodimirror/kodimirror/pkg/database/indexdb"
	"github.com/kodimirror/kodimirror/pkg/favorites"
	"github.com/rs/zerolog/log"
)

// MatchMethod names the cascade step that resolved an entry.
type MatchMethod string

const (
	MatchNone           MatchMethod = ""
	MatchHostID         MatchMethod = "host-id"
	MatchEpisodeKey     MatchMethod = "episode-key"
	MatchNormalizedPath MatchMethod = "normalized-path"
	MatchRawPath        MatchMethod = "raw-path"
	MatchFlippedPath    MatchMethod = "flipped-path"
	MatchFuzzy          MatchMethod = "fuzzy"
)

// Match is the result of resolving one entry.
type Match struct {
	Row     *database.IndexRow
	Method  MatchMethod
	Created bool
}

// Matcher runs the resolution cascade against the index. Only episode
// references can write, through the EpisodeResolver.
type Matcher struct {
	db       *indexdb.IndexDB
	episodes *EpisodeResolver
}

func NewMatcher(db *indexdb.IndexDB, episodes *EpisodeResolver) *Matcher {
	return &Matcher{db: db, episodes: episodes}
}

// Resolve finds the index row for an entry, stopping at the first step
// that succeeds. An unresolved entry returns a Match with a nil Row and no
// error.
func (m *Matcher) Resolve(ctx context.Context, entry *favorites.Entry) (Match, error) {
	switch entry.Classification {
	case favorites.ClassHostDBReference:
		return m.resolveHostRef(ctx, entry.Ref)
	case favorites.ClassMappableFile:
		return m.resolveFile(ctx, entry)
	case favorites.ClassPluginOrScript, favorites.ClassBuiltinCommand, favorites.ClassUnknown:
		return Match{}, nil
	default:
		return Match{}, nil
	}
}

func (m *Matcher) resolveHostRef(ctx context.Context, ref *favorites.HostRef) (Match, error) {
	if ref == nil {
		return Match{}, nil
	}

	switch ref.MediaType {
	case database.MediaTypeMovie:
		row, err := m.db.FindItemByExternalID(ctx, database.MediaTypeMovie, ref.MovieID)
		if err != nil {
			return Match{}, fmt.Errorf("failed to look up movie %d: %w", ref.MovieID, err)
		}
		if row == nil {
			return Match{}, nil
		}
		return Match{Row: row, Method: MatchHostID}, nil
	case database.MediaTypeEpisode:
		row, created, err := m.episodes.ResolveOrCreateEpisode(ctx, ref.Episode)
		if err != nil || row == nil {
			return Match{}, err
		}
		return Match{Row: row, Method: MatchEpisodeKey, Created: created}, nil
	default:
		return Match{}, nil
	}
}

func flipSlashes(p string) string {
	if strings.Contains(p, "/") {
		return strings.ReplaceAll(p, "/", `\`)
	}
	return strings.ReplaceAll(p, `\`, "/")
}

func (m *Matcher) resolveFile(ctx context.Context, entry *favorites.Entry) (Match, error) {
	if entry.NormalizedKey != "" {
		rows, err := m.db.FindItemsByNormalizedPath(ctx, entry.NormalizedKey)
		if err != nil {
			return Match{}, err
		}
		if len(rows) > 0 {
			return Match{Row: &rows[0], Method: MatchNormalizedPath}, nil
		}
	}

	rows, err := m.db.FindItemsByPathNoCase(ctx, entry.Target)
	if err != nil {
		return Match{}, err
	}
	if len(rows) > 0 {
		return Match{Row: &rows[0], Method: MatchRawPath}, nil
	}

	if flipped := flipSlashes(entry.Target); flipped != entry.Target {
		rows, err = m.db.FindItemsByPathNoCase(ctx, flipped)
		if err != nil {
			return Match{}, err
		}
		if len(rows) > 0 {
			return Match{Row: &rows[0], Method: MatchFlippedPath}, nil
		}
	}

	fragment := fuzzyFragment(entry.Target)
	if fragment == "" {
		return Match{}, nil
	}
	candidates, err := m.db.FindItemsByPathFragment(ctx, fragment)
	if err != nil {
		return Match{}, err
	}
	row, ok := PickFuzzyCandidate(entry.Target, candidates)
	if !ok {
		if len(candidates) > 0 {
			log.Debug().
				Str("target", entry.Target).
				Int("candidates", len(candidates)).
				Msg("fuzzy match rejected")
		}
		return Match{}, nil
	}
	return Match{Row: row, Method: MatchFuzzy}, nil
}
