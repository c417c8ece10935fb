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
	"errors"
	"fmt"

	"github.com/jonboulle/clockwork"
	"github.com/kodimirror/kodimirror/pkg/database/indexdb"
	"github.com/kodimirror/kodimirror/pkg/favorites"
	"github.com/kodimirror/kodimirror/pkg/kodi"
	"github.com/rs/zerolog/log"
)

// DefaultListName is the materialized list favourites are written to.
const DefaultListName = "favourites"

// Options configures a Reconciler. Zero values pick defaults.
type Options struct {
	Clock    clockwork.Clock
	ListName string
}

// ReconcileResult summarizes one reconciliation pass.
type ReconcileResult struct {
	Err error
	// Added counts members that were not in the list before the pass.
	Added int
	// Updated counts members that were kept from the previous list.
	Updated int
	// Mapped counts entries that resolved to an index row, duplicates
	// included.
	Mapped int
	// Created counts episode rows indexed on demand.
	Created int
	Skipped int
}

func (r *ReconcileResult) Success() bool {
	return r.Err == nil
}

// Reconciler rewrites a favorites list from parsed entries.
type Reconciler struct {
	db       *indexdb.IndexDB
	matcher  *Matcher
	listName string
}

func NewReconciler(db *indexdb.IndexDB, gateway kodi.Gateway, opts Options) *Reconciler {
	listName := opts.ListName
	if listName == "" {
		listName = DefaultListName
	}
	return &Reconciler{
		db:       db,
		matcher:  NewMatcher(db, NewEpisodeResolver(db, gateway, opts.Clock)),
		listName: listName,
	}
}

func (r *Reconciler) ListName() string {
	return r.listName
}

// Reconcile resolves every entry and then replaces the list membership in
// one transaction, in entry order. Entries that do not resolve are left
// out. When an index row is matched more than once only its first position
// is kept. A storage failure leaves the previous membership untouched.
func (r *Reconciler) Reconcile(ctx context.Context, entries []favorites.Entry) ReconcileResult {
	var result ReconcileResult

	ids := make([]int64, 0, len(entries))
	seen := make(map[int64]struct{}, len(entries))
	for i := range entries {
		if err := ctx.Err(); err != nil {
			result.Err = fmt.Errorf("reconcile cancelled: %w", err)
			return result
		}

		entry := &entries[i]
		match, err := r.matcher.Resolve(ctx, entry)
		var rpcErr *kodi.RPCError
		switch {
		case errors.As(err, &rpcErr):
			log.Warn().Err(err).
				Str("name", entry.DisplayName).
				Msg("skipping favourite, host lookup failed")
			result.Skipped++
			continue
		case err != nil:
			result.Err = fmt.Errorf("failed to resolve favourite %q: %w", entry.DisplayName, err)
			log.Error().Err(result.Err).Msg("reconcile failed")
			return result
		}

		if match.Created {
			result.Created++
		}
		if match.Row == nil {
			log.Debug().
				Str("name", entry.DisplayName).
				Str("class", string(entry.Classification)).
				Str("key", entry.NormalizedKey).
				Msg("favourite not matched")
			result.Skipped++
			continue
		}

		result.Mapped++
		log.Debug().
			Str("name", entry.DisplayName).
			Str("method", string(match.Method)).
			Int64("dbid", match.Row.DBID).
			Msg("favourite matched")
		if _, dup := seen[match.Row.DBID]; dup {
			continue
		}
		seen[match.Row.DBID] = struct{}{}
		ids = append(ids, match.Row.DBID)
	}

	previous, err := r.db.ReplaceFavorites(ctx, r.listName, ids)
	if err != nil {
		result.Err = fmt.Errorf("failed to write favorites list: %w", err)
		log.Error().Err(result.Err).Msg("reconcile failed")
		return result
	}

	before := make(map[int64]struct{}, len(previous))
	for _, id := range previous {
		before[id] = struct{}{}
	}
	for _, id := range ids {
		if _, ok := before[id]; ok {
			result.Updated++
		} else {
			result.Added++
		}
	}

	log.Info().
		Str("list", r.listName).
		Int("entries", len(entries)).
		Int("added", result.Added).
		Int("updated", result.Updated).
		Int("mapped", result.Mapped).
		Int("created", result.Created).
		Int("skipped", result.Skipped).
		Msg("favourites reconciled")
	return result
}
