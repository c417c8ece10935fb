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

// Package snapshot mirrors the remote catalog's identities into the
// transient Snapshot table and diffs them against the persisted index with
// set queries.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/kodimirror/kodimirror/pkg/database"
	"github.com/kodimirror/kodimirror/pkg/database/indexdb"
	"github.com/kodimirror/kodimirror/pkg/kodi"
	"github.com/rs/zerolog/log"
)

// DefaultMaxAge is how old a snapshot row may get before it is treated as
// left over from an interrupted pass.
const DefaultMaxAge = time.Hour

var ErrIncompleteSnapshot = errors.New("snapshot is incomplete")

// Options configures a Manager. Zero values pick defaults.
type Options struct {
	Clock clockwork.Clock
	// BatchSize is the number of inserts per transaction.
	BatchSize int
	// PageSize is the number of items requested per gateway call.
	PageSize int
	// CheckEvery is the abort checkpoint interval in rows.
	CheckEvery int
	MaxAge     time.Duration
}

// Changes is the diff between a snapshot and the live index. Identities
// present in both are touched in place and only counted.
type Changes struct {
	New           []int64
	Removed       []int64
	ExistingCount int
}

// Manager fills and diffs the snapshot table.
type Manager struct {
	db         *indexdb.IndexDB
	gateway    kodi.Gateway
	clock      clockwork.Clock
	batchSize  int
	pageSize   int
	checkEvery int
	maxAge     time.Duration
}

func NewManager(db *indexdb.IndexDB, gateway kodi.Gateway, opts Options) *Manager {
	m := &Manager{
		db:         db,
		gateway:    gateway,
		clock:      opts.Clock,
		batchSize:  opts.BatchSize,
		pageSize:   opts.PageSize,
		checkEvery: opts.CheckEvery,
		maxAge:     opts.MaxAge,
	}
	if m.clock == nil {
		m.clock = clockwork.NewRealClock()
	}
	if m.batchSize <= 0 {
		m.batchSize = DeviceBatchSize()
	}
	if m.pageSize <= 0 {
		m.pageSize = m.batchSize
	}
	if m.maxAge <= 0 {
		m.maxAge = DefaultMaxAge
	}
	return m
}

func (m *Manager) BatchSize() int {
	return m.batchSize
}

func (m *Manager) PageSize() int {
	return m.pageSize
}

// PurgeStale deletes snapshot rows older than the max age.
func (m *Manager) PurgeStale(ctx context.Context) error {
	n, err := m.db.PurgeStaleSnapshot(ctx, m.clock.Now().Add(-m.maxAge))
	if err != nil {
		return fmt.Errorf("failed to purge stale snapshot: %w", err)
	}
	if n > 0 {
		log.Warn().Int64("rows", n).Msg("purged stale snapshot rows")
	}
	return nil
}

// CreateSnapshot pages through the catalog and stores every identity of
// mediaType in the snapshot table. Each page is committed before the next
// one is fetched. checkpoint is polled between pages and every CheckEvery
// rows; a non-nil return stops the pass. Fewer rows than the catalog
// counted is a failure. On any failure the snapshot is cleared and the
// error returned, so a partial snapshot is never diffed.
func (m *Manager) CreateSnapshot(
	ctx context.Context,
	mediaType database.MediaType,
	checkpoint func() error,
) (total int, err error) {
	defer func() {
		if err == nil {
			return
		}
		if cleanupErr := m.Cleanup(context.WithoutCancel(ctx)); cleanupErr != nil {
			log.Error().Err(cleanupErr).Msg("failed to clean up snapshot after error")
		}
	}()

	if err = m.PurgeStale(ctx); err != nil {
		return 0, err
	}
	if err = m.Cleanup(ctx); err != nil {
		return 0, err
	}

	count, err := m.gateway.CountItems(ctx, mediaType)
	if err != nil {
		return 0, fmt.Errorf("failed to count %s items: %w", mediaType, err)
	}

	createdAt := m.clock.Now()
	bw, err := m.db.NewBatchWriter(ctx, indexdb.BatchOptions{
		Size:       m.batchSize,
		CheckEvery: m.checkEvery,
		Checkpoint: checkpoint,
	})
	if err != nil {
		return 0, err
	}
	defer func() {
		if rbErr := bw.Rollback(); rbErr != nil {
			log.Error().Err(rbErr).Msg("failed to rollback snapshot batch")
		}
	}()

	for offset := 0; offset < count; offset += m.pageSize {
		if checkpoint != nil {
			if err = checkpoint(); err != nil {
				return total, err
			}
		}

		var page kodi.Page
		page, err = m.gateway.GetPage(ctx, mediaType, offset, m.pageSize, kodi.PropertiesIdentity)
		if err != nil {
			return total, fmt.Errorf("failed to fetch %s page at offset %d: %w", mediaType, offset, err)
		}
		if len(page.Items) == 0 {
			log.Warn().
				Str("mediaType", string(mediaType)).
				Int("offset", offset).
				Int("expected", count).
				Msg("catalog returned an empty page before the reported total")
			break
		}

		for i := range page.Items {
			if err = bw.InsertSnapshotRow(page.Items[i].Snapshot(), createdAt); err != nil {
				return total, fmt.Errorf("failed to insert snapshot row: %w", err)
			}
		}
		if err = bw.Commit(); err != nil {
			return total, err
		}
		total += len(page.Items)

		log.Debug().
			Str("mediaType", string(mediaType)).
			Int("offset", offset).
			Int("rows", total).
			Int("total", count).
			Msg("snapshot page stored")
	}

	if total < count {
		return total, fmt.Errorf("%w: %w", ErrIncompleteSnapshot, kodi.TruncatedCatalogError(mediaType, total, count))
	}
	stored, err := m.db.CountSnapshot(ctx, mediaType)
	if err != nil {
		return total, err
	}

	log.Info().
		Str("mediaType", string(mediaType)).
		Int("items", stored).
		Msg("snapshot created")
	return stored, nil
}

// DetectChanges diffs the snapshot against the live index. Existing items
// have LastSeenAt refreshed in a single statement.
func (m *Manager) DetectChanges(ctx context.Context, mediaType database.MediaType) (Changes, error) {
	newIDs, err := m.db.SnapshotNewIDs(ctx, mediaType)
	if err != nil {
		return Changes{}, fmt.Errorf("failed to detect new items: %w", err)
	}
	removedIDs, err := m.db.SnapshotRemovedIDs(ctx, mediaType)
	if err != nil {
		return Changes{}, fmt.Errorf("failed to detect removed items: %w", err)
	}
	existing, err := m.db.TouchSnapshotExisting(ctx, mediaType, m.clock.Now())
	if err != nil {
		return Changes{}, fmt.Errorf("failed to refresh existing items: %w", err)
	}

	log.Info().
		Str("mediaType", string(mediaType)).
		Int("new", len(newIDs)).
		Int("removed", len(removedIDs)).
		Int("existing", existing).
		Msg("detected snapshot changes")

	return Changes{
		New:           newIDs,
		Removed:       removedIDs,
		ExistingCount: existing,
	}, nil
}

// Cleanup truncates the snapshot table.
func (m *Manager) Cleanup(ctx context.Context) error {
	if err := m.db.ClearSnapshot(ctx); err != nil {
		return fmt.Errorf("failed to clean up snapshot: %w", err)
	}
	return nil
}
