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

package libraryscanner

import (
	"context"
	"errors"
	"fmt"

	"github.com/kodimirror/kodimirror/pkg/database"
	"github.com/kodimirror/kodimirror/pkg/database/indexdb"
	"github.com/rs/zerolog/log"
)

func (s *Scanner) runDelta(ctx context.Context, mediaType database.MediaType) Result {
	p, err := s.start(ctx, database.ScanTypeDelta, mediaType)
	if err != nil {
		return p.res
	}

	err = s.deltaPass(ctx, mediaType, p)
	if cleanupErr := s.snapshots.Cleanup(context.WithoutCancel(ctx)); cleanupErr != nil {
		log.Error().Err(cleanupErr).Msg("failed to clean up snapshot")
		if err == nil {
			err = cleanupErr
		}
	}
	return s.finish(ctx, p, err)
}

func (s *Scanner) deltaPass(ctx context.Context, mediaType database.MediaType, p *pass) error {
	checkpoint := func() error { return s.checkAbort(ctx) }

	found, err := s.snapshots.CreateSnapshot(ctx, mediaType, checkpoint)
	if err != nil {
		return err
	}
	p.res.Found = found

	if err := s.checkAbort(ctx); err != nil {
		return err
	}

	changes, err := s.snapshots.DetectChanges(ctx, mediaType)
	if err != nil {
		return err
	}
	p.res.Updated = changes.ExistingCount

	if err := s.addNew(ctx, mediaType, changes.New, p); err != nil {
		return err
	}
	return s.markRemoved(ctx, mediaType, changes.Removed, p)
}

// addNew fetches details for new identities one batch at a time and writes
// each batch in its own transaction, after all of its fetches are done.
func (s *Scanner) addNew(ctx context.Context, mediaType database.MediaType, ids []int64, p *pass) error {
	for start := 0; start < len(ids); start += s.batchSize {
		if err := s.checkAbort(ctx); err != nil {
			return err
		}

		end := min(start+s.batchSize, len(ids))
		items := make([]database.RemoteItem, 0, end-start)
		for i, id := range ids[start:end] {
			if i > 0 && i%s.checkEvery == 0 {
				if err := s.checkAbort(ctx); err != nil {
					return err
				}
			}
			item, err := s.gateway.GetItemDetail(ctx, mediaType, id)
			if err != nil {
				return fmt.Errorf("failed to fetch %s %d: %w", mediaType, id, err)
			}
			if item == nil {
				log.Debug().Str("mediaType", string(mediaType)).Int64("id", id).
					Msg("new item disappeared before details were fetched")
				continue
			}
			items = append(items, *item)
		}

		if len(items) > 0 {
			if err := s.writePage(ctx, items); err != nil {
				return err
			}
		}
		p.res.Added += len(items)
		p.res.LastOffset = end
	}
	return nil
}

// markRemoved soft deletes identities missing from the snapshot. An abort
// discards only the uncommitted tail of the current batch.
func (s *Scanner) markRemoved(ctx context.Context, mediaType database.MediaType, ids []int64, p *pass) error {
	if len(ids) == 0 {
		return nil
	}

	bw, err := s.db.NewBatchWriter(ctx, indexdb.BatchOptions{
		Size:       s.batchSize,
		CheckEvery: s.checkEvery,
		Checkpoint: func() error { return s.checkAbort(ctx) },
	})
	if err != nil {
		return err
	}

	seenAt := s.clock.Now()
	for _, id := range ids {
		if err = bw.MarkItemRemoved(mediaType, id, seenAt); err != nil {
			break
		}
	}
	if err == nil {
		err = bw.Close()
	}
	if err != nil {
		if rbErr := bw.Rollback(); rbErr != nil {
			err = errors.Join(err, rbErr)
		}
	}

	p.res.Removed = bw.Committed()
	return err
}
