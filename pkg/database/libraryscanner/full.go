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
	"fmt"

	"github.com/kodimirror/kodimirror/pkg/database"
	"github.com/kodimirror/kodimirror/pkg/database/indexdb"
	"github.com/kodimirror/kodimirror/pkg/favorites"
	"github.com/kodimirror/kodimirror/pkg/kodi"
	"github.com/rs/zerolog/log"
)

func (s *Scanner) runFull(ctx context.Context, mediaType database.MediaType) Result {
	p, err := s.start(ctx, database.ScanTypeFull, mediaType)
	if err != nil {
		return p.res
	}
	return s.finish(ctx, p, s.fullPass(ctx, mediaType, p))
}

func (s *Scanner) fullPass(ctx context.Context, mediaType database.MediaType, p *pass) error {
	cleared, err := s.db.ClearItems(ctx, mediaType)
	if err != nil {
		return err
	}
	log.Debug().Str("mediaType", string(mediaType)).Int64("rows", cleared).Msg("cleared index for full scan")

	total, err := s.gateway.CountItems(ctx, mediaType)
	if err != nil {
		return fmt.Errorf("failed to count %s items: %w", mediaType, err)
	}

	for offset := 0; offset < total; offset += s.pageSize {
		if err := s.checkAbort(ctx); err != nil {
			return err
		}

		page, err := s.gateway.GetPage(ctx, mediaType, offset, s.pageSize, kodi.PropertiesFull)
		if err != nil {
			return fmt.Errorf("failed to fetch %s page at offset %d: %w", mediaType, offset, err)
		}
		if len(page.Items) == 0 {
			log.Warn().
				Str("mediaType", string(mediaType)).
				Int("offset", offset).
				Int("total", total).
				Msg("catalog returned an empty page before the reported total")
			break
		}

		if err := s.writePage(ctx, page.Items); err != nil {
			return err
		}

		p.res.Found += len(page.Items)
		p.res.Added += len(page.Items)
		p.res.LastOffset = offset + len(page.Items)

		log.Debug().
			Str("mediaType", string(mediaType)).
			Int("offset", p.res.LastOffset).
			Int("total", total).
			Msg("full scan page written")
	}
	if p.res.Found < total {
		return kodi.TruncatedCatalogError(mediaType, p.res.Found, total)
	}
	return nil
}

// writePage inserts one page in a single transaction. A page that has been
// fetched is always written, even if the pass is cancelled meanwhile.
func (s *Scanner) writePage(ctx context.Context, items []database.RemoteItem) error {
	bw, err := s.db.NewBatchWriter(context.WithoutCancel(ctx), indexdb.BatchOptions{Size: len(items)})
	if err != nil {
		return err
	}
	defer func() {
		if rbErr := bw.Rollback(); rbErr != nil {
			log.Error().Err(rbErr).Msg("failed to rollback page batch")
		}
	}()

	seenAt := s.clock.Now()
	for i := range items {
		row := items[i].IndexRow(favorites.NormalizePath(items[i].Path), seenAt)
		if err := bw.InsertItem(&row); err != nil {
			return fmt.Errorf("failed to insert item %d: %w", items[i].ExternalID, err)
		}
	}
	return bw.Close()
}
