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

package service

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Daemon runs an initial delta sync and reconcile, then keeps the index
// current until ctx is cancelled: a delta pass every DeltaInterval and,
// when enabled, a reconcile after favourites.xml changes.
func (s *Service) Daemon(ctx context.Context) error {
	logSyncResults(s.Sync(ctx, false))
	res := s.ReconcileFavorites(ctx)
	logReconcileResult(&res)

	g, gctx := errgroup.WithContext(ctx)

	if interval := s.cfg.DeltaInterval(); interval > 0 {
		g.Go(func() error {
			ticker := s.clock.NewTicker(interval)
			defer ticker.Stop()
			log.Info().Dur("interval", interval).Msg("periodic delta sync enabled")
			for {
				select {
				case <-gctx.Done():
					return nil
				case <-ticker.Chan():
					logSyncResults(s.Sync(gctx, false))
				}
			}
		})
	}

	if s.cfg.Favorites().Watch {
		g.Go(func() error {
			return s.WatchFavorites(gctx)
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("daemon stopped: %w", err)
	}
	log.Info().Msg("daemon stopped")
	return nil
}

// WatchFavorites reconciles after favourites.xml is written, replaced or
// removed. Bursts of events are coalesced by the debounce delay. It returns
// when ctx is cancelled.
func (s *Service) WatchFavorites(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create favourites watcher: %w", err)
	}
	defer func() {
		if closeErr := watcher.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("failed to close favourites watcher")
		}
	}()

	// Kodi replaces the file on save, so watch the parent directory.
	dir := filepath.Dir(s.favouritesPath)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	log.Info().Str("path", s.favouritesPath).Msg("watching favourites")

	changed := make(chan struct{}, 1)
	var timer clockwork.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !sameFile(event.Name, s.favouritesPath) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			log.Debug().Str("op", event.Op.String()).Msg("favourites changed")
			if timer == nil {
				timer = s.clock.AfterFunc(s.debounce, func() {
					select {
					case changed <- struct{}{}:
					default:
					}
				})
			} else {
				timer.Reset(s.debounce)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Error().Err(err).Msg("favourites watcher error")
		case <-changed:
			res := s.ReconcileFavorites(ctx)
			logReconcileResult(&res)
		}
	}
}
