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
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/kodimirror/kodimirror/pkg/config"
	"github.com/kodimirror/kodimirror/pkg/database"
	"github.com/kodimirror/kodimirror/pkg/database/indexdb"
	"github.com/kodimirror/kodimirror/pkg/database/libraryscanner"
	"github.com/kodimirror/kodimirror/pkg/database/snapshot"
	"github.com/kodimirror/kodimirror/pkg/favorites"
	"github.com/kodimirror/kodimirror/pkg/favorites/matcher"
	"github.com/kodimirror/kodimirror/pkg/helpers"
	"github.com/kodimirror/kodimirror/pkg/helpers/syncutil"
	"github.com/kodimirror/kodimirror/pkg/kodi"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

// Service owns the index components and runs sync and reconcile jobs one
// at a time.
type Service struct {
	cfg            *config.Instance
	db             *indexdb.IndexDB
	fs             afero.Fs
	clock          clockwork.Clock
	snapshots      *snapshot.Manager
	scanner        *libraryscanner.Scanner
	reconciler     *matcher.Reconciler
	favouritesPath string
	debounce       time.Duration
	jobs           syncutil.Mutex
}

type Option func(*Service)

// WithClock replaces the real clock, for tests.
func WithClock(clock clockwork.Clock) Option {
	return func(s *Service) {
		s.clock = clock
	}
}

// WithFavouritesPath overrides the favourites.xml location from config.
func WithFavouritesPath(path string) Option {
	return func(s *Service) {
		s.favouritesPath = path
	}
}

// WithDebounce sets how long the watcher waits for writes to settle.
func WithDebounce(d time.Duration) Option {
	return func(s *Service) {
		s.debounce = d
	}
}

const DefaultDebounce = 2 * time.Second

// New wires the components. The gateway gets the configured retry policy;
// any circuit breaker must already be applied by the caller.
func New(
	cfg *config.Instance,
	db *indexdb.IndexDB,
	gateway kodi.Gateway,
	fs afero.Fs,
	opts ...Option,
) *Service {
	s := &Service{
		cfg:      cfg,
		db:       db,
		fs:       fs,
		clock:    clockwork.NewRealClock(),
		debounce: DefaultDebounce,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.favouritesPath == "" {
		s.favouritesPath = helpers.FavouritesPath(cfg)
	}

	syncCfg := cfg.Sync()
	retrying := libraryscanner.NewRetryGateway(gateway, libraryscanner.RetryPolicy{
		MaxRetries:      uint64(max(syncCfg.RetryAttempts, 0)),
		InitialInterval: cfg.RetryInitialDelay(),
		MaxInterval:     cfg.RetryMaxDelay(),
	})

	s.snapshots = snapshot.NewManager(db, retrying, snapshot.Options{
		Clock:      s.clock,
		BatchSize:  syncCfg.BatchSize,
		PageSize:   syncCfg.PageSize,
		CheckEvery: syncCfg.AbortCheckRows,
		MaxAge:     cfg.SnapshotMaxAge(),
	})
	s.scanner = libraryscanner.New(db, retrying, s.snapshots, libraryscanner.Options{
		Clock:      s.clock,
		BatchSize:  syncCfg.BatchSize,
		PageSize:   syncCfg.PageSize,
		CheckEvery: syncCfg.AbortCheckRows,
	})
	s.reconciler = matcher.NewReconciler(db, retrying, matcher.Options{
		Clock:    s.clock,
		ListName: cfg.Favorites().ListName,
	})

	return s
}

func (s *Service) FavouritesPath() string {
	return s.favouritesPath
}

func (s *Service) ListName() string {
	return s.reconciler.ListName()
}

// Sync runs a full or delta pass over every media type. A full pass
// rebuilds the index rows that list members point at, so it is followed by
// a favourites reconcile.
func (s *Service) Sync(ctx context.Context, full bool) []libraryscanner.Result {
	s.jobs.Lock()
	defer s.jobs.Unlock()

	scanType := database.ScanTypeDelta
	if full {
		scanType = database.ScanTypeFull
	}
	log.Info().Str("type", string(scanType)).Msg("starting library sync")
	results := s.scanner.ScanAll(ctx, scanType)
	if !full || ctx.Err() != nil {
		return results
	}

	res := s.reconcile(ctx)
	logReconcileResult(&res)
	return results
}

// ReconcileFavorites parses favourites.xml and rewrites the favorites list.
// A missing file yields an empty list.
func (s *Service) ReconcileFavorites(ctx context.Context) matcher.ReconcileResult {
	s.jobs.Lock()
	defer s.jobs.Unlock()
	return s.reconcile(ctx)
}

// reconcile requires the jobs lock.
func (s *Service) reconcile(ctx context.Context) matcher.ReconcileResult {
	entries, err := favorites.LoadFile(s.fs, s.favouritesPath)
	if err != nil {
		return matcher.ReconcileResult{Err: fmt.Errorf("failed to load favourites: %w", err)}
	}
	log.Debug().
		Str("path", s.favouritesPath).
		Int("entries", len(entries)).
		Msg("loaded favourites")
	return s.reconciler.Reconcile(ctx, entries)
}

// Favorites returns the current members of the configured list.
func (s *Service) Favorites(ctx context.Context) ([]database.FavoriteMember, error) {
	members, err := s.db.ListFavorites(ctx, s.reconciler.ListName())
	if err != nil {
		return nil, fmt.Errorf("failed to list favorites: %w", err)
	}
	return members, nil
}

// LastScan returns the newest audit entry for mediaType, or nil if it was
// never scanned.
func (s *Service) LastScan(ctx context.Context, mediaType database.MediaType) (*database.ScanLogEntry, error) {
	entry, err := s.db.LastScanLog(ctx, mediaType)
	if err != nil {
		return nil, fmt.Errorf("failed to read scan log: %w", err)
	}
	return entry, nil
}

// Abort asks a running pass to stop at its next checkpoint.
func (s *Service) Abort() {
	s.scanner.Abort()
}

func (s *Service) ScannerState() libraryscanner.State {
	return s.scanner.State()
}

func logSyncResults(results []libraryscanner.Result) {
	for i := range results {
		res := &results[i]
		ev := log.Info()
		if !res.Success() {
			ev = log.Warn().Err(res.Err).Str("errorKind", res.ErrorKind)
		}
		ev.Str("type", string(res.ScanType)).
			Str("mediaType", string(res.MediaType)).
			Str("status", string(res.Status)).
			Int("found", res.Found).
			Int("added", res.Added).
			Int("updated", res.Updated).
			Int("removed", res.Removed).
			Msg("sync pass finished")
	}
}

func logReconcileResult(res *matcher.ReconcileResult) {
	if !res.Success() {
		log.Error().Err(res.Err).Msg("favourites reconcile failed")
	}
}

func sameFile(a, b string) bool {
	return filepath.Clean(a) == filepath.Clean(b)
}
