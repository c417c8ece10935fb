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

// Package libraryscanner runs full and delta synchronization passes from the
// host catalog into the persisted index.
package libraryscanner

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/kodimirror/kodimirror/pkg/database"
	"github.com/kodimirror/kodimirror/pkg/database/indexdb"
	"github.com/kodimirror/kodimirror/pkg/database/snapshot"
	"github.com/kodimirror/kodimirror/pkg/helpers/syncutil"
	"github.com/kodimirror/kodimirror/pkg/kodi"
	"github.com/rs/zerolog/log"
)

// DefaultCheckEvery is the abort checkpoint interval in rows.
const DefaultCheckEvery = 50

// ErrorKindStorage marks failures that did not come from the gateway.
const ErrorKindStorage = "storage"

var (
	ErrScanInProgress = errors.New("a scan is already running")
	ErrAborted        = errors.New("scan aborted")
)

type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateAborted   State = "aborted"
	StateFailed    State = "failed"
)

// Options configures a Scanner. Zero values pick defaults.
type Options struct {
	Clock clockwork.Clock
	// BatchSize is the number of statements per transaction and the number
	// of new identities fetched per detail round.
	BatchSize int
	// PageSize is the number of items requested per gateway call.
	PageSize   int
	CheckEvery int
}

// Result is the outcome of one pass. Counts and LastOffset reflect the
// work done before a failure or abort.
type Result struct {
	Err       error
	ScanType  database.ScanType
	MediaType database.MediaType
	Status    database.ScanStatus
	ErrorKind string
	database.ScanCounts
	LastOffset int
	LogID      int64
}

// Success reports whether the pass completed.
func (r Result) Success() bool { //nolint:gocritic // results are passed by value
	return r.Status == database.ScanStatusCompleted
}

// Scanner orchestrates synchronization passes. Only one pass runs at a
// time.
type Scanner struct {
	db         *indexdb.IndexDB
	gateway    kodi.Gateway
	snapshots  *snapshot.Manager
	clock      clockwork.Clock
	state      State
	batchSize  int
	pageSize   int
	checkEvery int
	mu         syncutil.Mutex
	aborted    atomic.Bool
}

// New creates a scanner. The gateway should already apply the retry policy,
// see NewRetryGateway, and the snapshot manager should share it.
func New(
	db *indexdb.IndexDB,
	gateway kodi.Gateway,
	snapshots *snapshot.Manager,
	opts Options,
) *Scanner {
	s := &Scanner{
		db:         db,
		gateway:    gateway,
		snapshots:  snapshots,
		clock:      opts.Clock,
		state:      StateIdle,
		batchSize:  opts.BatchSize,
		pageSize:   opts.PageSize,
		checkEvery: opts.CheckEvery,
	}
	if s.clock == nil {
		s.clock = clockwork.NewRealClock()
	}
	if s.batchSize <= 0 {
		s.batchSize = snapshots.BatchSize()
	}
	if s.pageSize <= 0 {
		s.pageSize = snapshots.PageSize()
	}
	if s.checkEvery <= 0 {
		s.checkEvery = DefaultCheckEvery
	}
	return s
}

// State returns the state of the current or last pass.
func (s *Scanner) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Abort asks the running pass to stop at its next checkpoint.
func (s *Scanner) Abort() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateRunning {
		log.Info().Msg("scan abort requested")
		s.aborted.Store(true)
	}
}

func (s *Scanner) begin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateRunning {
		return false
	}
	s.state = StateRunning
	s.aborted.Store(false)
	return true
}

func (s *Scanner) end(status database.ScanStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch status {
	case database.ScanStatusCompleted:
		s.state = StateCompleted
	case database.ScanStatusAborted:
		s.state = StateAborted
	default:
		s.state = StateFailed
	}
}

func (s *Scanner) checkAbort(ctx context.Context) error {
	if s.aborted.Load() {
		return ErrAborted
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrAborted, err)
	}
	return nil
}

func isAbort(ctx context.Context, err error) bool {
	return errors.Is(err, ErrAborted) ||
		errors.Is(err, context.Canceled) ||
		(ctx.Err() != nil && errors.Is(err, context.DeadlineExceeded))
}

func errorKind(err error) string {
	var rpcErr *kodi.RPCError
	if errors.As(err, &rpcErr) {
		return string(rpcErr.Kind)
	}
	return ErrorKindStorage
}

// FullScan clears the index for mediaType and rebuilds it page by page.
// Abort is honored between pages, so every page is either fully written or
// not at all.
func (s *Scanner) FullScan(ctx context.Context, mediaType database.MediaType) Result {
	if !s.begin() {
		return Result{
			ScanType:  database.ScanTypeFull,
			MediaType: mediaType,
			Status:    database.ScanStatusFailed,
			Err:       ErrScanInProgress,
		}
	}
	res := s.runFull(ctx, mediaType)
	s.end(res.Status)
	return res
}

// DeltaScan applies only the changes since the index was last synced. An
// empty index falls back to a full scan.
func (s *Scanner) DeltaScan(ctx context.Context, mediaType database.MediaType) Result {
	if !s.begin() {
		return Result{
			ScanType:  database.ScanTypeDelta,
			MediaType: mediaType,
			Status:    database.ScanStatusFailed,
			Err:       ErrScanInProgress,
		}
	}

	var res Result
	count, err := s.db.CountItems(ctx, mediaType, false)
	switch {
	case err != nil:
		res = Result{
			ScanType:  database.ScanTypeDelta,
			MediaType: mediaType,
			Status:    database.ScanStatusFailed,
			ErrorKind: ErrorKindStorage,
			Err:       fmt.Errorf("failed to count indexed items: %w", err),
		}
	case count == 0:
		log.Info().Str("mediaType", string(mediaType)).Msg("index is empty, running full scan instead of delta")
		res = s.runFull(ctx, mediaType)
	default:
		res = s.runDelta(ctx, mediaType)
	}
	s.end(res.Status)
	return res
}

// ScanAll runs a pass of scanType for every media type in order, stopping
// early if a pass is aborted.
func (s *Scanner) ScanAll(ctx context.Context, scanType database.ScanType) []Result {
	results := make([]Result, 0, len(database.MediaTypes))
	for _, mt := range database.MediaTypes {
		var res Result
		if scanType == database.ScanTypeFull {
			res = s.FullScan(ctx, mt)
		} else {
			res = s.DeltaScan(ctx, mt)
		}
		results = append(results, res)
		if res.Status == database.ScanStatusAborted || errors.Is(res.Err, ErrScanInProgress) {
			break
		}
	}
	return results
}

// pass tracks one audited pass.
type pass struct {
	res     Result
	started time.Time
}

func (s *Scanner) start(ctx context.Context, scanType database.ScanType, mediaType database.MediaType) (*pass, error) {
	p := &pass{
		started: s.clock.Now(),
		res: Result{
			ScanType:  scanType,
			MediaType: mediaType,
			Status:    database.ScanStatusRunning,
		},
	}
	id, err := s.db.StartScanLog(ctx, scanType, mediaType, p.started)
	if err != nil {
		p.res.Status = database.ScanStatusFailed
		p.res.ErrorKind = ErrorKindStorage
		p.res.Err = fmt.Errorf("failed to start scan log: %w", err)
		return p, err
	}
	p.res.LogID = id

	log.Info().
		Str("scanType", string(scanType)).
		Str("mediaType", string(mediaType)).
		Int64("logId", id).
		Msg("scan started")
	return p, nil
}

// finish classifies err, finalizes the audit entry and returns the result.
func (s *Scanner) finish(ctx context.Context, p *pass, err error) Result {
	switch {
	case err == nil:
		p.res.Status = database.ScanStatusCompleted
	case isAbort(ctx, err):
		p.res.Status = database.ScanStatusAborted
		p.res.Err = err
	default:
		p.res.Status = database.ScanStatusFailed
		p.res.ErrorKind = errorKind(err)
		p.res.Err = err
	}

	final := &indexdb.ScanLogFinal{
		CompletedAt: s.clock.Now(),
		Status:      p.res.Status,
		ErrorKind:   p.res.ErrorKind,
		ScanCounts:  p.res.ScanCounts,
		LastOffset:  p.res.LastOffset,
	}
	if p.res.Err != nil {
		final.Error = p.res.Err.Error()
	}

	if logErr := s.db.FinalizeScanLog(context.WithoutCancel(ctx), p.res.LogID, final); logErr != nil {
		log.Error().Err(logErr).Int64("logId", p.res.LogID).Msg("failed to finalize scan log")
		if p.res.Err == nil {
			p.res.Status = database.ScanStatusFailed
			p.res.ErrorKind = ErrorKindStorage
			p.res.Err = logErr
		}
	}

	event := log.Info()
	if p.res.Status == database.ScanStatusFailed {
		event = log.Error().Err(p.res.Err).Str("errorKind", p.res.ErrorKind)
	}
	event.
		Str("scanType", string(p.res.ScanType)).
		Str("mediaType", string(p.res.MediaType)).
		Str("status", string(p.res.Status)).
		Int("found", p.res.Found).
		Int("added", p.res.Added).
		Int("updated", p.res.Updated).
		Int("removed", p.res.Removed).
		Int("lastOffset", p.res.LastOffset).
		Dur("elapsed", s.clock.Since(p.started)).
		Msg("scan finished")

	return p.res
}
