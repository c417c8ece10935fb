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

package kodi

import (
	"context"
	"errors"
	"time"

	"github.com/kodimirror/kodimirror/pkg/database"
	"github.com/rs/zerolog/log"
	gobreaker "github.com/sony/gobreaker/v2"
)

// BreakerSettings tunes the circuit breaker of a BreakerGateway.
type BreakerSettings struct {
	// Timeout is how long the breaker stays open before probing again.
	Timeout time.Duration
	// Interval resets the failure counts while closed. Zero never resets.
	Interval time.Duration
	// ConsecutiveFailures opens the breaker.
	ConsecutiveFailures uint32
}

// DefaultBreakerSettings opens after 5 consecutive transient failures and
// lets a trial call through after 30 seconds.
var DefaultBreakerSettings = BreakerSettings{
	Timeout:             30 * time.Second,
	Interval:            time.Minute,
	ConsecutiveFailures: 5,
}

// BreakerGateway wraps a Gateway with a circuit breaker. Only transient
// failures count against the breaker; an open breaker fails calls
// immediately with a transport error.
type BreakerGateway struct {
	next Gateway
	cb   *gobreaker.CircuitBreaker[any]
}

var _ Gateway = (*BreakerGateway)(nil)

func NewBreakerGateway(next Gateway, settings BreakerSettings) *BreakerGateway {
	threshold := settings.ConsecutiveFailures
	if threshold == 0 {
		threshold = DefaultBreakerSettings.ConsecutiveFailures
	}
	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        "kodi-jsonrpc",
		MaxRequests: 1,
		Interval:    settings.Interval,
		Timeout:     settings.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !IsRetryable(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state changed")
		},
	})
	return &BreakerGateway{next: next, cb: cb}
}

// State returns the breaker's current state.
func (g *BreakerGateway) State() gobreaker.State {
	return g.cb.State()
}

func (g *BreakerGateway) execute(method APIMethod, fn func() (any, error)) (any, error) {
	result, err := g.cb.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, newRPCError(method, KindTransport, err)
	}
	return result, err
}

func (g *BreakerGateway) CountItems(ctx context.Context, mediaType database.MediaType) (int, error) {
	result, err := g.execute(APIMethodVideoLibraryGetMovies, func() (any, error) {
		return g.next.CountItems(ctx, mediaType)
	})
	if err != nil {
		return 0, err
	}
	count, _ := result.(int)
	return count, nil
}

func (g *BreakerGateway) GetPage(
	ctx context.Context,
	mediaType database.MediaType,
	offset, limit int,
	props PropertySet,
) (Page, error) {
	result, err := g.execute(APIMethodVideoLibraryGetMovies, func() (any, error) {
		return g.next.GetPage(ctx, mediaType, offset, limit, props)
	})
	if err != nil {
		return Page{}, err
	}
	page, _ := result.(Page)
	return page, nil
}

func (g *BreakerGateway) GetItemDetail(
	ctx context.Context,
	mediaType database.MediaType,
	externalID int64,
) (*database.RemoteItem, error) {
	result, err := g.execute(APIMethodVideoLibraryGetMovieDetails, func() (any, error) {
		return g.next.GetItemDetail(ctx, mediaType, externalID)
	})
	if err != nil {
		return nil, err
	}
	item, _ := result.(*database.RemoteItem)
	return item, nil
}

func (g *BreakerGateway) GetEpisodeByKey(
	ctx context.Context,
	key database.EpisodeKey,
) (*database.RemoteItem, error) {
	result, err := g.execute(APIMethodVideoLibraryGetEpisodes, func() (any, error) {
		return g.next.GetEpisodeByKey(ctx, key)
	})
	if err != nil {
		return nil, err
	}
	item, _ := result.(*database.RemoteItem)
	return item, nil
}

func (g *BreakerGateway) GetShowDetail(ctx context.Context, showID int) (*database.RemoteShow, error) {
	result, err := g.execute(APIMethodVideoLibraryGetTVShowDetails, func() (any, error) {
		return g.next.GetShowDetail(ctx, showID)
	})
	if err != nil {
		return nil, err
	}
	show, _ := result.(*database.RemoteShow)
	return show, nil
}
