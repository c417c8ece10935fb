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
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/kodimirror/kodimirror/pkg/database"
	"github.com/kodimirror/kodimirror/pkg/kodi"
	"github.com/rs/zerolog/log"
)

// RetryPolicy bounds the retries of transient gateway failures.
type RetryPolicy struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries uint64
}

var DefaultRetryPolicy = RetryPolicy{
	MaxRetries:      3,
	InitialInterval: 500 * time.Millisecond,
	MaxInterval:     10 * time.Second,
}

// RetryGateway retries timeout and transport failures of the wrapped
// gateway with exponential backoff. Other failures are returned at once.
type RetryGateway struct {
	next   kodi.Gateway
	policy RetryPolicy
}

var _ kodi.Gateway = (*RetryGateway)(nil)

func NewRetryGateway(next kodi.Gateway, policy RetryPolicy) *RetryGateway {
	if policy.InitialInterval <= 0 {
		policy.InitialInterval = DefaultRetryPolicy.InitialInterval
	}
	if policy.MaxInterval < policy.InitialInterval {
		policy.MaxInterval = policy.InitialInterval
	}
	return &RetryGateway{next: next, policy: policy}
}

func (g *RetryGateway) retry(ctx context.Context, op string, fn func() error) error {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = g.policy.InitialInterval
	eb.MaxInterval = g.policy.MaxInterval
	eb.MaxElapsedTime = 0
	b := backoff.WithContext(backoff.WithMaxRetries(eb, g.policy.MaxRetries), ctx)

	attempt := 0
	return backoff.RetryNotify(func() error { //nolint:wrapcheck // gateway errors are already classified
		attempt++
		err := fn()
		if err != nil && !kodi.IsRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, b, func(err error, wait time.Duration) {
		log.Warn().Err(err).
			Str("op", op).
			Int("attempt", attempt).
			Uint64("maxRetries", g.policy.MaxRetries).
			Dur("wait", wait).
			Msg("retrying gateway call")
	})
}

func (g *RetryGateway) CountItems(ctx context.Context, mediaType database.MediaType) (int, error) {
	var count int
	err := g.retry(ctx, "CountItems", func() error {
		var err error
		count, err = g.next.CountItems(ctx, mediaType)
		return err
	})
	return count, err
}

func (g *RetryGateway) GetPage(
	ctx context.Context,
	mediaType database.MediaType,
	offset, limit int,
	props kodi.PropertySet,
) (kodi.Page, error) {
	var page kodi.Page
	err := g.retry(ctx, "GetPage", func() error {
		var err error
		page, err = g.next.GetPage(ctx, mediaType, offset, limit, props)
		return err
	})
	return page, err
}

func (g *RetryGateway) GetItemDetail(
	ctx context.Context,
	mediaType database.MediaType,
	externalID int64,
) (*database.RemoteItem, error) {
	var item *database.RemoteItem
	err := g.retry(ctx, "GetItemDetail", func() error {
		var err error
		item, err = g.next.GetItemDetail(ctx, mediaType, externalID)
		return err
	})
	return item, err
}

func (g *RetryGateway) GetEpisodeByKey(ctx context.Context, key database.EpisodeKey) (*database.RemoteItem, error) {
	var item *database.RemoteItem
	err := g.retry(ctx, "GetEpisodeByKey", func() error {
		var err error
		item, err = g.next.GetEpisodeByKey(ctx, key)
		return err
	})
	return item, err
}

func (g *RetryGateway) GetShowDetail(ctx context.Context, showID int) (*database.RemoteShow, error) {
	var show *database.RemoteShow
	err := g.retry(ctx, "GetShowDetail", func() error {
		var err error
		show, err = g.next.GetShowDetail(ctx, showID)
		return err
	})
	return show, err
}
