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

	"github.com/kodimirror/kodimirror/pkg/database"
)

// Page is one window of catalog items plus the catalog total reported with
// it.
type Page struct {
	Items []database.RemoteItem
	Total int
}

// Gateway is the paginated channel to the host catalog. Detail lookups
// return nil, nil when the catalog has no such item. Every failure is an
// *RPCError.
type Gateway interface {
	CountItems(ctx context.Context, mediaType database.MediaType) (int, error)
	GetPage(
		ctx context.Context,
		mediaType database.MediaType,
		offset, limit int,
		props PropertySet,
	) (Page, error)
	GetItemDetail(
		ctx context.Context,
		mediaType database.MediaType,
		externalID int64,
	) (*database.RemoteItem, error)
	GetEpisodeByKey(ctx context.Context, key database.EpisodeKey) (*database.RemoteItem, error)
	GetShowDetail(ctx context.Context, showID int) (*database.RemoteShow, error)
}
