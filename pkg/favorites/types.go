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

package favorites

import (
	"fmt"

	"github.com/kodimirror/kodimirror/pkg/database"
)

// Classification is the kind of target a favourite points at.
type Classification string

const (
	ClassHostDBReference Classification = "host-db-reference"
	ClassMappableFile    Classification = "mappable-file"
	ClassPluginOrScript  Classification = "plugin-or-script"
	ClassBuiltinCommand  Classification = "builtin-command"
	ClassUnknown         Classification = "unknown"
)

// HostRef is a library item addressed by the host catalog's own IDs.
type HostRef struct {
	MediaType database.MediaType
	// MovieID is set for movies.
	MovieID int64
	// Episode is set for episodes.
	Episode database.EpisodeKey
}

// Key returns the canonical matching key of the reference.
func (r HostRef) Key() string {
	if r.MediaType == database.MediaTypeEpisode {
		return fmt.Sprintf("episode:%d:%d:%d", r.Episode.ShowID, r.Episode.Season, r.Episode.Episode)
	}
	return fmt.Sprintf("movie:%d", r.MovieID)
}

// Entry is one parsed favourite.
type Entry struct {
	// Ref is set for host-db references that name a single item.
	Ref         *HostRef
	DisplayName string
	// RawTarget is the element text as written, possibly a command wrapper.
	RawTarget string
	// Target is RawTarget with command wrappers removed.
	Target         string
	Thumbnail      string
	NormalizedKey  string
	Classification Classification
}

// Outcome is the result of parsing one child element: either an Entry or a
// reason it was skipped.
type Outcome struct {
	SkipReason string
	Entry      Entry
	// Index is the element's position among the root's children.
	Index int
}

func (o *Outcome) OK() bool {
	return o.SkipReason == ""
}
