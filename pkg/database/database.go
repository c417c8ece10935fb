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

package database

import (
	"fmt"
	"time"
)

/*
 * Shared row types. Concrete storage lives in indexdb; these types are kept
 * at this level so the scanner, snapshot and favorites packages can share
 * them without import cycles.
 */

// MediaType identifies the catalog shape a row belongs to.
type MediaType string

const (
	MediaTypeMovie   MediaType = "movie"
	MediaTypeEpisode MediaType = "episode"
)

// MediaTypes lists every synchronized media type in scan order.
var MediaTypes = []MediaType{MediaTypeMovie, MediaTypeEpisode}

func (mt MediaType) Valid() bool {
	return mt == MediaTypeMovie || mt == MediaTypeEpisode
}

func ParseMediaType(s string) (MediaType, error) {
	mt := MediaType(s)
	if !mt.Valid() {
		return "", fmt.Errorf("unknown media type: %q", s)
	}
	return mt, nil
}

// IndexRow is one persisted media item (movie or episode).
type IndexRow struct {
	LastSeenAt     time.Time
	ExternalID     *int64
	MediaType      MediaType
	Title          string
	Path           string
	NormalizedPath string
	AddedAt        string
	IMDbID         string
	TMDbID         string
	TVDbID         string
	ShowTitle      string
	DBID           int64
	Year           int
	ShowID         int
	Season         int
	Episode        int
	IsRemoved      bool
}

// EpisodeKey addresses an episode by show, season and episode number.
type EpisodeKey struct {
	ShowID  int
	Season  int
	Episode int
}

func (k EpisodeKey) String() string {
	return fmt.Sprintf("%d:%d:%d", k.ShowID, k.Season, k.Episode)
}

// SnapshotRow is the transient mirror of one remote identity.
type SnapshotRow struct {
	MediaType  MediaType
	Title      string
	Path       string
	AddedAt    string
	ExternalID int64
}

// RemoteItem is an item as reported by the host catalog.
type RemoteItem struct {
	MediaType  MediaType
	Title      string
	Path       string
	AddedAt    string
	IMDbID     string
	TMDbID     string
	TVDbID     string
	ShowTitle  string
	ExternalID int64
	Year       int
	ShowID     int
	Season     int
	Episode    int
}

// Snapshot returns the identity-only projection of the item.
func (ri *RemoteItem) Snapshot() SnapshotRow {
	return SnapshotRow{
		ExternalID: ri.ExternalID,
		MediaType:  ri.MediaType,
		Title:      ri.Title,
		Path:       ri.Path,
		AddedAt:    ri.AddedAt,
	}
}

// IndexRow returns the index row of the item as seen at seenAt.
// normalizedPath is stored as given so callers share one path canonical form.
func (ri *RemoteItem) IndexRow(normalizedPath string, seenAt time.Time) IndexRow {
	externalID := ri.ExternalID
	return IndexRow{
		ExternalID:     &externalID,
		MediaType:      ri.MediaType,
		Title:          ri.Title,
		Year:           ri.Year,
		Path:           ri.Path,
		NormalizedPath: normalizedPath,
		IMDbID:         ri.IMDbID,
		TMDbID:         ri.TMDbID,
		TVDbID:         ri.TVDbID,
		LastSeenAt:     seenAt,
		AddedAt:        ri.AddedAt,
		ShowID:         ri.ShowID,
		ShowTitle:      ri.ShowTitle,
		Season:         ri.Season,
		Episode:        ri.Episode,
	}
}

// RemoteShow is the show-level metadata used when synthesizing episodes.
type RemoteShow struct {
	Title  string
	IMDbID string
	TMDbID string
	TVDbID string
	ID     int
	Year   int
}

type ScanType string

const (
	ScanTypeFull  ScanType = "full"
	ScanTypeDelta ScanType = "delta"
)

type ScanStatus string

const (
	ScanStatusRunning   ScanStatus = "running"
	ScanStatusCompleted ScanStatus = "completed"
	ScanStatusAborted   ScanStatus = "aborted"
	ScanStatusFailed    ScanStatus = "failed"
)

// ScanCounts are the running totals of a synchronization pass.
type ScanCounts struct {
	Found   int
	Added   int
	Updated int
	Removed int
}

// ScanLogEntry is the audit record of one synchronization pass.
type ScanLogEntry struct {
	StartedAt   time.Time
	CompletedAt *time.Time
	Error       *string
	ErrorKind   *string
	ScanType    ScanType
	MediaType   MediaType
	Status      ScanStatus
	ScanCounts
	DBID       int64
	LastOffset int
}

// FavoriteMember is one row of the materialized favorites list.
type FavoriteMember struct {
	Item     IndexRow
	Position int
}
