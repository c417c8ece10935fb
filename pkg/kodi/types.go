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

import "encoding/json"

// APIMethod represents Kodi JSON-RPC API methods
type APIMethod string

// Kodi API methods
const (
	APIMethodVideoLibraryGetMovies        APIMethod = "VideoLibrary.GetMovies"
	APIMethodVideoLibraryGetEpisodes      APIMethod = "VideoLibrary.GetEpisodes"
	APIMethodVideoLibraryGetMovieDetails  APIMethod = "VideoLibrary.GetMovieDetails"
	APIMethodVideoLibraryGetEpisodeDetail APIMethod = "VideoLibrary.GetEpisodeDetails"
	APIMethodVideoLibraryGetTVShowDetails APIMethod = "VideoLibrary.GetTVShowDetails"
	APIMethodJSONRPCPing                  APIMethod = "JSONRPC.Ping"
)

// JSON-RPC error code Kodi returns for unknown library IDs.
const errorCodeInvalidParams = -32602

// APIPayload represents a Kodi JSON-RPC request
type APIPayload struct {
	Params  any       `json:"params,omitempty"`
	JSONRPC string    `json:"jsonrpc"`
	ID      string    `json:"id"`
	Method  APIMethod `json:"method"`
}

// APIError represents a Kodi JSON-RPC error
type APIError struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// APIResponse represents a Kodi JSON-RPC response
type APIResponse struct {
	Error   *APIError       `json:"error,omitempty"`
	ID      string          `json:"id"`
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result"`
}

// Limits is the paging window of a list request. End is exclusive.
type Limits struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// LimitsReturned is the paging window echoed back with the list total.
type LimitsReturned struct {
	Start int `json:"start"`
	End   int `json:"end"`
	Total int `json:"total"`
}

// UniqueID maps provider names (imdb, tmdb, tvdb) to identifiers.
type UniqueID map[string]string

// Movie represents a movie in Kodi's library
type Movie struct {
	UniqueID   UniqueID `json:"uniqueid,omitempty"`
	Label      string   `json:"label"`
	Title      string   `json:"title,omitempty"`
	File       string   `json:"file,omitempty"`
	DateAdded  string   `json:"dateadded,omitempty"`
	IMDbNumber string   `json:"imdbnumber,omitempty"`
	ID         int      `json:"movieid"`
	Year       int      `json:"year,omitempty"`
}

// TVShow represents a TV show in Kodi's library
type TVShow struct {
	UniqueID   UniqueID `json:"uniqueid,omitempty"`
	Label      string   `json:"label"`
	Title      string   `json:"title,omitempty"`
	IMDbNumber string   `json:"imdbnumber,omitempty"`
	ID         int      `json:"tvshowid"`
	Year       int      `json:"year,omitempty"`
}

// Episode represents a TV episode in Kodi's library
type Episode struct {
	UniqueID  UniqueID `json:"uniqueid,omitempty"`
	Label     string   `json:"label"`
	Title     string   `json:"title,omitempty"`
	File      string   `json:"file,omitempty"`
	DateAdded string   `json:"dateadded,omitempty"`
	ShowTitle string   `json:"showtitle,omitempty"`
	ID        int      `json:"episodeid"`
	TVShowID  int      `json:"tvshowid"`
	Season    int      `json:"season"`
	Episode   int      `json:"episode"`
}

// FilterRule represents a Kodi API filter rule
type FilterRule struct {
	Value    any    `json:"value"`
	Field    string `json:"field"`
	Operator string `json:"operator"`
}

// VideoLibraryListParams are the parameters of GetMovies and GetEpisodes.
type VideoLibraryListParams struct {
	Limits     *Limits     `json:"limits,omitempty"`
	Filter     *FilterRule `json:"filter,omitempty"`
	TVShowID   *int        `json:"tvshowid,omitempty"`
	Season     *int        `json:"season,omitempty"`
	Properties []string    `json:"properties,omitempty"`
}

// VideoLibraryGetMoviesResponse represents the response from VideoLibrary.GetMovies
type VideoLibraryGetMoviesResponse struct {
	Movies []Movie        `json:"movies"`
	Limits LimitsReturned `json:"limits"`
}

// VideoLibraryGetEpisodesResponse represents the response from VideoLibrary.GetEpisodes
type VideoLibraryGetEpisodesResponse struct {
	Episodes []Episode     `json:"episodes"`
	Limits   LimitsReturned `json:"limits"`
}

// VideoLibraryGetMovieDetailsParams represents parameters for VideoLibrary.GetMovieDetails
type VideoLibraryGetMovieDetailsParams struct {
	Properties []string `json:"properties,omitempty"`
	MovieID    int      `json:"movieid"`
}

// VideoLibraryGetMovieDetailsResponse represents the response from VideoLibrary.GetMovieDetails
type VideoLibraryGetMovieDetailsResponse struct {
	MovieDetails *Movie `json:"moviedetails"`
}

// VideoLibraryGetEpisodeDetailsParams represents parameters for VideoLibrary.GetEpisodeDetails
type VideoLibraryGetEpisodeDetailsParams struct {
	Properties []string `json:"properties,omitempty"`
	EpisodeID  int      `json:"episodeid"`
}

// VideoLibraryGetEpisodeDetailsResponse represents the response from VideoLibrary.GetEpisodeDetails
type VideoLibraryGetEpisodeDetailsResponse struct {
	EpisodeDetails *Episode `json:"episodedetails"`
}

// VideoLibraryGetTVShowDetailsParams represents parameters for VideoLibrary.GetTVShowDetails
type VideoLibraryGetTVShowDetailsParams struct {
	Properties []string `json:"properties,omitempty"`
	TVShowID   int      `json:"tvshowid"`
}

// VideoLibraryGetTVShowDetailsResponse represents the response from VideoLibrary.GetTVShowDetails
type VideoLibraryGetTVShowDetailsResponse struct {
	TVShowDetails *TVShow `json:"tvshowdetails"`
}

// PropertySet selects how much of each item a page request returns.
type PropertySet int

const (
	// PropertiesIdentity is enough to mirror identities into a snapshot.
	PropertiesIdentity PropertySet = iota
	// PropertiesFull is everything an index row is built from.
	PropertiesFull
)

var (
	movieIdentityProperties   = []string{"title", "file", "dateadded"}
	movieFullProperties       = []string{"title", "file", "dateadded", "year", "imdbnumber", "uniqueid"}
	episodeIdentityProperties = []string{"title", "file", "dateadded"}
	episodeFullProperties     = []string{
		"title", "file", "dateadded", "tvshowid", "showtitle", "season", "episode", "uniqueid",
	}
	tvShowProperties = []string{"title", "year", "imdbnumber", "uniqueid"}
)
