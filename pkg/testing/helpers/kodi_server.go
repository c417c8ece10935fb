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

package helpers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/kodimirror/kodimirror/pkg/database"
	"github.com/kodimirror/kodimirror/pkg/kodi"
	"github.com/kodimirror/kodimirror/pkg/testing/fixtures"
)

// MockKodiServer serves a fixtures.Catalog over Kodi JSON-RPC for
// integration testing
type MockKodiServer struct {
	*httptest.Server
	catalog *fixtures.Catalog
}

type rpcRequest struct {
	ID     string          `json:"id"`
	Method kodi.APIMethod  `json:"method"`
	Params json.RawMessage `json:"params"`
}

// NewMockKodiServer creates a new mock Kodi server backed by catalog. The
// server is closed when the test ends.
func NewMockKodiServer(t *testing.T, catalog *fixtures.Catalog) *MockKodiServer {
	t.Helper()

	m := &MockKodiServer{catalog: catalog}
	mux := http.NewServeMux()
	mux.HandleFunc("/jsonrpc", m.handleJSONRPC)
	m.Server = httptest.NewServer(mux)
	t.Cleanup(m.Close)

	return m
}

// GetURLForConfig returns the mock server's URL formatted for Kodi client configuration
func (m *MockKodiServer) GetURLForConfig() string {
	return m.URL + "/jsonrpc"
}

func (m *MockKodiServer) handleJSONRPC(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	result, apiErr := m.dispatch(r.Context(), req)
	response := kodi.APIResponse{
		ID:      req.ID,
		JSONRPC: "2.0",
		Error:   apiErr,
	}
	if apiErr == nil {
		data, err := json.Marshal(result)
		if err != nil {
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		response.Result = data
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(response)
}

func invalidParams() *kodi.APIError {
	return &kodi.APIError{Code: -32602, Message: "Invalid params."}
}

func (m *MockKodiServer) dispatch(ctx context.Context, req rpcRequest) (any, *kodi.APIError) {
	switch req.Method {
	case kodi.APIMethodJSONRPCPing:
		return "pong", nil
	case kodi.APIMethodVideoLibraryGetMovies, kodi.APIMethodVideoLibraryGetEpisodes:
		var params kodi.VideoLibraryListParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return nil, invalidParams()
		}
		return m.list(ctx, req.Method, &params)
	case kodi.APIMethodVideoLibraryGetMovieDetails:
		var params kodi.VideoLibraryGetMovieDetailsParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return nil, invalidParams()
		}
		item, _ := m.catalog.GetItemDetail(ctx, database.MediaTypeMovie, int64(params.MovieID))
		if item == nil {
			return nil, invalidParams()
		}
		return kodi.VideoLibraryGetMovieDetailsResponse{MovieDetails: toMovie(item)}, nil
	case kodi.APIMethodVideoLibraryGetEpisodeDetail:
		var params kodi.VideoLibraryGetEpisodeDetailsParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return nil, invalidParams()
		}
		item, _ := m.catalog.GetItemDetail(ctx, database.MediaTypeEpisode, int64(params.EpisodeID))
		if item == nil {
			return nil, invalidParams()
		}
		return kodi.VideoLibraryGetEpisodeDetailsResponse{EpisodeDetails: toEpisode(item)}, nil
	case kodi.APIMethodVideoLibraryGetTVShowDetails:
		var params kodi.VideoLibraryGetTVShowDetailsParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return nil, invalidParams()
		}
		show, _ := m.catalog.GetShowDetail(ctx, params.TVShowID)
		if show == nil {
			return nil, invalidParams()
		}
		return kodi.VideoLibraryGetTVShowDetailsResponse{TVShowDetails: &kodi.TVShow{
			ID:       show.ID,
			Label:    show.Title,
			Title:    show.Title,
			Year:     show.Year,
			UniqueID: kodi.UniqueID{"imdb": show.IMDbID, "tvdb": show.TVDbID},
		}}, nil
	default:
		return nil, &kodi.APIError{Code: -32601, Message: "Method not found."}
	}
}

func (m *MockKodiServer) list(
	ctx context.Context,
	method kodi.APIMethod,
	params *kodi.VideoLibraryListParams,
) (any, *kodi.APIError) {
	if method == kodi.APIMethodVideoLibraryGetEpisodes && params.TVShowID != nil {
		key := database.EpisodeKey{ShowID: *params.TVShowID}
		if params.Season != nil {
			key.Season = *params.Season
		}
		if params.Filter != nil {
			value, _ := params.Filter.Value.(string)
			key.Episode, _ = strconv.Atoi(value)
		}
		resp := kodi.VideoLibraryGetEpisodesResponse{Episodes: []kodi.Episode{}}
		if item, _ := m.catalog.GetEpisodeByKey(ctx, key); item != nil {
			resp.Episodes = append(resp.Episodes, *toEpisode(item))
		}
		resp.Limits.Total = len(resp.Episodes)
		resp.Limits.End = len(resp.Episodes)
		return resp, nil
	}

	mediaType := database.MediaTypeMovie
	if method == kodi.APIMethodVideoLibraryGetEpisodes {
		mediaType = database.MediaTypeEpisode
	}
	start, end := 0, 0
	if params.Limits != nil {
		start, end = params.Limits.Start, params.Limits.End
	}
	page, err := m.catalog.GetPage(ctx, mediaType, start, end-start, kodi.PropertiesFull)
	if err != nil {
		return nil, &kodi.APIError{Code: -32603, Message: err.Error()}
	}
	limits := kodi.LimitsReturned{Start: start, End: start + len(page.Items), Total: page.Total}

	if mediaType == database.MediaTypeMovie {
		resp := kodi.VideoLibraryGetMoviesResponse{Movies: make([]kodi.Movie, 0, len(page.Items)), Limits: limits}
		for i := range page.Items {
			resp.Movies = append(resp.Movies, *toMovie(&page.Items[i]))
		}
		return resp, nil
	}
	resp := kodi.VideoLibraryGetEpisodesResponse{Episodes: make([]kodi.Episode, 0, len(page.Items)), Limits: limits}
	for i := range page.Items {
		resp.Episodes = append(resp.Episodes, *toEpisode(&page.Items[i]))
	}
	return resp, nil
}

func toMovie(item *database.RemoteItem) *kodi.Movie {
	return &kodi.Movie{
		ID:         int(item.ExternalID),
		Label:      item.Title,
		Title:      item.Title,
		File:       item.Path,
		DateAdded:  item.AddedAt,
		Year:       item.Year,
		IMDbNumber: item.IMDbID,
		UniqueID:   kodi.UniqueID{"tmdb": item.TMDbID},
	}
}

func toEpisode(item *database.RemoteItem) *kodi.Episode {
	return &kodi.Episode{
		ID:        int(item.ExternalID),
		Label:     item.Title,
		Title:     item.Title,
		File:      item.Path,
		DateAdded: item.AddedAt,
		TVShowID:  item.ShowID,
		ShowTitle: item.ShowTitle,
		Season:    item.Season,
		Episode:   item.Episode,
		UniqueID:  kodi.UniqueID{"imdb": item.IMDbID, "tmdb": item.TMDbID, "tvdb": item.TVDbID},
	}
}
