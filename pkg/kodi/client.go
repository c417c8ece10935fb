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

// Package kodi is the RPC gateway to a Kodi video library over JSON-RPC 2.0.
package kodi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kodimirror/kodimirror/pkg/database"
	"github.com/kodimirror/kodimirror/pkg/shared/httpclient"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	DefaultURL     = "http://localhost:8080/jsonrpc"
	DefaultTimeout = 30 * time.Second
)

var errEmptyResult = errors.New("response has no result")

// ClientOptions configures a Client.
type ClientOptions struct {
	HTTPClient *http.Client
	URL        string
	Username   string
	Password   string
	Timeout    time.Duration
	// RequestsPerSecond caps the request rate. Zero disables the limiter.
	RequestsPerSecond float64
}

// Client implements the Gateway interface
type Client struct {
	http     *http.Client
	limiter  *rate.Limiter
	url      string
	username string
	password string
	timeout  time.Duration
}

// Ensure Client implements Gateway at compile time
var _ Gateway = (*Client)(nil)

// NewClient creates a new Kodi client. Empty options fall back to a local
// Kodi on the default port.
func NewClient(opts ClientOptions) *Client {
	c := &Client{
		http:     opts.HTTPClient,
		url:      opts.URL,
		username: opts.Username,
		password: opts.Password,
		timeout:  opts.Timeout,
	}
	if c.http == nil {
		c.http = httpclient.NewClient()
	}
	if c.url == "" {
		c.url = DefaultURL
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	if opts.RequestsPerSecond > 0 {
		burst := int(opts.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}
	return c
}

// GetURL returns the current Kodi API URL
func (c *Client) GetURL() string {
	return c.url
}

// SetURL sets the Kodi API URL
func (c *Client) SetURL(url string) {
	c.url = url
}

// Ping checks that the JSON-RPC endpoint answers.
func (c *Client) Ping(ctx context.Context) error {
	var pong string
	return c.call(ctx, APIMethodJSONRPCPing, nil, &pong)
}

// CountItems returns the catalog total for a media type.
func (c *Client) CountItems(ctx context.Context, mediaType database.MediaType) (int, error) {
	page, err := c.GetPage(ctx, mediaType, 0, 1, PropertiesIdentity)
	if err != nil {
		return 0, err
	}
	return page.Total, nil
}

// GetPage returns items [offset, offset+limit) in catalog order.
func (c *Client) GetPage(
	ctx context.Context,
	mediaType database.MediaType,
	offset, limit int,
	props PropertySet,
) (Page, error) {
	params := VideoLibraryListParams{
		Limits: &Limits{Start: offset, End: offset + limit},
	}

	switch mediaType {
	case database.MediaTypeMovie:
		params.Properties = movieIdentityProperties
		if props == PropertiesFull {
			params.Properties = movieFullProperties
		}
		var resp VideoLibraryGetMoviesResponse
		if err := c.call(ctx, APIMethodVideoLibraryGetMovies, params, &resp); err != nil {
			return Page{}, err
		}
		items := make([]database.RemoteItem, 0, len(resp.Movies))
		for i := range resp.Movies {
			items = append(items, movieToRemote(&resp.Movies[i]))
		}
		return Page{Items: items, Total: resp.Limits.Total}, nil
	case database.MediaTypeEpisode:
		params.Properties = episodeIdentityProperties
		if props == PropertiesFull {
			params.Properties = episodeFullProperties
		}
		var resp VideoLibraryGetEpisodesResponse
		if err := c.call(ctx, APIMethodVideoLibraryGetEpisodes, params, &resp); err != nil {
			return Page{}, err
		}
		items := make([]database.RemoteItem, 0, len(resp.Episodes))
		for i := range resp.Episodes {
			items = append(items, episodeToRemote(&resp.Episodes[i]))
		}
		return Page{Items: items, Total: resp.Limits.Total}, nil
	default:
		return Page{}, newRPCError("", KindApplicationError,
			fmt.Errorf("unsupported media type: %q", mediaType))
	}
}

// GetItemDetail fetches one item with full properties.
func (c *Client) GetItemDetail(
	ctx context.Context,
	mediaType database.MediaType,
	externalID int64,
) (*database.RemoteItem, error) {
	switch mediaType {
	case database.MediaTypeMovie:
		var resp VideoLibraryGetMovieDetailsResponse
		err := c.call(ctx, APIMethodVideoLibraryGetMovieDetails, VideoLibraryGetMovieDetailsParams{
			MovieID:    int(externalID),
			Properties: movieFullProperties,
		}, &resp)
		if isNotFound(err) || (err == nil && resp.MovieDetails == nil) {
			return nil, nil
		} else if err != nil {
			return nil, err
		}
		item := movieToRemote(resp.MovieDetails)
		return &item, nil
	case database.MediaTypeEpisode:
		var resp VideoLibraryGetEpisodeDetailsResponse
		err := c.call(ctx, APIMethodVideoLibraryGetEpisodeDetail, VideoLibraryGetEpisodeDetailsParams{
			EpisodeID:  int(externalID),
			Properties: episodeFullProperties,
		}, &resp)
		if isNotFound(err) || (err == nil && resp.EpisodeDetails == nil) {
			return nil, nil
		} else if err != nil {
			return nil, err
		}
		item := episodeToRemote(resp.EpisodeDetails)
		return &item, nil
	default:
		return nil, newRPCError("", KindApplicationError,
			fmt.Errorf("unsupported media type: %q", mediaType))
	}
}

// GetEpisodeByKey finds an episode by show, season and episode number.
func (c *Client) GetEpisodeByKey(ctx context.Context, key database.EpisodeKey) (*database.RemoteItem, error) {
	showID := key.ShowID
	season := key.Season
	params := VideoLibraryListParams{
		TVShowID:   &showID,
		Season:     &season,
		Properties: episodeFullProperties,
		Filter: &FilterRule{
			Field:    "episode",
			Operator: "is",
			Value:    strconv.Itoa(key.Episode),
		},
	}

	var resp VideoLibraryGetEpisodesResponse
	err := c.call(ctx, APIMethodVideoLibraryGetEpisodes, params, &resp)
	if isNotFound(err) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	for i := range resp.Episodes {
		if resp.Episodes[i].Episode != key.Episode {
			continue
		}
		item := episodeToRemote(&resp.Episodes[i])
		if item.ShowID == 0 {
			item.ShowID = key.ShowID
		}
		if item.Season == 0 {
			item.Season = key.Season
		}
		return &item, nil
	}
	return nil, nil
}

// GetShowDetail fetches show-level metadata.
func (c *Client) GetShowDetail(ctx context.Context, showID int) (*database.RemoteShow, error) {
	var resp VideoLibraryGetTVShowDetailsResponse
	err := c.call(ctx, APIMethodVideoLibraryGetTVShowDetails, VideoLibraryGetTVShowDetailsParams{
		TVShowID:   showID,
		Properties: tvShowProperties,
	}, &resp)
	if isNotFound(err) || (err == nil && resp.TVShowDetails == nil) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	show := resp.TVShowDetails
	title := show.Title
	if title == "" {
		title = show.Label
	}
	return &database.RemoteShow{
		ID:     show.ID,
		Title:  title,
		Year:   show.Year,
		IMDbID: imdbID(show.UniqueID, show.IMDbNumber),
		TMDbID: show.UniqueID["tmdb"],
		TVDbID: show.UniqueID["tvdb"],
	}, nil
}

func (c *Client) call(ctx context.Context, method APIMethod, params, out any) error {
	result, err := c.APIRequest(ctx, method, params)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(result, out); err != nil {
		return newRPCError(method, KindMalformedResponse,
			fmt.Errorf("failed to unmarshal %s response: %w", method, err))
	}
	return nil
}

// APIRequest makes a raw JSON-RPC request to Kodi API
func (c *Client) APIRequest(ctx context.Context, method APIMethod, params any) (json.RawMessage, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, newRPCError(method, contextKind(ctx), fmt.Errorf("rate limiter: %w", err))
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req := APIPayload{
		JSONRPC: "2.0",
		ID:      uuid.New().String(),
		Method:  method,
		Params:  params,
	}

	reqJSON, err := json.Marshal(req)
	if err != nil {
		return nil, newRPCError(method, KindApplicationError, fmt.Errorf("failed to marshal request: %w", err))
	}

	kodiReq, err := http.NewRequestWithContext(callCtx, http.MethodPost, c.url, bytes.NewBuffer(reqJSON))
	if err != nil {
		return nil, newRPCError(method, KindApplicationError, fmt.Errorf("failed to create request: %w", err))
	}

	kodiReq.Header.Set("Content-Type", "application/json")
	kodiReq.Header.Set("Accept", "application/json")
	if c.username != "" {
		kodiReq.SetBasicAuth(c.username, c.password)
	}

	started := time.Now()
	resp, err := c.http.Do(kodiReq)
	if err != nil {
		kind := ClassifyError(err)
		if kind != KindTimeout {
			kind = KindTransport
		}
		return nil, newRPCError(method, kind, fmt.Errorf("failed to send request: %w", err))
	}
	defer func() {
		_ = resp.Body.Close() // Ignore close error in defer
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		kind := ClassifyError(err)
		if kind != KindTimeout {
			kind = KindTransport
		}
		return nil, newRPCError(method, kind, fmt.Errorf("failed to read response body: %w", err))
	}

	log.Debug().
		Str("method", string(method)).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(started)).
		Msg("kodi request")

	if resp.StatusCode != http.StatusOK {
		rpcErr := newRPCError(method, KindApplicationError,
			fmt.Errorf("unexpected http status: %s", resp.Status))
		rpcErr.Code = resp.StatusCode
		if resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests {
			rpcErr.Kind = KindTransport
		}
		return nil, rpcErr
	}

	var apiResp APIResponse
	err = json.Unmarshal(body, &apiResp)
	if err != nil {
		return nil, newRPCError(method, KindMalformedResponse, fmt.Errorf("failed to unmarshal response: %w", err))
	}
	if apiResp.Error != nil {
		rpcErr := newRPCError(method, KindApplicationError,
			fmt.Errorf("error from kodi api: %s", apiResp.Error.Message))
		rpcErr.Code = apiResp.Error.Code
		return nil, rpcErr
	}
	if len(apiResp.Result) == 0 || string(apiResp.Result) == "null" {
		return nil, newRPCError(method, KindMalformedResponse, errEmptyResult)
	}

	return apiResp.Result, nil
}

func contextKind(ctx context.Context) ErrorKind {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return KindTimeout
	}
	return KindTransport
}

func isNotFound(err error) bool {
	var rpcErr *RPCError
	return errors.As(err, &rpcErr) &&
		rpcErr.Kind == KindApplicationError &&
		rpcErr.Code == errorCodeInvalidParams
}

func imdbID(ids UniqueID, imdbNumber string) string {
	if id := ids["imdb"]; id != "" {
		return id
	}
	if strings.HasPrefix(imdbNumber, "tt") {
		return imdbNumber
	}
	return ""
}

func movieToRemote(m *Movie) database.RemoteItem {
	title := m.Title
	if title == "" {
		title = m.Label
	}
	return database.RemoteItem{
		MediaType:  database.MediaTypeMovie,
		ExternalID: int64(m.ID),
		Title:      title,
		Path:       m.File,
		AddedAt:    m.DateAdded,
		Year:       m.Year,
		IMDbID:     imdbID(m.UniqueID, m.IMDbNumber),
		TMDbID:     m.UniqueID["tmdb"],
	}
}

func episodeToRemote(e *Episode) database.RemoteItem {
	title := e.Title
	if title == "" {
		title = e.Label
	}
	return database.RemoteItem{
		MediaType:  database.MediaTypeEpisode,
		ExternalID: int64(e.ID),
		Title:      title,
		Path:       e.File,
		AddedAt:    e.DateAdded,
		ShowID:     e.TVShowID,
		ShowTitle:  e.ShowTitle,
		Season:     e.Season,
		Episode:    e.Episode,
		IMDbID:     e.UniqueID["imdb"],
		TMDbID:     e.UniqueID["tmdb"],
		TVDbID:     e.UniqueID["tvdb"],
	}
}
