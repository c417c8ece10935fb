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
	"fmt"
	"net"

	"github.com/kodimirror/kodimirror/pkg/database"
)

// ErrTruncatedCatalog is wrapped when paging stops short of the total the
// catalog reported.
var ErrTruncatedCatalog = errors.New("catalog ended before its reported total")

// ErrorKind classifies a failed gateway call.
type ErrorKind string

const (
	KindTimeout           ErrorKind = "timeout"
	KindTransport         ErrorKind = "transport"
	KindMalformedResponse ErrorKind = "malformedResponse"
	KindApplicationError  ErrorKind = "applicationError"
)

// RPCError is returned by every failed gateway call.
type RPCError struct {
	Err    error
	Kind   ErrorKind
	Method APIMethod
	Code   int
}

func (e *RPCError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("kodi %s: %s (code %d): %v", e.Method, e.Kind, e.Code, e.Err)
	}
	return fmt.Sprintf("kodi %s: %s: %v", e.Method, e.Kind, e.Err)
}

func (e *RPCError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the failure is transient.
func (e *RPCError) Retryable() bool {
	return e.Kind == KindTimeout || e.Kind == KindTransport
}

func newRPCError(method APIMethod, kind ErrorKind, err error) *RPCError {
	return &RPCError{Method: method, Kind: kind, Err: err}
}

// TruncatedCatalogError reports that only got of want mediaType items could
// be paged. It is a malformed response and is never retried.
func TruncatedCatalogError(mediaType database.MediaType, got, want int) *RPCError {
	method := APIMethodVideoLibraryGetMovies
	if mediaType == database.MediaTypeEpisode {
		method = APIMethodVideoLibraryGetEpisodes
	}
	return newRPCError(method, KindMalformedResponse,
		fmt.Errorf("%w: got %d of %d %s items", ErrTruncatedCatalog, got, want, mediaType))
}

// ClassifyError returns the kind of a gateway failure. Errors that did not
// come from the gateway are treated as application errors, except
// deadlines and network timeouts.
func ClassifyError(err error) ErrorKind {
	var rpcErr *RPCError
	if errors.As(err, &rpcErr) {
		return rpcErr.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return KindTimeout
		}
		return KindTransport
	}
	return KindApplicationError
}

// IsRetryable reports whether err is a transient gateway failure.
func IsRetryable(err error) bool {
	kind := ClassifyError(err)
	return kind == KindTimeout || kind == KindTransport
}
