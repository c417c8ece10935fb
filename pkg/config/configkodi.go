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

package config

import "time"

const (
	DefaultKodiURL           = "http://localhost:8080/jsonrpc"
	DefaultRequestsPerSecond = 20
)

type Kodi struct {
	URL      string `toml:"url" validate:"required,url"`
	Username string `toml:"username,omitempty"`
	Password string `toml:"password,omitempty"`
	Timeout  string `toml:"timeout,omitempty" validate:"duration"`
	// RequestsPerSecond limits gateway calls. Zero disables the limit.
	RequestsPerSecond float64 `toml:"requests_per_second" validate:"gte=0"`
}

func (c *Instance) Kodi() Kodi {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Kodi
}

func (c *Instance) SetKodiURL(url string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.Kodi.URL = url
}

func (c *Instance) KodiTimeout() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return durationOr(c.vals.Kodi.Timeout, RequestTimeout)
}
