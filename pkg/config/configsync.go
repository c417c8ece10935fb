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
	DefaultRetryAttempts     = 3
	DefaultRetryInitialDelay = 500 * time.Millisecond
	DefaultRetryMaxDelay     = 10 * time.Second
	DefaultAbortCheckRows    = 50
	DefaultSnapshotMaxAge    = time.Hour
	DefaultDeltaInterval     = 15 * time.Minute
)

type Sync struct {
	RetryInitialDelay string `toml:"retry_initial_delay,omitempty" validate:"duration"`
	RetryMaxDelay     string `toml:"retry_max_delay,omitempty" validate:"duration"`
	SnapshotMaxAge    string `toml:"snapshot_max_age,omitempty" validate:"duration"`
	DeltaInterval     string `toml:"delta_interval,omitempty" validate:"duration"`
	// PageSize and BatchSize of zero are derived from device memory.
	PageSize       int `toml:"page_size" validate:"gte=0,lte=10000"`
	BatchSize      int `toml:"batch_size" validate:"gte=0,lte=10000"`
	RetryAttempts  int `toml:"retry_attempts" validate:"gte=0,lte=20"`
	AbortCheckRows int `toml:"abort_check_rows" validate:"gte=0"`
}

func (c *Instance) Sync() Sync {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Sync
}

func (c *Instance) SetPageSize(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.Sync.PageSize = n
}

func (c *Instance) RetryInitialDelay() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return durationOr(c.vals.Sync.RetryInitialDelay, DefaultRetryInitialDelay)
}

func (c *Instance) RetryMaxDelay() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return durationOr(c.vals.Sync.RetryMaxDelay, DefaultRetryMaxDelay)
}

func (c *Instance) SnapshotMaxAge() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return durationOr(c.vals.Sync.SnapshotMaxAge, DefaultSnapshotMaxAge)
}

// DeltaInterval is the period between daemon delta scans. Zero disables
// periodic scans.
func (c *Instance) DeltaInterval() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return durationOr(c.vals.Sync.DeltaInterval, DefaultDeltaInterval)
}
