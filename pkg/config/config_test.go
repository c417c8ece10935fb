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

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigAt_WritesDefaults(t *testing.T) {
	t.Parallel()

	cfgPath := filepath.Join(t.TempDir(), "nested", CfgFile)

	cfg, err := NewConfigAt(cfgPath, BaseDefaults)
	require.NoError(t, err)

	_, err = os.Stat(cfgPath)
	require.NoError(t, err, "default config should be saved")

	assert.Equal(t, cfgPath, cfg.Path())
	assert.Equal(t, DefaultKodiURL, cfg.Kodi().URL)
	assert.Equal(t, RequestTimeout, cfg.KodiTimeout())
	assert.Equal(t, DefaultRetryAttempts, cfg.Sync().RetryAttempts)
	assert.Equal(t, DefaultSnapshotMaxAge, cfg.SnapshotMaxAge())
	assert.Equal(t, DefaultListName, cfg.Favorites().ListName)
	assert.False(t, cfg.DebugLogging())
	assert.Empty(t, cfg.DatabasePath())
}

func TestLoad_PreservesDefaultsForMissingFields(t *testing.T) {
	t.Parallel()

	cfgPath := filepath.Join(t.TempDir(), CfgFile)
	minimalConfig := fmt.Sprintf("config_schema = %d\n", SchemaVersion)
	require.NoError(t, os.WriteFile(cfgPath, []byte(minimalConfig), 0o600))

	cfg := &Instance{cfgPath: cfgPath, vals: BaseDefaults, defaults: BaseDefaults}
	require.NoError(t, cfg.Load())

	assert.Equal(t, DefaultKodiURL, cfg.vals.Kodi.URL)
	assert.Equal(t, DefaultAbortCheckRows, cfg.vals.Sync.AbortCheckRows)
	assert.Equal(t, DefaultDeltaInterval, cfg.DeltaInterval())
	assert.Equal(t, DefaultListName, cfg.vals.Favorites.ListName)
}

func TestLoad_OverridesDefaults(t *testing.T) {
	t.Parallel()

	cfgPath := filepath.Join(t.TempDir(), CfgFile)
	configContent := fmt.Sprintf(`config_schema = %d
debug_logging = true

[kodi]
url = "http://kodi.lan:8080/jsonrpc"
username = "kodi"
password = "secret"
timeout = "5s"
requests_per_second = 5

[sync]
page_size = 200
batch_size = 100
retry_attempts = 5
retry_initial_delay = "1s"
retry_max_delay = "30s"
snapshot_max_age = "2h"
delta_interval = "0s"

[favorites]
path = "/storage/.kodi/userdata/favourites.xml"
list_name = "living-room"
watch = true

[database]
path = "/var/lib/kodimirror/index.db"
`, SchemaVersion)
	require.NoError(t, os.WriteFile(cfgPath, []byte(configContent), 0o600))

	cfg := &Instance{cfgPath: cfgPath, vals: BaseDefaults, defaults: BaseDefaults}
	require.NoError(t, cfg.Load())

	assert.True(t, cfg.DebugLogging())
	kodi := cfg.Kodi()
	assert.Equal(t, "http://kodi.lan:8080/jsonrpc", kodi.URL)
	assert.Equal(t, "kodi", kodi.Username)
	assert.Equal(t, "secret", kodi.Password)
	assert.InDelta(t, 5.0, kodi.RequestsPerSecond, 0.001)
	assert.Equal(t, 5*time.Second, cfg.KodiTimeout())

	sync := cfg.Sync()
	assert.Equal(t, 200, sync.PageSize)
	assert.Equal(t, 100, sync.BatchSize)
	assert.Equal(t, 5, sync.RetryAttempts)
	assert.Equal(t, time.Second, cfg.RetryInitialDelay())
	assert.Equal(t, 30*time.Second, cfg.RetryMaxDelay())
	assert.Equal(t, 2*time.Hour, cfg.SnapshotMaxAge())
	assert.Equal(t, time.Duration(0), cfg.DeltaInterval())

	fav := cfg.Favorites()
	assert.Equal(t, "/storage/.kodi/userdata/favourites.xml", fav.Path)
	assert.Equal(t, "living-room", fav.ListName)
	assert.True(t, fav.Watch)
	assert.Equal(t, "/var/lib/kodimirror/index.db", cfg.DatabasePath())
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		errMsg  string
	}{
		{
			name:    "bad duration",
			content: "[sync]\nretry_max_delay = \"soon\"\n",
			errMsg:  "RetryMaxDelay",
		},
		{
			name:    "negative page size",
			content: "[sync]\npage_size = -1\n",
			errMsg:  "PageSize",
		},
		{
			name:    "bad url",
			content: "[kodi]\nurl = \"not a url\"\n",
			errMsg:  "URL",
		},
		{
			name:    "empty list name",
			content: "[favorites]\nlist_name = \"\"\n",
			errMsg:  "ListName",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfgPath := filepath.Join(t.TempDir(), CfgFile)
			content := fmt.Sprintf("config_schema = %d\n%s", SchemaVersion, tt.content)
			require.NoError(t, os.WriteFile(cfgPath, []byte(content), 0o600))

			cfg := &Instance{cfgPath: cfgPath, vals: BaseDefaults, defaults: BaseDefaults}
			err := cfg.Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
			assert.Equal(t, BaseDefaults.Kodi.URL, cfg.vals.Kodi.URL, "values should be unchanged")
		})
	}
}

func TestLoad_SchemaMismatch(t *testing.T) {
	t.Parallel()

	cfgPath := filepath.Join(t.TempDir(), CfgFile)
	require.NoError(t, os.WriteFile(cfgPath, []byte("config_schema = 99\n"), 0o600))

	cfg := &Instance{cfgPath: cfgPath, vals: BaseDefaults, defaults: BaseDefaults}
	require.ErrorContains(t, cfg.Load(), "schema version mismatch")
}

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Parallel()

	cfg, err := NewConfigAt(filepath.Join(t.TempDir(), CfgFile), BaseDefaults)
	require.NoError(t, err)

	cfg.SetKodiURL("http://10.0.0.5:8080/jsonrpc")
	cfg.SetPageSize(150)
	cfg.SetFavoritesPath("/tmp/favourites.xml")
	cfg.SetFavoritesWatch(true)
	cfg.SetDebugLogging(true)
	require.NoError(t, cfg.Save())
	require.NoError(t, cfg.Load())

	assert.Equal(t, "http://10.0.0.5:8080/jsonrpc", cfg.Kodi().URL)
	assert.Equal(t, 150, cfg.Sync().PageSize)
	assert.Equal(t, "/tmp/favourites.xml", cfg.Favorites().Path)
	assert.True(t, cfg.Favorites().Watch)
	assert.True(t, cfg.DebugLogging())
}

func TestDurationOr(t *testing.T) {
	t.Parallel()

	assert.Equal(t, time.Minute, durationOr("", time.Minute))
	assert.Equal(t, time.Minute, durationOr("bogus", time.Minute))
	assert.Equal(t, 3*time.Second, durationOr("3s", time.Minute))
}

// TestGetters_ConcurrentAccess verifies getters and setters are safe for
// concurrent use.
func TestGetters_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	cfg := &Instance{vals: BaseDefaults}

	done := make(chan struct{})
	for i := range 10 {
		go func() {
			for range 100 {
				_ = cfg.Kodi()
				_ = cfg.DeltaInterval()
				cfg.SetPageSize(i)
			}
			done <- struct{}{}
		}()
	}

	for range 10 {
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("concurrent access deadlocked")
		}
	}
}
