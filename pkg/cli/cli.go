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

package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/kodimirror/kodimirror/pkg/config"
	"github.com/kodimirror/kodimirror/pkg/helpers"
	"github.com/kodimirror/kodimirror/pkg/helpers/syncutil"
	"github.com/rs/zerolog/log"
)

var ErrConflictingFlags = errors.New("-full and -delta cannot be combined")

type Flags struct {
	Config    *string
	Full      *bool
	Delta     *bool
	Favorites *bool
	Daemon    *bool
	Status    *bool
	CSV       *bool
	Discover  *bool
	Version   *bool
}

// SetupFlags defines the command line flags on fs.
func SetupFlags(fs *flag.FlagSet) *Flags {
	return &Flags{
		Config: fs.String(
			"config",
			"",
			"path to config.toml (default is the user config directory)",
		),
		Full: fs.Bool(
			"full",
			false,
			"run a full sync, rebuilding the index and favorites from scratch",
		),
		Delta: fs.Bool(
			"delta",
			false,
			"run a delta sync against the current index",
		),
		Favorites: fs.Bool(
			"favorites",
			false,
			"reconcile favourites.xml into the favorites list",
		),
		Daemon: fs.Bool(
			"daemon",
			false,
			"run periodic syncs and watch favourites until interrupted",
		),
		Status: fs.Bool(
			"status",
			false,
			"print the last scan of each media type and exit",
		),
		CSV: fs.Bool(
			"csv",
			false,
			"print -status as CSV",
		),
		Discover: fs.Bool(
			"discover",
			false,
			"list Kodi instances advertised on the local network and exit",
		),
		Version: fs.Bool(
			"version",
			false,
			"print version and exit",
		),
	}
}

// Validate rejects flag combinations that cannot run together.
func (f *Flags) Validate() error {
	if *f.Full && *f.Delta {
		return ErrConflictingFlags
	}
	return nil
}

// Setup loads the config and starts logging. Log lines go to a rotated
// file and any extra writers.
//
//nolint:gocritic // config struct copied for immutability
func Setup(
	f *Flags,
	defaultConfig config.Values,
	writers []io.Writer,
) (*config.Instance, error) {
	err := helpers.InitLogging(helpers.LogDir(), writers...)
	if err != nil {
		return nil, fmt.Errorf("error initializing logging: %w", err)
	}

	var cfg *config.Instance
	if *f.Config != "" {
		cfg, err = config.NewConfigAt(*f.Config, defaultConfig)
	} else {
		cfg, err = config.NewConfig(helpers.ConfigDir(), defaultConfig)
	}
	if err != nil {
		return nil, fmt.Errorf("error loading config: %w", err)
	}

	helpers.SetDebugLogging(cfg.DebugLogging())
	log.Info().
		Str("version", config.AppVersion).
		Str("config", cfg.Path()).
		Bool("deadlock_detection", syncutil.DeadlockEnabled).
		Msg("kodimirror starting")

	return cfg, nil
}
