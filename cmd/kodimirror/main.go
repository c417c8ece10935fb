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

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/kodimirror/kodimirror/pkg/cli"
	"github.com/kodimirror/kodimirror/pkg/config"
	"github.com/kodimirror/kodimirror/pkg/database/indexdb"
	"github.com/kodimirror/kodimirror/pkg/helpers"
	"github.com/kodimirror/kodimirror/pkg/kodi"
	"github.com/kodimirror/kodimirror/pkg/service"
	"github.com/kodimirror/kodimirror/pkg/service/discovery"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

func main() {
	if err := run(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func run() error {
	flags := cli.SetupFlags(flag.CommandLine)
	flag.Parse()

	if *flags.Version {
		_, _ = fmt.Printf("Kodi Mirror v%s\n", config.AppVersion)
		return nil
	}
	if err := flags.Validate(); err != nil {
		return err //nolint:wrapcheck // sentinel printed as is
	}

	var logWriters []io.Writer
	if *flags.Daemon {
		logWriters = []io.Writer{zerolog.ConsoleWriter{Out: os.Stderr}}
	}

	cfg, err := cli.Setup(flags, config.BaseDefaults, logWriters)
	if err != nil {
		return err //nolint:wrapcheck // already wrapped
	}

	defer func() {
		if err := recover(); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Panic: %s\n", err)
			log.Fatal().Msgf("panic: %v", err)
		}
	}()

	// SIGINT and SIGTERM cancel the context; running passes stop at their
	// next checkpoint and record an aborted scan.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *flags.Discover {
		return cli.PrintDiscovered(ctx, discovery.Browse, os.Stdout) //nolint:wrapcheck // already wrapped
	}

	dbPath := helpers.IndexDBPath(cfg)
	log.Debug().Str("path", dbPath).Msg("opening index database")
	db, err := indexdb.Open(ctx, dbPath)
	if err != nil {
		return fmt.Errorf("failed to open index: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			log.Error().Err(closeErr).Msg("error closing index database")
		}
	}()

	kodiCfg := cfg.Kodi()
	client := kodi.NewClient(kodi.ClientOptions{
		URL:               kodiCfg.URL,
		Username:          kodiCfg.Username,
		Password:          kodiCfg.Password,
		Timeout:           cfg.KodiTimeout(),
		RequestsPerSecond: kodiCfg.RequestsPerSecond,
	})
	gateway := kodi.NewBreakerGateway(client, kodi.DefaultBreakerSettings)

	svc := service.New(cfg, db, gateway, afero.NewOsFs())

	err = cli.Run(ctx, svc, flags, os.Stdout)
	if errors.Is(err, context.Canceled) {
		log.Info().Msg("interrupted")
	}
	if err != nil {
		return fmt.Errorf("kodimirror: %w", err)
	}
	return nil
}
