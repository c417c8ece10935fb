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
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/kodimirror/kodimirror/pkg/database"
	"github.com/kodimirror/kodimirror/pkg/database/libraryscanner"
	"github.com/kodimirror/kodimirror/pkg/favorites/matcher"
	"github.com/kodimirror/kodimirror/pkg/service/discovery"
)

var ErrSyncIncomplete = errors.New("sync did not complete")

// Runner is the part of the service the command line drives.
type Runner interface {
	Sync(ctx context.Context, full bool) []libraryscanner.Result
	ReconcileFavorites(ctx context.Context) matcher.ReconcileResult
	LastScan(ctx context.Context, mediaType database.MediaType) (*database.ScanLogEntry, error)
	Daemon(ctx context.Context) error
}

// Run performs the actions selected by f and reports to out. With no
// action flag it runs a delta sync followed by a favourites reconcile.
func Run(ctx context.Context, svc Runner, f *Flags, out io.Writer) error {
	if err := f.Validate(); err != nil {
		return err
	}

	switch {
	case *f.Status && *f.CSV:
		return PrintStatusCSV(ctx, svc, out)
	case *f.Status:
		return PrintStatus(ctx, svc, out)
	case *f.Daemon:
		//nolint:wrapcheck // daemon errors are already wrapped
		return svc.Daemon(ctx)
	}

	doSync := *f.Full || *f.Delta
	doFavorites := *f.Favorites
	if !doSync && !doFavorites {
		doSync = true
		doFavorites = true
	}

	var failed bool
	if doSync {
		for _, res := range svc.Sync(ctx, *f.Full) {
			printResult(out, &res)
			if !res.Success() {
				failed = true
			}
		}
	}
	if ctx.Err() != nil {
		return fmt.Errorf("interrupted: %w", ctx.Err())
	}

	if doFavorites {
		res := svc.ReconcileFavorites(ctx)
		if res.Err != nil {
			return fmt.Errorf("favourites reconcile failed: %w", res.Err)
		}
		_, _ = fmt.Fprintf(out, "favorites: %d mapped, %d created, %d added, %d updated, %d skipped\n",
			res.Mapped, res.Created, res.Added, res.Updated, res.Skipped)
	}

	if failed {
		return ErrSyncIncomplete
	}
	return nil
}

func printResult(out io.Writer, res *libraryscanner.Result) {
	_, _ = fmt.Fprintf(out, "%s %s: %s (found %d, added %d, updated %d, removed %d)",
		res.ScanType, res.MediaType, res.Status, res.Found, res.Added, res.Updated, res.Removed)
	if res.Err != nil {
		_, _ = fmt.Fprintf(out, ": %v", res.Err)
	}
	_, _ = fmt.Fprintln(out)
}

// statusRow is one line of the CSV status report.
type statusRow struct {
	MediaType   string `csv:"media_type"`
	ScanType    string `csv:"scan_type"`
	Status      string `csv:"status"`
	StartedAt   string `csv:"started_at"`
	CompletedAt string `csv:"completed_at"`
	Error       string `csv:"error"`
	ErrorKind   string `csv:"error_kind"`
	Found       int    `csv:"found"`
	Added       int    `csv:"added"`
	Updated     int    `csv:"updated"`
	Removed     int    `csv:"removed"`
	LastOffset  int    `csv:"last_offset"`
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// PrintStatusCSV writes the last scan of each media type as CSV with RFC
// 3339 UTC timestamps. Media types never scanned have an empty status.
func PrintStatusCSV(ctx context.Context, svc Runner, out io.Writer) error {
	rows := make([]statusRow, 0, len(database.MediaTypes))
	for _, mt := range database.MediaTypes {
		entry, err := svc.LastScan(ctx, mt)
		if err != nil {
			return fmt.Errorf("failed to read status of %s: %w", mt, err)
		}
		row := statusRow{MediaType: string(mt)}
		if entry != nil {
			row.ScanType = string(entry.ScanType)
			row.Status = string(entry.Status)
			row.StartedAt = entry.StartedAt.UTC().Format(time.RFC3339)
			if entry.CompletedAt != nil {
				row.CompletedAt = entry.CompletedAt.UTC().Format(time.RFC3339)
			}
			row.Error = deref(entry.Error)
			row.ErrorKind = deref(entry.ErrorKind)
			row.Found = entry.Found
			row.Added = entry.Added
			row.Updated = entry.Updated
			row.Removed = entry.Removed
			row.LastOffset = entry.LastOffset
		}
		rows = append(rows, row)
	}
	if err := gocsv.Marshal(rows, out); err != nil {
		return fmt.Errorf("failed to write status csv: %w", err)
	}
	return nil
}

// BrowseFunc finds Kodi instances on the network.
type BrowseFunc func(ctx context.Context, timeout time.Duration) ([]discovery.Host, error)

// PrintDiscovered lists the Kodi instances found by browse, one per line.
func PrintDiscovered(ctx context.Context, browse BrowseFunc, out io.Writer) error {
	hosts, err := browse(ctx, discovery.DefaultTimeout)
	if err != nil {
		return fmt.Errorf("discovery failed: %w", err)
	}
	if len(hosts) == 0 {
		_, _ = fmt.Fprintln(out, "no kodi instances found")
		return nil
	}
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, h := range hosts {
		_, _ = fmt.Fprintf(tw, "%s\t%s\n", h.Name, h.URL)
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("failed to write hosts: %w", err)
	}
	return nil
}

// PrintStatus writes a table of the last scan of each media type.
func PrintStatus(ctx context.Context, svc Runner, out io.Writer) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "MEDIA\tTYPE\tSTATUS\tSTARTED\tFOUND\tADDED\tUPDATED\tREMOVED\tERROR")
	for _, mt := range database.MediaTypes {
		entry, err := svc.LastScan(ctx, mt)
		if err != nil {
			return fmt.Errorf("failed to read status of %s: %w", mt, err)
		}
		if entry == nil {
			_, _ = fmt.Fprintf(tw, "%s\t-\tnever\t-\t-\t-\t-\t-\t\n", mt)
			continue
		}
		errText := ""
		if entry.Error != nil {
			errText = *entry.Error
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%d\t%d\t%s\n",
			mt, entry.ScanType, entry.Status, entry.StartedAt.Local().Format(time.DateTime),
			entry.Found, entry.Added, entry.Updated, entry.Removed, errText)
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("failed to write status: %w", err)
	}
	return nil
}
