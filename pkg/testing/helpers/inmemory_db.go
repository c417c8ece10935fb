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
	"path/filepath"
	"testing"

	"github.com/kodimirror/kodimirror/pkg/database/indexdb"
)

// NewInMemoryIndexDB opens a migrated in-memory index that is closed when
// the test ends.
func NewInMemoryIndexDB(t *testing.T) *indexdb.IndexDB {
	t.Helper()

	db, err := indexdb.OpenInMemory(context.Background())
	if err != nil {
		t.Fatalf("Failed to open in-memory index: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("Failed to close index: %v", err)
		}
	})
	return db
}

// NewFileIndexDB opens a migrated index in a temporary directory, for tests
// that need more than one connection.
func NewFileIndexDB(t *testing.T) *indexdb.IndexDB {
	t.Helper()

	db, err := indexdb.Open(context.Background(), filepath.Join(t.TempDir(), "index_test.db"))
	if err != nil {
		t.Fatalf("Failed to open test index: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("Failed to close index: %v", err)
		}
	})
	return db
}
