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

package favorites_test

import (
	"strings"
	"testing"

	"github.com/kodimirror/kodimirror/pkg/favorites"
	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestNormalizePath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty", in: "   ", want: ""},
		{name: "trailing slash", in: "smb://NAS/Movies/", want: "smb://nas/movies"},
		{name: "scheme only", in: "smb://", want: "smb://"},
		{name: "credentials without path", in: "ftp://me:pw@host", want: "ftp://host"},
		{name: "encoded credentials", in: "smb://user%40corp:pw@nas/a.mkv", want: "smb://nas/a.mkv"},
		{name: "unc path", in: `\\SERVER\Share\Film.MKV`, want: "/server/share/film.mkv"},
		{name: "duplicate slashes", in: "nfs://nas//tv///show.mkv", want: "nfs://nas/tv/show.mkv"},
		{name: "stack with escaped comma", in: "stack://smb://h/a,,b.avi , smb://h/c.avi", want: "smb://h/a,b.avi"},
		{name: "archive of archive", in: "rar://zip%3A%2F%2F%252Fm%252Fa.zip%2Fb.rar/c.mkv", want: "/m/a.zip/b.rar/c.mkv"},
		{name: "composed unicode", in: "/m/Cafe\u0301.mkv", want: "/m/caf\u00e9.mkv"},
		{name: "bad escape kept escaped", in: "/m/100%.mkv", want: "/m/100%25.mkv"},
		{name: "query and fragment dropped", in: "smb://nas/a.mkv?x=1#t", want: "smb://nas/a.mkv"},
		{name: "encoded question mark", in: "smb://host/share/What%3F.mkv", want: "smb://host/share/what%3f.mkv"},
		{name: "encoded hash", in: "smb://host/share/Take%231.mkv", want: "smb://host/share/take%231.mkv"},
		{name: "encoded percent", in: "/m/100%2525.mkv", want: "/m/100%2525.mkv"},
		{name: "encoded trailing newline", in: "/m/a/%0A", want: "/m/a"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, favorites.NormalizePath(tt.in))
		})
	}
}

func TestPropertyNormalizePathIdempotent(t *testing.T) {
	t.Parallel()
	rapid.Check(t, func(t *rapid.T) {
		prefix := rapid.SampledFrom([]string{
			"", "smb://", "SMB://", "nfs://", "stack://", "zip://", "file://", "/", `\\`, "C:\\",
		}).Draw(t, "prefix")
		body := rapid.StringMatching(`[a-zA-Z0-9 _\-./\\:@,()%?#]{0,50}`).Draw(t, "body")
		path := prefix + body

		once := favorites.NormalizePath(path)
		twice := favorites.NormalizePath(once)

		if once != twice {
			t.Fatalf("not idempotent for %q: first=%q, second=%q", path, once, twice)
		}
	})
}

func TestPropertyNormalizePathIdempotentEscapes(t *testing.T) {
	t.Parallel()
	rapid.Check(t, func(t *rapid.T) {
		parts := rapid.SliceOfN(rapid.SampledFrom([]string{
			"a", "B", "/", "%", "?", "#", "%3F", "%23", "%25", "%2F", "%5C", "%20", "%0A", "%3A", "@", "smb://", "zip://",
		}), 0, 20).Draw(t, "parts")
		path := strings.Join(parts, "")

		once := favorites.NormalizePath(path)
		twice := favorites.NormalizePath(once)

		if once != twice {
			t.Fatalf("not idempotent for %q: first=%q, second=%q", path, once, twice)
		}
	})
}

func TestPropertyNormalizePathCanonicalShape(t *testing.T) {
	t.Parallel()
	rapid.Check(t, func(t *rapid.T) {
		path := rapid.StringMatching(`(smb://)?[a-zA-Z0-9_\-./\\]{1,50}`).Draw(t, "path")

		result := favorites.NormalizePath(path)

		if result != strings.ToLower(result) {
			t.Fatalf("result not lowercase: %q from %q", result, path)
		}
		if strings.Contains(result, `\`) {
			t.Fatalf("result has backslash: %q from %q", result, path)
		}
		rest := strings.TrimPrefix(result, "smb://")
		if strings.Contains(rest, "//") {
			t.Fatalf("result has duplicate slashes: %q from %q", result, path)
		}
	})
}
