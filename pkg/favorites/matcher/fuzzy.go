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

package matcher

import (
	"strings"

	"github.com/kodimirror/kodimirror/pkg/database"
	"github.com/kodimirror/kodimirror/pkg/favorites"
)

// fileName returns the last element of a normalized path.
func fileName(normalized string) string {
	if i := strings.LastIndex(normalized, "/"); i >= 0 {
		return normalized[i+1:]
	}
	return normalized
}

// fuzzyFragment is the substring used to pre-select fuzzy candidates.
func fuzzyFragment(target string) string {
	return fileName(favorites.NormalizePath(target))
}

// PickFuzzyCandidate applies the filename ambiguity rule to candidates for
// target. Only candidates whose file name equals the target's, ignoring
// case, are considered, and the match is accepted only when exactly one
// candidate qualifies. Candidates that merely contain the file name, or
// share it with another extension, never resolve.
func PickFuzzyCandidate(target string, candidates []database.IndexRow) (*database.IndexRow, bool) {
	name := fileName(favorites.NormalizePath(target))
	if name == "" {
		return nil, false
	}

	match := -1
	for i := range candidates {
		if fileName(candidateKey(&candidates[i])) != name {
			continue
		}
		if match >= 0 {
			return nil, false
		}
		match = i
	}
	if match < 0 {
		return nil, false
	}
	return &candidates[match], true
}

func candidateKey(row *database.IndexRow) string {
	if row.NormalizedPath != "" {
		return row.NormalizedPath
	}
	return favorites.NormalizePath(row.Path)
}
