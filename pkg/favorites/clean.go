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

package favorites

import (
	"bytes"
	"regexp"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

const xmlDeclaration = `<?xml version="1.0" encoding="UTF-8"?>`

var (
	utf8BOM = []byte{0xEF, 0xBB, 0xBF}
	// A well-formed reference after '&'.
	entityRef = regexp.MustCompile(`^&(?:[A-Za-z][A-Za-z0-9._-]*|#[0-9]+|#[xX][0-9A-Fa-f]+);`)
	declRe    = regexp.MustCompile(`^<\?xml[^?]*\?>`)
)

// cleanSource repairs the most common damage to hand-edited favourites
// files: stray control characters, bare ampersands and a missing or
// non-UTF-8 declaration. Invalid UTF-8 is read as Windows-1252.
func cleanSource(src []byte) []byte {
	src = bytes.TrimPrefix(src, utf8BOM)
	if !utf8.Valid(src) {
		if decoded, err := charmap.Windows1252.NewDecoder().Bytes(src); err == nil {
			src = decoded
		}
	}

	var out bytes.Buffer
	out.Grow(len(src) + len(xmlDeclaration) + 16)

	for i := 0; i < len(src); {
		r, size := utf8.DecodeRune(src[i:])
		switch {
		case r == '&':
			if entityRef.Match(src[i:]) {
				out.WriteByte('&')
			} else {
				out.WriteString("&amp;")
			}
		case r < 0x20 && r != '\t' && r != '\n' && r != '\r':
			// dropped
		case r == 0x7F:
			// dropped
		default:
			out.Write(src[i : i+size])
		}
		i += size
	}

	cleaned := bytes.TrimSpace(out.Bytes())
	cleaned = declRe.ReplaceAll(cleaned, nil)
	cleaned = bytes.TrimSpace(cleaned)
	return append([]byte(xmlDeclaration+"\n"), cleaned...)
}
