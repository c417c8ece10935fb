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
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"golang.org/x/text/encoding/ianaindex"
)

const favouriteElement = "favourite"

const (
	SkipUnexpectedElement = "unexpected element"
	SkipEmptyTarget       = "empty target"
	SkipUnwrapFailed      = "unwrap failed"
)

var errNoRoot = errors.New("document has no root element")

type favouriteXML struct {
	XMLName xml.Name `xml:"favourite"`
	Name    string   `xml:"name,attr"`
	Thumb   string   `xml:"thumb,attr"`
	Target  string   `xml:",chardata"`
}

func charsetReader(label string, input io.Reader) (io.Reader, error) {
	enc, err := ianaindex.IANA.Encoding(label)
	if err != nil {
		return nil, fmt.Errorf("unknown charset %q: %w", label, err)
	}
	if enc == nil {
		return nil, fmt.Errorf("unsupported charset %q", label)
	}
	return enc.NewDecoder().Reader(input), nil
}

// ParseOutcomes parses a favourites document into one outcome per child
// element of the root. A document that fails to parse is cleaned and
// retried once; if that also fails the result is empty.
func ParseOutcomes(src []byte) []Outcome {
	outcomes, err := decodeOutcomes(src)
	if err == nil {
		return outcomes
	}
	log.Debug().Err(err).Msg("favourites document failed to parse, retrying cleaned")

	outcomes, err = decodeOutcomes(cleanSource(src))
	if err != nil {
		log.Warn().Err(err).Msg("favourites document unreadable, treating as empty")
		return []Outcome{}
	}
	return outcomes
}

// Parse returns the usable entries of a favourites document in source
// order. Skipped elements are logged.
func Parse(src []byte) []Entry {
	outcomes := ParseOutcomes(src)
	entries := make([]Entry, 0, len(outcomes))
	for i := range outcomes {
		o := &outcomes[i]
		if !o.OK() {
			log.Debug().
				Int("index", o.Index).
				Str("reason", o.SkipReason).
				Str("target", o.Entry.RawTarget).
				Msg("skipping favourite")
			continue
		}
		entries = append(entries, o.Entry)
	}
	return entries
}

// LoadFile reads and parses a favourites file. A missing file has no
// entries.
func LoadFile(fs afero.Fs, path string) ([]Entry, error) {
	data, err := afero.ReadFile(fs, path)
	if errors.Is(err, os.ErrNotExist) {
		log.Debug().Str("path", path).Msg("favourites file not found")
		return []Entry{}, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to read favourites file: %w", err)
	}
	return Parse(data), nil
}

func decodeOutcomes(src []byte) ([]Outcome, error) {
	decoder := xml.NewDecoder(bytes.NewReader(src))
	decoder.CharsetReader = charsetReader
	decoder.Entity = xml.HTMLEntity

	var (
		outcomes []Outcome
		inRoot   bool
		index    int
	)
	for {
		tok, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			if !inRoot {
				return nil, errNoRoot
			}
			return nil, io.ErrUnexpectedEOF
		} else if err != nil {
			return nil, fmt.Errorf("failed to read favourites: %w", err)
		}

		switch el := tok.(type) {
		case xml.StartElement:
			if !inRoot {
				inRoot = true
				outcomes = make([]Outcome, 0, 16)
				continue
			}
			if el.Name.Local != favouriteElement {
				if err := decoder.Skip(); err != nil {
					return nil, fmt.Errorf("failed to skip element: %w", err)
				}
				outcomes = append(outcomes, Outcome{Index: index, SkipReason: SkipUnexpectedElement})
				index++
				continue
			}
			var fav favouriteXML
			if err := decoder.DecodeElement(&fav, &el); err != nil {
				return nil, fmt.Errorf("failed to decode favourite %d: %w", index, err)
			}
			outcomes = append(outcomes, buildOutcome(index, &fav))
			index++
		case xml.EndElement:
			// The only end element seen at this level closes the root.
			return outcomes, nil
		}
	}
}

func buildOutcome(index int, fav *favouriteXML) Outcome {
	raw := strings.TrimSpace(fav.Target)
	entry := Entry{
		DisplayName: strings.TrimSpace(fav.Name),
		RawTarget:   raw,
		Thumbnail:   strings.TrimSpace(fav.Thumb),
	}
	if raw == "" {
		return Outcome{Index: index, Entry: entry, SkipReason: SkipEmptyTarget}
	}

	target, plugin, err := unwrapTarget(raw)
	if err != nil {
		return Outcome{
			Index:      index,
			Entry:      entry,
			SkipReason: fmt.Sprintf("%s: %v", SkipUnwrapFailed, err),
		}
	}

	entry.Target = target
	entry.Classification = Classify(raw, target, plugin)
	entry.NormalizedKey, entry.Ref = NormalizedKey(entry.Classification, target)
	if entry.DisplayName == "" {
		entry.DisplayName = target
	}
	return Outcome{Index: index, Entry: entry}
}
