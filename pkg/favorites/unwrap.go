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
	"errors"
	"fmt"
	"regexp"
	"strings"
)

const maxUnwrapDepth = 8

var (
	errUnbalanced   = errors.New("unbalanced quotes or parentheses")
	errMissingPath  = errors.New("command has no path argument")
	errDeepNesting  = errors.New("commands nested too deeply")
	functionCallRe  = regexp.MustCompile(`(?s)^([A-Za-z][\w.\-]*)\s*\((.*)\)$`)
	wrapperPathArgs = map[string]int{
		"playmedia":          0,
		"showpicture":        0,
		"playlist":           0,
		"slideshow":          0,
		"recursiveslideshow": 0,
		"activatewindow":     1,
	}
	pluginCommands = map[string]bool{
		"runplugin": true,
		"runaddon":  true,
		"runscript": true,
	}
)

// commandName normalizes a builtin name: case-insensitive, ignoring '-'
// and '_'.
func commandName(name string) string {
	name = strings.ToLower(name)
	name = strings.ReplaceAll(name, "-", "")
	return strings.ReplaceAll(name, "_", "")
}

// splitCall splits "Name(args)" into the normalized name and raw argument
// text.
func splitCall(s string) (name, args string, ok bool) {
	m := functionCallRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return "", "", false
	}
	return commandName(m[1]), m[2], true
}

// splitArgs splits builtin arguments on top-level commas, honoring double
// quotes and nested parentheses.
func splitArgs(args string) ([]string, error) {
	args = strings.ReplaceAll(args, "&quot;", `"`)

	var (
		out     []string
		current strings.Builder
		depth   int
		quoted  bool
	)
	for i := 0; i < len(args); i++ {
		c := args[i]
		switch {
		case c == '\\' && quoted && i+1 < len(args) && args[i+1] == '"':
			current.WriteByte('"')
			i++
			continue
		case c == '"':
			quoted = !quoted
		case quoted:
		case c == '(':
			depth++
		case c == ')':
			depth--
			if depth < 0 {
				return nil, errUnbalanced
			}
		case c == ',' && depth == 0:
			out = append(out, unquote(current.String()))
			current.Reset()
			continue
		}
		current.WriteByte(c)
	}
	if quoted || depth != 0 {
		return nil, errUnbalanced
	}
	return append(out, unquote(current.String())), nil
}

func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	return strings.TrimSpace(s)
}

// unwrapTarget strips known command wrappers such as PlayMedia("...") and
// returns the innermost target. plugin is true when a wrapper runs a
// plugin, addon or script.
func unwrapTarget(raw string) (target string, plugin bool, err error) {
	target = unquote(strings.ReplaceAll(raw, "&quot;", `"`))
	for depth := 0; ; depth++ {
		name, args, ok := splitCall(target)
		if !ok {
			return target, plugin, nil
		}
		if pluginCommands[name] {
			plugin = true
		}
		argIndex, wrapper := wrapperPathArgs[name]
		if !wrapper {
			return target, plugin, nil
		}
		if depth == maxUnwrapDepth {
			return "", plugin, errDeepNesting
		}

		parts, err := splitArgs(args)
		if err != nil {
			return "", plugin, fmt.Errorf("%s: %w", name, err)
		}
		if argIndex >= len(parts) || parts[argIndex] == "" ||
			(name == "activatewindow" && strings.EqualFold(parts[argIndex], "return")) {
			if name == "activatewindow" {
				// Window only, no path: a plain builtin.
				return target, plugin, nil
			}
			return "", plugin, fmt.Errorf("%s: %w", name, errMissingPath)
		}
		target = parts[argIndex]
	}
}
