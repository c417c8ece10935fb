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
	"path"
	"regexp"
	"strings"
)

var (
	fileSchemes = map[string]bool{
		"smb":       true,
		"nfs":       true,
		"file":      true,
		"zip":       true,
		"rar":       true,
		"archive":   true,
		"stack":     true,
		"ftp":       true,
		"ftps":      true,
		"sftp":      true,
		"dav":       true,
		"davs":      true,
		"http":      true,
		"https":     true,
		"upnp":      true,
		"special":   true,
		"multipath": true,
	}

	nonMappableSchemes = map[string]bool{
		"plugin":     true,
		"script":     true,
		"addons":     true,
		"androidapp": true,
		"pvr":        true,
		"library":    true,
		"sources":    true,
		"musicdb":    true,
	}

	videoExtensions = map[string]bool{
		".avi":  true,
		".mp4":  true,
		".mkv":  true,
		".iso":  true,
		".bdmv": true,
		".ifo":  true,
		".vob":  true,
		".mpeg": true,
		".mpg":  true,
		".mov":  true,
		".wmv":  true,
		".flv":  true,
		".webm": true,
		".m4v":  true,
		".3gp":  true,
		".ts":   true,
		".m2ts": true,
		".mts":  true,
		".divx": true,
		".ogm":  true,
		".strm": true,
		".m3u":  true,
		".m3u8": true,
	}

	builtinRe     = regexp.MustCompile(`(?s)^[A-Za-z][\w.]*\(.*\)$`)
	driveLetterRe = regexp.MustCompile(`^[A-Za-z]:[\\/]`)
)

func hasVideoExtension(target string) bool {
	clean := strings.ReplaceAll(target, `\`, "/")
	if i := strings.IndexAny(clean, "?#"); i >= 0 && scheme(clean) != "" {
		clean = clean[:i]
	}
	return videoExtensions[strings.ToLower(path.Ext(clean))]
}

func isAbsolutePath(target string) bool {
	return strings.HasPrefix(target, "/") ||
		strings.HasPrefix(target, `\\`) ||
		driveLetterRe.MatchString(target)
}

// Classify decides what kind of target a favourite points at. rawTarget is
// the element text as written, target is the unwrapped form and plugin
// reports whether a wrapper ran a plugin or script.
func Classify(rawTarget, target string, plugin bool) Classification {
	if plugin || strings.Contains(strings.ToLower(rawTarget), "plugin://") {
		return ClassPluginOrScript
	}

	sch := scheme(target)
	switch {
	case fileSchemes[sch]:
		return ClassMappableFile
	case sch == "videodb":
		return ClassHostDBReference
	case nonMappableSchemes[sch]:
		return ClassPluginOrScript
	case builtinRe.MatchString(target):
		return ClassBuiltinCommand
	case sch == "" && (hasVideoExtension(target) || isAbsolutePath(target)):
		return ClassMappableFile
	default:
		return ClassUnknown
	}
}

// NormalizedKey returns the canonical matching key for a classified target:
// the identity key for single-item host-db references, the normalized path
// for mappable files and "" for everything else.
func NormalizedKey(class Classification, target string) (string, *HostRef) {
	switch class {
	case ClassHostDBReference:
		ref, ok := ParseHostRef(target)
		if !ok {
			return "", nil
		}
		return ref.Key(), &ref
	case ClassMappableFile:
		return NormalizePath(target), nil
	case ClassPluginOrScript, ClassBuiltinCommand, ClassUnknown:
		return "", nil
	default:
		return "", nil
	}
}
