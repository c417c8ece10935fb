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

package config

const DefaultListName = "favourites"

type Favorites struct {
	// Path is Kodi's favourites.xml. Empty means the default userdata
	// location.
	Path     string `toml:"path,omitempty"`
	ListName string `toml:"list_name" validate:"required,max=64"`
	Watch    bool   `toml:"watch"`
}

func (c *Instance) Favorites() Favorites {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Favorites
}

func (c *Instance) SetFavoritesPath(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.Favorites.Path = path
}

func (c *Instance) SetFavoritesWatch(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.Favorites.Watch = enabled
}
