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

package mocks

import (
	"context"

	"github.com/kodimirror/kodimirror/pkg/database"
	"github.com/kodimirror/kodimirror/pkg/kodi"
	"github.com/stretchr/testify/mock"
)

// MockGateway is a mock implementation of the kodi.Gateway interface
// for use in tests. It provides all the standard testify/mock functionality.
type MockGateway struct {
	mock.Mock
}

// Ensure MockGateway implements Gateway at compile time
var _ kodi.Gateway = (*MockGateway)(nil)

// CountItems mocks the catalog total
func (m *MockGateway) CountItems(ctx context.Context, mediaType database.MediaType) (int, error) {
	args := m.Called(ctx, mediaType)
	return args.Int(0), args.Error(1)
}

// GetPage mocks fetching one page of items
func (m *MockGateway) GetPage(
	ctx context.Context,
	mediaType database.MediaType,
	offset, limit int,
	props kodi.PropertySet,
) (kodi.Page, error) {
	args := m.Called(ctx, mediaType, offset, limit, props)
	return args.Get(0).(kodi.Page), args.Error(1)
}

// GetItemDetail mocks fetching one item's details
func (m *MockGateway) GetItemDetail(
	ctx context.Context,
	mediaType database.MediaType,
	externalID int64,
) (*database.RemoteItem, error) {
	args := m.Called(ctx, mediaType, externalID)
	if item := args.Get(0); item != nil {
		return item.(*database.RemoteItem), args.Error(1)
	}
	return nil, args.Error(1)
}

// GetEpisodeByKey mocks finding an episode by show, season and episode
func (m *MockGateway) GetEpisodeByKey(ctx context.Context, key database.EpisodeKey) (*database.RemoteItem, error) {
	args := m.Called(ctx, key)
	if item := args.Get(0); item != nil {
		return item.(*database.RemoteItem), args.Error(1)
	}
	return nil, args.Error(1)
}

// GetShowDetail mocks fetching show metadata
func (m *MockGateway) GetShowDetail(ctx context.Context, showID int) (*database.RemoteShow, error) {
	args := m.Called(ctx, showID)
	if show := args.Get(0); show != nil {
		return show.(*database.RemoteShow), args.Error(1)
	}
	return nil, args.Error(1)
}

// SetupBasicMock configures the mock with an empty catalog for tests that
// do not care about gateway traffic
func (m *MockGateway) SetupBasicMock() {
	m.On("CountItems", mock.Anything, mock.Anything).Return(0, nil).Maybe()
	m.On("GetPage", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(kodi.Page{Items: []database.RemoteItem{}}, nil).Maybe()
	m.On("GetItemDetail", mock.Anything, mock.Anything, mock.Anything).Return(nil, nil).Maybe()
	m.On("GetEpisodeByKey", mock.Anything, mock.Anything).Return(nil, nil).Maybe()
	m.On("GetShowDetail", mock.Anything, mock.Anything).Return(nil, nil).Maybe()
}

// NewMockGateway creates a new mock gateway with no expectations
func NewMockGateway() *MockGateway {
	return &MockGateway{}
}
