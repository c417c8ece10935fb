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

package snapshot

import (
	"github.com/mackerelio/go-osstat/memory"
	"github.com/rs/zerolog/log"
)

const (
	gib = 1 << 30

	SmallBatchSize  = 100
	MediumBatchSize = 250
	LargeBatchSize  = 500
)

var readTotalMemory = func() (uint64, error) {
	stats, err := memory.Get()
	if err != nil {
		return 0, err //nolint:wrapcheck // logged by caller
	}
	return stats.Total, nil
}

// BatchSizeForMemory maps total system memory in bytes to a batch size.
func BatchSizeForMemory(total uint64) int {
	switch {
	case total < gib:
		return SmallBatchSize
	case total < 4*gib:
		return MediumBatchSize
	default:
		return LargeBatchSize
	}
}

// DeviceBatchSize picks a batch size from the device's total memory. Falls
// back to the smallest size when memory can't be read.
func DeviceBatchSize() int {
	total, err := readTotalMemory()
	if err != nil || total == 0 {
		log.Debug().Err(err).Msg("failed to read system memory, using small batch size")
		return SmallBatchSize
	}
	size := BatchSizeForMemory(total)
	log.Debug().Uint64("memory", total).Int("batchSize", size).Msg("device batch size")
	return size
}
