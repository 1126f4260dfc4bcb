// Copyright (C) 2025 Josh Simonot
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package ambient

import "sync"

const (
	// HighRHPC sets the high-humidity flag.
	HighRHPC = 70
	// HighRHClearPC clears it again.
	HighRHClearPC = 65
	// RisingRHDeltaPC is the one-minute rise treated as weak occupancy
	// evidence (showers, cooking, people).
	RisingRHDeltaPC = 3
)

// Humidity models relative humidity with a hysteresis high flag.
type Humidity struct {
	mu sync.Mutex

	available bool
	rh        uint8
	prevRH    uint8
	hasPrev   bool
	high      bool
}

func NewHumidity() *Humidity {
	return &Humidity{}
}

// Set records the latest RH% reading (clamped to 100).
func (h *Humidity) Set(rh uint8) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.rh = min(rh, 100)
	h.available = true
}

// Tick updates the high flag and reports a sharp rise since last tick.
func (h *Humidity) Tick() (rising bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.available {
		return false
	}
	if h.high {
		h.high = h.rh >= HighRHClearPC
	} else {
		h.high = h.rh >= HighRHPC
	}
	rising = h.hasPrev && int(h.rh)-int(h.prevRH) >= RisingRHDeltaPC
	h.prevRH = h.rh
	h.hasPrev = true
	return rising
}

func (h *Humidity) IsAvailable() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.available
}

func (h *Humidity) RHPercent() uint8 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.rh
}

// IsRHHighWithHyst is false when no sensor is available.
func (h *Humidity) IsRHHighWithHyst() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.available && h.high
}
