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
	// DefaultDarkThreshold is the level (0..254) at or below which a lit
	// room is considered to have gone dark.
	DefaultDarkThreshold = 16
	// lightHysteresis separates the dark and lit thresholds.
	lightHysteresis = 8
	// LightsOnDelta is the minimum one-minute rise out of the dark that is
	// taken as someone switching the lights on.
	LightsOnDelta = 32

	maxDarkMinutes = 0xffff
)

// Light models room ambient light from a 0..254 level. Readings can arrive
// at any time; Tick runs once per minute on the control loop.
type Light struct {
	mu sync.Mutex

	darkThreshold  uint8
	lightThreshold uint8

	available   bool
	level       uint8
	prevLevel   uint8
	isRoomLit   bool
	darkMinutes uint16
	litMinutes  uint16
}

// NewLight returns a light model; a zero threshold selects the default.
func NewLight(darkThreshold uint8) *Light {
	if darkThreshold == 0 {
		darkThreshold = DefaultDarkThreshold
	}
	return &Light{
		darkThreshold:  darkThreshold,
		lightThreshold: min(254, darkThreshold+lightHysteresis),
		isRoomLit:      true,
	}
}

// Set records the latest light level.
func (l *Light) Set(level uint8) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = min(level, 254)
	l.available = true
}

// Tick updates the lit/dark state and dark-minutes counter. It reports
// whether the lights appear to have just been switched on.
func (l *Light) Tick() (lightsOn bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.available {
		return false
	}
	wasLit := l.isRoomLit
	if l.isRoomLit {
		l.isRoomLit = l.level > l.darkThreshold
	} else {
		l.isRoomLit = l.level >= l.lightThreshold
	}
	if l.isRoomLit {
		l.darkMinutes = 0
		if l.litMinutes < maxDarkMinutes {
			l.litMinutes++
		}
	} else {
		l.litMinutes = 0
		if l.darkMinutes < maxDarkMinutes {
			l.darkMinutes++
		}
	}
	lightsOn = !wasLit && l.isRoomLit && int(l.level)-int(l.prevLevel) >= LightsOnDelta
	l.prevLevel = l.level
	return lightsOn
}

// IsAvailable is false until the first reading arrives.
func (l *Light) IsAvailable() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.available
}

// IsRoomDark is false when no sensor is available.
func (l *Light) IsRoomDark() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.available && !l.isRoomLit
}

// DarkMinutes is how long the room has been continuously dark, saturating.
func (l *Light) DarkMinutes() uint16 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.darkMinutes
}

// LitMinutes is how long the room has been continuously lit, saturating.
// It stays 0 until a reading has been seen.
func (l *Light) LitMinutes() uint16 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.litMinutes
}

// Level is the last reading.
func (l *Light) Level() uint8 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.level
}
