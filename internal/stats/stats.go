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

package stats

import (
	"sync"

	"github.com/benbjohnson/clock"

	"radvalve/v2/pkg/c16"
)

// Set identifies one 24-hour histogram.
type Set int

const (
	TempByHour Set = iota
	TempByHourSmoothed
	AmbLightByHour
	AmbLightByHourSmoothed
	OccPCByHour
	OccPCByHourSmoothed
	RHPCByHour
	RHPCByHourSmoothed

	SetCount
)

var setNames = [SetCount]string{
	"temp", "temp_smoothed",
	"amblight", "amblight_smoothed",
	"occpc", "occpc_smoothed",
	"rhpc", "rhpc_smoothed",
}

func (s Set) String() string {
	if s < 0 || s >= SetCount {
		return "invalid"
	}
	return setNames[s]
}

const (
	HoursPerDay = 24

	// Special hour arguments resolved against the clock.
	CurrentHour = -1
	NextHour    = -2

	// Unset marks an hour with no data.
	Unset = c16.Unset

	// MinSamplesForQuartile is the number of set hours needed before
	// InOutlierQuartile will answer true.
	MinSamplesForQuartile = HoursPerDay
)

// ByHour holds non-volatile per-hour-of-day statistics.
type ByHour struct {
	mu    sync.RWMutex
	data  [SetCount][HoursPerDay]uint8
	clock clock.Clock
}

// New returns an empty ByHour that resolves CurrentHour/NextHour with clk.
func New(clk clock.Clock) *ByHour {
	s := &ByHour{clock: clk}
	for set := range s.data {
		for h := range s.data[set] {
			s.data[set][h] = Unset
		}
	}
	return s
}

func (s *ByHour) resolveHour(hour int) (int, bool) {
	switch hour {
	case CurrentHour:
		return s.clock.Now().Hour(), true
	case NextHour:
		return (s.clock.Now().Hour() + 1) % HoursPerDay, true
	}
	if hour < 0 || hour >= HoursPerDay {
		return 0, false
	}
	return hour, true
}

// ByHourStat returns the stored byte, Unset for no data or bad arguments.
func (s *ByHour) ByHourStat(set Set, hour int) uint8 {
	h, ok := s.resolveHour(hour)
	if !ok || set < 0 || set >= SetCount {
		return Unset
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data[set][h]
}

// SetByHourStat stores value for hour; false for bad arguments.
func (s *ByHour) SetByHourStat(set Set, hour int, value uint8) bool {
	h, ok := s.resolveHour(hour)
	if !ok || set < 0 || set >= SetCount {
		return false
	}
	s.mu.Lock()
	s.data[set][h] = value
	s.mu.Unlock()
	return true
}

// CountStatSamplesBelow counts set hours whose value is strictly below
// value. An Unset value counts nothing.
func (s *ByHour) CountStatSamplesBelow(set Set, value uint8) int {
	if value == Unset || set < 0 || set >= SetCount {
		return 0
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, v := range s.data[set] {
		if v != Unset && v < value {
			n++
		}
	}
	return n
}

// InOutlierQuartile reports whether hour's value is in the top (or bottom)
// quartile of set. It is false when too few hours have data.
func (s *ByHour) InOutlierQuartile(top bool, set Set, hour int) bool {
	h, ok := s.resolveHour(hour)
	if !ok || set < 0 || set >= SetCount {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	v := s.data[set][h]
	if v == Unset {
		return false
	}
	samples, below, above := 0, 0, 0
	for _, x := range s.data[set] {
		if x == Unset {
			continue
		}
		samples++
		if x < v {
			below++
		} else if x > v {
			above++
		}
	}
	if samples < MinSamplesForQuartile {
		return false
	}
	if top {
		return below >= samples*3/4
	}
	return above >= samples*3/4
}

// Clear erases every set.
func (s *ByHour) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for set := range s.data {
		for h := range s.data[set] {
			s.data[set][h] = Unset
		}
	}
}

// Dump returns a copy of every set keyed by name.
func (s *ByHour) Dump() map[string][]uint8 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string][]uint8, SetCount)
	for set := Set(0); set < SetCount; set++ {
		out[set.String()] = append([]uint8(nil), s.data[set][:]...)
	}
	return out
}

func (s *ByHour) restore(in map[string][]uint8) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for set := Set(0); set < SetCount; set++ {
		vals, ok := in[set.String()]
		if !ok || len(vals) != HoursPerDay {
			continue
		}
		copy(s.data[set][:], vals)
		n++
	}
	return n
}
