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

package radvalve

import "radvalve/v2/pkg/c16"

const (
	// FilterLength is the number of raw reference samples retained.
	FilterLength = 16
	// filterMinOnM is the minimum time the filter stays engaged.
	filterMinOnM = 4 * FilterLength

	// MinTicks0p5CDelta is the span (ticks) over which a 0.5C raw swing
	// forces the filter on.
	MinTicks0p5CDelta = 10
	// MaxTempJumpC16 is the largest smoothed/raw gap that lets the filter
	// disengage once its minimum on-time has elapsed.
	MaxTempJumpC16 = 3

	// AntiseekRecloseDelayM blocks closing after an opening move.
	AntiseekRecloseDelayM = 5
	// AntiseekReopenDelayM blocks opening after a closing move.
	AntiseekReopenDelayM = 10

	movementMask = 0x3ff
)

// State is retained across ticks. It is owned by the control goroutine.
type State struct {
	prevRawTempC16 [FilterLength]c16.Temp
	isFiltering    uint8

	valveTurnupCountdownM   uint8
	valveTurndownCountdownM uint8

	cumulativeMovementPC uint16
	prevValvePC          uint8
	initialised          bool
	valveMoved           bool
}

// pushRawTemp shifts the ring and inserts t as the newest sample. On the
// first call the whole ring is back-filled so deltas start at zero.
func (s *State) pushRawTemp(t c16.Temp) {
	if !s.initialised {
		for i := range s.prevRawTempC16 {
			s.prevRawTempC16[i] = t
		}
		return
	}
	copy(s.prevRawTempC16[1:], s.prevRawTempC16[:FilterLength-1])
	s.prevRawTempC16[0] = t
}

// SmoothedRecent is the rounded mean of the ring.
func (s *State) SmoothedRecent() c16.Temp {
	var sum int32
	for _, t := range s.prevRawTempC16 {
		sum += int32(t)
	}
	return c16.Temp((sum + FilterLength/2) >> 4)
}

// RawDelta is newest minus the sample n ticks older; n is clamped to the ring.
func (s *State) RawDelta(n int) int {
	n = min(max(n, 1), FilterLength-1)
	return int(s.prevRawTempC16[0]) - int(s.prevRawTempC16[n])
}

// updateFiltering engages the filter on fast swings and releases it once
// the minimum on-time is over and smoothed and raw agree again.
func (s *State) updateFiltering() {
	if d := s.RawDelta(MinTicks0p5CDelta); d > int(c16.Half) || d < -int(c16.Half) {
		s.isFiltering = filterMinOnM
		return
	}
	switch {
	case s.isFiltering > 1:
		s.isFiltering--
	case s.isFiltering == 1:
		gap := int(s.SmoothedRecent()) - int(s.prevRawTempC16[0])
		if gap <= MaxTempJumpC16 && gap >= -MaxTempJumpC16 {
			s.isFiltering = 0
		}
	}
}

func (s *State) IsFiltering() bool { return s.isFiltering != 0 }

func (s *State) valveTurnup()   { s.valveTurnupCountdownM = AntiseekRecloseDelayM }
func (s *State) valveTurndown() { s.valveTurndownCountdownM = AntiseekReopenDelayM }

// DontTurnup is true while a recent close forbids reopening.
func (s *State) DontTurnup() bool { return s.valveTurndownCountdownM != 0 }

// DontTurndown is true while a recent open forbids closing.
func (s *State) DontTurndown() bool { return s.valveTurnupCountdownM != 0 }

func (s *State) tickAntiseek() {
	if s.valveTurnupCountdownM > 0 {
		s.valveTurnupCountdownM--
	}
	if s.valveTurndownCountdownM > 0 {
		s.valveTurndownCountdownM--
	}
}

// addMovement accumulates the absolute change from the last observed
// physical position into the mod-1024 odometer.
func (s *State) addMovement(observed uint8) {
	d := int(observed) - int(s.prevValvePC)
	if d < 0 {
		d = -d
	}
	s.cumulativeMovementPC = (s.cumulativeMovementPC + uint16(d)) & movementMask
	s.prevValvePC = observed
}

func (s *State) CumulativeMovementPC() uint16 { return s.cumulativeMovementPC }
func (s *State) Initialised() bool            { return s.initialised }
func (s *State) ValveMoved() bool             { return s.valveMoved }
