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

import (
	"radvalve/v2/internal/params"
	"radvalve/v2/pkg/c16"
)

const (
	// ProportionalRangeC is the proportional half-range: whole degrees for
	// the gross cold/hot checks, sixteenths for the central sweet spot.
	ProportionalRangeC = 7

	// ValvePCSaferOpen is the opening at or above which the valve calls
	// for heat.
	ValvePCSaferOpen = 50
	// ValvePCMinReallyOpen is the smallest opening assumed to pass water
	// when no physical valve reports otherwise.
	ValvePCMinReallyOpen = 15
	// MaxRunOnTimeM is the boiler run-on allowance; coasting closes take
	// at least twice this.
	MaxRunOnTimeM = 5

	// sweetSpotShiftC16 puts the sweet-spot centre 0.75C above target.
	sweetSpotShiftC16 = 12
	deadbandC16       = int(c16.One)
	wellBelowC16      = 2 * int(c16.One)
	maxSlewPC         = 10

	// DraughtTicks and DraughtDropC16 detect a sudden fall while heating.
	DraughtTicks   = 3
	DraughtDropC16 = int(c16.Half)
)

// Event is a notable decision made while computing the valve opening.
type Event uint8

const (
	EventNone Event = iota
	// EventOpenFast is a jump to fully open on a grossly cold room.
	EventOpenFast
	// EventDraught is a sharp temperature fall while heating, eg an open window.
	EventDraught
)

func (e Event) String() string {
	switch e {
	case EventOpenFast:
		return "open_fast"
	case EventDraught:
		return "draught"
	default:
		return "none"
	}
}

// InputState is everything one percent-open computation needs besides the
// retained State.
type InputState struct {
	// RefTempC16 is the reference temperature, raw + 0.5C.
	RefTempC16  c16.Temp
	TargetTempC uint8
	// MaxTargetTempC is the non-setback ceiling; 0 means unused.
	MaxTargetTempC uint8
	MaxPCOpen      uint8

	WidenDeadband        bool
	Glacial              bool
	HasEcoBias           bool
	InBakeMode           bool
	FastResponseRequired bool
}

// ComputeRequiredTRVPercentOpen returns the new valve opening for the
// current opening and inputs. It reads but never modifies s. The result is
// always within [0, MaxPCOpen].
func (s *State) ComputeRequiredTRVPercentOpen(valvePCOpen uint8, in *InputState) (uint8, Event) {
	maxPC := min(max(in.MaxPCOpen, 1), 100)
	pc := min(valvePCOpen, maxPC)

	tT := int(in.TargetTempC)
	hT := max(tT, int(in.MaxTargetTempC))
	adjC16 := in.RefTempC16
	if s.IsFiltering() {
		adjC16 = s.SmoothedRecent()
	}
	adjC := c16.WholeC(adjC16)

	// Grossly cold.
	if adjC < max(tT-ProportionalRangeC, params.MinTargetC) {
		switch {
		case in.FastResponseRequired:
		case s.DontTurnup() && !in.InBakeMode:
			return pc, EventNone
		case in.Glacial:
			return min(pc+1, maxPC), EventNone
		}
		if pc < maxPC {
			return maxPC, EventOpenFast
		}
		return maxPC, EventNone
	}

	// Grossly hot.
	if adjC > min(hT+ProportionalRangeC, params.MaxTargetC) {
		if s.DontTurndown() {
			return pc, EventNone
		}
		return 0, EventNone
	}

	if in.InBakeMode {
		return maxPC, EventNone
	}

	errC16 := int(adjC16) - tT<<4 - sweetSpotShiftC16
	below := errC16 < 0
	errAbs := errC16
	if below {
		errAbs = -errC16
	}

	ev := EventNone
	if below && pc > 0 && s.RawDelta(DraughtTicks) <= -DraughtDropC16 {
		ev = EventDraught
	}

	// A user who just touched the controls and is cold gets full heat now.
	if in.FastResponseRequired && below {
		return maxPC, ev
	}

	// Anti-seek hold.
	if (below && s.DontTurnup()) || (!below && s.DontTurndown()) {
		return pc, ev
	}

	// Already at the stop in the needed direction.
	if (below && pc >= maxPC) || (!below && pc == 0) {
		return pc, ev
	}

	slew := min(max(errAbs/2, 1), maxSlewPC)

	if in.FastResponseRequired || errC16 < -wellBelowC16 {
		if below {
			return maxPC, ev
		}
		// Drop below the call-for-heat threshold immediately.
		return min(pc-min(uint8(slew), pc), ValvePCSaferOpen-1), ev
	}

	deadband, sweetSpot := deadbandC16, ProportionalRangeC
	if in.WidenDeadband && !in.FastResponseRequired {
		deadband, sweetSpot = 2*deadband, 2*sweetSpot
	}
	callingForHeat := below && pc >= ValvePCSaferOpen
	if errAbs < deadband && !callingForHeat {
		if errAbs <= sweetSpot {
			return pc, ev
		}
		delta := s.RawDelta(MinTicks0p5CDelta)
		if (below && delta >= 0) || (!below && delta <= 0) {
			return pc, ev
		}
	}

	// Well above the non-setback ceiling and still rising: coast closed.
	errHT := int(adjC16) - hT<<4 - sweetSpotShiftC16
	if !below && errHT > deadbandC16 && s.RawDelta(MinTicks0p5CDelta) > 0 {
		rate := max(1, maxPC/(2*MaxRunOnTimeM))
		return pc - min(rate, pc), ev
	}

	if in.Glacial {
		if below {
			return pc + 1, ev
		}
		return pc - 1, ev
	}
	if below {
		return min(pc+uint8(slew), maxPC), ev
	}
	return pc - min(uint8(slew), pc), ev
}
