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
	"testing"

	"go.viam.com/test"

	"radvalve/v2/pkg/c16"
)

// flatState returns an initialised state whose ring holds ref throughout.
func flatState(ref c16.Temp) *State {
	s := &State{}
	s.pushRawTemp(ref)
	s.initialised = true
	return s
}

func input(target uint8, ref c16.Temp) *InputState {
	return &InputState{RefTempC16: ref, TargetTempC: target, MaxPCOpen: 100, HasEcoBias: true}
}

func TestColdStartOpensFast(t *testing.T) {
	s := &State{}
	pc, ev := s.ComputeRequiredTRVPercentOpen(0, input(20, 0))
	test.That(t, pc, test.ShouldEqual, uint8(100))
	test.That(t, ev, test.ShouldEqual, EventOpenFast)
}

func TestHotRoomCloses(t *testing.T) {
	s := &State{}
	test.That(t, s.DontTurndown(), test.ShouldBeFalse)
	pc, _ := s.ComputeRequiredTRVPercentOpen(50, input(20, 1600))
	test.That(t, pc, test.ShouldEqual, uint8(0))
}

func TestSweetSpotClosedValveStaysClosed(t *testing.T) {
	ref := c16.FromWholeC(19) + 4
	s := flatState(ref)
	pc, ev := s.ComputeRequiredTRVPercentOpen(0, input(19, ref))
	test.That(t, pc, test.ShouldEqual, uint8(0))
	test.That(t, ev, test.ShouldEqual, EventNone)
}

func TestBakeOpensFully(t *testing.T) {
	ref := c16.FromWholeC(24)
	s := flatState(ref)
	s.valveTurndown()
	in := input(29, ref)
	in.InBakeMode = true
	in.MaxPCOpen = 80
	pc, _ := s.ComputeRequiredTRVPercentOpen(10, in)
	test.That(t, pc, test.ShouldEqual, uint8(80))
}

func TestGlacialStepsByOne(t *testing.T) {
	s := flatState(c16.FromWholeC(10))
	in := input(20, c16.FromWholeC(10))
	in.Glacial = true
	pc, ev := s.ComputeRequiredTRVPercentOpen(30, in)
	test.That(t, pc, test.ShouldEqual, uint8(31))
	test.That(t, ev, test.ShouldEqual, EventNone)

	ref := c16.FromWholeC(22)
	s = flatState(ref)
	in = input(20, ref)
	in.Glacial = true
	pc, _ = s.ComputeRequiredTRVPercentOpen(30, in)
	test.That(t, pc, test.ShouldEqual, uint8(29))
}

func TestFastResponseAboveTargetDropsCallForHeat(t *testing.T) {
	ref := c16.FromWholeC(21)
	s := flatState(ref)
	in := input(20, ref)
	in.FastResponseRequired = true
	pc, _ := s.ComputeRequiredTRVPercentOpen(100, in)
	test.That(t, pc, test.ShouldBeLessThan, uint8(ValvePCSaferOpen))
}

func TestDeadbandHoldIsSkippedWhileCallingForHeat(t *testing.T) {
	// just below the sweet-spot centre, flat
	ref := c16.FromWholeC(20) + 12 - 4
	s := flatState(ref)
	pc, _ := s.ComputeRequiredTRVPercentOpen(30, input(20, ref))
	test.That(t, pc, test.ShouldEqual, uint8(30))
	// at or above the call-for-heat threshold the valve keeps moving
	pc, _ = s.ComputeRequiredTRVPercentOpen(60, input(20, ref))
	test.That(t, pc, test.ShouldBeGreaterThan, uint8(60))

	// just above: held either side of the threshold
	ref = c16.FromWholeC(20) + 12 + 4
	s = flatState(ref)
	pc, _ = s.ComputeRequiredTRVPercentOpen(30, input(20, ref))
	test.That(t, pc, test.ShouldEqual, uint8(30))
	pc, _ = s.ComputeRequiredTRVPercentOpen(60, input(20, ref))
	test.That(t, pc, test.ShouldEqual, uint8(60))
}

func TestDeadbandFollowsTrend(t *testing.T) {
	target := uint8(20)
	ref := c16.FromWholeC(20) // err = -12: below, outside sweet spot
	s := flatState(ref + 4)
	for i := 0; i < MinTicks0p5CDelta; i++ {
		s.pushRawTemp(ref)
	}
	// falling while below target: open up
	pc, _ := s.ComputeRequiredTRVPercentOpen(20, input(target, ref))
	test.That(t, pc, test.ShouldBeGreaterThan, uint8(20))

	// flat while below target: hold
	s = flatState(ref)
	pc, _ = s.ComputeRequiredTRVPercentOpen(20, input(target, ref))
	test.That(t, pc, test.ShouldEqual, uint8(20))
}

func TestWidenedDeadbandHoldsLonger(t *testing.T) {
	ref := c16.FromWholeC(20) + 12 - 20 // err = -20
	s := flatState(ref)
	in := input(20, ref)
	pc, _ := s.ComputeRequiredTRVPercentOpen(20, in)
	test.That(t, pc, test.ShouldBeGreaterThan, uint8(20))

	in.WidenDeadband = true
	pc, _ = s.ComputeRequiredTRVPercentOpen(20, in)
	test.That(t, pc, test.ShouldEqual, uint8(20))
}

func TestCoastClosedWhenWellAboveCeilingAndRising(t *testing.T) {
	ref := c16.FromWholeC(24)
	s := flatState(ref - 4)
	for i := 0; i < MinTicks0p5CDelta; i++ {
		s.pushRawTemp(ref)
	}
	in := input(20, ref)
	in.MaxTargetTempC = 21
	pc, _ := s.ComputeRequiredTRVPercentOpen(100, in)
	test.That(t, pc, test.ShouldEqual, uint8(100-100/(2*MaxRunOnTimeM)))
}

func TestDraughtReported(t *testing.T) {
	s := flatState(c16.FromWholeC(20))
	s.pushRawTemp(c16.FromWholeC(20) - c16.Half)
	ref := s.prevRawTempC16[0]
	pc, ev := s.ComputeRequiredTRVPercentOpen(30, input(20, ref))
	test.That(t, ev, test.ShouldEqual, EventDraught)
	test.That(t, pc, test.ShouldEqual, uint8(40))

	_, ev = s.ComputeRequiredTRVPercentOpen(0, input(20, ref))
	test.That(t, ev, test.ShouldEqual, EventNone)
}

func TestFastResponseBelowTargetAlwaysFullyOpen(t *testing.T) {
	for _, ref := range []c16.Temp{-160, 0, 160, 300, 319} {
		for _, glacial := range []bool{false, true} {
			for _, maxPC := range []uint8{1, 40, 100} {
				s := flatState(ref)
				s.valveTurndown()
				in := input(20, ref)
				in.FastResponseRequired = true
				in.Glacial = glacial
				in.MaxPCOpen = maxPC
				pc, _ := s.ComputeRequiredTRVPercentOpen(0, in)
				test.That(t, pc, test.ShouldEqual, maxPC)
			}
		}
	}
}

func TestAntiseekHoldsDirection(t *testing.T) {
	warm := c16.FromWholeC(23)
	s := flatState(warm)
	s.valveTurnup()
	for i := 0; i < AntiseekRecloseDelayM; i++ {
		test.That(t, s.DontTurndown(), test.ShouldBeTrue)
		pc, _ := s.ComputeRequiredTRVPercentOpen(60, input(20, warm))
		test.That(t, pc, test.ShouldEqual, uint8(60))
		pc, _ = s.ComputeRequiredTRVPercentOpen(60, input(20, 1600))
		test.That(t, pc, test.ShouldEqual, uint8(60))
		s.tickAntiseek()
	}
	test.That(t, s.DontTurndown(), test.ShouldBeFalse)
	pc, _ := s.ComputeRequiredTRVPercentOpen(60, input(20, warm))
	test.That(t, pc, test.ShouldBeLessThan, uint8(60))

	cool := c16.FromWholeC(17)
	s = flatState(cool)
	s.valveTurndown()
	for i := 0; i < AntiseekReopenDelayM; i++ {
		test.That(t, s.DontTurnup(), test.ShouldBeTrue)
		pc, _ := s.ComputeRequiredTRVPercentOpen(10, input(20, cool))
		test.That(t, pc, test.ShouldEqual, uint8(10))
		pc, _ = s.ComputeRequiredTRVPercentOpen(10, input(20, 0))
		test.That(t, pc, test.ShouldEqual, uint8(10))
		s.tickAntiseek()
	}
	pc, _ = s.ComputeRequiredTRVPercentOpen(10, input(20, cool))
	test.That(t, pc, test.ShouldEqual, uint8(100))
}

func TestAntiseekDelaysShorterThanFilter(t *testing.T) {
	test.That(t, AntiseekRecloseDelayM, test.ShouldBeLessThan, FilterLength)
	test.That(t, AntiseekReopenDelayM, test.ShouldBeLessThan, FilterLength)
}

func TestPercentOpenAlwaysWithinCap(t *testing.T) {
	type setup func(*State)
	setups := []setup{
		func(*State) {},
		func(s *State) { s.valveTurnup() },
		func(s *State) { s.valveTurndown() },
		func(s *State) { s.isFiltering = filterMinOnM },
	}
	for _, prep := range setups {
		for ref := c16.Temp(-320); ref <= 1700; ref += 37 {
			for target := uint8(5); target <= 95; target += 9 {
				for _, maxPC := range []uint8{1, 33, 100} {
					for pc := 0; pc <= 100; pc += 7 {
						for flags := 0; flags < 16; flags++ {
							s := flatState(ref - 5)
							s.pushRawTemp(ref)
							prep(s)
							in := &InputState{
								RefTempC16:           ref,
								TargetTempC:          target,
								MaxTargetTempC:       target + uint8(flags),
								MaxPCOpen:            maxPC,
								Glacial:              flags&1 != 0,
								InBakeMode:           flags&2 != 0,
								FastResponseRequired: flags&4 != 0,
								WidenDeadband:        flags&4 == 0 && flags&8 != 0,
							}
							got, _ := s.ComputeRequiredTRVPercentOpen(uint8(pc), in)
							if got > maxPC {
								t.Fatalf("pc %d > cap %d (ref=%d target=%d in=%d flags=%d)", got, maxPC, ref, target, pc, flags)
							}
						}
					}
				}
			}
		}
	}
}
