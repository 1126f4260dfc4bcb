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
	"radvalve/v2/internal/stats"
	"radvalve/v2/internal/valvemode"
	"radvalve/v2/pkg/c16"
)

type fakeTempControl struct {
	frost, warm  uint8
	eco, comfort bool
	ecoBias      bool
}

func (f *fakeTempControl) FrostTargetC() uint8             { return f.frost }
func (f *fakeTempControl) WarmTargetC() uint8              { return f.warm }
func (f *fakeTempControl) IsEcoTemperature(uint8) bool     { return f.eco }
func (f *fakeTempControl) IsComfortTemperature(uint8) bool { return f.comfort }
func (f *fakeTempControl) HasEcoBias() bool                { return f.ecoBias }

type fakeSchedule struct{ now, soon bool }

func (f *fakeSchedule) IsAnyScheduleOnWARMNow(int) bool  { return f.now }
func (f *fakeSchedule) IsAnyScheduleOnWARMSoon(int) bool { return f.soon }

type fakeOccupancy struct {
	occupied, vacant, confidentlyVacant, longVacant bool
}

func (f *fakeOccupancy) IsLikelyOccupied() bool   { return f.occupied }
func (f *fakeOccupancy) IsLikelyUnoccupied() bool { return f.vacant }
func (f *fakeOccupancy) ConfidentlyVacant() bool  { return f.confidentlyVacant }
func (f *fakeOccupancy) LongVacant() bool         { return f.longVacant }

// fakeStats ranks hours by their smoothed occupancy.
type fakeStats struct {
	occ [24]uint8
	now int
}

func newFakeStats(fill uint8) *fakeStats {
	f := &fakeStats{}
	for i := range f.occ {
		f.occ[i] = fill
	}
	return f
}

func (f *fakeStats) ByHourStat(set stats.Set, hour int) uint8 {
	if set != stats.OccPCByHourSmoothed {
		return stats.Unset
	}
	switch hour {
	case stats.CurrentHour:
		hour = f.now
	case stats.NextHour:
		hour = (f.now + 1) % 24
	}
	return f.occ[hour]
}

func (f *fakeStats) CountStatSamplesBelow(set stats.Set, value uint8) int {
	n := 0
	for _, v := range f.occ {
		if v != stats.Unset && v < value {
			n++
		}
	}
	return n
}

type fakeLight struct {
	dark  bool
	darkM uint16
	litM  uint16
}

func (f *fakeLight) IsRoomDark() bool    { return f.dark }
func (f *fakeLight) DarkMinutes() uint16 { return f.darkM }
func (f *fakeLight) LitMinutes() uint16  { return f.litM }

type fakeHumidity struct{ high bool }

func (f *fakeHumidity) IsAvailable() bool      { return true }
func (f *fakeHumidity) IsRHHighWithHyst() bool { return f.high }

type fakeUI struct{ recent, veryRecent bool }

func (f *fakeUI) RecentUIControlUse() bool     { return f.recent }
func (f *fakeUI) VeryRecentUIControlUse() bool { return f.veryRecent }

type fakeTemp struct{ raw c16.Temp }

func (f *fakeTemp) TempC16() c16.Temp { return f.raw }

// fakeValve follows requests instantly.
type fakeValve struct {
	pc      uint8
	sets    int
	wiggles int
	faulted bool
}

func (f *fakeValve) Set(pc uint8) bool {
	f.sets++
	f.pc = pc
	return true
}
func (f *fakeValve) Get() uint8 { return f.pc }
func (f *fakeValve) IsControlledValveReallyOpen() bool {
	return !f.faulted && f.pc >= ValvePCMinReallyOpen
}
func (f *fakeValve) IsInNormalRunState() bool { return !f.faulted }
func (f *fakeValve) IsInErrorState() bool     { return f.faulted }
func (f *fakeValve) Wiggle()                  { f.wiggles++ }

// newEnv returns a WARM-mode environment with an occupied room, a mid-scale
// WARM of 20C and no setbacks in play.
func newEnv() (TargetEnv, *valvemode.Mode) {
	mode := valvemode.New()
	mode.SetWarmMode(true)
	env := TargetEnv{
		Params:      params.Default,
		Mode:        mode,
		TempControl: &fakeTempControl{frost: 6, warm: 20, ecoBias: true},
		Schedule:    &fakeSchedule{},
		Occupancy:   &fakeOccupancy{occupied: true},
		Stats:       newFakeStats(stats.Unset),
		Light:       &fakeLight{},
		UI:          &fakeUI{},
	}
	return env, mode
}
