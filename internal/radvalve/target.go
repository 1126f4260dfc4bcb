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
	"radvalve/v2/internal/tempcontrol"
)

// Collaborator capabilities read by the target computation.
type (
	ModeReader interface {
		InWarmMode() bool
		InBakeMode() bool
	}
	ScheduleQuery interface {
		IsAnyScheduleOnWARMNow(mm int) bool
		IsAnyScheduleOnWARMSoon(mm int) bool
	}
	OccupancyQuery interface {
		IsLikelyOccupied() bool
		IsLikelyUnoccupied() bool
		ConfidentlyVacant() bool
		LongVacant() bool
	}
	StatsQuery interface {
		ByHourStat(set stats.Set, hour int) uint8
		CountStatSamplesBelow(set stats.Set, value uint8) int
	}
	LightSensor interface {
		IsRoomDark() bool
		DarkMinutes() uint16
		LitMinutes() uint16
	}
	HumiditySensor interface {
		IsAvailable() bool
		IsRHHighWithHyst() bool
	}
	UIActivity interface {
		RecentUIControlUse() bool
		VeryRecentUIControlUse() bool
	}
)

const (
	// Hours with at most this many quieter hours count as quiet, by eco bias.
	quietHourEco     = 4
	quietHourComfort = 2
	// Hours with more than this many quieter hours count as busy, by eco bias.
	busyHourEco     = 17
	busyHourComfort = 14
	// veryQuietHour is the bottom of the occupancy ranking.
	veryQuietHour = 1

	// darkForHoursM is how long dark before the busy-hour inhibit lapses.
	darkForHoursM = 245
	// Minimum dark time before FULL setback, by how quiet the hour is.
	fullSetbackDarkQuietM  = 2
	fullSetbackDarkNormalM = 10
	// longDarkM is the shortest daylit spell in which FULL setback may
	// apply.
	longDarkM = 7 * 60
)

// TargetEnv gathers the collaborators for ComputeTargetTemp. Humidity may be
// nil when no sensor is fitted.
type TargetEnv struct {
	Params      params.ValveControlParameters
	Mode        ModeReader
	TempControl tempcontrol.TempControl
	Schedule    ScheduleQuery
	Occupancy   OccupancyQuery
	Stats       StatsQuery
	Light       LightSensor
	Humidity    HumiditySensor
	UI          UIActivity

	// MinuteOfDay is local time in [0, 1440).
	MinuteOfDay int
	// SetbackLockout disables setbacks, eg during a trial period.
	SetbackLockout bool
}

// ComputeTargetTemp returns the whole-degree target for the current mode
// and surroundings, always within [MinTargetC, MaxTargetC].
func ComputeTargetTemp(env *TargetEnv) uint8 {
	tc := env.TempControl
	frost := tc.FrostTargetC()
	warm := tc.WarmTargetC()

	if !env.Mode.InWarmMode() {
		occ := env.Occupancy
		if !occ.LongVacant() &&
			env.Schedule.IsAnyScheduleOnWARMSoon(env.MinuteOfDay) &&
			!env.UI.VeryRecentUIControlUse() {
			setback := env.Params.SetbackDefault
			if tc.IsEcoTemperature(warm) {
				setback = env.Params.SetbackEco
			}
			return params.ClampTarget(max(int(frost), int(warm)-int(setback)))
		}
		return params.ClampTarget(int(frost))
	}

	if env.Mode.InBakeMode() {
		return params.ClampTarget(min(int(warm)+int(env.Params.BakeUplift), params.MaxTargetC))
	}

	if env.SetbackLockout || env.UI.RecentUIControlUse() {
		return params.ClampTarget(max(int(warm), int(frost)))
	}

	setback := chooseSetback(env, warm)
	return params.ClampTarget(max(int(warm)-int(setback), int(frost)))
}

// chooseSetback picks DEFAULT, ECO or FULL setback in WARM mode. Missing
// statistics only ever make the choice less aggressive.
func chooseSetback(env *TargetEnv, warm uint8) uint8 {
	occ := env.Occupancy
	p := env.Params
	mm := env.MinuteOfDay

	longVacant := occ.LongVacant()
	likelyVacantNow := longVacant || occ.IsLikelyUnoccupied()
	if !likelyVacantNow || (!longVacant && env.Schedule.IsAnyScheduleOnWARMNow(mm)) {
		return 0
	}
	setback := p.SetbackDefault

	ecoBias := env.TempControl.HasEcoBias()
	darkM := uint16(0)
	if env.Light != nil && env.Light.IsRoomDark() {
		darkM = env.Light.DarkMinutes()
	}
	thisHour, thisOK := quieterHours(env.Stats, stats.CurrentHour)
	nextHour, nextOK := quieterHours(env.Stats, stats.NextHour)

	quietLimit := quietHourComfort
	busyLimit := busyHourComfort
	if ecoBias {
		quietLimit, busyLimit = quietHourEco, busyHourEco
	}
	quietNow := thisOK && thisHour <= quietLimit
	relativelyActive := !thisOK || thisHour > busyLimit
	nextHourBusy := !nextOK || nextHour > busyLimit

	considerEco := occ.ConfidentlyVacant() || quietNow || darkM > 0
	inhibitEco := !longVacant &&
		(env.Schedule.IsAnyScheduleOnWARMSoon(mm) || (darkM <= darkForHoursM && relativelyActive))
	if !considerEco || inhibitEco {
		return setback
	}
	setback = p.SetbackEco

	if env.TempControl.IsComfortTemperature(warm) || (!longVacant && nextHourBusy) {
		return setback
	}
	veryQuiet := (thisOK && thisHour <= veryQuietHour) || (nextOK && nextHour <= veryQuietHour)
	minDarkM := uint16(fullSetbackDarkNormalM)
	if veryQuiet {
		minDarkM = fullSetbackDarkQuietM
	}
	if !longVacant && darkM < minDarkM {
		return setback
	}
	// a room lit for less than longDarkM may be in use
	if env.Light != nil && !env.Light.IsRoomDark() {
		if litM := env.Light.LitMinutes(); litM > 0 && litM < longDarkM {
			return setback
		}
	}
	if env.Humidity != nil && env.Humidity.IsAvailable() && env.Humidity.IsRHHighWithHyst() {
		return setback
	}
	return p.SetbackFull
}

// quieterHours counts the hours historically less occupied than hour.
func quieterHours(s StatsQuery, hour int) (int, bool) {
	if s == nil {
		return 0, false
	}
	v := s.ByHourStat(stats.OccPCByHourSmoothed, hour)
	if v == stats.Unset {
		return 0, false
	}
	return s.CountStatSamplesBelow(stats.OccPCByHourSmoothed, v), true
}
