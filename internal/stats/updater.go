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
	"radvalve/v2/pkg/c16"
)

// smoothShift sets the weight of a new sample in the smoothed sets (1/8).
const smoothShift = 3

// Smooth blends a new sample into an existing smoothed value. An unset
// old value is replaced outright.
func Smooth(old, sample uint8) uint8 {
	if old == Unset {
		return sample
	}
	w := 1 << smoothShift
	return uint8((int(old)*(w-1) + int(sample) + w/2) >> smoothShift)
}

// Sample is one minute of environment readings.
type Sample struct {
	TempC16  c16.Temp
	AmbLight uint8
	OccPC    uint8
	RHPC     uint8
	HasRH    bool
}

// Updater accumulates minute samples and commits their means at the end
// of each hour.
type Updater struct {
	stats *ByHour

	n        int
	nRH      int
	tempSum  int
	lightSum int
	occSum   int
	rhSum    int
}

func NewUpdater(s *ByHour) *Updater {
	return &Updater{stats: s}
}

// Add accumulates one sample.
func (u *Updater) Add(s Sample) {
	u.n++
	u.tempSum += int(s.TempC16)
	u.lightSum += int(s.AmbLight)
	u.occSum += int(s.OccPC)
	if s.HasRH {
		u.nRH++
		u.rhSum += int(s.RHPC)
	}
}

// Samples is the count accumulated since the last commit.
func (u *Updater) Samples() int {
	return u.n
}

// Commit writes the hour's means into the raw and smoothed sets for hour
// and resets the accumulator. Nothing is written if there were no samples.
func (u *Updater) Commit(hour int) bool {
	if u.n == 0 {
		return false
	}
	mean := func(sum, n int) int { return (sum + n/2) / n }

	temp := c16.Compress(c16.Temp(roundDiv(u.tempSum, u.n)))
	light := clampByte(mean(u.lightSum, u.n))
	occ := clampByte(mean(u.occSum, u.n))
	u.record(TempByHour, TempByHourSmoothed, hour, temp)
	u.record(AmbLightByHour, AmbLightByHourSmoothed, hour, light)
	u.record(OccPCByHour, OccPCByHourSmoothed, hour, occ)
	if u.nRH > 0 {
		u.record(RHPCByHour, RHPCByHourSmoothed, hour, clampByte(mean(u.rhSum, u.nRH)))
	}

	*u = Updater{stats: u.stats}
	return true
}

func (u *Updater) record(raw, smoothed Set, hour int, v uint8) {
	u.stats.SetByHourStat(raw, hour, v)
	u.stats.SetByHourStat(smoothed, hour, Smooth(u.stats.ByHourStat(smoothed, hour), v))
}

// roundDiv divides rounding half away from zero, for signed temperatures.
func roundDiv(sum, n int) int {
	if sum < 0 {
		return -((-sum + n/2) / n)
	}
	return (sum + n/2) / n
}

// clampByte keeps a value out of the Unset code.
func clampByte(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v >= int(Unset) {
		return Unset - 1
	}
	return uint8(v)
}
