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

package tempcontrol

import (
	"radvalve/v2/internal/params"
)

// TempControl reports the user's FROST and WARM targets.
type TempControl interface {
	FrostTargetC() uint8
	WarmTargetC() uint8
	// IsEcoTemperature is true for WARM targets below the scale mid-point.
	IsEcoTemperature(tempC uint8) bool
	// IsComfortTemperature is true for WARM targets above the scale mid-point.
	IsComfortTemperature(tempC uint8) bool
	HasEcoBias() bool
}

// scale implements the eco/comfort classification shared by all
// implementations.
type scale struct {
	p params.ValveControlParameters
}

func (s scale) IsEcoTemperature(tempC uint8) bool {
	return tempC < s.p.TempScaleMid()
}

func (s scale) IsComfortTemperature(tempC uint8) bool {
	return tempC > s.p.TempScaleMid()
}

// frostFor picks the frost floor matching the bias of warm.
func (s scale) frostFor(warm uint8) uint8 {
	if s.IsComfortTemperature(warm) {
		return s.p.FrostCom
	}
	return s.p.FrostEco
}

// Fixed is a TempControl with a hard-coded WARM target.
type Fixed struct {
	scale
	warm uint8
}

// NewFixed returns a Fixed control. A warm of 0 selects the mid-scale
// default.
func NewFixed(p params.ValveControlParameters, warm uint8) *Fixed {
	if warm == 0 {
		warm = p.TempScaleMid()
	}
	return &Fixed{scale: scale{p: p}, warm: params.ClampTarget(int(warm))}
}

func (f *Fixed) FrostTargetC() uint8 { return f.frostFor(f.warm) }
func (f *Fixed) WarmTargetC() uint8  { return f.warm }
func (f *Fixed) HasEcoBias() bool    { return !f.IsComfortTemperature(f.warm) }
