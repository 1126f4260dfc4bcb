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
	"sync/atomic"

	"radvalve/v2/internal/params"
)

// Pot positions at or beyond which the dial snaps to its extremes.
const (
	DialLowEndStop  = 16
	DialHighEndStop = 239
)

// Dial maps a 0..255 potentiometer reading onto the WARM range
// [WarmEco-1, WarmCom+1]. The end-stop regions snap to the extremes and
// the span between them is divided evenly over WarmEco..WarmCom.
type Dial struct {
	scale
	pot atomic.Uint32
}

// NewDial starts the dial at mid-scale.
func NewDial(p params.ValveControlParameters) *Dial {
	d := &Dial{scale: scale{p: p}}
	d.pot.Store(128)
	return d
}

// SetPot records a new raw pot reading.
func (d *Dial) SetPot(v uint8) {
	d.pot.Store(uint32(v))
}

func (d *Dial) Pot() uint8 {
	return uint8(d.pot.Load())
}

func (d *Dial) WarmTargetC() uint8 {
	return d.warmFor(d.Pot())
}

func (d *Dial) warmFor(pot uint8) uint8 {
	low := d.p.WarmEco - 1
	high := d.p.WarmCom + 1
	if pot < DialLowEndStop {
		return low
	}
	if pot > DialHighEndStop {
		return high
	}
	steps := int(d.p.WarmCom-d.p.WarmEco) + 1
	width := DialHighEndStop - DialLowEndStop + 1
	return d.p.WarmEco + uint8((int(pot)-DialLowEndStop)*steps/width)
}

func (d *Dial) FrostTargetC() uint8 {
	return d.frostFor(d.WarmTargetC())
}

func (d *Dial) HasEcoBias() bool {
	return !d.IsComfortTemperature(d.WarmTargetC())
}

// AtLowEndStop is true when the dial is turned fully down; the UI treats
// this as a request for FROST.
func (d *Dial) AtLowEndStop() bool {
	return d.Pot() < DialLowEndStop
}

// AtHighEndStop is true when the dial is turned fully up; the UI treats
// this as a request for BAKE.
func (d *Dial) AtHighEndStop() bool {
	return d.Pot() > DialHighEndStop
}
