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

package params

import "fmt"

// Whole-degree bounds for any target temperature.
const (
	MinTargetC = 5
	MaxTargetC = 95
)

// ValveControlParameters is the per-product temperature and setback
// configuration. All values are whole °C.
type ValveControlParameters struct {
	FrostEco uint8 `json:"frost_eco"`
	FrostCom uint8 `json:"frost_com"`
	WarmEco  uint8 `json:"warm_eco"`
	WarmCom  uint8 `json:"warm_com"`

	// BakeUplift is added to WARM while in BAKE.
	BakeUplift uint8 `json:"bake_uplift"`

	SetbackDefault uint8 `json:"setback_default"`
	SetbackEco     uint8 `json:"setback_eco"`
	SetbackFull    uint8 `json:"setback_full"`
}

// Default is the parameter set used unless config overrides it.
var Default = ValveControlParameters{
	FrostEco:       6,
	FrostCom:       12,
	WarmEco:        18,
	WarmCom:        21,
	BakeUplift:     10,
	SetbackDefault: 1,
	SetbackEco:     3,
	SetbackFull:    6,
}

// Validate checks the ordering constraints between the parameters.
func (p ValveControlParameters) Validate() error {
	inRange := func(name string, v uint8) error {
		if v < MinTargetC || v > MaxTargetC {
			return fmt.Errorf("%s=%d outside [%d,%d]", name, v, MinTargetC, MaxTargetC)
		}
		return nil
	}
	for _, c := range []struct {
		name string
		v    uint8
	}{
		{"frost_eco", p.FrostEco},
		{"frost_com", p.FrostCom},
		{"warm_eco", p.WarmEco},
		{"warm_com", p.WarmCom},
	} {
		if err := inRange(c.name, c.v); err != nil {
			return err
		}
	}
	if p.FrostEco > p.FrostCom {
		return fmt.Errorf("frost_eco=%d above frost_com=%d", p.FrostEco, p.FrostCom)
	}
	if p.FrostCom >= p.WarmEco {
		return fmt.Errorf("frost_com=%d not below warm_eco=%d", p.FrostCom, p.WarmEco)
	}
	if p.WarmEco > p.WarmCom {
		return fmt.Errorf("warm_eco=%d above warm_com=%d", p.WarmEco, p.WarmCom)
	}
	if p.SetbackDefault < 1 {
		return fmt.Errorf("setback_default must be at least 1")
	}
	if p.SetbackEco <= p.SetbackDefault {
		return fmt.Errorf("setback_eco=%d not above setback_default=%d", p.SetbackEco, p.SetbackDefault)
	}
	if p.SetbackFull <= p.SetbackEco {
		return fmt.Errorf("setback_full=%d not above setback_eco=%d", p.SetbackFull, p.SetbackEco)
	}
	// the deepest setback from the lowest WARM must still be a valid target
	if int(p.WarmEco)-int(p.SetbackFull) < MinTargetC {
		return fmt.Errorf("setback_full=%d takes warm_eco=%d below %d", p.SetbackFull, p.WarmEco, MinTargetC)
	}
	return nil
}

// TempScaleMid is the WARM value that is neither eco nor comfort.
func (p ValveControlParameters) TempScaleMid() uint8 {
	return (p.WarmEco + p.WarmCom + 1) / 2
}

// ClampTarget forces a whole-degree target into [MinTargetC, MaxTargetC].
func ClampTarget(t int) uint8 {
	if t < MinTargetC {
		return MinTargetC
	}
	if t > MaxTargetC {
		return MaxTargetC
	}
	return uint8(t)
}
