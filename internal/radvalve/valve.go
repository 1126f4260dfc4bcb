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
	"sync"

	"radvalve/v2/pkg/c16"
)

// PhysicalValve is the actuator driving the radiator valve.
type PhysicalValve interface {
	Set(pc uint8) bool
	Get() uint8
	IsControlledValveReallyOpen() bool
	IsInNormalRunState() bool
	IsInErrorState() bool
	Wiggle()
}

// TemperatureSensor supplies the raw room temperature.
type TemperatureSensor interface {
	TempC16() c16.Temp
}

// ModeController is the mode as seen by the orchestrator, which may cancel
// BAKE once the target is reached.
type ModeController interface {
	ModeReader
	CancelBake()
}

// refOffsetC16 is added to raw readings to form the reference temperature.
const refOffsetC16 = c16.Half

// Config is the static valve configuration.
type Config struct {
	// MaxPCOpen caps the valve, 1..100.
	MaxPCOpen uint8
	// Glacial slews at 1% per minute.
	Glacial bool
}

// Status is a consistent view of the valve after a tick.
type Status struct {
	Mode          string   `json:"mode"`
	RefTempC16    c16.Temp `json:"ref_temp_c16"`
	TargetTempC   uint8    `json:"target_temp_c"`
	ValvePC       uint8    `json:"valve_pc"`
	ObservedPC    uint8    `json:"observed_pc"`
	Filtering     bool     `json:"filtering"`
	ValveMoved    bool     `json:"valve_moved"`
	CallForHeat   bool     `json:"call_for_heat"`
	ValveFault    bool     `json:"valve_fault"`
	UnderTarget   bool     `json:"under_target"`
	TargetReached bool     `json:"target_reached"`
	CumulativePC  uint16   `json:"cumulative_movement_pc"`
	Event         string   `json:"event"`
}

// ModelledRadValve owns the retained control state and orchestrates one
// control step per minute. Tick must only be called from one goroutine;
// Status may be read from anywhere.
type ModelledRadValve struct {
	cfg   Config
	env   TargetEnv
	mode  ModeController
	temp  TemperatureSensor
	valve PhysicalValve

	state   State
	valvePC uint8

	mu     sync.RWMutex
	status Status
}

// New builds a valve. env.Mode must be mode; valve may be nil.
func New(cfg Config, env TargetEnv, mode ModeController, temp TemperatureSensor, valve PhysicalValve) *ModelledRadValve {
	if cfg.MaxPCOpen == 0 || cfg.MaxPCOpen > 100 {
		cfg.MaxPCOpen = 100
	}
	env.Mode = mode
	return &ModelledRadValve{
		cfg:   cfg,
		env:   env,
		mode:  mode,
		temp:  temp,
		valve: valve,
	}
}

// SetSetbackLockout enables or clears the setback lockout.
func (v *ModelledRadValve) SetSetbackLockout(on bool) {
	v.env.SetbackLockout = on
}

// Tick runs one control step at minuteOfDay and returns the resulting status.
func (v *ModelledRadValve) Tick(minuteOfDay int) Status {
	s := &v.state
	ref := v.temp.TempC16() + refOffsetC16

	s.pushRawTemp(ref)
	if !s.initialised {
		if v.valve != nil {
			v.valvePC = min(v.valve.Get(), 100)
		}
		s.prevValvePC = v.valvePC
		s.initialised = true
	}
	s.updateFiltering()
	s.tickAntiseek()

	env := v.env
	env.MinuteOfDay = minuteOfDay
	target := ComputeTargetTemp(&env)

	tc := env.TempControl
	ceiling := tc.FrostTargetC()
	if v.mode.InWarmMode() {
		ceiling = tc.WarmTargetC()
	}
	veryRecentUI := env.UI.VeryRecentUIControlUse()
	dark := env.Light != nil && env.Light.IsRoomDark()
	in := InputState{
		RefTempC16:     ref,
		TargetTempC:    target,
		MaxTargetTempC: max(target, ceiling),
		MaxPCOpen:      v.cfg.MaxPCOpen,
		WidenDeadband: !veryRecentUI &&
			(s.IsFiltering() || !v.mode.InWarmMode() || dark || !env.Occupancy.IsLikelyOccupied()),
		Glacial:              v.cfg.Glacial,
		HasEcoBias:           tc.HasEcoBias(),
		InBakeMode:           v.mode.InBakeMode(),
		FastResponseRequired: veryRecentUI,
	}

	current := v.valvePC
	newPC, ev := s.ComputeRequiredTRVPercentOpen(current, &in)
	switch {
	case newPC > current:
		s.valveTurnup()
	case newPC < current:
		s.valveTurndown()
	}

	observed := newPC
	reallyOpen := newPC >= ValvePCMinReallyOpen
	fault := false
	if v.valve != nil {
		v.valve.Set(newPC)
		observed = min(v.valve.Get(), 100)
		reallyOpen = v.valve.IsControlledValveReallyOpen()
		fault = v.valve.IsInErrorState()
	}
	s.addMovement(observed)
	s.valveMoved = newPC != current
	v.valvePC = newPC

	reached := c16.WholeC(ref) >= int(target)
	if reached && v.mode.InBakeMode() {
		v.mode.CancelBake()
	}

	st := Status{
		Mode:          modeName(v.mode),
		RefTempC16:    ref,
		TargetTempC:   target,
		ValvePC:       newPC,
		ObservedPC:    observed,
		Filtering:     s.IsFiltering(),
		ValveMoved:    s.valveMoved,
		CallForHeat:   !reached && newPC >= ValvePCSaferOpen && reallyOpen,
		ValveFault:    fault,
		UnderTarget:   !reached,
		TargetReached: reached,
		CumulativePC:  s.cumulativeMovementPC,
		Event:         ev.String(),
	}
	v.mu.Lock()
	v.status = st
	v.mu.Unlock()
	return st
}

// Wiggle asks the actuator for a small visible movement. It does nothing
// without a physical valve.
func (v *ModelledRadValve) Wiggle() {
	if v.valve != nil {
		v.valve.Wiggle()
	}
}

// Status returns the state published by the last tick.
func (v *ModelledRadValve) Status() Status {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.status
}

// State exposes the retained state for inspection.
func (v *ModelledRadValve) State() *State { return &v.state }

func modeName(m ModeReader) string {
	switch {
	case m.InBakeMode():
		return "bake"
	case m.InWarmMode():
		return "warm"
	default:
		return "frost"
	}
}
