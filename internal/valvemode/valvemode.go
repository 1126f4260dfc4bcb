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

package valvemode

import (
	"sync"
	"sync/atomic"
)

// DefaultBakeMaxM is how long BAKE lasts before falling back to WARM.
const DefaultBakeMaxM = 31

// DebounceM is the minimum time in minutes between accepted WARM/FROST
// changes made through SetWarmModeDebounced.
const DebounceM = 2

// Mode is the user-selected FROST/WARM/BAKE state.
//
// Requests (SetWarmMode, StartBake, CancelBake) may arrive from UI
// goroutines at any time; Tick is only called by the control loop. Each
// field is a single atomic so readers never need a lock.
type Mode struct {
	warm          atomic.Bool
	bakeCountdown atomic.Uint32

	// debounce state for SetWarmModeDebounced
	mu         sync.Mutex
	holdoffM   uint8
	pending    bool
	pendingVal bool
}

// New returns a Mode starting in FROST.
func New() *Mode {
	return &Mode{}
}

// Name is the display name of a mode.
type Name string

const (
	Frost Name = "FROST"
	Warm  Name = "WARM"
	Bake  Name = "BAKE"
)

// SetWarmMode selects WARM (true) or FROST (false). Leaving WARM always
// cancels any BAKE in progress.
func (m *Mode) SetWarmMode(warm bool) {
	if !warm {
		m.bakeCountdown.Store(0)
	}
	m.warm.Store(warm)
}

// SetWarmModeDebounced is SetWarmMode for user controls that may bounce.
// A change is applied at once unless another was accepted within the last
// DebounceM minutes; then it is held, and the latest held request is
// applied by Tick when the window closes. Asking for the current mode
// drops anything held. Reports whether the request took effect now.
func (m *Mode) SetWarmModeDebounced(warm bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if warm == m.warm.Load() {
		m.pending = false
		return true
	}
	if m.holdoffM > 0 {
		m.pending, m.pendingVal = true, warm
		return false
	}
	m.SetWarmMode(warm)
	m.holdoffM = DebounceM
	return true
}

// StartBake enters BAKE for DefaultBakeMaxM minutes, passing through WARM
// first so that BAKE never exists without WARM.
func (m *Mode) StartBake() {
	m.warm.Store(true)
	m.bakeCountdown.Store(DefaultBakeMaxM)
}

// CancelBake drops back to plain WARM.
func (m *Mode) CancelBake() {
	m.bakeCountdown.Store(0)
}

func (m *Mode) InWarmMode() bool {
	return m.warm.Load()
}

func (m *Mode) InBakeMode() bool {
	return m.warm.Load() && m.bakeCountdown.Load() > 0
}

// BakeRemainingM reports minutes of BAKE left, 0 when not baking.
func (m *Mode) BakeRemainingM() uint8 {
	if !m.warm.Load() {
		return 0
	}
	return uint8(m.bakeCountdown.Load())
}

// Tick is called once per minute. It counts BAKE down and releases any
// held WARM/FROST request once the debounce window closes.
func (m *Mode) Tick() {
	m.tickDebounce()
	for {
		c := m.bakeCountdown.Load()
		if c == 0 {
			return
		}
		if m.bakeCountdown.CompareAndSwap(c, c-1) {
			return
		}
	}
}

// Current returns the display name of the present state.
func (m *Mode) Current() Name {
	switch {
	case m.InBakeMode():
		return Bake
	case m.InWarmMode():
		return Warm
	default:
		return Frost
	}
}

func (m *Mode) tickDebounce() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.holdoffM > 0 {
		m.holdoffM--
	}
	if m.holdoffM == 0 && m.pending {
		m.pending = false
		m.SetWarmMode(m.pendingVal)
		m.holdoffM = DebounceM
	}
}
