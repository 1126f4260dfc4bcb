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

package uiactivity

import "sync/atomic"

const (
	// RecentM is how long after a UI interaction setbacks stay inhibited.
	RecentM = 5
	// VeryRecentM is how long after a UI interaction the valve responds fast.
	VeryRecentM = 2
)

// Tracker remembers how long ago the user touched a control. MarkUsed can
// be called from any goroutine; Tick runs once per minute.
type Tracker struct {
	sinceM  atomic.Uint32
	pending atomic.Bool
}

func New() *Tracker {
	t := &Tracker{}
	t.sinceM.Store(RecentM)
	return t
}

// MarkUsed records a user interaction.
func (t *Tracker) MarkUsed() {
	t.sinceM.Store(0)
	t.pending.Store(true)
}

// Tick ages the last interaction by one minute.
func (t *Tracker) Tick() {
	for {
		v := t.sinceM.Load()
		if v >= RecentM {
			return
		}
		if t.sinceM.CompareAndSwap(v, v+1) {
			return
		}
	}
}

// TakeUsed reports and clears an interaction not yet seen by the control loop.
func (t *Tracker) TakeUsed() bool {
	return t.pending.Swap(false)
}

func (t *Tracker) RecentUIControlUse() bool {
	return t.sinceM.Load() < RecentM
}

func (t *Tracker) VeryRecentUIControlUse() bool {
	return t.sinceM.Load() < VeryRecentM
}
