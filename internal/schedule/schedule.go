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

package schedule

import (
	"fmt"

	"radvalve/v2/pkg/nvstore"
)

const (
	MaxSimpleSchedules = 2

	MinutesPerDay = 1440
	// Start times are stored in 6-minute grains so they fit in a byte.
	GranularityMins  = 6
	MaxProgrammeByte = MinutesPerDay/GranularityMins - 1 // 239

	// BasicScheduledOnTimeMins is how long a schedule stays ON after its start.
	BasicScheduledOnTimeMins = 60
	// PrewarmMins is how early before its start a schedule counts as ON.
	PrewarmMins = 30
	// PrePrewarmMins is how far ahead "soon" looks.
	PrePrewarmMins = 60

	unset = nvstore.Erased
)

// EncodeProgrammeByte turns a start minute-of-day into its stored byte,
// rounding down to the grain. ok is false for minutes outside the day.
func EncodeProgrammeByte(startMin int) (b uint8, ok bool) {
	if startMin < 0 || startMin >= MinutesPerDay {
		return unset, false
	}
	return uint8(startMin / GranularityMins), true
}

// DecodeProgrammeByte returns the start minute for b; ok is false if b is
// unset or invalid.
func DecodeProgrammeByte(b uint8) (startMin int, ok bool) {
	if b > MaxProgrammeByte {
		return 0, false
	}
	return int(b) * GranularityMins, true
}

// ModeSetter is the part of the valve mode that ApplyUserSchedule drives.
type ModeSetter interface {
	InWarmMode() bool
	SetWarmMode(warm bool)
}

// Schedule is a set of daily WARM windows backed by a ByteStore, one byte
// per slot starting at a base address.
type Schedule struct {
	store nvstore.ByteStore
	base  int
}

// New returns a Schedule using bytes [base, base+MaxSimpleSchedules) of store.
func New(store nvstore.ByteStore, base int) *Schedule {
	return &Schedule{store: store, base: base}
}

// SetSchedule sets slot to come on at startMin, rounded down to the grain.
func (s *Schedule) SetSchedule(startMin int, slot int) bool {
	if slot < 0 || slot >= MaxSimpleSchedules {
		return false
	}
	b, ok := EncodeProgrammeByte(startMin)
	if !ok {
		return false
	}
	return s.store.Set(s.base+slot, b) == nil
}

// ClearSchedule unsets slot.
func (s *Schedule) ClearSchedule(slot int) bool {
	if slot < 0 || slot >= MaxSimpleSchedules {
		return false
	}
	return s.store.Set(s.base+slot, unset) == nil
}

// On returns the start minute of slot, ok false if unset.
func (s *Schedule) On(slot int) (int, bool) {
	if slot < 0 || slot >= MaxSimpleSchedules {
		return 0, false
	}
	return DecodeProgrammeByte(s.store.Get(s.base + slot))
}

// Off returns the minute slot switches off, ok false if unset.
func (s *Schedule) Off(slot int) (int, bool) {
	on, ok := s.On(slot)
	if !ok {
		return 0, false
	}
	return (on + BasicScheduledOnTimeMins) % MinutesPerDay, true
}

// IsAnyScheduleOnWARMNow is true if mm (minute of day) falls in any set
// slot's pre-warm or ON window.
func (s *Schedule) IsAnyScheduleOnWARMNow(mm int) bool {
	mm = wrap(mm)
	for slot := 0; slot < MaxSimpleSchedules; slot++ {
		on, ok := s.On(slot)
		if !ok {
			continue
		}
		start := wrap(on - PrewarmMins)
		end := wrap(on + BasicScheduledOnTimeMins)
		if inWindow(mm, start, end) {
			return true
		}
	}
	return false
}

// IsAnyScheduleOnWARMSoon looks PrePrewarmMins ahead.
func (s *Schedule) IsAnyScheduleOnWARMSoon(mm int) bool {
	return s.IsAnyScheduleOnWARMNow(mm + PrePrewarmMins)
}

// ApplyUserSchedule forces WARM while any schedule is on, and FROST at the
// exact OFF minute of a slot unless another schedule is still on. It
// reports whether the mode was changed.
func (s *Schedule) ApplyUserSchedule(mode ModeSetter, mm int) bool {
	mm = wrap(mm)
	if s.IsAnyScheduleOnWARMNow(mm) {
		if mode.InWarmMode() {
			return false
		}
		mode.SetWarmMode(true)
		return true
	}
	for slot := 0; slot < MaxSimpleSchedules; slot++ {
		off, ok := s.Off(slot)
		if ok && off == mm {
			if !mode.InWarmMode() {
				return false
			}
			mode.SetWarmMode(false)
			return true
		}
	}
	return false
}

// IsAnySet is true if at least one slot holds a start time.
func (s *Schedule) IsAnySet() bool {
	for slot := 0; slot < MaxSimpleSchedules; slot++ {
		if _, ok := s.On(slot); ok {
			return true
		}
	}
	return false
}

// String lists the set slots as HH:MM-HH:MM.
func (s *Schedule) String() string {
	out := ""
	for slot := 0; slot < MaxSimpleSchedules; slot++ {
		on, ok := s.On(slot)
		if !ok {
			continue
		}
		off, _ := s.Off(slot)
		if out != "" {
			out += " "
		}
		out += fmt.Sprintf("%02d:%02d-%02d:%02d", on/60, on%60, off/60, off%60)
	}
	return out
}

func wrap(mm int) int {
	mm %= MinutesPerDay
	if mm < 0 {
		mm += MinutesPerDay
	}
	return mm
}

// inWindow tests start <= mm < end on a circular day.
func inWindow(mm, start, end int) bool {
	if start <= end {
		return mm >= start && mm < end
	}
	return mm >= start || mm < end
}
