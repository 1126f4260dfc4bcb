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

package occupancy

import "sync"

const (
	// OccupationTimeoutM is how long strong evidence keeps the room occupied.
	OccupationTimeoutM = 50
	// OccupationTimeoutLikelyM is the floor applied by likely evidence.
	OccupationTimeoutLikelyM = OccupationTimeoutM * 4 / 5
	// OccupationTimeoutMaybeM is the floor applied by weak evidence.
	OccupationTimeoutMaybeM = OccupationTimeoutM * 2 / 5
	// NewOccupancyTimeoutM is the length of the "just became occupied" pulse.
	NewOccupancyTimeoutM = 3

	maxVacancyH = 255

	confidentlyVacantH = 2
	longVacantH        = 24
	longLongVacantH    = 39
)

// Tracker fuses occupancy evidence of varying strength into a countdown and
// a vacancy duration. Marks can arrive from sensor goroutines; Tick runs on
// the control loop. The mutex is only held for the few field updates.
type Tracker struct {
	mu sync.Mutex

	occupationCountdownM   uint8
	newOccupancyCountdownM uint8
	vacancyM               uint8
	vacancyH               uint8
}

func New() *Tracker {
	return &Tracker{}
}

// MarkOccupied records strong evidence, eg a button press or PIR trigger.
func (t *Tracker) MarkOccupied() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.occupationCountdownM = OccupationTimeoutM
	t.newOccupancyCountdownM = NewOccupancyTimeoutM
	t.clearVacancy()
}

// MarkPossiblyOccupied records likely evidence, eg lights switched on.
// It never shortens an existing countdown.
func (t *Tracker) MarkPossiblyOccupied() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.occupationCountdownM == 0 {
		t.newOccupancyCountdownM = NewOccupancyTimeoutM
	}
	t.occupationCountdownM = max(t.occupationCountdownM, OccupationTimeoutLikelyM)
	t.clearVacancy()
}

// MarkJustPossiblyOccupied records weak evidence, eg a rise in humidity.
// It does not start the new-occupancy pulse.
func (t *Tracker) MarkJustPossiblyOccupied() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.occupationCountdownM = max(t.occupationCountdownM, OccupationTimeoutMaybeM)
	t.clearVacancy()
}

// SetHolidayMode marks the room as long vacant immediately.
func (t *Tracker) SetHolidayMode() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.occupationCountdownM = 0
	t.newOccupancyCountdownM = 0
	t.vacancyM = 0
	t.vacancyH = maxVacancyH
}

func (t *Tracker) clearVacancy() {
	t.vacancyM = 0
	t.vacancyH = 0
}

// Tick is called once per minute.
func (t *Tracker) Tick() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.newOccupancyCountdownM > 0 {
		t.newOccupancyCountdownM--
	}
	if t.occupationCountdownM > 0 {
		t.occupationCountdownM--
		return
	}
	if t.vacancyH >= maxVacancyH {
		return
	}
	t.vacancyM++
	if t.vacancyM >= 60 {
		t.vacancyM = 0
		t.vacancyH++
	}
}

func (t *Tracker) read() (countdown, newOcc, vacancyH uint8) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.occupationCountdownM, t.newOccupancyCountdownM, t.vacancyH
}

func (t *Tracker) IsLikelyOccupied() bool {
	c, _, _ := t.read()
	return c > 0
}

func (t *Tracker) IsLikelyUnoccupied() bool {
	return !t.IsLikelyOccupied()
}

func (t *Tracker) IsLikelyRecentlyOccupied() bool {
	c, _, _ := t.read()
	return c > OccupationTimeoutLikelyM
}

// IsNewOccupancy is true for a few minutes after the room became occupied.
func (t *Tracker) IsNewOccupancy() bool {
	_, n, _ := t.read()
	return n > 0
}

// OccupancyPercent is 0 when vacant, otherwise the countdown scaled
// linearly onto [1,100].
func (t *Tracker) OccupancyPercent() uint8 {
	c, _, _ := t.read()
	if c == 0 {
		return 0
	}
	return uint8(max(1, min(100, int(c)*100/OccupationTimeoutM)))
}

func (t *Tracker) VacancyH() uint8 {
	_, _, h := t.read()
	return h
}

func (t *Tracker) ConfidentlyVacant() bool { return t.VacancyH() > confidentlyVacantH }
func (t *Tracker) LongVacant() bool        { return t.VacancyH() > longVacantH }
func (t *Tracker) LongLongVacant() bool    { return t.VacancyH() > longLongVacantH }
