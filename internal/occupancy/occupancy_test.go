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

import (
	"sync"
	"testing"

	"go.viam.com/test"
)

func ticks(t *Tracker, n int) {
	for i := 0; i < n; i++ {
		t.Tick()
	}
}

func TestMarkOccupied(t *testing.T) {
	tr := New()
	test.That(t, tr.IsLikelyOccupied(), test.ShouldBeFalse)
	test.That(t, tr.OccupancyPercent(), test.ShouldEqual, uint8(0))

	tr.MarkOccupied()
	test.That(t, tr.IsLikelyOccupied(), test.ShouldBeTrue)
	test.That(t, tr.IsLikelyRecentlyOccupied(), test.ShouldBeTrue)
	test.That(t, tr.IsNewOccupancy(), test.ShouldBeTrue)
	test.That(t, tr.OccupancyPercent(), test.ShouldEqual, uint8(100))

	ticks(tr, NewOccupancyTimeoutM)
	test.That(t, tr.IsNewOccupancy(), test.ShouldBeFalse)

	ticks(tr, OccupationTimeoutM-NewOccupancyTimeoutM-1)
	test.That(t, tr.IsLikelyOccupied(), test.ShouldBeTrue)
	test.That(t, tr.OccupancyPercent(), test.ShouldEqual, uint8(2))
	tr.Tick()
	test.That(t, tr.IsLikelyOccupied(), test.ShouldBeFalse)
	test.That(t, tr.VacancyH(), test.ShouldEqual, uint8(0))
}

func TestEvidenceStrengths(t *testing.T) {
	tr := New()
	tr.MarkJustPossiblyOccupied()
	test.That(t, tr.IsLikelyOccupied(), test.ShouldBeTrue)
	test.That(t, tr.IsNewOccupancy(), test.ShouldBeFalse)
	test.That(t, tr.OccupancyPercent(), test.ShouldEqual, uint8(40))

	tr.MarkPossiblyOccupied()
	test.That(t, tr.OccupancyPercent(), test.ShouldEqual, uint8(80))
	test.That(t, tr.IsLikelyRecentlyOccupied(), test.ShouldBeFalse)

	// weaker evidence never shortens the countdown
	tr.MarkOccupied()
	tr.MarkPossiblyOccupied()
	tr.MarkJustPossiblyOccupied()
	test.That(t, tr.OccupancyPercent(), test.ShouldEqual, uint8(100))
}

func TestPossiblyOccupiedPulseOnlyFromVacant(t *testing.T) {
	tr := New()
	tr.MarkPossiblyOccupied()
	test.That(t, tr.IsNewOccupancy(), test.ShouldBeTrue)

	tr2 := New()
	tr2.MarkJustPossiblyOccupied()
	tr2.MarkPossiblyOccupied()
	test.That(t, tr2.IsNewOccupancy(), test.ShouldBeFalse)
}

func TestVacancyThresholds(t *testing.T) {
	tr := New()
	ticks(tr, 60*3)
	test.That(t, tr.VacancyH(), test.ShouldEqual, uint8(3))
	test.That(t, tr.ConfidentlyVacant(), test.ShouldBeTrue)
	test.That(t, tr.LongVacant(), test.ShouldBeFalse)

	ticks(tr, 60*22)
	test.That(t, tr.LongVacant(), test.ShouldBeTrue)
	test.That(t, tr.LongLongVacant(), test.ShouldBeFalse)

	ticks(tr, 60*15)
	test.That(t, tr.LongLongVacant(), test.ShouldBeTrue)

	tr.MarkJustPossiblyOccupied()
	test.That(t, tr.VacancyH(), test.ShouldEqual, uint8(0))
	test.That(t, tr.ConfidentlyVacant(), test.ShouldBeFalse)
}

func TestVacancySaturates(t *testing.T) {
	tr := New()
	tr.SetHolidayMode()
	test.That(t, tr.VacancyH(), test.ShouldEqual, uint8(255))
	ticks(tr, 120)
	test.That(t, tr.VacancyH(), test.ShouldEqual, uint8(255))
	test.That(t, tr.LongLongVacant(), test.ShouldBeTrue)
}

func TestConcurrentMarks(t *testing.T) {
	tr := New()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Go(func() {
			for j := 0; j < 100; j++ {
				tr.MarkPossiblyOccupied()
				tr.Tick()
			}
		})
	}
	wg.Wait()
	test.That(t, tr.IsLikelyOccupied(), test.ShouldBeTrue)
	test.That(t, tr.VacancyH(), test.ShouldEqual, uint8(0))
}
