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
	"path/filepath"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"go.viam.com/test"

	"radvalve/v2/pkg/c16"
)

func newStats(hour int) (*ByHour, *clock.Mock) {
	clk := clock.NewMock()
	clk.Set(time.Date(2026, 1, 5, hour, 10, 0, 0, time.Local))
	return New(clk), clk
}

func TestEmptyStats(t *testing.T) {
	s, _ := newStats(9)
	test.That(t, s.ByHourStat(OccPCByHourSmoothed, 3), test.ShouldEqual, Unset)
	test.That(t, s.ByHourStat(OccPCByHourSmoothed, CurrentHour), test.ShouldEqual, Unset)
	test.That(t, s.CountStatSamplesBelow(OccPCByHourSmoothed, 50), test.ShouldEqual, 0)
	test.That(t, s.InOutlierQuartile(true, OccPCByHourSmoothed, 3), test.ShouldBeFalse)
	test.That(t, s.ByHourStat(SetCount, 3), test.ShouldEqual, Unset)
	test.That(t, s.ByHourStat(TempByHour, 24), test.ShouldEqual, Unset)
	test.That(t, s.SetByHourStat(TempByHour, 24, 1), test.ShouldBeFalse)
}

func TestSpecialHours(t *testing.T) {
	s, clk := newStats(23)
	s.SetByHourStat(OccPCByHour, 23, 10)
	s.SetByHourStat(OccPCByHour, 0, 20)
	test.That(t, s.ByHourStat(OccPCByHour, CurrentHour), test.ShouldEqual, uint8(10))
	test.That(t, s.ByHourStat(OccPCByHour, NextHour), test.ShouldEqual, uint8(20))

	clk.Add(time.Hour)
	test.That(t, s.ByHourStat(OccPCByHour, CurrentHour), test.ShouldEqual, uint8(20))
}

func TestCountBelowSkipsUnset(t *testing.T) {
	s, _ := newStats(0)
	for h := 0; h < 12; h++ {
		s.SetByHourStat(OccPCByHourSmoothed, h, uint8(h*5))
	}
	test.That(t, s.CountStatSamplesBelow(OccPCByHourSmoothed, 0), test.ShouldEqual, 0)
	test.That(t, s.CountStatSamplesBelow(OccPCByHourSmoothed, 11), test.ShouldEqual, 3)
	test.That(t, s.CountStatSamplesBelow(OccPCByHourSmoothed, 254), test.ShouldEqual, 12)
	test.That(t, s.CountStatSamplesBelow(OccPCByHourSmoothed, Unset), test.ShouldEqual, 0)
}

func TestOutlierQuartile(t *testing.T) {
	s, _ := newStats(0)
	for h := 0; h < HoursPerDay-1; h++ {
		s.SetByHourStat(AmbLightByHour, h, uint8(h))
	}
	// 23 samples is not enough
	test.That(t, s.InOutlierQuartile(true, AmbLightByHour, 22), test.ShouldBeFalse)

	s.SetByHourStat(AmbLightByHour, 23, 23)
	test.That(t, s.InOutlierQuartile(true, AmbLightByHour, 23), test.ShouldBeTrue)
	test.That(t, s.InOutlierQuartile(true, AmbLightByHour, 18), test.ShouldBeTrue)
	test.That(t, s.InOutlierQuartile(true, AmbLightByHour, 17), test.ShouldBeFalse)
	test.That(t, s.InOutlierQuartile(false, AmbLightByHour, 0), test.ShouldBeTrue)
	test.That(t, s.InOutlierQuartile(false, AmbLightByHour, 5), test.ShouldBeTrue)
	test.That(t, s.InOutlierQuartile(false, AmbLightByHour, 6), test.ShouldBeFalse)
}

func TestSmooth(t *testing.T) {
	test.That(t, Smooth(Unset, 40), test.ShouldEqual, uint8(40))
	test.That(t, Smooth(80, 80), test.ShouldEqual, uint8(80))
	test.That(t, Smooth(80, 0), test.ShouldEqual, uint8(70))
	test.That(t, Smooth(0, 100), test.ShouldEqual, uint8(13))
}

func TestUpdaterCommit(t *testing.T) {
	s, _ := newStats(7)
	u := NewUpdater(s)
	test.That(t, u.Commit(7), test.ShouldBeFalse)

	for i := 0; i < 60; i++ {
		u.Add(Sample{TempC16: c16.FromWholeC(20), AmbLight: 100, OccPC: uint8(i % 2 * 100)})
	}
	test.That(t, u.Samples(), test.ShouldEqual, 60)
	test.That(t, u.Commit(7), test.ShouldBeTrue)
	test.That(t, u.Samples(), test.ShouldEqual, 0)

	temp, ok := c16.Expand(s.ByHourStat(TempByHour, 7))
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, temp, test.ShouldEqual, c16.FromWholeC(20))
	test.That(t, s.ByHourStat(AmbLightByHourSmoothed, 7), test.ShouldEqual, uint8(100))
	test.That(t, s.ByHourStat(OccPCByHour, 7), test.ShouldEqual, uint8(50))
	test.That(t, s.ByHourStat(RHPCByHour, 7), test.ShouldEqual, Unset)

	u.Add(Sample{TempC16: c16.FromWholeC(20), AmbLight: 255, OccPC: 0, RHPC: 60, HasRH: true})
	u.Commit(7)
	test.That(t, s.ByHourStat(AmbLightByHour, 7), test.ShouldEqual, uint8(254))
	test.That(t, s.ByHourStat(OccPCByHourSmoothed, 7), test.ShouldEqual, uint8(44))
	test.That(t, s.ByHourStat(RHPCByHourSmoothed, 7), test.ShouldEqual, uint8(60))
}

func TestSnapshotRoundTrip(t *testing.T) {
	s, _ := newStats(0)
	s.SetByHourStat(TempByHour, 5, 99)
	s.SetByHourStat(OccPCByHourSmoothed, 23, 7)
	path := filepath.Join(t.TempDir(), "cache", SnapshotFilename)
	test.That(t, s.Save(path), test.ShouldBeNil)

	r, _ := newStats(0)
	n, err := r.Load(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, n, test.ShouldEqual, int(SetCount))
	test.That(t, r.Dump(), test.ShouldResemble, s.Dump())

	n, err = r.Load(filepath.Join(t.TempDir(), "missing.gz"))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, n, test.ShouldEqual, 0)
}
