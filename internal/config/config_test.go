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

package config

import (
	"strings"
	"testing"

	"go.viam.com/test"

	"radvalve/v2/internal/params"
)

func TestParseAppliesDefaults(t *testing.T) {
	c, err := Parse(strings.NewReader(`{"schedule":{"on":["06:30"]}}`))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, c.Valve.MaxPCOpen, test.ShouldEqual, uint8(100))
	test.That(t, c.TempControl.Kind, test.ShouldEqual, "fixed")
	test.That(t, c.Controller.TickSeconds, test.ShouldEqual, 60)
	test.That(t, c.Driver.Kind, test.ShouldEqual, "sim")
	test.That(t, c.Web.Addr, test.ShouldEqual, ":80")
	test.That(t, c.ValveParams(), test.ShouldResemble, params.Default)
}

func TestParseRejectsBadInput(t *testing.T) {
	for _, in := range []string{
		`{`,
		`{"tempcontrol":{"kind":"knob"}}`,
		`{"driver":{"kind":"can"}}`,
		`{"schedule":{"on":["07:00","08:00","09:00"]}}`,
		`{"schedule":{"on":["7am"]}}`,
		`{"valve":{"params":{"frost_eco":6,"frost_com":12,"warm_eco":10,"warm_com":21,"bake_uplift":10,"setback_default":1,"setback_eco":3,"setback_full":6}}}`,
	} {
		_, err := Parse(strings.NewReader(in))
		test.That(t, err, test.ShouldNotBeNil)
	}
}

func TestParseClock(t *testing.T) {
	m, err := ParseClock("06:30")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, m, test.ShouldEqual, 390)

	m, err = ParseClock(" 23:59 ")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, m, test.ShouldEqual, 1439)

	for _, bad := range []string{"24:00", "12:60", "12", "aa:bb"} {
		_, err := ParseClock(bad)
		test.That(t, err, test.ShouldNotBeNil)
	}
}
