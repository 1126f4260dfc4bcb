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
	"testing"

	"go.viam.com/test"
)

func TestStartsInFrost(t *testing.T) {
	m := New()
	test.That(t, m.InWarmMode(), test.ShouldBeFalse)
	test.That(t, m.InBakeMode(), test.ShouldBeFalse)
	test.That(t, m.Current(), test.ShouldEqual, Frost)
}

func TestBakeImpliesWarm(t *testing.T) {
	m := New()
	m.StartBake()
	test.That(t, m.InBakeMode(), test.ShouldBeTrue)
	test.That(t, m.InWarmMode(), test.ShouldBeTrue)
	test.That(t, m.Current(), test.ShouldEqual, Bake)

	m.SetWarmMode(false)
	test.That(t, m.InBakeMode(), test.ShouldBeFalse)
	test.That(t, m.InWarmMode(), test.ShouldBeFalse)

	// going back to WARM must not resurrect the old bake
	m.SetWarmMode(true)
	test.That(t, m.InBakeMode(), test.ShouldBeFalse)
}

func TestBakeTimesOut(t *testing.T) {
	m := New()
	m.SetWarmMode(true)
	m.StartBake()
	for i := 0; i < DefaultBakeMaxM-1; i++ {
		m.Tick()
		test.That(t, m.InBakeMode(), test.ShouldBeTrue)
	}
	test.That(t, m.BakeRemainingM(), test.ShouldEqual, uint8(1))
	m.Tick()
	test.That(t, m.InBakeMode(), test.ShouldBeFalse)
	test.That(t, m.Current(), test.ShouldEqual, Warm)

	// further ticks are harmless
	m.Tick()
	test.That(t, m.BakeRemainingM(), test.ShouldEqual, uint8(0))
}

func TestCancelBakeKeepsWarm(t *testing.T) {
	m := New()
	m.StartBake()
	m.CancelBake()
	test.That(t, m.InBakeMode(), test.ShouldBeFalse)
	test.That(t, m.InWarmMode(), test.ShouldBeTrue)
}

func TestDebouncedFirstRequestAppliesAtOnce(t *testing.T) {
	m := New()
	test.That(t, m.SetWarmModeDebounced(true), test.ShouldBeTrue)
	test.That(t, m.InWarmMode(), test.ShouldBeTrue)

	// repeating the current mode is always accepted
	test.That(t, m.SetWarmModeDebounced(true), test.ShouldBeTrue)
}

func TestDebouncedBounceIsHeldThenApplied(t *testing.T) {
	m := New()
	m.SetWarmModeDebounced(true)

	// a quick flip back is held
	test.That(t, m.SetWarmModeDebounced(false), test.ShouldBeFalse)
	test.That(t, m.InWarmMode(), test.ShouldBeTrue)

	for i := 0; i < DebounceM-1; i++ {
		m.Tick()
		test.That(t, m.InWarmMode(), test.ShouldBeTrue)
	}
	m.Tick()
	test.That(t, m.InWarmMode(), test.ShouldBeFalse)
	test.That(t, m.Current(), test.ShouldEqual, Frost)
}

func TestDebouncedBounceBackCancelsHeldRequest(t *testing.T) {
	m := New()
	m.SetWarmModeDebounced(true)
	m.SetWarmModeDebounced(false)
	test.That(t, m.SetWarmModeDebounced(true), test.ShouldBeTrue)
	for i := 0; i < 2*DebounceM; i++ {
		m.Tick()
	}
	test.That(t, m.InWarmMode(), test.ShouldBeTrue)
}

func TestDebouncedChangeAcceptedAfterQuietPeriod(t *testing.T) {
	m := New()
	m.SetWarmModeDebounced(true)
	for i := 0; i < DebounceM; i++ {
		m.Tick()
	}
	test.That(t, m.SetWarmModeDebounced(false), test.ShouldBeTrue)
	test.That(t, m.InWarmMode(), test.ShouldBeFalse)
}
