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

package c16

import (
	"testing"

	"go.viam.com/test"
)

func TestCompressExpandRoundTrip(t *testing.T) {
	for c := 0; c <= CompressedCeil; c++ {
		e, ok := Expand(uint8(c))
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, Compress(e), test.ShouldEqual, uint8(c))
	}
}

func TestWholeDegreesSurviveCompression(t *testing.T) {
	for c := 0; c <= 100; c++ {
		e, ok := Expand(Compress(FromWholeC(c)))
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, e, test.ShouldEqual, FromWholeC(c))
	}
}

func TestCompressClamps(t *testing.T) {
	test.That(t, Compress(-100), test.ShouldEqual, uint8(0))
	test.That(t, Compress(FromWholeC(120)), test.ShouldEqual, uint8(CompressedCeil))
	test.That(t, CompressedCeil, test.ShouldEqual, 248)

	_, ok := Expand(Unset)
	test.That(t, ok, test.ShouldBeFalse)
	_, ok = Expand(CompressedCeil + 1)
	test.That(t, ok, test.ShouldBeFalse)
}

func TestWholeCFloorsNegatives(t *testing.T) {
	test.That(t, WholeC(FromWholeC(19)+4), test.ShouldEqual, 19)
	test.That(t, WholeC(-1), test.ShouldEqual, -1)
	test.That(t, WholeC(-16), test.ShouldEqual, -1)
	test.That(t, WholeC(-17), test.ShouldEqual, -2)
}

func TestFromFloat(t *testing.T) {
	test.That(t, FromFloat(20.5), test.ShouldEqual, Temp(328))
	test.That(t, FromFloat(-2.5), test.ShouldEqual, Temp(-40))
	test.That(t, FromFloat(1e9), test.ShouldEqual, Temp(32767))
	test.That(t, ToFloat(328), test.ShouldEqual, 20.5)
}
