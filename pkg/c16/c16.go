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

// Package c16 holds the signed fixed-point temperature representation used
// throughout the valve controller: 1/16 °C per unit.
package c16

import "math"

// Temp is a temperature in sixteenths of a degree Celsius.
type Temp = int16

const (
	// One is 1 °C in C16 units.
	One Temp = 16
	// Half is 0.5 °C in C16 units.
	Half Temp = 8
)

// FromWholeC converts whole degrees to C16.
func FromWholeC(c int) Temp {
	return Temp(c << 4)
}

// WholeC returns the whole-°C floor of t. The shift is arithmetic so
// negative values round towards minus infinity.
func WholeC(t Temp) int {
	return int(t) >> 4
}

// FromFloat rounds a floating point Celsius reading to C16, saturating at
// the int16 range. Only sensor adapters at the edge of the system use it.
func FromFloat(c float64) Temp {
	v := math.Round(c * 16)
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	if v < math.MinInt16 {
		return math.MinInt16
	}
	return Temp(v)
}

// ToFloat is the inverse of FromFloat, for display only.
func ToFloat(t Temp) float64 {
	return float64(t) / 16
}

// Unset is the byte value stored for a missing statistic.
const Unset uint8 = 0xff

// Compression of C16 temperatures into one byte: full 1/16 °C resolution
// is not needed for statistics, so the scale is piecewise linear with
// 1/2 °C steps below 16 °C, 1/8 °C steps in the interesting 16..24 °C band
// and 1/2 °C steps again up to 100 °C.
const (
	compressionFloor        = 0
	compressionLowThreshold = 16 << 4
	compressionLowAfter     = compressionLowThreshold >> 3
	compressionHighThresh   = 24 << 4
	compressionHighAfter    = compressionLowAfter + ((compressionHighThresh - compressionLowThreshold) >> 1)
	compressionCeil         = 100 << 4

	// CompressedCeil is the largest valid compressed value (100 °C).
	CompressedCeil = compressionHighAfter + ((compressionCeil - compressionHighThresh) >> 3)
)

// Compress maps a C16 temperature onto [0, CompressedCeil]. Values at or
// below 0 °C map to 0 and values at or above 100 °C map to CompressedCeil.
func Compress(t Temp) uint8 {
	v := int(t)
	switch {
	case v <= compressionFloor:
		return 0
	case v < compressionLowThreshold:
		return uint8(v >> 3)
	case v < compressionHighThresh:
		return uint8(((v - compressionLowThreshold) >> 1) + compressionLowAfter)
	case v < compressionCeil:
		return uint8(((v - compressionHighThresh) >> 3) + compressionHighAfter)
	default:
		return CompressedCeil
	}
}

// Expand reverses Compress. ok is false for bytes above CompressedCeil,
// which includes Unset.
func Expand(b uint8) (t Temp, ok bool) {
	v := int(b)
	switch {
	case v < compressionLowAfter:
		return Temp(v << 3), true
	case v < compressionHighAfter:
		return Temp(((v - compressionLowAfter) << 1) + compressionLowThreshold), true
	case v <= CompressedCeil:
		return Temp(((v - compressionHighAfter) << 3) + compressionHighThresh), true
	default:
		return 0, false
	}
}
