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

package sensors

import (
	"fmt"
	"math"
	"time"
)

// Limits for room readings; anything outside is a sensor fault.
const (
	minRoomTempC = -20.0
	maxRoomTempC = 60.0
	// a room cannot move this far within maxJumpInterval
	maxTempJumpC    = 5.0
	maxJumpInterval = 8 * time.Minute
)

type lastValue struct {
	v  float64
	at time.Time
}

// checker rejects implausible readings, remembering the last accepted
// value per kind for jump detection.
type checker struct {
	last map[string]lastValue
}

func newChecker() *checker {
	return &checker{last: map[string]lastValue{}}
}

func (c *checker) temperature(tempC float64, now time.Time) error {
	if math.IsNaN(tempC) {
		return fmt.Errorf("temperature is NaN")
	}
	if tempC < minRoomTempC {
		return fmt.Errorf("room temp too low: %.1f°C", tempC)
	}
	if tempC > maxRoomTempC {
		return fmt.Errorf("room temp too high: %.1f°C", tempC)
	}
	if prev, ok := c.last["temperature"]; ok {
		delta := math.Abs(tempC - prev.v)
		dt := now.Sub(prev.at)
		if dt < maxJumpInterval && delta > maxTempJumpC {
			return fmt.Errorf("room temp changed too fast: Δ%.1f°C in %v", delta, dt.Truncate(time.Second))
		}
	}
	c.last["temperature"] = lastValue{tempC, now}
	return nil
}

func (c *checker) humidity(rh float64) error {
	if math.IsNaN(rh) || rh < 0 || rh > 100 {
		return fmt.Errorf("humidity out of range: %v", rh)
	}
	return nil
}

func (c *checker) illuminance(lux float64) error {
	if math.IsNaN(lux) || lux < 0 || lux > 200000 {
		return fmt.Errorf("illuminance out of range: %v", lux)
	}
	return nil
}

// LuxToLevel maps lux onto the 0..254 ambient light scale, saturating at
// full daylight indoors.
func LuxToLevel(lux float64) uint8 {
	if lux <= 0 {
		return 0
	}
	// square-root curve keeps resolution in the dim range
	level := math.Round(math.Sqrt(lux) * 254 / math.Sqrt(maxLevelLux))
	return uint8(min(level, 254))
}

const maxLevelLux = 1000.0
