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

package events

import (
	"radvalve/v2/internal/radvalve"
	"radvalve/v2/pkg/eventbus"
	"time"
)

var (
	TopicTemperature eventbus.Topic = "temperature"
	TopicHumidity    eventbus.Topic = "humidity"
	TopicLight       eventbus.Topic = "light"
	TopicMotion      eventbus.Topic = "motion"
	TopicValve       eventbus.Topic = "valve"
)

// TemperatureReading is a plausibility-checked room temperature.
type TemperatureReading struct {
	TemperatureC float64
	Time         time.Time
}

type HumidityReading struct {
	RHPercent float64
	Time      time.Time
}

// LightReading carries ambient light already scaled to 0..254.
type LightReading struct {
	Level uint8
	Lux   float64
	Time  time.Time
}

// MotionEvent is occupancy evidence; Strong marks definite presence (PIR,
// occupancy sensor) while weak evidence only suggests it.
type MotionEvent struct {
	Source string
	Strong bool
	Time   time.Time
}

// ValveUpdate is published after every control tick.
type ValveUpdate struct {
	radvalve.Status
	WarmTargetC  uint8     `json:"warm_target_c"`
	FrostTargetC uint8     `json:"frost_target_c"`
	Occupancy    uint8     `json:"occupancy_pc"`
	VacancyH     uint8     `json:"vacancy_h"`
	Dark         bool      `json:"dark"`
	RHPercent    uint8     `json:"rh_pc"`
	Schedule     string    `json:"schedule"`
	BakeRemainM  uint8     `json:"bake_remaining_m"`
	Time         time.Time `json:"time"`
}
