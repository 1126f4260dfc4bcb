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

package boiler

import (
	"context"
	"encoding/json"
	"time"

	"github.com/benbjohnson/clock"

	"radvalve/v2/internal/config"
	"radvalve/v2/internal/events"
	"radvalve/v2/internal/mqttlink"
	"radvalve/v2/pkg/c16"
	"radvalve/v2/pkg/logger"
)

// Minimum times between call-for-heat changes, so the boiler does not
// short cycle while the valve settles.
const (
	MinOnTime  = 5 * time.Minute
	MinOffTime = 2 * time.Minute
)

// Payload is published retained on the boiler topic.
type Payload struct {
	CallForHeat bool    `json:"call_for_heat"`
	ValvePC     uint8   `json:"valve_pc"`
	TargetC     uint8   `json:"target_c"`
	RefC        float64 `json:"ref_c"`
	Fault       bool    `json:"fault,omitempty"`
	Timestamp   string  `json:"timestamp"`
}

// Link forwards the valve's call for heat to the boiler controller.
type Link struct {
	conf   *config.Config
	client mqttlink.Client
	clock  clock.Clock
	log    *logger.Logger

	currentOn  bool
	requested  bool
	lastChange time.Time
	lastSent   time.Time
	sentOnce   bool
	latest     events.ValveUpdate
}

func New(conf *config.Config, client mqttlink.Client, clk clock.Clock) *Link {
	if clk == nil {
		clk = clock.New()
	}
	return &Link{
		conf:   conf,
		client: client,
		clock:  clk,
		log:    logger.New("Boiler"),
	}
}

func (l *Link) Run(ctx context.Context) {
	l.log.Info("Running...")
	defer l.log.Info("Stopped")

	updates, _ := l.conf.EventBus.Subscribe(ctx, events.TopicValve, true)
	ticker := l.clock.Ticker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// drop the call rather than leave a retained "on" behind
			l.requested = false
			l.force(false)
			return
		case ev, ok := <-updates:
			if ok {
				l.update(ev.(events.ValveUpdate))
			}
		case <-ticker.C:
			l.tick()
		}
	}
}

// update records a new valve state and applies it if allowed.
func (l *Link) update(up events.ValveUpdate) {
	l.latest = up
	l.requested = up.CallForHeat
	l.tick()
}

// tick applies the request once minimum times allow, and refreshes the
// retained message every configured interval.
func (l *Link) tick() {
	now := l.clock.Now()
	if l.requested != l.currentOn && l.mayChange(now) {
		l.currentOn = l.requested
		l.lastChange = now
		l.log.Info("call for heat: %v", l.currentOn)
		l.send(now)
		return
	}
	interval := time.Duration(l.conf.MQTT.BoilerIntervalSeconds) * time.Second
	if !l.sentOnce || now.Sub(l.lastSent) >= interval {
		l.send(now)
	}
}

// mayChange enforces the min on/off durations.
func (l *Link) mayChange(now time.Time) bool {
	if l.lastChange.IsZero() {
		return true
	}
	elapsed := now.Sub(l.lastChange)
	if l.currentOn {
		return elapsed >= MinOnTime
	}
	return elapsed >= MinOffTime
}

func (l *Link) force(on bool) {
	l.currentOn = on
	l.lastChange = l.clock.Now()
	l.send(l.lastChange)
}

func (l *Link) send(now time.Time) {
	p := Payload{
		CallForHeat: l.currentOn,
		ValvePC:     l.latest.ValvePC,
		TargetC:     l.latest.TargetTempC,
		RefC:        c16.ToFloat(l.latest.RefTempC16),
		Fault:       l.latest.ValveFault,
		Timestamp:   now.UTC().Format(time.RFC3339),
	}
	raw, err := json.Marshal(p)
	if err != nil {
		l.log.Error("encode: %v", err)
		return
	}
	if err := l.client.Publish(l.conf.MQTT.BoilerTopic, 1, true, raw); err != nil {
		l.log.Error("publish: %v", err)
		return
	}
	l.lastSent = now
	l.sentOnce = true
}

// CallingForHeat is the state last sent to the boiler.
func (l *Link) CallingForHeat() bool {
	return l.currentOn
}
