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
	"context"
	"fmt"

	"github.com/benbjohnson/clock"

	"radvalve/v2/internal/config"
	"radvalve/v2/pkg/logger"
	"radvalve/v2/pkg/zwavejsws"
)

// notification values for the Home Security and Access Control types
const (
	zwMotionDetected = 8
	zwDoorOpen       = 22
	zwDoorClosed     = 23
)

// ZWave reads room sensors from a zwave-js server and publishes them the
// same way as MQTT reports.
type ZWave struct {
	client *zwavejsws.Client
	clock  clock.Clock
	pub    *publisher
	log    *logger.Logger

	only  map[int]bool
	nodes map[int]bool
	units map[string]string // node/property -> unit
}

func NewZWave(conf *config.Config, clk clock.Clock) *ZWave {
	if clk == nil {
		clk = clock.New()
	}
	log := logger.New("ZWaveSensors")
	z := &ZWave{
		client: zwavejsws.NewClient(conf.ZWave.Addr),
		clock:  clk,
		pub:    newPublisher(conf.EventBus, log),
		log:    log,
		only:   map[int]bool{},
		nodes:  map[int]bool{},
		units:  map[string]string{},
	}
	for _, id := range conf.ZWave.Nodes {
		z.only[id] = true
	}
	z.client.OnState(z.handleState)
	z.client.OnEvent(z.handleEvent)
	return z
}

func (z *ZWave) Run(ctx context.Context) {
	z.log.Info("Running...")
	defer z.log.Info("Stopped")
	z.client.Run(ctx)
}

func unitKey(node int, property any) string {
	return fmt.Sprintf("%d/%v", node, property)
}

// handleState picks the sensor nodes and publishes their current values.
func (z *ZWave) handleState(state zwavejsws.State) {
	nodes, err := state.ParseNodes()
	if err != nil {
		z.log.Error("%v", err)
		return
	}
	clear(z.nodes)
	for _, n := range nodes {
		if len(z.only) > 0 && !z.only[n.NodeID] {
			continue
		}
		if !n.HasCommandClass(zwavejsws.CCMultilevelSensor) &&
			!n.HasCommandClass(zwavejsws.CCBinarySensor) &&
			!n.HasCommandClass(zwavejsws.CCNotification) {
			continue
		}
		z.nodes[n.NodeID] = true
		z.log.Info("using node %d [name=%s, location=%s]", n.NodeID, n.Name, n.Location)

		values, err := n.ParseValues()
		if err != nil {
			z.log.Error("%v", err)
			continue
		}
		for _, v := range values {
			if v.Metadata.Unit != "" {
				z.units[unitKey(n.NodeID, v.Property)] = v.Metadata.Unit
			}
			// only levels are meaningful at start up; motion and doors
			// are events
			if v.CommandClass == zwavejsws.CCMultilevelSensor {
				z.report(n.NodeID, v.CommandClass, v.Property, v.PropertyKey, v.Value)
			}
		}
	}
	if len(z.nodes) == 0 {
		z.log.Error("no zwave sensor nodes found")
	}
}

func (z *ZWave) handleEvent(ev zwavejsws.Event) {
	if !z.nodes[ev.NodeID] {
		return
	}
	switch {
	case ev.IsValueUpdate():
		v, err := ev.ParseValueUpdated()
		if err != nil {
			z.log.Error("%v", err)
			return
		}
		z.report(ev.NodeID, v.CommandClass, v.Property, v.PropertyKey, v.NewValue)
	case ev.IsMetadataUpdate():
		m, err := ev.ParseMetadataUpdated()
		if err != nil {
			z.log.Error("%v", err)
			return
		}
		if m.Metadata.Unit != "" {
			z.units[unitKey(ev.NodeID, m.Property)] = m.Metadata.Unit
		}
	}
}

// report maps one zwave value onto a sensor report.
func (z *ZWave) report(node, cc int, property, key, value any) {
	var r Report
	switch cc {
	case zwavejsws.CCMultilevelSensor:
		f, ok := zwavejsws.Number(value)
		if !ok {
			return
		}
		unit := z.units[unitKey(node, property)]
		switch property {
		case "Air temperature":
			c := zwavejsws.Celsius(f, unit)
			r.Temperature = &c
		case "Humidity":
			r.Humidity = &f
		case "Illuminance":
			if unit == "%" {
				z.log.Debug("node %d reports illuminance in %%, ignored", node)
				return
			}
			r.IlluminanceLux = &f
		default:
			return
		}
	case zwavejsws.CCBinarySensor:
		on, ok := value.(bool)
		if !ok || (property != "Any" && property != "Motion") {
			return
		}
		r.Occupancy = &on
	case zwavejsws.CCNotification:
		n, ok := zwavejsws.Number(value)
		if !ok {
			return
		}
		switch key {
		case "Motion sensor status":
			occupied := n == zwMotionDetected
			r.Occupancy = &occupied
		case "Door state", "Door state (simple)":
			if n != zwDoorOpen && n != zwDoorClosed {
				return
			}
			open := n == zwDoorOpen
			r.Contact = &open
		default:
			return
		}
	default:
		return
	}
	z.log.Debug("node %d %v = %v", node, property, value)
	z.pub.publish(r, z.clock.Now())
}
