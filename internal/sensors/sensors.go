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
	"encoding/json"
	"time"

	"github.com/benbjohnson/clock"

	"radvalve/v2/internal/config"
	"radvalve/v2/internal/events"
	"radvalve/v2/internal/mqttlink"
	"radvalve/v2/pkg/eventbus"
	"radvalve/v2/pkg/logger"
)

// Report is a room sensor message. Field names follow zigbee2mqtt; every
// field is optional.
type Report struct {
	Temperature    *float64 `json:"temperature"`
	Humidity       *float64 `json:"humidity"`
	IlluminanceLux *float64 `json:"illuminance_lux"`
	Illuminance    *float64 `json:"illuminance"`
	Occupancy      *bool    `json:"occupancy"`
	Contact        *bool    `json:"contact"`
	Action         string   `json:"action"`
}

// publisher checks readings and puts the plausible ones on the bus.
type publisher struct {
	bus   *eventbus.Bus
	check *checker
	log   *logger.Logger
}

func newPublisher(bus *eventbus.Bus, log *logger.Logger) *publisher {
	return &publisher{bus: bus, check: newChecker(), log: log}
}

// Service turns room sensor messages into bus events.
type Service struct {
	conf   *config.Config
	client mqttlink.Client
	clock  clock.Clock
	pub    *publisher
	log    *logger.Logger
}

func New(conf *config.Config, client mqttlink.Client, clk clock.Clock) *Service {
	if clk == nil {
		clk = clock.New()
	}
	log := logger.New("Sensors")
	return &Service{
		conf:   conf,
		client: client,
		clock:  clk,
		pub:    newPublisher(conf.EventBus, log),
		log:    log,
	}
}

func (s *Service) Run(ctx context.Context) {
	s.log.Info("Running...")
	defer s.log.Info("Stopped")

	msgs := make(chan []byte, 8)
	err := s.client.Subscribe(s.conf.MQTT.SensorTopic, func(_ string, payload []byte) {
		select {
		case msgs <- payload:
		default:
			s.log.Error("sensor backlog full, dropping message")
		}
	})
	if err != nil {
		s.log.Error("subscribe: %v", err)
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case p := <-msgs:
			s.handle(p)
		}
	}
}

// handle decodes one message and publishes each plausible reading.
func (s *Service) handle(payload []byte) {
	var r Report
	if err := json.Unmarshal(payload, &r); err != nil {
		s.log.Error("bad sensor payload: %v", err)
		return
	}
	s.pub.publish(r, s.clock.Now())
}

func (p *publisher) publish(r Report, now time.Time) {
	if r.Temperature != nil {
		if err := p.check.temperature(*r.Temperature, now); err != nil {
			p.log.Warn("dropped: %v", err)
		} else {
			p.bus.Publish(events.TopicTemperature, events.TemperatureReading{TemperatureC: *r.Temperature, Time: now})
		}
	}
	if r.Humidity != nil {
		if err := p.check.humidity(*r.Humidity); err != nil {
			p.log.Warn("dropped: %v", err)
		} else {
			p.bus.Publish(events.TopicHumidity, events.HumidityReading{RHPercent: *r.Humidity, Time: now})
		}
	}

	lux := r.IlluminanceLux
	if lux == nil {
		lux = r.Illuminance
	}
	if lux != nil {
		if err := p.check.illuminance(*lux); err != nil {
			p.log.Warn("dropped: %v", err)
		} else {
			p.bus.Publish(events.TopicLight, events.LightReading{Level: LuxToLevel(*lux), Lux: *lux, Time: now})
		}
	}

	// presence sensors are strong evidence; door contacts and button
	// presses only suggest someone is about
	switch {
	case r.Occupancy != nil && *r.Occupancy:
		p.bus.Publish(events.TopicMotion, events.MotionEvent{Source: "occupancy", Strong: true, Time: now})
	case r.Action != "":
		p.bus.Publish(events.TopicMotion, events.MotionEvent{Source: "action:" + r.Action, Strong: false, Time: now})
	case r.Contact != nil:
		p.bus.Publish(events.TopicMotion, events.MotionEvent{Source: "contact", Strong: false, Time: now})
	}
}
