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

// Package pir reads a passive infrared motion sensor on a GPIO line.
package pir

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"

	"radvalve/v2/internal/events"
	"radvalve/v2/pkg/eventbus"
	"radvalve/v2/pkg/logger"
)

// PollPeriod is how often the line is sampled.
const PollPeriod = 250 * time.Millisecond

// Reader reads the sensor output, true while motion is detected.
type Reader interface {
	Read() (bool, error)
	Close() error
}

// Service publishes a strong motion event on each rising edge.
type Service struct {
	reader Reader
	bus    *eventbus.Bus
	clock  clock.Clock
	log    *logger.Logger

	prev    bool
	errored bool
}

func New(reader Reader, bus *eventbus.Bus, clk clock.Clock) *Service {
	if clk == nil {
		clk = clock.New()
	}
	return &Service{
		reader: reader,
		bus:    bus,
		clock:  clk,
		log:    logger.New("PIR"),
	}
}

func (s *Service) Run(ctx context.Context) {
	s.log.Info("Running...")
	defer s.log.Info("Stopped")
	defer func() {
		if err := s.reader.Close(); err != nil {
			s.log.Error("close: %v", err)
		}
	}()

	ticker := s.clock.Ticker(PollPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.poll()
		}
	}
}

func (s *Service) poll() {
	on, err := s.reader.Read()
	if err != nil {
		// log once per outage
		if !s.errored {
			s.log.Error("read: %v", err)
		}
		s.errored = true
		return
	}
	if s.errored {
		s.log.Info("read recovered")
		s.errored = false
	}
	if on && !s.prev {
		s.bus.Publish(events.TopicMotion, events.MotionEvent{Source: "pir", Strong: true, Time: s.clock.Now()})
	}
	s.prev = on
}
