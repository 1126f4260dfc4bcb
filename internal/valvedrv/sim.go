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

package valvedrv

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"radvalve/v2/internal/radvalve"
	"radvalve/v2/pkg/logger"
)

var _ radvalve.PhysicalValve = (*Sim)(nil)

// Sim is a motorised valve that travels at a fixed speed towards the
// requested opening. A fault stops the motor where it is.
type Sim struct {
	mu      sync.Mutex
	clock   clock.Clock
	speed   int
	target  uint8
	pos     uint8
	fault   bool
	wiggles int
	log     *logger.Logger
}

// NewSim returns a closed valve moving pcPerSecond while Run is active.
func NewSim(clk clock.Clock, pcPerSecond int) *Sim {
	if clk == nil {
		clk = clock.New()
	}
	return &Sim{
		clock: clk,
		speed: max(pcPerSecond, 1),
		log:   logger.New("SimValve"),
	}
}

func (s *Sim) Set(pc uint8) bool {
	if pc > 100 {
		return false
	}
	s.mu.Lock()
	s.target = pc
	s.mu.Unlock()
	return true
}

func (s *Sim) Get() uint8 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pos
}

func (s *Sim) IsControlledValveReallyOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.fault && s.pos >= radvalve.ValvePCMinReallyOpen
}

func (s *Sim) IsInNormalRunState() bool { return !s.IsInErrorState() }

func (s *Sim) IsInErrorState() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fault
}

// Wiggle exercises the valve; the sim only counts it.
func (s *Sim) Wiggle() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.fault {
		s.wiggles++
	}
}

// Wiggles is how many wiggles were accepted.
func (s *Sim) Wiggles() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.wiggles
}

// SetFault injects or clears an actuator fault.
func (s *Sim) SetFault(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if on != s.fault {
		s.log.Info("fault=%v at %d%%", on, s.pos)
	}
	s.fault = on
}

func (s *Sim) Run(ctx context.Context) {
	s.log.Info("Running...")
	defer s.log.Info("Stopped")

	ticker := s.clock.Ticker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.step()
		}
	}
}

// step moves the motor for one second.
func (s *Sim) step() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fault || s.pos == s.target {
		return
	}
	if s.pos < s.target {
		s.pos = uint8(min(int(s.pos)+s.speed, int(s.target)))
	} else {
		s.pos = uint8(max(int(s.pos)-s.speed, int(s.target)))
	}
}
