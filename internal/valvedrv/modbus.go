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
	"radvalve/v2/pkg/modbus"
)

var _ radvalve.PhysicalValve = (*Modbus)(nil)

// Register names expected in the valve's modbus map. Fault and wiggle
// are optional.
const (
	RegTarget   = "valve_target_pc"
	RegPosition = "valve_position_pc"
	RegFault    = "valve_fault"
	RegWiggle   = "valve_wiggle"
)

const (
	// PollPeriod is how often the actuator is read back.
	PollPeriod = 10 * time.Second
	// maxFailures consecutive failed syncs put the valve in error.
	maxFailures = 3
)

// RegisterIO reads and writes named registers.
type RegisterIO interface {
	ReadValue(ctx context.Context, name string) (float64, error)
	WriteValue(ctx context.Context, name string, v float64) error
}

// Modbus drives a valve actuator over modbus. Set only records the
// request; Run writes it and reads back the actuator state.
type Modbus struct {
	io        RegisterIO
	clock     clock.Clock
	retry     *retrier
	hasFault  bool
	hasWiggle bool
	kick      chan struct{}
	log       *logger.Logger

	mu        sync.Mutex
	requested uint8
	written   int
	position  uint8
	havePos   bool
	fault     bool
	failures  int
	wiggle    bool
}

func NewModbus(io RegisterIO, cfg *modbus.Config, clk clock.Clock) (*Modbus, error) {
	if err := cfg.Require([]string{RegPosition}, []string{RegTarget}); err != nil {
		return nil, err
	}
	if clk == nil {
		clk = clock.New()
	}
	_, hasFault := cfg.Registers[RegFault]
	_, hasWiggle := cfg.Registers[RegWiggle]
	m := &Modbus{
		io:        io,
		clock:     clk,
		hasFault:  hasFault,
		hasWiggle: hasWiggle,
		kick:      make(chan struct{}, 1),
		written:   -1,
		log:       logger.New("ModbusValve"),
	}
	m.retry = newRetrier(func(ctx context.Context, pc uint8) error {
		return m.io.WriteValue(ctx, RegTarget, float64(pc))
	}, m.log)
	return m, nil
}

func (m *Modbus) Set(pc uint8) bool {
	if pc > 100 {
		return false
	}
	m.mu.Lock()
	changed := m.requested != pc
	m.requested = pc
	m.mu.Unlock()
	if changed {
		m.poke()
	}
	return true
}

func (m *Modbus) poke() {
	select {
	case m.kick <- struct{}{}:
	default:
	}
}

// Get is the read-back position, or the request until one is read.
func (m *Modbus) Get() uint8 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.havePos {
		return m.position
	}
	return m.requested
}

// IsControlledValveReallyOpen needs a read-back position; a request alone
// is never taken as open.
func (m *Modbus) IsControlledValveReallyOpen() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.havePos && !m.inError() && m.position >= radvalve.ValvePCMinReallyOpen
}

func (m *Modbus) IsInNormalRunState() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.havePos && !m.inError()
}

func (m *Modbus) IsInErrorState() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inError()
}

func (m *Modbus) inError() bool {
	return m.fault || m.failures >= maxFailures
}

func (m *Modbus) Wiggle() {
	if !m.hasWiggle {
		return
	}
	m.mu.Lock()
	m.wiggle = true
	m.mu.Unlock()
	m.poke()
}

func (m *Modbus) Run(ctx context.Context) {
	m.log.Info("Running...")
	defer m.log.Info("Stopped")

	ticker := m.clock.Ticker(PollPeriod)
	defer ticker.Stop()

	m.sync(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-m.kick:
			m.sync(ctx)
		case <-ticker.C:
			m.sync(ctx)
		}
	}
}

// sync writes any pending request and reads back the actuator.
func (m *Modbus) sync(ctx context.Context) {
	m.mu.Lock()
	want := m.requested
	pending := m.written != int(want)
	wiggle := m.wiggle
	m.wiggle = false
	m.mu.Unlock()

	ok := true
	if pending {
		if err := m.retry.set(ctx, want); err != nil {
			m.log.Error("set %d%%: %v", want, err)
			ok = false
		} else {
			m.mu.Lock()
			m.written = int(want)
			m.mu.Unlock()
		}
	}
	if wiggle {
		if err := m.io.WriteValue(ctx, RegWiggle, 1); err != nil {
			m.log.Error("wiggle: %v", err)
		}
	}

	pos, err := m.io.ReadValue(ctx, RegPosition)
	if err != nil {
		m.log.Error("read position: %v", err)
		ok = false
	}
	fault := false
	if m.hasFault {
		v, ferr := m.io.ReadValue(ctx, RegFault)
		if ferr != nil {
			m.log.Error("read fault: %v", ferr)
			ok = false
		}
		fault = v != 0
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		m.position = uint8(min(max(pos, 0), 100))
		m.havePos = true
	}
	if fault != m.fault {
		m.log.Info("actuator fault=%v", fault)
	}
	m.fault = fault
	if ok {
		m.failures = 0
	} else {
		m.failures++
	}
}
