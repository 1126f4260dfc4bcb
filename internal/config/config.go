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

package config

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"radvalve/v2/internal/params"
	"radvalve/v2/pkg/eventbus"
	"strconv"
	"strings"
)

type ValveConfig struct {
	// MaxPCOpen caps the valve opening, 1..100.
	MaxPCOpen uint8 `json:"max_pc_open"`
	Glacial   bool  `json:"glacial"`

	// optional override of the built-in parameter set
	Params *params.ValveControlParameters `json:"params"`

	// SetbackLockoutDays disables setbacks for the first days after install
	SetbackLockoutDays int `json:"setback_lockout_days"`

	// DarkThreshold is the 0..254 light level treated as dark
	DarkThreshold uint8 `json:"dark_threshold"`
}

type TempControlConfig struct {
	// Kind is one of "fixed", "dial", "nv"
	Kind  string `json:"kind"`
	WarmC uint8  `json:"warm_c"`
}

type ScheduleConfig struct {
	// On lists up to two daily WARM start times as "HH:MM"
	On []string `json:"on"`
}

type ControllerConfig struct {
	TickSeconds int `json:"tick_seconds"`
}

type MQTTConfig struct {
	Broker   string `json:"broker"`
	ClientID string `json:"client_id"`

	// SensorTopic carries JSON room sensor reports
	SensorTopic string `json:"sensor_topic"`

	// BoilerTopic receives the call-for-heat state
	BoilerTopic           string `json:"boiler_topic"`
	BoilerIntervalSeconds int    `json:"boiler_interval_seconds"`
}

// ZWaveConfig points at a zwave-js server as an alternative room sensor
// source. Nodes limits which nodes are read; empty means every sensor node.
type ZWaveConfig struct {
	Addr  string `json:"addr"`
	Nodes []int  `json:"nodes"`
}

type PIRConfig struct {
	Enabled bool   `json:"enabled"`
	Chip    string `json:"chip"`
	Line    int    `json:"line"`
}

type DriverConfig struct {
	// Kind is "sim" or "modbus"
	Kind string `json:"kind"`

	// ModbusMap is the register map file, relative to the config dir
	ModbusMap string `json:"modbus_map"`

	// SimPCPerSecond is the simulated motor speed
	SimPCPerSecond int `json:"sim_pc_per_second"`
}

type WebConfig struct {
	Addr string `json:"addr"`
}

type Config struct {
	Valve       ValveConfig       `json:"valve"`
	TempControl TempControlConfig `json:"tempcontrol"`
	Schedule    ScheduleConfig    `json:"schedule"`
	Controller  ControllerConfig  `json:"controller"`
	MQTT        MQTTConfig        `json:"mqtt"`
	ZWave       ZWaveConfig       `json:"zwave"`
	PIR         PIRConfig         `json:"pir"`
	Driver      DriverConfig      `json:"driver"`
	Web         WebConfig         `json:"web"`

	// not loaded from file, but added here to
	// pass to all services alongside config
	EventBus *eventbus.Bus `json:"-"`
	DataDir  string        `json:"-"`
	RootDir  string        `json:"-"`
}

// ValveParams returns the configured parameter set.
func (c *Config) ValveParams() params.ValveControlParameters {
	if c.Valve.Params != nil {
		return *c.Valve.Params
	}
	return params.Default
}

func LoadFile(path string) *Config {
	f, err := os.Open(path)
	if err != nil {
		log.Fatalf("open config: %v", err)
	}
	defer f.Close()
	c, err := Parse(f)
	if err != nil {
		log.Fatalf("config %s: %v", path, err)
	}
	return c
}

// Parse decodes a config and applies defaults.
func Parse(r io.Reader) (*Config, error) {
	var c Config
	if err := json.NewDecoder(r).Decode(&c); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	// apply defaults
	if c.Valve.MaxPCOpen == 0 || c.Valve.MaxPCOpen > 100 {
		c.Valve.MaxPCOpen = 100
	}
	if c.TempControl.Kind == "" {
		c.TempControl.Kind = "fixed"
	}
	if c.Controller.TickSeconds == 0 {
		c.Controller.TickSeconds = 60
	}
	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = "radvalve"
	}
	if c.MQTT.BoilerIntervalSeconds == 0 {
		c.MQTT.BoilerIntervalSeconds = 300
	}
	if c.PIR.Chip == "" {
		c.PIR.Chip = "gpiochip0"
	}
	if c.Driver.Kind == "" {
		c.Driver.Kind = "sim"
	}
	if c.Driver.ModbusMap == "" {
		c.Driver.ModbusMap = "valve.modbus.yml"
	}
	if c.Driver.SimPCPerSecond == 0 {
		c.Driver.SimPCPerSecond = 2
	}
	if c.Web.Addr == "" {
		c.Web.Addr = ":80"
	}

	if err := c.ValveParams().Validate(); err != nil {
		return nil, fmt.Errorf("valve params: %w", err)
	}
	switch c.TempControl.Kind {
	case "fixed", "dial", "nv":
	default:
		return nil, fmt.Errorf("unknown tempcontrol kind %q", c.TempControl.Kind)
	}
	switch c.Driver.Kind {
	case "sim", "modbus":
	default:
		return nil, fmt.Errorf("unknown driver kind %q", c.Driver.Kind)
	}
	if len(c.Schedule.On) > 2 {
		return nil, fmt.Errorf("at most 2 schedule entries, got %d", len(c.Schedule.On))
	}
	for _, s := range c.Schedule.On {
		if _, err := ParseClock(s); err != nil {
			return nil, err
		}
	}
	return &c, nil
}

// ParseClock converts "HH:MM" into minutes after midnight.
func ParseClock(s string) (int, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, fmt.Errorf("bad time %q: want HH:MM", s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("bad hour in %q", s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("bad minute in %q", s)
	}
	return h*60 + m, nil
}
