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

package modbus

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Modbus    ModbusConfig           `yaml:"modbus"`
	Registers map[string]RegisterDef `yaml:"registers"`
}

type ModbusConfig struct {
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
	SlaveID byte   `yaml:"slave_id"`
	Timeout int    `yaml:"timeout"` // seconds
}

type RegisterDef struct {
	Address     uint16  `yaml:"address"`
	DataType    string  `yaml:"data_type"` // "uint16", "int16", "bool", "float32"
	Scale       float64 `yaml:"scale"`     // if set, raw*scale+offset is the value
	Offset      float64 `yaml:"offset"`
	Description string  `yaml:"description"`
	Writable    bool    `yaml:"writable"`
}

func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("read modbus config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes a YAML register map, applies defaults and checks
// every register has a known data type.
func ParseConfig(data []byte) (*Config, error) {
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parse modbus config: %w", err)
	}
	if config.Modbus.Host == "" {
		return nil, fmt.Errorf("modbus config: host not set")
	}
	if config.Modbus.Port == 0 {
		config.Modbus.Port = 502
	}
	if config.Modbus.Timeout == 0 {
		config.Modbus.Timeout = 2
	}
	for name, def := range config.Registers {
		if RegisterCount(def.DataType) == 0 {
			return nil, fmt.Errorf("register %q: unsupported data type %q", name, def.DataType)
		}
	}
	return &config, nil
}

// Require checks the map defines each named register, writable where
// asked for.
func (c *Config) Require(readable []string, writable []string) error {
	for _, name := range readable {
		if _, ok := c.Registers[name]; !ok {
			return fmt.Errorf("register %q not configured", name)
		}
	}
	for _, name := range writable {
		def, ok := c.Registers[name]
		if !ok {
			return fmt.Errorf("register %q not configured", name)
		}
		if !def.Writable {
			return fmt.Errorf("register %q is not writable", name)
		}
	}
	return nil
}
