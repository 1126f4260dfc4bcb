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
	"context"
	"encoding/binary"
	"fmt"
	"math"
)

// RegisterCount is how many 16-bit registers a data type occupies, 0 if
// the type is unknown.
func RegisterCount(dt string) uint16 {
	switch dt {
	case "uint16", "int16", "bool":
		return 1
	case "float32":
		return 2
	default:
		return 0
	}
}

// Decode converts raw big-endian register bytes into a value, applying
// the register's scale and offset. bool registers decode to 0 or 1.
func Decode(def RegisterDef, raw []byte) (float64, error) {
	n := RegisterCount(def.DataType)
	if n == 0 {
		return 0, fmt.Errorf("unsupported data type %q", def.DataType)
	}
	if len(raw) < int(n*2) {
		return 0, fmt.Errorf("short read: %d bytes for %s", len(raw), def.DataType)
	}

	var v float64
	switch def.DataType {
	case "float32":
		v = float64(math.Float32frombits(binary.BigEndian.Uint32(raw)))
	case "int16":
		v = float64(int16(binary.BigEndian.Uint16(raw)))
	case "uint16":
		v = float64(binary.BigEndian.Uint16(raw))
	case "bool":
		if binary.BigEndian.Uint16(raw) != 0 {
			return 1, nil
		}
		return 0, nil
	}
	if def.Scale != 0 {
		v = v*def.Scale + def.Offset
	}
	return v, nil
}

// Encode converts a value into register bytes, undoing scale and offset.
// It returns the bytes and the register count.
func Encode(def RegisterDef, v float64) ([]byte, uint16, error) {
	if def.Scale != 0 {
		v = (v - def.Offset) / def.Scale
	}

	switch def.DataType {
	case "float32":
		if v > math.MaxFloat32 || v < -math.MaxFloat32 {
			return nil, 0, fmt.Errorf("value %v out of float32 range", v)
		}
		buf := make([]byte, 4)
		binary.BigEndian.PutUint32(buf, math.Float32bits(float32(v)))
		return buf, 2, nil

	case "int16":
		ival := int64(math.Round(v))
		if ival < math.MinInt16 || ival > math.MaxInt16 {
			return nil, 0, fmt.Errorf("value %v out of int16 range", v)
		}
		return uint16ToBytes(uint16(int16(ival))), 1, nil

	case "uint16":
		r := math.Round(v)
		if r < 0 || r > math.MaxUint16 {
			return nil, 0, fmt.Errorf("value %v out of uint16 range", v)
		}
		return uint16ToBytes(uint16(r)), 1, nil

	case "bool":
		if v != 0 {
			return uint16ToBytes(math.MaxUint16), 1, nil
		}
		return uint16ToBytes(0), 1, nil

	default:
		return nil, 0, fmt.Errorf("unsupported data type %q", def.DataType)
	}
}

// ReadValue reads a register by name and decodes it.
func (c *Client) ReadValue(ctx context.Context, name string) (float64, error) {
	def, ok := c.config.Registers[name]
	if !ok {
		return 0, fmt.Errorf("register %q not configured", name)
	}
	raw, err := c.ReadRegisters(ctx, def.Address, RegisterCount(def.DataType))
	if err != nil {
		return 0, fmt.Errorf("register read failed for %s: %w", name, err)
	}
	v, err := Decode(def, raw)
	if err != nil {
		return 0, fmt.Errorf("register %q: %w", name, err)
	}
	return v, nil
}

// WriteValue encodes v and writes it to a named writable register.
func (c *Client) WriteValue(ctx context.Context, name string, v float64) error {
	def, ok := c.config.Registers[name]
	if !ok {
		return fmt.Errorf("register %q not configured", name)
	}
	if !def.Writable {
		return fmt.Errorf("register %q is not writable", name)
	}
	raw, n, err := Encode(def, v)
	if err != nil {
		return fmt.Errorf("register %q: %w", name, err)
	}
	c.log.Debug("WriteRegister '%s' <- %v", name, v)
	return c.WriteRegisters(ctx, def.Address, n, raw)
}

func uint16ToBytes(v uint16) []byte {
	buf := make([]byte, 2)
	binary.BigEndian.PutUint16(buf, v)
	return buf
}
