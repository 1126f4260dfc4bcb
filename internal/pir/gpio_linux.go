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

//go:build linux

package pir

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// GPIO reads the sensor from a Linux GPIO character device.
type GPIO struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line
}

// Open requests line on chip as an input with pull-down, so a
// disconnected sensor reads as no motion.
func Open(chip string, line int) (*GPIO, error) {
	c, err := gpiocdev.NewChip(chip)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip %s: %w", chip, err)
	}
	l, err := c.RequestLine(line, gpiocdev.AsInput, gpiocdev.WithPullDown)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("request line %d: %w", line, err)
	}
	return &GPIO{chip: c, line: l}, nil
}

func (g *GPIO) Read() (bool, error) {
	v, err := g.line.Value()
	if err != nil {
		return false, fmt.Errorf("read line: %w", err)
	}
	return v != 0, nil
}

func (g *GPIO) Close() error {
	var errs []error
	if err := g.line.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close line: %w", err))
	}
	if err := g.chip.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close chip: %w", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
