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

package zwavejsws

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

func (e Event) IsValueUpdate() bool {
	return e.Type == "value updated"
}

func (e Event) IsMetadataUpdate() bool {
	return e.Type == "metadata updated"
}

// ParseValueUpdated decodes the args of a "value updated" event.
func (e Event) ParseValueUpdated() (UpdatedValue, error) {
	if !e.IsValueUpdate() {
		return UpdatedValue{}, fmt.Errorf("not a value updated event: %q", e.Type)
	}
	var value UpdatedValue
	if err := json.Unmarshal(e.Args, &value); err != nil {
		return UpdatedValue{}, fmt.Errorf("zwave-js UpdatedValue: %w", err)
	}
	return value, nil
}

func (e Event) ParseMetadataUpdated() (UpdatedMetadata, error) {
	if !e.IsMetadataUpdate() {
		return UpdatedMetadata{}, fmt.Errorf("not a metadata updated event: %q", e.Type)
	}
	var value UpdatedMetadata
	if err := json.Unmarshal(e.Args, &value); err != nil {
		return UpdatedMetadata{}, fmt.Errorf("zwave-js UpdatedMetadata: %w", err)
	}
	return value, nil
}

func (s State) ParseNodes() ([]Node, error) {
	var nodes []Node
	if err := json.Unmarshal(s.Nodes, &nodes); err != nil {
		return nil, fmt.Errorf("zwave-js nodes: %w", err)
	}
	return nodes, nil
}

func (n Node) ParseValues() ([]Value, error) {
	var values []Value
	if err := json.Unmarshal(n.Values, &values); err != nil {
		return nil, fmt.Errorf("zwave-js node %d values: %w", n.NodeID, err)
	}
	return values, nil
}

// Number reads a numeric value, which zwave-js may send as a JSON number
// or a string.
func Number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// Celsius converts a temperature reported in unit ("°C" or "°F").
func Celsius(v float64, unit string) float64 {
	if strings.Contains(unit, "F") {
		return (v - 32) * 5.0 / 9.0
	}
	return v
}
