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

package tempcontrol

import (
	"radvalve/v2/internal/params"
	"radvalve/v2/pkg/nvstore"
)

// Addresses of the override bytes within the store handed to NVOverride.
const (
	AddrWarmC  = 0
	AddrFrostC = 1
)

// NVOverride reads WARM and FROST targets from non-volatile bytes, falling
// back to the parameter defaults when a byte is erased or out of range.
type NVOverride struct {
	scale
	store nvstore.ByteStore
}

func NewNVOverride(p params.ValveControlParameters, store nvstore.ByteStore) *NVOverride {
	return &NVOverride{scale: scale{p: p}, store: store}
}

func (n *NVOverride) WarmTargetC() uint8 {
	v := n.store.Get(AddrWarmC)
	if v == nvstore.Erased || v < params.MinTargetC || v > params.MaxTargetC || v <= n.p.FrostEco {
		return n.p.TempScaleMid()
	}
	return v
}

func (n *NVOverride) FrostTargetC() uint8 {
	warm := n.WarmTargetC()
	v := n.store.Get(AddrFrostC)
	if v == nvstore.Erased || v < params.MinTargetC || v >= warm {
		return min(n.frostFor(warm), warm-1)
	}
	return v
}

func (n *NVOverride) HasEcoBias() bool {
	return !n.IsComfortTemperature(n.WarmTargetC())
}

// SetWarmTargetC stores a new WARM target; false if out of range.
func (n *NVOverride) SetWarmTargetC(c uint8) bool {
	if c < params.MinTargetC || c > params.MaxTargetC || c <= n.p.FrostEco {
		return false
	}
	return n.store.Set(AddrWarmC, c) == nil
}

// SetFrostTargetC stores a new FROST floor; false if not below WARM.
func (n *NVOverride) SetFrostTargetC(c uint8) bool {
	if c < params.MinTargetC || c >= n.WarmTargetC() {
		return false
	}
	return n.store.Set(AddrFrostC, c) == nil
}

// Clear erases both overrides.
func (n *NVOverride) Clear() {
	_ = n.store.Set(AddrWarmC, nvstore.Erased)
	_ = n.store.Set(AddrFrostC, nvstore.Erased)
}
