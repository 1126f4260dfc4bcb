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

package sysmon

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// DiskUsage reports space and inodes of the filesystem holding path, as
// seen by an unprivileged process.
func DiskUsage(path string) (Disk, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return Disk{}, fmt.Errorf("statfs %s: %w", path, err)
	}
	bsize := uint64(st.Bsize)
	d := Disk{
		Path:       path,
		Total:      st.Blocks * bsize,
		Free:       st.Bavail * bsize,
		Inodes:     st.Files,
		FreeInodes: st.Ffree,
	}
	d.Used = d.Total - st.Bfree*bsize
	return d, nil
}
