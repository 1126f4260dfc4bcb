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

// Package nvstore is a tiny byte-addressed non-volatile store, the
// equivalent of a microcontroller EEPROM page. Erased bytes read as 0xff.
package nvstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Erased is the value of a byte that has never been written.
const Erased uint8 = 0xff

// ByteStore is the storage used for schedules and user overrides.
type ByteStore interface {
	Get(addr int) uint8
	Set(addr int, v uint8) error
	Size() int
}

var ErrAddress = errors.New("nvstore: address out of range")

// RAM is a volatile ByteStore.
type RAM struct {
	mu   sync.RWMutex
	data []byte
}

func NewRAM(size int) *RAM {
	r := &RAM{data: make([]byte, size)}
	for i := range r.data {
		r.data[i] = Erased
	}
	return r
}

func (r *RAM) Get(addr int) uint8 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if addr < 0 || addr >= len(r.data) {
		return Erased
	}
	return r.data[addr]
}

func (r *RAM) Set(addr int, v uint8) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if addr < 0 || addr >= len(r.data) {
		return ErrAddress
	}
	r.data[addr] = v
	return nil
}

func (r *RAM) Size() int {
	return len(r.data)
}

// File is a ByteStore mirrored to a small file. Every write that changes a
// byte rewrites the file via a temp file and rename, so a crash leaves
// either the old or the new image.
type File struct {
	RAM
	path string
}

// OpenFile loads path if it exists, otherwise starts erased.
func OpenFile(path string, size int) (*File, error) {
	f := &File{path: path}
	f.data = NewRAM(size).data
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return f, nil
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	copy(f.data, data)
	return f, nil
}

func (f *File) Set(addr int, v uint8) error {
	if f.Get(addr) == v {
		return nil
	}
	if err := f.RAM.Set(addr, v); err != nil {
		return err
	}
	return f.flush()
}

func (f *File) flush() error {
	f.mu.RLock()
	image := append([]byte(nil), f.data...)
	f.mu.RUnlock()

	if err := os.MkdirAll(filepath.Dir(f.path), 0755); err != nil {
		return fmt.Errorf("mkdir for %s: %w", f.path, err)
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, image, 0644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("rename %s: %w", tmp, err)
	}
	return nil
}
