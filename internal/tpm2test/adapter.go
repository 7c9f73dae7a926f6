// -*- Mode: Go; indent-tabs-mode: t -*-

/*
 * Copyright (C) 2024 Canonical Ltd
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License version 3 as
 * published by the Free Software Foundation.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program.  If not, see <http://www.gnu.org/licenses/>.
 *
 */

package tpm2test

import (
	"github.com/theopolis/tpm-i2c-atmel/i2c"
)

// Transfer records a single call to MockAdapter.Transfer.
type Transfer struct {
	Addr i2c.Address
	Dir  i2c.Direction
	Len  int

	// Data contains the bytes written, or the bytes returned for a
	// successful read.
	Data []byte

	// Locked indicates whether the adapter lock was held.
	Locked bool
}

// MockAdapter is an i2c.Adapter that passes each transfer to a handler and
// records it.
type MockAdapter struct {
	Funcs   i2c.Functionality
	Handler func(addr i2c.Address, dir i2c.Direction, buf []byte) (int, error)

	Transfers []Transfer
	Locks     int

	locked bool
}

// NewMockAdapter returns a new MockAdapter that supports plain I2C transfers.
func NewMockAdapter(handler func(addr i2c.Address, dir i2c.Direction, buf []byte) (int, error)) *MockAdapter {
	return &MockAdapter{Funcs: i2c.FuncI2C, Handler: handler}
}

func (a *MockAdapter) Transfer(addr i2c.Address, dir i2c.Direction, buf []byte) (int, error) {
	t := Transfer{Addr: addr, Dir: dir, Len: len(buf), Locked: a.locked}
	if dir == i2c.Write {
		t.Data = append([]byte(nil), buf...)
	}

	n, err := 0, error(nil)
	if a.Handler != nil {
		n, err = a.Handler(addr, dir, buf)
	}
	if dir == i2c.Read && err == nil && n > 0 {
		t.Data = append([]byte(nil), buf[:n]...)
	}

	a.Transfers = append(a.Transfers, t)
	return n, err
}

func (a *MockAdapter) Lock() {
	if a.locked {
		panic("adapter lock is not recursive")
	}
	a.locked = true
	a.Locks++
}

func (a *MockAdapter) Unlock() {
	if !a.locked {
		panic("adapter is not locked")
	}
	a.locked = false
}

func (a *MockAdapter) IsLocked() bool {
	return a.locked
}

func (a *MockAdapter) Functionality() i2c.Functionality {
	return a.Funcs
}

// TransfersWithDir returns the recorded transfers in the specified direction.
func (a *MockAdapter) TransfersWithDir(dir i2c.Direction) (out []Transfer) {
	for _, t := range a.Transfers {
		if t.Dir == dir {
			out = append(out, t)
		}
	}
	return out
}

// Reset clears the recorded transfers.
func (a *MockAdapter) Reset() {
	a.Transfers = nil
	a.Locks = 0
}
