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
	"fmt"

	tpmi2c "github.com/theopolis/tpm-i2c-atmel"
)

// MockHandle is the handle returned from MockRegistrar.
type MockHandle int

func (h MockHandle) String() string {
	return fmt.Sprintf("mock-tpm%d", int(h))
}

// MockRegistrar is a tpmi2c.HardwareRegistrar that records registrations.
type MockRegistrar struct {
	// RegisterErr is returned from RegisterDevice if set.
	RegisterErr error

	// UnregisterErr is returned from UnregisterDevice if set. The handle
	// is still removed from Devices.
	UnregisterErr error

	Devices      map[MockHandle]tpmi2c.Chip
	Unregistered []tpmi2c.ChipHandle

	next MockHandle
}

func NewMockRegistrar() *MockRegistrar {
	return &MockRegistrar{Devices: make(map[MockHandle]tpmi2c.Chip)}
}

func (r *MockRegistrar) RegisterDevice(session *tpmi2c.Session, chip tpmi2c.Chip) (tpmi2c.ChipHandle, error) {
	if r.RegisterErr != nil {
		return nil, r.RegisterErr
	}
	h := r.next
	r.next++
	r.Devices[h] = chip
	return h, nil
}

func (r *MockRegistrar) UnregisterDevice(handle tpmi2c.ChipHandle) error {
	h, ok := handle.(MockHandle)
	if !ok {
		return fmt.Errorf("invalid handle %v", handle)
	}
	delete(r.Devices, h)
	r.Unregistered = append(r.Unregistered, handle)
	return r.UnregisterErr
}
