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

package i2c

import (
	"sync"

	"golang.org/x/xerrors"
	periphi2c "periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

var (
	hostInit   = host.Init
	i2cregOpen = i2creg.Open
)

// PeriphAdapter is an Adapter backed by a periph.io bus. periph.io buses
// serialize each Tx internally, but provide no way to hold the bus across
// several transactions, so the adapter lock only excludes other users of
// the same PeriphAdapter.
type PeriphAdapter struct {
	mu  sync.Mutex
	bus periphi2c.Bus
}

// NewPeriphAdapter returns an Adapter for an already opened periph.io bus.
func NewPeriphAdapter(bus periphi2c.Bus) *PeriphAdapter {
	return &PeriphAdapter{bus: bus}
}

// OpenPeriph initializes the periph.io host drivers and opens the named bus.
// An empty name selects the first available bus.
func OpenPeriph(name string) (*PeriphAdapter, periphi2c.BusCloser, error) {
	if _, err := hostInit(); err != nil {
		return nil, nil, xerrors.Errorf("cannot initialize host drivers: %w", err)
	}
	bus, err := i2cregOpen(name)
	if err != nil {
		return nil, nil, xerrors.Errorf("cannot open bus: %w", err)
	}
	return NewPeriphAdapter(bus), bus, nil
}

// Transfer implements [Adapter.Transfer] using a write-only or read-only Tx.
func (a *PeriphAdapter) Transfer(addr Address, dir Direction, buf []byte) (int, error) {
	var err error
	switch dir {
	case Write:
		err = a.bus.Tx(uint16(addr), buf, nil)
	case Read:
		err = a.bus.Tx(uint16(addr), nil, buf)
	default:
		return 0, xerrors.Errorf("invalid direction %v", dir)
	}
	if err != nil {
		return 0, err
	}
	return len(buf), nil
}

func (a *PeriphAdapter) Lock() {
	a.mu.Lock()
}

func (a *PeriphAdapter) Unlock() {
	a.mu.Unlock()
}

// Functionality implements [Adapter.Functionality]. periph.io buses always
// support plain transfers.
func (a *PeriphAdapter) Functionality() Functionality {
	return FuncI2C
}

func (a *PeriphAdapter) String() string {
	return a.bus.String()
}
