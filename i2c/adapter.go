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

// Package i2c provides the bus adapter abstraction that the TPM transport is
// built on, together with implementations backed by the Linux i2c-dev
// interface and by periph.io.
package i2c

import (
	"fmt"
)

// Address is the 7-bit bus address of a device.
type Address uint16

func (a Address) String() string {
	return fmt.Sprintf("0x%02x", uint16(a))
}

// MaxAddress is the highest valid 7-bit address.
const MaxAddress Address = 0x7f

// Direction describes the direction of a single transfer.
type Direction int

const (
	// Write transfers bytes from the host to the device.
	Write Direction = iota

	// Read transfers bytes from the device to the host.
	Read
)

func (d Direction) String() string {
	switch d {
	case Write:
		return "write"
	case Read:
		return "read"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

// Functionality describes the capabilities of an adapter. The values
// correspond to the I2C_FUNC_* flags of the Linux i2c-dev interface.
type Functionality uint32

const (
	// FuncI2C indicates that the adapter supports plain I2C transfers.
	FuncI2C Functionality = 0x00000001

	// FuncSMBusReadByte indicates that the adapter supports the SMBus
	// receive byte transaction.
	FuncSMBusReadByte Functionality = 0x00020000
)

// Adapter corresponds to a bus master that can move a buffer to or from a
// device on the bus.
//
// Transfer performs a single transaction and must only be called with the
// adapter lock held. Lock and Unlock provide scoped exclusive access to the
// bus, so that a sequence of transfers can be performed without another user
// of the adapter interleaving its own transactions.
type Adapter interface {
	// Transfer moves len(buf) bytes to or from the device at the supplied
	// address, and returns the number of bytes transferred. A count that is
	// not positive indicates that the transaction was not acknowledged.
	Transfer(addr Address, dir Direction, buf []byte) (int, error)

	Lock()
	Unlock()

	// Functionality returns the capabilities of the adapter.
	Functionality() Functionality
}

// Supports indicates whether the supplied adapter has all of the specified
// capabilities.
func Supports(adapter Adapter, f Functionality) bool {
	return adapter.Functionality()&f == f
}
