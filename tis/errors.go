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

package tis

import "errors"

var (
	// ErrUnsupported indicates that the adapter cannot perform plain I2C
	// transfers.
	ErrUnsupported = errors.New("adapter does not support I2C transfers")

	// ErrInvalidArgument indicates that a length or locality is out of range.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrBusy indicates that a device session or locality is already held.
	ErrBusy = errors.New("device or resource busy")

	// ErrTimeout indicates that a retry or polling limit was reached.
	ErrTimeout = errors.New("operation timed out")

	// ErrIO indicates that the device did not acknowledge any attempt of a
	// transfer, or that a response could not be received.
	ErrIO = errors.New("input/output error")

	// ErrNotFound indicates that no device responded on the bus.
	ErrNotFound = errors.New("no such device")
)
