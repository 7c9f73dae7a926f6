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

package tpmi2c

import (
	"errors"

	"github.com/theopolis/tpm-i2c-atmel/tis"
)

var (
	// ErrUnsupported indicates that the adapter cannot perform plain I2C
	// transfers.
	ErrUnsupported = tis.ErrUnsupported

	// ErrInvalidArgument indicates that a length, locality or variant is out
	// of range.
	ErrInvalidArgument = tis.ErrInvalidArgument

	// ErrBusy is returned from Driver.Attach when a session already exists,
	// and from Device.Open when a transport is already open.
	ErrBusy = tis.ErrBusy

	// ErrTimeout indicates that a retry or polling limit was reached, or
	// that a command did not complete within TimeoutSet.B.
	ErrTimeout = tis.ErrTimeout

	// ErrIO indicates a transfer failure or a malformed response.
	ErrIO = tis.ErrIO

	// ErrNotFound is returned from Driver.Attach when no TPM responds at the
	// requested address, and from a Session that has been detached.
	ErrNotFound = tis.ErrNotFound

	// ErrCanceled indicates that the TPM reported that the in-flight command
	// was canceled.
	ErrCanceled = errors.New("command was canceled")

	// ErrTransportClosed is returned from a Transport that has been closed.
	ErrTransportClosed = errors.New("transport already closed")
)
