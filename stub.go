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
	"golang.org/x/xerrors"

	"github.com/theopolis/tpm-i2c-atmel/tis"
)

var stubTransportParams = tis.TransportParams{
	Capacity: atmelBufferSize,
	Read:     tis.SingleAttempt,
	Write:    tis.SingleAttempt,
}

// stubChip discards every command without touching the bus.
type stubChip struct {
	capacity int
}

func newStubChip(capacity int) *stubChip {
	return &stubChip{capacity: capacity}
}

func (c *stubChip) Send(cmd []byte) (int, error) {
	if len(cmd) > c.capacity {
		return 0, xerrors.Errorf("cannot send command of %d bytes with a capacity of %d: %w", len(cmd), c.capacity, ErrInvalidArgument)
	}
	return len(cmd), nil
}

// Recv returns a bare response header with a success response code.
func (c *stubChip) Recv(buf []byte) (int, error) {
	if err := checkResponseBuffer(buf); err != nil {
		return 0, err
	}
	for i := 0; i < tis.HeaderSize; i++ {
		buf[i] = 0
	}
	buf[0] = 0x80
	buf[1] = 0x01
	buf[5] = tis.HeaderSize
	return tis.HeaderSize, nil
}

func (c *stubChip) Status() uint8 {
	return atmelStatus
}

func (c *stubChip) Abort() error {
	return nil
}

func (c *stubChip) Completion() Completion {
	return Completion{}
}

func (c *stubChip) Variant() Variant {
	return VariantStub
}
