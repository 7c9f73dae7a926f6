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

const atmelBufferSize = 1024

var atmelTransportParams = tis.TransportParams{
	Capacity: atmelBufferSize,
	Read:     tis.TrapdoorRetry,
	Write:    tis.SingleAttempt,
}

// atmelStatus is returned from Status. The chip has no status register,
// so this only tells the caller that it has not timed out.
const atmelStatus = 1

type atmelChip struct {
	transport *tis.Transport
}

func newAtmelChip(transport *tis.Transport) *atmelChip {
	return &atmelChip{transport: transport}
}

func (c *atmelChip) Send(cmd []byte) (int, error) {
	n, err := c.transport.Write(cmd, len(cmd))
	if err != nil {
		return 0, xerrors.Errorf("cannot send command: %w", err)
	}
	return n, nil
}

// Recv reads the response header to determine the response length. The chip
// restarts from the beginning of the response on every read, so the whole
// response is read again, overwriting the header.
func (c *atmelChip) Recv(buf []byte) (int, error) {
	if err := checkResponseBuffer(buf); err != nil {
		return 0, err
	}

	if _, err := c.transport.Read(buf, tis.HeaderSize); err != nil {
		return 0, xerrors.Errorf("cannot read response header: %w", err)
	}

	expected := tis.DeclaredLength(buf)
	if expected <= tis.HeaderSize {
		return tis.HeaderSize, nil
	}
	if err := checkDeclaredLength(expected, len(buf), c.transport.Capacity()); err != nil {
		return 0, err
	}

	if _, err := c.transport.Read(buf, expected); err != nil {
		return 0, xerrors.Errorf("cannot read response: %w", err)
	}
	return expected, nil
}

func (c *atmelChip) Status() uint8 {
	return atmelStatus
}

func (c *atmelChip) Abort() error {
	return nil
}

func (c *atmelChip) Completion() Completion {
	return Completion{}
}

func (c *atmelChip) Variant() Variant {
	return VariantAtmel
}
