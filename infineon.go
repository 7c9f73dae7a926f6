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
	"encoding/binary"

	"github.com/snapcore/snapd/logger"
	"golang.org/x/xerrors"

	"github.com/theopolis/tpm-i2c-atmel/tis"
)

const infineonBufferSize = 1260

var infineonTransportParams = tis.TransportParams{
	Capacity: infineonBufferSize,
	Read:     tis.ShortRetry,
	Write:    tis.ShortRetry,
}

// infineonLocality is the only locality used by this host.
const infineonLocality = 0

type infineonChip struct {
	transport *tis.Transport
	arbiter   *tis.Arbiter
}

func newInfineonChip(transport *tis.Transport, arbiter *tis.Arbiter) *infineonChip {
	return &infineonChip{transport: transport, arbiter: arbiter}
}

// identify requests the use of the locality and returns the device and
// vendor IDs.
func (c *infineonChip) identify() (did, vid uint16, err error) {
	if err := c.arbiter.Request(infineonLocality); err != nil {
		return 0, 0, err
	}

	var buf [4]byte
	if _, err := c.transport.AddressedRead(tis.RegDIDVID.Locality(infineonLocality), buf[:], len(buf)); err != nil {
		return 0, 0, xerrors.Errorf("cannot read device and vendor ID: %w", err)
	}
	didvid := binary.LittleEndian.Uint32(buf[:])
	return uint16(didvid >> 16), uint16(didvid), nil
}

func (c *infineonChip) writeStatus(status tis.Status, profile tis.RetryProfile) error {
	buf := []byte{byte(status)}
	_, err := c.transport.AddressedWrite(tis.RegStatus.Locality(infineonLocality), buf, len(buf), profile)
	return err
}

func (c *infineonChip) Send(cmd []byte) (int, error) {
	if len(cmd) > c.transport.Capacity() {
		return 0, xerrors.Errorf("cannot send command of %d bytes with a capacity of %d: %w", len(cmd), c.transport.Capacity(), ErrInvalidArgument)
	}

	if err := c.arbiter.Request(infineonLocality); err != nil {
		return 0, xerrors.Errorf("cannot request locality: %w", err)
	}

	if _, err := c.transport.AddressedWrite(tis.RegDataFIFO.Locality(infineonLocality), cmd, len(cmd), tis.ShortRetry); err != nil {
		return 0, xerrors.Errorf("cannot write command: %w", err)
	}
	if err := c.writeStatus(tis.StatusGo, tis.ShortRetry); err != nil {
		return 0, xerrors.Errorf("cannot start command: %w", err)
	}

	return len(cmd), nil
}

// Recv reads the response header from the data FIFO to determine the
// response length, and then reads the remainder of the response after the
// header. The chip is made ready for the next command and the locality is
// released if another locality is waiting for it.
func (c *infineonChip) Recv(buf []byte) (int, error) {
	if err := checkResponseBuffer(buf); err != nil {
		return 0, err
	}

	if err := c.arbiter.Request(infineonLocality); err != nil {
		return 0, xerrors.Errorf("cannot request locality: %w", err)
	}
	defer func() {
		if err := c.writeStatus(tis.StatusCommandReady, tis.ShortRetry); err != nil {
			logger.Debugf("cannot make TPM ready after receiving response: %v", err)
		}
		c.arbiter.Release(infineonLocality, false)
	}()

	fifo := tis.RegDataFIFO.Locality(infineonLocality)
	if _, err := c.transport.AddressedRead(fifo, buf, tis.HeaderSize); err != nil {
		return 0, xerrors.Errorf("cannot read response header: %w", err)
	}

	expected := tis.DeclaredLength(buf)
	if expected <= tis.HeaderSize {
		return tis.HeaderSize, nil
	}
	if err := checkDeclaredLength(expected, len(buf), c.transport.Capacity()); err != nil {
		return 0, err
	}

	if _, err := c.transport.AddressedRead(fifo, buf[tis.HeaderSize:], expected-tis.HeaderSize); err != nil {
		return 0, xerrors.Errorf("cannot read response body: %w", err)
	}
	return expected, nil
}

// Status returns the contents of the STS register, or 0 if it cannot be
// read.
func (c *infineonChip) Status() uint8 {
	var buf [1]byte
	if _, err := c.transport.AddressedRead(tis.RegStatus.Locality(infineonLocality), buf[:], len(buf)); err != nil {
		logger.Debugf("cannot read status: %v", err)
		return 0
	}
	return buf[0]
}

// Abort signals command ready, which cancels an in-flight command.
func (c *infineonChip) Abort() error {
	if err := c.writeStatus(tis.StatusCommandReady, tis.LongRetry); err != nil {
		return xerrors.Errorf("cannot abort command: %w", err)
	}
	return nil
}

func (c *infineonChip) Completion() Completion {
	return Completion{
		Mask:      uint8(tis.StatusDataAvail | tis.StatusValid),
		Value:     uint8(tis.StatusDataAvail | tis.StatusValid),
		Canceled:  uint8(tis.StatusCommandReady),
		CanCancel: true}
}

func (c *infineonChip) Variant() Variant {
	return VariantInfineon
}
