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
	"encoding/binary"

	"github.com/theopolis/tpm-i2c-atmel/i2c"
	"github.com/theopolis/tpm-i2c-atmel/tis"
)

// CommandHandler computes the response to a command.
type CommandHandler func(cmd []byte) []byte

func makePacket(tag uint16, code uint32, payload []byte) []byte {
	pkt := make([]byte, tis.HeaderSize+len(payload))
	binary.BigEndian.PutUint16(pkt[0:], tag)
	binary.BigEndian.PutUint32(pkt[2:], uint32(len(pkt)))
	binary.BigEndian.PutUint32(pkt[6:], code)
	copy(pkt[tis.HeaderSize:], payload)
	return pkt
}

// MakeCommand returns a command with the specified command code and
// parameters, with the size field of the header set correctly.
func MakeCommand(code uint32, params []byte) []byte {
	return makePacket(0x8001, code, params)
}

// MakeResponse returns a response with the specified response code and
// payload, with the size field of the header set correctly.
func MakeResponse(code uint32, payload []byte) []byte {
	return makePacket(0x8001, code, payload)
}

// EchoHandler returns a successful response that carries the command body as
// its payload.
func EchoHandler(cmd []byte) []byte {
	if len(cmd) < tis.HeaderSize {
		return MakeResponse(0, nil)
	}
	return MakeResponse(0, cmd[tis.HeaderSize:])
}

// MockTISChip models the registers of a TIS 1.2 TPM on an I2C bus. Register
// writes are transactions that start with the register address. A single
// byte write selects the register for subsequent reads.
type MockTISChip struct {
	*MockAdapter

	Addr   i2c.Address
	DIDVID uint32

	// GrantAfter is the number of ACCESS reads after a request for use
	// before the locality is granted. A negative value means that the
	// locality is never granted.
	GrantAfter int

	// PendingRequest sets the request pending bit in every ACCESS read.
	PendingRequest bool

	// NAKs is the number of subsequent transfers that will not be
	// acknowledged.
	NAKs int

	// Absent causes every transfer to be unacknowledged.
	Absent bool

	// NAKReads lists registers whose reads are not acknowledged.
	NAKReads []tis.Register

	Respond CommandHandler

	Access       [tis.MaxLocality + 1]tis.Access
	AccessReads  [tis.MaxLocality + 1]int
	AccessWrites [tis.MaxLocality + 1][]tis.Access
	Status       tis.Status
	StatusWrites []tis.Status

	Command  []byte
	Commands [][]byte
	Response []byte
	rspOff   int

	requested [tis.MaxLocality + 1]bool
	selected  tis.Register
}

// NewMockTISChip returns a new chip at the specified address, with every
// locality inactive and the chip ready to accept a command.
func NewMockTISChip(addr i2c.Address) *MockTISChip {
	chip := &MockTISChip{
		Addr:       addr,
		DIDVID:     0x001a15d1,
		GrantAfter: 1,
		Respond:    EchoHandler,
		Status:     tis.StatusValid | tis.StatusCommandReady,
	}
	for i := range chip.Access {
		chip.Access[i] = tis.AccessValid
	}
	chip.MockAdapter = NewMockAdapter(chip.handle)
	return chip
}

// Grant makes the specified locality active.
func (c *MockTISChip) Grant(l int) {
	c.Access[l] = tis.AccessValid | tis.AccessActiveLocality
}

// Reset clears the recorded transfers and register writes. The register
// contents are preserved.
func (c *MockTISChip) Reset() {
	c.MockAdapter.Reset()
	c.AccessReads = [tis.MaxLocality + 1]int{}
	c.AccessWrites = [tis.MaxLocality + 1][]tis.Access{}
	c.StatusWrites = nil
	c.Commands = nil
}

func (c *MockTISChip) handle(addr i2c.Address, dir i2c.Direction, buf []byte) (int, error) {
	if addr != c.Addr || c.Absent {
		return 0, nil
	}
	if c.NAKs > 0 {
		c.NAKs--
		return 0, nil
	}

	switch dir {
	case i2c.Write:
		c.selected = tis.Register(buf[0])
		if len(buf) > 1 {
			c.writeRegister(c.selected, buf[1:])
		}
	case i2c.Read:
		for _, reg := range c.NAKReads {
			if reg == c.selected {
				return 0, nil
			}
		}
		c.readRegister(c.selected, buf)
	}
	return len(buf), nil
}

func (c *MockTISChip) writeRegister(reg tis.Register, data []byte) {
	l := int(reg >> 4)
	switch reg & 0x0f {
	case tis.RegAccess:
		v := tis.Access(data[0])
		c.AccessWrites[l] = append(c.AccessWrites[l], v)
		if v&tis.AccessRequestUse != 0 {
			c.requested[l] = true
			c.AccessReads[l] = 0
		}
		if v&tis.AccessActiveLocality != 0 {
			c.Access[l] &^= tis.AccessActiveLocality
		}
	case tis.RegStatus:
		v := tis.Status(data[0])
		c.StatusWrites = append(c.StatusWrites, v)
		switch {
		case v&tis.StatusCommandReady != 0:
			c.Command = nil
			c.Response = nil
			c.rspOff = 0
			c.Status = tis.StatusValid | tis.StatusCommandReady
		case v&tis.StatusGo != 0:
			c.Commands = append(c.Commands, c.Command)
			c.Response = c.Respond(c.Command)
			c.rspOff = 0
			c.Command = nil
			c.Status = tis.StatusValid | tis.StatusDataAvail
		}
	case tis.RegDataFIFO:
		c.Command = append(c.Command, data...)
		c.Status = tis.StatusValid | tis.StatusDataExpect
	}
}

func (c *MockTISChip) readRegister(reg tis.Register, buf []byte) {
	for i := range buf {
		buf[i] = 0
	}

	l := int(reg >> 4)
	switch reg & 0x0f {
	case tis.RegAccess:
		c.AccessReads[l]++
		if c.requested[l] && c.GrantAfter >= 0 && c.AccessReads[l] >= c.GrantAfter {
			c.requested[l] = false
			c.Grant(l)
		}
		v := c.Access[l]
		if c.PendingRequest {
			v |= tis.AccessRequestPending
		}
		buf[0] = byte(v)
	case tis.RegStatus:
		buf[0] = byte(c.Status)
	case tis.RegDataFIFO:
		n := copy(buf, c.Response[c.rspOff:])
		c.rspOff += n
	case tis.RegDIDVID:
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], c.DIDVID)
		copy(buf, b[:])
	}
}

// MockAtmelChip models an AT97SC3204T, which has no registers. A write
// submits a command and every read transaction returns the response from
// its beginning.
type MockAtmelChip struct {
	*MockAdapter

	Addr i2c.Address

	// NAKs is the number of subsequent transfers that will not be
	// acknowledged.
	NAKs int

	// Absent causes every transfer to be unacknowledged.
	Absent bool

	Respond  CommandHandler
	Commands [][]byte
	Response []byte
}

// NewMockAtmelChip returns a new chip at the specified address. Before any
// command is sent, reads return the sequence 0x1, 0x2, 0x3 ...
func NewMockAtmelChip(addr i2c.Address) *MockAtmelChip {
	chip := &MockAtmelChip{
		Addr:    addr,
		Respond: EchoHandler,
	}
	for i := 1; i <= tis.HeaderSize; i++ {
		chip.Response = append(chip.Response, byte(i))
	}
	chip.MockAdapter = NewMockAdapter(chip.handle)
	return chip
}

func (c *MockAtmelChip) handle(addr i2c.Address, dir i2c.Direction, buf []byte) (int, error) {
	if addr != c.Addr || c.Absent {
		return 0, nil
	}
	if c.NAKs > 0 {
		c.NAKs--
		return 0, nil
	}

	switch dir {
	case i2c.Write:
		cmd := append([]byte(nil), buf...)
		c.Commands = append(c.Commands, cmd)
		c.Response = c.Respond(cmd)
	case i2c.Read:
		for i := range buf {
			buf[i] = 0
		}
		copy(buf, c.Response)
	}
	return len(buf), nil
}
