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

package i2c_test

import (
	"errors"

	. "gopkg.in/check.v1"
	"periph.io/x/conn/v3/driver/driverreg"
	periphi2c "periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2ctest"
	"periph.io/x/conn/v3/physic"

	. "github.com/theopolis/tpm-i2c-atmel/i2c"
)

// nakBus is a periph.io bus on which nothing acknowledges.
type nakBus struct{}

func (nakBus) String() string                    { return "nak" }
func (nakBus) Tx(addr uint16, w, r []byte) error { return errors.New("i2c: no ACK") }
func (nakBus) SetSpeed(f physic.Frequency) error { return nil }
func (nakBus) Close() error                      { return nil }

type periphSuite struct{}

var _ = Suite(&periphSuite{})

func (s *periphSuite) TestTransfer(c *C) {
	bus := &i2ctest.Playback{
		Ops: []i2ctest.IO{
			{Addr: 0x2e, W: []byte{0x00}},
			{Addr: 0x2e, R: []byte{0xa0}},
			{Addr: 0x2e, W: []byte{0x05, 0x80, 0x01}},
		},
	}
	adapter := NewPeriphAdapter(bus)
	c.Check(adapter.Functionality(), Equals, FuncI2C)

	adapter.Lock()
	defer adapter.Unlock()

	n, err := adapter.Transfer(0x2e, Write, []byte{0x00})
	c.Check(err, IsNil)
	c.Check(n, Equals, 1)

	buf := make([]byte, 1)
	n, err = adapter.Transfer(0x2e, Read, buf)
	c.Check(err, IsNil)
	c.Check(n, Equals, 1)
	c.Check(buf, DeepEquals, []byte{0xa0})

	n, err = adapter.Transfer(0x2e, Write, []byte{0x05, 0x80, 0x01})
	c.Check(err, IsNil)
	c.Check(n, Equals, 3)

	c.Check(bus.Close(), IsNil)
}

func (s *periphSuite) TestTransferError(c *C) {
	adapter := NewPeriphAdapter(nakBus{})

	n, err := adapter.Transfer(0x29, Read, make([]byte, 10))
	c.Check(err, ErrorMatches, `i2c: no ACK`)
	c.Check(n, Equals, 0)
}

func (s *periphSuite) TestTransferInvalidDirection(c *C) {
	adapter := NewPeriphAdapter(nakBus{})

	_, err := adapter.Transfer(0x29, Direction(2), make([]byte, 1))
	c.Check(err, ErrorMatches, `invalid direction Direction\(2\)`)
}

func (s *periphSuite) TestOpenPeriph(c *C) {
	restore := MockHostInit(func() (*driverreg.State, error) {
		return &driverreg.State{}, nil
	})
	defer restore()

	var opened string
	restore = MockI2cregOpen(func(name string) (periphi2c.BusCloser, error) {
		opened = name
		return nakBus{}, nil
	})
	defer restore()

	adapter, closer, err := OpenPeriph("I2C1")
	c.Assert(err, IsNil)
	c.Check(opened, Equals, "I2C1")
	c.Check(adapter.String(), Equals, "nak")
	c.Check(closer.Close(), IsNil)
}

func (s *periphSuite) TestOpenPeriphHostInitError(c *C) {
	restore := MockHostInit(func() (*driverreg.State, error) {
		return nil, errors.New("no drivers")
	})
	defer restore()

	_, _, err := OpenPeriph("")
	c.Check(err, ErrorMatches, `cannot initialize host drivers: no drivers`)
}

func (s *periphSuite) TestOpenPeriphBusError(c *C) {
	restore := MockHostInit(func() (*driverreg.State, error) {
		return &driverreg.State{}, nil
	})
	defer restore()

	restore = MockI2cregOpen(func(name string) (periphi2c.BusCloser, error) {
		return nil, errors.New("no bus found")
	})
	defer restore()

	_, _, err := OpenPeriph("")
	c.Check(err, ErrorMatches, `cannot open bus: no bus found`)
}
