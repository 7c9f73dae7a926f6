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

package tpm2_device_test

import (
	"errors"

	. "gopkg.in/check.v1"

	"github.com/theopolis/tpm-i2c-atmel/i2c"
	. "github.com/theopolis/tpm-i2c-atmel/internal/tpm2_device"
)

type deviceLinuxSuite struct{}

var _ = Suite(&deviceLinuxSuite{})

func (s *deviceLinuxSuite) TestOpenLinuxAdapter(c *C) {
	var buses []int
	restore := MockI2COpenLinux(func(bus int) (*i2c.LinuxAdapter, error) {
		buses = append(buses, bus)
		return nil, errors.New("permission denied")
	})
	defer restore()

	c.Check(OpenLinuxAdapter("3"), ErrorMatches, `permission denied`)
	c.Check(buses, DeepEquals, []int{3})
}

func (s *deviceLinuxSuite) TestOpenLinuxAdapterInvalidBus(c *C) {
	restore := MockI2COpenLinux(func(bus int) (*i2c.LinuxAdapter, error) {
		c.Fatal("unexpected call")
		return nil, nil
	})
	defer restore()

	c.Check(OpenLinuxAdapter("I2C1"), ErrorMatches, `invalid bus number "I2C1"`)
}
