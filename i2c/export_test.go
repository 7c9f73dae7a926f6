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
	"periph.io/x/conn/v3/driver/driverreg"
	periphi2c "periph.io/x/conn/v3/i2c"
)

func MockHostInit(fn func() (*driverreg.State, error)) (restore func()) {
	orig := hostInit
	hostInit = fn
	return func() {
		hostInit = orig
	}
}

func MockI2cregOpen(fn func(string) (periphi2c.BusCloser, error)) (restore func()) {
	orig := i2cregOpen
	i2cregOpen = fn
	return func() {
		i2cregOpen = orig
	}
}
