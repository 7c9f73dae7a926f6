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

package tpm2_device

import (
	"io"
	"strconv"

	"golang.org/x/xerrors"

	"github.com/theopolis/tpm-i2c-atmel/i2c"
)

var i2cOpenLinux = i2c.OpenLinux

func init() {
	openLinuxAdapter = func(bus string) (i2c.Adapter, io.Closer, error) {
		n, err := strconv.Atoi(bus)
		if err != nil {
			return nil, nil, xerrors.Errorf("invalid bus number %q", bus)
		}
		adapter, err := i2cOpenLinux(n)
		if err != nil {
			return nil, nil, err
		}
		return adapter, adapter, nil
	}
}
