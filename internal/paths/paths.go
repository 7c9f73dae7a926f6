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

package paths

import (
	"fmt"
	"path/filepath"
)

var (
	DevDir = "/dev"
	EtcDir = "/etc"

	// BoardConfigFile is the location of the board description that
	// identifies the bus and address of the TPM.
	BoardConfigFile = filepath.Join(EtcDir, "tpm-i2c", "board.yaml")
)

// I2CDevice returns the path of the i2c-dev character device for the
// specified bus number.
func I2CDevice(bus int) string {
	return filepath.Join(DevDir, fmt.Sprintf("i2c-%d", bus))
}
