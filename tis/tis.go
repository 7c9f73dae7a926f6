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

// Package tis implements the register level protocol of the TCG TPM Interface
// Specification (TIS) on top of an I2C adapter. It provides a register
// transport with bounded retries and a locality arbiter.
package tis

import "fmt"

// Register is the 8-bit index of a TIS register.
type Register uint8

const (
	RegAccess   Register = 0x00
	RegStatus   Register = 0x01
	RegDataFIFO Register = 0x05
	RegDIDVID   Register = 0x06
)

// MaxLocality is the highest locality number defined by TIS.
const MaxLocality = 4

// Locality returns the address of this register for the specified locality.
func (r Register) Locality(l int) Register {
	return r | Register(l<<4)
}

func (r Register) String() string {
	var name string
	switch r & 0x0f {
	case RegAccess:
		name = "ACCESS"
	case RegStatus:
		name = "STS"
	case RegDataFIFO:
		name = "DATA_FIFO"
	case RegDIDVID:
		name = "DID_VID"
	default:
		return fmt.Sprintf("Register(0x%02x)", uint8(r))
	}
	return fmt.Sprintf("%s(%d)", name, r>>4)
}

// Access contains the bits of the ACCESS register.
type Access uint8

const (
	AccessValid          Access = 0x80
	AccessActiveLocality Access = 0x20
	AccessRequestPending Access = 0x04
	AccessRequestUse     Access = 0x02
)

// Status contains the bits of the STS register.
type Status uint8

const (
	StatusValid        Status = 0x80
	StatusCommandReady Status = 0x40
	StatusGo           Status = 0x20
	StatusDataAvail    Status = 0x10
	StatusDataExpect   Status = 0x08
)

// HeaderSize is the size of the header that prefixes every TPM command and
// response.
const HeaderSize = 10

// DeclaredLength decodes the length field of a response header. Only the
// 16 least significant bits of the size field are used, which are the bytes
// at offset 4 and 5.
func DeclaredLength(hdr []byte) int {
	return int(hdr[4])<<8 | int(hdr[5])
}
