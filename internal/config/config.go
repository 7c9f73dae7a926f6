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

// Package config loads the board configuration, which describes where the
// TPM is attached.
package config

import (
	"io/ioutil"
	"strconv"

	"golang.org/x/xerrors"
	"gopkg.in/yaml.v2"

	tpmi2c "github.com/theopolis/tpm-i2c-atmel"
	"github.com/theopolis/tpm-i2c-atmel/i2c"
)

// Backend selects the implementation used to access the bus.
type Backend string

const (
	// BackendLinux uses the Linux i2c-dev interface. The bus is the number
	// of the /dev/i2c-N node.
	BackendLinux Backend = "linux"

	// BackendPeriph uses periph.io. The bus is a periph.io bus name, or
	// empty for the first available bus.
	BackendPeriph Backend = "periph"
)

const (
	DefaultAddress = 0x29
	DefaultBus     = "0"
	DefaultChip    = "atmel"
)

// Board describes how the TPM is attached.
type Board struct {
	Backend Backend `yaml:"backend"`
	Bus     string  `yaml:"bus"`
	Address uint16  `yaml:"address"`
	Chip    string  `yaml:"chip"`
}

// Default returns the configuration of an AT97SC3204T at its default
// address on the first Linux bus.
func Default() *Board {
	return &Board{
		Backend: BackendLinux,
		Bus:     DefaultBus,
		Address: DefaultAddress,
		Chip:    DefaultChip,
	}
}

// Parse decodes a board configuration. Fields that are omitted take their
// default values.
func Parse(data []byte) (*Board, error) {
	board := Default()
	if err := yaml.UnmarshalStrict(data, board); err != nil {
		return nil, xerrors.Errorf("cannot decode board configuration: %w", err)
	}
	if err := board.Validate(); err != nil {
		return nil, xerrors.Errorf("invalid board configuration: %w", err)
	}
	return board, nil
}

// Load reads the board configuration from the specified file.
func Load(path string) (*Board, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, xerrors.Errorf("cannot read board configuration: %w", err)
	}
	return Parse(data)
}

// Validate checks that the configuration describes a usable device.
func (b *Board) Validate() error {
	switch b.Backend {
	case BackendLinux:
		if _, err := b.BusNumber(); err != nil {
			return err
		}
	case BackendPeriph:
	default:
		return xerrors.Errorf("unrecognized backend %q", b.Backend)
	}

	if i2c.Address(b.Address) > i2c.MaxAddress {
		return xerrors.Errorf("address %v is not a 7-bit address", i2c.Address(b.Address))
	}

	if _, err := b.Variant(); err != nil {
		return err
	}
	return nil
}

// BusNumber returns the bus number for the Linux backend.
func (b *Board) BusNumber() (int, error) {
	n, err := strconv.Atoi(b.Bus)
	if err != nil || n < 0 {
		return 0, xerrors.Errorf("invalid bus number %q", b.Bus)
	}
	return n, nil
}

func (b *Board) I2CAddress() i2c.Address {
	return i2c.Address(b.Address)
}

func (b *Board) Variant() (tpmi2c.Variant, error) {
	return tpmi2c.ParseVariant(b.Chip)
}
