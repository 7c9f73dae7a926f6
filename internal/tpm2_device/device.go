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
	"errors"
	"io"

	"github.com/canonical/go-tpm2"
	"github.com/snapcore/snapd/logger"
	"github.com/snapcore/snapd/osutil"
	"golang.org/x/xerrors"

	tpmi2c "github.com/theopolis/tpm-i2c-atmel"
	"github.com/theopolis/tpm-i2c-atmel/i2c"
	"github.com/theopolis/tpm-i2c-atmel/internal/config"
	"github.com/theopolis/tpm-i2c-atmel/internal/paths"
)

var (
	// ErrNoTPM2Device indicates that no TPM device is available.
	ErrNoTPM2Device = errors.New("no TPM2 device is available")

	// ErrUnsupportedBackend indicates that the configured bus backend is
	// not available on this platform.
	ErrUnsupportedBackend = errors.New("bus backend is not supported on this platform")
)

type tpmDevice struct {
	*tpmi2c.Device

	session *tpmi2c.Session
	closer  io.Closer
}

func (d *tpmDevice) Session() *tpmi2c.Session {
	return d.session
}

func (d *tpmDevice) Close() error {
	d.session.Detach()
	if d.closer == nil {
		return nil
	}
	if err := d.closer.Close(); err != nil {
		return xerrors.Errorf("cannot close adapter: %w", err)
	}
	return nil
}

// TPMDevice corresponds to a [tpm2.TPMDevice] backed by a TPM on an I2C
// bus.
type TPMDevice interface {
	tpm2.TPMDevice
	Session() *tpmi2c.Session // provide access to the attached session
	Close() error             // detach the session and close the bus adapter
}

type adapterOpener func(bus string) (i2c.Adapter, io.Closer, error)

var (
	driver = tpmi2c.NewDriver(new(tpmi2c.LocalRegistrar), nil)

	openLinuxAdapter adapterOpener = func(string) (i2c.Adapter, io.Closer, error) {
		return nil, nil, ErrUnsupportedBackend
	}

	openPeriphAdapter adapterOpener = func(bus string) (i2c.Adapter, io.Closer, error) {
		adapter, closer, err := i2c.OpenPeriph(bus)
		if err != nil {
			return nil, nil, err
		}
		return adapter, closer, nil
	}
)

func openAdapter(board *config.Board) (i2c.Adapter, io.Closer, error) {
	switch board.Backend {
	case config.BackendLinux:
		return openLinuxAdapter(board.Bus)
	case config.BackendPeriph:
		return openPeriphAdapter(board.Bus)
	default:
		return nil, nil, xerrors.Errorf("unrecognized backend %q", board.Backend)
	}
}

// OpenDevice attaches the TPM described by the supplied board configuration.
// If nothing responds at the configured address, ErrNoTPM2Device is
// returned. Only one device can be open at a time.
func OpenDevice(board *config.Board) (TPMDevice, error) {
	variant, err := board.Variant()
	if err != nil {
		return nil, err
	}

	adapter, closer, err := openAdapter(board)
	if err != nil {
		return nil, xerrors.Errorf("cannot open %s bus %q: %w", board.Backend, board.Bus, err)
	}

	session, err := driver.Attach(adapter, board.I2CAddress(), variant)
	if err != nil {
		if closer != nil {
			closer.Close()
		}
		if errors.Is(err, tpmi2c.ErrNotFound) {
			logger.Noticef("cannot attach TPM: %v", err)
			return nil, ErrNoTPM2Device
		}
		return nil, xerrors.Errorf("cannot attach TPM: %w", err)
	}

	return &tpmDevice{
		Device:  tpmi2c.NewDevice(session),
		session: session,
		closer:  closer,
	}, nil
}

// DefaultDevice returns the TPM device described by the board configuration
// file. If there is no configuration file, ErrNoTPM2Device is returned.
var DefaultDevice = func() (TPMDevice, error) {
	if !osutil.FileExists(paths.BoardConfigFile) {
		return nil, ErrNoTPM2Device
	}
	board, err := config.Load(paths.BoardConfigFile)
	if err != nil {
		return nil, err
	}
	return OpenDevice(board)
}
