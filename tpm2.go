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
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/canonical/go-tpm2"
	"github.com/canonical/go-tpm2/mu"
	"github.com/snapcore/snapd/logger"
	"golang.org/x/xerrors"

	"github.com/theopolis/tpm-i2c-atmel/tis"
)

const completionPollInterval = 5 * time.Millisecond

// Device exposes a Session as a tpm2.TPMDevice.
type Device struct {
	session *Session

	mu   sync.Mutex
	open bool
}

// NewDevice returns a new Device for the supplied session. Only one
// transport can be open at a time.
func NewDevice(session *Session) *Device {
	return &Device{session: session}
}

// Open implements tpm2.TPMDevice.Open.
func (d *Device) Open() (tpm2.Transport, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.open {
		return nil, xerrors.Errorf("cannot open transport: %w", ErrBusy)
	}
	d.open = true
	return &Transport{device: d, session: d.session}, nil
}

// String implements fmt.Stringer.
func (d *Device) String() string {
	return fmt.Sprintf("%v TPM at %v on I2C", d.session.Variant(), d.session.Address())
}

func (d *Device) closeTransport() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.open = false
}

// Transport is a tpm2.Transport that carries one command per Write. The
// response is fetched on the first subsequent Read and served across as
// many reads as the caller needs.
type Transport struct {
	device  *Device
	session *Session

	pending bool
	rsp     []byte
	closed  bool
}

// waitForCompletion polls the status byte until the chip indicates that the
// command has finished, aborting it if TimeoutSet.B elapses.
func (t *Transport) waitForCompletion() error {
	completion := t.session.Completion()
	clock := t.session.Clock()
	deadline := clock.Now().Add(t.session.Timeouts().B)

	for {
		if err := t.session.attached(); err != nil {
			return xerrors.Errorf("cannot complete command: %w", err)
		}
		status := t.session.Status()
		if completion.Complete(status) {
			return nil
		}
		if completion.IsCanceled(status) {
			return xerrors.Errorf("cannot complete command: %w", ErrCanceled)
		}
		if !clock.Now().Before(deadline) {
			break
		}
		clock.Sleep(completionPollInterval)
	}

	if err := t.session.Abort(); err != nil {
		logger.Noticef("cannot abort timed out command: %v", err)
	}
	return xerrors.Errorf("cannot complete command within %v: %w", t.session.Timeouts().B, ErrTimeout)
}

func (t *Transport) receive() error {
	if err := t.waitForCompletion(); err != nil {
		return err
	}

	buf := make([]byte, t.session.transport.Capacity())
	n, err := t.session.Recv(buf)
	if err != nil {
		return xerrors.Errorf("cannot receive response: %w", err)
	}
	t.rsp = buf[:n]

	var hdr tpm2.ResponseHeader
	if _, err := mu.UnmarshalFromBytes(t.rsp, &hdr); err != nil {
		logger.Debugf("cannot decode response header: %v", err)
	} else {
		logger.Debugf("response tag:%v size:%d code:%v", hdr.Tag, hdr.ResponseSize, hdr.ResponseCode)
	}
	return nil
}

// Read implements tpm2.Transport.Read.
func (t *Transport) Read(data []byte) (int, error) {
	if t.closed {
		return 0, ErrTransportClosed
	}

	if t.pending {
		t.pending = false
		if err := t.receive(); err != nil {
			return 0, err
		}
	}

	if len(t.rsp) == 0 {
		return 0, io.EOF
	}
	n := copy(data, t.rsp)
	t.rsp = t.rsp[n:]
	return n, nil
}

// Write implements tpm2.Transport.Write. The supplied data must be a complete
// command.
func (t *Transport) Write(data []byte) (int, error) {
	if t.closed {
		return 0, ErrTransportClosed
	}

	if t.pending {
		// The chip still holds the previous response.
		logger.Debugf("aborting previous command with an unread response")
		if err := t.session.Abort(); err != nil {
			logger.Noticef("cannot abort previous command: %v", err)
		}
	} else if len(t.rsp) > 0 {
		logger.Debugf("discarding unread response")
	}
	t.rsp = nil
	t.pending = false

	if len(data) < tis.HeaderSize {
		return 0, xerrors.Errorf("cannot send command of %d bytes: %w", len(data), ErrInvalidArgument)
	}

	n, err := t.session.Send(data)
	if err != nil {
		return 0, err
	}
	t.pending = true
	return n, nil
}

// Close implements tpm2.Transport.Close. It does not detach the session.
func (t *Transport) Close() error {
	if t.closed {
		return ErrTransportClosed
	}
	t.closed = true
	t.rsp = nil
	t.device.closeTransport()
	return nil
}
