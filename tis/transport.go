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

package tis

import (
	"fmt"
	"sync"

	"github.com/snapcore/snapd/logger"
	"golang.org/x/xerrors"

	"github.com/theopolis/tpm-i2c-atmel/i2c"
)

// TransferError is returned from Transport when every attempt of a transfer
// failed. It wraps either ErrIO or ErrTimeout.
type TransferError struct {
	Op       string
	Attempts int
	Last     error // the error from the final attempt, nil for a NAK
	err      error
}

func (e *TransferError) Error() string {
	if e.Last == nil {
		return fmt.Sprintf("cannot %s after %d attempts: %v", e.Op, e.Attempts, e.err)
	}
	return fmt.Sprintf("cannot %s after %d attempts: %v (last error: %v)", e.Op, e.Attempts, e.err, e.Last)
}

func (e *TransferError) Unwrap() error {
	return e.err
}

// TransportParams describes the scratch buffer capacity and retry behaviour
// of a Transport.
type TransportParams struct {
	// Capacity is the largest number of bytes that can be moved in a single
	// read or write.
	Capacity int

	Read  RetryProfile
	Write RetryProfile
}

// Transport performs register reads and writes against a single device. It
// owns a scratch buffer with one extra leading byte that holds the register
// address of addressed writes. Only one operation is in flight at a time.
type Transport struct {
	mu      sync.Mutex
	adapter i2c.Adapter
	addr    i2c.Address
	params  TransportParams
	clock   Clock

	buf []byte
}

// NewTransport returns a new Transport for the device at the specified
// address.
func NewTransport(adapter i2c.Adapter, addr i2c.Address, params TransportParams, clock Clock) *Transport {
	if clock == nil {
		clock = SystemClock
	}
	return &Transport{
		adapter: adapter,
		addr:    addr,
		params:  params,
		clock:   clock,
		buf:     make([]byte, params.Capacity+1),
	}
}

// Capacity returns the capacity of the scratch buffer, excluding the byte
// reserved for the register address.
func (t *Transport) Capacity() int {
	return t.params.Capacity
}

func (t *Transport) Address() i2c.Address {
	return t.addr
}

func (t *Transport) Adapter() i2c.Adapter {
	return t.adapter
}

func (t *Transport) Clock() Clock {
	return t.clock
}

// Reset zeroes the scratch buffer.
func (t *Transport) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.zero()
}

func (t *Transport) zero() {
	for i := range t.buf {
		t.buf[i] = 0
	}
}

func (t *Transport) checkLength(buf []byte, n int) error {
	if n < 0 || n > t.params.Capacity || n > len(buf) {
		return xerrors.Errorf("cannot transfer %d bytes with a capacity of %d: %w", n, t.params.Capacity, ErrInvalidArgument)
	}
	return nil
}

func (t *Transport) checkAdapter() error {
	if !i2c.Supports(t.adapter, i2c.FuncI2C) {
		return ErrUnsupported
	}
	return nil
}

// attempt runs fn up to profile.Attempts times until it moves want bytes.
// When settle is true, the sleep happens before each attempt rather than
// after each failure, to give the device time to process a preceding
// register selection.
func (t *Transport) attempt(profile RetryProfile, settle bool, want int, fn func() (int, error)) (last error, ok bool) {
	for i := 0; i < profile.Attempts; i++ {
		if settle {
			sleepRange(t.clock, profile.MinSleep, profile.MaxSleep)
		}

		n, err := fn()
		switch {
		case err != nil:
			last = err
		case n <= 0:
			last = nil
		case n < want:
			last = fmt.Errorf("short transfer of %d bytes", n)
		default:
			return nil, true
		}

		if !settle && i+1 < profile.Attempts {
			sleepRange(t.clock, profile.MinSleep, profile.MaxSleep)
		}
	}
	return last, false
}

func (t *Transport) lockedTransfer(dir i2c.Direction, buf []byte) (int, error) {
	t.adapter.Lock()
	defer t.adapter.Unlock()
	return t.adapter.Transfer(t.addr, dir, buf)
}

func exhaustedReadErr(profile RetryProfile) error {
	if profile.Trapdoor {
		return ErrTimeout
	}
	return ErrIO
}

// Read performs a receive-only transaction of n bytes into buf. On success,
// it returns n. If every attempt fails, no data is copied to buf.
func (t *Transport) Read(buf []byte, n int) (int, error) {
	if err := t.checkLength(buf, n); err != nil {
		return 0, err
	}
	if err := t.checkAdapter(); err != nil {
		return 0, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	scratch := t.buf[1 : 1+n]
	last, ok := t.attempt(t.params.Read, false, n, func() (int, error) {
		return t.lockedTransfer(i2c.Read, scratch)
	})
	if !ok {
		t.zero()
		logger.Debugf("read of %d bytes from %v failed: %v", n, t.addr, last)
		return 0, &TransferError{
			Op:       fmt.Sprintf("read %d bytes", n),
			Attempts: t.params.Read.Attempts,
			Last:     last,
			err:      exhaustedReadErr(t.params.Read)}
	}

	copy(buf, scratch)
	return n, nil
}

// Write performs a send-only transaction of the first n bytes of buf. On
// success, it returns n.
func (t *Transport) Write(buf []byte, n int) (int, error) {
	if err := t.checkLength(buf, n); err != nil {
		return 0, err
	}
	if err := t.checkAdapter(); err != nil {
		return 0, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	scratch := t.buf[1 : 1+n]
	copy(scratch, buf[:n])
	last, ok := t.attempt(t.params.Write, false, n, func() (int, error) {
		return t.lockedTransfer(i2c.Write, scratch)
	})
	if !ok {
		t.zero()
		logger.Debugf("write of %d bytes to %v failed: %v", n, t.addr, last)
		return 0, &TransferError{
			Op:       fmt.Sprintf("write %d bytes", n),
			Attempts: t.params.Write.Attempts,
			Last:     last,
			err:      ErrIO}
	}

	return n, nil
}

// AddressedRead reads n bytes from the specified register into buf. The
// register address is written first and the data is read afterwards, with
// the adapter locked across both phases.
func (t *Transport) AddressedRead(reg Register, buf []byte, n int) (int, error) {
	if err := t.checkLength(buf, n); err != nil {
		return 0, err
	}
	if err := t.checkAdapter(); err != nil {
		return 0, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.adapter.Lock()
	defer t.adapter.Unlock()

	t.buf[0] = byte(reg)
	last, ok := t.attempt(t.params.Write, false, 1, func() (int, error) {
		return t.adapter.Transfer(t.addr, i2c.Write, t.buf[:1])
	})
	if !ok {
		t.zero()
		return 0, &TransferError{
			Op:       fmt.Sprintf("select register %v", reg),
			Attempts: t.params.Write.Attempts,
			Last:     last,
			err:      ErrIO}
	}

	scratch := t.buf[1 : 1+n]
	last, ok = t.attempt(t.params.Read, true, n, func() (int, error) {
		return t.adapter.Transfer(t.addr, i2c.Read, scratch)
	})
	if !ok {
		t.zero()
		logger.Debugf("read of %d bytes from %v on %v failed: %v", n, reg, t.addr, last)
		return 0, &TransferError{
			Op:       fmt.Sprintf("read %d bytes from register %v", n, reg),
			Attempts: t.params.Read.Attempts,
			Last:     last,
			err:      exhaustedReadErr(t.params.Read)}
	}

	copy(buf, scratch)
	return n, nil
}

// AddressedWrite writes the first n bytes of buf to the specified register
// using the supplied retry profile. The register address is prepended to the
// data in the scratch buffer so that both are sent in one transaction.
func (t *Transport) AddressedWrite(reg Register, buf []byte, n int, profile RetryProfile) (int, error) {
	if err := t.checkLength(buf, n); err != nil {
		return 0, err
	}
	if err := t.checkAdapter(); err != nil {
		return 0, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.adapter.Lock()
	defer t.adapter.Unlock()

	t.buf[0] = byte(reg)
	copy(t.buf[1:], buf[:n])
	last, ok := t.attempt(profile, false, n+1, func() (int, error) {
		return t.adapter.Transfer(t.addr, i2c.Write, t.buf[:n+1])
	})
	if !ok {
		t.zero()
		logger.Debugf("write of %d bytes to %v on %v failed: %v", n, reg, t.addr, last)
		return 0, &TransferError{
			Op:       fmt.Sprintf("write %d bytes to register %v", n, reg),
			Attempts: profile.Attempts,
			Last:     last,
			err:      ErrIO}
	}

	return n, nil
}
