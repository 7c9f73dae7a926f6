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
	"sync"
	"sync/atomic"
	"time"

	"github.com/snapcore/snapd/logger"
	"golang.org/x/xerrors"

	"github.com/theopolis/tpm-i2c-atmel/i2c"
	"github.com/theopolis/tpm-i2c-atmel/tis"
)

// TimeoutSet contains the TIS timeouts that higher layers use when driving
// a chip. A is the locality timeout and B is the command duration limit.
type TimeoutSet struct {
	A, B, C, D time.Duration
}

// DefaultTimeouts are installed on every session at attach time.
var DefaultTimeouts = TimeoutSet{
	A: 750 * time.Millisecond,
	B: 2000 * time.Millisecond,
	C: 750 * time.Millisecond,
	D: 750 * time.Millisecond,
}

// ChipHandle identifies a chip that has been registered with a
// HardwareRegistrar.
type ChipHandle interface {
	fmt.Stringer
}

// HardwareRegistrar makes an attached chip available to higher layers.
type HardwareRegistrar interface {
	RegisterDevice(session *Session, chip Chip) (ChipHandle, error)
	UnregisterDevice(handle ChipHandle) error
}

type localHandle string

func (h localHandle) String() string { return string(h) }

// LocalRegistrar is a HardwareRegistrar that only assigns names to chips.
type LocalRegistrar struct {
	next uint32
}

func (r *LocalRegistrar) RegisterDevice(session *Session, chip Chip) (ChipHandle, error) {
	n := atomic.AddUint32(&r.next, 1) - 1
	return localHandle(fmt.Sprintf("tpm%d", n)), nil
}

func (r *LocalRegistrar) UnregisterDevice(handle ChipHandle) error {
	return nil
}

// Driver binds at most one chip at a time.
type Driver struct {
	mu        sync.Mutex
	registrar HardwareRegistrar
	clock     tis.Clock
	session   *Session
}

// NewDriver returns a new Driver that registers attached chips with the
// supplied registrar. If clock is nil, the system clock is used.
func NewDriver(registrar HardwareRegistrar, clock tis.Clock) *Driver {
	if clock == nil {
		clock = tis.SystemClock
	}
	return &Driver{registrar: registrar, clock: clock}
}

// Session returns the currently attached session, or nil if there isn't one.
func (d *Driver) Session() *Session {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.session
}

func (d *Driver) release(s *Session) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.session == s {
		d.session = nil
	}
}

// probe performs a single one byte read to determine whether anything
// acknowledges the address.
func probe(adapter i2c.Adapter, addr i2c.Address, clock tis.Clock) error {
	transport := tis.NewTransport(adapter, addr, tis.TransportParams{
		Capacity: 1,
		Read:     tis.SingleAttempt,
		Write:    tis.SingleAttempt}, clock)
	var buf [1]byte
	_, err := transport.Read(buf[:], len(buf))
	return err
}

// Attach binds the chip of the specified variant at addr on the supplied
// adapter and registers it with the driver's registrar.
//
// If a session already exists, a ErrBusy error will be returned. If the
// adapter cannot perform plain I2C transfers, a ErrUnsupported error will be
// returned. If nothing responds at addr, or the chip cannot be initialized
// or registered, a ErrNotFound error will be returned. On failure, the
// driver is left without a session.
func (d *Driver) Attach(adapter i2c.Adapter, addr i2c.Address, variant Variant) (*Session, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.session != nil {
		return nil, xerrors.Errorf("cannot attach device at %v: %w", addr, ErrBusy)
	}
	if addr > i2c.MaxAddress {
		return nil, xerrors.Errorf("invalid address %v: %w", addr, ErrInvalidArgument)
	}
	if !i2c.Supports(adapter, i2c.FuncI2C) {
		return nil, xerrors.Errorf("cannot attach device at %v: %w", addr, ErrUnsupported)
	}
	if err := probe(adapter, addr, d.clock); err != nil {
		return nil, xerrors.Errorf("no device responded at %v (%v): %w", addr, err, ErrNotFound)
	}

	s := &Session{
		driver:   d,
		variant:  variant,
		timeouts: DefaultTimeouts,
	}

	var desc string
	switch variant {
	case VariantAtmel:
		s.transport = tis.NewTransport(adapter, addr, atmelTransportParams, d.clock)
		s.chip = newAtmelChip(s.transport)
	case VariantInfineon:
		s.transport = tis.NewTransport(adapter, addr, infineonTransportParams, d.clock)
		s.arbiter = tis.NewArbiter(s.transport, s.timeouts.A)
		chip := newInfineonChip(s.transport, s.arbiter)
		did, vid, err := chip.identify()
		if err != nil {
			if state, _ := s.arbiter.State(); state == tis.LocalityActive {
				s.releaseLocality()
			}
			s.transport.Reset()
			return nil, xerrors.Errorf("cannot initialize device at %v (%v): %w", addr, err, ErrNotFound)
		}
		s.chip = chip
		desc = fmt.Sprintf(" (device-id 0x%04X, vendor-id 0x%04X)", did, vid)
	case VariantStub:
		s.transport = tis.NewTransport(adapter, addr, stubTransportParams, d.clock)
		s.chip = newStubChip(s.transport.Capacity())
		desc = " (stub)"
	default:
		return nil, xerrors.Errorf("cannot attach device at %v: unrecognized variant %v: %w", addr, variant, ErrInvalidArgument)
	}

	handle, err := d.registrar.RegisterDevice(s, s.chip)
	if err != nil {
		s.releaseLocality()
		s.transport.Reset()
		return nil, xerrors.Errorf("cannot register device at %v (%v): %w", addr, err, ErrNotFound)
	}
	s.handle = handle
	d.session = s

	logger.Noticef("1.2 TPM%s at %v registered as %v", desc, addr, handle)

	return s, nil
}

// Session is an attached chip. Its operations are serialized, so only one
// command/response cycle is in flight at a time.
type Session struct {
	mu       sync.Mutex
	driver   *Driver
	variant  Variant
	timeouts TimeoutSet

	transport *tis.Transport
	arbiter   *tis.Arbiter
	chip      Chip
	handle    ChipHandle

	detached bool
}

func (s *Session) releaseLocality() {
	if s.arbiter == nil {
		return
	}
	_, l := s.arbiter.State()
	if l < 0 {
		l = infineonLocality
	}
	s.arbiter.Release(l, true)
}

// Detach releases the chip. It force-releases any held locality,
// unregisters the chip and clears the driver binding. This never fails, and
// it is safe to call more than once.
func (s *Session) Detach() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.detached {
		return
	}
	s.detached = true

	s.releaseLocality()
	if err := s.driver.registrar.UnregisterDevice(s.handle); err != nil {
		logger.Noticef("cannot unregister %v: %v", s.handle, err)
	}
	s.driver.release(s)
	s.transport.Reset()

	logger.Noticef("detached TPM at %v", s.transport.Address())
}

func (s *Session) checkAttached() error {
	if s.detached {
		return xerrors.Errorf("session has been detached: %w", ErrNotFound)
	}
	return nil
}

func (s *Session) attached() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.checkAttached()
}

// Send writes a complete command to the chip.
func (s *Session) Send(cmd []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkAttached(); err != nil {
		return 0, err
	}
	return s.chip.Send(cmd)
}

// Recv reads a complete response into buf and returns its length.
func (s *Session) Recv(buf []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkAttached(); err != nil {
		return 0, err
	}
	return s.chip.Recv(buf)
}

// Status returns the chip's status byte, or 0 if the session is detached.
func (s *Session) Status() uint8 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.detached {
		return 0
	}
	return s.chip.Status()
}

// Abort cancels the in-flight command.
func (s *Session) Abort() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkAttached(); err != nil {
		return err
	}
	return s.chip.Abort()
}

// Completion returns the criteria for determining from the status byte that
// a command has finished.
func (s *Session) Completion() Completion {
	return s.chip.Completion()
}

// Timeouts returns the timeouts installed at attach time.
func (s *Session) Timeouts() TimeoutSet {
	return s.timeouts
}

func (s *Session) Handle() ChipHandle {
	return s.handle
}

func (s *Session) Variant() Variant {
	return s.variant
}

func (s *Session) Address() i2c.Address {
	return s.transport.Address()
}

// Clock returns the clock used for polling.
func (s *Session) Clock() tis.Clock {
	return s.transport.Clock()
}

// LocalityAccess returns the ACCESS register of the specified locality. It
// is only supported by the Infineon variant.
func (s *Session) LocalityAccess(l int) (tis.Access, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkAttached(); err != nil {
		return 0, err
	}
	if s.arbiter == nil {
		return 0, xerrors.Errorf("%v chip has no localities: %w", s.variant, ErrUnsupported)
	}
	return s.arbiter.ReadAccess(l)
}
