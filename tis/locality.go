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
	"time"

	"github.com/snapcore/snapd/logger"
	"golang.org/x/xerrors"
)

// LocalityState describes the arbiter's view of locality ownership.
type LocalityState int

const (
	LocalityUnowned LocalityState = iota
	LocalityRequested
	LocalityActive
)

func (s LocalityState) String() string {
	switch s {
	case LocalityUnowned:
		return "unowned"
	case LocalityRequested:
		return "requested"
	case LocalityActive:
		return "active"
	default:
		return fmt.Sprintf("LocalityState(%d)", int(s))
	}
}

const (
	localityPollMin = 5000 * time.Microsecond
	localityPollMax = 5500 * time.Microsecond
)

// Arbiter tracks which locality this host has been granted by the TPM. The
// TPM is the source of truth, so ownership is always confirmed by reading
// the ACCESS register.
type Arbiter struct {
	transport *Transport
	timeout   time.Duration

	state    LocalityState
	locality int
}

// NewArbiter returns a new arbiter that waits up to timeout for a requested
// locality to become active.
func NewArbiter(transport *Transport, timeout time.Duration) *Arbiter {
	return &Arbiter{
		transport: transport,
		timeout:   timeout,
		locality:  -1,
	}
}

// State returns the current state and the locality it applies to. The
// locality is -1 when the state is LocalityUnowned.
func (a *Arbiter) State() (LocalityState, int) {
	return a.state, a.locality
}

func checkLocalityRange(l int) error {
	if l < 0 || l > MaxLocality {
		return xerrors.Errorf("invalid locality %d: %w", l, ErrInvalidArgument)
	}
	return nil
}

// ReadAccess returns the contents of the ACCESS register for the specified
// locality.
func (a *Arbiter) ReadAccess(l int) (Access, error) {
	if err := checkLocalityRange(l); err != nil {
		return 0, err
	}
	var buf [1]byte
	if _, err := a.transport.AddressedRead(RegAccess.Locality(l), buf[:], 1); err != nil {
		return 0, err
	}
	return Access(buf[0]), nil
}

// Check indicates whether the specified locality is currently active. If it
// is, it is recorded as the active locality.
func (a *Arbiter) Check(l int) (bool, error) {
	access, err := a.ReadAccess(l)
	if err != nil {
		return false, err
	}

	const mask = AccessActiveLocality | AccessValid
	if access&mask != mask {
		return false, nil
	}

	if a.state != LocalityActive || a.locality != l {
		logger.Debugf("locality %d is active", l)
	}
	a.state = LocalityActive
	a.locality = l
	return true, nil
}

// Request requests the use of the specified locality and waits for the TPM
// to grant it. It returns immediately if the locality is already active.
func (a *Arbiter) Request(l int) error {
	ok, err := a.Check(l)
	switch {
	case err != nil:
		return xerrors.Errorf("cannot check locality: %w", err)
	case ok:
		return nil
	}

	buf := []byte{byte(AccessRequestUse)}
	if _, err := a.transport.AddressedWrite(RegAccess.Locality(l), buf, len(buf), a.transport.params.Write); err != nil {
		return xerrors.Errorf("cannot request locality %d: %w", l, err)
	}
	a.state = LocalityRequested
	a.locality = l

	clock := a.transport.Clock()
	deadline := clock.Now().Add(a.timeout)
	for {
		ok, err := a.Check(l)
		if err == nil && ok {
			return nil
		}
		if !clock.Now().Before(deadline) {
			break
		}
		sleepRange(clock, localityPollMin, localityPollMax)
	}

	a.state = LocalityUnowned
	a.locality = -1
	return xerrors.Errorf("cannot obtain locality %d: %w", l, ErrTimeout)
}

// Release relinquishes the specified locality if force is true or if another
// locality has a pending request. This never fails. Errors are only logged,
// as this is used during teardown.
func (a *Arbiter) Release(l int, force bool) {
	if a.locality == l {
		a.state = LocalityUnowned
		a.locality = -1
	}

	access, err := a.ReadAccess(l)
	if err != nil {
		logger.Debugf("cannot read access register whilst releasing locality %d: %v", l, err)
		return
	}

	const mask = AccessRequestPending | AccessValid
	if !force && access&mask != mask {
		return
	}

	buf := []byte{byte(AccessActiveLocality)}
	if _, err := a.transport.AddressedWrite(RegAccess.Locality(l), buf, len(buf), a.transport.params.Write); err != nil {
		logger.Noticef("cannot release locality %d: %v", l, err)
	}
}
