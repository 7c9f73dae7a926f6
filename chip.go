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

	"golang.org/x/xerrors"

	"github.com/theopolis/tpm-i2c-atmel/tis"
)

// Variant identifies the command framing used by a chip.
type Variant int

const (
	// VariantAtmel is the AT97SC3204T, which exposes no registers. Commands
	// are written as a single transaction and responses are read from the
	// start of the response on every read.
	VariantAtmel Variant = iota

	// VariantInfineon is a locality aware TIS 1.2 chip with register based
	// access to the data FIFO.
	VariantInfineon

	// VariantStub accepts every command and returns an empty response. It is
	// used for board bring-up.
	VariantStub
)

func (v Variant) String() string {
	switch v {
	case VariantAtmel:
		return "atmel"
	case VariantInfineon:
		return "infineon"
	case VariantStub:
		return "stub"
	default:
		return fmt.Sprintf("Variant(%d)", int(v))
	}
}

// ParseVariant returns the Variant with the supplied name.
func ParseVariant(s string) (Variant, error) {
	for _, v := range []Variant{VariantAtmel, VariantInfineon, VariantStub} {
		if v.String() == s {
			return v, nil
		}
	}
	return 0, xerrors.Errorf("unrecognized chip %q: %w", s, ErrInvalidArgument)
}

// Completion describes how to determine from the status byte that a
// command has finished executing.
type Completion struct {
	Mask  uint8
	Value uint8

	// Canceled is the status value that indicates that the command was
	// canceled. It is ignored if CanCancel is false.
	Canceled  uint8
	CanCancel bool
}

// Complete indicates whether the supplied status shows a finished command.
// A zero Completion is always complete.
func (c Completion) Complete(status uint8) bool {
	return status&c.Mask == c.Value
}

// IsCanceled indicates whether the supplied status shows a canceled
// command.
func (c Completion) IsCanceled(status uint8) bool {
	return c.CanCancel && status == c.Canceled
}

// Chip is the set of operations implemented by each variant.
type Chip interface {
	// Send writes a complete command to the chip and returns the number of
	// bytes written.
	Send(cmd []byte) (int, error)

	// Recv reads a response into buf and returns the length of the
	// response. The buffer must be large enough for the whole response.
	Recv(buf []byte) (int, error)

	// Status returns the chip's status byte.
	Status() uint8

	// Abort cancels the in-flight command.
	Abort() error

	Completion() Completion
	Variant() Variant
}

// checkResponseBuffer ensures that buf can hold a response header.
func checkResponseBuffer(buf []byte) error {
	if len(buf) < tis.HeaderSize {
		return xerrors.Errorf("cannot receive into a buffer of %d bytes: %w", len(buf), ErrIO)
	}
	return nil
}

// checkDeclaredLength ensures that a response of the declared length fits in
// both the caller's buffer and the scratch buffer.
func checkDeclaredLength(expected, bufLen, capacity int) error {
	switch {
	case expected > bufLen:
		return xerrors.Errorf("declared response length %d exceeds the buffer size of %d: %w", expected, bufLen, ErrIO)
	case expected > capacity:
		return xerrors.Errorf("declared response length %d exceeds the transport capacity of %d: %w", expected, capacity, ErrIO)
	}
	return nil
}
