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

package tpmi2c_test

import (
	. "gopkg.in/check.v1"

	. "github.com/theopolis/tpm-i2c-atmel"
	"github.com/theopolis/tpm-i2c-atmel/internal/testutil"
	"github.com/theopolis/tpm-i2c-atmel/internal/tpm2test"
	"github.com/theopolis/tpm-i2c-atmel/tis"
)

type stubSuite struct {
	sessionTestBase

	chip    *tpm2test.MockAtmelChip
	session *Session
}

var _ = Suite(&stubSuite{})

func (s *stubSuite) SetUpTest(c *C) {
	s.sessionTestBase.SetUpTest(c)

	s.chip = tpm2test.NewMockAtmelChip(atmelAddr)
	s.session = s.attach(c, s.chip, atmelAddr, VariantStub)
	s.chip.Reset()
}

func (s *stubSuite) TestSendRecv(c *C) {
	cmd := tpm2test.MakeCommand(0x17b, []byte{0x00, 0x08})
	n, err := s.session.Send(cmd)
	c.Check(err, IsNil)
	c.Check(n, Equals, len(cmd))

	buf := make([]byte, 64)
	n, err = s.session.Recv(buf)
	c.Check(err, IsNil)
	c.Check(n, Equals, tis.HeaderSize)
	c.Check(buf[:n], DeepEquals, tpm2test.MakeResponse(0, nil))

	c.Check(s.chip.Transfers, HasLen, 0)
}

func (s *stubSuite) TestSendTooLarge(c *C) {
	_, err := s.session.Send(make([]byte, AtmelBufferSize+1))
	c.Check(err, testutil.ErrorIs, ErrInvalidArgument)
}

func (s *stubSuite) TestRecvBufferTooSmall(c *C) {
	_, err := s.session.Recv(make([]byte, 4))
	c.Check(err, testutil.ErrorIs, ErrIO)
}

func (s *stubSuite) TestStatusAndAbort(c *C) {
	c.Check(s.session.Status(), Equals, uint8(1))
	c.Check(s.session.Abort(), IsNil)
}
