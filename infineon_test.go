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
	"time"

	. "gopkg.in/check.v1"

	. "github.com/theopolis/tpm-i2c-atmel"
	"github.com/theopolis/tpm-i2c-atmel/i2c"
	"github.com/theopolis/tpm-i2c-atmel/internal/testutil"
	"github.com/theopolis/tpm-i2c-atmel/internal/tpm2test"
	"github.com/theopolis/tpm-i2c-atmel/tis"
)

type infineonSuite struct {
	sessionTestBase

	chip    *tpm2test.MockTISChip
	session *Session
}

var _ = Suite(&infineonSuite{})

func (s *infineonSuite) SetUpTest(c *C) {
	s.sessionTestBase.SetUpTest(c)

	s.chip = tpm2test.NewMockTISChip(infineonAddr)
	s.session = s.attach(c, s.chip, infineonAddr, VariantInfineon)
	s.chip.Reset()
}

func (s *infineonSuite) checkAllLocked(c *C) {
	for i, t := range s.chip.Transfers {
		c.Check(t.Locked, testutil.IsTrue, Commentf("transfer %d", i))
	}
}

func (s *infineonSuite) TestSend(c *C) {
	cmd := tpm2test.MakeCommand(0x17b, []byte{0x00, 0x20})

	n, err := s.session.Send(cmd)
	c.Check(err, IsNil)
	c.Check(n, Equals, len(cmd))
	c.Check(s.chip.Commands, DeepEquals, [][]byte{cmd})
	c.Check(s.chip.StatusWrites, DeepEquals, []tis.Status{tis.StatusGo})
	c.Check(s.chip.Status, Equals, tis.StatusValid|tis.StatusDataAvail)

	writes := s.chip.TransfersWithDir(i2c.Write)
	c.Assert(writes, HasLen, 3)
	c.Check(writes[0].Data, DeepEquals, []byte{byte(tis.RegAccess)})
	c.Check(writes[1].Data, DeepEquals, append([]byte{byte(tis.RegDataFIFO)}, cmd...))
	c.Check(writes[2].Data, DeepEquals, []byte{byte(tis.RegStatus), byte(tis.StatusGo)})

	s.checkAllLocked(c)
}

func (s *infineonSuite) TestSendTooLarge(c *C) {
	_, err := s.session.Send(make([]byte, InfineonBufferSize+1))
	c.Check(err, testutil.ErrorIs, ErrInvalidArgument)
	c.Check(s.chip.Transfers, HasLen, 0)
}

func (s *infineonSuite) TestSendRequestsLocality(c *C) {
	s.chip.Access[0] = tis.AccessValid
	s.chip.GrantAfter = 2

	_, err := s.session.Send(tpm2test.MakeCommand(0x17b, nil))
	c.Check(err, IsNil)
	c.Check(s.chip.AccessWrites[0], DeepEquals, []tis.Access{tis.AccessRequestUse})
	c.Check(s.chip.AccessReads[0], Equals, 2)
	c.Check(s.chip.Commands, HasLen, 1)
}

func (s *infineonSuite) TestSendLocalityTimeout(c *C) {
	s.chip.Access[0] = tis.AccessValid
	s.chip.GrantAfter = -1

	_, err := s.session.Send(tpm2test.MakeCommand(0x17b, nil))
	c.Check(err, testutil.ErrorIs, ErrTimeout)
	c.Check(err, ErrorMatches, `cannot request locality: cannot obtain locality 0: operation timed out`)
	c.Check(s.chip.Commands, HasLen, 0)
}

func (s *infineonSuite) TestSendFIFOWriteRetried(c *C) {
	cmd := tpm2test.MakeCommand(0x17b, nil)

	// The first NAK hits the ACCESS register selection, which is retried.
	s.chip.NAKs = 1
	_, err := s.session.Send(cmd)
	c.Check(err, IsNil)
	c.Check(s.chip.Commands, DeepEquals, [][]byte{cmd})
}

func (s *infineonSuite) TestSendIOError(c *C) {
	s.chip.Absent = true

	_, err := s.session.Send(tpm2test.MakeCommand(0x17b, nil))
	c.Check(err, testutil.ErrorIs, ErrIO)
}

func (s *infineonSuite) TestRecvHeaderOnly(c *C) {
	s.chip.Response = []byte{0x80, 0x01, 0x00, 0x00, 0x00, 0x09, 0x00, 0x00, 0x00, 0x00}
	s.chip.Status = tis.StatusValid | tis.StatusDataAvail

	buf := make([]byte, 64)
	n, err := s.session.Recv(buf)
	c.Check(err, IsNil)
	c.Check(n, Equals, tis.HeaderSize)
	c.Check(buf[:n], DeepEquals, []byte{0x80, 0x01, 0x00, 0x00, 0x00, 0x09, 0x00, 0x00, 0x00, 0x00})

	// No second read of the FIFO is performed.
	reads := largeReads(s.chip.MockAdapter)
	c.Assert(reads, HasLen, 1)
	c.Check(reads[0].Len, Equals, tis.HeaderSize)

	c.Check(s.chip.StatusWrites, DeepEquals, []tis.Status{tis.StatusCommandReady})
	s.checkAllLocked(c)
}

func (s *infineonSuite) TestRecvAppendsBody(c *C) {
	rsp := tpm2test.MakeResponse(0, []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10})
	s.chip.Response = rsp
	s.chip.Status = tis.StatusValid | tis.StatusDataAvail

	buf := make([]byte, 64)
	n, err := s.session.Recv(buf)
	c.Check(err, IsNil)
	c.Check(n, Equals, 20)
	c.Check(buf[:n], DeepEquals, rsp)

	reads := largeReads(s.chip.MockAdapter)
	c.Assert(reads, HasLen, 2)
	c.Check(reads[0].Len, Equals, tis.HeaderSize)
	c.Check(reads[1].Len, Equals, 10)
	c.Check(reads[1].Data, DeepEquals, rsp[tis.HeaderSize:])
}

func (s *infineonSuite) TestSendRecv(c *C) {
	cmd := tpm2test.MakeCommand(0x17b, []byte{0x00, 0x08})
	_, err := s.session.Send(cmd)
	c.Assert(err, IsNil)

	c.Check(s.session.Completion().Complete(s.session.Status()), testutil.IsTrue)

	buf := make([]byte, 64)
	n, err := s.session.Recv(buf)
	c.Check(err, IsNil)
	c.Check(buf[:n], DeepEquals, tpm2test.MakeResponse(0, []byte{0x00, 0x08}))
	c.Check(s.chip.Status, Equals, tis.StatusValid|tis.StatusCommandReady)
}

func (s *infineonSuite) TestRecvBufferTooSmallForHeader(c *C) {
	_, err := s.session.Recv(make([]byte, 9))
	c.Check(err, testutil.ErrorIs, ErrIO)
	c.Check(s.chip.Transfers, HasLen, 0)
}

func (s *infineonSuite) TestRecvDeclaredLengthExceedsCapacity(c *C) {
	s.chip.Response = []byte{0x80, 0x01, 0x00, 0x00, 0x05, 0x14, 0x00, 0x00, 0x00, 0x00}

	_, err := s.session.Recv(make([]byte, 2048))
	c.Check(err, testutil.ErrorIs, ErrIO)
	c.Check(err, ErrorMatches, `declared response length 1300 exceeds the transport capacity of 1260: input/output error`)
	c.Check(largeReads(s.chip.MockAdapter), HasLen, 1)

	// The chip is still made ready for the next command.
	c.Check(s.chip.StatusWrites, DeepEquals, []tis.Status{tis.StatusCommandReady})
}

func (s *infineonSuite) TestRecvReleasesLocalityWhenRequested(c *C) {
	s.chip.Response = tpm2test.MakeResponse(0, nil)
	s.chip.PendingRequest = true

	_, err := s.session.Recv(make([]byte, 64))
	c.Check(err, IsNil)
	c.Check(s.chip.AccessWrites[0], DeepEquals, []tis.Access{tis.AccessActiveLocality})
	c.Check(s.chip.Access[0], Equals, tis.AccessValid)
}

func (s *infineonSuite) TestRecvKeepsLocality(c *C) {
	s.chip.Response = tpm2test.MakeResponse(0, nil)

	_, err := s.session.Recv(make([]byte, 64))
	c.Check(err, IsNil)
	c.Check(s.chip.AccessWrites[0], HasLen, 0)
	c.Check(s.chip.Access[0], Equals, tis.AccessValid|tis.AccessActiveLocality)
}

func (s *infineonSuite) TestStatus(c *C) {
	s.chip.Status = tis.StatusValid | tis.StatusDataExpect
	c.Check(s.session.Status(), Equals, uint8(0x88))
	s.checkAllLocked(c)
}

func (s *infineonSuite) TestStatusUnreadable(c *C) {
	s.chip.Absent = true
	c.Check(s.session.Status(), Equals, uint8(0))
}

func (s *infineonSuite) TestAbort(c *C) {
	_, err := s.session.Send(tpm2test.MakeCommand(0x17b, nil))
	c.Assert(err, IsNil)

	c.Check(s.session.Abort(), IsNil)
	c.Check(s.chip.StatusWrites, DeepEquals, []tis.Status{tis.StatusGo, tis.StatusCommandReady})
	c.Check(s.session.Status(), Equals, uint8(tis.StatusValid|tis.StatusCommandReady))
}

func (s *infineonSuite) TestAbortUsesLongRetry(c *C) {
	s.chip.Absent = true

	err := s.session.Abort()
	c.Check(err, testutil.ErrorIs, ErrIO)
	c.Check(s.chip.Transfers, HasLen, tis.LongRetry.Attempts)
	c.Check(s.Clock.Slept >= time.Duration(tis.LongRetry.Attempts-1)*tis.LongRetry.MinSleep, testutil.IsTrue)
}

func (s *infineonSuite) TestCompletion(c *C) {
	completion := s.session.Completion()
	c.Check(completion, Equals, Completion{
		Mask:      0x90,
		Value:     0x90,
		Canceled:  0x40,
		CanCancel: true})
}
