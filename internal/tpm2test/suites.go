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

package tpm2test

import (
	"bytes"

	"github.com/snapcore/snapd/logger"
	snapd_testutil "github.com/snapcore/snapd/testutil"

	. "gopkg.in/check.v1"
)

// BusTest is a base test suite for tests that talk to a mock chip. It
// provides a fake clock so that no test sleeps for real, and captures the
// log output.
type BusTest struct {
	snapd_testutil.BaseTest

	Clock *FakeClock
	Log   *bytes.Buffer
}

func (b *BusTest) SetUpTest(c *C) {
	b.BaseTest.SetUpTest(c)

	b.Clock = NewFakeClock()

	buf, restore := logger.MockLogger()
	b.Log = buf
	b.AddCleanup(restore)
}
