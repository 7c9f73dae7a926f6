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

import "time"

// FakeClock is a tis.Clock that advances when Sleep is called rather than
// blocking.
type FakeClock struct {
	now time.Time

	Sleeps int
	Slept  time.Duration
}

func NewFakeClock() *FakeClock {
	return &FakeClock{now: time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *FakeClock) Now() time.Time {
	return c.now
}

func (c *FakeClock) Sleep(d time.Duration) {
	c.Sleeps++
	c.Slept += d
	c.now = c.now.Add(d)
}

// Advance moves the clock forward without recording a sleep.
func (c *FakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}
