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
	"math/rand"
	"time"
)

// Clock is the time source used by the polling and retry loops.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

type systemClock struct{}

func (systemClock) Now() time.Time        { return time.Now() }
func (systemClock) Sleep(d time.Duration) { time.Sleep(d) }

// SystemClock is the Clock backed by the time package.
var SystemClock Clock = systemClock{}

var randInt63n = rand.Int63n

// sleepRange sleeps for a random duration between min and max inclusive.
func sleepRange(clock Clock, min, max time.Duration) {
	d := min
	if max > min {
		d += time.Duration(randInt63n(int64(max-min) + 1))
	}
	if d > 0 {
		clock.Sleep(d)
	}
}

// RetryProfile describes how many times a transfer is attempted and how long
// to sleep between failed attempts.
type RetryProfile struct {
	Attempts int
	MinSleep time.Duration
	MaxSleep time.Duration

	// Trapdoor indicates that the profile is a last resort limit on an
	// otherwise unbounded loop. Reads that exhaust it fail with ErrTimeout
	// rather than ErrIO.
	Trapdoor bool
}

var (
	// TrapdoorRetry keeps retrying for approximately 5 minutes.
	TrapdoorRetry = RetryProfile{Attempts: 60000, MinSleep: 5 * time.Millisecond, MaxSleep: 5 * time.Millisecond, Trapdoor: true}

	// ShortRetry is used for ordinary register access.
	ShortRetry = RetryProfile{Attempts: 3, MinSleep: 55 * time.Microsecond, MaxSleep: 65 * time.Microsecond}

	// LongRetry is used for operations with an unpredictable settling time,
	// such as signalling command ready to abort an in-flight command.
	LongRetry = RetryProfile{Attempts: 50, MinSleep: 200 * time.Millisecond, MaxSleep: 220 * time.Millisecond}

	// SingleAttempt performs a transfer exactly once.
	SingleAttempt = RetryProfile{Attempts: 1}
)
