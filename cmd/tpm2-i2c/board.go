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

package main

import (
	"github.com/snapcore/snapd/osutil"
	"golang.org/x/xerrors"

	"github.com/theopolis/tpm-i2c-atmel/internal/config"
	"github.com/theopolis/tpm-i2c-atmel/internal/paths"
)

// loadBoard returns the board configuration with any options supplied on the
// command line applied over it. The default configuration file is optional.
func loadBoard(o *boardOptions) (*config.Board, error) {
	board := config.Default()

	path := o.Config
	if path == "" && osutil.FileExists(paths.BoardConfigFile) {
		path = paths.BoardConfigFile
	}
	if path != "" {
		var err error
		board, err = config.Load(path)
		if err != nil {
			return nil, err
		}
	}

	if o.Backend != "" {
		board.Backend = config.Backend(o.Backend)
	}
	if o.Bus != "" {
		board.Bus = o.Bus
	}
	if o.Address != 0 {
		board.Address = uint16(o.Address)
	}
	if o.Chip != "" {
		board.Chip = o.Chip
	}

	if err := board.Validate(); err != nil {
		return nil, xerrors.Errorf("invalid board options: %w", err)
	}
	return board, nil
}
