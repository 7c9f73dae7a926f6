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
	"encoding/hex"
	"fmt"
	"io/ioutil"
	"os"
	"strconv"
	"strings"

	"github.com/bsiegert/ranges"
	"github.com/canonical/go-tpm2"
	"github.com/jessevdk/go-flags"
	"golang.org/x/xerrors"

	"github.com/theopolis/tpm-i2c-atmel/internal/tpm2_device"
	"github.com/theopolis/tpm-i2c-atmel/tis"
)

type address uint16

func (a address) MarshalFlag() (string, error) {
	return fmt.Sprintf("0x%02x", uint16(a)), nil
}

func (a *address) UnmarshalFlag(value string) error {
	n, err := strconv.ParseUint(value, 0, 16)
	if err != nil {
		return err
	}
	*a = address(n)
	return nil
}

type localityRange []int

func (r localityRange) MarshalFlag() (string, error) {
	var s []string
	for _, l := range r {
		s = append(s, strconv.Itoa(l))
	}
	return strings.Join(s, ","), nil
}

func (r *localityRange) UnmarshalFlag(value string) error {
	i, err := ranges.Parse(value)
	if err != nil {
		return err
	}
	var out localityRange
	for _, l := range i {
		if l < 0 || l > tis.MaxLocality {
			return fmt.Errorf("invalid locality %d", l)
		}
		out = append(out, int(l))
	}
	*r = append(*r, out...)
	return nil
}

type boardOptions struct {
	Config  string  `long:"config" description:"Path to the board configuration file"`
	Backend string  `long:"backend" description:"Bus backend" choice:"linux" choice:"periph"`
	Bus     string  `long:"bus" description:"Bus number or name"`
	Address address `long:"address" description:"7-bit address of the TPM"`
	Chip    string  `long:"chip" description:"TPM chip variant" choice:"atmel" choice:"infineon" choice:"stub"`
}

type options struct {
	Board boardOptions `group:"Board options"`

	Probe      probeCommand      `command:"probe" description:"Attach the TPM and print its parameters"`
	Localities localitiesCommand `command:"localities" description:"Print the ACCESS register of each locality"`
	Send       sendCommand       `command:"send" description:"Send a raw command and print the response"`
	Properties propertiesCommand `command:"properties" description:"Print fixed TPM properties"`
}

var opts options

var openDevice = tpm2_device.OpenDevice

func openBoardDevice() (tpm2_device.TPMDevice, error) {
	board, err := loadBoard(&opts.Board)
	if err != nil {
		return nil, err
	}
	return openDevice(board)
}

type probeCommand struct{}

func (*probeCommand) Execute(args []string) error {
	dev, err := openBoardDevice()
	if err != nil {
		return err
	}
	defer dev.Close()

	session := dev.Session()
	timeouts := session.Timeouts()
	fmt.Printf("%v registered as %v\n", dev, session.Handle())
	fmt.Printf("timeouts: A=%v B=%v C=%v D=%v\n", timeouts.A, timeouts.B, timeouts.C, timeouts.D)
	return nil
}

type localitiesCommand struct {
	Localities localityRange `long:"localities" default:"0-4" description:"Which localities to read"`
}

func (c *localitiesCommand) Execute(args []string) error {
	dev, err := openBoardDevice()
	if err != nil {
		return err
	}
	defer dev.Close()

	for _, l := range c.Localities {
		access, err := dev.Session().LocalityAccess(l)
		if err != nil {
			return xerrors.Errorf("cannot read locality %d: %w", l, err)
		}
		fmt.Printf("locality %d: ACCESS=0x%02x\n", l, uint8(access))
	}
	return nil
}

type sendCommand struct {
	Positional struct {
		Command string `positional-arg-name:"hex-encoded command"`
	} `positional-args:"true" required:"true"`
}

func (c *sendCommand) Execute(args []string) error {
	cmd, err := hex.DecodeString(c.Positional.Command)
	if err != nil {
		return xerrors.Errorf("cannot decode command: %w", err)
	}

	dev, err := openBoardDevice()
	if err != nil {
		return err
	}
	defer dev.Close()

	transport, err := dev.Open()
	if err != nil {
		return err
	}
	defer transport.Close()

	if _, err := transport.Write(cmd); err != nil {
		return xerrors.Errorf("cannot send command: %w", err)
	}
	rsp, err := ioutil.ReadAll(transport)
	if err != nil {
		return xerrors.Errorf("cannot receive response: %w", err)
	}
	fmt.Println(hex.EncodeToString(rsp))
	return nil
}

type propertiesCommand struct{}

func (*propertiesCommand) Execute(args []string) error {
	dev, err := openBoardDevice()
	if err != nil {
		return err
	}
	defer dev.Close()

	tpm, err := tpm2.OpenTPMDevice(dev)
	if err != nil {
		return xerrors.Errorf("cannot open TPM: %w", err)
	}
	defer tpm.Close()

	props, err := tpm.GetCapabilityTPMProperties(tpm2.PropertyManufacturer, 1)
	if err != nil {
		return xerrors.Errorf("cannot fetch manufacturer: %w", err)
	}
	if len(props) > 0 {
		v := props[0].Value
		fmt.Printf("manufacturer: %q\n", string([]byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}))
	}

	props, err = tpm.GetCapabilityTPMProperties(tpm2.PropertyMaxResponseSize, 1)
	if err != nil {
		return xerrors.Errorf("cannot fetch maximum response size: %w", err)
	}
	if len(props) > 0 {
		fmt.Printf("max response size: %d\n", props[0].Value)
	}
	return nil
}

func run() error {
	_, err := flags.Parse(&opts)
	return err
}

func main() {
	if err := run(); err != nil {
		if e, ok := err.(*flags.Error); ok && e.Type == flags.ErrHelp {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}
