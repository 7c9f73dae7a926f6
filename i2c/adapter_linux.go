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

package i2c

import (
	"os"
	"runtime"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"
	"golang.org/x/xerrors"

	"github.com/theopolis/tpm-i2c-atmel/internal/paths"
)

const (
	ioctlI2CFuncs = 0x0705
	ioctlI2CRdwr  = 0x0707

	msgFlagRead = 0x0001
)

// i2cMsg corresponds to struct i2c_msg.
type i2cMsg struct {
	addr  uint16
	flags uint16
	len   uint16
	buf   uintptr
}

// i2cRdwrIoctlData corresponds to struct i2c_rdwr_ioctl_data.
type i2cRdwrIoctlData struct {
	msgs  uintptr
	nmsgs uint32
}

var (
	osOpenFile = os.OpenFile

	unixIoctl = func(fd uintptr, req uint, arg uintptr) (uintptr, error) {
		r, _, errno := unix.Syscall(unix.SYS_IOCTL, fd, uintptr(req), arg)
		if errno != 0 {
			return r, errno
		}
		return r, nil
	}
)

// LinuxAdapter is an Adapter backed by a Linux i2c-dev character device.
type LinuxAdapter struct {
	mu    sync.Mutex
	file  *os.File
	funcs Functionality
}

// OpenLinux opens the i2c-dev character device for the specified bus number
// and queries its functionality.
func OpenLinux(bus int) (*LinuxAdapter, error) {
	return OpenLinuxPath(paths.I2CDevice(bus))
}

// OpenLinuxPath opens the i2c-dev character device at the specified path.
func OpenLinuxPath(path string) (*LinuxAdapter, error) {
	f, err := osOpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, xerrors.Errorf("cannot open adapter: %w", err)
	}

	var funcs uint
	if _, err := unixIoctl(f.Fd(), ioctlI2CFuncs, uintptr(unsafe.Pointer(&funcs))); err != nil {
		f.Close()
		return nil, xerrors.Errorf("cannot obtain adapter functionality: %w", err)
	}

	return &LinuxAdapter{file: f, funcs: Functionality(funcs)}, nil
}

// Transfer implements [Adapter.Transfer] using the I2C_RDWR ioctl with a
// single message.
func (a *LinuxAdapter) Transfer(addr Address, dir Direction, buf []byte) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}

	msg := i2cMsg{
		addr: uint16(addr),
		len:  uint16(len(buf)),
		buf:  uintptr(unsafe.Pointer(&buf[0])),
	}
	if dir == Read {
		msg.flags = msgFlagRead
	}
	data := i2cRdwrIoctlData{
		msgs:  uintptr(unsafe.Pointer(&msg)),
		nmsgs: 1,
	}

	n, err := unixIoctl(a.file.Fd(), ioctlI2CRdwr, uintptr(unsafe.Pointer(&data)))
	runtime.KeepAlive(buf)
	runtime.KeepAlive(&msg)
	switch {
	case xerrors.Is(err, unix.ENXIO) || xerrors.Is(err, unix.EREMOTEIO):
		// The address or a data byte was not acknowledged.
		return 0, nil
	case err != nil:
		return 0, err
	}
	if n == 0 {
		// No messages were transferred.
		return 0, nil
	}
	return len(buf), nil
}

func (a *LinuxAdapter) Lock() {
	a.mu.Lock()
}

func (a *LinuxAdapter) Unlock() {
	a.mu.Unlock()
}

func (a *LinuxAdapter) Functionality() Functionality {
	return a.funcs
}

// Close closes the underlying character device.
func (a *LinuxAdapter) Close() error {
	return a.file.Close()
}

func (a *LinuxAdapter) String() string {
	return a.file.Name()
}
