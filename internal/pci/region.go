// Copyright 2024 Harald Albrecht.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not
// use this file except in compliance with the License. You may obtain a copy
// of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS, WITHOUT
// WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the
// License for the specific language governing permissions and limitations
// under the License.
package pci

import (
	"fmt"
	"os"
	"strconv"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Region is a memory-mapped PCI BAR. Read32 and Write32 issue exactly one
// aligned 32-bit access each; the device registers are assumed to be in host
// byte order, as is the case for little-endian hosts.
type Region struct {
	mem   []byte
	unmap func([]byte) error
}

// MapResource maps the BAR with the specified index of the PCI device at addr
// into memory.
func MapResource(root, addr string, bar int) (*Region, error) {
	path := Path(root, addr) + "/resource" + strconv.Itoa(bar)
	f, err := os.OpenFile(path, os.O_RDWR|os.O_SYNC, 0)
	if err != nil {
		return nil, fmt.Errorf("pci: cannot open BAR%d of %s: %w", bar, addr, err)
	}
	// the mapping stays valid after the file has been closed.
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("pci: cannot stat BAR%d of %s: %w", bar, addr, err)
	}
	if fi.Size() < 4 {
		return nil, fmt.Errorf("pci: BAR%d of %s too small (%d bytes)", bar, addr, fi.Size())
	}
	mem, err := unix.Mmap(int(f.Fd()), 0, int(fi.Size()),
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("pci: cannot map BAR%d of %s: %w", bar, addr, err)
	}
	return &Region{mem: mem, unmap: unix.Munmap}, nil
}

// NewRegion returns a Region backed by ordinary memory.
func NewRegion(mem []byte) *Region {
	return &Region{mem: mem}
}

// Size returns the size of the region in bytes.
func (r *Region) Size() int { return len(r.mem) }

// Read32 reads the 32-bit register at the byte offset off.
func (r *Region) Read32(off uint32) uint32 {
	return atomic.LoadUint32(r.word(off))
}

// Write32 writes v to the 32-bit register at the byte offset off.
func (r *Region) Write32(off, v uint32) {
	atomic.StoreUint32(r.word(off), v)
}

func (r *Region) word(off uint32) *uint32 {
	if off%4 != 0 || uint64(off)+4 > uint64(len(r.mem)) {
		panic(fmt.Sprintf("pci: register offset 0x%x outside of %d byte region",
			off, len(r.mem)))
	}
	return (*uint32)(unsafe.Pointer(&r.mem[off]))
}

// Close unmaps the region; it must not be accessed afterwards.
func (r *Region) Close() error {
	mem := r.mem
	r.mem = nil
	if mem == nil || r.unmap == nil {
		return nil
	}
	return r.unmap(mem)
}
