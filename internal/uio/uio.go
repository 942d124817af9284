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
/*
Package uio waits for interrupts of PCI devices bound to the Linux
uio_pci_generic driver.

Each interrupt increments an event counter in the kernel and wakes up
readers of the device's “/dev/uioN” node, which then receive the new 32-bit
counter value. uio_pci_generic masks the interrupt using the INTx disable
bit in the device's PCI command register before waking readers, so a Waiter
unmasks it again after each interrupt.
*/
package uio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/thediveo/faf"
	"github.com/thediveo/irqlat/internal/pci"
	"golang.org/x/sys/unix"
)

// Waiter waits for the interrupts of a single UIO device.
type Waiter struct {
	f      *os.File
	mask   uint32
	rearm  func() error
	closer func() error
	irq    uint
	hasIRQ bool
	events uint32
}

// Node returns the name of the UIO node (such as “uio0”) of the PCI device
// at addr.
func Node(root, addr string) (string, bool) {
	for entry := range faf.ReadDir(pci.Path(root, addr) + "/uio") {
		name := string(entry.Name)
		if strings.HasPrefix(name, "uio") {
			return name, true
		}
	}
	return "", false
}

// Open returns a Waiter for the PCI device at addr, which must be bound to
// uio_pci_generic. Wait reports the specified mask whenever the device's
// interrupt fired.
func Open(root, addr string, mask uint32) (*Waiter, error) {
	node, ok := Node(root, addr)
	if !ok {
		return nil, fmt.Errorf("uio: PCI device %s not bound to uio_pci_generic", addr)
	}
	cfg, err := pci.OpenConfig(root, addr)
	if err != nil {
		return nil, err
	}
	f, err := os.OpenFile(root+"/dev/"+node, os.O_RDWR, 0)
	if err != nil {
		_ = cfg.Close()
		return nil, fmt.Errorf("uio: cannot open %s: %w", node, err)
	}
	w := newWaiter(f, mask, cfg.EnableINTx, cfg.Close)
	w.irq, w.hasIRQ = pci.IRQ(root, addr)
	if err := w.rearm(); err != nil {
		_ = w.Close()
		return nil, err
	}
	return w, nil
}

func newWaiter(f *os.File, mask uint32, rearm, closer func() error) *Waiter {
	return &Waiter{
		f:      f,
		mask:   mask,
		rearm:  rearm,
		closer: closer,
	}
}

// Wait blocks until either the interrupt fires or the timeout elapses. It
// returns the Waiter's mask in the former case, and a zero mask in the latter
// case. A wake-up by a signal also counts as a timeout. Any other failure is
// returned as an error.
func (w *Waiter) Wait(timeout time.Duration) (uint32, error) {
	fds := []unix.PollFd{{Fd: int32(w.f.Fd()), Events: unix.POLLIN}}
	n, err := unix.Poll(fds, int(timeout/time.Millisecond))
	if err != nil {
		if errors.Is(err, unix.EINTR) {
			return 0, nil
		}
		return 0, fmt.Errorf("uio: poll failed: %w", err)
	}
	if n == 0 {
		return 0, nil
	}
	if fds[0].Revents&unix.POLLIN == 0 {
		return 0, fmt.Errorf("uio: poll reported events 0x%x", fds[0].Revents)
	}
	var count [4]byte
	if _, err := io.ReadFull(w.f, count[:]); err != nil {
		return 0, fmt.Errorf("uio: cannot read event count: %w", err)
	}
	w.events = binary.NativeEndian.Uint32(count[:])
	if w.rearm != nil {
		if err := w.rearm(); err != nil {
			return 0, err
		}
	}
	return w.mask, nil
}

// Events returns the kernel's interrupt event count as of the most recent
// interrupt.
func (w *Waiter) Events() uint32 { return w.events }

// IRQNumber returns the Linux IRQ number of the device, if known.
func (w *Waiter) IRQNumber() (uint, bool) { return w.irq, w.hasIRQ }

// Close the UIO node and the device's configuration space.
func (w *Waiter) Close() error {
	err := w.f.Close()
	if w.closer != nil {
		err = errors.Join(err, w.closer())
	}
	return err
}
