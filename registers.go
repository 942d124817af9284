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
package irqlat

import "time"

// Register byte offsets, relative to RegisterBase.
const (
	RegCTL   = 0x00 // control: start bit and frequency divider
	RegTOGL  = 0x08 // toggle counter, for testing interrupt generation
	RegMAGIC = 0x0c // identity
	RegFCLK  = 0x10 // clock frequency in Hz
	RegSTART = 0x14 // tick count when the latest interrupt was generated
	RegNOW   = 0x18 // current tick count
	RegCOUNT = 0x1c // number of interrupts generated so far
)

const (
	// RegisterBase is the offset of the interrupt generator's registers in its
	// BAR.
	RegisterBase = 0x80
	// Magic is the identity of the interrupt generator in RegMAGIC.
	Magic = 0xbadcafee

	ctlStart       = 1 << 31
	ctlDividerMask = 1<<24 - 1
)

// IRQMask is the interrupt source bit of the interrupt generator.
const IRQMask = 1 << 1

// WaitTimeout bounds each wait for an interrupt, and thus also how long it
// takes at most to notice a cancelled measurement.
const WaitTimeout = 1000 * time.Millisecond

// RegisterPort reads and writes 32-bit device registers at byte offsets.
type RegisterPort interface {
	Read32(off uint32) uint32
	Write32(off, v uint32)
}

// InterruptWaiter blocks until an interrupt occurs or the timeout elapses.
// On timeout it returns a zero mask and no error; a non-nil error signals a
// failure of the wait itself.
type InterruptWaiter interface {
	Wait(timeout time.Duration) (mask uint32, err error)
}

// RegisterSession is an open RegisterPort.
type RegisterSession interface {
	RegisterPort
	Close() error
}

// InterruptSession is an open InterruptWaiter. It may additionally implement
// IRQNumber() (uint, bool) in order to report its Linux IRQ number.
type InterruptSession interface {
	InterruptWaiter
	Close() error
}

// Backend opens the register and interrupt sessions of an interrupt
// generator.
type Backend interface {
	OpenRegisters() (RegisterSession, error)
	OpenInterrupts() (InterruptSession, error)
}

type irqNumberer interface {
	IRQNumber() (uint, bool)
}
