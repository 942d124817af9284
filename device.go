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

import "fmt"

// Device controls an interrupt generator whose identity has been verified.
type Device struct {
	port  RegisterPort
	clock uint32
}

// RawSample is a pair of tick counts as read from the device: when the most
// recent interrupt was generated and the current tick count.
type RawSample struct {
	Start uint32
	Now   uint32
}

// OpenDevice checks the identity of the interrupt generator behind port and
// returns a Device for it. Nothing gets written to the device in case of a
// mismatch.
func OpenDevice(port RegisterPort) (*Device, error) {
	d := &Device{port: port}
	if magic := d.read(RegMAGIC); magic != Magic {
		return nil, fmt.Errorf("%w: magic 0x%08x instead of 0x%08x",
			ErrIdentityMismatch, magic, uint32(Magic))
	}
	return d, nil
}

func (d *Device) read(reg uint32) uint32 { return d.port.Read32(RegisterBase + reg) }
func (d *Device) write(reg, v uint32) { d.port.Write32(RegisterBase+reg, v) }

// Arm starts periodic interrupt generation at frequencyHz, which must not be
// higher than the device clock, nor so low that the clock divider doesn't fit
// into 24 bits.
func (d *Device) Arm(frequencyHz uint32) error {
	fclk := d.read(RegFCLK)
	if frequencyHz == 0 || fclk/frequencyHz == 0 {
		return fmt.Errorf("%w: %d Hz requested from a %d Hz clock",
			ErrDividerUnderflow, frequencyHz, fclk)
	}
	div := fclk / frequencyHz
	if div > ctlDividerMask {
		return fmt.Errorf("%w: %d Hz requested from a %d Hz clock",
			ErrDividerOverflow, frequencyHz, fclk)
	}
	d.clock = fclk
	d.write(RegCTL, ctlStart|div)
	return nil
}

// Disarm stops interrupt generation.
func (d *Device) Disarm() { d.write(RegCTL, 0) }

// Clock returns the device clock frequency in Hz, as read when arming.
func (d *Device) Clock() uint32 { return d.clock }

// Sample reads the tick counts of the most recent interrupt and of now, in
// this order.
func (d *Device) Sample() RawSample {
	start := d.read(RegSTART)
	return RawSample{Start: start, Now: d.read(RegNOW)}
}

// Generated returns the number of interrupts the device has generated so far.
func (d *Device) Generated() uint32 { return d.read(RegCOUNT) }
