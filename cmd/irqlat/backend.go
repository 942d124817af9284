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
package main

import (
	"fmt"

	"github.com/thediveo/irqlat"
	"github.com/thediveo/irqlat/internal/pci"
	"github.com/thediveo/irqlat/internal/uio"
)

const (
	bridgeBAR    = 0 // PCIe bridge control registers
	generatorBAR = 1 // interrupt generator registers

	bridgeCtl          = 0x00
	bridgeGlobalIRQEna = 1 << 31
	bridgeSlaveIRQEna  = 1 << 9
)

// pciBackend opens the interrupt generator on the FPGA's PCIe endpoint: the
// generator registers in BAR1 and the endpoint's interrupt through
// uio_pci_generic. The endpoint gets located when opening the registers.
type pciBackend struct {
	root string // sysfs and /dev root, "" in production
	id   pci.ID
	addr string // PCI address, once located
}

var _ irqlat.Backend = (*pciBackend)(nil)

func newPCIBackend(root string, id pci.ID) *pciBackend {
	return &pciBackend{root: root, id: id}
}

// locate the PCI address of the endpoint, unless already known.
func (b *pciBackend) locate() error {
	if b.addr != "" {
		return nil
	}
	addr, ok := pci.Find(b.root, b.id)
	if !ok {
		return fmt.Errorf("no PCI device %s", b.id)
	}
	b.addr = addr
	return nil
}

func (b *pciBackend) OpenRegisters() (irqlat.RegisterSession, error) {
	if err := b.locate(); err != nil {
		return nil, err
	}
	regs, err := pci.MapResource(b.root, b.addr, generatorBAR)
	if err != nil {
		return nil, err
	}
	return regs, nil
}

// OpenInterrupts enables the bridge to forward the interrupts of its bus
// slaves, including the interrupt generator, and then opens the endpoint's
// UIO node.
func (b *pciBackend) OpenInterrupts() (irqlat.InterruptSession, error) {
	if err := b.locate(); err != nil {
		return nil, err
	}
	bridge, err := pci.MapResource(b.root, b.addr, bridgeBAR)
	if err != nil {
		return nil, err
	}
	bridge.Write32(bridgeCtl, bridge.Read32(bridgeCtl)|bridgeGlobalIRQEna|bridgeSlaveIRQEna)
	if err := bridge.Close(); err != nil {
		return nil, fmt.Errorf("cannot unmap bridge registers: %w", err)
	}
	irqs, err := uio.Open(b.root, b.addr, irqlat.IRQMask)
	if err != nil {
		return nil, err
	}
	return irqs, nil
}
