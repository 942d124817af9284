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
Package pci locates PCI devices through sysfs and gives access to their memory
BARs and configuration space, without needing any kernel driver beyond what
sysfs already offers.

BARs are mapped from the “resourceN” pseudo files in
“/sys/bus/pci/devices/<address>/”, so register accesses end up as single
32-bit loads and stores on the device memory.
*/
package pci

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/thediveo/faf"
	"github.com/thediveo/irqlat/internal/sysfs"
)

const devicesPath = "/sys/bus/pci/devices/"

// ID identifies a PCI device model by its vendor and device IDs.
type ID struct {
	Vendor uint16
	Device uint16
}

// ParseID parses an ID in lspci's “vvvv:dddd” hex notation.
func ParseID(s string) (ID, error) {
	vendor, device, ok := strings.Cut(s, ":")
	if !ok {
		return ID{}, fmt.Errorf("pci: invalid ID %q, expected vendor:device", s)
	}
	v, err := strconv.ParseUint(vendor, 16, 16)
	if err != nil {
		return ID{}, fmt.Errorf("pci: invalid vendor ID %q", vendor)
	}
	d, err := strconv.ParseUint(device, 16, 16)
	if err != nil {
		return ID{}, fmt.Errorf("pci: invalid device ID %q", device)
	}
	return ID{Vendor: uint16(v), Device: uint16(d)}, nil
}

func (id ID) String() string { return fmt.Sprintf("%04x:%04x", id.Vendor, id.Device) }

// Find returns the address of the PCI device with the specified ID, as listed
// in sysfs below root ("" for the real sysfs). If there are multiple matching
// devices, the one with the lowest address wins.
func Find(root string, id ID) (addr string, ok bool) {
	var addrs []string
	for entry := range faf.ReadDir(root + devicesPath) {
		name := string(entry.Name)
		if strings.HasPrefix(name, ".") {
			continue
		}
		vendor, ok := sysfs.ReadHex(root + devicesPath + name + "/vendor")
		if !ok || vendor != uint64(id.Vendor) {
			continue
		}
		device, ok := sysfs.ReadHex(root + devicesPath + name + "/device")
		if !ok || device != uint64(id.Device) {
			continue
		}
		addrs = append(addrs, name)
	}
	if len(addrs) == 0 {
		return "", false
	}
	return slices.Min(addrs), true
}

// IRQ returns the Linux IRQ number assigned to the device at addr.
func IRQ(root, addr string) (uint, bool) {
	irq, ok := sysfs.ReadUint(root + devicesPath + addr + "/irq")
	if !ok || irq == 0 {
		return 0, false
	}
	return uint(irq), true
}

// Path returns the sysfs directory of the device at addr.
func Path(root, addr string) string {
	return root + devicesPath + addr
}
