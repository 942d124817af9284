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
	"encoding/binary"
	"fmt"
	"os"
)

const (
	commandReg  = 0x04
	intxDisable = 1 << 10
)

// Config gives access to the configuration space of a PCI device.
type Config struct {
	f *os.File
}

// OpenConfig opens the configuration space of the PCI device at addr.
func OpenConfig(root, addr string) (*Config, error) {
	f, err := os.OpenFile(Path(root, addr)+"/config", os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("pci: cannot open config space of %s: %w", addr, err)
	}
	return &Config{f: f}, nil
}

// Command returns the current value of the command register.
func (c *Config) Command() (uint16, error) {
	var b [2]byte
	if _, err := c.f.ReadAt(b[:], commandReg); err != nil {
		return 0, fmt.Errorf("pci: cannot read command register: %w", err)
	}
	return binary.LittleEndian.Uint16(b[:]), nil
}

// EnableINTx clears the “interrupt disable” bit in the command register if
// set. uio_pci_generic sets this bit when an interrupt fires in order to
// silence the interrupt line until user space has handled the interrupt.
func (c *Config) EnableINTx() error {
	cmd, err := c.Command()
	if err != nil {
		return err
	}
	if cmd&intxDisable == 0 {
		return nil
	}
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], cmd&^intxDisable)
	if _, err := c.f.WriteAt(b[:], commandReg); err != nil {
		return fmt.Errorf("pci: cannot write command register: %w", err)
	}
	return nil
}

// Close the configuration space.
func (c *Config) Close() error {
	return c.f.Close()
}
