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
	"strconv"
	"strings"

	"github.com/thediveo/irqlat"
	"github.com/thediveo/irqlat/internal/pci"
)

// defaultPCIID identifies the FPGA's PCIe endpoint.
var defaultPCIID = pci.ID{Vendor: 0x10ee, Device: 0xeb01}

const usage = `usage: irqlat [-freq <hz>] [-count <n>] [-cpus <list>] [-pci <vendor:device>] [-v <level>]

  -freq <hz>              interrupt generation frequency (default 1000)
  -count <n>              number of interrupts to measure, 0 for until interrupted (default 0)
  -cpus <list>            run the measurement on the listed CPUs only, such as 0,2-3
  -pci <vendor:device>    PCI ID of the interrupt generator (default 10ee:eb01)
  -v <level>              diagnostic log verbosity (default 0)

Numbers are decimal, or hexadecimal when prefixed with 0x.
`

// options from the command line.
type options struct {
	irqlat.Config
	PCI       pci.ID
	Verbosity int
}

// parseArgs parses the command line arguments (without the program name),
// which always come in “-flag value” pairs. On error, the returned options
// are zero.
func parseArgs(args []string) (options, error) {
	opts := options{
		Config: irqlat.DefaultConfig(),
		PCI:    defaultPCIID,
	}
	if len(args)%2 != 0 {
		return options{}, fmt.Errorf("%w: arguments must come in flag-value pairs", irqlat.ErrConfiguration)
	}
	for idx := 0; idx < len(args); idx += 2 {
		flag, value := args[idx], args[idx+1]
		var err error
		switch flag {
		case "-freq":
			opts.FrequencyHz, err = parseNumber(value)
		case "-count":
			opts.SampleCount, err = parseNumber(value)
		case "-cpus":
			cpus, ok := irqlat.ParseCPUList(value)
			if !ok {
				err = fmt.Errorf("invalid CPU list %q", value)
			}
			opts.CPUs = cpus
		case "-pci":
			opts.PCI, err = pci.ParseID(value)
		case "-v":
			var v uint32
			v, err = parseNumber(value)
			opts.Verbosity = int(v)
		default:
			return options{}, fmt.Errorf("%w: unknown flag %q", irqlat.ErrConfiguration, flag)
		}
		if err != nil {
			return options{}, fmt.Errorf("%w: %s: %w", irqlat.ErrConfiguration, flag, err)
		}
	}
	if err := opts.Validate(); err != nil {
		return options{}, err
	}
	return opts, nil
}

// parseNumber parses an unsigned 32-bit decimal number, or a hexadecimal one
// with “0x” prefix.
func parseNumber(s string) (uint32, error) {
	digits, base := s, 10
	if len(s) > 2 && strings.HasPrefix(s, "0x") {
		digits, base = s[2:], 16
	}
	num, err := strconv.ParseUint(digits, base, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	return uint32(num), nil
}
