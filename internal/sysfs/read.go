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

// Package sysfs reads single-line pseudo files from sysfs and procfs.
package sysfs

import (
	"github.com/thediveo/faf"
)

// ReadLine reads the pseudo file at path, reusing buf if it has enough
// capacity, and returns its contents with a single trailing newline removed.
// Pseudo files without a trailing newline are considered broken.
func ReadLine(path string, buf []byte) ([]byte, bool) {
	contents, ok := faf.ReadFile(path, buf)
	if !ok || len(contents) < 1 || contents[len(contents)-1] != '\n' {
		return nil, false
	}
	return contents[:len(contents)-1], true
}

// ReadUint reads a decimal number, such as an IRQ number, from the pseudo
// file at path.
func ReadUint(path string) (uint64, bool) {
	line, ok := ReadLine(path, nil)
	if !ok {
		return 0, false
	}
	return faf.ParseUint(line)
}

// ReadHex reads a hexadecimal number in “0x…” notation, such as a PCI vendor
// ID, from the pseudo file at path.
func ReadHex(path string) (uint64, bool) {
	line, ok := ReadLine(path, nil)
	if !ok {
		return 0, false
	}
	return ParseHex(line)
}

// ParseHex parses b as a hexadecimal number with an optional “0x” prefix, as
// found in PCI vendor and device nodes. It needs at least one hex digit and
// fails on any other trailing characters, as well as on overflow.
func ParseHex(b []byte) (num uint64, ok bool) {
	if len(b) >= 2 && b[0] == '0' && b[1] == 'x' {
		b = b[2:]
	}
	if len(b) == 0 || len(b) > 16 {
		return 0, false
	}
	for _, ch := range b {
		var digit byte
		switch {
		case ch >= '0' && ch <= '9':
			digit = ch - '0'
		case ch >= 'a' && ch <= 'f':
			digit = ch - 'a' + 10
		case ch >= 'A' && ch <= 'F':
			digit = ch - 'A' + 10
		default:
			return 0, false
		}
		num = num<<4 | uint64(digit)
	}
	return num, true
}
