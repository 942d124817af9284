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

import (
	"bufio"
	"io"
	"os"

	"github.com/thediveo/faf"
)

// KernelCount returns how many times the kernel has handled the specified IRQ
// so far, summed over all CPUs currently online, according to
// “/proc/interrupts”.
func KernelCount(irq uint) (uint64, bool) {
	f, err := os.Open("/proc/interrupts")
	if err != nil {
		return 0, false
	}
	defer f.Close()
	return kernelCount(f, irq)
}

// kernelCount scans text in “/proc/interrupts” format for the line of the
// specified IRQ and returns the sum of its per-CPU counters.
//
// The first line lists the CPUs online as “CPU0 CPU1 ...”; it tells us how
// many counter columns follow the “irq:” prefix of each IRQ line. Lines for
// architecture-specific interrupts with alphanumeric names come last, so we
// stop at the first line without an IRQ number.
func kernelCount(r io.Reader, irq uint) (uint64, bool) {
	sc := bufio.NewScanner(r)
	if !sc.Scan() {
		return 0, false
	}
	numCPUs := onlineCPUs(sc.Bytes())
	if numCPUs == 0 {
		return 0, false
	}
	for sc.Scan() {
		c := faf.NewBytestring(sc.Bytes())
		if c.SkipSpace() {
			return 0, false
		}
		irqno, ok := c.Uint64()
		if !ok || !c.SkipText(":") {
			return 0, false
		}
		if uint(irqno) != irq {
			continue
		}
		var total uint64
		for range numCPUs {
			if c.SkipSpace() {
				return 0, false
			}
			count, ok := c.Uint64()
			if !ok {
				return 0, false
			}
			total += count
		}
		return total, true
	}
	return 0, false
}

// onlineCPUs returns the number of CPU columns in the “/proc/interrupts”
// header line, or zero if the header is malformed.
func onlineCPUs(header []byte) int {
	c := faf.NewBytestring(header)
	num := c.NumFields()
	for idx := 0; idx < num; idx++ {
		c.SkipSpace()
		if !c.SkipText("CPU") {
			return 0
		}
		if _, ok := c.Uint64(); !ok {
			return 0
		}
	}
	if !c.EOL() && !c.SkipSpace() {
		return 0
	}
	return num
}
