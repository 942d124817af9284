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
	"iter"

	"github.com/thediveo/faf"
)

// maxCPUs is the highest CPU number plus one accepted in CPU lists; it
// matches the Linux kernel's upper CONFIG_NR_CPUS limit.
const maxCPUs = 8192

// CPUList is a list of CPU number ranges, with the first and last CPU number
// of each range being inclusive.
type CPUList [][2]uint

// ParseCPUList parses a list of CPUs in the Linux kernel's textual CPU list
// format, such as “0,2-3”. An empty string yields an empty list.
func ParseCPUList(s string) (CPUList, bool) {
	c := faf.NewBytestring([]byte(s))
	cpus := CPUList{}
	for !c.EOL() {
		from, ok := c.Uint64()
		if !ok {
			return nil, false
		}
		to := from
		if c.SkipText("-") {
			to, ok = c.Uint64()
			if !ok || to < from {
				return nil, false
			}
		}
		if to >= maxCPUs {
			return nil, false
		}
		cpus = append(cpus, [2]uint{uint(from), uint(to)})
		if c.EOL() {
			break
		}
		if !c.SkipText(",") || c.EOL() {
			return nil, false
		}
	}
	return cpus, true
}

// CPUs returns an iterator over the individual CPU numbers in the list.
func (l CPUList) CPUs() iter.Seq[uint] {
	return func(yield func(uint) bool) {
		for _, r := range l {
			for cpu := r[0]; cpu <= r[1]; cpu++ {
				if !yield(cpu) {
					return
				}
			}
		}
	}
}
