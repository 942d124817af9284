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
//go:build linux

package irqlat

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// ElevateScheduling switches the calling OS thread to the SCHED_FIFO realtime
// scheduling policy at its maximum priority. If cpus isn't empty, the thread
// is first restricted to the listed CPUs.
//
// The caller must have locked its goroutine to its OS thread, see
// [runtime.LockOSThread], and should never unlock it again, so that no other
// goroutine ever runs on the realtime thread.
func ElevateScheduling(cpus CPUList) error {
	if len(cpus) > 0 {
		var set unix.CPUSet
		for cpu := range cpus.CPUs() {
			set.Set(int(cpu))
		}
		if err := unix.SchedSetaffinity(0, &set); err != nil {
			return fmt.Errorf("%w: cannot set CPU affinity, %w", ErrScheduling, err)
		}
	}
	prio, _, errno := unix.RawSyscall(unix.SYS_SCHED_GET_PRIORITY_MAX, unix.SCHED_FIFO, 0, 0)
	if errno != 0 {
		return fmt.Errorf("%w: cannot query maximum SCHED_FIFO priority, %w",
			ErrScheduling, errno)
	}
	attr := unix.SchedAttr{
		Size:     unix.SizeofSchedAttr,
		Policy:   unix.SCHED_FIFO,
		Priority: uint32(prio),
	}
	if err := unix.SchedSetAttr(0, &attr, 0); err != nil {
		return fmt.Errorf("%w: cannot switch to SCHED_FIFO priority %d, %w",
			ErrScheduling, prio, err)
	}
	return nil
}
