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

import "errors"

// Error kinds reported by a measurement run; use [errors.Is] to check for
// them, as the returned errors carry further details.
var (
	// ErrScheduling indicates that the realtime scheduling policy could not be
	// applied to the measurement thread. No hardware has been touched.
	ErrScheduling = errors.New("cannot switch to realtime scheduling")
	// ErrDeviceOpen indicates that the register or interrupt session could
	// not be opened.
	ErrDeviceOpen = errors.New("cannot open device")
	// ErrIdentityMismatch indicates a wrong or absent device.
	ErrIdentityMismatch = errors.New("device identity mismatch")
	// ErrDividerUnderflow indicates an interrupt frequency beyond what the
	// device clock can generate.
	ErrDividerUnderflow = errors.New("frequency divider underflow")
	// ErrDividerOverflow indicates an interrupt frequency too low for the
	// 24 bit divider of the device.
	ErrDividerOverflow = errors.New("frequency divider overflow")
	// ErrWait indicates a failure of the interrupt wait, other than a timeout.
	ErrWait = errors.New("interrupt wait failed")
	// ErrConfiguration indicates malformed configuration arguments.
	ErrConfiguration = errors.New("invalid configuration")
)
