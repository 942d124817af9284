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

import "strconv"

// State of a measurement Task.
type State int

// States a Task passes through, in this order; failures skip the states
// between the failing state and Terminated, except for Disarming once the
// device has been armed.
const (
	Idle State = iota
	Initializing
	Armed
	Running
	Disarming
	Terminated
)

var stateNames = [...]string{
	Idle:         "idle",
	Initializing: "initializing",
	Armed:        "armed",
	Running:      "running",
	Disarming:    "disarming",
	Terminated:   "terminated",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "State(" + strconv.Itoa(int(s)) + ")"
	}
	return stateNames[s]
}
