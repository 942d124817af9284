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

import "fmt"

// Config of a measurement.
type Config struct {
	FrequencyHz uint32  // interrupt generation frequency
	SampleCount uint32  // number of interrupts to measure, 0 for no limit
	CPUs        CPUList // CPUs to run the measurement on, empty for no restriction
}

// Default configuration values.
const (
	DefaultFrequencyHz = 1000
	DefaultSampleCount = 0
)

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		FrequencyHz: DefaultFrequencyHz,
		SampleCount: DefaultSampleCount,
	}
}

// Validate checks the configuration for errors.
func (c Config) Validate() error {
	if c.FrequencyHz == 0 {
		return fmt.Errorf("%w: frequency must be at least 1Hz", ErrConfiguration)
	}
	for _, r := range c.CPUs {
		if r[0] > r[1] {
			return fmt.Errorf("%w: invalid CPU range %d-%d", ErrConfiguration, r[0], r[1])
		}
	}
	return nil
}
