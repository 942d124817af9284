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
	"fmt"
	"io"
)

// WriteReport writes the number of handled interrupts, the number of missed
// deadlines, and the non-empty histogram buckets in the text format expected
// by the plotting scripts:
//
//	# irq_count : 5
//	# irq_missed: 0
//	500 5
func WriteReport(w io.Writer, irqCount uint64, h *Histogram) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "# irq_count : %d\n", irqCount)
	fmt.Fprintf(bw, "# irq_missed: %d\n", h.Missed())
	for us, count := range h.Buckets() {
		fmt.Fprintf(bw, "%d %d\n", us, count)
	}
	return bw.Flush()
}
