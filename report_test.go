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
	"errors"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("EPIPE") }

var _ = Describe("report", func() {

	It("writes an empty report", func() {
		var sb strings.Builder
		Expect(WriteReport(&sb, 0, NewHistogram())).To(Succeed())
		Expect(sb.String()).To(Equal("# irq_count : 0\n# irq_missed: 0\n"))
	})

	It("writes counts and non-empty buckets in ascending order", func() {
		h := NewHistogram()
		for range 5 {
			h.RecordTicks(0, 500, 1_000_000)
		}
		h.RecordTicks(0, 12, 1_000_000)
		h.RecordTicks(0, 1_000_000, 1_000_000)
		var sb strings.Builder
		Expect(WriteReport(&sb, 7, h)).To(Succeed())
		Expect(sb.String()).To(Equal(`# irq_count : 7
# irq_missed: 1
12 1
500 5
`))
	})

	It("reports write errors", func() {
		Expect(WriteReport(failingWriter{}, 0, NewHistogram())).To(MatchError("EPIPE"))
	})

})
