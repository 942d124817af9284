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
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("measurement task", func() {

	var (
		j       journal
		regs    *fakeRegisters
		waiter  *fakeWaiter
		backend *fakeBackend
		hist    *Histogram
		states  []State
		cfg     Config
	)

	BeforeEach(func() {
		j = nil
		states = nil
		regs = newFakeRegisters(&j, Magic, 1_000_000)
		regs.ticker(1_000_000, 1_000, 500)
		regs.regs[RegisterBase+RegCOUNT] = 42
		waiter = &fakeWaiter{j: &j}
		backend = &fakeBackend{regs: regs, irqs: waiter, j: &j}
		hist = NewHistogram()
		cfg = DefaultConfig()
	})

	newTask := func(opts ...Option) *Task {
		return NewTask(cfg, backend, hist, append([]Option{
			WithLogger(GinkgoLogr),
			WithScheduling(func() error { j.add("elevate"); return nil }),
			WithStateObserver(func(s State) { states = append(states, s) }),
		}, opts...)...)
	}

	// started returns the journal entries from arming onwards.
	started := func() journal {
		for idx, entry := range j {
			if entry == "write 0x00=0x800003e8" {
				return j[idx:]
			}
		}
		return nil
	}

	It("names its states", func() {
		Expect(Idle.String()).To(Equal("idle"))
		Expect(Terminated.String()).To(Equal("terminated"))
		Expect(State(42).String()).To(Equal("State(42)"))
	})

	It("measures the configured number of interrupts", func() {
		cfg.SampleCount = 5
		regs.ticker(0, 1_000_000, 500)

		res, err := newTask().Run(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(res.IRQCount).To(Equal(uint64(5)))
		Expect(res.Histogram).To(BeIdenticalTo(hist))
		Expect(buckets(hist)).To(Equal(map[uint]uint64{500: 5}))
		Expect(hist.Missed()).To(BeZero())
		Expect(res.Clock).To(Equal(uint32(1_000_000)))
		Expect(res.GeneratedOK).To(BeTrue())
		Expect(res.Generated).To(Equal(uint32(42)))
		Expect(res.KernelCountOK).To(BeFalse())
		Expect(res.State).To(Equal(Terminated))

		Expect(states).To(HaveExactElements(
			Initializing, Armed, Running, Disarming, Terminated))
		Expect(waiter.timeouts).To(HaveLen(5))
		Expect(waiter.timeouts).To(HaveEach(time.Second))
		Expect(j[:5]).To(HaveExactElements(
			"elevate",
			"open registers", "read 0x0c",
			"open interrupts",
			"read 0x10"))
		Expect(started()[len(started())-4:]).To(HaveExactElements(
			"read 0x1c",
			"write 0x00=0x00000000",
			"close interrupts",
			"close registers"))
	})

	It("ignores wake-ups without interrupts", func() {
		cfg.SampleCount = 2
		waiter.results = []waitResult{{mask: 0}, {mask: IRQMask}, {mask: 0}, {mask: 0}, {mask: 1 << 7}}
		res, err := newTask().Run(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(res.IRQCount).To(Equal(uint64(2)))
		Expect(hist.Observed()).To(Equal(uint64(2)))
		Expect(buckets(hist)).To(Equal(map[uint]uint64{500: 2}))
		Expect(waiter.timeouts).To(HaveLen(5))
	})

	It("counts missed deadlines", func() {
		cfg.SampleCount = 3
		regs.ticker(0, 2_000_000, 1_500_000)
		res, err := newTask().Run(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(res.IRQCount).To(Equal(uint64(3)))
		Expect(hist.Missed()).To(Equal(uint64(3)))
		Expect(buckets(hist)).To(BeEmpty())
	})

	When("cancelled", func() {

		It("stops after the interrupt in flight", func() {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			waiter.onWait = func(n int) {
				if n == 3 {
					cancel()
					cancel()
				}
			}
			res, err := newTask().Run(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.IRQCount).To(Equal(uint64(3)))
			Expect(waiter.timeouts).To(HaveLen(3))
			Expect(regs.writes).To(HaveExactElements(uint32(1<<31|1000), uint32(0)))
		})

		It("stops after a timed out wait", func() {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			waiter.results = []waitResult{{mask: IRQMask}, {mask: 0}}
			waiter.onWait = func(n int) {
				if n == 2 {
					cancel()
				}
			}
			res, err := newTask().Run(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.IRQCount).To(Equal(uint64(1)))
			Expect(waiter.timeouts).To(HaveLen(2))
		})

		It("still handles the interrupt in flight", func() {
			cfg.SampleCount = 1
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			res, err := newTask().Run(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.IRQCount).To(Equal(uint64(1)))
		})

	})

	It("keeps partial results when waiting fails", func() {
		waiter.results = []waitResult{
			{mask: IRQMask}, {mask: IRQMask}, {err: errors.New("D'OH!")}}
		res, err := newTask().Run(context.Background())
		Expect(err).To(And(MatchError(ErrWait), MatchError(ContainSubstring("D'OH!"))))
		Expect(res.IRQCount).To(Equal(uint64(2)))
		Expect(buckets(hist)).To(Equal(map[uint]uint64{500: 2}))
		Expect(res.State).To(Equal(Terminated))
		Expect(states).To(HaveExactElements(
			Initializing, Armed, Running, Disarming, Terminated))
		Expect(started()[len(started())-3:]).To(HaveExactElements(
			"write 0x00=0x00000000",
			"close interrupts",
			"close registers"))
	})

	It("never touches the device without realtime scheduling", func() {
		res, err := newTask(WithScheduling(func() error {
			return errors.New("EPERM")
		})).Run(context.Background())
		Expect(err).To(And(MatchError(ErrScheduling), MatchError(ContainSubstring("EPERM"))))
		Expect(res).NotTo(BeNil())
		Expect(res.IRQCount).To(BeZero())
		Expect(j).To(BeEmpty())
		Expect(states).To(HaveExactElements(Initializing, Terminated))
	})

	It("doesn't wrap scheduling errors twice", func() {
		schedErr := errors.Join(ErrScheduling, errors.New("EPERM"))
		_, err := newTask(WithScheduling(func() error { return schedErr })).Run(context.Background())
		Expect(err).To(BeIdenticalTo(schedErr))
	})

	It("rejects invalid configurations", func() {
		cfg.FrequencyHz = 0
		_, err := newTask().Run(context.Background())
		Expect(err).To(MatchError(ErrConfiguration))
		Expect(j).To(BeEmpty())
		Expect(states).To(HaveExactElements(Terminated))
	})

	When("initialization fails", func() {

		It("reports unavailable registers", func() {
			backend.regsErr = errors.New("ENOENT")
			_, err := newTask().Run(context.Background())
			Expect(err).To(MatchError(ErrDeviceOpen))
			Expect(j).To(HaveExactElements("elevate", "open registers"))
			Expect(states).To(HaveExactElements(Initializing, Terminated))
		})

		It("releases the registers of wrong devices without writing", func() {
			regs.regs[RegisterBase+RegMAGIC] = 0x12345678
			_, err := newTask().Run(context.Background())
			Expect(err).To(MatchError(ErrIdentityMismatch))
			Expect(regs.writes).To(BeEmpty())
			Expect(j).To(HaveExactElements(
				"elevate", "open registers", "read 0x0c", "close registers"))
		})

		It("reports unavailable interrupts", func() {
			backend.irqsErr = errors.New("EBUSY")
			_, err := newTask().Run(context.Background())
			Expect(err).To(MatchError(ErrDeviceOpen))
			Expect(regs.writes).To(BeEmpty())
			Expect(j).To(HaveExactElements(
				"elevate", "open registers", "read 0x0c", "open interrupts", "close registers"))
		})

		It("leaves the device stopped on a divider underflow", func() {
			regs.regs[RegisterBase+RegFCLK] = 1000
			cfg.FrequencyHz = 2000
			res, err := newTask().Run(context.Background())
			Expect(err).To(MatchError(ErrDividerUnderflow))
			Expect(res.IRQCount).To(BeZero())
			Expect(regs.writes).To(HaveExactElements(uint32(0)))
			Expect(j[len(j)-3:]).To(HaveExactElements(
				"write 0x00=0x00000000", "close interrupts", "close registers"))
			Expect(waiter.timeouts).To(BeEmpty())
			Expect(states).To(HaveExactElements(Initializing, Terminated))
		})

		It("leaves the device stopped on a divider overflow", func() {
			regs.regs[RegisterBase+RegFCLK] = 100_000_000
			cfg.FrequencyHz = 1
			_, err := newTask().Run(context.Background())
			Expect(err).To(MatchError(ErrDividerOverflow))
			Expect(regs.writes).To(HaveExactElements(uint32(0)))
			Expect(waiter.timeouts).To(BeEmpty())
		})

	})

	It("doesn't fail on close errors", func() {
		cfg.SampleCount = 1
		regs.closeErr = errors.New("EIO")
		waiter.closeErr = errors.New("EIO")
		_, err := newTask().Run(context.Background())
		Expect(err).NotTo(HaveOccurred())
	})

	It("cross-checks with the kernel's interrupt count", func() {
		cfg.SampleCount = 3
		counts := []uint64{100, 103}
		old := kernelCounter
		DeferCleanup(func() { kernelCounter = old })
		kernelCounter = func(irq uint) (uint64, bool) {
			Expect(irq).To(Equal(uint(42)))
			count := counts[0]
			counts = counts[1:]
			return count, true
		}
		backend.irqs = numberedWaiter{fakeWaiter: waiter, irq: 42}
		res, err := newTask().Run(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(res.KernelCountOK).To(BeTrue())
		Expect(res.KernelCount).To(Equal(uint64(3)))
		Expect(counts).To(BeEmpty())
	})

	It("runs on its own thread", func() {
		cfg.SampleCount = 10
		r := newTask().Start(context.Background())
		Eventually(r.Done()).Within(5 * time.Second).Should(BeClosed())
		res, err := r.Wait()
		Expect(err).NotTo(HaveOccurred())
		Expect(res.IRQCount).To(Equal(uint64(10)))
	})

})
