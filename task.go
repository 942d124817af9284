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
	"fmt"
	"runtime"

	"github.com/go-logr/logr"
)

// Task measures the latencies of periodic interrupts generated by a device,
// accumulating them into a Histogram.
type Task struct {
	cfg      Config
	backend  Backend
	hist     *Histogram
	log      logr.Logger
	elevate  func() error
	observer func(State)
	state    State
}

// Result of a measurement. It is valid also when the measurement failed
// after having been started, covering the interrupts up to the failure.
type Result struct {
	IRQCount      uint64     // number of interrupts handled
	Histogram     *Histogram // latencies of the handled interrupts
	Clock         uint32     // device clock in Hz
	Generated     uint32     // interrupts generated according to the device
	GeneratedOK   bool
	KernelCount   uint64 // interrupts handled by the kernel during the measurement
	KernelCountOK bool
	State         State // final state
}

// Option configures a Task.
type Option func(*Task)

// WithLogger sets the logger for diagnostic messages; nothing gets logged
// while waiting for and measuring interrupts.
func WithLogger(l logr.Logger) Option {
	return func(t *Task) { t.log = l }
}

// WithScheduling replaces the default switch to realtime scheduling (see
// [ElevateScheduling]) that a Task runs on its thread before touching the
// device.
func WithScheduling(elevate func() error) Option {
	return func(t *Task) { t.elevate = elevate }
}

// WithStateObserver sets a function to be called on each state change, on
// the Task's thread.
func WithStateObserver(fn func(State)) Option {
	return func(t *Task) { t.observer = fn }
}

// NewTask returns a new Task measuring with the specified configuration on
// the interrupt generator opened by backend, recording into hist.
func NewTask(cfg Config, backend Backend, hist *Histogram, opts ...Option) *Task {
	t := &Task{
		cfg:     cfg,
		backend: backend,
		hist:    hist,
		log:     logr.Discard(),
	}
	t.elevate = func() error { return ElevateScheduling(t.cfg.CPUs) }
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// kernelCounter is replaced in tests.
var kernelCounter = KernelCount

// Measurement is a Task measuring on its own OS thread.
type Measurement struct {
	done chan struct{}
	res  *Result
	err  error
}

// Start runs the Task on a new goroutine locked to its own OS thread. As this
// thread ends up with realtime priority, it gets terminated together with the
// goroutine instead of being reused. Use Wait to get the result.
func (t *Task) Start(ctx context.Context) *Measurement {
	r := &Measurement{done: make(chan struct{})}
	go func() {
		runtime.LockOSThread()
		defer close(r.done)
		r.res, r.err = t.Run(ctx)
	}()
	return r
}

// Done returns a channel that gets closed when the Task has terminated.
func (r *Measurement) Done() <-chan struct{} { return r.done }

// Wait for the Task to terminate and return its result.
func (r *Measurement) Wait() (*Result, error) {
	<-r.done
	return r.res, r.err
}

// Run the measurement on the calling goroutine, which must be locked to its
// OS thread when using the default realtime scheduling; see also Start.
//
// Run measures until either the configured number of interrupts has been
// handled, ctx gets cancelled, or waiting for an interrupt fails. As pending
// waits aren't interrupted, noticing a cancellation can take up to
// WaitTimeout. The returned Result is never nil; when an error is returned
// it contains whatever has been measured before the failure.
func (t *Task) Run(ctx context.Context) (res *Result, err error) {
	res = &Result{Histogram: t.hist}
	t.state = Idle
	defer func() {
		t.enter(Terminated)
		res.State = t.state
		if err != nil {
			t.log.Error(err, "measurement failed", "irqs", res.IRQCount)
		}
	}()
	if err := t.cfg.Validate(); err != nil {
		return res, err
	}

	t.enter(Initializing)
	if err := t.elevate(); err != nil {
		if !errors.Is(err, ErrScheduling) {
			err = fmt.Errorf("%w: %w", ErrScheduling, err)
		}
		return res, err
	}

	regs, err := t.backend.OpenRegisters()
	if err != nil {
		return res, fmt.Errorf("%w: registers, %w", ErrDeviceOpen, err)
	}
	defer t.close("registers", regs)
	dev, err := OpenDevice(regs)
	if err != nil {
		return res, err
	}
	irqs, err := t.backend.OpenInterrupts()
	if err != nil {
		return res, fmt.Errorf("%w: interrupts, %w", ErrDeviceOpen, err)
	}
	defer t.close("interrupts", irqs)
	if err := dev.Arm(t.cfg.FrequencyHz); err != nil {
		dev.Disarm()
		return res, err
	}
	res.Clock = dev.Clock()
	kernelStart, kernelOK := t.kernelCount(irqs)
	t.enter(Armed)
	t.log.Info("interrupt generation armed",
		"frequency", t.cfg.FrequencyHz, "clock", res.Clock, "count", t.cfg.SampleCount)

	t.enter(Running)
	err = t.measure(ctx, dev, irqs, res)

	t.enter(Disarming)
	res.Generated, res.GeneratedOK = dev.Generated(), true
	dev.Disarm()
	if kernelOK {
		if kernelEnd, ok := t.kernelCount(irqs); ok && kernelEnd >= kernelStart {
			res.KernelCount, res.KernelCountOK = kernelEnd-kernelStart, true
		}
	}
	return res, err
}

// measure waits for interrupts and records their latencies until done.
func (t *Task) measure(ctx context.Context, dev *Device, w InterruptWaiter, res *Result) error {
	clock := dev.Clock()
	limit := uint64(t.cfg.SampleCount)
	for {
		mask, err := w.Wait(WaitTimeout)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrWait, err)
		}
		if mask != 0 {
			sample := dev.Sample()
			t.hist.RecordTicks(sample.Start, sample.Now, clock)
			res.IRQCount++
		}
		if ctx.Err() != nil {
			t.log.V(1).Info("measurement cancelled")
			return nil
		}
		if limit > 0 && res.IRQCount == limit {
			return nil
		}
	}
}

func (t *Task) enter(s State) {
	if s == t.state {
		return
	}
	t.log.V(1).Info("state change", "from", t.state, "to", s)
	t.state = s
	if t.observer != nil {
		t.observer(s)
	}
}

func (t *Task) close(what string, c interface{ Close() error }) {
	if err := c.Close(); err != nil {
		t.log.Error(err, "cannot close session", "session", what)
	}
}

func (t *Task) kernelCount(irqs InterruptSession) (uint64, bool) {
	n, ok := irqs.(irqNumberer)
	if !ok {
		return 0, false
	}
	irq, ok := n.IRQNumber()
	if !ok {
		return 0, false
	}
	return kernelCounter(irq)
}
