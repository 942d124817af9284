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
// irqlat measures the latencies of periodic interrupts generated by an FPGA
// and prints a histogram of them.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-logr/logr"
	"github.com/thediveo/irqlat"
)

// sysfsRoot is prepended to sysfs and /dev paths; tests point it at fake
// trees.
var sysfsRoot = ""

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run the latency measurement with the specified command line arguments,
// returning the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	opts, err := parseArgs(args)
	if err != nil {
		fmt.Fprintf(stderr, "irqlat: %s\n\n%s", err, usage)
		return 2
	}
	log := newLogger(stderr, opts.Verbosity)

	backend := newPCIBackend(sysfsRoot, opts.PCI)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	return measure(ctx, opts.Config, backend, log, stdout,
		irqlat.WithLogger(log.WithName("task")))
}

// measure runs the measurement task on its own thread, waits for it to
// terminate and then writes the report to stdout, even if the measurement
// failed.
func measure(ctx context.Context, cfg irqlat.Config, backend irqlat.Backend,
	log logr.Logger, stdout io.Writer, opts ...irqlat.Option,
) int {
	hist := irqlat.NewHistogram()
	res, err := irqlat.NewTask(cfg, backend, hist, opts...).Start(ctx).Wait()
	if werr := irqlat.WriteReport(stdout, res.IRQCount, hist); werr != nil {
		log.Error(werr, "cannot write report")
		err = errors.Join(err, werr)
	}
	summarize(log, res)
	if err != nil {
		return 1
	}
	return 0
}

// summarize logs latency percentiles and the cross-checks against the
// interrupt counts of the device and the kernel.
func summarize(log logr.Logger, res *irqlat.Result) {
	if res.IRQCount == 0 {
		return
	}
	s := res.Histogram.Summary()
	log.Info("latencies (µs)",
		"irqs", res.IRQCount, "missed", res.Histogram.Missed(),
		"mean", fmt.Sprintf("%.1f", s.Mean), "p50", s.P50, "p90", s.P90,
		"p99", s.P99, "p99.9", s.P999, "max", s.Max)
	if res.GeneratedOK {
		log.Info("device cross-check", "generated", res.Generated, "handled", res.IRQCount)
	}
	if res.KernelCountOK {
		log.Info("kernel cross-check", "kernel", res.KernelCount, "handled", res.IRQCount)
	}
}

// newLogger returns a logger writing text to w, showing messages up to the
// specified verbosity.
func newLogger(w io.Writer, verbosity int) logr.Logger {
	return logr.FromSlogHandler(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: slog.Level(-verbosity),
	})).WithName("irqlat")
}
