/*
Package irqlat measures the latency of periodic hardware interrupts as seen
by user space, that is, the delay between an FPGA generating an interrupt and
a realtime thread waking up to handle it. It also counts deadlines missed
entirely, when handling an interrupt took one second or longer.

# The Interrupt Generator

The FPGA exports its interrupt generator as a set of 32-bit registers at
[RegisterBase] within one of its PCIe BARs:

  - CTL (0x00): bit 31 starts (1) or stops (0) interrupt generation, bits
    23:0 hold the frequency divider.
  - MAGIC (0x0c): always 0xbadcafee, identifying the interrupt generator.
  - FCLK (0x10): the generator's clock frequency in Hz.
  - START (0x14): the tick count when the most recent interrupt was
    generated.
  - NOW (0x18): the current tick count.
  - COUNT (0x1c): the number of interrupts generated so far.

The generator fires an interrupt every divider ticks, where divider is FCLK
divided by the requested interrupt frequency.

# Measuring

A [Task] switches its OS thread to SCHED_FIFO at maximum priority, checks the
generator identity, arms the generator, and then waits for interrupts. After
each interrupt it reads START and then NOW, and records NOW-START into a
[Histogram] with 1µs resolution. The tick counters are 32 bits wide, so they
wrap around every 2³² ticks; a single wrap between START and NOW is taken
care of.

A Task stops after a configured number of interrupts, when its context gets
cancelled, or when waiting for an interrupt fails. Waits time out after one
second, so a Task notices a cancellation at the latest a second later, even
if the generator died. In any case, the generator gets disarmed before the
Task terminates.

Please note that a SCHED_FIFO thread at maximum priority can starve other
threads on the same CPU, including the Go runtime's own threads; use
[Config].CPUs to keep it off CPUs that matter.

# Report

[WriteReport] writes a Histogram in the text format of the plotting scripts:

	# irq_count : 1000
	# irq_missed: 0
	12 997
	13 3

The first two lines give the number of interrupts handled and the number of
missed deadlines, followed by one line per non-empty bucket with the latency
in µs and its count.
*/
package irqlat
