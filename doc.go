/*
Package xproc reads Linux kernel telemetry from the “/proc” pseudo filesystem
(and the IRQ parts of “/sys”) into typed snapshots: memory usage, per-CPU
scheduler times, interrupt counts, the load average, uptime, slab caches,
cgroup controllers, vmalloc areas, and per-process status.

Snapshots are immutable; taking a fresh sample means reading and parsing the
pseudo file again, creating a new snapshot. The only history xproc knows about
is the previous interrupt snapshot a caller keeps for computing deltas.

# Reading

[Proc] reads pseudo files from below a filesystem root, so “/proc/meminfo”
becomes “<root>/proc/meminfo”. [Host] reads from the host's root, while
[NewProc] reads from elsewhere, such as captured procfs trees in test data.
Every pseudo file is read in one go; the kernel renders many of them only
consistently when read in full.

Each snapshot additionally has a Parse function working on an [io.Reader] (or a
single line of text), independent of any filesystem.

# Attributes

The colon-separated “name: value” pseudo files, such as “/proc/meminfo” and
“/proc/[PID]/status”, parse into [Attr] attributes: a kernel-defined name bound
to a typed [Value] and a display [Format]. Which names are known and how their
values parse is data, not code: a table per pseudo file maps the names to their
value kinds. Names not in the table are skipped, so newer kernels adding fields
don't break parsing, whereas a known field with a malformed value fails the
whole snapshot with [ErrMalformedField].

Lookups of attributes that are not present return the [EmptyAttr] sentinel
instead of an error.

# The Format of /proc/interrupts

The man page for [proc_interrupts(5)] describes the format merely as “very easy
to read formatting, done in ASCII”, so [show_interrupts] in the kernel sources
is the actual reference.

The header line lists the CPUs that currently are online, as “CPU” followed by
the CPU number, separated by space padding. The number N of these columns is
what all following lines get interpreted against.

Each following line starts with a right-aligned label and a colon. The label is
either an IRQ number or the name of an [architecture-specific interrupt], such
as “LOC” or “NMI”. Then come N counters, one per online CPU, followed by
free-form descriptors: the IRQ chip, hardware IRQ and trigger type, and the
names of the assigned actions. Descriptors may contain spaces, so xproc keeps
them as a list of tokens.

The “ERR” and “MIS” lines (“Err” on some architectures) are different: they
have only a single counter, not one per CPU.

Lines with fewer than N counters are rejected with [ErrShapeMismatch] instead of
silently shifting counters to the wrong CPUs.

# Interrupt Deltas

[Interrupts.Sub] subtracts an older snapshot from a newer one. Interrupt lines
are joined by their labels, and the per-CPU values of the delta become average
interrupts per second over the elapsed time. If CPUs went on- or offline, or
IRQs came or went between both snapshots, the snapshots cannot be subtracted
and Sub returns [ErrShapeMismatch]; callers then simply start over with the
newer snapshot as their new baseline.

# IRQ Details

Details about individual IRQs are spread over many tiny pseudo files in
“/sys/kernel/irq/#/” (such as the “actions”) and “/proc/irq/#/” (such as the
“effective_affinity_list”), as documented in the [kernel ABI testing
documentation on /sys/kernel/irq]. Reading them requires lots of open, read,
and close operations, so [Proc.IRQDetails] reads them using a pool of
concurrent workers.

# The Term “CPU”

Throughout xproc, “CPU” means a logical CPU, as in the Linux kernel and tools
such as [lscpu(1)]: something with a CPU number that executes code seemingly
independently of other CPUs. Cores, sockets, and other physical topology don't
matter here.

[proc_interrupts(5)]: https://man7.org/linux/man-pages/man5/proc_interrupts.5.html
[show_interrupts]: https://elixir.bootlin.com/linux/v6.12/source/kernel/irq/proc.c#L463
[architecture-specific interrupt]: https://elixir.bootlin.com/linux/v6.12/source/arch/x86/kernel/irq.c#L61
[kernel ABI testing documentation on /sys/kernel/irq]: https://www.kernel.org/doc/Documentation/ABI/testing/sysfs-kernel-irq
[lscpu(1)]: https://github.com/util-linux/util-linux/blob/e08e3d587c4f4405ad64b3d2c1ae728ebea5fa46/sys-utils/lscpu.1.adoc
*/
package xproc
