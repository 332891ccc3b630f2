// Package klog is the kernel's formatted-output sink. A real boot feeds
// an SBI putchar loop; this hosted simulator feeds an io.Writer instead,
// colorized so panics stand out on a developer's console the same way a
// real serial log would.
package klog

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/x/ansi"
)

// Level is the severity of a log line.
type Level int

const (
	Info Level = iota
	Warn
	Fatal
)

// raw SGR escapes for the three levels; kept as plain escape sequences
// rather than a styling builder since the kernel log is a one-shot line
// sink, not an interactive terminal UI.
const (
	sgrYellow = "\x1b[33m"
	sgrRed    = "\x1b[31m"
	sgrReset  = "\x1b[0m"
)

func (l Level) prefix() string {
	switch l {
	case Warn:
		return sgrYellow + "[warn]" + sgrReset
	case Fatal:
		return sgrRed + "[panic]" + sgrReset
	default:
		return "[info]"
	}
}

// Logger serializes writes from whichever thread is currently running;
// only one kernel thread ever runs at a time, but the dispatcher and the
// trap handler both write to it, so a lock keeps interleaved lines from
// corrupting each other's output.
type Logger struct {
	mu  sync.Mutex
	out io.Writer
	// tty is false when out is not a terminal; ANSI styling is stripped
	// in that case so log files and CI output stay readable.
	tty bool
}

// New wraps w as a kernel logger. A nil w defaults to os.Stdout.
func New(w io.Writer) *Logger {
	if w == nil {
		w = os.Stdout
	}
	tty := false
	if f, ok := w.(*os.File); ok {
		if fi, err := f.Stat(); err == nil && fi.Mode()&os.ModeCharDevice != 0 {
			tty = true
		}
	}
	return &Logger{out: w, tty: tty}
}

// Default is the logger used by packages that don't carry their own.
var Default = New(os.Stdout)

func (l *Logger) log(level Level, format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	line := fmt.Sprintf("%s %s\n", level.prefix(), fmt.Sprintf(format, args...))
	if !l.tty {
		line = ansi.Strip(line)
	}
	fmt.Fprint(l.out, line)
}

// Infof logs an informational line.
func (l *Logger) Infof(format string, args ...any) { l.log(Info, format, args...) }

// Warnf logs a warning line.
func (l *Logger) Warnf(format string, args ...any) { l.log(Warn, format, args...) }

// Panicf logs a fatal line and panics. Programmer-contract violations
// and unrecoverable traps have no recovery path: the kernel halts. A
// hosted simulator expresses "halt" as a Go panic.
func (l *Logger) Panicf(format string, args ...any) {
	l.log(Fatal, format, args...)
	panic(fmt.Sprintf(format, args...))
}
