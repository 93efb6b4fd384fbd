// Package sdcli is the command-dispatch scaffolding for cmd/sdstoragectl:
// a pflag-based Command/flagset pattern and a thin stdout/stderr wrapper.
package sdcli

import (
	"fmt"
	"io"
)

// IO wraps a command's stdout/stderr writers.
type IO struct {
	out    io.Writer
	errOut io.Writer
}

// NewIO creates an IO over out/errOut.
func NewIO(out, errOut io.Writer) *IO {
	return &IO{out: out, errOut: errOut}
}

// Println writes to stdout.
func (o *IO) Println(a ...any) {
	_, _ = fmt.Fprintln(o.out, a...)
}

// Printf writes formatted output to stdout.
func (o *IO) Printf(format string, a ...any) {
	_, _ = fmt.Fprintf(o.out, format, a...)
}

// ErrPrintln writes to stderr.
func (o *IO) ErrPrintln(a ...any) {
	_, _ = fmt.Fprintln(o.errOut, a...)
}
