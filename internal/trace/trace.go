// Package trace is the module's only concession to logging: a single
// gated debug hook, grounded on the teacher's own commented-out
// `dbg`/`dbg = func(...)` pair in `vm.go` rather than a structured
// logging library. The teacher's `go.mod` carries no logging
// dependency at all; this module follows that texture exactly instead
// of introducing one for a handful of trace lines.
package trace

import (
	"fmt"
	"os"
)

// Enabled gates every Debugf call. It is off by default; a host or a
// test can flip it on for the duration of a run.
var Enabled bool

// Debugf writes a trace line to stderr when Enabled is true, and does
// nothing otherwise.
func Debugf(format string, args ...any) {
	if !Enabled {
		return
	}
	fmt.Fprintf(os.Stderr, format+"\n", args...)
}
