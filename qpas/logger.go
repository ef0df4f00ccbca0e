// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package qpas

import (
	"fmt"
	"io"
)

// LogLevel controls the frequency and type of logger output.
type LogLevel int

const (
	// LogNoop no output is generated (level < 0).
	LogNoop LogLevel = -1
	// LogIter prints one line per outer iteration: iter, pr, du, tau, event.
	LogIter LogLevel = 0
	// LogTrace prints the same per-iteration lines as LogIter; Solve has no
	// output specific to this level.
	LogTrace LogLevel = 1
)

// Logger handles diagnostic output for the solver.
// Note the writer must be thread-safe if a Workspace is shared across goroutines.
type Logger struct {
	Level LogLevel
	Out   io.Writer // Writer to output log messages.
}

func (l *Logger) enable(level LogLevel) bool {
	return l != nil && l.Out != nil && l.Level >= level
}

func (l *Logger) log(format string, a ...any) {
	if len(a) > 0 {
		_, _ = fmt.Fprintf(l.Out, format, a...)
	} else {
		_, _ = fmt.Fprint(l.Out, format)
	}
	_, _ = fmt.Fprintln(l.Out)
}
