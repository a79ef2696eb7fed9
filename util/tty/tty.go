/*
 * rv64emu - terminal state guard for the debugger console.
 *
 * Copyright 2024, Richard Cornwell
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

// Package tty saves and restores the controlling terminal's line
// discipline around the debugger REPL. liner puts stdin in raw mode for
// the duration of each Prompt call and restores it on Close, but an
// abnormal exit (a panic unwinding past ConsoleReader, a killed
// process) can leave the terminal raw. Capturing the termios state
// before the REPL starts and restoring it unconditionally on the way
// out is cheap insurance that is independent of liner's own bookkeeping.
package tty

import (
	"golang.org/x/sys/unix"
)

// State is the terminal line discipline captured by SaveState.
type State struct {
	termios unix.Termios
}

// IsTerminal reports whether fd refers to a terminal.
func IsTerminal(fd int) bool {
	_, err := unix.IoctlGetTermios(fd, ioctlGetTermios)
	return err == nil
}

// SaveState captures the current termios for fd without modifying it.
func SaveState(fd int) (*State, error) {
	termios, err := unix.IoctlGetTermios(fd, ioctlGetTermios)
	if err != nil {
		return nil, err
	}
	return &State{termios: *termios}, nil
}

// Restore reapplies a previously captured termios to fd.
func Restore(fd int, s *State) error {
	termios := s.termios
	return unix.IoctlSetTermios(fd, ioctlSetTermios, &termios)
}
