/*
 * rv64emu - Debugger command parser.
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

// Package parser implements the REPL's command table: each command has a
// full name and a minimum abbreviation length, matched the way the
// teacher's debugger does (shortest unambiguous prefix wins).
package parser

import (
	"fmt"
	"strings"

	"github.com/rv64emu/rv64emu/emu/core"
)

type cmd struct {
	name     string
	min      int
	process  func(args []string, c *core.Core) (bool, error)
	complete func(args []string) []string
}

var cmdList = []cmd{
	{name: "step", min: 1, process: cmdStep},
	{name: "continue", min: 1, process: cmdContinue},
	{name: "break", min: 1, process: cmdBreak},
	{name: "delete", min: 1, process: cmdDelete},
	{name: "print", min: 1, process: cmdPrint, complete: completeRegister},
	{name: "regs", min: 1, process: cmdRegs},
	{name: "mem", min: 1, process: cmdMem},
	{name: "quit", min: 1, process: cmdQuit},
}

// match returns the cmd whose name the given word abbreviates, per the
// minimum-length-prefix rule, or ok=false if no command matches (or more
// than one matches ambiguously at the same prefix length).
func match(word string) (cmd, bool) {
	word = strings.ToLower(word)
	var found *cmd
	for i := range cmdList {
		c := &cmdList[i]
		if len(word) < c.min || len(word) > len(c.name) {
			continue
		}
		if strings.HasPrefix(c.name, word) {
			if found != nil {
				return cmd{}, false
			}
			found = c
		}
	}
	if found == nil {
		return cmd{}, false
	}
	return *found, true
}

// ProcessCommand parses and executes one line of debugger input against
// core. It returns quit=true when the REPL should exit.
func ProcessCommand(line string, c *core.Core) (quit bool, err error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}

	command, ok := match(fields[0])
	if !ok {
		return false, fmt.Errorf("unknown command: %s", fields[0])
	}
	return command.process(fields[1:], c)
}

// CompleteCmd is the REPL's tab-completion hook. With no command word yet
// typed, it completes command names; once a command is selected, it
// delegates to that command's own completer, if it has one.
func CompleteCmd(line string) []string {
	fields := strings.Fields(line)
	hasTrailingSpace := strings.HasSuffix(line, " ")

	if len(fields) > 1 || (len(fields) == 1 && hasTrailingSpace) {
		c, ok := match(fields[0])
		if !ok || c.complete == nil {
			return nil
		}
		return c.complete(fields[1:])
	}

	prefix := ""
	if len(fields) > 0 {
		prefix = strings.ToLower(fields[0])
	}
	var out []string
	for _, c := range cmdList {
		if strings.HasPrefix(c.name, prefix) {
			out = append(out, c.name)
		}
	}
	return out
}
