/*
 * rv64emu - Debugger command implementations.
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

package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rv64emu/rv64emu/emu/core"
	"github.com/rv64emu/rv64emu/util/hex"
)

func parseHexAddr(s string) (uint64, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	return strconv.ParseUint(s, 16, 64)
}

func cmdStep(args []string, c *core.Core) (bool, error) {
	if c.Running() {
		return false, fmt.Errorf("step: core is already running")
	}
	if exc := c.Step(); exc != nil {
		fmt.Printf("trap: %s (tval=%#x)\n", exc.Kind, exc.Tval)
	}
	fmt.Printf("pc = %#016x\n", c.Context().PC())
	return false, nil
}

func cmdContinue(args []string, c *core.Core) (bool, error) {
	if c.Running() {
		return false, fmt.Errorf("continue: core is already running")
	}
	c.Start()
	return false, nil
}

func cmdBreak(args []string, c *core.Core) (bool, error) {
	if len(args) != 1 {
		return false, fmt.Errorf("break: expected <hex-addr>")
	}
	addr, err := parseHexAddr(args[0])
	if err != nil {
		return false, fmt.Errorf("break: %w", err)
	}
	c.SetBreakpoint(addr)
	return false, nil
}

func cmdDelete(args []string, c *core.Core) (bool, error) {
	if len(args) != 1 {
		return false, fmt.Errorf("delete: expected <hex-addr>")
	}
	addr, err := parseHexAddr(args[0])
	if err != nil {
		return false, fmt.Errorf("delete: %w", err)
	}
	c.ClearBreakpoint(addr)
	return false, nil
}

func cmdPrint(args []string, c *core.Core) (bool, error) {
	if len(args) != 1 {
		return false, fmt.Errorf("print: expected a register name (x0-x31, pc)")
	}
	ctx := c.Context()
	name := strings.ToLower(args[0])
	if name == "pc" {
		fmt.Printf("pc = %#016x\n", ctx.PC())
		return false, nil
	}
	idx, err := strconv.Atoi(strings.TrimPrefix(name, "x"))
	if err != nil || idx < 0 || idx >= 32 {
		return false, fmt.Errorf("print: unknown register %q", args[0])
	}
	fmt.Printf("x%d = %#016x\n", idx, ctx.Reg(uint32(idx)))
	return false, nil
}

// registerNames lists every name cmdPrint accepts, used by completeRegister.
var registerNames = func() []string {
	names := make([]string, 0, 33)
	names = append(names, "pc")
	for i := 0; i < 32; i++ {
		names = append(names, fmt.Sprintf("x%d", i))
	}
	return names
}()

func completeRegister(args []string) []string {
	prefix := ""
	if len(args) > 0 {
		prefix = strings.ToLower(args[len(args)-1])
	}
	var out []string
	for _, name := range registerNames {
		if strings.HasPrefix(name, prefix) {
			out = append(out, name)
		}
	}
	return out
}

func cmdRegs(args []string, c *core.Core) (bool, error) {
	ctx := c.Context()
	var b strings.Builder
	vals := make([]uint64, 32)
	for i := range vals {
		vals[i] = ctx.Reg(uint32(i))
	}
	for row := 0; row < 32; row += 4 {
		hex.FormatDouble(&b, vals[row:row+4])
		b.WriteByte('\n')
	}
	fmt.Print(b.String())
	fmt.Printf("pc = %#016x\n", ctx.PC())
	return false, nil
}

// cmdMem dumps length bytes starting at addr. format selects the
// granularity: "b" (default) is a contiguous run of hex byte pairs, "w"
// groups the dump into 32-bit little-endian words, and "o" prints one
// byte per line labeled with its own address, for correlating an
// individual byte with the address it lives at (e.g. an unaligned
// access's exact byte offset).
func cmdMem(args []string, c *core.Core) (bool, error) {
	if len(args) < 2 || len(args) > 3 {
		return false, fmt.Errorf("mem: expected <hex-addr> <len> [b|w|o]")
	}
	addr, err := parseHexAddr(args[0])
	if err != nil {
		return false, fmt.Errorf("mem: %w", err)
	}
	length, err := strconv.Atoi(args[1])
	if err != nil || length <= 0 {
		return false, fmt.Errorf("mem: invalid length %q", args[1])
	}
	format := "b"
	if len(args) == 3 {
		format = strings.ToLower(args[2])
	}

	buf := make([]byte, length)
	if err := c.Context().Memory().Read(addr, buf); err != nil {
		return false, fmt.Errorf("mem: %w", err)
	}

	switch format {
	case "b":
		var b strings.Builder
		hex.FormatBytes(&b, true, buf)
		fmt.Printf("%#016x: %s\n", addr, b.String())
	case "w":
		if length%4 != 0 {
			return false, fmt.Errorf("mem: word dump length must be a multiple of 4")
		}
		words := make([]uint32, length/4)
		for i := range words {
			words[i] = uint32(buf[i*4]) | uint32(buf[i*4+1])<<8 | uint32(buf[i*4+2])<<16 | uint32(buf[i*4+3])<<24
		}
		var b strings.Builder
		hex.FormatWord(&b, words)
		fmt.Printf("%#016x: %s\n", addr, b.String())
	case "o":
		for i, by := range buf {
			var b strings.Builder
			hex.FormatByte(&b, by)
			fmt.Printf("%#016x: %s\n", addr+uint64(i), b.String())
		}
	default:
		return false, fmt.Errorf("mem: unknown format %q (want b, w, or o)", format)
	}
	return false, nil
}

func cmdQuit(args []string, c *core.Core) (bool, error) {
	if c.Running() {
		c.Stop()
	}
	return true, nil
}
