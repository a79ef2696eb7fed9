/*
 * rv64emu - Core runner: wraps a hart in a goroutine with start/stop and
 * breakpoint control for the debugger.
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

// Package core drives a single hart: it owns the goroutine that repeatedly
// calls cpu.Step, and exposes Start/Stop plus the breakpoint and single-step
// controls the debugger command layer needs.
package core

import (
	"log/slog"
	"sync"

	"github.com/rv64emu/rv64emu/emu/cpu"
)

// Core wraps one hart's Context with run control. Safe for concurrent use
// by the goroutine running Start's loop and the debugger calling Step,
// SetBreakpoint, etc. from another goroutine, as long as Step is not
// called while the run loop is active.
type Core struct {
	ctx *cpu.Context

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}

	breakpoints map[uint64]bool
}

// NewCore returns a Core driving ctx, initially stopped.
func NewCore(ctx *cpu.Context) *Core {
	return &Core{
		ctx:         ctx,
		breakpoints: make(map[uint64]bool),
	}
}

// Context returns the underlying hart context.
func (c *Core) Context() *cpu.Context { return c.ctx }

// Running reports whether the run loop is active.
func (c *Core) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// SetBreakpoint arms a breakpoint at addr; the run loop stops just before
// executing the instruction at addr.
func (c *Core) SetBreakpoint(addr uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.breakpoints[addr] = true
}

// ClearBreakpoint disarms the breakpoint at addr, if any.
func (c *Core) ClearBreakpoint(addr uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.breakpoints, addr)
}

func (c *Core) atBreakpoint(addr uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.breakpoints[addr]
}

// Start launches the run loop in a new goroutine. It is a no-op if the
// core is already running.
func (c *Core) Start() {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return
	}
	c.running = true
	c.stopCh = make(chan struct{})
	c.doneCh = make(chan struct{})
	c.mu.Unlock()

	go c.run()
}

func (c *Core) run() {
	defer close(c.doneCh)

	slog.Info("core: started", "hart", c.ctx.HartID())
	for {
		select {
		case <-c.stopCh:
			slog.Info("core: stopped", "hart", c.ctx.HartID())
			return
		default:
		}

		if c.atBreakpoint(c.ctx.PC()) {
			slog.Info("core: hit breakpoint", "hart", c.ctx.HartID(), "pc", c.ctx.PC())
			c.mu.Lock()
			c.running = false
			c.mu.Unlock()
			return
		}

		if exc := cpu.Step(c.ctx); exc != nil {
			slog.Debug("core: trap delivered", "hart", c.ctx.HartID(), "exception", exc.Kind.String())
		}
	}
}

// Stop signals the run loop to exit and blocks until it has. It is a
// no-op if the core is not running.
func (c *Core) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	stopCh, doneCh := c.stopCh, c.doneCh
	c.running = false
	c.mu.Unlock()

	close(stopCh)
	<-doneCh
}

// Step executes exactly one instruction and returns any exception it
// raised. The caller must ensure the run loop is not concurrently active.
func (c *Core) Step() *cpu.Exception {
	return cpu.Step(c.ctx)
}
