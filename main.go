/*
 * rv64emu - Main process.
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

package main

import (
	"log/slog"
	"os"

	getopt "github.com/pborman/getopt/v2"

	config "github.com/rv64emu/rv64emu/config/configparser"
	"github.com/rv64emu/rv64emu/command/reader"
	"github.com/rv64emu/rv64emu/emu/core"
	"github.com/rv64emu/rv64emu/emu/cpu"
	dev "github.com/rv64emu/rv64emu/emu/device"
	mem "github.com/rv64emu/rv64emu/emu/memory"
	logger "github.com/rv64emu/rv64emu/util/logger"
)

// entrypoint is the fixed physical address the loader writes the image
// to and the initial PC (spec §6).
const entrypoint = 0x1000

var Logger *slog.Logger

func main() {
	optConfig := getopt.StringLong("config", 'c', "rv64emu.cfg", "Configuration file")
	optImage := getopt.StringLong("image", 'i', "", "Firmware/disk image to load (overrides image_path)")
	optLogFile := getopt.StringLong("log", 'l', "", "Log file")
	optMemSize := getopt.Uint64Long("mem", 'm', 0, "Memory size in bytes (overrides memory_size_bytes)")
	optDebug := getopt.BoolLong("debug", 0, "Mirror log output to stderr")
	optHelp := getopt.BoolLong("help", 'h', "Help")
	getopt.Parse()

	if *optHelp {
		getopt.Usage()
		os.Exit(0)
	}

	var file *os.File
	if *optLogFile != "" {
		var err error
		file, err = os.Create(*optLogFile)
		if err != nil {
			slog.Error("can't create log file", "path", *optLogFile, "err", err)
			os.Exit(1)
		}
	}
	programLevel := new(slog.LevelVar)
	programLevel.Set(slog.LevelDebug)
	Logger = slog.New(logger.NewHandler(file, &slog.HandlerOptions{Level: programLevel, AddSource: false}, optDebug))
	slog.SetDefault(Logger)

	Logger.Info("rv64emu started")

	cfg, err := config.LoadConfigFile(*optConfig)
	if err != nil {
		Logger.Error(err.Error())
		os.Exit(1)
	}
	if *optImage != "" {
		cfg.ImagePath = *optImage
	}
	if *optMemSize != 0 {
		cfg.MemorySizeBytes = *optMemSize
	}

	memUnit, err := buildMachine(cfg)
	if err != nil {
		Logger.Error(err.Error())
		os.Exit(1)
	}

	ctx := cpu.NewContext(0, entrypoint, memUnit)
	runner := core.NewCore(ctx)

	runner.Start()
	reader.ConsoleReader(runner)

	Logger.Info("shutting down core")
	runner.Stop()
	Logger.Info("exiting")
}

// buildMachine constructs the physical address space described by cfg:
// RAM (optionally preloaded with the configured image) based at the
// entrypoint address, and the framebuffer MMIO region at fb_base (spec
// §6, §10, §11). The loader writes the raw image starting at entrypoint,
// which is also the initial PC, so RAM is mapped starting there.
func buildMachine(cfg config.Config) (*mem.Unit, error) {
	unit := mem.NewUnit()

	var ram dev.Device
	if cfg.ImagePath != "" {
		image, err := os.ReadFile(cfg.ImagePath)
		if err != nil {
			return nil, err
		}
		ram = dev.NewRAMFromImage(cfg.MemorySizeBytes, image)
	} else {
		ram = dev.NewRAM(cfg.MemorySizeBytes)
	}
	if err := unit.AddRegion(entrypoint, ram); err != nil {
		return nil, err
	}

	fb := dev.NewFramebuffer(int(cfg.FBWidth), int(cfg.FBHeight), 4)
	if err := unit.AddRegion(cfg.FBBase, fb); err != nil {
		return nil, err
	}
	slog.Info("framebuffer mapped", "base", cfg.FBBase, "width", fb.Width(), "height", fb.Height(), "stride", fb.Stride())

	uart := dev.NewUART(os.Stdout)
	if err := unit.AddRegion(cfg.UARTBase, uart); err != nil {
		return nil, err
	}

	slog.Info("machine built", "mapped_bytes", unit.Size(), "entrypoint", entrypoint)
	return unit, nil
}
