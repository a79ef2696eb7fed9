/*
 * rv64emu - Configuration file parser.
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

// Package configparser reads the machine's `key = value` configuration
// file: one option per line, blank lines and lines starting with `#`
// ignored.
package configparser

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds the recognised options (spec §6, §10).
type Config struct {
	MemorySizeBytes uint64
	ImagePath       string

	UARTBase uint64
	FBBase   uint64
	FBWidth  uint64
	FBHeight uint64
}

// defaults match a minimal bootable machine if the file omits them.
func defaults() Config {
	return Config{
		MemorySizeBytes: 64 * 1024 * 1024,
		UARTBase:        0x10000000,
		FBBase:          0x20000000,
		FBWidth:         640,
		FBHeight:        480,
	}
}

// LoadConfigFile parses path and returns the resulting Config, validating
// the invariants spec §6 requires of the recognised options: MemorySizeBytes
// must be nonzero and a multiple of 8, and ImagePath (if set) must name a
// readable file.
func LoadConfigFile(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("configparser: %w", err)
	}
	defer f.Close()

	cfg := defaults()
	scanner := bufio.NewScanner(f)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return Config{}, fmt.Errorf("configparser: %s:%d: expected key = value", path, lineNum)
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		if err := setOption(&cfg, key, value); err != nil {
			return Config{}, fmt.Errorf("configparser: %s:%d: %w", path, lineNum, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return Config{}, fmt.Errorf("configparser: %w", err)
	}

	if cfg.MemorySizeBytes == 0 || cfg.MemorySizeBytes%8 != 0 {
		return Config{}, fmt.Errorf("configparser: memory_size_bytes must be a nonzero multiple of 8, got %d", cfg.MemorySizeBytes)
	}
	if cfg.ImagePath != "" {
		img, err := os.Open(cfg.ImagePath)
		if err != nil {
			return Config{}, fmt.Errorf("configparser: image_path: %w", err)
		}
		img.Close()
	}
	return cfg, nil
}

func setOption(cfg *Config, key, value string) error {
	switch key {
	case "memory_size_bytes":
		v, err := strconv.ParseUint(value, 0, 64)
		if err != nil {
			return fmt.Errorf("memory_size_bytes: %w", err)
		}
		cfg.MemorySizeBytes = v
	case "image_path":
		cfg.ImagePath = value
	case "uart_base":
		v, err := strconv.ParseUint(value, 0, 64)
		if err != nil {
			return fmt.Errorf("uart_base: %w", err)
		}
		cfg.UARTBase = v
	case "fb_base":
		v, err := strconv.ParseUint(value, 0, 64)
		if err != nil {
			return fmt.Errorf("fb_base: %w", err)
		}
		cfg.FBBase = v
	case "fb_width":
		v, err := strconv.ParseUint(value, 0, 64)
		if err != nil {
			return fmt.Errorf("fb_width: %w", err)
		}
		cfg.FBWidth = v
	case "fb_height":
		v, err := strconv.ParseUint(value, 0, 64)
		if err != nil {
			return fmt.Errorf("fb_height: %w", err)
		}
		cfg.FBHeight = v
	default:
		return fmt.Errorf("unrecognised option %q", key)
	}
	return nil
}
