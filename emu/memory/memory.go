// Package memory implements the physical address space: a map of
// non-overlapping device regions, routed by address, plus the per-hart
// load-reserved/store-conditional reservation table.
package memory

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	dev "github.com/rv64emu/rv64emu/emu/device"
)

// ErrAccessFault is returned when no region covers an access, or the
// access window spills past the end of the covering region.
var ErrAccessFault = errors.New("memory: access fault")

// ErrOverlap is returned by AddRegion when the new region overlaps one
// already registered.
var ErrOverlap = errors.New("memory: region overlap")

type region struct {
	start  uint64
	size   uint64
	device dev.Device
}

// Unit is the shared memory unit. It is safe for concurrent use by
// multiple harts: loads and fetches take the region map's read lock,
// stores and atomics take the write lock, and reservations are guarded
// by their own mutex (see spec §5).
type Unit struct {
	mu      sync.RWMutex
	regions []region // kept sorted by start

	resMu        sync.Mutex
	reservations map[uint64]uint64 // hart id -> reserved address
}

// NewUnit returns an empty memory unit with no regions registered.
func NewUnit() *Unit {
	return &Unit{
		reservations: make(map[uint64]uint64),
	}
}

// AddRegion registers a device at [start, start+device.Size()). It fails
// if the new region overlaps any existing one.
func (u *Unit) AddRegion(start uint64, d dev.Device) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	size := d.Size()
	end := start + size
	for _, r := range u.regions {
		rEnd := r.start + r.size
		if start < rEnd && r.start < end {
			return fmt.Errorf("%w: [%#x,%#x) overlaps [%#x,%#x)", ErrOverlap, start, end, r.start, rEnd)
		}
	}

	u.regions = append(u.regions, region{start: start, size: size, device: d})
	sort.Slice(u.regions, func(i, j int) bool { return u.regions[i].start < u.regions[j].start })

	slog.Info("memory: region registered", "start", fmt.Sprintf("%#x", start), "size", size, "kind", d.Kind().String())
	return nil
}

// Size returns the sum of all registered region sizes.
func (u *Unit) Size() uint64 {
	u.mu.RLock()
	defer u.mu.RUnlock()

	var total uint64
	for _, r := range u.regions {
		total += r.size
	}
	return total
}

// findLocked returns the region whose start is the greatest start <= addr,
// or ok=false if none exists. Caller must hold u.mu.
func (u *Unit) findLocked(addr uint64) (region, bool) {
	regions := u.regions
	i := sort.Search(len(regions), func(i int) bool { return regions[i].start > addr })
	if i == 0 {
		return region{}, false
	}
	return regions[i-1], true
}

func (u *Unit) route(addr, n uint64) (dev.Device, uint64, error) {
	r, ok := u.findLocked(addr)
	if !ok || addr >= r.start+r.size || n > r.start+r.size-addr {
		return nil, 0, fmt.Errorf("%w: addr %#x len %d", ErrAccessFault, addr, n)
	}
	return r.device, addr - r.start, nil
}

// Read reads len(buf) bytes starting at addr into buf.
func (u *Unit) Read(addr uint64, buf []byte) error {
	u.mu.RLock()
	defer u.mu.RUnlock()

	d, off, err := u.route(addr, uint64(len(buf)))
	if err != nil {
		return err
	}
	return d.ReadBulk(off, buf)
}

// Write writes buf to addr.
func (u *Unit) Write(addr uint64, buf []byte) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	d, off, err := u.route(addr, uint64(len(buf)))
	if err != nil {
		return err
	}
	return d.WriteBulk(off, buf)
}

func (u *Unit) ReadByte(addr uint64) (uint8, error) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	d, off, err := u.route(addr, 1)
	if err != nil {
		return 0, err
	}
	return d.ReadByte(off)
}

func (u *Unit) ReadHalf(addr uint64) (uint16, error) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	d, off, err := u.route(addr, 2)
	if err != nil {
		return 0, err
	}
	return d.ReadHalf(off)
}

func (u *Unit) ReadWord(addr uint64) (uint32, error) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	d, off, err := u.route(addr, 4)
	if err != nil {
		return 0, err
	}
	return d.ReadWord(off)
}

func (u *Unit) ReadDouble(addr uint64) (uint64, error) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	d, off, err := u.route(addr, 8)
	if err != nil {
		return 0, err
	}
	return d.ReadDouble(off)
}

func (u *Unit) WriteByte(addr uint64, v uint8) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	d, off, err := u.route(addr, 1)
	if err != nil {
		return err
	}
	return d.WriteByte(off, v)
}

func (u *Unit) WriteHalf(addr uint64, v uint16) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	d, off, err := u.route(addr, 2)
	if err != nil {
		return err
	}
	return d.WriteHalf(off, v)
}

func (u *Unit) WriteWord(addr uint64, v uint32) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	d, off, err := u.route(addr, 4)
	if err != nil {
		return err
	}
	return d.WriteWord(off, v)
}

func (u *Unit) WriteDouble(addr uint64, v uint64) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	d, off, err := u.route(addr, 8)
	if err != nil {
		return err
	}
	return d.WriteDouble(off, v)
}

// AMOWord performs an atomic read-modify-write word at addr under the
// region-map write lock, so the read, compute, and write-back observed by
// other harts happen as one step (spec §4.8, §5).
func (u *Unit) AMOWord(addr uint64, f func(old uint32) uint32) (uint32, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	d, off, err := u.route(addr, 4)
	if err != nil {
		return 0, err
	}
	old, err := d.ReadWord(off)
	if err != nil {
		return 0, err
	}
	if err := d.WriteWord(off, f(old)); err != nil {
		return 0, err
	}
	return old, nil
}

// AMODouble is the doubleword analogue of AMOWord.
func (u *Unit) AMODouble(addr uint64, f func(old uint64) uint64) (uint64, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	d, off, err := u.route(addr, 8)
	if err != nil {
		return 0, err
	}
	old, err := d.ReadDouble(off)
	if err != nil {
		return 0, err
	}
	if err := d.WriteDouble(off, f(old)); err != nil {
		return 0, err
	}
	return old, nil
}

// SetReservation records that hart holds a reservation on addr.
func (u *Unit) SetReservation(hart uint64, addr uint64) {
	u.resMu.Lock()
	defer u.resMu.Unlock()
	u.reservations[hart] = addr
}

// CheckReservation reports whether hart currently holds a reservation on
// addr.
func (u *Unit) CheckReservation(hart uint64, addr uint64) bool {
	u.resMu.Lock()
	defer u.resMu.Unlock()
	res, ok := u.reservations[hart]
	return ok && res == addr
}

// ClearReservationsForAddr clears the reservation of every hart whose
// reservation equals addr (spec invariant: after a successful SC to addr,
// no hart has a reservation on addr).
func (u *Unit) ClearReservationsForAddr(addr uint64) {
	u.resMu.Lock()
	defer u.resMu.Unlock()
	for hart, res := range u.reservations {
		if res == addr {
			delete(u.reservations, hart)
		}
	}
}

// ClearReservation drops hart's reservation outright, regardless of
// address. Used when a hart takes a trap or is rescheduled.
func (u *Unit) ClearReservation(hart uint64) {
	u.resMu.Lock()
	defer u.resMu.Unlock()
	delete(u.reservations, hart)
}
