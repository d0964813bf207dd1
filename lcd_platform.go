// lcd_platform.go - Platform services for the LCD scan-out controller

/*
 ██▓ ███▄    █ ▄▄▄█████▓ █    ██  ██▓▄▄▄█████▓ ██▓ ▒█████   ███▄    █    ▓█████  ███▄    █   ▄████  ██▓ ███▄    █ ▓█████
▓██▒ ██ ▀█   █ ▓  ██▒ ▓▒ ██  ▓██▒▓██▒▓  ██▒ ▓▒▓██▒▒██▒  ██▒ ██ ▀█   █    ▓█   ▀  ██ ▀█   █  ██▒ ▀█▒▓██▒ ██ ▀█   █ ▓█   ▀
▒██▒▓██  ▀█ ██▒▒ ▓██░ ▒░▓██  ▒██░▒██▒▒ ▓██░ ▒░▒██▒▒██░  ██▒▓██  ▀█ ██▒   ▒███   ▓██  ▀█ ██▒▒██░▄▄▄░▒██▒▓██  ▀█ ██▒▒███
░██░▓██▒  ▐▌██▒░ ▓██▓ ░ ▓▓█  ░██░░██░░ ▓██▓ ░ ░██░▒██   ██░▓██▒  ▐▌██▒   ▒▓█  ▄ ▓██▒  ▐▌██▒░▓█  ██▓░██░▓██▒  ▐▌██▒▒▓█  ▄
░██░▒██░   ▓██░  ▒██▒ ░ ▒▒█████▓ ░██░  ▒██▒ ░ ░██░░ ████▓▒░▒██░   ▓██░   ░▒████▒▒██░   ▓██░░▒▓███▀▒░██░▒██░   ▓██░░▒████▒
░▓  ░ ▒░   ▒ ▒   ▒ ░░   ░▒▓▒ ▒ ▒ ░▓    ▒ ░░   ░▓  ░ ▒░▒░▒░ ░ ▒░   ▒ ▒    ░░ ▒░ ░░ ▒░   ▒ ▒  ░▒   ▒ ░▓  ░ ▒░   ▒ ▒ ░░ ▒░ ░
 ▒ ░░ ░░   ░ ▒░    ░    ░░▒░ ░ ░  ▒ ░    ░     ▒ ░  ░ ▒ ▒░ ░ ░░   ░ ▒░    ░ ░  ░░ ░░   ░ ▒░  ░   ░  ▒ ░░ ░░   ░ ▒░ ░ ░  ░
 ▒ ░   ░   ░ ░   ░       ░░░ ░ ░  ▒ ░  ░       ▒ ░░ ░ ░ ▒     ░   ░ ░       ░      ░   ░ ░ ░ ░   ░  ▒ ░   ░   ░ ░    ░
 ░           ░             ░      ░            ░      ░ ░           ░       ░  ░         ░       ░  ░           ░    ░  ░

(c) 2024 - 2026 Zayn Otley
https://github.com/IntuitionAmiga/IntuitionEngine
License: GPLv3 or later
*/

/*
lcd_platform.go - Platform Services Boundary

Everything the controller core needs from "the platform", modelled the
way the engine models other machine resources:

  - VideoMemory: a flat hardware-visible memory region with a first-fit
    block allocator. Descriptor chains and pixel buffers live here and
    are addressed by bus address, so ordering between chain writes and
    base-address publication is real, not simulated.
  - Clock: a rate-settable clock node with parent links and pre/post
    rate-change notifiers, mirroring a clock tree.
  - TransferChannel: an asynchronous mem-to-device DMA channel with a
    completion callback, used by the pumped scan path to feed
    command-mode panels.
  - InterruptLine: the controller's interrupt output.
*/

package main

import (
	"encoding/binary"
	"fmt"
	"sort"
	"sync"
)

// =============================================================================
// Video Memory
// =============================================================================

// VideoMemory is a bus-addressable memory region. Address 0 is reserved
// as the null/sentinel address and never handed out.
type VideoMemory struct {
	mu   sync.Mutex
	mem  []byte
	free []memBlock // sorted by address, coalesced
}

type memBlock struct {
	addr uint32
	size uint32
}

func NewVideoMemory(size uint32) *VideoMemory {
	// Burn the first 16 bytes so address 0 stays invalid.
	return &VideoMemory{
		mem:  make([]byte, size),
		free: []memBlock{{addr: 16, size: size - 16}},
	}
}

// Alloc returns the bus address of a zeroed block, or an error when the
// region is exhausted. Alignment must be a power of two.
func (vm *VideoMemory) Alloc(size, align uint32) (uint32, error) {
	if size == 0 {
		return 0, fmt.Errorf("video memory: zero-sized allocation")
	}
	if align == 0 {
		align = 4
	}
	vm.mu.Lock()
	defer vm.mu.Unlock()

	for i, blk := range vm.free {
		start := (blk.addr + align - 1) &^ (align - 1)
		pad := start - blk.addr
		if blk.size < pad+size {
			continue
		}
		// Carve the block: leading pad and trailing remainder stay free.
		rest := blk.size - pad - size
		repl := make([]memBlock, 0, 2)
		if pad > 0 {
			repl = append(repl, memBlock{addr: blk.addr, size: pad})
		}
		if rest > 0 {
			repl = append(repl, memBlock{addr: start + size, size: rest})
		}
		vm.free = append(vm.free[:i], append(repl, vm.free[i+1:]...)...)

		for j := start; j < start+size; j++ {
			vm.mem[j] = 0
		}
		return start, nil
	}
	return 0, fmt.Errorf("video memory: out of memory allocating %d bytes", size)
}

// Free returns a block to the allocator. The caller must pass the exact
// address and size of a prior Alloc.
func (vm *VideoMemory) Free(addr, size uint32) {
	if addr == 0 || size == 0 {
		return
	}
	vm.mu.Lock()
	defer vm.mu.Unlock()

	vm.free = append(vm.free, memBlock{addr: addr, size: size})
	sort.Slice(vm.free, func(i, j int) bool { return vm.free[i].addr < vm.free[j].addr })

	// Coalesce adjacent blocks.
	out := vm.free[:1]
	for _, blk := range vm.free[1:] {
		last := &out[len(out)-1]
		if last.addr+last.size == blk.addr {
			last.size += blk.size
		} else {
			out = append(out, blk)
		}
	}
	vm.free = out
}

// Word accesses are the coherency point between software and the scan
// engine: descriptor words written here are immediately fetchable, and
// a concurrent fetch sees either the old word or the new one, never a
// torn mix.
func (vm *VideoMemory) ReadWord(addr uint32) uint32 {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return binary.LittleEndian.Uint32(vm.mem[addr:])
}

func (vm *VideoMemory) WriteWord(addr, value uint32) {
	vm.mu.Lock()
	binary.LittleEndian.PutUint32(vm.mem[addr:], value)
	vm.mu.Unlock()
}

// Bytes returns a live view of [addr, addr+size). The scan engine reads
// pixel payloads through this; writers get DMA-visible stores for free.
func (vm *VideoMemory) Bytes(addr, size uint32) []byte {
	return vm.mem[addr : addr+size]
}

// Size returns the extent of the region in bytes.
func (vm *VideoMemory) Size() uint32 {
	return uint32(len(vm.mem))
}

// =============================================================================
// Clock Tree
// =============================================================================

// ClockNotifier receives pre/post callbacks around a rate change of the
// clock it is registered on. PreRateChange may return an error, which is
// reported to the SetRate caller; the rate change itself still proceeds
// and PostRateChange always follows a Pre, so lock-style notifiers can
// rely on the pairing.
type ClockNotifier interface {
	PreRateChange(oldRate, newRate int64) error
	PostRateChange(oldRate, newRate int64)
}

// Clock is one node of a clock tree.
type Clock struct {
	mu        sync.Mutex
	name      string
	rate      int64
	minRate   int64
	maxRate   int64
	parent    *Clock
	enabled   bool
	notifiers []ClockNotifier
}

func NewClock(name string, rate int64, parent *Clock) *Clock {
	return &Clock{name: name, rate: rate, parent: parent}
}

// SetRateLimits constrains what RoundRate will produce.
func (c *Clock) SetRateLimits(min, max int64) {
	c.mu.Lock()
	c.minRate, c.maxRate = min, max
	c.mu.Unlock()
}

func (c *Clock) Name() string   { return c.name }
func (c *Clock) Parent() *Clock { return c.parent }

func (c *Clock) Rate() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rate
}

// RoundRate returns the rate the clock would actually run at for the
// requested rate, or a negative value when it cannot be delivered.
func (c *Clock) RoundRate(rate int64) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if rate <= 0 {
		return -1
	}
	if c.minRate > 0 && rate < c.minRate {
		return c.minRate
	}
	if c.maxRate > 0 && rate > c.maxRate {
		return c.maxRate
	}
	return rate
}

func (c *Clock) Enable() error {
	c.mu.Lock()
	c.enabled = true
	c.mu.Unlock()
	return nil
}

func (c *Clock) Disable() {
	c.mu.Lock()
	c.enabled = false
	c.mu.Unlock()
}

func (c *Clock) RegisterNotifier(n ClockNotifier) {
	c.mu.Lock()
	c.notifiers = append(c.notifiers, n)
	c.mu.Unlock()
}

func (c *Clock) UnregisterNotifier(n ClockNotifier) {
	c.mu.Lock()
	for i, existing := range c.notifiers {
		if existing == n {
			c.notifiers = append(c.notifiers[:i], c.notifiers[i+1:]...)
			break
		}
	}
	c.mu.Unlock()
}

// SetRate changes the clock rate, invoking the registered notifiers
// around the change. A notifier's Pre error is collected and returned,
// but the paired Post still runs so coordination locks are released.
func (c *Clock) SetRate(rate int64) error {
	c.mu.Lock()
	old := c.rate
	notifiers := make([]ClockNotifier, len(c.notifiers))
	copy(notifiers, c.notifiers)
	c.mu.Unlock()

	var firstErr error
	for _, n := range notifiers {
		if err := n.PreRateChange(old, rate); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	c.mu.Lock()
	c.rate = rate
	c.mu.Unlock()

	for _, n := range notifiers {
		n.PostRateChange(old, rate)
	}
	return firstErr
}

// =============================================================================
// DMA Transfer Channel
// =============================================================================

// TransferConfig mirrors a DMA slave configuration for a mem-to-device
// channel.
type TransferConfig struct {
	SrcWidthBytes int
	DstWidthBytes int
	SrcMaxBurst   int
	DstMaxBurst   int
	DstAddr       uint32 // Device FIFO register address
}

// TransferChannel is an asynchronous mem-to-device DMA channel. Submit
// queues one burst and returns immediately; done fires exactly once from
// the channel's own context when the transfer completes or fails. The
// presence of such a channel at init time is what selects the pumped
// scan path.
type TransferChannel interface {
	Configure(cfg TransferConfig) error
	Submit(addr uint32, length int, done func(error)) error
	Release()
}

// SLCDTransferChannel is the engine's transfer channel: it drains bursts
// from video memory into a sink (the command-mode panel's pixel store)
// on its own goroutine, completing each request via its callback.
type SLCDTransferChannel struct {
	mem      *VideoMemory
	sink     func(payload []byte)
	cfg      TransferConfig
	requests chan slcdTransfer
	done     chan struct{}
	once     sync.Once
}

type slcdTransfer struct {
	addr     uint32
	length   int
	complete func(error)
}

func NewSLCDTransferChannel(mem *VideoMemory, sink func(payload []byte)) *SLCDTransferChannel {
	ch := &SLCDTransferChannel{
		mem:      mem,
		sink:     sink,
		requests: make(chan slcdTransfer, 4),
		done:     make(chan struct{}),
	}
	go ch.run()
	return ch
}

func (ch *SLCDTransferChannel) Configure(cfg TransferConfig) error {
	if cfg.DstWidthBytes <= 0 || cfg.SrcWidthBytes <= 0 {
		return fmt.Errorf("slcd dma: invalid slave config %+v", cfg)
	}
	ch.cfg = cfg
	return nil
}

func (ch *SLCDTransferChannel) Submit(addr uint32, length int, done func(error)) error {
	if length <= 0 {
		return fmt.Errorf("slcd dma: invalid transfer length %d", length)
	}
	select {
	case <-ch.done:
		return fmt.Errorf("slcd dma: channel released")
	default:
	}
	select {
	case ch.requests <- slcdTransfer{addr: addr, length: length, complete: done}:
		return nil
	case <-ch.done:
		return fmt.Errorf("slcd dma: channel released")
	}
}

func (ch *SLCDTransferChannel) Release() {
	ch.once.Do(func() { close(ch.done) })
}

func (ch *SLCDTransferChannel) run() {
	for {
		select {
		case <-ch.done:
			return
		case req := <-ch.requests:
			payload := make([]byte, req.length)
			copy(payload, ch.mem.Bytes(req.addr, uint32(req.length)))
			if ch.sink != nil {
				ch.sink(payload)
			}
			if req.complete != nil {
				req.complete(nil)
			}
		}
	}
}

// =============================================================================
// Interrupt Line
// =============================================================================

// InterruptLine delivers the controller's interrupt to its registered
// handler. Assert runs the handler in the asserting goroutine, which is
// always the scan engine - so the handler executes concurrently with
// any in-flight commit, exactly like a real interrupt.
type InterruptLine struct {
	mu      sync.Mutex
	handler func()
}

func (l *InterruptLine) Connect(handler func()) {
	l.mu.Lock()
	l.handler = handler
	l.mu.Unlock()
}

func (l *InterruptLine) Assert() {
	l.mu.Lock()
	handler := l.handler
	l.mu.Unlock()
	if handler != nil {
		handler()
	}
}
