// lcd_scanout_pumped.go - Software-pumped (command-mode / SLCD) scan path

/*
 ██▓ ███▄    █ ▄▄▄█████▓ █    ██  ██▓▄▄▄█████▓ ██▓ ▒█████   ███▄    █    ▓█████  ███▄    █   ▄████  ██▓ ███▄    █ ▓█████
▓██▒ ██ ▀█   █ ▓  ██▒ ▓▒ ██  ▓██▒▓██▒▓  ██▒ ▓▒▓██▒▒██▒  ██▒ ██ ▀█   █    ▓█   ▀  ██ ▀█   █  ██▒ ▀█▒▓██▒ ██ ▀█   █ ▓█   ▀
▒██▒▓██  ▀█ ██▒▒ ▓██░ ▒░▓██  ▒██░▒██▒▒ ▓██░ ▒░▒██▒▒██░  ██▒▓██  ▀█ ██▒   ▒███   ▓██  ▀█ ██▒▒██░▄▄▄░▒██▒▓██  ▀█ ██▒▒███
░██░▓██▒  ▐▌██▒░ ▓██▓ ░ ▓▓█  ░██░░██░░ ▓██▓ ░ ░██░▒██   ██░▓██▒  ▐▌██▒   ▒▓█  ▄ ▓██▒  ▐▌██▒░▓█  ██▓░██░▓██▒  ▐▌██▒▒▓█  ▄
░██░▒██░   ▓██░  ▒██▒ ░ ▒▒█████▓ ░██░  ▒██▒ ░ ░██░░ ████▓▒░▒██░   ▓██░   ░▒████▒▒██░   ▓██░░▒▓███▀▒░██░▒██░   ▓██░░▒████▒
░▓  ░ ▒░   ▒ ▒   ▒ ░░   ░▒▓▒ ▒ ▒ ░▓    ▒ ░░   ░▓  ░ ▒░▒░▒░ ░ ▒░   ▒ ▒    ░░ ▒░ ░░ ▒░   ▒ ▒  ░▒   ▒ ░▓  ░ ▒░   ▒ ▒ ░░ ▒░ ░
 ▒ ░░ ░░   ░ ▒░    ░    ░░▒░ ░ ░  ▒ ░    ░     ▒ ░  ░ ▒ ▒░ ░ ░░   ░ ▒░    ░ ░  ░░ ░░   ░ ▒░  ░   ░  ▒ ░░ ░░   ░ ▒░ ░ ░  ░
 ▒ ░   ░   ░ ░   ░       ░░░ ░ ░  ▒ ░  ░       ▒ ░░ ░ ░ ▒     ░   ░ ░       ░      ░   ░ ░ ░ ░   ░  ▒ ░   ░   ░ ░    ░
 ░           ░             ░      ░            ░      ░ ░           ░       ░    ░  ░         ░    ░       ░           ░

(c) 2024 - 2026 Zayn Otley
https://github.com/IntuitionAmiga/IntuitionEngine
License: GPLv3 or later
*/

/*
lcd_scanout_pumped.go - Pumped Scan Path

Command-mode panels hold their own frame memory and only update when a
burst is pushed at them, so nothing free-runs: software schedules a
refresh tick per frame period, each tick submits one DMA burst covering
the frame descriptor's payload, and the burst completion stands in for
the end-of-frame interrupt a raster engine would raise. Disable simply
stops arming ticks; a burst already in flight completes into an
inert callback.
*/

package main

import (
	"fmt"
	"os"
	"sync"
	"time"
)

type PumpedScan struct {
	engine *LCDEngine
	dma    TransferChannel
	panel  CommandPanel

	mu     sync.Mutex
	active bool
	timer  *time.Timer
}

func newPumpedScan(e *LCDEngine, dma TransferChannel, panel CommandPanel) *PumpedScan {
	return &PumpedScan{engine: e, dma: dma, panel: panel}
}

func (s *PumpedScan) Name() string { return "pumped" }

func (s *PumpedScan) Enable() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active {
		return nil
	}

	// The SLCD module must have drained any manual command traffic
	// before DMA may own the FIFO.
	if _, err := s.engine.regs.ReadPoll(LCD_REG_SLCD_MSTATE,
		func(v uint32) bool { return v&LCD_SLCD_MSTATE_BUSY == 0 },
		LCD_REG_POLL_INTERVAL, LCD_SLCD_BUSY_TIMEOUT); err != nil {
		return &LCDError{Operation: "Enable", Details: "slcd busy", Err: err}
	}
	s.engine.regs.SetBits(LCD_REG_SLCD_MCTRL, LCD_SLCD_MCTRL_DMATXEN)

	s.active = true
	s.armLocked(0)
	return nil
}

// Disable stops arming refresh ticks. It never waits: a transfer still
// in flight completes into a callback that sees the path inactive and
// does nothing.
func (s *PumpedScan) Disable() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return nil
	}
	s.active = false
	if s.timer != nil {
		s.timer.Stop()
	}
	s.engine.regs.ClearBits(LCD_REG_SLCD_MCTRL, LCD_SLCD_MCTRL_DMATXEN)
	return nil
}

// ModeChanged pushes the new frame out immediately rather than waiting
// for the running period to lapse.
func (s *PumpedScan) ModeChanged() {
	s.mu.Lock()
	s.armLocked(0)
	s.mu.Unlock()
}

// EnableVBlank is a no-op: ticks always produce completions while the
// path is active.
func (s *PumpedScan) EnableVBlank() {}

// DisableVBlank cancels the next scheduled tick without tearing the
// path down; the next commit's ModeChanged re-arms it.
func (s *PumpedScan) DisableVBlank() {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.mu.Unlock()
}

func (s *PumpedScan) armLocked(d time.Duration) {
	if !s.active {
		return
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(d, s.tick)
}

func (s *PumpedScan) period() time.Duration {
	if snap := s.engine.snap.Load(); snap != nil {
		return time.Second / time.Duration(snap.mode.refreshRate())
	}
	return time.Second / LCD_DEFAULT_REFRESH_RATE
}

// tick submits one frame burst. A submission failure drops this frame
// but keeps the refresh alive: the panel retains its previous contents
// and the next tick tries again.
func (s *PumpedScan) tick() {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	desc := readDescriptor(s.engine.mem, s.engine.descs.descAddr(0))
	length := int(desc.cmd&LCD_CMD_LEN_MASK) * 4
	if length == 0 || desc.addr+uint32(length) > s.engine.mem.Size() {
		s.reschedule()
		return
	}
	if err := s.dma.Submit(desc.addr, length, s.transferDone); err != nil {
		fmt.Fprintf(os.Stderr, "lcd: pumped refresh: burst not submitted, frame dropped: %v\n", err)
		s.reschedule()
	}
}

func (s *PumpedScan) transferDone(err error) {
	s.mu.Lock()
	active := s.active
	s.mu.Unlock()
	if !active {
		return
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "lcd: pumped refresh: burst failed, frame dropped: %v\n", err)
	} else {
		// Burst landed on the glass: synthesise the end-of-frame event
		// a raster engine would have raised.
		state := s.engine.regs.Read(LCD_REG_STATE)
		s.engine.regs.hwWrite(LCD_REG_STATE, state|LCD_STATE_EOF_IRQ)
		if s.engine.regs.Read(LCD_REG_CTRL)&LCD_CTRL_EOF_IRQ != 0 {
			s.engine.irq.Assert()
		}
	}
	s.reschedule()
}

func (s *PumpedScan) reschedule() {
	s.mu.Lock()
	s.armLocked(s.period())
	s.mu.Unlock()
}

// =============================================================================
// SLCD manual command/data port
// =============================================================================

// SendCommand pushes one command byte through the SLCD manual port,
// waiting for the interface to go non-busy first. Panel init sequences
// (sleep-out, display-on, set-column) go through here before the DMA
// refresh takes over the FIFO.
func (e *LCDEngine) SendCommand(b byte) error {
	return e.slcdSend(uint32(b), true)
}

// SendData pushes one parameter byte through the SLCD manual port.
func (e *LCDEngine) SendData(b byte) error {
	return e.slcdSend(uint32(b), false)
}

func (e *LCDEngine) slcdSend(data uint32, command bool) error {
	if !e.slcd {
		return &LCDError{Operation: "slcdSend", Details: "no command-mode panel attached"}
	}
	if _, err := e.regs.ReadPoll(LCD_REG_SLCD_MSTATE,
		func(v uint32) bool { return v&LCD_SLCD_MSTATE_BUSY == 0 },
		LCD_REG_POLL_INTERVAL, LCD_SLCD_BUSY_TIMEOUT); err != nil {
		return &LCDError{Operation: "slcdSend", Details: "interface busy", Err: err}
	}
	if command {
		data |= LCD_SLCD_MDATA_COMMAND
	}
	e.regs.Write(LCD_REG_SLCD_MDATA, data)
	return nil
}
