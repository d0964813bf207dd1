// lcd_clock.go - Pixel clock / parent clock rate coordination

/*
 ██▓ ███▄    █ ▄▄▄█████▓ █    ██  ██▓▄▄▄█████▓ ██▓ ▒█████   ███▄    █    ▓█████  ███▄    █   ▄████  ██▓ ███▄    █ ▓█████
▓██▒ ██ ▀█   █ ▓  ██▒ ▓▒ ██  ▓██▒▓██▒▓  ██▒ ▓▒▓██▒▒██▒  ██▒ ██ ▀█   █    ▓█   ▀  ██ ▀█   █  ██▒ ▀█▒▓██▒ ██ ▀█   █ ▓█   ▀
▒██▒▓██  ▀█ ██▒▒ ▓██░ ▒░▓██  ▒██░▒██▒▒ ▓██░ ▒░▒██▒▒██░  ██▒▓██  ▀█ ██▒   ▒███   ▓██  ▀█ ██▒▒██░▄▄▄░▒██▒▓██  ▀█ ██▒▒███
░██░▓██▒  ▐▌██▒░ ▓██▓ ░ ▓▓█  ░██░░██░░ ▓██▓ ░ ░██░▒██   ██░▓██▒  ▐▌██▒   ▒▓█  ▄ ▓██▒  ▐▌██▒░▓█  ██▓░██░▓██▒  ▐▌██▒▒▓█  ▄
░██░▒██░   ▓██░  ▒██▒ ░ ▒▒█████▓ ░██░  ▒██▒ ░ ░██░░ ████▓▒░▒██░   ▓██░   ░▒████▒▒██░   ▓██░░▒▓███▀▒░██░▒██░   ▓██░░▒████▒
░▓  ░ ▒░   ▒ ▒   ▒ ░░   ░▒▓▒ ▒ ▒ ░▓    ▒ ░░   ░▓  ░ ▒░▒░▒░ ░ ▒░   ▒ ▒    ░░ ▒░ ░░ ▒░   ▒ ▒  ░▒   ▒ ░▓  ░ ▒░   ▒ ▒ ░░ ▒░ ░
 ▒ ░░ ░░   ░ ▒░    ░    ░░▒░ ░ ░  ▒ ░    ░     ▒ ░  ░ ▒ ▒░ ░ ░░   ░ ▒░    ░ ░  ░░ ░░   ░ ▒░  ░   ░  ▒ ░░ ░░   ░ ▒░ ░ ░  ░
 ▒ ░   ░   ░ ░   ░       ░░░ ░ ░  ▒ ░  ░       ▒ ░░ ░ ░ ▒     ░   ░ ░       ░      ░   ░ ░ ░ ░   ░  ▒ ░   ░   ░ ░    ░
 ░           ░             ░      ░            ░      ░ ░           ░       ░  ░         ░    ░       ░           ░    ░

(c) 2024 - 2026 Zayn Otley
https://github.com/IntuitionAmiga/IntuitionEngine
License: GPLv3 or later
*/

package main

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// ClockCoordinator serialises pixel clock reprogramming against rate
// changes of the pixel clock's parent.
//
// When the parent starts a rate change, PreRateChange takes the
// coordination lock, marks the pixel rate stale, and holds the change
// until the current frame has scanned out, so the transition lands in
// the blanking interval. PostRateChange releases the lock
// unconditionally, whether or not the change went through, so an
// aborted change cannot leave commits wedged.
//
// Commits reprogram the pixel rate through SetPixelRate, which takes
// the same lock; a commit and a parent rate change can therefore never
// interleave their clock writes.
type ClockCoordinator struct {
	mu     sync.Mutex
	pixClk *Clock

	// dirty is set while a parent change is in flight and cleared by
	// the next SetPixelRate, telling commits to reprogram the pixel
	// rate even when the mode itself did not change.
	dirty atomic.Bool

	// waitVBlank blocks until the next end-of-frame event, or times
	// out. Nil while the scan is down.
	waitVBlank func(timeout time.Duration) error
}

func NewClockCoordinator(pixClk *Clock) *ClockCoordinator {
	return &ClockCoordinator{pixClk: pixClk}
}

// setVBlankWaiter installs (or clears) the end-of-frame wait hook.
func (cc *ClockCoordinator) setVBlankWaiter(wait func(timeout time.Duration) error) {
	cc.mu.Lock()
	cc.waitVBlank = wait
	cc.mu.Unlock()
}

// PreRateChange implements ClockNotifier for the parent clock. A scan
// that fails to reach a frame boundary within LCD_CLOCK_VBLANK_TIMEOUT
// fails the rate change; the paired PostRateChange still runs, so the
// coordination lock is released either way.
func (cc *ClockCoordinator) PreRateChange(oldRate, newRate int64) error {
	cc.mu.Lock()
	cc.dirty.Store(true)
	wait := cc.waitVBlank
	if wait != nil {
		if err := wait(LCD_CLOCK_VBLANK_TIMEOUT); err != nil {
			return &LCDError{
				Operation: "PreRateChange",
				Details:   fmt.Sprintf("%s: no frame boundary before parent rate change", cc.pixClk.Name()),
				Err:       err,
			}
		}
	}
	return nil
}

// PostRateChange implements ClockNotifier for the parent clock. It runs
// for completed and aborted changes alike and always releases the lock
// taken by PreRateChange.
func (cc *ClockCoordinator) PostRateChange(oldRate, newRate int64) {
	cc.mu.Unlock()
}

// Dirty reports whether a parent rate change has invalidated the pixel
// rate since the last SetPixelRate.
func (cc *ClockCoordinator) Dirty() bool {
	return cc.dirty.Load()
}

// SetPixelRate reprograms the pixel clock under the coordination lock.
func (cc *ClockCoordinator) SetPixelRate(rate int64) error {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.dirty.Store(false)
	if err := cc.pixClk.SetRate(rate); err != nil {
		return &LCDError{
			Operation: "SetPixelRate",
			Details:   fmt.Sprintf("%d Hz", rate),
			Err:       err,
		}
	}
	return nil
}
