// lcd_regmap.go - Memory-mapped register file for the LCD scan-out controller

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

package main

import (
	"fmt"
	"sync"
	"time"
)

// RegisterMap is the controller's register block. Software-side accesses
// go through Read/Write/UpdateBits; registers the hardware owns (current
// source address, frame ID, command word) reject software writes and are
// updated by the scan engine through hwWrite. All accesses are
// word-sized, offsets are byte offsets.
//
// WriteCount exists so tests can assert that an operation touched no
// registers (e.g. a second disable call).
type RegisterMap struct {
	mu         sync.Mutex
	regs       []uint32
	writeCount uint64
}

func NewRegisterMap(size uint32) *RegisterMap {
	return &RegisterMap{regs: make([]uint32, size/4)}
}

// lcdWriteableReg mirrors the hardware's write protection: the ID and
// per-channel source/frame/command mirrors are read-only to software.
func lcdWriteableReg(offset uint32) bool {
	switch offset {
	case LCD_REG_IID,
		LCD_REG_SA0, LCD_REG_FID0, LCD_REG_CMD0,
		LCD_REG_SA1, LCD_REG_FID1, LCD_REG_CMD1:
		return false
	default:
		return true
	}
}

func (m *RegisterMap) Read(offset uint32) uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.regs[offset/4]
}

func (m *RegisterMap) Write(offset, value uint32) {
	if !lcdWriteableReg(offset) {
		return
	}
	m.mu.Lock()
	m.regs[offset/4] = value
	m.writeCount++
	m.mu.Unlock()
}

// hwWrite bypasses write protection; only the scan engine uses it to
// update the hardware-owned mirror registers.
func (m *RegisterMap) hwWrite(offset, value uint32) {
	m.mu.Lock()
	m.regs[offset/4] = value
	m.mu.Unlock()
}

func (m *RegisterMap) UpdateBits(offset, mask, value uint32) {
	if !lcdWriteableReg(offset) {
		return
	}
	m.mu.Lock()
	m.regs[offset/4] = (m.regs[offset/4] &^ mask) | (value & mask)
	m.writeCount++
	m.mu.Unlock()
}

func (m *RegisterMap) SetBits(offset, bits uint32) {
	m.UpdateBits(offset, bits, bits)
}

func (m *RegisterMap) ClearBits(offset, bits uint32) {
	m.UpdateBits(offset, bits, 0)
}

func (m *RegisterMap) WriteCount() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writeCount
}

// ReadPoll samples the register until cond holds or the timeout elapses.
// The final register value is returned either way so callers can report
// what they saw. Timeouts surface as an error; nothing here ever blocks
// indefinitely.
func (m *RegisterMap) ReadPoll(offset uint32, cond func(uint32) bool, interval, timeout time.Duration) (uint32, error) {
	deadline := time.Now().Add(timeout)
	for {
		val := m.Read(offset)
		if cond(val) {
			return val, nil
		}
		if time.Now().After(deadline) {
			return val, fmt.Errorf("register 0x%02X poll timed out after %v (last value 0x%08X)",
				offset, timeout, val)
		}
		time.Sleep(interval)
	}
}
