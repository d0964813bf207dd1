// lcd_panel.go - Panel bus configuration and panel models

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

package main

import "sync"

// BusFormat identifies the pixel wire format between controller and
// panel.
type BusFormat int

const (
	BUS_FMT_RGB565_1X16 BusFormat = iota
	BUS_FMT_RGB666_1X18
	BUS_FMT_RGB888_1X24
	BUS_FMT_RGB888_3X8       // 8-bit serial, three clocks per pixel
	BUS_FMT_RGB888_3X8_DELTA // Sharp special TFT
)

// BusConfig is the electrical contract negotiated with the panel at
// enable time.
type BusConfig struct {
	Format            BusFormat
	HSyncActiveLow    bool
	VSyncActiveLow    bool
	DEActiveLow       bool
	PixClkFallingEdge bool
}

// Panel is any attached display glass.
type Panel interface {
	Name() string
	ApplyBusConfig(cfg BusConfig) error
}

// CommandPanel is a panel with its own frame memory, fed by pumped
// bursts rather than a continuous raster (the command-mode / SLCD
// case).
type CommandPanel interface {
	Panel
	ReceiveBurst(payload []byte)
}

// SimPanel models a dumb RGB panel: it records the last bus config it
// was given and, when used in command mode, retains the most recent
// burst so tests and the demo can inspect what reached the glass.
type SimPanel struct {
	mu        sync.Mutex
	name      string
	busCfg    BusConfig
	lastBurst []byte
	bursts    int
}

func NewSimPanel(name string) *SimPanel {
	return &SimPanel{name: name}
}

func (p *SimPanel) Name() string { return p.name }

func (p *SimPanel) ApplyBusConfig(cfg BusConfig) error {
	p.mu.Lock()
	p.busCfg = cfg
	p.mu.Unlock()
	return nil
}

func (p *SimPanel) BusConfig() BusConfig {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.busCfg
}

func (p *SimPanel) ReceiveBurst(payload []byte) {
	p.mu.Lock()
	p.lastBurst = append(p.lastBurst[:0], payload...)
	p.bursts++
	p.mu.Unlock()
}

// LastBurst returns a copy of the most recent burst and how many bursts
// have arrived in total.
func (p *SimPanel) LastBurst() ([]byte, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]byte, len(p.lastBurst))
	copy(out, p.lastBurst)
	return out, p.bursts
}
