// lcd_interface.go - LCD scan-out controller interfaces for Intuition Engine

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

import "fmt"

// LCDError provides detailed error context for controller operations
type LCDError struct {
	Operation string // What operation was being attempted
	Details   string // Additional error context
	Err       error  // Underlying error if any
}

func (e *LCDError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("lcd %s failed: %s: %v", e.Operation, e.Details, e.Err)
	}
	return fmt.Sprintf("lcd %s failed: %s", e.Operation, e.Details)
}

func (e *LCDError) Unwrap() error {
	return e.Err
}

// PixelFormat identifies a framebuffer memory layout scanned by the
// controller. C8 is 8-bit indexed through the hardware color table.
type PixelFormat int

const (
	PIXFMT_C8 PixelFormat = iota
	PIXFMT_XRGB1555
	PIXFMT_RGB565
	PIXFMT_RGB888
	PIXFMT_XRGB8888
	PIXFMT_XRGB2101010
)

// BytesPerPixel returns the storage footprint of one pixel.
func (f PixelFormat) BytesPerPixel() int {
	switch f {
	case PIXFMT_C8:
		return 1
	case PIXFMT_XRGB1555, PIXFMT_RGB565:
		return 2
	case PIXFMT_RGB888:
		return 3
	case PIXFMT_XRGB8888, PIXFMT_XRGB2101010:
		return 4
	default:
		return 0
	}
}

func (f PixelFormat) String() string {
	switch f {
	case PIXFMT_C8:
		return "C8"
	case PIXFMT_XRGB1555:
		return "XRGB1555"
	case PIXFMT_RGB565:
		return "RGB565"
	case PIXFMT_RGB888:
		return "RGB888"
	case PIXFMT_XRGB8888:
		return "XRGB8888"
	case PIXFMT_XRGB2101010:
		return "XRGB2101010"
	default:
		return fmt.Sprintf("PixelFormat(%d)", int(f))
	}
}

// ScanPath is the output path strategy: how frames physically leave the
// controller. Exactly one implementation is selected when the engine is
// created - AutonomousScan when the panel free-runs off the descriptor
// chain, PumpedScan when a command-mode panel must be fed by software -
// and it is never swapped per-frame.
type ScanPath interface {
	// Enable starts frame output. For autonomous panels this asserts
	// the hardware scan-enable bit; for pumped panels it arms the SLCD
	// transmit path and the software refresh loop.
	Enable() error

	// Disable stops frame output and does not return until scan-out is
	// quiescent (bounded wait). Idempotent.
	Disable() error

	// ModeChanged is called during a timing-changing commit, after the
	// descriptor chains and timing registers are in place.
	ModeChanged()

	// EnableVBlank unmasks frame-completion delivery. A no-op for
	// pumped panels, whose ticks always run while enabled.
	EnableVBlank()

	// DisableVBlank masks frame-completion delivery. For pumped panels
	// this cancels the next scheduled refresh tick.
	DisableVBlank()

	Name() string
}

// DisplayConfig contains hardware-independent presentation parameters
type DisplayConfig struct {
	Width       int
	Height      int
	Scale       int // Integer scaling factor for output
	RefreshRate int // Target refresh rate in Hz
	Fullscreen  bool
}

// DisplayOutput is where composed RGBA frames are presented. The
// controller core never depends on a concrete backend; tests run with a
// capture implementation and main wires the windowed one.
type DisplayOutput interface {
	Start() error
	Stop() error
	IsStarted() bool

	SetDisplayConfig(config DisplayConfig) error
	GetDisplayConfig() DisplayConfig
	UpdateFrame(buffer []byte) error // Raw RGBA pixels only

	GetFrameCount() uint64
}

// LCDStatus is what the windowed backend's status bar renders. Filled
// in by a provider callback so the backend never reaches into the
// controller.
type LCDStatus struct {
	Variant  string
	ScanPath string
	Overlay  bool // F0 plane enabled
	Primary  bool // F1 plane enabled
	Frames   uint64
}

// StatusDisplay is implemented by backends that can render an LCDStatus
// overlay.
type StatusDisplay interface {
	SetStatusProvider(fn func() LCDStatus)
}

// KeyboardInput is implemented by backends that capture keyboard input.
type KeyboardInput interface {
	SetKeyHandler(fn func(byte))
}

// ResetControl is implemented by backends with a hard-reset chord; the
// handler is expected to reprogram the controller from scratch.
type ResetControl interface {
	SetHardResetHandler(fn func())
}

// ClampScale bounds the integer output scaling factor to something a
// desktop can actually display.
func ClampScale(scale int) int {
	if scale < 1 {
		return 1
	}
	if scale > 8 {
		return 8
	}
	return scale
}

// Predefined display backend types
const (
	LCD_OUTPUT_EBITEN   = iota // Windowed output (Ebiten)
	LCD_OUTPUT_HEADLESS        // Frame counter only
)

// NewDisplayOutput creates a display output using the specified backend
func NewDisplayOutput(backend int) (DisplayOutput, error) {
	switch backend {
	case LCD_OUTPUT_EBITEN:
		return NewEbitenOutput()
	case LCD_OUTPUT_HEADLESS:
		return NewHeadlessOutput()
	}
	return nil, &LCDError{
		Operation: "backend creation",
		Details:   fmt.Sprintf("unknown backend type: %d", backend),
	}
}
