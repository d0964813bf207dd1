// lcd_controller.go - LCD scan-out controller core (atomic check/commit)

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
lcd_controller.go - Controller Core

All configuration flows through the two-phase Check/Commit protocol.
Check validates a requested configuration against the attached variant
and current state without side effects; Commit applies a checked
transaction in hardware order:

 1. stop scan-out if the mode is changing
 2. write palette, descriptor chains and plane registers
 3. write timing, bus and clock configuration
 4. restart scan-out
 5. wait for one end-of-frame event, unless no plane will produce one

The commit lock is held across all of it, so concurrent commits
serialise; frame completion arrives from the scan goroutine and only
touches the vblank plumbing, never the commit lock.
*/

package main

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// CRTC enable state
const (
	CRTC_DISABLED = iota
	CRTC_ENABLING
	CRTC_ENABLED
	CRTC_DISABLING
)

// ModeConfig is a full display timing description.
type ModeConfig struct {
	Width  int
	Height int

	HSyncStart int // Pixels from active end to sync pulse start
	HSyncEnd   int
	HTotal     int
	VSyncStart int
	VSyncEnd   int
	VTotal     int

	PixelClockHz int64
	RefreshRate  int // Frames per second; 0 means LCD_DEFAULT_REFRESH_RATE

	BusFormat         BusFormat
	HSyncActiveLow    bool
	VSyncActiveLow    bool
	DEActiveLow       bool
	PixClkFallingEdge bool
}

func (m *ModeConfig) refreshRate() int {
	if m.RefreshRate > 0 {
		return m.RefreshRate
	}
	return LCD_DEFAULT_REFRESH_RATE
}

// AtomicRequest is the input to Check. Nil fields mean "keep the
// current setting"; a non-nil plane entry replaces that plane's
// configuration wholesale.
type AtomicRequest struct {
	Mode    *ModeConfig
	Planes  [LCD_PLANE_COUNT]*PlaneConfig
	Palette []uint32 // XRGB8888, exactly LCD_PALETTE_SIZE entries when set
}

// Transaction is a validated configuration ready to commit. It is
// produced by Check and consumed exactly once by Commit.
type Transaction struct {
	mode    ModeConfig
	planes  [LCD_PLANE_COUNT]PlaneConfig
	palette []uint32
	priv    *lcdPrivateState
	modeset bool
}

// NeedsModeset reports whether committing this transaction will restart
// scan-out.
func (tx *Transaction) NeedsModeset() bool {
	return tx.modeset
}

// Capabilities describes what the attached variant can do.
type Capabilities struct {
	Variant   string
	HasOSD    bool
	MaxWidth  int
	MaxHeight int
	Pumped    bool
	Formats   [LCD_PLANE_COUNT][]PixelFormat
}

// planeScan is the per-plane slice of a scan snapshot.
type planeScan struct {
	enabled                bool
	chain                  uint32 // Descriptor ring entry point (DA value)
	format                 PixelFormat
	dstX, dstY, dstW, dstH int
}

// scanSnapshot is the lock-free view of committed state that the scan
// goroutine composes frames from. Commit publishes a fresh snapshot
// atomically; the scan engine never takes the commit lock.
type scanSnapshot struct {
	mode   ModeConfig
	planes [LCD_PLANE_COUNT]planeScan
}

// LCDEngine is the scan-out controller.
type LCDEngine struct {
	mu sync.Mutex // Commit lock

	variant *LCDVariant
	mem     *VideoMemory
	regs    *RegisterMap
	descs   *descriptorTable

	pixClk *Clock
	coord  *ClockCoordinator
	irq    *InterruptLine
	panel  Panel
	output DisplayOutput

	scan  ScanPath
	dma   TransferChannel
	slcd  bool

	mode     ModeConfig
	planes   [LCD_PLANE_COUNT]PlaneConfig
	cur      *lcdPrivateState
	crtc     int
	shutdown bool

	snap atomic.Pointer[scanSnapshot]

	// vblank plumbing; never guarded by the commit lock
	vbMu       sync.Mutex
	frameCh    chan struct{}
	frameCount atomic.Uint64
	pending    chan struct{} // cap 1, coalesced completion events
}

// NewLCDEngine builds a controller for the given variant. A non-nil dma
// channel selects the pumped scan path, in which case panel must be a
// CommandPanel; a nil channel selects autonomous scan-out.
func NewLCDEngine(variant *LCDVariant, mem *VideoMemory, pixClk *Clock,
	dma TransferChannel, panel Panel, output DisplayOutput) (*LCDEngine, error) {

	descs, err := newDescriptorTable(mem)
	if err != nil {
		return nil, err
	}

	e := &LCDEngine{
		variant: variant,
		mem:     mem,
		regs:    NewRegisterMap(LCD_REG_END),
		descs:   descs,
		pixClk:  pixClk,
		coord:   NewClockCoordinator(pixClk),
		irq:     &InterruptLine{},
		panel:   panel,
		output:  output,
		dma:     dma,
		cur:     &lcdPrivateState{noVblank: true},
		frameCh: make(chan struct{}),
		pending: make(chan struct{}, 1),
	}

	if dma != nil {
		cp, ok := panel.(CommandPanel)
		if !ok {
			descs.free()
			return nil, &LCDError{
				Operation: "NewLCDEngine",
				Details:   fmt.Sprintf("pumped scan path needs a command-mode panel, got %s", panel.Name()),
			}
		}
		if err := dma.Configure(TransferConfig{
			SrcWidthBytes: 4,
			DstWidthBytes: 2,
			SrcMaxBurst:   16,
			DstMaxBurst:   16,
			DstAddr:       LCD_REG_SLCD_MFIFO,
		}); err != nil {
			descs.free()
			return nil, &LCDError{Operation: "NewLCDEngine", Details: "dma slave config", Err: err}
		}
		e.slcd = true
		e.scan = newPumpedScan(e, dma, cp)
		e.regs.hwWrite(LCD_REG_SLCD_MCFG, LCD_SLCD_MCFG_DWIDTH_8BIT|LCD_SLCD_MCFG_CWIDTH_8BIT)
	} else {
		e.scan = newAutonomousScan(e)
	}

	if variant.HasOSD {
		e.regs.hwWrite(LCD_REG_OSDC, LCD_OSDC_OSDEN)
	}

	e.irq.Connect(e.handleInterrupt)
	if parent := pixClk.Parent(); parent != nil {
		parent.RegisterNotifier(e.coord)
	}
	return e, nil
}

// Interrupt returns the controller's interrupt line for wiring into a
// machine.
func (e *LCDEngine) Interrupt() *InterruptLine { return e.irq }

func (e *LCDEngine) Capabilities() Capabilities {
	caps := Capabilities{
		Variant:   e.variant.Name,
		HasOSD:    e.variant.HasOSD,
		MaxWidth:  e.variant.MaxWidth,
		MaxHeight: e.variant.MaxHeight,
		Pumped:    e.slcd,
	}
	if e.variant.HasOSD {
		caps.Formats[LCD_PLANE_OVERLAY] = e.variant.FormatsOverlay
		caps.Formats[LCD_PLANE_PRIMARY] = e.variant.FormatsPrimary
	} else {
		caps.Formats[0] = e.variant.FormatsPrimary
	}
	return caps
}

// primaryPlane returns the index of the plane that carries the main
// image: F1 on OSD parts, the single channel-0 plane otherwise.
func (e *LCDEngine) primaryPlane() int {
	if e.variant.HasOSD {
		return LCD_PLANE_PRIMARY
	}
	return 0
}

// =============================================================================
// Check
// =============================================================================

// Check validates a requested configuration and returns a transaction
// ready for Commit. It has no side effects: a rejected request leaves
// the controller exactly as it was, and nothing is programmed until the
// transaction is committed.
func (e *LCDEngine) Check(req *AtomicRequest) (*Transaction, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	tx := &Transaction{
		mode:   e.mode,
		planes: e.planes,
		priv:   e.cur.duplicate(),
	}

	if req.Mode != nil {
		m := *req.Mode
		if m.Width <= 0 || m.Height <= 0 ||
			m.Width > e.variant.MaxWidth || m.Height > e.variant.MaxHeight {
			return nil, &LCDError{
				Operation: "Check",
				Details: fmt.Sprintf("mode %dx%d outside %s limits %dx%d",
					m.Width, m.Height, e.variant.Name, e.variant.MaxWidth, e.variant.MaxHeight),
			}
		}
		if m.PixelClockHz <= 0 {
			return nil, &LCDError{Operation: "Check", Details: "mode has no pixel clock"}
		}
		if rounded := e.pixClk.RoundRate(m.PixelClockHz); rounded < 0 {
			return nil, &LCDError{
				Operation: "Check",
				Details:   fmt.Sprintf("pixel clock cannot deliver %d Hz", m.PixelClockHz),
			}
		}
		tx.mode = m
		tx.modeset = true
	}

	if req.Palette != nil {
		if len(req.Palette) != LCD_PALETTE_SIZE {
			return nil, &LCDError{
				Operation: "Check",
				Details:   fmt.Sprintf("palette must have %d entries, got %d", LCD_PALETTE_SIZE, len(req.Palette)),
			}
		}
		tx.palette = append([]uint32(nil), req.Palette...)
	}

	for plane := 0; plane < LCD_PLANE_COUNT; plane++ {
		if req.Planes[plane] == nil {
			continue
		}
		cfg := *req.Planes[plane]
		if cfg.Enabled {
			if err := e.checkPlane(plane, &cfg, &tx.mode); err != nil {
				return nil, err
			}
		}
		// Any plane enable, disable, move, resize or format change
		// restarts scan-out: the descriptor ring shape and the plane
		// registers can only change while the scan is stopped.
		if planeConfigChanged(&e.planes[plane], &cfg) {
			tx.modeset = true
		}
		tx.planes[plane] = cfg
	}

	primary := e.primaryPlane()
	anyEnabled := false
	for plane := range tx.planes {
		if tx.planes[plane].Enabled {
			anyEnabled = true
		}
	}
	tx.priv.doublescan = tx.planes[primary].Enabled &&
		tx.planes[primary].DstH == 2*tx.planes[primary].SrcH
	tx.priv.usePalette = tx.planes[0].Enabled &&
		tx.planes[0].FB.Format == PIXFMT_C8
	tx.priv.noVblank = !anyEnabled

	if tx.priv.usePalette && tx.palette == nil && !e.cur.usePalette {
		return nil, &LCDError{
			Operation: "Check",
			Details:   "palette-indexed plane enabled without a palette",
		}
	}
	return tx, nil
}

func (e *LCDEngine) checkPlane(plane int, cfg *PlaneConfig, mode *ModeConfig) error {
	if plane == LCD_PLANE_PRIMARY && !e.variant.HasOSD {
		return &LCDError{
			Operation: "Check",
			Details:   fmt.Sprintf("%s has a single plane", e.variant.Name),
		}
	}
	if cfg.FB == nil {
		return &LCDError{Operation: "Check", Details: fmt.Sprintf("plane %d enabled without a frame buffer", plane)}
	}
	fb := cfg.FB
	if !e.variant.SupportsFormat(plane, fb.Format) {
		return &LCDError{
			Operation: "Check",
			Details:   fmt.Sprintf("plane %d does not support %s on %s", plane, fb.Format, e.variant.Name),
		}
	}
	if cfg.SrcW <= 0 || cfg.SrcH <= 0 ||
		cfg.SrcX < 0 || cfg.SrcY < 0 ||
		cfg.SrcX+cfg.SrcW > fb.Width || cfg.SrcY+cfg.SrcH > fb.Height {
		return &LCDError{
			Operation: "Check",
			Details: fmt.Sprintf("plane %d source %dx%d+%d+%d outside %dx%d buffer",
				plane, cfg.SrcW, cfg.SrcH, cfg.SrcX, cfg.SrcY, fb.Width, fb.Height),
		}
	}
	// The scan engine cannot scale: width passes through 1:1 and
	// height is either 1:1 or line-doubled (primary plane only).
	if cfg.DstW != cfg.SrcW {
		return &LCDError{
			Operation: "Check",
			Details:   fmt.Sprintf("plane %d cannot scale %d to %d wide", plane, cfg.SrcW, cfg.DstW),
		}
	}
	doubled := cfg.DstH == 2*cfg.SrcH && plane == e.primaryPlane()
	if cfg.DstH != cfg.SrcH && !doubled {
		return &LCDError{
			Operation: "Check",
			Details:   fmt.Sprintf("plane %d cannot scale %d to %d high", plane, cfg.SrcH, cfg.DstH),
		}
	}
	if cfg.DstX < 0 || cfg.DstY < 0 ||
		cfg.DstX+cfg.DstW > mode.Width || cfg.DstY+cfg.DstH > mode.Height {
		return &LCDError{
			Operation: "Check",
			Details: fmt.Sprintf("plane %d destination %dx%d+%d+%d outside %dx%d mode",
				plane, cfg.DstW, cfg.DstH, cfg.DstX, cfg.DstY, mode.Width, mode.Height),
		}
	}
	return nil
}

func planeConfigChanged(old, new *PlaneConfig) bool {
	if old.Enabled != new.Enabled {
		return true
	}
	if !new.Enabled {
		return false
	}
	if old.FB == nil || new.FB == nil {
		return true
	}
	return old.FB.Format != new.FB.Format ||
		old.SrcW != new.SrcW || old.SrcH != new.SrcH ||
		old.DstX != new.DstX || old.DstY != new.DstY ||
		old.DstW != new.DstW || old.DstH != new.DstH
}

// =============================================================================
// Commit
// =============================================================================

// Commit applies a checked transaction. On return the new configuration
// is scanning out (or scan-out is stopped, if the transaction disables
// everything). A commit that produces frames blocks until the first one
// completes, so back-to-back commits cannot outrun the display.
func (e *LCDEngine) Commit(tx *Transaction) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if tx.modeset && e.crtc == CRTC_ENABLED {
		if err := e.disableCRTC(); err != nil {
			return err
		}
	}

	if tx.palette != nil {
		e.descs.writePalette(tx.palette)
	}

	primary := e.primaryPlane()
	var chains [LCD_PLANE_COUNT]uint32
	for plane := 0; plane < LCD_PLANE_COUNT; plane++ {
		cfg := tx.planes[plane]
		if cfg.Enabled {
			doubled := plane == primary && tx.priv.doublescan
			pal := plane == 0 && tx.priv.usePalette
			chains[plane] = e.descs.buildPlaneChain(plane, &cfg, doubled, pal)
			e.programPlane(plane, &cfg)
			cfg.FB.Retain()
		}
		if old := e.planes[plane].FB; old != nil && e.planes[plane].Enabled {
			old.Release()
		}
		if !cfg.Enabled && e.planes[plane].Enabled && e.variant.HasOSD {
			bit := uint32(LCD_OSDC_F0EN)
			if plane == LCD_PLANE_PRIMARY {
				bit = LCD_OSDC_F1EN
			}
			e.regs.ClearBits(LCD_REG_OSDC, bit)
		}
	}

	if tx.modeset {
		e.programTimings(&tx.mode)
		e.programBusConfig(&tx.mode)
		if err := e.coord.SetPixelRate(pixelClockForBus(&tx.mode)); err != nil {
			return err
		}
	} else if e.coord.Dirty() {
		// A parent clock change invalidated the pixel rate since the
		// last commit; restore it even though the mode is unchanged.
		if err := e.coord.SetPixelRate(pixelClockForBus(&e.mode)); err != nil {
			return err
		}
	}

	e.mode = tx.mode
	e.planes = tx.planes
	e.cur = tx.priv

	snap := &scanSnapshot{mode: tx.mode}
	for plane := range tx.planes {
		cfg := &tx.planes[plane]
		if !cfg.Enabled {
			continue
		}
		snap.planes[plane] = planeScan{
			enabled: true,
			chain:   chains[plane],
			format:  cfg.FB.Format,
			dstX:    cfg.DstX, dstY: cfg.DstY,
			dstW: cfg.DstW, dstH: cfg.DstH,
		}
	}
	e.snap.Store(snap)

	if tx.modeset {
		if tx.priv.noVblank {
			if e.crtc == CRTC_ENABLED {
				return e.disableCRTC()
			}
			return nil
		}
		if err := e.enableCRTC(chains); err != nil {
			return err
		}
	} else {
		e.scan.ModeChanged()
	}

	if tx.priv.noVblank || e.crtc != CRTC_ENABLED {
		return nil
	}

	// Drain any stale completion, then wait for the first frame of the
	// new configuration. A timeout is reported but does not roll back:
	// the hardware state is already committed.
	select {
	case <-e.pending:
	default:
	}
	select {
	case <-e.pending:
	case <-time.After(LCD_VBLANK_WAIT_TIMEOUT):
		fmt.Fprintf(os.Stderr, "lcd: commit: no end-of-frame event within %v\n", LCD_VBLANK_WAIT_TIMEOUT)
	}
	return nil
}

// =============================================================================
// Register programming
// =============================================================================

func (e *LCDEngine) programPlane(plane int, cfg *PlaneConfig) {
	if !e.variant.HasOSD {
		e.programCtrlBPP(cfg.FB.Format)
		return
	}

	xyp, size := uint32(LCD_REG_XYP0), uint32(LCD_REG_SIZE0)
	enBit := uint32(LCD_OSDC_F0EN)
	if plane == LCD_PLANE_PRIMARY {
		xyp, size = LCD_REG_XYP1, LCD_REG_SIZE1
		enBit = LCD_OSDC_F1EN
	}
	e.regs.Write(xyp, uint32(cfg.DstX)<<LCD_XYP_XPOS_LSB|uint32(cfg.DstY)<<LCD_XYP_YPOS_LSB)
	e.regs.Write(size, uint32(cfg.DstW)<<LCD_SIZE_WIDTH_LSB|uint32(cfg.DstH)<<LCD_SIZE_HEIGHT_LSB)
	e.regs.SetBits(LCD_REG_OSDC, enBit)

	if plane == LCD_PLANE_OVERLAY {
		var bpp uint32
		switch cfg.FB.Format {
		case PIXFMT_XRGB1555:
			bpp = LCD_OSDCTRL_BPP_15_16 | LCD_OSDCTRL_RGB555
		case PIXFMT_RGB565:
			bpp = LCD_OSDCTRL_BPP_15_16
		case PIXFMT_RGB888:
			bpp = LCD_OSDCTRL_BPP_24_COMP
		case PIXFMT_XRGB8888:
			bpp = LCD_OSDCTRL_BPP_18_24
		case PIXFMT_XRGB2101010:
			bpp = LCD_OSDCTRL_BPP_30
		default: // C8 scans through the channel-0 ctrl path
			bpp = LCD_OSDCTRL_BPP_18_24
		}
		e.regs.UpdateBits(LCD_REG_OSDCTRL,
			LCD_OSDCTRL_BPP_MASK|LCD_OSDCTRL_RGB555, bpp)
	} else {
		e.programCtrlBPP(cfg.FB.Format)
	}
}

func (e *LCDEngine) programCtrlBPP(format PixelFormat) {
	var bpp uint32
	switch format {
	case PIXFMT_C8:
		bpp = LCD_CTRL_BPP_8
	case PIXFMT_XRGB1555:
		bpp = LCD_CTRL_BPP_15_16 | LCD_CTRL_RGB555
	case PIXFMT_RGB565:
		bpp = LCD_CTRL_BPP_15_16
	case PIXFMT_RGB888:
		bpp = LCD_CTRL_BPP_24_COMP
	case PIXFMT_XRGB8888:
		bpp = LCD_CTRL_BPP_18_24
	case PIXFMT_XRGB2101010:
		bpp = LCD_CTRL_BPP_30
	}
	e.regs.UpdateBits(LCD_REG_CTRL, LCD_CTRL_BPP_MASK|LCD_CTRL_RGB555, bpp)
}

func (e *LCDEngine) programTimings(m *ModeConfig) {
	hds := m.HTotal - m.HSyncStart
	hde := hds + m.Width
	vds := m.VTotal - m.VSyncStart
	vde := vds + m.Height

	e.regs.Write(LCD_REG_VSYNC, uint32(0)<<LCD_VSYNC_VPS_OFFSET|
		uint32(m.VSyncEnd-m.VSyncStart)<<LCD_VSYNC_VPE_OFFSET)
	e.regs.Write(LCD_REG_HSYNC, uint32(0)<<LCD_HSYNC_HPS_OFFSET|
		uint32(m.HSyncEnd-m.HSyncStart)<<LCD_HSYNC_HPE_OFFSET)
	e.regs.Write(LCD_REG_VAT, uint32(m.HTotal)<<LCD_VAT_HT_OFFSET|
		uint32(m.VTotal)<<LCD_VAT_VT_OFFSET)
	e.regs.Write(LCD_REG_DAH, uint32(hds)<<LCD_DAH_HDS_OFFSET|
		uint32(hde)<<LCD_DAH_HDE_OFFSET)
	e.regs.Write(LCD_REG_DAV, uint32(vds)<<LCD_DAV_VDS_OFFSET|
		uint32(vde)<<LCD_DAV_VDE_OFFSET)

	if m.BusFormat == BUS_FMT_RGB888_3X8_DELTA {
		// Sharp special TFT: the PS/CLS gate pulses straddle the end of
		// the display area, SPL follows the hsync pulse, REV flips once
		// per line.
		hpe := m.HSyncEnd - m.HSyncStart
		e.regs.Write(LCD_REG_PS, uint32(hde)<<16|uint32(hde+1))
		e.regs.Write(LCD_REG_CLS, uint32(hde)<<16|uint32(hde+1))
		e.regs.Write(LCD_REG_SPL, uint32(hpe)<<16|uint32(hpe+1))
		e.regs.Write(LCD_REG_REV, uint32(m.HTotal)<<16)
	}
}

func (e *LCDEngine) programBusConfig(m *ModeConfig) {
	var cfg uint32

	switch m.BusFormat {
	case BUS_FMT_RGB565_1X16:
		cfg = LCD_CFG_MODE_GENERIC_16BIT
	case BUS_FMT_RGB666_1X18:
		cfg = LCD_CFG_MODE_GENERIC_18BIT
	case BUS_FMT_RGB888_1X24:
		cfg = LCD_CFG_MODE_GENERIC_24BIT
	case BUS_FMT_RGB888_3X8:
		cfg = LCD_CFG_MODE_8BIT_SERIAL
	case BUS_FMT_RGB888_3X8_DELTA:
		cfg = LCD_CFG_MODE_SPECIAL_TFT_1 | LCD_CFG_REV_POLARITY
	}

	if m.BusFormat != BUS_FMT_RGB888_3X8_DELTA {
		// Non-Sharp panels get the special TFT signals parked.
		cfg |= LCD_CFG_PS_DISABLE | LCD_CFG_CLS_DISABLE |
			LCD_CFG_SPL_DISABLE | LCD_CFG_REV_DISABLE
	}
	if m.HSyncActiveLow {
		cfg |= LCD_CFG_HSYNC_ACTIVE_LOW
	}
	if m.VSyncActiveLow {
		cfg |= LCD_CFG_VSYNC_ACTIVE_LOW
	}
	if m.DEActiveLow {
		cfg |= LCD_CFG_DE_ACTIVE_LOW
	}
	if m.PixClkFallingEdge {
		cfg |= LCD_CFG_PCLK_FALLING_EDGE
	}
	if e.slcd {
		cfg |= LCD_CFG_SLCD
	}
	e.regs.Write(LCD_REG_CFG, cfg)

	// Serial panels shift sub-pixels out one at a time; delta panels
	// alternate the ordering between even and odd lines.
	var rgbc uint32
	if m.BusFormat == BUS_FMT_RGB888_3X8_DELTA {
		rgbc = LCD_RGBC_ODD_RGB | LCD_RGBC_EVEN_GBR
	}
	e.regs.Write(LCD_REG_RGBC, rgbc)

	if err := e.panel.ApplyBusConfig(BusConfig{
		Format:            m.BusFormat,
		HSyncActiveLow:    m.HSyncActiveLow,
		VSyncActiveLow:    m.VSyncActiveLow,
		DEActiveLow:       m.DEActiveLow,
		PixClkFallingEdge: m.PixClkFallingEdge,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "lcd: panel %s rejected bus config: %v\n", e.panel.Name(), err)
	}
}

// pixelClockForBus returns the dot clock the pixel clock must actually
// run at for the given mode: serial 8-bit panels clock each pixel out
// as three byte cycles.
func pixelClockForBus(m *ModeConfig) int64 {
	if m.BusFormat == BUS_FMT_RGB888_3X8 || m.BusFormat == BUS_FMT_RGB888_3X8_DELTA {
		return m.PixelClockHz * 3
	}
	return m.PixelClockHz
}

// =============================================================================
// CRTC enable/disable
// =============================================================================

func (e *LCDEngine) enableCRTC(chains [LCD_PLANE_COUNT]uint32) error {
	e.crtc = CRTC_ENABLING

	e.regs.hwWrite(LCD_REG_STATE, 0)
	e.regs.Write(LCD_REG_DA0, chains[0])
	if e.variant.HasOSD {
		e.regs.Write(LCD_REG_DA1, chains[LCD_PLANE_PRIMARY])
	}
	e.regs.SetBits(LCD_REG_CTRL, LCD_CTRL_BURST_16|LCD_CTRL_OFUP|LCD_CTRL_EOF_IRQ)

	if err := e.pixClk.Enable(); err != nil {
		e.crtc = CRTC_DISABLED
		return &LCDError{Operation: "enableCRTC", Details: "pixel clock", Err: err}
	}
	if err := e.scan.Enable(); err != nil {
		e.pixClk.Disable()
		e.crtc = CRTC_DISABLED
		return err
	}
	e.crtc = CRTC_ENABLED
	e.coord.setVBlankWaiter(e.WaitVBlank)
	return nil
}

// disableCRTC stops scan-out and is a no-op when already stopped, so a
// double disable performs no register writes at all.
func (e *LCDEngine) disableCRTC() error {
	if e.crtc == CRTC_DISABLED {
		return nil
	}
	e.crtc = CRTC_DISABLING
	e.coord.setVBlankWaiter(nil)

	err := e.scan.Disable()
	e.pixClk.Disable()
	e.crtc = CRTC_DISABLED
	return err
}

// Shutdown stops scan-out and releases held buffers and platform
// resources. The engine cannot be reused afterwards.
func (e *LCDEngine) Shutdown() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.shutdown {
		return nil
	}
	e.shutdown = true

	err := e.disableCRTC()
	if e.dma != nil {
		e.dma.Release()
	}
	if parent := e.pixClk.Parent(); parent != nil {
		parent.UnregisterNotifier(e.coord)
	}
	for plane := range e.planes {
		if e.planes[plane].Enabled && e.planes[plane].FB != nil {
			e.planes[plane].FB.Release()
			e.planes[plane].Enabled = false
		}
	}
	e.descs.free()
	return err
}

// =============================================================================
// Frame completion / vblank
// =============================================================================

// handleInterrupt services the controller interrupt: acknowledge the
// end-of-frame flag and deliver the frame event. Runs on the scan
// goroutine.
func (e *LCDEngine) handleInterrupt() {
	state := e.regs.Read(LCD_REG_STATE)
	if state&LCD_STATE_EOF_IRQ == 0 {
		return
	}
	e.regs.hwWrite(LCD_REG_STATE, state&^uint32(LCD_STATE_EOF_IRQ))
	e.completeFrame()
}

// completeFrame wakes every WaitVBlank caller and records one armed
// completion for Commit. Completions coalesce: a slow committer sees
// "at least one frame since", never a backlog.
func (e *LCDEngine) completeFrame() {
	e.frameCount.Add(1)

	e.vbMu.Lock()
	close(e.frameCh)
	e.frameCh = make(chan struct{})
	e.vbMu.Unlock()

	select {
	case e.pending <- struct{}{}:
	default:
	}
}

// Status reports the live scan-out state for display surfaces. Lock
// free, so a render loop can poll it without stalling on an in-flight
// commit.
func (e *LCDEngine) Status() LCDStatus {
	st := LCDStatus{
		Variant:  e.variant.Name,
		ScanPath: e.scan.Name(),
		Frames:   e.frameCount.Load(),
	}
	if snap := e.snap.Load(); snap != nil {
		st.Overlay = snap.planes[LCD_PLANE_OVERLAY].enabled
		st.Primary = snap.planes[LCD_PLANE_PRIMARY].enabled
		if !e.variant.HasOSD {
			st.Primary = snap.planes[0].enabled
			st.Overlay = false
		}
	}
	return st
}

// EnableVBlank unmasks frame event delivery on the active scan path.
func (e *LCDEngine) EnableVBlank() {
	e.scan.EnableVBlank()
}

// DisableVBlank masks frame event delivery on the active scan path.
func (e *LCDEngine) DisableVBlank() {
	e.scan.DisableVBlank()
}

// FrameCount returns the number of completed frames since creation.
func (e *LCDEngine) FrameCount() uint64 {
	return e.frameCount.Load()
}

// WaitVBlank blocks until the next frame completes or the timeout
// elapses.
func (e *LCDEngine) WaitVBlank(timeout time.Duration) error {
	e.vbMu.Lock()
	ch := e.frameCh
	e.vbMu.Unlock()

	select {
	case <-ch:
		return nil
	case <-time.After(timeout):
		return &LCDError{
			Operation: "WaitVBlank",
			Details:   fmt.Sprintf("no end-of-frame event within %v", timeout),
		}
	}
}

// =============================================================================
// Register file access (bus interface)
// =============================================================================

// HandleRead exposes the register file to a memory bus.
func (e *LCDEngine) HandleRead(offset uint32) uint32 {
	return e.regs.Read(offset)
}

// HandleWrite exposes the register file to a memory bus. Hardware-owned
// registers ignore writes.
func (e *LCDEngine) HandleWrite(offset, value uint32) {
	e.regs.Write(offset, value)
}
