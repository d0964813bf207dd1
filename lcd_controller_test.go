// lcd_controller_test.go - Controller core test suite (check/commit, scan-out)

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
	"bytes"
	"testing"
	"time"
)

var (
	_ ScanPath      = (*AutonomousScan)(nil)
	_ ScanPath      = (*PumpedScan)(nil)
	_ DisplayOutput = (*HeadlessOutput)(nil)
	_ Panel         = (*SimPanel)(nil)
	_ CommandPanel  = (*SimPanel)(nil)
	_ ClockNotifier = (*ClockCoordinator)(nil)
)

type testRig struct {
	engine *LCDEngine
	mem    *VideoMemory
	out    *HeadlessOutput
	panel  *SimPanel
	parent *Clock
	pix    *Clock
}

func newTestRig(t *testing.T, variant *LCDVariant, pumped bool) *testRig {
	t.Helper()

	mem := NewVideoMemory(8 << 20)
	parent := NewClock("pll0", 600_000_000, nil)
	pix := NewClock("lcd_pclk", 0, parent)
	pix.SetRateLimits(100_000, 200_000_000)
	outIface, err := NewHeadlessOutput()
	if err != nil {
		t.Fatal(err)
	}
	out := outIface.(*HeadlessOutput)
	panel := NewSimPanel("test-panel")

	var dma TransferChannel
	if pumped {
		dma = NewSLCDTransferChannel(mem, panel.ReceiveBurst)
	}
	engine, err := NewLCDEngine(variant, mem, pix, dma, panel, out)
	if err != nil {
		t.Fatalf("NewLCDEngine: %v", err)
	}
	t.Cleanup(func() { engine.Shutdown() })
	return &testRig{engine: engine, mem: mem, out: out, panel: panel, parent: parent, pix: pix}
}

// testMode is a tiny fast mode so commit waits complete in a few
// milliseconds rather than a frame of wall-clock 60Hz time.
func testMode(w, h int) *ModeConfig {
	ht, vt := w+8, h+4
	return &ModeConfig{
		Width: w, Height: h,
		HSyncStart: w + 2, HSyncEnd: w + 4, HTotal: ht,
		VSyncStart: h + 1, VSyncEnd: h + 2, VTotal: vt,
		PixelClockHz: int64(ht) * int64(vt) * 240,
		RefreshRate:  240,
		BusFormat:    BUS_FMT_RGB565_1X16,
	}
}

func fullPlane(fb *FrameBuffer) *PlaneConfig {
	return &PlaneConfig{
		Enabled: true, FB: fb,
		SrcW: fb.Width, SrcH: fb.Height,
		DstW: fb.Width, DstH: fb.Height,
	}
}

// fill565 floods a RGB565 buffer with one pixel value.
func fill565(fb *FrameBuffer, v uint16) {
	px := fb.Pixels()
	for i := 0; i+1 < len(px); i += 2 {
		px[i] = byte(v)
		px[i+1] = byte(v >> 8)
	}
}

func mustCommit(t *testing.T, e *LCDEngine, req *AtomicRequest) *Transaction {
	t.Helper()
	tx, err := e.Check(req)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if err := e.Commit(tx); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	return tx
}

// =============================================================================
// Check
// =============================================================================

func TestCheck_RejectsOversizedMode(t *testing.T) {
	rig := newTestRig(t, &LCDVariantJZ4740, false)
	mode := testMode(1024, 768) // JZ4740 tops out at 800x600
	if _, err := rig.engine.Check(&AtomicRequest{Mode: mode}); err == nil {
		t.Error("expected an error for a mode beyond the variant limits")
	}
}

func TestCheck_RejectsModeWithoutPixelClock(t *testing.T) {
	rig := newTestRig(t, &LCDVariantJZ4740, false)
	mode := testMode(320, 240)
	mode.PixelClockHz = 0
	if _, err := rig.engine.Check(&AtomicRequest{Mode: mode}); err == nil {
		t.Error("expected an error for a mode with no pixel clock")
	}
}

func TestCheck_RejectsSecondPlaneOnSinglePlaneVariant(t *testing.T) {
	rig := newTestRig(t, &LCDVariantJZ4740, false)
	fb := newTestFB(t, rig.mem, 64, 64, PIXFMT_RGB565)
	defer fb.Release()

	req := &AtomicRequest{Mode: testMode(320, 240)}
	req.Planes[LCD_PLANE_PRIMARY] = fullPlane(fb)
	if _, err := rig.engine.Check(req); err == nil {
		t.Error("expected an error enabling plane 1 on a single-plane variant")
	}
}

func TestCheck_RejectsUnsupportedFormat(t *testing.T) {
	rig := newTestRig(t, &LCDVariantJZ4770, false)
	fb := newTestFB(t, rig.mem, 64, 64, PIXFMT_C8)
	defer fb.Release()

	// Palette-indexed scans are an overlay feature; the primary plane
	// never accepts them.
	req := &AtomicRequest{Mode: testMode(320, 240)}
	req.Planes[LCD_PLANE_PRIMARY] = fullPlane(fb)
	if _, err := rig.engine.Check(req); err == nil {
		t.Error("expected an error for C8 on the primary plane")
	}
}

func TestCheck_RejectsScaling(t *testing.T) {
	rig := newTestRig(t, &LCDVariantJZ4770, false)
	fb := newTestFB(t, rig.mem, 64, 64, PIXFMT_RGB565)
	defer fb.Release()

	req := &AtomicRequest{Mode: testMode(320, 240)}
	plane := fullPlane(fb)
	plane.DstW = 128
	req.Planes[LCD_PLANE_PRIMARY] = plane
	if _, err := rig.engine.Check(req); err == nil {
		t.Error("expected an error for horizontal scaling")
	}

	plane = fullPlane(fb)
	plane.DstH = 192 // 3x is not line doubling
	req.Planes[LCD_PLANE_PRIMARY] = plane
	if _, err := rig.engine.Check(req); err == nil {
		t.Error("expected an error for 3x vertical scaling")
	}

	// Line doubling on the overlay plane is likewise out.
	plane = fullPlane(fb)
	plane.DstH = 128
	req.Planes[LCD_PLANE_PRIMARY] = nil
	req.Planes[LCD_PLANE_OVERLAY] = plane
	if _, err := rig.engine.Check(req); err == nil {
		t.Error("expected an error doubling the overlay plane")
	}
}

func TestCheck_RejectsSourceOutsideBuffer(t *testing.T) {
	rig := newTestRig(t, &LCDVariantJZ4740, false)
	fb := newTestFB(t, rig.mem, 64, 64, PIXFMT_RGB565)
	defer fb.Release()

	req := &AtomicRequest{Mode: testMode(320, 240)}
	plane := fullPlane(fb)
	plane.SrcX = 32 // 32+64 > 64
	req.Planes[0] = plane
	if _, err := rig.engine.Check(req); err == nil {
		t.Error("expected an error for a source window past the buffer edge")
	}
}

func TestCheck_RejectsDestinationOutsideMode(t *testing.T) {
	rig := newTestRig(t, &LCDVariantJZ4740, false)
	fb := newTestFB(t, rig.mem, 64, 64, PIXFMT_RGB565)
	defer fb.Release()

	req := &AtomicRequest{Mode: testMode(320, 240)}
	plane := fullPlane(fb)
	plane.DstX = 300 // 300+64 > 320
	req.Planes[0] = plane
	if _, err := rig.engine.Check(req); err == nil {
		t.Error("expected an error for a destination past the mode edge")
	}
}

func TestCheck_RejectsBadPalette(t *testing.T) {
	rig := newTestRig(t, &LCDVariantJZ4770, false)

	if _, err := rig.engine.Check(&AtomicRequest{Palette: make([]uint32, 16)}); err == nil {
		t.Error("expected an error for a short palette")
	}

	// A palette-indexed overlay with no palette supplied and none
	// loaded must not slip through.
	fb := newTestFB(t, rig.mem, 32, 32, PIXFMT_C8)
	defer fb.Release()
	req := &AtomicRequest{Mode: testMode(320, 240)}
	req.Planes[LCD_PLANE_OVERLAY] = fullPlane(fb)
	if _, err := rig.engine.Check(req); err == nil {
		t.Error("expected an error enabling a C8 plane without a palette")
	}
}

func TestCheck_HasNoSideEffects(t *testing.T) {
	rig := newTestRig(t, &LCDVariantJZ4740, false)
	before := rig.engine.regs.WriteCount()

	if _, err := rig.engine.Check(&AtomicRequest{Mode: testMode(4096, 4096)}); err == nil {
		t.Fatal("expected a rejection")
	}
	ok, err := rig.engine.Check(&AtomicRequest{Mode: testMode(320, 240)})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !ok.NeedsModeset() {
		t.Error("a fresh mode must need a modeset")
	}

	if got := rig.engine.regs.WriteCount(); got != before {
		t.Errorf("Check touched %d registers; it must program nothing", got-before)
	}
	if rig.engine.FrameCount() != 0 {
		t.Error("Check must not start scan-out")
	}
}

func TestCheck_PlaneMoveNeedsModeset(t *testing.T) {
	rig := newTestRig(t, &LCDVariantJZ4740, false)
	fb := newTestFB(t, rig.mem, 64, 64, PIXFMT_RGB565)
	defer fb.Release()

	req := &AtomicRequest{Mode: testMode(320, 240)}
	req.Planes[0] = fullPlane(fb)
	mustCommit(t, rig.engine, req)

	// Same plane shifted right: the descriptor ring and plane registers
	// must be reprogrammed, so the scan restarts.
	moved := fullPlane(fb)
	moved.DstX = 16
	req = &AtomicRequest{}
	req.Planes[0] = moved
	tx, err := rig.engine.Check(req)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !tx.NeedsModeset() {
		t.Error("moving a plane must need a modeset")
	}

	// Flipping to a new buffer of identical geometry must not.
	fb2 := newTestFB(t, rig.mem, 64, 64, PIXFMT_RGB565)
	defer fb2.Release()
	req = &AtomicRequest{}
	req.Planes[0] = fullPlane(fb2)
	tx, err = rig.engine.Check(req)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if tx.NeedsModeset() {
		t.Error("a pure page flip must not need a modeset")
	}
	if err := rig.engine.Commit(tx); err != nil {
		t.Fatalf("Commit: %v", err)
	}
}

// =============================================================================
// Commit / scan-out
// =============================================================================

func TestCommit_FirstFramePresented(t *testing.T) {
	rig := newTestRig(t, &LCDVariantJZ4740, false)
	fb := newTestFB(t, rig.mem, 320, 240, PIXFMT_RGB565)
	defer fb.Release()
	fill565(fb, 0xF800) // red

	req := &AtomicRequest{Mode: testMode(320, 240)}
	req.Planes[0] = fullPlane(fb)
	mustCommit(t, rig.engine, req)

	// Commit waits for the first end-of-frame, so the output has seen
	// at least one composed frame by now.
	if rig.out.GetFrameCount() == 0 {
		t.Fatal("no frame reached the output after commit")
	}
	frame := rig.out.LastFrame()
	if len(frame) != 320*240*4 {
		t.Fatalf("frame is %d bytes, want %d", len(frame), 320*240*4)
	}
	r, g, b := frame[0], frame[1], frame[2]
	if r != 0xFF || g != 0 || b != 0 {
		t.Errorf("pixel (0,0) = %d,%d,%d, want pure red", r, g, b)
	}
	if rig.engine.FrameCount() == 0 {
		t.Error("frame counter did not advance")
	}
}

func TestCommit_DoublescanDoublesRows(t *testing.T) {
	rig := newTestRig(t, &LCDVariantJZ4740, false)
	fb := newTestFB(t, rig.mem, 64, 32, PIXFMT_RGB565)
	defer fb.Release()

	// Alternate source rows red/green so doubling is observable.
	px := fb.Pixels()
	for row := 0; row < 32; row++ {
		v := uint16(0xF800)
		if row%2 == 1 {
			v = 0x07E0
		}
		for col := 0; col < 64; col++ {
			off := row*fb.Pitch + col*2
			px[off] = byte(v)
			px[off+1] = byte(v >> 8)
		}
	}

	req := &AtomicRequest{Mode: testMode(64, 64)}
	plane := fullPlane(fb)
	plane.DstH = 64
	req.Planes[0] = plane
	mustCommit(t, rig.engine, req)

	frame := rig.out.LastFrame()
	if len(frame) != 64*64*4 {
		t.Fatalf("frame is %d bytes, want %d", len(frame), 64*64*4)
	}
	rowAt := func(n int) []byte { return frame[n*64*4 : (n+1)*64*4] }
	if !bytes.Equal(rowAt(0), rowAt(1)) {
		t.Error("output rows 0 and 1 must repeat source row 0")
	}
	if bytes.Equal(rowAt(1), rowAt(2)) {
		t.Error("output rows 1 and 2 must come from different source rows")
	}
	if r := rowAt(2); r[0] != 0 || r[1] == 0 {
		t.Errorf("output row 2 = %d,%d,%d, want green (source row 1)", r[0], r[1], r[2])
	}
}

func TestCommit_OverlayComposesUnderPrimary(t *testing.T) {
	rig := newTestRig(t, &LCDVariantJZ4770, false)

	over := newTestFB(t, rig.mem, 64, 64, PIXFMT_RGB565)
	defer over.Release()
	fill565(over, 0x001F) // blue
	prim := newTestFB(t, rig.mem, 32, 32, PIXFMT_RGB565)
	defer prim.Release()
	fill565(prim, 0xF800) // red

	req := &AtomicRequest{Mode: testMode(64, 64)}
	req.Planes[LCD_PLANE_OVERLAY] = fullPlane(over)
	p := fullPlane(prim)
	p.DstX, p.DstY = 16, 16
	req.Planes[LCD_PLANE_PRIMARY] = p
	mustCommit(t, rig.engine, req)

	frame := rig.out.LastFrame()
	at := func(x, y int) (byte, byte, byte) {
		off := (y*64 + x) * 4
		return frame[off], frame[off+1], frame[off+2]
	}
	if r, _, b := at(0, 0); b != 0xFF || r != 0 {
		t.Errorf("corner = %d,_,%d, want overlay blue", r, b)
	}
	if r, _, b := at(32, 32); r != 0xFF || b != 0 {
		t.Errorf("centre = %d,_,%d, want primary red on top", r, b)
	}

	st := rig.engine.Status()
	if !st.Overlay || !st.Primary {
		t.Errorf("status = %+v, want both planes live", st)
	}
}

func TestCommit_PaletteIndexedOverlay(t *testing.T) {
	rig := newTestRig(t, &LCDVariantJZ4770, false)

	fb := newTestFB(t, rig.mem, 32, 32, PIXFMT_C8)
	defer fb.Release()
	px := fb.Pixels()
	for i := range px {
		px[i] = 7
	}

	palette := make([]uint32, LCD_PALETTE_SIZE)
	palette[7] = 0x00FF00 // index 7 is green

	req := &AtomicRequest{Mode: testMode(32, 32), Palette: palette}
	req.Planes[LCD_PLANE_OVERLAY] = fullPlane(fb)
	mustCommit(t, rig.engine, req)

	frame := rig.out.LastFrame()
	if r, g, b := frame[0], frame[1], frame[2]; g == 0 || r != 0 || b != 0 {
		t.Errorf("pixel (0,0) = %d,%d,%d, want palette green", r, g, b)
	}
}

func TestCommit_AllDisabledDoesNotBlock(t *testing.T) {
	rig := newTestRig(t, &LCDVariantJZ4740, false)
	fb := newTestFB(t, rig.mem, 64, 64, PIXFMT_RGB565)
	defer fb.Release()

	req := &AtomicRequest{Mode: testMode(320, 240)}
	req.Planes[0] = fullPlane(fb)
	mustCommit(t, rig.engine, req)

	// Disabling every plane has no frame to wait for; the commit must
	// return immediately rather than sit out a vblank timeout.
	start := time.Now()
	req = &AtomicRequest{}
	req.Planes[0] = &PlaneConfig{}
	mustCommit(t, rig.engine, req)
	if elapsed := time.Since(start); elapsed > LCD_VBLANK_WAIT_TIMEOUT {
		t.Errorf("all-disabled commit took %v", elapsed)
	}
}

func TestCommit_DoubleDisableWritesNothing(t *testing.T) {
	rig := newTestRig(t, &LCDVariantJZ4740, false)
	fb := newTestFB(t, rig.mem, 64, 64, PIXFMT_RGB565)
	defer fb.Release()

	req := &AtomicRequest{Mode: testMode(320, 240)}
	req.Planes[0] = fullPlane(fb)
	mustCommit(t, rig.engine, req)

	req = &AtomicRequest{}
	req.Planes[0] = &PlaneConfig{}
	mustCommit(t, rig.engine, req)

	// A second identical disable must be a pure no-op at the register
	// level.
	before := rig.engine.regs.WriteCount()
	req = &AtomicRequest{}
	req.Planes[0] = &PlaneConfig{}
	mustCommit(t, rig.engine, req)
	if got := rig.engine.regs.WriteCount(); got != before {
		t.Errorf("second disable performed %d register writes, want 0", got-before)
	}
}

func TestWaitVBlank(t *testing.T) {
	rig := newTestRig(t, &LCDVariantJZ4740, false)

	// Nothing scanning: the wait must time out, not hang.
	if err := rig.engine.WaitVBlank(10 * time.Millisecond); err == nil {
		t.Error("expected a timeout with scan-out stopped")
	}

	fb := newTestFB(t, rig.mem, 64, 64, PIXFMT_RGB565)
	defer fb.Release()
	req := &AtomicRequest{Mode: testMode(64, 64)}
	req.Planes[0] = fullPlane(fb)
	mustCommit(t, rig.engine, req)

	for i := 0; i < 3; i++ {
		if err := rig.engine.WaitVBlank(time.Second); err != nil {
			t.Fatalf("wait %d: %v", i, err)
		}
	}

	n := rig.engine.FrameCount()
	rig.engine.DisableVBlank()
	time.Sleep(50 * time.Millisecond)
	if got := rig.engine.FrameCount(); got != n {
		t.Errorf("frame events kept arriving while masked: %d -> %d", n, got)
	}
	rig.engine.EnableVBlank()
	if err := rig.engine.WaitVBlank(time.Second); err != nil {
		t.Errorf("no frame event after unmasking: %v", err)
	}
}

func TestStatus_SinglePlaneVariant(t *testing.T) {
	rig := newTestRig(t, &LCDVariantJZ4740, false)

	st := rig.engine.Status()
	if st.Variant != "JZ4740" || st.ScanPath != "autonomous" {
		t.Errorf("status = %+v", st)
	}
	if st.Primary || st.Overlay {
		t.Error("no plane committed, none must report live")
	}

	fb := newTestFB(t, rig.mem, 64, 64, PIXFMT_RGB565)
	defer fb.Release()
	req := &AtomicRequest{Mode: testMode(64, 64)}
	req.Planes[0] = fullPlane(fb)
	mustCommit(t, rig.engine, req)

	st = rig.engine.Status()
	if !st.Primary {
		t.Error("the single plane must report as the primary image")
	}
	if st.Overlay {
		t.Error("a single-plane variant has no overlay to report")
	}
}

func TestCapabilities(t *testing.T) {
	rig := newTestRig(t, &LCDVariantJZ4770, false)
	caps := rig.engine.Capabilities()
	if !caps.HasOSD || caps.MaxWidth != 1280 || caps.MaxHeight != 720 {
		t.Errorf("capabilities = %+v", caps)
	}
	if caps.Pumped {
		t.Error("autonomous build must not report the pumped path")
	}
	if len(caps.Formats[LCD_PLANE_OVERLAY]) == 0 || len(caps.Formats[LCD_PLANE_PRIMARY]) == 0 {
		t.Error("both planes must advertise formats")
	}

	single := newTestRig(t, &LCDVariantJZ4740, false)
	caps = single.engine.Capabilities()
	if caps.HasOSD {
		t.Error("JZ4740 must not advertise the OSD split")
	}
	if len(caps.Formats[0]) == 0 {
		t.Error("the single plane must advertise formats")
	}
}

func TestRegisterFile_BusAccess(t *testing.T) {
	rig := newTestRig(t, &LCDVariantJZ4740, false)
	fb := newTestFB(t, rig.mem, 64, 64, PIXFMT_RGB565)
	defer fb.Release()

	req := &AtomicRequest{Mode: testMode(64, 64)}
	req.Planes[0] = fullPlane(fb)
	mustCommit(t, rig.engine, req)

	if ctrl := rig.engine.HandleRead(LCD_REG_CTRL); ctrl&LCD_CTRL_ENABLE == 0 {
		t.Errorf("CTRL = %#x after enable, expected the enable bit", ctrl)
	}
	if da := rig.engine.HandleRead(LCD_REG_DA0); da == 0 {
		t.Error("DA0 must hold the descriptor ring entry point")
	}

	// The scan engine owns the progress mirrors; bus writes bounce off.
	rig.engine.HandleWrite(LCD_REG_IID, 0xAB)
	if rig.engine.HandleRead(LCD_REG_IID) == 0xAB {
		t.Error("bus write to a hardware-owned register landed")
	}
}

func TestCommit_SharpPanelProgramsSpecialTFT(t *testing.T) {
	rig := newTestRig(t, &LCDVariantJZ4740, false)
	fb := newTestFB(t, rig.mem, 64, 64, PIXFMT_RGB565)
	defer fb.Release()

	mode := testMode(64, 64)
	mode.BusFormat = BUS_FMT_RGB888_3X8_DELTA
	req := &AtomicRequest{Mode: mode}
	req.Planes[0] = fullPlane(fb)
	mustCommit(t, rig.engine, req)

	cfg := rig.engine.HandleRead(LCD_REG_CFG)
	if cfg&LCD_CFG_MODE_MASK != LCD_CFG_MODE_SPECIAL_TFT_1 {
		t.Errorf("CFG mode = %#x, want special TFT", cfg&LCD_CFG_MODE_MASK)
	}
	if cfg&LCD_CFG_REV_POLARITY == 0 {
		t.Error("Sharp panels drive REV with inverted polarity")
	}
	if cfg&(LCD_CFG_PS_DISABLE|LCD_CFG_CLS_DISABLE|LCD_CFG_SPL_DISABLE|LCD_CFG_REV_DISABLE) != 0 {
		t.Error("special TFT signals must not be parked on the Sharp path")
	}

	// For the 64x64 test mode: hds = 72-66 = 6, hde = 6+64 = 70,
	// hpe = 68-66 = 2.
	if ps := rig.engine.HandleRead(LCD_REG_PS); ps != 70<<16|71 {
		t.Errorf("PS = %#x, want %#x", ps, uint32(70<<16|71))
	}
	if cls := rig.engine.HandleRead(LCD_REG_CLS); cls != 70<<16|71 {
		t.Errorf("CLS = %#x, want %#x", cls, uint32(70<<16|71))
	}
	if spl := rig.engine.HandleRead(LCD_REG_SPL); spl != 2<<16|3 {
		t.Errorf("SPL = %#x, want %#x", spl, uint32(2<<16|3))
	}
	if rev := rig.engine.HandleRead(LCD_REG_REV); rev != 72<<16 {
		t.Errorf("REV = %#x, want %#x", rev, uint32(72<<16))
	}
	if rgbc := rig.engine.HandleRead(LCD_REG_RGBC); rgbc != LCD_RGBC_ODD_RGB|LCD_RGBC_EVEN_GBR {
		t.Errorf("RGBC = %#x, want delta panel ordering", rgbc)
	}

	// Moving back to a generic panel parks the Sharp signals and
	// restores natural sub-pixel order.
	generic := &AtomicRequest{Mode: testMode(64, 64)}
	generic.Planes[0] = fullPlane(fb)
	mustCommit(t, rig.engine, generic)

	cfg = rig.engine.HandleRead(LCD_REG_CFG)
	if cfg&(LCD_CFG_PS_DISABLE|LCD_CFG_CLS_DISABLE|LCD_CFG_SPL_DISABLE|LCD_CFG_REV_DISABLE) !=
		LCD_CFG_PS_DISABLE|LCD_CFG_CLS_DISABLE|LCD_CFG_SPL_DISABLE|LCD_CFG_REV_DISABLE {
		t.Error("generic panels must park the special TFT signals")
	}
	if rgbc := rig.engine.HandleRead(LCD_REG_RGBC); rgbc != 0 {
		t.Errorf("RGBC = %#x after leaving the Sharp mode, want 0", rgbc)
	}
}

func TestCommit_ImmediateReenableAfterDisable(t *testing.T) {
	rig := newTestRig(t, &LCDVariantJZ4740, false)
	fb := newTestFB(t, rig.mem, 64, 64, PIXFMT_RGB565)
	defer fb.Release()

	for i := 0; i < 25; i++ {
		on := &AtomicRequest{Mode: testMode(64, 64)}
		on.Planes[0] = fullPlane(fb)
		mustCommit(t, rig.engine, on)

		off := &AtomicRequest{}
		off.Planes[0] = &PlaneConfig{}
		mustCommit(t, rig.engine, off)

		// The raster acknowledged the quiesce before the disable
		// returned, so by now its control writeback is fully done: the
		// enable bit is down and nothing from the old scan can land on
		// top of the re-enable that follows.
		if ctrl := rig.engine.HandleRead(LCD_REG_CTRL); ctrl&LCD_CTRL_ENABLE != 0 {
			t.Fatalf("iteration %d: enable bit still up after disable (CTRL=%#x)", i, ctrl)
		}

		mustCommit(t, rig.engine, on)
		if err := rig.engine.WaitVBlank(LCD_VBLANK_WAIT_TIMEOUT); err != nil {
			t.Fatalf("iteration %d: no frame after re-enable: %v", i, err)
		}
	}
}

func TestShutdown_ReleasesBuffers(t *testing.T) {
	rig := newTestRig(t, &LCDVariantJZ4740, false)
	fb := newTestFB(t, rig.mem, 64, 64, PIXFMT_RGB565)

	req := &AtomicRequest{Mode: testMode(64, 64)}
	req.Planes[0] = fullPlane(fb)
	mustCommit(t, rig.engine, req)

	fb.Release() // engine still holds its commit reference
	if err := rig.engine.Shutdown(); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}

	// Both the buffer and the descriptor block are back in the arena:
	// an allocation the size of the whole remaining arena succeeds.
	if _, err := rig.mem.Alloc(6<<20, 64); err != nil {
		t.Errorf("memory not returned after shutdown: %v", err)
	}
}
