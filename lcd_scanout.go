// lcd_scanout.go - Autonomous (free-running) scan-out path

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
lcd_scanout.go - Autonomous Scan Path

Models a free-running raster engine: once enabled it fetches descriptor
rings, streams their payloads through the pixel pipeline into the
display output, and raises an end-of-frame interrupt every frame, with
no software in the loop. Software stops it by setting the quiesce
request bit and waiting for the stopped flag, exactly as it would on
real silicon.
*/

package main

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

type AutonomousScan struct {
	engine  *LCDEngine
	mu      sync.Mutex
	running atomic.Bool
	done    chan struct{}

	frame []byte // reused RGBA compose buffer
}

func newAutonomousScan(e *LCDEngine) *AutonomousScan {
	return &AutonomousScan{engine: e}
}

func (s *AutonomousScan) Name() string { return "autonomous" }

func (s *AutonomousScan) Enable() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running.Load() {
		return nil
	}
	s.engine.regs.UpdateBits(LCD_REG_CTRL,
		LCD_CTRL_ENABLE|LCD_CTRL_DISABLE, LCD_CTRL_ENABLE)
	s.done = make(chan struct{})
	s.running.Store(true)
	go s.rasterLoop(s.done)
	return nil
}

// Disable requests a quiesce and waits for the raster to acknowledge
// it, bounded by LCD_SCAN_STOP_TIMEOUT. Idempotent: a second call sees
// the engine already stopped and touches nothing.
func (s *AutonomousScan) Disable() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running.Load() {
		return nil
	}
	s.engine.regs.SetBits(LCD_REG_CTRL, LCD_CTRL_DISABLE)
	_, err := s.engine.regs.ReadPoll(LCD_REG_STATE,
		func(v uint32) bool { return v&LCD_STATE_DISABLED != 0 },
		LCD_REG_POLL_INTERVAL, LCD_SCAN_STOP_TIMEOUT)
	s.running.Store(false)
	if err != nil {
		// The raster failed to acknowledge; force it down so a wedged
		// frame cannot outlive the disable.
		close(s.done)
		return &LCDError{Operation: "Disable", Details: "scan did not quiesce", Err: err}
	}
	return nil
}

func (s *AutonomousScan) ModeChanged() {}

func (s *AutonomousScan) EnableVBlank() {
	s.engine.regs.SetBits(LCD_REG_CTRL, LCD_CTRL_EOF_IRQ)
}

func (s *AutonomousScan) DisableVBlank() {
	s.engine.regs.ClearBits(LCD_REG_CTRL, LCD_CTRL_EOF_IRQ)
}

// framePeriod derives the frame time from the programmed timings and
// the live pixel clock rate, so parent clock changes immediately show
// up as a different refresh rate.
func (s *AutonomousScan) framePeriod() time.Duration {
	snap := s.engine.snap.Load()
	rate := s.engine.pixClk.Rate()
	if snap == nil || rate <= 0 || snap.mode.HTotal <= 0 || snap.mode.VTotal <= 0 {
		return time.Second / LCD_DEFAULT_REFRESH_RATE
	}
	ticks := int64(snap.mode.HTotal) * int64(snap.mode.VTotal)
	return time.Duration(ticks * int64(time.Second) / rate)
}

func (s *AutonomousScan) rasterLoop(done chan struct{}) {
	for {
		select {
		case <-done:
			return
		case <-time.After(s.framePeriod()):
		}

		ctrl := s.engine.regs.Read(LCD_REG_CTRL)
		if ctrl&LCD_CTRL_DISABLE != 0 {
			// Quiesce request: finish at the frame boundary, drop the
			// enable bit, then report stopped. The ack must come last:
			// Disable returns on it, and a re-enable may be programmed
			// the moment it does.
			s.engine.regs.hwWrite(LCD_REG_CTRL, ctrl&^uint32(LCD_CTRL_ENABLE))
			s.engine.regs.hwWrite(LCD_REG_STATE,
				s.engine.regs.Read(LCD_REG_STATE)|LCD_STATE_DISABLED)
			return
		}
		s.scanFrame(ctrl)
	}
}

// scanFrame walks the committed descriptor rings once and presents the
// composed result, then raises end-of-frame.
func (s *AutonomousScan) scanFrame(ctrl uint32) {
	snap := s.engine.snap.Load()
	if snap == nil {
		return
	}
	w, h := snap.mode.Width, snap.mode.Height
	if w <= 0 || h <= 0 {
		return
	}

	if len(s.frame) != w*h*4 {
		s.frame = make([]byte, w*h*4)
	}
	for i := range s.frame {
		if i%4 == 3 {
			s.frame[i] = 0xFF
		} else {
			s.frame[i] = 0
		}
	}

	// Fixed hardware Z-order: channel 0 (overlay) underneath, channel 1
	// (primary) on top.
	for plane := 0; plane < LCD_PLANE_COUNT; plane++ {
		ps := &snap.planes[plane]
		if !ps.enabled {
			continue
		}
		s.scanPlane(plane, ps, w)
	}

	if s.engine.output != nil {
		if err := s.engine.output.UpdateFrame(s.frame); err != nil {
			fmt.Fprintf(os.Stderr, "lcd: frame presentation failed: %v\n", err)
		}
	}

	// The end-of-frame flag latches regardless of the mask; the mask
	// only gates the interrupt line.
	state := s.engine.regs.Read(LCD_REG_STATE)
	s.engine.regs.hwWrite(LCD_REG_STATE, state|LCD_STATE_EOF_IRQ)
	if ctrl&LCD_CTRL_EOF_IRQ != 0 {
		s.engine.irq.Assert()
	}
}

func (s *AutonomousScan) scanPlane(plane int, ps *planeScan, stride int) {
	descs, _, err := walkChain(s.engine.mem, ps.chain)
	if err != nil {
		fmt.Fprintf(os.Stderr, "lcd: plane %d: %v\n", plane, err)
		return
	}

	var (
		payload []byte
		palette []uint16
		last    dmaDescriptor
	)
	for _, d := range descs {
		words := d.cmd & LCD_CMD_LEN_MASK
		// A descriptor mid-update can pair a stale length with a new
		// address for one fetch; skip anything that reaches past the
		// region rather than scan garbage.
		if d.addr+words*4 > s.engine.mem.Size() {
			continue
		}
		if d.cmd&LCD_CMD_ENABLE_PAL != 0 {
			raw := s.engine.mem.Bytes(d.addr, words*4)
			palette = make([]uint16, LCD_PALETTE_SIZE)
			for i := range palette {
				palette[i] = uint16(raw[i*2]) | uint16(raw[i*2+1])<<8
			}
			continue
		}
		payload = append(payload, s.engine.mem.Bytes(d.addr, words*4)...)
		last = d
	}

	s.blitPlane(ps, payload, palette, stride)

	// Mirror the fetch engine's progress registers off the last frame
	// descriptor.
	saReg, fidReg, cmdReg := uint32(LCD_REG_SA0), uint32(LCD_REG_FID0), uint32(LCD_REG_CMD0)
	if plane == LCD_PLANE_PRIMARY && s.engine.variant.HasOSD {
		saReg, fidReg, cmdReg = LCD_REG_SA1, LCD_REG_FID1, LCD_REG_CMD1
	}
	s.engine.regs.hwWrite(saReg, last.addr)
	s.engine.regs.hwWrite(fidReg, last.id)
	s.engine.regs.hwWrite(cmdReg, last.cmd)
	s.engine.regs.hwWrite(LCD_REG_IID, last.id)
}

// blitPlane converts one plane's scanned payload into the RGBA compose
// buffer at its destination rectangle.
func (s *AutonomousScan) blitPlane(ps *planeScan, payload []byte, palette []uint16, stride int) {
	bpp := ps.format.BytesPerPixel()
	rowBytes := ps.dstW * bpp
	for row := 0; row < ps.dstH; row++ {
		src := row * rowBytes
		if src+rowBytes > len(payload) {
			return
		}
		dst := ((ps.dstY+row)*stride + ps.dstX) * 4
		for col := 0; col < ps.dstW; col++ {
			r, g, b := decodePixel(ps.format, payload[src+col*bpp:], palette)
			s.frame[dst+col*4+0] = r
			s.frame[dst+col*4+1] = g
			s.frame[dst+col*4+2] = b
			s.frame[dst+col*4+3] = 0xFF
		}
	}
}

// decodePixel expands one stored pixel to 8-bit RGB.
func decodePixel(format PixelFormat, src []byte, palette []uint16) (r, g, b byte) {
	switch format {
	case PIXFMT_C8:
		var v uint16
		if palette != nil {
			v = palette[src[0]]
		}
		return expand565(v)
	case PIXFMT_XRGB1555:
		v := uint16(src[0]) | uint16(src[1])<<8
		r = byte(v>>10&0x1F) << 3
		g = byte(v>>5&0x1F) << 3
		b = byte(v&0x1F) << 3
		return r | r>>5, g | g>>5, b | b>>5
	case PIXFMT_RGB565:
		return expand565(uint16(src[0]) | uint16(src[1])<<8)
	case PIXFMT_RGB888:
		return src[2], src[1], src[0]
	case PIXFMT_XRGB8888:
		return src[2], src[1], src[0]
	case PIXFMT_XRGB2101010:
		v := uint32(src[0]) | uint32(src[1])<<8 | uint32(src[2])<<16 | uint32(src[3])<<24
		return byte(v >> 22 & 0xFF), byte(v >> 12 & 0xFF), byte(v >> 2 & 0xFF)
	}
	return 0, 0, 0
}

func expand565(v uint16) (r, g, b byte) {
	r = byte(v>>11&0x1F) << 3
	g = byte(v>>5&0x3F) << 2
	b = byte(v&0x1F) << 3
	return r | r>>5, g | g>>6, b | b>>5
}
