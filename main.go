// main.go - Main entry point for the IntuitionEngine LCD controller demo

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
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

func boilerPlate() {
	fmt.Println("\n\033[38;2;255;20;147m ██▓ ███▄    █ ▄▄▄█████▓ █    ██  ██▓▄▄▄█████▓ ██▓ ▒█████   ███▄    █    ▓█████  ███▄    █   ▄████  ██▓ ███▄    █ ▓█████\033[0m\n\033[38;2;255;50;147m▓██▒ ██ ▀█   █ ▓  ██▒ ▓▒ ██  ▓██▒▓██▒▓  ██▒ ▓▒▓██▒▒██▒  ██▒ ██ ▀█   █    ▓█   ▀  ██ ▀█   █  ██▒ ▀█▒▓██▒ ██ ▀█   █ ▓█   ▀\033[0m\n\033[38;2;255;80;147m▒██▒▓██  ▀█ ██▒▒ ▓██░ ▒░▓██  ▒██░▒██▒▒ ▓██░ ▒░▒██▒▒██░  ██▒▓██  ▀█ ██▒   ▒███   ▓██  ▀█ ██▒▒██░▄▄▄░▒██▒▓██  ▀█ ██▒▒███\033[0m\n\033[38;2;255;110;147m░██░▓██▒  ▐▌██▒░ ▓██▓ ░ ▓▓█  ░██░░██░░ ▓██▓ ░ ░██░▒██   ██░▓██▒  ▐▌██▒   ▒▓█  ▄ ▓██▒  ▐▌██▒░▓█  ██▓░██░▓██▒  ▐▌██▒▒▓█  ▄\033[0m\n\033[38;2;255;140;147m░██░▒██░   ▓██░  ▒██▒ ░ ▒▒█████▓ ░██░  ▒██▒ ░ ░██░░ ████▓▒░▒██░   ▓██░   ░▒████▒▒██░   ▓██░░▒▓███▀▒░██░▒██░   ▓██░░▒████▒\033[0m\n\033[38;2;255;170;147m░▓  ░ ▒░   ▒ ▒   ▒ ░░   ░▒▓▒ ▒ ▒ ░▓    ▒ ░░   ░▓  ░ ▒░▒░▒░ ░ ▒░   ▒ ▒    ░░ ▒░ ░░ ▒░   ▒ ▒  ░▒   ▒ ░▓  ░ ▒░   ▒ ▒ ░░ ▒░ ░\033[0m\n\033[38;2;255;200;147m ▒ ░░ ░░   ░ ▒░    ░    ░░▒░ ░ ░  ▒ ░    ░     ▒ ░  ░ ▒ ▒░ ░ ░░   ░ ▒░    ░ ░  ░░ ░░   ░ ▒░  ░   ░  ▒ ░░ ░░   ░ ▒░ ░ ░  ░\033[0m\n\033[38;2;255;230;147m ▒ ░   ░   ░ ░   ░       ░░░ ░ ░  ▒ ░  ░       ▒ ░░ ░ ░ ▒     ░   ░ ░       ░      ░   ░ ░ ░ ░   ░  ▒ ░   ░   ░ ░    ░\033[0m\n\033[38;2;255;255;147m ░           ░             ░      ░            ░      ░ ░           ░       ░  ░         ░       ░  ░           ░    ░  ░\033[0m")
	fmt.Println("\nA descriptor-chain LCD scan-out controller in the Intuition Engine mould.")
	fmt.Println("(c) 2024 - 2026 Zayn Otley")
	fmt.Println("https://github.com/IntuitionAmiga/IntuitionEngine")
	fmt.Println("Buy me a coffee: https://ko-fi.com/intuition/tip")
	fmt.Println("License: GPLv3 or later")
}

var lcdVariants = map[string]*LCDVariant{
	"jz4740":  &LCDVariantJZ4740,
	"jz4725b": &LCDVariantJZ4725B,
	"jz4760":  &LCDVariantJZ4760,
	"jz4770":  &LCDVariantJZ4770,
}

func main() {
	boilerPlate()

	var (
		variantName string
		slcd        bool
		headless    bool
		scale       int
		fullscreen  bool
		doublescan  bool
		overlay     bool
	)

	flagSet := flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	flagSet.StringVar(&variantName, "variant", "jz4770", "Controller variant: jz4740, jz4725b, jz4760, jz4770")
	flagSet.BoolVar(&slcd, "slcd", false, "Drive a command-mode (SLCD) panel via the pumped scan path")
	flagSet.BoolVar(&headless, "headless", false, "No window; frame counter only")
	flagSet.IntVar(&scale, "scale", 1, "Integer window scaling factor")
	flagSet.BoolVar(&fullscreen, "fullscreen", false, "Start fullscreen")
	flagSet.BoolVar(&doublescan, "doublescan", false, "Line-double a half-height buffer")
	flagSet.BoolVar(&overlay, "overlay", false, "Enable the palette-indexed overlay plane")

	flagSet.Usage = func() {
		flagSet.SetOutput(os.Stdout)
		fmt.Println("Usage: ./intuition_engine [-variant jz4770] [-slcd] [-headless] [-scale N] [-doublescan] [-overlay]")
		flagSet.PrintDefaults()
	}

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	variant, ok := lcdVariants[strings.ToLower(variantName)]
	if !ok {
		fmt.Printf("Error: unknown variant %q\n", variantName)
		os.Exit(1)
	}
	if slcd && variant.HasOSD {
		// The command-mode path exists on the single-plane parts.
		variant = &LCDVariantJZ4740
		fmt.Println("SLCD mode: using JZ4740")
	}
	if overlay && !variant.HasOSD {
		fmt.Printf("Error: %s has no overlay plane\n", variant.Name)
		os.Exit(1)
	}

	backend := LCD_OUTPUT_EBITEN
	if headless {
		backend = LCD_OUTPUT_HEADLESS
	}
	output, err := NewDisplayOutput(backend)
	if err != nil {
		fmt.Printf("Failed to initialize display: %v\n", err)
		os.Exit(1)
	}

	mem := NewVideoMemory(16 * 1024 * 1024)
	parentClk := NewClock("pll0", 600_000_000, nil)
	pixClk := NewClock("lcd_pclk", 0, parentClk)
	pixClk.SetRateLimits(1_000_000, 200_000_000)
	panel := NewSimPanel("sim-tft")

	var dma TransferChannel
	if slcd {
		dma = NewSLCDTransferChannel(mem, panel.ReceiveBurst)
	}

	engine, err := NewLCDEngine(variant, mem, pixClk, dma, panel, output)
	if err != nil {
		fmt.Printf("Failed to initialize LCD controller: %v\n", err)
		os.Exit(1)
	}
	if slcd {
		// Wake the glass over the manual port before DMA owns the FIFO:
		// sleep-out, then display-on.
		for _, cmd := range []byte{0x11, 0x29} {
			if err := engine.SendCommand(cmd); err != nil {
				fmt.Printf("Panel init: %v\n", err)
				break
			}
		}
	}

	width, height := 640, 480
	if variant.MaxWidth < width {
		width, height = variant.MaxWidth, variant.MaxHeight
	}

	mode := ModeConfig{
		Width:        width,
		Height:       height,
		HSyncStart:   width + 16,
		HSyncEnd:     width + 112,
		HTotal:       width + 160,
		VSyncStart:   height + 10,
		VSyncEnd:     height + 12,
		VTotal:       height + 45,
		PixelClockHz: int64(width+160) * int64(height+45) * LCD_DEFAULT_REFRESH_RATE,
		RefreshRate:  LCD_DEFAULT_REFRESH_RATE,
		BusFormat:    BUS_FMT_RGB565_1X16,
	}

	srcH := height
	dstH := height
	if doublescan {
		srcH = height / 2
	}
	fb, err := NewFrameBuffer(mem, width, srcH, PIXFMT_RGB565)
	if err != nil {
		fmt.Printf("Failed to allocate frame buffer: %v\n", err)
		os.Exit(1)
	}
	drawGradient(fb, 0)

	req := &AtomicRequest{Mode: &mode}
	primary := LCD_PLANE_OVERLAY
	if variant.HasOSD {
		primary = LCD_PLANE_PRIMARY
	}
	req.Planes[primary] = &PlaneConfig{
		Enabled: true,
		FB:      fb,
		SrcW:    width, SrcH: srcH,
		DstW: width, DstH: dstH,
	}

	var overlayFB *FrameBuffer
	if overlay {
		overlayFB, err = NewFrameBuffer(mem, 160, 120, PIXFMT_C8)
		if err != nil {
			fmt.Printf("Failed to allocate overlay buffer: %v\n", err)
			os.Exit(1)
		}
		drawOverlayPattern(overlayFB)
		req.Planes[LCD_PLANE_OVERLAY] = &PlaneConfig{
			Enabled: true,
			FB:      overlayFB,
			SrcW:    160, SrcH: 120,
			DstX: 32, DstY: 32,
			DstW: 160, DstH: 120,
		}
		req.Palette = firePalette()
	}

	if err := output.SetDisplayConfig(DisplayConfig{
		Width:       width,
		Height:      height,
		Scale:       scale,
		RefreshRate: mode.refreshRate(),
		Fullscreen:  fullscreen,
	}); err != nil {
		fmt.Printf("Failed to configure display: %v\n", err)
		os.Exit(1)
	}
	if err := output.Start(); err != nil {
		fmt.Printf("Failed to start display: %v\n", err)
		os.Exit(1)
	}

	if sd, ok := output.(StatusDisplay); ok {
		sd.SetStatusProvider(engine.Status)
	}
	if rc, ok := output.(ResetControl); ok {
		// F10 re-runs the initial configuration from scratch.
		rc.SetHardResetHandler(func() {
			tx, err := engine.Check(req)
			if err == nil {
				err = engine.Commit(tx)
			}
			if err != nil {
				fmt.Printf("Hard reset failed: %v\n", err)
			}
		})
	}

	quit := make(chan struct{})
	keyHandler := func(b byte) {
		switch b {
		case 'q', 0x1B, 0x03:
			select {
			case <-quit:
			default:
				close(quit)
			}
		}
	}

	var host *TerminalHost
	if ki, ok := output.(KeyboardInput); ok {
		ki.SetKeyHandler(keyHandler)
	} else {
		host = NewTerminalHost(keyHandler)
		host.Start()
		defer host.Stop()
	}

	tx, err := engine.Check(req)
	if err != nil {
		fmt.Printf("Configuration rejected: %v\n", err)
		os.Exit(1)
	}
	if err := engine.Commit(tx); err != nil {
		fmt.Printf("Commit failed: %v\n", err)
		os.Exit(1)
	}

	caps := engine.Capabilities()
	fmt.Printf("\n%s: %dx%d, %s scan path. Press q to quit.\n",
		caps.Variant, width, dstH, engine.Status().ScanPath)

	// Animate: the scan engine picks buffer writes up on the next
	// frame, no per-frame commit needed.
	ticker := time.NewTicker(time.Second / 30)
	defer ticker.Stop()
	phase := 0
	for {
		select {
		case <-quit:
			fmt.Printf("\n%d frames displayed\n", engine.FrameCount())
			if err := engine.Shutdown(); err != nil {
				fmt.Printf("Shutdown: %v\n", err)
			}
			fb.Release()
			if overlayFB != nil {
				overlayFB.Release()
			}
			_ = output.Stop()
			return
		case <-ticker.C:
			phase++
			drawGradient(fb, phase)
		}
	}
}

// drawGradient fills the buffer with a scrolling RGB565 gradient.
func drawGradient(fb *FrameBuffer, phase int) {
	pixels := fb.Pixels()
	for y := 0; y < fb.Height; y++ {
		row := y * fb.Pitch
		for x := 0; x < fb.Width; x++ {
			r := byte((x + phase) * 31 / fb.Width % 32)
			g := byte(y * 63 / fb.Height % 64)
			b := byte((x + y + phase) % 32)
			v := uint16(r)<<11 | uint16(g)<<5 | uint16(b)
			pixels[row+x*2] = byte(v)
			pixels[row+x*2+1] = byte(v >> 8)
		}
	}
}

// drawOverlayPattern fills the palette-indexed overlay with concentric
// rings of ascending color indices.
func drawOverlayPattern(fb *FrameBuffer) {
	pixels := fb.Pixels()
	cx, cy := fb.Width/2, fb.Height/2
	for y := 0; y < fb.Height; y++ {
		for x := 0; x < fb.Width; x++ {
			dx, dy := x-cx, y-cy
			pixels[y*fb.Pitch+x] = byte((dx*dx + dy*dy) / 32)
		}
	}
}

// firePalette builds a 256-entry black-red-yellow-white ramp.
func firePalette() []uint32 {
	pal := make([]uint32, LCD_PALETTE_SIZE)
	for i := range pal {
		switch {
		case i < 85:
			pal[i] = uint32(i*3) << 16
		case i < 170:
			pal[i] = 0xFF0000 | uint32((i-85)*3)<<8
		default:
			pal[i] = 0xFFFF00 | uint32((i-170)*3)
		}
	}
	return pal
}
