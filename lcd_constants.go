// lcd_constants.go - JZ-class LCD scan-out controller register addresses and constants for Intuition Engine

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
lcd_constants.go - JZ-Class LCD Scan-Out Controller Constants

This file defines the register block and bit layout for the LCD scan-out
controller family (modelled on the Ingenic JZ47xx LCDC). The controller
streams pixel memory to a panel through a hardware-walked chain of DMA
descriptors, with two output paths:

  - Autonomous scan: the raster engine free-runs at the pixel clock,
    re-walking the descriptor ring each refresh and raising an EOF
    interrupt at the end of every frame.
  - Pumped scan (SLCD): command-mode "smart" panels with no native frame
    timing. Software issues one DMA burst per refresh tick through the
    SLCD FIFO and synthesizes the frame-completion event itself.

Descriptor format (16 bytes, 16-byte aligned):
  +0  NEXT  physical address of the next descriptor in the chain
  +4  ADDR  physical source address of the payload
  +8  ID    identifier tag latched into LCD_FID when the descriptor loads
  +12 CMD   bits 0-23 transfer length in 32-bit words, plus control flags

Frame layouts:
  Single descriptor  - one descriptor per plane per frame, EOF flag set.
  Doublescan         - one descriptor per OUTPUT line; line i reads
                       source line i/2, so each input line is scanned
                       twice. Only the last line carries the EOF flag.
  Palette            - for 8-bit indexed planes a 256-entry RGB565 table
                       is chained AHEAD of the plane data so the hardware
                       reloads the color table once per frame.
*/

package main

import "time"

// =============================================================================
// Register Offsets
// =============================================================================

const (
	LCD_REG_CFG   = 0x00 // Panel bus configuration
	LCD_REG_VSYNC = 0x04 // Vertical sync pulse start/end
	LCD_REG_HSYNC = 0x08 // Horizontal sync pulse start/end
	LCD_REG_VAT   = 0x0C // Virtual area (total) dimensions
	LCD_REG_DAH   = 0x10 // Display area horizontal start/end
	LCD_REG_DAV   = 0x14 // Display area vertical start/end
	LCD_REG_PS    = 0x18 // Special TFT: PS signal timing
	LCD_REG_CLS   = 0x1C // Special TFT: CLS signal timing
	LCD_REG_SPL   = 0x20 // Special TFT: SPL signal timing
	LCD_REG_REV   = 0x24 // Special TFT: REV signal timing
	LCD_REG_CTRL  = 0x30 // Global control
	LCD_REG_STATE = 0x34 // Status (EOF interrupt flag, scan-stopped flag)
	LCD_REG_IID   = 0x38 // Interrupt descriptor ID (hardware-updated)
	LCD_REG_DA0   = 0x40 // Descriptor chain base address, channel 0
	LCD_REG_SA0   = 0x44 // Current source address, channel 0 (hardware-updated)
	LCD_REG_FID0  = 0x48 // Current frame/descriptor ID, channel 0 (hardware-updated)
	LCD_REG_CMD0  = 0x4C // Current command word, channel 0 (hardware-updated)
	LCD_REG_DA1   = 0x50 // Descriptor chain base address, channel 1
	LCD_REG_SA1   = 0x54 // Current source address, channel 1 (hardware-updated)
	LCD_REG_FID1  = 0x58 // Current frame/descriptor ID, channel 1 (hardware-updated)
	LCD_REG_CMD1  = 0x5C // Current command word, channel 1 (hardware-updated)
	LCD_REG_RGBC  = 0x90 // RGB sub-pixel ordering for serial panels

	// SLCD (command-mode panel) block
	LCD_REG_SLCD_MCFG   = 0xA0 // SLCD bus width configuration
	LCD_REG_SLCD_MCTRL  = 0xA4 // SLCD control (DMA transmit enable)
	LCD_REG_SLCD_MSTATE = 0xA8 // SLCD state (busy flag)
	LCD_REG_SLCD_MDATA  = 0xB0 // SLCD manual command/data port
	LCD_REG_SLCD_MFIFO  = 0xB4 // SLCD DMA FIFO port

	// OSD (overlay/primary split) block
	LCD_REG_OSDC    = 0x100 // OSD control (plane enable bits)
	LCD_REG_OSDCTRL = 0x104 // Overlay channel pixel format
	LCD_REG_XYP0    = 0x120 // Plane 0 position
	LCD_REG_XYP1    = 0x124 // Plane 1 position
	LCD_REG_SIZE0   = 0x128 // Plane 0 size
	LCD_REG_SIZE1   = 0x12C // Plane 1 size

	// One past the highest register; register file size in bytes
	LCD_REG_END = 0x130
)

// =============================================================================
// LCD_CFG Bits
// =============================================================================

const (
	LCD_CFG_MODE_MASK            = 0x0F
	LCD_CFG_MODE_GENERIC_16BIT   = 0x00
	LCD_CFG_MODE_GENERIC_18BIT   = 0x01
	LCD_CFG_MODE_GENERIC_24BIT   = 0x02
	LCD_CFG_MODE_8BIT_SERIAL     = 0x03
	LCD_CFG_MODE_SPECIAL_TFT_1   = 0x04
	LCD_CFG_MODE_TV_OUT_P        = 0x06
	LCD_CFG_MODE_TV_OUT_I        = 0x07
	LCD_CFG_PCLK_FALLING_EDGE    = 1 << 8
	LCD_CFG_DE_ACTIVE_LOW        = 1 << 9
	LCD_CFG_VSYNC_ACTIVE_LOW     = 1 << 10
	LCD_CFG_HSYNC_ACTIVE_LOW     = 1 << 11
	LCD_CFG_REV_POLARITY         = 1 << 12
	LCD_CFG_REV_DISABLE          = 1 << 20
	LCD_CFG_SPL_DISABLE          = 1 << 21
	LCD_CFG_CLS_DISABLE          = 1 << 22
	LCD_CFG_PS_DISABLE           = 1 << 23
	LCD_CFG_SLCD                 = 1 << 24 // Panel pins owned by the SLCD module
)

// =============================================================================
// LCD_RGBC Bits
// =============================================================================

const (
	LCD_RGBC_ODD_RGB  = 0x0 << 4
	LCD_RGBC_ODD_GBR  = 0x3 << 4
	LCD_RGBC_EVEN_RGB = 0x0 << 0
	LCD_RGBC_EVEN_GBR = 0x3 << 0
)

// =============================================================================
// LCD_CTRL Bits
// =============================================================================

const (
	LCD_CTRL_BPP_MASK    = 0x07
	LCD_CTRL_BPP_8       = 0x03
	LCD_CTRL_BPP_15_16   = 0x04
	LCD_CTRL_BPP_18_24   = 0x05
	LCD_CTRL_BPP_24_COMP = 0x06
	LCD_CTRL_BPP_30      = 0x07
	LCD_CTRL_ENABLE      = 1 << 3  // Start autonomous scan-out
	LCD_CTRL_DISABLE     = 1 << 4  // Request scan stop at the next frame boundary
	LCD_CTRL_EOF_IRQ     = 1 << 13 // Unmask the end-of-frame interrupt
	LCD_CTRL_OFUP        = 1 << 16 // Output FIFO underrun protection
	LCD_CTRL_RGB555      = 1 << 27 // 15bpp instead of 16bpp when BPP_15_16
	LCD_CTRL_BURST_16    = 2 << 28 // 16-word burst length
)

// =============================================================================
// LCD_STATE Bits
// =============================================================================

const (
	LCD_STATE_DISABLED = 1 << 0 // Scan-out has stopped after LCD_CTRL_DISABLE
	LCD_STATE_EOF_IRQ  = 1 << 5 // End-of-frame interrupt pending
)

// =============================================================================
// Descriptor CMD Word Bits
// =============================================================================

const (
	LCD_CMD_LEN_MASK   = 0x00FFFFFF // Transfer length in 32-bit words
	LCD_CMD_ENABLE_PAL = 1 << 28    // Payload is the 256-entry color table
	LCD_CMD_EOF_IRQ    = 1 << 30    // Raise EOF interrupt after this transfer
	LCD_CMD_SOF_IRQ    = 1 << 31    // Raise SOF interrupt before this transfer

	// Descriptor identifier tags, latched into LCD_FIDx during scan-out
	LCD_DESC_ID_F0      = 0xF0
	LCD_DESC_ID_F1      = 0xF1
	LCD_DESC_ID_PALETTE = 0xC0

	// One hardware descriptor: next, addr, id, cmd
	LCD_DESC_SIZE  = 16
	LCD_DESC_ALIGN = 16
)

// =============================================================================
// OSD Bits
// =============================================================================

const (
	LCD_OSDC_OSDEN = 1 << 0 // OSD path enable
	LCD_OSDC_F0EN  = 1 << 3 // Overlay plane enable
	LCD_OSDC_F1EN  = 1 << 4 // Primary plane enable

	LCD_OSDCTRL_BPP_MASK    = 0x07
	LCD_OSDCTRL_BPP_15_16   = 0x04
	LCD_OSDCTRL_BPP_18_24   = 0x05
	LCD_OSDCTRL_BPP_24_COMP = 0x06
	LCD_OSDCTRL_BPP_30      = 0x07
	LCD_OSDCTRL_RGB555      = 1 << 4

	LCD_XYP_XPOS_LSB    = 0
	LCD_XYP_YPOS_LSB    = 16
	LCD_SIZE_WIDTH_LSB  = 0
	LCD_SIZE_HEIGHT_LSB = 16
)

// =============================================================================
// Timing Register Field Offsets
// =============================================================================

const (
	LCD_VSYNC_VPS_OFFSET = 16
	LCD_VSYNC_VPE_OFFSET = 0
	LCD_HSYNC_HPS_OFFSET = 16
	LCD_HSYNC_HPE_OFFSET = 0
	LCD_VAT_HT_OFFSET    = 16
	LCD_VAT_VT_OFFSET    = 0
	LCD_DAH_HDS_OFFSET   = 16
	LCD_DAH_HDE_OFFSET   = 0
	LCD_DAV_VDS_OFFSET   = 16
	LCD_DAV_VDE_OFFSET   = 0
)

// =============================================================================
// SLCD Bits
// =============================================================================

const (
	LCD_SLCD_MCFG_DWIDTH_8BIT = 0 << 10
	LCD_SLCD_MCFG_CWIDTH_8BIT = 0 << 8
	LCD_SLCD_MCTRL_DMATXEN    = 1 << 0
	LCD_SLCD_MSTATE_BUSY      = 1 << 0
	LCD_SLCD_MDATA_COMMAND    = 1 << 31
)

// =============================================================================
// Palette
// =============================================================================

const (
	// The color table is fixed in hardware: 256 entries, 16-bit RGB565.
	LCD_PALETTE_SIZE  = 256
	LCD_PALETTE_BYTES = LCD_PALETTE_SIZE * 2
)

// =============================================================================
// Timeouts
// =============================================================================
//
// Every blocking wait in the controller is bounded. A missed deadline is
// surfaced as an error, never retried forever.

const (
	// How often bounded register polls sample the register file.
	LCD_REG_POLL_INTERVAL = 500 * time.Microsecond

	// Autonomous scan: wait for LCD_STATE_DISABLED after LCD_CTRL_DISABLE.
	LCD_SCAN_STOP_TIMEOUT = 250 * time.Millisecond

	// SLCD: wait for the manual interface to go non-busy.
	LCD_SLCD_BUSY_TIMEOUT = 100 * time.Millisecond

	// Commit: wait for the completion event of a committed frame.
	LCD_VBLANK_WAIT_TIMEOUT = 500 * time.Millisecond

	// Clock coordinator: wait for one frame boundary before a parent
	// clock rate change. Generous; a miss here is a fatal config error.
	LCD_CLOCK_VBLANK_TIMEOUT = time.Second
)

// Fallback refresh rate when a mode carries no usable timing information.
const LCD_DEFAULT_REFRESH_RATE = 60

// =============================================================================
// Controller Variants
// =============================================================================

// LCDVariant captures the per-SoC capability differences of the
// controller family: whether the OSD overlay/primary split exists, the
// panel size ceiling, and which pixel formats each plane accepts.
type LCDVariant struct {
	Name           string
	HasOSD         bool
	MaxWidth       int
	MaxHeight      int
	FormatsOverlay []PixelFormat // F0 plane; nil when no OSD
	FormatsPrimary []PixelFormat // F1 plane (F0 on single-plane parts)
}

var lcdBaseFormats = []PixelFormat{
	PIXFMT_XRGB1555,
	PIXFMT_RGB565,
	PIXFMT_XRGB8888,
}

var lcdWideFormatsPrimary = []PixelFormat{
	PIXFMT_XRGB1555,
	PIXFMT_RGB565,
	PIXFMT_RGB888,
	PIXFMT_XRGB8888,
	PIXFMT_XRGB2101010,
}

var lcdWideFormatsOverlay = []PixelFormat{
	PIXFMT_C8,
	PIXFMT_XRGB1555,
	PIXFMT_RGB565,
	PIXFMT_RGB888,
	PIXFMT_XRGB8888,
	PIXFMT_XRGB2101010,
}

var LCDVariantJZ4740 = LCDVariant{
	Name:           "JZ4740",
	HasOSD:         false,
	MaxWidth:       800,
	MaxHeight:      600,
	FormatsPrimary: lcdBaseFormats,
	// Single plane only
}

var LCDVariantJZ4725B = LCDVariant{
	Name:           "JZ4725B",
	HasOSD:         true,
	MaxWidth:       800,
	MaxHeight:      600,
	FormatsPrimary: lcdBaseFormats,
	FormatsOverlay: []PixelFormat{PIXFMT_C8, PIXFMT_XRGB1555, PIXFMT_RGB565, PIXFMT_XRGB8888},
}

var LCDVariantJZ4760 = LCDVariant{
	Name:           "JZ4760",
	HasOSD:         true,
	MaxWidth:       1280,
	MaxHeight:      720,
	FormatsPrimary: lcdWideFormatsPrimary,
	FormatsOverlay: lcdWideFormatsOverlay,
}

var LCDVariantJZ4770 = LCDVariant{
	Name:           "JZ4770",
	HasOSD:         true,
	MaxWidth:       1280,
	MaxHeight:      720,
	FormatsPrimary: lcdWideFormatsPrimary,
	FormatsOverlay: lcdWideFormatsOverlay,
}

// SupportsFormat reports whether the given plane of this variant accepts
// the pixel format.
func (v *LCDVariant) SupportsFormat(plane int, format PixelFormat) bool {
	formats := v.FormatsPrimary
	if v.HasOSD && plane == LCD_PLANE_OVERLAY {
		formats = v.FormatsOverlay
	}
	for _, f := range formats {
		if f == format {
			return true
		}
	}
	return false
}

// =============================================================================
// Planes
// =============================================================================

// Plane indices. F0 is the overlay, F1 the primary; the Z-order is fixed
// in hardware (overlay below primary) and cannot be changed. Parts
// without the OSD split expose a single plane at index 0.
const (
	LCD_PLANE_OVERLAY = 0
	LCD_PLANE_PRIMARY = 1
	LCD_PLANE_COUNT   = 2
)
