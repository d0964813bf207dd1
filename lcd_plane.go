// lcd_plane.go - Frame buffers and plane configuration

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
	"sync/atomic"
)

// FrameBuffer is a scan-out surface in video memory, paired with the
// descriptor array that will drive it. The descriptor array is sized for
// the worst case of one descriptor per doubled output line, so the same
// buffer can be scanned plain or line-doubled without reallocation.
type FrameBuffer struct {
	mem    *VideoMemory
	Addr   uint32
	Width  int
	Height int
	Pitch  int
	Format PixelFormat

	// DescAddr is the base of this buffer's private descriptor array,
	// 2*Height entries.
	DescAddr uint32

	refs atomic.Int32
}

// NewFrameBuffer allocates pixel storage and the per-buffer descriptor
// array. The buffer starts with one reference.
func NewFrameBuffer(mem *VideoMemory, width, height int, format PixelFormat) (*FrameBuffer, error) {
	if width <= 0 || height <= 0 {
		return nil, &LCDError{
			Operation: "NewFrameBuffer",
			Details:   fmt.Sprintf("invalid dimensions %dx%d", width, height),
		}
	}
	pitch := width * format.BytesPerPixel()
	addr, err := mem.Alloc(uint32(pitch*height), 64)
	if err != nil {
		return nil, &LCDError{Operation: "NewFrameBuffer", Details: "pixel storage", Err: err}
	}
	descAddr, err := mem.Alloc(uint32(2*height*LCD_DESC_SIZE), LCD_DESC_ALIGN)
	if err != nil {
		mem.Free(addr, uint32(pitch*height))
		return nil, &LCDError{Operation: "NewFrameBuffer", Details: "descriptor array", Err: err}
	}
	fb := &FrameBuffer{
		mem:      mem,
		Addr:     addr,
		Width:    width,
		Height:   height,
		Pitch:    pitch,
		Format:   format,
		DescAddr: descAddr,
	}
	fb.refs.Store(1)
	return fb, nil
}

// Retain takes an additional reference. The controller retains buffers
// it has committed to the scan engine and releases them when a later
// commit replaces them, so a client dropping its own reference mid-scan
// cannot free memory the DMA engine is walking.
func (fb *FrameBuffer) Retain() {
	fb.refs.Add(1)
}

// Release drops one reference; the last release frees both the pixel
// storage and the descriptor array.
func (fb *FrameBuffer) Release() {
	if fb.refs.Add(-1) != 0 {
		return
	}
	fb.mem.Free(fb.Addr, uint32(fb.Pitch*fb.Height))
	fb.mem.Free(fb.DescAddr, uint32(2*fb.Height*LCD_DESC_SIZE))
}

// Pixels returns the live pixel storage. Writes land directly in video
// memory and are picked up by the next frame scan.
func (fb *FrameBuffer) Pixels() []byte {
	return fb.mem.Bytes(fb.Addr, uint32(fb.Pitch*fb.Height))
}

// PlaneConfig describes one plane's source crop and destination
// placement for an atomic request. Pixel format comes from the attached
// frame buffer.
type PlaneConfig struct {
	Enabled bool
	FB      *FrameBuffer

	SrcX, SrcY int
	SrcW, SrcH int
	DstX, DstY int
	DstW, DstH int
}
