// lcd_descriptor.go - DMA descriptor chain construction

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

/*
lcd_descriptor.go - Descriptor Chain Construction

The scan engine fetches 16-byte descriptors {next, addr, id, cmd} from
video memory and streams the payload each one points at. Each plane owns
one shared descriptor slot in the controller's descriptor block; the
ring for a plane always passes through that shared slot, so re-pointing
the shared slot's next/addr words retargets the scan without touching
the DMA base registers.

Plain scan-out is a one-descriptor ring: the shared slot points at the
whole frame and links back to itself. Line-doubled scan-out builds one
descriptor per output line in the frame buffer's private array, each
pair of output lines sharing a source line, and copies the first line's
descriptor into the shared slot to splice the ring:

	shared -> fbdesc[1] -> ... -> fbdesc[h-1] -> shared

Palette-indexed scan-out chains a palette-load descriptor ahead of the
frame descriptor; the palette table itself sits in the same block.
*/

package main

// dmaDescriptor is the in-memory descriptor image. Field order matches
// the fetch order of the scan engine.
type dmaDescriptor struct {
	next uint32
	addr uint32
	id   uint32
	cmd  uint32
}

func readDescriptor(mem *VideoMemory, addr uint32) dmaDescriptor {
	return dmaDescriptor{
		next: mem.ReadWord(addr + 0),
		addr: mem.ReadWord(addr + 4),
		id:   mem.ReadWord(addr + 8),
		cmd:  mem.ReadWord(addr + 12),
	}
}

func writeDescriptor(mem *VideoMemory, addr uint32, d dmaDescriptor) {
	mem.WriteWord(addr+0, d.next)
	mem.WriteWord(addr+4, d.addr)
	mem.WriteWord(addr+8, d.id)
	mem.WriteWord(addr+12, d.cmd)
}

// descriptorTable is the controller's shared descriptor block: one
// shared slot per plane, the palette-load descriptor, and the palette
// table itself, in one allocation.
//
// Layout: [0x00] shared slot plane 0
//
//	[0x10] shared slot plane 1
//	[0x20] palette-load descriptor
//	[0x30] palette table (256 x u16)
type descriptorTable struct {
	mem  *VideoMemory
	base uint32
}

const (
	descTableSharedOff  = 0x00
	descTablePalDescOff = 0x20
	descTablePaletteOff = 0x30
	descTableSize       = descTablePaletteOff + LCD_PALETTE_BYTES
)

func newDescriptorTable(mem *VideoMemory) (*descriptorTable, error) {
	base, err := mem.Alloc(descTableSize, LCD_DESC_ALIGN)
	if err != nil {
		return nil, &LCDError{Operation: "newDescriptorTable", Details: "shared block", Err: err}
	}
	dt := &descriptorTable{mem: mem, base: base}

	// Park every slot as an idle self-ring with a zero-length command so
	// a scan started before the first commit fetches something harmless.
	for plane := 0; plane < LCD_PLANE_COUNT; plane++ {
		id := uint32(LCD_DESC_ID_F0)
		if plane == LCD_PLANE_PRIMARY {
			id = LCD_DESC_ID_F1
		}
		writeDescriptor(mem, dt.descAddr(plane), dmaDescriptor{
			next: dt.descAddr(plane),
			addr: 0,
			id:   id,
			cmd:  0,
		})
	}
	writeDescriptor(mem, dt.palDescAddr(), dmaDescriptor{
		next: dt.descAddr(0),
		addr: dt.paletteAddr(),
		id:   LCD_DESC_ID_PALETTE,
		cmd:  LCD_CMD_ENABLE_PAL | uint32(LCD_PALETTE_BYTES/4),
	})
	return dt, nil
}

func (dt *descriptorTable) descAddr(plane int) uint32 {
	return dt.base + descTableSharedOff + uint32(plane)*LCD_DESC_SIZE
}

func (dt *descriptorTable) palDescAddr() uint32 {
	return dt.base + descTablePalDescOff
}

func (dt *descriptorTable) paletteAddr() uint32 {
	return dt.base + descTablePaletteOff
}

func (dt *descriptorTable) free() {
	dt.mem.Free(dt.base, descTableSize)
}

// writePalette packs 256 XRGB8888 entries into the hardware's RGB565
// palette table.
func (dt *descriptorTable) writePalette(palette []uint32) {
	addr := dt.paletteAddr()
	for i := 0; i < LCD_PALETTE_SIZE; i += 2 {
		lo := packRGB565(palette[i])
		hi := packRGB565(palette[i+1])
		dt.mem.WriteWord(addr+uint32(i*2), uint32(lo)|uint32(hi)<<16)
	}
}

func packRGB565(xrgb uint32) uint16 {
	r := (xrgb >> 16) & 0xFF
	g := (xrgb >> 8) & 0xFF
	b := xrgb & 0xFF
	return uint16(r>>3)<<11 | uint16(g>>2)<<5 | uint16(b>>3)
}

// buildPlaneChain writes the descriptor ring for one plane and returns
// the address the scan base register should be programmed with.
//
// The chain is written fully before the shared slot's next/addr words
// are updated, so a scan engine mid-frame only ever follows a complete
// ring.
func (dt *descriptorTable) buildPlaneChain(plane int, cfg *PlaneConfig, doublescan, usePalette bool) uint32 {
	fb := cfg.FB
	shared := dt.descAddr(plane)
	tail := shared

	if doublescan {
		// One descriptor per output line. Output line i reads source
		// line i/2, so consecutive pairs share a source address. Only
		// the final line raises end-of-frame, giving one event per
		// displayed frame, and it links back to the shared slot to
		// close the ring.
		lines := cfg.DstH
		lineWords := uint32(cfg.SrcW*fb.Format.BytesPerPixel()) / 4
		for i := 1; i < lines; i++ {
			d := dmaDescriptor{
				next: dt.lineDescAddr(fb, i+1),
				addr: fb.Addr + uint32((cfg.SrcY+i/2)*fb.Pitch+cfg.SrcX*fb.Format.BytesPerPixel()),
				id:   uint32(0xF0 | i),
				cmd:  lineWords,
			}
			if i == lines-1 {
				d.next = shared
				d.cmd |= LCD_CMD_EOF_IRQ
				tail = dt.lineDescAddr(fb, i)
			}
			writeDescriptor(dt.mem, dt.lineDescAddr(fb, i), d)
		}
		// The shared slot carries a copy of what line 0's descriptor
		// would be, splicing the private array into the ring.
		writeDescriptor(dt.mem, shared, dmaDescriptor{
			next: dt.lineDescAddr(fb, 1),
			addr: fb.Addr + uint32(cfg.SrcY*fb.Pitch+cfg.SrcX*fb.Format.BytesPerPixel()),
			id:   LCD_DESC_ID_F0,
			cmd:  lineWords,
		})
	} else {
		// Single descriptor covering the whole frame, self-ringed
		// through the shared slot.
		words := uint32(cfg.SrcW*cfg.SrcH*fb.Format.BytesPerPixel()) / 4
		id := uint32(LCD_DESC_ID_F0)
		if plane == LCD_PLANE_PRIMARY {
			id = LCD_DESC_ID_F1
		}
		writeDescriptor(dt.mem, shared, dmaDescriptor{
			next: shared,
			addr: fb.Addr + uint32(cfg.SrcY*fb.Pitch+cfg.SrcX*fb.Format.BytesPerPixel()),
			id:   id,
			cmd:  LCD_CMD_EOF_IRQ | words,
		})
	}

	if usePalette {
		// Point the palette-load descriptor at the frame chain, route
		// the ring's tail back through it, and hand the scan its
		// address instead, so the palette is (re)loaded at the top of
		// every frame.
		dt.mem.WriteWord(dt.palDescAddr()+0, shared)
		dt.mem.WriteWord(tail+0, dt.palDescAddr())
		return dt.palDescAddr()
	}
	return shared
}

func (dt *descriptorTable) lineDescAddr(fb *FrameBuffer, line int) uint32 {
	return fb.DescAddr + uint32(line)*LCD_DESC_SIZE
}

// walkChain follows a descriptor ring from start until it closes,
// returning the descriptors in fetch order and the total payload word
// count. A chain that fails to close within a frame's worth of entries
// is reported as broken.
func walkChain(mem *VideoMemory, start uint32) ([]dmaDescriptor, uint32, error) {
	const maxEntries = 4096
	var (
		out   []dmaDescriptor
		words uint32
	)
	addr := start
	for i := 0; i < maxEntries; i++ {
		d := readDescriptor(mem, addr)
		out = append(out, d)
		words += d.cmd & LCD_CMD_LEN_MASK
		if d.next == start {
			return out, words, nil
		}
		addr = d.next
	}
	return nil, 0, &LCDError{Operation: "walkChain", Details: "descriptor ring does not close"}
}
