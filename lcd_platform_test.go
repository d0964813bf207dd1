// lcd_platform_test.go - Video memory, clock tree and transfer channel test suite

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
	"errors"
	"testing"
	"time"
)

var _ TransferChannel = (*SLCDTransferChannel)(nil)

func TestVideoMemory_AllocAlignment(t *testing.T) {
	mem := NewVideoMemory(1 << 20)

	a, err := mem.Alloc(100, 64)
	if err != nil {
		t.Fatal(err)
	}
	if a%64 != 0 {
		t.Errorf("allocation at %#x not 64-byte aligned", a)
	}
	b, err := mem.Alloc(100, 64)
	if err != nil {
		t.Fatal(err)
	}
	if b%64 != 0 {
		t.Errorf("allocation at %#x not 64-byte aligned", b)
	}
	if a == b {
		t.Error("distinct allocations share an address")
	}
	if a == 0 || b == 0 {
		t.Error("address 0 must stay reserved")
	}
}

func TestVideoMemory_FreeCoalesces(t *testing.T) {
	mem := NewVideoMemory(4096)

	// Carve most of the arena into three adjacent blocks, free them
	// out of order, then a single allocation spanning all three must
	// succeed again.
	a, err := mem.Alloc(1024, 16)
	if err != nil {
		t.Fatal(err)
	}
	b, err := mem.Alloc(1024, 16)
	if err != nil {
		t.Fatal(err)
	}
	c, err := mem.Alloc(1024, 16)
	if err != nil {
		t.Fatal(err)
	}
	mem.Free(b, 1024)
	mem.Free(a, 1024)
	mem.Free(c, 1024)

	if _, err := mem.Alloc(3072, 16); err != nil {
		t.Errorf("freed blocks did not coalesce: %v", err)
	}
}

func TestVideoMemory_Exhaustion(t *testing.T) {
	mem := NewVideoMemory(4096)
	if _, err := mem.Alloc(1<<20, 16); err == nil {
		t.Error("expected an error for an oversized allocation")
	}
}

func TestVideoMemory_WordAccess(t *testing.T) {
	mem := NewVideoMemory(4096)
	mem.WriteWord(64, 0xDEADBEEF)
	if got := mem.ReadWord(64); got != 0xDEADBEEF {
		t.Errorf("ReadWord = %#x, want 0xDEADBEEF", got)
	}
	// Bytes() is a live view, not a copy.
	view := mem.Bytes(64, 4)
	view[0] = 0x01
	if got := mem.ReadWord(64); got != 0xDEADBE01 {
		t.Errorf("write through Bytes view not visible: %#x", got)
	}
}

func TestClock_RoundRateClamps(t *testing.T) {
	clk := NewClock("pclk", 50_000_000, nil)
	clk.SetRateLimits(1_000_000, 200_000_000)

	if got := clk.RoundRate(500_000); got != 1_000_000 {
		t.Errorf("below-minimum rate rounds to %d, want 1000000", got)
	}
	if got := clk.RoundRate(300_000_000); got != 200_000_000 {
		t.Errorf("above-maximum rate rounds to %d, want 200000000", got)
	}
	if got := clk.RoundRate(25_000_000); got != 25_000_000 {
		t.Errorf("in-range rate rounds to %d, want itself", got)
	}
	if got := clk.RoundRate(0); got != -1 {
		t.Errorf("invalid rate rounds to %d, want -1", got)
	}
}

type recordingNotifier struct {
	calls []string
	fail  error
}

func (n *recordingNotifier) PreRateChange(old, new int64) error {
	n.calls = append(n.calls, "pre")
	return n.fail
}

func (n *recordingNotifier) PostRateChange(old, new int64) {
	n.calls = append(n.calls, "post")
}

func TestClock_NotifierOrdering(t *testing.T) {
	clk := NewClock("pll", 600_000_000, nil)
	n := &recordingNotifier{}
	clk.RegisterNotifier(n)

	if err := clk.SetRate(500_000_000); err != nil {
		t.Fatal(err)
	}
	if len(n.calls) != 2 || n.calls[0] != "pre" || n.calls[1] != "post" {
		t.Errorf("notifier calls = %v, want [pre post]", n.calls)
	}
	if clk.Rate() != 500_000_000 {
		t.Errorf("rate = %d after change, want 500000000", clk.Rate())
	}

	clk.UnregisterNotifier(n)
	n.calls = nil
	if err := clk.SetRate(400_000_000); err != nil {
		t.Fatal(err)
	}
	if len(n.calls) != 0 {
		t.Errorf("unregistered notifier still called: %v", n.calls)
	}
}

func TestClock_NotifierErrorSurfaces(t *testing.T) {
	clk := NewClock("pll", 600_000_000, nil)
	boom := errors.New("pre veto")
	clk.RegisterNotifier(&recordingNotifier{fail: boom})

	if err := clk.SetRate(500_000_000); !errors.Is(err, boom) {
		t.Errorf("SetRate error = %v, want the notifier's", err)
	}
}

func TestSLCDTransferChannel_DeliversPayload(t *testing.T) {
	mem := NewVideoMemory(1 << 16)
	addr, err := mem.Alloc(256, 16)
	if err != nil {
		t.Fatal(err)
	}
	buf := mem.Bytes(addr, 256)
	for i := range buf {
		buf[i] = byte(i)
	}

	got := make(chan []byte, 1)
	ch := NewSLCDTransferChannel(mem, func(payload []byte) {
		cp := make([]byte, len(payload))
		copy(cp, payload)
		got <- cp
	})
	defer ch.Release()

	if err := ch.Configure(TransferConfig{SrcWidthBytes: 4, DstWidthBytes: 2, SrcMaxBurst: 16, DstMaxBurst: 16}); err != nil {
		t.Fatal(err)
	}
	done := make(chan error, 1)
	if err := ch.Submit(addr, 256, func(err error) { done <- err }); err != nil {
		t.Fatal(err)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("transfer completed with error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("transfer never completed")
	}
	payload := <-got
	if len(payload) != 256 {
		t.Fatalf("sink received %d bytes, want 256", len(payload))
	}
	for i, b := range payload {
		if b != byte(i) {
			t.Fatalf("payload byte %d = %#x, want %#x", i, b, byte(i))
		}
	}
}

func TestSLCDTransferChannel_SubmitAfterRelease(t *testing.T) {
	mem := NewVideoMemory(1 << 16)
	ch := NewSLCDTransferChannel(mem, func([]byte) {})
	ch.Release()
	ch.Release() // second release must be harmless

	if err := ch.Submit(64, 16, func(error) {}); err == nil {
		t.Error("expected an error submitting to a released channel")
	}
}

func TestInterruptLine_HandlerRuns(t *testing.T) {
	var line InterruptLine
	fired := 0
	line.Connect(func() { fired++ })
	line.Assert()
	line.Assert()
	if fired != 2 {
		t.Errorf("handler ran %d times, want 2", fired)
	}

	// Asserting with no handler connected must not panic.
	var bare InterruptLine
	bare.Assert()
}
