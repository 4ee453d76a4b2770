package chipsim

import (
	"bytes"
	"errors"
	"testing"

	"periph.io/x/conn/v3/spi"
)

func TestResetValues(t *testing.T) {
	c := New()
	if got := c.Reg(0x06); got[0] != 0x0e {
		t.Errorf("RF_SETUP reset %#02x", got[0])
	}
	if got := c.Reg(0x10); !bytes.Equal(got, []byte{0xe7, 0xe7, 0xe7, 0xe7, 0xe7}) {
		t.Errorf("TX_ADDR reset %x", got)
	}
	if got := len(c.Reg(0x0c)); got != 1 {
		t.Errorf("RX_ADDR_P2 width %d", got)
	}
}

func TestReadWriteFrames(t *testing.T) {
	c := New()
	if err := c.Write([]byte{0x25, 0x28}); err != nil {
		t.Fatal(err)
	}
	var r [1]byte
	if err := c.WriteThenRead(0x05, r[:]); err != nil {
		t.Fatal(err)
	}
	if r[0] != 0x28 {
		t.Errorf("RF_CH read back %#02x", r[0])
	}
	frames := c.Frames()
	if len(frames) != 2 || !frames[0].IsWrite() || !frames[1].IsRead() {
		t.Fatalf("frames %+v", frames)
	}
	if frames[1].MISO[0] != statusReset {
		t.Errorf("status byte %#02x", frames[1].MISO[0])
	}
	if v := c.Violations(); len(v) != 0 {
		t.Error(v)
	}
}

func TestViolations(t *testing.T) {
	c := New()
	_ = c.Write([]byte{0x05})
	_ = c.Write([]byte{0x25, 1, 2})
	_ = c.Write([]byte{0x50})
	if got := len(c.Violations()); got != 3 {
		t.Errorf("want 3 violations, got %d: %q", got, c.Violations())
	}
	c.Reset()
	if len(c.Violations()) != 0 || len(c.Frames()) != 0 {
		t.Error("Reset did not clear log")
	}
}

func TestTxPacketsKeepCS(t *testing.T) {
	c := New()
	r := make([]byte, 5)
	err := c.TxPackets([]spi.Packet{
		{W: []byte{0x0b}, KeepCS: true},
		{W: make([]byte, 5), R: r},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(r, []byte{0xc2, 0xc2, 0xc2, 0xc2, 0xc2}) {
		t.Errorf("RX_ADDR_P1 %x", r)
	}
	if n := len(c.Frames()); n != 1 {
		t.Errorf("KeepCS packets produced %d frames", n)
	}
	if v := c.Violations(); len(v) != 0 {
		t.Error(v)
	}
}

func TestFailAfter(t *testing.T) {
	c := New()
	boom := errors.New("boom")
	c.FailAfter(1, boom, true)
	if err := c.Write([]byte{0x25, 1}); err != nil {
		t.Fatal(err)
	}
	if err := c.Write([]byte{0x25, 2}); !errors.Is(err, boom) {
		t.Fatal("want injected error, got", err)
	}
	if err := c.Write([]byte{0x25, 3}); err != nil {
		t.Fatal("one shot failure repeated:", err)
	}
	if got := c.Reg(0x05)[0]; got != 3 {
		t.Errorf("RF_CH=%d", got)
	}
	c.FailAfter(0, nil, false)
	for i := 0; i < 3; i++ {
		if err := c.Write([]byte{0x25, 9}); !errors.Is(err, ErrInjected) {
			t.Fatal("persistent failure stopped:", err)
		}
	}
}

func TestPayloadFIFO(t *testing.T) {
	c := New()
	for i := 0; i < fifoDepth+1; i++ {
		_ = c.Write([]byte{0xa0, byte(i)})
	}
	if n := len(c.TxFIFO()); n != fifoDepth {
		t.Errorf("fifo holds %d payloads", n)
	}
	if c.Reg(0x17)[0]&0x20 == 0 {
		t.Error("TX_FULL not set")
	}
	_ = c.Write([]byte{0xe1})
	if n := len(c.TxFIFO()); n != 0 || c.Reg(0x17)[0]&0x10 == 0 {
		t.Error("FLUSH_TX did not empty fifo")
	}
}
