package nrf24

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/soypat/nrf24/internal/chipsim"
)

func newTestDevice(t *testing.T) (*Device, *chipsim.Chip) {
	t.Helper()
	chip := chipsim.New()
	dev := New(chip, chip.SetCE, DefaultConfig())
	return dev, chip
}

func checkNoViolations(t *testing.T, chip *chipsim.Chip) {
	t.Helper()
	for _, v := range chip.Violations() {
		t.Error("protocol violation:", v)
	}
}

func TestOpcodes(t *testing.T) {
	for r := Register(0); r <= registerMask; r++ {
		if got := WriteOpcode(r); got != Opcode(r)+0x20 {
			t.Errorf("WriteOpcode(%s)=%#x, want %#x", r, byte(got), byte(r)+0x20)
		}
		if got := ReadOpcode(r); got != Opcode(r) {
			t.Errorf("ReadOpcode(%s)=%#x, want %#x", r, byte(got), byte(r))
		}
	}
	if got := WriteOpcode(TxPayload); got != 0xa0 {
		t.Errorf("WriteOpcode(TxPayload)=%#x, want 0xa0 unmodified", byte(got))
	}
}

func TestWriteRegisterFraming(t *testing.T) {
	dev, chip := newTestDevice(t)
	data := []byte{1, 2, 3, 4, 5, 6, 7}
	err := dev.WriteRegister(RegTxAddr, 5, data)
	if err != nil {
		t.Fatal(err)
	}
	frames := chip.Frames()
	if len(frames) != 1 {
		t.Fatalf("want 1 transaction, got %d", len(frames))
	}
	want := []byte{0x30, 1, 2, 3, 4, 5}
	if !bytes.Equal(frames[0].MOSI, want) {
		t.Errorf("framed %x, want %x", frames[0].MOSI, want)
	}
	if !bytes.Equal(chip.Reg(byte(RegTxAddr)), data[:5]) {
		t.Errorf("TX_ADDR=%x", chip.Reg(byte(RegTxAddr)))
	}
	checkNoViolations(t, chip)
}

func TestWriteRegisterValidation(t *testing.T) {
	dev, chip := newTestDevice(t)
	tests := []struct {
		name string
		reg  Register
		n    int
		data []byte
	}{
		{name: "short data", reg: RegTxAddr, n: 5, data: []byte{1, 2, 3}},
		{name: "zero count", reg: RegRFCh, n: 0, data: []byte{1}},
		{name: "too long", reg: TxPayload, n: MaxTransfer + 1, data: make([]byte, MaxTransfer+1)},
		{name: "bad register", reg: 0x1e, n: 1, data: []byte{1}},
		{name: "outside register map", reg: 0x40, n: 1, data: []byte{1}},
	}
	for _, tt := range tests {
		err := dev.WriteRegister(tt.reg, tt.n, tt.data)
		if !errors.Is(err, ErrInvalidValue) {
			t.Errorf("%s: want ErrInvalidValue, got %v", tt.name, err)
		}
	}
	if n := len(chip.Frames()); n != 0 {
		t.Errorf("invalid writes issued %d transactions", n)
	}
}

func TestReadRegisterAtomic(t *testing.T) {
	dev, chip := newTestDevice(t)
	addr, err := dev.ReadRegister(RegRxAddrP1, 5)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(addr, []byte{0xc2, 0xc2, 0xc2, 0xc2, 0xc2}) {
		t.Errorf("RX_ADDR_P1 reset value %x", addr)
	}
	frames := chip.Frames()
	if len(frames) != 1 {
		t.Fatalf("read must be a single transaction, got %d", len(frames))
	}
	if frames[0].Opcode() != byte(RegRxAddrP1) || len(frames[0].MOSI) != 6 {
		t.Errorf("read frame %x", frames[0].MOSI)
	}
	checkNoViolations(t, chip)

	if _, err := dev.ReadRegister(RegRFCh, 0); !errors.Is(err, ErrInvalidValue) {
		t.Error("want ErrInvalidValue for zero length read, got", err)
	}
	if _, err := dev.ReadRegister(TxPayload, 1); !errors.Is(err, ErrInvalidValue) {
		t.Error("want ErrInvalidValue reading W_TX_PAYLOAD, got", err)
	}
}

// splitBus issues the command and data phases of a read as separate
// transactions, releasing chip select in between.
type splitBus struct{ *chipsim.Chip }

func (b splitBus) WriteThenRead(cmd byte, r []byte) error {
	if err := b.Chip.Write([]byte{cmd}); err != nil {
		return err
	}
	return b.Chip.Tx(make([]byte, len(r)), r)
}

func TestSplitReadDetected(t *testing.T) {
	chip := chipsim.New()
	dev := New(splitBus{chip}, nil, DefaultConfig())
	_, _ = dev.Channel()
	if len(chip.Violations()) == 0 {
		t.Fatal("simulator did not flag chip select released between command and data")
	}
}

func TestWritePayload(t *testing.T) {
	dev, chip := newTestDevice(t)
	payload := []byte("hello nrf")
	if err := dev.WritePayload(payload); err != nil {
		t.Fatal(err)
	}
	frames := chip.Frames()
	if len(frames) != 1 || frames[0].Opcode() != 0xa0 {
		t.Fatalf("payload frames %+v", frames)
	}
	fifo := chip.TxFIFO()
	if len(fifo) != 1 || !bytes.Equal(fifo[0], payload) {
		t.Errorf("tx fifo %q", fifo)
	}
	if err := dev.WritePayload(nil); !errors.Is(err, ErrInvalidValue) {
		t.Error("empty payload accepted:", err)
	}
	checkNoViolations(t, chip)
}

func TestTransportErrorPropagation(t *testing.T) {
	dev, chip := newTestDevice(t)
	busErr := errors.New("spi timeout")
	chip.FailAfter(0, busErr, true)
	err := dev.SetChannel(10)
	if !errors.Is(err, ErrBus) || !errors.Is(err, busErr) {
		t.Fatalf("want bus error, got %v", err)
	}
	var terr *TransportError
	if !errors.As(err, &terr) {
		t.Fatal("not a TransportError")
	}
	if terr.Op != "write" || terr.Opcode != WriteOpcode(RegRFCh) {
		t.Errorf("unexpected error fields %+v", terr)
	}

	// A failed read must abort a read-modify-write before the write.
	chip.Reset()
	chip.FailAfter(0, nil, true)
	err = dev.SetPower(PowerHigh)
	if !errors.Is(err, chipsim.ErrInjected) {
		t.Fatalf("want injected error, got %v", err)
	}
	if n := len(chip.Frames()); n != 0 {
		t.Errorf("setter kept going after failed read: %d transactions", n)
	}
	if errors.As(err, &terr) && terr.Op != "read" {
		t.Errorf("failed op %q, want read", terr.Op)
	}
}

func TestTraceLogging(t *testing.T) {
	var buf bytes.Buffer
	chip := chipsim.New()
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: levelTrace}))
	dev := New(chip, nil, Config{Logger: logger})
	if err := dev.SetChannel(76); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "reg=RF_CH") || !strings.Contains(out, "data=4c") {
		t.Errorf("trace log missing transaction:\n%s", out)
	}
}
