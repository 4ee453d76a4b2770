package nrf24

import (
	"bytes"
	"errors"
	"testing"

	"github.com/soypat/nrf24/internal/chipsim"
)

func TestSetRxAddressByteCount(t *testing.T) {
	addr := []byte{0xa1, 0xa2, 0xa3, 0xa4, 0xa5}
	for pipe := Pipe(0); pipe < NumPipes; pipe++ {
		dev, chip := newTestDevice(t)
		if err := dev.SetRxAddress(pipe, addr); err != nil {
			t.Fatalf("pipe %d: %v", pipe, err)
		}
		frames := chip.Frames()
		if len(frames) != 1 {
			t.Fatalf("pipe %d: want 1 transaction, got %d", pipe, len(frames))
		}
		want := 5
		if pipe > 1 {
			want = 1
		}
		if got := len(frames[0].MOSI) - 1; got != want {
			t.Errorf("pipe %d: wrote %d address bytes, want %d", pipe, got, want)
		}
		if frames[0].Opcode() != byte(WriteOpcode(RegRxAddrP0+Register(pipe))) {
			t.Errorf("pipe %d: opcode %#x", pipe, frames[0].Opcode())
		}
		got, err := dev.RxAddress(pipe)
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(got, addr[:want]) {
			t.Errorf("pipe %d: read back %x", pipe, got)
		}
	}
	dev, chip := newTestDevice(t)
	for _, pipe := range []Pipe{6, 7, 255} {
		err := dev.SetRxAddress(pipe, addr)
		if !errors.Is(err, ErrInvalidValue) {
			t.Errorf("pipe %d: want ErrInvalidValue, got %v", pipe, err)
		}
		var verr *ValidationError
		if errors.As(err, &verr) && verr.Setting != "pipe" {
			t.Errorf("pipe %d: setting %q", pipe, verr.Setting)
		}
	}
	if err := dev.SetRxAddress(0, addr[:3]); !errors.Is(err, ErrInvalidValue) {
		t.Error("short pipe 0 address accepted:", err)
	}
	if n := len(chip.Frames()); n != 0 {
		t.Errorf("invalid pipes issued %d transactions", n)
	}
}

func TestSetPowerTransactions(t *testing.T) {
	for p := PowerMin; p <= PowerMax; p++ {
		dev, chip := newTestDevice(t)
		if err := dev.SetPower(p); err != nil {
			t.Fatal(err)
		}
		frames := chip.Frames()
		if len(frames) != 2 {
			t.Fatalf("power %d: want read+write, got %d transactions", p, len(frames))
		}
		if frames[0].Opcode() != byte(ReadOpcode(RegRFSetup)) {
			t.Errorf("power %d: first transaction %#x is not a RF_SETUP read", p, frames[0].Opcode())
		}
		if frames[1].Opcode() != byte(WriteOpcode(RegRFSetup)) {
			t.Errorf("power %d: second transaction %#x is not a RF_SETUP write", p, frames[1].Opcode())
		}
		// Reset RF_SETUP is 0x0e: data rate bits untouched.
		if got, want := chip.Reg(byte(RegRFSetup))[0], byte(0x0e&^0x03|byte(p)); got != want {
			t.Errorf("power %d: RF_SETUP=%#02x, want %#02x", p, got, want)
		}
		checkNoViolations(t, chip)
	}
	dev, chip := newTestDevice(t)
	if err := dev.SetPower(4); !errors.Is(err, ErrInvalidValue) {
		t.Error("power 4 accepted:", err)
	}
	if n := len(chip.Frames()); n != 0 {
		t.Errorf("power 4 issued %d transactions", n)
	}
}

func TestSetSpeedPlacement(t *testing.T) {
	dev, chip := newTestDevice(t)
	const pre = 0x03 // power bits only.
	chip.SetReg(byte(RegRFSetup), pre)
	if err := dev.SetSpeed(DataRate2Mbps); err != nil {
		t.Fatal(err)
	}
	frames := chip.Frames()
	if len(frames) != 2 {
		t.Fatalf("want 2 transactions, got %d", len(frames))
	}
	if got, want := frames[1].MOSI[1], byte(1<<3|pre); got != want {
		t.Errorf("written RF_SETUP %#02x, want %#02x", got, want)
	}
	if err := dev.SetSpeed(3); !errors.Is(err, ErrInvalidValue) {
		t.Error("speed 3 accepted:", err)
	}
	rate, err := dev.Speed()
	if err != nil {
		t.Fatal(err)
	}
	if rate != DataRate2Mbps {
		t.Errorf("read back rate %s", rate)
	}
}

func TestFieldSetIdempotent(t *testing.T) {
	dev, chip := newTestDevice(t)
	if err := dev.SetRetransCount(9); err != nil {
		t.Fatal(err)
	}
	for _, delay := range []uint8{0, 2, 15, 2} {
		if err := dev.SetRetransDelay(delay); err != nil {
			t.Fatal(err)
		}
		got := chip.Reg(byte(RegSetupRetr))[0]
		if got>>4 != delay {
			t.Errorf("SETUP_RETR delay nibble %d, want %d", got>>4, delay)
		}
		if got&0x0f != 9 {
			t.Errorf("retransmit count clobbered: %#02x", got)
		}
	}

	if err := dev.SetPower(PowerMax); err != nil {
		t.Fatal(err)
	}
	if err := dev.SetPower(PowerLow); err != nil {
		t.Fatal(err)
	}
	p, err := dev.Power()
	if err != nil {
		t.Fatal(err)
	}
	if p != PowerLow {
		t.Errorf("power after 3 then 1 is %d, want 1", p)
	}
}

func TestFieldSetRejectsOutOfRange(t *testing.T) {
	dev, chip := newTestDevice(t)
	tests := []struct {
		name string
		set  func() error
	}{
		{name: "power 4", set: func() error { return dev.SetPower(4) }},
		{name: "power 255", set: func() error { return dev.SetPower(255) }},
		{name: "speed 3", set: func() error { return dev.SetSpeed(3) }},
		{name: "speed 255", set: func() error { return dev.SetSpeed(255) }},
		{name: "retransmit count 16", set: func() error { return dev.SetRetransCount(16) }},
		{name: "retransmit count 255", set: func() error { return dev.SetRetransCount(255) }},
		{name: "retransmit delay 16", set: func() error { return dev.SetRetransDelay(16) }},
		{name: "retransmit delay 255", set: func() error { return dev.SetRetransDelay(255) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chip.ClearFrames()
			err := tt.set()
			if !errors.Is(err, ErrInvalidValue) {
				t.Fatalf("want ErrInvalidValue, got %v", err)
			}
			if n := len(chip.Frames()); n != 0 {
				t.Errorf("rejected value issued %d transactions", n)
			}
		})
	}
	if got := chip.Reg(byte(RegRFSetup))[0]; got != 0x0e {
		t.Errorf("RF_SETUP changed to %#02x", got)
	}
	if got := chip.Reg(byte(RegSetupRetr))[0]; got != 0x03 {
		t.Errorf("SETUP_RETR changed to %#02x", got)
	}
}

func TestSetChannelBounds(t *testing.T) {
	dev, chip := newTestDevice(t)
	for ch := 0; ch <= 127; ch++ {
		if err := dev.SetChannel(uint8(ch)); err != nil {
			t.Fatalf("channel %d: %v", ch, err)
		}
	}
	if got := chip.Reg(byte(RegRFCh))[0]; got != 127 {
		t.Errorf("RF_CH=%d", got)
	}
	chip.ClearFrames()
	for ch := 128; ch <= 255; ch++ {
		if err := dev.SetChannel(uint8(ch)); !errors.Is(err, ErrInvalidValue) {
			t.Fatalf("channel %d accepted: %v", ch, err)
		}
	}
	if n := len(chip.Frames()); n != 0 {
		t.Errorf("rejected channels issued %d transactions", n)
	}
}

func TestSetAddressWidth(t *testing.T) {
	dev, chip := newTestDevice(t)
	for _, w := range []uint8{0, 6, 255} {
		if err := dev.SetAddressWidth(w); !errors.Is(err, ErrInvalidValue) {
			t.Errorf("width %d accepted: %v", w, err)
		}
	}
	if n := len(chip.Frames()); n != 0 {
		t.Fatalf("rejected widths issued %d transactions", n)
	}
	for w := uint8(1); w <= 5; w++ {
		if err := dev.SetAddressWidth(w); err != nil {
			t.Fatal(err)
		}
		got, err := dev.AddressWidth()
		if err != nil {
			t.Fatal(err)
		}
		if got != w {
			t.Errorf("address width %d read back %d", w, got)
		}
	}
}

func TestSetTxAddress(t *testing.T) {
	dev, chip := newTestDevice(t)
	if err := dev.SetTxAddress([]byte{1, 2, 3, 4}); !errors.Is(err, ErrInvalidValue) {
		t.Error("4 byte tx address accepted:", err)
	}
	if err := dev.SetTxAddress([]byte{1, 2, 3, 4, 5, 6}); !errors.Is(err, ErrInvalidValue) {
		t.Error("6 byte tx address accepted:", err)
	}
	if n := len(chip.Frames()); n != 0 {
		t.Fatalf("rejected addresses issued %d transactions", n)
	}
	want := [5]byte{0xe7, 0xd3, 0xf0, 0x35, 0x77}
	if err := dev.SetTxAddress(want[:]); err != nil {
		t.Fatal(err)
	}
	got, err := dev.TxAddress()
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Errorf("tx address %x, want %x", got, want)
	}
}

func TestPipeMasks(t *testing.T) {
	dev, chip := newTestDevice(t)
	if err := dev.EnablePipes(P0 | P1 | P5); err != nil {
		t.Fatal(err)
	}
	if err := dev.SetAutoAck(P1); err != nil {
		t.Fatal(err)
	}
	if got := chip.Reg(byte(RegEnRxAddr))[0]; got != 0x23 {
		t.Errorf("EN_RXADDR=%#02x", got)
	}
	if got := chip.Reg(byte(RegEnAA))[0]; got != 0x02 {
		t.Errorf("EN_AA=%#02x", got)
	}
	pipes, err := dev.EnabledPipes()
	if err != nil {
		t.Fatal(err)
	}
	if !pipes.Has(5) || pipes.Has(2) {
		t.Errorf("enabled pipes %s", pipes)
	}
	aa, err := dev.AutoAck()
	if err != nil {
		t.Fatal(err)
	}
	if aa.String() != "P5- P4- P3- P2- P1+ P0-" {
		t.Errorf("auto ack %q", aa.String())
	}
}

func TestInitDrivesCELow(t *testing.T) {
	chip := chipsim.New()
	_ = chip.SetCE(true)
	dev := New(chip, chip.SetCE, DefaultConfig())
	if err := dev.Init(); err != nil {
		t.Fatal(err)
	}
	if chip.CE() {
		t.Error("CE still high after Init")
	}
	if err := New(chip, nil, DefaultConfig()).Init(); err != nil {
		t.Error("Init without CE pin:", err)
	}
}
