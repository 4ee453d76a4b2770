//go:build !tinygo

package hostbus

import (
	"errors"
	"testing"

	"github.com/soypat/nrf24"
	"github.com/soypat/nrf24/internal/chipsim"
)

func TestOpenSim(t *testing.T) {
	r, err := Open(Options{Sim: true})
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	if r.Sim == nil {
		t.Fatal("no simulated chip")
	}
	if err := r.SetPower(nrf24.PowerHigh); err != nil {
		t.Fatal(err)
	}
	if got := r.Sim.Reg(byte(nrf24.RegRFSetup))[0] & 0x03; got != 2 {
		t.Errorf("power bits %d", got)
	}
	if v := r.Sim.Violations(); len(v) != 0 {
		t.Error(v)
	}
}

func TestStartFailure(t *testing.T) {
	errCE := errors.New("ce stuck")
	chip := chipsim.New()
	r := &Radio{
		Device: nrf24.New(chip, func(bool) error { return errCE }, nrf24.DefaultConfig()),
		Sim:    chip,
	}
	got, err := r.start()
	if !errors.Is(err, errCE) {
		t.Fatalf("want CE error, got %v", err)
	}
	if got != nil {
		t.Error("radio returned alongside error")
	}
}
