//go:build tinygo

package nrf24

import (
	"device"
	"errors"
	"machine"
)

// SPIbb is a bit-bang SPI master hardcoded to mode 0, MSB first, which is
// what the nRF24L01 expects. Useful when no hardware SPI is free.
type SPIbb struct {
	SCK   machine.Pin
	SDI   machine.Pin // MISO
	SDO   machine.Pin // MOSI
	Delay uint32
}

// Configure sets up SCK and SDO as outputs driven low and SDI as input.
func (s *SPIbb) Configure() {
	s.SCK.Configure(machine.PinConfig{Mode: machine.PinOutput})
	s.SDO.Configure(machine.PinConfig{Mode: machine.PinOutput})
	s.SDI.Configure(machine.PinConfig{Mode: machine.PinInput})
	s.SCK.Low()
	s.SDO.Low()
	if s.Delay == 0 {
		s.Delay = 1
	}
}

// Tx matches the signature of machine.SPI.Tx. If r is nil the received bits
// are dropped; if w is nil NOP bytes are clocked out while reading.
func (s *SPIbb) Tx(w, r []byte) error {
	switch {
	case w != nil && r != nil && len(w) != len(r):
		return errors.New("spibb: buffer length mismatch")
	case r == nil:
		for _, b := range w {
			s.transfer(b)
		}
	case w == nil:
		for i := range r {
			r[i] = s.transfer(cmdNOP)
		}
	default:
		for i, b := range w {
			r[i] = s.transfer(b)
		}
	}
	return nil
}

// Transfer matches the signature of machine.SPI.Transfer.
func (s *SPIbb) Transfer(b byte) (byte, error) {
	return s.transfer(b), nil
}

//go:inline
func (s *SPIbb) transfer(b byte) (out byte) {
	for i := 7; i >= 0; i-- {
		out |= b2u8(s.bitTransfer(b&(1<<i) != 0)) << i
	}
	return out
}

// bitTransfer sets MOSI, then samples MISO on the rising clock edge.
//
//go:inline
func (s *SPIbb) bitTransfer(b bool) bool {
	s.SDO.Set(b)
	s.delay()
	s.SCK.High()
	s.delay()
	in := s.SDI.Get()
	s.delay()
	s.SCK.Low()
	s.delay()
	return in
}

// delay represents a quarter of the clock cycle.
//
//go:inline
func (s *SPIbb) delay() {
	for i := uint32(0); i < s.Delay; i++ {
		device.Asm("nop")
	}
}

//go:inline
func b2u8(b bool) byte {
	if b {
		return 1
	}
	return 0
}
