//go:build pico && !nrfnopio

package nrf24

import (
	"machine"

	pio "github.com/tinygo-org/pio/rp2-pio"
	"github.com/tinygo-org/pio/rp2-pio/piolib"
)

// PicoPins are the RP2040 pins wired to the nRF24L01 module.
type PicoPins struct {
	SCK, SDO, SDI, CS, CE machine.Pin
}

// DefaultPicoPins is the usual wiring next to SPI0 on the Pico header.
var DefaultPicoPins = PicoPins{
	SCK: machine.GPIO18,
	SDO: machine.GPIO19,
	SDI: machine.GPIO16,
	CS:  machine.GPIO17,
	CE:  machine.GPIO20,
}

// NewPicoPIODevice returns a Device whose bus is a PIO state machine running
// SPI, leaving both hardware SPI peripherals free.
func NewPicoPIODevice(pins PicoPins, freq uint32, cfg Config) (*Device, error) {
	sm, err := pio.PIO0.ClaimStateMachine()
	if err != nil {
		return nil, err
	}
	spi, err := piolib.NewSPI(sm, machine.SPIConfig{
		Frequency: freq,
		SCK:       pins.SCK,
		SDO:       pins.SDO,
		SDI:       pins.SDI,
		Mode:      0,
	})
	if err != nil {
		return nil, err
	}
	return New(NewSPIBus(spi, pins.CS), PinOutput(pins.CE), cfg), nil
}
