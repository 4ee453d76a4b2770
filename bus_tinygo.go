//go:build tinygo

package nrf24

import (
	"errors"
	"machine"
)

// spiTx is satisfied by *machine.SPI, *SPIbb and the PIO SPI of piolib.
type spiTx interface {
	Tx(w, r []byte) error
}

// SPIBus implements [Bus] on TinyGo targets over an SPI peripheral whose chip
// select is driven in software.
type SPIBus struct {
	spi spiTx
	cs  machine.Pin
}

// NewSPIBus configures cs as output, deasserts it and returns the bus.
// spi must already be configured for mode 0, MSB first.
func NewSPIBus(spi spiTx, cs machine.Pin) *SPIBus {
	cs.Configure(machine.PinConfig{Mode: machine.PinOutput})
	cs.High()
	return &SPIBus{spi: spi, cs: cs}
}

func (b *SPIBus) Write(w []byte) error {
	b.cs.Low()
	err := b.spi.Tx(w, nil)
	b.cs.High()
	return err
}

func (b *SPIBus) WriteThenRead(cmd byte, r []byte) error {
	if len(r) > MaxTransfer {
		return errors.New("nrf24: read too long")
	}
	var wbuf, rbuf [MaxTransfer + 1]byte
	n := len(r) + 1
	wbuf[0] = cmd
	for i := 1; i < n; i++ {
		wbuf[i] = cmdNOP
	}
	b.cs.Low()
	err := b.spi.Tx(wbuf[:n], rbuf[:n])
	b.cs.High()
	copy(r, rbuf[1:n])
	return err
}

// PinOutput configures p as output and returns an [OutputPin] driving it.
func PinOutput(p machine.Pin) OutputPin {
	p.Configure(machine.PinConfig{Mode: machine.PinOutput})
	return func(high bool) error {
		p.Set(high)
		return nil
	}
}
