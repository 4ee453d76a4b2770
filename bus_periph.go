//go:build !tinygo

package nrf24

import (
	"errors"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
)

// DefaultSPIFrequency is used by [NewPeriphBus] when no frequency is given.
// The chip accepts up to 10MHz; 4MHz leaves margin for jumper wires.
const DefaultSPIFrequency = 4 * physic.MegaHertz

// PeriphBus implements [Bus] over a periph.io SPI connection. Each method maps
// to exactly one Tx so chip select stays asserted for the whole transaction.
type PeriphBus struct {
	conn spi.Conn
}

// NewPeriphBus connects to port in SPI mode 0 with 8 bit words.
func NewPeriphBus(port spi.Port, freq physic.Frequency) (*PeriphBus, error) {
	if freq == 0 {
		freq = DefaultSPIFrequency
	}
	conn, err := port.Connect(freq, spi.Mode0, 8)
	if err != nil {
		return nil, err
	}
	return &PeriphBus{conn: conn}, nil
}

// NewPeriphBusConn wraps an already connected SPI connection.
func NewPeriphBusConn(conn spi.Conn) *PeriphBus {
	return &PeriphBus{conn: conn}
}

func (b *PeriphBus) Write(w []byte) error {
	return b.conn.Tx(w, nil)
}

// WriteThenRead clocks out cmd followed by NOP bytes while reading, in a
// single full duplex transfer.
func (b *PeriphBus) WriteThenRead(cmd byte, r []byte) error {
	if len(r) > MaxTransfer {
		return errors.New("nrf24: read too long")
	}
	var wbuf, rbuf [MaxTransfer + 1]byte
	n := len(r) + 1
	wbuf[0] = cmd
	for i := 1; i < n; i++ {
		wbuf[i] = cmdNOP
	}
	err := b.conn.Tx(wbuf[:n], rbuf[:n])
	if err != nil {
		return err
	}
	copy(r, rbuf[1:n])
	return nil
}

// PeriphPin adapts a periph.io output pin to an [OutputPin].
func PeriphPin(p gpio.PinOut) OutputPin {
	return func(high bool) error {
		return p.Out(gpio.Level(high))
	}
}
