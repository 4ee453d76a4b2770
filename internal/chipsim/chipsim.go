// Package chipsim simulates the SPI side of an nRF24L01+ register file.
//
// A Chip records every chip-select framed transaction it sees. It can be used
// directly as an nrf24.Bus or, through its periph.io spi.Conn methods, under
// nrf24.PeriphBus. Protocol misuse such as releasing chip select between the
// command and data phases of a register read is recorded as a violation
// instead of panicking so tests can assert on it.
package chipsim

import (
	"errors"
	"fmt"
	"sync"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
)

const (
	numRegs    = 0x1e
	maxRegLen  = 5
	fifoDepth  = 3
	maxPayload = 32

	statusReset = 0x0e
)

// ErrInjected is the default error returned by [Chip.FailAfter].
var ErrInjected = errors.New("chipsim: injected bus failure")

// Frame is one chip-select framed transaction.
type Frame struct {
	MOSI []byte
	MISO []byte
}

// Opcode returns the first byte clocked in, or 0xff for an empty frame.
func (f Frame) Opcode() byte {
	if len(f.MOSI) == 0 {
		return 0xff
	}
	return f.MOSI[0]
}

// IsRead reports whether the frame is an R_REGISTER transaction.
func (f Frame) IsRead() bool { return f.Opcode() < 0x20 }

// IsWrite reports whether the frame is a W_REGISTER transaction.
func (f Frame) IsWrite() bool { return f.Opcode()&0xe0 == 0x20 }

// Chip is a simulated nRF24L01+. The zero value is not usable; call [New].
type Chip struct {
	mu         sync.Mutex
	regs       [numRegs][maxRegLen]byte
	txFIFO     [][]byte
	ce         bool
	frames     []Frame
	violations []string
	// open is the frame being built while chip select is held across
	// TxPackets with KeepCS set.
	open     *Frame
	failIn   int
	failErr  error
	failOnce bool
}

// New returns a chip with registers at their power-on reset values.
func New() *Chip {
	c := &Chip{}
	c.reset()
	return c
}

func (c *Chip) reset() {
	c.regs = [numRegs][maxRegLen]byte{}
	set := func(r byte, v ...byte) { copy(c.regs[r][:], v) }
	set(0x00, 0x08)
	set(0x01, 0x3f)
	set(0x02, 0x03)
	set(0x03, 0x03)
	set(0x04, 0x03)
	set(0x05, 0x02)
	set(0x06, 0x0e)
	set(0x07, statusReset)
	set(0x0a, 0xe7, 0xe7, 0xe7, 0xe7, 0xe7)
	set(0x0b, 0xc2, 0xc2, 0xc2, 0xc2, 0xc2)
	set(0x0c, 0xc3)
	set(0x0d, 0xc4)
	set(0x0e, 0xc5)
	set(0x0f, 0xc6)
	set(0x10, 0xe7, 0xe7, 0xe7, 0xe7, 0xe7)
	set(0x17, 0x11)
	c.txFIFO = c.txFIFO[:0]
}

// Reset restores power-on register values and clears the transaction log,
// violations and any pending failure injection.
func (c *Chip) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reset()
	c.frames = nil
	c.violations = nil
	c.open = nil
	c.failIn, c.failErr, c.failOnce = 0, nil, false
}

// Reg returns a copy of the register contents, width bytes long.
func (c *Chip) Reg(r byte) []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]byte(nil), c.regs[r][:regWidth(r)]...)
}

// SetReg presets register r without recording a transaction.
func (c *Chip) SetReg(r byte, v ...byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	copy(c.regs[r][:regWidth(r)], v)
}

// Frames returns the transactions seen since the last [Chip.ClearFrames] or
// [Chip.Reset].
func (c *Chip) Frames() []Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Frame(nil), c.frames...)
}

// ClearFrames empties the transaction log.
func (c *Chip) ClearFrames() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = nil
}

// Violations returns the protocol violations observed.
func (c *Chip) Violations() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.violations...)
}

// TxFIFO returns the payloads loaded with W_TX_PAYLOAD.
func (c *Chip) TxFIFO() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]byte(nil), c.txFIFO...)
}

// CE returns the last level driven on the CE line.
func (c *Chip) CE() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ce
}

// SetCE drives the CE line. It has the signature of nrf24.OutputPin.
func (c *Chip) SetCE(high bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ce = high
	return nil
}

// FailAfter makes the transaction after the next n succeed transactions fail
// with err, or with ErrInjected if err is nil. If once is false every
// following transaction fails too. Failed transactions do not change state.
func (c *Chip) FailAfter(n int, err error, once bool) {
	if err == nil {
		err = ErrInjected
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failIn, c.failErr, c.failOnce = n+1, err, once
}

// Write implements nrf24.Bus.
func (c *Chip) Write(w []byte) error {
	return c.Tx(w, nil)
}

// WriteThenRead implements nrf24.Bus.
func (c *Chip) WriteThenRead(cmd byte, r []byte) error {
	w := make([]byte, len(r)+1)
	w[0] = cmd
	for i := 1; i < len(w); i++ {
		w[i] = 0xff
	}
	rx := make([]byte, len(w))
	err := c.Tx(w, rx)
	if err == nil {
		copy(r, rx[1:])
	}
	return err
}

// Tx performs one chip-select framed full duplex transfer. r may be nil.
func (c *Chip) Tx(w, r []byte) error {
	if r != nil && len(r) != len(w) {
		return fmt.Errorf("chipsim: duplex length mismatch w=%d r=%d", len(w), len(r))
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.open != nil {
		c.violations = append(c.violations, "Tx issued while a KeepCS packet held chip select")
		c.open = nil
	}
	return c.frame(w, r)
}

// String implements conn.Resource.
func (c *Chip) String() string { return "chipsim" }

// Halt implements conn.Resource.
func (c *Chip) Halt() error { return nil }

// Duplex implements conn.Conn.
func (c *Chip) Duplex() conn.Duplex { return conn.Full }

// TxPackets implements spi.Conn. Consecutive packets with KeepCS set are
// merged into one chip-select frame.
func (c *Chip) TxPackets(p []spi.Packet) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range p {
		if p[i].R != nil && len(p[i].R) != len(p[i].W) {
			return fmt.Errorf("chipsim: packet %d duplex length mismatch", i)
		}
		if c.open == nil {
			c.open = &Frame{}
		}
		start := len(c.open.MOSI)
		c.open.MOSI = append(c.open.MOSI, p[i].W...)
		if p[i].KeepCS {
			if p[i].R != nil {
				c.violations = append(c.violations, "read data requested before frame completed")
			}
			continue
		}
		w := c.open.MOSI
		c.open = nil
		rx := make([]byte, len(w))
		if err := c.frame(w, rx); err != nil {
			return err
		}
		if p[i].R != nil {
			copy(p[i].R, rx[start:])
		}
	}
	return nil
}

// Connect implements spi.Port so a Chip can stand in for a real port.
func (c *Chip) Connect(f physic.Frequency, mode spi.Mode, bits int) (spi.Conn, error) {
	if mode != spi.Mode0 {
		return nil, fmt.Errorf("chipsim: nRF24L01 requires SPI mode 0, got %v", mode)
	}
	if bits != 8 {
		return nil, fmt.Errorf("chipsim: nRF24L01 requires 8 bit words, got %d", bits)
	}
	return c, nil
}

// LimitSpeed implements spi.Port.
func (c *Chip) LimitSpeed(f physic.Frequency) error { return nil }

// frame executes one transaction. Called with c.mu held.
func (c *Chip) frame(w, r []byte) error {
	if c.failIn > 0 {
		c.failIn--
		if c.failIn == 0 {
			err := c.failErr
			if !c.failOnce {
				c.failIn = 1
			}
			return err
		}
	}
	if len(w) == 0 {
		c.violations = append(c.violations, "empty frame")
		return nil
	}
	miso := make([]byte, len(w))
	miso[0] = c.regs[0x07][0]
	op := w[0]
	data := w[1:]
	switch {
	case op < 0x20: // R_REGISTER
		reg := op & 0x1f
		if len(data) == 0 {
			c.violations = append(c.violations,
				fmt.Sprintf("chip select released after read command %#02x before data phase", op))
		}
		if reg < numRegs {
			width := regWidth(reg)
			for i := range data {
				if i < width {
					miso[i+1] = c.regs[reg][i]
				}
			}
		}
	case op < 0x40: // W_REGISTER
		reg := op & 0x1f
		if len(data) == 0 {
			c.violations = append(c.violations, fmt.Sprintf("write command %#02x without data", op))
		}
		if reg >= numRegs {
			c.violations = append(c.violations, fmt.Sprintf("write to reserved register %#02x", reg))
			break
		}
		width := regWidth(reg)
		if len(data) > width {
			c.violations = append(c.violations,
				fmt.Sprintf("write of %d bytes to %d byte register %#02x", len(data), width, reg))
		}
		if reg == 0x07 && len(data) > 0 {
			// Interrupt flags are cleared by writing 1.
			c.regs[reg][0] &^= data[0] & 0x70
			break
		}
		copy(c.regs[reg][:width], data)
	case op == 0xa0, op == 0xb0: // W_TX_PAYLOAD, W_TX_PAYLOAD_NOACK
		if len(data) == 0 || len(data) > maxPayload {
			c.violations = append(c.violations, fmt.Sprintf("payload of %d bytes", len(data)))
			break
		}
		if len(c.txFIFO) == fifoDepth {
			break
		}
		c.txFIFO = append(c.txFIFO, append([]byte(nil), data...))
		c.regs[0x17][0] &^= 0x10 // TX_EMPTY
		if len(c.txFIFO) == fifoDepth {
			c.regs[0x17][0] |= 0x20 // TX_FULL
			c.regs[0x07][0] |= 0x01
		}
	case op == 0xe1: // FLUSH_TX
		c.txFIFO = c.txFIFO[:0]
		c.regs[0x17][0] = c.regs[0x17][0]&^0x20 | 0x10
		c.regs[0x07][0] &^= 0x01
	case op == 0xe2, op == 0xe3, op == 0xff, op == 0x60, op == 0x61:
		// FLUSH_RX, REUSE_TX_PL, NOP and Rx reads: the Rx path is not simulated.
	default:
		c.violations = append(c.violations, fmt.Sprintf("unknown command %#02x", op))
	}
	if r != nil {
		copy(r, miso)
	}
	c.frames = append(c.frames, Frame{
		MOSI: append([]byte(nil), w...),
		MISO: miso,
	})
	return nil
}

func regWidth(r byte) int {
	switch r {
	case 0x0a, 0x0b, 0x10:
		return maxRegLen
	}
	return 1
}
