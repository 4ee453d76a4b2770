package nrf24

import (
	"log/slog"
)

// WriteRegister writes the first n bytes of data to reg in one bus transaction
// framed as [opcode, data[0], ..., data[n-1]]. reg may be [TxPayload] to load
// the Tx FIFO.
func (d *Device) WriteRegister(reg Register, n int, data []byte) error {
	d.acquire()
	defer d.release()
	return d.writeReg(reg, n, data)
}

// ReadRegister reads n bytes from reg. The command and data phases are issued
// as a single bus transaction.
func (d *Device) ReadRegister(reg Register, n int) ([]byte, error) {
	if n < 1 || n > MaxTransfer {
		return nil, invalid("byte count", n, 1, MaxTransfer)
	}
	d.acquire()
	defer d.release()
	buf := make([]byte, n)
	if err := d.readReg(reg, n, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// WritePayload loads p into the Tx FIFO with the W_TX_PAYLOAD command.
func (d *Device) WritePayload(p []byte) error {
	d.acquire()
	defer d.release()
	return d.writeReg(TxPayload, len(p), p)
}

func (d *Device) writeReg(reg Register, n int, data []byte) error {
	switch {
	case reg != TxPayload && !reg.IsValid():
		return invalid("register", int(reg), 0, registerMask)
	case n < 1 || n > MaxTransfer:
		return invalid("byte count", n, 1, MaxTransfer)
	case len(data) < n:
		return invalid("data length", len(data), n, MaxTransfer)
	}
	var buf [MaxTransfer + 1]byte
	op := WriteOpcode(reg)
	buf[0] = byte(op)
	copy(buf[1:], data[:n])
	d.trace("write", regAttr(reg), slog.Int("len", n), hexAttr("data", buf[1:n+1]))
	err := d.bus.Write(buf[:n+1])
	if err != nil {
		d.logerr("write failed", regAttr(reg), slog.String("err", err.Error()))
		return &TransportError{Op: "write", Opcode: op, Err: err}
	}
	return nil
}

// readReg reads n bytes of reg into dst[:n].
func (d *Device) readReg(reg Register, n int, dst []byte) error {
	switch {
	case !reg.IsValid():
		return invalid("register", int(reg), 0, registerMask)
	case n < 1 || n > MaxTransfer:
		return invalid("byte count", n, 1, MaxTransfer)
	}
	var buf [MaxTransfer]byte
	op := ReadOpcode(reg)
	err := d.bus.WriteThenRead(byte(op), buf[:n])
	if err != nil {
		d.logerr("read failed", regAttr(reg), slog.String("err", err.Error()))
		return &TransportError{Op: "read", Opcode: op, Err: err}
	}
	copy(dst[:n], buf[:n])
	d.trace("read", regAttr(reg), slog.Int("len", n), hexAttr("data", buf[:n]))
	return nil
}

func (d *Device) readByte(reg Register) (byte, error) {
	var b [1]byte
	err := d.readReg(reg, 1, b[:])
	return b[0], err
}

func (d *Device) writeByte(reg Register, v byte) error {
	return d.writeReg(reg, 1, []byte{v})
}

// modify performs a read-modify-write of f, leaving bits outside f untouched.
func (d *Device) modify(f field, v uint8) error {
	old, err := d.readByte(f.reg)
	if err != nil {
		return err
	}
	nv := f.put(old, v)
	d.debug("modify", regAttr(f.reg), slog.Uint64("old", uint64(old)), slog.Uint64("new", uint64(nv)))
	return d.writeByte(f.reg, nv)
}
