package nrf24

import "log/slog"

// SetTxAddress writes the 5 byte transmit address to TX_ADDR.
func (d *Device) SetTxAddress(addr []byte) error {
	if len(addr) != 5 {
		return invalid("tx address length", len(addr), 5, 5)
	}
	d.acquire()
	defer d.release()
	d.debug("SetTxAddress", hexAttr("addr", addr))
	return d.writeReg(RegTxAddr, 5, addr)
}

// SetRxAddress writes the receive address of pipe. Pipes 0 and 1 take 5 bytes
// of addr; pipes 2 to 5 take only addr[0], their least significant byte.
func (d *Device) SetRxAddress(pipe Pipe, addr []byte) error {
	if pipe >= NumPipes {
		return invalid("pipe", int(pipe), 0, NumPipes-1)
	}
	n := pipe.AddressLen()
	if len(addr) < n {
		return invalid("rx address length", len(addr), n, 5)
	}
	d.acquire()
	defer d.release()
	d.debug("SetRxAddress", slog.Int("pipe", int(pipe)), hexAttr("addr", addr[:n]))
	return d.writeReg(pipe.Register(), n, addr)
}

// SetPower sets the RF output power in RF_SETUP, preserving the data rate bits.
func (d *Device) SetPower(p Power) error {
	return d.setField("power", fieldPower, uint8(p))
}

// SetSpeed sets the air data rate in RF_SETUP, preserving the power bits.
func (d *Device) SetSpeed(r DataRate) error {
	return d.setField("data rate", fieldDataRate, uint8(r))
}

// SetChannel sets the RF channel. Valid channels are 0..127; the carrier
// frequency is 2400+ch MHz.
func (d *Device) SetChannel(ch uint8) error {
	if ch > fieldChannel.max {
		return invalid("channel", int(ch), 0, int(fieldChannel.max))
	}
	d.acquire()
	defer d.release()
	d.debug("SetChannel", slog.Int("ch", int(ch)))
	return d.writeByte(RegRFCh, ch)
}

// SetRetransCount sets the auto retransmit count (0 disables retransmission).
func (d *Device) SetRetransCount(count uint8) error {
	return d.setField("retransmit count", fieldRetrCount, count)
}

// SetRetransDelay sets the auto retransmit delay. Each step adds 250µs,
// starting at 250µs for 0.
func (d *Device) SetRetransDelay(delay uint8) error {
	return d.setField("retransmit delay", fieldRetrDelay, delay)
}

// SetAddressWidth writes SETUP_AW. Zero and values above 5 are rejected.
func (d *Device) SetAddressWidth(width uint8) error {
	if width == 0 || width > fieldAddrWidth.max {
		return invalid("address width", int(width), 1, int(fieldAddrWidth.max))
	}
	d.acquire()
	defer d.release()
	d.debug("SetAddressWidth", slog.Int("width", int(width)))
	return d.writeByte(RegSetupAW, width)
}

// EnablePipes writes the set of enabled Rx pipes to EN_RXADDR.
func (d *Device) EnablePipes(m PipeMask) error {
	d.acquire()
	defer d.release()
	d.debug("EnablePipes", slog.String("pipes", m.String()))
	return d.writeByte(RegEnRxAddr, byte(m))
}

// SetAutoAck writes the set of auto acknowledged pipes to EN_AA.
func (d *Device) SetAutoAck(m PipeMask) error {
	d.acquire()
	defer d.release()
	d.debug("SetAutoAck", slog.String("pipes", m.String()))
	return d.writeByte(RegEnAA, byte(m))
}

func (d *Device) setField(setting string, f field, v uint8) error {
	if v > f.max {
		return invalid(setting, int(v), 0, int(f.max))
	}
	d.acquire()
	defer d.release()
	return d.modify(f, v)
}

// TxAddress reads TX_ADDR.
func (d *Device) TxAddress() ([5]byte, error) {
	var addr [5]byte
	d.acquire()
	defer d.release()
	err := d.readReg(RegTxAddr, 5, addr[:])
	return addr, err
}

// RxAddress reads the receive address of pipe. For pipes 2 to 5 only the
// least significant byte is returned.
func (d *Device) RxAddress(pipe Pipe) ([]byte, error) {
	if pipe >= NumPipes {
		return nil, invalid("pipe", int(pipe), 0, NumPipes-1)
	}
	n := pipe.AddressLen()
	addr := make([]byte, n)
	d.acquire()
	defer d.release()
	if err := d.readReg(pipe.Register(), n, addr); err != nil {
		return nil, err
	}
	return addr, nil
}

// Power reads the output power field of RF_SETUP.
func (d *Device) Power() (Power, error) {
	v, err := d.getField(fieldPower)
	return Power(v), err
}

// Speed reads the data rate field of RF_SETUP.
func (d *Device) Speed() (DataRate, error) {
	v, err := d.getField(fieldDataRate)
	return DataRate(v), err
}

// Channel reads RF_CH.
func (d *Device) Channel() (uint8, error) {
	return d.getField(fieldChannel)
}

// RetransCount reads the retransmit count field of SETUP_RETR.
func (d *Device) RetransCount() (uint8, error) {
	return d.getField(fieldRetrCount)
}

// RetransDelay reads the retransmit delay field of SETUP_RETR.
func (d *Device) RetransDelay() (uint8, error) {
	return d.getField(fieldRetrDelay)
}

// AddressWidth reads SETUP_AW.
func (d *Device) AddressWidth() (uint8, error) {
	return d.getField(fieldAddrWidth)
}

// EnabledPipes reads EN_RXADDR.
func (d *Device) EnabledPipes() (PipeMask, error) {
	v, err := d.getField(fieldPipeEnable)
	return PipeMask(v), err
}

// AutoAck reads EN_AA.
func (d *Device) AutoAck() (PipeMask, error) {
	v, err := d.getField(fieldAutoAck)
	return PipeMask(v), err
}

func (d *Device) getField(f field) (uint8, error) {
	d.acquire()
	defer d.release()
	reg, err := d.readByte(f.reg)
	if err != nil {
		return 0, err
	}
	return f.get(reg), nil
}
