package nrf24

import (
	"errors"
	"fmt"
)

// RadioConfig holds radio settings for [Device.Configure]. Nil fields are
// left untouched on the chip.
type RadioConfig struct {
	AddressWidth *uint8
	TxAddress    []byte
	// RxAddress holds the address of each pipe; nil entries are skipped.
	// Pipes 2 to 5 use only the first byte.
	RxAddress    [NumPipes][]byte
	Channel      *uint8
	Power        *Power
	DataRate     *DataRate
	RetransCount *uint8
	RetransDelay *uint8
	EnabledPipes *PipeMask
	AutoAck      *PipeMask
}

// Validate checks every present field without touching the bus. All
// offending fields are reported.
func (cfg *RadioConfig) Validate() error {
	var errs []error
	check := func(setting string, v *uint8, min, max uint8) {
		if v != nil && (*v < min || *v > max) {
			errs = append(errs, invalid(setting, int(*v), int(min), int(max)))
		}
	}
	check("address width", cfg.AddressWidth, 1, fieldAddrWidth.max)
	check("channel", cfg.Channel, 0, fieldChannel.max)
	check("retransmit count", cfg.RetransCount, 0, fieldRetrCount.max)
	check("retransmit delay", cfg.RetransDelay, 0, fieldRetrDelay.max)
	if cfg.Power != nil {
		check("power", (*uint8)(cfg.Power), 0, fieldPower.max)
	}
	if cfg.DataRate != nil {
		check("data rate", (*uint8)(cfg.DataRate), 0, fieldDataRate.max)
	}
	if cfg.TxAddress != nil && len(cfg.TxAddress) != 5 {
		errs = append(errs, invalid("tx address length", len(cfg.TxAddress), 5, 5))
	}
	for p, addr := range cfg.RxAddress {
		n := Pipe(p).AddressLen()
		if addr != nil && len(addr) < n {
			errs = append(errs, invalid(fmt.Sprintf("rx%d address length", p), len(addr), n, 5))
		}
	}
	return errors.Join(errs...)
}

// Configure validates cfg and then applies every present field. Nothing is
// written if any field is invalid. On a bus failure the settings applied
// before it remain on the chip.
func (d *Device) Configure(cfg RadioConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	d.acquire()
	defer d.release()
	d.info("Configure")
	step := func(setting string, fn func() error) error {
		if err := fn(); err != nil {
			return fmt.Errorf("configure %s: %w", setting, err)
		}
		return nil
	}
	var err error
	if cfg.AddressWidth != nil {
		err = step("address width", func() error { return d.writeByte(RegSetupAW, *cfg.AddressWidth) })
	}
	if err == nil && cfg.TxAddress != nil {
		err = step("tx address", func() error { return d.writeReg(RegTxAddr, 5, cfg.TxAddress) })
	}
	for p := Pipe(0); err == nil && p < NumPipes; p++ {
		if addr := cfg.RxAddress[p]; addr != nil {
			err = step(fmt.Sprintf("rx%d address", p), func() error { return d.writeReg(p.Register(), p.AddressLen(), addr) })
		}
	}
	if err == nil && cfg.Channel != nil {
		err = step("channel", func() error { return d.writeByte(RegRFCh, *cfg.Channel) })
	}
	if err == nil && cfg.Power != nil {
		err = step("power", func() error { return d.modify(fieldPower, uint8(*cfg.Power)) })
	}
	if err == nil && cfg.DataRate != nil {
		err = step("data rate", func() error { return d.modify(fieldDataRate, uint8(*cfg.DataRate)) })
	}
	if err == nil && cfg.RetransCount != nil {
		err = step("retransmit count", func() error { return d.modify(fieldRetrCount, *cfg.RetransCount) })
	}
	if err == nil && cfg.RetransDelay != nil {
		err = step("retransmit delay", func() error { return d.modify(fieldRetrDelay, *cfg.RetransDelay) })
	}
	if err == nil && cfg.EnabledPipes != nil {
		err = step("enabled pipes", func() error { return d.writeByte(RegEnRxAddr, byte(*cfg.EnabledPipes)) })
	}
	if err == nil && cfg.AutoAck != nil {
		err = step("auto ack", func() error { return d.writeByte(RegEnAA, byte(*cfg.AutoAck)) })
	}
	return err
}

// ReadConfig reads back every setting [Device.Configure] can write.
func (d *Device) ReadConfig() (cfg RadioConfig, err error) {
	d.acquire()
	defer d.release()
	var regs [RegRFSetup + 1]byte
	for r := RegEnAA; r <= RegRFSetup; r++ {
		if regs[r], err = d.readByte(r); err != nil {
			return cfg, err
		}
	}
	aw := fieldAddrWidth.get(regs[RegSetupAW])
	ch := fieldChannel.get(regs[RegRFCh])
	pwr := Power(fieldPower.get(regs[RegRFSetup]))
	rate := DataRate(fieldDataRate.get(regs[RegRFSetup]))
	arc := fieldRetrCount.get(regs[RegSetupRetr])
	ard := fieldRetrDelay.get(regs[RegSetupRetr])
	pipes := PipeMask(regs[RegEnRxAddr])
	aa := PipeMask(regs[RegEnAA])
	cfg = RadioConfig{
		AddressWidth: &aw,
		Channel:      &ch,
		Power:        &pwr,
		DataRate:     &rate,
		RetransCount: &arc,
		RetransDelay: &ard,
		EnabledPipes: &pipes,
		AutoAck:      &aa,
	}
	cfg.TxAddress = make([]byte, 5)
	if err = d.readReg(RegTxAddr, 5, cfg.TxAddress); err != nil {
		return cfg, err
	}
	for p := Pipe(0); p < NumPipes; p++ {
		addr := make([]byte, p.AddressLen())
		if err = d.readReg(p.Register(), len(addr), addr); err != nil {
			return cfg, err
		}
		cfg.RxAddress[p] = addr
	}
	return cfg, nil
}
