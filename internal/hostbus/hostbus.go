//go:build !tinygo

// Package hostbus opens an nRF24L01 attached to a Linux host through periph.io
// registries, or a simulated chip for dry runs.
package hostbus

import (
	"errors"
	"fmt"
	"log/slog"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"

	"github.com/soypat/nrf24"
	"github.com/soypat/nrf24/internal/chipsim"
)

// Options select the SPI port and CE pin.
type Options struct {
	// SPI is the spireg port name such as "/dev/spidev0.0" or "SPI0.0".
	// Empty selects the first registered port.
	SPI string
	// CE is the gpioreg name of the pin wired to CE. Empty leaves CE unmanaged.
	CE string
	// Freq is the SPI clock. Zero selects nrf24.DefaultSPIFrequency.
	Freq physic.Frequency
	// Sim opens a simulated chip instead of hardware.
	Sim    bool
	Logger *slog.Logger
}

// Radio is an opened device and the resources backing it.
type Radio struct {
	*nrf24.Device
	// Sim is set when the radio is simulated.
	Sim  *chipsim.Chip
	port spi.PortCloser
	ce   gpio.PinOut
}

// Open initializes the host drivers, connects to the SPI port and drives CE
// low through Device.Init.
func Open(opts Options) (*Radio, error) {
	cfg := nrf24.DefaultConfig()
	cfg.Logger = opts.Logger
	if opts.Sim {
		chip := chipsim.New()
		bus, err := nrf24.NewPeriphBus(chip, opts.Freq)
		if err != nil {
			return nil, err
		}
		r := &Radio{Device: nrf24.New(bus, chip.SetCE, cfg), Sim: chip}
		return r.start()
	}

	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("host.Init: %w", err)
	}
	port, err := spireg.Open(opts.SPI)
	if err != nil {
		return nil, fmt.Errorf("spireg.Open of port %q: %w", opts.SPI, err)
	}
	bus, err := nrf24.NewPeriphBus(port, opts.Freq)
	if err != nil {
		port.Close()
		return nil, err
	}
	r := &Radio{port: port}
	var ce nrf24.OutputPin
	if opts.CE != "" {
		pin := gpioreg.ByName(opts.CE)
		if pin == nil {
			port.Close()
			return nil, fmt.Errorf("no GPIO named %q", opts.CE)
		}
		r.ce = pin
		ce = nrf24.PeriphPin(pin)
	}
	r.Device = nrf24.New(bus, ce, cfg)
	return r.start()
}

// start runs Device.Init and releases r's resources if it fails.
func (r *Radio) start() (*Radio, error) {
	if err := r.Init(); err != nil {
		r.Close()
		return nil, err
	}
	return r, nil
}

// Close releases the SPI port and leaves CE low.
func (r *Radio) Close() error {
	var errs []error
	if r.ce != nil {
		errs = append(errs, r.ce.Out(gpio.Low))
	}
	if r.port != nil {
		errs = append(errs, r.port.Close())
	}
	return errors.Join(errs...)
}
