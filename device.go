package nrf24

import (
	"context"
	"log/slog"
	"sync"
)

// Bus is the SPI transport the driver issues register transactions on.
// Both methods must hold the chip selected for the whole call so that no
// other transaction interleaves.
type Bus interface {
	// Write transmits w in a single transaction.
	Write(w []byte) error
	// WriteThenRead transmits the command byte cmd and then reads len(r)
	// bytes into r within the same transaction.
	WriteThenRead(cmd byte, r []byte) error
}

// OutputPin drives a GPIO line configured as output.
type OutputPin func(high bool) error

// Config configures the driver, not the radio; see [RadioConfig] for the latter.
type Config struct {
	// Logger receives driver logs. Nil disables logging.
	Logger *slog.Logger
}

// DefaultConfig returns a Config with logging disabled.
func DefaultConfig() Config {
	return Config{}
}

// Device is an nRF24L01(+) transceiver reached over a [Bus]. Register values
// are never cached: every getter and every read-modify-write reads the chip.
// A Device is safe for concurrent use; each public method holds the device
// lock for all of its bus transactions.
type Device struct {
	mu            sync.Mutex
	bus           Bus
	ce            OutputPin
	logger        *slog.Logger
	_traceenabled bool
}

// New returns a Device that talks to the chip over bus and drives its CE line
// with ce. ce may be nil if the line is held low in hardware.
func New(bus Bus, ce OutputPin, cfg Config) *Device {
	if bus == nil {
		panic("nrf24: nil bus")
	}
	d := &Device{
		bus:    bus,
		ce:     ce,
		logger: cfg.Logger,
	}
	d._traceenabled = d.logger != nil && d.logger.Handler().Enabled(context.Background(), levelTrace)
	return d
}

// Init holds the chip's CE line low so the radio stays in standby while it
// is being configured.
func (d *Device) Init() error {
	d.acquire()
	defer d.release()
	d.info("Init")
	if d.ce == nil {
		d.warn("Init:no CE pin")
		return nil
	}
	err := d.ce(false)
	if err != nil {
		d.logerr("Init:CE low failed", slog.String("err", err.Error()))
	}
	return err
}

func (d *Device) acquire() { d.mu.Lock() }

func (d *Device) release() { d.mu.Unlock() }
