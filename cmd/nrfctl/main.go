package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"periph.io/x/conn/v3/physic"

	"github.com/soypat/nrf24"
	"github.com/soypat/nrf24/internal/hostbus"
	"github.com/soypat/nrf24/internal/profile"
)

func main() {
	err := run(os.Args[1:], os.Stdout)
	if err != nil {
		fmt.Fprintln(os.Stderr, "nrfctl:", err)
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("nrfctl", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "nrfctl - configure an nRF24L01 radio attached over SPI.\n\tUsage:\n")
		fs.PrintDefaults()
	}
	var opts hostbus.Options
	fs.StringVar(&opts.SPI, "spi", "", "SPI port name. Empty selects the first port found.")
	fs.StringVar(&opts.CE, "ce", "", "GPIO name of the CE line, e.g. GPIO25.")
	hz := fs.Int64("hz", 0, "SPI clock frequency in Hz. 0 uses the driver default.")
	fs.BoolVar(&opts.Sim, "sim", false, "Run against a simulated chip.")
	profilePath := fs.String("profile", "", "JSON5 radio profile to apply before flag settings.")
	fs.Uint("ch", 0, "RF channel 0..127.")
	fs.Uint("pwr", 0, "Output power 0..3 (-18dBm to 0dBm).")
	fs.String("rate", "", "Data rate: 1Mbps, 2Mbps or 250kbps.")
	fs.Uint("arc", 0, "Auto retransmit count 0..15.")
	fs.Uint("ard", 0, "Auto retransmit delay 0..15, in 250µs steps.")
	fs.Uint("aw", 0, "Address width 1..5.")
	fs.String("tx", "", "Tx address, hex MSB first.")
	fs.String("rx0", "", "Pipe 0 Rx address, hex MSB first.")
	fs.String("rx1", "", "Pipe 1 Rx address, hex MSB first.")
	fs.String("pipes", "", "Comma separated list of pipes to enable.")
	fs.String("aa", "", "Comma separated list of pipes to auto acknowledge.")
	dump := fs.Bool("dump", false, "Print configuration read back from the chip.")
	verbose := fs.Int("v", 0, "Verbosity: 1 logs driver calls, 2 logs every bus transaction.")
	if err := fs.Parse(args); err != nil {
		return err
	}
	opts.Freq = physic.Frequency(*hz) * physic.Hertz
	opts.Logger = newLogger(*verbose)

	var cfg nrf24.RadioConfig
	var err error
	if *profilePath != "" {
		cfg, err = profile.Load(*profilePath)
		if err != nil {
			return err
		}
	}
	err = applyFlags(fs, &cfg)
	if err != nil {
		return err
	}
	if err = cfg.Validate(); err != nil {
		return err
	}

	radio, err := hostbus.Open(opts)
	if err != nil {
		return err
	}
	defer radio.Close()
	if err = radio.Configure(cfg); err != nil {
		return err
	}
	if *dump {
		back, err := radio.ReadConfig()
		if err != nil {
			return err
		}
		printConfig(stdout, back)
	}
	return nil
}

func newLogger(verbosity int) *slog.Logger {
	var lvl slog.Level
	switch {
	case verbosity <= 0:
		return nil
	case verbosity == 1:
		lvl = slog.LevelDebug
	default:
		lvl = slog.LevelDebug - 1
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

// applyFlags overrides cfg with every flag given explicitly on the command line.
func applyFlags(fs *flag.FlagSet, cfg *nrf24.RadioConfig) (err error) {
	fs.Visit(func(f *flag.Flag) {
		if err != nil {
			return
		}
		v := f.Value.String()
		switch f.Name {
		case "ch":
			cfg.Channel, err = u8(v)
		case "aw":
			cfg.AddressWidth, err = u8(v)
		case "arc":
			cfg.RetransCount, err = u8(v)
		case "ard":
			cfg.RetransDelay, err = u8(v)
		case "pwr":
			var p *uint8
			if p, err = u8(v); err == nil {
				pwr := nrf24.Power(*p)
				cfg.Power = &pwr
			}
		case "rate":
			var r nrf24.DataRate
			if r, err = profile.ParseRate(v); err == nil {
				cfg.DataRate = &r
			}
		case "tx":
			cfg.TxAddress, err = profile.ParseAddress(v)
		case "rx0":
			cfg.RxAddress[0], err = profile.ParseAddress(v)
		case "rx1":
			cfg.RxAddress[1], err = profile.ParseAddress(v)
		case "pipes":
			var m nrf24.PipeMask
			if m, err = parsePipes(v); err == nil {
				cfg.EnabledPipes = &m
			}
		case "aa":
			var m nrf24.PipeMask
			if m, err = parsePipes(v); err == nil {
				cfg.AutoAck = &m
			}
		}
		if err != nil {
			err = fmt.Errorf("-%s: %w", f.Name, err)
		}
	})
	return err
}

func u8(s string) (*uint8, error) {
	v, err := strconv.ParseUint(s, 0, 8)
	if err != nil {
		return nil, err
	}
	b := uint8(v)
	return &b, nil
}

func parsePipes(s string) (m nrf24.PipeMask, err error) {
	if s == "" || s == "none" {
		return 0, nil
	}
	for _, p := range strings.Split(s, ",") {
		v, err := strconv.ParseUint(strings.TrimSpace(p), 10, 8)
		if err != nil || v >= nrf24.NumPipes {
			return 0, fmt.Errorf("bad pipe %q", p)
		}
		m |= 1 << v
	}
	return m, nil
}

func printConfig(w io.Writer, cfg nrf24.RadioConfig) {
	if cfg.Channel != nil {
		fmt.Fprintf(w, "channel       %d (%dMHz)\n", *cfg.Channel, 2400+int(*cfg.Channel))
	}
	if cfg.Power != nil {
		fmt.Fprintf(w, "power         %d (%s)\n", *cfg.Power, cfg.Power.String())
	}
	if cfg.DataRate != nil {
		fmt.Fprintf(w, "rate          %s\n", cfg.DataRate.String())
	}
	if cfg.RetransCount != nil && cfg.RetransDelay != nil {
		fmt.Fprintf(w, "retransmit    count=%d delay=%dµs\n", *cfg.RetransCount, 250*(1+int(*cfg.RetransDelay)))
	}
	if cfg.AddressWidth != nil {
		fmt.Fprintf(w, "address width %d\n", *cfg.AddressWidth)
	}
	if cfg.TxAddress != nil {
		fmt.Fprintf(w, "tx            %s\n", profile.FormatAddress(cfg.TxAddress))
	}
	for p, addr := range cfg.RxAddress {
		if addr != nil {
			fmt.Fprintf(w, "rx%d           %s\n", p, profile.FormatAddress(addr))
		}
	}
	if cfg.EnabledPipes != nil {
		fmt.Fprintf(w, "pipes         %s\n", cfg.EnabledPipes.String())
	}
	if cfg.AutoAck != nil {
		fmt.Fprintf(w, "autoack       %s\n", cfg.AutoAck.String())
	}
}
