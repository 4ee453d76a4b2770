// Package profile loads radio settings from JSON5 files.
//
// A profile looks like:
//
//	{
//		// pipe 1 is the gateway.
//		channel: 76,
//		power: 3,
//		rate: "250kbps",
//		retransmit: {count: 15, delay: 5},
//		address_width: 5,
//		tx: "e7e7e7e7e7",
//		rx: {"0": "e7e7e7e7e7", "2": "c3"},
//		pipes: [0, 1, 2],
//		autoack: [0, 1],
//	}
//
// Addresses are written most significant byte first. Absent keys leave the
// corresponding chip setting untouched.
package profile

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/flynn/json5"

	"github.com/soypat/nrf24"
)

// Load reads the profile at path.
func Load(path string) (nrf24.RadioConfig, error) {
	fp, err := os.Open(path)
	if err != nil {
		return nrf24.RadioConfig{}, err
	}
	defer fp.Close()
	cfg, err := Read(fp)
	if err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Read decodes a profile from r. The result is not range checked beyond what
// fits the field types; call RadioConfig.Validate or Device.Configure.
func Read(r io.Reader) (nrf24.RadioConfig, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nrf24.RadioConfig{}, err
	}
	var m map[string]interface{}
	err = json5.Unmarshal(data, &m)
	if err != nil {
		return nrf24.RadioConfig{}, err
	}
	return FromMap(m)
}

// FromMap converts a decoded profile document into a RadioConfig. Unknown
// keys are an error so typos do not silently leave settings untouched.
func FromMap(m map[string]interface{}) (cfg nrf24.RadioConfig, err error) {
	for key, v := range m {
		switch key {
		case "channel":
			cfg.Channel, err = u8ptr(v)
		case "address_width":
			cfg.AddressWidth, err = u8ptr(v)
		case "power":
			var p *uint8
			p, err = u8ptr(v)
			if err == nil {
				pwr := nrf24.Power(*p)
				cfg.Power = &pwr
			}
		case "rate":
			var rate nrf24.DataRate
			rate, err = rateValue(v)
			cfg.DataRate = &rate
		case "retransmit":
			err = retransmit(&cfg, v)
		case "tx":
			var s string
			s, err = str(v)
			if err == nil {
				cfg.TxAddress, err = ParseAddress(s)
			}
		case "rx":
			err = rxAddresses(&cfg, v)
		case "pipes":
			var pm nrf24.PipeMask
			pm, err = pipeMask(v)
			cfg.EnabledPipes = &pm
		case "autoack":
			var pm nrf24.PipeMask
			pm, err = pipeMask(v)
			cfg.AutoAck = &pm
		default:
			err = errors.New("unknown key")
		}
		if err != nil {
			return cfg, fmt.Errorf("%s: %w", key, err)
		}
	}
	return cfg, nil
}

// ParseAddress decodes a hex address, most significant byte first as it is
// usually written, into the least significant byte first order the chip
// expects on the wire. Colons and a 0x prefix are allowed.
func ParseAddress(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.ReplaceAll(s, ":", ""), "0x")
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, err
	}
	if len(b) == 0 || len(b) > 5 {
		return nil, fmt.Errorf("address %q must be 1 to 5 bytes", s)
	}
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	return b, nil
}

// FormatAddress is the inverse of ParseAddress.
func FormatAddress(b []byte) string {
	r := make([]byte, len(b))
	for i := range b {
		r[len(b)-1-i] = b[i]
	}
	return hex.EncodeToString(r)
}

// ParseRate accepts "1Mbps", "2Mbps", "250kbps" (case insensitive) or the raw
// field value.
func ParseRate(s string) (nrf24.DataRate, error) {
	for _, r := range []nrf24.DataRate{nrf24.DataRate1Mbps, nrf24.DataRate2Mbps, nrf24.DataRate250kbps} {
		if strings.EqualFold(s, r.String()) {
			return r, nil
		}
	}
	v, err := strconv.ParseUint(s, 0, 8)
	if err != nil {
		return 0, fmt.Errorf("unknown data rate %q", s)
	}
	return nrf24.DataRate(v), nil
}

func rateValue(v interface{}) (nrf24.DataRate, error) {
	if s, ok := v.(string); ok {
		return ParseRate(s)
	}
	u, err := u8(v)
	return nrf24.DataRate(u), err
}

func retransmit(cfg *nrf24.RadioConfig, v interface{}) (err error) {
	m, ok := v.(map[string]interface{})
	if !ok {
		return fmt.Errorf("want object, got %T", v)
	}
	for key, v := range m {
		switch key {
		case "count":
			cfg.RetransCount, err = u8ptr(v)
		case "delay":
			cfg.RetransDelay, err = u8ptr(v)
		default:
			err = fmt.Errorf("unknown key %q", key)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func rxAddresses(cfg *nrf24.RadioConfig, v interface{}) error {
	m, ok := v.(map[string]interface{})
	if !ok {
		return fmt.Errorf("want object, got %T", v)
	}
	for k, v := range m {
		pipe, err := strconv.ParseUint(k, 10, 8)
		if err != nil || pipe >= nrf24.NumPipes {
			return fmt.Errorf("bad pipe %q", k)
		}
		s, err := str(v)
		if err != nil {
			return err
		}
		cfg.RxAddress[pipe], err = ParseAddress(s)
		if err != nil {
			return fmt.Errorf("pipe %d: %w", pipe, err)
		}
	}
	return nil
}

func pipeMask(v interface{}) (m nrf24.PipeMask, err error) {
	list, ok := v.([]interface{})
	if !ok {
		return 0, fmt.Errorf("want list of pipes, got %T", v)
	}
	for _, e := range list {
		p, err := u8(e)
		if err != nil {
			return 0, err
		}
		if p >= nrf24.NumPipes {
			return 0, fmt.Errorf("pipe %d out of range", p)
		}
		m |= 1 << p
	}
	return m, nil
}

func str(v interface{}) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("want string, got %T", v)
	}
	return s, nil
}

func u8(v interface{}) (uint8, error) {
	f, ok := v.(float64)
	if !ok {
		return 0, fmt.Errorf("want number, got %T", v)
	}
	if f < 0 || f > math.MaxUint8 || f != math.Trunc(f) {
		return 0, fmt.Errorf("%v is not a byte value", f)
	}
	return uint8(f), nil
}

func u8ptr(v interface{}) (*uint8, error) {
	u, err := u8(v)
	if err != nil {
		return nil, err
	}
	return &u, nil
}
