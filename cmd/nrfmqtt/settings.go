package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/soypat/nrf24"
	"github.com/soypat/nrf24/internal/profile"
)

var errUnknownSetting = errors.New("unknown setting")

// settings lists every topic name the bridge accepts, in publish order.
var settings = []string{"channel", "power", "rate", "retrcount", "retrdelay", "aw", "pipes", "autoack", "txaddr"}

// apply parses payload for the named setting and writes it to the radio.
func apply(dev *nrf24.Device, setting, payload string) error {
	payload = strings.TrimSpace(payload)
	switch setting {
	case "rate":
		r, err := profile.ParseRate(payload)
		if err != nil {
			return err
		}
		return dev.SetSpeed(r)
	case "txaddr":
		addr, err := profile.ParseAddress(payload)
		if err != nil {
			return err
		}
		return dev.SetTxAddress(addr)
	}
	v, err := strconv.ParseUint(payload, 0, 8)
	if err != nil {
		return err
	}
	b := uint8(v)
	switch setting {
	case "channel":
		return dev.SetChannel(b)
	case "power":
		return dev.SetPower(nrf24.Power(b))
	case "retrcount":
		return dev.SetRetransCount(b)
	case "retrdelay":
		return dev.SetRetransDelay(b)
	case "aw":
		return dev.SetAddressWidth(b)
	case "pipes":
		return dev.EnablePipes(nrf24.PipeMask(b))
	case "autoack":
		return dev.SetAutoAck(nrf24.PipeMask(b))
	}
	return errUnknownSetting
}

// read returns the current value of the named setting as published on the
// state topic.
func read(dev *nrf24.Device, setting string) (string, error) {
	var v uint8
	var err error
	switch setting {
	case "channel":
		v, err = dev.Channel()
	case "power":
		var p nrf24.Power
		p, err = dev.Power()
		v = uint8(p)
	case "rate":
		r, err := dev.Speed()
		return r.String(), err
	case "retrcount":
		v, err = dev.RetransCount()
	case "retrdelay":
		v, err = dev.RetransDelay()
	case "aw":
		v, err = dev.AddressWidth()
	case "pipes":
		var m nrf24.PipeMask
		m, err = dev.EnabledPipes()
		return fmt.Sprintf("%#02x", uint8(m)), err
	case "autoack":
		var m nrf24.PipeMask
		m, err = dev.AutoAck()
		return fmt.Sprintf("%#02x", uint8(m)), err
	case "txaddr":
		addr, err := dev.TxAddress()
		return profile.FormatAddress(addr[:]), err
	default:
		return "", errUnknownSetting
	}
	return strconv.Itoa(int(v)), err
}
