package main

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/soypat/nrf24"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: nrfcmd <opcode> [data bytes...]\n\te.g. nrfcmd 0x26 0x0f")
	}
	op, err := parseByte(os.Args[1])
	if err != nil {
		log.Fatal(err)
	}
	cmd := nrf24.DecodeOpcode(op)
	if cmd.Kind == nrf24.CmdInvalid {
		log.Fatalf("unknown opcode %#02x", op)
	}
	fmt.Printf("op=%#02x  cmd=%s", op, cmd.Kind)
	switch cmd.Kind {
	case nrf24.CmdReadRegister, nrf24.CmdWriteRegister:
		fmt.Printf("  reg=%#02x (%s)  width=%d", uint8(cmd.Register), cmd.Register, cmd.Register.Width())
	case nrf24.CmdWriteAckPayload:
		fmt.Printf("  pipe=%d", cmd.Pipe)
	}
	fmt.Println()
	if cmd.Kind != nrf24.CmdWriteRegister || len(os.Args) < 3 {
		return
	}
	v, err := parseByte(os.Args[2])
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(describe(cmd.Register, v))
}

func parseByte(s string) (byte, error) {
	v, err := strconv.ParseUint(s, 0, 8)
	if err != nil {
		// Bare hex as printed by the capture tools.
		v, err = strconv.ParseUint(s, 16, 8)
	}
	return byte(v), err
}

// describe decodes the fields of a single byte register value.
func describe(reg nrf24.Register, v byte) string {
	switch reg {
	case nrf24.RegRFSetup:
		return fmt.Sprintf("power=%s rate_bits=%d", nrf24.Power(v&0x03), (v>>3)&0x03)
	case nrf24.RegSetupRetr:
		return fmt.Sprintf("retransmit count=%d delay=%dµs", v&0x0f, 250*(1+int(v>>4)))
	case nrf24.RegRFCh:
		return fmt.Sprintf("channel=%d (%dMHz)", v&0x7f, 2400+int(v&0x7f))
	case nrf24.RegSetupAW:
		return fmt.Sprintf("address width=%d", v)
	case nrf24.RegEnRxAddr, nrf24.RegEnAA:
		return "pipes " + nrf24.PipeMask(v).String()
	}
	return fmt.Sprintf("value=%#02x", v)
}
