package nrf24

import (
	"errors"
	"fmt"
	"strconv"
)

// CommandKind classifies an SPI command byte.
type CommandKind uint8

const (
	CmdInvalid CommandKind = iota
	CmdReadRegister
	CmdWriteRegister
	CmdReadRxPayloadWidth
	CmdReadRxPayload
	CmdWriteTxPayload
	CmdWriteAckPayload
	CmdWriteTxPayloadNoAck
	CmdFlushTx
	CmdFlushRx
	CmdReuseTxPayload
	CmdNOP
)

var cmdNames = [...]string{
	CmdInvalid:             "invalid",
	CmdReadRegister:        "R_REGISTER",
	CmdWriteRegister:       "W_REGISTER",
	CmdReadRxPayloadWidth:  "R_RX_PL_WID",
	CmdReadRxPayload:       "R_RX_PAYLOAD",
	CmdWriteTxPayload:      "W_TX_PAYLOAD",
	CmdWriteAckPayload:     "W_ACK_PAYLOAD",
	CmdWriteTxPayloadNoAck: "W_TX_PAYLOAD_NOACK",
	CmdFlushTx:             "FLUSH_TX",
	CmdFlushRx:             "FLUSH_RX",
	CmdReuseTxPayload:      "REUSE_TX_PL",
	CmdNOP:                 "NOP",
}

func (k CommandKind) String() string {
	if int(k) < len(cmdNames) {
		return cmdNames[k]
	}
	return "CMD(" + strconv.Itoa(int(k)) + ")"
}

// IsWrite reports whether the command transfers data from host to chip.
func (k CommandKind) IsWrite() bool {
	switch k {
	case CmdWriteRegister, CmdWriteTxPayload, CmdWriteAckPayload, CmdWriteTxPayloadNoAck:
		return true
	}
	return false
}

// Command is a decoded opcode.
type Command struct {
	Kind CommandKind
	// Register is set for R_REGISTER and W_REGISTER commands.
	Register Register
	// Pipe is set for W_ACK_PAYLOAD.
	Pipe Pipe
}

// DecodeOpcode decodes the first byte of an SPI transaction.
func DecodeOpcode(op byte) (c Command) {
	switch {
	case op&^registerMask == cmdReadRegister:
		c.Kind = CmdReadRegister
		c.Register = Register(op & registerMask)
	case op&^registerMask == cmdWriteRegister:
		c.Kind = CmdWriteRegister
		c.Register = Register(op & registerMask)
	case op&^0x07 == cmdWriteAckPayload && op&0x07 < NumPipes:
		c.Kind = CmdWriteAckPayload
		c.Pipe = Pipe(op & 0x07)
	default:
		switch op {
		case cmdReadRxPayloadWid:
			c.Kind = CmdReadRxPayloadWidth
		case cmdReadRxPayload:
			c.Kind = CmdReadRxPayload
		case cmdWriteTxPayload:
			c.Kind = CmdWriteTxPayload
		case cmdWriteTxPayloadNoA:
			c.Kind = CmdWriteTxPayloadNoAck
		case cmdFlushTx:
			c.Kind = CmdFlushTx
		case cmdFlushRx:
			c.Kind = CmdFlushRx
		case cmdReuseTxPayload:
			c.Kind = CmdReuseTxPayload
		case cmdNOP:
			c.Kind = CmdNOP
		}
	}
	return c
}

func (c Command) String() string {
	switch c.Kind {
	case CmdReadRegister, CmdWriteRegister:
		return c.Kind.String() + " " + c.Register.String()
	case CmdWriteAckPayload:
		return c.Kind.String() + " P" + strconv.Itoa(int(c.Pipe))
	}
	return c.Kind.String()
}

var errEmptyTransaction = errors.New("nrf24: empty transaction")

// Transaction is one chip-select framed exchange as seen on the wire.
type Transaction struct {
	Cmd Command
	// Status is the STATUS register the chip clocks out with the opcode.
	// Zero if MISO was not captured.
	Status byte
	// Data holds the bytes following the opcode: MOSI for writes, MISO for
	// everything else.
	Data []byte
}

// ParseTransaction decodes a captured transaction. mosi and miso are the bytes
// clocked on each line while chip select was asserted; miso may be nil.
func ParseTransaction(mosi, miso []byte) (Transaction, error) {
	if len(mosi) == 0 {
		return Transaction{}, errEmptyTransaction
	}
	tx := Transaction{Cmd: DecodeOpcode(mosi[0])}
	if tx.Cmd.Kind == CmdInvalid {
		return tx, fmt.Errorf("nrf24: unknown opcode %#02x", mosi[0])
	}
	if len(miso) > 0 {
		tx.Status = miso[0]
	}
	src := miso
	if tx.Cmd.Kind.IsWrite() || len(miso) == 0 {
		src = mosi
	}
	if len(src) > 1 {
		tx.Data = append([]byte(nil), src[1:]...)
	}
	return tx, nil
}

func (tx Transaction) String() string {
	return fmt.Sprintf("%-28s status=%#02x data=%#x", tx.Cmd.String(), tx.Status, tx.Data)
}
