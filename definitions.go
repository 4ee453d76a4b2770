package nrf24

import (
	"strconv"

	"golang.org/x/exp/constraints"
)

// MaxTransfer is the largest payload in bytes a single register or payload
// transaction may carry, not counting the opcode byte.
const MaxTransfer = 32

// SPI command bytes. Only cmdReadRegister, cmdWriteRegister and
// cmdWriteTxPayload are issued by the driver; the rest are decoded by
// [DecodeOpcode] for the capture analysis tools.
const (
	cmdReadRegister      = 0x00
	cmdWriteRegister     = 0x20
	cmdReadRxPayloadWid  = 0x60
	cmdReadRxPayload     = 0x61
	cmdWriteTxPayload    = 0xa0
	cmdWriteAckPayload   = 0xa8
	cmdWriteTxPayloadNoA = 0xb0
	cmdFlushTx           = 0xe1
	cmdFlushRx           = 0xe2
	cmdReuseTxPayload    = 0xe3
	cmdNOP               = 0xff

	// registerMask selects the register address bits of R_REGISTER/W_REGISTER.
	registerMask = 0x1f
)

// Register is an nRF24L01 register address in the chip's 0x00..0x1F memory map.
// The TxPayload value is not a register: it names the W_TX_PAYLOAD command
// which the write transaction accepts in place of a register.
type Register uint8

const (
	RegConfig     Register = 0x00 // CONFIG
	RegEnAA       Register = 0x01 // EN_AA: auto acknowledgement per pipe.
	RegEnRxAddr   Register = 0x02 // EN_RXADDR: enabled Rx pipes.
	RegSetupAW    Register = 0x03 // SETUP_AW: address width.
	RegSetupRetr  Register = 0x04 // SETUP_RETR: retransmit delay (7:4) and count (3:0).
	RegRFCh       Register = 0x05 // RF_CH
	RegRFSetup    Register = 0x06 // RF_SETUP: data rate and output power.
	RegStatus     Register = 0x07 // STATUS
	RegObserveTx  Register = 0x08 // OBSERVE_TX
	RegRPD        Register = 0x09 // RPD (CD on nRF24L01).
	RegRxAddrP0   Register = 0x0a // RX_ADDR_P0, 5 bytes.
	RegRxAddrP1   Register = 0x0b // RX_ADDR_P1, 5 bytes.
	RegRxAddrP2   Register = 0x0c // RX_ADDR_P2, least significant byte only.
	RegRxAddrP3   Register = 0x0d
	RegRxAddrP4   Register = 0x0e
	RegRxAddrP5   Register = 0x0f
	RegTxAddr     Register = 0x10 // TX_ADDR, 5 bytes.
	RegRxPwP0     Register = 0x11 // RX_PW_P0
	RegRxPwP1     Register = 0x12
	RegRxPwP2     Register = 0x13
	RegRxPwP3     Register = 0x14
	RegRxPwP4     Register = 0x15
	RegRxPwP5     Register = 0x16
	RegFIFOStatus Register = 0x17 // FIFO_STATUS
	RegDynPD      Register = 0x1c // DYNPD
	RegFeature    Register = 0x1d // FEATURE

	// TxPayload stands for the W_TX_PAYLOAD command. Its write opcode is the
	// command itself, never offset by the W_REGISTER command bits.
	TxPayload Register = cmdWriteTxPayload
)

var regNames = [...]string{
	RegConfig:     "CONFIG",
	RegEnAA:       "EN_AA",
	RegEnRxAddr:   "EN_RXADDR",
	RegSetupAW:    "SETUP_AW",
	RegSetupRetr:  "SETUP_RETR",
	RegRFCh:       "RF_CH",
	RegRFSetup:    "RF_SETUP",
	RegStatus:     "STATUS",
	RegObserveTx:  "OBSERVE_TX",
	RegRPD:        "RPD",
	RegRxAddrP0:   "RX_ADDR_P0",
	RegRxAddrP1:   "RX_ADDR_P1",
	RegRxAddrP2:   "RX_ADDR_P2",
	RegRxAddrP3:   "RX_ADDR_P3",
	RegRxAddrP4:   "RX_ADDR_P4",
	RegRxAddrP5:   "RX_ADDR_P5",
	RegTxAddr:     "TX_ADDR",
	RegRxPwP0:     "RX_PW_P0",
	RegRxPwP1:     "RX_PW_P1",
	RegRxPwP2:     "RX_PW_P2",
	RegRxPwP3:     "RX_PW_P3",
	RegRxPwP4:     "RX_PW_P4",
	RegRxPwP5:     "RX_PW_P5",
	RegFIFOStatus: "FIFO_STATUS",
	RegDynPD:      "DYNPD",
	RegFeature:    "FEATURE",
}

// IsValid reports whether r is a register of the chip's memory map.
// TxPayload is not a valid register for reads.
func (r Register) IsValid() bool {
	return int(r) < len(regNames) && regNames[r] != ""
}

func (r Register) String() string {
	if r == TxPayload {
		return "W_TX_PAYLOAD"
	}
	if r.IsValid() {
		return regNames[r]
	}
	return "REG(0x" + strconv.FormatUint(uint64(r), 16) + ")"
}

// Width returns the number of bytes held by the register. Address registers
// of pipes 0 and 1 and TX_ADDR are 5 bytes wide, all others 1 byte.
func (r Register) Width() int {
	switch r {
	case RegRxAddrP0, RegRxAddrP1, RegTxAddr:
		return 5
	case TxPayload:
		return MaxTransfer
	}
	return 1
}

// Opcode is the first byte of a bus transaction: the command, with the target
// register folded in for register reads and writes.
type Opcode uint8

// WriteOpcode returns the opcode that writes to r. For every register this is
// r offset by the W_REGISTER command; TxPayload is returned verbatim.
func WriteOpcode(r Register) Opcode {
	if r == TxPayload {
		return Opcode(cmdWriteTxPayload)
	}
	return Opcode(r) + cmdWriteRegister
}

// ReadOpcode returns the opcode that reads r. R_REGISTER is 0x00 so the read
// opcode space aligns with the register addresses.
func ReadOpcode(r Register) Opcode {
	return Opcode(r) + cmdReadRegister
}

// Pipe identifies one of the six receive data pipes.
type Pipe uint8

// NumPipes is the number of Rx data pipes on the chip.
const NumPipes = 6

// AddressLen returns how many address bytes are written for the pipe. Pipes
// 2..5 only hold the least significant byte and share the rest with pipe 1.
func (p Pipe) AddressLen() int {
	if p <= 1 {
		return 5
	}
	return 1
}

// Register returns the RX_ADDR_Px register of the pipe.
func (p Pipe) Register() Register { return RegRxAddrP0 + Register(p) }

// PipeMask is a bitfield of Rx data pipes as laid out in EN_AA and EN_RXADDR.
type PipeMask uint8

const (
	P0 PipeMask = 1 << iota
	P1
	P2
	P3
	P4
	P5
	PAll = P0 | P1 | P2 | P3 | P4 | P5
)

// Has reports whether pipe p is set in the mask.
func (m PipeMask) Has(p Pipe) bool { return m&(1<<p) != 0 }

func (m PipeMask) String() string {
	return flags("P5+ P4+ P3+ P2+ P1+ P0+", 0x3f, byte(m))
}

// Power is the Tx output power level, 0 (lowest, -18dBm) to 3 (highest, 0dBm).
type Power uint8

const (
	PowerMin Power = iota // -18dBm
	PowerLow              // -12dBm
	PowerHigh             // -6dBm
	PowerMax              // 0dBm
)

// DBm returns the nominal output power in dBm.
func (p Power) DBm() int { return 6*int(p) - 18 }

func (p Power) String() string {
	return strconv.Itoa(p.DBm()) + "dBm"
}

// DataRate selects the air data rate.
type DataRate uint8

const (
	DataRate1Mbps   DataRate = 0
	DataRate2Mbps   DataRate = 1
	DataRate250kbps DataRate = 2
)

func (r DataRate) String() (s string) {
	switch r {
	case DataRate1Mbps:
		s = "1Mbps"
	case DataRate2Mbps:
		s = "2Mbps"
	case DataRate250kbps:
		s = "250kbps"
	default:
		s = "unknown"
	}
	return s
}

// field describes a bit field inside a shared register.
type field struct {
	reg   Register
	shift uint8
	mask  uint8 // mask in register position.
	max   uint8 // largest accepted unshifted value.
}

var (
	fieldPower      = field{reg: RegRFSetup, shift: 0, mask: 0x03, max: 3}
	fieldDataRate   = field{reg: RegRFSetup, shift: 3, mask: 0x18, max: 2}
	fieldRetrCount  = field{reg: RegSetupRetr, shift: 0, mask: 0x0f, max: 15}
	fieldRetrDelay  = field{reg: RegSetupRetr, shift: 4, mask: 0xf0, max: 15}
	fieldChannel    = field{reg: RegRFCh, shift: 0, mask: 0x7f, max: 127}
	fieldAddrWidth  = field{reg: RegSetupAW, shift: 0, mask: 0xff, max: 5}
	fieldPipeEnable = field{reg: RegEnRxAddr, shift: 0, mask: 0xff, max: 0xff}
	fieldAutoAck    = field{reg: RegEnAA, shift: 0, mask: 0xff, max: 0xff}
)

// put returns reg with the field cleared and v placed in it.
func (f field) put(reg, v uint8) uint8 {
	return setbits(reg, f.mask, v<<f.shift)
}

// get extracts the field value from reg.
func (f field) get(reg uint8) uint8 {
	return (reg & f.mask) >> f.shift
}

// setbits clears mask in v and ORs in bits restricted to mask.
func setbits[T constraints.Unsigned](v, mask, bits T) T {
	return v&^mask | bits&mask
}

// flags renders the bits of b selected by mask using template f, where each
// '+' is replaced with '+' or '-' depending on the bit value.
func flags(f string, mask, b byte) string {
	buf := make([]byte, len(f))
	m := byte(0x80)
	for i := range buf {
		if f[i] != '+' {
			buf[i] = f[i]
			continue
		}
		for mask&m == 0 {
			m >>= 1
		}
		if b&m == 0 {
			buf[i] = '-'
		} else {
			buf[i] = '+'
		}
		m >>= 1
	}
	return string(buf)
}
