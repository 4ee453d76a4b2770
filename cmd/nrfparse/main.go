package main

import (
	"encoding/csv"
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/soypat/nrf24"
)

// Transaction is the raw bytes clocked while CSN was low.
type Transaction struct {
	MOSI []byte
	MISO []byte
}

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))
	fileName := flag.String("file", "digital.csv", "Path to a Saleae CSV export with columns time,CSN,MOSI,SCK[,MISO].")
	omitRegs := flag.String("omit-regs", "", "Omit register commands with these addresses. Comma separated list of hex addresses.")
	hexDump := flag.Bool("hex-dump", false, "Do full hex.Dump() of payload data")
	flag.Parse()

	var regs = make(map[nrf24.Register]bool)
	if *omitRegs != "" {
		for i, reg := range strings.Split(*omitRegs, ",") {
			reg = strings.TrimPrefix(strings.TrimSpace(reg), "0x")
			v, err := strconv.ParseUint(reg, 16, 5)
			if err != nil {
				slog.Error("parsing register", slog.Int("n", i+1), slog.String("err", err.Error()))
				os.Exit(1)
			}
			regs[nrf24.Register(v)] = true
		}
	}

	file, err := os.Open(*fileName)
	if err != nil {
		slog.Error("open", slog.String("err", err.Error()))
		os.Exit(1)
	}
	defer file.Close()
	transactions, err := readTransactions(file)
	if err != nil {
		slog.Error("parse", slog.String("err", err.Error()))
		os.Exit(1)
	}
	for _, t := range transactions {
		parsed := parseTransaction(t, regs, *hexDump)
		if parsed != "" {
			fmt.Println(parsed)
		}
	}
}

func readTransactions(r io.Reader) ([]Transaction, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return parseRecords(records[1:]), nil
}

func parseTransaction(t Transaction, omitRegs map[nrf24.Register]bool, hexDump bool) string {
	tx, err := nrf24.ParseTransaction(t.MOSI, t.MISO)
	if err != nil {
		return fmt.Sprintf("%v raw=%x", err, t.MOSI)
	}
	switch tx.Cmd.Kind {
	case nrf24.CmdReadRegister, nrf24.CmdWriteRegister:
		if omitRegs[tx.Cmd.Register] {
			return ""
		}
	}
	out := tx.String()
	if hexDump && len(tx.Data) > 0 {
		out += "\n" + hex.Dump(tx.Data)
	}
	return out
}

// parseRecords samples MOSI and, if present, MISO on every rising SCK edge
// while CSN is low. Bits arrive most significant first.
func parseRecords(records [][]string) []Transaction {
	var transactions []Transaction
	var current Transaction
	var mosiByte, misoByte uint8
	var bitCounter uint8
	prevCS, prevCLK := 1, 0
	for _, record := range records {
		if len(record) < 4 {
			continue
		}
		CS, _ := strconv.Atoi(strings.TrimSpace(record[1]))
		MOSI, _ := strconv.Atoi(strings.TrimSpace(record[2]))
		CLK, _ := strconv.Atoi(strings.TrimSpace(record[3]))
		MISO := -1
		if len(record) > 4 {
			MISO, _ = strconv.Atoi(strings.TrimSpace(record[4]))
		}

		if prevCS == 1 && CS == 0 {
			current = Transaction{}
			mosiByte, misoByte, bitCounter = 0, 0, 0
		}
		if CS == 0 && prevCLK == 0 && CLK == 1 {
			mosiByte = mosiByte<<1 | uint8(MOSI&1)
			misoByte = misoByte<<1 | uint8(MISO&1)
			bitCounter++
			if bitCounter == 8 {
				current.MOSI = append(current.MOSI, mosiByte)
				if MISO >= 0 {
					current.MISO = append(current.MISO, misoByte)
				}
				mosiByte, misoByte, bitCounter = 0, 0, 0
			}
		}
		if prevCS == 0 && CS == 1 && len(current.MOSI) > 0 {
			transactions = append(transactions, current)
		}
		prevCS = CS
		prevCLK = CLK
	}
	return transactions
}
