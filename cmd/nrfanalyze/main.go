package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/soypat/saleae"
	"github.com/soypat/saleae/analyzers"
	"golang.org/x/exp/constraints"

	"github.com/soypat/nrf24"
)

type Filter struct {
	OmitRead     bool
	OmitWrite    bool
	OmitReadData bool
	// OmitOther drops payload, flush and NOP commands.
	OmitOther bool
	// Collapse merges identical consecutive transactions into one line.
	Collapse bool
}

// capture is one chip select framed transfer.
type capture struct {
	MOSI, MISO []byte
	Start      float64
}

type nrftx struct {
	Num   int
	Tx    nrf24.Transaction
	Err   error
	Start float64
}

func main() {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})
	slog.SetDefault(slog.New(handler))
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "nrfanalyze - Process binary Saleae digital data files corresponding to nRF24L01 SPI transactions.\n\tUsage:\n")
		flag.PrintDefaults()
	}
	fcs := flag.String("f-cs", "digital_0.bin", "Input filename: SPI CSN data.")
	fclk := flag.String("f-clk", "digital_1.bin", "Input filename: SPI SCK data.")
	fmosi := flag.String("f-mosi", "digital_2.bin", "Input filename: SPI MOSI data.")
	fmiso := flag.String("f-miso", "", "Input filename: SPI MISO data. Read data is not decoded if empty.")
	output := flag.String("o-cmd", "commands.txt", "Output filename of nRF24L01 command transactions. Use - for stdout.")
	timingsOutput := flag.String("o-time", "", "Output timing data to a file corresponding to output command history line-by-line.")
	var filter Filter
	flag.BoolVar(&filter.OmitRead, "omit-read", false, "Omit register reads in output.")
	flag.BoolVar(&filter.OmitWrite, "omit-write", false, "Omit register writes in output.")
	flag.BoolVar(&filter.OmitReadData, "omit-read-data", false, "Omit data of register reads in output.")
	flag.BoolVar(&filter.OmitOther, "omit-other", false, "Omit payload, flush and NOP commands.")
	flag.BoolVar(&filter.Collapse, "collapse", true, "Merge repeated identical transactions.")
	flag.Parse()
	if filter.OmitRead && filter.OmitWrite {
		slog.Error("cannot omit both read and write commands")
		os.Exit(1)
	}
	start := time.Now()
	caps, err := processSpiFiles(*fclk, *fcs, *fmosi, *fmiso)
	if err != nil {
		slog.Error("reading capture", slog.String("err", err.Error()))
		os.Exit(1)
	}
	var out io.Writer = os.Stdout
	if *output != "-" {
		fp, err := os.Create(*output)
		if err != nil {
			slog.Error("creating output", slog.String("err", err.Error()))
			os.Exit(1)
		}
		defer fp.Close()
		out = fp
	}
	var timings io.Writer
	if *timingsOutput != "" {
		slog.Info("creating timings file", slog.String("file", *timingsOutput))
		fp, err := os.Create(*timingsOutput)
		if err != nil {
			slog.Error("creating timings", slog.String("err", err.Error()))
			os.Exit(1)
		}
		defer fp.Close()
		timings = fp
	}
	txs := filter.process(caps)
	if err := write(out, timings, txs); err != nil {
		slog.Error("writing output", slog.String("err", err.Error()))
		os.Exit(1)
	}
	if len(caps) > 1 {
		lo, hi := minmax(gaps(caps))
		slog.Info("transaction spacing", slog.Float64("min_s", lo), slog.Float64("max_s", hi))
	}
	slog.Info("finished", slog.Int("transactions", len(caps)), slog.Int("lines", len(txs)), slog.Duration("elapsed", time.Since(start)))
}

func write(out, timings io.Writer, txs []nrftx) (err error) {
	for _, action := range txs {
		if action.Err != nil {
			_, err = fmt.Fprintf(out, "cmd×%2d %v\n", action.Num, action.Err)
		} else {
			_, err = fmt.Fprintf(out, "cmd×%2d %s\n", action.Num, action.Tx.String())
		}
		if err != nil {
			return err
		}
		if timings != nil {
			fmt.Fprintf(timings, "t=%f\tdata=%#x\n", action.Start, action.Tx.Data)
		}
	}
	return nil
}

func processSpiFiles(fclk, fcs, fmosi, fmiso string) ([]capture, error) {
	clk, err := opendigital(fclk)
	if err != nil {
		return nil, err
	}
	cs, err := opendigital(fcs)
	if err != nil {
		return nil, err
	}
	mosi, err := opendigital(fmosi)
	if err != nil {
		return nil, err
	}
	miso := mosi
	if fmiso != "" {
		miso, err = opendigital(fmiso)
		if err != nil {
			return nil, err
		}
	}
	spi := analyzers.SPI{}
	txs, _ := spi.Scan(clk, cs, mosi, miso)
	caps := make([]capture, len(txs))
	for i, tx := range txs {
		caps[i] = capture{MOSI: tx.SDO, Start: tx.StartTime()}
		if fmiso != "" {
			caps[i].MISO = tx.SDI
		}
	}
	return caps, nil
}

func opendigital(filename string) (*saleae.DigitalFile, error) {
	fp, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer fp.Close()
	return saleae.ReadDigitalFile(fp)
}

func (f *Filter) process(caps []capture) (txs []nrftx) {
	for i := 0; i < len(caps); i++ {
		c := caps[i]
		tx, err := nrf24.ParseTransaction(c.MOSI, c.MISO)
		num := 1
		for f.Collapse && i+1 < len(caps) &&
			bytes.Equal(caps[i+1].MOSI, c.MOSI) && bytes.Equal(caps[i+1].MISO, c.MISO) {
			num++
			i++
		}
		if err == nil && f.omit(tx.Cmd.Kind) {
			continue
		}
		if f.OmitReadData && tx.Cmd.Kind == nrf24.CmdReadRegister {
			tx.Data = nil
		}
		txs = append(txs, nrftx{Num: num, Tx: tx, Err: err, Start: c.Start})
	}
	return txs
}

func (f *Filter) omit(k nrf24.CommandKind) bool {
	switch k {
	case nrf24.CmdReadRegister:
		return f.OmitRead
	case nrf24.CmdWriteRegister:
		return f.OmitWrite
	}
	return f.OmitOther
}

func gaps(caps []capture) []float64 {
	g := make([]float64, 0, len(caps))
	for i := 1; i < len(caps); i++ {
		g = append(g, caps[i].Start-caps[i-1].Start)
	}
	return g
}

func minmax[T constraints.Ordered](s []T) (lo, hi T) {
	if len(s) == 0 {
		return lo, hi
	}
	lo, hi = s[0], s[0]
	for _, v := range s[1:] {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	return lo, hi
}
