package internal

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/segmentio/parquet-go"
)

// FlowRecord is one NetFlow-style row as stored in Parquet trace exports.
type FlowRecord struct {
	SrcIP   string  `parquet:"srcip"`
	DstIP   string  `parquet:"dstip"`
	SrcPort int32   `parquet:"srcport"`
	DstPort int32   `parquet:"dstport"`
	Proto   string  `parquet:"proto"`
	TS      int64   `parquet:"ts"`
	TD      float64 `parquet:"td"`
	Pkt     int64   `parquet:"pkt"`
	Byt     int64   `parquet:"byt"`
	Label   string  `parquet:"label,optional"`
}

var flowHeader = []string{"srcip", "dstip", "srcport", "dstport", "proto", "ts", "td", "pkt", "byt", "label"}

func (r FlowRecord) cells() []string {
	return []string{
		r.SrcIP,
		r.DstIP,
		strconv.FormatInt(int64(r.SrcPort), 10),
		strconv.FormatInt(int64(r.DstPort), 10),
		r.Proto,
		strconv.FormatInt(r.TS, 10),
		strconv.FormatFloat(r.TD, 'g', -1, 64),
		strconv.FormatInt(r.Pkt, 10),
		strconv.FormatInt(r.Byt, 10),
		r.Label,
	}
}

func ReadFlowParquet(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open parquet: %w", err)
	}
	defer f.Close()

	reader := parquet.NewReader(f)
	defer reader.Close()

	var rows [][]string
	for {
		var rec FlowRecord
		err := reader.Read(&rec)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read flow record %d: %w", len(rows), err)
		}
		rows = append(rows, rec.cells())
	}

	return NewTable(flowHeader, rows)
}

func WriteFlowParquet(path string, records []FlowRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create parquet: %w", err)
	}

	w := parquet.NewWriter(f)
	for i := range records {
		if err := w.Write(&records[i]); err != nil {
			f.Close()
			return fmt.Errorf("write flow record %d: %w", i, err)
		}
	}

	if err := w.Close(); err != nil {
		f.Close()
		return fmt.Errorf("flush parquet: %w", err)
	}
	return f.Close()
}
