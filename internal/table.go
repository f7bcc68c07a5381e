package internal

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Table is a rectangular dataset of string cells addressed by column name.
type Table struct {
	Header []string
	Rows   [][]string

	pos map[string]int
}

func NewTable(header []string, rows [][]string) (*Table, error) {
	pos := make(map[string]int, len(header))
	for i, name := range header {
		if _, dup := pos[name]; dup {
			return nil, fmt.Errorf("duplicate column %q", name)
		}
		pos[name] = i
	}

	for i, row := range rows {
		if len(row) != len(header) {
			return nil, fmt.Errorf("row %d has %d cells, header has %d", i, len(row), len(header))
		}
	}

	return &Table{Header: header, Rows: rows, pos: pos}, nil
}

func (t *Table) Len() int {
	return len(t.Rows)
}

// Column returns every cell of the named column in row order.
func (t *Table) Column(name string) ([]string, error) {
	i, ok := t.pos[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, name)
	}

	values := make([]string, len(t.Rows))
	for r, row := range t.Rows {
		values[r] = row[i]
	}
	return values, nil
}

// Select returns, for each row, the cells of the given columns in the given
// order.
func (t *Table) Select(names []string) ([][]string, error) {
	idx := make([]int, len(names))
	for j, name := range names {
		i, ok := t.pos[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, name)
		}
		idx[j] = i
	}

	out := make([][]string, len(t.Rows))
	for r, row := range t.Rows {
		sel := make([]string, len(idx))
		for j, i := range idx {
			sel[j] = row[i]
		}
		out[r] = sel
	}
	return out, nil
}

func ReadCSVTable(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read header: %w", ErrEmptyCorpus)
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}

	return NewTable(header, rows)
}

// LoadTable reads a CSV file or a Parquet flow file, chosen by extension.
func LoadTable(path string) (*Table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".parquet":
		return ReadFlowParquet(path)
	default:
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open table: %w", err)
		}
		defer f.Close()
		return ReadCSVTable(f)
	}
}
