package internal

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// testVocabulary has orthogonal-ish vectors so nearest neighbours are
// unambiguous.
func testVocabulary(t *testing.T) *Vocabulary {
	t.Helper()

	vocab, err := NewVocabulary(map[Token][]float32{
		"ip1":  {2, 0, 0, 0},
		"ip2":  {0, 3, 0, 0},
		"80":   {0, 0, 1, 0},
		"443":  {0, 0, 0, 5},
		"8080": {0, 1, 1, 1},
		"TCP":  {1, 1, 0, 0},
		"UDP":  {1, 0, 0, 1},
	})
	require.NoError(t, err)
	return vocab
}

func testTable(t *testing.T, header []string, rows ...[]string) *Table {
	t.Helper()

	table, err := NewTable(header, rows)
	require.NoError(t, err)
	return table
}

func testColumns(t *testing.T, pairs ...string) []ColumnDescriptor {
	t.Helper()
	require.Equal(t, 0, len(pairs)%2, "name/encoding pairs")

	cfgs := make([]ColumnConfig, 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		cfgs = append(cfgs, ColumnConfig{Name: pairs[i], Encoding: pairs[i+1]})
	}

	cols, err := ParseColumns(cfgs)
	require.NoError(t, err)
	return cols
}
