package internal

import (
	"fmt"
	"strings"
)

// ColumnDescriptor is a designated column together with its parsed encoding.
// Encodings look like "word2vec_port": the first segment names the purpose,
// the second the semantic type shared by every column of a type group.
type ColumnDescriptor struct {
	Name    string
	Purpose string
	Type    FieldType
}

func ParseColumn(name, encoding string) (ColumnDescriptor, error) {
	if name == "" {
		return ColumnDescriptor{}, fmt.Errorf("%w: empty column name", ErrInvalidEncoding)
	}

	parts := strings.Split(encoding, "_")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return ColumnDescriptor{}, fmt.Errorf("%w: %q for column %q", ErrInvalidEncoding, encoding, name)
	}

	return ColumnDescriptor{
		Name:    name,
		Purpose: parts[0],
		Type:    FieldType(parts[1]),
	}, nil
}

func ParseColumns(cfgs []ColumnConfig) ([]ColumnDescriptor, error) {
	cols := make([]ColumnDescriptor, 0, len(cfgs))
	for _, c := range cfgs {
		col, err := ParseColumn(c.Name, c.Encoding)
		if err != nil {
			return nil, err
		}
		cols = append(cols, col)
	}
	return cols, nil
}

// TypeGroup is the set of columns sharing one semantic type.
type TypeGroup struct {
	Type    FieldType
	Columns []string
}

// GroupColumns partitions columns by type. Groups appear in order of first
// occurrence and keep the column order of cols.
func GroupColumns(cols []ColumnDescriptor) []TypeGroup {
	var groups []TypeGroup
	pos := make(map[FieldType]int)

	for _, c := range cols {
		i, ok := pos[c.Type]
		if !ok {
			i = len(groups)
			pos[c.Type] = i
			groups = append(groups, TypeGroup{Type: c.Type})
		}
		groups[i].Columns = append(groups[i].Columns, c.Name)
	}

	return groups
}

func columnNames(cols []ColumnDescriptor) []string {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	return names
}
