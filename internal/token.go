package internal

import (
	"errors"
	"strings"
	"unicode"
)

var (
	ErrEmptyCorpus       = errors.New("empty training corpus")
	ErrVocabularyGap     = errors.New("token not in vocabulary")
	ErrIndexNotBuilt     = errors.New("index not built")
	ErrDimensionMismatch = errors.New("dimension mismatch")
	ErrInvalidEncoding   = errors.New("invalid column encoding")
	ErrUnknownType       = errors.New("unknown field type")
	ErrUnknownColumn     = errors.New("unknown column")
	ErrInvalidToken      = errors.New("invalid token")
	ErrInvalidTrees      = errors.New("number of trees must be positive")
	ErrCorruptCodebook   = errors.New("corrupt codebook")
)

// Token is a categorical value taken from a designated column.
type Token string

func NewToken(s string) (Token, error) {
	if s == "" {
		return "", ErrInvalidToken
	}
	if strings.IndexFunc(s, unicode.IsSpace) >= 0 {
		return "", ErrInvalidToken
	}
	return Token(s), nil
}

func (t Token) String() string {
	return string(t)
}

type FieldType string

const (
	FieldIP    FieldType = "ip"
	FieldPort  FieldType = "port"
	FieldProto FieldType = "proto"
)

// Known reports whether t is one of the built-in network field types.
func (t FieldType) Known() bool {
	switch t {
	case FieldIP, FieldPort, FieldProto:
		return true
	}
	return false
}

func (t FieldType) String() string {
	return string(t)
}
