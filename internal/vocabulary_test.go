package internal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewVocabulary(t *testing.T) {
	vocab := testVocabulary(t)

	assert.Equal(t, 4, vocab.Dimension())
	assert.Equal(t, 7, vocab.Len())
	assert.True(t, vocab.Contains("443"))
	assert.False(t, vocab.Contains("444"))

	_, err := NewVocabulary(nil)
	assert.ErrorIs(t, err, ErrEmptyCorpus)

	_, err = NewVocabulary(map[Token][]float32{"a": {1, 0}, "b": {1, 0, 0}})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestVocabularyVector(t *testing.T) {
	vocab := testVocabulary(t)

	raw, err := vocab.Vector("443", false)
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 0, 0, 5}, raw)

	unit, err := vocab.Vector("8080", true)
	require.NoError(t, err)
	assert.InDelta(t, 0, unit[0], 1e-6)
	for _, x := range unit[1:] {
		assert.InDelta(t, 0.57735, x, 1e-4)
	}

	// callers get copies
	unit[1] = 42
	again, err := vocab.Vector("8080", true)
	require.NoError(t, err)
	assert.InDelta(t, 0.57735, again[1], 1e-4)
}

func TestVocabularyResolveOutOfVocabulary(t *testing.T) {
	vocab := testVocabulary(t)

	tests := []struct {
		token string
		want  Token
	}{
		{"443", "443"},
		{"TCP", "TCP"},
		{"81", "80"},
		{"79", "80"},
		{"-5", "80"},
		{"444", "443"},
		{"4000", "443"},
		{"9000", "8080"},
		{"65535", "8080"},
	}

	for _, tt := range tests {
		got, err := vocab.Resolve(Token(tt.token))
		require.NoError(t, err, tt.token)
		assert.Equal(t, tt.want, got, "resolve %s", tt.token)
	}
}

func TestVocabularyResolveTiesToSmaller(t *testing.T) {
	vocab, err := NewVocabulary(map[Token][]float32{
		"80": {1, 0},
		"90": {0, 1},
	})
	require.NoError(t, err)

	got, err := vocab.Resolve("85")
	require.NoError(t, err)
	assert.Equal(t, Token("80"), got)

	got, err = vocab.Resolve("86")
	require.NoError(t, err)
	assert.Equal(t, Token("90"), got)
}

func TestVocabularyResolveGap(t *testing.T) {
	vocab := testVocabulary(t)

	_, err := vocab.Resolve("https")
	assert.ErrorIs(t, err, ErrVocabularyGap)

	_, err = vocab.Vector("10.0.0.9", true)
	assert.ErrorIs(t, err, ErrVocabularyGap)

	words, err := NewVocabulary(map[Token][]float32{"TCP": {1, 0}})
	require.NoError(t, err)

	_, err = words.Resolve("80")
	assert.ErrorIs(t, err, ErrVocabularyGap)
}

func TestL2Normalize(t *testing.T) {
	assert.Equal(t, []float32{0.6, 0.8}, l2Normalize([]float32{3, 4}))
	assert.Equal(t, []float32{0, 0}, l2Normalize([]float32{0, 0}))
}
