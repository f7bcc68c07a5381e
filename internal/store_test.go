package internal

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.etcd.io/bbolt"
)

func TestCodebookSaveLoad(t *testing.T) {
	dir := t.TempDir()
	cb := buildTestCodebook(t)
	vocab := cb.Vocabulary()

	require.NoError(t, SaveCodebook(dir, cb))
	assert.FileExists(t, filepath.Join(dir, CodebookFilename))
	assert.FileExists(t, indexPath(dir, FieldIP))
	assert.FileExists(t, indexPath(dir, FieldPort))

	loaded, err := LoadCodebook(dir, vocab)
	require.NoError(t, err)
	assert.Equal(t, cb.Types(), loaded.Types())
	assert.Equal(t, 4, loaded.Dimension())

	for _, ft := range cb.Types() {
		want, err := cb.Group(ft)
		require.NoError(t, err)
		got, err := loaded.Group(ft)
		require.NoError(t, err)

		assert.Equal(t, want.Tokens(), got.Tokens())
		assert.Equal(t, want.Trees(), got.Trees())

		for _, tok := range want.Tokens() {
			vec, err := loaded.Encode(tok)
			require.NoError(t, err)

			decoded, err := loaded.Decode(context.Background(), ft, vec)
			require.NoError(t, err)
			assert.Equal(t, tok, decoded)
		}
	}
}

func TestCodebookSaveReplaces(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, SaveCodebook(dir, buildTestCodebook(t)))

	table := testTable(t, []string{"proto"}, []string{"TCP"}, []string{"UDP"})
	cb, err := NewIndexBuilder(WithTrees(2)).Build(context.Background(), table, testVocabulary(t), testColumns(t, "proto", "word2vec_proto"))
	require.NoError(t, err)
	require.NoError(t, SaveCodebook(dir, cb))

	loaded, err := LoadCodebook(dir, nil)
	require.NoError(t, err)
	assert.Equal(t, []FieldType{FieldProto}, loaded.Types())

	_, err = loaded.Group(FieldIP)
	assert.ErrorIs(t, err, ErrUnknownType)
}

func TestLoadCodebookErrors(t *testing.T) {
	_, err := LoadCodebook(t.TempDir(), nil)
	assert.Error(t, err)

	dir := t.TempDir()
	require.NoError(t, SaveCodebook(dir, buildTestCodebook(t)))

	other, err := NewVocabulary(map[Token][]float32{"80": {1, 0}})
	require.NoError(t, err)
	_, err = LoadCodebook(dir, other)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestLoadCodebookDetectsGaps(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, SaveCodebook(dir, buildTestCodebook(t)))

	db, err := bbolt.Open(filepath.Join(dir, CodebookFilename), 0600, nil)
	require.NoError(t, err)
	require.NoError(t, db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(groupBucket(FieldPort)).Delete(slotKey(0))
	}))
	require.NoError(t, db.Close())

	_, err = LoadCodebook(dir, nil)
	assert.ErrorIs(t, err, ErrCorruptCodebook)
}
