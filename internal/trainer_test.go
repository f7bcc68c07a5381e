package internal

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func flowTable(t *testing.T) *Table {
	t.Helper()

	return testTable(t, []string{"srcip", "dstip", "dstport", "proto"},
		[]string{"10.0.0.1", "10.0.0.2", "443", "TCP"},
		[]string{"10.0.0.2", "10.0.0.1", "51000", "TCP"},
		[]string{"10.0.0.3", "8.8.8.8", "53", "UDP"},
		[]string{"8.8.8.8", "10.0.0.3", "53000", "UDP"},
	)
}

func flowColumnDescriptors(t *testing.T) []ColumnDescriptor {
	return testColumns(t,
		"srcip", "word2vec_ip",
		"dstip", "word2vec_ip",
		"dstport", "word2vec_port",
		"proto", "word2vec_proto",
	)
}

func TestModelPath(t *testing.T) {
	assert.Equal(t, filepath.Join("models", "word2vec_vecSize_10.model"), ModelPath("models", "word2vec_vecSize", 10))
}

func TestBuildCorpus(t *testing.T) {
	table := testTable(t, []string{"srcip", "pkt", "dstport"},
		[]string{"ip1", "3", "80"},
		[]string{"ip2", "7", "443"},
	)
	cols := testColumns(t, "dstport", "word2vec_port", "srcip", "word2vec_ip")

	corpus, err := buildCorpus(context.Background(), table, cols, 2)
	require.NoError(t, err)
	assert.Equal(t, "80 ip1\n</row> </row>\n443 ip2\n", string(corpus))
}

func TestBuildCorpusSeparatesRows(t *testing.T) {
	table := testTable(t, []string{"srcip", "dstip", "dstport"},
		[]string{"ip1", "ip2", "80"},
		[]string{"ip3", "ip4", "443"},
		[]string{"ip5", "ip6", "53"},
	)
	cols := testColumns(t, "srcip", "word2vec_ip", "dstip", "word2vec_ip", "dstport", "word2vec_port")

	for _, window := range []int{1, 3, 5} {
		corpus, err := buildCorpus(context.Background(), table, cols, window)
		require.NoError(t, err)

		// every word2vec context is at most window words away from its target
		words := strings.Fields(string(corpus))
		rowOf := make([]int, len(words))
		row := 0
		for i, w := range words {
			if w == rowBoundary {
				rowOf[i] = -1
				if i+1 < len(words) && words[i+1] != rowBoundary {
					row++
				}
				continue
			}
			rowOf[i] = row
		}

		for i := range words {
			for j := i + 1; j <= i+window && j < len(words); j++ {
				if rowOf[i] < 0 || rowOf[j] < 0 {
					continue
				}
				assert.Equal(t, rowOf[i], rowOf[j], "window %d: %s and %s share a context", window, words[i], words[j])
			}
		}
		assert.Equal(t, 2, row, "window %d", window)
	}
}

func TestBuildCorpusRejectsBoundaryToken(t *testing.T) {
	table := testTable(t, []string{"proto"}, []string{"TCP"}, []string{rowBoundary})

	_, err := buildCorpus(context.Background(), table, testColumns(t, "proto", "word2vec_proto"), 2)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTrainerRejectsBadInput(t *testing.T) {
	trainer := NewTrainer(nil)
	ctx := context.Background()
	opts := TrainOptions{Dir: t.TempDir(), ModelName: "m", Dimension: 4}

	_, err := trainer.Train(ctx, testTable(t, []string{"srcip"}), testColumns(t, "srcip", "word2vec_ip"), opts)
	assert.ErrorIs(t, err, ErrEmptyCorpus)

	_, err = trainer.Train(ctx, flowTable(t), nil, opts)
	assert.ErrorIs(t, err, ErrEmptyCorpus)

	_, err = trainer.Train(ctx, flowTable(t), testColumns(t, "mac", "word2vec_mac"), opts)
	assert.ErrorIs(t, err, ErrUnknownColumn)

	spaced := testTable(t, []string{"proto"}, []string{"TCP"}, []string{"ICMP v6"})
	_, err = trainer.Train(ctx, spaced, testColumns(t, "proto", "word2vec_proto"), opts)
	assert.ErrorIs(t, err, ErrInvalidToken)

	opts.Dimension = 0
	_, err = trainer.Train(ctx, flowTable(t), flowColumnDescriptors(t), opts)
	assert.Error(t, err)

	assert.NoFileExists(t, ModelPath(opts.Dir, "m", 4))
}

func TestTrainerUsesCachedModel(t *testing.T) {
	dir := t.TempDir()
	path := ModelPath(dir, "cached", 4)
	require.NoError(t, os.WriteFile(path, []byte("stale"), 0644))

	got, err := NewTrainer(nil).Train(context.Background(), flowTable(t), flowColumnDescriptors(t), TrainOptions{
		Dir: dir, ModelName: "cached", Dimension: 4,
	})
	require.NoError(t, err)
	assert.Equal(t, path, got)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "stale", string(data))
}

func TestTrainerTrainsVocabulary(t *testing.T) {
	dir := t.TempDir()
	path := ModelPath(dir, "flows", 6)
	require.NoError(t, os.WriteFile(path, []byte("stale"), 0644))

	got, err := NewTrainer(nil).Train(context.Background(), flowTable(t), flowColumnDescriptors(t), TrainOptions{
		Dir: dir, ModelName: "flows", Dimension: 6, Iterations: 2, Workers: 2, ForceRetrain: true,
	})
	require.NoError(t, err)
	assert.Equal(t, path, got)
	assert.NoFileExists(t, path+".tmp")

	vocab, err := LoadVocabulary(got)
	require.NoError(t, err)
	assert.Equal(t, 6, vocab.Dimension())

	for _, tok := range []Token{"10.0.0.1", "10.0.0.2", "10.0.0.3", "8.8.8.8", "443", "51000", "53", "53000", "TCP", "UDP"} {
		assert.True(t, vocab.Contains(tok), "vocabulary misses %s", tok)
	}
	assert.False(t, vocab.Contains(rowBoundary))
}

func TestLoadVocabularyMissing(t *testing.T) {
	_, err := LoadVocabulary(filepath.Join(t.TempDir(), "missing.model"))
	assert.Error(t, err)
}
