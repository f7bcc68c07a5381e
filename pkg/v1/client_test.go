package v1

import (
	"context"
	"encoding/csv"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var flows = Dataset{
	Header: []string{"srcip", "dstip", "srcport", "dstport", "proto"},
	Rows: [][]string{
		{"10.0.0.1", "10.0.0.2", "443", "51000", "TCP"},
		{"10.0.0.2", "10.0.0.1", "51000", "443", "TCP"},
		{"10.0.0.3", "8.8.8.8", "53000", "53", "UDP"},
		{"8.8.8.8", "10.0.0.3", "53", "53000", "UDP"},
	},
}

var flowColumns = []Column{
	{Name: "srcip", Encoding: "word2vec_ip"},
	{Name: "dstip", Encoding: "word2vec_ip"},
	{Name: "srcport", Encoding: "word2vec_port"},
	{Name: "dstport", Encoding: "word2vec_port"},
	{Name: "proto", Encoding: "word2vec_proto"},
}

func setupClientTest(t *testing.T, opts ...Option) *Client {
	t.Helper()

	client, err := New(append([]Option{WithDir(t.TempDir()), WithTrees(5)}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return client
}

func TestNewRejectsBadOptions(t *testing.T) {
	_, err := New(WithDimension(0))
	assert.Error(t, err)

	_, err = New(WithTrees(0))
	assert.Error(t, err)
}

func TestClientDecodeBeforeBuild(t *testing.T) {
	client := setupClientTest(t)

	_, err := client.Decode(context.Background(), "port", make([]float32, 10))
	assert.ErrorIs(t, err, ErrIndexNotBuilt)

	_, err = client.Encode("443")
	assert.ErrorIs(t, err, ErrIndexNotBuilt)
}

func TestClientTrainEmptyCorpus(t *testing.T) {
	client := setupClientTest(t)

	_, err := client.Train(context.Background(), Dataset{Header: flows.Header}, flowColumns)
	assert.ErrorIs(t, err, ErrEmptyCorpus)
}

func TestClientRoundTrip(t *testing.T) {
	client := setupClientTest(t, WithDimension(8))
	ctx := context.Background()

	require.NoError(t, client.BuildCodebook(ctx, flows, flowColumns))

	for _, tc := range []struct {
		fieldType string
		token     string
	}{
		{"ip", "10.0.0.1"},
		{"ip", "8.8.8.8"},
		{"port", "443"},
		{"port", "53000"},
		{"proto", "UDP"},
	} {
		vec, err := client.Encode(tc.token)
		require.NoError(t, err)
		assert.Len(t, vec, 8)

		got, err := client.Decode(ctx, tc.fieldType, vec)
		require.NoError(t, err)
		assert.Equal(t, tc.token, got)
	}

	vecs := make([][]float32, 0, 3)
	for _, tok := range []string{"53", "51000", "443"} {
		vec, err := client.Encode(tok)
		require.NoError(t, err)
		vecs = append(vecs, vec)
	}
	got, err := client.DecodeBatch(ctx, "port", vecs)
	require.NoError(t, err)
	assert.Equal(t, []string{"53", "51000", "443"}, got)

	_, err = client.Decode(ctx, "mac", vecs[0])
	assert.ErrorIs(t, err, ErrUnknownType)

	_, err = client.Encode("http")
	assert.True(t, errors.Is(err, ErrVocabularyGap))
}

func TestClientLoadCodebook(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	first, err := New(WithDir(dir), WithTrees(5))
	require.NoError(t, err)
	require.NoError(t, first.BuildCodebook(ctx, flows, flowColumns))

	vec, err := first.Encode("TCP")
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := New(WithDir(dir), WithTrees(5))
	require.NoError(t, err)
	defer second.Close()

	require.NoError(t, second.LoadCodebook())

	got, err := second.Decode(ctx, "proto", vec)
	require.NoError(t, err)
	assert.Equal(t, "TCP", got)
}

func TestClientWriteSessionsCSV(t *testing.T) {
	client := setupClientTest(t)
	dir := t.TempDir()

	path, err := client.WriteSessionsCSV(dir, "netflow", Sessions{
		SessionFields: []string{"srcip", "dstip"},
		SeriesFields:  []string{"dstport", "pkt"},
		Attributes:    [][]string{{"10.0.0.1", "10.0.0.2"}},
		Series:        [][][]string{{{"443", "3"}, {"80", "1"}}},
		Flags:         [][]float64{{1, 0}},
	})
	require.NoError(t, err)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"srcip", "dstip", "dstport", "pkt"},
		{"10.0.0.1", "10.0.0.2", "443", "3"},
	}, records)
}

func TestClientRebuildReleasesPreviousCodebook(t *testing.T) {
	client := setupClientTest(t)
	ctx := context.Background()

	require.NoError(t, client.BuildCodebook(ctx, flows, flowColumns))
	previous := client.cb

	vec, err := client.Encode("443")
	require.NoError(t, err)

	require.NoError(t, client.BuildCodebook(ctx, flows, flowColumns))
	assert.NotSame(t, previous, client.cb)

	_, err = previous.Decode(ctx, "port", vec)
	assert.ErrorIs(t, err, ErrIndexNotBuilt)

	got, err := client.Decode(ctx, "port", vec)
	require.NoError(t, err)
	assert.Equal(t, "443", got)

	current := client.cb
	require.NoError(t, client.Close())
	_, err = current.Decode(ctx, "port", vec)
	assert.ErrorIs(t, err, ErrIndexNotBuilt)

	_, err = client.Decode(ctx, "port", vec)
	assert.ErrorIs(t, err, ErrIndexNotBuilt)
}

func TestClientTrainCachesModel(t *testing.T) {
	client := setupClientTest(t, WithDimension(6), WithModelName("flows"))
	ctx := context.Background()

	path, err := client.Train(ctx, flows, flowColumns)
	require.NoError(t, err)
	assert.FileExists(t, path)

	info, err := os.Stat(path)
	require.NoError(t, err)

	again, err := client.Train(ctx, flows, flowColumns)
	require.NoError(t, err)
	assert.Equal(t, path, again)

	cached, err := os.Stat(again)
	require.NoError(t, err)
	assert.Equal(t, info.ModTime(), cached.ModTime())
}
