package milvus

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	milvusopts "github.com/kart-io/mida-chat/pkg/options/milvus"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	opts := milvusopts.NewOptions()
	opts.Timeout = 2 * time.Second

	c, err := New(context.Background(), opts)
	if err != nil {
		t.Skipf("milvus not available: %v", err)
	}
	t.Cleanup(func() { _ = c.Close(context.Background()) })
	return c
}

func TestNewNilOptions(t *testing.T) {
	_, err := New(context.Background(), nil)
	assert.Error(t, err)
}

func TestPassageRoundTrip(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	name := "mida_chat_test_passages"

	_ = c.DropCollection(ctx, name)
	require.NoError(t, c.CreatePassageCollection(ctx, name, "test", 3))
	t.Cleanup(func() { _ = c.DropCollection(context.Background(), name) })

	require.NoError(t, c.InsertPassages(ctx, name, []PassageRow{
		{ID: "p1", Text: "MIDA stands for Malaysian Investment Development Authority.", Source: "mida.txt", Embedding: []float32{1, 0, 0}},
		{ID: "p2", Text: "Penang is a state in Malaysia.", Source: "states.txt", Embedding: []float32{0, 1, 0}},
	}))
	require.NoError(t, c.LoadCollection(ctx, name))

	hits, err := c.SearchPassages(ctx, name, []float32{0.9, 0.1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "p1", hits[0].ID)
	assert.Equal(t, "mida.txt", hits[0].Source)

	assert.ErrorContains(t, c.InsertPassages(ctx, name, []PassageRow{
		{ID: "a", Embedding: []float32{1, 0, 0}},
		{ID: "b", Embedding: []float32{1, 0}},
	}), "dimension")
}
