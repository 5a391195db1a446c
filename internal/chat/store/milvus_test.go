package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/mida-chat/pkg/component/milvus"
	milvusopts "github.com/kart-io/mida-chat/pkg/options/milvus"
)

type fakeMilvus struct {
	collections map[string][]milvus.PassageRow
	loaded      map[string]bool
	searchErr   error
}

func newFakeMilvus() *fakeMilvus {
	return &fakeMilvus{collections: map[string][]milvus.PassageRow{}, loaded: map[string]bool{}}
}

func (f *fakeMilvus) HasCollection(_ context.Context, name string) (bool, error) {
	_, ok := f.collections[name]
	return ok, nil
}

func (f *fakeMilvus) CreatePassageCollection(_ context.Context, name, _ string, _ int) error {
	f.collections[name] = nil
	return nil
}

func (f *fakeMilvus) LoadCollection(_ context.Context, name string) error {
	f.loaded[name] = true
	return nil
}

func (f *fakeMilvus) InsertPassages(_ context.Context, name string, rows []milvus.PassageRow) error {
	f.collections[name] = append(f.collections[name], rows...)
	return nil
}

func (f *fakeMilvus) SearchPassages(_ context.Context, name string, _ []float32, topK int) ([]milvus.PassageHit, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	var hits []milvus.PassageHit
	for i, r := range f.collections[name] {
		if i >= topK {
			break
		}
		hits = append(hits, milvus.PassageHit{ID: r.ID, Text: r.Text, Source: r.Source, Score: 1 - float32(i)/10})
	}
	return hits, nil
}

func (f *fakeMilvus) DropCollection(_ context.Context, name string) error {
	delete(f.collections, name)
	return nil
}

func (f *fakeMilvus) Count(_ context.Context, name string) (int64, error) {
	return int64(len(f.collections[name])), nil
}

func (f *fakeMilvus) Close(context.Context) error { return nil }

func TestMilvusStoreOpenMissing(t *testing.T) {
	s := &MilvusStore{client: newFakeMilvus(), collection: "mida"}
	err := s.Open(context.Background())
	assert.ErrorIs(t, err, ErrIndexNotFound)
}

func TestMilvusStoreWriteAndSearch(t *testing.T) {
	ctx := context.Background()
	fake := newFakeMilvus()
	s := &MilvusStore{client: fake, collection: "mida"}

	require.NoError(t, s.WritePassages(ctx, "all-minilm", testPassages()))
	assert.True(t, fake.loaded["mida"])
	require.NoError(t, s.Open(ctx))

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), count)

	results, err := s.Search(ctx, []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "p1", results[0].ID)

	empty, err := s.Search(ctx, []float32{1, 0, 0}, 0)
	require.NoError(t, err)
	assert.Empty(t, empty)

	s.Recreate = true
	require.NoError(t, s.WritePassages(ctx, "all-minilm", testPassages()[:1]))
	count, err = s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestMilvusStoreSearchError(t *testing.T) {
	fake := newFakeMilvus()
	fake.searchErr = errors.New("milvus down")
	s := &MilvusStore{client: fake, collection: "mida"}

	_, err := s.Search(context.Background(), []float32{1}, 4)
	assert.ErrorContains(t, err, "milvus down")
}

func TestMilvusStoreIntegration(t *testing.T) {
	addr := os.Getenv("MILVUS_ADDRESS")
	if addr == "" {
		addr = "localhost:19530"
	}
	opts := milvusopts.NewOptions()
	opts.Address = addr
	opts.Timeout = 2 * time.Second

	ctx := context.Background()
	client, err := milvus.New(ctx, opts)
	if err != nil {
		t.Skipf("milvus not available at %s: %v", addr, err)
	}
	defer func() { _ = client.Close(ctx) }()

	collection := fmt.Sprintf("mida_store_test_%d", time.Now().UnixNano())
	s := NewMilvusStore(client, collection)
	defer func() { _ = client.DropCollection(ctx, collection) }()

	require.NoError(t, s.WritePassages(ctx, "test-model", testPassages()))
	require.NoError(t, s.Open(ctx))

	results, err := s.Search(ctx, []float32{0, 1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "p2", results[0].ID)
}
