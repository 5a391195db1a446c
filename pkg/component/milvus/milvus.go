// Package milvus wraps the Milvus SDK for passage collections.
package milvus

import (
	"context"
	"fmt"
	"strconv"

	"github.com/milvus-io/milvus/client/v2/column"
	"github.com/milvus-io/milvus/client/v2/entity"
	"github.com/milvus-io/milvus/client/v2/index"
	"github.com/milvus-io/milvus/client/v2/milvusclient"

	milvusopts "github.com/kart-io/mida-chat/pkg/options/milvus"
)

// Field names of a passage collection.
const (
	FieldID        = "id"
	FieldText      = "text"
	FieldSource    = "source"
	FieldEmbedding = "embedding"
)

const (
	maxIDLen     = 128
	maxTextLen   = 65535
	maxSourceLen = 1024
)

// Client wraps the Milvus SDK client.
type Client struct {
	client *milvusclient.Client
	opts   *milvusopts.Options
}

// New creates a new Milvus client.
func New(ctx context.Context, opts *milvusopts.Options) (*Client, error) {
	if opts == nil {
		return nil, fmt.Errorf("milvus options is nil")
	}

	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	c, err := milvusclient.New(ctx, &milvusclient.ClientConfig{
		Address:  opts.Address,
		Username: opts.Username,
		Password: opts.Password,
		DBName:   opts.Database,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to milvus: %w", err)
	}

	return &Client{client: c, opts: opts}, nil
}

// Close closes the Milvus client connection.
func (c *Client) Close(ctx context.Context) error {
	return c.client.Close(ctx)
}

// HasCollection reports whether the collection exists.
func (c *Client) HasCollection(ctx context.Context, name string) (bool, error) {
	ok, err := c.client.HasCollection(ctx, milvusclient.NewHasCollectionOption(name))
	if err != nil {
		return false, fmt.Errorf("failed to check collection existence: %w", err)
	}
	return ok, nil
}

// CreatePassageCollection creates a passage collection with a cosine
// vector index of the given dimension. An existing collection is kept.
func (c *Client) CreatePassageCollection(ctx context.Context, name, description string, dim int) error {
	exists, err := c.HasCollection(ctx, name)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	schema := entity.NewSchema().
		WithName(name).
		WithDescription(description).
		WithAutoID(false).
		WithField(entity.NewField().
			WithName(FieldID).
			WithDataType(entity.FieldTypeVarChar).
			WithMaxLength(maxIDLen).
			WithIsPrimaryKey(true)).
		WithField(entity.NewField().
			WithName(FieldText).
			WithDataType(entity.FieldTypeVarChar).
			WithMaxLength(maxTextLen)).
		WithField(entity.NewField().
			WithName(FieldSource).
			WithDataType(entity.FieldTypeVarChar).
			WithMaxLength(maxSourceLen)).
		WithField(entity.NewField().
			WithName(FieldEmbedding).
			WithDataType(entity.FieldTypeFloatVector).
			WithDim(int64(dim)))

	if err := c.client.CreateCollection(ctx, milvusclient.NewCreateCollectionOption(name, schema)); err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	idx := index.NewIvfFlatIndex(entity.COSINE, 128)
	task, err := c.client.CreateIndex(ctx, milvusclient.NewCreateIndexOption(name, FieldEmbedding, idx))
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	if err := task.Await(ctx); err != nil {
		return fmt.Errorf("failed to wait for index creation: %w", err)
	}
	return nil
}

// LoadCollection loads the collection into memory for search.
func (c *Client) LoadCollection(ctx context.Context, name string) error {
	task, err := c.client.LoadCollection(ctx, milvusclient.NewLoadCollectionOption(name))
	if err != nil {
		return fmt.Errorf("failed to load collection: %w", err)
	}
	if err := task.Await(ctx); err != nil {
		return fmt.Errorf("failed to wait for collection loading: %w", err)
	}
	return nil
}

// PassageRow is one passage to insert.
type PassageRow struct {
	ID        string
	Text      string
	Source    string
	Embedding []float32
}

// InsertPassages inserts rows and flushes so they are searchable.
func (c *Client) InsertPassages(ctx context.Context, name string, rows []PassageRow) error {
	if len(rows) == 0 {
		return nil
	}

	dim := len(rows[0].Embedding)
	ids := make([]string, len(rows))
	texts := make([]string, len(rows))
	sources := make([]string, len(rows))
	vectors := make([][]float32, len(rows))
	for i, r := range rows {
		if len(r.Embedding) != dim {
			return fmt.Errorf("row %d has dimension %d, want %d", i, len(r.Embedding), dim)
		}
		ids[i], texts[i], sources[i], vectors[i] = r.ID, r.Text, r.Source, r.Embedding
	}

	_, err := c.client.Insert(ctx, milvusclient.NewColumnBasedInsertOption(name,
		column.NewColumnVarChar(FieldID, ids),
		column.NewColumnVarChar(FieldText, texts),
		column.NewColumnVarChar(FieldSource, sources),
		column.NewColumnFloatVector(FieldEmbedding, dim, vectors),
	))
	if err != nil {
		return fmt.Errorf("failed to insert data: %w", err)
	}

	task, err := c.client.Flush(ctx, milvusclient.NewFlushOption(name))
	if err != nil {
		return fmt.Errorf("failed to flush collection: %w", err)
	}
	if err := task.Await(ctx); err != nil {
		return fmt.Errorf("failed to wait for flush: %w", err)
	}
	return nil
}

// PassageHit is one search result.
type PassageHit struct {
	ID     string
	Text   string
	Source string
	Score  float32
}

// SearchPassages returns the topK passages closest to vector, best first.
func (c *Client) SearchPassages(ctx context.Context, name string, vector []float32, topK int) ([]PassageHit, error) {
	results, err := c.client.Search(ctx, milvusclient.NewSearchOption(
		name,
		topK,
		[]entity.Vector{entity.FloatVector(vector)},
	).WithANNSField(FieldEmbedding).
		WithSearchParam("nprobe", "16").
		WithOutputFields(FieldText, FieldSource))
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}
	if len(results) == 0 {
		return []PassageHit{}, nil
	}

	rs := results[0]
	hits := make([]PassageHit, rs.ResultCount)
	if idCol, ok := rs.IDs.(*column.ColumnVarChar); ok {
		for i := range hits {
			hits[i].ID = idCol.Data()[i]
		}
	}
	for i := range hits {
		hits[i].Score = rs.Scores[i]
	}
	for _, field := range rs.Fields {
		col, ok := field.(*column.ColumnVarChar)
		if !ok {
			continue
		}
		for i := range hits {
			switch col.Name() {
			case FieldText:
				hits[i].Text = col.Data()[i]
			case FieldSource:
				hits[i].Source = col.Data()[i]
			}
		}
	}
	return hits, nil
}

// DropCollection drops a collection.
func (c *Client) DropCollection(ctx context.Context, name string) error {
	if err := c.client.DropCollection(ctx, milvusclient.NewDropCollectionOption(name)); err != nil {
		return fmt.Errorf("failed to drop collection: %w", err)
	}
	return nil
}

// Count returns the number of entities in a collection.
func (c *Client) Count(ctx context.Context, name string) (int64, error) {
	stats, err := c.client.GetCollectionStats(ctx, milvusclient.NewGetCollectionStatsOption(name))
	if err != nil {
		return 0, fmt.Errorf("failed to get collection stats: %w", err)
	}
	if val, ok := stats["row_count"]; ok {
		return strconv.ParseInt(val, 10, 64)
	}
	return 0, nil
}
