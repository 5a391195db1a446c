package store

import (
	"context"
	"fmt"

	"github.com/kart-io/logger"

	"github.com/kart-io/mida-chat/pkg/component/milvus"
)

// BackendMilvus 是 Milvus 索引的后端名称。
const BackendMilvus = "milvus"

// insertBatchSize 单次插入 Milvus 的段落数。
const insertBatchSize = 256

// milvusClient 是 MilvusStore 用到的 milvus.Client 方法。
type milvusClient interface {
	HasCollection(ctx context.Context, name string) (bool, error)
	CreatePassageCollection(ctx context.Context, name, description string, dim int) error
	LoadCollection(ctx context.Context, name string) error
	InsertPassages(ctx context.Context, name string, rows []milvus.PassageRow) error
	SearchPassages(ctx context.Context, name string, vector []float32, topK int) ([]milvus.PassageHit, error)
	DropCollection(ctx context.Context, name string) error
	Count(ctx context.Context, name string) (int64, error)
	Close(ctx context.Context) error
}

var _ milvusClient = (*milvus.Client)(nil)

// MilvusStore 以 Milvus 集合作为段落索引。
type MilvusStore struct {
	client     milvusClient
	collection string
	// Recreate 为 true 时 WritePassages 会先删除已有集合。
	Recreate bool
}

var (
	_ VectorStore   = (*MilvusStore)(nil)
	_ PassageWriter = (*MilvusStore)(nil)
)

// NewMilvusStore 创建 Milvus 存储实例，不做任何远程调用。
func NewMilvusStore(client *milvus.Client, collection string) *MilvusStore {
	return &MilvusStore{client: client, collection: collection}
}

// Open 确认集合存在并加载到内存。集合不存在返回 ErrIndexNotFound。
func (s *MilvusStore) Open(ctx context.Context) error {
	ok, err := s.client.HasCollection(ctx, s.collection)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: milvus collection %s", ErrIndexNotFound, s.collection)
	}
	if err := s.client.LoadCollection(ctx, s.collection); err != nil {
		return err
	}

	count, err := s.client.Count(ctx, s.collection)
	if err != nil {
		logger.Warnw("failed to count milvus passages", "collection", s.collection, "error", err.Error())
	}
	logger.Infow("milvus passage index loaded", "collection", s.collection, "passages", count)
	return nil
}

// Search 返回至多 topK 个结果，Milvus 已按 COSINE 分数降序排列。
func (s *MilvusStore) Search(ctx context.Context, vector []float32, topK int) ([]*SearchResult, error) {
	if topK <= 0 {
		return []*SearchResult{}, nil
	}

	hits, err := s.client.SearchPassages(ctx, s.collection, vector, topK)
	if err != nil {
		return nil, err
	}

	results := make([]*SearchResult, 0, len(hits))
	for _, h := range hits {
		results = append(results, &SearchResult{
			Passage: Passage{ID: h.ID, Text: h.Text, Source: h.Source},
			Score:   h.Score,
		})
	}
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// Count 返回集合中的段落数量。
func (s *MilvusStore) Count(ctx context.Context) (int64, error) {
	return s.client.Count(ctx, s.collection)
}

// Model 未记录在 Milvus 中，返回空字符串。
func (s *MilvusStore) Model() string {
	return ""
}

// Backend 返回后端名称。
func (s *MilvusStore) Backend() string {
	return BackendMilvus
}

// Close 关闭 Milvus 连接。
func (s *MilvusStore) Close(ctx context.Context) error {
	return s.client.Close(ctx)
}

// WritePassages 创建集合（必要时）并分批插入段落，完成后加载集合。
func (s *MilvusStore) WritePassages(ctx context.Context, model string, passages []*Passage) error {
	if len(passages) == 0 {
		return fmt.Errorf("no passages to write")
	}
	dim := len(passages[0].Vector)

	exists, err := s.client.HasCollection(ctx, s.collection)
	if err != nil {
		return err
	}
	if exists && s.Recreate {
		if err := s.client.DropCollection(ctx, s.collection); err != nil {
			return err
		}
		exists = false
	}
	if !exists {
		desc := fmt.Sprintf("passages embedded with %s", model)
		if err := s.client.CreatePassageCollection(ctx, s.collection, desc, dim); err != nil {
			return err
		}
	}

	for start := 0; start < len(passages); start += insertBatchSize {
		end := min(start+insertBatchSize, len(passages))
		rows := make([]milvus.PassageRow, 0, end-start)
		for _, p := range passages[start:end] {
			rows = append(rows, milvus.PassageRow{ID: p.ID, Text: p.Text, Source: p.Source, Embedding: p.Vector})
		}
		if err := s.client.InsertPassages(ctx, s.collection, rows); err != nil {
			return fmt.Errorf("failed to insert passages %d-%d: %w", start, end, err)
		}
	}

	logger.Infow("passages written to milvus", "collection", s.collection, "passages", len(passages), "dimension", dim)
	return s.client.LoadCollection(ctx, s.collection)
}
