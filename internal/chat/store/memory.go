package store

import (
	"context"
	"fmt"
	"sort"

	"github.com/kart-io/mida-chat/internal/pkg/textutil"
)

// BackendMemory 是内存索引的后端名称。
const BackendMemory = "memory"

// MemoryIndex 在内存中保存全部段落，检索为暴力余弦相似度扫描。
// 构造后只读，可被多个会话并发使用。
type MemoryIndex struct {
	model     string
	dimension int
	passages  []*Passage
}

var _ VectorStore = (*MemoryIndex)(nil)

// NewMemoryIndex 创建内存索引。所有向量的维度必须与第一个一致。
func NewMemoryIndex(model string, passages []*Passage) (*MemoryIndex, error) {
	idx := &MemoryIndex{model: model, passages: passages}
	for i, p := range passages {
		if i == 0 {
			idx.dimension = len(p.Vector)
		}
		if len(p.Vector) == 0 || len(p.Vector) != idx.dimension {
			return nil, fmt.Errorf("%w: passage %d (%s) has dimension %d, want %d",
				ErrIndexCorrupt, i, p.ID, len(p.Vector), idx.dimension)
		}
	}
	return idx, nil
}

// Search 返回至多 topK 个结果，分数降序，同分时保持插入顺序。
func (m *MemoryIndex) Search(_ context.Context, vector []float32, topK int) ([]*SearchResult, error) {
	if topK <= 0 || len(m.passages) == 0 {
		return []*SearchResult{}, nil
	}
	if len(vector) != m.dimension {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vector), m.dimension)
	}

	results := make([]*SearchResult, len(m.passages))
	for i, p := range m.passages {
		results[i] = &SearchResult{
			Passage: Passage{ID: p.ID, Text: p.Text, Source: p.Source},
			Score:   float32(textutil.CosineSimilarity(vector, p.Vector)),
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if topK < len(results) {
		results = results[:topK]
	}
	return results, nil
}

// Count 返回段落数量。
func (m *MemoryIndex) Count(context.Context) (int64, error) {
	return int64(len(m.passages)), nil
}

// Len 返回段落数量。
func (m *MemoryIndex) Len() int {
	return len(m.passages)
}

// Dimension 返回向量维度，空索引为 0。
func (m *MemoryIndex) Dimension() int {
	return m.dimension
}

// Model 返回建索引时记录的模型名。
func (m *MemoryIndex) Model() string {
	return m.model
}

// Backend 返回后端名称。
func (m *MemoryIndex) Backend() string {
	return BackendMemory
}

// Close 无需释放资源。
func (m *MemoryIndex) Close(context.Context) error {
	return nil
}
