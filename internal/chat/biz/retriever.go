package biz

import (
	"context"
	"errors"
	"fmt"

	"github.com/kart-io/logger"
	"github.com/kart-io/mida-chat/internal/chat/store"
	"github.com/kart-io/mida-chat/pkg/llm"
)

// ErrRetrieval 标记检索阶段（嵌入或向量检索）的失败。
var ErrRetrieval = errors.New("retrieval failed")

// RetrievedSet 表示一次检索的结果，按相似度降序。
type RetrievedSet struct {
	// Query 原始问题。
	Query string
	// Passages 检索到的段落，长度不超过 k。
	Passages []*store.SearchResult
}

// Texts 返回段落文本，保持顺序。
func (r *RetrievedSet) Texts() []string {
	if r == nil {
		return nil
	}
	texts := make([]string, 0, len(r.Passages))
	for _, p := range r.Passages {
		texts = append(texts, p.Text)
	}
	return texts
}

// Retriever 负责问题嵌入和相似段落检索。
type Retriever struct {
	store         store.VectorStore
	embedProvider llm.EmbeddingProvider
}

// NewRetriever 创建检索器实例。
func NewRetriever(vectorStore store.VectorStore, embedProvider llm.EmbeddingProvider) *Retriever {
	return &Retriever{
		store:         vectorStore,
		embedProvider: embedProvider,
	}
}

// Retrieve 执行检索。k <= 0 时直接返回空结果，不调用嵌入服务。
func (r *Retriever) Retrieve(ctx context.Context, question string, k int) (*RetrievedSet, error) {
	set := &RetrievedSet{Query: question, Passages: []*store.SearchResult{}}
	if k <= 0 {
		return set, nil
	}

	vector, err := r.embedProvider.EmbedSingle(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to embed question: %w", ErrRetrieval, err)
	}

	results, err := r.store.Search(ctx, vector, k)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to search index: %w", ErrRetrieval, err)
	}
	if len(results) > k {
		results = results[:k]
	}
	set.Passages = results

	logger.Debugw("passages retrieved",
		"k", k,
		"found", len(results),
		"backend", r.store.Backend(),
	)
	return set, nil
}
