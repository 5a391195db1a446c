package store

import (
	"context"
	"errors"
)

var (
	// ErrIndexNotFound 索引目录、index.json 或 Milvus 集合不存在。
	ErrIndexNotFound = errors.New("passage index not found")
	// ErrIndexCorrupt 索引内容无法解析或向量维度不一致。
	ErrIndexCorrupt = errors.New("passage index is corrupt")
	// ErrDimensionMismatch 查询向量维度与索引不一致。
	ErrDimensionMismatch = errors.New("query vector dimension does not match index")
)

// Passage 表示索引中的一个文本段落。加载后不可变。
type Passage struct {
	// ID 段落 ID。
	ID string `json:"id"`
	// Text 段落原文，原样拼入 prompt。
	Text string `json:"text"`
	// Source 来源元数据（例如文件名），下游不解析。
	Source string `json:"source,omitempty"`
	// Vector 嵌入向量。
	Vector []float32 `json:"vector,omitempty"`
}

// SearchResult 表示检索结果。
type SearchResult struct {
	Passage
	// Score 余弦相似度。
	Score float32 `json:"score"`
}

// VectorStore 定义只读的段落检索接口。
type VectorStore interface {
	// Search 返回与 vector 最相似的至多 topK 个段落，按分数降序排列。
	Search(ctx context.Context, vector []float32, topK int) ([]*SearchResult, error)

	// Count 返回段落数量。
	Count(ctx context.Context) (int64, error)

	// Model 返回建索引时使用的 Embedding 模型，未知时为空。
	Model() string

	// Backend 返回后端名称。
	Backend() string

	// Close 释放资源。
	Close(ctx context.Context) error
}

// PassageWriter 由索引构建器使用，将嵌入后的段落写入后端。
type PassageWriter interface {
	WritePassages(ctx context.Context, model string, passages []*Passage) error
}
