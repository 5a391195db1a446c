package biz

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/kart-io/logger"
	"github.com/kart-io/mida-chat/internal/chat/metrics"
	"github.com/kart-io/mida-chat/internal/chat/store"
	"github.com/kart-io/mida-chat/internal/pkg/textutil"
	"github.com/kart-io/mida-chat/pkg/infra/pool"
	"github.com/kart-io/mida-chat/pkg/llm"
)

// ErrNoDocuments 源目录中没有可索引的文档。
var ErrNoDocuments = errors.New("no .txt or .md documents found")

// IndexerConfig 索引器配置。
type IndexerConfig struct {
	// ChunkSize 文本块大小（字符）。
	ChunkSize int
	// ChunkOverlap 块重叠大小。
	ChunkOverlap int
	// BatchSize 每次嵌入请求的段落数。
	BatchSize int
	// Model 写入索引的嵌入模型名称。
	Model string
}

// IndexReport 索引构建结果。
type IndexReport struct {
	Documents int           `json:"documents"`
	Chunks    int           `json:"chunks"`
	Duration  time.Duration `json:"duration"`
}

// Indexer 读取文档、分块、嵌入并写入索引。
type Indexer struct {
	embedProvider llm.EmbeddingProvider
	writer        store.PassageWriter
	workers       *pool.Pool
	metrics       *metrics.ChatMetrics
	config        *IndexerConfig
}

// NewIndexer 创建索引器实例。workers 为 nil 时顺序嵌入。
func NewIndexer(embedProvider llm.EmbeddingProvider, writer store.PassageWriter, workers *pool.Pool, config *IndexerConfig) *Indexer {
	return &Indexer{
		embedProvider: embedProvider,
		writer:        writer,
		workers:       workers,
		metrics:       metrics.GetChatMetrics(),
		config:        config,
	}
}

// IndexDirectory 索引目录中的所有 .txt 和 .md 文件。
// 文件按路径字典序处理，块保持文档内顺序，因此同样的输入总是产生同样的段落顺序。
func (ix *Indexer) IndexDirectory(ctx context.Context, dir string) (*IndexReport, error) {
	start := time.Now()
	report, err := ix.indexDirectory(ctx, dir)
	if err != nil {
		ix.metrics.RecordIndexing(0, 0, err)
		return nil, err
	}
	report.Duration = time.Since(start)
	ix.metrics.RecordIndexing(report.Documents, report.Chunks, nil)

	logger.Infow("index built",
		"source", dir,
		"documents", report.Documents,
		"chunks", report.Chunks,
		"duration", report.Duration.String(),
	)
	return report, nil
}

func (ix *Indexer) indexDirectory(ctx context.Context, dir string) (*IndexReport, error) {
	files, err := listDocuments(dir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoDocuments, dir)
	}

	var passages []*store.Passage
	for _, rel := range files {
		data, err := os.ReadFile(filepath.Join(dir, rel))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", rel, err)
		}
		chunks := textutil.SplitIntoChunks(textutil.NormalizeWhitespace(string(data)), ix.config.ChunkSize, ix.config.ChunkOverlap)
		source := filepath.ToSlash(rel)
		for i, chunk := range chunks {
			passages = append(passages, &store.Passage{
				ID:     passageID(source, i),
				Text:   chunk,
				Source: source,
			})
		}
		logger.Debugw("document chunked", "source", source, "chunks", len(chunks))
	}

	if err := ix.embedPassages(ctx, passages); err != nil {
		return nil, err
	}

	if err := ix.writer.WritePassages(ctx, ix.config.Model, passages); err != nil {
		return nil, fmt.Errorf("failed to write passages: %w", err)
	}

	return &IndexReport{Documents: len(files), Chunks: len(passages)}, nil
}

// embedPassages 按批并发嵌入，每批只写入自己的下标范围。
func (ix *Indexer) embedPassages(ctx context.Context, passages []*store.Passage) error {
	batchSize := ix.config.BatchSize
	if batchSize <= 0 {
		batchSize = len(passages)
	}

	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)
	setErr := func(err error) {
		errOnce.Do(func() { firstErr = err })
	}

	for lo := 0; lo < len(passages); lo += batchSize {
		hi := min(lo+batchSize, len(passages))
		batch := passages[lo:hi]

		task := func() {
			defer wg.Done()
			if err := ix.embedBatch(ctx, batch); err != nil {
				setErr(fmt.Errorf("failed to embed passages %d-%d: %w", lo, hi-1, err))
			}
		}

		wg.Add(1)
		if ix.workers == nil {
			task()
			continue
		}
		if err := ix.workers.Submit(task); err != nil {
			wg.Done()
			setErr(fmt.Errorf("failed to submit embedding batch: %w", err))
			break
		}
	}
	wg.Wait()
	return firstErr
}

func (ix *Indexer) embedBatch(ctx context.Context, batch []*store.Passage) error {
	texts := make([]string, len(batch))
	for i, p := range batch {
		texts[i] = p.Text
	}
	vectors, err := ix.embedProvider.Embed(ctx, texts)
	if err != nil {
		return err
	}
	if len(vectors) != len(batch) {
		return fmt.Errorf("got %d vectors for %d passages", len(vectors), len(batch))
	}
	for i, p := range batch {
		p.Vector = vectors[i]
	}
	return nil
}

func listDocuments(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read source directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("source %s is not a directory", dir)
	}

	var files []string
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".txt", ".md":
			rel, err := filepath.Rel(dir, path)
			if err != nil {
				return err
			}
			files = append(files, rel)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk source directory: %w", err)
	}

	sort.Strings(files)
	return files, nil
}

func passageID(source string, chunk int) string {
	return textutil.HashString(source + "#" + strconv.Itoa(chunk))[:16]
}
