package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/kart-io/logger"

	"github.com/kart-io/mida-chat/pkg/utils/json"
)

// IndexFileName 是索引目录中的数据文件名。
const IndexFileName = "index.json"

// IndexVersion 是当前的索引文件格式版本。
const IndexVersion = 1

// indexFile 是 index.json 的磁盘格式。
type indexFile struct {
	Version   int        `json:"version"`
	Model     string     `json:"model"`
	Dimension int        `json:"dimension"`
	Passages  []*Passage `json:"passages"`
}

// LoadIndex 从目录 dir 加载 index.json。
// 目录或文件缺失返回 ErrIndexNotFound，内容无法解析或维度不一致返回 ErrIndexCorrupt。
func LoadIndex(dir string) (*MemoryIndex, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrIndexNotFound, dir)
		}
		return nil, fmt.Errorf("failed to stat index directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrIndexNotFound, dir)
	}

	path := filepath.Join(dir, IndexFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrIndexNotFound, path)
		}
		return nil, fmt.Errorf("failed to read index: %w", err)
	}

	var f indexFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrIndexCorrupt, path, err)
	}
	if f.Version != IndexVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrIndexCorrupt, f.Version)
	}
	for i, p := range f.Passages {
		if p == nil {
			return nil, fmt.Errorf("%w: passage %d is null", ErrIndexCorrupt, i)
		}
		if len(p.Vector) != f.Dimension {
			return nil, fmt.Errorf("%w: passage %d (%s) has dimension %d, want %d",
				ErrIndexCorrupt, i, p.ID, len(p.Vector), f.Dimension)
		}
	}

	idx, err := NewMemoryIndex(f.Model, f.Passages)
	if err != nil {
		return nil, err
	}
	idx.dimension = f.Dimension

	logger.Infow("passage index loaded",
		"path", path,
		"model", f.Model,
		"dimension", f.Dimension,
		"passages", len(f.Passages),
	)
	return idx, nil
}

// SaveIndex 将段落写入 dir/index.json，先写临时文件再原子替换。
func SaveIndex(dir, model string, passages []*Passage) error {
	idx, err := NewMemoryIndex(model, passages)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create index directory: %w", err)
	}

	data, err := json.Marshal(&indexFile{
		Version:   IndexVersion,
		Model:     model,
		Dimension: idx.Dimension(),
		Passages:  passages,
	})
	if err != nil {
		return fmt.Errorf("failed to encode index: %w", err)
	}

	tmp, err := os.CreateTemp(dir, IndexFileName+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp index file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write index: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close index: %w", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(dir, IndexFileName)); err != nil {
		return fmt.Errorf("failed to replace index: %w", err)
	}
	return nil
}

// FileWriter 把段落写入索引目录。
type FileWriter struct {
	Dir string
}

var _ PassageWriter = (*FileWriter)(nil)

// WritePassages 实现 PassageWriter。
func (w *FileWriter) WritePassages(_ context.Context, model string, passages []*Passage) error {
	return SaveIndex(w.Dir, model, passages)
}
