// Package index provides options for building the passage index.
package index

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"

	"github.com/kart-io/mida-chat/pkg/options"
	chatopts "github.com/kart-io/mida-chat/pkg/options/chat"
)

var _ options.IOptions = (*Options)(nil)

// Options 定义索引构建配置。
type Options struct {
	// Source 文档目录，读取其中的 .txt 和 .md 文件。
	Source string `json:"source" mapstructure:"source"`
	// Backend 输出后端（file, milvus）。
	Backend string `json:"backend" mapstructure:"backend"`
	// Path 输出目录（file）或集合名称（milvus）。
	Path string `json:"path" mapstructure:"path"`
	// ChunkSize 文本块大小（字符）。
	ChunkSize int `json:"chunk-size" mapstructure:"chunk-size"`
	// ChunkOverlap 相邻块重叠字符数。
	ChunkOverlap int `json:"chunk-overlap" mapstructure:"chunk-overlap"`
	// BatchSize 每次嵌入请求的块数。
	BatchSize int `json:"batch-size" mapstructure:"batch-size"`
	// Recreate 为 true 时先删除已有 Milvus 集合。
	Recreate bool `json:"recreate" mapstructure:"recreate"`
}

// NewOptions 创建默认索引构建配置。
func NewOptions() *Options {
	return &Options{
		Source:       "data/docs",
		Backend:      chatopts.BackendFile,
		Path:         "data/index",
		ChunkSize:    1000,
		ChunkOverlap: 200,
		BatchSize:    32,
	}
}

// AddFlags adds flags under "<prefixes>.index.".
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...) + "index."
	fs.StringVar(&o.Source, p+"source", o.Source, "Directory of .txt and .md documents to index.")
	fs.StringVar(&o.Backend, p+"backend", o.Backend, "Output backend (file, milvus).")
	fs.StringVar(&o.Path, p+"path", o.Path, "Output directory (file) or collection name (milvus).")
	fs.IntVar(&o.ChunkSize, p+"chunk-size", o.ChunkSize, "Chunk size in characters.")
	fs.IntVar(&o.ChunkOverlap, p+"chunk-overlap", o.ChunkOverlap, "Overlap between adjacent chunks in characters.")
	fs.IntVar(&o.BatchSize, p+"batch-size", o.BatchSize, "Chunks per embedding request.")
	fs.BoolVar(&o.Recreate, p+"recreate", o.Recreate, "Drop an existing Milvus collection first.")
}

// Complete normalizes the backend name.
func (o *Options) Complete() error {
	o.Backend = strings.ToLower(strings.TrimSpace(o.Backend))
	return nil
}

// Validate validates the index build options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.Source == "" {
		errs = append(errs, fmt.Errorf("index.source is required"))
	}
	switch o.Backend {
	case chatopts.BackendFile, chatopts.BackendMilvus:
	default:
		errs = append(errs, fmt.Errorf("index.backend %q is not one of file, milvus", o.Backend))
	}
	if o.Path == "" {
		errs = append(errs, fmt.Errorf("index.path is required"))
	}
	if o.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("index.chunk-size must be positive"))
	}
	if o.ChunkOverlap < 0 || o.ChunkOverlap >= o.ChunkSize {
		errs = append(errs, fmt.Errorf("index.chunk-overlap must be in [0, chunk-size)"))
	}
	if o.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("index.batch-size must be positive"))
	}
	return errs
}
