package index

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	o := NewOptions()
	require.NoError(t, o.Complete())
	assert.Empty(t, o.Validate())
	assert.Equal(t, 1000, o.ChunkSize)
	assert.Equal(t, 200, o.ChunkOverlap)
}

func TestFlags(t *testing.T) {
	o := NewOptions()
	fs := pflag.NewFlagSet("index", pflag.ContinueOnError)
	o.AddFlags(fs)

	require.NoError(t, fs.Parse([]string{"--index.backend= Milvus", "--index.chunk-size=500", "--index.recreate"}))
	require.NoError(t, o.Complete())
	assert.Equal(t, "milvus", o.Backend)
	assert.Equal(t, 500, o.ChunkSize)
	assert.True(t, o.Recreate)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Options)
	}{
		{"empty source", func(o *Options) { o.Source = "" }},
		{"bad backend", func(o *Options) { o.Backend = "sqlite" }},
		{"empty path", func(o *Options) { o.Path = "" }},
		{"zero chunk size", func(o *Options) { o.ChunkSize = 0 }},
		{"overlap too large", func(o *Options) { o.ChunkOverlap = o.ChunkSize }},
		{"zero batch", func(o *Options) { o.BatchSize = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := NewOptions()
			tt.modify(o)
			assert.NotEmpty(t, o.Validate())
		})
	}
}
