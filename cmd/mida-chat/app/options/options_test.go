package options

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	chatopts "github.com/kart-io/mida-chat/pkg/options/chat"
)

func TestFlagSections(t *testing.T) {
	fss := NewServerOptions().Flags()

	for _, name := range []string{"http", "log", "tracing", "middleware", "milvus", "chat", "cache"} {
		assert.Contains(t, fss.Order, name)
	}
	assert.NotNil(t, fss.FlagSets["chat"].Lookup("chat.retrieval.top-k"))
	assert.NotNil(t, fss.FlagSets["cache"].Lookup("cache.redis.host"))
	assert.NotNil(t, fss.FlagSets["http"].Lookup("http.addr"))
}

func TestValidate(t *testing.T) {
	t.Setenv("AWS_ACCESS_KEY_ID", "AKIA")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "secret")
	t.Setenv("REGION_NAME", "ap-southeast-1")

	o := NewServerOptions()
	require.NoError(t, o.Complete())
	assert.NoError(t, o.Validate())

	// Milvus 只在选中时校验
	o.MilvusOptions.Address = ""
	assert.NoError(t, o.Validate())
	o.ChatOptions.Index.Backend = chatopts.BackendMilvus
	assert.Error(t, o.Validate())

	cfg, err := o.Config()
	require.NoError(t, err)
	assert.Same(t, o.ChatOptions, cfg.ChatOptions)
}

func TestValidateMissingCredentials(t *testing.T) {
	t.Setenv("AWS_ACCESS_KEY_ID", "")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "")
	t.Setenv("REGION_NAME", "")

	o := NewServerOptions()
	require.NoError(t, o.Complete())
	assert.Error(t, o.Validate())
}
