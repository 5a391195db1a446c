package http

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddFlags(t *testing.T) {
	o := NewOptions()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	o.AddFlags(fs, "server")

	require.NoError(t, fs.Parse([]string{"--server.http.addr=:9000", "--server.http.write-timeout=2m"}))
	assert.Equal(t, ":9000", o.Addr)
	assert.Equal(t, 2*time.Minute, o.WriteTimeout)
	assert.Empty(t, o.Validate())
}

func TestValidate(t *testing.T) {
	o := NewOptions()
	o.ApplyOptions(WithAddr(""), WithMode("fast"))
	assert.Len(t, o.Validate(), 2)
}
