package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpopts "github.com/kart-io/mida-chat/pkg/options/server/http"
)

type fakeServer struct {
	name     string
	startErr error
	mu       *sync.Mutex
	events   *[]string
}

func (f *fakeServer) Name() string { return f.name }

func (f *fakeServer) Start(context.Context) error {
	f.record("start " + f.name)
	return f.startErr
}

func (f *fakeServer) Stop(context.Context) error {
	f.record("stop " + f.name)
	return nil
}

func (f *fakeServer) record(e string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	*f.events = append(*f.events, e)
}

func TestManagerOrder(t *testing.T) {
	var mu sync.Mutex
	var events []string
	m := NewManager(time.Second,
		&fakeServer{name: "a", mu: &mu, events: &events},
		&fakeServer{name: "b", mu: &mu, events: &events},
	)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, m.Run(ctx))

	assert.Equal(t, []string{"start a", "start b", "stop b", "stop a"}, events)
}

func TestManagerStartFailureRollsBack(t *testing.T) {
	var mu sync.Mutex
	var events []string
	m := NewManager(time.Second,
		&fakeServer{name: "a", mu: &mu, events: &events},
		&fakeServer{name: "b", startErr: errors.New("address in use"), mu: &mu, events: &events},
	)

	err := m.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "address in use")
	assert.Equal(t, []string{"start a", "start b", "stop a"}, events)
	assert.NoError(t, m.Stop(context.Background()))
}

func TestHTTPServer(t *testing.T) {
	opts := httpopts.NewOptions()
	opts.Addr = "127.0.0.1:0"

	s := NewHTTPServer(opts, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "ok")
	}))
	require.NoError(t, s.Start(context.Background()))

	resp, err := http.Get(fmt.Sprintf("http://%s/", s.Addr()))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, "ok", string(body))

	require.NoError(t, s.Stop(context.Background()))
	_, open := <-s.Done()
	assert.False(t, open)
}

func TestHTTPServerBindError(t *testing.T) {
	opts := httpopts.NewOptions()
	opts.Addr = "127.0.0.1:0"
	first := NewHTTPServer(opts, http.NotFoundHandler())
	require.NoError(t, first.Start(context.Background()))
	defer func() { _ = first.Stop(context.Background()) }()

	taken := httpopts.NewOptions()
	taken.Addr = first.Addr().String()
	err := NewHTTPServer(taken, http.NotFoundHandler()).Start(context.Background())
	assert.Error(t, err)
}
