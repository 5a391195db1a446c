package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/mida-chat/internal/chat/biz"
	"github.com/kart-io/mida-chat/internal/chat/metrics"
	"github.com/kart-io/mida-chat/internal/chat/store"
	"github.com/kart-io/mida-chat/pkg/infra/middleware"
	"github.com/kart-io/mida-chat/pkg/llm"
	errno "github.com/kart-io/mida-chat/pkg/utils/errors"
	"github.com/kart-io/mida-chat/pkg/utils/json"
	"github.com/kart-io/mida-chat/pkg/utils/response"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const cookieName = "mida_session"

type fixedEmbedder struct{}

func (fixedEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0}
	}
	return out, nil
}

func (e fixedEmbedder) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	v, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return v[0], nil
}

func (fixedEmbedder) Name() string { return "fixed" }

type cannedChat struct {
	answer string
	err    error
}

func (c *cannedChat) Chat(context.Context, []llm.Message) (string, error) { return c.answer, c.err }
func (c *cannedChat) Name() string                                        { return "canned" }

type testServer struct {
	engine  *gin.Engine
	service *biz.ChatService
	chat    *cannedChat
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	idx, err := store.NewMemoryIndex("fixed", []*store.Passage{
		{ID: "p1", Text: "MIDA stands for Malaysian Investment Development Authority.", Vector: []float32{1, 0}},
	})
	require.NoError(t, err)

	sessions := biz.NewMemorySessionStore(0)
	t.Cleanup(func() { _ = sessions.Close() })

	chat := &cannedChat{answer: "MIDA stands for Malaysian Investment Development Authority.\nHuman: more?"}
	svc := biz.NewChatService(idx, fixedEmbedder{}, chat, sessions, nil, &biz.ServiceConfig{TopK: 4}).
		WithMetrics(metrics.New())

	engine := gin.New()
	engine.Use(middleware.RequestID())
	engine.SetHTMLTemplate(Templates())

	page := NewPageHandler(svc, cookieName)
	api := NewChatHandler(svc)
	ops := NewOpsHandler(svc, "mida-chat")
	engine.GET("/", page.Index)
	engine.POST("/ask", page.Ask)
	engine.POST("/v1/chat/sessions", api.CreateSession)
	engine.GET("/v1/chat/sessions/:id", api.GetSession)
	engine.POST("/v1/chat/sessions/:id/turns", api.Ask)
	engine.GET("/v1/chat/stats", api.Stats)
	engine.GET("/healthz", ops.Healthz)
	engine.GET("/readyz", ops.Readyz)
	engine.GET("/version", ops.Version)
	engine.GET("/metrics", ops.Metrics)

	return &testServer{engine: engine, service: svc, chat: chat}
}

func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder, data any) response.Response {
	t.Helper()
	var raw struct {
		response.Response
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw))
	if data != nil && len(raw.Data) > 0 {
		require.NoError(t, json.Unmarshal(raw.Data, data))
	}
	return raw.Response
}

func TestAPITurnFlow(t *testing.T) {
	s := newTestServer(t)

	w := s.do(httptest.NewRequest(http.MethodPost, "/v1/chat/sessions", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var created TranscriptResponse
	env := decodeEnvelope(t, w, &created)
	assert.True(t, env.IsSuccess())
	assert.NotEmpty(t, env.RequestID)
	require.Len(t, created.Turns, 1)
	assert.Equal(t, biz.Greeting, created.Turns[0].Text)

	turnURL := "/v1/chat/sessions/" + created.SessionID + "/turns"
	req := httptest.NewRequest(http.MethodPost, turnURL, strings.NewReader(`{"question":"What is MIDA?"}`))
	req.Header.Set("Content-Type", "application/json")
	w = s.do(req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var result biz.TurnResult
	decodeEnvelope(t, w, &result)
	assert.Equal(t, "MIDA stands for Malaysian Investment Development Authority.", result.Answer)
	assert.Equal(t, 1, result.Index)
	require.Len(t, result.Passages, 1)

	w = s.do(httptest.NewRequest(http.MethodGet, "/v1/chat/sessions/"+created.SessionID, nil))
	require.Equal(t, http.StatusOK, w.Code)
	var transcript TranscriptResponse
	decodeEnvelope(t, w, &transcript)
	assert.Len(t, transcript.Turns, 3)
	require.Len(t, transcript.Exchanges, 1)
	assert.Equal(t, "Question 1: What is MIDA?...", transcript.Exchanges[0].Label)
	assert.False(t, transcript.Busy)
}

func TestAPIErrors(t *testing.T) {
	s := newTestServer(t)
	sess, err := s.service.CreateSession(context.Background())
	require.NoError(t, err)
	turnURL := "/v1/chat/sessions/" + sess.ID() + "/turns"

	tests := []struct {
		name     string
		url      string
		body     string
		setup    func()
		wantHTTP int
		wantCode int
	}{
		{name: "blank question", url: turnURL, body: `{"question":"   "}`, wantHTTP: http.StatusBadRequest, wantCode: errno.ErrChatEmptyQuestion.Code},
		{name: "missing question", url: turnURL, body: `{}`, wantHTTP: http.StatusBadRequest, wantCode: errno.ErrChatEmptyQuestion.Code},
		{name: "malformed body", url: turnURL, body: `{"question":`, wantHTTP: http.StatusBadRequest, wantCode: errno.ErrInvalidParam.Code},
		{name: "unknown session", url: "/v1/chat/sessions/01ARZ3NDEKTSV4RRFFQ69G5FAV/turns", body: `{"question":"hi"}`, wantHTTP: http.StatusNotFound, wantCode: errno.ErrChatSessionNotFound.Code},
		{
			name:     "generation failure",
			url:      turnURL,
			body:     `{"question":"hi"}`,
			setup:    func() { s.chat.err = errors.New("throttled") },
			wantHTTP: http.StatusBadGateway,
			wantCode: errno.ErrChatGenerationFailed.Code,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.setup != nil {
				tt.setup()
			}
			req := httptest.NewRequest(http.MethodPost, tt.url, strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := s.do(req)

			assert.Equal(t, tt.wantHTTP, w.Code)
			env := decodeEnvelope(t, w, nil)
			assert.Equal(t, tt.wantCode, env.Code)
			assert.NotContains(t, w.Body.String(), "throttled", "causes are not leaked to clients")
		})
	}
	assert.Equal(t, 1, sess.Len(), "failed turns leave the session unchanged")
}

func TestToErrno(t *testing.T) {
	tests := []struct {
		err  error
		want *errno.Errno
	}{
		{fmt.Errorf("x: %w", biz.ErrTurnInFlight), errno.ErrChatTurnInFlight},
		{fmt.Errorf("x: %w", biz.ErrRetrieval), errno.ErrChatRetrievalFailed},
		{fmt.Errorf("x: %w", biz.ErrServiceUnavailable), errno.ErrChatServiceUnavailable},
		{biz.ErrStoreClosed, errno.ErrChatServiceUnavailable},
		{context.DeadlineExceeded, errno.ErrTimeout},
		{errors.New("boom"), errno.ErrInternal},
	}
	for _, tt := range tests {
		got := toErrno(tt.err)
		assert.Equal(t, tt.want.Code, got.Code, tt.err.Error())
		assert.Equal(t, tt.want.HTTPStatus(), got.HTTPStatus())
	}
	assert.Nil(t, toErrno(nil))
	assert.Equal(t, http.StatusConflict, toErrno(biz.ErrTurnInFlight).HTTPStatus())
	assert.Equal(t, http.StatusInternalServerError, toErrno(biz.ErrRetrieval).HTTPStatus())
}

func TestPageIssuesCookieAndRenders(t *testing.T) {
	s := newTestServer(t)

	w := s.do(httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "<title>MIDA Malaysia Conversational Chatbot</title>")
	assert.Contains(t, body, `placeholder="Ask about MIDA Malaysia..."`)
	assert.Contains(t, body, "Feel free to ask me anything!")

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, cookieName, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	assert.Zero(t, cookies[0].MaxAge)

	// 带 cookie 再次访问不会重新下发
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	w = s.do(req)
	assert.Empty(t, w.Result().Cookies())
}

func TestPageFormAsk(t *testing.T) {
	s := newTestServer(t)

	w := s.do(httptest.NewRequest(http.MethodGet, "/", nil))
	cookie := w.Result().Cookies()[0]

	form := url.Values{"question": {"What is MIDA? <script>"}}
	req := httptest.NewRequest(http.MethodPost, "/ask", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(cookie)
	w = s.do(req)
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/?open=1", w.Header().Get("Location"))

	req = httptest.NewRequest(http.MethodGet, "/?open=1", nil)
	req.AddCookie(cookie)
	w = s.do(req)
	body := w.Body.String()
	assert.Contains(t, body, "<details open>")
	assert.Contains(t, body, "<summary>Question 1: What is MIDA? &lt;script&gt;...</summary>")
	assert.Contains(t, body, "<strong>User:</strong> What is MIDA? &lt;script&gt;")
	assert.Contains(t, body, "<strong>Assistant:</strong> MIDA stands for Malaysian Investment Development Authority.")
	assert.NotContains(t, body, "Human:")
}

func TestPageFormAskError(t *testing.T) {
	s := newTestServer(t)
	form := url.Values{"question": {"  "}}
	req := httptest.NewRequest(http.MethodPost, "/ask", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := s.do(req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `role="alert"`)
	assert.Len(t, w.Result().Cookies(), 1)
}

func TestOpsEndpoints(t *testing.T) {
	s := newTestServer(t)

	w := s.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var ready struct {
		Status string         `json:"status"`
		Index  biz.IndexStats `json:"index"`
	}
	decodeEnvelope(t, w, &ready)
	assert.Equal(t, "ready", ready.Status)
	assert.Equal(t, int64(1), ready.Index.Passages)

	w = s.do(httptest.NewRequest(http.MethodGet, "/version", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	var build struct {
		Service string `json:"service"`
	}
	env := decodeEnvelope(t, w, &build)
	assert.True(t, env.IsSuccess())
	assert.Equal(t, "mida-chat", build.Service)

	w = s.do(httptest.NewRequest(http.MethodGet, "/v1/chat/stats", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var stats biz.ServiceStats
	decodeEnvelope(t, w, &stats)
	assert.Equal(t, "fixed", stats.EmbeddingProvider)
	assert.Equal(t, "canned", stats.ChatProvider)

	w = s.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "mida_chat_turns_total 0")
}
