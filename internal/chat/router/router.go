// Package router provides chat service routing.
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/mida-chat/internal/chat/handler"
	"github.com/kart-io/mida-chat/pkg/infra/middleware"
	mwopts "github.com/kart-io/mida-chat/pkg/options/middleware"
	"github.com/kart-io/mida-chat/pkg/utils/errors"
	"github.com/kart-io/mida-chat/pkg/utils/response"
)

// Handlers groups the HTTP handlers of the chat service.
type Handlers struct {
	Page *handler.PageHandler
	Chat *handler.ChatHandler
	Ops  *handler.OpsHandler
}

// NewEngine creates a gin engine with the middleware chain and page
// templates installed.
func NewEngine(mode string, opts *mwopts.Options) *gin.Engine {
	gin.SetMode(mode)

	engine := gin.New()
	engine.Use(middleware.RequestID(), middleware.Recovery(opts), middleware.Logger(opts))
	if opts.Tracing {
		engine.Use(middleware.Tracing(opts))
	}
	engine.SetHTMLTemplate(handler.Templates())
	engine.NoRoute(func(c *gin.Context) {
		response.Fail(c, errors.ErrRouteNotFound)
	})
	return engine
}

// Register registers the chat service routes.
func Register(engine *gin.Engine, h *Handlers) {
	logger.Info("Registering chat routes...")

	// Page
	engine.GET("/", h.Page.Index)
	engine.POST("/ask", h.Page.Ask)

	// Chat API Routes
	v1 := engine.Group("/v1")
	{
		chat := v1.Group("/chat")
		{
			chat.POST("/sessions", h.Chat.CreateSession)
			chat.GET("/sessions/:id", h.Chat.GetSession)
			chat.POST("/sessions/:id/turns", h.Chat.Ask)
			chat.GET("/stats", h.Chat.Stats)
		}
	}

	// Ops
	engine.GET("/healthz", h.Ops.Healthz)
	engine.GET("/readyz", h.Ops.Readyz)
	engine.GET("/version", h.Ops.Version)
	engine.GET("/metrics", h.Ops.Metrics)
	engine.HEAD("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })

	logger.Info("HTTP routes registered")
}
