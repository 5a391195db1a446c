package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kart-io/mida-chat/internal/chat/biz"
	"github.com/kart-io/mida-chat/pkg/infra/app"
	"github.com/kart-io/mida-chat/pkg/utils/response"
)

const (
	metricsNamespace = "mida"
	metricsSubsystem = "chat"
)

// OpsHandler serves liveness, readiness, version and metrics.
type OpsHandler struct {
	service biz.Service
	name    string
}

// NewOpsHandler creates a new OpsHandler. name is reported by /version.
func NewOpsHandler(service biz.Service, name string) *OpsHandler {
	return &OpsHandler{service: service, name: name}
}

// Healthz reports liveness.
func (h *OpsHandler) Healthz(c *gin.Context) {
	response.OK(c, gin.H{"status": "ok"})
}

// Readyz reports ready once the passage index answers a count.
func (h *OpsHandler) Readyz(c *gin.Context) {
	index, err := h.service.Index(c.Request.Context())
	if err != nil {
		response.Fail(c, toErrno(err))
		return
	}
	response.OK(c, gin.H{"status": "ready", "index": index})
}

// Version returns build information.
func (h *OpsHandler) Version(c *gin.Context) {
	response.OK(c, app.NewBuildInfo(h.name))
}

// Metrics exports the business metrics in Prometheus text format.
func (h *OpsHandler) Metrics(c *gin.Context) {
	c.Data(http.StatusOK, "text/plain; version=0.0.4; charset=utf-8",
		[]byte(h.service.Metrics().Export(metricsNamespace, metricsSubsystem)))
}
