package handler

import (
	"embed"
	"html/template"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/kart-io/mida-chat/internal/chat/biz"
	"github.com/kart-io/mida-chat/pkg/utils/id"
	"github.com/kart-io/mida-chat/pkg/utils/response"
)

const (
	// PageTitle 页面标题。
	PageTitle = "MIDA Malaysia Conversational Chatbot"
	// InputPlaceholder 输入框占位文字。
	InputPlaceholder = "Ask about MIDA Malaysia..."

	pageTemplate = "index.html.tmpl"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// Templates 解析页面模板，供 gin.Engine.SetHTMLTemplate 使用。
func Templates() *template.Template {
	return template.Must(template.New("").ParseFS(templateFS, "templates/*.tmpl"))
}

// PageHandler 渲染聊天页面，会话 ID 保存在 cookie 中。
type PageHandler struct {
	service    biz.Service
	cookieName string
}

// NewPageHandler creates a new PageHandler.
func NewPageHandler(service biz.Service, cookieName string) *PageHandler {
	return &PageHandler{service: service, cookieName: cookieName}
}

type pageData struct {
	Title       string
	Placeholder string
	Greeting    string
	SessionID   string
	Error       string
	Exchanges   []biz.Exchange
	// Open 是需要展开的问题序号，0 表示全部折叠。
	Open int
	Busy bool
}

// Index 渲染页面。首次访问时创建会话并下发 cookie。
func (h *PageHandler) Index(c *gin.Context) {
	sess, err := h.session(c)
	if err != nil {
		response.Fail(c, toErrno(err))
		return
	}
	open, _ := strconv.Atoi(c.Query("open"))
	h.render(c, http.StatusOK, sess, open, "")
}

// Ask 处理无脚本时的表单提交，成功后 303 跳回页面并展开新问题。
func (h *PageHandler) Ask(c *gin.Context) {
	sess, err := h.session(c)
	if err != nil {
		response.Fail(c, toErrno(err))
		return
	}

	result, err := h.service.Ask(c.Request.Context(), sess.ID(), c.PostForm("question"))
	if err != nil {
		e := toErrno(err)
		h.render(c, e.HTTPStatus(), sess, 0, e.MessageEN)
		return
	}
	c.Redirect(http.StatusSeeOther, "/?open="+strconv.Itoa(result.Index))
}

func (h *PageHandler) session(c *gin.Context) (*biz.Session, error) {
	sessionID, _ := c.Cookie(h.cookieName)
	if !id.IsULID(sessionID) {
		sessionID = ""
	}

	sess, err := h.service.SessionFor(c.Request.Context(), sessionID)
	if err != nil {
		return nil, err
	}
	if sess.ID() != sessionID {
		// 不设置 MaxAge：浏览器会话结束时 cookie 失效
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(h.cookieName, sess.ID(), 0, "/", "", c.Request.TLS != nil, true)
	}
	return sess, nil
}

func (h *PageHandler) render(c *gin.Context, status int, sess *biz.Session, open int, errMsg string) {
	greeting := biz.Greeting
	if turns := sess.All(); len(turns) > 0 {
		greeting = turns[0].Text
	}
	c.HTML(status, pageTemplate, pageData{
		Title:       PageTitle,
		Placeholder: InputPlaceholder,
		Greeting:    greeting,
		SessionID:   sess.ID(),
		Error:       errMsg,
		Exchanges:   sess.Pairs(),
		Open:        open,
		Busy:        sess.Busy(),
	})
}
