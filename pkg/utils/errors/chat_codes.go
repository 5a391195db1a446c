package errors

import "net/http"

// Chat 服务错误码 (服务代码 21)
var (
	// 请求错误 (类别 01)
	ErrChatInvalidRequest = Register(New(MakeCode(ServiceChat, CategoryRequest, 1), http.StatusBadRequest, "Invalid chat request", "对话请求无效"))
	ErrChatEmptyQuestion  = Register(New(MakeCode(ServiceChat, CategoryRequest, 2), http.StatusBadRequest, "Question must not be empty", "问题不能为空"))

	// 会话错误 (类别 04 / 05)
	ErrChatSessionNotFound = Register(New(MakeCode(ServiceChat, CategoryResource, 1), http.StatusNotFound, "Session not found", "会话不存在"))
	ErrChatTurnInFlight    = Register(New(MakeCode(ServiceChat, CategoryConflict, 1), http.StatusConflict, "A question is already being answered for this session", "当前会话正在回答问题"))

	// 管线错误 (类别 07 / 10)
	ErrChatRetrievalFailed    = Register(New(MakeCode(ServiceChat, CategoryInternal, 1), http.StatusInternalServerError, "Passage retrieval failed", "段落检索失败"))
	ErrChatGenerationFailed   = Register(New(MakeCode(ServiceChat, CategoryNetwork, 1), http.StatusBadGateway, "Answer generation failed", "答案生成失败"))
	ErrChatServiceUnavailable = Register(New(MakeCode(ServiceChat, CategoryNetwork, 2), http.StatusServiceUnavailable, "Chat service unavailable", "对话服务不可用"))
)
