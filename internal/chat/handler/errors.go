package handler

import (
	"context"
	"errors"

	"github.com/kart-io/mida-chat/internal/chat/biz"
	errno "github.com/kart-io/mida-chat/pkg/utils/errors"
)

// toErrno 将业务错误映射为对外错误码。
func toErrno(err error) *errno.Errno {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, biz.ErrEmptyQuestion):
		return errno.ErrChatEmptyQuestion
	case errors.Is(err, biz.ErrSessionNotFound):
		return errno.ErrChatSessionNotFound
	case errors.Is(err, biz.ErrTurnInFlight):
		return errno.ErrChatTurnInFlight
	case errors.Is(err, biz.ErrGeneration):
		return errno.ErrChatGenerationFailed.WithCause(err)
	case errors.Is(err, biz.ErrRetrieval):
		return errno.ErrChatRetrievalFailed.WithCause(err)
	case errors.Is(err, biz.ErrServiceUnavailable), errors.Is(err, biz.ErrStoreClosed):
		return errno.ErrChatServiceUnavailable.WithCause(err)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return errno.ErrTimeout.WithCause(err)
	default:
		return errno.FromError(err)
	}
}
