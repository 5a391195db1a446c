package middleware

import (
	"fmt"
	"os"
	"runtime/debug"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/mida-chat/pkg/infra/middleware/common"
	mwopts "github.com/kart-io/mida-chat/pkg/options/middleware"
	"github.com/kart-io/mida-chat/pkg/utils/errors"
	"github.com/kart-io/mida-chat/pkg/utils/response"
)

// Recovery recovers handler panics, logs the stack and answers ErrPanic.
// Stack traces reach the client only when enabled and APP_ENV is not
// production.
func Recovery(opts *mwopts.Options) gin.HandlerFunc {
	withStack := opts.EnableStackTrace
	if withStack && isProductionEnvironment() {
		logger.Warn("Stack trace in panic responses is disabled in production")
		withStack = false
	}

	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			stack := debug.Stack()
			logger.Errorw("panic recovered",
				"panic", r,
				"stack_trace", string(stack),
				"path", c.Request.URL.Path,
				"method", c.Request.Method,
				"request_id", common.GetRequestID(c.Request.Context()),
			)

			msg := fmt.Sprintf("panic: %v", r)
			if withStack {
				msg += "\n" + string(stack)
			}
			response.Fail(c, errors.ErrPanic.WithMessage(msg))
			c.Abort()
		}()
		c.Next()
	}
}

func isProductionEnvironment() bool {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = os.Getenv("GO_ENV")
	}
	switch strings.ToLower(env) {
	case "production", "prod":
		return true
	default:
		return false
	}
}
