package response

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kart-io/mida-chat/pkg/utils/errors"
	"github.com/kart-io/mida-chat/pkg/utils/validator"
)

// HeaderXRequestID is the header carrying the request ID. The request-id
// middleware sets it on the response before handlers run.
const HeaderXRequestID = "X-Request-ID"

func send(c *gin.Context, r *Response) {
	r.RequestID = c.Writer.Header().Get(HeaderXRequestID)
	r.Timestamp = time.Now().UnixMilli()
	c.JSON(r.HTTPStatus(), r)
}

// OK writes a success envelope.
func OK(c *gin.Context, data any) {
	send(c, Success(data))
}

// Fail writes an error envelope for e.
func Fail(c *gin.Context, e *errors.Errno) {
	send(c, Err(e))
}

// FailWithError converts err with errors.FromError and writes it.
func FailWithError(c *gin.Context, err error) {
	Fail(c, errors.FromError(err))
}

// FailWithBindOrValidation writes validation errors with per-field messages,
// and any other bind error as ErrInvalidParam.
func FailWithBindOrValidation(c *gin.Context, err error) {
	if verr, ok := err.(*validator.ValidationErrors); ok {
		send(c, ErrWithData(errors.ErrInvalidParam.WithMessage(verr.First()), verr.ToMap()))
		return
	}
	Fail(c, errors.ErrInvalidParam.WithMessage("invalid request body: "+err.Error()))
}
