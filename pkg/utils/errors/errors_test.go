package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMakeAndParseCode(t *testing.T) {
	code := MakeCode(ServiceChat, CategoryConflict, 1)
	assert.Equal(t, 2105001, code)

	service, category, sequence := ParseCode(code)
	assert.Equal(t, ServiceChat, service)
	assert.Equal(t, CategoryConflict, category)
	assert.Equal(t, 1, sequence)

	assert.True(t, IsClientError(code))
	assert.False(t, IsServerError(code))
	assert.True(t, IsServerError(ErrChatGenerationFailed.Code))
}

func TestErrnoWithCause(t *testing.T) {
	cause := errors.New("bedrock: connection reset")
	err := ErrChatGenerationFailed.WithCause(cause)

	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, ErrChatGenerationFailed)
	assert.Contains(t, err.Error(), "connection reset")
	assert.Equal(t, http.StatusBadGateway, err.HTTPStatus())

	// the registered value is not mutated
	assert.Nil(t, ErrChatGenerationFailed.Unwrap())
}

func TestErrnoMessage(t *testing.T) {
	e := ErrChatSessionNotFound.WithMessage("session 01J not found")
	assert.Equal(t, "session 01J not found", e.Message("en"))
	assert.Equal(t, "会话不存在", e.Message("zh-CN"))
	assert.Equal(t, "Session not found", ErrChatSessionNotFound.MessageEN)
}

func TestFromError(t *testing.T) {
	assert.Nil(t, FromError(nil))

	wrapped := fmt.Errorf("handler: %w", ErrChatTurnInFlight)
	assert.Equal(t, ErrChatTurnInFlight.Code, FromError(wrapped).Code)

	plain := FromError(errors.New("boom"))
	assert.Equal(t, ErrInternal.Code, plain.Code)
	assert.Equal(t, http.StatusInternalServerError, plain.HTTPStatus())
}

func TestGetCode(t *testing.T) {
	assert.Equal(t, -1, GetCode(errors.New("x")))
	assert.True(t, IsCode(ErrChatEmptyQuestion, ErrChatEmptyQuestion.Code))
}

func TestRegisterDuplicatePanics(t *testing.T) {
	assert.Panics(t, func() {
		Register(New(ErrInternal.Code, http.StatusInternalServerError, "dup", ""))
	})
	_, ok := Lookup(ErrChatInvalidRequest.Code)
	assert.True(t, ok)
}
