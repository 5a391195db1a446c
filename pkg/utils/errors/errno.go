// Package errors provides the structured error codes returned by the HTTP API.
//
// Error Code Format: AABBCCC (7 digits)
//
//	AA  (00-99): Service code. 00 is shared, 21 is the chat service.
//	BB  (00-99): Category code, see the Category constants.
//	CCC (000-999): Sequence number within the category.
//
// Usage:
//
//	return errors.ErrInvalidParam.WithMessage("question is required")
//	return errors.ErrChatGenerationFailed.WithCause(err)
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Errno is a registered error code with an HTTP status and bilingual messages.
type Errno struct {
	// Code is the unique AABBCCC error code.
	Code int `json:"code"`

	// HTTP is the HTTP status code to respond with.
	HTTP int `json:"-"`

	// MessageEN is the English message.
	MessageEN string `json:"message"`

	// MessageZH is the Chinese message.
	MessageZH string `json:"message_zh,omitempty"`

	cause error
}

// New creates an unregistered Errno.
func New(code, httpStatus int, messageEN, messageZH string) *Errno {
	return &Errno{
		Code:      code,
		HTTP:      httpStatus,
		MessageEN: messageEN,
		MessageZH: messageZH,
	}
}

// Error implements the error interface.
func (e *Errno) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("errno %d: %s: %v", e.Code, e.MessageEN, e.cause)
	}
	return fmt.Sprintf("errno %d: %s", e.Code, e.MessageEN)
}

// Unwrap returns the underlying cause.
func (e *Errno) Unwrap() error {
	return e.cause
}

// Is matches any Errno with the same code.
func (e *Errno) Is(target error) bool {
	var t *Errno
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

func (e *Errno) clone() *Errno {
	c := *e
	return &c
}

// WithCause returns a copy carrying cause.
func (e *Errno) WithCause(cause error) *Errno {
	c := e.clone()
	c.cause = cause
	return c
}

// WithMessage returns a copy with a custom English message.
func (e *Errno) WithMessage(msg string) *Errno {
	c := e.clone()
	c.MessageEN = msg
	return c
}

// WithMessagef returns a copy with a formatted English message.
func (e *Errno) WithMessagef(format string, args ...any) *Errno {
	return e.WithMessage(fmt.Sprintf(format, args...))
}

// Message returns the message for lang, defaulting to English.
func (e *Errno) Message(lang string) string {
	switch lang {
	case "zh", "zh-CN", "zh_CN":
		if e.MessageZH != "" {
			return e.MessageZH
		}
	}
	return e.MessageEN
}

// HTTPStatus returns the HTTP status, 500 when unset.
func (e *Errno) HTTPStatus() int {
	if e.HTTP != 0 {
		return e.HTTP
	}
	return http.StatusInternalServerError
}
