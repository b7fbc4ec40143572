package client

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

// Kind classifies a transport failure.
type Kind string

const (
	KindUnauthorized Kind = "unauthorized"
	KindNotFound     Kind = "notFound"
	KindServerError  Kind = "serverError"
	KindNoResponse   Kind = "noResponse"
	KindGraphError   Kind = "graphError"
	KindUnexpected   Kind = "unexpected"
)

// Messages attached to each classified failure.
const (
	MessageUnauthorized = "Unauthorized access"
	MessageNotFound     = "Resource not found"
	MessageServerError  = "Internal server error"
	MessageNoResponse   = "No response from server"
	MessageUnexpected   = "An unexpected error occurred"
)

// Error is the only error type returned by Client. Its message never
// includes the underlying transport error; use errors.Unwrap for that.
type Error struct {
	Kind       Kind
	Message    string
	StatusCode int
	cause      error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// KindOf returns the kind of err, or KindUnexpected for foreign errors.
func KindOf(err error) Kind {
	var clientErr *Error
	if errors.As(err, &clientErr) {
		return clientErr.Kind
	}
	return KindUnexpected
}

func noResponse(cause error) *Error {
	return &Error{Kind: KindNoResponse, Message: MessageNoResponse, cause: cause}
}

func unexpected(cause error) *Error {
	return &Error{Kind: KindUnexpected, Message: MessageUnexpected, cause: cause}
}

// classifyStatus maps a non-2xx response to an Error.
func classifyStatus(status int, body []byte) *Error {
	switch status {
	case http.StatusUnauthorized:
		return &Error{Kind: KindUnauthorized, Message: MessageUnauthorized, StatusCode: status}
	case http.StatusNotFound:
		return &Error{Kind: KindNotFound, Message: MessageNotFound, StatusCode: status}
	case http.StatusInternalServerError:
		return &Error{Kind: KindServerError, Message: MessageServerError, StatusCode: status}
	}

	message := serverMessage(body)
	if message == "" {
		message = MessageUnexpected
	}
	return &Error{Kind: KindServerError, Message: message, StatusCode: status}
}

// serverMessage pulls a human message out of a JSON error body. It accepts
// {"message": "..."} and the gateway's own {"error": "..."}.
func serverMessage(body []byte) string {
	var payload struct {
		Message json.RawMessage `json:"message"`
		Error   json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	for _, raw := range []json.RawMessage{payload.Message, payload.Error} {
		var text string
		if len(raw) > 0 && json.Unmarshal(raw, &text) == nil && strings.TrimSpace(text) != "" {
			return text
		}
	}
	return ""
}
