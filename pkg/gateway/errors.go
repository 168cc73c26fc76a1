package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrIdentityRequired is returned before any request is sent when an operation needs a signed-in user.
var ErrIdentityRequired = errors.New("gateway: no resolved identity")

// Kind tells a transport failure apart from a request the server rejected
type Kind int

const (
	// KindNetwork means no response was received.
	KindNetwork Kind = iota + 1
	// KindServer means the server answered with a non-2xx status.
	KindServer
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindServer:
		return "server"
	}
	return "unknown"
}

// Error is the failure of a gateway operation.
type Error struct {
	Kind    Kind
	Op      string
	Status  int    // HTTP status, 0 for network failures
	Message string // message from the response body, may be empty
	Err     error  // transport error for network failures
}

func (e *Error) Error() string {
	if e.Kind == KindNetwork {
		return fmt.Sprintf("%s: network error: %v", e.Op, e.Err)
	}
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	return fmt.Sprintf("%s: %d %s", e.Op, e.Status, msg)
}

func (e *Error) Unwrap() error { return e.Err }

// IsStatus reports whether err is a server rejection with the given status.
func IsStatus(err error, status int) bool {
	var gerr *Error
	return errors.As(err, &gerr) && gerr.Kind == KindServer && gerr.Status == status
}

// IsNetwork reports whether err is a transport failure.
func IsNetwork(err error) bool {
	var gerr *Error
	return errors.As(err, &gerr) && gerr.Kind == KindNetwork
}

// MessageOf returns the text to show a user for err.
// Server rejections yield the server's message or fallback; network failures are marked as such.
func MessageOf(err error, fallback string) string {
	if err == nil {
		return ""
	}
	var gerr *Error
	if !errors.As(err, &gerr) {
		return err.Error()
	}
	if gerr.Kind == KindNetwork {
		if fallback == "" {
			return "Network error: server unreachable"
		}
		return fallback + " (network error: server unreachable)"
	}
	if gerr.Message != "" {
		return gerr.Message
	}
	if fallback != "" {
		return fallback
	}
	return http.StatusText(gerr.Status)
}

// errorMessage pulls a human readable message out of an error body.
// Accepted shapes: {"message":"..."}, {"error":{"message":"..."}} and {"error":"..."}.
func errorMessage(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	var payload struct {
		Message string          `json:"message"`
		Error   json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if payload.Message != "" {
		return payload.Message
	}
	if len(payload.Error) == 0 {
		return ""
	}
	var nested struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(payload.Error, &nested) == nil && nested.Message != "" {
		return nested.Message
	}
	var plain string
	if json.Unmarshal(payload.Error, &plain) == nil {
		return strings.TrimSpace(plain)
	}
	return ""
}
