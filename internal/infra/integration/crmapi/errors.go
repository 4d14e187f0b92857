package crmapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrUnknownPipeline = errors.New("unknown pipeline")
	ErrUnknownStage    = errors.New("unknown stage")
)

// APIError is a response the server rejected. Message carries the server's
// "message" field verbatim when it sent one.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

func newAPIError(status int, body []byte) *APIError {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	_ = json.Unmarshal(body, &payload)

	e := &APIError{Status: status, Code: payload.Error, Message: payload.Message}
	if e.Message == "" {
		e.Message = fmt.Sprintf("request failed: %s", http.StatusText(status))
	}
	return e
}

func (e *APIError) NotFound() bool { return e.Status == http.StatusNotFound }
func (e *APIError) Conflict() bool { return e.Status == http.StatusConflict }

// TransportError means the request never reached the server or the answer
// never came back.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ValidationError is raised before any request is sent.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}
