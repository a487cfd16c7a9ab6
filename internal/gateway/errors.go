package gateway

import (
	"errors"
	"fmt"
)

// ErrRequestFailed matches every *RequestFailedError via errors.Is.
var ErrRequestFailed = errors.New("request failed")

type Endpoint string

const (
	EndpointLogin             Endpoint = "POST /token"
	EndpointRegister          Endpoint = "POST /register"
	EndpointListDocuments     Endpoint = "GET /documents"
	EndpointUploadDocument    Endpoint = "POST /upload"
	EndpointListConversations Endpoint = "GET /conversations"
	EndpointFetchConversation Endpoint = "GET /conversations/{id}"
	EndpointAsk               Endpoint = "POST /ask"
)

// RequestFailedError is returned for any non-2xx response or transport
// failure. Status is 0 when no response was received.
type RequestFailedError struct {
	Endpoint Endpoint
	Status   int
	// Detail is the server's "detail" message when the body carried one.
	Detail string
	Err    error
}

func (e *RequestFailedError) Error() string {
	switch {
	case e.Status == 0 && e.Err != nil:
		return fmt.Sprintf("%s failed: %v", e.Endpoint, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s failed with status %d: %v", e.Endpoint, e.Status, e.Err)
	case e.Detail != "":
		return fmt.Sprintf("%s failed with status %d: %s", e.Endpoint, e.Status, e.Detail)
	default:
		return fmt.Sprintf("%s failed with status %d", e.Endpoint, e.Status)
	}
}

func (e *RequestFailedError) Unwrap() error {
	return e.Err
}

func (e *RequestFailedError) Is(target error) bool {
	return target == ErrRequestFailed
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var rf *RequestFailedError
	if errors.As(err, &rf) {
		return rf.Status
	}
	return 0
}
