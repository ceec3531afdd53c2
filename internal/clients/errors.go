package clients

import (
	"encoding/json"
	"fmt"
)

// RPCError is a JSON-RPC error envelope that was not retried.
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// HTTPStatusError is a non-2xx response from an HTTP service.
type HTTPStatusError struct {
	StatusCode int
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("HTTP request failed: status=%d, body=%s", e.StatusCode, e.Body)
}
