package common

import (
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/gdrive-mcp/internal/errs"
)

// ErrorBody is the payload of a failed tool call.
type ErrorBody struct {
	Kind         string `json:"kind"`
	Message      string `json:"message"`
	Status       int    `json:"status,omitempty"`
	InvocationID string `json:"invocationId,omitempty"`
}

// ErrorPayload wraps ErrorBody under an "error" key.
type ErrorPayload struct {
	Error ErrorBody `json:"error"`
}

// ErrorKind returns the taxonomy kind for err. Unclassified failures are
// reported as API errors since they came from the upstream call path.
func ErrorKind(err error) string {
	if kind := errs.Kind(err); kind != "" {
		return kind
	}
	return errs.KindAPI
}

// ErrorResult converts err into a tool error result.
func ErrorResult(err error, invocationID string) *mcp.CallToolResult {
	payload := ErrorPayload{Error: ErrorBody{
		Kind:         ErrorKind(err),
		Message:      err.Error(),
		Status:       errs.Status(err),
		InvocationID: invocationID,
	}}
	data, mErr := json.Marshal(payload)
	if mErr != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultError(string(data))
}

// JSONResult renders v as an indented JSON text result. Strings are passed
// through as-is.
func JSONResult(v any) (*mcp.CallToolResult, error) {
	if s, ok := v.(string); ok {
		return mcp.NewToolResultText(s), nil
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}
