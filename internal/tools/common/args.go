package common

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/gdrive-mcp/internal/errs"
)

// RequiredString returns a non-blank string argument.
func RequiredString(req mcp.CallToolRequest, name string) (string, error) {
	v, ok := req.GetArguments()[name]
	if !ok || v == nil {
		return "", errs.Validation(name, "is required")
	}
	s, ok := v.(string)
	if !ok {
		return "", errs.Validation(name, "must be a string")
	}
	if strings.TrimSpace(s) == "" {
		return "", errs.Validation(name, "is required")
	}
	return s, nil
}

// OptionalString returns a string argument or def when absent.
func OptionalString(req mcp.CallToolRequest, name, def string) (string, error) {
	v, ok := req.GetArguments()[name]
	if !ok || v == nil {
		return def, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", errs.Validation(name, "must be a string")
	}
	if s == "" {
		return def, nil
	}
	return s, nil
}

// OptionalInt returns an integer argument or def when absent. JSON numbers
// must be integral; numeric strings are accepted.
func OptionalInt(req mcp.CallToolRequest, name string, def int) (int, error) {
	v, ok := req.GetArguments()[name]
	if !ok || v == nil {
		return def, nil
	}
	switch n := v.(type) {
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) {
			return 0, errs.Validation(name, "must be an integer, got %v", n)
		}
		return int(n), nil
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, errs.Validation(name, "must be an integer, got %s", n)
		}
		return int(i), nil
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0, errs.Validation(name, "must be an integer, got %q", n)
		}
		return i, nil
	}
	return 0, errs.Validation(name, "must be an integer")
}

// OptionalBool returns a boolean argument or def when absent.
func OptionalBool(req mcp.CallToolRequest, name string, def bool) (bool, error) {
	v, ok := req.GetArguments()[name]
	if !ok || v == nil {
		return def, nil
	}
	switch b := v.(type) {
	case bool:
		return b, nil
	case string:
		parsed, err := strconv.ParseBool(b)
		if err != nil {
			return false, errs.Validation(name, "must be a boolean, got %q", b)
		}
		return parsed, nil
	}
	return false, errs.Validation(name, "must be a boolean")
}

// Values2D returns a required two-dimensional array argument. A JSON string
// holding the array is accepted for clients that cannot send nested arrays.
func Values2D(req mcp.CallToolRequest, name string) ([][]any, error) {
	v, ok := req.GetArguments()[name]
	if !ok || v == nil {
		return nil, errs.Validation(name, "is required")
	}

	if s, isString := v.(string); isString {
		var decoded [][]any
		if err := json.Unmarshal([]byte(s), &decoded); err != nil {
			return nil, errs.Validation(name, "must be a two-dimensional array")
		}
		v = toAnySlice(decoded)
	}

	rows, ok := v.([]any)
	if !ok || len(rows) == 0 {
		return nil, errs.Validation(name, "must be a non-empty two-dimensional array")
	}
	out := make([][]any, len(rows))
	for i, row := range rows {
		cells, ok := row.([]any)
		if !ok {
			return nil, errs.Validation(name, "row %d is not an array", i)
		}
		out[i] = cells
	}
	return out, nil
}

func toAnySlice(rows [][]any) []any {
	out := make([]any, len(rows))
	for i, r := range rows {
		out[i] = r
	}
	return out
}

// DecodeJSONArg decodes an argument that is either a JSON string or an
// already decoded value into dst.
func DecodeJSONArg(req mcp.CallToolRequest, name string, dst any) error {
	v, ok := req.GetArguments()[name]
	if !ok || v == nil {
		return errs.Validation(name, "is required")
	}

	var data []byte
	if s, isString := v.(string); isString {
		data = []byte(s)
	} else {
		var err error
		if data, err = json.Marshal(v); err != nil {
			return errs.Validation(name, "is not valid JSON")
		}
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return errs.Validation(name, "is malformed: %v", err)
	}
	return nil
}
