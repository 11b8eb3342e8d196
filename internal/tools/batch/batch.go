package batch

import (
	"context"
	"encoding/json"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/teemow/gdrive-mcp/internal/errs"
	"github.com/teemow/gdrive-mcp/internal/instrumentation"
)

const (
	// MaxItems bounds the ids accepted by one call.
	MaxItems = 100

	// DefaultConcurrency is the number of ids processed at once.
	DefaultConcurrency = 4
)

// Result statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Result represents the result of a single operation in a batch
type Result struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	Result    any    `json:"result,omitempty"`
	ErrorKind string `json:"errorKind,omitempty"`
	Error     string `json:"error,omitempty"`
}

// BatchResult represents the aggregated results of a batch operation
type BatchResult struct {
	Total     int      `json:"total"`
	Succeeded int      `json:"succeeded"`
	Failed    int      `json:"failed"`
	Results   []Result `json:"results"`
}

// ParseStringOrArray parses a parameter that is a single string, an array of
// strings or a JSON-encoded array. multi reports whether an array was given.
func ParseStringOrArray(param any, paramName string) (ids []string, multi bool, err error) {
	if param == nil {
		return nil, false, errs.Validation(paramName, "is required")
	}

	switch v := param.(type) {
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return nil, false, errs.Validation(paramName, "cannot be empty")
		}
		if !strings.HasPrefix(trimmed, "[") {
			return []string{trimmed}, false, nil
		}
		var decoded []any
		if err := json.Unmarshal([]byte(trimmed), &decoded); err != nil {
			return nil, false, errs.Validation(paramName, "is not a valid JSON array")
		}
		ids, err = fromArray(decoded, paramName)
		return ids, true, err
	case []string:
		decoded := make([]any, len(v))
		for i, s := range v {
			decoded[i] = s
		}
		ids, err = fromArray(decoded, paramName)
		return ids, true, err
	case []any:
		ids, err = fromArray(v, paramName)
		return ids, true, err
	default:
		return nil, false, errs.Validation(paramName, "must be a string or array of strings")
	}
}

func fromArray(items []any, paramName string) ([]string, error) {
	if len(items) == 0 {
		return nil, errs.Validation(paramName, "cannot be empty")
	}
	if len(items) > MaxItems {
		return nil, errs.Validation(paramName, "accepts at most %d ids, got %d", MaxItems, len(items))
	}
	result := make([]string, 0, len(items))
	for i, item := range items {
		str, ok := item.(string)
		if !ok {
			return nil, errs.Validation(paramName, "element %d must be a string", i)
		}
		if strings.TrimSpace(str) == "" {
			return nil, errs.Validation(paramName, "element %d cannot be empty", i)
		}
		result = append(result, strings.TrimSpace(str))
	}
	return result, nil
}

// ProcessBatch runs fn for every id, at most concurrency at a time, and
// returns the results in the order of ids. A failing id does not stop the
// others; a canceled ctx marks the ids not yet started as failed.
func ProcessBatch(ctx context.Context, ids []string, concurrency int, fn func(ctx context.Context, id string) (any, error)) []Result {
	if concurrency < 1 {
		concurrency = DefaultConcurrency
	}

	results := make([]Result, len(ids))
	var g errgroup.Group
	g.SetLimit(concurrency)

	for i, id := range ids {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = NewErrorResult(id, err)
				return nil
			}
			itemCtx, span := instrumentation.StartSpan(ctx, "batch.item",
				instrumentation.NewSpanAttributeBuilder().WithFileID(id).Build()...)
			defer span.End()

			res, err := fn(itemCtx, id)
			if err != nil {
				results[i] = NewErrorResult(id, err)
				instrumentation.SetSpanError(span, err, results[i].ErrorKind)
				return nil
			}
			results[i] = NewSuccessResult(id, res)
			instrumentation.SetSpanSuccess(span)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// Summarize counts successes and failures.
func Summarize(results []Result) BatchResult {
	br := BatchResult{
		Total:   len(results),
		Results: results,
	}

	for _, r := range results {
		if r.Status == StatusSuccess {
			br.Succeeded++
		} else {
			br.Failed++
		}
	}
	return br
}

// NewSuccessResult creates a success result
func NewSuccessResult(id string, result any) Result {
	return Result{
		ID:     id,
		Status: StatusSuccess,
		Result: result,
	}
}

// NewErrorResult creates an error result classified by the error taxonomy.
func NewErrorResult(id string, err error) Result {
	kind := errs.Kind(err)
	if kind == "" {
		kind = errs.KindAPI
	}
	return Result{
		ID:        id,
		Status:    StatusError,
		ErrorKind: kind,
		Error:     err.Error(),
	}
}
