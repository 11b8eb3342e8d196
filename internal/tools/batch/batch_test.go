package batch

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/teemow/gdrive-mcp/internal/errs"
)

func TestParseStringOrArray(t *testing.T) {
	tooMany := make([]any, MaxItems+1)
	for i := range tooMany {
		tooMany[i] = fmt.Sprintf("id%d", i)
	}

	tests := []struct {
		name      string
		input     any
		want      []string
		wantMulti bool
		wantErr   bool
	}{
		{
			name:  "single string",
			input: "test123",
			want:  []string{"test123"},
		},
		{
			name:      "array of strings",
			input:     []any{"id1", "id2", "id3"},
			want:      []string{"id1", "id2", "id3"},
			wantMulti: true,
		},
		{
			name:      "JSON string array",
			input:     `["id1", "id2", "id3"]`,
			want:      []string{"id1", "id2", "id3"},
			wantMulti: true,
		},
		{
			name:      "single element array",
			input:     []any{"id1"},
			want:      []string{"id1"},
			wantMulti: true,
		},
		{
			name:    "nil input",
			input:   nil,
			wantErr: true,
		},
		{
			name:    "empty string",
			input:   "",
			wantErr: true,
		},
		{
			name:    "empty array",
			input:   []any{},
			wantErr: true,
		},
		{
			name:    "array with non-string",
			input:   []any{"id1", 123, "id3"},
			wantErr: true,
		},
		{
			name:    "array with empty string",
			input:   []any{"id1", "", "id3"},
			wantErr: true,
		},
		{
			name:    "malformed JSON array",
			input:   `["id1", `,
			wantErr: true,
		},
		{
			name:    "invalid type",
			input:   123,
			wantErr: true,
		},
		{
			name:    "too many ids",
			input:   tooMany,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, multi, err := ParseStringOrArray(tt.input, "file_id")
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseStringOrArray() error = nil, want error")
				}
				if errs.Kind(err) != errs.KindValidation {
					t.Errorf("error kind = %q, want %q", errs.Kind(err), errs.KindValidation)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseStringOrArray() error = %v", err)
			}
			if multi != tt.wantMulti {
				t.Errorf("multi = %v, want %v", multi, tt.wantMulti)
			}
			if !stringSliceEqual(got, tt.want) {
				t.Errorf("ParseStringOrArray() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestProcessBatchKeepsOrderAndPartialFailures(t *testing.T) {
	ids := []string{"a", "b", "c", "d", "e"}

	results := ProcessBatch(context.Background(), ids, 2, func(_ context.Context, id string) (any, error) {
		if id == "c" {
			return nil, &errs.NotFoundError{Resource: "file", ID: id, Message: "File not found"}
		}
		return "ok " + id, nil
	})

	if len(results) != len(ids) {
		t.Fatalf("got %d results, want %d", len(results), len(ids))
	}
	for i, r := range results {
		if r.ID != ids[i] {
			t.Errorf("results[%d].ID = %s, want %s", i, r.ID, ids[i])
		}
	}
	if results[2].Status != StatusError || results[2].ErrorKind != errs.KindNotFound {
		t.Errorf("results[2] = %+v, want a NotFoundError", results[2])
	}
	if results[4].Result != "ok e" {
		t.Errorf("results[4].Result = %v, want 'ok e'", results[4].Result)
	}

	summary := Summarize(results)
	if summary.Total != 5 || summary.Succeeded != 4 || summary.Failed != 1 {
		t.Errorf("Summarize() = %d/%d/%d, want 5/4/1", summary.Total, summary.Succeeded, summary.Failed)
	}
}

func TestProcessBatchConcurrencyLimit(t *testing.T) {
	var running, peak atomic.Int32
	ids := []string{"1", "2", "3", "4", "5", "6", "7", "8"}

	ProcessBatch(context.Background(), ids, 3, func(_ context.Context, _ string) (any, error) {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		running.Add(-1)
		return nil, nil
	})

	if peak.Load() > 3 {
		t.Errorf("peak concurrency = %d, want at most 3", peak.Load())
	}
}

func TestProcessBatchCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	results := ProcessBatch(ctx, []string{"a", "b"}, 1, func(context.Context, string) (any, error) {
		called = true
		return nil, nil
	})

	if called {
		t.Error("fn called after cancellation")
	}
	for _, r := range results {
		if r.Status != StatusError {
			t.Errorf("result %s status = %s, want error", r.ID, r.Status)
		}
	}
}

func TestNewSuccessResult(t *testing.T) {
	result := NewSuccessResult("test-id", "test message")

	if result.ID != "test-id" {
		t.Errorf("ID = %s, want test-id", result.ID)
	}
	if result.Status != StatusSuccess {
		t.Errorf("Status = %s, want success", result.Status)
	}
	if result.Result != "test message" {
		t.Errorf("Result = %v, want 'test message'", result.Result)
	}
	if result.Error != "" {
		t.Errorf("Error should be empty, got %s", result.Error)
	}
}

func TestNewErrorResult(t *testing.T) {
	result := NewErrorResult("test-id", errors.New("test error"))

	if result.Status != StatusError {
		t.Errorf("Status = %s, want error", result.Status)
	}
	if result.Error != "test error" {
		t.Errorf("Error = %s, want 'test error'", result.Error)
	}
	if result.ErrorKind != errs.KindAPI {
		t.Errorf("ErrorKind = %s, want %s", result.ErrorKind, errs.KindAPI)
	}
	if result.Result != nil {
		t.Errorf("Result should be empty, got %v", result.Result)
	}
}

// Helper function to compare string slices
func stringSliceEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
