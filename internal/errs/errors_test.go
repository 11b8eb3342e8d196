package errs

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
)

func TestFromGoogle(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantKind   string
		wantStatus int
	}{
		{
			name:       "not found",
			err:        &googleapi.Error{Code: http.StatusNotFound, Message: "File not found: abc."},
			wantKind:   KindNotFound,
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "quota exceeded",
			err:        &googleapi.Error{Code: http.StatusForbidden, Message: "The user's Drive storage quota has been exceeded."},
			wantKind:   KindAPI,
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "wrapped google error",
			err:        fmt.Errorf("call: %w", &googleapi.Error{Code: http.StatusInternalServerError}),
			wantKind:   KindAPI,
			wantStatus: http.StatusInternalServerError,
		},
		{
			name:       "transport failure",
			err:        errors.New("dial tcp: connection refused"),
			wantKind:   KindAPI,
			wantStatus: 0,
		},
		{
			name:       "already classified",
			err:        Validation("role", "unsupported role %q", "superuser"),
			wantKind:   KindValidation,
			wantStatus: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FromGoogle("files.get", "file", "abc", tt.err)
			require.Error(t, got)
			assert.Equal(t, tt.wantKind, Kind(got))
			assert.Equal(t, tt.wantStatus, Status(got))
		})
	}
}

func TestFromGoogleNil(t *testing.T) {
	assert.NoError(t, FromGoogle("files.get", "file", "abc", nil))
}

func TestAPIErrorMessageFallsBackToStatusText(t *testing.T) {
	err := FromGoogle("files.list", "file", "", &googleapi.Error{Code: http.StatusBadGateway})

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "Bad Gateway", apiErr.Message)
	assert.Contains(t, apiErr.Error(), "status 502")
}

func TestKind(t *testing.T) {
	assert.Equal(t, "", Kind(nil))
	assert.Equal(t, "", Kind(errors.New("plain")))
	assert.Equal(t, KindConfiguration, Kind(Configuration("PORT", "not a number", nil)))
	assert.Equal(t, KindNotFound, Kind(fmt.Errorf("wrap: %w", &NotFoundError{Resource: "file", ID: "x"})))
}

func TestConfigurationErrorUnwrap(t *testing.T) {
	cause := errors.New("no such file or directory")
	err := Configuration("GOOGLE_SERVICE_ACCOUNT_FILE", "cannot read key file", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "GOOGLE_SERVICE_ACCOUNT_FILE")
}

func TestIsCanceled(t *testing.T) {
	assert.True(t, IsCanceled(fmt.Errorf("x: %w", context.Canceled)))
	assert.True(t, IsCanceled(context.DeadlineExceeded))
	assert.False(t, IsCanceled(errors.New("boom")))
}
