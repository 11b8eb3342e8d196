package errs

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/api/googleapi"
)

// Kind names used in tool error payloads.
const (
	KindConfiguration = "ConfigurationError"
	KindValidation    = "ValidationError"
	KindNotFound      = "NotFoundError"
	KindAPI           = "ApiError"
)

// ConfigurationError reports unusable startup configuration, such as a missing
// or rejected service-account key. It is fatal: the server must not start.
type ConfigurationError struct {
	Setting string // configuration key at fault, e.g. GOOGLE_SERVICE_ACCOUNT_FILE
	Reason  string
	Err     error
}

func (e *ConfigurationError) Error() string {
	msg := fmt.Sprintf("configuration error: %s: %s", e.Setting, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// ValidationError reports malformed tool arguments. It is raised before any
// request reaches the upstream API.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid argument: " + e.Message
	}
	return fmt.Sprintf("invalid argument %q: %s", e.Field, e.Message)
}

// NotFoundError reports that a referenced file, folder or spreadsheet does not exist
// or is not visible to the service account.
type NotFoundError struct {
	Resource string
	ID       string
	Message  string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s not found: %s", e.Resource, e.Message)
	}
	return fmt.Sprintf("%s %q not found: %s", e.Resource, e.ID, e.Message)
}

// APIError carries an upstream failure. Status is the HTTP status code returned
// by Google, or 0 when the request never produced a response.
type APIError struct {
	Operation string
	Status    int
	Message   string
	Err       error
}

func (e *APIError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%s failed: %s", e.Operation, e.Message)
	}
	return fmt.Sprintf("%s failed with status %d: %s", e.Operation, e.Status, e.Message)
}

func (e *APIError) Unwrap() error { return e.Err }

// Configuration returns a ConfigurationError for setting.
func Configuration(setting, reason string, err error) *ConfigurationError {
	return &ConfigurationError{Setting: setting, Reason: reason, Err: err}
}

// Validation returns a ValidationError for field.
func Validation(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// FromGoogle translates an error returned by a Google API call. A 404 becomes a
// NotFoundError for the given resource and id; every other failure becomes an
// APIError. Errors that are already classified pass through unchanged.
func FromGoogle(op, resource, id string, err error) error {
	if err == nil {
		return nil
	}
	if Kind(err) != "" {
		return err
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		msg := gerr.Message
		if msg == "" {
			msg = http.StatusText(gerr.Code)
		}
		if gerr.Code == http.StatusNotFound {
			return &NotFoundError{Resource: resource, ID: id, Message: msg}
		}
		return &APIError{Operation: op, Status: gerr.Code, Message: msg, Err: err}
	}

	return &APIError{Operation: op, Message: err.Error(), Err: err}
}

// Kind reports the taxonomy kind of err, or "" when err is not classified.
func Kind(err error) string {
	var (
		cfgErr      *ConfigurationError
		validateErr *ValidationError
		notFoundErr *NotFoundError
		apiErr      *APIError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &cfgErr):
		return KindConfiguration
	case errors.As(err, &validateErr):
		return KindValidation
	case errors.As(err, &notFoundErr):
		return KindNotFound
	case errors.As(err, &apiErr):
		return KindAPI
	}
	return ""
}

// Status returns the upstream HTTP status carried by err, or 0.
func Status(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	var notFoundErr *NotFoundError
	if errors.As(err, &notFoundErr) {
		return http.StatusNotFound
	}
	return 0
}

// IsCanceled reports whether err stems from a canceled or expired context.
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
