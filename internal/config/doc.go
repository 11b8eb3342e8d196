// Package config loads the server configuration from environment variables.
//
// HOST, PORT and GOOGLE_SERVICE_ACCOUNT_FILE are the essential settings; the
// remaining variables tune scopes, transport, logging, metrics and limits. Values
// that cannot be parsed are reported as errs.ConfigurationError so the caller can
// refuse to start.
package config
