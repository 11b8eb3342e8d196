// Package google loads service-account credentials and turns them into an
// OAuth2 token source for the Drive and Sheets clients.
//
// The server runs under a single service-account identity. LoadServiceAccount
// reads the JSON key and Verify fetches one token so bad credentials are caught
// at startup. Every failure is reported as errs.ConfigurationError.
package google
