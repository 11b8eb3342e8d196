// Package errs defines the error taxonomy shared by the credential loader, the
// Google API clients and the MCP tool handlers.
//
// Four kinds exist:
//
//   - ConfigurationError: unusable startup configuration; the process exits.
//   - ValidationError: malformed tool arguments, detected before any network call.
//   - NotFoundError: the referenced Drive or Sheets object does not resolve.
//   - APIError: any other upstream failure, carrying the HTTP status and message.
//
// Clients classify raw Google errors with FromGoogle; handlers read the kind back
// with Kind when building the tool error payload.
package errs
