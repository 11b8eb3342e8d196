// Package common provides the pieces every tool package shares: the
// instrumented handler wrapper, the error payload and argument parsing.
//
// Tool handlers return a value and an error. The wrapper serialises the value
// as JSON text, or turns the error into an error result whose payload names
// the error kind:
//
//	{"error": {"kind": "NotFoundError", "message": "...", "status": 404, "invocationId": "..."}}
package common
