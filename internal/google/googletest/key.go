// Package googletest provides service-account keys and a fake token endpoint
// for tests that exercise the credential loader.
package googletest

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
)

// ServiceAccountEmail is the client_email written into generated keys.
const ServiceAccountEmail = "gdrive-mcp@test-project.iam.gserviceaccount.com"

// NewKey returns the JSON of a freshly generated service-account key whose
// token_uri points at tokenURL.
func NewKey(t testing.TB, tokenURL string) []byte {
	t.Helper()

	pk, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate rsa key: %v", err)
	}
	der, err := x509.MarshalPKCS8PrivateKey(pk)
	if err != nil {
		t.Fatalf("marshal rsa key: %v", err)
	}

	key := map[string]string{
		"type":           "service_account",
		"project_id":     "test-project",
		"private_key_id": "0123456789abcdef",
		"private_key":    string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})),
		"client_email":   ServiceAccountEmail,
		"client_id":      "1234567890",
		"token_uri":      tokenURL,
	}
	data, err := json.Marshal(key)
	if err != nil {
		t.Fatalf("marshal key: %v", err)
	}
	return data
}

// WriteKey writes a generated key into a temp dir and returns its path.
func WriteKey(t testing.TB, tokenURL string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "service-account.json")
	if err := os.WriteFile(path, NewKey(t, tokenURL), 0o600); err != nil {
		t.Fatalf("write key: %v", err)
	}
	return path
}

// TokenServer is a fake OAuth2 token endpoint.
type TokenServer struct {
	*httptest.Server
	Requests atomic.Int32
}

// NewTokenServer starts a token endpoint that grants tokens when accept is
// true and answers invalid_grant otherwise.
func NewTokenServer(t testing.TB, accept bool) *TokenServer {
	t.Helper()

	ts := &TokenServer{}
	ts.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ts.Requests.Add(1)
		w.Header().Set("Content-Type", "application/json")
		if !accept {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"Invalid JWT Signature."}`))
			return
		}
		_, _ = w.Write([]byte(`{"access_token":"ya29.test-token","token_type":"Bearer","expires_in":3600}`))
	}))
	t.Cleanup(ts.Close)
	return ts
}
