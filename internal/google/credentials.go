package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
	"golang.org/x/oauth2/jwt"
	"google.golang.org/api/option"

	"github.com/teemow/gdrive-mcp/internal/errs"
)

const keyFileSetting = "GOOGLE_SERVICE_ACCOUNT_FILE"

// verifyTimeout bounds the startup token exchange.
const verifyTimeout = 15 * time.Second

// ServiceAccount is a loaded service-account key together with the token
// source derived from it. It is safe for concurrent use.
type ServiceAccount struct {
	Email     string
	ProjectID string
	Scopes    []string

	cfg *jwt.Config

	mu     sync.Mutex
	tokens oauth2.TokenSource
}

// TokenStatus describes the current access token without exposing it.
type TokenStatus struct {
	Valid  bool      `json:"valid"`
	Expiry time.Time `json:"expiry,omitzero"`
	Scopes []string  `json:"scopes"`
	Error  string    `json:"error,omitempty"`
}

type keyFile struct {
	Type      string `json:"type"`
	ProjectID string `json:"project_id"`
}

// LoadServiceAccount reads the service-account key at path and prepares a token
// source for scopes. It does not contact Google; call Verify for that.
func LoadServiceAccount(ctx context.Context, path string, scopes []string) (*ServiceAccount, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errs.Configuration(keyFileSetting, "path to the service-account key is not set", nil)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Configuration(keyFileSetting, fmt.Sprintf("cannot read key file %s", path), err)
	}

	return ParseServiceAccount(ctx, data, scopes)
}

// ParseServiceAccount builds a ServiceAccount from the JSON key contents.
func ParseServiceAccount(ctx context.Context, data []byte, scopes []string) (*ServiceAccount, error) {
	var kf keyFile
	if err := json.Unmarshal(data, &kf); err != nil {
		return nil, errs.Configuration(keyFileSetting, "key file is not valid JSON", err)
	}
	if kf.Type != "service_account" {
		return nil, errs.Configuration(keyFileSetting, fmt.Sprintf("key type is %q, want \"service_account\"", kf.Type), nil)
	}
	if len(scopes) == 0 {
		scopes = DefaultScopes
	}

	cfg, err := googleoauth.JWTConfigFromJSON(data, scopes...)
	if err != nil {
		return nil, errs.Configuration(keyFileSetting, "malformed service-account key", err)
	}
	if cfg.Email == "" || len(cfg.PrivateKey) == 0 {
		return nil, errs.Configuration(keyFileSetting, "key is missing client_email or private_key", nil)
	}

	return &ServiceAccount{
		Email:     cfg.Email,
		ProjectID: kf.ProjectID,
		Scopes:    append([]string(nil), scopes...),
		cfg:       cfg,
		tokens:    cfg.TokenSource(context.WithoutCancel(ctx)),
	}, nil
}

// Verify exchanges the key for an access token. A rejection by the token
// endpoint is reported as a ConfigurationError. The fetched token is kept and
// reused by later API calls.
func (sa *ServiceAccount) Verify(ctx context.Context) error {
	if _, ok := ctx.Value(oauth2.HTTPClient).(*http.Client); !ok {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, &http.Client{Timeout: verifyTimeout})
	}

	tok, err := sa.cfg.TokenSource(ctx).Token()
	if err != nil {
		var rerr *oauth2.RetrieveError
		if errors.As(err, &rerr) {
			return errs.Configuration(keyFileSetting, "credentials rejected by the identity provider", err)
		}
		return errs.Configuration(keyFileSetting, "cannot obtain an access token", err)
	}

	sa.mu.Lock()
	sa.tokens = oauth2.ReuseTokenSource(tok, sa.cfg.TokenSource(context.WithoutCancel(ctx)))
	sa.mu.Unlock()
	return nil
}

// TokenSource returns the token source used for API calls.
func (sa *ServiceAccount) TokenSource() oauth2.TokenSource {
	return tokenSourceFunc(func() (*oauth2.Token, error) {
		sa.mu.Lock()
		ts := sa.tokens
		sa.mu.Unlock()
		return ts.Token()
	})
}

// ClientOptions returns the API client options authenticating as this account.
func (sa *ServiceAccount) ClientOptions() []option.ClientOption {
	return []option.ClientOption{option.WithTokenSource(sa.TokenSource())}
}

// TokenStatus reports whether a valid token is available, refreshing it when
// needed. The token itself is never returned.
func (sa *ServiceAccount) TokenStatus() TokenStatus {
	status := TokenStatus{Scopes: append([]string(nil), sa.Scopes...)}

	tok, err := sa.TokenSource().Token()
	if err != nil {
		status.Error = err.Error()
		return status
	}

	status.Valid = tok.Valid()
	status.Expiry = tok.Expiry
	return status
}

type tokenSourceFunc func() (*oauth2.Token, error)

func (f tokenSourceFunc) Token() (*oauth2.Token, error) { return f() }
