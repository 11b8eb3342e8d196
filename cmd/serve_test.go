package cmd

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/gdrive-mcp/internal/config"
	"github.com/teemow/gdrive-mcp/internal/drive/drivetest"
	"github.com/teemow/gdrive-mcp/internal/errs"
	"github.com/teemow/gdrive-mcp/internal/google/googletest"
	"github.com/teemow/gdrive-mcp/internal/server"
)

func TestParseCommaSeparatedList(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "empty string",
			input:    "",
			expected: nil,
		},
		{
			name:     "single value",
			input:    "https://www.googleapis.com/auth/drive",
			expected: []string{"https://www.googleapis.com/auth/drive"},
		},
		{
			name:     "values with spaces around comma",
			input:    "https://www.googleapis.com/auth/drive, https://www.googleapis.com/auth/spreadsheets",
			expected: []string{"https://www.googleapis.com/auth/drive", "https://www.googleapis.com/auth/spreadsheets"},
		},
		{
			name:     "trailing comma",
			input:    "drive,sheets,",
			expected: []string{"drive", "sheets"},
		},
		{
			name:     "multiple consecutive commas",
			input:    "drive,,sheets",
			expected: []string{"drive", "sheets"},
		},
		{
			name:     "only commas and spaces",
			input:    ",  , , ",
			expected: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := parseCommaSeparatedList(tt.input)
			if tt.expected == nil {
				assert.Nil(t, result)
				return
			}
			assert.Equal(t, tt.expected, result)
		})
	}
}

// freeAddr returns a loopback address nothing listens on.
func freeAddr(t *testing.T) (string, int) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())
	return "127.0.0.1", port
}

func testConfig(t *testing.T, keyFile string) *config.Config {
	t.Helper()
	// Keep the instrumentation provider out of the way of parallel packages.
	t.Setenv("INSTRUMENTATION_ENABLED", "false")

	host, port := freeAddr(t)
	return &config.Config{
		Host:               host,
		Port:               port,
		ServiceAccountFile: keyFile,
		Scopes:             []string{config.DefaultScope},
		VerifyCredentials:  true,
		MaxDownloadBytes:   config.DefaultMaxDownloadBytes,
		Transport:          config.TransportSSE,
		LogLevel:           "error",
		LogFormat:          "text",
	}
}

func assertPortFree(t *testing.T, cfg *config.Config) {
	t.Helper()
	ln, err := net.Listen("tcp", cfg.Addr())
	require.NoError(t, err, "port %d was left bound", cfg.Port)
	require.NoError(t, ln.Close())
}

func TestRunServeMissingKeyFile(t *testing.T) {
	cfg := testConfig(t, filepath.Join(t.TempDir(), "missing.json"))

	err := runServe(context.Background(), cfg, io.Discard)
	require.Error(t, err)

	var cfgErr *errs.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "GOOGLE_SERVICE_ACCOUNT_FILE", cfgErr.Setting)
	assertPortFree(t, cfg)
}

func TestRunServeUnsetKeyFile(t *testing.T) {
	cfg := testConfig(t, "")

	err := runServe(context.Background(), cfg, io.Discard)
	assert.Equal(t, errs.KindConfiguration, errs.Kind(err))
	assertPortFree(t, cfg)
}

func TestRunServeRejectedCredentials(t *testing.T) {
	tokens := googletest.NewTokenServer(t, false)
	cfg := testConfig(t, googletest.WriteKey(t, tokens.URL))

	err := runServe(context.Background(), cfg, io.Discard)
	assert.Equal(t, errs.KindConfiguration, errs.Kind(err))
	assert.EqualValues(t, 1, tokens.Requests.Load())
	assertPortFree(t, cfg)
}

func TestRunServeInvalidLogLevel(t *testing.T) {
	cfg := testConfig(t, "key.json")
	cfg.LogLevel = "loud"

	err := runServe(context.Background(), cfg, io.Discard)
	assert.Equal(t, errs.KindConfiguration, errs.Kind(err))
	assertPortFree(t, cfg)
}

func TestRunServeServesUntilCanceled(t *testing.T) {
	tokens := googletest.NewTokenServer(t, true)
	fake := drivetest.NewServer(t)

	cfg := testConfig(t, googletest.WriteKey(t, tokens.URL))
	cfg.DriveEndpoint = fake.URL + "/"
	cfg.ReadOnly = true

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- runServe(ctx, cfg, io.Discard) }()

	infoURL := "http://" + net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)) + "/server-info"

	var info server.ServerInfo
	require.Eventually(t, func() bool {
		resp, err := http.Get(infoURL)
		if err != nil {
			return false
		}
		defer func() { _ = resp.Body.Close() }()
		if resp.StatusCode != http.StatusOK {
			return false
		}
		return json.NewDecoder(resp.Body).Decode(&info) == nil
	}, 5*time.Second, 20*time.Millisecond)

	assert.Equal(t, serverName, info.Name)
	assert.Equal(t, config.TransportSSE, info.Transport)
	assert.True(t, info.ReadOnly)
	assert.Contains(t, info.Tools, "list_files")
	assert.Contains(t, info.Tools, "debug_api_connection")
	assert.NotContains(t, info.Tools, "delete_file")
	assert.Equal(t, googletest.ServiceAccountEmail, info.ServiceAccount)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not stop after cancel")
	}
	assertPortFree(t, cfg)
}

func TestCollectToolsDocumentsEveryTool(t *testing.T) {
	groups, err := collectTools(context.Background())
	require.NoError(t, err)

	var names []string
	for _, tools := range groups {
		for _, tool := range tools {
			names = append(names, tool.Name)
		}
	}
	for _, want := range []string{
		"list_files", "get_file_info", "upload_file", "download_file",
		"delete_file", "create_folder", "share_file", "debug_api_connection",
		"create_spreadsheet", "read_sheet_values", "batch_update_sheet",
	} {
		assert.Contains(t, names, want)
	}

	markdown := generateToolsMarkdown(groups)
	assert.Contains(t, markdown, "## Google Drive Tools")
	assert.Contains(t, markdown, "### share_file")
	assert.Contains(t, markdown, "- `file_id` (string, required)")
}

func TestProbe(t *testing.T) {
	ok := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(ok.Close)
	unavailable := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(unavailable.Close)

	assert.NoError(t, probe(context.Background(), ok.URL+"/server-info", time.Second))
	assert.ErrorContains(t, probe(context.Background(), unavailable.URL+"/server-info", time.Second), "503")

	host, port := freeAddr(t)
	assert.Error(t, probe(context.Background(), "http://"+net.JoinHostPort(host, strconv.Itoa(port)), time.Second))
}

func TestReportedDriveEndpoint(t *testing.T) {
	assert.Equal(t, "https://www.googleapis.com/drive/v3/", reportedDriveEndpoint(""))
	assert.Equal(t, "http://127.0.0.1:9999/", reportedDriveEndpoint("http://127.0.0.1:9999/"))
}
