package server

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/recruit-dashboard/backend/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.AppConfig {
	cfg := config.DefaultConfig()
	cfg.Advanced.DataDirectory = t.TempDir()
	return cfg
}

func TestNew_ServesAPIAndPage(t *testing.T) {
	cfg := testConfig(t)
	srv, err := New(cfg, nil, "test")
	require.NoError(t, err)
	t.Cleanup(srv.Close)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"version":"test"`)

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Recruitment Data Dashboard")
}

func TestNew_CustomSchemaFile(t *testing.T) {
	dir := t.TempDir()
	schemaPath := filepath.Join(dir, "columns.yaml")
	require.NoError(t, os.WriteFile(schemaPath, []byte("phone_number: Nomor HP\nrecruiter: Perekrut\ngroup_name: Grup\n"), 0644))

	cfg := testConfig(t)
	cfg.Dashboard.SchemaFile = schemaPath
	srv, err := New(cfg, nil, "test")
	require.NoError(t, err)
	t.Cleanup(srv.Close)
	assert.Equal(t, "Nomor HP", srv.sessions.Schema().PhoneNumber)

	clash := filepath.Join(dir, "clash.yaml")
	require.NoError(t, os.WriteFile(clash, []byte("phone_number: recruiter\n"), 0644))
	cfg.Dashboard.SchemaFile = clash
	_, err = New(cfg, nil, "test")
	assert.Error(t, err)
}

func TestUploadLimits(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Upload.MaxUploadSizeMB = 2
	cfg.Upload.MaxDecompressedSizeMB = 8
	cfg.Upload.AllowedFileTypes = ".csv"

	limits := UploadLimits(cfg)
	assert.Equal(t, int64(2<<20), limits.MaxBytes)
	assert.Equal(t, int64(8<<20), limits.MaxDecompressedBytes)
	assert.Equal(t, []string{".csv"}, limits.AllowedTypes)
}

func TestRun_StopsOnCancel(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())

	cfg := testConfig(t)
	cfg.Server.BindAddress = "127.0.0.1"
	cfg.Server.Port = port
	srv, err := New(cfg, nil, "test")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	url := "http://" + srv.Addr() + "/api/health"
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(15 * time.Second):
		t.Fatal("server did not stop")
	}
	assert.True(t, strings.HasPrefix(srv.Addr(), "127.0.0.1:"))
}
