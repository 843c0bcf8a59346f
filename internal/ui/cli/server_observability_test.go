package cli

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cssnav/internal/core/app"
	"cssnav/internal/core/config"
	"cssnav/internal/core/ports"
	"cssnav/internal/shared/util"
)

func TestObservabilityServer(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, util.WriteStringWithDirs(root+"/a.css", ".a { }", 0o644))

	cfg := config.DefaultConfig()
	cfg.Workspace.StartPath = root
	a, err := app.New(cfg)
	require.NoError(t, err)
	defer a.Close()

	ctx := context.Background()
	srv := NewObservabilityServer("127.0.0.1:0", app.NewHealthService(a), a.QueryService())
	require.NoError(t, srv.Start(ctx))
	defer srv.Stop(ctx)

	get := func(path string) (int, []byte) {
		resp, err := http.Get("http://" + srv.Addr() + path)
		require.NoError(t, err)
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		return resp.StatusCode, body
	}

	code, _ := get("/health")
	assert.Equal(t, http.StatusServiceUnavailable, code, "not indexed yet")

	require.NoError(t, a.Index(ctx))
	code, _ = get("/health")
	assert.Equal(t, http.StatusOK, code)

	code, body := get("/stats")
	require.Equal(t, http.StatusOK, code)
	var stats ports.Stats
	require.NoError(t, json.Unmarshal(body, &stats))
	assert.Equal(t, 1, stats.CSS.Tracked)

	code, body = get("/metrics")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(body), "cssnav_")
}

func TestObservabilityServer_BindError(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Workspace.StartPath = t.TempDir()
	a, err := app.New(cfg)
	require.NoError(t, err)
	defer a.Close()

	srv := NewObservabilityServer("127.0.0.1:-1", app.NewHealthService(a), a.QueryService())
	assert.Error(t, srv.Start(context.Background()))
}
