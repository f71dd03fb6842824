package main

import (
	"bytes"
	"context"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ShadowFalcon24/atomic-cloud/internal/permission"
	"github.com/ShadowFalcon24/atomic-cloud/internal/proto"
	"github.com/ShadowFalcon24/atomic-cloud/internal/server"
	"github.com/ShadowFalcon24/atomic-cloud/internal/storage"
)

// execute runs cloudctl with a fresh config file holding yaml.
func execute(t *testing.T, yaml string, args ...string) (string, error) {
	t.Helper()
	cfg := filepath.Join(t.TempDir(), "cloudctl.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte(yaml), 0o600))
	return executeWithConfig(t, cfg, args...)
}

func executeWithConfig(t *testing.T, cfg string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append(args, "--config", cfg))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := cmd.ExecuteContext(ctx)
	return out.String(), err
}

func startSimulator(t *testing.T, token string) (string, *server.Server) {
	t.Helper()
	store, err := storage.NewInMemoryBadgerStore()
	require.NoError(t, err)
	sim := server.New(store, server.WithStartupDelay(time.Millisecond))
	gs := server.NewGRPCServer(token, zaptest.NewLogger(t))
	sim.RegisterGRPC(gs)
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = gs.Serve(lis) }()
	t.Cleanup(func() {
		gs.Stop()
		sim.Close()
		_ = store.Close()
	})
	return lis.Addr().String(), sim
}

func TestStopNeedsDisposePermission(t *testing.T) {
	yaml := "operator:\n  permissions: [atomic.cloud.command.cloud]\n"

	_, err := execute(t, yaml, "stop", "--token", "secret")

	var denied *permission.DeniedError
	require.ErrorAs(t, err, &denied)
	assert.Equal(t, permission.DisposeCommand, denied.Permission)
}

func TestMissingConfigFileIsReported(t *testing.T) {
	_, err := executeWithConfig(t, filepath.Join(t.TempDir(), "missing.yaml"), "node", "list", "--token", "secret")

	assert.Error(t, err)
}

func TestNodeAndServerCommandsAgainstSimulator(t *testing.T) {
	addr, sim := startSimulator(t, "secret")
	yaml := "log:\n  level: warn\noperator:\n  operator: true\n"
	run := func(args ...string) (string, error) {
		return execute(t, yaml, append(args, "--controller", addr, "--token", "secret")...)
	}

	_, err := run("node", "create", "node-1", "--address", "http://127.0.0.1:8080", "--max-servers", "4")
	require.NoError(t, err)

	out, err := run("node", "list")
	require.NoError(t, err)
	assert.Equal(t, "node-1", strings.TrimSpace(out))

	out, err = run("node", "get", "node-1")
	require.NoError(t, err)
	assert.Contains(t, out, `"max_servers": 4`)

	out, err = run("node", "get", "node-1", "-o", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "name: node-1\n")
	assert.Contains(t, out, "max_servers: 4\n")

	_, err = run("node", "get", "node-1", "-o", "xml")
	assert.ErrorContains(t, err, "unknown output format")

	out, err = run("server", "schedule", "hub", "--node", "node-1", "--image", "paper", "--env", "EULA=true")
	require.NoError(t, err)
	id := strings.TrimSpace(out)
	list, err := sim.ListServers(context.Background(), &proto.Empty{})
	require.NoError(t, err)
	require.Len(t, list.Servers, 1)
	assert.Equal(t, list.Servers[0].ID, id)

	out, err = run("server", "get", id, "-o", "table", "--no-color")
	require.NoError(t, err)
	assert.Regexp(t, `NODE\s+node-1\n`, out)
	assert.Regexp(t, `GROUP\s+-\n`, out)

	_, err = run("server", "screen", id, "say", "hello")
	require.NoError(t, err)
	assert.Equal(t, "say hello\n", string(sim.Screen(id)))

	_, err = run("server", "get", "not-a-uuid")
	assert.Error(t, err)
}

func TestWrongTokenFails(t *testing.T) {
	addr, _ := startSimulator(t, "secret")

	_, err := execute(t, "operator:\n  operator: true\n", "node", "list", "--controller", addr, "--token", "nope")

	assert.Error(t, err)
}
