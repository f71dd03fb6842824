package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ShadowFalcon24/atomic-cloud/internal/proto"
	"github.com/ShadowFalcon24/atomic-cloud/internal/server"
	"github.com/ShadowFalcon24/atomic-cloud/internal/storage"
)

func newHandler(t *testing.T) (http.Handler, *server.Server) {
	t.Helper()
	store, err := storage.NewInMemoryBadgerStore()
	require.NoError(t, err)
	srv := server.New(store, server.WithStartupDelay(time.Millisecond))
	t.Cleanup(func() {
		srv.Close()
		_ = store.Close()
	})
	return NewHTTPHandler(srv, zaptest.NewLogger(t)), srv
}

func do(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, strings.NewReader(body)))
	return rec
}

func TestPing(t *testing.T) {
	h, _ := newHandler(t)

	rec := do(h, http.MethodGet, "/ping", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "pong")
}

func TestPartitionShowsOnNodes(t *testing.T) {
	h, srv := newHandler(t)
	_, err := srv.CreateNode(context.Background(), &proto.NodeDetail{Name: "node-1"})
	require.NoError(t, err)

	rec := do(h, http.MethodPost, "/chaos/partition", `{"node":"node-1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, srv.Chaos().Partitioned("node-1"))

	rec = do(h, http.MethodGet, "/nodes", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var nodes []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &nodes))
	require.Len(t, nodes, 1)
	assert.Equal(t, true, nodes[0]["partitioned"])

	rec = do(h, http.MethodPost, "/chaos/heal", `{"node":"node-1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, srv.Chaos().Partitioned("node-1"))
}

func TestChaosValidation(t *testing.T) {
	h, _ := newHandler(t)

	assert.Equal(t, http.StatusBadRequest, do(h, http.MethodPost, "/chaos/partition", `{}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(h, http.MethodPost, "/chaos/latency", `{"node":"n","latency_ms":-1}`).Code)
	assert.Equal(t, http.StatusOK, do(h, http.MethodPost, "/chaos/latency", `{"node":"n","latency_ms":25}`).Code)
}

func TestScreen(t *testing.T) {
	h, srv := newHandler(t)
	ctx := context.Background()
	_, err := srv.CreateNode(ctx, &proto.NodeDetail{Name: "node-1"})
	require.NoError(t, err)
	id, err := srv.ScheduleServer(ctx, &proto.ServerProposal{Name: "s", Node: "node-1"})
	require.NoError(t, err)
	_, err = srv.WriteToScreen(ctx, &proto.WriteScreenRequest{ID: id.Value, Data: []byte("hello")})
	require.NoError(t, err)

	rec := do(h, http.MethodGet, "/screen?id="+id.Value, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hello", rec.Body.String())

	assert.Equal(t, http.StatusNotFound, do(h, http.MethodGet, "/screen?id=ghost", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(h, http.MethodGet, "/screen", "").Code)

	rec = do(h, http.MethodGet, "/servers", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), id.Value)
}

func TestMetricsMounted(t *testing.T) {
	h, _ := newHandler(t)

	rec := do(h, http.MethodGet, "/metrics", "")

	assert.Equal(t, http.StatusOK, rec.Code)
}
