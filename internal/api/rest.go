package api

import (
	"errors"
	"net/http"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/ShadowFalcon24/atomic-cloud/internal/proto"
	"github.com/ShadowFalcon24/atomic-cloud/internal/server"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type Handler struct {
	srv    *server.Server
	logger *zap.Logger
}

// NewHTTPHandler exposes inspection and chaos controls for the simulator
// next to its Prometheus metrics.
func NewHTTPHandler(srv *server.Server, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Handler{srv: srv, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("/ping", h.handlePing)
	mux.HandleFunc("/nodes", h.handleNodes)
	mux.HandleFunc("/servers", h.handleServers)
	mux.HandleFunc("/screen", h.handleScreen)

	mux.HandleFunc("/chaos/partition", h.handlePartition)
	mux.HandleFunc("/chaos/heal", h.handleHeal)
	mux.HandleFunc("/chaos/latency", h.handleLatency)

	RegisterMetrics(mux)
	return mux
}

func (h *Handler) handlePing(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"msg": "pong from cloud-sim"})
}

func (h *Handler) handleNodes(w http.ResponseWriter, r *http.Request) {
	list, err := h.srv.ListNodes(r.Context(), &proto.Empty{})
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "failed to list nodes")
		return
	}
	out := make([]map[string]any, 0, len(list.Names))
	for _, name := range list.Names {
		node, err := h.srv.GetNode(r.Context(), &proto.NameRequest{Name: name})
		if err != nil {
			continue
		}
		out = append(out, map[string]any{
			"name":        node.Name,
			"plugin":      node.Plugin,
			"partitioned": h.srv.Chaos().Partitioned(name),
			"latency_ms":  h.srv.Chaos().Latency(name).Milliseconds(),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleServers(w http.ResponseWriter, r *http.Request) {
	list, err := h.srv.ListServers(r.Context(), &proto.Empty{})
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "failed to list servers")
		return
	}
	out := make([]map[string]any, 0, len(list.Servers))
	for _, ref := range list.Servers {
		d, err := h.srv.GetServer(r.Context(), &proto.IDRequest{ID: ref.ID})
		if err != nil {
			continue
		}
		entry := map[string]any{
			"id":    d.ID,
			"name":  d.Name,
			"node":  d.Node,
			"state": d.State,
			"ready": d.Ready,
			"users": d.Users,
		}
		if d.Group != nil {
			entry["group"] = *d.Group
		}
		out = append(out, entry)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleScreen(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "id required")
		return
	}
	if _, err := h.srv.GetServer(r.Context(), &proto.IDRequest{ID: id}); err != nil {
		h.writeError(w, http.StatusNotFound, "server not found")
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(h.srv.Screen(id))
}

type chaosRequest struct {
	Node      string `json:"node"`
	LatencyMs int    `json:"latency_ms"`
}

func decodeChaos(r *http.Request) (chaosRequest, error) {
	var body chaosRequest
	_ = json.NewDecoder(r.Body).Decode(&body)
	if body.Node == "" {
		return body, ErrNodeRequired
	}
	return body, nil
}

func (h *Handler) handlePartition(w http.ResponseWriter, r *http.Request) {
	body, err := decodeChaos(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.srv.Chaos().Partition(body.Node)

	writeJSON(w, http.StatusOK, map[string]string{
		"status": "partitioned",
		"node":   body.Node,
	})
}

func (h *Handler) handleHeal(w http.ResponseWriter, r *http.Request) {
	body, err := decodeChaos(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.srv.Chaos().Heal(body.Node)

	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healed",
		"node":   body.Node,
	})
}

func (h *Handler) handleLatency(w http.ResponseWriter, r *http.Request) {
	body, err := decodeChaos(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if body.LatencyMs < 0 {
		h.writeError(w, http.StatusBadRequest, "latency_ms must be non-negative")
		return
	}
	h.srv.Chaos().SetLatency(body.Node, time.Duration(body.LatencyMs)*time.Millisecond)

	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "latency_set",
		"node":       body.Node,
		"latency_ms": body.LatencyMs,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *Handler) writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
	h.logger.Debug("http error", zap.Int("status", status), zap.String("msg", msg))
}

var (
	ErrNodeRequired = errors.New("node required")
)
