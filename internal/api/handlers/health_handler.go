package handlers

import (
	"context"
	"net/http"
	"time"
)

// ConnectionTester reports whether the LLM provider is reachable.
type ConnectionTester interface {
	TestConnection(ctx context.Context) bool
	ModelName() string
}

type HealthHandler struct {
	llm ConnectionTester
}

func NewHealthHandler(llm ConnectionTester) *HealthHandler {
	return &HealthHandler{llm: llm}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "time": time.Now().UTC().Format(time.RFC3339)})
}

func (h *HealthHandler) LLMStatus(w http.ResponseWriter, r *http.Request) {
	ok := h.llm.TestConnection(r.Context())
	status := http.StatusOK
	if !ok {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]any{"connected": ok, "model": h.llm.ModelName()})
}
