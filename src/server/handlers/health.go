package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/secret-recovery/server/src/server/storage"
	"github.com/secret-recovery/server/src/server/store"
)

// Pinger is implemented by stores that support health checks (SQLite and
// Postgres; the memory store does not).
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	Store   store.Store
	Storage storage.ObjectStorage
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	checks := make(map[string]string)
	allOK := true

	if pinger, ok := h.Store.(Pinger); ok {
		if err := pinger.Ping(ctx); err != nil {
			checks["database"] = "error: " + err.Error()
			allOK = false
		} else {
			checks["database"] = "ok"
		}
	}

	if h.Storage != nil {
		if err := h.Storage.Ping(ctx); err != nil {
			checks["storage"] = "error: " + err.Error()
			allOK = false
		} else {
			checks["storage"] = "ok"
		}
	}

	resp := healthResponse{
		Status: "ok",
		Checks: checks,
	}

	if !allOK {
		resp.Status = "degraded"
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	json.NewEncoder(w).Encode(resp)
}
