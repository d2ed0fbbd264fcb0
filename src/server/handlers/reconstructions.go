package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/secret-recovery/server/src/server/data"
	"github.com/secret-recovery/server/src/server/middleware"
	"github.com/secret-recovery/server/src/server/recovery"
	"github.com/secret-recovery/server/src/server/storage"
	"github.com/secret-recovery/server/src/server/store"
)

const maxDocumentBytes = 1 << 20

type ReconstructionHandler struct {
	Service  *recovery.Service
	Store    store.Store
	Storage  storage.ObjectStorage // nil when documents are not archived
	MaxBatch int
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// Create handles POST /reconstructions. The body is a share document.
func (h *ReconstructionHandler) Create(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxDocumentBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "document too large")
		return
	}

	rec, err := h.Service.Recover(r.Context(), raw)
	if errors.Is(err, recovery.ErrInvalidDocument) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		slog.Error("Recover failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to record reconstruction")
		return
	}

	if sub, ok := middleware.Subject(r.Context()); ok {
		slog.Info("Reconstruction submitted", "reconstruction_id", rec.ID, "subject", sub, "status", rec.Status)
	}

	if rec.Status == data.StatusFailed {
		writeJSON(w, http.StatusUnprocessableEntity, rec)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

type batchRequest struct {
	Documents []json.RawMessage `json:"documents"`
}

type batchResponse struct {
	Results []recovery.BatchItem `json:"results"`
}

// CreateBatch handles POST /reconstructions/batch.
func (h *ReconstructionHandler) CreateBatch(w http.ResponseWriter, r *http.Request) {
	limit := h.MaxBatch
	if limit <= 0 {
		limit = 64
	}

	var body batchRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, int64(limit)*maxDocumentBytes))
	if err := dec.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if len(body.Documents) == 0 {
		writeError(w, http.StatusBadRequest, "documents is required")
		return
	}
	if len(body.Documents) > limit {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("at most %d documents per batch", limit))
		return
	}

	items := h.Service.RecoverBatch(r.Context(), body.Documents)
	writeJSON(w, http.StatusOK, batchResponse{Results: items})
}

// List handles GET /reconstructions.
func (h *ReconstructionHandler) List(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.Store.ListReconstructions(r.Context())
	if err != nil {
		slog.Error("ListReconstructions failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list reconstructions")
		return
	}
	writeJSON(w, http.StatusOK, summaries)
}

// Get handles GET /reconstructions/{id}.
func (h *ReconstructionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, ok, err := h.Store.GetReconstruction(r.Context(), id)
	if err != nil {
		slog.Error("GetReconstruction failed", "error", err, "id", id)
		writeError(w, http.StatusInternalServerError, "failed to load reconstruction")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// Document handles GET /reconstructions/{id}/document. Backends that can
// presign redirect to a temporary URL; others stream the archived JSON.
func (h *ReconstructionHandler) Document(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, ok, err := h.Store.GetReconstruction(r.Context(), id)
	if err != nil {
		slog.Error("GetReconstruction failed", "error", err, "id", id)
		writeError(w, http.StatusInternalServerError, "failed to load reconstruction")
		return
	}
	if !ok || rec.DocumentKey == "" || h.Storage == nil {
		writeError(w, http.StatusNotFound, "document not found")
		return
	}

	if p, ok := h.Storage.(storage.Presigner); ok {
		url, err := p.PresignedURL(r.Context(), rec.DocumentKey, 15*time.Minute)
		if err != nil {
			slog.Error("Failed to generate presigned URL", "error", err, "key", rec.DocumentKey)
			writeError(w, http.StatusInternalServerError, "failed to generate download URL")
			return
		}
		http.Redirect(w, r, url, http.StatusTemporaryRedirect)
		return
	}

	rc, err := h.Storage.Open(r.Context(), rec.DocumentKey)
	if err != nil {
		slog.Error("Failed to open archived document", "error", err, "key", rec.DocumentKey)
		writeError(w, http.StatusNotFound, "document not found")
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.json", rec.ID))
	io.Copy(w, rc)
}
