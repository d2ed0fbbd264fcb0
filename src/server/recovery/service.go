// Package recovery runs reconstructions for the HTTP API: it parses share
// documents, recovers their secrets, archives the documents and stores a
// record of every attempt.
package recovery

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/secret-recovery/server/src/server/data"
	"github.com/secret-recovery/server/src/server/storage"
	"github.com/secret-recovery/server/src/server/store"
)

// ErrInvalidDocument wraps errors caused by malformed input documents.
var ErrInvalidDocument = errors.New("invalid share document")

const batchConcurrency = 8

type Service struct {
	Store   store.Store
	Storage storage.ObjectStorage // nil disables document archiving
}

// Recover reconstructs the secret of one share document and records the
// attempt. A failed reconstruction is not an error: it is stored and
// returned as a record with status "failed". Errors are returned only for
// malformed documents (wrapping ErrInvalidDocument) and for storage
// failures.
func (s *Service) Recover(ctx context.Context, raw []byte) (data.Reconstruction, error) {
	rec, err := Evaluate(raw)
	if err != nil {
		return data.Reconstruction{}, err
	}

	if s.Storage != nil {
		key := storage.DocumentKey(rec.ID)
		if err := s.Storage.Upload(ctx, key, bytes.NewReader(raw), "application/json"); err != nil {
			return data.Reconstruction{}, fmt.Errorf("archiving document: %w", err)
		}
		rec.DocumentKey = key
	}

	if err := s.Store.AddReconstruction(ctx, rec); err != nil {
		if rec.DocumentKey != "" {
			// No record will point at the archived copy.
			if derr := s.Storage.Delete(ctx, rec.DocumentKey); derr != nil {
				slog.Error("Failed to remove orphaned document", "key", rec.DocumentKey, "error", derr)
			}
		}
		return data.Reconstruction{}, fmt.Errorf("storing reconstruction: %w", err)
	}
	return rec, nil
}

// Evaluate is data.Evaluate with parse failures wrapped in
// ErrInvalidDocument.
func Evaluate(raw []byte) (data.Reconstruction, error) {
	rec, err := data.Evaluate(raw)
	if err != nil {
		return data.Reconstruction{}, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	return rec, nil
}

// BatchItem is the outcome of one document of a batch. Exactly one of
// Reconstruction and Error is set.
type BatchItem struct {
	Index          int                  `json:"index"`
	Reconstruction *data.Reconstruction `json:"reconstruction,omitempty"`
	Error          string               `json:"error,omitempty"`
}

// RecoverBatch runs Recover for every document concurrently. Documents are
// independent: a failure in one never affects the others. Results keep the
// order of docs.
func (s *Service) RecoverBatch(ctx context.Context, docs []json.RawMessage) []BatchItem {
	items := make([]BatchItem, len(docs))

	var g errgroup.Group
	g.SetLimit(batchConcurrency)
	for i, raw := range docs {
		g.Go(func() error {
			items[i].Index = i
			rec, err := s.Recover(ctx, raw)
			if err != nil {
				items[i].Error = err.Error()
				return nil
			}
			items[i].Reconstruction = &rec
			return nil
		})
	}
	g.Wait()
	return items
}
