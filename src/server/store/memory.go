package store

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/secret-recovery/server/src/server/data"
)

type MemoryStore struct {
	mu              sync.RWMutex
	reconstructions map[string]data.Reconstruction
	order           []string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		reconstructions: make(map[string]data.Reconstruction),
	}
}

func (s *MemoryStore) AddReconstruction(_ context.Context, r data.Reconstruction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.reconstructions[r.ID]; !exists {
		s.order = append(s.order, r.ID)
	}
	s.reconstructions[r.ID] = r
	return nil
}

func (s *MemoryStore) GetReconstruction(_ context.Context, id string) (data.Reconstruction, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reconstructions[id]
	return r, ok, nil
}

func (s *MemoryStore) ListReconstructions(_ context.Context) ([]data.ReconstructionSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summaries := make([]data.ReconstructionSummary, 0, len(s.order))
	for _, id := range s.order {
		summaries = append(summaries, s.reconstructions[id].Summary())
	}
	return summaries, nil
}

// LoadDocuments reconstructs every *.json share document in dir and stores
// the outcome. A document that cannot be read or parsed aborts the load; a
// document that fails reconstruction is stored as a failed record.
func (s *MemoryStore) LoadDocuments(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading documents dir: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		raw, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}

		rec, err := data.Evaluate(raw)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", path, err)
		}
		slog.Info("Seed document loaded", "file", path, "reconstruction_id", rec.ID, "status", rec.Status)
		s.AddReconstruction(context.Background(), rec)
	}
	return nil
}
