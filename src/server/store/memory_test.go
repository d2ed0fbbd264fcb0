package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/secret-recovery/server/src/server/data"
)

func TestMemoryStore_AddGetList(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	secret := int64(3)
	first := data.Reconstruction{ID: "a", Status: data.StatusRecovered, Secret: &secret, N: 4, K: 3}
	second := data.Reconstruction{ID: "b", Status: data.StatusFailed, Stage: "decode", N: 4, K: 3}
	if err := s.AddReconstruction(ctx, first); err != nil {
		t.Fatal(err)
	}
	if err := s.AddReconstruction(ctx, second); err != nil {
		t.Fatal(err)
	}

	got, ok, err := s.GetReconstruction(ctx, "a")
	if err != nil || !ok {
		t.Fatalf("GetReconstruction(a) = %v, %v", ok, err)
	}
	if got.Secret == nil || *got.Secret != 3 {
		t.Errorf("secret = %v, want 3", got.Secret)
	}

	if _, ok, _ := s.GetReconstruction(ctx, "missing"); ok {
		t.Error("GetReconstruction(missing) found a record")
	}

	list, err := s.ListReconstructions(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].ID != "a" || list[1].ID != "b" {
		t.Errorf("list = %+v, want a then b", list)
	}
}

func TestMemoryStore_LoadDocuments(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"testcase1.json": `{"keys":{"n":4,"k":3},"1":{"base":"10","value":"4"},"2":{"base":"2","value":"111"},"3":{"base":"10","value":"12"},"6":{"base":"4","value":"213"}}`,
		"short.json":     `{"keys":{"n":4,"k":3},"1":{"base":"10","value":"4"}}`,
		"notes.txt":      `ignored`,
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	s := NewMemoryStore()
	if err := s.LoadDocuments(dir); err != nil {
		t.Fatalf("LoadDocuments: %v", err)
	}

	list, _ := s.ListReconstructions(context.Background())
	if len(list) != 2 {
		t.Fatalf("len(list) = %d, want 2", len(list))
	}
	byStatus := map[string]data.ReconstructionSummary{}
	for _, r := range list {
		byStatus[r.Status] = r
	}
	if r := byStatus[data.StatusRecovered]; r.Secret == nil || *r.Secret != 3 {
		t.Errorf("recovered record = %+v, want secret 3", r)
	}
	if r := byStatus[data.StatusFailed]; r.Stage != "insufficient_shares" {
		t.Errorf("failed record stage = %q, want insufficient_shares", r.Stage)
	}

	// Seeded records match what data.Evaluate produces for the same bytes.
	want, err := data.Evaluate([]byte(files["testcase1.json"]))
	if err != nil {
		t.Fatal(err)
	}
	got, ok, _ := s.GetReconstruction(context.Background(), byStatus[data.StatusRecovered].ID)
	if !ok || got.DocumentSHA256 != want.DocumentSHA256 || got.DocumentKey != "" {
		t.Errorf("seeded record = %+v, want digest %s and no document key", got, want.DocumentSHA256)
	}
}

func TestMemoryStore_LoadDocumentsBadJSON(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "bad.json"), []byte(`{`), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := NewMemoryStore().LoadDocuments(dir); err == nil {
		t.Fatal("expected error for malformed document")
	}
}
