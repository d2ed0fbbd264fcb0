package main

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"slices"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/plugins/migratecmd"
	"github.com/pocketbase/pocketbase/tools/filesystem"
	"github.com/pocketbase/pocketbase/tools/types"

	"github.com/secret-recovery/server/cmd/pocketbase/hooks"
	_ "github.com/secret-recovery/server/cmd/pocketbase/migrations"
	"github.com/secret-recovery/server/src/server/data"
	"github.com/secret-recovery/server/src/server/recovery"
)

const maxDocumentBytes = 1 << 20

func main() {
	app := pocketbase.New()

	// Register migration system
	migratecmd.MustRegister(app, app.RootCmd, migratecmd.Config{
		Dir:         "cmd/pocketbase/migrations",
		Automigrate: true,
	})

	// Register business logic hooks
	hooks.Register(app)

	app.OnServe().BindFunc(func(se *core.ServeEvent) error {
		registerRoutes(se, app)
		return se.Next()
	})

	if err := app.Start(); err != nil {
		log.Fatal(err)
	}
}

// registerRoutes exposes the same /reconstructions paths as the standalone
// server on top of the reconstructions collection.
func registerRoutes(se *core.ServeEvent, app core.App) {
	// GET /reconstructions: summaries, oldest first
	se.Router.GET("/reconstructions", func(e *core.RequestEvent) error {
		records, err := app.FindAllRecords("reconstructions")
		if err != nil {
			return e.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
		}
		slices.SortStableFunc(records, func(a, b *core.Record) int {
			return a.GetDateTime("created").Time().Compare(b.GetDateTime("created").Time())
		})

		summaries := make([]data.ReconstructionSummary, 0, len(records))
		for _, r := range records {
			summaries = append(summaries, hooks.FromRecord(r).Summary())
		}
		return e.JSON(http.StatusOK, summaries)
	})

	// GET /reconstructions/{id}
	se.Router.GET("/reconstructions/{id}", func(e *core.RequestEvent) error {
		record, err := findReconstruction(app, e.Request.PathValue("id"))
		if err != nil {
			return e.JSON(http.StatusNotFound, map[string]string{"error": "not found"})
		}
		return e.JSON(http.StatusOK, hooks.FromRecord(record))
	})

	// GET /reconstructions/{id}/document: archived document download
	se.Router.GET("/reconstructions/{id}/document", func(e *core.RequestEvent) error {
		record, err := findReconstruction(app, e.Request.PathValue("id"))
		if err != nil {
			return e.JSON(http.StatusNotFound, map[string]string{"error": "document not found"})
		}

		archiveFile := record.GetString("archive")
		if archiveFile == "" {
			return e.JSON(http.StatusNotFound, map[string]string{"error": "document not found"})
		}

		fsys, err := app.NewFilesystem()
		if err != nil {
			return e.JSON(http.StatusInternalServerError, map[string]string{"error": "storage error"})
		}
		defer fsys.Close()

		filePath := record.BaseFilesPath() + "/" + archiveFile
		return fsys.Serve(e.Response, e.Request, filePath, record.GetString("reconstruction_id")+".json")
	})

	// POST /reconstructions: submit a share document
	se.Router.POST("/reconstructions", func(e *core.RequestEvent) error {
		raw, err := io.ReadAll(http.MaxBytesReader(e.Response, e.Request.Body, maxDocumentBytes))
		if err != nil {
			return e.JSON(http.StatusRequestEntityTooLarge, map[string]string{"error": "document too large"})
		}

		record, err := saveReconstruction(app, raw, e.Auth)
		if errors.Is(err, recovery.ErrInvalidDocument) {
			return e.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
		if err != nil {
			return e.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
		}

		rec := hooks.FromRecord(record)
		if rec.Status == data.StatusFailed {
			return e.JSON(http.StatusUnprocessableEntity, rec)
		}
		return e.JSON(http.StatusCreated, rec)
	}).Bind(apis.RequireAuth())

	// Reconstruct share documents found on disk at startup
	seedDocuments(app)
}

func findReconstruction(app core.App, id string) (*core.Record, error) {
	return app.FindFirstRecordByFilter("reconstructions", "reconstruction_id = {:rid}", map[string]any{
		"rid": id,
	})
}

// saveReconstruction validates raw and stores it as a new record. The
// create hook fills in the outcome.
func saveReconstruction(app core.App, raw []byte, auth *core.Record) (*core.Record, error) {
	if _, err := data.ParseDocument(raw); err != nil {
		return nil, fmt.Errorf("%w: %v", recovery.ErrInvalidDocument, err)
	}

	collection, err := app.FindCollectionByNameOrId("reconstructions")
	if err != nil {
		return nil, err
	}

	record := core.NewRecord(collection)
	record.Set("document", types.JSONRaw(raw))
	if auth != nil {
		record.Set("submitted_by", auth.Id)
	}

	archive, err := filesystem.NewFileFromBytes(raw, "document.json")
	if err != nil {
		return nil, err
	}
	record.Set("archive", archive)

	if err := app.Save(record); err != nil {
		return nil, err
	}
	return record, nil
}

// seedDocuments reconstructs every JSON document in DOCUMENTS_DIR whose
// digest is not yet recorded.
func seedDocuments(app core.App) {
	dir := os.Getenv("DOCUMENTS_DIR")
	if dir == "" {
		return
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		slog.Warn("Cannot read documents directory", "dir", dir, "error", err)
		return
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		raw, err := os.ReadFile(path)
		if err != nil {
			slog.Warn("Cannot read document", "path", path, "error", err)
			continue
		}

		// Skip if already recorded
		sum := sha256.Sum256(raw)
		existing, _ := app.FindFirstRecordByFilter("reconstructions", "document_sha256 = {:sum}", map[string]any{
			"sum": hex.EncodeToString(sum[:]),
		})
		if existing != nil {
			continue
		}

		if _, err := saveReconstruction(app, raw, nil); err != nil {
			slog.Warn("Failed to store document", "path", path, "error", err)
		}
	}
}
