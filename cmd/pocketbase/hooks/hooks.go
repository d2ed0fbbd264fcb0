package hooks

import (
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"github.com/secret-recovery/server/src/server/data"
	"github.com/secret-recovery/server/src/server/recovery"
	"github.com/secret-recovery/server/src/server/shamir"
)

// Register adds all business logic hooks to the PocketBase app.
func Register(app core.App) {
	// Every new reconstruction is computed from its stored document, so
	// records created through the generic collection API cannot carry a
	// secret of their own.
	app.OnRecordCreate("reconstructions").BindFunc(func(e *core.RecordEvent) error {
		raw, err := json.Marshal(e.Record.Get("document"))
		if err != nil {
			return apis.NewBadRequestError("invalid share document", err)
		}

		rec, err := recovery.Evaluate(raw)
		if errors.Is(err, recovery.ErrInvalidDocument) {
			return apis.NewBadRequestError(err.Error(), nil)
		}
		if err != nil {
			return err
		}

		if id := e.Record.GetString("reconstruction_id"); id != "" {
			rec.ID = id
		}
		for k, v := range Fields(rec) {
			e.Record.Set(k, v)
		}
		return e.Next()
	})

	app.OnRecordAfterCreateSuccess("reconstructions").BindFunc(func(e *core.RecordEvent) error {
		if e.Record.GetString("status") == data.StatusFailed {
			slog.Info("Reconstruction failed",
				"reconstruction_id", e.Record.GetString("reconstruction_id"),
				"stage", e.Record.GetString("stage"),
				"error", e.Record.GetString("error"))
		}
		return e.Next()
	})
}

// Fields maps a reconstruction onto the reconstructions collection. The
// document itself is left untouched.
func Fields(rec data.Reconstruction) map[string]any {
	secret := ""
	if rec.Secret != nil {
		secret = strconv.FormatInt(*rec.Secret, 10)
	}
	return map[string]any{
		"reconstruction_id": rec.ID,
		"status":            rec.Status,
		"secret":            secret,
		"n":                 rec.N,
		"k":                 rec.K,
		"used":              rec.Used,
		"dropped":           rec.Dropped,
		"stage":             rec.Stage,
		"error":             rec.Error,
		"share_id":          rec.ShareID,
		"document_sha256":   rec.DocumentSHA256,
	}
}

// FromRecord is the inverse of Fields.
func FromRecord(r *core.Record) data.Reconstruction {
	rec := data.Reconstruction{
		ID:             r.GetString("reconstruction_id"),
		Status:         r.GetString("status"),
		N:              r.GetInt("n"),
		K:              r.GetInt("k"),
		Used:           []shamir.Point{},
		Dropped:        []data.DroppedShare{},
		Stage:          r.GetString("stage"),
		Error:          r.GetString("error"),
		ShareID:        r.GetString("share_id"),
		DocumentSHA256: r.GetString("document_sha256"),
		CreatedAt:      r.GetDateTime("created").Time().UTC(),
	}
	if s, err := strconv.ParseInt(r.GetString("secret"), 10, 64); err == nil {
		rec.Secret = &s
	}
	if archive := r.GetString("archive"); archive != "" {
		rec.DocumentKey = r.BaseFilesPath() + "/" + archive
	}
	decodeJSONField(r, "used", &rec.Used)
	decodeJSONField(r, "dropped", &rec.Dropped)
	if rec.Used == nil {
		rec.Used = []shamir.Point{}
	}
	if rec.Dropped == nil {
		rec.Dropped = []data.DroppedShare{}
	}
	return rec
}

func decodeJSONField(r *core.Record, field string, dst any) {
	raw, err := json.Marshal(r.Get(field))
	if err != nil {
		return
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		slog.Warn("Malformed JSON field", "field", field, "record", r.Id, "error", err)
	}
}
