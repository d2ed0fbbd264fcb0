package data

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"github.com/secret-recovery/server/src/server/shamir"
)

const (
	StatusRecovered = "recovered"
	StatusFailed    = "failed"
)

// Keys is the metadata object of a share document.
type Keys struct {
	N int `json:"n"`
	K int `json:"k"`
}

func (k Keys) Validate() error {
	return validation.ValidateStruct(&k,
		validation.Field(&k.N, validation.Required, validation.Min(1)),
		validation.Field(&k.K, validation.Required, validation.Min(1)),
	)
}

// ShareDocument is the JSON input of a reconstruction:
//
//	{"keys": {"n": 4, "k": 3}, "1": {"base": "10", "value": "4"}, ...}
//
// Every top-level key other than "keys" is kept as a candidate share; the
// parser decides which of them are shares.
type ShareDocument struct {
	Keys   Keys
	Shares []shamir.Share
}

type shareEntry struct {
	Base  json.RawMessage `json:"base"`
	Value json.RawMessage `json:"value"`
}

// UnmarshalJSON walks the top-level object token by token so that a share
// key repeated in the document yields two shares instead of the last one
// silently winning.
func (d *ShareDocument) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return errors.New("share document must be a JSON object")
	}

	var (
		keysRaw json.RawMessage
		shares  []shamir.Share
	)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := tok.(string)
		var msg json.RawMessage
		if err := dec.Decode(&msg); err != nil {
			return err
		}

		if key == "keys" {
			if keysRaw != nil {
				return errors.New(`duplicate "keys" object`)
			}
			keysRaw = msg
			continue
		}
		var e shareEntry
		if err := json.Unmarshal(msg, &e); err != nil {
			if !shamir.IsShareID(key) {
				continue
			}
			// Keep malformed shares so the parser reports them as dropped.
			shares = append(shares, shamir.Share{ID: key})
			continue
		}
		shares = append(shares, shamir.Share{
			ID:    key,
			Base:  scalarString(e.Base),
			Value: scalarString(e.Value),
		})
	}

	if keysRaw == nil {
		return errors.New(`missing "keys" object`)
	}
	var keys Keys
	if err := json.Unmarshal(keysRaw, &keys); err != nil {
		return fmt.Errorf(`parsing "keys": %w`, err)
	}

	slices.SortStableFunc(shares, func(a, b shamir.Share) int {
		return strings.Compare(a.ID, b.ID)
	})
	if shares == nil {
		shares = []shamir.Share{}
	}

	d.Keys = keys
	d.Shares = shares
	return nil
}

func (d ShareDocument) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(d.Shares)+1)
	out["keys"] = d.Keys
	for _, s := range d.Shares {
		out[s.ID] = map[string]string{"base": s.Base, "value": s.Value}
	}
	return json.Marshal(out)
}

// scalarString returns a JSON string's contents or a number's literal text.
func scalarString(msg json.RawMessage) string {
	msg = bytes.TrimSpace(msg)
	if len(msg) == 0 || bytes.Equal(msg, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(msg, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(msg, &n); err == nil {
		return n.String()
	}
	return string(msg)
}

// Validate checks the document's metadata.
func (d ShareDocument) Validate() error {
	return d.Keys.Validate()
}

// Reconstruct runs the share parser and reconstruction on the document.
func (d ShareDocument) Reconstruct() (shamir.Result, error) {
	return shamir.ReconstructShares(d.Keys.N, d.Keys.K, d.Shares)
}

// ParseDocument decodes and validates a share document.
func ParseDocument(raw []byte) (ShareDocument, error) {
	var doc ShareDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return ShareDocument{}, fmt.Errorf("decoding share document: %w", err)
	}
	if err := doc.Validate(); err != nil {
		return ShareDocument{}, fmt.Errorf("invalid keys: %w", err)
	}
	return doc, nil
}

// ── Reconstruction records ──

type DroppedShare struct {
	ShareID string `json:"share_id"`
	Stage   string `json:"stage"`
	Error   string `json:"error"`
}

type Reconstruction struct {
	ID             string         `json:"id"`
	Status         string         `json:"status"`
	Secret         *int64         `json:"secret,omitempty"`
	N              int            `json:"n"`
	K              int            `json:"k"`
	Used           []shamir.Point `json:"used"`
	Dropped        []DroppedShare `json:"dropped"`
	Stage          string         `json:"stage,omitempty"`
	Error          string         `json:"error,omitempty"`
	ShareID        string         `json:"share_id,omitempty"`
	DocumentKey    string         `json:"document_key,omitempty"`
	DocumentSHA256 string         `json:"document_sha256"`
	CreatedAt      time.Time      `json:"created_at"`
}

type ReconstructionSummary struct {
	ID        string    `json:"id"`
	Status    string    `json:"status"`
	Secret    *int64    `json:"secret,omitempty"`
	N         int       `json:"n"`
	K         int       `json:"k"`
	Stage     string    `json:"stage,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (r Reconstruction) Summary() ReconstructionSummary {
	return ReconstructionSummary{
		ID:        r.ID,
		Status:    r.Status,
		Secret:    r.Secret,
		N:         r.N,
		K:         r.K,
		Stage:     r.Stage,
		CreatedAt: r.CreatedAt,
	}
}

func NewReconstructionID() string {
	return uuid.New().String()
}

// NewReconstruction builds the record for one attempt from the outcome of
// shamir.ReconstructShares.
func NewReconstruction(doc ShareDocument, res shamir.Result, err error) Reconstruction {
	rec := Reconstruction{
		ID:        NewReconstructionID(),
		N:         doc.Keys.N,
		K:         doc.Keys.K,
		Used:      res.Used,
		Dropped:   make([]DroppedShare, 0, len(res.Dropped)),
		CreatedAt: time.Now().UTC(),
	}
	if rec.Used == nil {
		rec.Used = []shamir.Point{}
	}
	for _, d := range res.Dropped {
		rec.Dropped = append(rec.Dropped, DroppedShare{
			ShareID: d.ID,
			Stage:   shamir.Stage(d.Err),
			Error:   d.Err.Error(),
		})
	}

	if err != nil {
		rec.Status = StatusFailed
		rec.Stage = shamir.Stage(err)
		rec.Error = err.Error()
		rec.ShareID = shamir.ShareIDOf(err)
		return rec
	}
	secret := res.Secret
	rec.Status = StatusRecovered
	rec.Secret = &secret
	return rec
}

// Evaluate parses raw, reconstructs its secret and returns the record of
// the attempt with the document digest set. Only a malformed document is an
// error; a failed reconstruction is a record with status "failed". Nothing
// is stored.
func Evaluate(raw []byte) (Reconstruction, error) {
	doc, err := ParseDocument(raw)
	if err != nil {
		return Reconstruction{}, err
	}

	res, rerr := doc.Reconstruct()
	rec := NewReconstruction(doc, res, rerr)
	sum := sha256.Sum256(raw)
	rec.DocumentSHA256 = hex.EncodeToString(sum[:])

	for _, d := range rec.Dropped {
		slog.Warn("Share dropped", "reconstruction_id", rec.ID, "share_id", d.ShareID, "stage", d.Stage, "error", d.Error)
	}
	if rerr != nil {
		slog.Info("Reconstruction failed", "reconstruction_id", rec.ID, "stage", rec.Stage, "share_id", rec.ShareID, "error", rerr)
	} else {
		slog.Debug("Reconstruction succeeded", "reconstruction_id", rec.ID, "n", rec.N, "k", rec.K)
	}
	return rec, nil
}
