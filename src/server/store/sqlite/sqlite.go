package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/secret-recovery/server/src/server/data"
	_ "modernc.org/sqlite"
)

//go:embed migrations/001_initial.sql
var migrationSQL string

type SQLiteStore struct {
	db *sql.DB
}

func New(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// SQLite performs best with a single writer
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Migrate() error {
	_, err := s.db.Exec(migrationSQL)
	if err != nil {
		return fmt.Errorf("running migration: %w", err)
	}
	slog.Info("SQLite migration completed")
	return nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) AddReconstruction(ctx context.Context, r data.Reconstruction) error {
	usedJSON, err := json.Marshal(r.Used)
	if err != nil {
		return fmt.Errorf("encoding used points: %w", err)
	}
	droppedJSON, err := json.Marshal(r.Dropped)
	if err != nil {
		return fmt.Errorf("encoding dropped shares: %w", err)
	}

	var secret sql.NullInt64
	if r.Secret != nil {
		secret = sql.NullInt64{Int64: *r.Secret, Valid: true}
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO reconstructions (id, status, secret, n, k, used, dropped, stage, error, share_id,
		 document_key, document_sha256, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		   status = excluded.status,
		   secret = excluded.secret,
		   used = excluded.used,
		   dropped = excluded.dropped,
		   stage = excluded.stage,
		   error = excluded.error,
		   share_id = excluded.share_id,
		   document_key = excluded.document_key,
		   document_sha256 = excluded.document_sha256`,
		r.ID, r.Status, secret, r.N, r.K, string(usedJSON), string(droppedJSON), r.Stage, r.Error, r.ShareID,
		r.DocumentKey, r.DocumentSHA256, r.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("inserting reconstruction %s: %w", r.ID, err)
	}
	return nil
}

func (s *SQLiteStore) GetReconstruction(ctx context.Context, id string) (data.Reconstruction, bool, error) {
	var (
		r                   data.Reconstruction
		secret              sql.NullInt64
		usedStr, droppedStr string
		createdAt           string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, status, secret, n, k, used, dropped, stage, error, share_id,
		 document_key, document_sha256, created_at
		 FROM reconstructions WHERE id = ?`, id,
	).Scan(&r.ID, &r.Status, &secret, &r.N, &r.K, &usedStr, &droppedStr, &r.Stage, &r.Error, &r.ShareID,
		&r.DocumentKey, &r.DocumentSHA256, &createdAt)

	if err == sql.ErrNoRows {
		return data.Reconstruction{}, false, nil
	}
	if err != nil {
		return data.Reconstruction{}, false, fmt.Errorf("querying reconstruction %s: %w", id, err)
	}

	if secret.Valid {
		v := secret.Int64
		r.Secret = &v
	}
	if err := json.Unmarshal([]byte(usedStr), &r.Used); err != nil {
		slog.Error("GetReconstruction: bad used column", "error", err, "id", id)
	}
	if err := json.Unmarshal([]byte(droppedStr), &r.Dropped); err != nil {
		slog.Error("GetReconstruction: bad dropped column", "error", err, "id", id)
	}
	r.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)

	return r, true, nil
}

func (s *SQLiteStore) ListReconstructions(ctx context.Context) ([]data.ReconstructionSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, status, secret, n, k, stage, created_at FROM reconstructions ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("listing reconstructions: %w", err)
	}
	defer rows.Close()

	summaries := []data.ReconstructionSummary{}
	for rows.Next() {
		var (
			r         data.ReconstructionSummary
			secret    sql.NullInt64
			createdAt string
		)
		if err := rows.Scan(&r.ID, &r.Status, &secret, &r.N, &r.K, &r.Stage, &createdAt); err != nil {
			slog.Error("ListReconstructions scan failed", "error", err)
			continue
		}
		if secret.Valid {
			v := secret.Int64
			r.Secret = &v
		}
		r.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		summaries = append(summaries, r)
	}
	return summaries, rows.Err()
}
