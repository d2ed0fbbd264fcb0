package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"
	"github.com/secret-recovery/server/src/server/data"
)

//go:embed migrations/001_initial.sql
var migrationSQL string

type PostgresStore struct {
	db *sql.DB
}

func New(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Migrate() error {
	_, err := s.db.Exec(migrationSQL)
	if err != nil {
		return fmt.Errorf("running migration: %w", err)
	}
	slog.Info("Database migration completed")
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) AddReconstruction(ctx context.Context, r data.Reconstruction) error {
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
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		 ON CONFLICT (id) DO UPDATE SET
		   status = EXCLUDED.status,
		   secret = EXCLUDED.secret,
		   used = EXCLUDED.used,
		   dropped = EXCLUDED.dropped,
		   stage = EXCLUDED.stage,
		   error = EXCLUDED.error,
		   share_id = EXCLUDED.share_id,
		   document_key = EXCLUDED.document_key,
		   document_sha256 = EXCLUDED.document_sha256`,
		r.ID, r.Status, secret, r.N, r.K, usedJSON, droppedJSON, r.Stage, r.Error, r.ShareID,
		r.DocumentKey, r.DocumentSHA256, r.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting reconstruction %s: %w", r.ID, err)
	}
	return nil
}

func (s *PostgresStore) GetReconstruction(ctx context.Context, id string) (data.Reconstruction, bool, error) {
	var (
		r             data.Reconstruction
		secret        sql.NullInt64
		used, dropped []byte
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, status, secret, n, k, used, dropped, stage, error, share_id,
		 document_key, document_sha256, created_at
		 FROM reconstructions WHERE id = $1`, id,
	).Scan(&r.ID, &r.Status, &secret, &r.N, &r.K, &used, &dropped, &r.Stage, &r.Error, &r.ShareID,
		&r.DocumentKey, &r.DocumentSHA256, &r.CreatedAt)

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
	if used != nil {
		json.Unmarshal(used, &r.Used)
	}
	if dropped != nil {
		json.Unmarshal(dropped, &r.Dropped)
	}
	return r, true, nil
}

func (s *PostgresStore) ListReconstructions(ctx context.Context) ([]data.ReconstructionSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, status, secret, n, k, stage, created_at FROM reconstructions ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("listing reconstructions: %w", err)
	}
	defer rows.Close()

	summaries := []data.ReconstructionSummary{}
	for rows.Next() {
		var (
			r      data.ReconstructionSummary
			secret sql.NullInt64
		)
		if err := rows.Scan(&r.ID, &r.Status, &secret, &r.N, &r.K, &r.Stage, &r.CreatedAt); err != nil {
			slog.Error("ListReconstructions scan failed", "error", err)
			continue
		}
		if secret.Valid {
			v := secret.Int64
			r.Secret = &v
		}
		summaries = append(summaries, r)
	}
	return summaries, rows.Err()
}
