// Package pgstore provides a PostgreSQL implementation of triage.Store.
package pgstore

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/linnemanlabs/sift/internal/classify"
	"github.com/linnemanlabs/sift/internal/triage"
)

var tracer = otel.Tracer("github.com/linnemanlabs/sift/internal/triage/pgstore")

//go:embed schema.sql
var schema string

// Store persists triage results in PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// New applies the schema and returns a ready Store on the given pool.
func New(ctx context.Context, pool *pgxpool.Pool) (*Store, error) {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

const resultColumns = `fingerprint, id, category, confidence, raw_label, sub_type,
	backend_unavailable, extracted, attachments, model, created_at, duration_s`

// Exists reports whether a result is stored for the fingerprint.
func (s *Store) Exists(ctx context.Context, fp string) (bool, error) {
	ctx, span := tracer.Start(ctx, "pgstore.Exists", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM triage_results WHERE fingerprint = $1)`, fp,
	).Scan(&exists)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false, fmt.Errorf("exists: %w", err)
	}
	return exists, nil
}

// Get retrieves a triage result by fingerprint.
func (s *Store) Get(ctx context.Context, fp string) (*triage.Result, bool, error) {
	ctx, span := tracer.Start(ctx, "pgstore.Get", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	query := `SELECT ` + resultColumns + ` FROM triage_results WHERE fingerprint = $1`
	r, err := scanResultRow(s.pool.QueryRow(ctx, query, fp))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, false, err
	}
	if r == nil {
		return nil, false, nil
	}
	return r, true, nil
}

// Put inserts the result keyed by its fingerprint. The insert uses
// ON CONFLICT DO NOTHING so the existence check and write are one atomic
// statement: a lost race surfaces as ErrAlreadyExists, never as an
// overwrite. Re-inserting the same run is a no-op.
func (s *Store) Put(ctx context.Context, r *triage.Result) error {
	ctx, span := tracer.Start(ctx, "pgstore.Put", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "INSERT"),
	))
	defer span.End()

	extractedJSON, err := json.Marshal(r.Extracted)
	if err != nil {
		return fmt.Errorf("marshal extracted: %w", err)
	}
	var attachmentsJSON []byte
	if len(r.Attachments) > 0 {
		if attachmentsJSON, err = json.Marshal(r.Attachments); err != nil {
			return fmt.Errorf("marshal attachments: %w", err)
		}
	}

	tag, err := s.pool.Exec(ctx,
		`INSERT INTO triage_results (`+resultColumns+`)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		 ON CONFLICT (fingerprint) DO NOTHING`,
		r.Fingerprint, r.ID, string(r.Category), r.Confidence, r.RawLabel, r.SubType,
		r.BackendUnavailable, extractedJSON, attachmentsJSON, r.Model, r.CreatedAt, r.Duration,
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("insert result: %w", err)
	}

	if tag.RowsAffected() == 0 {
		var existingID string
		err := s.pool.QueryRow(ctx,
			`SELECT id FROM triage_results WHERE fingerprint = $1`, r.Fingerprint,
		).Scan(&existingID)
		if err == nil && existingID == r.ID {
			return nil
		}
		return triage.ErrAlreadyExists
	}
	return nil
}

// scanResultRow scans a single row into a triage.Result.
// Returns (nil, nil) when no row is found.
func scanResultRow(row pgx.Row) (*triage.Result, error) {
	var (
		r               triage.Result
		category        string
		extractedJSON   []byte
		attachmentsJSON []byte
	)

	err := row.Scan(
		&r.Fingerprint, &r.ID, &category, &r.Confidence, &r.RawLabel, &r.SubType,
		&r.BackendUnavailable, &extractedJSON, &attachmentsJSON, &r.Model, &r.CreatedAt, &r.Duration,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan: %w", err)
	}

	r.Category = classify.Category(category)

	if err := json.Unmarshal(extractedJSON, &r.Extracted); err != nil {
		return nil, fmt.Errorf("unmarshal extracted: %w", err)
	}
	if len(attachmentsJSON) > 0 {
		if err := json.Unmarshal(attachmentsJSON, &r.Attachments); err != nil {
			return nil, fmt.Errorf("unmarshal attachments: %w", err)
		}
	}
	return &r, nil
}
