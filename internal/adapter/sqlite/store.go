// Package sqlite persists gridded profiles so that collections can later be
// gridded in time.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"

	"github.com/couchcryptid/profile-gridding-service/internal/domain"
)

//go:embed schema.sql
var schemaSQL string

// Store is a SQLite-backed archive of gridded profiles.
// It implements pipeline.BatchLoader.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Query selects stored profiles. Zero fields do not filter. From is
// inclusive and To exclusive.
type Query struct {
	Site       string
	Coordinate string
	From       time.Time
	To         time.Time
}

// Open opens (or creates) the database at path and applies the schema.
func Open(path string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", path, err)
	}
	// SQLite allows one writer; serialize through a single connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply store schema: %w", err)
	}
	logger.Info("gridded profile store ready", "path", path)
	return &Store{db: db, logger: logger}, nil
}

// LoadBatch upserts gridded profiles in one transaction. Reprocessing a
// sounding replaces its previous row.
func (s *Store) LoadBatch(ctx context.Context, profiles []domain.GriddedProfile) error {
	if len(profiles) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin store batch: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO gridded_profiles
			(id, site, start_time, coordinate, key_kind, bin_width, rows, processed_at, body)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare store insert: %w", err)
	}
	defer stmt.Close()

	for _, g := range profiles {
		start, err := g.StartTime()
		if err != nil {
			return fmt.Errorf("store profile %s: %w", g.ID, err)
		}
		body, err := json.Marshal(g)
		if err != nil {
			return fmt.Errorf("serialize profile %s: %w", g.ID, err)
		}
		if _, err := stmt.ExecContext(ctx,
			g.ID,
			g.Metadata[domain.SiteAttr],
			domain.FormatStartTime(start),
			g.Coordinate,
			string(g.KeyKind),
			g.BinWidth,
			len(g.Rows),
			g.ProcessedAt.UTC().Format(time.RFC3339Nano),
			body,
		); err != nil {
			return fmt.Errorf("insert profile %s: %w", g.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit store batch: %w", err)
	}
	s.logger.Debug("gridded profiles stored", "count", len(profiles))
	return nil
}

// List returns the profiles matching q ordered by start time. Start times
// are stored in the fixed-width layout, so string order is time order.
func (s *Store) List(ctx context.Context, q Query) ([]domain.GriddedProfile, error) {
	query := `SELECT body FROM gridded_profiles WHERE 1=1`
	var args []any
	if q.Site != "" {
		query += ` AND site = ?`
		args = append(args, q.Site)
	}
	if q.Coordinate != "" {
		query += ` AND coordinate = ?`
		args = append(args, q.Coordinate)
	}
	if !q.From.IsZero() {
		query += ` AND start_time >= ?`
		args = append(args, domain.FormatStartTime(q.From))
	}
	if !q.To.IsZero() {
		query += ` AND start_time < ?`
		args = append(args, domain.FormatStartTime(q.To))
	}
	query += ` ORDER BY start_time, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query store: %w", err)
	}
	defer rows.Close()

	var out []domain.GriddedProfile
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scan stored profile: %w", err)
		}
		var g domain.GriddedProfile
		if err := json.Unmarshal(body, &g); err != nil {
			return nil, fmt.Errorf("decode stored profile: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// Get returns one stored profile by ID, or domain.ErrProfileNotFound.
func (s *Store) Get(ctx context.Context, id string) (domain.GriddedProfile, error) {
	var body []byte
	err := s.db.QueryRowContext(ctx, `SELECT body FROM gridded_profiles WHERE id = ?`, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.GriddedProfile{}, fmt.Errorf("%w: %s", domain.ErrProfileNotFound, id)
	}
	if err != nil {
		return domain.GriddedProfile{}, fmt.Errorf("get profile %s: %w", id, err)
	}
	var g domain.GriddedProfile
	if err := json.Unmarshal(body, &g); err != nil {
		return domain.GriddedProfile{}, fmt.Errorf("decode stored profile: %w", err)
	}
	return g, nil
}

// CheckReadiness pings the database.
func (s *Store) CheckReadiness(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}
