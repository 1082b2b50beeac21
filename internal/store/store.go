package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/kikiluvv/clipforge/internal/export"
	"github.com/kikiluvv/clipforge/internal/planner"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store persists the publishing plan and the export catalog in a local
// sqlite database. One writer connection, WAL mode.
type Store struct {
	conn   *sql.DB
	logger zerolog.Logger
}

func Open(dbPath string, logger zerolog.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)

	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			return nil, fmt.Errorf("failed to execute %s: %w", pragma, err)
		}
	}

	s := &Store{
		conn:   conn,
		logger: logger.With().Str("component", "store").Logger(),
	}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.conn.Close()
}

func (s *Store) migrate() error {
	migrations, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("failed to read migrations: %w", err)
	}

	for _, m := range migrations {
		if m.IsDir() {
			continue
		}
		name := m.Name()
		if s.isMigrationApplied(name) {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", name, err)
		}
		if _, err := s.conn.Exec(string(content)); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", name, err)
		}
		if _, err := s.conn.Exec("INSERT OR IGNORE INTO _migrations (name) VALUES (?)", name); err != nil {
			return fmt.Errorf("failed to record migration %s: %w", name, err)
		}
		s.logger.Info().Str("migration", name).Msg("applied migration")
	}
	return nil
}

func (s *Store) isMigrationApplied(name string) bool {
	var exists int
	err := s.conn.QueryRow("SELECT 1 FROM sqlite_master WHERE type='table' AND name='_migrations'").Scan(&exists)
	if err != nil {
		return false
	}
	var applied int
	err = s.conn.QueryRow("SELECT 1 FROM _migrations WHERE name = ?", name).Scan(&applied)
	return err == nil && applied == 1
}

// SavePlan replaces the stored plan with the given items atomically.
func (s *Store) SavePlan(ctx context.Context, items []planner.PlanItem) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM plan_items"); err != nil {
		return fmt.Errorf("failed to clear plan: %w", err)
	}
	for _, item := range items {
		tags, err := json.Marshal(item.Hashtags)
		if err != nil {
			return fmt.Errorf("failed to encode hashtags for %s: %w", item.ID, err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO plan_items (id, post_at, platform, title, description, hashtags, clip_path)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			item.ID, item.PostAt.UTC().Format(time.RFC3339), item.Platform,
			item.Title, item.Description, string(tags), item.ClipPath)
		if err != nil {
			return fmt.Errorf("failed to insert plan item %s: %w", item.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit plan: %w", err)
	}
	s.logger.Info().Int("items", len(items)).Msg("plan saved")
	return nil
}

// LoadPlan returns all plan items ordered by post time.
func (s *Store) LoadPlan(ctx context.Context) ([]planner.PlanItem, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT id, post_at, platform, title, description, hashtags, clip_path
		 FROM plan_items ORDER BY post_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query plan: %w", err)
	}
	defer rows.Close()

	var items []planner.PlanItem
	for rows.Next() {
		var item planner.PlanItem
		var postAt, tags string
		if err := rows.Scan(&item.ID, &postAt, &item.Platform, &item.Title,
			&item.Description, &tags, &item.ClipPath); err != nil {
			return nil, fmt.Errorf("failed to scan plan item: %w", err)
		}
		item.PostAt, err = time.Parse(time.RFC3339, postAt)
		if err != nil {
			return nil, fmt.Errorf("bad post_at for item %s: %w", item.ID, err)
		}
		if err := json.Unmarshal([]byte(tags), &item.Hashtags); err != nil {
			return nil, fmt.Errorf("bad hashtags for item %s: %w", item.ID, err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// GetPlanItem fetches a single plan item by ID.
func (s *Store) GetPlanItem(ctx context.Context, id string) (planner.PlanItem, error) {
	var item planner.PlanItem
	var postAt, tags string
	err := s.conn.QueryRowContext(ctx,
		`SELECT id, post_at, platform, title, description, hashtags, clip_path
		 FROM plan_items WHERE id = ?`, id).
		Scan(&item.ID, &postAt, &item.Platform, &item.Title, &item.Description, &tags, &item.ClipPath)
	if err == sql.ErrNoRows {
		return item, fmt.Errorf("plan item %s not found", id)
	}
	if err != nil {
		return item, fmt.Errorf("failed to load plan item %s: %w", id, err)
	}
	if item.PostAt, err = time.Parse(time.RFC3339, postAt); err != nil {
		return item, fmt.Errorf("bad post_at for item %s: %w", id, err)
	}
	if err := json.Unmarshal([]byte(tags), &item.Hashtags); err != nil {
		return item, fmt.Errorf("bad hashtags for item %s: %w", id, err)
	}
	return item, nil
}

// DeletePlanItem removes one item, reporting whether it existed.
func (s *Store) DeletePlanItem(ctx context.Context, id string) (bool, error) {
	res, err := s.conn.ExecContext(ctx, "DELETE FROM plan_items WHERE id = ?", id)
	if err != nil {
		return false, fmt.Errorf("failed to delete plan item %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ClearPlan removes every plan item.
func (s *Store) ClearPlan(ctx context.Context) error {
	if _, err := s.conn.ExecContext(ctx, "DELETE FROM plan_items"); err != nil {
		return fmt.Errorf("failed to clear plan: %w", err)
	}
	return nil
}

// RecordExport adds a clip to the export catalog.
func (s *Store) RecordExport(ctx context.Context, info export.ExportedClipInfo, preset string) error {
	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO exported_clips (path, description, title_suggestion, start_sec, end_sec, score, preset)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		info.Path, info.Description, info.TitleSuggestion,
		info.Highlight.Start.Seconds(), info.Highlight.End.Seconds(),
		info.Highlight.Score, preset)
	if err != nil {
		return fmt.Errorf("failed to record export: %w", err)
	}
	return nil
}

// ListExports returns the export catalog, newest first.
func (s *Store) ListExports(ctx context.Context) ([]export.ExportedClipInfo, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT path, description, title_suggestion, start_sec, end_sec, score
		 FROM exported_clips ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query exports: %w", err)
	}
	defer rows.Close()

	var infos []export.ExportedClipInfo
	for rows.Next() {
		var info export.ExportedClipInfo
		var startSec, endSec float64
		if err := rows.Scan(&info.Path, &info.Description, &info.TitleSuggestion,
			&startSec, &endSec, &info.Highlight.Score); err != nil {
			return nil, fmt.Errorf("failed to scan export: %w", err)
		}
		info.Highlight.Description = info.Description
		info.Highlight.Start = time.Duration(startSec * float64(time.Second))
		info.Highlight.End = time.Duration(endSec * float64(time.Second))
		infos = append(infos, info)
	}
	return infos, rows.Err()
}
