package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	json "github.com/goccy/go-json"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/lix74/menubot/core/analytics"
	"github.com/lix74/menubot/core/config"
	"github.com/lix74/menubot/core/graph"
	"github.com/lix74/menubot/core/logger"
	"github.com/lix74/menubot/core/users"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// PGStore keeps each document as a jsonb row in a single documents table.
// Same schema as the file backend, different durability story.
type PGStore struct {
	db *sqlx.DB
}

// NewPGStore connects, verifies connectivity and applies migrations.
func NewPGStore(cfg config.PostgresConfig) (*PGStore, error) {
	dsn := fmt.Sprintf(
		"user=%s password=%s host=%s port=%d dbname=%s sslmode=%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Name, cfg.SSLMode,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	start := time.Now()
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	took := time.Since(start)
	if err != nil {
		logger.Error(ctx, "store", "db.connect",
			slog.String("backend", "postgres"),
			slog.String("host", cfg.Host),
			slog.Int("port", cfg.Port),
			slog.String("db", cfg.Name),
			slog.Duration("duration", logger.RoundMS(took)),
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("db connect: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}

	if err := runMigrations(cfg); err != nil {
		_ = db.Close()
		return nil, err
	}

	logger.Info(ctx, "store", "db.connect",
		slog.String("backend", "postgres"),
		slog.String("host", cfg.Host),
		slog.Int("port", cfg.Port),
		slog.String("db", cfg.Name),
		slog.String("status", "ok"),
		slog.Duration("duration", logger.RoundMS(took)),
	)
	return &PGStore{db: db}, nil
}

func runMigrations(cfg config.PostgresConfig) error {
	src, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Name, cfg.SSLMode,
	)
	m, err := migrate.NewWithSourceInstance("iofs", src, dsn)
	if err != nil {
		return fmt.Errorf("init migrations: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// LoadGraph reads the graph document, creating defaults on first load.
func (s *PGStore) LoadGraph() (graph.Snapshot, error) {
	var snap graph.Snapshot
	ok, err := s.read(storeGraph, &snap)
	if err != nil {
		return graph.Snapshot{}, err
	}
	if !ok {
		snap = graph.DefaultSnapshot(time.Now())
		if err := s.SaveGraph(snap); err != nil {
			return graph.Snapshot{}, err
		}
	}
	return snap, nil
}

// SaveGraph writes the graph document.
func (s *PGStore) SaveGraph(snap graph.Snapshot) error {
	return s.write(storeGraph, snap)
}

// LoadUsers reads the users document, creating defaults on first load.
func (s *PGStore) LoadUsers() (users.Document, error) {
	var doc users.Document
	ok, err := s.read(storeUsers, &doc)
	if err != nil {
		return users.Document{}, err
	}
	if !ok {
		doc = users.DefaultDocument(time.Now())
		if err := s.SaveUsers(doc); err != nil {
			return users.Document{}, err
		}
	}
	return doc, nil
}

// SaveUsers writes the users document.
func (s *PGStore) SaveUsers(doc users.Document) error {
	return s.write(storeUsers, doc)
}

// LoadAnalytics reads the analytics document, creating defaults on first load.
func (s *PGStore) LoadAnalytics() (analytics.Document, error) {
	var doc analytics.Document
	ok, err := s.read(storeAnalytics, &doc)
	if err != nil {
		return analytics.Document{}, err
	}
	if !ok {
		doc = analytics.DefaultDocument(time.Now())
		if err := s.SaveAnalytics(doc); err != nil {
			return analytics.Document{}, err
		}
	}
	return doc, nil
}

// SaveAnalytics writes the analytics document.
func (s *PGStore) SaveAnalytics(doc analytics.Document) error {
	return s.write(storeAnalytics, doc)
}

// Close releases the connection pool.
func (s *PGStore) Close() error {
	return s.db.Close()
}

func (s *PGStore) read(name string, out any) (bool, error) {
	var raw []byte
	err := s.db.Get(&raw, `SELECT doc FROM documents WHERE name = $1`, name)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read document %s: %w", name, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("parse document %s: %w", name, err)
	}
	return true, nil
}

func (s *PGStore) write(name string, doc any) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document %s: %w", name, err)
	}
	_, err = s.db.Exec(`
		INSERT INTO documents (name, doc, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE SET doc = EXCLUDED.doc, updated_at = now()`,
		name, data,
	)
	if err != nil {
		return fmt.Errorf("write document %s: %w", name, err)
	}
	return nil
}
