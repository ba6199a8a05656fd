package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"lifeboat/ml"
)

type Store struct {
	database *sql.DB
}

type ModelLoad struct {
	Path      string    `json:"path"`
	SHA256    string    `json:"sha256"`
	ModelType string    `json:"model_type"`
	Trees     int       `json:"trees"`
	LoadedAt  time.Time `json:"loaded_at"`
}

// Open initializes the SQLite database at path and creates missing tables.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("database path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}
	database, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	query := `
    CREATE TABLE IF NOT EXISTS model_loads (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        path TEXT NOT NULL,
        sha256 TEXT NOT NULL,
        model_type VARCHAR(32) NOT NULL,
        trees INTEGER NOT NULL,
        loaded_at DATETIME NOT NULL
    );
    CREATE INDEX IF NOT EXISTS idx_model_loads_loaded_at ON model_loads(loaded_at);
    `
	if _, err := database.Exec(query); err != nil {
		database.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return &Store{database: database}, nil
}

// RecordModelLoad stores the artifact metadata of a successful startup load.
func (s *Store) RecordModelLoad(ctx context.Context, info ml.ModelInfo) error {
	_, err := s.database.ExecContext(ctx, `
        INSERT INTO model_loads (path, sha256, model_type, trees, loaded_at)
        VALUES (?, ?, ?, ?, ?)`,
		info.Path, info.SHA256, info.ModelType, info.Trees, info.LoadedAt.UTC())
	return err
}

// RecentModelLoads returns up to limit loads, newest first.
func (s *Store) RecentModelLoads(ctx context.Context, limit int) ([]ModelLoad, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.database.QueryContext(ctx, `
        SELECT path, sha256, model_type, trees, loaded_at
        FROM model_loads
        ORDER BY loaded_at DESC, id DESC
        LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	loads := make([]ModelLoad, 0)
	for rows.Next() {
		var load ModelLoad
		if err := rows.Scan(&load.Path, &load.SHA256, &load.ModelType, &load.Trees, &load.LoadedAt); err != nil {
			return nil, err
		}
		loads = append(loads, load)
	}
	return loads, rows.Err()
}

func (s *Store) Close() error {
	return s.database.Close()
}
