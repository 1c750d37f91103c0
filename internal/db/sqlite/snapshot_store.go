package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/richman/backend/internal/game/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS game_saves (
	game_id      TEXT    NOT NULL,
	name         TEXT    NOT NULL,
	auto_save    INTEGER NOT NULL DEFAULT 0,
	round        INTEGER NOT NULL DEFAULT 0,
	saved_at     INTEGER NOT NULL,
	checksum     TEXT    NOT NULL,
	payload_json BLOB    NOT NULL,
	PRIMARY KEY (game_id, name)
);
CREATE INDEX IF NOT EXISTS game_saves_saved_at ON game_saves (game_id, saved_at DESC);
`

// SnapshotStore keeps save slots in a local SQLite file
type SnapshotStore struct {
	sqlDB *sql.DB
}

// Open opens the database at path and creates the saves table
func Open(path string) (*SnapshotStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	dsn := filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SnapshotStore{sqlDB: sqlDB}, nil
}

// Close releases the underlying connection
func (s *SnapshotStore) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Ping checks the database is reachable
func (s *SnapshotStore) Ping(ctx context.Context) error {
	return s.sqlDB.PingContext(ctx)
}

// Save writes snap, replacing any slot with the same game and name
func (s *SnapshotStore) Save(ctx context.Context, snap models.Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	_, err = s.sqlDB.ExecContext(ctx,
		`INSERT INTO game_saves (game_id, name, auto_save, round, saved_at, checksum, payload_json)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (game_id, name) DO UPDATE SET
			auto_save = excluded.auto_save,
			round = excluded.round,
			saved_at = excluded.saved_at,
			checksum = excluded.checksum,
			payload_json = excluded.payload_json`,
		snap.GameID, snap.Name, boolToInt(snap.AutoSave), snap.Round,
		snap.SavedAt.UnixNano(), snap.Checksum, payload,
	)
	if err != nil {
		return fmt.Errorf("save snapshot %q: %w", snap.Name, err)
	}
	return nil
}

// Load reads one slot
func (s *SnapshotStore) Load(ctx context.Context, gameID, name string) (*models.Snapshot, error) {
	var payload []byte
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT payload_json FROM game_saves WHERE game_id = ? AND name = ?`,
		gameID, name,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.Errorf(models.CodeNotFound, "no save named %q for game %s", name, gameID)
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot %q: %w", name, err)
	}

	var snap models.Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot %q: %w", name, err)
	}
	return &snap, nil
}

// List returns the slots of a game, newest first
func (s *SnapshotStore) List(ctx context.Context, gameID string) ([]models.SaveInfo, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT game_id, name, auto_save, round, saved_at
		 FROM game_saves
		 WHERE game_id = ?
		 ORDER BY saved_at DESC, name`,
		gameID,
	)
	if err != nil {
		return nil, fmt.Errorf("list saves: %w", err)
	}
	defer rows.Close()

	infos := []models.SaveInfo{}
	for rows.Next() {
		var info models.SaveInfo
		var auto int64
		var savedAt int64
		if err := rows.Scan(&info.GameID, &info.Name, &auto, &info.Round, &savedAt); err != nil {
			return nil, fmt.Errorf("scan save: %w", err)
		}
		info.AutoSave = auto != 0
		info.SavedAt = time.Unix(0, savedAt).UTC()
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate saves: %w", err)
	}
	return infos, nil
}

// Delete removes one slot
func (s *SnapshotStore) Delete(ctx context.Context, gameID, name string) error {
	res, err := s.sqlDB.ExecContext(ctx, `DELETE FROM game_saves WHERE game_id = ? AND name = ?`, gameID, name)
	if err != nil {
		return fmt.Errorf("delete snapshot %q: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete snapshot %q: %w", name, err)
	}
	if n == 0 {
		return models.Errorf(models.CodeNotFound, "no save named %q for game %s", name, gameID)
	}
	return nil
}

// PruneAutoSaves keeps the newest keep auto-saves of a game and deletes the rest
func (s *SnapshotStore) PruneAutoSaves(ctx context.Context, gameID string, keep int) (int, error) {
	res, err := s.sqlDB.ExecContext(ctx,
		`DELETE FROM game_saves
		 WHERE game_id = ? AND auto_save = 1 AND name NOT IN (
			SELECT name FROM game_saves
			WHERE game_id = ? AND auto_save = 1
			ORDER BY saved_at DESC
			LIMIT ?
		 )`,
		gameID, gameID, keep,
	)
	if err != nil {
		return 0, fmt.Errorf("prune auto-saves: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune auto-saves: %w", err)
	}
	return int(n), nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
