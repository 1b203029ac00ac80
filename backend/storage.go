package main

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

var ErrGameNotFound = errors.New("game not found")

type ArchivedGame struct {
	ID         string     `json:"id"`
	StartedAt  time.Time  `json:"started_at"`
	EndedAt    time.Time  `json:"ended_at"`
	Mode       GameMode   `json:"mode"`
	Difficulty Difficulty `json:"difficulty"`
	Winner     string     `json:"winner"`
	Moves      int        `json:"moves"`
	Record     string     `json:"record,omitempty"`
}

// GameArchive keeps saved and finished games in sqlite, keyed by game id.
type GameArchive struct {
	db *sql.DB
}

const createGamesSQL = `
CREATE TABLE IF NOT EXISTS games (
	id TEXT PRIMARY KEY,
	started_at DATETIME,
	ended_at DATETIME,
	mode INTEGER,
	difficulty INTEGER,
	winner TEXT,
	moves INTEGER,
	record TEXT
);
`

func OpenGameArchive(dbPath string) (*GameArchive, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrapf(err, "create database directory %s", dir)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, errors.Wrapf(err, "open database %s", dbPath)
	}
	// sqlite allows one writer; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(createGamesSQL); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "create games table")
	}
	log.Info().Str("path", dbPath).Msg("game archive ready")
	return &GameArchive{db: db}, nil
}

// Save inserts the game or replaces an earlier save of the same id.
func (a *GameArchive) Save(ctx context.Context, game ArchivedGame) error {
	_, err := a.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO games (id, started_at, ended_at, mode, difficulty, winner, moves, record)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		game.ID,
		game.StartedAt.UTC(),
		game.EndedAt.UTC(),
		int(game.Mode),
		int(game.Difficulty),
		game.Winner,
		game.Moves,
		game.Record,
	)
	if err != nil {
		return errors.Wrapf(err, "save game %s", game.ID)
	}
	log.Debug().Str("game", game.ID).Int("moves", game.Moves).Msg("game archived")
	return nil
}

func (a *GameArchive) Get(ctx context.Context, id string) (ArchivedGame, error) {
	row := a.db.QueryRowContext(ctx, `
		SELECT id, started_at, ended_at, mode, difficulty, winner, moves, record
		FROM games WHERE id = ?`, id)
	game, err := scanArchivedGame(row.Scan, true)
	if errors.Is(err, sql.ErrNoRows) {
		return game, errors.Wrapf(ErrGameNotFound, "id %s", id)
	}
	if err != nil {
		return game, errors.Wrapf(err, "get game %s", id)
	}
	return game, nil
}

// List returns up to limit games, newest first, without their records.
func (a *GameArchive) List(ctx context.Context, limit int) ([]ArchivedGame, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := a.db.QueryContext(ctx, `
		SELECT id, started_at, ended_at, mode, difficulty, winner, moves
		FROM games ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "list games")
	}
	defer rows.Close()
	games := []ArchivedGame{}
	for rows.Next() {
		game, err := scanArchivedGame(rows.Scan, false)
		if err != nil {
			return nil, errors.Wrap(err, "scan game")
		}
		games = append(games, game)
	}
	return games, errors.Wrap(rows.Err(), "list games")
}

func (a *GameArchive) Close() error {
	return a.db.Close()
}

func scanArchivedGame(scan func(dest ...any) error, withRecord bool) (ArchivedGame, error) {
	var game ArchivedGame
	var mode, difficulty int
	dest := []any{&game.ID, &game.StartedAt, &game.EndedAt, &mode, &difficulty, &game.Winner, &game.Moves}
	if withRecord {
		dest = append(dest, &game.Record)
	}
	if err := scan(dest...); err != nil {
		return game, err
	}
	game.Mode = GameMode(mode)
	game.Difficulty = Difficulty(difficulty)
	return game, nil
}
