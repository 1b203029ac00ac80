package main

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func openTestArchive(t *testing.T) *GameArchive {
	t.Helper()
	archive, err := OpenGameArchive(filepath.Join(t.TempDir(), "db", "games.db"))
	require.NoError(t, err)
	t.Cleanup(func() { archive.Close() })
	return archive
}

func TestGameArchiveSaveAndGet(t *testing.T) {
	archive := openTestArchive(t)
	ctx := context.Background()
	started := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	game := ArchivedGame{
		ID:         "game-1",
		StartedAt:  started,
		EndedAt:    started.Add(3 * time.Minute),
		Mode:       ModePlayWhite,
		Difficulty: DifficultyHard,
		Winner:     "white",
		Moves:      2,
		Record:     "1\n-1\n7\n7\n1\n8\n8\n",
	}
	require.NoError(t, archive.Save(ctx, game))

	got, err := archive.Get(ctx, "game-1")
	require.NoError(t, err)
	require.Equal(t, game.ID, got.ID)
	require.True(t, game.StartedAt.Equal(got.StartedAt))
	require.True(t, game.EndedAt.Equal(got.EndedAt))
	require.Equal(t, ModePlayWhite, got.Mode)
	require.Equal(t, DifficultyHard, got.Difficulty)
	require.Equal(t, "white", got.Winner)
	require.Equal(t, game.Record, got.Record)

	game.Winner = "draw"
	require.NoError(t, archive.Save(ctx, game))
	got, err = archive.Get(ctx, "game-1")
	require.NoError(t, err)
	require.Equal(t, "draw", got.Winner)

	_, err = archive.Get(ctx, "missing")
	require.Equal(t, ErrGameNotFound, errors.Cause(err))
}

func TestGameArchiveListNewestFirst(t *testing.T) {
	archive := openTestArchive(t)
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, archive.Save(ctx, ArchivedGame{
			ID:        id,
			StartedAt: base.Add(time.Duration(i) * time.Hour),
			EndedAt:   base.Add(time.Duration(i)*time.Hour + time.Minute),
			Mode:      ModeDouble,
			Moves:     i,
			Record:    "2\n",
		}))
	}

	games, err := archive.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, games, 2)
	require.Equal(t, "c", games[0].ID)
	require.Equal(t, "b", games[1].ID)
	require.Empty(t, games[0].Record)

	all, err := archive.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
}

func TestGameArchiveStoresControllerSnapshot(t *testing.T) {
	archive := openTestArchive(t)
	settings := NewGameSettings(ModeDouble, DifficultyEasy, false)
	gc := NewGameController(settings)
	gc.SetFinishHook(func(game ArchivedGame) {
		require.NoError(t, archive.Save(context.Background(), game))
	})
	gc.StartGame(settings)
	for _, m := range blackWinsInRowSeven {
		require.NoError(t, gc.ApplyHumanMove(m))
	}

	got, err := archive.Get(context.Background(), gc.GameID())
	require.NoError(t, err)
	require.Equal(t, "black", got.Winner)
	require.Equal(t, len(blackWinsInRowSeven), got.Moves)

	rec, err := ParseRecord(strings.NewReader(got.Record))
	require.NoError(t, err)
	require.Len(t, rec.Moves, len(blackWinsInRowSeven))
}
