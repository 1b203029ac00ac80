package main

import (
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func newRunningGame(mode GameMode, banHand bool) *Game {
	g := NewGame(NewGameSettings(mode, DifficultyEasy, banHand))
	g.Start()
	return &g
}

// playAlternating applies moves in turn, black first.
func playAlternating(t *testing.T, g *Game, moves ...Move) {
	t.Helper()
	for _, m := range moves {
		require.NoError(t, g.TryApplyMove(m), "move %s", m)
	}
}

var blackWinsInRowSeven = []Move{
	mv(7, 0), mv(8, 0),
	mv(7, 1), mv(8, 1),
	mv(7, 2), mv(8, 2),
	mv(7, 3), mv(8, 3),
	mv(7, 4),
}

func TestGameDetectsWin(t *testing.T) {
	g := newRunningGame(ModeDouble, false)
	playAlternating(t, g, blackWinsInRowSeven...)

	state := g.State()
	require.Equal(t, StatusBlackWon, state.Status)
	require.Len(t, state.WinningLine, WinLength)
	require.Equal(t, mv(7, 4), state.LastMove)
	require.Equal(t, 9, g.History().Size())

	err := g.TryApplyMove(mv(0, 0))
	require.Equal(t, ErrGameNotRunning, errors.Cause(err))

	snapshot := g.Snapshot()
	require.Equal(t, "black", snapshot.Winner)
	require.Equal(t, 9, snapshot.Moves)
	require.True(t, strings.HasPrefix(snapshot.Record, "2\n-1\n7\n0\n"))
}

func TestGameRejectsForbiddenMove(t *testing.T) {
	g := newRunningGame(ModeDouble, true)
	playAlternating(t, g,
		mv(7, 6), mv(0, 0),
		mv(7, 7), mv(0, 2),
		mv(5, 8), mv(0, 4),
		mv(6, 8), mv(0, 6),
	)
	before := g.State()

	err := g.TryApplyMove(mv(7, 8))
	require.Equal(t, ErrForbidden, errors.Cause(err))

	after := g.State()
	require.Equal(t, before.Board, after.Board)
	require.Equal(t, PlayerBlack, after.ToMove)
	require.Equal(t, StatusRunning, after.Status)
	require.True(t, strings.HasPrefix(after.LastMessage, "Illegal move"))
	require.Equal(t, 8, g.History().Size())
}

func TestGameUndo(t *testing.T) {
	t.Run("two players take back one move", func(t *testing.T) {
		g := newRunningGame(ModeDouble, false)
		playAlternating(t, g, mv(7, 7), mv(8, 8))
		removed, err := g.Undo()
		require.NoError(t, err)
		require.Equal(t, 1, removed)
		require.Equal(t, PlayerWhite, g.State().ToMove)
		require.Equal(t, mv(7, 7), g.State().LastMove)
	})
	t.Run("against the engine a pair is removed", func(t *testing.T) {
		g := newRunningGame(ModePlayBlack, false)
		playAlternating(t, g, mv(7, 7), mv(8, 8))
		removed, err := g.Undo()
		require.NoError(t, err)
		require.Equal(t, 2, removed)
		state := g.State()
		require.True(t, state.Board.IsEmpty())
		require.Equal(t, PlayerBlack, state.ToMove)
		require.False(t, state.HasLastMove)
	})
	t.Run("refused while the engine is to move", func(t *testing.T) {
		g := newRunningGame(ModePlayBlack, false)
		playAlternating(t, g, mv(7, 7))
		_, err := g.Undo()
		require.Equal(t, ErrNotHumanTurn, errors.Cause(err))
	})
	t.Run("nothing to take back", func(t *testing.T) {
		g := newRunningGame(ModePlayBlack, false)
		_, err := g.Undo()
		require.Equal(t, ErrUndoUnavailable, errors.Cause(err))
	})
	t.Run("a human win takes back only the winning move", func(t *testing.T) {
		g := newRunningGame(ModePlayBlack, false)
		playAlternating(t, g, blackWinsInRowSeven...)
		require.Equal(t, StatusBlackWon, g.State().Status)

		removed, err := g.Undo()
		require.NoError(t, err)
		require.Equal(t, 1, removed)
		state := g.State()
		require.Equal(t, StatusRunning, state.Status)
		require.Equal(t, PlayerBlack, state.ToMove)
		require.Equal(t, CellEmpty, state.Board.At(7, 4))
		require.Equal(t, CellWhite, state.Board.At(8, 3))
		require.Equal(t, mv(8, 3), state.LastMove)
	})
	t.Run("an engine win takes back the pair", func(t *testing.T) {
		g := newRunningGame(ModePlayWhite, false)
		playAlternating(t, g, blackWinsInRowSeven...)
		require.Equal(t, StatusBlackWon, g.State().Status)

		removed, err := g.Undo()
		require.NoError(t, err)
		require.Equal(t, 2, removed)
		state := g.State()
		require.Equal(t, PlayerWhite, state.ToMove)
		require.Equal(t, CellEmpty, state.Board.At(8, 3))
		require.Equal(t, 7, g.History().Size())
	})
	t.Run("finished game resumes", func(t *testing.T) {
		g := newRunningGame(ModeDouble, false)
		playAlternating(t, g, blackWinsInRowSeven...)
		removed, err := g.Undo()
		require.NoError(t, err)
		require.Equal(t, 1, removed)
		state := g.State()
		require.Equal(t, StatusRunning, state.Status)
		require.Empty(t, state.WinningLine)
		require.Equal(t, PlayerBlack, state.ToMove)
	})
}

func TestControllerEngineOpensAsBlack(t *testing.T) {
	withConfig(t, fastProfiles)
	gc := NewGameController(NewGameSettings(ModePlayWhite, DifficultyEasy, true))
	gc.StartGame(NewGameSettings(ModePlayWhite, DifficultyEasy, true))

	require.Eventually(t, gc.Tick, 5*time.Second, 10*time.Millisecond)
	state := gc.State()
	require.Equal(t, CellBlack, state.Board.At(7, 7))
	require.Equal(t, PlayerWhite, state.ToMove)

	entry, ok := gc.LatestHistoryEntry()
	require.True(t, ok)
	require.True(t, entry.IsAi)

	require.True(t, gc.OnCellClicked(8, 8))
	require.True(t, gc.Tick())
	state = gc.State()
	require.Equal(t, CellWhite, state.Board.At(8, 8))

	_, err := gc.Undo()
	require.Equal(t, ErrNotHumanTurn, errors.Cause(err))
}

func TestControllerReportsFinishOnce(t *testing.T) {
	settings := NewGameSettings(ModeDouble, DifficultyEasy, false)
	gc := NewGameController(settings)
	var finished []ArchivedGame
	gc.SetFinishHook(func(game ArchivedGame) {
		finished = append(finished, game)
	})
	gc.StartGame(settings)

	for _, m := range blackWinsInRowSeven {
		require.NoError(t, gc.ApplyHumanMove(m))
	}
	gc.Tick()
	require.Len(t, finished, 1)
	require.Equal(t, gc.GameID(), finished[0].ID)
	require.Equal(t, "black", finished[0].Winner)

	require.Equal(t, ErrGameNotRunning, errors.Cause(gc.ApplyHumanMove(mv(0, 0))))
	require.Len(t, finished, 1)
}

func TestControllerReviewAndResume(t *testing.T) {
	gc := NewGameController(NewGameSettings(ModeDouble, DifficultyEasy, false))
	require.Equal(t, ErrNotReviewing, errors.Cause(gc.Resume()))

	rec := Record{Mode: ModeDouble, Moves: []RecordEntry{
		{Color: PlayerBlack, Move: mv(7, 7)},
		{Color: PlayerWhite, Move: mv(8, 8)},
		{Color: PlayerBlack, Move: mv(6, 6)},
	}}
	require.NoError(t, gc.LoadRecord(rec))
	state := gc.State()
	require.Equal(t, StatusReview, state.Status)
	require.Equal(t, 3, state.Board.StoneCount())
	step, total, ok := gc.ReviewStep()
	require.True(t, ok)
	require.Equal(t, 3, step)
	require.Equal(t, 3, total)

	require.NoError(t, gc.Review(1))
	state = gc.State()
	require.Equal(t, 1, state.Board.StoneCount())
	require.Equal(t, PlayerWhite, state.ToMove)
	require.Equal(t, mv(7, 7), state.LastMove)
	require.Equal(t, ErrReplayRange, errors.Cause(gc.Review(4)))
	require.Equal(t, rec, gc.Record())

	require.NoError(t, gc.Resume())
	state = gc.State()
	require.Equal(t, StatusRunning, state.Status)
	require.Equal(t, 1, gc.History().Size())
	require.NoError(t, gc.ApplyHumanMove(mv(9, 9)))
	state = gc.State()
	require.Equal(t, CellWhite, state.Board.At(9, 9))
	_, _, ok = gc.ReviewStep()
	require.False(t, ok)
}
