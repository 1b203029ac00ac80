package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestParseRecord(t *testing.T) {
	input := "2\n-1\n7\n7\n1\n8\n8\n-1\n6\n6\n"
	rec, err := ParseRecord(strings.NewReader(input))
	require.NoError(t, err)
	require.Equal(t, ModeDouble, rec.Mode)
	require.Equal(t, []RecordEntry{
		{Color: PlayerBlack, Move: mv(7, 7)},
		{Color: PlayerWhite, Move: mv(8, 8)},
		{Color: PlayerBlack, Move: mv(6, 6)},
	}, rec.Moves)
}

func TestParseRecordStopsAtZeroColor(t *testing.T) {
	rec, err := ParseRecord(strings.NewReader("-1 -1 7 7 0 junk that is ignored"))
	require.NoError(t, err)
	require.Equal(t, ModePlayBlack, rec.Mode)
	require.Len(t, rec.Moves, 1)
}

func TestParseRecordRejectsMalformedInput(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"unknown mode", "5\n"},
		{"not a number", "2\n-1\nseven\n7\n"},
		{"bad color", "2\n3\n7\n7\n"},
		{"missing col", "2\n-1\n7\n"},
		{"off the board", "2\n-1\n15\n7\n"},
		{"occupied", "2\n-1\n7\n7\n1\n7\n7\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRecord(strings.NewReader(tt.input))
			require.Error(t, err)
			require.True(t, errors.Is(err, ErrMalformedRecord), "got %v", err)
		})
	}
}

func TestRecordRoundTripThroughText(t *testing.T) {
	rec := Record{Mode: ModePlayWhite, Moves: []RecordEntry{
		{Color: PlayerBlack, Move: mv(7, 7)},
		{Color: PlayerWhite, Move: mv(8, 8)},
	}}
	var buf bytes.Buffer
	n, err := rec.WriteTo(&buf)
	require.NoError(t, err)
	require.Equal(t, int64(buf.Len()), n)
	require.Equal(t, "1\n-1\n7\n7\n1\n8\n8\n", buf.String())

	parsed, err := ParseRecord(&buf)
	require.NoError(t, err)
	require.Equal(t, rec, parsed)
}

func TestRecordReplay(t *testing.T) {
	rec := Record{Mode: ModeDouble, Moves: []RecordEntry{
		{Color: PlayerBlack, Move: mv(7, 7)},
		{Color: PlayerWhite, Move: mv(8, 8)},
		{Color: PlayerBlack, Move: mv(6, 6)},
	}}

	board, err := rec.Replay(2)
	require.NoError(t, err)
	require.Equal(t, 2, board.StoneCount())
	require.Equal(t, CellWhite, board.At(8, 8))
	require.True(t, board.IsFree(mv(6, 6)))

	empty, err := rec.Replay(0)
	require.NoError(t, err)
	require.True(t, empty.IsEmpty())

	_, err = rec.Replay(4)
	require.Equal(t, ErrReplayRange, errors.Cause(err))
	_, err = rec.Replay(-1)
	require.Equal(t, ErrReplayRange, errors.Cause(err))

	require.Equal(t, PlayerBlack, rec.NextToMove(0))
	require.Equal(t, PlayerWhite, rec.NextToMove(1))
	require.Equal(t, PlayerBlack, rec.NextToMove(2))
	require.Equal(t, PlayerWhite, rec.NextToMove(3))
}

func TestRecordFiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "record.txt")
	rec := Record{Mode: ModePlayBlack, Moves: []RecordEntry{{Color: PlayerBlack, Move: mv(3, 4)}}}
	require.NoError(t, SaveRecordFile(path, rec))

	loaded, err := LoadRecordFile(path)
	require.NoError(t, err)
	require.Equal(t, rec, loaded)

	_, err = LoadRecordFile(filepath.Join(t.TempDir(), "missing.txt"))
	require.Error(t, err)
}

func TestMoveHistory(t *testing.T) {
	var h MoveHistory
	_, ok := h.Last()
	require.False(t, ok)

	h.Push(HistoryEntry{Move: mv(7, 7), Player: PlayerBlack})
	h.Push(HistoryEntry{Move: mv(8, 8), Player: PlayerWhite, IsAi: true, Depth: 3})
	require.Equal(t, 2, h.Size())

	rec := h.ToRecord(ModePlayBlack)
	require.Equal(t, []RecordEntry{
		{Color: PlayerBlack, Move: mv(7, 7)},
		{Color: PlayerWhite, Move: mv(8, 8)},
	}, rec.Moves)

	last, ok := h.Pop()
	require.True(t, ok)
	require.True(t, last.IsAi)
	require.Equal(t, 1, h.Size())
	h.Clear()
	require.Zero(t, h.Size())
}
