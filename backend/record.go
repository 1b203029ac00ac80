package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pkg/errors"
)

var (
	ErrMalformedRecord = errors.New("malformed record")
	ErrReplayRange     = errors.New("replay step out of range")
)

// Record colors on disk: black -1, white 1, 0 ends the list.
const (
	recordBlack = -1
	recordWhite = 1
	recordEnd   = 0
)

type RecordEntry struct {
	Color PlayerColor `json:"color"`
	Move  Move        `json:"move"`
}

// Record is a finished or saved game. On disk the first line is the mode,
// then each move takes three lines: color, row, col.
type Record struct {
	Mode  GameMode      `json:"mode"`
	Moves []RecordEntry `json:"moves"`
}

func recordColor(player PlayerColor) int {
	if player == PlayerBlack {
		return recordBlack
	}
	return recordWhite
}

func playerFromRecordColor(value int) (PlayerColor, error) {
	switch value {
	case recordBlack:
		return PlayerBlack, nil
	case recordWhite:
		return PlayerWhite, nil
	default:
		return PlayerBlack, errors.Wrapf(ErrInvalidColor, "record color %d", value)
	}
}

// ParseRecord reads a record and replays it in full, so a record that
// parses is also playable.
func ParseRecord(r io.Reader) (Record, error) {
	scanner := bufio.NewScanner(r)
	scanner.Split(bufio.ScanWords)
	next := func(what string) (int, error) {
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return 0, errors.Wrapf(err, "read %s", what)
			}
			return 0, io.EOF
		}
		value, err := strconv.Atoi(scanner.Text())
		if err != nil {
			return 0, errors.Wrapf(ErrMalformedRecord, "%s %q", what, scanner.Text())
		}
		return value, nil
	}

	rec := Record{}
	mode, err := next("mode")
	if err == io.EOF {
		return rec, errors.Wrap(ErrMalformedRecord, "empty record")
	}
	if err != nil {
		return rec, err
	}
	rec.Mode = GameMode(mode)
	if !rec.Mode.IsValid() {
		return rec, errors.Wrapf(ErrMalformedRecord, "mode %d", mode)
	}
	for {
		color, err := next("color")
		if err == io.EOF || (err == nil && color == recordEnd) {
			break
		}
		if err != nil {
			return rec, err
		}
		player, err := playerFromRecordColor(color)
		if err != nil {
			return rec, errors.Wrapf(ErrMalformedRecord, "move %d: %v", len(rec.Moves)+1, err)
		}
		row, err := next("row")
		if err == io.EOF {
			return rec, errors.Wrapf(ErrMalformedRecord, "move %d: missing row", len(rec.Moves)+1)
		}
		if err != nil {
			return rec, err
		}
		col, err := next("col")
		if err == io.EOF {
			return rec, errors.Wrapf(ErrMalformedRecord, "move %d: missing col", len(rec.Moves)+1)
		}
		if err != nil {
			return rec, err
		}
		rec.Moves = append(rec.Moves, RecordEntry{Color: player, Move: Move{Row: row, Col: col}})
	}
	if _, err := rec.Replay(len(rec.Moves)); err != nil {
		return rec, err
	}
	return rec, nil
}

func (rec Record) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)
	var written int64
	write := func(value int) error {
		n, err := fmt.Fprintf(bw, "%d\n", value)
		written += int64(n)
		return err
	}
	if err := write(int(rec.Mode)); err != nil {
		return written, errors.Wrap(err, "write record")
	}
	for _, entry := range rec.Moves {
		for _, value := range [3]int{recordColor(entry.Color), entry.Move.Row, entry.Move.Col} {
			if err := write(value); err != nil {
				return written, errors.Wrap(err, "write record")
			}
		}
	}
	if err := bw.Flush(); err != nil {
		return written, errors.Wrap(err, "flush record")
	}
	return written, nil
}

// Replay rebuilds the board after the first n moves.
func (rec Record) Replay(n int) (Board, error) {
	board := NewBoard()
	if n < 0 || n > len(rec.Moves) {
		return board, errors.Wrapf(ErrReplayRange, "step %d of %d", n, len(rec.Moves))
	}
	for i, entry := range rec.Moves[:n] {
		if err := board.Place(entry.Move, entry.Color); err != nil {
			return board, errors.Wrapf(ErrMalformedRecord, "move %d %s: %v", i+1, entry.Move, err)
		}
	}
	return board, nil
}

// NextToMove is the color after the first n moves; black opens.
func (rec Record) NextToMove(n int) PlayerColor {
	if n <= 0 || n > len(rec.Moves) {
		return PlayerBlack
	}
	return otherPlayer(rec.Moves[n-1].Color)
}

func (rec Record) String() string {
	return fmt.Sprintf("Record{mode=%s, moves=%d}", rec.Mode, len(rec.Moves))
}

func SaveRecordFile(path string, rec Record) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "create %s", dir)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	if _, err := rec.WriteTo(f); err != nil {
		f.Close()
		return err
	}
	return errors.Wrapf(f.Close(), "close %s", path)
}

func LoadRecordFile(path string) (Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return Record{}, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()
	return ParseRecord(f)
}
