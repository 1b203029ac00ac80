package main

import "github.com/pkg/errors"

const (
	BoardSize = 15
	WinLength = 5

	numCells     = BoardSize * BoardSize
	numDiagonals = 2*BoardSize - 1
)

var (
	ErrOutOfBounds   = errors.New("move out of bounds")
	ErrOccupied      = errors.New("cell occupied")
	ErrInvalidColor  = errors.New("invalid stone color")
	ErrColorMismatch = errors.New("cell does not hold that color")
)

type Cell int8

const (
	CellEmpty Cell = iota
	CellBlack
	CellWhite
)

// Board owns the grid, the rolling zobrist hash, the stone counter and one
// cached pattern score per line and per color. The zero value is an empty
// board with consistent caches.
type Board struct {
	cells     [numCells]Cell
	hash      uint64
	stones    int
	lineScore [numLineFamilies][numDiagonals][2]int
}

func NewBoard() Board {
	return Board{}
}

func (b *Board) Reset() {
	*b = Board{}
}

func (b *Board) At(row, col int) Cell {
	return b.cells[row*BoardSize+col]
}

func (b *Board) cellAt(m Move) Cell {
	return b.cells[m.index()]
}

func InBounds(row, col int) bool {
	return row >= 0 && col >= 0 && row < BoardSize && col < BoardSize
}

// IsFree reports whether m is on the board and empty.
func (b *Board) IsFree(m Move) bool {
	return m.IsValid() && b.cells[m.index()] == CellEmpty
}

// IsEmpty reports whether no stone has been placed.
func (b *Board) IsEmpty() bool {
	return b.stones == 0
}

func (b *Board) StoneCount() int {
	return b.stones
}

func (b *Board) IsFull() bool {
	return b.stones == numCells
}

func (b *Board) Hash() uint64 {
	return b.hash
}

func (b *Board) Clone() Board {
	return *b
}

// Place validates and applies a stone. Nothing is mutated on error.
func (b *Board) Place(m Move, player PlayerColor) error {
	if !m.IsValid() {
		return errors.Wrapf(ErrOutOfBounds, "place %s", m)
	}
	if !player.IsValid() {
		return errors.Wrapf(ErrInvalidColor, "place %s color %d", m, player)
	}
	if b.cellAt(m) != CellEmpty {
		return errors.Wrapf(ErrOccupied, "place %s", m)
	}
	b.set(m, player)
	return nil
}

// Remove takes back a stone; player must match the stone that was placed.
func (b *Board) Remove(m Move, player PlayerColor) error {
	if !m.IsValid() {
		return errors.Wrapf(ErrOutOfBounds, "remove %s", m)
	}
	if !player.IsValid() {
		return errors.Wrapf(ErrInvalidColor, "remove %s color %d", m, player)
	}
	if b.cellAt(m) != CellFromPlayer(player) {
		return errors.Wrapf(ErrColorMismatch, "remove %s", m)
	}
	b.unset(m, player)
	return nil
}

// set and unset skip validation; search pre-checks every move it plays.
func (b *Board) set(m Move, player PlayerColor) {
	b.cells[m.index()] = CellFromPlayer(player)
	b.hash ^= zobrist.stone(m, player)
	b.stones++
	b.refreshLines(m)
}

func (b *Board) unset(m Move, player PlayerColor) {
	b.cells[m.index()] = CellEmpty
	b.hash ^= zobrist.stone(m, player)
	b.stones--
	b.refreshLines(m)
}

// speculate plays m for player, runs fn and always takes the stone back,
// whichever way fn returns.
func (b *Board) speculate(m Move, player PlayerColor, fn func()) {
	b.set(m, player)
	defer b.unset(m, player)
	fn()
}

// refreshLines rescores the row, the column and the two diagonals through m.
func (b *Board) refreshLines(m Move) {
	for family := lineFamily(0); family < numLineFamilies; family++ {
		idx := lineIndexFor(family, m)
		line := boardLines[family][idx]
		b.lineScore[family][idx][PlayerBlack] = b.scoreLineCells(line, PlayerBlack)
		b.lineScore[family][idx][PlayerWhite] = b.scoreLineCells(line, PlayerWhite)
	}
}

// ScorePosition sums the cached line scores of player.
func (b *Board) ScorePosition(player PlayerColor) int {
	total := 0
	for family := range b.lineScore {
		for idx := range b.lineScore[family] {
			total += b.lineScore[family][idx][player]
		}
	}
	return total
}

// Grid returns the cells as 0 empty, 1 black, 2 white.
func (b *Board) Grid() [][]int {
	grid := make([][]int, BoardSize)
	for row := 0; row < BoardSize; row++ {
		grid[row] = make([]int, BoardSize)
		for col := 0; col < BoardSize; col++ {
			grid[row][col] = int(b.At(row, col))
		}
	}
	return grid
}

// BoardFromGrid rebuilds a board from a 0/1/2 grid through Place so that
// every cache and the hash are derived the normal way.
func BoardFromGrid(grid [][]int) (Board, error) {
	board := NewBoard()
	if len(grid) != BoardSize {
		return board, errors.Wrapf(ErrOutOfBounds, "grid has %d rows", len(grid))
	}
	for row := 0; row < BoardSize; row++ {
		if len(grid[row]) != BoardSize {
			return board, errors.Wrapf(ErrOutOfBounds, "grid row %d has %d cells", row, len(grid[row]))
		}
		for col := 0; col < BoardSize; col++ {
			value := Cell(grid[row][col])
			if value == CellEmpty {
				continue
			}
			player, err := PlayerFromCell(value)
			if err != nil {
				return board, errors.Wrapf(ErrInvalidColor, "grid cell (%d,%d)=%d", row, col, grid[row][col])
			}
			if err := board.Place(Move{Row: row, Col: col}, player); err != nil {
				return board, err
			}
		}
	}
	return board, nil
}

func (c Cell) String() string {
	switch c {
	case CellBlack:
		return "Black"
	case CellWhite:
		return "White"
	default:
		return "Empty"
	}
}

func CellFromPlayer(player PlayerColor) Cell {
	if player == PlayerBlack {
		return CellBlack
	}
	return CellWhite
}

func PlayerFromCell(cell Cell) (PlayerColor, error) {
	switch cell {
	case CellBlack:
		return PlayerBlack, nil
	case CellWhite:
		return PlayerWhite, nil
	default:
		return PlayerBlack, errors.Errorf("cell %d has no player", cell)
	}
}
