package main

const zobristSeed = 0x9e3779b97f4a7c15

type ZobristTable struct {
	cells [numCells][2]uint64
	side  [2]uint64
}

var zobrist = newZobristTable(zobristSeed)

func newZobristTable(seed uint64) *ZobristTable {
	rng := splitmix64{state: seed}
	table := &ZobristTable{}
	for i := range table.cells {
		table.cells[i][PlayerBlack] = rng.next()
		table.cells[i][PlayerWhite] = rng.next()
	}
	table.side[PlayerBlack] = rng.next()
	table.side[PlayerWhite] = rng.next()
	return table
}

func (z *ZobristTable) stone(m Move, player PlayerColor) uint64 {
	return z.cells[m.index()][player]
}

// sideToMove marks whose turn it is so both sides get distinct TT keys.
func (z *ZobristTable) sideToMove(player PlayerColor) uint64 {
	return z.side[player]
}

// ComputeHash rebuilds the position hash from scratch.
func ComputeHash(board *Board) uint64 {
	var hash uint64
	for row := 0; row < BoardSize; row++ {
		for col := 0; col < BoardSize; col++ {
			cell := board.At(row, col)
			if cell == CellEmpty {
				continue
			}
			player, _ := PlayerFromCell(cell)
			hash ^= zobrist.stone(Move{Row: row, Col: col}, player)
		}
	}
	return hash
}

func ttKeyFor(board *Board, toMove PlayerColor) uint64 {
	return board.Hash() ^ zobrist.sideToMove(toMove)
}

type splitmix64 struct {
	state uint64
}

func (s *splitmix64) next() uint64 {
	s.state += 0x9e3779b97f4a7c15
	z := s.state
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}
