package main

const (
	threatRadius = 4
	threatWindow = 2*threatRadius + 1

	symbolStone   = 'X'
	symbolOpen    = '_'
	symbolBlocked = 'O'
)

type direction struct {
	dRow, dCol int
}

// Horizontal, vertical, rising and falling.
var directions = [4]direction{{0, 1}, {1, 0}, {-1, 1}, {1, 1}}

// ThreatCount tallies, per direction through one placement, the strongest
// motif found in that direction.
type ThreatCount struct {
	OpenFour  int `json:"open_four"`
	Four      int `json:"four"`
	OpenThree int `json:"open_three"`
}

func (tc ThreatCount) isEmpty() bool {
	return tc.OpenFour == 0 && tc.Four == 0 && tc.OpenThree == 0
}

// symbolWindow reads the nine cells centred on m along dir. The centre is
// always read as player's stone, so m may still be empty.
func symbolWindow(b *Board, m Move, player PlayerColor, dir direction) [threatWindow]byte {
	var window [threatWindow]byte
	own := CellFromPlayer(player)
	for i := -threatRadius; i <= threatRadius; i++ {
		if i == 0 {
			window[threatRadius] = symbolStone
			continue
		}
		row := m.Row + i*dir.dRow
		col := m.Col + i*dir.dCol
		value := byte(symbolBlocked)
		if InBounds(row, col) {
			switch b.At(row, col) {
			case CellEmpty:
				value = symbolOpen
			case own:
				value = symbolStone
			}
		}
		window[i+threatRadius] = value
	}
	return window
}

func hasOpenFour(window [threatWindow]byte) bool {
	for start := 0; start+5 < threatWindow; start++ {
		if window[start] != symbolOpen || window[start+5] != symbolOpen {
			continue
		}
		if window[start+1] == symbolStone && window[start+2] == symbolStone &&
			window[start+3] == symbolStone && window[start+4] == symbolStone {
			return true
		}
	}
	return false
}

// hasFour reports any five-cell span through the centre holding four stones
// and one empty cell, open or not.
func hasFour(window [threatWindow]byte) bool {
	for start := 0; start+5 <= threatWindow; start++ {
		stones, empties := 0, 0
		for _, value := range window[start : start+5] {
			switch value {
			case symbolStone:
				stones++
			case symbolOpen:
				empties++
			}
		}
		if stones == 4 && empties == 1 {
			return true
		}
	}
	return false
}

func hasOpenThree(window [threatWindow]byte) bool {
	for start := 0; start+5 <= threatWindow; start++ {
		if window[start] == symbolOpen && window[start+4] == symbolOpen &&
			window[start+1] == symbolStone && window[start+2] == symbolStone && window[start+3] == symbolStone {
			return true
		}
	}
	for start := 0; start+6 <= threatWindow; start++ {
		if window[start] != symbolOpen || window[start+5] != symbolOpen {
			continue
		}
		c1, c2, c3, c4 := window[start+1], window[start+2], window[start+3], window[start+4]
		if c1 == symbolStone && c2 == symbolStone && c3 == symbolOpen && c4 == symbolStone {
			return true
		}
		if c1 == symbolStone && c2 == symbolOpen && c3 == symbolStone && c4 == symbolStone {
			return true
		}
	}
	return false
}

// classify counts the motifs player would own after playing m. Every
// direction contributes at most once: open four, then four, then open three.
func classify(b *Board, m Move, player PlayerColor) ThreatCount {
	var tc ThreatCount
	for _, dir := range directions {
		window := symbolWindow(b, m, player, dir)
		switch {
		case hasOpenFour(window):
			tc.OpenFour++
		case hasFour(window):
			tc.Four++
		case hasOpenThree(window):
			tc.OpenThree++
		}
	}
	return tc
}

// isDoubleThreat reports shapes that a single defensive stone cannot answer.
func isDoubleThreat(tc ThreatCount) bool {
	return tc.OpenFour >= 1 || tc.Four >= 2 || (tc.Four >= 1 && tc.OpenThree >= 1) || tc.OpenThree >= 2
}

// runLength counts player's consecutive stones through m along dir, m
// included whether or not it is occupied yet.
func runLength(b *Board, m Move, player PlayerColor, dir direction) int {
	own := CellFromPlayer(player)
	count := 1
	for _, sign := range [2]int{1, -1} {
		row, col := m.Row+sign*dir.dRow, m.Col+sign*dir.dCol
		for InBounds(row, col) && b.At(row, col) == own {
			count++
			row += sign * dir.dRow
			col += sign * dir.dCol
		}
	}
	return count
}

func winsWithRun(run int, restricted bool) bool {
	if restricted {
		return run == WinLength
	}
	return run >= WinLength
}

// isWinningPlacement reports whether playing m completes a five for player.
// A restricted player needs a run of exactly five.
func isWinningPlacement(b *Board, m Move, player PlayerColor, rules Rules) bool {
	restricted := rules.IsRestricted(player)
	for _, dir := range directions {
		if winsWithRun(runLength(b, m, player, dir), restricted) {
			return true
		}
	}
	return false
}

// boardWinner scans every run on the board and returns the color of the
// first winning one, or CellEmpty.
func boardWinner(b *Board, rules Rules) Cell {
	for row := 0; row < BoardSize; row++ {
		for col := 0; col < BoardSize; col++ {
			cell := b.At(row, col)
			if cell == CellEmpty {
				continue
			}
			player, _ := PlayerFromCell(cell)
			restricted := rules.IsRestricted(player)
			for _, dir := range directions {
				prevRow, prevCol := row-dir.dRow, col-dir.dCol
				if InBounds(prevRow, prevCol) && b.At(prevRow, prevCol) == cell {
					continue
				}
				run := 1
				for r, c := row+dir.dRow, col+dir.dCol; InBounds(r, c) && b.At(r, c) == cell; r, c = r+dir.dRow, c+dir.dCol {
					run++
				}
				if winsWithRun(run, restricted) {
					return cell
				}
			}
		}
	}
	return CellEmpty
}

// winningLine returns the stones of the run through m that satisfies the
// win condition for the stone on m.
func winningLine(b *Board, m Move, rules Rules) ([]Move, bool) {
	cell := b.cellAt(m)
	if cell == CellEmpty {
		return nil, false
	}
	player, _ := PlayerFromCell(cell)
	for _, dir := range directions {
		run := runLength(b, m, player, dir)
		if !winsWithRun(run, rules.IsRestricted(player)) {
			continue
		}
		row, col := m.Row, m.Col
		for InBounds(row-dir.dRow, col-dir.dCol) && b.At(row-dir.dRow, col-dir.dCol) == cell {
			row -= dir.dRow
			col -= dir.dCol
		}
		line := make([]Move, 0, run)
		for InBounds(row, col) && b.At(row, col) == cell {
			line = append(line, Move{Row: row, Col: col})
			row += dir.dRow
			col += dir.dCol
		}
		return line, true
	}
	return nil, false
}

func hasWinningPlacement(b *Board, player PlayerColor, rules Rules) bool {
	_, ok := findWinningPlacement(b, player, rules)
	return ok
}

func findWinningPlacement(b *Board, player PlayerColor, rules Rules) (Move, bool) {
	for idx := 0; idx < numCells; idx++ {
		if b.cells[idx] != CellEmpty {
			continue
		}
		m := Move{Row: idx / BoardSize, Col: idx % BoardSize}
		if !isWinningPlacement(b, m, player, rules) {
			continue
		}
		// An overline through the same cell voids the five.
		if rules.IsRestricted(player) && rules.IsForbidden(b, m) {
			continue
		}
		return m, true
	}
	return NoMove, false
}

// findForcedWin looks for a move that wins for player with player to move:
// an immediate five, or, when the opponent cannot win at once, a legal open
// four or double four.
func findForcedWin(b *Board, player PlayerColor, rules Rules) (Move, bool) {
	if m, ok := findWinningPlacement(b, player, rules); ok {
		return m, true
	}
	if hasWinningPlacement(b, otherPlayer(player), rules) {
		return NoMove, false
	}
	for idx := 0; idx < numCells; idx++ {
		if b.cells[idx] != CellEmpty {
			continue
		}
		m := Move{Row: idx / BoardSize, Col: idx % BoardSize}
		tc := classify(b, m, player)
		if tc.OpenFour == 0 && tc.Four < 2 {
			continue
		}
		if rules.IsRestricted(player) && rules.IsForbidden(b, m) {
			continue
		}
		return m, true
	}
	return NoMove, false
}
