package main

type lineFamily int

const (
	lineRow lineFamily = iota
	lineCol
	lineRise
	lineFall
	numLineFamilies
)

const (
	scoreFive          = 1_000_000
	scoreOpenFour      = 100_000
	scoreFour          = 10_000
	scoreOpenThree     = 1_000
	scoreSplitThree    = 900
	scoreBlockedThree  = 150
	scoreOpenTwo       = 100
	scoreSplitTwo      = 40
	scoreLoosePair     = 10
	symbolSelf         = 'M'
	symbolEmpty        = '.'
	symbolOther        = 'O'
	maxLineTokenLength = BoardSize + 2
)

// defenseWeight scales the opponent's score in the static evaluation. The
// value was tuned by play, it does not follow from the pattern weights.
const defenseWeight = 1.1

type linePattern struct {
	shape  string
	weight int
}

// Every shape is counted at every offset it matches, overlaps included.
var linePatterns = [...]linePattern{
	{shape: "MMMMM", weight: scoreFive},
	{shape: ".MMMM.", weight: scoreOpenFour},
	{shape: "OMMMM.", weight: scoreFour},
	{shape: ".MMMMO", weight: scoreFour},
	{shape: "MMM.M", weight: scoreFour},
	{shape: "M.MMM", weight: scoreFour},
	{shape: "MM.MM", weight: scoreFour},
	{shape: ".MMM.", weight: scoreOpenThree},
	{shape: ".MM.M.", weight: scoreSplitThree},
	{shape: ".M.MM.", weight: scoreSplitThree},
	{shape: ".M.M.M.", weight: scoreSplitThree},
	{shape: "OMMM..", weight: scoreBlockedThree},
	{shape: "..MMMO", weight: scoreBlockedThree},
	{shape: "OMM.M.", weight: scoreBlockedThree},
	{shape: ".M.MMO", weight: scoreBlockedThree},
	{shape: "OM.MM.", weight: scoreBlockedThree},
	{shape: ".MM.MO", weight: scoreBlockedThree},
	{shape: "..MM..", weight: scoreOpenTwo},
	{shape: ".M.M.", weight: scoreSplitTwo},
	{shape: ".M..M.", weight: scoreLoosePair},
}

// boardLines holds cell indexes per family: rows and columns use the first
// BoardSize slots, diagonals use all of them. Rising diagonal k holds the
// cells with row+col == k, falling diagonal k those with row-col+14 == k.
var boardLines = buildLines()

func buildLines() [numLineFamilies][numDiagonals][]int {
	var lines [numLineFamilies][numDiagonals][]int
	for row := 0; row < BoardSize; row++ {
		for col := 0; col < BoardSize; col++ {
			m := Move{Row: row, Col: col}
			for family := lineFamily(0); family < numLineFamilies; family++ {
				idx := lineIndexFor(family, m)
				lines[family][idx] = append(lines[family][idx], m.index())
			}
		}
	}
	// Rising diagonals were filled top-down; flip them so they read
	// bottom-left to top-right.
	for idx := range lines[lineRise] {
		line := lines[lineRise][idx]
		for i, j := 0, len(line)-1; i < j; i, j = i+1, j-1 {
			line[i], line[j] = line[j], line[i]
		}
	}
	return lines
}

func lineIndexFor(family lineFamily, m Move) int {
	switch family {
	case lineRow:
		return m.Row
	case lineCol:
		return m.Col
	case lineRise:
		return m.Row + m.Col
	default:
		return m.Row - m.Col + BoardSize - 1
	}
}

func (b *Board) scoreLineCells(line []int, player PlayerColor) int {
	if len(line) == 0 {
		return 0
	}
	var buf [maxLineTokenLength]Cell
	cells := buf[:len(line)]
	for i, idx := range line {
		cells[i] = b.cells[idx]
	}
	return ScoreLine(cells, player)
}

// ScoreLine normalises cells relative to player and sums the weights of
// every pattern occurrence. Board edges count as the other side's stones.
func ScoreLine(cells []Cell, player PlayerColor) int {
	own := CellFromPlayer(player)
	hasOwn := false
	for _, cell := range cells {
		if cell == own {
			hasOwn = true
			break
		}
	}
	if !hasOwn {
		return 0
	}
	var buf [maxLineTokenLength + 2]byte
	tokens := buildTokensInto(cells, own, buf[:0])
	return accumulatePatterns(tokens)
}

func buildTokensInto(cells []Cell, own Cell, buf []byte) []byte {
	buf = append(buf, symbolOther)
	for _, cell := range cells {
		switch cell {
		case CellEmpty:
			buf = append(buf, symbolEmpty)
		case own:
			buf = append(buf, symbolSelf)
		default:
			buf = append(buf, symbolOther)
		}
	}
	return append(buf, symbolOther)
}

func accumulatePatterns(tokens []byte) int {
	total := 0
	for i := range tokens {
		for _, pattern := range linePatterns {
			if matchAt(tokens, pattern.shape, i) {
				total += pattern.weight
			}
		}
	}
	return total
}

func matchAt(tokens []byte, pattern string, start int) bool {
	if start+len(pattern) > len(tokens) {
		return false
	}
	for i := 0; i < len(pattern); i++ {
		if tokens[start+i] != pattern[i] {
			return false
		}
	}
	return true
}

// scorePositionFromScratch ignores the caches and rescores every line.
func (b *Board) scorePositionFromScratch(player PlayerColor) int {
	total := 0
	for family := range boardLines {
		for _, line := range boardLines[family] {
			total += b.scoreLineCells(line, player)
		}
	}
	return total
}

// EvaluateBoard scores the position for sideToMove: own patterns minus the
// opponent's, the latter weighted up to favour defence.
func EvaluateBoard(board *Board, sideToMove PlayerColor) float64 {
	own := float64(board.ScorePosition(sideToMove))
	opp := float64(board.ScorePosition(otherPlayer(sideToMove)))
	return own - defenseWeight*opp
}
