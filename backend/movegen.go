package main

import (
	"math"
	"sort"

	"golang.org/x/exp/constraints"
)

const (
	winSentinelScore = math.MaxInt32

	weightOwnOpenFour  = 10000
	weightOwnFour      = 1000
	weightOwnOpenThree = 500
	weightOppOpenFour  = 8000
	weightOppFour      = 800
	weightOppOpenThree = 400
	lineGainDivisor    = 100
	centerBonusMax     = BoardSize / 2
)

type moveCandidate struct {
	move  Move
	score int
}

func absInt[T constraints.Signed](v T) T {
	if v < 0 {
		return -v
	}
	return v
}

func maxOf[T constraints.Ordered](a, b T) T {
	if a > b {
		return a
	}
	return b
}

func clamp[T constraints.Ordered](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func chebyshev(a, b Move) int {
	return maxOf(absInt(a.Row-b.Row), absInt(a.Col-b.Col))
}

// neighborhoodRadius widens as the board fills.
func neighborhoodRadius(stones int) int {
	switch {
	case stones < 6:
		return 1
	case stones < 20:
		return 2
	default:
		return 3
	}
}

// collectNeighborhood lists empty cells within radius of any stone, in
// board order.
func collectNeighborhood(b *Board, radius int) []Move {
	var seen [numCells]bool
	out := make([]Move, 0, 64)
	for idx := 0; idx < numCells; idx++ {
		if b.cells[idx] == CellEmpty {
			continue
		}
		row, col := idx/BoardSize, idx%BoardSize
		for r := clamp(row-radius, 0, BoardSize-1); r <= clamp(row+radius, 0, BoardSize-1); r++ {
			for c := clamp(col-radius, 0, BoardSize-1); c <= clamp(col+radius, 0, BoardSize-1); c++ {
				n := r*BoardSize + c
				if seen[n] || b.cells[n] != CellEmpty {
					continue
				}
				seen[n] = true
				out = append(out, Move{Row: r, Col: c})
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].index() < out[j].index()
	})
	return out
}

// scoreCandidate rates m for player: the win sentinel when m completes a
// five, otherwise weighted own and opposing motifs, the line-score gain of
// the placement and closeness to the centre.
func scoreCandidate(b *Board, m Move, player PlayerColor, rules Rules) int {
	if isWinningPlacement(b, m, player, rules) {
		return winSentinelScore
	}
	own := classify(b, m, player)
	opp := classify(b, m, otherPlayer(player))
	score := own.OpenFour*weightOwnOpenFour + own.Four*weightOwnFour + own.OpenThree*weightOwnOpenThree
	score += opp.OpenFour*weightOppOpenFour + opp.Four*weightOppFour + opp.OpenThree*weightOppOpenThree

	before := b.ScorePosition(player)
	var after int
	b.speculate(m, player, func() {
		after = b.ScorePosition(player)
	})
	score += (after - before) / lineGainDivisor
	score += centerBonusMax - chebyshev(m, centerMove)
	return score
}

// generateCandidates returns up to limit moves for player, best first, with
// preferred promoted to the front when it survives the cut. An empty board
// yields only the centre.
func generateCandidates(b *Board, player PlayerColor, limit int, preferred Move, rules Rules) []moveCandidate {
	if b.IsEmpty() {
		return []moveCandidate{{move: centerMove}}
	}
	cells := collectNeighborhood(b, neighborhoodRadius(b.StoneCount()))
	scored := make([]moveCandidate, 0, len(cells))
	for _, m := range cells {
		scored = append(scored, moveCandidate{move: m, score: scoreCandidate(b, m, player, rules)})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})
	if preferred.IsValid() {
		for i := range scored {
			if scored[i].move.Equals(preferred) {
				promoted := scored[i]
				copy(scored[1:i+1], scored[:i])
				scored[0] = promoted
				break
			}
		}
	}
	if limit > 0 && len(scored) > limit {
		scored = scored[:limit]
	}
	return scored
}
