package main

import (
	"math"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	winScore = 1e9

	reasonOpening           = "opening"
	reasonWin               = "win"
	reasonBlockWin          = "block_win"
	reasonOpenFour          = "open_four"
	reasonBlockOpenFour     = "block_open_four"
	reasonBlockDoubleThreat = "block_double_threat"
	reasonDoubleThreat      = "double_threat"
	reasonSearch            = "search"
	reasonFallback          = "fallback"
	reasonNoMove            = "no_move"
	reasonInvalidColor      = "invalid_color"
)

// SearchProfile bounds one move computation.
type SearchProfile struct {
	TimeBudgetMs  int `json:"time_budget_ms"`
	MaxDepth      int `json:"max_depth"`
	MaxCandidates int `json:"max_candidates"`
}

func (p SearchProfile) Budget() time.Duration {
	return time.Duration(p.TimeBudgetMs) * time.Millisecond
}

type SearchStats struct {
	Nodes          int64
	TTProbes       int64
	TTHits         int64
	TTStores       int64
	Cutoffs        int64
	CompletedDepth int
	DepthDurations []time.Duration
}

type SearchResult struct {
	Move    Move
	Score   float64
	Depth   int
	Reason  string
	Elapsed time.Duration
	Stats   SearchStats
	OK      bool
}

type SearchOption func(s *searcher)

// WithClock replaces time.Now for deadline checks.
func WithClock(now func() time.Time) SearchOption {
	return func(s *searcher) {
		if now != nil {
			s.now = now
		}
	}
}

// WithStop aborts the search as soon as stop reports true, the same way an
// expired deadline does.
func WithStop(stop func() bool) SearchOption {
	return func(s *searcher) {
		s.stop = stop
	}
}

func WithTTCapacity(capacity int) SearchOption {
	return func(s *searcher) {
		if capacity > 0 {
			s.ttCapacity = capacity
		}
	}
}

type searcher struct {
	board      *Board
	rules      Rules
	profile    SearchProfile
	tt         *TranspositionTable
	ttCapacity int
	deadline   time.Time
	expired    bool
	stats      SearchStats
	now        func() time.Time
	stop       func() bool
}

// Search picks a move for toMove on board. The board is copied and never
// modified. OK is false when no legal cell remains or toMove is not a color.
func Search(board Board, toMove PlayerColor, profile SearchProfile, rules Rules, options ...SearchOption) SearchResult {
	if !toMove.IsValid() {
		log.Warn().Int("to_move", int(toMove)).Msg("search rejected side to move")
		return SearchResult{Move: NoMove, Reason: reasonInvalidColor}
	}
	s := &searcher{
		board:      &board,
		rules:      rules,
		profile:    profile,
		ttCapacity: defaultTTCapacity,
		now:        time.Now,
	}
	for _, option := range options {
		option(s)
	}
	start := s.now()
	s.deadline = start.Add(profile.Budget())
	result := s.run(toMove)
	result.Elapsed = s.now().Sub(start)
	result.Stats = s.stats
	ttSize, ttClears := 0, 0
	if s.tt != nil {
		ttSize, ttClears = s.tt.Count(), s.tt.Clears()
	}
	log.Info().
		Str("to_move", toMove.String()).
		Str("move", result.Move.String()).
		Str("reason", result.Reason).
		Int("depth", result.Depth).
		Float64("score", result.Score).
		Int64("nodes", s.stats.Nodes).
		Int64("cutoffs", s.stats.Cutoffs).
		Int("tt_size", ttSize).
		Int("tt_clears", ttClears).
		Dur("elapsed", result.Elapsed).
		Msg("search done")
	return result
}

func (s *searcher) run(toMove PlayerColor) SearchResult {
	if s.board.IsEmpty() {
		return SearchResult{Move: centerMove, Reason: reasonOpening, OK: true}
	}
	if s.board.IsFull() {
		return SearchResult{Move: NoMove, Reason: reasonNoMove}
	}
	if move, reason, ok := s.tactical(toMove); ok {
		return SearchResult{Move: move, Reason: reason, OK: true}
	}

	s.tt = NewTranspositionTable(s.ttCapacity)
	best := SearchResult{Move: NoMove}
	for depth := 1; depth <= s.profile.MaxDepth; depth++ {
		if s.timeUp() {
			break
		}
		iterStart := s.now()
		move, score, complete := s.searchRoot(toMove, depth, best.Move)
		if !complete {
			break
		}
		s.stats.CompletedDepth = depth
		s.stats.DepthDurations = append(s.stats.DepthDurations, s.now().Sub(iterStart))
		best = SearchResult{Move: move, Score: score, Depth: depth, Reason: reasonSearch, OK: move.IsValid()}
		log.Debug().
			Int("depth", depth).
			Float64("score", score).
			Str("best", move.String()).
			Int64("nodes", s.stats.Nodes).
			Msg("iteration complete")
		if math.Abs(score) >= winScore/2 {
			break
		}
	}
	if best.OK {
		return best
	}
	return s.fallback(toMove)
}

// fallback prefers the centre, then the first legal cell in board order.
func (s *searcher) fallback(toMove PlayerColor) SearchResult {
	if ok, _ := s.rules.IsLegal(s.board, centerMove, toMove); ok {
		return SearchResult{Move: centerMove, Reason: reasonFallback, OK: true}
	}
	for idx := 0; idx < numCells; idx++ {
		m := Move{Row: idx / BoardSize, Col: idx % BoardSize}
		if ok, _ := s.rules.IsLegal(s.board, m, toMove); ok {
			return SearchResult{Move: m, Reason: reasonFallback, OK: true}
		}
	}
	return SearchResult{Move: NoMove, Reason: reasonNoMove}
}

func (s *searcher) timeUp() bool {
	if s.expired {
		return true
	}
	if (s.stop != nil && s.stop()) || !s.now().Before(s.deadline) {
		s.expired = true
	}
	return s.expired
}

func (s *searcher) playable(m Move, player PlayerColor) bool {
	return !s.rules.IsRestricted(player) || !s.rules.IsForbidden(s.board, m)
}

// Tactical priorities, strongest first.
const (
	tacticWin = iota
	tacticBlockWin
	tacticOpenFour
	tacticBlockOpenFour
	tacticBlockDoubleThreat
	tacticDoubleThreat
	tacticNone
)

var tacticReasons = [tacticNone]string{
	reasonWin,
	reasonBlockWin,
	reasonOpenFour,
	reasonBlockOpenFour,
	reasonBlockDoubleThreat,
	reasonDoubleThreat,
}

// tactical scans every legal empty cell for a forcing move and returns one
// of the strongest category found. Ties go to the higher candidate score.
func (s *searcher) tactical(player PlayerColor) (Move, string, bool) {
	opp := otherPlayer(player)
	bestLevel := tacticNone
	var tied []Move
	for idx := 0; idx < numCells; idx++ {
		if s.board.cells[idx] != CellEmpty {
			continue
		}
		m := Move{Row: idx / BoardSize, Col: idx % BoardSize}
		if !s.playable(m, player) {
			continue
		}
		level := s.tacticLevel(m, player, opp)
		switch {
		case level < bestLevel:
			bestLevel = level
			tied = append(tied[:0], m)
		case level == bestLevel && level != tacticNone:
			tied = append(tied, m)
		}
	}
	if bestLevel == tacticNone {
		return NoMove, "", false
	}
	best := tied[0]
	if len(tied) > 1 {
		bestScore := math.MinInt
		for _, m := range tied {
			if score := scoreCandidate(s.board, m, player, s.rules); score > bestScore {
				best, bestScore = m, score
			}
		}
	}
	return best, tacticReasons[bestLevel], true
}

func (s *searcher) tacticLevel(m Move, player, opp PlayerColor) int {
	if isWinningPlacement(s.board, m, player, s.rules) {
		return tacticWin
	}
	if isWinningPlacement(s.board, m, opp, s.rules) && s.playable(m, opp) {
		return tacticBlockWin
	}
	own := classify(s.board, m, player)
	if own.OpenFour > 0 {
		return tacticOpenFour
	}
	// A cell the opponent may not play is no threat from them.
	oppThreat := ThreatCount{}
	if s.playable(m, opp) {
		oppThreat = classify(s.board, m, opp)
	}
	if oppThreat.OpenFour > 0 {
		return tacticBlockOpenFour
	}
	if isDoubleThreat(oppThreat) {
		return tacticBlockDoubleThreat
	}
	if isDoubleThreat(own) {
		return tacticDoubleThreat
	}
	return tacticNone
}

// searchRoot runs one full-window iteration. complete is false when the
// deadline cut it short.
func (s *searcher) searchRoot(player PlayerColor, depth int, preferred Move) (Move, float64, bool) {
	alpha, beta := -math.MaxFloat64, math.MaxFloat64
	best := -math.MaxFloat64
	bestMove := NoMove
	for _, candidate := range generateCandidates(s.board, player, s.profile.MaxCandidates, preferred, s.rules) {
		if s.timeUp() {
			return bestMove, best, false
		}
		m := candidate.move
		if !s.playable(m, player) {
			continue
		}
		value := s.child(m, player, depth, alpha, beta, 0)
		if value > best {
			best, bestMove = value, m
		}
		if best > alpha {
			alpha = best
		}
	}
	return bestMove, best, !s.expired
}

// child scores m for player from player's point of view.
func (s *searcher) child(m Move, player PlayerColor, depth int, alpha, beta float64, ply int) float64 {
	if isWinningPlacement(s.board, m, player, s.rules) {
		return winScore - float64(ply+1)
	}
	var value float64
	s.board.speculate(m, player, func() {
		value = -s.search(otherPlayer(player), depth-1, -beta, -alpha, ply+1)
	})
	return value
}

// search is negamax alpha-beta; the value is from player's point of view.
func (s *searcher) search(player PlayerColor, depth int, alpha, beta float64, ply int) float64 {
	if s.timeUp() {
		return EvaluateBoard(s.board, player)
	}
	if winner := boardWinner(s.board, s.rules); winner != CellEmpty {
		if winner == CellFromPlayer(player) {
			return winScore - float64(ply)
		}
		return -(winScore - float64(ply))
	}
	if s.board.IsFull() {
		return 0
	}
	if depth <= 0 {
		return EvaluateBoard(s.board, player)
	}
	s.stats.Nodes++

	key := ttKeyFor(s.board, player)
	alphaOrig, betaOrig := alpha, beta
	preferred := NoMove
	s.stats.TTProbes++
	if entry, ok := s.tt.Probe(key); ok {
		s.stats.TTHits++
		preferred = entry.BestMove
		if _, ret, value := applyTTEntry(entry, depth, &alpha, &beta, &s.stats); ret {
			return value
		}
	}

	best := -math.MaxFloat64
	bestMove := NoMove
	for _, candidate := range generateCandidates(s.board, player, s.profile.MaxCandidates, preferred, s.rules) {
		if s.timeUp() {
			break
		}
		m := candidate.move
		if !s.playable(m, player) {
			continue
		}
		value := s.child(m, player, depth, alpha, beta, ply)
		if value > best {
			best, bestMove = value, m
		}
		if best > alpha {
			alpha = best
		}
		if alpha >= beta {
			s.stats.Cutoffs++
			break
		}
	}
	if !bestMove.IsValid() {
		return EvaluateBoard(s.board, player)
	}
	if s.expired {
		return best
	}
	flag := TTExact
	if best <= alphaOrig {
		flag = TTUpper
	} else if best >= betaOrig {
		flag = TTLower
	}
	s.tt.Store(TTEntry{Key: key, Depth: depth, Value: best, Flag: flag, BestMove: bestMove})
	s.stats.TTStores++
	return best
}
