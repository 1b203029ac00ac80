package main

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

var (
	ErrNoMove          = errors.New("no legal move")
	ErrGameNotRunning  = errors.New("game not running")
	ErrNotHumanTurn    = errors.New("not human turn")
	ErrUndoUnavailable = errors.New("nothing to undo")
	ErrNotReviewing    = errors.New("no record under review")
)

type Game struct {
	id          uuid.UUID
	settings    GameSettings
	rules       Rules
	state       GameState
	history     MoveHistory
	blackPlayer Player
	whitePlayer Player
	startedAt   time.Time
	endedAt     time.Time
	turnStart   time.Time
	review      *Record
	reviewStep  int
}

func NewGame(settings GameSettings) Game {
	g := Game{}
	g.Reset(settings)
	return g
}

func (g *Game) Reset(settings GameSettings) {
	g.stopAI()
	g.id = uuid.New()
	g.settings = settings
	g.rules = NewRules(settings)
	g.state.Reset()
	g.history.Clear()
	g.createPlayers()
	g.startedAt = time.Now()
	g.endedAt = time.Time{}
	g.turnStart = g.startedAt
	g.review = nil
	g.reviewStep = 0
	g.logMatchup()
}

func (g *Game) Start() {
	if g.state.Status == StatusNotStarted {
		g.state.Status = StatusRunning
		g.turnStart = time.Now()
	}
}

func (g *Game) ID() uuid.UUID {
	return g.id
}

func (g *Game) State() GameState {
	return g.state.Clone()
}

func (g *Game) Settings() GameSettings {
	return g.settings
}

func (g *Game) Rules() Rules {
	return g.rules
}

func (g *Game) History() MoveHistory {
	return g.history
}

func (g *Game) StartedAt() time.Time {
	return g.startedAt
}

func (g *Game) TurnStartedAtMs() int64 {
	if g.turnStart.IsZero() {
		return 0
	}
	return g.turnStart.UnixMilli()
}

// TryApplyMove plays move for the side to move. Nothing changes on error.
func (g *Game) TryApplyMove(move Move) error {
	if g.state.Status != StatusRunning {
		return ErrGameNotRunning
	}
	player := g.currentPlayer()
	isAiMove := player != nil && !player.IsHuman()
	mover := g.state.ToMove
	if err := g.rules.CheckMove(&g.state.Board, move, mover); err != nil {
		g.state.LastMessage = "Illegal move: " + errors.Cause(err).Error()
		return err
	}
	if err := g.state.Board.Place(move, mover); err != nil {
		return err
	}
	elapsedMs := float64(time.Since(g.turnStart).Milliseconds())
	g.state.LastMessage = ""
	g.state.LastMove = Move{Row: move.Row, Col: move.Col}
	g.state.HasLastMove = true
	g.state.WinningLine = nil
	g.history.Push(HistoryEntry{Move: g.state.LastMove, Player: mover, ElapsedMs: elapsedMs, IsAi: isAiMove, Depth: move.Depth})
	g.logMovePlayed(move, mover, elapsedMs, isAiMove)

	if line, ok := winningLine(&g.state.Board, move, g.rules); ok {
		g.state.WinningLine = line
		g.finish(statusForWinner(mover))
		g.logWin(mover)
		return nil
	}
	if g.rules.IsDraw(&g.state.Board) {
		g.finish(StatusDraw)
		return nil
	}
	g.state.ToMove = otherPlayer(mover)
	g.turnStart = time.Now()
	return nil
}

func (g *Game) finish(status GameStatus) {
	g.state.Status = status
	g.endedAt = time.Now()
	log.Info().Str("game", g.id.String()).Str("status", status.String()).Int("moves", g.history.Size()).Msg("game over")
}

// Tick drives the side to move: a pending human move is applied, an engine
// player is started or its finished move is applied. It reports whether a
// move was applied.
func (g *Game) Tick() bool {
	if g.state.Status != StatusRunning {
		return false
	}
	player := g.currentPlayer()
	if player == nil {
		return false
	}
	if player.IsHuman() {
		human, ok := player.(*HumanPlayer)
		if ok && human.HasPendingMove() {
			return g.TryApplyMove(human.ChooseMove(g.state, g.rules)) == nil
		}
		return false
	}
	ai, ok := player.(*AIPlayer)
	if ok {
		if ai.HasMoveReady() {
			return g.applyEngineMove(ai.TakeMove())
		}
		if !ai.IsThinking() {
			ai.StartThinking(g.state.Clone(), g.rules)
		}
		return false
	}
	return g.applyEngineMove(player.ChooseMove(g.state.Clone(), g.rules))
}

// applyEngineMove treats an engine with nothing to play as a drawn game.
func (g *Game) applyEngineMove(move Move) bool {
	if !move.IsValid() {
		g.state.LastMessage = ErrNoMove.Error()
		g.finish(StatusDraw)
		return false
	}
	if err := g.TryApplyMove(move); err != nil {
		log.Error().Err(err).Str("move", move.String()).Msg("engine move rejected")
		return false
	}
	return true
}

func (g *Game) SubmitHumanMove(move Move) bool {
	player := g.currentPlayer()
	if player == nil || !player.IsHuman() {
		return false
	}
	human, ok := player.(*HumanPlayer)
	if !ok {
		return false
	}
	human.Submit(move)
	return true
}

func (g *Game) CurrentPlayerIsHuman() bool {
	player := g.currentPlayer()
	return player != nil && player.IsHuman()
}

// Undo takes moves back until a human is to move again: one move in a
// two-player game or when a human move ended the game, otherwise the last
// move pair against the engine. It returns the number of moves removed.
func (g *Game) Undo() (int, error) {
	if g.state.Status != StatusRunning && !g.state.Status.Finished() {
		return 0, ErrGameNotRunning
	}
	if g.state.Status == StatusRunning && !g.CurrentPlayerIsHuman() {
		return 0, ErrNotHumanTurn
	}
	count := 1
	if last, ok := g.history.Last(); ok && g.settings.HasAI() && !g.playerForColor(last.Player).IsHuman() {
		count = 2
	}
	if g.history.Size() < count {
		return 0, errors.Wrapf(ErrUndoUnavailable, "%d moves played", g.history.Size())
	}
	g.stopAI()
	for i := 0; i < count; i++ {
		entry, _ := g.history.Pop()
		if err := g.state.Board.Remove(entry.Move, entry.Player); err != nil {
			return i, errors.Wrap(err, "undo")
		}
		g.state.ToMove = entry.Player
	}
	g.state.Status = StatusRunning
	g.state.WinningLine = nil
	g.state.LastMessage = ""
	g.endedAt = time.Time{}
	if last, ok := g.history.Last(); ok {
		g.state.LastMove = last.Move
		g.state.HasLastMove = true
	} else {
		g.state.LastMove = NoMove
		g.state.HasLastMove = false
	}
	g.turnStart = time.Now()
	log.Info().Str("game", g.id.String()).Int("removed", count).Msg("undo")
	return count, nil
}

func (g *Game) Record() Record {
	if g.review != nil {
		return *g.review
	}
	return g.history.ToRecord(g.settings.Mode)
}

// LoadRecord replaces the game with rec, shown at its final position in
// review.
func (g *Game) LoadRecord(rec Record) error {
	board, err := rec.Replay(len(rec.Moves))
	if err != nil {
		return err
	}
	settings := NewGameSettings(rec.Mode, g.settings.Difficulty, g.settings.BanHand)
	g.Reset(settings)
	g.review = &rec
	g.showReview(board, len(rec.Moves))
	return nil
}

// Review moves the review cursor to step, the number of moves shown.
func (g *Game) Review(step int) error {
	if g.review == nil {
		return ErrNotReviewing
	}
	board, err := g.review.Replay(step)
	if err != nil {
		return err
	}
	g.showReview(board, step)
	return nil
}

func (g *Game) ReviewStep() (int, int, bool) {
	if g.review == nil {
		return 0, 0, false
	}
	return g.reviewStep, len(g.review.Moves), true
}

func (g *Game) showReview(board Board, step int) {
	g.reviewStep = step
	g.state.Board = board
	g.state.Status = StatusReview
	g.state.ToMove = g.review.NextToMove(step)
	g.state.WinningLine = nil
	if step > 0 {
		g.state.LastMove = g.review.Moves[step-1].Move
		g.state.HasLastMove = true
	} else {
		g.state.LastMove = NoMove
		g.state.HasLastMove = false
	}
}

// Resume continues play from the position under review, discarding the
// moves after the cursor.
func (g *Game) Resume() error {
	if g.review == nil {
		return ErrNotReviewing
	}
	rec := *g.review
	step := g.reviewStep
	g.review = nil
	g.state.Status = StatusNotStarted
	g.Start()
	for _, entry := range rec.Moves[:step] {
		g.history.Push(HistoryEntry{Move: entry.Move, Player: entry.Color})
	}
	if step > 0 {
		last := rec.Moves[step-1]
		if line, ok := winningLine(&g.state.Board, last.Move, g.rules); ok {
			g.state.WinningLine = line
			g.finish(statusForWinner(last.Color))
		} else if g.rules.IsDraw(&g.state.Board) {
			g.finish(StatusDraw)
		}
	}
	return nil
}

func (g *Game) AiThinking() bool {
	ai, ok := g.currentPlayer().(*AIPlayer)
	return ok && ai.IsThinking()
}

// Snapshot describes the game for the archive.
func (g *Game) Snapshot() ArchivedGame {
	var text strings.Builder
	rec := g.Record()
	_, _ = rec.WriteTo(&text)
	winner := ""
	switch g.state.Status {
	case StatusBlackWon:
		winner = PlayerBlack.String()
	case StatusWhiteWon:
		winner = PlayerWhite.String()
	case StatusDraw:
		winner = "draw"
	}
	return ArchivedGame{
		ID:         g.id.String(),
		StartedAt:  g.startedAt,
		EndedAt:    g.endedAt,
		Mode:       g.settings.Mode,
		Difficulty: g.settings.Difficulty,
		Winner:     winner,
		Moves:      len(rec.Moves),
		Record:     text.String(),
	}
}

func (g *Game) currentPlayer() Player {
	return g.playerForColor(g.state.ToMove)
}

func (g *Game) playerForColor(color PlayerColor) Player {
	if color == PlayerBlack {
		return g.blackPlayer
	}
	return g.whitePlayer
}

func (g *Game) createPlayers() {
	if g.settings.BlackType == PlayerHuman {
		g.blackPlayer = NewHumanPlayer()
	} else {
		g.blackPlayer = NewAIPlayer(g.settings.Difficulty)
	}
	if g.settings.WhiteType == PlayerHuman {
		g.whitePlayer = NewHumanPlayer()
	} else {
		g.whitePlayer = NewAIPlayer(g.settings.Difficulty)
	}
}

func (g *Game) stopAI() {
	for _, player := range []Player{g.blackPlayer, g.whitePlayer} {
		if ai, ok := player.(*AIPlayer); ok {
			ai.StopThinking()
		}
	}
}

func (g *Game) logMatchup() {
	label := func(t PlayerType) string {
		if t == PlayerAI {
			return "AI"
		}
		return "Human"
	}
	log.Info().
		Str("game", g.id.String()).
		Str("mode", g.settings.Mode.String()).
		Str("black", label(g.settings.BlackType)).
		Str("white", label(g.settings.WhiteType)).
		Str("difficulty", g.settings.Difficulty.String()).
		Bool("ban_hand", g.settings.BanHand).
		Msg("new game")
}

func (g *Game) logMovePlayed(move Move, player PlayerColor, elapsedMs float64, isAiMove bool) {
	log.Debug().
		Str("game", g.id.String()).
		Str("player", player.String()).
		Str("move", move.String()).
		Float64("elapsed_ms", elapsedMs).
		Bool("ai", isAiMove).
		Int("depth", move.Depth).
		Msg("move played")
}

func (g *Game) logWin(player PlayerColor) {
	log.Info().Str("game", g.id.String()).Str("winner", player.String()).Msg("five in a row")
}
