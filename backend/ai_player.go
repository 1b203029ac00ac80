package main

import (
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Offsets tried for the reply to a lone black stone.
var openingReplyOffsets = [8]direction{
	{1, 1}, {1, -1}, {-1, -1}, {-1, 1}, {0, 1}, {0, -1}, {1, 0}, {-1, 0},
}

var openingReplyDefault = Move{Row: BoardSize/2 + 1, Col: BoardSize/2 + 1}

// ComputeMove returns the engine's move for toMove using the profile that
// difficulty selects in the current config. It fails with ErrInvalidColor
// before any work when toMove is not a color, and with ErrNoMove when the
// board has no legal cell left.
func ComputeMove(board Board, toMove PlayerColor, difficulty Difficulty) (Move, error) {
	if !toMove.IsValid() {
		return NoMove, errors.Wrapf(ErrInvalidColor, "side to move %d", toMove)
	}
	result := computeWithConfig(board, toMove, difficulty, GetConfig())
	if !result.OK {
		return NoMove, ErrNoMove
	}
	return result.Move, nil
}

func computeWithConfig(board Board, toMove PlayerColor, difficulty Difficulty, cfg Config, options ...SearchOption) SearchResult {
	rules := NewRules(GameSettings{BanHand: cfg.BanHand})
	opts := append([]SearchOption{WithTTCapacity(cfg.TTCapacity)}, options...)
	return Search(board, toMove, cfg.Profile(difficulty), rules, opts...)
}

// openingReply answers black's first stone with a neighbour that is no
// farther from the centre on either axis.
func openingReply(b *Board) (Move, bool) {
	if b.StoneCount() != 1 {
		return NoMove, false
	}
	stone := NoMove
	for idx := 0; idx < numCells; idx++ {
		if b.cells[idx] == CellBlack {
			stone = Move{Row: idx / BoardSize, Col: idx % BoardSize}
			break
		}
	}
	if !stone.IsValid() {
		return NoMove, false
	}
	for _, offset := range openingReplyOffsets {
		m := Move{Row: stone.Row + offset.dRow, Col: stone.Col + offset.dCol}
		if !b.IsFree(m) {
			continue
		}
		if absInt(m.Row-centerMove.Row) <= absInt(stone.Row-centerMove.Row) &&
			absInt(m.Col-centerMove.Col) <= absInt(stone.Col-centerMove.Col) {
			return m, true
		}
	}
	if b.IsFree(openingReplyDefault) {
		return openingReplyDefault, true
	}
	return NoMove, false
}

type AIPlayer struct {
	difficulty  Difficulty
	moveMutex   sync.Mutex
	workerDone  chan struct{}
	thinking    atomic.Bool
	moveReady   atomic.Bool
	stopSignal  atomic.Bool
	readyMove   Move
	readyResult SearchResult
}

func NewAIPlayer(difficulty Difficulty) *AIPlayer {
	return &AIPlayer{difficulty: difficulty}
}

func (a *AIPlayer) IsHuman() bool {
	return false
}

func (a *AIPlayer) Difficulty() Difficulty {
	return a.difficulty
}

func (a *AIPlayer) ChooseMove(state GameState, rules Rules) Move {
	result := a.decide(state, rules, nil)
	if !result.OK {
		return NoMove
	}
	return result.Move
}

func (a *AIPlayer) decide(state GameState, rules Rules, stop func() bool) SearchResult {
	if state.ToMove == PlayerWhite {
		if move, ok := openingReply(&state.Board); ok {
			return SearchResult{Move: move, Reason: reasonOpening, OK: true}
		}
	}
	cfg := GetConfig()
	options := []SearchOption{WithTTCapacity(cfg.TTCapacity)}
	if stop != nil {
		options = append(options, WithStop(stop))
	}
	return Search(state.Board, state.ToMove, cfg.Profile(a.difficulty), rules, options...)
}

// StartThinking searches state on a worker goroutine. The move is collected
// with TakeMove once HasMoveReady reports true.
func (a *AIPlayer) StartThinking(state GameState, rules Rules) {
	if a.thinking.Load() {
		return
	}
	if a.workerDone != nil {
		<-a.workerDone
	}
	a.thinking.Store(true)
	a.moveReady.Store(false)
	a.stopSignal.Store(false)

	stateCopy := state.Clone()
	done := make(chan struct{})
	a.workerDone = done
	go func() {
		defer close(done)
		result := a.decide(stateCopy, rules, a.stopSignal.Load)
		if a.stopSignal.Load() {
			a.thinking.Store(false)
			return
		}
		a.moveMutex.Lock()
		a.readyResult = result
		a.readyMove = result.Move
		if result.OK {
			a.readyMove.Depth = result.Depth
		}
		a.moveMutex.Unlock()
		a.moveReady.Store(true)
		a.thinking.Store(false)
	}()
}

// StopThinking abandons any search in flight and waits for the worker.
func (a *AIPlayer) StopThinking() {
	if a.workerDone == nil {
		return
	}
	a.stopSignal.Store(true)
	<-a.workerDone
	a.workerDone = nil
	a.moveReady.Store(false)
	a.thinking.Store(false)
	log.Debug().Msg("ai worker stopped")
}

func (a *AIPlayer) IsThinking() bool {
	return a.thinking.Load()
}

func (a *AIPlayer) HasMoveReady() bool {
	return a.moveReady.Load()
}

func (a *AIPlayer) TakeMove() Move {
	a.moveMutex.Lock()
	defer a.moveMutex.Unlock()
	a.moveReady.Store(false)
	return a.readyMove
}

func (a *AIPlayer) LastResult() SearchResult {
	a.moveMutex.Lock()
	defer a.moveMutex.Unlock()
	return a.readyResult
}
