package main

// Player is one side of a game. Engine players compute moves; human players
// only hand back what was submitted for them.
type Player interface {
	IsHuman() bool
	ChooseMove(state GameState, rules Rules) Move
}

// HumanPlayer holds one submitted move until the next tick applies it. A
// newer submission replaces an unapplied one.
type HumanPlayer struct {
	pending *Move
}

func NewHumanPlayer() *HumanPlayer {
	return &HumanPlayer{}
}

func (h *HumanPlayer) IsHuman() bool {
	return true
}

// ChooseMove takes the pending move, or NoMove when nothing was submitted.
func (h *HumanPlayer) ChooseMove(GameState, Rules) Move {
	if h.pending == nil {
		return NoMove
	}
	move := *h.pending
	h.pending = nil
	return move
}

func (h *HumanPlayer) Submit(move Move) {
	h.pending = &move
}

func (h *HumanPlayer) HasPendingMove() bool {
	return h.pending != nil
}
