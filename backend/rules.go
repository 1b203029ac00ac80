package main

import (
	"fmt"

	"github.com/pkg/errors"
)

var ErrForbidden = errors.New("forbidden move")

const (
	reasonOutOfBounds = "out of bounds"
	reasonOccupied    = "occupied"
	reasonOverline    = "overline"
	reasonDoubleFour  = "double four"
	reasonDoubleThree = "double three"
)

// Rules decides legality and wins. With ban-hand enabled black is the
// restricted side.
type Rules struct {
	banHand bool
}

func NewRules(settings GameSettings) Rules {
	return Rules{banHand: settings.BanHand}
}

func (r Rules) BanHand() bool {
	return r.banHand
}

func (r Rules) IsRestricted(player PlayerColor) bool {
	return r.banHand && player == PlayerBlack
}

func (r Rules) IsLegal(board *Board, move Move, player PlayerColor) (bool, string) {
	if !move.IsValid() {
		return false, reasonOutOfBounds
	}
	if board.cellAt(move) != CellEmpty {
		return false, reasonOccupied
	}
	if r.IsRestricted(player) {
		if forbidden, reason := r.ForbiddenReason(board, move); forbidden {
			return false, "forbidden " + reason
		}
	}
	return true, ""
}

// CheckMove is IsLegal with the verdict mapped onto the error sentinels.
func (r Rules) CheckMove(board *Board, move Move, player PlayerColor) error {
	ok, reason := r.IsLegal(board, move, player)
	if ok {
		return nil
	}
	switch reason {
	case reasonOutOfBounds:
		return errors.Wrapf(ErrOutOfBounds, "move %s", move)
	case reasonOccupied:
		return errors.Wrapf(ErrOccupied, "move %s", move)
	default:
		return errors.Wrapf(ErrForbidden, "move %s: %s", move, reason)
	}
}

func (r Rules) IsDraw(board *Board) bool {
	return board.IsFull()
}

func (r Rules) IsForbidden(board *Board, move Move) bool {
	forbidden, _ := r.ForbiddenReason(board, move)
	return forbidden
}

// ForbiddenReason judges a black stone on move. Every probe reads move as
// already occupied by black, so the board is never written.
func (r Rules) ForbiddenReason(board *Board, move Move) (bool, string) {
	if !move.IsValid() {
		return true, reasonOutOfBounds
	}
	if board.cellAt(move) != CellEmpty {
		return true, reasonOccupied
	}
	exactFive := false
	for _, dir := range directions {
		run := runLength(board, move, PlayerBlack, dir)
		if run > WinLength {
			return true, reasonOverline
		}
		if run == WinLength {
			exactFive = true
		}
	}
	if exactFive {
		return false, ""
	}
	fours, threes := 0, 0
	for _, dir := range directions {
		window := symbolWindow(board, move, PlayerBlack, dir)
		// Each test runs on its own; a line may count as a four and a three.
		if hasFour(window) {
			fours++
		}
		if hasOpenThree(window) {
			threes++
		}
	}
	if fours >= 2 {
		return true, reasonDoubleFour
	}
	if threes >= 2 {
		return true, reasonDoubleThree
	}
	return false, ""
}

func (r Rules) String() string {
	return fmt.Sprintf("Rules{ban_hand=%t}", r.banHand)
}

// IsForbiddenMove answers the ban-hand question for a black stone on move
// regardless of configuration.
func IsForbiddenMove(board *Board, move Move) bool {
	return Rules{banHand: true}.IsForbidden(board, move)
}
