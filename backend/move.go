package main

import "fmt"

type Move struct {
	Row   int `json:"row"`
	Col   int `json:"col"`
	Depth int `json:"depth,omitempty"`
}

// NoMove is returned when the engine has nothing legal to play.
var NoMove = Move{Row: -1, Col: -1}

var centerMove = Move{Row: BoardSize / 2, Col: BoardSize / 2}

func NewMove(row, col int) Move {
	return Move{Row: row, Col: col}
}

func (m Move) IsValid() bool {
	return m.Row >= 0 && m.Col >= 0 && m.Row < BoardSize && m.Col < BoardSize
}

func (m Move) Equals(other Move) bool {
	return m.Row == other.Row && m.Col == other.Col
}

func (m Move) String() string {
	return fmt.Sprintf("(%d,%d)", m.Row, m.Col)
}

func (m Move) index() int {
	return m.Row*BoardSize + m.Col
}
