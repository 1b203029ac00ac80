package main

import "github.com/pkg/errors"

type PlayerType int

const (
	PlayerHuman PlayerType = iota
	PlayerAI
)

// GameMode values double as the first line of a record file.
type GameMode int

const (
	ModePlayBlack GameMode = -1
	ModePlayWhite GameMode = 1
	ModeDouble    GameMode = 2
)

var ErrInvalidMode = errors.New("invalid game mode")

func (m GameMode) IsValid() bool {
	return m == ModePlayBlack || m == ModePlayWhite || m == ModeDouble
}

func (m GameMode) String() string {
	switch m {
	case ModePlayBlack:
		return "play_black"
	case ModePlayWhite:
		return "play_white"
	case ModeDouble:
		return "double"
	default:
		return "unknown"
	}
}

type GameSettings struct {
	Mode       GameMode   `json:"mode"`
	Difficulty Difficulty `json:"difficulty"`
	BanHand    bool       `json:"ban_hand"`
	BlackType  PlayerType `json:"-"`
	WhiteType  PlayerType `json:"-"`
}

func DefaultGameSettings() GameSettings {
	return NewGameSettings(ModePlayBlack, DifficultyNormal, GetConfig().BanHand)
}

// NewGameSettings derives which colors the engine plays from mode.
func NewGameSettings(mode GameMode, difficulty Difficulty, banHand bool) GameSettings {
	settings := GameSettings{
		Mode:       mode,
		Difficulty: difficulty,
		BanHand:    banHand,
		BlackType:  PlayerHuman,
		WhiteType:  PlayerHuman,
	}
	switch mode {
	case ModePlayBlack:
		settings.WhiteType = PlayerAI
	case ModePlayWhite:
		settings.BlackType = PlayerAI
	}
	return settings
}

func (s GameSettings) Validate() error {
	if !s.Mode.IsValid() {
		return errors.Wrapf(ErrInvalidMode, "mode %d", s.Mode)
	}
	if !s.Difficulty.IsValid() {
		return errors.Wrapf(ErrInvalidDifficulty, "difficulty %d", s.Difficulty)
	}
	return nil
}

func (s GameSettings) HasAI() bool {
	return s.BlackType == PlayerAI || s.WhiteType == PlayerAI
}
