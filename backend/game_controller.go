package main

import "sync"

// GameController serialises access to the single hosted game and reports
// every game that reaches a final status to onFinish, once.
type GameController struct {
	mu       sync.Mutex
	game     Game
	onFinish func(ArchivedGame)
	reported bool
}

func NewGameController(settings GameSettings) *GameController {
	return &GameController{game: NewGame(settings)}
}

func (gc *GameController) SetFinishHook(hook func(ArchivedGame)) {
	gc.mu.Lock()
	defer gc.mu.Unlock()
	gc.onFinish = hook
}

func (gc *GameController) OnCellClicked(row, col int) bool {
	gc.mu.Lock()
	defer gc.mu.Unlock()
	return gc.game.SubmitHumanMove(Move{Row: row, Col: col})
}

func (gc *GameController) ApplyHumanMove(move Move) error {
	gc.mu.Lock()
	defer gc.mu.Unlock()
	if gc.game.state.Status != StatusRunning {
		return ErrGameNotRunning
	}
	if !gc.game.CurrentPlayerIsHuman() {
		return ErrNotHumanTurn
	}
	if err := gc.game.TryApplyMove(move); err != nil {
		return err
	}
	gc.reportIfFinished()
	return nil
}

func (gc *GameController) Tick() bool {
	gc.mu.Lock()
	defer gc.mu.Unlock()
	applied := gc.game.Tick()
	gc.reportIfFinished()
	return applied
}

func (gc *GameController) reportIfFinished() {
	if gc.reported || !gc.game.state.Status.Finished() {
		return
	}
	gc.reported = true
	if gc.onFinish != nil {
		gc.onFinish(gc.game.Snapshot())
	}
}

func (gc *GameController) State() GameState {
	gc.mu.Lock()
	defer gc.mu.Unlock()
	return gc.game.State()
}

func (gc *GameController) GameID() string {
	gc.mu.Lock()
	defer gc.mu.Unlock()
	return gc.game.ID().String()
}

func (gc *GameController) Settings() GameSettings {
	gc.mu.Lock()
	defer gc.mu.Unlock()
	return gc.game.Settings()
}

func (gc *GameController) History() MoveHistory {
	gc.mu.Lock()
	defer gc.mu.Unlock()
	return gc.game.History()
}

func (gc *GameController) CurrentTurnStartedAtMs() int64 {
	gc.mu.Lock()
	defer gc.mu.Unlock()
	return gc.game.TurnStartedAtMs()
}

func (gc *GameController) LatestHistoryEntry() (HistoryEntry, bool) {
	gc.mu.Lock()
	defer gc.mu.Unlock()
	return gc.game.History().Last()
}

func (gc *GameController) AiThinking() bool {
	gc.mu.Lock()
	defer gc.mu.Unlock()
	return gc.game.AiThinking()
}

func (gc *GameController) StartGame(settings GameSettings) {
	gc.mu.Lock()
	defer gc.mu.Unlock()
	gc.game.Reset(settings)
	gc.game.Start()
	gc.reported = false
}

func (gc *GameController) Undo() (int, error) {
	gc.mu.Lock()
	defer gc.mu.Unlock()
	removed, err := gc.game.Undo()
	if err == nil {
		gc.reported = false
	}
	return removed, err
}

func (gc *GameController) Record() Record {
	gc.mu.Lock()
	defer gc.mu.Unlock()
	return gc.game.Record()
}

func (gc *GameController) Snapshot() ArchivedGame {
	gc.mu.Lock()
	defer gc.mu.Unlock()
	return gc.game.Snapshot()
}

func (gc *GameController) LoadRecord(rec Record) error {
	gc.mu.Lock()
	defer gc.mu.Unlock()
	if err := gc.game.LoadRecord(rec); err != nil {
		return err
	}
	gc.reported = true
	return nil
}

func (gc *GameController) Review(step int) error {
	gc.mu.Lock()
	defer gc.mu.Unlock()
	return gc.game.Review(step)
}

func (gc *GameController) ReviewStep() (int, int, bool) {
	gc.mu.Lock()
	defer gc.mu.Unlock()
	return gc.game.ReviewStep()
}

func (gc *GameController) Resume() error {
	gc.mu.Lock()
	defer gc.mu.Unlock()
	if err := gc.game.Resume(); err != nil {
		return err
	}
	gc.reported = gc.game.state.Status.Finished()
	return nil
}
