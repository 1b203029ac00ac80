package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const maxRecordBytes = 1 << 20

type StatusResponse struct {
	GameID          string            `json:"game_id"`
	Settings        settingsDTO       `json:"settings"`
	Board           [][]int           `json:"board"`
	NextPlayer      int               `json:"next_player"`
	Winner          int               `json:"winner"`
	Status          string            `json:"status"`
	History         []historyEntryDTO `json:"history"`
	LastMove        *Move             `json:"last_move,omitempty"`
	WinningLine     []Move            `json:"winning_line"`
	AiThinking      bool              `json:"ai_thinking"`
	Message         string            `json:"message,omitempty"`
	TurnStartedAtMs int64             `json:"turn_started_at_ms"`
	Review          *reviewDTO        `json:"review,omitempty"`
}

type settingsDTO struct {
	Mode       GameMode   `json:"mode"`
	ModeName   string     `json:"mode_name"`
	Difficulty Difficulty `json:"difficulty"`
	BanHand    bool       `json:"ban_hand"`
}

type reviewDTO struct {
	Step  int `json:"step"`
	Total int `json:"total"`
}

type historyEntryDTO struct {
	Row       int     `json:"row"`
	Col       int     `json:"col"`
	Player    int     `json:"player"`
	ElapsedMs float64 `json:"elapsed_ms"`
	IsAi      bool    `json:"is_ai"`
	Depth     int     `json:"depth"`
}

type startRequest struct {
	Mode       GameMode   `json:"mode"`
	Difficulty Difficulty `json:"difficulty"`
	BanHand    *bool      `json:"ban_hand"`
}

type computeRequest struct {
	Board      [][]int    `json:"board"`
	ToMove     int        `json:"to_move"`
	Difficulty Difficulty `json:"difficulty"`
}

type computeResponse struct {
	Row       int     `json:"row"`
	Col       int     `json:"col"`
	Depth     int     `json:"depth"`
	Score     float64 `json:"score"`
	Reason    string  `json:"reason"`
	Nodes     int64   `json:"nodes"`
	ElapsedMs int64   `json:"elapsed_ms"`
}

type forbiddenRequest struct {
	Board [][]int `json:"board"`
	Row   int     `json:"row"`
	Col   int     `json:"col"`
}

type forbiddenResponse struct {
	Forbidden bool   `json:"forbidden"`
	Reason    string `json:"reason,omitempty"`
}

type analyzeRequest struct {
	Board [][]int `json:"board"`
}

type analyzeResponse struct {
	Winner         int   `json:"winner"`
	BlackForcedWin bool  `json:"black_forced_win"`
	WhiteForcedWin bool  `json:"white_forced_win"`
	BlackWinMove   *Move `json:"black_win_move,omitempty"`
	WhiteWinMove   *Move `json:"white_win_move,omitempty"`
}

type server struct {
	controller *GameController
	hub        *Hub
	archive    *GameArchive
	config     *ConfigStore
	recordPath string
}

func newServer(controller *GameController, hub *Hub, archive *GameArchive, config *ConfigStore, recordPath string) *server {
	return &server{
		controller: controller,
		hub:        hub,
		archive:    archive,
		config:     config,
		recordPath: recordPath,
	}
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/api/ping", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	})
	r.Get("/api/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, controllerStatus(s.controller))
	})
	r.Get("/api/config", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, s.config.Get())
	})
	r.Post("/api/config", s.handleConfig)
	r.Post("/api/start", s.handleStart)
	r.Post("/api/move", s.handleMove)
	r.Post("/api/undo", s.handleUndo)
	r.Post("/api/compute", s.handleCompute)
	r.Post("/api/forbidden", s.handleForbidden)
	r.Post("/api/analyze", s.handleAnalyze)

	r.Route("/api/record", func(r chi.Router) {
		r.Get("/", s.handleRecordText)
		r.Post("/save", s.handleRecordSave)
		r.Post("/load", s.handleRecordLoad)
		r.Get("/review", s.handleRecordReview)
		r.Post("/resume", s.handleRecordResume)
	})
	r.Get("/api/games", s.handleListGames)
	r.Get("/api/games/{id}", s.handleGetGame)

	r.Get("/ws", func(w http.ResponseWriter, r *http.Request) {
		serveWS(s.hub, s.controller, w, r)
	})
	return r
}

func (s *server) handleConfig(w http.ResponseWriter, r *http.Request) {
	cfg := s.config.Get()
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeError(w, http.StatusBadRequest, errors.Wrap(err, "invalid payload"))
		return
	}
	if err := cfg.Validate(); err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	s.config.Update(cfg)
	log.Info().Interface("profiles", cfg.Profiles).Bool("ban_hand", cfg.BanHand).Msg("config updated")
	writeJSON(w, http.StatusOK, cfg)
}

func (s *server) handleStart(w http.ResponseWriter, r *http.Request) {
	payload := startRequest{Mode: ModePlayBlack, Difficulty: DifficultyNormal}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, errors.Wrap(err, "invalid payload"))
		return
	}
	banHand := s.config.Get().BanHand
	if payload.BanHand != nil {
		banHand = *payload.BanHand
	}
	settings := NewGameSettings(payload.Mode, payload.Difficulty, banHand)
	if err := settings.Validate(); err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	s.controller.StartGame(settings)
	status := controllerStatus(s.controller)
	s.hub.PublishReset(status)
	writeJSON(w, http.StatusOK, status)
}

func (s *server) handleMove(w http.ResponseWriter, r *http.Request) {
	var payload Move
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, errors.Wrap(err, "invalid payload"))
		return
	}
	if err := s.controller.ApplyHumanMove(Move{Row: payload.Row, Col: payload.Col}); err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	s.publishLatest()
	writeJSON(w, http.StatusOK, controllerStatus(s.controller))
}

func (s *server) handleUndo(w http.ResponseWriter, r *http.Request) {
	removed, err := s.controller.Undo()
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	status := controllerStatus(s.controller)
	s.hub.PublishReset(status)
	writeJSON(w, http.StatusOK, map[string]any{"removed": removed, "status": status})
}

func (s *server) handleCompute(w http.ResponseWriter, r *http.Request) {
	var payload computeRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, errors.Wrap(err, "invalid payload"))
		return
	}
	board, err := BoardFromGrid(payload.Board)
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	toMove, err := intToPlayer(payload.ToMove)
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	if !payload.Difficulty.IsValid() {
		writeError(w, http.StatusBadRequest, errors.Wrapf(ErrInvalidDifficulty, "difficulty %d", payload.Difficulty))
		return
	}
	stop := func() bool { return r.Context().Err() != nil }
	result := computeWithConfig(board, toMove, payload.Difficulty, s.config.Get(), WithStop(stop))
	if !result.OK {
		writeError(w, statusForError(ErrNoMove), ErrNoMove)
		return
	}
	writeJSON(w, http.StatusOK, computeResponse{
		Row:       result.Move.Row,
		Col:       result.Move.Col,
		Depth:     result.Depth,
		Score:     result.Score,
		Reason:    result.Reason,
		Nodes:     result.Stats.Nodes,
		ElapsedMs: result.Elapsed.Milliseconds(),
	})
}

func (s *server) handleForbidden(w http.ResponseWriter, r *http.Request) {
	var payload forbiddenRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, errors.Wrap(err, "invalid payload"))
		return
	}
	board, err := BoardFromGrid(payload.Board)
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	move := Move{Row: payload.Row, Col: payload.Col}
	if !move.IsValid() {
		writeError(w, http.StatusBadRequest, errors.Wrapf(ErrOutOfBounds, "move %s", move))
		return
	}
	forbidden, reason := Rules{banHand: true}.ForbiddenReason(&board, move)
	writeJSON(w, http.StatusOK, forbiddenResponse{Forbidden: forbidden, Reason: reason})
}

func (s *server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var payload analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, errors.Wrap(err, "invalid payload"))
		return
	}
	board, err := BoardFromGrid(payload.Board)
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	rules := NewRules(GameSettings{BanHand: s.config.Get().BanHand})
	resp := analyzeResponse{Winner: cellToInt(boardWinner(&board, rules))}
	if resp.Winner == 0 {
		if m, ok := findForcedWin(&board, PlayerBlack, rules); ok {
			resp.BlackForcedWin = true
			resp.BlackWinMove = &m
		}
		if m, ok := findForcedWin(&board, PlayerWhite, rules); ok {
			resp.WhiteForcedWin = true
			resp.WhiteWinMove = &m
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *server) handleRecordText(w http.ResponseWriter, r *http.Request) {
	rec := s.controller.Record()
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := rec.WriteTo(w); err != nil {
		log.Error().Err(err).Msg("write record response")
	}
}

func (s *server) handleRecordSave(w http.ResponseWriter, r *http.Request) {
	rec := s.controller.Record()
	if err := SaveRecordFile(s.recordPath, rec); err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	snapshot := s.controller.Snapshot()
	if s.archive != nil {
		if err := s.archive.Save(r.Context(), snapshot); err != nil {
			writeError(w, statusForError(err), err)
			return
		}
	}
	log.Info().Str("path", s.recordPath).Str("game", snapshot.ID).Int("moves", len(rec.Moves)).Msg("record saved")
	writeJSON(w, http.StatusOK, map[string]any{"path": s.recordPath, "id": snapshot.ID, "moves": len(rec.Moves)})
}

// handleRecordLoad reads a record from the body, or from the record file
// when the body is empty.
func (s *server) handleRecordLoad(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRecordBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.Wrap(err, "read body"))
		return
	}
	var rec Record
	if len(body) == 0 {
		rec, err = LoadRecordFile(s.recordPath)
	} else {
		rec, err = ParseRecord(bytes.NewReader(body))
	}
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	if err := s.controller.LoadRecord(rec); err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	status := controllerStatus(s.controller)
	s.hub.PublishReset(status)
	writeJSON(w, http.StatusOK, status)
}

func (s *server) handleRecordReview(w http.ResponseWriter, r *http.Request) {
	step, err := strconv.Atoi(r.URL.Query().Get("step"))
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.Wrapf(ErrReplayRange, "step %q", r.URL.Query().Get("step")))
		return
	}
	if err := s.controller.Review(step); err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	status := controllerStatus(s.controller)
	s.hub.PublishStatus(status)
	writeJSON(w, http.StatusOK, status)
}

func (s *server) handleRecordResume(w http.ResponseWriter, r *http.Request) {
	if err := s.controller.Resume(); err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	status := controllerStatus(s.controller)
	s.hub.PublishReset(status)
	writeJSON(w, http.StatusOK, status)
}

func (s *server) handleListGames(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("archive disabled"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	games, err := s.archive.List(r.Context(), limit)
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, games)
}

func (s *server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("archive disabled"))
		return
	}
	game, err := s.archive.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, game)
}

// archiveFinished runs under the controller lock, so the write happens on
// its own goroutine.
func (s *server) archiveFinished(game ArchivedGame) {
	if s.archive == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.archive.Save(ctx, game); err != nil {
			log.Error().Err(err).Str("game", game.ID).Msg("archive finished game")
		}
	}()
}

func (s *server) publishLatest() {
	if entry, ok := s.controller.LatestHistoryEntry(); ok {
		s.hub.PublishHistory(historyPayload{History: []historyEntryDTO{historyEntryToDTO(entry)}})
	}
	s.hub.PublishStatus(controllerStatus(s.controller))
}

// tickLoop drives engine players until ctx is done.
func (s *server) tickLoop(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if s.controller.Tick() {
				s.publishLatest()
			}
		}
	}
}

func serveWS(hub *Hub, controller *GameController, w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	client := &Client{hub: hub, send: make(chan []byte, 16)}
	hub.Register(client)
	client.sendJSON(wsMessage{Type: "status", Payload: mustMarshal(controllerStatus(controller))})

	go func() {
		if err := client.writePump(conn); err != nil {
			log.Debug().Err(err).Msg("websocket writer closed")
		}
	}()

	conn.SetReadLimit(wsMaxMessage)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			hub.Unregister(client)
			return
		}
		var msg wsMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}
		switch msg.Type {
		case "request_status":
			client.sendJSON(wsMessage{Type: "status", Payload: mustMarshal(controllerStatus(controller))})
		case "move":
			var move Move
			if err := json.Unmarshal(msg.Payload, &move); err != nil {
				continue
			}
			if !controller.OnCellClicked(move.Row, move.Col) {
				client.sendJSON(wsMessage{Type: "error", Payload: mustMarshal(map[string]string{"error": ErrNotHumanTurn.Error()})})
			}
		}
	}
}

func controllerStatus(controller *GameController) StatusResponse {
	state := controller.State()
	settings := controller.Settings()
	resp := StatusResponse{
		GameID: controller.GameID(),
		Settings: settingsDTO{
			Mode:       settings.Mode,
			ModeName:   settings.Mode.String(),
			Difficulty: settings.Difficulty,
			BanHand:    settings.BanHand,
		},
		Board:           state.Board.Grid(),
		NextPlayer:      playerToInt(state.ToMove),
		Winner:          winnerFromStatus(state.Status),
		Status:          state.Status.String(),
		History:         historyToDTO(controller.History()),
		WinningLine:     append([]Move{}, state.WinningLine...),
		AiThinking:      controller.AiThinking(),
		Message:         state.LastMessage,
		TurnStartedAtMs: controller.CurrentTurnStartedAtMs(),
	}
	if state.HasLastMove {
		last := state.LastMove
		resp.LastMove = &last
	}
	if step, total, ok := controller.ReviewStep(); ok {
		resp.Review = &reviewDTO{Step: step, Total: total}
	}
	return resp
}

func historyToDTO(history MoveHistory) []historyEntryDTO {
	entries := history.All()
	result := make([]historyEntryDTO, 0, len(entries))
	for _, entry := range entries {
		result = append(result, historyEntryToDTO(entry))
	}
	return result
}

func historyEntryToDTO(entry HistoryEntry) historyEntryDTO {
	return historyEntryDTO{
		Row:       entry.Move.Row,
		Col:       entry.Move.Col,
		Player:    playerToInt(entry.Player),
		ElapsedMs: entry.ElapsedMs,
		IsAi:      entry.IsAi,
		Depth:     entry.Depth,
	}
}

func cellToInt(cell Cell) int {
	return int(cell)
}

// API colors: 1 black, 2 white.
func playerToInt(player PlayerColor) int {
	return int(CellFromPlayer(player))
}

func intToPlayer(value int) (PlayerColor, error) {
	switch value {
	case 1:
		return PlayerBlack, nil
	case 2:
		return PlayerWhite, nil
	default:
		return PlayerBlack, errors.Wrapf(ErrInvalidColor, "player %d", value)
	}
}

func winnerFromStatus(status GameStatus) int {
	switch status {
	case StatusBlackWon:
		return 1
	case StatusWhiteWon:
		return 2
	default:
		return 0
	}
}

func statusForError(err error) int {
	switch errors.Cause(err) {
	case ErrOutOfBounds, ErrOccupied, ErrInvalidColor, ErrColorMismatch, ErrForbidden,
		ErrMalformedRecord, ErrReplayRange, ErrInvalidMode, ErrInvalidDifficulty, ErrInvalidConfig:
		return http.StatusBadRequest
	case ErrGameNotRunning, ErrNotHumanTurn, ErrUndoUnavailable, ErrNotReviewing, ErrNoMove:
		return http.StatusConflict
	case ErrGameNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Int("status", status).Msg("request failed")
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
