package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type apiFixture struct {
	srv     *server
	handler http.Handler
}

func newAPIFixture(t *testing.T, archive *GameArchive) *apiFixture {
	t.Helper()
	cfg := DefaultConfig()
	fastProfiles(&cfg)
	store := &ConfigStore{config: cfg}
	controller := NewGameController(NewGameSettings(ModeDouble, DifficultyEasy, cfg.BanHand))
	srv := newServer(controller, NewHub(), archive, store, filepath.Join(t.TempDir(), "record.txt"))
	return &apiFixture{srv: srv, handler: srv.routes()}
}

func (f *apiFixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func gridWith(black, white []Move) [][]int {
	board := NewBoard()
	for _, m := range black {
		board.set(m, PlayerBlack)
	}
	for _, m := range white {
		board.set(m, PlayerWhite)
	}
	return board.Grid()
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return string(data)
}

func TestAPIPing(t *testing.T) {
	f := newAPIFixture(t, nil)
	rec := f.do(t, http.MethodGet, "/api/ping", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"ok":true}`, rec.Body.String())
}

func TestAPIGameFlow(t *testing.T) {
	f := newAPIFixture(t, nil)

	rec := f.do(t, http.MethodPost, "/api/start", `{"mode":2,"difficulty":0,"ban_hand":false}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	status := decodeBody[StatusResponse](t, rec)
	require.Equal(t, "running", status.Status)
	require.Equal(t, 1, status.NextPlayer)
	require.False(t, status.Settings.BanHand)
	require.Equal(t, "double", status.Settings.ModeName)

	rec = f.do(t, http.MethodPost, "/api/move", `{"row":7,"col":7}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	status = decodeBody[StatusResponse](t, rec)
	require.Equal(t, 1, status.Board[7][7])
	require.Equal(t, 2, status.NextPlayer)
	require.Equal(t, &Move{Row: 7, Col: 7}, status.LastMove)
	require.Len(t, status.History, 1)

	rec = f.do(t, http.MethodPost, "/api/move", `{"row":7,"col":7}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/move", `{"row":8,"col":8}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/undo", "")
	require.Equal(t, http.StatusOK, rec.Code)
	undo := decodeBody[struct {
		Removed int            `json:"removed"`
		Status  StatusResponse `json:"status"`
	}](t, rec)
	require.Equal(t, 1, undo.Removed)
	require.Equal(t, 2, undo.Status.NextPlayer)
	require.Zero(t, undo.Status.Board[8][8])
}

func TestAPIStartRejectsBadSettings(t *testing.T) {
	f := newAPIFixture(t, nil)
	rec := f.do(t, http.MethodPost, "/api/start", `{"mode":7}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	rec = f.do(t, http.MethodPost, "/api/start", `{"mode":2,"difficulty":9}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	rec = f.do(t, http.MethodPost, "/api/start", `not json`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPICompute(t *testing.T) {
	f := newAPIFixture(t, nil)

	body := mustJSON(t, computeRequest{Board: gridWith(nil, nil), ToMove: 1, Difficulty: DifficultyEasy})
	rec := f.do(t, http.MethodPost, "/api/compute", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decodeBody[computeResponse](t, rec)
	require.Equal(t, 7, resp.Row)
	require.Equal(t, 7, resp.Col)
	require.Equal(t, reasonOpening, resp.Reason)

	body = mustJSON(t, computeRequest{
		Board:  gridWith([]Move{mv(0, 0)}, []Move{mv(7, 3), mv(7, 4), mv(7, 5), mv(7, 6)}),
		ToMove: 2,
	})
	rec = f.do(t, http.MethodPost, "/api/compute", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp = decodeBody[computeResponse](t, rec)
	require.Equal(t, reasonWin, resp.Reason)
	require.Contains(t, []Move{mv(7, 2), mv(7, 7)}, mv(resp.Row, resp.Col))

	body = mustJSON(t, computeRequest{Board: gridWith(nil, nil), ToMove: 3})
	rec = f.do(t, http.MethodPost, "/api/compute", body)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/compute", `{"board":[[1,2]],"to_move":1}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPIForbidden(t *testing.T) {
	f := newAPIFixture(t, nil)
	grid := gridWith([]Move{mv(7, 6), mv(7, 7), mv(5, 8), mv(6, 8)}, nil)

	rec := f.do(t, http.MethodPost, "/api/forbidden", mustJSON(t, forbiddenRequest{Board: grid, Row: 7, Col: 8}))
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[forbiddenResponse](t, rec)
	require.True(t, resp.Forbidden)
	require.Equal(t, reasonDoubleThree, resp.Reason)

	rec = f.do(t, http.MethodPost, "/api/forbidden", mustJSON(t, forbiddenRequest{Board: grid, Row: 0, Col: 0}))
	require.Equal(t, http.StatusOK, rec.Code)
	require.False(t, decodeBody[forbiddenResponse](t, rec).Forbidden)

	rec = f.do(t, http.MethodPost, "/api/forbidden", mustJSON(t, forbiddenRequest{Board: grid, Row: 15, Col: 0}))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPIAnalyze(t *testing.T) {
	f := newAPIFixture(t, nil)
	grid := gridWith([]Move{mv(7, 3), mv(7, 4), mv(7, 5), mv(7, 6)}, []Move{mv(0, 0), mv(0, 2)})

	rec := f.do(t, http.MethodPost, "/api/analyze", mustJSON(t, analyzeRequest{Board: grid}))
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[analyzeResponse](t, rec)
	require.Zero(t, resp.Winner)
	require.True(t, resp.BlackForcedWin)
	require.NotNil(t, resp.BlackWinMove)
	require.False(t, resp.WhiteForcedWin)

	grid = gridWith([]Move{mv(7, 3), mv(7, 4), mv(7, 5), mv(7, 6), mv(7, 7)}, nil)
	rec = f.do(t, http.MethodPost, "/api/analyze", mustJSON(t, analyzeRequest{Board: grid}))
	require.Equal(t, 1, decodeBody[analyzeResponse](t, rec).Winner)
}

func TestAPIRecordSaveLoadReview(t *testing.T) {
	f := newAPIFixture(t, nil)
	f.do(t, http.MethodPost, "/api/start", `{"mode":2,"ban_hand":false}`)
	for _, body := range []string{`{"row":7,"col":7}`, `{"row":8,"col":8}`, `{"row":6,"col":6}`} {
		require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/api/move", body).Code)
	}

	rec := f.do(t, http.MethodGet, "/api/record/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "2\n-1\n7\n7\n1\n8\n8\n-1\n6\n6\n", rec.Body.String())

	rec = f.do(t, http.MethodPost, "/api/record/save", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodPost, "/api/record/load", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	status := decodeBody[StatusResponse](t, rec)
	require.Equal(t, "review", status.Status)
	require.Equal(t, &reviewDTO{Step: 3, Total: 3}, status.Review)

	rec = f.do(t, http.MethodGet, "/api/record/review?step=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	status = decodeBody[StatusResponse](t, rec)
	require.Equal(t, 1, status.Board[7][7])
	require.Zero(t, status.Board[8][8])
	require.Equal(t, 2, status.NextPlayer)

	require.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/api/record/review?step=9", "").Code)
	require.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/api/record/review?step=x", "").Code)

	rec = f.do(t, http.MethodPost, "/api/record/resume", "")
	require.Equal(t, http.StatusOK, rec.Code)
	status = decodeBody[StatusResponse](t, rec)
	require.Equal(t, "running", status.Status)
	require.Nil(t, status.Review)
	require.Len(t, status.History, 1)

	require.Equal(t, http.StatusConflict, f.do(t, http.MethodPost, "/api/record/resume", "").Code)

	rec = f.do(t, http.MethodPost, "/api/record/load", "2\n-1\n7\n7\n1\n7\n7\n")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPIConfig(t *testing.T) {
	f := newAPIFixture(t, nil)
	rec := f.do(t, http.MethodPost, "/api/config", `{"tick_ms":0}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/config", `{"ban_hand":false}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.False(t, f.srv.config.Get().BanHand)

	rec = f.do(t, http.MethodGet, "/api/config", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.False(t, decodeBody[Config](t, rec).BanHand)
}

func TestAPIGames(t *testing.T) {
	f := newAPIFixture(t, nil)
	require.Equal(t, http.StatusServiceUnavailable, f.do(t, http.MethodGet, "/api/games", "").Code)

	archive := openTestArchive(t)
	f = newAPIFixture(t, archive)
	game := f.srv.controller.Snapshot()
	require.NoError(t, archive.Save(context.Background(), game))

	rec := f.do(t, http.MethodGet, "/api/games", "")
	require.Equal(t, http.StatusOK, rec.Code)
	games := decodeBody[[]ArchivedGame](t, rec)
	require.Len(t, games, 1)
	require.Equal(t, game.ID, games[0].ID)

	rec = f.do(t, http.MethodGet, "/api/games/"+game.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/api/games/nope", "").Code)
}

func TestStatusForError(t *testing.T) {
	require.Equal(t, http.StatusBadRequest, statusForError(ErrForbidden))
	require.Equal(t, http.StatusConflict, statusForError(ErrNotHumanTurn))
	require.Equal(t, http.StatusNotFound, statusForError(ErrGameNotFound))
	require.Equal(t, http.StatusInternalServerError, statusForError(context.Canceled))
}
