package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"lukechampine.com/frand"
)

const (
	boardSize = 15
	winLength = 5

	cellEmpty = 0
	cellBlack = 1
	cellWhite = 2

	startElo = 1500.0
)

var difficultyNames = []string{"easy", "normal", "hard"}

var errNoMove = errors.New("backend has no move")

type arenaBoard [boardSize][boardSize]int

type point struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

type computeRequest struct {
	Board      [][]int `json:"board"`
	ToMove     int     `json:"to_move"`
	Difficulty int     `json:"difficulty"`
}

type computeResponse struct {
	Row    int    `json:"row"`
	Col    int    `json:"col"`
	Depth  int    `json:"depth"`
	Reason string `json:"reason"`
}

type forbiddenRequest struct {
	Board [][]int `json:"board"`
	Row   int     `json:"row"`
	Col   int     `json:"col"`
}

type forbiddenResponse struct {
	Forbidden bool   `json:"forbidden"`
	Reason    string `json:"reason"`
}

type gameResult struct {
	Index   int
	Black   int
	White   int
	Winner  int
	Moves   int
	Opening []point
	Elapsed time.Duration
}

type contender struct {
	Difficulty int
	Elo        float64
	Wins       int
	Losses     int
	Draws      int
}

type arena struct {
	client      *http.Client
	baseURL     string
	banHand     bool
	plies       int
	gameTimeout time.Duration
	intn        func(n int) int

	mu         sync.Mutex
	contenders map[int]*contender
	eloK       float64
}

func main() {
	var (
		baseURL  = flag.String("url", getenv("ARENA_URL", "http://localhost:8080"), "backend base URL")
		games    = flag.Int("games", getenvInt("ARENA_GAMES", 10), "number of games")
		parallel = flag.Int("parallel", getenvInt("ARENA_PARALLEL", 2), "games played at once")
		black    = flag.String("black", "normal", "difficulty of the first contender")
		white    = flag.String("white", "easy", "difficulty of the second contender")
		openings = flag.Int("openings", getenvInt("ARENA_OPENING_PLIES", 2), "random opening plies per game")
		banHand  = flag.Bool("ban", true, "apply ban-hand rules to black")
		timeout  = flag.Duration("timeout", 10*time.Minute, "per-game timeout")
		pretty   = flag.Bool("pretty", true, "human readable logs")
	)
	flag.Parse()

	zerolog.TimeFieldFormat = time.RFC3339
	if *pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	}

	first, err := parseDifficulty(*black)
	if err != nil {
		log.Fatal().Err(err).Msg("bad -black")
	}
	second, err := parseDifficulty(*white)
	if err != nil {
		log.Fatal().Err(err).Msg("bad -white")
	}

	a := newArena(*baseURL, *banHand, *openings, *timeout)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.waitBackendReady(ctx); err != nil {
		log.Fatal().Err(err).Str("url", *baseURL).Msg("backend not reachable")
	}
	results, err := a.run(ctx, first, second, *games, *parallel)
	if err != nil {
		log.Error().Err(err).Int("finished", len(results)).Msg("arena stopped early")
	}
	fmt.Print(formatSummary(results, a.standings()))
}

func newArena(baseURL string, banHand bool, plies int, gameTimeout time.Duration) *arena {
	return &arena{
		client:      &http.Client{Timeout: 60 * time.Second},
		baseURL:     strings.TrimRight(baseURL, "/"),
		banHand:     banHand,
		plies:       plies,
		gameTimeout: gameTimeout,
		intn:        frand.Intn,
		contenders:  make(map[int]*contender),
		eloK:        20,
	}
}

// run plays games alternating colors between the two difficulties, at most
// parallel at a time. Finished results are returned even on error.
func (a *arena) run(ctx context.Context, first, second, games, parallel int) ([]gameResult, error) {
	a.contender(first)
	a.contender(second)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxInt(parallel, 1))

	var resultsMu sync.Mutex
	results := make([]gameResult, 0, games)
	for i := 0; i < games; i++ {
		black, white := first, second
		if i%2 == 1 {
			black, white = second, first
		}
		index := i
		g.Go(func() error {
			result, err := a.playGame(gctx, index, black, white)
			if err != nil {
				return errors.Wrapf(err, "game %d", index)
			}
			a.record(result)
			log.Info().
				Int("game", index).
				Str("black", difficultyName(black)).
				Str("white", difficultyName(white)).
				Str("winner", winnerName(result.Winner)).
				Int("moves", result.Moves).
				Dur("elapsed", result.Elapsed).
				Msg("game finished")
			resultsMu.Lock()
			results = append(results, result)
			resultsMu.Unlock()
			return nil
		})
	}
	err := g.Wait()
	sort.Slice(results, func(i, j int) bool { return results[i].Index < results[j].Index })
	return results, err
}

// playGame seeds a random opening and then alternates /api/compute calls
// until one side makes five or the board fills.
func (a *arena) playGame(ctx context.Context, index, black, white int) (gameResult, error) {
	start := time.Now()
	if a.gameTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.gameTimeout)
		defer cancel()
	}
	result := gameResult{Index: index, Black: black, White: white}

	var board arenaBoard
	opening, err := a.buildOpening(ctx, &board)
	if err != nil {
		return result, err
	}
	result.Opening = opening
	result.Moves = len(opening)
	toMove := cellBlack
	if len(opening)%2 == 1 {
		toMove = cellWhite
	}

	for result.Moves < boardSize*boardSize {
		difficulty := black
		if toMove == cellWhite {
			difficulty = white
		}
		move, err := a.compute(ctx, &board, toMove, difficulty)
		if errors.Is(err, errNoMove) {
			break
		}
		if err != nil {
			return result, err
		}
		if board[move.Row][move.Col] != cellEmpty {
			return result, errors.Errorf("backend played occupied cell %d,%d", move.Row, move.Col)
		}
		board[move.Row][move.Col] = toMove
		result.Moves++
		if isWinningMove(&board, move, toMove, a.banHand) {
			result.Winner = toMove
			break
		}
		toMove = otherColor(toMove)
	}
	result.Elapsed = time.Since(start)
	return result, nil
}

// buildOpening places a.plies random stones around the centre, black
// first, skipping cells the backend reports as forbidden for black.
func (a *arena) buildOpening(ctx context.Context, board *arenaBoard) ([]point, error) {
	opening := make([]point, 0, a.plies)
	color := cellBlack
	for attempts := 0; len(opening) < a.plies && attempts < 100*maxInt(a.plies, 1); attempts++ {
		p := randomOpeningPoint(a.intn, len(opening))
		if board[p.Row][p.Col] != cellEmpty {
			continue
		}
		if color == cellBlack && a.banHand {
			forbidden, err := a.forbidden(ctx, board, p)
			if err != nil {
				return opening, err
			}
			if forbidden {
				continue
			}
		}
		board[p.Row][p.Col] = color
		opening = append(opening, p)
		color = otherColor(color)
	}
	return opening, nil
}

// randomOpeningPoint picks a cell whose distance from the centre grows
// slowly with the ply.
func randomOpeningPoint(intn func(int) int, ply int) point {
	radius := minInt(1+ply/2, 3)
	span := 2*radius + 1
	center := boardSize / 2
	return point{
		Row: center - radius + intn(span),
		Col: center - radius + intn(span),
	}
}

func (a *arena) compute(ctx context.Context, board *arenaBoard, toMove, difficulty int) (point, error) {
	var resp computeResponse
	req := computeRequest{Board: board.grid(), ToMove: toMove, Difficulty: difficulty}
	status, err := a.postJSON(ctx, "/api/compute", req, &resp)
	if status == http.StatusConflict {
		return point{}, errNoMove
	}
	if err != nil {
		return point{}, err
	}
	if !inBounds(resp.Row, resp.Col) {
		return point{}, errors.Errorf("backend move %d,%d off the board", resp.Row, resp.Col)
	}
	return point{Row: resp.Row, Col: resp.Col}, nil
}

func (a *arena) forbidden(ctx context.Context, board *arenaBoard, p point) (bool, error) {
	var resp forbiddenResponse
	if _, err := a.postJSON(ctx, "/api/forbidden", forbiddenRequest{Board: board.grid(), Row: p.Row, Col: p.Col}, &resp); err != nil {
		return false, err
	}
	return resp.Forbidden, nil
}

func (a *arena) contender(difficulty int) *contender {
	c, ok := a.contenders[difficulty]
	if !ok {
		c = &contender{Difficulty: difficulty, Elo: startElo}
		a.contenders[difficulty] = c
	}
	return c
}

func (a *arena) record(result gameResult) {
	a.mu.Lock()
	defer a.mu.Unlock()
	black := a.contender(result.Black)
	white := a.contender(result.White)
	if black == white {
		black.Draws++
		return
	}
	score := 0.5
	switch result.Winner {
	case cellBlack:
		score = 1
		black.Wins++
		white.Losses++
	case cellWhite:
		score = 0
		white.Wins++
		black.Losses++
	default:
		black.Draws++
		white.Draws++
	}
	updateElo(black, white, score, a.eloK)
}

func (a *arena) standings() []contender {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]contender, 0, len(a.contenders))
	for _, c := range a.contenders {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Elo != out[j].Elo {
			return out[i].Elo > out[j].Elo
		}
		return out[i].Difficulty < out[j].Difficulty
	})
	return out
}

func updateElo(a *contender, b *contender, resultForA float64, k float64) {
	expA := 1.0 / (1.0 + math.Pow(10, (b.Elo-a.Elo)/400.0))
	expB := 1.0 / (1.0 + math.Pow(10, (a.Elo-b.Elo)/400.0))
	a.Elo += k * (resultForA - expA)
	b.Elo += k * ((1.0 - resultForA) - expB)
}

// formatSummary tallies results per color pairing, then lists standings.
func formatSummary(results []gameResult, standings []contender) string {
	type pairing struct{ black, white int }
	type tally struct{ blackWins, whiteWins, draws, moves int }
	tallies := make(map[pairing]*tally)
	var order []pairing
	for _, r := range results {
		key := pairing{r.Black, r.White}
		t, ok := tallies[key]
		if !ok {
			t = &tally{}
			tallies[key] = t
			order = append(order, key)
		}
		t.moves += r.Moves
		switch r.Winner {
		case cellBlack:
			t.blackWins++
		case cellWhite:
			t.whiteWins++
		default:
			t.draws++
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d games\n", len(results))
	for _, key := range order {
		t := tallies[key]
		games := t.blackWins + t.whiteWins + t.draws
		fmt.Fprintf(&sb, "black %-6s vs white %-6s  games %3d  black %5.1f%%  white %5.1f%%  draw %5.1f%%  avg moves %.1f\n",
			difficultyName(key.black), difficultyName(key.white), games,
			percent(t.blackWins, games), percent(t.whiteWins, games), percent(t.draws, games),
			float64(t.moves)/float64(games))
	}
	for _, c := range standings {
		fmt.Fprintf(&sb, "%-6s elo %7.1f  W %d  L %d  D %d\n", difficultyName(c.Difficulty), c.Elo, c.Wins, c.Losses, c.Draws)
	}
	return sb.String()
}

func percent(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return 100 * float64(part) / float64(total)
}

// isWinningMove checks the run through p. With ban-hand black needs exactly
// five; white and unrestricted black need five or more.
func isWinningMove(board *arenaBoard, p point, color int, banHand bool) bool {
	exact := banHand && color == cellBlack
	for _, d := range [4][2]int{{0, 1}, {1, 0}, {1, 1}, {-1, 1}} {
		run := 1
		for _, sign := range [2]int{1, -1} {
			r, c := p.Row+sign*d[0], p.Col+sign*d[1]
			for inBounds(r, c) && board[r][c] == color {
				run++
				r += sign * d[0]
				c += sign * d[1]
			}
		}
		if run == winLength || (!exact && run > winLength) {
			return true
		}
	}
	return false
}

func (b *arenaBoard) grid() [][]int {
	grid := make([][]int, boardSize)
	for row := range grid {
		grid[row] = append([]int(nil), b[row][:]...)
	}
	return grid
}

func inBounds(row, col int) bool {
	return row >= 0 && col >= 0 && row < boardSize && col < boardSize
}

func otherColor(color int) int {
	if color == cellBlack {
		return cellWhite
	}
	return cellBlack
}

func parseDifficulty(name string) (int, error) {
	for i, candidate := range difficultyNames {
		if strings.EqualFold(name, candidate) {
			return i, nil
		}
	}
	if value, err := strconv.Atoi(name); err == nil && value >= 0 && value < len(difficultyNames) {
		return value, nil
	}
	return 0, errors.Errorf("unknown difficulty %q", name)
}

func difficultyName(d int) string {
	if d >= 0 && d < len(difficultyNames) {
		return difficultyNames[d]
	}
	return strconv.Itoa(d)
}

func winnerName(winner int) string {
	switch winner {
	case cellBlack:
		return "black"
	case cellWhite:
		return "white"
	default:
		return "draw"
	}
}

func (a *arena) waitBackendReady(ctx context.Context) error {
	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		if err := a.ping(ctx); err == nil {
			return nil
		}
		if !sleepWithContext(ctx, time.Second) {
			return ctx.Err()
		}
	}
	return errors.New("timeout after 60s")
}

func (a *arena) ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/api/ping", nil)
	if err != nil {
		return errors.WithStack(err)
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "ping")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("ping status %d", resp.StatusCode)
	}
	return nil
}

// postJSON returns the response status alongside any error so callers can
// tell a refused request from a transport failure.
func (a *arena) postJSON(ctx context.Context, path string, payload any, out any) (int, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, errors.Wrapf(err, "encode %s", path)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return 0, errors.WithStack(err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := a.client.Do(req)
	if err != nil {
		return 0, errors.Wrapf(err, "POST %s", path)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return resp.StatusCode, errors.Errorf("POST %s -> %d: %s", path, resp.StatusCode, strings.TrimSpace(string(respBody)))
	}
	if out == nil {
		return resp.StatusCode, nil
	}
	return resp.StatusCode, errors.Wrapf(json.NewDecoder(resp.Body).Decode(out), "decode %s", path)
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func getenv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
