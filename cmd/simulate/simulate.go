package main

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"go.uber.org/zap"

	"github.com/richman/backend/internal/game/board"
	"github.com/richman/backend/internal/game/engine"
	"github.com/richman/backend/internal/game/factory"
	"github.com/richman/backend/internal/game/manager"
	"github.com/richman/backend/internal/game/models"
)

// options controls one headless game
type options struct {
	Players      int
	Difficulties []string
	Mode         string
	MaxRounds    int
	Seed         int64
	Rules        models.GameConfig
	Board        *board.Board
	SaveName     string
	Store        manager.SnapshotStore
}

// result is what a finished simulation reports
type result struct {
	GameID   string
	Rounds   int
	Turns    int
	Finished bool
	Winner   *models.Player
	Players  []models.Player
	Facts    map[string]map[models.FactType]int
}

// tally counts facts per player
type tally struct {
	mu    sync.Mutex
	facts map[string]map[models.FactType]int
}

func (t *tally) Record(f models.Fact) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.facts[f.PlayerID] == nil {
		t.facts[f.PlayerID] = map[models.FactType]int{}
	}
	t.facts[f.PlayerID][f.Type]++
}

// simulate plays automated players against each other until the game ends or
// the round limit is hit
func simulate(ctx context.Context, opts options, logger *zap.SugaredLogger) (*result, error) {
	if opts.Players < 2 {
		return nil, fmt.Errorf("need at least 2 players, got %d", opts.Players)
	}
	if len(opts.Difficulties) == 0 {
		opts.Difficulties = []string{factory.DifficultyMedium}
	}
	for _, d := range opts.Difficulties {
		if !factory.ValidDifficulty(d) {
			return nil, models.Errorf(models.CodeUnknownDifficulty, "unknown difficulty %q", d)
		}
	}

	f, err := factory.ForMode(opts.Mode)
	if err != nil {
		logger.Warnw("Unknown game mode, using standard", "mode", opts.Mode)
	}

	counts := &tally{facts: map[string]map[models.FactType]int{}}
	gameID := uuid.NewString()
	e, err := engine.New(opts.Rules, opts.Board, f,
		engine.WithGameID(gameID),
		engine.WithRand(rand.New(rand.NewSource(opts.Seed))),
		engine.WithStats(counts),
		engine.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	players := make([]*models.Player, opts.Players)
	for i := range players {
		difficulty := opts.Difficulties[i%len(opts.Difficulties)]
		players[i] = models.NewPlayer(uuid.NewString(), fmt.Sprintf("Bot %d", i+1), models.PlayerKindAutomated, difficulty, opts.Rules.InitialCash)
	}
	if err := e.Start(players); err != nil {
		return nil, err
	}

	turns := 0
	for e.State() == models.GameStatePlaying && (opts.MaxRounds <= 0 || e.Round() <= opts.MaxRounds) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if _, err := e.PlayAutomatedTurn(); err != nil {
			return nil, fmt.Errorf("turn %d: %w", turns+1, err)
		}
		turns++
	}

	if opts.Store != nil && opts.SaveName != "" {
		if err := opts.Store.Save(ctx, e.SaveSnapshot(opts.SaveName)); err != nil {
			return nil, fmt.Errorf("save %q: %w", opts.SaveName, err)
		}
		logger.Infow("Simulation saved", "gameId", gameID, "name", opts.SaveName)
	}

	res := &result{
		GameID:   gameID,
		Rounds:   e.Round(),
		Turns:    turns,
		Finished: e.State() == models.GameStateFinished,
		Players:  e.Players(),
		Facts:    counts.facts,
	}
	if w, ok := e.Winner(); ok {
		res.Winner = &w
	}
	return res, nil
}

// standings orders players by solvency then cash
func (r *result) standings() []models.Player {
	out := append([]models.Player(nil), r.Players...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Bankrupt != out[j].Bankrupt {
			return !out[i].Bankrupt
		}
		return out[i].Cash > out[j].Cash
	})
	return out
}

// render writes the standings table
func (r *result) render(w io.Writer) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	status := fmt.Sprintf("stopped after round %d", r.Rounds)
	if r.Finished {
		status = fmt.Sprintf("finished in round %d", r.Rounds)
	}
	t.SetTitle("Game %s, %s, %d turns", r.GameID[:8], status, r.Turns)
	t.Style().Title.Align = text.AlignCenter
	t.AppendHeader(table.Row{"#", "Player", "Difficulty", "Cash", "Properties", "Rent paid", "Rent won", "Jail", "Status"})

	for i, p := range r.standings() {
		state := "playing"
		if p.Bankrupt {
			state = "bankrupt"
		}
		if r.Winner != nil && r.Winner.ID == p.ID {
			state = "winner"
		}
		facts := r.Facts[p.ID]
		t.AppendRow(table.Row{
			i + 1, p.Name, p.Difficulty, p.Cash, len(p.Properties),
			facts[models.FactRentPayment], facts[models.FactRentCollection], facts[models.FactJailVisit], state,
		})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
	})
	t.Render()
}
