// Command simulate plays a game between automated players without a server
// and prints the final standings.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/richman/backend/internal/config"
	"github.com/richman/backend/internal/db/sqlite"
	"github.com/richman/backend/internal/game/board"
)

func main() {
	_ = godotenv.Load()

	var (
		players      int
		difficulties string
		mode         string
		maxRounds    int
		seed         int64
		boardPath    string
		dbPath       string
		saveName     string
		verbose      bool
	)
	flag.IntVar(&players, "players", 4, "number of automated players")
	flag.StringVar(&difficulties, "difficulty", "easy,medium,hard", "comma separated difficulties, assigned round robin")
	flag.StringVar(&mode, "mode", "", "game mode (standard, easy, hard); defaults to session.default_mode")
	flag.IntVar(&maxRounds, "rounds", 200, "stop after this many rounds (0 = until finished)")
	flag.Int64Var(&seed, "seed", 0, "random seed for reproducibility (0 = time based)")
	flag.StringVar(&boardPath, "board", "", "JSON board file (default: built-in board)")
	flag.StringVar(&dbPath, "db", "", "SQLite file to store the final state in")
	flag.StringVar(&saveName, "save", "simulation", "save slot name used with -db")
	flag.BoolVar(&verbose, "v", false, "log every engine event")
	flag.Parse()

	logger := zap.NewNop()
	if verbose {
		logger, _ = zap.NewDevelopment()
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if mode == "" {
		mode = cfg.Session.DefaultMode
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	opts := options{
		Players:      players,
		Difficulties: splitList(difficulties),
		Mode:         mode,
		MaxRounds:    maxRounds,
		Seed:         seed,
		Rules:        cfg.Game,
		SaveName:     saveName,
	}

	if boardPath != "" {
		f, err := os.Open(boardPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		opts.Board, err = board.Load(f)
		f.Close()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	if dbPath != "" {
		store, err := sqlite.Open(dbPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer store.Close()
		opts.Store = store
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	res, err := simulate(ctx, opts, sugar)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	res.render(os.Stdout)
	fmt.Printf("seed %d\n", seed)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
