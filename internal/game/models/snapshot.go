package models

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

// GameState is the outer session state
type GameState string

const (
	GameStateWaiting  GameState = "waiting"
	GameStatePlaying  GameState = "playing"
	GameStatePaused   GameState = "paused"
	GameStateFinished GameState = "finished"
)

// TurnPhase is the step of the current player's turn
type TurnPhase string

const (
	PhaseAwaitingRoll   TurnPhase = "awaiting_roll"
	PhaseMoving         TurnPhase = "moving"
	PhaseLanded         TurnPhase = "landed"
	PhaseAwaitingAction TurnPhase = "awaiting_action"
	PhaseTurnComplete   TurnPhase = "turn_complete"
)

// Snapshot is the persisted form of an engine. Command history is not part of
// it; only the resulting state and the history descriptions are kept.
type Snapshot struct {
	GameID       string     `bson:"gameId" json:"gameId"`
	Name         string     `bson:"name" json:"name"`
	Mode         string     `bson:"mode" json:"mode"`
	AutoSave     bool       `bson:"autoSave" json:"autoSave"`
	Config       GameConfig `bson:"config" json:"config"`
	Players      []Player   `bson:"players" json:"players"`
	Cells        []Cell     `bson:"cells" json:"cells"`
	State        GameState  `bson:"state" json:"state"`
	Phase        TurnPhase  `bson:"phase" json:"phase"`
	CurrentIndex int        `bson:"currentIndex" json:"currentIndex"`
	Round        int        `bson:"round" json:"round"`
	TurnCount    int        `bson:"turnCount" json:"turnCount"`
	ExtraTurn    bool       `bson:"extraTurn" json:"extraTurn"`
	FreeMove     bool       `bson:"freeMove" json:"freeMove"`
	LastRoll     []int      `bson:"lastRoll,omitempty" json:"lastRoll,omitempty"`
	History      []string   `bson:"history" json:"history"`
	SavedAt      time.Time  `bson:"savedAt" json:"savedAt"`
	Checksum     string     `bson:"checksum" json:"checksum"`
}

// ComputeChecksum hashes the game-relevant part of the snapshot
func (s *Snapshot) ComputeChecksum() string {
	payload := struct {
		Players      []Player   `json:"players"`
		Cells        []Cell     `json:"cells"`
		Config       GameConfig `json:"config"`
		State        GameState  `json:"state"`
		Phase        TurnPhase  `json:"phase"`
		CurrentIndex int        `json:"currentIndex"`
		Round        int        `json:"round"`
	}{s.Players, s.Cells, s.Config, s.State, s.Phase, s.CurrentIndex, s.Round}

	data, err := json.Marshal(payload)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Seal stamps the snapshot with the current checksum
func (s *Snapshot) Seal() {
	s.Checksum = s.ComputeChecksum()
}

// Verify reports whether the stored checksum matches the content
func (s *Snapshot) Verify() bool {
	return s.Checksum != "" && s.Checksum == s.ComputeChecksum()
}

// SaveInfo describes a stored snapshot without its payload
type SaveInfo struct {
	GameID   string    `bson:"gameId" json:"gameId"`
	Name     string    `bson:"name" json:"name"`
	AutoSave bool      `bson:"autoSave" json:"autoSave"`
	Round    int       `bson:"round" json:"round"`
	SavedAt  time.Time `bson:"savedAt" json:"savedAt"`
}

// Info returns the listing entry for the snapshot
func (s *Snapshot) Info() SaveInfo {
	return SaveInfo{
		GameID:   s.GameID,
		Name:     s.Name,
		AutoSave: s.AutoSave,
		Round:    s.Round,
		SavedAt:  s.SavedAt,
	}
}
