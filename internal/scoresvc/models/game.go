package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

type GameStatus string

const (
	StatusActive    GameStatus = "active"
	StatusPaused    GameStatus = "paused"
	StatusCompleted GameStatus = "completed"
)

// TimerBehavior decides the outcome of a timed game whose target score
// was not reached when the countdown hit zero.
type TimerBehavior string

const (
	TimerNoWinner     TimerBehavior = "no-winner"
	TimerHighestScore TimerBehavior = "highest-score"
)

type GamePlayer struct {
	Index int    `json:"index"` // stable, 0-based, assigned at creation
	Name  string `json:"name"`
}

// StoredGame is the persisted aggregate for one game session. It is only
// ever mutated through the GameStorageService; any copy handed out by the
// service is a read snapshot.
type StoredGame struct {
	ID             string       `json:"id"`
	Timecode       string       `json:"timecode"` // display/debug only, never a lookup key
	Name           string       `json:"name"`
	Players        []GamePlayer `json:"players"`
	TargetScore    *int         `json:"targetScore"`
	ScoringHistory []ScoreEntry `json:"scoringHistory"`

	TimeLimit     *int          `json:"timeLimit,omitempty"`     // seconds
	TimeRemaining *int          `json:"timeRemaining,omitempty"` // seconds, diverges from TimeLimit once play starts
	LastActiveAt  *time.Time    `json:"lastActiveAt,omitempty"`
	TimerBehavior TimerBehavior `json:"timerBehavior,omitempty"`

	TurnTrackingEnabled bool `json:"turnTrackingEnabled,omitempty"`
	CurrentPlayerIndex  *int `json:"currentPlayerIndex,omitempty"` // 0-based
	CurrentTurnNumber   *int `json:"currentTurnNumber,omitempty"`  // 1-based

	QuickScoreValues []int `json:"quickScoreValues,omitempty"`
	HideHistory      bool  `json:"hideHistory,omitempty"`

	Status    GameStatus `json:"status"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// GameSummary is the lightweight listing entry for the games overview.
type GameSummary struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	PlayerCount   int        `json:"playerCount"`
	Status        GameStatus `json:"status"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
	CurrentScores []int      `json:"currentScores"`
}

// GamePatch carries the editable fields for UpdateGame. Nil fields are
// left untouched. Players and TimeLimit are structural and rejected once
// scoring has started; player renames go through Players as well but only
// name changes are allowed at that point.
type GamePatch struct {
	Name             *string
	TargetScore      *int
	Players          []GamePlayer
	TimeLimit        *int
	TimerBehavior    *TimerBehavior
	QuickScoreValues []int
	HideHistory      *bool
}

// Validate checks the structural invariants enforced at the create/edit
// boundary.
func (g *StoredGame) Validate() error {
	if strings.TrimSpace(g.Name) == "" {
		return fmt.Errorf("game name is required")
	}
	if len(g.Players) < 2 {
		return fmt.Errorf("at least 2 players are required, got %d", len(g.Players))
	}
	if g.TargetScore != nil && *g.TargetScore <= 0 {
		return fmt.Errorf("target score must be positive")
	}
	if g.TimeLimit != nil && *g.TimeLimit <= 0 {
		return fmt.Errorf("time limit must be positive")
	}
	if g.TimerBehavior != "" && g.TimerBehavior != TimerNoWinner && g.TimerBehavior != TimerHighestScore {
		return fmt.Errorf("invalid timer behavior: %s", g.TimerBehavior)
	}
	switch g.Status {
	case StatusActive, StatusPaused, StatusCompleted:
	default:
		return fmt.Errorf("invalid status: %s", g.Status)
	}
	for _, entry := range g.ScoringHistory {
		if entry.PlayerIndex < 0 || entry.PlayerIndex >= len(g.Players) {
			return fmt.Errorf("scoring entry references unknown player index %d", entry.PlayerIndex)
		}
	}
	return nil
}

// HasStarted reports whether any scoring has occurred. Structural edits
// (player add/remove, time limit change) are locked once this is true.
func (g *StoredGame) HasStarted() bool {
	return len(g.ScoringHistory) > 0
}

func (g *StoredGame) IsActive() bool {
	return g.Status == StatusActive
}

// HasTurnTracking reports whether the turn-order extension is on and its
// state fields are populated.
func (g *StoredGame) HasTurnTracking() bool {
	return g.TurnTrackingEnabled && g.CurrentPlayerIndex != nil
}

// CanPlayerScore reports whether the given player may record a score right
// now. Completed games accept no scores; with turn tracking on, only the
// current player may score.
func (g *StoredGame) CanPlayerScore(playerIndex int) bool {
	if g.Status != StatusActive {
		return false
	}
	if playerIndex < 0 || playerIndex >= len(g.Players) {
		return false
	}
	if g.HasTurnTracking() {
		return playerIndex == *g.CurrentPlayerIndex
	}
	return true
}

// NextPlayerIndex returns the player after current in round-robin order,
// and whether the rotation wrapped back to player 0.
func (g *StoredGame) NextPlayerIndex(current int) (next int, wrapped bool) {
	next = current + 1
	if next >= len(g.Players) {
		return 0, true
	}
	return next, false
}

// ScoreEntry is one append-only ledger entry: which player, how many
// points (possibly negative). Corrections are appended, never edited.
type ScoreEntry struct {
	PlayerIndex int
	Points      int
}

// MarshalJSON keeps the stored wire shape a two-element array
// [playerIndex, points].
func (e ScoreEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{e.PlayerIndex, e.Points})
}

func (e *ScoreEntry) UnmarshalJSON(data []byte) error {
	var pair [2]int
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("score entry must be a [playerIndex, points] pair: %w", err)
	}
	e.PlayerIndex = pair[0]
	e.Points = pair[1]
	return nil
}
