package models

import (
	"encoding/json"
	"testing"
	"time"
)

func validGame() *StoredGame {
	now := time.Now()
	return &StoredGame{
		ID:   "g1",
		Name: "Friday Night",
		Players: []GamePlayer{
			{Index: 0, Name: "Alice"},
			{Index: 1, Name: "Bob"},
		},
		ScoringHistory: []ScoreEntry{},
		Status:         StatusActive,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func TestScoreEntry_JSONTupleShape(t *testing.T) {
	data, err := json.Marshal(ScoreEntry{PlayerIndex: 1, Points: -5})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != "[1,-5]" {
		t.Errorf("marshaled entry = %s, want [1,-5]", data)
	}

	var entry ScoreEntry
	if err := json.Unmarshal([]byte("[0,10]"), &entry); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if entry.PlayerIndex != 0 || entry.Points != 10 {
		t.Errorf("unmarshaled entry = %+v, want {0 10}", entry)
	}

	if err := json.Unmarshal([]byte(`{"playerIndex":0}`), &entry); err == nil {
		t.Error("object-shaped entry should be rejected")
	}
}

func TestValidate(t *testing.T) {
	if err := validGame().Validate(); err != nil {
		t.Errorf("valid game rejected: %v", err)
	}

	g := validGame()
	g.Name = "   "
	if err := g.Validate(); err == nil {
		t.Error("blank name should be rejected")
	}

	g = validGame()
	g.Players = g.Players[:1]
	if err := g.Validate(); err == nil {
		t.Error("single player should be rejected")
	}

	g = validGame()
	target := -10
	g.TargetScore = &target
	if err := g.Validate(); err == nil {
		t.Error("non-positive target score should be rejected")
	}

	g = validGame()
	limit := 0
	g.TimeLimit = &limit
	if err := g.Validate(); err == nil {
		t.Error("non-positive time limit should be rejected")
	}

	g = validGame()
	g.TimerBehavior = "sudden-death"
	if err := g.Validate(); err == nil {
		t.Error("unknown timer behavior should be rejected")
	}

	g = validGame()
	g.ScoringHistory = []ScoreEntry{{PlayerIndex: 9, Points: 1}}
	if err := g.Validate(); err == nil {
		t.Error("ledger entry referencing unknown player should be rejected")
	}
}

func TestCanPlayerScore(t *testing.T) {
	g := validGame()
	if !g.CanPlayerScore(0) || !g.CanPlayerScore(1) {
		t.Error("any player may score without turn tracking")
	}
	if g.CanPlayerScore(2) || g.CanPlayerScore(-1) {
		t.Error("out-of-range index may not score")
	}

	g.Status = StatusCompleted
	if g.CanPlayerScore(0) {
		t.Error("completed game may not accept scores")
	}

	g = validGame()
	current := 1
	g.TurnTrackingEnabled = true
	g.CurrentPlayerIndex = &current
	if g.CanPlayerScore(0) {
		t.Error("only the current player may score with turn tracking")
	}
	if !g.CanPlayerScore(1) {
		t.Error("current player should be allowed to score")
	}
}

func TestNextPlayerIndex(t *testing.T) {
	g := validGame()
	g.Players = append(g.Players, GamePlayer{Index: 2, Name: "Carol"})

	next, wrapped := g.NextPlayerIndex(0)
	if next != 1 || wrapped {
		t.Errorf("NextPlayerIndex(0) = %d,%v, want 1,false", next, wrapped)
	}
	next, wrapped = g.NextPlayerIndex(2)
	if next != 0 || !wrapped {
		t.Errorf("NextPlayerIndex(2) = %d,%v, want 0,true", next, wrapped)
	}
}
