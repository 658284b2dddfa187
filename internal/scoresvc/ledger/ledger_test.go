package ledger

import (
	"math/rand"
	"reflect"
	"testing"

	"github.com/jthom/scorekeeper/internal/scoresvc/models"
)

func entries(pairs ...[2]int) []models.ScoreEntry {
	history := make([]models.ScoreEntry, len(pairs))
	for i, p := range pairs {
		history[i] = models.ScoreEntry{PlayerIndex: p[0], Points: p[1]}
	}
	return history
}

func TestHistoryFor(t *testing.T) {
	history := entries([2]int{0, 10}, [2]int{1, 15}, [2]int{0, 5}, [2]int{1, -5})

	got := HistoryFor(history, 0)
	if !reflect.DeepEqual(got, []int{10, 5}) {
		t.Errorf("HistoryFor(0) = %v, want [10 5]", got)
	}
	got = HistoryFor(history, 1)
	if !reflect.DeepEqual(got, []int{15, -5}) {
		t.Errorf("HistoryFor(1) = %v, want [15 -5]", got)
	}
}

func TestHistoryFor_OutOfRange(t *testing.T) {
	history := entries([2]int{0, 10})
	if got := HistoryFor(history, 5); len(got) != 0 {
		t.Errorf("out-of-range index should yield empty history, got %v", got)
	}
	if got := CurrentScoreFor(history, -1); got != 0 {
		t.Errorf("out-of-range index should score 0, got %d", got)
	}
}

func TestCurrentScoreFor_SumInvariant(t *testing.T) {
	history := entries([2]int{0, 10}, [2]int{1, 15}, [2]int{0, 5}, [2]int{1, 20}, [2]int{0, -3})

	want := map[int]int{0: 12, 1: 35}
	for playerIndex, total := range want {
		if got := CurrentScoreFor(history, playerIndex); got != total {
			t.Errorf("CurrentScoreFor(%d) = %d, want %d", playerIndex, got, total)
		}
	}
}

func TestAllCurrentScores_SkipsUnknownIndexes(t *testing.T) {
	history := entries([2]int{0, 10}, [2]int{7, 99}, [2]int{1, 5})
	got := AllCurrentScores(history, 2)
	if !reflect.DeepEqual(got, []int{10, 5}) {
		t.Errorf("AllCurrentScores = %v, want [10 5]", got)
	}
}

// Permuting other players' interleaved entries never changes a player's
// own total.
func TestOrderIndependenceOfTotals(t *testing.T) {
	history := entries(
		[2]int{0, 10}, [2]int{1, 15}, [2]int{2, 7}, [2]int{0, 5},
		[2]int{1, 20}, [2]int{2, -2}, [2]int{0, 1}, [2]int{1, 3},
	)
	want := AllCurrentScores(history, 3)

	rng := rand.New(rand.NewSource(42))
	for trial := 0; trial < 20; trial++ {
		shuffled := append([]models.ScoreEntry(nil), history...)
		rng.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})
		if got := AllCurrentScores(shuffled, 3); !reflect.DeepEqual(got, want) {
			t.Fatalf("totals changed under permutation: got %v, want %v", got, want)
		}
	}
}

func TestLeaders_Tie(t *testing.T) {
	players := []models.GamePlayer{
		{Index: 0, Name: "A"}, {Index: 1, Name: "B"}, {Index: 2, Name: "C"},
	}
	history := entries([2]int{0, 40}, [2]int{1, 23}, [2]int{2, 40})

	leaders := Leaders(players, history)
	if len(leaders) != 2 {
		t.Fatalf("Leaders = %v, want 2 entries", leaders)
	}
	if leaders[0].Index != 0 || leaders[1].Index != 2 {
		t.Errorf("Leaders indexes = %d,%d, want 0,2", leaders[0].Index, leaders[1].Index)
	}
	if !IsTied(players, history) {
		t.Error("IsTied should be true for [40 23 40]")
	}
}

func TestLeaders_NoLeaderAtZero(t *testing.T) {
	players := []models.GamePlayer{{Index: 0, Name: "A"}, {Index: 1, Name: "B"}}

	if got := Leaders(players, nil); len(got) != 0 {
		t.Errorf("empty history should have no leader, got %v", got)
	}
	// offsetting entries leave everyone at zero
	history := entries([2]int{0, 5}, [2]int{0, -5})
	if got := Leaders(players, history); len(got) != 0 {
		t.Errorf("all-zero totals should have no leader, got %v", got)
	}
	if IsTied(players, history) {
		t.Error("IsTied should be false with no leaders")
	}
}

func TestLeaders_SingleLeader(t *testing.T) {
	players := []models.GamePlayer{{Index: 0, Name: "A"}, {Index: 1, Name: "B"}}
	history := entries([2]int{0, 10}, [2]int{1, 5})

	leaders := Leaders(players, history)
	if len(leaders) != 1 || leaders[0].Index != 0 {
		t.Fatalf("Leaders = %v, want only player 0", leaders)
	}
	if IsTied(players, history) {
		t.Error("IsTied should be false for a single leader")
	}
}
