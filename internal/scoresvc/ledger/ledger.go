// Package ledger holds the pure derivation functions over a game's
// append-only scoring history. Nothing here touches storage; every view
// (totals, per-player history, leaders) is recomputed from the entries.
package ledger

import "github.com/jthom/scorekeeper/internal/scoresvc/models"

// HistoryFor returns the ordered point deltas belonging to one player.
// An out-of-range index yields an empty history, never an error.
func HistoryFor(history []models.ScoreEntry, playerIndex int) []int {
	deltas := []int{}
	for _, entry := range history {
		if entry.PlayerIndex == playerIndex {
			deltas = append(deltas, entry.Points)
		}
	}
	return deltas
}

// CurrentScoreFor is the running total for one player; 0 when the player
// has no entries.
func CurrentScoreFor(history []models.ScoreEntry, playerIndex int) int {
	total := 0
	for _, entry := range history {
		if entry.PlayerIndex == playerIndex {
			total += entry.Points
		}
	}
	return total
}

// AllCurrentScores returns totals index-aligned with the player list.
// Entries referencing an index outside [0, playerCount) are skipped.
func AllCurrentScores(history []models.ScoreEntry, playerCount int) []int {
	scores := make([]int, playerCount)
	for _, entry := range history {
		if entry.PlayerIndex >= 0 && entry.PlayerIndex < playerCount {
			scores[entry.PlayerIndex] += entry.Points
		}
	}
	return scores
}

// Leaders returns the players currently holding the maximum total, but
// only when that maximum is positive: a game where everyone sits at zero
// has no leader.
func Leaders(players []models.GamePlayer, history []models.ScoreEntry) []models.GamePlayer {
	scores := AllCurrentScores(history, len(players))
	max := 0
	for _, s := range scores {
		if s > max {
			max = s
		}
	}
	if max <= 0 {
		return nil
	}
	var leaders []models.GamePlayer
	for i, p := range players {
		if scores[i] == max {
			leaders = append(leaders, p)
		}
	}
	return leaders
}

// IsTied reports whether more than one player shares the current lead.
func IsTied(players []models.GamePlayer, history []models.ScoreEntry) bool {
	return len(Leaders(players, history)) > 1
}
