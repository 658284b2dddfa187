package service

import (
	"fmt"
	"math/rand"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/jthom/scorekeeper/internal/scoresvc/ledger"
	"github.com/jthom/scorekeeper/internal/scoresvc/models"
	"github.com/jthom/scorekeeper/internal/scoresvc/storage"
)

// GameStorageService is the sole mutation authority for StoredGame
// records. Every mutating call writes through to the adapter immediately;
// there is no write-behind caching. Construct one per process and inject
// the adapter.
type GameStorageService struct {
	storage storage.Adapter[models.StoredGame]

	mu sync.Mutex // serializes mutations; reads of single records go through the adapter

	subMu   sync.Mutex
	subs    map[string]map[int]func(*models.StoredGame)
	nextSub int
}

// CreateGameParams carries the create-time configuration. Optional fields
// are nil/zero when unused.
type CreateGameParams struct {
	Name             string
	PlayerNames      []string
	TargetScore      *int
	TimeLimit        *int // seconds
	TimerBehavior    models.TimerBehavior
	TurnTracking     bool
	QuickScoreValues []int
	HideHistory      bool
}

func NewGameStorageService(adapter storage.Adapter[models.StoredGame]) *GameStorageService {
	return &GameStorageService{
		storage: adapter,
		subs:    make(map[string]map[int]func(*models.StoredGame)),
	}
}

// CreateGame validates, builds and persists a new game record.
func (s *GameStorageService) CreateGame(p CreateGameParams) (*models.StoredGame, error) {
	now := time.Now()

	players := make([]models.GamePlayer, len(p.PlayerNames))
	for i, name := range p.PlayerNames {
		players[i] = models.GamePlayer{Index: i, Name: name}
	}

	game := &models.StoredGame{
		ID:               uuid.New().String(),
		Timecode:         newTimecode(now),
		Name:             p.Name,
		Players:          players,
		TargetScore:      p.TargetScore,
		ScoringHistory:   []models.ScoreEntry{},
		TimeLimit:        p.TimeLimit,
		TimerBehavior:    p.TimerBehavior,
		QuickScoreValues: p.QuickScoreValues,
		HideHistory:      p.HideHistory,
		Status:           models.StatusActive,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if p.TimeLimit != nil {
		remaining := *p.TimeLimit
		game.TimeRemaining = &remaining
	}
	if p.TurnTracking {
		first, turn := 0, 1
		game.TurnTrackingEnabled = true
		game.CurrentPlayerIndex = &first
		game.CurrentTurnNumber = &turn
	}

	if err := game.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	ok := s.saveLocked(game)
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("failed to persist game %s", game.ID)
	}
	log.Infof("created game %s (%s) with %d players", game.ID, game.Name, len(game.Players))
	return game, nil
}

// GetStoredGame fetches one record; nil when absent or the stored value is
// corrupt (the adapter reports corruption as absence).
func (s *GameStorageService) GetStoredGame(gameID string) *models.StoredGame {
	game, ok := s.storage.Get(gameID)
	if !ok {
		return nil
	}
	return &game
}

// GetAllStoredGames returns every readable record, most recently touched
// first. Unreadable entries are skipped.
func (s *GameStorageService) GetAllStoredGames() []*models.StoredGame {
	keys := s.storage.Keys()
	games := make([]*models.StoredGame, 0, len(keys))
	for _, id := range keys {
		if game := s.GetStoredGame(id); game != nil {
			games = append(games, game)
		}
	}
	sort.Slice(games, func(i, j int) bool {
		return games[i].UpdatedAt.After(games[j].UpdatedAt)
	})
	return games
}

// GetActiveGame returns the single game considered "the" active one: the
// most recently touched record with active status, or nil when none is.
func (s *GameStorageService) GetActiveGame() *models.StoredGame {
	for _, game := range s.GetAllStoredGames() {
		if game.IsActive() {
			return game
		}
	}
	return nil
}

// GetGameSummaries projects the full records into listing entries with
// current totals.
func (s *GameStorageService) GetGameSummaries() []models.GameSummary {
	games := s.GetAllStoredGames()
	summaries := make([]models.GameSummary, 0, len(games))
	for _, game := range games {
		summaries = append(summaries, models.GameSummary{
			ID:            game.ID,
			Name:          game.Name,
			PlayerCount:   len(game.Players),
			Status:        game.Status,
			CreatedAt:     game.CreatedAt,
			UpdatedAt:     game.UpdatedAt,
			CurrentScores: s.CalculatePlayerScores(game),
		})
	}
	return summaries
}

// SaveGame overwrites the stored record, refreshing updatedAt.
func (s *GameStorageService) SaveGame(game *models.StoredGame) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(game)
}

func (s *GameStorageService) DeleteGame(gameID string) bool {
	s.mu.Lock()
	ok := s.storage.Remove(gameID)
	s.mu.Unlock()
	if ok {
		log.Infof("deleted game %s", gameID)
		s.notify(gameID, nil)
	}
	return ok
}

// AddScore appends one ledger entry. It rejects unknown games, inactive
// games, out-of-range player indexes and out-of-turn scoring; after
// appending it re-evaluates the target-score completion check. A completed
// game never advances the turn pointer.
func (s *GameStorageService) AddScore(gameID string, playerIndex, points int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	game := s.GetStoredGame(gameID)
	if game == nil {
		return false
	}
	if !game.CanPlayerScore(playerIndex) {
		return false
	}

	game.ScoringHistory = append(game.ScoringHistory, models.ScoreEntry{
		PlayerIndex: playerIndex,
		Points:      points,
	})

	if s.targetReached(game) {
		game.Status = models.StatusCompleted
		log.Infof("game %s completed: target score %d reached", game.ID, *game.TargetScore)
	} else if game.HasTurnTracking() {
		next, wrapped := game.NextPlayerIndex(*game.CurrentPlayerIndex)
		game.CurrentPlayerIndex = &next
		if wrapped && game.CurrentTurnNumber != nil {
			turn := *game.CurrentTurnNumber + 1
			game.CurrentTurnNumber = &turn
		}
	}

	return s.saveLocked(game)
}

// UpdateGameStatus applies a status change. Completed is terminal; only
// active and paused may flip between each other, and either may complete.
func (s *GameStorageService) UpdateGameStatus(gameID string, status models.GameStatus) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	game := s.GetStoredGame(gameID)
	if game == nil {
		return false
	}
	switch status {
	case models.StatusActive, models.StatusPaused, models.StatusCompleted:
	default:
		return false
	}
	if game.Status == models.StatusCompleted && status != models.StatusCompleted {
		return false
	}
	game.Status = status
	return s.saveLocked(game)
}

// UpdateGame applies an edit patch. Structural changes (player add/remove,
// time limit) are rejected once scoring has started; renames are always
// allowed.
func (s *GameStorageService) UpdateGame(gameID string, patch models.GamePatch) (*models.StoredGame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	game := s.GetStoredGame(gameID)
	if game == nil {
		return nil, fmt.Errorf("game %s not found", gameID)
	}

	if patch.Players != nil {
		if game.HasStarted() && len(patch.Players) != len(game.Players) {
			return nil, fmt.Errorf("cannot add or remove players after scoring has started")
		}
		if game.HasStarted() {
			// renames only: keep the existing stable indexes
			for i := range game.Players {
				game.Players[i].Name = patch.Players[i].Name
			}
		} else {
			players := make([]models.GamePlayer, len(patch.Players))
			for i, p := range patch.Players {
				players[i] = models.GamePlayer{Index: i, Name: p.Name}
			}
			game.Players = players
		}
	}
	if patch.TimeLimit != nil {
		if game.HasStarted() {
			return nil, fmt.Errorf("cannot change time limit after scoring has started")
		}
		limit := *patch.TimeLimit
		game.TimeLimit = &limit
		remaining := limit
		game.TimeRemaining = &remaining
	}
	if patch.Name != nil {
		game.Name = *patch.Name
	}
	if patch.TargetScore != nil {
		target := *patch.TargetScore
		game.TargetScore = &target
	}
	if patch.TimerBehavior != nil {
		game.TimerBehavior = *patch.TimerBehavior
	}
	if patch.QuickScoreValues != nil {
		game.QuickScoreValues = patch.QuickScoreValues
	}
	if patch.HideHistory != nil {
		game.HideHistory = *patch.HideHistory
	}

	if err := game.Validate(); err != nil {
		return nil, err
	}
	if !s.saveLocked(game) {
		return nil, fmt.Errorf("failed to persist game %s", gameID)
	}
	return game, nil
}

// ResetScores empties the ledger and rewinds turn state. Completed games
// stay completed and cannot be reset.
func (s *GameStorageService) ResetScores(gameID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	game := s.GetStoredGame(gameID)
	if game == nil || game.Status == models.StatusCompleted {
		return false
	}
	game.ScoringHistory = []models.ScoreEntry{}
	if game.TurnTrackingEnabled {
		first, turn := 0, 1
		game.CurrentPlayerIndex = &first
		game.CurrentTurnNumber = &turn
	}
	return s.saveLocked(game)
}

// UpdateTimeRemaining is the narrow field update used by the countdown so
// a tick does not churn the whole record path. The value is clamped to
// [0, timeLimit].
func (s *GameStorageService) UpdateTimeRemaining(gameID string, seconds int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	game := s.GetStoredGame(gameID)
	if game == nil || game.TimeLimit == nil {
		return false
	}
	if seconds < 0 {
		seconds = 0
	}
	if seconds > *game.TimeLimit {
		seconds = *game.TimeLimit
	}
	game.TimeRemaining = &seconds
	return s.saveLocked(game)
}

// UpdateLastActiveAt records the most recent moment the countdown was
// running for this game.
func (s *GameStorageService) UpdateLastActiveAt(gameID string, at time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	game := s.GetStoredGame(gameID)
	if game == nil {
		return false
	}
	game.LastActiveAt = &at
	return s.saveLocked(game)
}

// CalculatePlayerScores returns totals index-aligned with game.Players.
func (s *GameStorageService) CalculatePlayerScores(game *models.StoredGame) []int {
	return ledger.AllCurrentScores(game.ScoringHistory, len(game.Players))
}

// GetPlayerScoringHistory returns the ordered deltas for one player.
func (s *GameStorageService) GetPlayerScoringHistory(game *models.StoredGame, playerIndex int) []int {
	return ledger.HistoryFor(game.ScoringHistory, playerIndex)
}

// CurrentWinners returns the players at the current positive maximum.
func (s *GameStorageService) CurrentWinners(game *models.StoredGame) []models.GamePlayer {
	return ledger.Leaders(game.Players, game.ScoringHistory)
}

// IsTied reports whether the current lead is shared.
func (s *GameStorageService) IsTied(game *models.StoredGame) bool {
	return ledger.IsTied(game.Players, game.ScoringHistory)
}

func (s *GameStorageService) ClearAllGames() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.storage.Clear()
}

// OnChange registers a callback fired after every persisted mutation of
// the given game; the snapshot is nil when the game was deleted. The
// returned function unsubscribes. Callbacks run synchronously on the
// mutating call and must not invoke mutating service operations.
func (s *GameStorageService) OnChange(gameID string, fn func(*models.StoredGame)) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	if s.subs[gameID] == nil {
		s.subs[gameID] = make(map[int]func(*models.StoredGame))
	}
	id := s.nextSub
	s.nextSub++
	s.subs[gameID][id] = fn

	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.subs[gameID], id)
		if len(s.subs[gameID]) == 0 {
			delete(s.subs, gameID)
		}
	}
}

// saveLocked persists the record, refreshing updatedAt. Callers hold s.mu.
func (s *GameStorageService) saveLocked(game *models.StoredGame) bool {
	game.UpdatedAt = time.Now()
	if !s.storage.Set(game.ID, *game) {
		log.Errorf("failed to persist game %s", game.ID)
		return false
	}
	snapshot := *game
	s.notify(game.ID, &snapshot)
	return true
}

func (s *GameStorageService) notify(gameID string, snapshot *models.StoredGame) {
	s.subMu.Lock()
	fns := make([]func(*models.StoredGame), 0, len(s.subs[gameID]))
	for _, fn := range s.subs[gameID] {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()
	for _, fn := range fns {
		fn(snapshot)
	}
}

func (s *GameStorageService) targetReached(game *models.StoredGame) bool {
	if game.TargetScore == nil {
		return false
	}
	for _, score := range s.CalculatePlayerScores(game) {
		if score >= *game.TargetScore {
			return true
		}
	}
	return false
}

// newTimecode builds the non-unique display identifier, e.g.
// "game_1735689600000_k3f9a2c".
func newTimecode(now time.Time) string {
	return "game_" + strconv.FormatInt(now.UnixMilli(), 10) + "_" +
		strconv.FormatInt(rand.Int63n(78364164096), 36) // 7 base36 chars max
}
