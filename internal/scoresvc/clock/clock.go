// Package clock implements the countdown extension for time-limited
// games: a per-game state machine driven by an explicit Tick, plus a
// Manager that owns the real-time ticking loops. Keeping Tick explicit
// means the whole expiry path is testable without wall-clock waits.
package clock

import (
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/jthom/scorekeeper/internal/scoresvc/models"
	"github.com/jthom/scorekeeper/internal/scoresvc/service"
)

type State int

const (
	Stopped State = iota
	Running
	Expired
)

// persistEvery bounds countdown persistence I/O: the remaining time is
// written through once per this many elapsed ticks, so a hard shutdown
// loses at most that many seconds of countdown.
const persistEvery = 5

// ExpiryResult is the single outbound notification the core emits, fired
// when a timed game's countdown reaches zero. PlayerScores is
// index-aligned with the game's player list.
type ExpiryResult struct {
	GameID       string `json:"gameId"`
	HasWinner    bool   `json:"hasWinner"`
	PlayerScores []int  `json:"playerScores"`
}

// Clock counts down one game's remaining time. All persistence goes
// through the narrow GameStorageService updates; the clock never touches
// the adapter directly.
type Clock struct {
	svc      *service.GameStorageService
	gameID   string
	onExpiry func(ExpiryResult)

	mu                sync.Mutex
	state             State
	hidden            bool
	remaining         int
	ticksSincePersist int
}

func New(svc *service.GameStorageService, gameID string, onExpiry func(ExpiryResult)) *Clock {
	return &Clock{svc: svc, gameID: gameID, onExpiry: onExpiry}
}

// Start arms the countdown. It is a no-op unless the game exists, is
// active, has a time limit and has time left; starting a running clock is
// also a no-op.
func (c *Clock) Start() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == Running {
		return true
	}
	game := c.svc.GetStoredGame(c.gameID)
	if game == nil || !game.IsActive() || game.TimeLimit == nil {
		return false
	}
	if game.TimeRemaining == nil || *game.TimeRemaining <= 0 {
		return false
	}
	c.state = Running
	c.hidden = false
	c.remaining = *game.TimeRemaining
	c.ticksSincePersist = 0
	log.Infof("countdown started for game %s with %ds remaining", c.gameID, c.remaining)
	return true
}

// Stop leaves the running state without touching the record.
func (c *Clock) Stop() {
	c.mu.Lock()
	if c.state == Running {
		c.state = Stopped
	}
	c.mu.Unlock()
}

// SetHidden toggles the visibility pause: ticks arriving while hidden are
// skipped outright, never compensated later.
func (c *Clock) SetHidden(hidden bool) {
	c.mu.Lock()
	c.hidden = hidden
	c.mu.Unlock()
}

func (c *Clock) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Tick advances the countdown by one second of real time. Every
// persistEvery elapsed ticks the remaining time and lastActiveAt are
// written through; reaching zero runs the expiry resolution.
func (c *Clock) Tick() {
	c.mu.Lock()
	if c.state != Running || c.hidden {
		c.mu.Unlock()
		return
	}
	c.remaining--
	c.ticksSincePersist++

	if c.remaining <= 0 {
		c.remaining = 0
		c.state = Expired
		c.mu.Unlock()
		c.resolveExpiry()
		return
	}

	persist := c.ticksSincePersist >= persistEvery
	if persist {
		c.ticksSincePersist = 0
	}
	remaining := c.remaining
	c.mu.Unlock()

	if persist {
		c.svc.UpdateTimeRemaining(c.gameID, remaining)
		c.svc.UpdateLastActiveAt(c.gameID, time.Now())
	}
}

// resolveExpiry decides the outcome of the timed game and completes it.
// The zero remaining time is persisted first so a crash mid-resolution
// cannot leave a positive countdown behind.
func (c *Clock) resolveExpiry() {
	c.svc.UpdateTimeRemaining(c.gameID, 0)

	game := c.svc.GetStoredGame(c.gameID)
	if game == nil {
		log.Warnf("countdown expired for missing game %s", c.gameID)
		return
	}

	scores := c.svc.CalculatePlayerScores(game)
	maxScore := 0
	for _, s := range scores {
		if s > maxScore {
			maxScore = s
		}
	}

	hasWinner := false
	switch {
	case game.TargetScore != nil && maxScore >= *game.TargetScore:
		// someone reached the target regardless of timer behavior
		hasWinner = true
	case game.TargetScore == nil:
		hasWinner = maxScore > 0
	case game.TimerBehavior == models.TimerHighestScore:
		hasWinner = maxScore > 0
	default:
		// target set but unmet, behavior no-winner (or unset)
		hasWinner = false
	}

	c.svc.UpdateGameStatus(c.gameID, models.StatusCompleted)
	log.Infof("countdown expired for game %s, hasWinner=%v", c.gameID, hasWinner)

	if c.onExpiry != nil {
		c.onExpiry(ExpiryResult{
			GameID:       c.gameID,
			HasWinner:    hasWinner,
			PlayerScores: scores,
		})
	}
}
