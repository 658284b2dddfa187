package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/jthom/scorekeeper/internal/comm"
	"github.com/jthom/scorekeeper/internal/scoresvc/clock"
	"github.com/jthom/scorekeeper/internal/scoresvc/models"
	"github.com/jthom/scorekeeper/internal/scoresvc/service"
	"github.com/jthom/scorekeeper/internal/scoresvc/ws"
)

type Handler struct {
	service  *service.GameStorageService
	clocks   *clock.Manager
	hub      *ws.Hub
	upgrader websocket.Upgrader
}

func NewHandler(svc *service.GameStorageService, clocks *clock.Manager, hub *ws.Hub) *Handler {
	return &Handler{
		service: svc,
		clocks:  clocks,
		hub:     hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type Response struct {
	Message string      `json:"message"`
	Code    int         `json:"code"`
	Data    interface{} `json:"data"`
	Error   string      `json:"error"`
}

func (h *Handler) CreateResponse(w http.ResponseWriter, rsp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(rsp.Code)

	if err := json.NewEncoder(w).Encode(rsp); err != nil {
		log.Errorf("failed to encode response: %v", err)
	}
}

func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	h.CreateResponse(w, Response{
		Message: "score service is running",
		Code:    http.StatusOK,
	})
}

type createGameRequest struct {
	Name             string               `json:"name"`
	Players          []string             `json:"players"`
	TargetScore      *int                 `json:"targetScore"`
	TimeLimit        *int                 `json:"timeLimit"`
	TimerBehavior    models.TimerBehavior `json:"timerBehavior"`
	TurnTracking     bool                 `json:"turnTracking"`
	QuickScoreValues []int                `json:"quickScoreValues"`
	HideHistory      bool                 `json:"hideHistory"`
}

func (h *Handler) CreateGameHandler(w http.ResponseWriter, r *http.Request) {
	var req createGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.CreateResponse(w, Response{Code: http.StatusBadRequest, Error: "invalid request body"})
		return
	}

	game, err := h.service.CreateGame(service.CreateGameParams{
		Name:             req.Name,
		PlayerNames:      req.Players,
		TargetScore:      req.TargetScore,
		TimeLimit:        req.TimeLimit,
		TimerBehavior:    req.TimerBehavior,
		TurnTracking:     req.TurnTracking,
		QuickScoreValues: req.QuickScoreValues,
		HideHistory:      req.HideHistory,
	})
	if err != nil {
		h.CreateResponse(w, Response{Code: http.StatusBadRequest, Error: err.Error()})
		return
	}
	h.CreateResponse(w, Response{Message: "game created", Code: http.StatusCreated, Data: game})
}

func (h *Handler) ListGamesHandler(w http.ResponseWriter, r *http.Request) {
	h.CreateResponse(w, Response{Code: http.StatusOK, Data: h.service.GetAllStoredGames()})
}

func (h *Handler) GameSummariesHandler(w http.ResponseWriter, r *http.Request) {
	h.CreateResponse(w, Response{Code: http.StatusOK, Data: h.service.GetGameSummaries()})
}

func (h *Handler) GetActiveGameHandler(w http.ResponseWriter, r *http.Request) {
	game := h.service.GetActiveGame()
	if game == nil {
		h.CreateResponse(w, Response{Code: http.StatusNotFound, Error: "no active game"})
		return
	}
	h.CreateResponse(w, Response{Code: http.StatusOK, Data: game})
}

func (h *Handler) GetGameHandler(w http.ResponseWriter, r *http.Request) {
	game := h.service.GetStoredGame(chi.URLParam(r, "gameId"))
	if game == nil {
		h.CreateResponse(w, Response{Code: http.StatusNotFound, Error: "game not found"})
		return
	}
	h.CreateResponse(w, Response{Code: http.StatusOK, Data: game})
}

type updateGameRequest struct {
	Name             *string               `json:"name"`
	TargetScore      *int                  `json:"targetScore"`
	Players          []models.GamePlayer   `json:"players"`
	TimeLimit        *int                  `json:"timeLimit"`
	TimerBehavior    *models.TimerBehavior `json:"timerBehavior"`
	QuickScoreValues []int                 `json:"quickScoreValues"`
	HideHistory      *bool                 `json:"hideHistory"`
}

func (h *Handler) UpdateGameHandler(w http.ResponseWriter, r *http.Request) {
	var req updateGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.CreateResponse(w, Response{Code: http.StatusBadRequest, Error: "invalid request body"})
		return
	}
	gameID := chi.URLParam(r, "gameId")

	game, err := h.service.UpdateGame(gameID, models.GamePatch{
		Name:             req.Name,
		TargetScore:      req.TargetScore,
		Players:          req.Players,
		TimeLimit:        req.TimeLimit,
		TimerBehavior:    req.TimerBehavior,
		QuickScoreValues: req.QuickScoreValues,
		HideHistory:      req.HideHistory,
	})
	if err != nil {
		code := http.StatusBadRequest
		if game == nil && h.service.GetStoredGame(gameID) == nil {
			code = http.StatusNotFound
		}
		h.CreateResponse(w, Response{Code: code, Error: err.Error()})
		return
	}
	h.hub.BroadcastGameChanged(gameID, false)
	h.CreateResponse(w, Response{Message: "game updated", Code: http.StatusOK, Data: game})
}

func (h *Handler) DeleteGameHandler(w http.ResponseWriter, r *http.Request) {
	gameID := chi.URLParam(r, "gameId")
	if h.service.GetStoredGame(gameID) == nil {
		h.CreateResponse(w, Response{Code: http.StatusNotFound, Error: "game not found"})
		return
	}

	// stop the countdown first so a stale tick cannot resurrect the key
	h.clocks.Stop(gameID)
	if !h.service.DeleteGame(gameID) {
		h.CreateResponse(w, Response{Code: http.StatusInternalServerError, Error: "failed to delete game"})
		return
	}
	h.hub.BroadcastGameChanged(gameID, true)
	h.CreateResponse(w, Response{Message: "game deleted", Code: http.StatusOK})
}

func (h *Handler) ClearAllGamesHandler(w http.ResponseWriter, r *http.Request) {
	h.clocks.StopAll()
	if !h.service.ClearAllGames() {
		h.CreateResponse(w, Response{Code: http.StatusInternalServerError, Error: "failed to clear games"})
		return
	}
	h.CreateResponse(w, Response{Message: "all games cleared", Code: http.StatusOK})
}

type addScoreRequest struct {
	PlayerIndex int `json:"playerIndex"`
	Points      int `json:"points"`
}

func (h *Handler) AddScoreHandler(w http.ResponseWriter, r *http.Request) {
	var req addScoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.CreateResponse(w, Response{Code: http.StatusBadRequest, Error: "invalid request body"})
		return
	}
	gameID := chi.URLParam(r, "gameId")

	if !h.service.AddScore(gameID, req.PlayerIndex, req.Points) {
		if h.service.GetStoredGame(gameID) == nil {
			h.CreateResponse(w, Response{Code: http.StatusNotFound, Error: "game not found"})
			return
		}
		h.CreateResponse(w, Response{Code: http.StatusBadRequest, Error: "score rejected"})
		return
	}

	game := h.service.GetStoredGame(gameID)
	if game != nil && game.Status == models.StatusCompleted {
		h.clocks.Stop(gameID)
	}
	h.hub.BroadcastGameChanged(gameID, false)
	h.CreateResponse(w, Response{Message: "score added", Code: http.StatusOK, Data: game})
}

func (h *Handler) ResetScoresHandler(w http.ResponseWriter, r *http.Request) {
	gameID := chi.URLParam(r, "gameId")
	if !h.service.ResetScores(gameID) {
		if h.service.GetStoredGame(gameID) == nil {
			h.CreateResponse(w, Response{Code: http.StatusNotFound, Error: "game not found"})
			return
		}
		h.CreateResponse(w, Response{Code: http.StatusBadRequest, Error: "cannot reset a completed game"})
		return
	}
	h.hub.BroadcastGameChanged(gameID, false)
	h.CreateResponse(w, Response{Message: "scores reset", Code: http.StatusOK, Data: h.service.GetStoredGame(gameID)})
}

type updateStatusRequest struct {
	Status models.GameStatus `json:"status"`
}

func (h *Handler) UpdateStatusHandler(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.CreateResponse(w, Response{Code: http.StatusBadRequest, Error: "invalid request body"})
		return
	}
	gameID := chi.URLParam(r, "gameId")

	if !h.service.UpdateGameStatus(gameID, req.Status) {
		if h.service.GetStoredGame(gameID) == nil {
			h.CreateResponse(w, Response{Code: http.StatusNotFound, Error: "game not found"})
			return
		}
		h.CreateResponse(w, Response{Code: http.StatusBadRequest, Error: "invalid status transition"})
		return
	}
	if req.Status != models.StatusActive {
		// leaving active always stops the countdown
		h.clocks.Stop(gameID)
	}
	h.hub.BroadcastGameChanged(gameID, false)
	h.CreateResponse(w, Response{Message: "status updated", Code: http.StatusOK, Data: h.service.GetStoredGame(gameID)})
}

// ScoresHandler returns the derived score views for one game: totals,
// current leaders and the tie flag.
func (h *Handler) ScoresHandler(w http.ResponseWriter, r *http.Request) {
	game := h.service.GetStoredGame(chi.URLParam(r, "gameId"))
	if game == nil {
		h.CreateResponse(w, Response{Code: http.StatusNotFound, Error: "game not found"})
		return
	}
	h.CreateResponse(w, Response{Code: http.StatusOK, Data: map[string]interface{}{
		"scores":  h.service.CalculatePlayerScores(game),
		"leaders": h.service.CurrentWinners(game),
		"isTied":  h.service.IsTied(game),
	}})
}

func (h *Handler) PlayerHistoryHandler(w http.ResponseWriter, r *http.Request) {
	game := h.service.GetStoredGame(chi.URLParam(r, "gameId"))
	if game == nil {
		h.CreateResponse(w, Response{Code: http.StatusNotFound, Error: "game not found"})
		return
	}
	playerIndex, err := strconv.Atoi(chi.URLParam(r, "playerIndex"))
	if err != nil {
		h.CreateResponse(w, Response{Code: http.StatusBadRequest, Error: "invalid player index"})
		return
	}
	h.CreateResponse(w, Response{Code: http.StatusOK, Data: h.service.GetPlayerScoringHistory(game, playerIndex)})
}

func (h *Handler) StartTimerHandler(w http.ResponseWriter, r *http.Request) {
	gameID := chi.URLParam(r, "gameId")
	if h.service.GetStoredGame(gameID) == nil {
		h.CreateResponse(w, Response{Code: http.StatusNotFound, Error: "game not found"})
		return
	}
	if !h.clocks.Start(gameID) {
		h.CreateResponse(w, Response{Code: http.StatusBadRequest, Error: "game has no countdown to run"})
		return
	}
	h.CreateResponse(w, Response{Message: "countdown running", Code: http.StatusOK})
}

func (h *Handler) StopTimerHandler(w http.ResponseWriter, r *http.Request) {
	h.clocks.Stop(chi.URLParam(r, "gameId"))
	h.CreateResponse(w, Response{Message: "countdown stopped", Code: http.StatusOK})
}

type visibilityRequest struct {
	Hidden bool `json:"hidden"`
}

func (h *Handler) VisibilityHandler(w http.ResponseWriter, r *http.Request) {
	var req visibilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.CreateResponse(w, Response{Code: http.StatusBadRequest, Error: "invalid request body"})
		return
	}
	h.clocks.SetHidden(chi.URLParam(r, "gameId"), req.Hidden)
	h.CreateResponse(w, Response{Message: "visibility updated", Code: http.StatusOK})
}

// HandleWebSocket upgrades the connection and registers it with the hub.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Errorf("failed to upgrade to WebSocket: %v", err)
		http.Error(w, "failed to upgrade to WebSocket", http.StatusInternalServerError)
		return
	}

	socketId := uuid.New().String()
	h.hub.StoreConnection(socketId, conn)
	log.Infof("new WebSocket connection established: %s", socketId)

	go h.handleConnection(conn, socketId)
}

func (h *Handler) handleConnection(conn *websocket.Conn, socketId string) {
	defer func() {
		log.Infof("closing WebSocket connection: %s", socketId)
		h.hub.RemoveConnection(socketId)
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Errorf("WebSocket unexpected close error for socket %s: %v", socketId, err)
			} else {
				log.Infof("WebSocket connection closed for socket: %s", socketId)
			}
			break
		}

		message := &comm.WSMessage{}
		if err := json.Unmarshal(raw, &message); err != nil {
			log.Errorf("failed to unmarshal message from socket %s: %v", socketId, err)
			h.hub.SendError(socketId, "invalid message format")
			continue
		}

		h.hub.SocketMessage(socketId, message)
	}
}
