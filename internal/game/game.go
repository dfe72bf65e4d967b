// internal/game/game.go
package game

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/lindabaloyi/casino-game-mobile-dev-dev-sub003/engine"
	"github.com/lindabaloyi/casino-game-mobile-dev-dev-sub003/internal/cache"
	"github.com/lindabaloyi/casino-game-mobile-dev-dev-sub003/internal/database"
	"github.com/lindabaloyi/casino-game-mobile-dev-dev-sub003/internal/models"
)

// OnGameEndFunc is the callback executed when a game finishes. It receives
// the lobby ID, the winner's ID (Nil on a draw) and the final scores.
type OnGameEndFunc func(lobbyID uuid.UUID, winner uuid.UUID, scores map[uuid.UUID]int)

// GameEventType represents the type of a game-related event broadcast via
// WebSockets.
type GameEventType string

// Constants defining the GameEvent types used for WebSocket communication.
const (
	EventGameStart        GameEventType = "game_start"
	EventPlayerTurn       GameEventType = "game_player_turn"        // Public: whose turn it is.
	EventRoundDeal        GameEventType = "game_round_deal"         // Public: the second round was dealt.
	EventPlayerCapture    GameEventType = "player_capture"          // Public: a capture, fully revealed.
	EventPlayerBuild      GameEventType = "player_build"            // Public: a build was created, raised or overtaken.
	EventPlayerTrail      GameEventType = "player_trail"            // Public: a card was trailed.
	EventStackUpdate      GameEventType = "game_stack_update"       // Public: a staging stack changed.
	EventPrivateHand      GameEventType = "private_hand"            // Private: the player's dealt hand.
	EventPrivateChoice    GameEventType = "private_choice_required" // Private: the drop needs disambiguation.
	EventPrivateStackOpts GameEventType = "private_stack_options"   // Private: finalization values to pick from.
	EventPrivateMoveFail  GameEventType = "private_move_fail"       // Private: a move was rejected.
	EventPrivateSyncState GameEventType = "private_sync_state"      // Private: full state sync for a player.
	EventGameEnd          GameEventType = "game_end"                // Public: game over, includes results.
)

// EventUser identifies a user within a GameEvent payload.
type EventUser struct {
	ID uuid.UUID `json:"id"`
}

// EventCard identifies a card within a GameEvent payload.
type EventCard struct {
	ID    uuid.UUID  `json:"id"`
	Rank  string     `json:"rank,omitempty"`
	Suit  string     `json:"suit,omitempty"`
	Value int        `json:"value,omitempty"`
	User  *EventUser `json:"user,omitempty"`
}

// EventItem describes one table item (loose card, build or staging stack)
// within a GameEvent payload.
type EventItem struct {
	ItemID int         `json:"itemId"`
	Kind   string      `json:"kind"`
	Value  int         `json:"value,omitempty"`
	Owner  *EventUser  `json:"owner,omitempty"`
	Cards  []EventCard `json:"cards,omitempty"`
}

// GameEvent is the standard structure for broadcasting game state changes.
type GameEvent struct {
	Type    GameEventType          `json:"type"`
	User    *EventUser             `json:"user,omitempty"`
	Card    *EventCard             `json:"card,omitempty"`
	Item    *EventItem             `json:"item,omitempty"`
	Payload map[string]interface{} `json:"payload,omitempty"`
	State   *ObfGameState          `json:"state,omitempty"`
}

// pendingChoice tracks a disambiguation round-trip: the drop produced more
// than one candidate (or a lone trail) and the engine is waiting for the
// player to pick one. Cleared on resolution, cancellation or turn timeout.
type pendingChoice struct {
	PlayerID   uuid.UUID
	Candidates []engine.Candidate
}

// CasinoGame represents the state and logic for a single game instance. The
// embedded engine state is authoritative; everything here is plumbing
// between it and the connected clients.
type CasinoGame struct {
	ID      uuid.UUID
	LobbyID uuid.UUID

	Players []*models.Player

	// Engine integration.
	Engine         *engine.GameState
	Cards          cardRegistry
	PlayerToEngine map[uuid.UUID]int
	EngineToPlayer [engine.NumPlayers]uuid.UUID

	pending *pendingChoice

	// Turn management.
	TurnID       int
	TurnDuration time.Duration
	turnTimer    *time.Timer
	actionIndex  int

	Started  bool
	GameOver bool

	lastSeen map[uuid.UUID]time.Time
	Mu       sync.Mutex

	// Communication callbacks.
	BroadcastFn         func(ev GameEvent)
	BroadcastToPlayerFn func(playerID uuid.UUID, ev GameEvent)
	OnGameEnd           OnGameEndFunc
}

// NewCasinoGame creates a new game instance with default settings. The
// engine is initialized in Start once both seats are filled.
func NewCasinoGame() *CasinoGame {
	id, _ := uuid.NewRandom()
	return &CasinoGame{
		ID:             id,
		lastSeen:       make(map[uuid.UUID]time.Time),
		TurnDuration:   30 * time.Second,
		PlayerToEngine: make(map[uuid.UUID]int),
	}
}

// AddPlayer seats a player, or rebinds the connection if they were already
// seated. Assumes lock is held by caller.
func (g *CasinoGame) AddPlayer(p *models.Player) {
	for i, pl := range g.Players {
		if pl.ID == p.ID {
			g.Players[i].Conn = p.Conn
			g.Players[i].Connected = true
			g.Players[i].User = p.User
			g.lastSeen[p.ID] = time.Now()
			logrus.Infof("game %s: player %s reconnected", g.ID, p.ID)
			g.logAction(p.ID, "player_reconnect", nil)
			return
		}
	}
	if g.Started {
		logrus.Warnf("game %s: player %s cannot join a started game", g.ID, p.ID)
		return
	}
	if len(g.Players) >= engine.NumPlayers {
		logrus.Warnf("game %s: table is full, rejecting player %s", g.ID, p.ID)
		return
	}
	g.Players = append(g.Players, p)
	g.lastSeen[p.ID] = time.Now()
	g.logAction(p.ID, "player_add", map[string]interface{}{"username": p.User.Username})
}

// Start deals the first round and begins the turn cycle. Assumes lock is
// held by caller.
func (g *CasinoGame) Start() {
	if g.Started || g.GameOver {
		logrus.Warnf("game %s: Start called in invalid state (started:%v over:%v)", g.ID, g.Started, g.GameOver)
		return
	}
	if len(g.Players) != engine.NumPlayers {
		logrus.Errorf("game %s: need exactly %d players, have %d", g.ID, engine.NumPlayers, len(g.Players))
		return
	}
	for i, p := range g.Players {
		g.PlayerToEngine[p.ID] = i
		g.EngineToPlayer[i] = p.ID
	}

	g.Engine = engine.NewGame(uint64(time.Now().UnixNano()))
	g.Engine.Deal()
	g.initCardRegistry()
	g.Started = true
	g.logAction(uuid.Nil, string(EventGameStart), nil)
	g.persistInitialGameState()

	g.fireEvent(GameEvent{Type: EventGameStart, Payload: map[string]interface{}{
		"gameId": g.ID, "round": g.Engine.Round,
	}})
	for _, p := range g.Players {
		g.sendPrivateHand(p.ID)
	}
	g.scheduleNextTurnTimer()
	g.broadcastPlayerTurn()
}

// HandlePlayerAction routes one inbound client message to the matching
// handler. It acquires the game lock.
func (g *CasinoGame) HandlePlayerAction(playerID uuid.UUID, action models.GameAction) {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	if !g.Started || g.GameOver {
		g.failMove(playerID, "game is not in progress")
		return
	}
	if _, ok := g.PlayerToEngine[playerID]; !ok {
		g.failMove(playerID, "not seated in this game")
		return
	}
	g.lastSeen[playerID] = time.Now()

	switch action.ActionType {
	case "action_move":
		g.handleMove(playerID, action.Payload)
	case "action_choice":
		g.handleChoice(playerID, action.Payload)
	case "action_choice_cancel":
		g.handleChoiceCancel(playerID)
	case "action_finalize_stack":
		g.handleFinalizeStack(playerID, action.Payload)
	case "action_cancel_stack":
		g.handleCancelStack(playerID)
	case "action_sync":
		g.sendSyncState(playerID)
	default:
		g.failMove(playerID, "unknown action "+action.ActionType)
	}
}

// HandleDisconnect marks a player as offline. The seat stays reserved and
// the turn timer keeps running; a timeout plays for them. Assumes lock is
// held by caller.
func (g *CasinoGame) HandleDisconnect(playerID uuid.UUID) {
	for i := range g.Players {
		if g.Players[i].ID != playerID {
			continue
		}
		if !g.Players[i].Connected {
			return
		}
		g.Players[i].Connected = false
		g.Players[i].Conn = nil
		logrus.Infof("game %s: player %s disconnected", g.ID, playerID)
		g.logAction(playerID, "player_disconnect", nil)
		return
	}
}

// HandleReconnect rebinds a returning player and replays the current state
// to them. Assumes lock is held by caller.
func (g *CasinoGame) HandleReconnect(playerID uuid.UUID) {
	for i := range g.Players {
		if g.Players[i].ID == playerID {
			g.Players[i].Connected = true
			g.lastSeen[playerID] = time.Now()
			g.sendSyncState(playerID)
			return
		}
	}
	g.logAction(playerID, "player_reconnect_fail", map[string]interface{}{"reason": "player not found"})
}

// fireEvent broadcasts an event to all connected players. Assumes lock is
// held by caller.
func (g *CasinoGame) fireEvent(ev GameEvent) {
	if g.BroadcastFn == nil {
		logrus.Warnf("game %s: BroadcastFn is nil, dropping event %s", g.ID, ev.Type)
		return
	}
	g.BroadcastFn(ev)
}

// fireEventToPlayer sends an event to a single connected player. Assumes
// lock is held by caller.
func (g *CasinoGame) fireEventToPlayer(playerID uuid.UUID, ev GameEvent) {
	if g.BroadcastToPlayerFn == nil {
		logrus.Warnf("game %s: BroadcastToPlayerFn is nil, dropping event %s", g.ID, ev.Type)
		return
	}
	if p := g.getPlayerByID(playerID); p != nil && p.Connected {
		g.BroadcastToPlayerFn(playerID, ev)
	}
}

func (g *CasinoGame) failMove(playerID uuid.UUID, reason string) {
	g.fireEventToPlayer(playerID, GameEvent{
		Type:    EventPrivateMoveFail,
		Payload: map[string]interface{}{"message": reason},
	})
}

// broadcastPlayerTurn notifies everyone whose turn it is. Assumes lock is
// held by caller.
func (g *CasinoGame) broadcastPlayerTurn() {
	if g.GameOver {
		return
	}
	g.fireEvent(GameEvent{
		Type: EventPlayerTurn,
		User: &EventUser{ID: g.EngineToPlayer[g.Engine.CurrentPlayer]},
		Payload: map[string]interface{}{
			"turnId": g.TurnID,
			"round":  g.Engine.Round,
		},
	})
}

// scheduleNextTurnTimer restarts the turn timer for the current player.
// Assumes lock is held by caller.
func (g *CasinoGame) scheduleNextTurnTimer() {
	if g.turnTimer != nil {
		g.turnTimer.Stop()
		g.turnTimer = nil
	}
	if g.TurnDuration <= 0 || g.GameOver || !g.Started {
		return
	}
	curTurnID := g.TurnID
	playerID := g.EngineToPlayer[g.Engine.CurrentPlayer]
	g.turnTimer = time.AfterFunc(g.TurnDuration, func() {
		g.Mu.Lock()
		defer g.Mu.Unlock()
		if g.GameOver || !g.Started || g.TurnID != curTurnID {
			return
		}
		logrus.Infof("game %s, turn %d: timer fired for player %s", g.ID, g.TurnID, playerID)
		g.handleTimeout(playerID)
	})
}

// handleTimeout plays out a stalled turn: any pending choice is dropped, an
// open stack is dissolved, and a forced move is applied so the game keeps
// moving. Assumes lock is held by caller.
func (g *CasinoGame) handleTimeout(playerID uuid.UUID) {
	idx, ok := g.PlayerToEngine[playerID]
	if !ok || idx != g.Engine.CurrentPlayer {
		return
	}
	if g.pending != nil && g.pending.PlayerID == playerID {
		g.pending = nil
	}
	if g.Engine.StackOf(idx) != nil {
		if err := g.Engine.Apply(idx, engine.Candidate{Type: engine.ActionStageCancel}); err != nil {
			logrus.Errorf("game %s: timeout stack cancel failed: %v", g.ID, err)
		}
		g.broadcastStackUpdate(idx)
	}
	g.logAction(playerID, "player_timeout", nil)
	g.applyForcedMove(idx, playerID)
}

// logAction sends game action details to the historian queue via Redis.
// Assumes lock is held by caller.
func (g *CasinoGame) logAction(actorID uuid.UUID, actionType string, payload map[string]interface{}) {
	g.actionIndex++
	if payload == nil {
		payload = make(map[string]interface{})
	}
	record := cache.GameActionRecord{
		GameID:        g.ID,
		ActionIndex:   g.actionIndex,
		ActorUserID:   actorID,
		ActionType:    actionType,
		ActionPayload: payload,
		Timestamp:     time.Now().UnixMilli(),
	}
	go func(rec cache.GameActionRecord) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if cache.Rdb == nil {
			return
		}
		if err := cache.PublishGameAction(ctx, rec); err != nil {
			logrus.Errorf("game %s: failed publishing action %d (%s): %v", g.ID, rec.ActionIndex, rec.ActionType, err)
		}
	}(record)
}

// persistInitialGameState saves the deal for replay and audit. Assumes lock
// is held by caller.
func (g *CasinoGame) persistInitialGameState() {
	type initialState struct {
		DeckSize int                       `json:"deckSize"`
		Players  map[string][]*models.Card `json:"players"`
	}
	snap := initialState{
		DeckSize: len(g.Engine.Deck),
		Players:  make(map[string][]*models.Card),
	}
	for _, p := range g.Players {
		idx := g.PlayerToEngine[p.ID]
		hand := make([]*models.Card, 0, len(g.Engine.Hands[idx]))
		for _, c := range g.Engine.Hands[idx] {
			hand = append(hand, g.Cards.details(c))
		}
		snap.Players[p.ID.String()] = hand
	}
	if database.DB != nil {
		go database.UpsertInitialGameState(g.ID, snap)
	}
}

// endGame finishes the bookkeeping once the engine reports the game over:
// final scores are broadcast, persisted and handed to the lobby callback.
// Assumes lock is held by caller.
func (g *CasinoGame) endGame() {
	if g.GameOver {
		return
	}
	g.GameOver = true
	if g.turnTimer != nil {
		g.turnTimer.Stop()
		g.turnTimer = nil
	}

	scores := make(map[uuid.UUID]int, engine.NumPlayers)
	for i := 0; i < engine.NumPlayers; i++ {
		scores[g.EngineToPlayer[i]] = g.Engine.Scores[i]
	}
	winner := uuid.Nil
	if g.Engine.Winner != engine.NoPlayer {
		winner = g.EngineToPlayer[g.Engine.Winner]
	}

	payload := map[string]interface{}{
		"winner": winner,
		"scores": scores,
	}
	g.logAction(uuid.Nil, string(EventGameEnd), payload)
	g.fireEvent(GameEvent{Type: EventGameEnd, Payload: payload})
	g.persistFinalGameState(winner, scores)

	if g.OnGameEnd != nil {
		go g.OnGameEnd(g.LobbyID, winner, scores)
	}
}

// persistFinalGameState saves capture piles, scores and the winner. Assumes
// lock is held by caller.
func (g *CasinoGame) persistFinalGameState(winner uuid.UUID, scores map[uuid.UUID]int) {
	type finalState struct {
		Winner   uuid.UUID                 `json:"winner"`
		Scores   map[uuid.UUID]int         `json:"scores"`
		Captures map[string][]*models.Card `json:"captures"`
	}
	snap := finalState{
		Winner:   winner,
		Scores:   scores,
		Captures: make(map[string][]*models.Card),
	}
	for i := 0; i < engine.NumPlayers; i++ {
		pile := make([]*models.Card, 0, len(g.Engine.Captures[i]))
		for _, c := range g.Engine.Captures[i] {
			pile = append(pile, g.Cards.details(c))
		}
		snap.Captures[g.EngineToPlayer[i].String()] = pile
	}
	if database.DB != nil {
		go database.StoreFinalGameState(context.Background(), g.ID, snap)
	}
}

// getPlayerByID finds a seated player. Assumes lock is held by caller.
func (g *CasinoGame) getPlayerByID(playerID uuid.UUID) *models.Player {
	for _, p := range g.Players {
		if p.ID == playerID {
			return p
		}
	}
	return nil
}
