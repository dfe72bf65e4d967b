// internal/game/game_test.go
package game

import (
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lindabaloyi/casino-game-mobile-dev-dev-sub003/engine"
	"github.com/lindabaloyi/casino-game-mobile-dev-dev-sub003/internal/models"
)

// mockBroadcaster captures game events for test assertions.
type mockBroadcaster struct {
	mu           sync.Mutex
	allEvents    []GameEvent
	playerEvents map[uuid.UUID][]GameEvent
}

func newMockBroadcaster() *mockBroadcaster {
	return &mockBroadcaster{playerEvents: make(map[uuid.UUID][]GameEvent)}
}

func (mb *mockBroadcaster) broadcastFn(ev GameEvent) {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	mb.allEvents = append(mb.allEvents, ev)
}

func (mb *mockBroadcaster) broadcastToPlayerFn(playerID uuid.UUID, ev GameEvent) {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	mb.playerEvents[playerID] = append(mb.playerEvents[playerID], ev)
}

func (mb *mockBroadcaster) findEventByType(eventType GameEventType) *GameEvent {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	for i := len(mb.allEvents) - 1; i >= 0; i-- {
		if mb.allEvents[i].Type == eventType {
			return &mb.allEvents[i]
		}
	}
	return nil
}

func (mb *mockBroadcaster) findPlayerEventByType(playerID uuid.UUID, eventType GameEventType) *GameEvent {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	events := mb.playerEvents[playerID]
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Type == eventType {
			return &events[i]
		}
	}
	return nil
}

// setupTestGame seats two players, starts the game and returns the seat IDs.
// Turn timers are disabled so tests control the pace.
func setupTestGame(t *testing.T) (*CasinoGame, *mockBroadcaster, [2]uuid.UUID) {
	t.Helper()
	g := NewCasinoGame()
	g.TurnDuration = 0
	mb := newMockBroadcaster()
	g.BroadcastFn = mb.broadcastFn
	g.BroadcastToPlayerFn = mb.broadcastToPlayerFn

	var ids [2]uuid.UUID
	g.Mu.Lock()
	for i := 0; i < engine.NumPlayers; i++ {
		uid, _ := uuid.NewRandom()
		ids[i] = uid
		g.AddPlayer(&models.Player{
			ID:        uid,
			Connected: true,
			User:      &models.User{ID: uid, Username: fmt.Sprintf("player%d", i)},
		})
	}
	g.Start()
	g.Mu.Unlock()
	require.True(t, g.Started, "game must start with two players")
	return g, mb, ids
}

func currentPlayerID(g *CasinoGame) uuid.UUID {
	return g.EngineToPlayer[g.Engine.CurrentPlayer]
}

func TestStartDealsHandsAndAnnouncesTurn(t *testing.T) {
	g, mb, ids := setupTestGame(t)

	assert.NotNil(t, mb.findEventByType(EventGameStart))
	assert.NotNil(t, mb.findEventByType(EventPlayerTurn))

	for _, id := range ids {
		ev := mb.findPlayerEventByType(id, EventPrivateHand)
		require.NotNil(t, ev, "each player receives their hand")
		hand, ok := ev.Payload["hand"].([]interface{})
		require.True(t, ok)
		assert.Len(t, hand, engine.HandSize)
	}
	assert.Len(t, g.Cards.byUUID, engine.DeckSize)
	assert.Len(t, g.Cards.byCard, engine.DeckSize)
}

func TestHandleMoveRejectsOutOfTurn(t *testing.T) {
	g, mb, ids := setupTestGame(t)

	waiting := ids[0]
	if currentPlayerID(g) == waiting {
		waiting = ids[1]
	}
	idx := g.PlayerToEngine[waiting]
	card := g.Engine.Hands[idx][0]

	g.HandlePlayerAction(waiting, models.GameAction{
		ActionType: "action_move",
		Payload: map[string]interface{}{
			"dragged": map[string]interface{}{
				"card":   g.Cards.uuidOf(card).String(),
				"origin": "hand",
			},
			"target": map[string]interface{}{"kind": "table"},
		},
	})
	fail := mb.findPlayerEventByType(waiting, EventPrivateMoveFail)
	require.NotNil(t, fail)
	assert.Contains(t, fail.Payload["message"], "not your turn")
}

func TestTrailRequiresConfirmationThenApplies(t *testing.T) {
	g, mb, _ := setupTestGame(t)

	actor := currentPlayerID(g)
	idx := g.PlayerToEngine[actor]
	card := g.Engine.Hands[idx][0]

	// The table is empty at the start, so the drop resolves to a lone
	// trail, which always round-trips for confirmation.
	g.HandlePlayerAction(actor, models.GameAction{
		ActionType: "action_move",
		Payload: map[string]interface{}{
			"dragged": map[string]interface{}{
				"card":   g.Cards.uuidOf(card).String(),
				"origin": "hand",
			},
			"target": map[string]interface{}{"kind": "table"},
		},
	})
	choice := mb.findPlayerEventByType(actor, EventPrivateChoice)
	require.NotNil(t, choice, "a lone trail asks for confirmation")
	assert.Nil(t, mb.findEventByType(EventPlayerTrail), "nothing applied yet")

	g.HandlePlayerAction(actor, models.GameAction{
		ActionType: "action_choice",
		Payload:    map[string]interface{}{"index": 0},
	})
	trail := mb.findEventByType(EventPlayerTrail)
	require.NotNil(t, trail)
	assert.Equal(t, actor, trail.User.ID)

	require.Len(t, g.Engine.Table, 1)
	assert.Equal(t, card, g.Engine.Table[0].Loose)
	assert.NotEqual(t, actor, currentPlayerID(g), "trail ends the turn")
	assert.Len(t, g.Engine.Hands[idx], engine.HandSize-1)
}

func TestChoiceCancelAbandonsMove(t *testing.T) {
	g, mb, _ := setupTestGame(t)

	actor := currentPlayerID(g)
	idx := g.PlayerToEngine[actor]
	card := g.Engine.Hands[idx][0]

	g.HandlePlayerAction(actor, models.GameAction{
		ActionType: "action_move",
		Payload: map[string]interface{}{
			"dragged": map[string]interface{}{
				"card":   g.Cards.uuidOf(card).String(),
				"origin": "hand",
			},
			"target": map[string]interface{}{"kind": "table"},
		},
	})
	require.NotNil(t, mb.findPlayerEventByType(actor, EventPrivateChoice))

	g.HandlePlayerAction(actor, models.GameAction{ActionType: "action_choice_cancel"})
	g.HandlePlayerAction(actor, models.GameAction{
		ActionType: "action_choice",
		Payload:    map[string]interface{}{"index": 0},
	})
	fail := mb.findPlayerEventByType(actor, EventPrivateMoveFail)
	require.NotNil(t, fail)
	assert.Contains(t, fail.Payload["message"], "no choice pending")
	assert.Len(t, g.Engine.Table, 0, "cancelled drag leaves the table alone")
	assert.Equal(t, actor, currentPlayerID(g))
}

func TestSyncStateObfuscatesOpponentHand(t *testing.T) {
	g, mb, ids := setupTestGame(t)

	g.HandlePlayerAction(ids[0], models.GameAction{ActionType: "action_sync"})
	ev := mb.findPlayerEventByType(ids[0], EventPrivateSyncState)
	require.NotNil(t, ev)
	require.NotNil(t, ev.State)

	state := ev.State
	assert.Equal(t, 1, state.Round)
	assert.Equal(t, engine.DeckSize-engine.NumPlayers*engine.HandSize, state.DeckSize)
	require.Len(t, state.Players, 2)
	for _, ps := range state.Players {
		assert.Equal(t, engine.HandSize, ps.HandSize)
		if ps.PlayerID == ids[0] {
			assert.Len(t, ps.RevealedHand, engine.HandSize, "own hand is revealed")
		} else {
			assert.Empty(t, ps.RevealedHand, "opponent hand stays hidden")
		}
	}
}

func TestReconnectReplaysState(t *testing.T) {
	g, mb, ids := setupTestGame(t)

	g.Mu.Lock()
	g.HandleDisconnect(ids[1])
	g.Mu.Unlock()
	assert.False(t, g.getPlayerByID(ids[1]).Connected)

	g.Mu.Lock()
	g.HandleReconnect(ids[1])
	g.Mu.Unlock()
	assert.True(t, g.getPlayerByID(ids[1]).Connected)
	assert.NotNil(t, mb.findPlayerEventByType(ids[1], EventPrivateSyncState))
}

func TestForcedMoveOnTimeout(t *testing.T) {
	g, mb, _ := setupTestGame(t)

	actor := currentPlayerID(g)
	idx := g.PlayerToEngine[actor]
	handBefore := len(g.Engine.Hands[idx])

	g.Mu.Lock()
	g.handleTimeout(actor)
	g.Mu.Unlock()

	assert.Len(t, g.Engine.Hands[idx], handBefore-1, "timeout plays a card for the player")
	assert.NotEqual(t, actor, currentPlayerID(g))
	assert.NotNil(t, mb.findEventByType(EventPlayerTurn))
}

func TestGameEndFiresCallbackAndScores(t *testing.T) {
	g, mb, ids := setupTestGame(t)

	done := make(chan struct{})
	var gotScores map[uuid.UUID]int
	g.OnGameEnd = func(_ uuid.UUID, _ uuid.UUID, scores map[uuid.UUID]int) {
		gotScores = scores
		close(done)
	}

	// Drive the engine to a terminal state directly, then let the service
	// react to one last applied move.
	g.Mu.Lock()
	idx := g.PlayerToEngine[currentPlayerID(g)]
	opp := engine.Opponent(idx)
	// Last capturer takes everything; empty both hands except one card.
	g.Engine.Round = 2
	g.Engine.Deck = append(g.Engine.Deck, g.Engine.Hands[idx][1:]...)
	g.Engine.Hands[idx] = g.Engine.Hands[idx][:1]
	g.Engine.Deck = append(g.Engine.Deck, g.Engine.Hands[opp]...)
	g.Engine.Hands[opp] = nil
	card := g.Engine.Hands[idx][0]
	g.applyCandidate(idx, g.EngineToPlayer[idx], engine.Candidate{
		Type: engine.ActionTrail, Card: card, Origin: engine.OriginHand,
	})
	g.Mu.Unlock()

	require.True(t, g.GameOver)
	endEv := mb.findEventByType(EventGameEnd)
	require.NotNil(t, endEv)
	<-done
	require.Len(t, gotScores, engine.NumPlayers)
	for _, id := range ids {
		assert.Contains(t, gotScores, id)
	}
}

func TestTimeoutForfeitsWhenOnlyStagingRemains(t *testing.T) {
	g, mb, _ := setupTestGame(t)

	actor := currentPlayerID(g)

	g.Mu.Lock()
	idx := g.PlayerToEngine[actor]
	opp := engine.Opponent(idx)
	eng := g.Engine

	// Rearrange the deal so the acting player can only stage: trailing is
	// blocked by their own round-one build, the deuce captures nothing,
	// and the loose six only offers a staging stack.
	pool := append([]engine.Card{}, eng.Deck...)
	pool = append(pool, eng.Hands[0]...)
	pool = append(pool, eng.Hands[1]...)
	take := func(v int) engine.Card {
		for i, c := range pool {
			if c.Value() == v {
				pool = append(pool[:i], pool[i+1:]...)
				return c
			}
		}
		t.Fatalf("no card of value %d left", v)
		return engine.Card{}
	}
	deuce, eight, six := take(2), take(8), take(6)
	three, four := take(3), take(4)
	eng.Hands[idx] = []engine.Card{deuce}
	eng.Hands[opp] = []engine.Card{eight}
	eng.Table = []engine.TableItem{
		{ID: 90, Kind: engine.KindLoose, Loose: six},
		{ID: 91, Kind: engine.KindBuild, Build: engine.Build{
			Cards: []engine.Card{three, four}, Value: 7, Owner: idx, Extendable: true,
		}},
	}
	eng.Deck = pool
	eng.Round = 1
	turnBefore := g.TurnID

	g.handleTimeout(actor)
	g.Mu.Unlock()

	assert.Len(t, g.Engine.Hands[idx], 1, "forfeit must not play a card")
	assert.NotEqual(t, actor, currentPlayerID(g), "turn passes to the opponent")
	assert.Greater(t, g.TurnID, turnBefore)
	assert.NotNil(t, mb.findEventByType(EventPlayerTurn))
}
