// internal/game/sync_state.go
package game

import (
	"github.com/google/uuid"

	"github.com/lindabaloyi/casino-game-mobile-dev-dev-sub003/engine"
)

// ObfCard represents a card for client synchronization, hiding details the
// observer is not entitled to.
type ObfCard struct {
	ID    uuid.UUID `json:"id"`
	Known bool      `json:"known"`
	Rank  string    `json:"rank,omitempty"`
	Suit  string    `json:"suit,omitempty"`
	Value int       `json:"value,omitempty"`
}

// ObfPlayerState is one player's seat as seen by a specific observer. Hands
// are revealed only to their owner; capture piles show the top card and a
// count, since the top card is draggable into staging stacks by either side.
type ObfPlayerState struct {
	PlayerID      uuid.UUID `json:"playerId"`
	Username      string    `json:"username"`
	HandSize      int       `json:"handSize"`
	Connected     bool      `json:"connected"`
	IsCurrentTurn bool      `json:"isCurrentTurn"`
	CaptureSize   int       `json:"captureSize"`
	CaptureTop    *ObfCard  `json:"captureTop,omitempty"`
	RevealedHand  []ObfCard `json:"revealedHand,omitempty"`
}

// ObfGameState is the full game state, obfuscated for one observer. The
// table is public in its entirety, staging stacks included.
type ObfGameState struct {
	GameID          uuid.UUID        `json:"gameId"`
	Started         bool             `json:"started"`
	GameOver        bool             `json:"gameOver"`
	Round           int              `json:"round"`
	TurnID          int              `json:"turnId"`
	CurrentPlayerID uuid.UUID        `json:"currentPlayerId"`
	DeckSize        int              `json:"deckSize"`
	Table           []EventItem      `json:"table"`
	Players         []ObfPlayerState `json:"players"`
	WinnerID        uuid.UUID        `json:"winnerId,omitempty"`
	Scores          map[string]int   `json:"scores,omitempty"`
}

// GetCurrentObfuscatedGameState builds a state snapshot tailored to the
// requesting user. Assumes the game lock is held by the caller.
func (g *CasinoGame) GetCurrentObfuscatedGameState(forUser uuid.UUID) ObfGameState {
	obf := ObfGameState{
		GameID:   g.ID,
		Started:  g.Started,
		GameOver: g.GameOver,
	}
	if g.Engine == nil {
		return obf
	}
	obf.Round = g.Engine.Round
	obf.TurnID = g.TurnID
	obf.DeckSize = len(g.Engine.Deck)
	if !g.GameOver {
		obf.CurrentPlayerID = g.EngineToPlayer[g.Engine.CurrentPlayer]
	} else {
		if g.Engine.Winner != engine.NoPlayer {
			obf.WinnerID = g.EngineToPlayer[g.Engine.Winner]
		}
		obf.Scores = make(map[string]int, engine.NumPlayers)
		for i := 0; i < engine.NumPlayers; i++ {
			obf.Scores[g.EngineToPlayer[i].String()] = g.Engine.Scores[i]
		}
	}

	obf.Table = make([]EventItem, 0, len(g.Engine.Table))
	for i := range g.Engine.Table {
		obf.Table = append(obf.Table, *g.eventItem(&g.Engine.Table[i]))
	}

	obf.Players = make([]ObfPlayerState, len(g.Players))
	for i, pl := range g.Players {
		idx := g.PlayerToEngine[pl.ID]
		ps := ObfPlayerState{
			PlayerID:      pl.ID,
			Connected:     pl.Connected,
			HandSize:      len(g.Engine.Hands[idx]),
			CaptureSize:   len(g.Engine.Captures[idx]),
			IsCurrentTurn: !g.GameOver && g.Engine.CurrentPlayer == idx,
		}
		if pl.User != nil {
			ps.Username = pl.User.Username
		}
		if n := len(g.Engine.Captures[idx]); n > 0 {
			top := g.Engine.Captures[idx][n-1]
			ps.CaptureTop = &ObfCard{
				ID:    g.Cards.uuidOf(top),
				Known: true,
				Rank:  engineRankToString(top.Rank),
				Suit:  engineSuitToString(top.Suit),
				Value: top.Value(),
			}
		}
		if pl.ID == forUser {
			ps.RevealedHand = make([]ObfCard, 0, len(g.Engine.Hands[idx]))
			for _, c := range g.Engine.Hands[idx] {
				ps.RevealedHand = append(ps.RevealedHand, ObfCard{
					ID:    g.Cards.uuidOf(c),
					Known: true,
					Rank:  engineRankToString(c.Rank),
					Suit:  engineSuitToString(c.Suit),
					Value: c.Value(),
				})
			}
		}
		obf.Players[i] = ps
	}
	return obf
}

// sendSyncState pushes a full private snapshot to one player. Assumes lock
// is held by caller.
func (g *CasinoGame) sendSyncState(playerID uuid.UUID) {
	state := g.GetCurrentObfuscatedGameState(playerID)
	g.fireEventToPlayer(playerID, GameEvent{Type: EventPrivateSyncState, State: &state})
}
