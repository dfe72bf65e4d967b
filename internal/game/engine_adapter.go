// engine_adapter.go - bridge between engine.GameState and CasinoGame.
package game

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/lindabaloyi/casino-game-mobile-dev-dev-sub003/engine"
	"github.com/lindabaloyi/casino-game-mobile-dev-dev-sub003/internal/models"
)

// cardRegistry is a bijection between the forty engine cards and the UUIDs
// clients address them by. Built once at deal time; cards never leave play
// so the mapping is stable for the whole game.
type cardRegistry struct {
	byUUID map[uuid.UUID]engine.Card
	byCard map[engine.Card]uuid.UUID
}

func (g *CasinoGame) initCardRegistry() {
	g.Cards = cardRegistry{
		byUUID: make(map[uuid.UUID]engine.Card, engine.DeckSize),
		byCard: make(map[engine.Card]uuid.UUID, engine.DeckSize),
	}
	for suit := engine.SuitClubs; suit <= engine.SuitSpades; suit++ {
		for rank := engine.RankAce; rank <= engine.RankTen; rank++ {
			c := engine.Card{Rank: rank, Suit: suit}
			id, _ := uuid.NewRandom()
			g.Cards.byUUID[id] = c
			g.Cards.byCard[c] = id
		}
	}
}

func (r *cardRegistry) uuidOf(c engine.Card) uuid.UUID {
	return r.byCard[c]
}

func (r *cardRegistry) cardOf(id uuid.UUID) (engine.Card, bool) {
	c, ok := r.byUUID[id]
	return c, ok
}

func (r *cardRegistry) details(c engine.Card) *models.Card {
	return &models.Card{
		ID:    r.uuidOf(c),
		Rank:  engineRankToString(c.Rank),
		Suit:  engineSuitToString(c.Suit),
		Value: c.Value(),
	}
}

// engineRankToString converts an engine rank to its service string.
func engineRankToString(rank uint8) string {
	if rank == engine.RankAce {
		return "A"
	}
	return fmt.Sprintf("%d", rank)
}

// engineSuitToString converts an engine suit to its service string.
func engineSuitToString(suit engine.Suit) string {
	switch suit {
	case engine.SuitClubs:
		return "C"
	case engine.SuitDiamonds:
		return "D"
	case engine.SuitHearts:
		return "H"
	case engine.SuitSpades:
		return "S"
	}
	return "?"
}

func originToString(o engine.Origin) string {
	switch o {
	case engine.OriginHand:
		return "hand"
	case engine.OriginTable:
		return "table"
	case engine.OriginOwnCaptures:
		return "own_captures"
	case engine.OriginOpponentCaptures:
		return "opponent_captures"
	}
	return "?"
}

func originFromString(s string) (engine.Origin, bool) {
	switch s {
	case "hand":
		return engine.OriginHand, true
	case "table":
		return engine.OriginTable, true
	case "own_captures":
		return engine.OriginOwnCaptures, true
	case "opponent_captures":
		return engine.OriginOpponentCaptures, true
	}
	return 0, false
}

func targetKindFromString(s string) (engine.TargetKind, bool) {
	switch s {
	case "loose":
		return engine.TargetLoose, true
	case "build":
		return engine.TargetBuild, true
	case "stack":
		return engine.TargetStack, true
	case "table":
		return engine.TargetTable, true
	}
	return 0, false
}

func (g *CasinoGame) eventCard(c engine.Card) *EventCard {
	return &EventCard{
		ID:    g.Cards.uuidOf(c),
		Rank:  engineRankToString(c.Rank),
		Suit:  engineSuitToString(c.Suit),
		Value: c.Value(),
	}
}

// eventItem renders one table item for event payloads. Staging stacks are
// priced with the calculator so the opposing client sees the display value.
func (g *CasinoGame) eventItem(it *engine.TableItem) *EventItem {
	ev := &EventItem{ItemID: it.ID}
	switch it.Kind {
	case engine.KindLoose:
		ev.Kind = "loose"
		ev.Value = it.Loose.Value()
		ev.Cards = []EventCard{*g.eventCard(it.Loose)}
	case engine.KindBuild:
		ev.Kind = "build"
		ev.Value = it.Build.Value
		ev.Owner = &EventUser{ID: g.EngineToPlayer[it.Build.Owner]}
		for _, c := range it.Build.Cards {
			ev.Cards = append(ev.Cards, *g.eventCard(c))
		}
	case engine.KindStack:
		ev.Kind = "stack"
		ev.Owner = &EventUser{ID: g.EngineToPlayer[it.Stack.Owner]}
		values := make([]int, len(it.Stack.Cards))
		origins := make([]engine.Origin, len(it.Stack.Cards))
		for i, sc := range it.Stack.Cards {
			values[i] = sc.Card.Value()
			origins[i] = sc.Origin
			ev.Cards = append(ev.Cards, *g.eventCard(sc.Card))
		}
		if cls := engine.ClassifyValues(values, origins); cls.Valid {
			ev.Value = cls.Value
		}
	}
	return ev
}

// ---------------------------------------------------------------------------
// Inbound payload decoding
// ---------------------------------------------------------------------------

func payloadString(payload map[string]interface{}, key string) string {
	if v, ok := payload[key].(string); ok {
		return v
	}
	return ""
}

func payloadInt(payload map[string]interface{}, key string) (int, bool) {
	switch v := payload[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	}
	return 0, false
}

func payloadMap(payload map[string]interface{}, key string) map[string]interface{} {
	if v, ok := payload[key].(map[string]interface{}); ok {
		return v
	}
	return nil
}

// decodeDrag parses the "dragged" payload object into an engine DraggedItem.
func (g *CasinoGame) decodeDrag(payload map[string]interface{}) (engine.DraggedItem, error) {
	obj := payloadMap(payload, "dragged")
	if obj == nil {
		return engine.DraggedItem{}, fmt.Errorf("missing dragged object")
	}
	origin, ok := originFromString(payloadString(obj, "origin"))
	if !ok {
		return engine.DraggedItem{}, fmt.Errorf("bad drag origin %q", payloadString(obj, "origin"))
	}
	drag := engine.DraggedItem{Origin: origin}
	if idStr := payloadString(obj, "card"); idStr != "" {
		cardID, err := uuid.Parse(idStr)
		if err != nil {
			return engine.DraggedItem{}, fmt.Errorf("bad card id: %v", err)
		}
		card, ok := g.Cards.cardOf(cardID)
		if !ok {
			return engine.DraggedItem{}, fmt.Errorf("unknown card %s", cardID)
		}
		drag.Card = card
	}
	if itemID, ok := payloadInt(obj, "itemId"); ok {
		drag.ItemID = itemID
		// A dragged build has no single identifying card; fill one in from
		// the item so downstream payloads stay coherent.
		if it := g.Engine.Item(itemID); it != nil && drag.Card == (engine.Card{}) {
			if cards := itemCards(it); len(cards) > 0 {
				drag.Card = cards[0]
			}
		}
	}
	if drag.Card == (engine.Card{}) {
		return engine.DraggedItem{}, fmt.Errorf("dragged object names no card")
	}
	return drag, nil
}

func itemCards(it *engine.TableItem) []engine.Card {
	switch it.Kind {
	case engine.KindLoose:
		return []engine.Card{it.Loose}
	case engine.KindBuild:
		return it.Build.Cards
	case engine.KindStack:
		out := make([]engine.Card, len(it.Stack.Cards))
		for i, sc := range it.Stack.Cards {
			out[i] = sc.Card
		}
		return out
	}
	return nil
}

// decodeTarget parses the "target" payload object into a DropTarget.
func (g *CasinoGame) decodeTarget(payload map[string]interface{}) (engine.DropTarget, error) {
	obj := payloadMap(payload, "target")
	if obj == nil {
		return engine.DropTarget{}, fmt.Errorf("missing target object")
	}
	kind, ok := targetKindFromString(payloadString(obj, "kind"))
	if !ok {
		return engine.DropTarget{}, fmt.Errorf("bad target kind %q", payloadString(obj, "kind"))
	}
	target := engine.DropTarget{Kind: kind}
	if kind != engine.TargetTable {
		itemID, ok := payloadInt(obj, "itemId")
		if !ok {
			return engine.DropTarget{}, fmt.Errorf("target needs an itemId")
		}
		target.ItemID = itemID
	}
	return target, nil
}

// ---------------------------------------------------------------------------
// Action handlers (lock held by HandlePlayerAction)
// ---------------------------------------------------------------------------

func (g *CasinoGame) handleMove(playerID uuid.UUID, payload map[string]interface{}) {
	idx := g.PlayerToEngine[playerID]
	if idx != g.Engine.CurrentPlayer {
		g.failMove(playerID, "not your turn")
		return
	}
	if g.pending != nil && g.pending.PlayerID == playerID {
		g.failMove(playerID, "resolve the pending choice first")
		return
	}
	drag, err := g.decodeDrag(payload)
	if err != nil {
		g.failMove(playerID, err.Error())
		return
	}
	target, err := g.decodeTarget(payload)
	if err != nil {
		g.failMove(playerID, err.Error())
		return
	}

	ev := g.Engine.Evaluate(idx, drag, target)
	if len(ev.Candidates) == 0 {
		g.failMove(playerID, "no legal action for that drop")
		return
	}
	if ev.RequiresDisambiguation {
		g.pending = &pendingChoice{PlayerID: playerID, Candidates: ev.Candidates}
		g.sendChoiceRequired(playerID, ev.Candidates)
		return
	}
	g.applyCandidate(idx, playerID, ev.Candidates[0])
}

// sendChoiceRequired describes each candidate so the client can render the
// disambiguation prompt.
func (g *CasinoGame) sendChoiceRequired(playerID uuid.UUID, cands []engine.Candidate) {
	options := make([]map[string]interface{}, len(cands))
	for i, c := range cands {
		options[i] = map[string]interface{}{
			"index":  i,
			"action": c.Type.String(),
			"value":  c.Value,
			"items":  c.TargetIDs,
		}
	}
	g.fireEventToPlayer(playerID, GameEvent{
		Type:    EventPrivateChoice,
		Payload: map[string]interface{}{"options": options},
	})
}

func (g *CasinoGame) handleChoice(playerID uuid.UUID, payload map[string]interface{}) {
	if g.pending == nil || g.pending.PlayerID != playerID {
		g.failMove(playerID, "no choice pending")
		return
	}
	i, ok := payloadInt(payload, "index")
	if !ok || i < 0 || i >= len(g.pending.Candidates) {
		g.failMove(playerID, "bad choice index")
		return
	}
	cand := g.pending.Candidates[i]
	g.pending = nil
	g.applyCandidate(g.PlayerToEngine[playerID], playerID, cand)
}

// handleChoiceCancel abandons a pending disambiguation; the drag simply
// never happened.
func (g *CasinoGame) handleChoiceCancel(playerID uuid.UUID) {
	if g.pending == nil || g.pending.PlayerID != playerID {
		g.failMove(playerID, "no choice pending")
		return
	}
	g.pending = nil
}

func (g *CasinoGame) handleFinalizeStack(playerID uuid.UUID, payload map[string]interface{}) {
	idx := g.PlayerToEngine[playerID]
	if idx != g.Engine.CurrentPlayer {
		g.failMove(playerID, "not your turn")
		return
	}
	value, _ := payloadInt(payload, "value")
	if value == 0 {
		if opts := g.Engine.StageOptions(idx); len(opts) > 1 {
			g.sendStackOptions(playerID, opts)
			return
		}
	}
	g.applyCandidate(idx, playerID, engine.Candidate{Type: engine.ActionStageFinalize, Value: value})
}

func (g *CasinoGame) sendStackOptions(playerID uuid.UUID, opts []engine.Classification) {
	options := make([]map[string]interface{}, len(opts))
	for i, o := range opts {
		options[i] = map[string]interface{}{
			"value": o.Value,
			"kind":  o.Kind.String(),
		}
	}
	g.fireEventToPlayer(playerID, GameEvent{
		Type:    EventPrivateStackOpts,
		Payload: map[string]interface{}{"options": options},
	})
}

func (g *CasinoGame) handleCancelStack(playerID uuid.UUID) {
	idx := g.PlayerToEngine[playerID]
	if idx != g.Engine.CurrentPlayer {
		g.failMove(playerID, "not your turn")
		return
	}
	g.applyCandidate(idx, playerID, engine.Candidate{Type: engine.ActionStageCancel})
}

// ---------------------------------------------------------------------------
// Engine application and event emission
// ---------------------------------------------------------------------------

// applyCandidate runs one candidate through the engine and emits the
// matching events. A desync error is fatal for the whole game.
func (g *CasinoGame) applyCandidate(idx int, playerID uuid.UUID, cand engine.Candidate) {
	preRound := g.Engine.Round
	preTurn := g.Engine.TurnCounter

	if err := g.Engine.Apply(idx, cand); err != nil {
		if engine.IsDesync(err) {
			logrus.Errorf("game %s: state desync, aborting: %v", g.ID, err)
			g.logAction(uuid.Nil, "game_desync", map[string]interface{}{"error": err.Error()})
			g.endGame()
			return
		}
		g.failMove(playerID, err.Error())
		return
	}

	g.emitEventsForCandidate(idx, playerID, cand)
	g.logAction(playerID, cand.Type.String(), map[string]interface{}{
		"card":  g.Cards.uuidOf(cand.Card).String(),
		"value": cand.Value,
		"items": cand.TargetIDs,
	})

	if g.Engine.GameOver {
		g.endGame()
		return
	}
	if g.Engine.Round != preRound {
		g.announceRoundDeal()
	}
	if g.Engine.TurnCounter != preTurn {
		g.TurnID++
		g.pending = nil
		g.scheduleNextTurnTimer()
		g.broadcastPlayerTurn()
	} else {
		// Staging keeps the turn, and so does a capture with a legal
		// move remaining; restart the clock for the same player.
		g.scheduleNextTurnTimer()
	}
}

func (g *CasinoGame) emitEventsForCandidate(idx int, playerID uuid.UUID, cand engine.Candidate) {
	actor := &EventUser{ID: playerID}
	switch cand.Type {
	case engine.ActionCapture, engine.ActionBuildOvertake:
		pile := g.Engine.Captures[idx]
		top := pile
		if len(top) > 8 {
			top = top[len(top)-8:] // recent haul is enough for the animation
		}
		captured := make([]interface{}, 0, len(top))
		for _, c := range top {
			captured = append(captured, g.eventCard(c))
		}
		g.fireEvent(GameEvent{
			Type: EventPlayerCapture,
			User: actor,
			Card: g.eventCard(cand.Card),
			Payload: map[string]interface{}{
				"captured": captured,
				"pileSize": len(pile),
			},
		})
	case engine.ActionBuildCreate, engine.ActionBuildExtend, engine.ActionStageFinalize:
		var item *EventItem
		for i := range g.Engine.Table {
			it := &g.Engine.Table[i]
			if it.Kind == engine.KindBuild && it.Build.Owner == idx {
				item = g.eventItem(it)
			}
		}
		g.fireEvent(GameEvent{Type: EventPlayerBuild, User: actor, Item: item})
	case engine.ActionTrail:
		g.fireEvent(GameEvent{Type: EventPlayerTrail, User: actor, Card: g.eventCard(cand.Card)})
	case engine.ActionStageCreate, engine.ActionStageAdd, engine.ActionStageCancel:
		g.broadcastStackUpdate(idx)
	}
}

// broadcastStackUpdate publishes the player's staging stack, or its removal.
// Staging is public: the opponent watches the stack grow. Assumes lock is
// held by caller.
func (g *CasinoGame) broadcastStackUpdate(idx int) {
	ev := GameEvent{
		Type: EventStackUpdate,
		User: &EventUser{ID: g.EngineToPlayer[idx]},
	}
	if st := g.Engine.StackOf(idx); st != nil {
		ev.Item = g.eventItem(st)
	}
	g.fireEvent(ev)
}

// announceRoundDeal fires the round-2 deal events: a public marker plus each
// player's fresh hand in private. Assumes lock is held by caller.
func (g *CasinoGame) announceRoundDeal() {
	g.fireEvent(GameEvent{
		Type:    EventRoundDeal,
		Payload: map[string]interface{}{"round": g.Engine.Round},
	})
	for _, p := range g.Players {
		g.sendPrivateHand(p.ID)
	}
}

// sendPrivateHand reveals a player's current hand to them. Assumes lock is
// held by caller.
func (g *CasinoGame) sendPrivateHand(playerID uuid.UUID) {
	idx, ok := g.PlayerToEngine[playerID]
	if !ok {
		return
	}
	hand := make([]interface{}, 0, len(g.Engine.Hands[idx]))
	for _, c := range g.Engine.Hands[idx] {
		hand = append(hand, g.eventCard(c))
	}
	g.fireEventToPlayer(playerID, GameEvent{
		Type:    EventPrivateHand,
		Payload: map[string]interface{}{"hand": hand, "round": g.Engine.Round},
	})
}

// applyForcedMove plays the first legal move on a timed-out turn, preferring
// a capture. Assumes lock is held by caller.
func (g *CasinoGame) applyForcedMove(idx int, playerID uuid.UUID) {
	var fallback *engine.Candidate
	for _, card := range g.Engine.Hands[idx] {
		drag := engine.DraggedItem{Card: card, Origin: engine.OriginHand}
		targets := make([]engine.DropTarget, 0, len(g.Engine.Table)+1)
		for i := range g.Engine.Table {
			targets = append(targets, engine.DropTarget{Kind: targetKindOfItem(&g.Engine.Table[i]), ItemID: g.Engine.Table[i].ID})
		}
		targets = append(targets, engine.DropTarget{Kind: engine.TargetTable})
		for _, target := range targets {
			ev := g.Engine.Evaluate(idx, drag, target)
			for i := range ev.Candidates {
				c := ev.Candidates[i]
				switch c.Type {
				case engine.ActionStageCreate, engine.ActionStageAdd:
					continue // never open a stack on a timeout
				case engine.ActionCapture:
					g.applyCandidate(idx, playerID, c)
					return
				default:
					if fallback == nil {
						fallback = &c
					}
				}
			}
		}
	}
	if fallback != nil {
		g.applyCandidate(idx, playerID, *fallback)
		return
	}

	// Only staging moves were on offer; pass the turn instead of stalling.
	if err := g.Engine.ForfeitTurn(idx); err != nil {
		logrus.Errorf("game %s: timeout forfeit failed for player %s: %v", g.ID, playerID, err)
		g.scheduleNextTurnTimer()
		return
	}
	g.logAction(playerID, "turn_forfeit", nil)
	g.TurnID++
	g.pending = nil
	g.scheduleNextTurnTimer()
	g.broadcastPlayerTurn()
}

func targetKindOfItem(it *engine.TableItem) engine.TargetKind {
	switch it.Kind {
	case engine.KindBuild:
		return engine.TargetBuild
	case engine.KindStack:
		return engine.TargetStack
	}
	return engine.TargetLoose
}
