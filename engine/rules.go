package engine

// ActionType enumerates every move the engine can execute. The set is
// closed: rule evaluation and the action dispatcher both switch over it
// exhaustively.
type ActionType uint8

const (
	ActionCapture ActionType = iota
	ActionBuildCreate
	ActionBuildExtend
	ActionBuildOvertake
	ActionStageCreate
	ActionStageAdd
	ActionStageFinalize
	ActionStageCancel
	ActionTrail
)

func (t ActionType) String() string {
	switch t {
	case ActionCapture:
		return "capture"
	case ActionBuildCreate:
		return "build_create"
	case ActionBuildExtend:
		return "build_extend"
	case ActionBuildOvertake:
		return "build_overtake"
	case ActionStageCreate:
		return "stage_create"
	case ActionStageAdd:
		return "stage_add"
	case ActionStageFinalize:
		return "stage_finalize"
	case ActionStageCancel:
		return "stage_cancel"
	case ActionTrail:
		return "trail"
	}
	return "unknown"
}

// Candidate is one executable resolution of a drag. TargetIDs names the
// table items the action consumes or touches; Value carries the build value
// for build actions.
type Candidate struct {
	Type      ActionType
	Card      Card
	Origin    Origin
	DraggedID int
	TargetIDs []int
	Value     int
}

// Evaluation is the outcome of rule evaluation for one drag: the candidate
// actions in priority order, and whether the player must pick one. A single
// non-trail candidate executes without a round-trip; a trail always requires
// explicit confirmation since it has no undo.
type Evaluation struct {
	Candidates             []Candidate
	RequiresDisambiguation bool
}

type ruleFunc func(g *GameState, player int, drag DraggedItem, target DropTarget) []Candidate

type rule struct {
	name      string
	priority  int
	exclusive bool
	eval      ruleFunc
}

// ruleTable is evaluated top to bottom and must stay sorted by descending
// priority: staging contact > direct capture > build extension > build
// creation > overtake > trail. An exclusive rule that matches ends
// evaluation with only its candidates, so a capture can never be hidden
// behind a weaker option.
var ruleTable = []rule{
	{name: "stage_contact", priority: 100, eval: ruleStageContact},
	{name: "capture", priority: 90, exclusive: true, eval: ruleCaptureExclusive},
	{name: "capture_shared", priority: 89, eval: ruleCaptureShared},
	{name: "build_extend", priority: 80, eval: ruleBuildExtend},
	{name: "build_create", priority: 70, eval: ruleBuildCreate},
	{name: "stage_create", priority: 60, eval: ruleStageCreate},
	{name: "build_overtake", priority: 50, eval: ruleBuildOvertake},
	{name: "trail", priority: 10, eval: ruleTrail},
}

// Evaluate maps a (dragged item, drop target) pair onto candidate actions.
// It never mutates state.
func (g *GameState) Evaluate(player int, drag DraggedItem, target DropTarget) Evaluation {
	if g.GameOver {
		return Evaluation{}
	}
	var out []Candidate
	for _, r := range ruleTable {
		cands := r.eval(g, player, drag, target)
		if len(cands) == 0 {
			continue
		}
		if r.exclusive {
			out = cands
			break
		}
		out = append(out, cands...)
	}
	req := len(out) > 1 || (len(out) == 1 && out[0].Type == ActionTrail)
	return Evaluation{Candidates: out, RequiresDisambiguation: req}
}

// HasLegalMove re-runs rule evaluation hypothetically against every card in
// the player's hand and every drop target, reporting whether any candidate
// exists.
func (g *GameState) HasLegalMove(player int) bool {
	for _, card := range g.Hands[player] {
		drag := DraggedItem{Card: card, Origin: OriginHand}
		for i := range g.Table {
			target := DropTarget{Kind: targetKindOf(g.Table[i].Kind), ItemID: g.Table[i].ID}
			if ev := g.Evaluate(player, drag, target); len(ev.Candidates) > 0 {
				return true
			}
		}
		if ev := g.Evaluate(player, drag, DropTarget{Kind: TargetTable}); len(ev.Candidates) > 0 {
			return true
		}
	}
	return false
}

func targetKindOf(k ItemKind) TargetKind {
	switch k {
	case KindBuild:
		return TargetBuild
	case KindStack:
		return TargetStack
	}
	return TargetLoose
}

// ---------------------------------------------------------------------------
// Rule bodies
// ---------------------------------------------------------------------------

// ruleStageContact: dropping onto the player's own staging stack offers a
// stage-add. Origin limits are enforced by the handler so that a second
// hand card is rejected with an explicit error rather than silently ignored.
func ruleStageContact(g *GameState, player int, drag DraggedItem, target DropTarget) []Candidate {
	if target.Kind != TargetStack {
		return nil
	}
	it := g.Item(target.ItemID)
	if it == nil || it.Kind != KindStack || it.Stack.Owner != player {
		return nil
	}
	if drag.Origin == OriginTable {
		src := g.Item(drag.ItemID)
		if src == nil || src.Kind != KindLoose {
			return nil
		}
	}
	return []Candidate{{
		Type:      ActionStageAdd,
		Card:      drag.Card,
		Origin:    drag.Origin,
		DraggedID: drag.ItemID,
		TargetIDs: []int{it.ID},
	}}
}

// ruleCaptureExclusive: an unconditional capture. Matches when the dragged
// hand card's value equals the target's capture value and no competing
// build or staging continuation exists; evaluation stops here so the
// capture pre-empts every weaker option.
func ruleCaptureExclusive(g *GameState, player int, drag DraggedItem, target DropTarget) []Candidate {
	if captureAlternativeExists(g, player, drag, target) {
		return nil
	}
	return captureCandidate(g, player, drag, target)
}

// ruleCaptureShared: the same capture when an alternative resolution also
// applies; non-exclusive so the build/staging rules add their candidates
// and the player disambiguates. The capture is always in the list.
func ruleCaptureShared(g *GameState, player int, drag DraggedItem, target DropTarget) []Candidate {
	if !captureAlternativeExists(g, player, drag, target) {
		return nil
	}
	return captureCandidate(g, player, drag, target)
}

func captureCandidate(g *GameState, player int, drag DraggedItem, target DropTarget) []Candidate {
	if drag.Origin != OriginHand || g.handIndex(player, drag.Card) < 0 {
		return nil
	}
	it := g.Item(target.ItemID)
	if it == nil {
		return nil
	}
	if it.Kind == KindStack && it.Stack.Owner == player {
		return nil // own stack contact is a stage-add, never a capture
	}
	v := drag.Card.Value()
	if it.captureValue() != v {
		return nil
	}
	targets := []int{it.ID}
	// Same-value sweep: the capture also takes every other loose card and
	// build worth the same value. Staging stacks are taken only when
	// directly targeted.
	for i := range g.Table {
		other := &g.Table[i]
		if other.ID == it.ID || other.Kind == KindStack {
			continue
		}
		if other.captureValue() == v {
			targets = append(targets, other.ID)
		}
	}
	return []Candidate{{
		Type:      ActionCapture,
		Card:      drag.Card,
		Origin:    OriginHand,
		TargetIDs: targets,
		Value:     v,
	}}
}

// captureAlternativeExists reports whether a capture drop also admits a
// build or staging resolution, which forces a disambiguation round-trip.
func captureAlternativeExists(g *GameState, player int, drag DraggedItem, target DropTarget) bool {
	if drag.Origin != OriginHand {
		return false
	}
	it := g.Item(target.ItemID)
	if it == nil || it.captureValue() != drag.Card.Value() {
		return false
	}
	switch it.Kind {
	case KindLoose:
		// Same-value contact: staging is viable only when the hand can
		// still turn the pair into a capturable build. Otherwise the
		// engine resolves the contact as an immediate capture.
		return stagePairViable(g, player, drag, it, true)
	case KindBuild:
		// Equal-value build contact competes with extending it to double.
		return extendViable(g, player, drag.Card, it)
	}
	return false
}

// ruleBuildExtend: a non-owner raises an opponent's extendable build; the
// new total must stay capturable and covered by a card still in hand.
func ruleBuildExtend(g *GameState, player int, drag DraggedItem, target DropTarget) []Candidate {
	if target.Kind != TargetBuild || drag.Origin != OriginHand {
		return nil
	}
	it := g.Item(target.ItemID)
	if it == nil || it.Kind != KindBuild {
		return nil
	}
	if !extendViable(g, player, drag.Card, it) {
		return nil
	}
	return []Candidate{{
		Type:      ActionBuildExtend,
		Card:      drag.Card,
		Origin:    OriginHand,
		TargetIDs: []int{it.ID},
		Value:     it.Build.Value + drag.Card.Value(),
	}}
}

func extendViable(g *GameState, player int, card Card, it *TableItem) bool {
	if it.Kind != KindBuild || !it.Build.Extendable || it.Build.Owner == player {
		return false
	}
	if g.handIndex(player, card) < 0 {
		return false
	}
	newTotal := it.Build.Value + card.Value()
	if newTotal > maxBuildValue {
		return false
	}
	return handHoldsValueExcept(g, player, newTotal, card)
}

// ruleBuildCreate: pairing a hand card with a loose card of a different
// value into a fresh build, provided the player holds the capture card and
// no conflicting build exists.
func ruleBuildCreate(g *GameState, player int, drag DraggedItem, target DropTarget) []Candidate {
	if target.Kind != TargetLoose || drag.Origin != OriginHand {
		return nil
	}
	it := g.Item(target.ItemID)
	if it == nil || it.Kind != KindLoose {
		return nil
	}
	if g.handIndex(player, drag.Card) < 0 {
		return nil
	}
	sum := drag.Card.Value() + it.Loose.Value()
	if drag.Card.Value() == it.Loose.Value() || sum > maxBuildValue {
		return nil
	}
	if g.buildOf(player) != nil {
		return nil
	}
	if opp := g.buildOf(Opponent(player)); opp != nil && opp.Build.Value == sum {
		return nil
	}
	if !handHoldsValueExcept(g, player, sum, drag.Card) {
		return nil
	}
	return []Candidate{{
		Type:      ActionBuildCreate,
		Card:      drag.Card,
		Origin:    OriginHand,
		TargetIDs: []int{it.ID},
		Value:     sum,
	}}
}

// ruleStageCreate: dropping onto a loose card opens a staging stack when the
// player has none and the pairing can still lead somewhere.
func ruleStageCreate(g *GameState, player int, drag DraggedItem, target DropTarget) []Candidate {
	if target.Kind != TargetLoose {
		return nil
	}
	it := g.Item(target.ItemID)
	if it == nil || it.Kind != KindLoose {
		return nil
	}
	if g.StackOf(player) != nil {
		return nil
	}
	switch drag.Origin {
	case OriginHand:
		if g.handIndex(player, drag.Card) < 0 || g.stagedFromHand[player] >= 1 {
			return nil
		}
	case OriginTable:
		src := g.Item(drag.ItemID)
		if src == nil || src.Kind != KindLoose || src.ID == it.ID {
			return nil
		}
	case OriginOwnCaptures:
		if top, ok := g.captureTop(player); !ok || top != drag.Card {
			return nil
		}
	case OriginOpponentCaptures:
		if top, ok := g.captureTop(Opponent(player)); !ok || top != drag.Card {
			return nil
		}
	}
	sameValue := drag.Card.Value() == it.Loose.Value()
	if !stagePairViable(g, player, drag, it, sameValue) {
		return nil
	}
	return []Candidate{{
		Type:      ActionStageCreate,
		Card:      drag.Card,
		Origin:    drag.Origin,
		DraggedID: drag.ItemID,
		TargetIDs: []int{it.ID},
	}}
}

// stagePairViable reports whether staging the dragged card on the loose
// target can still produce a capturable build. When strict is set (the
// same-value contact case), at least one finalization option must already
// be covered by the hand; otherwise a pair that still has room to grow
// (running sum within the build cap) is also allowed.
func stagePairViable(g *GameState, player int, drag DraggedItem, loose *TableItem, strict bool) bool {
	if g.StackOf(player) != nil {
		return false
	}
	if drag.Origin == OriginHand && g.stagedFromHand[player] >= 1 {
		return false
	}
	values := []int{loose.Loose.Value(), drag.Card.Value()}
	origins := []Origin{OriginTable, drag.Origin}
	remaining := handExcluding(g, player, drag)
	opts := stageOptionsFor(values, origins, remaining)
	if len(opts) > 0 {
		return true
	}
	if strict {
		return false
	}
	return values[0]+values[1] <= maxBuildValue
}

// stageOptionsFor filters the calculator's interpretations down to the
// values the given hand can still capture.
func stageOptionsFor(values []int, origins []Origin, hand []Card) []Classification {
	var out []Classification
	for _, cls := range classifyAll(values, origins) {
		for _, c := range hand {
			if c.Value() == cls.Value {
				out = append(out, cls)
				break
			}
		}
	}
	return out
}

// ruleBuildOvertake: dragging an opponent's build onto the player's own
// build of exactly equal value captures both.
func ruleBuildOvertake(g *GameState, player int, drag DraggedItem, target DropTarget) []Candidate {
	if target.Kind != TargetBuild || drag.Origin != OriginTable {
		return nil
	}
	dragged := g.Item(drag.ItemID)
	own := g.Item(target.ItemID)
	if dragged == nil || own == nil || dragged.ID == own.ID {
		return nil
	}
	if dragged.Kind != KindBuild || dragged.Build.Owner == player {
		return nil
	}
	if own.Kind != KindBuild || own.Build.Owner != player {
		return nil
	}
	if dragged.Build.Value != own.Build.Value {
		return nil
	}
	return []Candidate{{
		Type:      ActionBuildOvertake,
		Card:      drag.Card,
		Origin:    OriginTable,
		DraggedID: dragged.ID,
		TargetIDs: []int{own.ID},
		Value:     own.Build.Value,
	}}
}

// ruleTrail: the fallback. Only offered when nothing else applies, the card
// would not duplicate a loose table value, and the player is not committed
// to a round-1 build or an open stack.
func ruleTrail(g *GameState, player int, drag DraggedItem, target DropTarget) []Candidate {
	if target.Kind != TargetTable || drag.Origin != OriginHand {
		return nil
	}
	if g.handIndex(player, drag.Card) < 0 {
		return nil
	}
	for i := range g.Table {
		if g.Table[i].Kind == KindLoose && g.Table[i].Loose.Value() == drag.Card.Value() {
			return nil
		}
	}
	if g.Round == 1 && g.buildOf(player) != nil {
		return nil
	}
	if g.StackOf(player) != nil {
		return nil
	}
	return []Candidate{{
		Type:   ActionTrail,
		Card:   drag.Card,
		Origin: OriginHand,
	}}
}

// ---------------------------------------------------------------------------
// Shared hand helpers
// ---------------------------------------------------------------------------

// handHoldsValueExcept reports whether the player's hand, minus one instance
// of except, holds a card of the given value.
func handHoldsValueExcept(g *GameState, player, value int, except Card) bool {
	skipped := false
	for _, c := range g.Hands[player] {
		if !skipped && c == except {
			skipped = true
			continue
		}
		if c.Value() == value {
			return true
		}
	}
	return false
}

// handExcluding returns the player's hand minus the dragged card when it was
// picked from the hand.
func handExcluding(g *GameState, player int, drag DraggedItem) []Card {
	if drag.Origin != OriginHand {
		return g.Hands[player]
	}
	out := make([]Card, 0, len(g.Hands[player]))
	skipped := false
	for _, c := range g.Hands[player] {
		if !skipped && c == drag.Card {
			skipped = true
			continue
		}
		out = append(out, c)
	}
	return out
}
