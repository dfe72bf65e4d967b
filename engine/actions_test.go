package engine

import (
	"reflect"
	"testing"
)

// giveCaptures moves cards from the deck to a player's capture pile so tests
// can exercise capture-origin staging without replaying a whole game.
func giveCaptures(t *testing.T, g *GameState, player int, cards ...Card) {
	t.Helper()
	for _, want := range cards {
		found := false
		for i, c := range g.Deck {
			if c == want {
				g.Deck = append(g.Deck[:i], g.Deck[i+1:]...)
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("card %s not available in deck", want)
		}
		g.Captures[player] = append(g.Captures[player], want)
	}
}

func TestStagingLifecycle(t *testing.T) {
	g := testGame(t,
		[NumPlayers][]Card{
			0: {card(2, SuitSpades), card(9, SuitClubs)},
			1: {card(8, SuitHearts)},
		},
		[]TableItem{loose(card(4, SuitHearts)), loose(card(3, SuitDiamonds))},
	)

	// Open the stack with a hand card on a loose four.
	drag := DraggedItem{Card: card(2, SuitSpades), Origin: OriginHand}
	ev := g.Evaluate(0, drag, DropTarget{Kind: TargetLoose, ItemID: g.Table[0].ID})
	mustApply(t, g, 0, soleCandidate(t, ev, ActionStageCreate))

	st := g.StackOf(0)
	if st == nil || len(st.Stack.Cards) != 2 {
		t.Fatalf("expected a two-card stack, got %+v", st)
	}
	if g.CurrentPlayer != 0 {
		t.Fatal("staging must not end the turn")
	}
	if len(g.Hands[0]) != 1 {
		t.Fatalf("hand should have shrunk to 1, has %d", len(g.Hands[0]))
	}

	// A second hand card is refused.
	err := g.Apply(0, Candidate{
		Type: ActionStageAdd, Card: card(9, SuitClubs), Origin: OriginHand,
		TargetIDs: []int{st.ID},
	})
	if ErrCode(err) != "hand_limit" {
		t.Fatalf("second hand card: err = %v, want hand_limit", err)
	}

	// The loose three joins from the table.
	threeID := g.Table[1].ID
	drag = DraggedItem{Card: card(3, SuitDiamonds), Origin: OriginTable, ItemID: threeID}
	ev = g.Evaluate(0, drag, DropTarget{Kind: TargetStack, ItemID: st.ID})
	mustApply(t, g, 0, soleCandidate(t, ev, ActionStageAdd))

	st = g.StackOf(0)
	if got := st.Stack.values(); !reflect.DeepEqual(got, []int{4, 2, 3}) {
		t.Fatalf("stack values = %v, want [4 2 3]", got)
	}

	// Finalize: the only interpretation the hand supports is the sum nine.
	mustApply(t, g, 0, Candidate{Type: ActionStageFinalize})
	b := g.buildOf(0)
	if b == nil || b.Build.Value != 9 || !b.Build.Extendable {
		t.Fatalf("expected an extendable build of 9, got %+v", b)
	}
	if g.CurrentPlayer != 1 {
		t.Fatal("finalizing ends the turn")
	}
}

func TestStageCancelRestoresEverything(t *testing.T) {
	g := testGame(t,
		[NumPlayers][]Card{
			0: {card(2, SuitSpades), card(9, SuitClubs)},
			1: {card(8, SuitHearts)},
		},
		[]TableItem{loose(card(4, SuitHearts)), loose(card(3, SuitDiamonds))},
	)
	giveCaptures(t, g, 0, card(7, SuitClubs))

	wantHand := append([]Card(nil), g.Hands[0]...)
	wantValues := []int{4, 3}
	wantCaptures := append([]Card(nil), g.Captures[0]...)

	stageID := g.Table[0].ID
	mustApply(t, g, 0, Candidate{
		Type: ActionStageCreate, Card: card(2, SuitSpades), Origin: OriginHand,
		TargetIDs: []int{stageID},
	})
	st := g.StackOf(0)
	mustApply(t, g, 0, Candidate{
		Type: ActionStageAdd, Card: card(7, SuitClubs), Origin: OriginOwnCaptures,
		TargetIDs: []int{st.ID},
	})
	mustApply(t, g, 0, Candidate{Type: ActionStageCancel})

	if g.StackOf(0) != nil {
		t.Fatal("stack still open after cancel")
	}
	// The hand must come back in its original order, not just size.
	if !reflect.DeepEqual(g.Hands[0], wantHand) {
		t.Errorf("hand = %v, want %v", g.Hands[0], wantHand)
	}
	var gotValues []int
	for i := range g.Table {
		if g.Table[i].Kind != KindLoose {
			t.Fatalf("non-loose item after cancel: %+v", g.Table[i])
		}
		gotValues = append(gotValues, g.Table[i].Loose.Value())
	}
	if !reflect.DeepEqual(gotValues, wantValues) {
		t.Errorf("table values = %v, want %v", gotValues, wantValues)
	}
	if !reflect.DeepEqual(g.Captures[0], wantCaptures) {
		t.Errorf("captures = %v, want %v", g.Captures[0], wantCaptures)
	}
	// The returned hand card frees the per-turn hand allowance again.
	if g.stagedFromHand[0] != 0 {
		t.Errorf("stagedFromHand = %d, want 0", g.stagedFromHand[0])
	}
}

func TestStageFinalizeChoiceRequired(t *testing.T) {
	// A pair of twos with both a two and a four in hand resolves two ways.
	g := testGame(t,
		[NumPlayers][]Card{
			0: {card(2, SuitSpades), card(2, SuitDiamonds), card(4, SuitClubs)},
			1: {card(8, SuitHearts)},
		},
		[]TableItem{loose(card(2, SuitHearts))},
	)
	mustApply(t, g, 0, Candidate{
		Type: ActionStageCreate, Card: card(2, SuitSpades), Origin: OriginHand,
		TargetIDs: []int{g.Table[0].ID},
	})

	opts := g.StageOptions(0)
	if len(opts) != 2 {
		t.Fatalf("StageOptions = %+v, want face value and sum", opts)
	}
	err := g.Apply(0, Candidate{Type: ActionStageFinalize})
	if ErrCode(err) != "choice_required" {
		t.Fatalf("ambiguous finalize: err = %v, want choice_required", err)
	}

	mustApply(t, g, 0, Candidate{Type: ActionStageFinalize, Value: 4})
	b := g.buildOf(0)
	if b == nil || b.Build.Value != 4 {
		t.Fatalf("expected a build of 4, got %+v", b)
	}
	if !b.Build.Extendable {
		t.Error("a sum resolution produces an extendable build")
	}
}

func TestStageFinalizeBaseValueWithCaptureCard(t *testing.T) {
	g := testGame(t,
		[NumPlayers][]Card{
			0: {card(1, SuitSpades), card(4, SuitDiamonds)},
			1: {card(8, SuitHearts)},
		},
		[]TableItem{loose(card(3, SuitHearts))},
	)
	giveCaptures(t, g, 0, card(4, SuitClubs))

	mustApply(t, g, 0, Candidate{
		Type: ActionStageCreate, Card: card(1, SuitSpades), Origin: OriginHand,
		TargetIDs: []int{g.Table[0].ID},
	})
	st := g.StackOf(0)
	mustApply(t, g, 0, Candidate{
		Type: ActionStageAdd, Card: card(4, SuitClubs), Origin: OriginOwnCaptures,
		TargetIDs: []int{st.ID},
	})
	// [3 1 4] with the four from captures is a base-value build of 4; the
	// sum 8 has no capture card so only the base survives.
	opts := g.StageOptions(0)
	if len(opts) != 1 || opts[0].Value != 4 || opts[0].Kind != BuildBaseValue {
		t.Fatalf("StageOptions = %+v, want a single base-value 4", opts)
	}
	mustApply(t, g, 0, Candidate{Type: ActionStageFinalize})
	b := g.buildOf(0)
	if b == nil || b.Build.Value != 4 {
		t.Fatalf("expected a build of 4, got %+v", b)
	}
	if b.Build.Extendable {
		t.Error("base-value builds must not be extendable")
	}
}

func TestStageFinalizeNeedsHandAndTableCard(t *testing.T) {
	g := testGame(t,
		[NumPlayers][]Card{
			0: {card(6, SuitSpades), card(2, SuitDiamonds)},
			1: {card(8, SuitHearts)},
		},
		[]TableItem{loose(card(4, SuitHearts)), loose(card(2, SuitClubs))},
	)
	// Stack built purely from table cards.
	mustApply(t, g, 0, Candidate{
		Type: ActionStageCreate, Card: card(2, SuitClubs), Origin: OriginTable,
		DraggedID: g.Table[1].ID, TargetIDs: []int{g.Table[0].ID},
	})
	err := g.Apply(0, Candidate{Type: ActionStageFinalize})
	if ErrCode(err) != "stack_composition" {
		t.Fatalf("err = %v, want stack_composition", err)
	}
}

func TestBuildOvertake(t *testing.T) {
	g := testGame(t,
		[NumPlayers][]Card{
			0: {card(6, SuitSpades)},
			1: {card(6, SuitHearts)},
		},
		[]TableItem{
			build(0, 6, true, card(2, SuitClubs), card(4, SuitClubs)),
			build(1, 6, true, card(1, SuitDiamonds), card(5, SuitDiamonds)),
		},
	)
	oppID := g.Table[1].ID
	ownID := g.Table[0].ID
	drag := DraggedItem{Card: card(1, SuitDiamonds), Origin: OriginTable, ItemID: oppID}
	ev := g.Evaluate(0, drag, DropTarget{Kind: TargetBuild, ItemID: ownID})
	c := soleCandidate(t, ev, ActionBuildOvertake)
	mustApply(t, g, 0, c)

	if len(g.Table) != 0 {
		t.Fatalf("table should be empty, has %d items", len(g.Table))
	}
	if len(g.Captures[0]) != 4 {
		t.Fatalf("capture pile holds %d cards, want 4", len(g.Captures[0]))
	}
	if g.LastCapturer != 0 {
		t.Errorf("LastCapturer = %d, want 0", g.LastCapturer)
	}
	// The six in hand can still trail onto the now-empty table.
	if g.CurrentPlayer != 0 {
		t.Errorf("CurrentPlayer = %d, want 0 while a move remains", g.CurrentPlayer)
	}
}

func TestApplyRejectsOutOfTurn(t *testing.T) {
	g := testGame(t,
		[NumPlayers][]Card{
			0: {card(6, SuitSpades)},
			1: {card(8, SuitHearts)},
		},
		nil,
	)
	err := g.Apply(1, Candidate{Type: ActionTrail, Card: card(8, SuitHearts), Origin: OriginHand})
	if ErrCode(err) != "not_your_turn" {
		t.Fatalf("err = %v, want not_your_turn", err)
	}
}

func TestApplyRestoresStateOnError(t *testing.T) {
	g := testGame(t,
		[NumPlayers][]Card{
			0: {card(6, SuitSpades), card(3, SuitClubs)},
			1: {card(8, SuitHearts)},
		},
		[]TableItem{loose(card(4, SuitHearts))},
	)
	before := g.Clone()
	// Capture with a mismatched value must fail and change nothing.
	err := g.Apply(0, Candidate{
		Type: ActionCapture, Card: card(6, SuitSpades), Origin: OriginHand,
		TargetIDs: []int{g.Table[0].ID},
	})
	if ErrCode(err) != "value_mismatch" {
		t.Fatalf("err = %v, want value_mismatch", err)
	}
	if !reflect.DeepEqual(g.Hands, before.Hands) || !reflect.DeepEqual(g.Table, before.Table) {
		t.Error("failed apply mutated the state")
	}
	if g.TurnCounter != before.TurnCounter {
		t.Error("failed apply advanced the turn")
	}
}

func TestCommittedPlayBlockedWhileStackOpen(t *testing.T) {
	g := testGame(t,
		[NumPlayers][]Card{
			0: {card(2, SuitSpades), card(9, SuitClubs), card(9, SuitDiamonds)},
			1: {card(8, SuitHearts)},
		},
		[]TableItem{loose(card(4, SuitHearts)), loose(card(9, SuitHearts))},
	)
	mustApply(t, g, 0, Candidate{
		Type: ActionStageCreate, Card: card(2, SuitSpades), Origin: OriginHand,
		TargetIDs: []int{g.Table[0].ID},
	})
	err := g.Apply(0, Candidate{
		Type: ActionCapture, Card: card(9, SuitClubs), Origin: OriginHand,
		TargetIDs: []int{g.Table[1].ID},
	})
	if ErrCode(err) != "stack_open" {
		t.Fatalf("err = %v, want stack_open", err)
	}
}
