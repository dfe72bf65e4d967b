package engine

import "testing"

func card(rank uint8, suit Suit) Card { return Card{Rank: rank, Suit: suit} }

func loose(c Card) TableItem { return TableItem{Kind: KindLoose, Loose: c} }

func build(owner, value int, extendable bool, cards ...Card) TableItem {
	return TableItem{Kind: KindBuild, Build: Build{
		Cards: cards, Value: value, Owner: owner, Extendable: extendable,
	}}
}

// testGame assembles a mid-game state from explicit hands and table items.
// Every card not placed goes to the deck so the conservation check holds.
func testGame(t *testing.T, hands [NumPlayers][]Card, table []TableItem) *GameState {
	t.Helper()
	g := &GameState{
		Round:        1,
		Winner:       NoPlayer,
		LastCapturer: NoPlayer,
		Hands:        hands,
		nextItemID:   1,
	}
	for i := range table {
		table[i].ID = g.newItemID()
	}
	g.Table = table

	used := make(map[Card]bool, DeckSize)
	mark := func(cards []Card) {
		for _, c := range cards {
			if used[c] {
				t.Fatalf("card %s placed twice", c)
			}
			used[c] = true
		}
	}
	for p := 0; p < NumPlayers; p++ {
		mark(g.Hands[p])
	}
	for i := range g.Table {
		mark(g.Table[i].cards())
	}
	for suit := SuitClubs; suit <= SuitSpades; suit++ {
		for rank := RankAce; rank <= RankTen; rank++ {
			c := Card{Rank: rank, Suit: suit}
			if !used[c] {
				g.Deck = append(g.Deck, c)
			}
		}
	}
	if err := g.CheckConservation(); err != nil {
		t.Fatalf("test state not conserved: %v", err)
	}
	return g
}

func mustApply(t *testing.T, g *GameState, player int, c Candidate) {
	t.Helper()
	if err := g.Apply(player, c); err != nil {
		t.Fatalf("Apply(%v): %v", c.Type, err)
	}
}

func soleCandidate(t *testing.T, ev Evaluation, want ActionType) Candidate {
	t.Helper()
	if len(ev.Candidates) != 1 {
		t.Fatalf("got %d candidates, want 1: %+v", len(ev.Candidates), ev.Candidates)
	}
	if ev.Candidates[0].Type != want {
		t.Fatalf("candidate type = %v, want %v", ev.Candidates[0].Type, want)
	}
	return ev.Candidates[0]
}
