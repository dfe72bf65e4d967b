package engine

// CheckConservation verifies that every one of the forty cards exists in
// exactly one place across the deck, hands, table and capture piles. It is
// run after every committed action; a failure means internal corruption and
// is surfaced as a desync, never a player error.
func (g *GameState) CheckConservation() error {
	seen := make(map[Card]int, DeckSize)
	count := func(cards []Card) {
		for _, c := range cards {
			seen[c]++
		}
	}
	count(g.Deck)
	for p := 0; p < NumPlayers; p++ {
		count(g.Hands[p])
		count(g.Captures[p])
	}
	for i := range g.Table {
		count(g.Table[i].cards())
	}
	total := 0
	for c, n := range seen {
		if n != 1 {
			return desyncErr("card %s appears %d times", c, n)
		}
		total++
	}
	if total != DeckSize {
		return desyncErr("%d distinct cards in play, want %d", total, DeckSize)
	}
	return nil
}
