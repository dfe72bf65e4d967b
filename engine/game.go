// Package engine implements the two-player Casino rules.
//
// The package is self-contained and dependency-free: it owns the card and
// table model, the build value calculator, the prioritized rule evaluation
// table, the action handlers, the turn/round controller and the scoring
// engine. All mutation goes through ApplyCandidate; callers (the service
// adapter) are responsible for serializing access to a GameState.
package engine

const (
	NumPlayers = 2
	DeckSize   = 40
	HandSize   = 10

	// NoPlayer marks an unset player index (no capture yet, no winner yet).
	NoPlayer = -1
)

// GameState holds the complete, self-contained state of one Casino match.
// It is created once per match, mutated exclusively through action handlers
// under the turn/round controller, and retired when GameOver is set.
type GameState struct {
	Deck     []Card
	Hands    [NumPlayers][]Card
	Table    []TableItem
	Captures [NumPlayers][]Card

	CurrentPlayer int
	Round         int
	TurnCounter   int
	Scores        [NumPlayers]int
	GameOver      bool
	Winner        int // NoPlayer until the match resolves
	LastCapturer  int // NoPlayer until the first capture

	// stagedFromHand counts hand-origin cards each player has contributed to
	// staging stacks this turn. Reset on every turn switch.
	stagedFromHand [NumPlayers]int

	nextItemID int
	rng        uint64
}

// ---------------------------------------------------------------------------
// xorshift64 RNG
// ---------------------------------------------------------------------------

func (g *GameState) nextRand() uint64 {
	x := g.rng
	x ^= x << 13
	x ^= x >> 7
	x ^= x << 17
	g.rng = x
	return x
}

// randN returns a random number in [0, n).
func (g *GameState) randN(n uint64) uint64 {
	return g.nextRand() % n
}

// ---------------------------------------------------------------------------
// NewGame and Deal
// ---------------------------------------------------------------------------

// NewGame initializes a GameState with the given seed. The deck is built but
// not yet shuffled or dealt.
func NewGame(seed uint64) *GameState {
	g := &GameState{
		rng:          seed,
		Winner:       NoPlayer,
		LastCapturer: NoPlayer,
		nextItemID:   1,
	}
	if g.rng == 0 {
		g.rng = 1 // xorshift can't start at 0
	}

	g.Deck = make([]Card, 0, DeckSize)
	for suit := SuitClubs; suit <= SuitSpades; suit++ {
		for rank := RankAce; rank <= RankTen; rank++ {
			g.Deck = append(g.Deck, Card{Rank: rank, Suit: suit})
		}
	}
	return g
}

// Deal shuffles the deck and deals the round-1 hands. The table starts
// empty; cards reach it only by trailing.
func (g *GameState) Deal() {
	// Fisher-Yates shuffle.
	for i := len(g.Deck) - 1; i > 0; i-- {
		j := int(g.randN(uint64(i + 1)))
		g.Deck[i], g.Deck[j] = g.Deck[j], g.Deck[i]
	}

	g.Round = 1
	g.dealHands()
	g.CurrentPlayer = int(g.randN(NumPlayers))
}

// dealHands pops HandSize cards per player off the deck, alternating.
func (g *GameState) dealHands() {
	for c := 0; c < HandSize; c++ {
		for p := 0; p < NumPlayers; p++ {
			card := g.Deck[len(g.Deck)-1]
			g.Deck = g.Deck[:len(g.Deck)-1]
			g.Hands[p] = append(g.Hands[p], card)
		}
	}
}

// ---------------------------------------------------------------------------
// Query helpers
// ---------------------------------------------------------------------------

// Opponent returns the other player's index.
func Opponent(player int) int { return 1 - player }

// itemIndex returns the table index of the item with the given id, or -1.
func (g *GameState) itemIndex(id int) int {
	for i := range g.Table {
		if g.Table[i].ID == id {
			return i
		}
	}
	return -1
}

// Item returns the table item with the given id, or nil.
func (g *GameState) Item(id int) *TableItem {
	if i := g.itemIndex(id); i >= 0 {
		return &g.Table[i]
	}
	return nil
}

// StackOf returns the player's open staging stack, or nil. At most one
// exists per player at any time.
func (g *GameState) StackOf(player int) *TableItem {
	for i := range g.Table {
		if g.Table[i].Kind == KindStack && g.Table[i].Stack.Owner == player {
			return &g.Table[i]
		}
	}
	return nil
}

// buildOf returns the player's active build, or nil.
func (g *GameState) buildOf(player int) *TableItem {
	for i := range g.Table {
		if g.Table[i].Kind == KindBuild && g.Table[i].Build.Owner == player {
			return &g.Table[i]
		}
	}
	return nil
}

// handIndex returns the index of card in player's hand, or -1.
func (g *GameState) handIndex(player int, card Card) int {
	for i, c := range g.Hands[player] {
		if c == card {
			return i
		}
	}
	return -1
}

// captureTop returns the top card of a capture pile, or false if empty.
func (g *GameState) captureTop(player int) (Card, bool) {
	pile := g.Captures[player]
	if len(pile) == 0 {
		return Card{}, false
	}
	return pile[len(pile)-1], true
}

// handsEmpty reports whether both hands are exhausted.
func (g *GameState) handsEmpty() bool {
	return len(g.Hands[0]) == 0 && len(g.Hands[1]) == 0
}

// newItemID mints a fresh stable table-item handle.
func (g *GameState) newItemID() int {
	id := g.nextItemID
	g.nextItemID++
	return id
}

// removeItemAt deletes the table item at index i, preserving order.
func (g *GameState) removeItemAt(i int) {
	g.Table = append(g.Table[:i], g.Table[i+1:]...)
}

// insertItemAt inserts it at index i, appending when i is out of range.
func (g *GameState) insertItemAt(i int, it TableItem) {
	if i < 0 || i > len(g.Table) {
		i = len(g.Table)
	}
	g.Table = append(g.Table, TableItem{})
	copy(g.Table[i+1:], g.Table[i:])
	g.Table[i] = it
}

// ---------------------------------------------------------------------------
// Clone
// ---------------------------------------------------------------------------

// Clone returns a deep copy of the state. Handlers run against the live
// state; Apply restores from a clone on any failure so no handler ever
// leaves state partially mutated.
func (g *GameState) Clone() *GameState {
	c := *g
	c.Deck = append([]Card(nil), g.Deck...)
	for p := 0; p < NumPlayers; p++ {
		c.Hands[p] = append([]Card(nil), g.Hands[p]...)
		c.Captures[p] = append([]Card(nil), g.Captures[p]...)
	}
	c.Table = make([]TableItem, len(g.Table))
	for i, it := range g.Table {
		cp := it
		cp.Build.Cards = append([]Card(nil), it.Build.Cards...)
		cp.Stack.Cards = append([]StagedCard(nil), it.Stack.Cards...)
		c.Table[i] = cp
	}
	return &c
}
