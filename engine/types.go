package engine

import "fmt"

// Suit constants.
type Suit uint8

const (
	SuitClubs Suit = iota
	SuitDiamonds
	SuitHearts
	SuitSpades
)

func (s Suit) String() string {
	switch s {
	case SuitClubs:
		return "C"
	case SuitDiamonds:
		return "D"
	case SuitHearts:
		return "H"
	case SuitSpades:
		return "S"
	}
	return "?"
}

// Ranks run Ace (1) through Ten (10); face cards are not part of the deck.
const (
	RankAce uint8 = 1
	RankTwo uint8 = 2
	RankTen uint8 = 10
)

// Card is an immutable value object. Equality is (Rank, Suit); every card in
// the 40-card deck is distinct.
type Card struct {
	Rank uint8
	Suit Suit
}

// Value returns the capture value of the card: Ace = 1, otherwise the face
// value.
func (c Card) Value() int { return int(c.Rank) }

func (c Card) String() string {
	if c.Rank == RankAce {
		return "A" + c.Suit.String()
	}
	return fmt.Sprintf("%d%s", c.Rank, c.Suit)
}

// Origin identifies where a dragged or staged card came from. It is recorded
// per staged card so cancellation can restore the card exactly.
type Origin uint8

const (
	OriginHand Origin = iota
	OriginTable
	OriginOwnCaptures
	OriginOpponentCaptures
)

func (o Origin) String() string {
	switch o {
	case OriginHand:
		return "hand"
	case OriginTable:
		return "table"
	case OriginOwnCaptures:
		return "own_captures"
	case OriginOpponentCaptures:
		return "opponent_captures"
	}
	return "?"
}

// ItemKind tags the TableItem union.
type ItemKind uint8

const (
	KindLoose ItemKind = iota
	KindBuild
	KindStack
)

// Build is a committed build: a group of cards on the table owned by one
// player, capturable at a declared value.
type Build struct {
	Cards      []Card
	Value      int
	Owner      int
	Extendable bool
}

// StagedCard is one card inside a temporary stack together with its recorded
// origin. TableIndex and HandIndex hold the original position for table and
// hand origin cards so cancellation can reinsert them where they were.
type StagedCard struct {
	Card       Card
	Origin     Origin
	TableIndex int
	HandIndex  int
}

// TempStack is a provisional, player-owned grouping of cards on the table
// that has not yet been committed to a build or capture.
type TempStack struct {
	Cards []StagedCard
	Owner int
}

// values returns the stack's card values in stack order.
func (s *TempStack) values() []int {
	vs := make([]int, len(s.Cards))
	for i, sc := range s.Cards {
		vs[i] = sc.Card.Value()
	}
	return vs
}

// origins returns the stack's origin tags in stack order.
func (s *TempStack) origins() []Origin {
	os := make([]Origin, len(s.Cards))
	for i, sc := range s.Cards {
		os[i] = sc.Origin
	}
	return os
}

// TableItem is the tagged union of the three table-item variants. Exactly
// one of Loose, Build or Stack is meaningful, selected by Kind. IDs are
// stable for the lifetime of the item and unique within a match.
type TableItem struct {
	ID    int
	Kind  ItemKind
	Loose Card
	Build Build
	Stack TempStack
}

// captureValue returns the value a hand card must have to capture this item,
// or 0 if the item is not currently capturable (e.g. an unpriceable stack).
func (it *TableItem) captureValue() int {
	switch it.Kind {
	case KindLoose:
		return it.Loose.Value()
	case KindBuild:
		return it.Build.Value
	case KindStack:
		cls := ClassifyValues(it.Stack.values(), it.Stack.origins())
		if !cls.Valid {
			return 0
		}
		return cls.Value
	}
	return 0
}

// cards returns every card contained in the item.
func (it *TableItem) cards() []Card {
	switch it.Kind {
	case KindLoose:
		return []Card{it.Loose}
	case KindBuild:
		return append([]Card(nil), it.Build.Cards...)
	case KindStack:
		out := make([]Card, len(it.Stack.Cards))
		for i, sc := range it.Stack.Cards {
			out[i] = sc.Card
		}
		return out
	}
	return nil
}

// TargetKind classifies what a card was dropped on.
type TargetKind uint8

const (
	TargetLoose TargetKind = iota
	TargetBuild
	TargetStack
	TargetTable // empty table area
)

// DraggedItem is the presentation layer's description of what was picked up:
// a card plus its claimed origin. ItemID references the source table item
// when Origin is OriginTable (a loose card, or a whole build for overtakes).
type DraggedItem struct {
	Card   Card
	Origin Origin
	ItemID int
}

// DropTarget is the presentation layer's description of what the dragged
// item was dropped on. ItemID is unset for TargetTable.
type DropTarget struct {
	Kind   TargetKind
	ItemID int
}
