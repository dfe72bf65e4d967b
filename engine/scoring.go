package engine

// Point values for the fixed scoring table.
const (
	pointsBigTen     = 2 // ten of diamonds
	pointsLittleTwo  = 1 // two of spades
	pointsPerAce     = 1
	pointsSpades     = 2 // majority of spades, six or more
	pointsCards      = 2 // twenty-one or more cards
	spadesThreshold  = 6
	cardsThreshold   = 21
	cardsSplitPoints = 1 // each, when both piles hold exactly twenty
)

// PileScore scores one capture pile in isolation. The card-majority bonus
// for a 20/20 split is handled by FinalScores since it needs both piles.
func PileScore(pile []Card) int {
	score := 0
	spades := 0
	for _, c := range pile {
		switch {
		case c.Rank == RankTen && c.Suit == SuitDiamonds:
			score += pointsBigTen
		case c.Rank == RankTwo && c.Suit == SuitSpades:
			score += pointsLittleTwo
		case c.Rank == RankAce:
			score += pointsPerAce
		}
		if c.Suit == SuitSpades {
			spades++
		}
	}
	if spades >= spadesThreshold {
		score += pointsSpades
	}
	if len(pile) >= cardsThreshold {
		score += pointsCards
	}
	return score
}

// FinalScores scores both capture piles, splitting the card-majority bonus
// when the full deck divided evenly.
func (g *GameState) FinalScores() [NumPlayers]int {
	var scores [NumPlayers]int
	for p := 0; p < NumPlayers; p++ {
		scores[p] = PileScore(g.Captures[p])
	}
	if len(g.Captures[0]) == DeckSize/2 && len(g.Captures[1]) == DeckSize/2 {
		for p := 0; p < NumPlayers; p++ {
			scores[p] += cardsSplitPoints
		}
	}
	return scores
}
