package engine

// afterAction runs turn and round bookkeeping once a handler has committed.
// Staging moves keep the turn with the acting player. Trail and finalize
// always end the turn; captures and build actions end it only once the
// acting player has no legal move left.
func (g *GameState) afterAction(c Candidate) {
	switch c.Type {
	case ActionStageCreate, ActionStageAdd, ActionStageCancel:
		return
	}
	if g.handsEmpty() {
		if g.Round == 1 && len(g.Deck) >= NumPlayers*HandSize {
			g.dealRound2()
			g.TurnCounter++
			return
		}
		g.finishGame()
		return
	}
	switch c.Type {
	case ActionTrail, ActionStageFinalize:
		g.advanceTurn()
	default:
		if !g.HasLegalMove(g.CurrentPlayer) {
			g.advanceTurn()
		}
	}
}

func (g *GameState) advanceTurn() {
	cur := g.CurrentPlayer
	next := Opponent(cur)
	switch {
	// A captured staging stack can leave the hands uneven; skip a player
	// who has run out while the other still holds cards.
	case len(g.Hands[next]) == 0 && len(g.Hands[cur]) > 0:
		next = cur
	// An incoming player who holds cards but cannot act is skipped too,
	// the automatic second switch.
	case len(g.Hands[next]) > 0 && len(g.Hands[cur]) > 0 && !g.HasLegalMove(next):
		next = cur
	}
	g.CurrentPlayer = next
	g.TurnCounter++
	for p := 0; p < NumPlayers; p++ {
		g.stagedFromHand[p] = 0
	}
}

// ForfeitTurn passes the turn without playing a card. It exists for the
// timeout path: a player whose only remaining moves are staging moves has
// no committed play the service could force on their behalf.
func (g *GameState) ForfeitTurn(player int) error {
	if g.GameOver {
		return validationErr("game_over", "game is over")
	}
	if player != g.CurrentPlayer {
		return validationErr("not_your_turn", "player %d acted on player %d's turn", player, g.CurrentPlayer)
	}
	if g.StackOf(player) != nil {
		return validationErr("stack_open", "finalize or cancel the staging stack first")
	}
	g.advanceTurn()
	return nil
}

// dealRound2 replenishes both hands from the deck. The table carries over
// untouched, builds included, and the turn stays with the player who would
// have acted next.
func (g *GameState) dealRound2() {
	g.dealHands()
	g.Round = 2
	g.CurrentPlayer = Opponent(g.CurrentPlayer)
	for p := 0; p < NumPlayers; p++ {
		g.stagedFromHand[p] = 0
	}
}

// finishGame sweeps the remaining table to the last capturer, scores both
// piles and declares the winner. When nobody ever captured, the leftovers
// alternate between the players starting from player 0.
func (g *GameState) finishGame() {
	var leftovers []Card
	for i := range g.Table {
		leftovers = append(leftovers, g.Table[i].cards()...)
	}
	g.Table = nil
	if g.LastCapturer != NoPlayer {
		g.Captures[g.LastCapturer] = append(g.Captures[g.LastCapturer], leftovers...)
	} else {
		for i, card := range leftovers {
			g.Captures[i%NumPlayers] = append(g.Captures[i%NumPlayers], card)
		}
	}
	g.Scores = g.FinalScores()
	g.GameOver = true
	switch {
	case g.Scores[0] > g.Scores[1]:
		g.Winner = 0
	case g.Scores[1] > g.Scores[0]:
		g.Winner = 1
	default:
		g.Winner = g.LastCapturer
	}
}
