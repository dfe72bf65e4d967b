package engine

// Apply executes one candidate action for the given player. Every handler is
// all-or-nothing: the state is snapshotted first and restored wholesale on
// any error, so a failed move can never leave a half-applied table. A
// conservation failure after a handler is a desync and also restores.
func (g *GameState) Apply(player int, c Candidate) error {
	if g.GameOver {
		return validationErr("game_over", "game is over")
	}
	if player != g.CurrentPlayer {
		return validationErr("not_your_turn", "player %d acted on player %d's turn", player, g.CurrentPlayer)
	}
	if g.StackOf(player) != nil && !isStageAction(c.Type) {
		return validationErr("stack_open", "finalize or cancel the staging stack first")
	}

	snapshot := g.Clone()
	var err error
	switch c.Type {
	case ActionCapture:
		err = g.applyCapture(player, c)
	case ActionBuildCreate:
		err = g.applyBuildCreate(player, c)
	case ActionBuildExtend:
		err = g.applyBuildExtend(player, c)
	case ActionBuildOvertake:
		err = g.applyBuildOvertake(player, c)
	case ActionStageCreate:
		err = g.applyStageCreate(player, c)
	case ActionStageAdd:
		err = g.applyStageAdd(player, c)
	case ActionStageFinalize:
		err = g.applyStageFinalize(player, c)
	case ActionStageCancel:
		err = g.applyStageCancel(player)
	case ActionTrail:
		err = g.applyTrail(player, c)
	default:
		err = validationErr("unknown_action", "unknown action type %d", c.Type)
	}
	if err != nil {
		*g = *snapshot
		return err
	}
	if cerr := g.CheckConservation(); cerr != nil {
		*g = *snapshot
		return cerr
	}
	g.afterAction(c)
	return nil
}

func isStageAction(t ActionType) bool {
	switch t {
	case ActionStageAdd, ActionStageFinalize, ActionStageCancel:
		return true
	}
	return false
}

// ---------------------------------------------------------------------------
// Handlers
// ---------------------------------------------------------------------------

func (g *GameState) applyCapture(player int, c Candidate) error {
	hi := g.handIndex(player, c.Card)
	if hi < 0 {
		return validationErr("card_not_in_hand", "%s is not in hand", c.Card)
	}
	v := c.Card.Value()
	if len(c.TargetIDs) == 0 {
		return validationErr("no_targets", "capture needs at least one target")
	}
	var taken []Card
	for _, id := range c.TargetIDs {
		it := g.Item(id)
		if it == nil {
			return validationErr("bad_target", "table item %d does not exist", id)
		}
		if it.Kind == KindStack && it.Stack.Owner == player {
			return validationErr("bad_target", "cannot capture own staging stack")
		}
		if it.captureValue() != v {
			return validationErr("value_mismatch", "%s cannot capture item worth %d", c.Card, it.captureValue())
		}
		if it.Kind == KindStack {
			// Taking an opponent's stack swallows whatever they staged,
			// including any hand card committed to it.
			g.stagedFromHand[it.Stack.Owner] = 0
		}
		taken = append(taken, it.cards()...)
	}
	for _, id := range c.TargetIDs {
		g.removeItemAt(g.itemIndex(id))
	}
	g.Hands[player] = append(g.Hands[player][:hi], g.Hands[player][hi+1:]...)
	g.Captures[player] = append(g.Captures[player], taken...)
	g.Captures[player] = append(g.Captures[player], c.Card) // capture card ends on top
	g.LastCapturer = player
	return nil
}

func (g *GameState) applyBuildCreate(player int, c Candidate) error {
	hi := g.handIndex(player, c.Card)
	if hi < 0 {
		return validationErr("card_not_in_hand", "%s is not in hand", c.Card)
	}
	if len(c.TargetIDs) != 1 {
		return validationErr("bad_target", "build needs exactly one loose target")
	}
	idx := g.itemIndex(c.TargetIDs[0])
	if idx < 0 || g.Table[idx].Kind != KindLoose {
		return validationErr("bad_target", "build target must be a loose card")
	}
	loose := g.Table[idx].Loose
	sum := c.Card.Value() + loose.Value()
	if c.Card.Value() == loose.Value() {
		return validationErr("equal_values", "equal cards pair through staging, not a direct build")
	}
	if sum > maxBuildValue {
		return validationErr("build_too_high", "build value %d exceeds %d", sum, maxBuildValue)
	}
	if g.buildOf(player) != nil {
		return validationErr("build_exists", "player already owns a build")
	}
	if opp := g.buildOf(Opponent(player)); opp != nil && opp.Build.Value == sum {
		return validationErr("duplicate_build_value", "opponent already has a build of %d", sum)
	}
	if !handHoldsValueExcept(g, player, sum, c.Card) {
		return validationErr("no_capture_card", "hand holds no %d to capture the build", sum)
	}
	g.Hands[player] = append(g.Hands[player][:hi], g.Hands[player][hi+1:]...)
	g.removeItemAt(idx)
	g.insertItemAt(idx, TableItem{
		ID:   g.newItemID(),
		Kind: KindBuild,
		Build: Build{
			Cards:      []Card{loose, c.Card},
			Value:      sum,
			Owner:      player,
			Extendable: true,
		},
	})
	return nil
}

func (g *GameState) applyBuildExtend(player int, c Candidate) error {
	hi := g.handIndex(player, c.Card)
	if hi < 0 {
		return validationErr("card_not_in_hand", "%s is not in hand", c.Card)
	}
	if len(c.TargetIDs) != 1 {
		return validationErr("bad_target", "extend needs exactly one build target")
	}
	idx := g.itemIndex(c.TargetIDs[0])
	if idx < 0 || g.Table[idx].Kind != KindBuild {
		return validationErr("bad_target", "extend target must be a build")
	}
	b := &g.Table[idx].Build
	if b.Owner == player {
		return validationErr("own_build", "cannot extend your own build")
	}
	if !b.Extendable {
		return validationErr("not_extendable", "build of %d cannot be raised", b.Value)
	}
	if g.buildOf(player) != nil {
		return validationErr("build_exists", "player already owns a build")
	}
	newTotal := b.Value + c.Card.Value()
	if newTotal > maxBuildValue {
		return validationErr("build_too_high", "raised value %d exceeds %d", newTotal, maxBuildValue)
	}
	if !handHoldsValueExcept(g, player, newTotal, c.Card) {
		return validationErr("no_capture_card", "hand holds no %d to capture the raised build", newTotal)
	}
	g.Hands[player] = append(g.Hands[player][:hi], g.Hands[player][hi+1:]...)
	b.Cards = append(b.Cards, c.Card)
	b.Value = newTotal
	b.Owner = player // raising a build claims it
	return nil
}

func (g *GameState) applyBuildOvertake(player int, c Candidate) error {
	if len(c.TargetIDs) != 1 {
		return validationErr("bad_target", "overtake needs exactly one own-build target")
	}
	dragIdx := g.itemIndex(c.DraggedID)
	ownIdx := g.itemIndex(c.TargetIDs[0])
	if dragIdx < 0 || ownIdx < 0 || dragIdx == ownIdx {
		return validationErr("bad_target", "overtake needs two distinct builds")
	}
	dragged := &g.Table[dragIdx]
	own := &g.Table[ownIdx]
	if dragged.Kind != KindBuild || dragged.Build.Owner == player {
		return validationErr("bad_target", "dragged item must be an opponent build")
	}
	if own.Kind != KindBuild || own.Build.Owner != player {
		return validationErr("bad_target", "drop target must be your own build")
	}
	if dragged.Build.Value != own.Build.Value {
		return validationErr("value_mismatch", "builds of %d and %d cannot merge", dragged.Build.Value, own.Build.Value)
	}
	taken := append(append([]Card{}, own.Build.Cards...), dragged.Build.Cards...)
	// Remove the higher index first so the lower one stays valid.
	hi, lo := dragIdx, ownIdx
	if lo > hi {
		hi, lo = lo, hi
	}
	g.removeItemAt(hi)
	g.removeItemAt(lo)
	g.Captures[player] = append(g.Captures[player], taken...)
	g.LastCapturer = player
	return nil
}

func (g *GameState) applyStageCreate(player int, c Candidate) error {
	if g.StackOf(player) != nil {
		return validationErr("stack_exists", "player already has a staging stack")
	}
	if len(c.TargetIDs) != 1 {
		return validationErr("bad_target", "staging starts on exactly one loose card")
	}
	idx := g.itemIndex(c.TargetIDs[0])
	if idx < 0 || g.Table[idx].Kind != KindLoose {
		return validationErr("bad_target", "staging target must be a loose card")
	}
	bottom := StagedCard{Card: g.Table[idx].Loose, Origin: OriginTable, TableIndex: idx}
	second, err := g.takeForStaging(player, c)
	if err != nil {
		return err
	}
	// Re-resolve: removing a table-origin dragged card may have shifted the
	// target's index.
	idx = g.itemIndex(c.TargetIDs[0])
	g.removeItemAt(idx)
	g.insertItemAt(idx, TableItem{
		ID:    g.newItemID(),
		Kind:  KindStack,
		Stack: TempStack{Cards: []StagedCard{bottom, second}, Owner: player},
	})
	return nil
}

func (g *GameState) applyStageAdd(player int, c Candidate) error {
	st := g.StackOf(player)
	if st == nil {
		return validationErr("no_stack", "player has no staging stack")
	}
	if len(c.TargetIDs) != 1 || c.TargetIDs[0] != st.ID {
		return validationErr("bad_target", "stage-add must target the open stack")
	}
	staged, err := g.takeForStaging(player, c)
	if err != nil {
		return err
	}
	st = g.StackOf(player) // table may have shifted
	st.Stack.Cards = append(st.Stack.Cards, staged)
	return nil
}

// takeForStaging removes the dragged card from its origin and returns the
// staged record. The hand contributes at most one card per turn.
func (g *GameState) takeForStaging(player int, c Candidate) (StagedCard, error) {
	switch c.Origin {
	case OriginHand:
		if g.stagedFromHand[player] >= 1 {
			return StagedCard{}, validationErr("hand_limit", "only one hand card may be staged per turn")
		}
		hi := g.handIndex(player, c.Card)
		if hi < 0 {
			return StagedCard{}, validationErr("card_not_in_hand", "%s is not in hand", c.Card)
		}
		g.Hands[player] = append(g.Hands[player][:hi], g.Hands[player][hi+1:]...)
		g.stagedFromHand[player]++
		return StagedCard{Card: c.Card, Origin: OriginHand, HandIndex: hi}, nil
	case OriginTable:
		idx := g.itemIndex(c.DraggedID)
		if idx < 0 || g.Table[idx].Kind != KindLoose {
			return StagedCard{}, validationErr("bad_target", "only loose table cards can be staged")
		}
		card := g.Table[idx].Loose
		if card != c.Card {
			return StagedCard{}, validationErr("card_mismatch", "table item %d is not %s", c.DraggedID, c.Card)
		}
		g.removeItemAt(idx)
		return StagedCard{Card: card, Origin: OriginTable, TableIndex: idx}, nil
	case OriginOwnCaptures, OriginOpponentCaptures:
		owner := player
		if c.Origin == OriginOpponentCaptures {
			owner = Opponent(player)
		}
		top, ok := g.captureTop(owner)
		if !ok || top != c.Card {
			return StagedCard{}, validationErr("card_not_on_top", "%s is not on top of the capture pile", c.Card)
		}
		g.Captures[owner] = g.Captures[owner][:len(g.Captures[owner])-1]
		return StagedCard{Card: top, Origin: c.Origin}, nil
	}
	return StagedCard{}, validationErr("bad_origin", "unknown drag origin %d", c.Origin)
}

// StageOptions lists the valid finalization values for the player's open
// stack: each calculator interpretation the remaining hand can capture,
// minus any value blocked by an opponent build.
func (g *GameState) StageOptions(player int) []Classification {
	st := g.StackOf(player)
	if st == nil {
		return nil
	}
	opts := stageOptionsFor(st.Stack.values(), st.Stack.origins(), g.Hands[player])
	opp := g.buildOf(Opponent(player))
	if opp == nil {
		return opts
	}
	out := opts[:0]
	for _, o := range opts {
		if o.Value != opp.Build.Value {
			out = append(out, o)
		}
	}
	return out
}

func (g *GameState) applyStageFinalize(player int, c Candidate) error {
	st := g.StackOf(player)
	if st == nil {
		return validationErr("no_stack", "player has no staging stack")
	}
	var fromHand, fromTable int
	for _, sc := range st.Stack.Cards {
		switch sc.Origin {
		case OriginHand:
			fromHand++
		case OriginTable:
			fromTable++
		}
	}
	if fromHand < 1 || fromTable < 1 {
		return validationErr("stack_composition", "a stack needs at least one hand card and one table card")
	}
	if g.buildOf(player) != nil {
		return validationErr("build_exists", "player already owns a build")
	}
	opts := g.StageOptions(player)
	if len(opts) == 0 {
		return validationErr("no_valid_build", "no capturable build value for this stack")
	}
	var chosen *Classification
	if c.Value == 0 {
		if len(opts) > 1 {
			return validationErr("choice_required", "stack resolves to multiple build values")
		}
		chosen = &opts[0]
	} else {
		for i := range opts {
			if opts[i].Value == c.Value {
				chosen = &opts[i]
				break
			}
		}
		if chosen == nil {
			return validationErr("bad_value", "value %d is not a valid resolution", c.Value)
		}
	}
	idx := g.itemIndex(st.ID)
	cards := make([]Card, len(st.Stack.Cards))
	for i, sc := range st.Stack.Cards {
		cards[i] = sc.Card
	}
	g.removeItemAt(idx)
	g.insertItemAt(idx, TableItem{
		ID:   g.newItemID(),
		Kind: KindBuild,
		Build: Build{
			Cards:      cards,
			Value:      chosen.Value,
			Owner:      player,
			Extendable: chosen.Kind == BuildSum,
		},
	})
	g.stagedFromHand[player] = 0
	return nil
}

// applyStageCancel dissolves the player's stack and returns every card to
// where it came from. After the cancel the state is identical to before the
// stack was opened, apart from table item IDs.
func (g *GameState) applyStageCancel(player int) error {
	st := g.StackOf(player)
	if st == nil {
		return validationErr("no_stack", "player has no staging stack")
	}
	cards := append([]StagedCard{}, st.Stack.Cards...)
	g.removeItemAt(g.itemIndex(st.ID))
	for _, sc := range cards {
		switch sc.Origin {
		case OriginTable:
			idx := sc.TableIndex
			if idx > len(g.Table) {
				idx = len(g.Table)
			}
			g.insertItemAt(idx, TableItem{ID: g.newItemID(), Kind: KindLoose, Loose: sc.Card})
		case OriginHand:
			hi := sc.HandIndex
			if hi > len(g.Hands[player]) {
				hi = len(g.Hands[player])
			}
			g.Hands[player] = append(g.Hands[player], Card{})
			copy(g.Hands[player][hi+1:], g.Hands[player][hi:])
			g.Hands[player][hi] = sc.Card
			if g.stagedFromHand[player] > 0 {
				g.stagedFromHand[player]--
			}
		case OriginOwnCaptures:
			g.Captures[player] = append(g.Captures[player], sc.Card)
		case OriginOpponentCaptures:
			g.Captures[Opponent(player)] = append(g.Captures[Opponent(player)], sc.Card)
		}
	}
	return nil
}

func (g *GameState) applyTrail(player int, c Candidate) error {
	hi := g.handIndex(player, c.Card)
	if hi < 0 {
		return validationErr("card_not_in_hand", "%s is not in hand", c.Card)
	}
	for i := range g.Table {
		if g.Table[i].Kind == KindLoose && g.Table[i].Loose.Value() == c.Card.Value() {
			return validationErr("duplicate_value", "a loose %d is already on the table", c.Card.Value())
		}
	}
	if g.Round == 1 && g.buildOf(player) != nil {
		return validationErr("build_commitment", "cannot trail while owning a build in the first round")
	}
	g.Hands[player] = append(g.Hands[player][:hi], g.Hands[player][hi+1:]...)
	g.Table = append(g.Table, TableItem{ID: g.newItemID(), Kind: KindLoose, Loose: c.Card})
	return nil
}
