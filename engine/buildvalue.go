package engine

// BuildKind enumerates the build categories recognized by the calculator.
type BuildKind uint8

const (
	BuildInvalid BuildKind = iota
	BuildSameValue
	BuildBaseValue
	BuildSum
	BuildMultiSegment
)

func (k BuildKind) String() string {
	switch k {
	case BuildSameValue:
		return "same_value"
	case BuildBaseValue:
		return "base_value"
	case BuildSum:
		return "sum"
	case BuildMultiSegment:
		return "multi_segment"
	}
	return "invalid"
}

// Classification is the calculator's verdict on an ordered value sequence.
type Classification struct {
	Valid      bool
	Kind       BuildKind
	Value      int
	Segments   int
	Supporting []int
}

// maxBuildValue is the largest capturable build value.
const maxBuildValue = 10

// ClassifyValues classifies an ordered sequence of card values into a build
// category. origins supplies the per-card source tags used by the base-card
// placement rule; a nil origins slice applies the capture-origin placement
// (base anywhere except the bottom). The function is deterministic and free
// of side effects: it prices staging stacks for display and validates build
// finalization.
//
// Precedence, highest first: same-value (only when the raw sum exceeds 10;
// smaller identical runs price as plain sum builds), base-value, sum,
// multi-segment.
func ClassifyValues(values []int, origins []Origin) Classification {
	n := len(values)
	if n < 2 {
		return Classification{}
	}
	total := 0
	same := true
	for _, v := range values {
		total += v
		if v != values[0] {
			same = false
		}
	}

	if same {
		if total <= maxBuildValue {
			return Classification{Valid: true, Kind: BuildSum, Value: total, Segments: 1, Supporting: copyInts(values)}
		}
		return Classification{Valid: true, Kind: BuildSameValue, Value: values[0], Segments: n, Supporting: copyInts(values)}
	}

	if idx := baseIndex(values, origins, total); idx >= 0 {
		sup := make([]int, 0, n-1)
		for i, v := range values {
			if i != idx {
				sup = append(sup, v)
			}
		}
		return Classification{Valid: true, Kind: BuildBaseValue, Value: values[idx], Segments: 1, Supporting: sup}
	}

	if total <= maxBuildValue {
		return Classification{Valid: true, Kind: BuildSum, Value: total, Segments: 1, Supporting: copyInts(values)}
	}

	if target, count := segmentValues(values); count >= 2 {
		return Classification{Valid: true, Kind: BuildMultiSegment, Value: target, Segments: count, Supporting: copyInts(values)}
	}

	return Classification{}
}

// classifyAll enumerates every valid interpretation of the sequence, one per
// distinct build value. Finalization uses this to offer the player a choice
// when a stack prices more than one way (e.g. a pair as its face value or as
// the pair sum).
func classifyAll(values []int, origins []Origin) []Classification {
	n := len(values)
	if n < 2 {
		return nil
	}
	total := 0
	same := true
	for _, v := range values {
		total += v
		if v != values[0] {
			same = false
		}
	}

	var out []Classification
	add := func(c Classification) {
		for _, have := range out {
			if have.Value == c.Value {
				return
			}
		}
		out = append(out, c)
	}

	if same {
		add(Classification{Valid: true, Kind: BuildSameValue, Value: values[0], Segments: n, Supporting: copyInts(values)})
	}
	if idx := baseIndex(values, origins, total); idx >= 0 {
		add(Classification{Valid: true, Kind: BuildBaseValue, Value: values[idx], Segments: 1})
	}
	if total <= maxBuildValue {
		add(Classification{Valid: true, Kind: BuildSum, Value: total, Segments: 1, Supporting: copyInts(values)})
	}
	if target, count := segmentValues(values); count >= 2 {
		add(Classification{Valid: true, Kind: BuildMultiSegment, Value: target, Segments: count})
	}
	return out
}

// baseIndex finds an element equal to the sum of all others at a position
// permitted by its origin: table- and hand-origin base cards must sit at the
// bottom (index 0); capture-origin base cards must sit anywhere but the
// bottom. The asymmetry is inherited from the game rules and preserved
// verbatim. Returns -1 when no element qualifies.
func baseIndex(values []int, origins []Origin, total int) int {
	for i, v := range values {
		if v != total-v || v > maxBuildValue {
			continue
		}
		var o Origin = OriginOwnCaptures
		if origins != nil && i < len(origins) {
			o = origins[i]
		}
		switch o {
		case OriginHand, OriginTable:
			if i == 0 {
				return i
			}
		default:
			if i != 0 {
				return i
			}
		}
	}
	return -1
}

// segmentValues partitions the sequence, in order, into contiguous segments
// that each sum to the total of the first completed segment. The scan
// accumulates left to right and starts a new segment whenever the running
// sum reaches the target; any overshoot fails that candidate target. Returns
// the target and segment count, or (0, 0) when no partition exists.
func segmentValues(values []int) (target, count int) {
	// Try every prefix as the first segment.
	for cut := 1; cut < len(values); cut++ {
		t := 0
		for _, v := range values[:cut] {
			t += v
		}
		if t > maxBuildValue {
			break // longer prefixes only grow
		}
		segs := 1
		run := 0
		ok := true
		for _, v := range values[cut:] {
			run += v
			if run == t {
				segs++
				run = 0
			} else if run > t {
				ok = false
				break
			}
		}
		if ok && run == 0 && segs >= 2 {
			return t, segs
		}
	}
	return 0, 0
}

func copyInts(vs []int) []int {
	return append([]int(nil), vs...)
}
