package engine

import "testing"

func TestClassifyValues(t *testing.T) {
	tests := []struct {
		name    string
		values  []int
		origins []Origin
		valid   bool
		kind    BuildKind
		value   int
		segs    int
	}{
		{
			name:   "base value four at the end",
			values: []int{3, 1, 4},
			valid:  true, kind: BuildBaseValue, value: 4, segs: 1,
		},
		{
			name:   "identical triple prices as sum",
			values: []int{2, 2, 2},
			valid:  true, kind: BuildSum, value: 6, segs: 1,
		},
		{
			name:   "two segments of ten",
			values: []int{5, 4, 1, 7, 3},
			valid:  true, kind: BuildMultiSegment, value: 10, segs: 2,
		},
		{
			name:   "base card buried at the bottom falls back to sum",
			values: []int{5, 4, 1},
			valid:  true, kind: BuildSum, value: 10, segs: 1,
		},
		{
			name:   "no interpretation",
			values: []int{5, 3, 3},
			valid:  false,
		},
		{
			name:   "identical pair above the cap keeps face value",
			values: []int{7, 7},
			valid:  true, kind: BuildSameValue, value: 7, segs: 2,
		},
		{
			name:   "pair of fives is a ten",
			values: []int{5, 5},
			valid:  true, kind: BuildSum, value: 10, segs: 1,
		},
		{
			name:    "hand base card must sit at the bottom",
			values:  []int{4, 3, 1},
			origins: []Origin{OriginHand, OriginTable, OriginTable},
			valid:   true, kind: BuildBaseValue, value: 4, segs: 1,
		},
		{
			name:    "hand base card off the bottom falls through",
			values:  []int{3, 4, 1},
			origins: []Origin{OriginTable, OriginHand, OriginTable},
			valid:   true, kind: BuildSum, value: 8, segs: 1,
		},
		{
			name:    "capture base card must sit above the bottom",
			values:  []int{3, 1, 4},
			origins: []Origin{OriginTable, OriginTable, OriginOwnCaptures},
			valid:   true, kind: BuildBaseValue, value: 4, segs: 1,
		},
		{
			name:   "single card is not a build",
			values: []int{6},
			valid:  false,
		},
		{
			name:   "three segments of seven",
			values: []int{3, 4, 7, 2, 5},
			valid:  true, kind: BuildMultiSegment, value: 7, segs: 3,
		},
		{
			name:   "segments above the cap rejected",
			values: []int{8, 4, 6, 6},
			valid:  false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyValues(tt.values, tt.origins)
			if got.Valid != tt.valid {
				t.Fatalf("Valid = %v, want %v (%+v)", got.Valid, tt.valid, got)
			}
			if !tt.valid {
				return
			}
			if got.Kind != tt.kind {
				t.Errorf("Kind = %v, want %v", got.Kind, tt.kind)
			}
			if got.Value != tt.value {
				t.Errorf("Value = %d, want %d", got.Value, tt.value)
			}
			if got.Segments != tt.segs {
				t.Errorf("Segments = %d, want %d", got.Segments, tt.segs)
			}
		})
	}
}

func TestClassifyAllOffersChoice(t *testing.T) {
	// A pair of twos with a third two prices both as the face value and as
	// the sum; finalization must surface both.
	all := classifyAll([]int{2, 2, 2}, nil)
	want := map[int]bool{2: false, 6: false}
	for _, c := range all {
		if _, ok := want[c.Value]; !ok {
			t.Errorf("unexpected interpretation %+v", c)
			continue
		}
		want[c.Value] = true
	}
	for v, seen := range want {
		if !seen {
			t.Errorf("missing interpretation with value %d", v)
		}
	}
}

func TestSegmentValues(t *testing.T) {
	tests := []struct {
		values []int
		target int
		count  int
	}{
		{[]int{5, 4, 1, 7, 3}, 10, 2}, // the 5+4+1 prefix sets the target
		{[]int{5, 5, 7, 3}, 10, 2},
		{[]int{2, 2, 2, 2}, 2, 4},
		{[]int{9, 1}, 0, 0}, // uneven tail is not a segment
		{[]int{6, 5}, 0, 0},
	}
	for _, tt := range tests {
		tgt, n := segmentValues(tt.values)
		if tgt != tt.target || n != tt.count {
			t.Errorf("segmentValues(%v) = (%d, %d), want (%d, %d)", tt.values, tgt, n, tt.target, tt.count)
		}
	}
}
