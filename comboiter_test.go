package shadercompile

import "testing"

func singleAxisEntry(t *testing.T, lo, hi int64, skipExpr string) *ShaderEntry {
	t.Helper()
	e, err := NewShaderEntry("single", "single.fxc", "main", "ps_5_1",
		[]Axis{{Name: "A", Lo: lo, Hi: hi, Kind: AxisDynamic}}, skipExpr, 0)
	if err != nil {
		t.Fatalf("NewShaderEntry error = %v", err)
	}
	AssignCommandRanges([]*ShaderEntry{e})
	return e
}

// Seed scenario 1: single-axis dynamic shader, no skip.
func TestIteratorSingleAxisNoSkip(t *testing.T) {
	e := singleAxisEntry(t, 0, 3, "")
	it := NewComboIterator(e)

	var got []int64
	h, ok := it.First()
	for ok {
		got = append(got, h.CommandNumber())
		h, ok = it.GetNext(h)
	}

	want := []int64{3, 2, 1, 0}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

// Seed scenario 2: skip expression constant-true prunes everything.
func TestIteratorPruneAll(t *testing.T) {
	e := singleAxisEntry(t, 0, 9, "true")
	it := NewComboIterator(e)

	if _, ok := it.First(); ok {
		t.Error("expected no alive combos when skip expression is constant true")
	}
}

// Invariant 3: consecutive command numbers are strictly decreasing.
func TestIteratorStrictlyDecreasing(t *testing.T) {
	e, err := NewShaderEntry("multi", "multi.fxc", "main", "ps_5_1", []Axis{
		{Name: "FOG", Lo: 0, Hi: 1, Kind: AxisStatic},
		{Name: "LIGHTS", Lo: 0, Hi: 3, Kind: AxisDynamic},
	}, "FOG == 1 && LIGHTS == 2", 0)
	if err != nil {
		t.Fatalf("NewShaderEntry error = %v", err)
	}
	AssignCommandRanges([]*ShaderEntry{e})
	it := NewComboIterator(e)

	h, ok := it.First()
	prev := e.CommandEnd
	count := 0
	for ok {
		if h.CommandNumber() >= prev {
			t.Fatalf("non-decreasing sequence: prev=%d got=%d", prev, h.CommandNumber())
		}
		prev = h.CommandNumber()
		count++
		h, ok = it.GetNext(h)
	}
	if int64(count) != e.NumCombos()-1 {
		t.Errorf("expected %d alive combos (one pruned), got %d", e.NumCombos()-1, count)
	}
}

// Invariant 2: iterator completeness — yields exactly the set of indices
// the evaluator does not prove definitely-skipped, each exactly once.
func TestIteratorCompleteness(t *testing.T) {
	e, err := NewShaderEntry("multi", "multi.fxc", "main", "ps_5_1", []Axis{
		{Name: "FOG", Lo: 0, Hi: 2, Kind: AxisStatic},
		{Name: "LIGHTS", Lo: 0, Hi: 2, Kind: AxisDynamic},
	}, "FOG == LIGHTS", 0)
	if err != nil {
		t.Fatalf("NewShaderEntry error = %v", err)
	}
	AssignCommandRanges([]*ShaderEntry{e})
	it := NewComboIterator(e)

	seen := make(map[int64]bool)
	h, ok := it.First()
	for ok {
		if seen[h.CommandNumber()] {
			t.Fatalf("command %d yielded twice", h.CommandNumber())
		}
		seen[h.CommandNumber()] = true
		h, ok = it.GetNext(h)
	}

	for i := e.CommandStart; i < e.CommandEnd; i++ {
		values, err := e.Space.Decode(i - e.CommandStart)
		if err != nil {
			t.Fatalf("Decode(%d) error = %v", i, err)
		}
		wantAlive := !e.Eval.DefinitelySkip(Assignment(values))
		if seen[i] != wantAlive {
			t.Errorf("command %d: seen=%v, want alive=%v", i, seen[i], wantAlive)
		}
	}
}

func TestGetComboBoundsCheck(t *testing.T) {
	e := singleAxisEntry(t, 0, 3, "")
	it := NewComboIterator(e)

	if _, ok := it.GetCombo(e.CommandStart - 1); ok {
		t.Error("GetCombo should reject command below CommandStart")
	}
	if _, ok := it.GetCombo(e.CommandEnd); ok {
		t.Error("GetCombo should reject command at/above CommandEnd")
	}
	if _, ok := it.GetCombo(e.CommandStart); !ok {
		t.Error("GetCombo should accept CommandStart")
	}
}
