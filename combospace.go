package shadercompile

import (
	"fmt"
	"strings"
)

// ComboSpace describes one shader entry's axis layout (§4.B): it translates
// between a combo index and per-axis assignments, using strict mixed-radix
// encoding with dynamic axes as the low-order digits and static axes as the
// high-order digits. Axis order within each group is declaration order.
type ComboSpace struct {
	declared []Axis // original declaration order, for formatting
	static   []Axis // declaration order among static axes
	dynamic  []Axis // declaration order among dynamic axes

	numStatic  int64
	numDynamic int64
}

// NewComboSpace builds a ComboSpace from a shader entry's declared axes.
// Axes must have Lo <= Hi; there is no other restriction on bounds (they
// need not be zero-based).
func NewComboSpace(axes []Axis) (*ComboSpace, error) {
	cs := &ComboSpace{
		declared:   append([]Axis(nil), axes...),
		numStatic:  1,
		numDynamic: 1,
	}
	seen := make(map[string]bool, len(axes))
	for _, ax := range axes {
		if err := ax.validate(); err != nil {
			return nil, err
		}
		if seen[ax.Name] {
			return nil, fmt.Errorf("%w: duplicate axis name %q", ErrConfigInvalid, ax.Name)
		}
		seen[ax.Name] = true

		switch ax.Kind {
		case AxisStatic:
			cs.static = append(cs.static, ax)
			cs.numStatic *= ax.count()
		case AxisDynamic:
			cs.dynamic = append(cs.dynamic, ax)
			cs.numDynamic *= ax.count()
		default:
			return nil, fmt.Errorf("%w: axis %q has unknown kind", ErrConfigInvalid, ax.Name)
		}
	}
	return cs, nil
}

// NumStaticCombos returns the number of distinct static-combo ids.
func (cs *ComboSpace) NumStaticCombos() int64 { return cs.numStatic }

// NumDynamicCombos returns the number of distinct dynamic-combo ids.
func (cs *ComboSpace) NumDynamicCombos() int64 { return cs.numDynamic }

// NumCombos returns NumStaticCombos * NumDynamicCombos, the total size of
// this entry's combo index space.
func (cs *ComboSpace) NumCombos() int64 { return cs.numStatic * cs.numDynamic }

// Axes returns the axes in their original declaration order.
func (cs *ComboSpace) Axes() []Axis { return cs.declared }

// Encode translates a full axis assignment into a combo index, per
// combo_index = static_combo_id * numDynamicCombos + dynamic_combo_id.
func (cs *ComboSpace) Encode(values map[string]int64) (int64, error) {
	staticID, err := encodeGroup(cs.static, values)
	if err != nil {
		return 0, err
	}
	dynamicID, err := encodeGroup(cs.dynamic, values)
	if err != nil {
		return 0, err
	}
	return staticID*cs.numDynamic + dynamicID, nil
}

// Decode translates a combo index back into a full axis assignment. It is
// the exact inverse of Encode: Encode(Decode(i)) == i for every valid i.
func (cs *ComboSpace) Decode(comboIndex int64) (map[string]int64, error) {
	if comboIndex < 0 || comboIndex >= cs.NumCombos() {
		return nil, fmt.Errorf("%w: combo index %d out of range [0,%d)", ErrInvariantBroken, comboIndex, cs.NumCombos())
	}
	staticID := comboIndex / cs.numDynamic
	dynamicID := comboIndex % cs.numDynamic

	values := decodeGroup(cs.static, staticID)
	for k, v := range decodeGroup(cs.dynamic, dynamicID) {
		values[k] = v
	}
	return values, nil
}

// StaticID returns the static-combo id embedded in comboIndex.
func (cs *ComboSpace) StaticID(comboIndex int64) int64 {
	return comboIndex / cs.numDynamic
}

// DynamicID returns the dynamic-combo id embedded in comboIndex.
func (cs *ComboSpace) DynamicID(comboIndex int64) int64 {
	return comboIndex % cs.numDynamic
}

// descentOrder returns axes in the order the combo iterator assigns them
// while descending the axis tree: all static axes (highest-order digits)
// in declaration order, then all dynamic axes (lowest-order digits) in
// declaration order. This matches the digit significance Encode/Decode use,
// which is what lets the iterator prune a subtree by jumping the combo
// index down by that subtree's size.
func (cs *ComboSpace) descentOrder() []Axis {
	ordered := make([]Axis, 0, len(cs.static)+len(cs.dynamic))
	ordered = append(ordered, cs.static...)
	ordered = append(ordered, cs.dynamic...)
	return ordered
}

// descentWeights returns, for each axis in descentOrder, the number of
// combo indices spanned by one fixed value of that axis and every axis
// before it — i.e. the size of the subtree pruned when the Evaluator
// proves definitely_skip as soon as that axis is assigned.
func (cs *ComboSpace) descentWeights() []int64 {
	ordered := cs.descentOrder()
	weights := make([]int64, len(ordered))
	w := int64(1)
	for i := len(ordered) - 1; i >= 0; i-- {
		weights[i] = w
		w *= ordered[i].count()
	}
	return weights
}

// ComboIndex combines a static and dynamic id back into a combo index; the
// inverse of StaticID/DynamicID taken together.
func (cs *ComboSpace) ComboIndex(staticID, dynamicID int64) int64 {
	return staticID*cs.numDynamic + dynamicID
}

// FormatCommand produces a deterministic, human-readable string identifying
// one combo — used as the key for deduplicating compiler messages (§4.B).
// Axes are listed in declaration order.
func (cs *ComboSpace) FormatCommand(entryName string, comboIndex int64) (string, error) {
	values, err := cs.Decode(comboIndex)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString(entryName)
	b.WriteByte('(')
	for i, ax := range cs.declared {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%s=%d", ax.Name, values[ax.Name])
	}
	b.WriteByte(')')
	return b.String(), nil
}

func encodeGroup(axes []Axis, values map[string]int64) (int64, error) {
	var idx int64
	for _, ax := range axes {
		v, ok := values[ax.Name]
		if !ok {
			return 0, fmt.Errorf("%w: missing value for axis %q", ErrInvariantBroken, ax.Name)
		}
		if v < ax.Lo || v > ax.Hi {
			return 0, fmt.Errorf("%w: value %d for axis %q out of range [%d,%d]", ErrInvariantBroken, v, ax.Name, ax.Lo, ax.Hi)
		}
		idx = idx*ax.count() + (v - ax.Lo)
	}
	return idx, nil
}

func decodeGroup(axes []Axis, idx int64) map[string]int64 {
	values := make(map[string]int64, len(axes))
	for i := len(axes) - 1; i >= 0; i-- {
		ax := axes[i]
		c := ax.count()
		digit := idx % c
		idx /= c
		values[ax.Name] = digit + ax.Lo
	}
	return values
}
