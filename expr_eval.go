package shadercompile

// Assignment is a partial assignment of axis values, keyed by axis name.
// Axes absent from the map are "unassigned" (don't-know) for evaluation
// purposes.
type Assignment map[string]int64

// Evaluator answers whether a partial combo assignment definitely skips,
// per §4.A: it parses a shader entry's skip expression once and evaluates
// it against successive partial assignments during descent.
//
// A zero Evaluator (no expression set) never skips anything.
type Evaluator struct {
	root skipExpr
}

// NewEvaluator parses expr (empty means "never skip") and returns an
// Evaluator that can be queried repeatedly and concurrently — DefinitelySkip
// performs no mutation and is safe to call from multiple goroutines at
// once, which the descending iterator and its clones rely on.
func NewEvaluator(expr string) (*Evaluator, error) {
	if expr == "" {
		return &Evaluator{}, nil
	}
	root, err := parseSkipExpr(expr)
	if err != nil {
		return nil, err
	}
	return &Evaluator{root: root}, nil
}

// DefinitelySkip reports whether every completion of partial is skipped —
// i.e. the skip expression evaluates to true given only the axes already
// assigned, independent of any axis still unassigned. It returns false
// ("possibly alive") whenever the expression cannot yet be determined, not
// just when it is determined-false.
func (e *Evaluator) DefinitelySkip(partial Assignment) bool {
	if e == nil || e.root == nil {
		return false
	}
	v, ok := evalSkipExpr(e.root, partial)
	return ok && v != 0
}

// evalSkipExpr evaluates node against partial, returning (value, true) when
// the node's value is fully determined by the assigned axes and (0, false)
// when it depends on at least one unassigned axis. Boolean combinators
// short-circuit on a determined operand that settles the result regardless
// of the other operand — this is what lets DefinitelySkip prune whole
// subtrees before every axis is assigned.
func evalSkipExpr(node skipExpr, partial Assignment) (int64, bool) {
	switch n := node.(type) {
	case exprLiteral:
		return n.value, true

	case exprAxisRef:
		v, ok := partial[n.name]
		return v, ok

	case exprUnary:
		x, ok := evalSkipExpr(n.x, partial)
		if !ok {
			return 0, false
		}
		switch n.op {
		case tokNot:
			return boolToInt(x == 0), true
		case tokMinus:
			return -x, true
		}
		return 0, false

	case exprBinary:
		return evalBinary(n, partial)
	}
	return 0, false
}

func evalBinary(n exprBinary, partial Assignment) (int64, bool) {
	switch n.op {
	case tokAnd:
		return evalShortCircuit(n, partial, false)
	case tokOr:
		return evalShortCircuit(n, partial, true)
	}

	x, xok := evalSkipExpr(n.x, partial)
	y, yok := evalSkipExpr(n.y, partial)
	if !xok || !yok {
		return 0, false
	}
	switch n.op {
	case tokEq:
		return boolToInt(x == y), true
	case tokNeq:
		return boolToInt(x != y), true
	case tokLt:
		return boolToInt(x < y), true
	case tokLe:
		return boolToInt(x <= y), true
	case tokGt:
		return boolToInt(x > y), true
	case tokGe:
		return boolToInt(x >= y), true
	case tokPlus:
		return x + y, true
	case tokMinus:
		return x - y, true
	case tokStar:
		return x * y, true
	case tokSlash:
		if y == 0 {
			return 0, false
		}
		return x / y, true
	case tokPercent:
		if y == 0 {
			return 0, false
		}
		return x % y, true
	}
	return 0, false
}

// evalShortCircuit implements && (shortOn=false, short-circuits on a
// determined-false operand) and || (shortOn=true, short-circuits on a
// determined-true operand). An operand that is determined and equal to the
// short-circuit value settles the whole expression even if the other
// operand is still undetermined.
func evalShortCircuit(n exprBinary, partial Assignment, shortOn bool) (int64, bool) {
	x, xok := evalSkipExpr(n.x, partial)
	if xok && (x != 0) == shortOn {
		return boolToInt(shortOn), true
	}

	y, yok := evalSkipExpr(n.y, partial)
	if yok && (y != 0) == shortOn {
		return boolToInt(shortOn), true
	}

	if xok && yok {
		if shortOn {
			return boolToInt(x != 0 || y != 0), true
		}
		return boolToInt(x != 0 && y != 0), true
	}
	return 0, false
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
