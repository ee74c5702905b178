package rdfexpr

import "bitbucket.org/creachadair/stringset"

// Visitor is called once per node in a pre-order Walk. Returning false
// stops descent into that node's children, but Walk continues with its
// siblings.
type Visitor func(e *Expr) bool

// children returns e's direct child expressions in evaluation order.
func (e *Expr) children() []*Expr {
	var out []*Expr
	for _, c := range [3]*Expr{e.Arg1, e.Arg2, e.Arg3} {
		if c != nil {
			out = append(out, c)
		}
	}
	out = append(out, e.Args...)
	out = append(out, e.Params...)
	return out
}

// Walk performs a pre-order traversal of expr, calling visit on each
// node. It does not visit the LITERAL attached to a node as a separate
// Expr, since literals aren't Expr nodes themselves.
func Walk(expr *Expr, visit Visitor) {
	if expr == nil {
		return
	}
	if !visit(expr) {
		return
	}
	for _, c := range expr.children() {
		Walk(c, visit)
	}
}

// IsConstant reports whether expr's value can never depend on variable
// bindings: a LITERAL whose wrapped term is not a VarRef, or an
// operator all of whose children are themselves constant. FUNCTION and
// the aggregate/ordering operators are conservatively treated as
// non-constant, since their results depend on external or row context.
func IsConstant(expr *Expr) bool {
	if expr == nil {
		return true
	}
	switch expr.Op {
	case OpLiteral:
		return expr.Literal == nil || expr.Literal.Kind() != KindVarRef
	case OpVarStar, OpFunction, OpBNode,
		OpCount, OpSum, OpAvg, OpMin, OpMax, OpSample, OpGroupConcat,
		OpOrderCondAsc, OpOrderCondDesc, OpGroupCondAsc, OpGroupCondDesc:
		return false
	default:
		for _, c := range expr.children() {
			if !IsConstant(c) {
				return false
			}
		}
		return true
	}
}

// MentionedVariables collects the names of every variable referenced
// anywhere in expr's tree, via its LITERAL(VarRef) leaves.
func MentionedVariables(expr *Expr) stringset.Set {
	names := stringset.New()
	Walk(expr, func(e *Expr) bool {
		if e.Op == OpLiteral && e.Literal != nil && e.Literal.Kind() == KindVarRef {
			if v := e.Literal.VarRefTarget(); v != nil {
				names.Add(v.Name)
			}
		}
		return true
	})
	return names
}

// EvalSequence evaluates each expression in exprs against world and
// flags, in left-to-right order (spec §5 Ordering guarantees), and
// returns the resulting terms. Evaluation stops at the first error.
func EvalSequence(world *World, loc *Locator, exprs []*Expr, flags EvalFlags) ([]Term, *EvalError) {
	out := make([]Term, 0, len(exprs))
	for _, e := range exprs {
		v, err := Evaluate(world, loc, e, flags)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
