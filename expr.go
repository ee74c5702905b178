package rdfexpr

import (
	"fmt"
	"sync/atomic"
)

// errNilChild reports a construction-time arity violation (spec §4.2:
// "arity is fixed... enforced at construction").
func errNilChild(op Op) error {
	return fmt.Errorf("rdfexpr: operator %v constructed with a nil required child", op)
}

// Op tags the operator an Expr node applies (spec §3, §4.2, §4.3).
// Related operators are grouped for readability; evaluation dispatch in
// eval.go mirrors these groups rather than the flat switch a C
// implementation would use (see DESIGN.md and spec §9).
type Op int

const (
	// Literal / variable
	OpLiteral Op = iota
	OpVarStar // COUNT(*) sentinel; never produces a value on its own

	// Three-valued boolean logic
	OpAnd
	OpOr

	// Comparison / equality
	OpEQ
	OpNEQ
	OpLT
	OpGT
	OpLE
	OpGE

	// Arithmetic
	OpPlus
	OpMinus
	OpStar
	OpSlash
	OpRem
	OpUMinus
	OpTilde
	OpBang

	// Term inspection
	OpBound
	OpStr
	OpLang
	OpLangMatches
	OpDatatype
	OpIsURI
	OpIsBlank
	OpIsLiteral
	OpIsNumeric
	OpSameTerm

	// Pattern matching
	OpRegex
	OpStrMatch
	OpStrNMatch

	// Control flow / set membership
	OpIf
	OpCoalesce
	OpIn
	OpNotIn

	// Term construction
	OpURI
	OpStrLang
	OpStrDT
	OpBNode
	OpCast

	// Extension
	OpFunction

	// Aggregates (placeholders at this layer; see spec §4.3, §9)
	OpCount
	OpSum
	OpAvg
	OpMin
	OpMax
	OpSample
	OpGroupConcat

	// Ordering/grouping wrappers, transparent to evaluation
	OpOrderCondAsc
	OpOrderCondDesc
	OpGroupCondAsc
	OpGroupCondDesc
)

// ExprFlags is the bitset carried on an Expr (spec §3). Individual
// operators assign it their own meaning (e.g. AGGREGATE marks an
// aggregate-wrapper node; regex flags are carried as a literal rather
// than here, matching the legacy STR_MATCH/STR_NMATCH shape).
type ExprFlags uint32

const (
	FlagAggregate ExprFlags = 1 << iota
	FlagDistinct
)

// Expr is a node in the expression tree (spec §3). Ownership is shared:
// Go's garbage collector reclaims a node once its last reference goes
// out of scope, which is the behavior the source's reference counting
// existed to provide (spec §4.2, §9; see DESIGN.md Open Question).
// Ref/Release are kept as explicit bookkeeping calls so the reference
// counting invariant in spec §8 property 1 remains testable.
type Expr struct {
	Op Op

	Arg1, Arg2, Arg3 *Expr
	Literal          *Term
	Name             *string // URI name, e.g. extension function IRI or cast target
	Args             []*Expr
	Params           []*Expr
	Flags            ExprFlags

	refCount int32
}

// allocCount/releaseCount track constructor/Release calls across the
// whole process, for exercising spec §8 property 1 in tests.
var (
	allocCount   int64
	releaseCount int64
)

// AllocCount returns the number of Expr nodes constructed so far.
func AllocCount() int64 { return atomic.LoadInt64(&allocCount) }

// ReleaseCount returns the number of times Release has driven a node's
// reference count to zero.
func ReleaseCount() int64 { return atomic.LoadInt64(&releaseCount) }

func newExpr(op Op) *Expr {
	atomic.AddInt64(&allocCount, 1)
	return &Expr{Op: op, refCount: 1}
}

// Ref increments e's reference count and returns e, mirroring the
// source's rasqal_expression ref-counting API.
func Ref(e *Expr) *Expr {
	if e == nil {
		return nil
	}
	atomic.AddInt32(&e.refCount, 1)
	return e
}

// Release decrements e's reference count; at zero it recursively
// releases e's owned children (spec §4.2 ownership rule).
func Release(e *Expr) {
	if e == nil {
		return
	}
	if atomic.AddInt32(&e.refCount, -1) > 0 {
		return
	}
	atomic.AddInt64(&releaseCount, 1)
	Release(e.Arg1)
	Release(e.Arg2)
	Release(e.Arg3)
	for _, a := range e.Args {
		Release(a)
	}
	for _, p := range e.Params {
		Release(p)
	}
}

// releaseOnFail releases every non-nil expression in exprs; used by
// constructors that must undo partial ownership on a construction
// error (spec §4.2 ownership rule).
func releaseOnFail(exprs ...*Expr) {
	for _, e := range exprs {
		Release(e)
	}
}

// NewLiteralExpr wraps a literal term. At evaluation, a VarRef literal
// is flattened to its current binding (spec §4.3 LITERAL, §9); BOUND is
// the one exception that inspects the reference directly.
func NewLiteralExpr(lit Term) *Expr {
	e := newExpr(OpLiteral)
	e.Literal = &lit
	return e
}

// NewVarStarExpr constructs the COUNT(*) sentinel.
func NewVarStarExpr() *Expr { return newExpr(OpVarStar) }

// NewBinaryExpr constructs a fixed-arity 2-child operator node (AND, OR,
// EQ, NEQ, LT, GT, LE, GE, PLUS, MINUS, STAR, SLASH, REM, LANGMATCHES,
// SAMETERM, STRLANG, STRDT). Both children must be non-nil.
func NewBinaryExpr(op Op, a1, a2 *Expr) (*Expr, error) {
	if a1 == nil || a2 == nil {
		releaseOnFail(a1, a2)
		return nil, errNilChild(op)
	}
	e := newExpr(op)
	e.Arg1, e.Arg2 = a1, a2
	return e, nil
}

// NewUnaryExpr constructs a fixed-arity 1-child operator node (UMINUS,
// TILDE, BANG, BOUND, STR, LANG, DATATYPE, ISURI, ISBLANK, ISLITERAL,
// ISNUMERIC, URI/IRI, BNODE-with-argument, and the aggregate ops when
// used on a single column expression).
func NewUnaryExpr(op Op, a1 *Expr) (*Expr, error) {
	if a1 == nil {
		return nil, errNilChild(op)
	}
	e := newExpr(op)
	e.Arg1 = a1
	return e, nil
}

// NewTernaryExpr constructs IF(cond, then, else); arg3 may be nil for
// REGEX's optional flags argument.
func NewTernaryExpr(op Op, a1, a2, a3 *Expr) (*Expr, error) {
	if a1 == nil || a2 == nil {
		releaseOnFail(a1, a2, a3)
		return nil, errNilChild(op)
	}
	e := newExpr(op)
	e.Arg1, e.Arg2, e.Arg3 = a1, a2, a3
	return e, nil
}

// NewBoundExpr constructs BOUND(?v): arg1 must itself be a
// literal-wrapping expression whose literal is a VarRef (spec §4.3,
// enforced again at evaluation time since construction cannot always
// see through the parser's tree shape).
func NewBoundExpr(a1 *Expr) (*Expr, error) {
	if a1 == nil {
		return nil, errNilChild(OpBound)
	}
	e := newExpr(OpBound)
	e.Arg1 = a1
	return e, nil
}

// NewRegexExpr constructs REGEX(text, pattern, flags?), with the pattern
// and the optional flags held as sub-expressions. The legacy
// STR_MATCH/STR_NMATCH shape, whose pattern is an attached literal, is
// built by NewLegacyMatchExpr instead.
func NewRegexExpr(op Op, text, pattern, flags *Expr) (*Expr, error) {
	if text == nil || pattern == nil {
		releaseOnFail(text, pattern, flags)
		return nil, errNilChild(op)
	}
	e := newExpr(op)
	e.Arg1, e.Arg2, e.Arg3 = text, pattern, flags
	return e, nil
}

// NewLegacyMatchExpr constructs STR_MATCH/STR_NMATCH with the pattern
// held as an attached literal (spec §4.3), rather than a sub-expression.
func NewLegacyMatchExpr(op Op, text *Expr, pattern Term) (*Expr, error) {
	if text == nil {
		return nil, errNilChild(op)
	}
	e := newExpr(op)
	e.Arg1 = text
	e.Literal = &pattern
	return e, nil
}

// NewFunctionExpr constructs an extension function call FUNCTION(uri,
// args, params, flags).
func NewFunctionExpr(uri string, args, params []*Expr, flags ExprFlags) *Expr {
	e := newExpr(OpFunction)
	e.Name = &uri
	e.Args = args
	e.Params = params
	e.Flags = flags
	return e
}

// NewAggregateExpr constructs an aggregate marker (COUNT, SUM, AVG, MIN,
// MAX, SAMPLE, GROUP_CONCAT taking a single argument) carrying flags
// and the implicit AGGREGATE marker.
func NewAggregateExpr(op Op, arg *Expr, flags ExprFlags) *Expr {
	e := newExpr(op)
	e.Arg1 = arg
	e.Flags = flags | FlagAggregate
	return e
}

// NewGroupConcatExpr constructs GROUP_CONCAT(flags, args, separator?).
func NewGroupConcatExpr(args []*Expr, separator *Term, flags ExprFlags) *Expr {
	e := newExpr(OpGroupConcat)
	e.Args = args
	e.Literal = separator
	e.Flags = flags | FlagAggregate
	return e
}

// NewCastExpr constructs CAST(value AS target-datatype-uri).
func NewCastExpr(value *Expr, targetDatatypeURI string) (*Expr, error) {
	if value == nil {
		return nil, errNilChild(OpCast)
	}
	e := newExpr(OpCast)
	e.Arg1 = value
	e.Name = &targetDatatypeURI
	return e, nil
}

// NewCoalesceExpr constructs COALESCE(e1, ..., en).
func NewCoalesceExpr(args []*Expr) *Expr {
	e := newExpr(OpCoalesce)
	e.Args = args
	return e
}

// NewInExpr constructs IN(x, e1, ..., en) or, when negate is true, NOT IN.
func NewInExpr(discriminant *Expr, candidates []*Expr, negate bool) (*Expr, error) {
	if discriminant == nil {
		releaseOnFail(candidates...)
		return nil, errNilChild(OpIn)
	}
	op := OpIn
	if negate {
		op = OpNotIn
	}
	e := newExpr(op)
	e.Arg1 = discriminant
	e.Args = candidates
	return e, nil
}

// NewBNodeExpr constructs BNODE() or BNODE(s).
func NewBNodeExpr(arg *Expr) *Expr {
	e := newExpr(OpBNode)
	e.Arg1 = arg
	return e
}

// NewOrderCondExpr wraps an ORDER BY condition; descending selects the
// _DESC tag. Evaluates transparently to Arg1 (spec §4.3).
func NewOrderCondExpr(arg *Expr, descending bool) (*Expr, error) {
	if arg == nil {
		return nil, errNilChild(OpOrderCondAsc)
	}
	op := OpOrderCondAsc
	if descending {
		op = OpOrderCondDesc
	}
	e := newExpr(op)
	e.Arg1 = arg
	return e, nil
}

// NewGroupCondExpr wraps a GROUP BY condition, with the same ASC/DESC
// shape as NewOrderCondExpr.
func NewGroupCondExpr(arg *Expr, descending bool) (*Expr, error) {
	if arg == nil {
		return nil, errNilChild(OpGroupCondAsc)
	}
	op := OpGroupCondAsc
	if descending {
		op = OpGroupCondDesc
	}
	e := newExpr(op)
	e.Arg1 = arg
	return e, nil
}
