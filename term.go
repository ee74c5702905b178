// Package rdfexpr implements the expression evaluation core of a
// SPARQL/RDQL query engine: a typed RDF term algebra, a reference-style
// expression tree, a recursive evaluator applying SPARQL value
// semantics, an in-memory triple dataset with position-matched
// iteration, and (in the format subpackage) a pluggable result-format
// registry.
package rdfexpr

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/twinfer/rdfexpr/xsd"
)

// TermKind tags the variant held by a Term.
type TermKind int

const (
	KindURI TermKind = iota
	KindBlank
	KindString // plain, language-tagged or typed-literal string
	KindInteger
	KindDecimal
	KindDouble
	KindFloat
	KindBoolean
	KindDateTime
	KindVarRef
)

func (k TermKind) String() string {
	switch k {
	case KindURI:
		return "URI"
	case KindBlank:
		return "Blank"
	case KindString:
		return "String"
	case KindInteger:
		return "Integer"
	case KindDecimal:
		return "Decimal"
	case KindDouble:
		return "Double"
	case KindFloat:
		return "Float"
	case KindBoolean:
		return "Boolean"
	case KindDateTime:
		return "DateTime"
	case KindVarRef:
		return "VarRef"
	default:
		return "Unknown"
	}
}

// RDFTermType is the coarse term-kind surfaced by GET-RDF-TERM-TYPE and
// the ISURI/ISBLANK/ISLITERAL predicates (spec §4.1).
type RDFTermType int

const (
	RDFTermURI RDFTermType = iota
	RDFTermBlank
	RDFTermString // literals, typed or not, including numerics/booleans/datetimes
)

// Term is an immutable RDF term or a reference to a variable binding.
// Terms are constructed once and shared by value; Go's garbage
// collector takes the place of the source implementation's reference
// counting (see DESIGN.md).
//
// Invariant: a KindString Term has at most one of Lang or Datatype set.
// Numeric/boolean/datetime Terms carry their original Lexical form
// alongside the parsed Go value, for lossless round-trip.
type Term struct {
	kind     TermKind
	lexical  string // original lexical form; authoritative for KindString
	lang     string // set only for KindString
	datatype string // set only for KindString typed literals

	i   int64     // KindInteger
	f   float64   // KindDecimal, KindDouble, KindFloat
	b   bool      // KindBoolean
	t   time.Time // KindDateTime
	ref *Variable // KindVarRef
}

// Kind reports the Term's variant tag.
func (t Term) Kind() TermKind { return t.kind }

// URI constructs a URI term.
func URI(uri string) Term { return Term{kind: KindURI, lexical: uri} }

// Blank constructs a blank node term with the given local id.
func Blank(id string) Term { return Term{kind: KindBlank, lexical: id} }

// PlainString constructs an untyped, unlabeled string literal.
func PlainString(s string) Term { return Term{kind: KindString, lexical: s} }

// LangString constructs a language-tagged string literal. It is a
// construction error (per spec §3) to supply both lang and datatype;
// callers needing a typed literal should use TypedString.
func LangString(value, lang string) Term {
	return Term{kind: KindString, lexical: value, lang: lang}
}

// TypedString constructs a typed literal whose lexical form is value
// and whose datatype is the given XSD/custom datatype URI.
func TypedString(value, datatype string) Term {
	return Term{kind: KindString, lexical: value, datatype: datatype}
}

// Integer constructs an xsd:integer term from its lexical form, so the
// original digits (e.g. leading zeros) survive a round trip.
func Integer(lexical string, v int64) Term {
	return Term{kind: KindInteger, lexical: lexical, i: v}
}

// NewInteger constructs an xsd:integer term from a Go int64, deriving
// its canonical lexical form.
func NewInteger(v int64) Term { return Integer(strconv.FormatInt(v, 10), v) }

// Decimal constructs an xsd:decimal term.
func Decimal(lexical string, v float64) Term {
	return Term{kind: KindDecimal, lexical: lexical, f: v}
}

// NewDecimal constructs an xsd:decimal term from a Go float64.
func NewDecimal(v float64) Term { return Decimal(strconv.FormatFloat(v, 'f', -1, 64), v) }

// Double constructs an xsd:double term.
func Double(lexical string, v float64) Term {
	return Term{kind: KindDouble, lexical: lexical, f: v}
}

// NewDouble constructs an xsd:double term from a Go float64.
func NewDouble(v float64) Term { return Double(strconv.FormatFloat(v, 'g', -1, 64), v) }

// Float constructs an xsd:float term.
func Float(lexical string, v float64) Term {
	return Term{kind: KindFloat, lexical: lexical, f: v}
}

// NewFloat constructs an xsd:float term from a Go float64.
func NewFloat(v float64) Term { return Float(strconv.FormatFloat(v, 'g', -1, 32), v) }

// Boolean constructs an xsd:boolean term.
func Boolean(v bool) Term {
	lex := "false"
	if v {
		lex = "true"
	}
	return Term{kind: KindBoolean, lexical: lex, b: v}
}

// DateTime constructs an xsd:dateTime term.
func DateTime(v time.Time) Term {
	return Term{kind: KindDateTime, lexical: v.Format(time.RFC3339), t: v}
}

// VarRef constructs a Term that refers to a variable's binding slot.
// The evaluator flattens this reference at LITERAL evaluation (spec
// §4.3, §9) except inside BOUND, which inspects the reference itself.
func VarRef(v *Variable) Term { return Term{kind: KindVarRef, ref: v} }

// Lexical returns the Term's raw lexical form (no lang/datatype decoration).
func (t Term) Lexical() string {
	switch t.kind {
	case KindBoolean, KindInteger, KindDecimal, KindDouble, KindFloat, KindDateTime, KindURI, KindBlank, KindString:
		return t.lexical
	default:
		return ""
	}
}

// Lang returns the language tag of a string literal, or "" if none.
func (t Term) Lang() string { return t.lang }

// Datatype returns the explicit datatype URI of a typed string literal,
// or "" if the literal has no explicit datatype (plain or lang-tagged).
// Numeric/boolean/datetime kinds report their implicit XSD datatype.
func (t Term) Datatype() string {
	switch t.kind {
	case KindString:
		return t.datatype
	case KindInteger:
		return xsd.Integer
	case KindDecimal:
		return xsd.Decimal
	case KindDouble:
		return xsd.Double
	case KindFloat:
		return xsd.Float
	case KindBoolean:
		return xsd.Boolean
	case KindDateTime:
		return xsd.DateTime
	default:
		return ""
	}
}

// VarRefTarget returns the bound variable for a KindVarRef term.
func (t Term) VarRefTarget() *Variable { return t.ref }

// RDFTermType returns the coarse kind used by type predicates (spec §4.1).
func (t Term) RDFTermType() RDFTermType {
	switch t.kind {
	case KindURI:
		return RDFTermURI
	case KindBlank:
		return RDFTermBlank
	default:
		return RDFTermString
	}
}

// IsNumeric reports whether t is any of the XSD numeric kinds (spec §4.1).
func (t Term) IsNumeric() bool {
	switch t.kind {
	case KindInteger, KindDecimal, KindDouble, KindFloat:
		return true
	default:
		return false
	}
}

func (t Term) numericValue() float64 {
	switch t.kind {
	case KindInteger:
		return float64(t.i)
	case KindDecimal, KindDouble, KindFloat:
		return t.f
	default:
		return 0
	}
}

// numericRank gives the type-promotion order integer < decimal < float < double.
func (t Term) numericRank() int {
	switch t.kind {
	case KindInteger:
		return 0
	case KindDecimal:
		return 1
	case KindFloat:
		return 2
	case KindDouble:
		return 3
	default:
		return -1
	}
}

// ---- Coercions (spec §4.1) ----

// AsBoolean implements the as-boolean(t) contract: identity for
// booleans, non-empty for strings, non-zero-and-not-NaN for numerics;
// TypeError for URI, blank node and ill-typed strings.
func AsBoolean(t Term) (bool, *EvalError) {
	switch t.kind {
	case KindBoolean:
		return t.b, nil
	case KindString:
		if t.datatype != "" && t.datatype != xsd.String {
			return false, newTypeError("AsBoolean: cannot coerce typed literal <%s> to boolean", t.datatype)
		}
		return t.lexical != "", nil
	case KindInteger:
		return t.i != 0, nil
	case KindDecimal, KindDouble, KindFloat:
		return t.f != 0 && !math.IsNaN(t.f), nil
	default:
		return false, newTypeError("AsBoolean: cannot coerce %s to boolean", t.kind)
	}
}

// AsInteger implements the as-integer(t) contract: XSD lexical-to-value
// for numerics, truncating decimals toward zero, and for strings whose
// lexical form is a valid integer.
func AsInteger(t Term) (int64, *EvalError) {
	switch t.kind {
	case KindInteger:
		return t.i, nil
	case KindDecimal, KindDouble, KindFloat:
		return int64(t.f), nil // truncates toward zero
	case KindString:
		if t.datatype != "" && t.datatype != xsd.String {
			return 0, newTypeError("AsInteger: cannot coerce typed literal <%s> to integer", t.datatype)
		}
		v, err := strconv.ParseInt(strings.TrimSpace(t.lexical), 10, 64)
		if err != nil {
			return 0, newTypeError("AsInteger: %q is not a valid integer lexical form", t.lexical)
		}
		return v, nil
	default:
		return 0, newTypeError("AsInteger: cannot coerce %s to integer", t.kind)
	}
}

// AsStringFlags controls as-string(t, flags) canonicalization.
type AsStringFlags uint32

const (
	// XQueryCanonical requests XSD canonical lexical forms rather than
	// the stored lexical form (spec §4.1).
	XQueryCanonical AsStringFlags = 1 << iota
)

// AsString implements as-string(t, flags): the lexical form with no
// lang/datatype decoration, optionally XSD-canonicalized.
func AsString(t Term, flags AsStringFlags) (string, *EvalError) {
	if flags&XQueryCanonical == 0 {
		return t.Lexical(), nil
	}
	switch t.kind {
	case KindInteger:
		return strconv.FormatInt(t.i, 10), nil
	case KindDecimal:
		return canonicalDecimal(t.f), nil
	case KindDouble, KindFloat:
		return canonicalDouble(t.f), nil
	case KindBoolean:
		if t.b {
			return "true", nil
		}
		return "false", nil
	case KindDateTime:
		return t.t.UTC().Format(time.RFC3339), nil
	default:
		return t.Lexical(), nil
	}
}

func canonicalDecimal(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

func canonicalDouble(v float64) string {
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "INF"
	case math.IsInf(v, -1):
		return "-INF"
	default:
		return strconv.FormatFloat(v, 'E', -1, 64)
	}
}

// CompareFlags controls compare/equals case-folding (spec §4.1).
type CompareFlags uint32

const (
	// NoCase requests case-folded string comparison.
	NoCase CompareFlags = 1 << iota
)

// Compare implements the total order within compatible XSD types:
// numeric promotion, datetime, and lexicographic string comparison
// (optionally case-folded). Returns a TypeError for incompatible pairs.
func Compare(a, b Term, flags CompareFlags) (int, *EvalError) {
	if a.IsNumeric() && b.IsNumeric() {
		av, bv := a.numericValue(), b.numericValue()
		switch {
		case av < bv:
			return -1, nil
		case av > bv:
			return 1, nil
		default:
			return 0, nil
		}
	}
	if a.kind == KindDateTime && b.kind == KindDateTime {
		switch {
		case a.t.Before(b.t):
			return -1, nil
		case a.t.After(b.t):
			return 1, nil
		default:
			return 0, nil
		}
	}
	if a.kind == KindString && b.kind == KindString {
		as, bs := a.lexical, b.lexical
		if flags&NoCase != 0 {
			as, bs = strings.ToLower(as), strings.ToLower(bs)
		}
		return strings.Compare(as, bs), nil
	}
	return 0, newTypeError("Compare: incompatible operand kinds %s and %s", a.kind, b.kind)
}

// Equals implements SPARQL RDF-term equality (spec §4.1): sameTerm for
// URIs/blanks, value equality with coercion for numerics/booleans, and
// exact lexical+lang/datatype match for strings (modulo case-folding).
func Equals(a, b Term, flags CompareFlags) (bool, *EvalError) {
	if a.kind == KindURI || a.kind == KindBlank || b.kind == KindURI || b.kind == KindBlank {
		return SameTerm(a, b), nil
	}
	if a.IsNumeric() && b.IsNumeric() {
		return a.numericValue() == b.numericValue(), nil
	}
	if a.kind == KindBoolean && b.kind == KindBoolean {
		return a.b == b.b, nil
	}
	if a.kind == KindDateTime && b.kind == KindDateTime {
		return a.t.Equal(b.t), nil
	}
	if a.kind == KindString && b.kind == KindString {
		if a.lang != b.lang || a.datatype != b.datatype {
			return false, nil
		}
		if a.datatype != "" {
			if !xsd.ValidForDatatype(a.datatype, a.lexical) {
				return false, newTypeError("Equals: %q is not a valid lexical form for %s", a.lexical, a.datatype)
			}
			if !xsd.ValidForDatatype(b.datatype, b.lexical) {
				return false, newTypeError("Equals: %q is not a valid lexical form for %s", b.lexical, b.datatype)
			}
		}
		as, bs := a.lexical, b.lexical
		if flags&NoCase != 0 {
			as, bs = strings.ToLower(as), strings.ToLower(bs)
		}
		return as == bs, nil
	}
	return false, newTypeError("Equals: incompatible operand kinds %s and %s", a.kind, b.kind)
}

// SameTerm implements strict syntactic identity, with no type coercion.
func SameTerm(a, b Term) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindURI, KindBlank:
		return a.lexical == b.lexical
	case KindString:
		return a.lexical == b.lexical && a.lang == b.lang && a.datatype == b.datatype
	case KindInteger:
		return a.i == b.i
	case KindDecimal, KindDouble, KindFloat:
		return a.f == b.f
	case KindBoolean:
		return a.b == b.b
	case KindDateTime:
		return a.t.Equal(b.t)
	case KindVarRef:
		return a.ref == b.ref
	default:
		return false
	}
}

func promote(a, b Term) TermKind {
	ra, rb := a.numericRank(), b.numericRank()
	if ra >= rb {
		return a.kind
	}
	return b.kind
}

func numericResult(kind TermKind, v float64) Term {
	switch kind {
	case KindInteger:
		return NewInteger(int64(v))
	case KindDecimal:
		return NewDecimal(v)
	case KindFloat:
		return NewFloat(v)
	default:
		return NewDouble(v)
	}
}

// Negate implements unary numeric negation (UMINUS, spec §4.3).
func Negate(a Term) (Term, *EvalError) {
	if !a.IsNumeric() {
		return Term{}, newTypeError("Negate: %s is not numeric", a.kind)
	}
	return numericResult(a.kind, -a.numericValue()), nil
}

// Add implements numeric addition with type promotion (PLUS, spec §4.3).
func Add(a, b Term) (Term, *EvalError) {
	if !a.IsNumeric() || !b.IsNumeric() {
		return Term{}, newTypeError("Add: operands must be numeric, got %s and %s", a.kind, b.kind)
	}
	return numericResult(promote(a, b), a.numericValue()+b.numericValue()), nil
}

// Subtract implements numeric subtraction with type promotion (MINUS, spec §4.3).
func Subtract(a, b Term) (Term, *EvalError) {
	if !a.IsNumeric() || !b.IsNumeric() {
		return Term{}, newTypeError("Subtract: operands must be numeric, got %s and %s", a.kind, b.kind)
	}
	return numericResult(promote(a, b), a.numericValue()-b.numericValue()), nil
}

// Multiply implements numeric multiplication with type promotion (STAR, spec §4.3).
func Multiply(a, b Term) (Term, *EvalError) {
	if !a.IsNumeric() || !b.IsNumeric() {
		return Term{}, newTypeError("Multiply: operands must be numeric, got %s and %s", a.kind, b.kind)
	}
	return numericResult(promote(a, b), a.numericValue()*b.numericValue()), nil
}

// Divide implements numeric division with type promotion (SLASH, spec
// §4.3); division by zero is an ArithmeticError.
func Divide(a, b Term) (Term, *EvalError) {
	if !a.IsNumeric() || !b.IsNumeric() {
		return Term{}, newTypeError("Divide: operands must be numeric, got %s and %s", a.kind, b.kind)
	}
	if b.numericValue() == 0 {
		return Term{}, newArithmeticError("Divide: division by zero")
	}
	return numericResult(promote(a, b), a.numericValue()/b.numericValue()), nil
}

// Remainder implements numeric remainder (REM, spec §4.3); zero divisor
// is an ArithmeticError.
func Remainder(a, b Term) (Term, *EvalError) {
	if !a.IsNumeric() || !b.IsNumeric() {
		return Term{}, newTypeError("Remainder: operands must be numeric, got %s and %s", a.kind, b.kind)
	}
	if b.numericValue() == 0 {
		return Term{}, newArithmeticError("Remainder: division by zero")
	}
	return numericResult(promote(a, b), math.Mod(a.numericValue(), b.numericValue())), nil
}

// Cast implements XSD cast semantics (spec §4.1): converting term to
// the target XSD datatype, failing with CastError on impossible
// conversions.
func Cast(t Term, targetDatatype string, flags AsStringFlags) (Term, *EvalError) {
	switch targetDatatype {
	case xsd.String:
		s, err := AsString(t, flags)
		if err != nil {
			return Term{}, err
		}
		return PlainString(s), nil
	case xsd.Boolean:
		switch t.kind {
		case KindBoolean:
			return t, nil
		case KindString:
			if v, ok := xsd.ParseBoolean(t.lexical); ok {
				return Boolean(v), nil
			}
			return Term{}, newCastError("Cast: %q is not a valid xsd:boolean lexical form", t.lexical)
		case KindInteger, KindDecimal, KindDouble, KindFloat:
			return Boolean(t.numericValue() != 0), nil
		default:
			return Term{}, newCastError("Cast: cannot cast %s to xsd:boolean", t.kind)
		}
	case xsd.Integer:
		switch t.kind {
		case KindInteger:
			return t, nil
		case KindDecimal, KindDouble, KindFloat:
			return NewInteger(int64(t.f)), nil
		case KindBoolean:
			if t.b {
				return NewInteger(1), nil
			}
			return NewInteger(0), nil
		case KindString:
			if !xsd.ValidInteger(t.lexical) {
				return Term{}, newCastError("Cast: %q is not a valid xsd:integer lexical form", t.lexical)
			}
			v, _ := strconv.ParseInt(strings.TrimSpace(t.lexical), 10, 64)
			return NewInteger(v), nil
		default:
			return Term{}, newCastError("Cast: cannot cast %s to xsd:integer", t.kind)
		}
	case xsd.Decimal, xsd.Double, xsd.Float:
		var v float64
		switch t.kind {
		case KindInteger, KindDecimal, KindDouble, KindFloat:
			v = t.numericValue()
		case KindBoolean:
			if t.b {
				v = 1
			}
		case KindString:
			if !xsd.ValidDouble(t.lexical) {
				return Term{}, newCastError("Cast: %q is not a valid numeric lexical form", t.lexical)
			}
			v, _ = strconv.ParseFloat(t.lexical, 64)
		default:
			return Term{}, newCastError("Cast: cannot cast %s to %s", t.kind, targetDatatype)
		}
		switch targetDatatype {
		case xsd.Decimal:
			return NewDecimal(v), nil
		case xsd.Float:
			return NewFloat(v), nil
		default:
			return NewDouble(v), nil
		}
	case xsd.DateTime:
		switch t.kind {
		case KindDateTime:
			return t, nil
		case KindString:
			parsed, err := time.Parse(time.RFC3339, t.lexical)
			if err != nil {
				return Term{}, newCastError("Cast: %q is not a valid xsd:dateTime lexical form", t.lexical)
			}
			return DateTime(parsed), nil
		default:
			return Term{}, newCastError("Cast: cannot cast %s to xsd:dateTime", t.kind)
		}
	default:
		return Term{}, newCastError("Cast: unsupported target datatype <%s>", targetDatatype)
	}
}

// String renders the Term in a SPARQL-ish textual form, for debugging
// and log messages only; it is not a serialization format.
func (t Term) String() string {
	switch t.kind {
	case KindURI:
		return "<" + t.lexical + ">"
	case KindBlank:
		return "_:" + t.lexical
	case KindString:
		if t.lang != "" {
			return fmt.Sprintf("%q@%s", t.lexical, t.lang)
		}
		if t.datatype != "" {
			return fmt.Sprintf("%q^^<%s>", t.lexical, t.datatype)
		}
		return fmt.Sprintf("%q", t.lexical)
	case KindVarRef:
		if t.ref != nil {
			return "?" + t.ref.Name
		}
		return "?"
	default:
		return t.lexical
	}
}
