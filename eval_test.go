package rdfexpr

import "testing"

func mustExpr(t *testing.T, e *Expr, err error) *Expr {
	t.Helper()
	if err != nil {
		t.Fatalf("expression construction failed: %v", err)
	}
	return e
}

func TestEvaluateArithmetic(t *testing.T) {
	world := NewWorld()
	one := NewLiteralExpr(NewInteger(1))
	two := NewLiteralExpr(NewInteger(2))
	sum := mustExpr(t, NewBinaryExpr(OpPlus, one, two))

	got, err := Evaluate(world, nil, sum, 0)
	if err != nil {
		t.Fatalf("Evaluate(1+2): %v", err)
	}
	iv, _ := AsInteger(got)
	if iv != 3 {
		t.Errorf("Evaluate(1+2) = %d, want 3", iv)
	}
}

func TestEvaluateDivisionByZero(t *testing.T) {
	world := NewWorld()
	expr := mustExpr(t, NewBinaryExpr(OpSlash, NewLiteralExpr(NewInteger(1)), NewLiteralExpr(NewInteger(0))))
	_, err := Evaluate(world, nil, expr, 0)
	if err == nil || err.Kind != KindArithmeticError {
		t.Fatalf("Evaluate(1/0) = %v, want ArithmeticError", err)
	}
}

func TestEvaluateThreeValuedAndSwallowsRightError(t *testing.T) {
	world := NewWorld()
	left := NewLiteralExpr(Boolean(false))
	rightErr := mustExpr(t, NewBoundExpr(NewLiteralExpr(NewInteger(1))))
	andExpr := mustExpr(t, NewBinaryExpr(OpAnd, left, rightErr))

	got, err := Evaluate(world, nil, andExpr, 0)
	if err != nil {
		t.Fatalf("Evaluate(AND(false, error)) = error %v, want Value(false)", err)
	}
	b, _ := AsBoolean(got)
	if b {
		t.Errorf("Evaluate(AND(false, error)) = true, want false")
	}
}

func TestEvaluateThreeValuedOrSwallowsLeftError(t *testing.T) {
	world := NewWorld()
	leftErr := mustExpr(t, NewBoundExpr(NewLiteralExpr(NewInteger(1))))
	right := NewLiteralExpr(Boolean(true))
	orExpr := mustExpr(t, NewBinaryExpr(OpOr, leftErr, right))

	got, err := Evaluate(world, nil, orExpr, 0)
	if err != nil {
		t.Fatalf("Evaluate(OR(error, true)) = error %v, want Value(true)", err)
	}
	b, _ := AsBoolean(got)
	if !b {
		t.Errorf("Evaluate(OR(error, true)) = false, want true")
	}
}

func TestEvaluateAndPropagatesErrorWhenNoShortCircuit(t *testing.T) {
	world := NewWorld()
	leftErr := mustExpr(t, NewBoundExpr(NewLiteralExpr(NewInteger(1))))
	rightErr := mustExpr(t, NewBoundExpr(NewLiteralExpr(NewInteger(2))))
	andExpr := mustExpr(t, NewBinaryExpr(OpAnd, leftErr, rightErr))

	_, err := Evaluate(world, nil, andExpr, 0)
	if err == nil {
		t.Fatal("Evaluate(AND(error, error)) = nil error, want Error")
	}
}

func TestEvaluateAndPropagatesCoercionError(t *testing.T) {
	world := NewWorld()
	badLeft := NewLiteralExpr(URI("http://example/x"))
	right := NewLiteralExpr(Boolean(true))
	andExpr := mustExpr(t, NewBinaryExpr(OpAnd, badLeft, right))

	_, err := Evaluate(world, nil, andExpr, 0)
	if err == nil {
		t.Fatal("Evaluate(AND(URI, true)) = nil error, want Error (E AND T = E)")
	}
}

func TestEvaluateOrPropagatesCoercionError(t *testing.T) {
	world := NewWorld()
	badLeft := NewLiteralExpr(URI("http://example/x"))
	right := NewLiteralExpr(Boolean(false))
	orExpr := mustExpr(t, NewBinaryExpr(OpOr, badLeft, right))

	_, err := Evaluate(world, nil, orExpr, 0)
	if err == nil {
		t.Fatal("Evaluate(OR(URI, false)) = nil error, want Error (E OR F = E)")
	}
}

func TestEvaluateAndCoercionErrorShortCircuitsOnFalseOperand(t *testing.T) {
	world := NewWorld()
	badLeft := NewLiteralExpr(URI("http://example/x"))
	right := NewLiteralExpr(Boolean(false))
	andExpr := mustExpr(t, NewBinaryExpr(OpAnd, badLeft, right))

	got, err := Evaluate(world, nil, andExpr, 0)
	if err != nil {
		t.Fatalf("Evaluate(AND(URI, false)) = error %v, want Value(false) (E AND F = F)", err)
	}
	if b, _ := AsBoolean(got); b {
		t.Errorf("Evaluate(AND(URI, false)) = true, want false")
	}
}

func TestEvaluateOrCoercionErrorShortCircuitsOnTrueOperand(t *testing.T) {
	world := NewWorld()
	badLeft := NewLiteralExpr(URI("http://example/x"))
	right := NewLiteralExpr(Boolean(true))
	orExpr := mustExpr(t, NewBinaryExpr(OpOr, badLeft, right))

	got, err := Evaluate(world, nil, orExpr, 0)
	if err != nil {
		t.Fatalf("Evaluate(OR(URI, true)) = error %v, want Value(true) (E OR T = T)", err)
	}
	if b, _ := AsBoolean(got); !b {
		t.Errorf("Evaluate(OR(URI, true)) = false, want true")
	}
}

func TestEvaluateRegexCaseInsensitivity(t *testing.T) {
	world := NewWorld()
	text := NewLiteralExpr(PlainString("abcdef"))
	pattern := NewLiteralExpr(PlainString("^ABC"))

	withFlag := mustExpr(t, NewRegexExpr(OpRegex, text, pattern, NewLiteralExpr(PlainString("i"))))
	got, err := Evaluate(world, nil, withFlag, 0)
	if err != nil {
		t.Fatalf("Evaluate(REGEX with i flag): %v", err)
	}
	if b, _ := AsBoolean(got); !b {
		t.Error("REGEX(\"abcdef\", \"^ABC\", \"i\") = false, want true")
	}

	withoutFlag := mustExpr(t, NewRegexExpr(OpRegex, text, pattern, nil))
	got, err = Evaluate(world, nil, withoutFlag, 0)
	if err != nil {
		t.Fatalf("Evaluate(REGEX without flag): %v", err)
	}
	if b, _ := AsBoolean(got); b {
		t.Error("REGEX(\"abcdef\", \"^ABC\") without i = true, want false")
	}
}

func TestLangMatchesTable(t *testing.T) {
	tests := []struct {
		tag, rng string
		want     bool
	}{
		{tag: "en", rng: "*", want: true},
		{tag: "", rng: "*", want: false},
		{tag: "en-US", rng: "en", want: true},
		{tag: "en-US", rng: "EN", want: true},
		{tag: "en", rng: "en-US", want: false},
		{tag: "fr", rng: "en", want: false},
		{tag: "en", rng: "en", want: true},
	}
	for _, tt := range tests {
		if got := LangMatches(tt.tag, tt.rng); got != tt.want {
			t.Errorf("LangMatches(%q, %q) = %v, want %v", tt.tag, tt.rng, got, tt.want)
		}
	}
}

func TestEvaluateCoalesceFirstValueWins(t *testing.T) {
	world := NewWorld()
	errExpr := mustExpr(t, NewBoundExpr(NewLiteralExpr(NewInteger(1))))
	valExpr := NewLiteralExpr(NewInteger(42))
	coalesce := NewCoalesceExpr([]*Expr{errExpr, valExpr})

	got, err := Evaluate(world, nil, coalesce, 0)
	if err != nil {
		t.Fatalf("Evaluate(COALESCE(error, 42)): %v", err)
	}
	iv, _ := AsInteger(got)
	if iv != 42 {
		t.Errorf("Evaluate(COALESCE(error, 42)) = %d, want 42", iv)
	}
}

func TestEvaluateCoalesceAllErrorsPropagates(t *testing.T) {
	world := NewWorld()
	errExpr := mustExpr(t, NewBoundExpr(NewLiteralExpr(NewInteger(1))))
	coalesce := NewCoalesceExpr([]*Expr{errExpr})

	_, err := Evaluate(world, nil, coalesce, 0)
	if err == nil {
		t.Fatal("Evaluate(COALESCE(error)) = nil error, want Error")
	}
}

func TestEvaluateInMembership(t *testing.T) {
	world := NewWorld()
	discriminant := NewLiteralExpr(NewInteger(2))
	candidates := []*Expr{NewLiteralExpr(NewInteger(1)), NewLiteralExpr(NewInteger(2))}
	inExpr := mustExpr(t, NewInExpr(discriminant, candidates, false))

	got, err := Evaluate(world, nil, inExpr, 0)
	if err != nil {
		t.Fatalf("Evaluate(IN(2, 1, 2)): %v", err)
	}
	if b, _ := AsBoolean(got); !b {
		t.Error("Evaluate(IN(2, 1, 2)) = false, want true")
	}
}

func TestEvaluateStrLangReadsArg2ForLanguage(t *testing.T) {
	world := NewWorld()
	value := NewLiteralExpr(PlainString("chat"))
	lang := NewLiteralExpr(PlainString("fr"))
	strLang := mustExpr(t, NewBinaryExpr(OpStrLang, value, lang))

	got, err := Evaluate(world, nil, strLang, 0)
	if err != nil {
		t.Fatalf("Evaluate(STRLANG): %v", err)
	}
	if got.Lang() != "fr" {
		t.Errorf("STRLANG(\"chat\", \"fr\").Lang() = %q, want %q", got.Lang(), "fr")
	}
	if got.Lexical() != "chat" {
		t.Errorf("STRLANG(\"chat\", \"fr\").Lexical() = %q, want %q", got.Lexical(), "chat")
	}
}

func TestEvaluateBoundReflectsBindingState(t *testing.T) {
	world := NewWorld()
	v := NewVariable("x")
	boundExpr := mustExpr(t, NewBoundExpr(NewLiteralExpr(VarRef(v))))

	got, err := Evaluate(world, nil, boundExpr, 0)
	if err != nil {
		t.Fatalf("Evaluate(BOUND(?x)) unbound: %v", err)
	}
	if b, _ := AsBoolean(got); b {
		t.Error("BOUND(?x) before binding = true, want false")
	}

	v.Bind(NewInteger(1))
	got, err = Evaluate(world, nil, boundExpr, 0)
	if err != nil {
		t.Fatalf("Evaluate(BOUND(?x)) bound: %v", err)
	}
	if b, _ := AsBoolean(got); !b {
		t.Error("BOUND(?x) after binding = false, want true")
	}
}

func TestEvaluateLiteralFlattensVarRef(t *testing.T) {
	world := NewWorld()
	v := NewVariable("x")
	v.Bind(NewInteger(7))
	litExpr := NewLiteralExpr(VarRef(v))

	got, err := Evaluate(world, nil, litExpr, 0)
	if err != nil {
		t.Fatalf("Evaluate(LITERAL(?x)): %v", err)
	}
	iv, _ := AsInteger(got)
	if iv != 7 {
		t.Errorf("Evaluate(LITERAL(?x)) = %d, want 7", iv)
	}
}

func TestEvaluateBNodeDeterministicInArgument(t *testing.T) {
	world := NewWorld()
	bnode := NewBNodeExpr(NewLiteralExpr(PlainString("seed")))

	first, err := Evaluate(world, nil, bnode, 0)
	if err != nil {
		t.Fatalf("Evaluate(BNODE(seed)): %v", err)
	}
	second, err := Evaluate(world, nil, bnode, 0)
	if err != nil {
		t.Fatalf("Evaluate(BNODE(seed)) second call: %v", err)
	}
	if first.Lexical() != second.Lexical() {
		t.Errorf("BNODE(seed) not deterministic: %q vs %q", first.Lexical(), second.Lexical())
	}
}
