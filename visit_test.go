package rdfexpr

import "testing"

func TestIsConstant(t *testing.T) {
	lit := NewLiteralExpr(NewInteger(1))
	if !IsConstant(lit) {
		t.Error("IsConstant(LITERAL(1)) = false, want true")
	}

	v := NewVariable("x")
	varLit := NewLiteralExpr(VarRef(v))
	if IsConstant(varLit) {
		t.Error("IsConstant(LITERAL(?x)) = true, want false")
	}

	sum := mustExpr(t, NewBinaryExpr(OpPlus, NewLiteralExpr(NewInteger(1)), varLit))
	if IsConstant(sum) {
		t.Error("IsConstant(1 + ?x) = true, want false")
	}

	allConst := mustExpr(t, NewBinaryExpr(OpPlus, NewLiteralExpr(NewInteger(1)), NewLiteralExpr(NewInteger(2))))
	if !IsConstant(allConst) {
		t.Error("IsConstant(1 + 2) = false, want true")
	}

	bnode := NewBNodeExpr(nil)
	if IsConstant(bnode) {
		t.Error("IsConstant(BNODE()) = true, want false (non-deterministic)")
	}
}

func TestMentionedVariables(t *testing.T) {
	x := NewVariable("x")
	y := NewVariable("y")
	expr := mustExpr(t, NewBinaryExpr(OpPlus,
		NewLiteralExpr(VarRef(x)),
		mustExpr(t, NewBinaryExpr(OpStar, NewLiteralExpr(VarRef(y)), NewLiteralExpr(VarRef(x)))),
	))

	names := MentionedVariables(expr)
	if !names.Contains("x") || !names.Contains("y") {
		t.Errorf("MentionedVariables = %v, want {x, y}", names)
	}
	if names.Len() != 2 {
		t.Errorf("MentionedVariables has %d entries, want 2 (deduplicated)", names.Len())
	}
}

func TestEvalSequence(t *testing.T) {
	world := NewWorld()
	exprs := []*Expr{
		NewLiteralExpr(NewInteger(1)),
		NewLiteralExpr(NewInteger(2)),
		NewLiteralExpr(NewInteger(3)),
	}
	got, err := EvalSequence(world, nil, exprs, 0)
	if err != nil {
		t.Fatalf("EvalSequence: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("EvalSequence returned %d terms, want 3", len(got))
	}
	for i, want := range []int64{1, 2, 3} {
		iv, _ := AsInteger(got[i])
		if iv != want {
			t.Errorf("EvalSequence[%d] = %d, want %d", i, iv, want)
		}
	}
}

func TestEvalSequenceStopsAtFirstError(t *testing.T) {
	world := NewWorld()
	errExpr := mustExpr(t, NewBoundExpr(NewLiteralExpr(NewInteger(1))))
	exprs := []*Expr{NewLiteralExpr(NewInteger(1)), errExpr, NewLiteralExpr(NewInteger(2))}
	if _, err := EvalSequence(world, nil, exprs, 0); err == nil {
		t.Fatal("EvalSequence with a failing element = nil error, want Error")
	}
}
