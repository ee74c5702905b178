package rdfexpr

import "testing"

// TestReferenceCountingInvariant exercises spec §8 property 1: every
// Ref/construct is eventually balanced by a Release, and Release only
// recurses into children once the node's count reaches zero.
func TestReferenceCountingInvariant(t *testing.T) {
	allocBefore := AllocCount()
	releaseBefore := ReleaseCount()

	lhs := NewLiteralExpr(NewInteger(1))
	rhs := NewLiteralExpr(NewInteger(2))
	sum, err := NewBinaryExpr(OpPlus, lhs, rhs)
	if err != nil {
		t.Fatalf("NewBinaryExpr: %v", err)
	}

	Ref(sum)
	if sum.refCount != 2 {
		t.Fatalf("refCount after Ref = %d, want 2", sum.refCount)
	}
	Release(sum)
	if sum.refCount != 1 {
		t.Fatalf("refCount after first Release = %d, want 1", sum.refCount)
	}
	if ReleaseCount() != releaseBefore {
		t.Fatalf("ReleaseCount advanced before refCount reached zero")
	}

	Release(sum)
	if ReleaseCount() != releaseBefore+3 {
		t.Fatalf("ReleaseCount = %d, want %d after refCount reached zero (sum, lhs, rhs)", ReleaseCount(), releaseBefore+3)
	}

	allocAfter := AllocCount()
	if allocAfter-allocBefore != 3 {
		t.Fatalf("AllocCount advanced by %d, want 3 (lhs, rhs, sum)", allocAfter-allocBefore)
	}
}

func TestBinaryExprRejectsNilChild(t *testing.T) {
	lit := NewLiteralExpr(NewInteger(1))
	if _, err := NewBinaryExpr(OpPlus, lit, nil); err == nil {
		t.Fatal("NewBinaryExpr with nil arg2 = nil error, want error")
	}
}

func TestBoundRequiresVarRefLiteral(t *testing.T) {
	notAVar := NewLiteralExpr(NewInteger(1))
	e, err := NewBoundExpr(notAVar)
	if err != nil {
		t.Fatalf("NewBoundExpr construction: %v", err)
	}
	world := NewWorld()
	_, evalErr := Evaluate(world, nil, e, 0)
	if evalErr == nil || evalErr.Kind != KindTypeError {
		t.Fatalf("Evaluate(BOUND(non-variable)) = %v, want TypeError", evalErr)
	}
}

func TestInExprArity(t *testing.T) {
	if _, err := NewInExpr(nil, nil, false); err == nil {
		t.Fatal("NewInExpr with nil discriminant = nil error, want error")
	}
}
