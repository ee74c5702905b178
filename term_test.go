package rdfexpr

import "testing"

func TestAsBoolean(t *testing.T) {
	tests := []struct {
		name    string
		term    Term
		want    bool
		wantErr bool
	}{
		{name: "true", term: Boolean(true), want: true},
		{name: "false", term: Boolean(false), want: false},
		{name: "nonempty string", term: PlainString("x"), want: true},
		{name: "empty string", term: PlainString(""), want: false},
		{name: "nonzero integer", term: NewInteger(3), want: true},
		{name: "zero integer", term: NewInteger(0), want: false},
		{name: "uri", term: URI("http://example/"), wantErr: true},
		{name: "blank", term: Blank("b0"), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := AsBoolean(tt.term)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("AsBoolean(%v) = nil error, want error", tt.term)
				}
				return
			}
			if err != nil {
				t.Fatalf("AsBoolean(%v) = %v, want no error", tt.term, err)
			}
			if got != tt.want {
				t.Errorf("AsBoolean(%v) = %v, want %v", tt.term, got, tt.want)
			}
		})
	}
}

func TestCompareNumericPromotion(t *testing.T) {
	cmp, err := Compare(NewInteger(1), NewDouble(1.5), 0)
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if cmp >= 0 {
		t.Errorf("Compare(1, 1.5) = %d, want negative", cmp)
	}
}

func TestCompareIncompatible(t *testing.T) {
	if _, err := Compare(URI("http://x/"), NewInteger(1), 0); err == nil {
		t.Fatal("Compare(uri, integer) = nil error, want TypeError")
	} else if err.Kind != KindTypeError {
		t.Errorf("Compare(uri, integer) kind = %v, want TypeError", err.Kind)
	}
}

func TestEqualsStringRequiresMatchingLangAndDatatype(t *testing.T) {
	a := LangString("chat", "en")
	b := LangString("chat", "fr")
	eq, err := Equals(a, b, 0)
	if err != nil {
		t.Fatalf("Equals: %v", err)
	}
	if eq {
		t.Errorf("Equals(%v, %v) = true, want false (differing lang)", a, b)
	}
}

func TestEqualsNoCaseFoldsStrings(t *testing.T) {
	eq, err := Equals(PlainString("Chat"), PlainString("chat"), NoCase)
	if err != nil {
		t.Fatalf("Equals: %v", err)
	}
	if !eq {
		t.Error("Equals with NoCase should fold case")
	}
}

func TestEqualsInvalidLexicalFormIsTypeError(t *testing.T) {
	a := TypedString("abc", "http://www.w3.org/2001/XMLSchema#integer")
	b := TypedString("5", "http://www.w3.org/2001/XMLSchema#integer")
	_, err := Equals(a, b, 0)
	if err == nil || err.Kind != KindTypeError {
		t.Fatalf("Equals(\"abc\"^^xsd:integer, \"5\"^^xsd:integer) = %v, want TypeError", err)
	}
}

func TestSameTermStricterThanEquals(t *testing.T) {
	a := NewInteger(1)
	b := NewDecimal(1)
	eq, err := Equals(a, b, 0)
	if err != nil || !eq {
		t.Fatalf("Equals(1, 1.0) = (%v, %v), want (true, nil)", eq, err)
	}
	if SameTerm(a, b) {
		t.Error("SameTerm(integer 1, decimal 1.0) = true, want false: different kinds")
	}
}

func TestArithmeticPromotion(t *testing.T) {
	sum, err := Add(NewInteger(1), NewDouble(2.5))
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if sum.Kind() != KindDouble {
		t.Errorf("Add(integer, double) kind = %v, want Double", sum.Kind())
	}
	if sum.numericValue() != 3.5 {
		t.Errorf("Add(1, 2.5) = %v, want 3.5", sum.numericValue())
	}
}

func TestDivideByZero(t *testing.T) {
	_, err := Divide(NewInteger(1), NewInteger(0))
	if err == nil {
		t.Fatal("Divide(1, 0) = nil error, want ArithmeticError")
	}
	if err.Kind != KindArithmeticError {
		t.Errorf("Divide(1, 0) kind = %v, want ArithmeticError", err.Kind)
	}
}

func TestRemainderByZero(t *testing.T) {
	_, err := Remainder(NewInteger(5), NewInteger(0))
	if err == nil || err.Kind != KindArithmeticError {
		t.Fatalf("Remainder(5, 0) = %v, want ArithmeticError", err)
	}
}

func TestCastStringToInteger(t *testing.T) {
	got, err := Cast(PlainString("42"), "http://www.w3.org/2001/XMLSchema#integer", 0)
	if err != nil {
		t.Fatalf("Cast: %v", err)
	}
	iv, err := AsInteger(got)
	if err != nil {
		t.Fatalf("AsInteger: %v", err)
	}
	if iv != 42 {
		t.Errorf("Cast(\"42\" as integer) = %d, want 42", iv)
	}
}

func TestCastInvalidLexicalIsCastError(t *testing.T) {
	_, err := Cast(PlainString("not-a-number"), "http://www.w3.org/2001/XMLSchema#integer", 0)
	if err == nil || err.Kind != KindCastError {
		t.Fatalf("Cast(\"not-a-number\" as integer) = %v, want CastError", err)
	}
}

func TestLiteralRoundTrip(t *testing.T) {
	orig := "007"
	lit := Integer(orig, 7)
	if lit.Lexical() != orig {
		t.Errorf("Lexical() = %q, want %q (lossless round trip)", lit.Lexical(), orig)
	}
}
