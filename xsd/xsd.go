// Package xsd exports IRIs of the XML Schema built-in datatypes used by
// the RDF term model, and the small set of lexical-form checks the
// evaluator needs for XSD cast and type-validity checking.
package xsd

import "strconv"

// The XML schema built-in datatypes (xsd):
// https://www.w3.org/TR/xmlschema-2/#built-in-datatypes
const (
	String  = "http://www.w3.org/2001/XMLSchema#string"
	Boolean = "http://www.w3.org/2001/XMLSchema#boolean"
	Decimal = "http://www.w3.org/2001/XMLSchema#decimal"
	Integer = "http://www.w3.org/2001/XMLSchema#integer"

	// IEEE floating-point numbers:
	Double = "http://www.w3.org/2001/XMLSchema#double"
	Float  = "http://www.w3.org/2001/XMLSchema#float"

	// Time and date:
	DateTime = "http://www.w3.org/2001/XMLSchema#dateTime"

	// xsd:anyURI. The evaluator does not return it: DATATYPE() on a
	// URI or blank node term is a TypeError.
	AnyURI = "http://www.w3.org/2001/XMLSchema#anyURI"
)

// IsNumeric reports whether uri names one of the XSD numeric datatypes
// recognized by this core (integer, decimal, float, double).
func IsNumeric(uri string) bool {
	switch uri {
	case Integer, Decimal, Float, Double:
		return true
	default:
		return false
	}
}

// ValidBoolean reports whether lex is a valid xsd:boolean lexical form.
func ValidBoolean(lex string) bool {
	switch lex {
	case "true", "false", "1", "0":
		return true
	default:
		return false
	}
}

// ParseBoolean parses an xsd:boolean lexical form.
func ParseBoolean(lex string) (bool, bool) {
	switch lex {
	case "true", "1":
		return true, true
	case "false", "0":
		return false, true
	default:
		return false, false
	}
}

// ValidInteger reports whether lex is a valid xsd:integer lexical form.
func ValidInteger(lex string) bool {
	_, err := strconv.ParseInt(lex, 10, 64)
	return err == nil
}

// ValidDecimal reports whether lex is a valid xsd:decimal lexical form
// (no exponent allowed, unlike float/double).
func ValidDecimal(lex string) bool {
	if lex == "" {
		return false
	}
	i := 0
	if lex[i] == '+' || lex[i] == '-' {
		i++
	}
	sawDigit := false
	sawDot := false
	for ; i < len(lex); i++ {
		switch {
		case lex[i] >= '0' && lex[i] <= '9':
			sawDigit = true
		case lex[i] == '.' && !sawDot:
			sawDot = true
		default:
			return false
		}
	}
	return sawDigit
}

// ValidDouble reports whether lex is a valid xsd:double/xsd:float lexical form.
func ValidDouble(lex string) bool {
	switch lex {
	case "NaN", "INF", "-INF", "+INF":
		return true
	}
	_, err := strconv.ParseFloat(lex, 64)
	return err == nil
}

// ValidForDatatype reports whether lex is a valid lexical form for the
// XSD datatype named by uri. Datatypes this package has no dedicated
// validator for (string, dateTime, anyURI, unrecognized URIs) are
// treated as always valid: their lexical space is unconstrained here.
func ValidForDatatype(uri, lex string) bool {
	switch uri {
	case Boolean:
		return ValidBoolean(lex)
	case Integer:
		return ValidInteger(lex)
	case Decimal:
		return ValidDecimal(lex)
	case Float, Double:
		return ValidDouble(lex)
	default:
		return true
	}
}
