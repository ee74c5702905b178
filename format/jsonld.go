package format

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	jsonv2 "github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
	"github.com/google/mangle/ast"
	"github.com/piprate/json-gold/ld"

	"github.com/twinfer/rdfexpr"
	"github.com/twinfer/rdfexpr/xsd"
)

// This file bridges the dataset's Triple/Term model to RDF quads and
// JSON-LD via piprate/json-gold, the way the teacher's rdf/
// subpackage bridges Mangle atoms to RDF quads. Unlike the teacher's
// atom reification (arity 0/1/2/3+ patterns, since Datalog atoms have
// no native triple shape), a Triple already is a subject-predicate-
// object statement, so there is no reification here. mangle/ast is
// still used the way rdf_converter.go's constantToRDFNode/
// rdfNodeToConstant use it, as a value-typing hop for literal values
// only (String/Number/Float64); Mangle names require a leading "/"
// (atom_parser.go) that an arbitrary RDF IRI or blank node id does not
// have, so URIs and blank nodes go straight to ld.NewIRI/ld.NewBlankNode
// from the Term's own lexical form instead of through ast.Name.
// ast.Constant has no lang-tag slot and collapses decimal/float/double
// into one float kind, so it carries only the bare value; lang tags
// and datatype URIs are attached directly on the ld.Literal alongside
// it.

const jsonldGraphName = "@default"

// tripleToQuad converts one Triple to an *ld.Quad in the default graph.
func tripleToQuad(t rdfexpr.Triple) (*ld.Quad, error) {
	subject, err := termToRDFNode(t.Subject)
	if err != nil {
		return nil, fmt.Errorf("format: subject: %w", err)
	}
	predicate, err := termToRDFNode(t.Predicate)
	if err != nil {
		return nil, fmt.Errorf("format: predicate: %w", err)
	}
	object, err := termToRDFNode(t.Object)
	if err != nil {
		return nil, fmt.Errorf("format: object: %w", err)
	}
	return ld.NewQuad(subject, predicate, object, jsonldGraphName), nil
}

// termToConstant converts a literal Term's bare value to an ast.Constant,
// the same value-typing step rdf_converter.go's constantToRDFNode
// performs in the opposite direction (spec §4.8, §4.7 mangle/ast
// wiring). Mangle names must begin with "/" (atom_parser.go), which an
// arbitrary RDF IRI or blank node id generally does not, so URIs and
// blank nodes are not routed through ast.Name here; only the literal
// value kinds (string/number/float) go through ast.Constant, the way
// the teacher's own ast.Name calls are reserved for already-parsed
// Mangle names rather than arbitrary external identifiers.
func termToConstant(t rdfexpr.Term) (ast.Constant, error) {
	switch t.Kind() {
	case rdfexpr.KindInteger:
		v, err := rdfexpr.AsInteger(t)
		if err != nil {
			return ast.Constant{}, err
		}
		return ast.Number(v), nil
	case rdfexpr.KindDecimal, rdfexpr.KindDouble, rdfexpr.KindFloat:
		s, err := rdfexpr.AsString(t, 0)
		if err != nil {
			return ast.Constant{}, err
		}
		f, perr := strconv.ParseFloat(s, 64)
		if perr != nil {
			return ast.Constant{}, fmt.Errorf("format: %q is not a valid numeric lexical form: %w", s, perr)
		}
		return ast.Float64(f), nil
	default:
		s, err := rdfexpr.AsString(t, 0)
		if err != nil {
			return ast.Constant{}, err
		}
		return ast.String(s), nil
	}
}

// constantToLDNode converts a literal-valued ast.Constant to a
// json-gold RDF literal node, attaching the lang/datatype metadata the
// Constant itself cannot carry.
func constantToLDNode(c ast.Constant, lang, datatype string) (ld.Node, error) {
	switch c.Type {
	case ast.StringType:
		s, err := c.StringValue()
		if err != nil {
			return nil, err
		}
		return ld.NewLiteral(s, datatype, lang), nil
	case ast.NumberType:
		n, err := c.NumberValue()
		if err != nil {
			return nil, err
		}
		return ld.NewLiteral(strconv.FormatInt(n, 10), datatype, lang), nil
	case ast.Float64Type:
		f, err := c.Float64Value()
		if err != nil {
			return nil, err
		}
		return ld.NewLiteral(strconv.FormatFloat(f, 'g', -1, 64), datatype, lang), nil
	default:
		return nil, fmt.Errorf("format: unsupported mangle constant type %v for RDF conversion", c.Type)
	}
}

// termToRDFNode converts an RDF term to a json-gold RDF node. URIs and
// blank nodes map directly to ld.NewIRI/ld.NewBlankNode from the
// Term's own lexical form; literal values route their bare value
// through ast.Constant (spec §4.7) before becoming an ld.Literal.
func termToRDFNode(t rdfexpr.Term) (ld.Node, error) {
	switch t.RDFTermType() {
	case rdfexpr.RDFTermURI:
		return ld.NewIRI(t.Lexical()), nil
	case rdfexpr.RDFTermBlank:
		return ld.NewBlankNode("_:" + t.Lexical()), nil
	}
	c, err := termToConstant(t)
	if err != nil {
		return nil, err
	}
	lang := t.Lang()
	datatype := t.Datatype()
	if datatype == "" {
		datatype = xsd.String
	}
	return constantToLDNode(c, lang, datatype)
}

// rdfNodeToConstant converts a json-gold RDF literal node to an
// ast.Constant, the inverse value-typing step of termToConstant,
// grounded on rdf_converter.go's own rdfNodeToConstant. Only literal
// nodes are handled; IRIs and blank nodes never passed through
// ast.Name (see termToConstant) so they never pass through here.
func rdfNodeToConstant(node ld.Node) (ast.Constant, error) {
	switch {
	case ld.IsLiteral(node):
		lit := node.(ld.Literal)
		switch lit.Datatype {
		case xsd.Integer:
			n, err := strconv.ParseInt(lit.Value, 10, 64)
			if err != nil {
				return ast.Constant{}, fmt.Errorf("format: %q is not a valid xsd:integer lexical form: %w", lit.Value, err)
			}
			return ast.Number(n), nil
		case xsd.Decimal, xsd.Double, xsd.Float:
			f, err := strconv.ParseFloat(lit.Value, 64)
			if err != nil {
				return ast.Constant{}, fmt.Errorf("format: %q is not a valid numeric lexical form: %w", lit.Value, err)
			}
			return ast.Float64(f), nil
		default:
			return ast.String(lit.Value), nil
		}
	default:
		return ast.Constant{}, fmt.Errorf("format: unrecognized RDF node type %T", node)
	}
}

// rdfNodeToTerm converts a json-gold RDF node back to a Term. IRIs and
// blank nodes are read directly off the node; literal values route
// their bare value through rdfNodeToConstant and reattach lang/
// datatype from the original ld.Literal where present.
func rdfNodeToTerm(node ld.Node) (rdfexpr.Term, error) {
	switch {
	case ld.IsIRI(node):
		return rdfexpr.URI(node.(ld.IRI).Value), nil
	case ld.IsBlankNode(node):
		bn := node.(ld.BlankNode)
		return rdfexpr.Blank(strings.TrimPrefix(bn.Attribute, "_:")), nil
	case ld.IsLiteral(node):
		lit := node.(ld.Literal)
		c, err := rdfNodeToConstant(node)
		if err != nil {
			return rdfexpr.Term{}, err
		}
		switch {
		case c.Type == ast.NumberType:
			n, nerr := c.NumberValue()
			if nerr != nil {
				return rdfexpr.Term{}, nerr
			}
			return rdfexpr.NewInteger(n), nil
		case c.Type == ast.Float64Type:
			f, ferr := c.Float64Value()
			if ferr != nil {
				return rdfexpr.Term{}, ferr
			}
			return rdfexpr.NewDouble(f), nil
		case lit.Language != "":
			s, serr := c.StringValue()
			if serr != nil {
				return rdfexpr.Term{}, serr
			}
			return rdfexpr.LangString(s, lit.Language), nil
		case lit.Datatype != "" && lit.Datatype != xsd.String:
			s, serr := c.StringValue()
			if serr != nil {
				return rdfexpr.Term{}, serr
			}
			return rdfexpr.TypedString(s, lit.Datatype), nil
		default:
			s, serr := c.StringValue()
			if serr != nil {
				return rdfexpr.Term{}, serr
			}
			return rdfexpr.PlainString(s), nil
		}
	default:
		return rdfexpr.Term{}, fmt.Errorf("format: unrecognized RDF node type %T", node)
	}
}

// DatasetToRDF converts every triple in d to a json-gold *ld.RDFDataset
// in the default graph, for use with a json-gold JsonLdProcessor (spec
// §4.8).
func DatasetToRDF(d *rdfexpr.Dataset) (*ld.RDFDataset, error) {
	out := ld.NewRDFDataset()
	for _, tri := range d.Triples() {
		quad, err := tripleToQuad(tri)
		if err != nil {
			return nil, err
		}
		out.Graphs[jsonldGraphName] = append(out.Graphs[jsonldGraphName], quad)
	}
	return out, nil
}

// RDFToDataset appends every quad in the default graph of rd to d as a
// Triple (spec §4.8).
func RDFToDataset(rd *ld.RDFDataset, d *rdfexpr.Dataset) error {
	for _, quad := range rd.GetQuads(jsonldGraphName) {
		s, err := rdfNodeToTerm(quad.Subject)
		if err != nil {
			return err
		}
		p, err := rdfNodeToTerm(quad.Predicate)
		if err != nil {
			return err
		}
		o, err := rdfNodeToTerm(quad.Object)
		if err != nil {
			return err
		}
		d.Add(s, p, o)
	}
	return nil
}

// WriteJSONLD serializes d as a JSON-LD document, mirroring the
// teacher's AtomRDFJSONLD.MarshalJSONTo (RDF-dataset-as-intermediate)
// pattern.
func WriteJSONLD(w io.Writer, d *rdfexpr.Dataset) error {
	rd, err := DatasetToRDF(d)
	if err != nil {
		return err
	}
	proc := ld.NewJsonLdProcessor()
	opts := ld.NewJsonLdOptions("")
	opts.UseNativeTypes = true
	doc, err := proc.FromRDF(rd, opts)
	if err != nil {
		return fmt.Errorf("format: RDF to JSON-LD: %w", err)
	}
	enc := jsontext.NewEncoder(w)
	return jsonv2.MarshalEncode(enc, doc)
}

// ReadJSONLD parses a JSON-LD document from r, converts it to RDF, and
// appends the resulting triples to d.
func ReadJSONLD(r io.Reader, d *rdfexpr.Dataset) error {
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(r); err != nil {
		return err
	}
	var doc any
	if err := jsonv2.Unmarshal(buf.Bytes(), &doc); err != nil {
		return fmt.Errorf("format: parse JSON-LD: %w", err)
	}
	proc := ld.NewJsonLdProcessor()
	opts := ld.NewJsonLdOptions("")
	rdRaw, err := proc.ToRDF(doc, opts)
	if err != nil {
		return fmt.Errorf("format: JSON-LD to RDF: %w", err)
	}
	rd, ok := rdRaw.(*ld.RDFDataset)
	if !ok {
		return fmt.Errorf("format: unexpected RDF dataset type %T", rdRaw)
	}
	return RDFToDataset(rd, d)
}

// DatasetToRDF/RDFToDataset/WriteJSONLD/ReadJSONLD operate on whole
// datasets, not result sets, so they are exported directly rather than
// registered as a Registry Factory: a dataset has no fixed variables
// table for Lookup/Enumerate to report (spec §4.5 factories describe
// result-set formats specifically).
