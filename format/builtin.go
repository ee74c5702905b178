package format

import (
	"bytes"
	"encoding/csv"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"sort"

	jsonv2 "github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"

	"github.com/twinfer/rdfexpr"
)

// RegisterBuiltins registers the table/csv/tsv/json/xml/html/turtle
// factories a freshly constructed registry carries by default (spec §8
// property 6: "enumerate returns at least xml, json, table, csv, tsv,
// html, turtle names"). table is registered first and so is the
// default (spec §4.5 "first registered factory is the default").
func RegisterBuiltins(r *Registry) error {
	factories := []*Factory{
		{
			Name:     "table",
			Label:    "ASCII table",
			URI:      "http://www.w3.org/ns/formats/SPARQL_Results_TSV", // nearest stable identifier; table has no formal URI
			MIMEType: "text/plain",
			Writer:   writeTable,
		},
		{
			Name:     "csv",
			Label:    "SPARQL Results CSV",
			URI:      "http://www.w3.org/ns/formats/SPARQL_Results_CSV",
			MIMEType: "text/csv",
			Writer:   writeDelimited(','),
		},
		{
			Name:     "tsv",
			Label:    "SPARQL Results TSV",
			URI:      "http://www.w3.org/ns/formats/SPARQL_Results_TSV",
			MIMEType: "text/tab-separated-values",
			Writer:   writeDelimited('\t'),
		},
		{
			Name:     "json",
			Label:    "SPARQL Results JSON",
			URI:      "http://www.w3.org/ns/formats/SPARQL_Results_JSON",
			MIMEType: "application/sparql-results+json",
			Writer:   writeJSON,
			Reader:   readJSON,
		},
		{
			Name:     "xml",
			Label:    "SPARQL Results XML",
			URI:      "http://www.w3.org/ns/formats/SPARQL_Results_XML",
			MIMEType: "application/sparql-results+xml",
			Writer:   writeXML,
		},
		{
			Name:     "html",
			Label:    "HTML table",
			URI:      "",
			MIMEType: "text/html",
			Writer:   writeHTML,
		},
		{
			Name:     "turtle",
			Label:    "Turtle",
			URI:      "http://www.w3.org/ns/formats/Turtle",
			MIMEType: "text/turtle",
			Writer:   writeTurtleBindings,
		},
	}
	for _, f := range factories {
		if err := r.Register(f); err != nil {
			return err
		}
	}
	return nil
}

func termText(t rdfexpr.Term) string {
	s, err := rdfexpr.AsString(t, 0)
	if err != nil {
		return t.String()
	}
	return s
}

func writeTable(w io.Writer, result *Result, baseURI string) error {
	widths := make([]int, len(result.Variables))
	for i, v := range result.Variables {
		widths[i] = len(v)
	}
	cells := make([][]string, len(result.Rows))
	for ri, row := range result.Rows {
		cells[ri] = make([]string, len(result.Variables))
		for ci, v := range result.Variables {
			s := ""
			if t, ok := row[v]; ok {
				s = termText(t)
			}
			cells[ri][ci] = s
			if len(s) > widths[ci] {
				widths[ci] = len(s)
			}
		}
	}
	var buf bytes.Buffer
	writeRow := func(vals []string) {
		for i, v := range vals {
			fmt.Fprintf(&buf, "%-*s", widths[i]+2, v)
		}
		buf.WriteByte('\n')
	}
	writeRow(result.Variables)
	for _, row := range cells {
		writeRow(row)
	}
	_, err := w.Write(buf.Bytes())
	return err
}

func writeDelimited(comma rune) Writer {
	return func(w io.Writer, result *Result, baseURI string) error {
		cw := csv.NewWriter(w)
		cw.Comma = comma
		if err := cw.Write(result.Variables); err != nil {
			return err
		}
		for _, row := range result.Rows {
			record := make([]string, len(result.Variables))
			for i, v := range result.Variables {
				if t, ok := row[v]; ok {
					record[i] = termText(t)
				}
			}
			if err := cw.Write(record); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	}
}

// jsonTerm mirrors the SPARQL 1.1 Results JSON term encoding: {type,
// value, xml:lang?, datatype?}.
type jsonTerm struct {
	Type     string `json:"type"`
	Value    string `json:"value"`
	Lang     string `json:"xml:lang,omitempty"`
	Datatype string `json:"datatype,omitempty"`
}

type jsonResults struct {
	Head    jsonHead        `json:"head"`
	Results jsonResultsBody `json:"results"`
}

type jsonHead struct {
	Vars []string `json:"vars"`
}

type jsonResultsBody struct {
	Bindings []map[string]jsonTerm `json:"bindings"`
}

func toJSONTerm(t rdfexpr.Term) jsonTerm {
	switch t.RDFTermType() {
	case rdfexpr.RDFTermURI:
		return jsonTerm{Type: "uri", Value: t.Lexical()}
	case rdfexpr.RDFTermBlank:
		return jsonTerm{Type: "bnode", Value: t.Lexical()}
	default:
		jt := jsonTerm{Type: "literal", Value: termText(t)}
		if t.Kind() == rdfexpr.KindString {
			jt.Lang = t.Lang()
			jt.Datatype = t.Datatype()
		} else {
			jt.Datatype = t.Datatype()
		}
		return jt
	}
}

func fromJSONTerm(jt jsonTerm) rdfexpr.Term {
	switch jt.Type {
	case "uri":
		return rdfexpr.URI(jt.Value)
	case "bnode":
		return rdfexpr.Blank(jt.Value)
	case "literal", "typed-literal":
		if jt.Lang != "" {
			return rdfexpr.LangString(jt.Value, jt.Lang)
		}
		if jt.Datatype != "" {
			return rdfexpr.TypedString(jt.Value, jt.Datatype)
		}
		return rdfexpr.PlainString(jt.Value)
	default:
		return rdfexpr.PlainString(jt.Value)
	}
}

func writeJSON(w io.Writer, result *Result, baseURI string) error {
	doc := jsonResults{Head: jsonHead{Vars: result.Variables}}
	doc.Results.Bindings = make([]map[string]jsonTerm, 0, len(result.Rows))
	for _, row := range result.Rows {
		binding := make(map[string]jsonTerm, len(row))
		for k, v := range row {
			binding[k] = toJSONTerm(v)
		}
		doc.Results.Bindings = append(doc.Results.Bindings, binding)
	}
	enc := jsontext.NewEncoder(w)
	return jsonv2.MarshalEncode(enc, &doc)
}

func readJSON(r io.Reader, result *Result, baseURI string) error {
	dec := jsontext.NewDecoder(r)
	var doc jsonResults
	if err := jsonv2.UnmarshalDecode(dec, &doc); err != nil {
		return err
	}
	if len(result.Variables) == 0 {
		result.Variables = doc.Head.Vars
	}
	for _, binding := range doc.Results.Bindings {
		row := make(Row, len(binding))
		for k, jt := range binding {
			row[k] = fromJSONTerm(jt)
		}
		result.Rows = append(result.Rows, row)
	}
	return nil
}

// sparqlXMLResults mirrors enough of the SPARQL 1.1 Results XML format
// to write this core's Result type; it is not a full schema
// implementation. There is no XML reader, and a literal binding carries
// only its lexical form (no language tag or datatype).
type sparqlXMLResults struct {
	XMLName xml.Name      `xml:"sparql"`
	Head    sparqlXMLHead `xml:"head"`
	Results sparqlXMLBody `xml:"results"`
}

type sparqlXMLHead struct {
	Vars []sparqlXMLVar `xml:"variable"`
}

type sparqlXMLVar struct {
	Name string `xml:"name,attr"`
}

type sparqlXMLBody struct {
	Rows []sparqlXMLRow `xml:"result"`
}

type sparqlXMLRow struct {
	Bindings []sparqlXMLBinding `xml:"binding"`
}

type sparqlXMLBinding struct {
	Name    string `xml:"name,attr"`
	URI     string `xml:"uri,omitempty"`
	BNode   string `xml:"bnode,omitempty"`
	Literal string `xml:"literal,omitempty"`
}

func writeXML(w io.Writer, result *Result, baseURI string) error {
	doc := sparqlXMLResults{}
	for _, v := range result.Variables {
		doc.Head.Vars = append(doc.Head.Vars, sparqlXMLVar{Name: v})
	}
	for _, row := range result.Rows {
		var xr sparqlXMLRow
		for _, v := range result.Variables {
			t, ok := row[v]
			if !ok {
				continue
			}
			b := sparqlXMLBinding{Name: v}
			switch t.RDFTermType() {
			case rdfexpr.RDFTermURI:
				b.URI = t.Lexical()
			case rdfexpr.RDFTermBlank:
				b.BNode = t.Lexical()
			default:
				b.Literal = termText(t)
			}
			xr.Bindings = append(xr.Bindings, b)
		}
		doc.Results.Rows = append(doc.Results.Rows, xr)
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if _, err := w.Write([]byte(xml.Header)); err != nil {
		return err
	}
	return enc.Encode(&doc)
}

func writeHTML(w io.Writer, result *Result, baseURI string) error {
	var buf bytes.Buffer
	buf.WriteString("<table>\n<tr>")
	for _, v := range result.Variables {
		fmt.Fprintf(&buf, "<th>%s</th>", html.EscapeString(v))
	}
	buf.WriteString("</tr>\n")
	for _, row := range result.Rows {
		buf.WriteString("<tr>")
		for _, v := range result.Variables {
			s := ""
			if t, ok := row[v]; ok {
				s = html.EscapeString(termText(t))
			}
			fmt.Fprintf(&buf, "<td>%s</td>", s)
		}
		buf.WriteString("</tr>\n")
	}
	buf.WriteString("</table>\n")
	_, err := w.Write(buf.Bytes())
	return err
}

// writeTurtleBindings renders each row as a Turtle-flavored comment
// block ("# ?var = term" lines, variables in sorted order), preceded by
// an @base line when baseURI is set. It emits no triples, and this core
// does not parse result sets back out of Turtle (Turtle is an RDF graph
// syntax, not a native SPARQL results format).
func writeTurtleBindings(w io.Writer, result *Result, baseURI string) error {
	var buf bytes.Buffer
	if baseURI != "" {
		fmt.Fprintf(&buf, "@base <%s> .\n", baseURI)
	}
	sorted := append([]string(nil), result.Variables...)
	sort.Strings(sorted)
	for i, row := range result.Rows {
		fmt.Fprintf(&buf, "# row %d\n", i)
		for _, v := range sorted {
			if t, ok := row[v]; ok {
				fmt.Fprintf(&buf, "# ?%s = %s\n", v, t.String())
			}
		}
	}
	_, err := w.Write(buf.Bytes())
	return err
}
