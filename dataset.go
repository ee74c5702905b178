package rdfexpr

import (
	"bufio"
	"io"
	"log"
	"strings"

	"github.com/dustin/go-humanize"
)

// TriplePosition selects one of the three positions of a Triple.
type TriplePosition int

const (
	PositionSubject TriplePosition = iota
	PositionPredicate
	PositionObject
)

// Triple is one (subject, predicate, object) statement (spec §4.4). The
// object may be any Term kind; subject and predicate are conventionally
// URI or blank node terms, but that is left to the loader, not enforced
// here.
type Triple struct {
	Subject, Predicate, Object Term
}

// at returns the term at the given position.
func (t Triple) at(pos TriplePosition) Term {
	switch pos {
	case PositionSubject:
		return t.Subject
	case PositionPredicate:
		return t.Predicate
	default:
		return t.Object
	}
}

// Dataset is an append-only, insertion-ordered list of triples sharing
// a base URI literal (spec §4.4). It is immutable with respect to
// content once loading has finished; iterators observe a snapshot and
// concurrent mutation during iteration is the caller's responsibility
// to avoid (spec §5).
type Dataset struct {
	triples []Triple
	baseURI Term
}

// NewDataset constructs an empty dataset with the given base URI.
func NewDataset(baseURI string) *Dataset {
	return &Dataset{baseURI: URI(baseURI)}
}

// BaseURI returns the dataset's shared base URI literal.
func (d *Dataset) BaseURI() Term { return d.baseURI }

// Len reports the number of triples currently loaded.
func (d *Dataset) Len() int { return len(d.triples) }

// Triples returns the dataset's triples in insertion order. The
// returned slice is a read-only snapshot; callers must not mutate it.
func (d *Dataset) Triples() []Triple { return d.triples }

// Add appends a triple, preserving insertion order (spec §4.4).
func (d *Dataset) Add(s, p, o Term) {
	d.triples = append(d.triples, Triple{Subject: s, Predicate: p, Object: o})
}

// LoadFormat names a source syntax for Load (spec §4.4, §6). Load does
// not inspect the stream for FormatGuess; see Load for which grammar is
// applied.
type LoadFormat string

const (
	FormatGuess    LoadFormat = "guess"
	FormatTurtle   LoadFormat = "turtle"
	FormatNTriples LoadFormat = "ntriples"
	FormatRDFXML   LoadFormat = "rdfxml"
	FormatTriG     LoadFormat = "trig"
)

// Load parses r and appends the resulting triples (spec §4.4, §6). An
// unknown format name is a recoverable condition: it is logged at WARN
// and downgraded to FormatGuess rather than aborting the load. Per-line
// parse errors are logged and skipped; they do not abort the load of
// subsequent triples (spec §7 User-visible behavior).
//
// This core ships only the line-oriented N-Triples grammar directly;
// other named formats fall back to it after a WARN, since a full
// Turtle/RDF-XML/TriG grammar is outside this package's scope (spec §1
// Non-goals: "no SPARQL parser, no RDF syntax parser").
func (d *Dataset) Load(r io.Reader, format LoadFormat) error {
	switch format {
	case "", FormatGuess, FormatNTriples:
		// recognized, no downgrade needed
	case FormatTurtle, FormatRDFXML, FormatTriG:
		log.Printf("rdfexpr: dataset load format %q has no dedicated parser in this core; falling back to guess/ntriples", format)
	default:
		log.Printf("rdfexpr: dataset load: unknown format %q, downgrading to guess", format)
	}

	before := len(d.triples)
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		tri, err := parseNTripleLine(line)
		if err != nil {
			log.Printf("rdfexpr: dataset load: line %d: %v", lineNo, err)
			continue
		}
		d.triples = append(d.triples, tri)
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	log.Printf("rdfexpr: dataset load: appended %s triples (%s total)",
		humanize.Comma(int64(len(d.triples)-before)), humanize.Comma(int64(len(d.triples))))
	return nil
}

// parseNTripleLine parses a single N-Triples statement "s p o .". It
// recognizes URIs (<...>), blank nodes (_:id) and string literals,
// optionally language-tagged (@lang) or typed (^^<uri>); it does not
// attempt full XSD lexical validation (spec §4.1's lexical coercion
// happens lazily, at evaluation time).
func parseNTripleLine(line string) (Triple, error) {
	line = strings.TrimSuffix(strings.TrimSpace(line), ".")
	line = strings.TrimSpace(line)

	s, rest, err := scanNTripleTerm(line)
	if err != nil {
		return Triple{}, err
	}
	p, rest, err := scanNTripleTerm(rest)
	if err != nil {
		return Triple{}, err
	}
	o, _, err := scanNTripleTerm(rest)
	if err != nil {
		return Triple{}, err
	}
	return Triple{Subject: s, Predicate: p, Object: o}, nil
}

func scanNTripleTerm(s string) (Term, string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Term{}, "", newLexicalError("unexpected end of statement")
	}
	switch {
	case strings.HasPrefix(s, "<"):
		end := strings.IndexByte(s, '>')
		if end < 0 {
			return Term{}, "", newLexicalError("unterminated URI in %q", s)
		}
		return URI(s[1:end]), s[end+1:], nil
	case strings.HasPrefix(s, "_:"):
		rest := s[2:]
		end := strings.IndexAny(rest, " \t")
		if end < 0 {
			end = len(rest)
		}
		return Blank(rest[:end]), rest[end:], nil
	case strings.HasPrefix(s, "\""):
		end := -1
		for i := 1; i < len(s); i++ {
			if s[i] == '"' && s[i-1] != '\\' {
				end = i
				break
			}
		}
		if end < 0 {
			return Term{}, "", newLexicalError("unterminated string literal in %q", s)
		}
		lexical := s[1:end]
		rest := s[end+1:]
		switch {
		case strings.HasPrefix(rest, "@"):
			rest = rest[1:]
			end := strings.IndexAny(rest, " \t")
			if end < 0 {
				end = len(rest)
			}
			return LangString(lexical, rest[:end]), rest[end:], nil
		case strings.HasPrefix(rest, "^^<"):
			rest = rest[3:]
			end := strings.IndexByte(rest, '>')
			if end < 0 {
				return Term{}, "", newLexicalError("unterminated datatype URI in %q", s)
			}
			return TypedString(lexical, rest[:end]), rest[end+1:], nil
		default:
			return PlainString(lexical), rest, nil
		}
	default:
		return Term{}, "", newLexicalError("unrecognized term syntax in %q", s)
	}
}

// MatchIterator yields the terms at a single unbound triple position,
// over every triple satisfying the bound positions (spec §4.4). It is
// restartable only by reconstruction: once advanced it cannot rewind.
type MatchIterator struct {
	dataset   *Dataset
	subject   *Term
	predicate *Term
	object    *Term
	yield     TriplePosition

	next int
}

// NewMatchIterator constructs an iterator over d for the pattern
// (subject, predicate, object), where exactly one of the three should
// be nil (unbound) — that is the position yielded. Bound positions
// match by Equals under default comparison flags (spec §4.4).
func NewMatchIterator(d *Dataset, subject, predicate, object *Term) (*MatchIterator, *EvalError) {
	unbound := 0
	var yield TriplePosition
	if subject == nil {
		unbound++
		yield = PositionSubject
	}
	if predicate == nil {
		unbound++
		yield = PositionPredicate
	}
	if object == nil {
		unbound++
		yield = PositionObject
	}
	if unbound != 1 {
		return nil, newTypeError("MatchIterator: exactly one of subject/predicate/object must be unbound, got %d", unbound)
	}
	// A shallow copy fixes the slice length, so triples added to d after
	// construction are not yielded.
	return &MatchIterator{
		dataset:   &Dataset{triples: d.triples, baseURI: d.baseURI},
		subject:   subject,
		predicate: predicate,
		object:    object,
		yield:     yield,
	}, nil
}

// Next advances the iterator, returning the next matching term. ok is
// false once the dataset is exhausted.
func (it *MatchIterator) Next() (term Term, ok bool) {
	for it.next < len(it.dataset.triples) {
		tri := it.dataset.triples[it.next]
		it.next++
		if it.matches(tri) {
			return tri.at(it.yield), true
		}
	}
	return Term{}, false
}

func (it *MatchIterator) matches(tri Triple) bool {
	if it.subject != nil && !equalsDefault(tri.Subject, *it.subject) {
		return false
	}
	if it.predicate != nil && !equalsDefault(tri.Predicate, *it.predicate) {
		return false
	}
	if it.object != nil && !equalsDefault(tri.Object, *it.object) {
		return false
	}
	return true
}

func equalsDefault(a, b Term) bool {
	eq, err := Equals(a, b, 0)
	return err == nil && eq
}

// GetSingle returns the first term the iterator yields, or false if the
// iterator is exhausted immediately; on the empty case the iterator is
// simply left to be garbage-collected (spec §4.4: "released silently").
func (it *MatchIterator) GetSingle() (Term, bool) {
	return it.Next()
}

// GetSourcesIterator constructs an iterator over subjects given a bound
// predicate and object (spec §4.4). Both p and o must be non-nil;
// otherwise this is a precondition violation and (nil, false) is
// returned, distinguishable from an iterator over an empty result.
func (d *Dataset) GetSourcesIterator(p, o *Term) (*MatchIterator, bool) {
	if p == nil || o == nil {
		return nil, false
	}
	it, err := NewMatchIterator(d, nil, p, o)
	if err != nil {
		return nil, false
	}
	return it, true
}

// GetTargetsIterator constructs an iterator over objects given a bound
// subject and predicate (spec §4.4). Both s and p must be non-nil;
// otherwise returns (nil, false).
func (d *Dataset) GetTargetsIterator(s, p *Term) (*MatchIterator, bool) {
	if s == nil || p == nil {
		return nil, false
	}
	it, err := NewMatchIterator(d, s, p, nil)
	if err != nil {
		return nil, false
	}
	return it, true
}
