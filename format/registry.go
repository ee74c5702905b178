// Package format implements the result-format registry (spec §4.5): a
// name/URI/MIME-indexed table of factories, each capable of writing,
// reading, or lazily producing rows for a SPARQL/RDQL result set.
package format

import (
	"fmt"
	"io"

	"github.com/twinfer/rdfexpr"
)

// Capability is a required-capability bitset used by Lookup/Check
// (spec §4.5, §6).
type Capability uint32

const (
	CapReader Capability = 1 << iota
	CapWriter
)

// Row is one solution row: a variable name to its bound Term.
type Row map[string]rdfexpr.Term

// Result is a result set: an ordered variables table plus the rows
// bound over it (spec §4.5 "results", §6 "format.write/read").
type Result struct {
	Variables []string
	Rows      []Row
}

// RowSource lazily yields solution rows from a parsed result-set
// stream (spec GLOSSARY "Rowsource").
type RowSource interface {
	// Next returns the next row, or ok=false at exhaustion.
	Next() (row Row, ok bool, err error)
}

// RowSourceFactory builds a RowSource over an input stream and a
// result set's variables table (spec §4.5 "Read via row source").
type RowSourceFactory func(r io.Reader, variables []string) (RowSource, error)

// Writer serializes a Result to w (spec §6 "format.write").
type Writer func(w io.Writer, result *Result, baseURI string) error

// Reader parses a Result from r (spec §6 "format.read").
type Reader func(r io.Reader, result *Result, baseURI string) error

// Factory is one registered result-format provider (spec §3 "Format
// factory", §4.5 "Registration"). At least one of Writer, Reader or
// RowSourceFactory must be set.
type Factory struct {
	Name     string
	Label    string
	URI      string
	MIMEType string

	Writer           Writer
	Reader           Reader
	RowSourceFactory RowSourceFactory
}

func (f *Factory) capabilities() Capability {
	var c Capability
	if f.Reader != nil || f.RowSourceFactory != nil {
		c |= CapReader
	}
	if f.Writer != nil {
		c |= CapWriter
	}
	return c
}

// Registry holds registered Factory values in insertion order; the
// first registered factory is the default (spec §4.5 "Registration").
type Registry struct {
	factories []*Factory
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry { return &Registry{} }

// Register adds f to the registry (spec §4.5: additive, insertion-order
// preserving). It is an error to register a factory with no capability.
func (r *Registry) Register(f *Factory) error {
	if f.Writer == nil && f.Reader == nil && f.RowSourceFactory == nil {
		return fmt.Errorf("format: factory %q has no writer, reader or row source", f.Name)
	}
	r.factories = append(r.factories, f)
	return nil
}

// RegisterAlias registers a shallow copy of f under an additional name,
// URI or MIME type, sharing its capabilities (spec §4.8 companion note:
// the source's result-format table allows a factory to answer to
// several names/MIME types; this core keeps the one-name-per-Factory
// registration contract but allows registering the same implementation
// again under a second identity).
func (r *Registry) RegisterAlias(f *Factory, name, uri, mimeType string) error {
	alias := *f
	alias.Name, alias.URI, alias.MIMEType = name, uri, mimeType
	return r.Register(&alias)
}

// Default returns the first registered factory, or nil if none.
func (r *Registry) Default() *Factory {
	if len(r.factories) == 0 {
		return nil
	}
	return r.factories[0]
}

// Lookup scans factories in insertion order for the first whose
// capability set satisfies required and whose identifying field
// matches: name takes precedence over uri, which takes precedence over
// mimeType. With neither name nor uri given, returns the default (spec
// §4.5 "Lookup").
func (r *Registry) Lookup(name, uri, mimeType string, required Capability) (*Factory, bool) {
	if name == "" && uri == "" {
		if d := r.Default(); d != nil && d.capabilities()&required == required {
			return d, true
		}
		return nil, false
	}
	if name != "" {
		for _, f := range r.factories {
			if f.Name == name && f.capabilities()&required == required {
				return f, true
			}
		}
	}
	if uri != "" {
		for _, f := range r.factories {
			if f.URI == uri && f.capabilities()&required == required {
				return f, true
			}
		}
	}
	if mimeType != "" {
		for _, f := range r.factories {
			if f.MIMEType == mimeType && f.capabilities()&required == required {
				return f, true
			}
		}
	}
	return nil, false
}

// Check reports whether Lookup would succeed for the given identifiers
// and capability requirement (spec §6 "check").
func (r *Registry) Check(name, uri, mimeType string, required Capability) bool {
	_, ok := r.Lookup(name, uri, mimeType, required)
	return ok
}

// Enumerate is a counter-driven enumerator (spec §4.5 "Enumeration"):
// counter starts at 0 and increments by one per call; it visits only
// factories with a non-empty Name. ok is false once counter has walked
// past the last named factory.
func (r *Registry) Enumerate(counter int) (name, label, uri, mimeType string, caps Capability, ok bool) {
	seen := 0
	for _, f := range r.factories {
		if f.Name == "" {
			continue
		}
		if seen == counter {
			return f.Name, f.Label, f.URI, f.MIMEType, f.capabilities(), true
		}
		seen++
	}
	return "", "", "", "", 0, false
}

// Formatter is a bound handle on one Factory, returned by NewFormatter
// (spec §6 "new_formatter").
type Formatter struct {
	factory *Factory
}

// MIMEType reports the formatter's registered MIME type.
func (fm *Formatter) MIMEType() string { return fm.factory.MIMEType }

// Name reports the formatter's registered name.
func (fm *Formatter) Name() string { return fm.factory.Name }

// NewFormatter resolves a formatter by name, mimeType or uri, trying
// name first, then uri, then mimeType (the Lookup order), mirroring the
// source's `new_formatter`/`new_formatter_by_mime_type`/
// `new_formatter_by_uri` family collapsed into one entry point (spec
// §6). A mimeType given without name or uri selects the first factory
// with that MIME type rather than the default.
func (r *Registry) NewFormatter(name, mimeType, uri string) (*Formatter, bool) {
	if name == "" && uri == "" && mimeType != "" {
		for _, f := range r.factories {
			if f.MIMEType == mimeType {
				return &Formatter{factory: f}, true
			}
		}
		return nil, false
	}
	f, ok := r.Lookup(name, uri, mimeType, 0)
	if !ok {
		return nil, false
	}
	return &Formatter{factory: f}, true
}

// Write serializes result via the bound factory's Writer (spec §6
// "format.write").
func (fm *Formatter) Write(w io.Writer, result *Result, baseURI string) error {
	if fm.factory.Writer == nil {
		return fmt.Errorf("format: factory %q has no writer", fm.factory.Name)
	}
	return fm.factory.Writer(w, result, baseURI)
}

// Read parses a Result from r. When the factory has no Reader but
// provides a RowSourceFactory, Read builds the row source over r and
// result.Variables and pulls rows until exhaustion, appending each to
// result (spec §4.5 "Read via row source").
func (fm *Formatter) Read(r io.Reader, result *Result, baseURI string) error {
	if fm.factory.Reader != nil {
		return fm.factory.Reader(r, result, baseURI)
	}
	if fm.factory.RowSourceFactory == nil {
		return fmt.Errorf("format: factory %q has no reader or row source", fm.factory.Name)
	}
	rs, err := fm.factory.RowSourceFactory(r, result.Variables)
	if err != nil {
		return err
	}
	for {
		row, ok, err := rs.Next()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		result.Rows = append(result.Rows, row)
	}
}
