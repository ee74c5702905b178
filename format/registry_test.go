package format

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/twinfer/rdfexpr"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r := NewRegistry()
	if err := RegisterBuiltins(r); err != nil {
		t.Fatalf("RegisterBuiltins: %v", err)
	}
	return r
}

func TestEnumerateIncludesBuiltinNames(t *testing.T) {
	r := newTestRegistry(t)
	want := map[string]bool{
		"table": false, "csv": false, "tsv": false,
		"json": false, "xml": false, "html": false, "turtle": false,
	}
	for i := 0; ; i++ {
		name, _, _, _, _, ok := r.Enumerate(i)
		if !ok {
			break
		}
		if _, known := want[name]; known {
			want[name] = true
		}
	}
	for name, seen := range want {
		if !seen {
			t.Errorf("Enumerate never produced %q", name)
		}
	}
}

func TestNewFormatterByMimeType(t *testing.T) {
	r := newTestRegistry(t)
	fm, ok := r.NewFormatter("", "application/sparql-results+json", "")
	if !ok {
		t.Fatal("NewFormatter by mime type = false, want true")
	}
	if fm.MIMEType() != "application/sparql-results+json" {
		t.Errorf("formatter MIMEType() = %q, want %q", fm.MIMEType(), "application/sparql-results+json")
	}
}

func TestDefaultFactoryIsFirstRegistered(t *testing.T) {
	r := newTestRegistry(t)
	fm, ok := r.NewFormatter("", "", "")
	if !ok {
		t.Fatal("NewFormatter with no identifiers = false, want true (default)")
	}
	if fm.Name() != "table" {
		t.Errorf("default formatter name = %q, want %q (first registered)", fm.Name(), "table")
	}
}

func TestLookupNamePrecedesURI(t *testing.T) {
	r := NewRegistry()
	byName := &Factory{Name: "byname", URI: "urn:shared", MIMEType: "application/shared",
		Writer: func(w io.Writer, result *Result, baseURI string) error { return nil }}
	byURI := &Factory{Name: "byuri", URI: "urn:shared", MIMEType: "application/shared",
		Writer: func(w io.Writer, result *Result, baseURI string) error { return nil }}
	if err := r.Register(byURI); err != nil {
		t.Fatalf("Register(byuri): %v", err)
	}
	if err := r.Register(byName); err != nil {
		t.Fatalf("Register(byname): %v", err)
	}

	got, ok := r.Lookup("byname", "urn:shared", "application/shared", CapWriter)
	if !ok || got.Name != "byname" {
		t.Errorf("Lookup with matching name = %v, want byname (name takes precedence)", got)
	}

	got, ok = r.Lookup("", "urn:shared", "application/shared", CapWriter)
	if !ok || got.Name != "byuri" {
		t.Errorf("Lookup with no name, matching uri = %v, want byuri (first registered with that uri)", got)
	}
}

func TestJSONRoundTrip(t *testing.T) {
	r := newTestRegistry(t)
	fm, ok := r.NewFormatter("json", "", "")
	if !ok {
		t.Fatal("NewFormatter(json) = false, want true")
	}

	result := &Result{
		Variables: []string{"s", "o"},
		Rows: []Row{
			{"s": rdfexpr.URI("http://example/a"), "o": rdfexpr.PlainString("hello")},
		},
	}

	var buf bytes.Buffer
	if err := fm.Write(&buf, result, ""); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if !strings.Contains(buf.String(), "hello") {
		t.Errorf("Write output missing expected value: %s", buf.String())
	}

	parsed := &Result{Variables: []string{"s", "o"}}
	if err := fm.Read(&buf, parsed, ""); err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(parsed.Rows) != 1 {
		t.Fatalf("Read produced %d rows, want 1", len(parsed.Rows))
	}
	got := parsed.Rows[0]["o"]
	if got.Lexical() != "hello" {
		t.Errorf("round-tripped o = %q, want %q", got.Lexical(), "hello")
	}
}

func TestCheckRequiresCapability(t *testing.T) {
	r := newTestRegistry(t)
	if r.Check("table", "", "", CapReader) {
		t.Error("Check(table, READER) = true, want false (table has no reader)")
	}
	if !r.Check("json", "", "", CapReader|CapWriter) {
		t.Error("Check(json, READER|WRITER) = false, want true")
	}
}
