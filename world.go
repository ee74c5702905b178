package rdfexpr

import (
	"sync"

	"github.com/dlclark/regexp2"
	"github.com/google/uuid"
)

// World is the evaluator's context (spec §4.3, §6): it owns the
// blank-node id generator and the compiled-regex cache. Constructed
// with functional options, mirroring the teacher's
// factstore_sqlite.go StoreOption/WithPragma pattern.
type World struct {
	blankPrefix string
	cacheRegex  bool

	mu         sync.Mutex
	regexCache map[string]*regexp2.Regexp
}

// WorldOption configures a World at construction time.
type WorldOption func(*worldConfig)

type worldConfig struct {
	blankPrefix string
	cacheRegex  bool
}

func defaultWorldConfig() *worldConfig {
	return &worldConfig{
		blankPrefix: "b",
		cacheRegex:  true,
	}
}

// WithBlankNodePrefix sets the local-id prefix of generated blank nodes.
// Both forms use it: BNODE(s) as prefix + "-" + a name-based UUID of s,
// and BNODE() with no argument as prefix + "-" + a fresh random UUID.
func WithBlankNodePrefix(prefix string) WorldOption {
	return func(c *worldConfig) { c.blankPrefix = prefix }
}

// WithRegexCache enables or disables caching of compiled REGEX/STR_MATCH
// patterns. Caching is observationally transparent (spec §4.3
// Determinism: "implementations may cache compiled patterns but must
// not observe cache state").
func WithRegexCache(enabled bool) WorldOption {
	return func(c *worldConfig) { c.cacheRegex = enabled }
}

// NewWorld constructs a World with the given options applied over the
// defaults.
func NewWorld(opts ...WorldOption) *World {
	cfg := defaultWorldConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	w := &World{blankPrefix: cfg.blankPrefix, cacheRegex: cfg.cacheRegex}
	if cfg.cacheRegex {
		w.regexCache = make(map[string]*regexp2.Regexp)
	}
	return w
}

// FreshBlankNode mints a new, globally-unique blank node id for BNODE()
// with no argument (spec §4.3 Determinism).
func (w *World) FreshBlankNode() Term {
	return Blank(w.blankPrefix + "-" + uuid.NewString())
}

// StableBlankNode derives a blank node id deterministically from s, for
// BNODE(s) (spec §4.3 Determinism: "deterministic in s for the lifetime
// of the world").
func (w *World) StableBlankNode(s string) Term {
	return Blank(w.blankPrefix + "-" + uuid.NewSHA1(uuid.NameSpaceOID, []byte(s)).String())
}

// compileRegex compiles (or fetches from cache) a Perl-compatible
// regexp2.Regexp for pattern with the given SPARQL REGEX flag string
// (spec §4.3: "i" case-insensitive; other flags reserved).
func (w *World) compileRegex(pattern, flags string) (*regexp2.Regexp, *EvalError) {
	key := flags + "\x00" + pattern
	if w.cacheRegex {
		w.mu.Lock()
		if re, ok := w.regexCache[key]; ok {
			w.mu.Unlock()
			return re, nil
		}
		w.mu.Unlock()
	}

	opts := regexp2.None
	for _, f := range flags {
		switch f {
		case 'i':
			opts |= regexp2.IgnoreCase
		}
	}
	re, err := regexp2.Compile(pattern, opts)
	if err != nil {
		return nil, newRegexError("compile %q: %v", pattern, err)
	}
	if w.cacheRegex {
		w.mu.Lock()
		w.regexCache[key] = re
		w.mu.Unlock()
	}
	return re, nil
}
