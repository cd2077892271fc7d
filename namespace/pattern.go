// Package namespace compiles path-like glob patterns used to select modules.
//
// A pattern is a slash-separated list of segments. A literal segment matches
// itself, "*" matches exactly one segment and captures it, and "**" matches
// any run of segments (including an empty one) and captures the run it
// consumed. A pattern matches a module id when its segments match a prefix
// of the id's segments, so "internal/*/domain" selects every module at or
// below a domain directory. A trailing slash is normalized away.
package namespace

import (
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Pattern is a compiled namespace pattern. Compile once, match many times;
// a Pattern is immutable and safe for concurrent use.
type Pattern struct {
	raw           string
	segments      []segment
	literals      int
	literalPrefix int
}

type segmentKind int

const (
	segLiteral segmentKind = iota
	segSingle              // *
	segMulti               // **
	segGlob                // segment with embedded glob metacharacters, e.g. "infra*"
)

type segment struct {
	text string
	kind segmentKind
}

// Compile parses a namespace pattern into a matcher. It returns an error for
// malformed patterns: empty input, empty segments ("a//b"), or glob syntax
// that doublestar rejects (such as an unclosed character class).
func Compile(pattern string) (*Pattern, error) {
	raw := pattern
	pattern = strings.TrimSuffix(pattern, "/")
	if pattern == "" {
		return nil, fmt.Errorf("empty namespace pattern")
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("malformed namespace pattern %q", raw)
	}

	parts := strings.Split(pattern, "/")
	p := &Pattern{raw: raw, segments: make([]segment, 0, len(parts))}
	prefixEnded := false
	for _, part := range parts {
		switch {
		case part == "":
			return nil, fmt.Errorf("malformed namespace pattern %q: empty segment", raw)
		case part == "*":
			p.segments = append(p.segments, segment{kind: segSingle})
			prefixEnded = true
		case part == "**":
			p.segments = append(p.segments, segment{kind: segMulti})
			prefixEnded = true
		case strings.ContainsAny(part, "*?["):
			p.segments = append(p.segments, segment{text: part, kind: segGlob})
			prefixEnded = true
		default:
			p.segments = append(p.segments, segment{text: part, kind: segLiteral})
			p.literals++
			if !prefixEnded {
				p.literalPrefix++
			}
		}
	}
	return p, nil
}

// MustCompile is Compile, panicking on error. Intended for patterns known
// valid at compile time (tests, defaults).
func MustCompile(pattern string) *Pattern {
	p, err := Compile(pattern)
	if err != nil {
		panic(err)
	}
	return p
}

// String returns the original pattern text.
func (p *Pattern) String() string { return p.raw }

// Literals returns the count of literal segments, the primary measure of
// pattern specificity.
func (p *Pattern) Literals() int { return p.literals }

// LiteralPrefix returns the number of leading literal segments before the
// first wildcard, the specificity tie-breaker.
func (p *Pattern) LiteralPrefix() int { return p.literalPrefix }

// Match reports whether the module id matches the pattern, along with the
// text captured by each wildcard segment in order. Matching uses prefix
// semantics: the pattern's segments must match a leading run of the id's
// segments, and any remaining id segments are accepted.
func (p *Pattern) Match(id string) (bool, []string) {
	id = strings.TrimSuffix(id, "/")
	if id == "" {
		return false, nil
	}
	idSegs := strings.Split(id, "/")
	return p.match(0, 0, idSegs, nil)
}

// MatchExact is Match without the prefix allowance: every id segment must be
// consumed by the pattern. Used when classifying whole module ids against
// templates that should not spill over.
func (p *Pattern) MatchExact(id string) (bool, []string) {
	id = strings.TrimSuffix(id, "/")
	if id == "" {
		return false, nil
	}
	idSegs := strings.Split(id, "/")
	ok, caps := p.matchExact(0, 0, idSegs, nil)
	return ok, caps
}

func (p *Pattern) match(si, ii int, id []string, caps []string) (bool, []string) {
	if si == len(p.segments) {
		return true, caps
	}
	seg := p.segments[si]
	switch seg.kind {
	case segMulti:
		// Shortest match first so captures are deterministic.
		for take := 0; ii+take <= len(id); take++ {
			next := append(caps[:len(caps):len(caps)], strings.Join(id[ii:ii+take], "/"))
			if ok, out := p.match(si+1, ii+take, id, next); ok {
				return true, out
			}
		}
		return false, nil
	default:
		if ii >= len(id) {
			return false, nil
		}
		switch seg.kind {
		case segLiteral:
			if id[ii] != seg.text {
				return false, nil
			}
			return p.match(si+1, ii+1, id, caps)
		case segSingle:
			next := append(caps[:len(caps):len(caps)], id[ii])
			return p.match(si+1, ii+1, id, next)
		default: // segGlob
			if ok, _ := doublestar.Match(seg.text, id[ii]); !ok {
				return false, nil
			}
			next := append(caps[:len(caps):len(caps)], id[ii])
			return p.match(si+1, ii+1, id, next)
		}
	}
}

func (p *Pattern) matchExact(si, ii int, id []string, caps []string) (bool, []string) {
	if si == len(p.segments) {
		if ii == len(id) {
			return true, caps
		}
		return false, nil
	}
	seg := p.segments[si]
	switch seg.kind {
	case segMulti:
		for take := 0; ii+take <= len(id); take++ {
			next := append(caps[:len(caps):len(caps)], strings.Join(id[ii:ii+take], "/"))
			if ok, out := p.matchExact(si+1, ii+take, id, next); ok {
				return true, out
			}
		}
		return false, nil
	default:
		if ii >= len(id) {
			return false, nil
		}
		switch seg.kind {
		case segLiteral:
			if id[ii] != seg.text {
				return false, nil
			}
			return p.matchExact(si+1, ii+1, id, caps)
		case segSingle:
			next := append(caps[:len(caps):len(caps)], id[ii])
			return p.matchExact(si+1, ii+1, id, next)
		default:
			if ok, _ := doublestar.Match(seg.text, id[ii]); !ok {
				return false, nil
			}
			next := append(caps[:len(caps):len(caps)], id[ii])
			return p.matchExact(si+1, ii+1, id, next)
		}
	}
}

// MoreSpecific reports whether a is a more specific pattern than b:
// more literal segments win, then a longer literal prefix.
func MoreSpecific(a, b *Pattern) bool {
	if a.literals != b.literals {
		return a.literals > b.literals
	}
	return a.literalPrefix > b.literalPrefix
}
