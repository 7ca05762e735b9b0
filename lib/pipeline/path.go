package pipeline

import (
	"regexp"
	"strings"
)

// --------------------------------------------------------------------------
// Path Segments
// --------------------------------------------------------------------------

// Segment matches one key of a JSON path. Array elements are addressed by their
// decimal index ("0", "1", ...).
type Segment interface {
	Match(key string) bool
	String() string
}

type keySegment string

func (s keySegment) Match(key string) bool { return string(s) == key }
func (s keySegment) String() string        { return string(s) }

type patternSegment struct {
	re *regexp.Regexp
}

func (s patternSegment) Match(key string) bool { return s.re.MatchString(key) }
func (s patternSegment) String() string        { return "/" + s.re.String() + "/" }

type anySegment struct{}

func (anySegment) Match(string) bool { return true }
func (anySegment) String() string    { return "*" }

// Key returns a segment matching exactly the given key.
func Key(key string) Segment {
	return keySegment(key)
}

// Pattern returns a segment matching every key the regular expression matches.
// It panics if expr does not compile.
func Pattern(expr string) Segment {
	return patternSegment{re: regexp.MustCompile(expr)}
}

// Any returns a segment matching every key and every array index.
func Any() Segment {
	return anySegment{}
}

// --------------------------------------------------------------------------
// Path
// --------------------------------------------------------------------------

// Path selects values inside a JSON document. A value is selected when its
// location has exactly len(Path) keys and every key matches its segment.
type Path []Segment

// NewPath builds a path from literal keys, "*" stands for Any().
func NewPath(keys ...string) Path {
	p := make(Path, len(keys))
	for i, k := range keys {
		if k == "*" {
			p[i] = Any()
		} else {
			p[i] = Key(k)
		}
	}
	return p
}

// matches reports whether location is selected by the path
func (p Path) matches(location []string) bool {
	return len(location) == len(p) && p.prefixMatches(location)
}

// leadsTo reports whether values below location can still be selected
func (p Path) leadsTo(location []string) bool {
	return len(location) < len(p) && p.prefixMatches(location)
}

func (p Path) prefixMatches(location []string) bool {
	for i, key := range location {
		if !p[i].Match(key) {
			return false
		}
	}
	return true
}

func (p Path) String() string {
	parts := make([]string, len(p))
	for i, s := range p {
		parts[i] = s.String()
	}
	return strings.Join(parts, ".")
}
