package target

import (
	"fmt"
)

// MatcherKind enumerates the matcher backends a clause can address. The
// set is fixed; dispatch is a compile-time registry, never reflection.
type MatcherKind int

const (
	// MatchGlob is the default: a bare pattern globbed against the
	// minion id.
	MatchGlob MatcherKind = iota
	MatchGrainGlob                   // G@path:glob
	MatchGrainPCRE                   // P@path:regex
	MatchIDPCRE                      // E@regex
	MatchList                        // L@id1,id2,...
	MatchPillarGlob                  // I@path:glob
	MatchPillarPCRE                  // J@path:regex
	MatchSubnet                      // S@ip-or-cidr
	MatchRange                       // R@clusterquery
	MatchNodegroup                   // N@name
	MatchData                        // D@key:value
)

// DefaultDelimiter separates key-path segments in grain, pillar and
// minion-data patterns unless the clause overrides it.
const DefaultDelimiter = ":"

var kindForLetter = map[byte]MatcherKind{
	'G': MatchGrainGlob,
	'P': MatchGrainPCRE,
	'E': MatchIDPCRE,
	'L': MatchList,
	'I': MatchPillarGlob,
	'J': MatchPillarPCRE,
	'S': MatchSubnet,
	'R': MatchRange,
	'N': MatchNodegroup,
	'D': MatchData,
}

var letterForKind = map[MatcherKind]string{
	MatchGrainGlob:  "G",
	MatchGrainPCRE:  "P",
	MatchIDPCRE:     "E",
	MatchList:       "L",
	MatchPillarGlob: "I",
	MatchPillarPCRE: "J",
	MatchSubnet:     "S",
	MatchRange:      "R",
	MatchNodegroup:  "N",
	MatchData:       "D",
}

func (k MatcherKind) String() string {
	if k == MatchGlob {
		return "glob"
	}
	return letterForKind[k]
}

// UsesDelimiter reports whether patterns of this kind traverse nested key
// paths, i.e. whether an alternate delimiter is meaningful.
func (k MatcherKind) UsesDelimiter() bool {
	switch k {
	case MatchGrainGlob, MatchGrainPCRE, MatchPillarGlob, MatchPillarPCRE, MatchData:
		return true
	}
	return false
}

// Clause is one matcher-type + pattern unit within a compound expression.
type Clause struct {
	Kind      MatcherKind
	Delimiter string
	Pattern   string
}

// ParseClause determines the clause for one LITERAL token.
//
// A literal carrying no "<letter>[<delim>]@" prefix is a bare hostname
// glob. Otherwise the first character selects the backend; a character
// between the letter and '@' overrides the key-path delimiter. Delimiter
// overrides on kinds that do no key traversal are accepted and ignored,
// matching the documented behavior for legacy expressions.
func ParseClause(literal string) (Clause, error) {
	var (
		letter  byte
		delim   string
		pattern string
	)
	switch {
	case len(literal) >= 2 && literal[1] == '@':
		letter, delim, pattern = literal[0], DefaultDelimiter, literal[2:]
	case len(literal) >= 3 && literal[2] == '@':
		letter, delim, pattern = literal[0], string(literal[1]), literal[3:]
	default:
		return Clause{Kind: MatchGlob, Delimiter: DefaultDelimiter, Pattern: literal}, nil
	}
	kind, ok := kindForLetter[letter]
	if !ok {
		return Clause{}, fmt.Errorf("%w: %q", ErrUnknownMatcher, string(letter))
	}
	if !kind.UsesDelimiter() {
		delim = DefaultDelimiter
	}
	return Clause{Kind: kind, Delimiter: delim, Pattern: pattern}, nil
}

// Expression builds the single-clause expression string equivalent to one
// non-compound selector flag (-G, -E, -L, -I, -S, -N). MatchGlob patterns
// pass through bare.
func Expression(kind MatcherKind, pattern string) string {
	if kind == MatchGlob {
		return pattern
	}
	return letterForKind[kind] + "@" + pattern
}
