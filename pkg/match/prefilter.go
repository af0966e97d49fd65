package match

import (
	ac "github.com/petar-dambovaliev/aho-corasick"
)

// Prefilter is an Aho-Corasick automaton over the literal minion-id
// patterns of one compiled expression. It is usable only when the
// expression has no negation and every leaf that can ever be true
// contributed its literals (plain globs and all-literal lists): a miss
// then proves the minion cannot match, so the assembler skips the full
// walk. Hits still get the full walk, since the automaton finds
// substrings, not whole ids.
type Prefilter struct {
	ac       *ac.AhoCorasick
	patterns []string
	complete bool
}

func newPrefilter(patterns []string, complete bool) *Prefilter {
	p := &Prefilter{complete: complete}
	seen := make(map[string]struct{}, len(patterns))
	for _, pat := range patterns {
		if _, ok := seen[pat]; ok {
			continue
		}
		seen[pat] = struct{}{}
		p.patterns = append(p.patterns, pat)
	}
	if complete && len(p.patterns) > 0 {
		builder := ac.NewAhoCorasickBuilder(ac.Opts{
			MatchKind: ac.LeftMostLongestMatch,
		})
		built := builder.Build(p.patterns)
		p.ac = &built
	}
	return p
}

// Usable reports whether a miss is proof of a non-match.
func (p *Prefilter) Usable() bool {
	return p != nil && p.complete && p.ac != nil
}

// MightMatch reports whether any literal pattern occurs in the id.
func (p *Prefilter) MightMatch(id string) bool {
	return len(p.ac.FindAll(id)) > 0
}

// PatternCount returns the number of distinct harvested literals.
func (p *Prefilter) PatternCount() int {
	if p == nil {
		return 0
	}
	return len(p.patterns)
}
