package match

import (
	"context"
	"fmt"
	"net"
	"regexp"
	"strings"
	"time"

	"github.com/gobwas/glob"
	"github.com/sirupsen/logrus"

	"github.com/fleetward/fleetward/pkg/target"
)

// RangeExpander resolves a range-cluster query to a set of minion ids.
// Implementations talk to an external range server and must honor the
// context deadline.
type RangeExpander interface {
	Expand(ctx context.Context, query string) ([]string, error)
}

// Compiler turns a nodegroup-resolved AST into a CompiledExpr. Globs and
// regexes are compiled once, CIDR blocks parsed once and range queries
// expanded once, so the per-minion evaluation is a pure tree walk.
//
// Degraded conditions are contained to the clause, not the pass: a bad
// glob/regex/CIDR pattern, a failed or timed-out range lookup, and a
// missing range expander all compile to a clause that matches nothing,
// with a warning logged.
type Compiler struct {
	Log          logrus.FieldLogger
	Ranges       RangeExpander
	RangeTimeout time.Duration
}

// CompiledExpr is a compiled expression ready to evaluate against
// snapshots. Immutable; safe for concurrent use across workers.
type CompiledExpr struct {
	root compiledNode
	pf   *Prefilter
}

// Matches evaluates one minion. And/Or short-circuit, Not inverts, and a
// leaf runs its backend predicate.
func (e *CompiledExpr) Matches(s *Snapshot) bool {
	if e.pf.Usable() && !e.pf.MightMatch(s.ID) {
		return false
	}
	return e.root.eval(s)
}

// Prefilter exposes the literal prefilter for stats reporting.
func (e *CompiledExpr) Prefilter() *Prefilter { return e.pf }

type compiledNode interface {
	eval(s *Snapshot) bool
}

type andNode struct{ left, right compiledNode }
type orNode struct{ left, right compiledNode }
type notNode struct{ operand compiledNode }
type leafNode struct{ fn func(*Snapshot) bool }

func (n andNode) eval(s *Snapshot) bool { return n.left.eval(s) && n.right.eval(s) }
func (n orNode) eval(s *Snapshot) bool  { return n.left.eval(s) || n.right.eval(s) }
func (n notNode) eval(s *Snapshot) bool { return !n.operand.eval(s) }
func (n leafNode) eval(s *Snapshot) bool { return n.fn(s) }

// Compile walks a resolved tree. An AST still carrying a nodegroup
// reference is a caller bug and fails loudly.
func (c *Compiler) Compile(ctx context.Context, root target.Node) (*CompiledExpr, error) {
	cc := *c
	if cc.Log == nil {
		cc.Log = logrus.StandardLogger()
	}
	b := &compilation{c: &cc, ctx: ctx, complete: true}
	cn, err := b.compile(root)
	if err != nil {
		return nil, err
	}
	return &CompiledExpr{root: cn, pf: newPrefilter(b.patterns, b.complete)}, nil
}

type compilation struct {
	c   *Compiler
	ctx context.Context

	// prefilter harvest: literal id patterns plus whether every leaf
	// that can be true contributed one (see Prefilter).
	patterns []string
	complete bool
}

func (b *compilation) compile(n target.Node) (compiledNode, error) {
	switch t := n.(type) {
	case *target.AndNode:
		left, err := b.compile(t.Left)
		if err != nil {
			return nil, err
		}
		right, err := b.compile(t.Right)
		if err != nil {
			return nil, err
		}
		return andNode{left: left, right: right}, nil
	case *target.OrNode:
		left, err := b.compile(t.Left)
		if err != nil {
			return nil, err
		}
		right, err := b.compile(t.Right)
		if err != nil {
			return nil, err
		}
		return orNode{left: left, right: right}, nil
	case *target.NotNode:
		b.complete = false
		operand, err := b.compile(t.Operand)
		if err != nil {
			return nil, err
		}
		return notNode{operand: operand}, nil
	case *target.NothingNode:
		// Never true, so it needs no prefilter contribution.
		return leafNode{fn: neverMatch}, nil
	case *target.ClauseNode:
		fn, err := b.compileClause(t.Clause)
		if err != nil {
			return nil, err
		}
		return leafNode{fn: fn}, nil
	default:
		return nil, fmt.Errorf("unknown node type %T", n)
	}
}

func (b *compilation) compileClause(cl target.Clause) (func(*Snapshot) bool, error) {
	switch cl.Kind {
	case target.MatchGlob:
		if lit, ok := literalPattern(cl.Pattern); ok {
			b.patterns = append(b.patterns, lit)
		} else {
			b.complete = false
		}
		m := b.globFn(cl.Pattern)
		return func(s *Snapshot) bool { return m(s.ID) }, nil
	case target.MatchList:
		return b.listFn(cl.Pattern), nil
	case target.MatchIDPCRE:
		b.complete = false
		m := b.regexFn(cl.Pattern, false)
		return func(s *Snapshot) bool { return m(s.ID) }, nil
	case target.MatchGrainGlob:
		b.complete = false
		return b.mapFn(cl, false, false), nil
	case target.MatchGrainPCRE:
		b.complete = false
		return b.mapFn(cl, false, true), nil
	case target.MatchPillarGlob:
		b.complete = false
		return b.mapFn(cl, true, false), nil
	case target.MatchPillarPCRE:
		b.complete = false
		return b.mapFn(cl, true, true), nil
	case target.MatchSubnet:
		b.complete = false
		return b.subnetFn(cl.Pattern), nil
	case target.MatchRange:
		b.complete = false
		return b.rangeFn(cl.Pattern), nil
	case target.MatchData:
		b.complete = false
		return dataFn(cl), nil
	case target.MatchNodegroup:
		return nil, fmt.Errorf("unresolved nodegroup reference %q", cl.Pattern)
	default:
		return nil, fmt.Errorf("unknown matcher kind %v", cl.Kind)
	}
}

func neverMatch(*Snapshot) bool { return false }

func neverString(string) bool { return false }

const globMeta = `*?[]{}\`

// literalPattern reports whether a glob pattern is a plain literal, in
// which case matching it is an exact id comparison and it can feed the
// prefilter.
func literalPattern(pattern string) (string, bool) {
	if pattern == "" || strings.ContainsAny(pattern, globMeta) {
		return "", false
	}
	return pattern, true
}

// globFn compiles a shell-style glob ('*', '?', '[...]') into a
// case-sensitive matcher. Empty and unparseable patterns match nothing.
func (b *compilation) globFn(pattern string) func(string) bool {
	if pattern == "" {
		return neverString
	}
	if lit, ok := literalPattern(pattern); ok {
		return func(s string) bool { return s == lit }
	}
	g, err := glob.Compile(pattern)
	if err != nil {
		b.c.Log.WithFields(logrus.Fields{"pattern": pattern, "error": err}).
			Warn("bad glob pattern; clause matches nothing")
		return neverString
	}
	return g.Match
}

// regexFn compiles a pattern with full-text semantics when full is set
// (grain/pillar PCRE) and start-anchored match semantics otherwise
// (minion-id PCRE). Unparseable patterns match nothing.
func (b *compilation) regexFn(pattern string, full bool) func(string) bool {
	if pattern == "" {
		return neverString
	}
	anchored := "^(?:" + pattern + ")"
	if full {
		anchored += "$"
	}
	re, err := regexp.Compile(anchored)
	if err != nil {
		b.c.Log.WithFields(logrus.Fields{"pattern": pattern, "error": err}).
			Warn("bad regex pattern; clause matches nothing")
		return neverString
	}
	return re.MatchString
}

// listFn matches the minion id against a comma-separated list. Each
// element is an exact id or, when it carries glob metacharacters, a glob
// of its own.
func (b *compilation) listFn(pattern string) func(*Snapshot) bool {
	if pattern == "" {
		b.complete = false
		return neverMatch
	}
	var fns []func(string) bool
	for _, el := range strings.Split(pattern, ",") {
		if el == "" {
			continue
		}
		if lit, ok := literalPattern(el); ok {
			b.patterns = append(b.patterns, lit)
		} else {
			b.complete = false
		}
		fns = append(fns, b.globFn(el))
	}
	if len(fns) == 0 {
		b.complete = false
		return neverMatch
	}
	return func(s *Snapshot) bool {
		for _, fn := range fns {
			if fn(s.ID) {
				return true
			}
		}
		return false
	}
}

// mapFn matches against the nested grain or pillar map. The pattern is
// path<delim>...<delim>value: every segment but the last walks the map,
// the last is globbed or regexed against the leaf. Missing keys and
// non-scalar leaves are a non-match, never an error.
func (b *compilation) mapFn(cl target.Clause, pillar, pcre bool) func(*Snapshot) bool {
	segs := strings.Split(cl.Pattern, cl.Delimiter)
	if len(segs) < 2 {
		return neverMatch
	}
	path, last := segs[:len(segs)-1], segs[len(segs)-1]
	var valueFn func(string) bool
	if pcre {
		valueFn = b.regexFn(last, true)
	} else {
		valueFn = b.globFn(last)
	}
	return func(s *Snapshot) bool {
		m := s.Grains
		if pillar {
			m = s.Pillar
		}
		leaf, ok := traverse(m, path)
		if !ok {
			return false
		}
		return anyLeafValue(leaf, valueFn)
	}
}

// subnetFn matches any minion address against a single IP or CIDR block.
func (b *compilation) subnetFn(pattern string) func(*Snapshot) bool {
	if strings.Contains(pattern, "/") {
		_, ipnet, err := net.ParseCIDR(pattern)
		if err != nil {
			b.c.Log.WithFields(logrus.Fields{"pattern": pattern, "error": err}).
				Warn("bad CIDR pattern; clause matches nothing")
			return neverMatch
		}
		return func(s *Snapshot) bool {
			for _, a := range s.Addrs {
				if ip := net.ParseIP(a); ip != nil && ipnet.Contains(ip) {
					return true
				}
			}
			return false
		}
	}
	want := net.ParseIP(pattern)
	if want == nil {
		b.c.Log.WithField("pattern", pattern).Warn("bad IP pattern; clause matches nothing")
		return neverMatch
	}
	return func(s *Snapshot) bool {
		for _, a := range s.Addrs {
			if ip := net.ParseIP(a); ip != nil && ip.Equal(want) {
				return true
			}
		}
		return false
	}
}

// rangeFn expands the cluster query once, up front, so per-minion
// evaluation is a set lookup. A slow or unreachable range server costs
// one bounded lookup, not one per minion, and degrades to no-match.
func (b *compilation) rangeFn(query string) func(*Snapshot) bool {
	if b.c.Ranges == nil {
		b.c.Log.WithField("query", query).
			Warn("no range expander configured; clause matches nothing")
		return neverMatch
	}
	timeout := b.c.RangeTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(b.ctx, timeout)
	defer cancel()
	nodes, err := b.c.Ranges.Expand(ctx, query)
	if err != nil {
		b.c.Log.WithFields(logrus.Fields{"query": query, "error": err}).
			Warn("range expansion failed; clause matches nothing")
		return neverMatch
	}
	set := make(map[string]struct{}, len(nodes))
	for _, n := range nodes {
		set[n] = struct{}{}
	}
	return func(s *Snapshot) bool {
		_, ok := set[s.ID]
		return ok
	}
}

// dataFn matches the flat minion-data map: key<delim>value, exact value.
func dataFn(cl target.Clause) func(*Snapshot) bool {
	key, val, ok := strings.Cut(cl.Pattern, cl.Delimiter)
	if !ok || key == "" {
		return neverMatch
	}
	return func(s *Snapshot) bool {
		got, present := s.Data[key]
		return present && got == val
	}
}
