package target

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

// Nodegroups maps nodegroup names to their defining expressions. The
// table passed to Resolve is an immutable snapshot for that pass; a
// coordinator reload swaps in a fresh table, it never mutates one in
// place.
type Nodegroups map[string]string

// Validate parses every definition and reports the first broken one.
// Unknown-nodegroup and cycle handling stay resolution-time concerns;
// this only catches expressions that can never parse.
func (g Nodegroups) Validate() error {
	for name, def := range g {
		if _, err := Parse(def); err != nil {
			return fmt.Errorf("nodegroup %q: %w", name, err)
		}
	}
	return nil
}

// Resolve replaces every nodegroup-reference clause in the tree with the
// parsed AST of the referenced definition, recursively, until none
// remain.
//
// A reference already being expanded on the current path is a cycle: the
// branch is replaced with a NothingNode, a diagnostic naming the cycle is
// logged, and resolution continues for the rest of the expression.
// References to undeclared nodegroups fail with ErrUnknownNodegroup.
func Resolve(n Node, groups Nodegroups, log logrus.FieldLogger) (Node, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	r := &resolver{
		groups:   groups,
		log:      log,
		visiting: make(map[string]struct{}),
	}
	return r.resolve(n)
}

type resolver struct {
	groups   Nodegroups
	log      logrus.FieldLogger
	visiting map[string]struct{}
	path     []string
}

func (r *resolver) resolve(n Node) (Node, error) {
	switch t := n.(type) {
	case *AndNode:
		left, err := r.resolve(t.Left)
		if err != nil {
			return nil, err
		}
		right, err := r.resolve(t.Right)
		if err != nil {
			return nil, err
		}
		return &AndNode{Left: left, Right: right}, nil
	case *OrNode:
		left, err := r.resolve(t.Left)
		if err != nil {
			return nil, err
		}
		right, err := r.resolve(t.Right)
		if err != nil {
			return nil, err
		}
		return &OrNode{Left: left, Right: right}, nil
	case *NotNode:
		operand, err := r.resolve(t.Operand)
		if err != nil {
			return nil, err
		}
		return &NotNode{Operand: operand}, nil
	case *ClauseNode:
		if t.Clause.Kind != MatchNodegroup {
			return t, nil
		}
		return r.expand(t.Clause.Pattern)
	case *NothingNode:
		return t, nil
	default:
		return nil, fmt.Errorf("unknown node type %T", n)
	}
}

func (r *resolver) expand(name string) (Node, error) {
	if _, seen := r.visiting[name]; seen {
		r.log.WithFields(logrus.Fields{
			"nodegroup": name,
			"cycle":     strings.Join(append(append([]string(nil), r.path...), name), " -> "),
		}).Warn("circular nodegroup reference; branch matches nothing")
		return &NothingNode{}, nil
	}
	def, ok := r.groups[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownNodegroup, name)
	}
	sub, err := Parse(def)
	if err != nil {
		return nil, fmt.Errorf("nodegroup %q: %w", name, err)
	}

	// The name stays in visiting only while its own branch expands; a
	// sibling reference to the same group is legitimate.
	r.visiting[name] = struct{}{}
	r.path = append(r.path, name)
	out, err := r.resolve(sub)
	r.path = r.path[:len(r.path)-1]
	delete(r.visiting, name)
	if err != nil {
		return nil, err
	}
	return out, nil
}
