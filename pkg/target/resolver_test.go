package target

import (
	"testing"

	"github.com/sirupsen/logrus"
	logrustest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

func TestResolveTransparent(t *testing.T) {
	groups := Nodegroups{"grp1": "a or b"}

	ref, err := Parse("N@grp1")
	require.NoError(t, err)
	resolved, err := Resolve(ref, groups, nil)
	require.NoError(t, err)

	direct, err := Parse("a or b")
	require.NoError(t, err)
	require.Equal(t, direct, resolved)
}

func TestResolveNested(t *testing.T) {
	groups := Nodegroups{
		"web":     "web* or G@role:frontend",
		"staging": "N@web and G@env:staging",
	}

	n, err := Parse("N@staging")
	require.NoError(t, err)
	resolved, err := Resolve(n, groups, nil)
	require.NoError(t, err)
	requireNoNodegroupRefs(t, resolved)
}

func TestResolveLeavesOtherClausesAlone(t *testing.T) {
	n, err := Parse("web* and G@os:Debian")
	require.NoError(t, err)
	resolved, err := Resolve(n, Nodegroups{}, nil)
	require.NoError(t, err)
	require.Equal(t, n, resolved)
}

func TestResolveUnknownNodegroup(t *testing.T) {
	n, err := Parse("N@nope")
	require.NoError(t, err)
	_, err = Resolve(n, Nodegroups{}, nil)
	require.ErrorIs(t, err, ErrUnknownNodegroup)
	require.Contains(t, err.Error(), `"nope"`)
}

// A cycle must not hang or fail the whole expression: the cyclic branch
// matches nothing, the rest keeps working, and a diagnostic names the
// cycle.
func TestResolveCycleContained(t *testing.T) {
	groups := Nodegroups{
		"g1": "N@g2 or web*",
		"g2": "N@g1",
	}
	logger, hook := logrustest.NewNullLogger()

	n, err := Parse("N@g1")
	require.NoError(t, err)
	resolved, err := Resolve(n, groups, logger)
	require.NoError(t, err)
	requireNoNodegroupRefs(t, resolved)

	or, ok := resolved.(*OrNode)
	require.True(t, ok, "got %T", resolved)
	_, ok = or.Left.(*NothingNode)
	require.True(t, ok, "cyclic branch should match nothing, got %T", or.Left)

	entries := hook.AllEntries()
	require.Len(t, entries, 1)
	require.Equal(t, logrus.WarnLevel, entries[0].Level)
	require.Equal(t, "g1 -> g2 -> g1", entries[0].Data["cycle"])
}

// The same nodegroup may appear on sibling, non-cyclic paths.
func TestResolveSiblingReuseIsNotACycle(t *testing.T) {
	groups := Nodegroups{"g": "a"}
	logger, hook := logrustest.NewNullLogger()

	n, err := Parse("N@g and N@g")
	require.NoError(t, err)
	resolved, err := Resolve(n, groups, logger)
	require.NoError(t, err)
	requireNoNodegroupRefs(t, resolved)
	require.Empty(t, hook.AllEntries())
}

func TestResolveBrokenDefinition(t *testing.T) {
	n, err := Parse("N@bad")
	require.NoError(t, err)
	_, err = Resolve(n, Nodegroups{"bad": "a and"}, nil)
	require.ErrorIs(t, err, ErrSyntax)
	require.Contains(t, err.Error(), `"bad"`)
}

func TestNodegroupsValidate(t *testing.T) {
	require.NoError(t, Nodegroups{"ok": "a or b"}.Validate())
	err := Nodegroups{"broken": "( a"}.Validate()
	require.ErrorIs(t, err, ErrSyntax)
}

func requireNoNodegroupRefs(t *testing.T, n Node) {
	t.Helper()
	switch x := n.(type) {
	case *AndNode:
		requireNoNodegroupRefs(t, x.Left)
		requireNoNodegroupRefs(t, x.Right)
	case *OrNode:
		requireNoNodegroupRefs(t, x.Left)
		requireNoNodegroupRefs(t, x.Right)
	case *NotNode:
		requireNoNodegroupRefs(t, x.Operand)
	case *ClauseNode:
		require.NotEqual(t, MatchNodegroup, x.Clause.Kind, "unresolved nodegroup reference")
	case *NothingNode:
	default:
		t.Fatalf("unknown node type %T", n)
	}
}
