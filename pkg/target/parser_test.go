package target

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func clauseOf(t *testing.T, n Node) Clause {
	t.Helper()
	cn, ok := n.(*ClauseNode)
	require.True(t, ok, "expected clause node, got %T", n)
	return cn.Clause
}

func TestParsePrecedence(t *testing.T) {
	// "a and b or c" parses as "(a and b) or c".
	n, err := Parse("a and b or c")
	require.NoError(t, err)

	or, ok := n.(*OrNode)
	require.True(t, ok, "root should be or, got %T", n)
	and, ok := or.Left.(*AndNode)
	require.True(t, ok, "left should be and, got %T", or.Left)
	require.Equal(t, "a", clauseOf(t, and.Left).Pattern)
	require.Equal(t, "b", clauseOf(t, and.Right).Pattern)
	require.Equal(t, "c", clauseOf(t, or.Right).Pattern)
}

func TestParseParensOverridePrecedence(t *testing.T) {
	n, err := Parse("a and ( b or c )")
	require.NoError(t, err)

	and, ok := n.(*AndNode)
	require.True(t, ok, "root should be and, got %T", n)
	require.Equal(t, "a", clauseOf(t, and.Left).Pattern)
	_, ok = and.Right.(*OrNode)
	require.True(t, ok, "right should be or, got %T", and.Right)
}

func TestParseNotBindsTightest(t *testing.T) {
	n, err := Parse("not a and b")
	require.NoError(t, err)

	and, ok := n.(*AndNode)
	require.True(t, ok, "root should be and, got %T", n)
	not, ok := and.Left.(*NotNode)
	require.True(t, ok, "left should be not, got %T", and.Left)
	require.Equal(t, "a", clauseOf(t, not.Operand).Pattern)
}

func TestParseLeadingNotOfGroup(t *testing.T) {
	n, err := Parse("not ( a or b )")
	require.NoError(t, err)

	not, ok := n.(*NotNode)
	require.True(t, ok, "root should be not, got %T", n)
	_, ok = not.Operand.(*OrNode)
	require.True(t, ok)
}

func TestParseLeftAssociative(t *testing.T) {
	n, err := Parse("a or b or c")
	require.NoError(t, err)

	or, ok := n.(*OrNode)
	require.True(t, ok)
	inner, ok := or.Left.(*OrNode)
	require.True(t, ok, "chained or should nest left, got %T", or.Left)
	require.Equal(t, "a", clauseOf(t, inner.Left).Pattern)
	require.Equal(t, "c", clauseOf(t, or.Right).Pattern)
}

func TestParseSingleClause(t *testing.T) {
	n, err := Parse("G@os:Debian")
	require.NoError(t, err)
	require.Equal(t, MatchGrainGlob, clauseOf(t, n).Kind)
}

func TestParseErrors(t *testing.T) {
	for _, expr := range []string{
		"",
		"a and",
		"and a",
		"a or or b",
		"a b",
		"( a or b",
		"a or b )",
		"( )",
		"not",
	} {
		_, err := Parse(expr)
		require.ErrorIs(t, err, ErrSyntax, "expression %q", expr)
	}
}

func TestParsePropagatesClauseErrors(t *testing.T) {
	_, err := Parse("a and X@foo")
	require.ErrorIs(t, err, ErrUnknownMatcher)
}
