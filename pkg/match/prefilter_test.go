package match

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPrefilterUsableForLiteralExpressions(t *testing.T) {
	ce := compileExpr(t, "web1 or L@db1,db2")
	pf := ce.Prefilter()
	require.True(t, pf.Usable())
	require.Equal(t, 3, pf.PatternCount())
	require.True(t, pf.MightMatch("web1"))
	require.True(t, pf.MightMatch("db2"))
	require.False(t, pf.MightMatch("cache9"))
}

func TestPrefilterDisabledByNegation(t *testing.T) {
	require.False(t, compileExpr(t, "not web1").Prefilter().Usable())
	require.False(t, compileExpr(t, "web1 and not db1").Prefilter().Usable())
}

func TestPrefilterDisabledByNonLiteralLeaves(t *testing.T) {
	require.False(t, compileExpr(t, "web*").Prefilter().Usable())
	require.False(t, compileExpr(t, "web1 or G@os:Debian").Prefilter().Usable())
	require.False(t, compileExpr(t, "L@db1,web*").Prefilter().Usable())
	require.False(t, compileExpr(t, "E@web.*").Prefilter().Usable())
}

// A prefilter skip must never change the result: everything skipped
// would have evaluated false anyway.
func TestPrefilterSoundness(t *testing.T) {
	fleet := []*Snapshot{
		{ID: "web1"}, {ID: "web2"}, {ID: "db1"}, {ID: "cache9"},
	}
	ce := compileExpr(t, "web1 or L@db1,db2")
	require.True(t, ce.Prefilter().Usable())

	got, err := ce.Assemble(context.Background(), fleet, 0)
	require.NoError(t, err)
	require.Equal(t, []string{"db1", "web1"}, got)

	// Same verdicts leaf by leaf without the prefilter.
	for _, s := range fleet {
		require.Equal(t, ce.root.eval(s), ce.Matches(s), s.ID)
	}
}

// Substring hits are fine: the full walk still runs, only misses skip.
func TestPrefilterSubstringHitStillEvaluates(t *testing.T) {
	ce := compileExpr(t, "web1")
	require.True(t, ce.Prefilter().Usable())
	require.True(t, ce.Prefilter().MightMatch("web10"), "substring hit")
	require.False(t, ce.Matches(&Snapshot{ID: "web10"}), "full walk rejects it")
}
