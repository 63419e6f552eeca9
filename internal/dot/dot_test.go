package dot

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshharrison/critpath/internal/cpm"
	"github.com/joshharrison/critpath/internal/graph"
	"github.com/joshharrison/critpath/internal/plan"
)

func schedule(t *testing.T, title string, records []plan.Record) (*graph.Schedule, *cpm.CPMResult) {
	t.Helper()
	s, err := graph.Build(title, records)
	require.NoError(t, err)
	result, err := cpm.Analyze(s)
	require.NoError(t, err)
	return s, result
}

func diamond(t *testing.T) (*graph.Schedule, *cpm.CPMResult) {
	return schedule(t, "release", []plan.Record{
		{ID: "A", Description: "Design", Duration: "4", Predecessors: "-"},
		{ID: "B", Description: "Build", Duration: "8", Predecessors: "A"},
		{ID: "C", Description: "Docs", Duration: "2", Predecessors: "A"},
		{ID: "D", Description: "Release", Duration: "7", Predecessors: "B,C"},
	})
}

func TestMarshal_Golden(t *testing.T) {
	s, result := diamond(t)

	got, err := Marshal(s, result, Options{})
	require.NoError(t, err)

	want, err := os.ReadFile(filepath.Join("testdata", "diamond.golden"))
	require.NoError(t, err)

	if diff := cmp.Diff(string(want), got); diff != "" {
		t.Errorf("DOT output mismatch (-want +got):\n%s", diff)
	}
}

func TestMarshal_Idempotent(t *testing.T) {
	s, result := diamond(t)
	first, err := Marshal(s, result, Options{})
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		s, result := diamond(t)
		again, err := Marshal(s, result, Options{})
		require.NoError(t, err)
		require.Empty(t, cmp.Diff(first, again), "run %d differs", i)
	}
}

func TestMarshal_RankDir(t *testing.T) {
	s, result := diamond(t)

	out, err := Marshal(s, result, Options{RankDir: "tb"})
	require.NoError(t, err)
	assert.Contains(t, out, "  rankdir=TB;\n")

	_, err = Marshal(s, result, Options{RankDir: "diagonal"})
	assert.ErrorContains(t, err, "invalid rankdir")
}

func TestMarshal_EscapesRecordCharacters(t *testing.T) {
	s, result := schedule(t, `say "hi"`, []plan.Record{
		{ID: "A", Description: `Setup {db} | <cache> "fast" \ done`, Duration: "1", Predecessors: "-"},
		{ID: "B", Description: "", Duration: "1", Predecessors: "A"},
	})

	out, err := Marshal(s, result, Options{})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, `digraph "say \"hi\"" {`), "header: %q", out)
	assert.Contains(t, out, `{A|Setup \{db\} \| \<cache\> \"fast\" \\ done}`)
	assert.Contains(t, out, `{B|}`)
}

func TestMarshal_EdgeCountMatchesLinks(t *testing.T) {
	s, result := diamond(t)
	out, err := Marshal(s, result, Options{})
	require.NoError(t, err)

	assert.Equal(t, 4, strings.Count(out, " -> "))
	assert.Equal(t, 2, strings.Count(out, "penwidth=2"))
}
