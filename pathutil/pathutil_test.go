package pathutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContains(t *testing.T) {
	assert.True(t, Contains("$/A", "$/A/B"))
	assert.False(t, Contains("$/A", "$/A"))
	assert.False(t, Contains("$/A", "$/AB"))
	assert.True(t, Contains("$/X", "$/x/y"), "case-insensitive")
}

func TestIsOrContains(t *testing.T) {
	assert.True(t, IsOrContains("$/A", "$/A"))
	assert.True(t, IsOrContains("$/A", "$/A/B"))
	assert.False(t, IsOrContains("$/A/B", "$/A"))
}

func TestOverlaps(t *testing.T) {
	assert.True(t, Overlaps("$/A", "$/A/B"))
	assert.True(t, Overlaps("$/A/B", "$/A"))
	assert.False(t, Overlaps("$/A/B", "$/A/C"))
	for _, tc := range []struct{ a, b string }{
		{"$/A", "$/A/B"}, {"$/A/B", "$/A"}, {"$/A/B", "$/A/C"}, {"$/A", "$/A"},
	} {
		assert.Equal(t, IsOrContains(tc.a, tc.b) || IsOrContains(tc.b, tc.a), Overlaps(tc.a, tc.b))
	}
}

func TestLeaf(t *testing.T) {
	assert.Equal(t, "B", Leaf("$/A/B"))
	assert.Equal(t, "$", Leaf("$"))
}

func TestReplaceContaining(t *testing.T) {
	assert.Equal(t, "$/Q/Sub", ReplaceContaining("$/P/Sub", "$/P", "$/Q"))
	assert.Equal(t, "$/Q", ReplaceContaining("$/P", "$/P", "$/Q"))
}

func TestRemoveContaining(t *testing.T) {
	assert.Equal(t, "Sub/file.txt", RemoveContaining("$/P/Sub/file.txt", "$/P"))
	assert.Equal(t, "", RemoveContaining("$/P", "$/P"))
}

func TestStripCommonTrailingSegments(t *testing.T) {
	src, tgt := StripCommonTrailingSegments("$/A/Sub", "$/B/Sub")
	assert.Equal(t, "$/A", src)
	assert.Equal(t, "$/B", tgt)

	src, tgt = StripCommonTrailingSegments("$/A/X", "$/A/X")
	assert.Equal(t, "", src)
	assert.Equal(t, "", tgt)

	src, tgt = StripCommonTrailingSegments("$/A/Sub", "$/B/Other")
	assert.Equal(t, "$/A/Sub", src)
	assert.Equal(t, "$/B/Other", tgt)
}

func TestNonOverlappingUnion(t *testing.T) {
	got := NonOverlappingUnion([]string{"$/A/B", "$/A", "$/C"})
	assert.ElementsMatch(t, []string{"$/A", "$/C"}, got)

	got = NonOverlappingUnion([]string{"$/A", "$/A/B", "$/C"})
	assert.ElementsMatch(t, []string{"$/A", "$/C"}, got)
}
