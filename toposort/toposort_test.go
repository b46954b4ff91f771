package toposort

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type node struct {
	name string
	deps []string
}

func key(n node) string        { return n.name }
func dependsOn(n node) []string { return n.deps }

func TestStableOrderWithDependency(t *testing.T) {
	items := []node{{"A", nil}, {"B", []string{"A"}}, {"C", nil}}
	got, err := Sort(items, key, dependsOn)
	assert.NoError(t, err)
	names := make([]string, len(got))
	for i, n := range got {
		names[i] = n.name
	}
	assert.Equal(t, []string{"A", "B", "C"}, names)
}

func TestCycleReported(t *testing.T) {
	items := []node{{"A", []string{"B"}}, {"B", []string{"A"}}}
	_, err := Sort(items, key, dependsOn)
	assert.Error(t, err)
	var sortErr *Error
	assert.ErrorAs(t, err, &sortErr)
	assert.ElementsMatch(t, []interface{}{"A", "B"}, sortErr.Cyclical)
}

func TestExternalDependencyReported(t *testing.T) {
	items := []node{{"A", []string{"ghost"}}}
	_, err := Sort(items, key, dependsOn)
	assert.Error(t, err)
	var sortErr *Error
	assert.ErrorAs(t, err, &sortErr)
	assert.Equal(t, []interface{}{"ghost"}, sortErr.ExternalDependencies)
}

func TestNoDependenciesPreservesInputOrder(t *testing.T) {
	items := []node{{"C", nil}, {"B", nil}, {"A", nil}}
	got, err := Sort(items, key, dependsOn)
	assert.NoError(t, err)
	names := make([]string, len(got))
	for i, n := range got {
		names[i] = n.name
	}
	assert.Equal(t, []string{"C", "B", "A"}, names)
}
