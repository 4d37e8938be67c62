package manifestly

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildPlan_Ordering(t *testing.T) {
	diff := &DiffResult{
		Added:     []string{"b/new.txt", "a/new.txt"},
		Changed:   []string{"z/edit.txt", "m/edit.txt"},
		Removed:   []string{"x/gone.txt", "c/gone.txt"},
		Unchanged: []string{"same.txt"},
	}

	plan := BuildPlan(diff)

	assert.Equal(t, []Operation{
		{Type: OpCopy, Path: "a/new.txt"},
		{Type: OpCopy, Path: "b/new.txt"},
		{Type: OpCopy, Path: "m/edit.txt"},
		{Type: OpCopy, Path: "z/edit.txt"},
		{Type: OpDelete, Path: "c/gone.txt"},
		{Type: OpDelete, Path: "x/gone.txt"},
	}, plan.Operations)

	copies, deletes := plan.Counts()
	assert.Equal(t, 4, copies)
	assert.Equal(t, 2, deletes)
}

func TestBuildPlan_Empty(t *testing.T) {
	plan := BuildPlan(&DiffResult{Unchanged: []string{"a.txt"}})
	assert.True(t, plan.Empty())

	copies, deletes := plan.Counts()
	assert.Zero(t, copies)
	assert.Zero(t, deletes)
}

func TestBuildPlan_Deterministic(t *testing.T) {
	diff := &DiffResult{
		Added:   []string{"n1", "n2"},
		Changed: []string{"c1"},
		Removed: []string{"r1"},
	}
	assert.Equal(t, BuildPlan(diff), BuildPlan(diff))
}
