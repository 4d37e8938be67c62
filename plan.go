package manifestly

import "sort"

// OpType identifies a planned sync operation.
type OpType string

const (
	// OpCopy copies a file from the source tree over the target tree.
	OpCopy OpType = "COPY"

	// OpDelete removes a file from the target tree.
	OpDelete OpType = "DELETE"
)

// Operation is one planned file action.
type Operation struct {
	Type OpType `json:"op"`
	Path string `json:"path"`
}

// SyncPlan is the ordered list of operations that makes a target tree match
// a source tree. Building a plan from the same diff always yields the same
// operation sequence: copies in lexicographic path order, then deletes in
// lexicographic path order.
type SyncPlan struct {
	Operations []Operation `json:"operations"`
}

// BuildPlan derives the sync plan from a diff. Added and changed paths
// become copies, removed paths become deletes, unchanged paths produce
// nothing.
func BuildPlan(diff *DiffResult) *SyncPlan {
	copies := make([]string, 0, len(diff.Added)+len(diff.Changed))
	copies = append(copies, diff.Added...)
	copies = append(copies, diff.Changed...)
	sort.Strings(copies)

	deletes := make([]string, len(diff.Removed))
	copy(deletes, diff.Removed)
	sort.Strings(deletes)

	plan := &SyncPlan{Operations: make([]Operation, 0, len(copies)+len(deletes))}
	for _, p := range copies {
		plan.Operations = append(plan.Operations, Operation{Type: OpCopy, Path: p})
	}
	for _, p := range deletes {
		plan.Operations = append(plan.Operations, Operation{Type: OpDelete, Path: p})
	}
	return plan
}

// Empty reports whether the plan has no work.
func (p *SyncPlan) Empty() bool {
	return len(p.Operations) == 0
}

// Counts returns the number of planned copies and deletes.
func (p *SyncPlan) Counts() (copies, deletes int) {
	for _, op := range p.Operations {
		if op.Type == OpCopy {
			copies++
		} else {
			deletes++
		}
	}
	return copies, deletes
}
