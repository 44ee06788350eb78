package types

// Diff holds the result of comparing a feature branch against its base:
// three disjoint ordered lists of workspace-relative paths. Renames expand
// into a paired delete+add, copies into an add.
type Diff struct {
	Added    []string
	Modified []string
	Deleted  []string
}

// IsEmpty reports whether the diff contains no entries at all.
func (d *Diff) IsEmpty() bool {
	return len(d.Added) == 0 && len(d.Modified) == 0 && len(d.Deleted) == 0
}

// Changed returns added and modified paths in order, the candidate set for
// a feature-branch scan.
func (d *Diff) Changed() []string {
	changed := make([]string, 0, len(d.Added)+len(d.Modified))
	changed = append(changed, d.Added...)
	changed = append(changed, d.Modified...)
	return changed
}
