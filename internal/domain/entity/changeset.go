package entity

// ChangeKind classifies a staged catalog entry relative to the baseline.
type ChangeKind string

const (
	ChangeNew      ChangeKind = "new"
	ChangeModified ChangeKind = "modified"
	ChangeDeleted  ChangeKind = "deleted"
)

// Change is a single SKU-level difference between staged and baseline.
type Change struct {
	SKU  string     `json:"sku"`
	Kind ChangeKind `json:"kind"`
}

// ChangeSet is the diff of a staged catalog against the last published
// baseline. It is recomputed on every staging mutation and consumed once by
// a publish, after which the baseline advances and the set closes to empty.
type ChangeSet struct {
	New      []string `json:"new"`
	Modified []string `json:"modified"`
	Deleted  []string `json:"deleted"`
}

// Empty reports whether the set contains no changes.
func (cs ChangeSet) Empty() bool {
	return len(cs.New) == 0 && len(cs.Modified) == 0 && len(cs.Deleted) == 0
}

// Total returns the number of SKUs the set touches.
func (cs ChangeSet) Total() int {
	return len(cs.New) + len(cs.Modified) + len(cs.Deleted)
}
