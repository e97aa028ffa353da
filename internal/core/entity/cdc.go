package entity

import "time"

// Tombstone marks a record as soft-deleted. Records are never physically
// removed so deletions propagate to every device instead of being resurrected
// by a late sync.
type Tombstone struct {
	DeletedAt *time.Time `db:"deleted_at" json:"deletedAt,omitempty"`
}

// IsDeleted returns true if the record has been tombstoned.
func (t *Tombstone) IsDeleted() bool {
	return t.DeletedAt != nil
}

// MarkDeleted sets the deletion timestamp.
func (t *Tombstone) MarkDeleted() {
	now := time.Now().UTC()
	t.DeletedAt = &now
}
