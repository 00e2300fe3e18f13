package models

import "time"

// ProgressEntry is one "found" claim by one share for one taxon mapping.
// QuestID is denormalized from the mapping so the competitive-mode scan
// and aggregate reads stay single-table; it is validated against the
// mapping's quest at write time.
type ProgressEntry struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	QuestID    uint      `gorm:"not null;index:idx_progress_quest_mapping" json:"quest_id"`
	ShareID    uint      `gorm:"not null;uniqueIndex:idx_progress_claim" json:"share_id"`
	MappingID  uint      `gorm:"not null;uniqueIndex:idx_progress_claim;index:idx_progress_quest_mapping" json:"mapping_id"`
	ObservedAt time.Time `json:"observed_at"`
}
