package models

// TaxonMapping is the stable join between a quest and one taxon.
// Progress entries reference the mapping id, not the taxon id, so
// progress history survives edits to the quest's species list.
type TaxonMapping struct {
	ID      uint `gorm:"primaryKey" json:"id"`
	QuestID uint `gorm:"not null;index" json:"quest_id"`
	TaxonID int  `gorm:"not null" json:"taxon_id"`
}
