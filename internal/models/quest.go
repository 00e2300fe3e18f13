package models

import "time"

type Quest struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	UserID    uint           `gorm:"not null;index" json:"user_id"`
	User      User           `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Name      string         `gorm:"size:255;not null" json:"name"`
	Status    string         `gorm:"size:20;not null;default:'pending'" json:"status"`
	Mode      string         `gorm:"size:20;not null;default:'cooperative'" json:"mode"`
	StartsAt  *time.Time     `json:"starts_at,omitempty"`
	EndsAt    *time.Time     `json:"ends_at,omitempty"`
	IsPrivate bool           `gorm:"not null;default:false" json:"is_private"`
	Mappings  []TaxonMapping `gorm:"foreignKey:QuestID" json:"mappings,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

const (
	QuestStatusPending = "pending"
	QuestStatusActive  = "active"
	QuestStatusPaused  = "paused"
	QuestStatusEnded   = "ended"

	QuestModeCooperative = "cooperative"
	QuestModeCompetitive = "competitive"
)
