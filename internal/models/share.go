package models

import (
	"time"

	"gorm.io/gorm"
)

// Share is an access grant for one quest, identified by an opaque
// token. Deletion is soft: revoking a share kills the token but keeps
// the row so its historical progress stays attributable.
type Share struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	Token            string         `gorm:"size:64;uniqueIndex;not null" json:"token"`
	QuestID          uint           `gorm:"not null;index" json:"quest_id"`
	CreatedByUserID  uint           `gorm:"not null;index" json:"created_by_user_id"`
	GuestName        string         `gorm:"size:100" json:"guest_name,omitempty"`
	SharedWithUserID *uint          `json:"shared_with_user_id,omitempty"`
	ExpiresAt        *time.Time     `json:"expires_at,omitempty"`
	IsPrimary        bool           `gorm:"not null;default:false" json:"is_primary"`
	FirstAccessedAt  *time.Time     `json:"first_accessed_at,omitempty"`
	LastAccessedAt   *time.Time     `json:"last_accessed_at,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`
}

// IdentityKind classifies who a share represents.
type IdentityKind string

const (
	IdentityOwner       IdentityKind = "owner"
	IdentityGuest       IdentityKind = "guest"
	IdentityInvitedUser IdentityKind = "invited_user"
)

// Identity returns the explicit variant instead of leaving callers to
// infer it from which optional fields are null.
func (s *Share) Identity() IdentityKind {
	switch {
	case s.SharedWithUserID != nil:
		return IdentityInvitedUser
	case s.GuestName != "":
		return IdentityGuest
	default:
		return IdentityOwner
	}
}

// Expired reports whether the share's time-boxed invitation has lapsed.
// Expired shares reject progress writes; their historical entries still
// count in aggregates.
func (s *Share) Expired(now time.Time) bool {
	return s.ExpiresAt != nil && now.After(*s.ExpiresAt)
}
