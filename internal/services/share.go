package services

import (
	"errors"
	"log"
	"time"

	"github.com/stevengranter/wilderquest-sub001/internal/apperrors"
	"github.com/stevengranter/wilderquest-sub001/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ShareService is the registry of share tokens: creation, revocation,
// token resolution for guest bootstrap, and the lazy primary share that
// attributes owner-authored progress.
type ShareService struct {
	db *gorm.DB
}

func NewShareService(db *gorm.DB) *ShareService {
	return &ShareService{db: db}
}

type CreateShareInput struct {
	GuestName     string     `json:"guest_name,omitempty"`
	InvitedUserID *uint      `json:"invited_user_id,omitempty"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
}

// ShareContext is everything a guest needs to bootstrap a session from
// one token: the share, its quest with the owner's display name, and
// the quest's taxon mappings.
type ShareContext struct {
	Share     models.Share          `json:"share"`
	Quest     models.Quest          `json:"quest"`
	OwnerName string                `json:"owner_name"`
	Mappings  []models.TaxonMapping `json:"mappings"`
}

// CreateShare issues a new invitation for a quest the caller owns. The
// first "bare" share (no guest name, no invited user) becomes the
// owner's primary acting-identity share.
func (s *ShareService) CreateShare(questID, ownerID uint, in CreateShareInput) (*models.Share, error) {
	var quest models.Quest
	if err := s.db.First(&quest, questID).Error; err != nil {
		return nil, apperrors.NotFound("quest %d not found", questID)
	}
	if quest.UserID != ownerID {
		return nil, apperrors.Forbidden("only the quest owner can create shares")
	}

	if in.InvitedUserID != nil {
		var invited models.User
		if err := s.db.First(&invited, *in.InvitedUserID).Error; err != nil {
			return nil, apperrors.NotFound("user %d not found", *in.InvitedUserID)
		}
		var count int64
		s.db.Model(&models.Share{}).
			Where("quest_id = ? AND shared_with_user_id = ?", questID, *in.InvitedUserID).
			Count(&count)
		if count > 0 {
			return nil, apperrors.Conflict("user %d already has a share for this quest", *in.InvitedUserID)
		}
	}

	isPrimary := false
	if in.GuestName == "" && in.InvitedUserID == nil {
		var count int64
		s.db.Model(&models.Share{}).
			Where("quest_id = ? AND created_by_user_id = ? AND is_primary", questID, ownerID).
			Count(&count)
		isPrimary = count == 0
	}

	share := models.Share{
		Token:            uuid.NewString(),
		QuestID:          questID,
		CreatedByUserID:  ownerID,
		GuestName:        in.GuestName,
		SharedWithUserID: in.InvitedUserID,
		ExpiresAt:        in.ExpiresAt,
		IsPrimary:        isPrimary,
	}
	if err := s.db.Create(&share).Error; err != nil {
		if isPrimary && errors.Is(err, gorm.ErrDuplicatedKey) {
			// Lost the race on the partial unique index; the winner's
			// row is the primary, so retry this one as non-primary.
			share.IsPrimary = false
			share.Token = uuid.NewString()
			if err := s.db.Create(&share).Error; err != nil {
				return nil, err
			}
			return &share, nil
		}
		return nil, err
	}
	return &share, nil
}

func (s *ShareService) ListShares(questID, ownerID uint) ([]models.Share, error) {
	var quest models.Quest
	if err := s.db.First(&quest, questID).Error; err != nil {
		return nil, apperrors.NotFound("quest %d not found", questID)
	}
	if quest.UserID != ownerID {
		return nil, apperrors.Forbidden("only the quest owner can list shares")
	}

	var shares []models.Share
	if err := s.db.Where("quest_id = ?", questID).Order("created_at ASC").Find(&shares).Error; err != nil {
		return nil, err
	}
	return shares, nil
}

// DeleteShare revokes the access token. Progress entries tied to the
// share are retained so aggregates and leaderboards keep counting them.
func (s *ShareService) DeleteShare(shareID, requestorID uint) error {
	var share models.Share
	if err := s.db.First(&share, shareID).Error; err != nil {
		return apperrors.NotFound("share %d not found", shareID)
	}
	if share.CreatedByUserID != requestorID {
		return apperrors.Forbidden("only the share's creator can delete it")
	}
	return s.db.Delete(&share).Error
}

// ResolveToken is the single read path guests use to bootstrap a
// session. It also tracks first/last access on the share.
func (s *ShareService) ResolveToken(token string) (*ShareContext, error) {
	var share models.Share
	if err := s.db.Where("token = ?", token).First(&share).Error; err != nil {
		return nil, apperrors.NotFound("share token not found")
	}
	if share.Expired(time.Now()) {
		return nil, apperrors.Expired("share token has expired")
	}

	now := time.Now()
	if share.FirstAccessedAt == nil {
		share.FirstAccessedAt = &now
	}
	share.LastAccessedAt = &now
	if err := s.db.Model(&models.Share{}).Where("id = ?", share.ID).
		Updates(map[string]any{"first_accessed_at": share.FirstAccessedAt, "last_accessed_at": share.LastAccessedAt}).Error; err != nil {
		log.Printf("share: failed to record access time for share %d: %v", share.ID, err)
	}

	var quest models.Quest
	if err := s.db.Preload("User").First(&quest, share.QuestID).Error; err != nil {
		return nil, apperrors.NotFound("quest %d not found", share.QuestID)
	}

	var mappings []models.TaxonMapping
	if err := s.db.Where("quest_id = ?", quest.ID).Find(&mappings).Error; err != nil {
		return nil, err
	}

	return &ShareContext{
		Share:     share,
		Quest:     quest,
		OwnerName: quest.User.Username,
		Mappings:  mappings,
	}, nil
}

// ResolveActiveShare loads a share for a progress write: unknown tokens
// are NotFound, lapsed invitations are Expired.
func (s *ShareService) ResolveActiveShare(token string) (*models.Share, error) {
	var share models.Share
	if err := s.db.Where("token = ?", token).First(&share).Error; err != nil {
		return nil, apperrors.NotFound("share token not found")
	}
	if share.Expired(time.Now()) {
		return nil, apperrors.Expired("share token has expired")
	}
	return &share, nil
}

// ResolveOrCreatePrimaryShare finds (or lazily creates) the share that
// represents the owner acting directly. Idempotent under concurrent
// first use: the partial unique index on (quest_id, created_by_user_id)
// makes the create fail for the loser, which then fetches the winner's
// row.
func (s *ShareService) ResolveOrCreatePrimaryShare(questID, ownerID uint) (*models.Share, error) {
	var share models.Share
	err := s.db.Where("quest_id = ? AND created_by_user_id = ? AND is_primary", questID, ownerID).
		First(&share).Error
	if err == nil {
		return &share, nil
	}

	share = models.Share{
		Token:           uuid.NewString(),
		QuestID:         questID,
		CreatedByUserID: ownerID,
		IsPrimary:       true,
	}
	if err := s.db.Create(&share).Error; err != nil {
		// Concurrent first use created it already.
		if ferr := s.db.Where("quest_id = ? AND created_by_user_id = ? AND is_primary", questID, ownerID).
			First(&share).Error; ferr == nil {
			return &share, nil
		}
		return nil, err
	}
	return &share, nil
}

// DisplayNames batch-resolves the identities of a set of shares,
// including revoked ones, for progress reads.
func (s *ShareService) DisplayNames(shares []models.Share) map[uint]string {
	userIDs := make([]uint, 0, len(shares))
	for _, sh := range shares {
		switch sh.Identity() {
		case models.IdentityInvitedUser:
			userIDs = append(userIDs, *sh.SharedWithUserID)
		case models.IdentityOwner:
			userIDs = append(userIDs, sh.CreatedByUserID)
		}
	}

	usernames := make(map[uint]string)
	if len(userIDs) > 0 {
		var users []models.User
		s.db.Where("id IN ?", userIDs).Find(&users)
		for _, u := range users {
			usernames[u.ID] = u.Username
		}
	}

	names := make(map[uint]string, len(shares))
	for _, sh := range shares {
		switch sh.Identity() {
		case models.IdentityGuest:
			names[sh.ID] = sh.GuestName
		case models.IdentityInvitedUser:
			names[sh.ID] = usernames[*sh.SharedWithUserID]
		default:
			names[sh.ID] = usernames[sh.CreatedByUserID]
		}
	}
	return names
}

// DisplayName resolves the human-readable identity a share's progress
// is attributed to.
func (s *ShareService) DisplayName(share *models.Share) string {
	switch share.Identity() {
	case models.IdentityGuest:
		return share.GuestName
	case models.IdentityInvitedUser:
		var user models.User
		if err := s.db.First(&user, *share.SharedWithUserID).Error; err == nil {
			return user.Username
		}
		return "invited user"
	default:
		var user models.User
		if err := s.db.First(&user, share.CreatedByUserID).Error; err == nil {
			return user.Username
		}
		return "owner"
	}
}
