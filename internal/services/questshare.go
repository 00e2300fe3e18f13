package services

import (
	"github.com/stevengranter/wilderquest-sub001/internal/apperrors"
	"github.com/stevengranter/wilderquest-sub001/internal/models"

	"gorm.io/gorm"
)

// QuestShareService orchestrates progress recording: authorization,
// then the lifecycle gate, then the ledger write. It holds no state of
// its own; it exists so every progress mutation passes through gating
// and ends in exactly one publish on success, zero on failure (the
// ledger publishes only when a write actually changes the ledger).
type QuestShareService struct {
	db        *gorm.DB
	lifecycle *LifecycleService
	shares    *ShareService
	progress  *ProgressService
}

func NewQuestShareService(db *gorm.DB, lifecycle *LifecycleService, shares *ShareService, progress *ProgressService) *QuestShareService {
	return &QuestShareService{db: db, lifecycle: lifecycle, shares: shares, progress: progress}
}

func (q *QuestShareService) loadQuest(questID uint) (*models.Quest, error) {
	var quest models.Quest
	if err := q.db.First(&quest, questID).Error; err != nil {
		return nil, apperrors.NotFound("quest %d not found", questID)
	}
	return &quest, nil
}

// RecordShareProgress applies a guest's found/unfound toggle through
// their share token.
func (q *QuestShareService) RecordShareProgress(token string, mappingID uint, observed bool) (bool, error) {
	share, err := q.shares.ResolveActiveShare(token)
	if err != nil {
		return false, err
	}
	quest, err := q.loadQuest(share.QuestID)
	if err != nil {
		return false, err
	}
	if !q.lifecycle.AllowsProgress(quest.Status) {
		return false, apperrors.BadRequest("quest is not active")
	}
	return q.progress.SetObserved(share, quest, mappingID, observed)
}

// RecordOwnerProgress applies the owner's own toggle, attributing it to
// the lazily-created primary share.
func (q *QuestShareService) RecordOwnerProgress(questID, ownerID, mappingID uint, observed bool) (bool, error) {
	quest, err := q.loadQuest(questID)
	if err != nil {
		return false, err
	}
	if quest.UserID != ownerID {
		return false, apperrors.Forbidden("only the quest owner can record progress without a share")
	}
	if !q.lifecycle.AllowsProgress(quest.Status) {
		return false, apperrors.BadRequest("quest is not active")
	}
	share, err := q.shares.ResolveOrCreatePrimaryShare(questID, ownerID)
	if err != nil {
		return false, err
	}
	return q.progress.SetObserved(share, quest, mappingID, observed)
}

func (q *QuestShareService) checkReadable(questID, requestorID uint) error {
	quest, err := q.loadQuest(questID)
	if err != nil {
		return err
	}
	if quest.IsPrivate && quest.UserID != requestorID {
		return apperrors.Forbidden("quest is private")
	}
	return nil
}

func (q *QuestShareService) Aggregated(questID, requestorID uint) ([]AggregatedProgress, error) {
	if err := q.checkReadable(questID, requestorID); err != nil {
		return nil, err
	}
	return q.progress.GetAggregatedProgress(questID)
}

func (q *QuestShareService) Detailed(questID, requestorID uint) ([]ProgressDetail, error) {
	if err := q.checkReadable(questID, requestorID); err != nil {
		return nil, err
	}
	return q.progress.GetDetailedProgress(questID)
}

func (q *QuestShareService) Leaderboard(questID, requestorID uint) ([]LeaderboardEntry, error) {
	if err := q.checkReadable(questID, requestorID); err != nil {
		return nil, err
	}
	return q.progress.GetLeaderboard(questID)
}

// AggregatedForToken is the guest read path: a valid share token grants
// the aggregate view of its quest regardless of privacy.
func (q *QuestShareService) AggregatedForToken(token string) ([]AggregatedProgress, error) {
	share, err := q.shares.ResolveActiveShare(token)
	if err != nil {
		return nil, err
	}
	return q.progress.GetAggregatedProgress(share.QuestID)
}

// LeaderboardForToken mirrors AggregatedForToken for the leaderboard.
func (q *QuestShareService) LeaderboardForToken(token string) ([]LeaderboardEntry, error) {
	share, err := q.shares.ResolveActiveShare(token)
	if err != nil {
		return nil, err
	}
	return q.progress.GetLeaderboard(share.QuestID)
}
