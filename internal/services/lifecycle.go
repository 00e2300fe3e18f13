package services

import (
	"github.com/stevengranter/wilderquest-sub001/internal/apperrors"
	"github.com/stevengranter/wilderquest-sub001/internal/models"
	"github.com/stevengranter/wilderquest-sub001/internal/ws"

	"gorm.io/gorm"
)

// LifecycleService owns the quest status state machine. Every status
// write in the system goes through RequestTransition so the transition
// table and the status-updated fanout can't drift apart.
type LifecycleService struct {
	db  *gorm.DB
	hub *ws.Broadcaster
}

func NewLifecycleService(db *gorm.DB, hub *ws.Broadcaster) *LifecycleService {
	return &LifecycleService{db: db, hub: hub}
}

// questTransitions lists the reachable targets per current status.
// ended is terminal. pending -> ended is allowed so an owner can close
// a quest that never started.
var questTransitions = map[string][]string{
	models.QuestStatusPending: {models.QuestStatusActive, models.QuestStatusEnded},
	models.QuestStatusActive:  {models.QuestStatusPaused, models.QuestStatusEnded},
	models.QuestStatusPaused:  {models.QuestStatusActive, models.QuestStatusEnded},
	models.QuestStatusEnded:   {},
}

func validStatus(status string) bool {
	_, ok := questTransitions[status]
	return ok
}

// CanTransition reports whether target is reachable from current.
// No-op transitions (target == current) are rejected rather than
// silently accepted, to surface client bugs early.
func (s *LifecycleService) CanTransition(current, target string) bool {
	for _, t := range questTransitions[current] {
		if t == target {
			return true
		}
	}
	return false
}

// AllowsProgress is the gate the progress ledger consumes: finds are
// only recorded while a quest is active.
func (s *LifecycleService) AllowsProgress(status string) bool {
	return status == models.QuestStatusActive
}

// RequestTransition moves a quest to target on behalf of requestorID.
// A successful transition always publishes QUEST_STATUS_UPDATED; every
// subscriber depends on that event to stay consistent.
func (s *LifecycleService) RequestTransition(questID, requestorID uint, target string) (*models.Quest, error) {
	if !validStatus(target) {
		return nil, apperrors.BadRequest("unknown status %q", target)
	}

	var quest models.Quest
	if err := s.db.First(&quest, questID).Error; err != nil {
		return nil, apperrors.NotFound("quest %d not found", questID)
	}
	if quest.UserID != requestorID {
		return nil, apperrors.Forbidden("only the quest owner can change its status")
	}
	if !s.CanTransition(quest.Status, target) {
		return nil, apperrors.InvalidTransition("cannot transition quest from %s to %s", quest.Status, target)
	}

	quest.Status = target
	if err := s.db.Save(&quest).Error; err != nil {
		return nil, err
	}

	s.hub.Publish(quest.ID, ws.QuestStatusUpdated(target))
	return &quest, nil
}
