package services

import (
	"time"

	"github.com/stevengranter/wilderquest-sub001/internal/apperrors"
	"github.com/stevengranter/wilderquest-sub001/internal/models"
	"github.com/stevengranter/wilderquest-sub001/internal/ws"

	"gorm.io/gorm"
)

type QuestService struct {
	db        *gorm.DB
	lifecycle *LifecycleService
	hub       *ws.Broadcaster
}

func NewQuestService(db *gorm.DB, lifecycle *LifecycleService, hub *ws.Broadcaster) *QuestService {
	return &QuestService{db: db, lifecycle: lifecycle, hub: hub}
}

type CreateQuestInput struct {
	Name      string     `json:"name" binding:"required"`
	Mode      string     `json:"mode,omitempty"`
	StartsAt  *time.Time `json:"starts_at,omitempty"`
	EndsAt    *time.Time `json:"ends_at,omitempty"`
	IsPrivate bool       `json:"is_private,omitempty"`
	TaxonIDs  []int      `json:"taxon_ids,omitempty"`
}

type UpdateQuestInput struct {
	Name      *string    `json:"name,omitempty"`
	StartsAt  *time.Time `json:"starts_at,omitempty"`
	EndsAt    *time.Time `json:"ends_at,omitempty"`
	IsPrivate *bool      `json:"is_private,omitempty"`
	TaxonIDs  *[]int     `json:"taxon_ids,omitempty"`
}

func (s *QuestService) CreateQuest(ownerID uint, in CreateQuestInput) (*models.Quest, error) {
	mode := in.Mode
	if mode == "" {
		mode = models.QuestModeCooperative
	}
	if mode != models.QuestModeCooperative && mode != models.QuestModeCompetitive {
		return nil, apperrors.BadRequest("unknown quest mode %q", mode)
	}

	quest := models.Quest{
		UserID:    ownerID,
		Name:      in.Name,
		Status:    models.QuestStatusPending,
		Mode:      mode,
		StartsAt:  in.StartsAt,
		EndsAt:    in.EndsAt,
		IsPrivate: in.IsPrivate,
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&quest).Error; err != nil {
			return err
		}
		for _, taxonID := range in.TaxonIDs {
			if err := tx.Create(&models.TaxonMapping{QuestID: quest.ID, TaxonID: taxonID}).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.db.Preload("Mappings").First(&quest, quest.ID)
	return &quest, nil
}

func (s *QuestService) ListQuests(ownerID uint) ([]models.Quest, error) {
	var quests []models.Quest
	if err := s.db.Where("user_id = ?", ownerID).
		Preload("Mappings").
		Order("created_at DESC").
		Find(&quests).Error; err != nil {
		return nil, err
	}
	return quests, nil
}

func (s *QuestService) GetQuest(questID, requestorID uint) (*models.Quest, error) {
	var quest models.Quest
	if err := s.db.Preload("Mappings").First(&quest, questID).Error; err != nil {
		return nil, apperrors.NotFound("quest %d not found", questID)
	}
	if quest.IsPrivate && quest.UserID != requestorID {
		return nil, apperrors.Forbidden("quest is private")
	}
	return &quest, nil
}

// UpdateQuest edits a quest's name, window, privacy, or species list.
// Starting an edit on an active quest auto-pauses it: subscribers get
// the QUEST_STATUS_UPDATED from the transition plus a
// QUEST_EDITING_STARTED notice. The species list is replaced wholesale,
// never partially patched, and recorded progress is cleared with it.
func (s *QuestService) UpdateQuest(questID, ownerID uint, in UpdateQuestInput) (*models.Quest, error) {
	var quest models.Quest
	if err := s.db.First(&quest, questID).Error; err != nil {
		return nil, apperrors.NotFound("quest %d not found", questID)
	}
	if quest.UserID != ownerID {
		return nil, apperrors.Forbidden("only the quest owner can edit it")
	}
	if quest.Status == models.QuestStatusEnded {
		return nil, apperrors.InvalidTransition("cannot edit an ended quest")
	}

	if quest.Status == models.QuestStatusActive {
		paused, err := s.lifecycle.RequestTransition(questID, ownerID, models.QuestStatusPaused)
		if err != nil {
			return nil, err
		}
		quest = *paused
		s.hub.Publish(quest.ID, ws.QuestEditingStarted("the quest owner started editing; quest paused"))
	}

	if in.Name != nil {
		quest.Name = *in.Name
	}
	if in.StartsAt != nil {
		quest.StartsAt = in.StartsAt
	}
	if in.EndsAt != nil {
		quest.EndsAt = in.EndsAt
	}
	if in.IsPrivate != nil {
		quest.IsPrivate = *in.IsPrivate
	}
	if err := s.db.Save(&quest).Error; err != nil {
		return nil, err
	}

	if in.TaxonIDs != nil {
		// Replaced mappings take their progress entries with them.
		err := s.db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Where("quest_id = ?", questID).Delete(&models.ProgressEntry{}).Error; err != nil {
				return err
			}
			if err := tx.Where("quest_id = ?", questID).Delete(&models.TaxonMapping{}).Error; err != nil {
				return err
			}
			for _, taxonID := range *in.TaxonIDs {
				if err := tx.Create(&models.TaxonMapping{QuestID: questID, TaxonID: taxonID}).Error; err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	s.db.Preload("Mappings").First(&quest, questID)
	return &quest, nil
}
