package services

import (
	"errors"
	"sort"
	"time"

	"github.com/stevengranter/wilderquest-sub001/internal/apperrors"
	"github.com/stevengranter/wilderquest-sub001/internal/models"
	"github.com/stevengranter/wilderquest-sub001/internal/ws"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProgressService is the ledger of "found" claims. It owns the
// competitive-mode race guard: across all shares of a competitive
// quest, at most one active entry may exist per mapping, enforced by a
// locked check-and-insert rather than an unguarded check.
type ProgressService struct {
	db     *gorm.DB
	hub    *ws.Broadcaster
	shares *ShareService
}

func NewProgressService(db *gorm.DB, hub *ws.Broadcaster, shares *ShareService) *ProgressService {
	return &ProgressService{db: db, hub: hub, shares: shares}
}

type AggregatedProgress struct {
	MappingID       uint      `json:"mapping_id"`
	Count           int       `json:"count"`
	LastObservedAt  time.Time `json:"last_observed_at"`
	LastDisplayName string    `json:"last_display_name"`
}

type ProgressDetail struct {
	MappingID   uint      `json:"mapping_id"`
	ShareID     uint      `json:"share_id"`
	DisplayName string    `json:"display_name"`
	ObservedAt  time.Time `json:"observed_at"`
}

type LeaderboardEntry struct {
	DisplayName      string `json:"display_name"`
	ObservationCount int    `json:"observation_count"`
}

// SetObserved toggles one share's claim on one mapping. Duplicate found
// claims and redundant unfound claims are no-ops, not errors. Returns
// whether the ledger changed; a change publishes exactly one
// SPECIES_FOUND / SPECIES_UNFOUND event.
func (s *ProgressService) SetObserved(share *models.Share, quest *models.Quest, mappingID uint, observed bool) (bool, error) {
	var mapping models.TaxonMapping
	if err := s.db.First(&mapping, mappingID).Error; err != nil {
		return false, apperrors.NotFound("mapping %d not found", mappingID)
	}
	if mapping.QuestID != quest.ID || share.QuestID != quest.ID {
		return false, apperrors.BadRequest("mapping %d does not belong to quest %d", mappingID, quest.ID)
	}

	if !observed {
		res := s.db.Where("share_id = ? AND mapping_id = ?", share.ID, mappingID).
			Delete(&models.ProgressEntry{})
		if res.Error != nil {
			return false, res.Error
		}
		if res.RowsAffected == 0 {
			return false, nil
		}
		s.hub.Publish(quest.ID, ws.SpeciesUnfound(mappingID, s.shares.DisplayName(share)))
		return true, nil
	}

	var existing models.ProgressEntry
	if err := s.db.Where("share_id = ? AND mapping_id = ?", share.ID, mappingID).
		First(&existing).Error; err == nil {
		return false, nil
	}

	if quest.Mode == models.QuestModeCompetitive {
		// Lock the mapping row so concurrent claims of the same taxon
		// serialize; the loser sees the winner's committed entry. The
		// sqlite dialect drops the locking clause but runs writers one
		// at a time anyway.
		alreadyOwn := false
		err := s.db.Transaction(func(tx *gorm.DB) error {
			var locked models.TaxonMapping
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				First(&locked, mappingID).Error; err != nil {
				return err
			}

			var taken models.ProgressEntry
			err := tx.Where("quest_id = ? AND mapping_id = ?", quest.ID, mappingID).
				First(&taken).Error
			if err == nil {
				if taken.ShareID == share.ID {
					// Our own claim raced in via a parallel request;
					// that stays an idempotent no-op.
					alreadyOwn = true
					return nil
				}
				return apperrors.Conflict("already found by another participant")
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}

			return tx.Create(&models.ProgressEntry{
				QuestID:    quest.ID,
				ShareID:    share.ID,
				MappingID:  mappingID,
				ObservedAt: time.Now(),
			}).Error
		})
		if err != nil {
			return false, err
		}
		if alreadyOwn {
			return false, nil
		}
	} else {
		entry := models.ProgressEntry{
			QuestID:    quest.ID,
			ShareID:    share.ID,
			MappingID:  mappingID,
			ObservedAt: time.Now(),
		}
		res := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&entry)
		if res.Error != nil {
			return false, res.Error
		}
		if res.RowsAffected == 0 {
			return false, nil
		}
	}

	s.hub.Publish(quest.ID, ws.SpeciesFound(mappingID, s.shares.DisplayName(share)))
	return true, nil
}

// GetDetailedProgress returns every active entry for a quest with its
// finder's display name, oldest first. Revoked shares still resolve.
func (s *ProgressService) GetDetailedProgress(questID uint) ([]ProgressDetail, error) {
	var entries []models.ProgressEntry
	if err := s.db.Where("quest_id = ?", questID).
		Order("observed_at ASC").Find(&entries).Error; err != nil {
		return nil, err
	}

	var shares []models.Share
	if err := s.db.Unscoped().Where("quest_id = ?", questID).Find(&shares).Error; err != nil {
		return nil, err
	}
	names := s.shares.DisplayNames(shares)

	details := make([]ProgressDetail, len(entries))
	for i, e := range entries {
		details[i] = ProgressDetail{
			MappingID:   e.MappingID,
			ShareID:     e.ShareID,
			DisplayName: names[e.ShareID],
			ObservedAt:  e.ObservedAt,
		}
	}
	return details, nil
}

// GetAggregatedProgress folds the detailed view down to one row per
// mapping: entry count plus who observed it last and when.
func (s *ProgressService) GetAggregatedProgress(questID uint) ([]AggregatedProgress, error) {
	details, err := s.GetDetailedProgress(questID)
	if err != nil {
		return nil, err
	}

	byMapping := make(map[uint]*AggregatedProgress)
	order := make([]uint, 0)
	for _, d := range details {
		agg, ok := byMapping[d.MappingID]
		if !ok {
			agg = &AggregatedProgress{MappingID: d.MappingID}
			byMapping[d.MappingID] = agg
			order = append(order, d.MappingID)
		}
		agg.Count++
		if !d.ObservedAt.Before(agg.LastObservedAt) {
			agg.LastObservedAt = d.ObservedAt
			agg.LastDisplayName = d.DisplayName
		}
	}

	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })
	result := make([]AggregatedProgress, len(order))
	for i, id := range order {
		result[i] = *byMapping[id]
	}
	return result, nil
}

// GetLeaderboard tallies distinct taxa found per display name,
// descending. Cooperative mode counts every participant who found each
// taxon; competitive mode has one finder per taxon by construction.
func (s *ProgressService) GetLeaderboard(questID uint) ([]LeaderboardEntry, error) {
	details, err := s.GetDetailedProgress(questID)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]map[uint]bool)
	for _, d := range details {
		if counts[d.DisplayName] == nil {
			counts[d.DisplayName] = make(map[uint]bool)
		}
		counts[d.DisplayName][d.MappingID] = true
	}

	entries := make([]LeaderboardEntry, 0, len(counts))
	for name, mappings := range counts {
		entries = append(entries, LeaderboardEntry{DisplayName: name, ObservationCount: len(mappings)})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].ObservationCount != entries[j].ObservationCount {
			return entries[i].ObservationCount > entries[j].ObservationCount
		}
		return entries[i].DisplayName < entries[j].DisplayName
	})
	return entries, nil
}
