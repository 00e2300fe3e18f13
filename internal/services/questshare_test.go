package services

import (
	"testing"

	"github.com/stevengranter/wilderquest-sub001/internal/apperrors"
	"github.com/stevengranter/wilderquest-sub001/internal/models"
	"github.com/stevengranter/wilderquest-sub001/internal/ws"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgressGatedByQuestStatus(t *testing.T) {
	for _, status := range []string{
		models.QuestStatusPending,
		models.QuestStatusPaused,
		models.QuestStatusEnded,
	} {
		status := status
		t.Run(status, func(t *testing.T) {
			env := newTestEnv(t)
			owner := env.user(t, "owner")
			quest := env.quest(t, owner.ID, models.QuestModeCooperative, status, 7)
			share := env.guestShare(t, quest.ID, owner.ID, "Alex")

			_, err := env.questShare.RecordShareProgress(share.Token, quest.Mappings[0].ID, true)
			require.Error(t, err)
			assert.Equal(t, apperrors.KindBadRequest, apperrors.KindOf(err))
		})
	}
}

func TestOwnerProgressCreatesPrimaryShareLazily(t *testing.T) {
	env := newTestEnv(t)
	owner := env.user(t, "owner")
	quest := env.quest(t, owner.ID, models.QuestModeCooperative, models.QuestStatusActive, 7)

	changed, err := env.questShare.RecordOwnerProgress(quest.ID, owner.ID, quest.Mappings[0].ID, true)
	require.NoError(t, err)
	require.True(t, changed)

	var shares []models.Share
	require.NoError(t, env.db.Where("quest_id = ?", quest.ID).Find(&shares).Error)
	require.Len(t, shares, 1)
	assert.True(t, shares[0].IsPrimary)
	assert.Equal(t, models.IdentityOwner, shares[0].Identity())

	// Second toggle reuses the same share rather than minting another.
	_, err = env.questShare.RecordOwnerProgress(quest.ID, owner.ID, quest.Mappings[0].ID, false)
	require.NoError(t, err)
	require.NoError(t, env.db.Where("quest_id = ?", quest.ID).Find(&shares).Error)
	assert.Len(t, shares, 1)
}

func TestOwnerProgressForbiddenForNonOwner(t *testing.T) {
	env := newTestEnv(t)
	owner := env.user(t, "owner")
	stranger := env.user(t, "stranger")
	quest := env.quest(t, owner.ID, models.QuestModeCooperative, models.QuestStatusActive, 7)

	_, err := env.questShare.RecordOwnerProgress(quest.ID, stranger.ID, quest.Mappings[0].ID, true)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindForbidden, apperrors.KindOf(err))
}

func TestFailedWriteDoesNotPublish(t *testing.T) {
	env := newTestEnv(t)
	owner := env.user(t, "owner")
	quest := env.quest(t, owner.ID, models.QuestModeCompetitive, models.QuestStatusActive, 7)
	alex := env.guestShare(t, quest.ID, owner.ID, "Alex")
	blair := env.guestShare(t, quest.ID, owner.ID, "Blair")
	mappingID := quest.Mappings[0].ID

	_, err := env.questShare.RecordShareProgress(alex.Token, mappingID, true)
	require.NoError(t, err)

	events := env.hub.Subscribe(quest.ID, "viewer")
	_, err = env.questShare.RecordShareProgress(blair.Token, mappingID, true)
	require.Error(t, err)
	assert.Empty(t, drain(events))
}

// Scenario: editing an active quest pauses it and notifies everyone.
func TestEditingActiveQuestAutoPauses(t *testing.T) {
	env := newTestEnv(t)
	owner := env.user(t, "owner")
	quest := env.quest(t, owner.ID, models.QuestModeCooperative, models.QuestStatusActive, 7)

	events := env.hub.Subscribe(quest.ID, "viewer")

	name := "renamed quest"
	updated, err := env.quests.UpdateQuest(quest.ID, owner.ID, UpdateQuestInput{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, models.QuestStatusPaused, updated.Status)
	assert.Equal(t, "renamed quest", updated.Name)

	got := drain(events)
	require.Len(t, got, 2)
	assert.Equal(t, ws.EventQuestStatusUpdated, got[0].Type)
	assert.Equal(t, ws.StatusUpdatedPayload{Status: models.QuestStatusPaused}, got[0].Payload)
	assert.Equal(t, ws.EventQuestEditingStarted, got[1].Type)
}

func TestEditingPausedQuestDoesNotNotify(t *testing.T) {
	env := newTestEnv(t)
	owner := env.user(t, "owner")
	quest := env.quest(t, owner.ID, models.QuestModeCooperative, models.QuestStatusPaused, 7)

	events := env.hub.Subscribe(quest.ID, "viewer")

	name := "quiet edit"
	updated, err := env.quests.UpdateQuest(quest.ID, owner.ID, UpdateQuestInput{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, models.QuestStatusPaused, updated.Status)
	assert.Empty(t, drain(events))
}

func TestEditingEndedQuestRejected(t *testing.T) {
	env := newTestEnv(t)
	owner := env.user(t, "owner")
	quest := env.quest(t, owner.ID, models.QuestModeCooperative, models.QuestStatusEnded)

	name := "too late"
	_, err := env.quests.UpdateQuest(quest.ID, owner.ID, UpdateQuestInput{Name: &name})
	require.Error(t, err)
	assert.Equal(t, apperrors.KindInvalidTransition, apperrors.KindOf(err))
}

func TestSpeciesListReplacedWholesale(t *testing.T) {
	env := newTestEnv(t)
	owner := env.user(t, "owner")
	quest := env.quest(t, owner.ID, models.QuestModeCooperative, models.QuestStatusPending, 7, 8)

	taxa := []int{8, 9, 10}
	updated, err := env.quests.UpdateQuest(quest.ID, owner.ID, UpdateQuestInput{TaxonIDs: &taxa})
	require.NoError(t, err)
	require.Len(t, updated.Mappings, 3)

	gotTaxa := make([]int, len(updated.Mappings))
	for i, m := range updated.Mappings {
		gotTaxa[i] = m.TaxonID
	}
	assert.ElementsMatch(t, taxa, gotTaxa)

	var count int64
	env.db.Model(&models.TaxonMapping{}).Where("quest_id = ?", quest.ID).Count(&count)
	assert.EqualValues(t, 3, count)
}

func TestSpeciesListReplaceClearsProgress(t *testing.T) {
	env := newTestEnv(t)
	owner := env.user(t, "owner")
	quest := env.quest(t, owner.ID, models.QuestModeCooperative, models.QuestStatusActive, 7)
	share := env.guestShare(t, quest.ID, owner.ID, "Alex")

	changed, err := env.questShare.RecordShareProgress(share.Token, quest.Mappings[0].ID, true)
	require.NoError(t, err)
	require.True(t, changed)

	taxa := []int{8, 9}
	updated, err := env.quests.UpdateQuest(quest.ID, owner.ID, UpdateQuestInput{TaxonIDs: &taxa})
	require.NoError(t, err)
	require.Len(t, updated.Mappings, 2)

	// No read path may surface entries for mappings that no longer exist.
	agg, err := env.progress.GetAggregatedProgress(quest.ID)
	require.NoError(t, err)
	assert.Empty(t, agg)

	details, err := env.progress.GetDetailedProgress(quest.ID)
	require.NoError(t, err)
	assert.Empty(t, details)

	board, err := env.progress.GetLeaderboard(quest.ID)
	require.NoError(t, err)
	assert.Empty(t, board)
}

func TestPrivateQuestReadsForbidden(t *testing.T) {
	env := newTestEnv(t)
	owner := env.user(t, "owner")
	stranger := env.user(t, "stranger")
	quest := models.Quest{UserID: owner.ID, Name: "secret", Mode: models.QuestModeCooperative,
		Status: models.QuestStatusActive, IsPrivate: true}
	require.NoError(t, env.db.Create(&quest).Error)

	_, err := env.questShare.Aggregated(quest.ID, stranger.ID)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindForbidden, apperrors.KindOf(err))

	_, err = env.questShare.Leaderboard(quest.ID, owner.ID)
	require.NoError(t, err)
}

func TestTokenReadPathsWork(t *testing.T) {
	env := newTestEnv(t)
	owner := env.user(t, "owner")
	quest := env.quest(t, owner.ID, models.QuestModeCooperative, models.QuestStatusActive, 7)
	share := env.guestShare(t, quest.ID, owner.ID, "Alex")

	_, err := env.questShare.RecordShareProgress(share.Token, quest.Mappings[0].ID, true)
	require.NoError(t, err)

	agg, err := env.questShare.AggregatedForToken(share.Token)
	require.NoError(t, err)
	require.Len(t, agg, 1)

	board, err := env.questShare.LeaderboardForToken(share.Token)
	require.NoError(t, err)
	require.Len(t, board, 1)
	assert.Equal(t, "Alex", board[0].DisplayName)
}
