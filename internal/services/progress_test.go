package services

import (
	"sync"
	"testing"
	"time"

	"github.com/stevengranter/wilderquest-sub001/internal/apperrors"
	"github.com/stevengranter/wilderquest-sub001/internal/models"
	"github.com/stevengranter/wilderquest-sub001/internal/ws"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Scenario: cooperative quest, guest and owner both claim the same
// taxon, aggregate counts both.
func TestCooperativeAggregateCountsEveryFinder(t *testing.T) {
	env := newTestEnv(t)
	owner := env.user(t, "owner")
	quest := env.quest(t, owner.ID, models.QuestModeCooperative, models.QuestStatusActive, 7)
	share := env.guestShare(t, quest.ID, owner.ID, "Alex")
	mappingID := quest.Mappings[0].ID

	changed, err := env.questShare.RecordShareProgress(share.Token, mappingID, true)
	require.NoError(t, err)
	require.True(t, changed)

	agg, err := env.progress.GetAggregatedProgress(quest.ID)
	require.NoError(t, err)
	require.Len(t, agg, 1)
	assert.Equal(t, mappingID, agg[0].MappingID)
	assert.Equal(t, 1, agg[0].Count)

	changed, err = env.questShare.RecordOwnerProgress(quest.ID, owner.ID, mappingID, true)
	require.NoError(t, err)
	require.True(t, changed)

	agg, err = env.progress.GetAggregatedProgress(quest.ID)
	require.NoError(t, err)
	require.Len(t, agg, 1)
	assert.Equal(t, 2, agg[0].Count)
}

// Scenario: competitive quest, second claim on a taken taxon conflicts
// and the aggregate stays attributed to the first finder.
func TestCompetitiveSecondClaimConflicts(t *testing.T) {
	env := newTestEnv(t)
	owner := env.user(t, "owner")
	quest := env.quest(t, owner.ID, models.QuestModeCompetitive, models.QuestStatusActive, 7)
	share := env.guestShare(t, quest.ID, owner.ID, "Alex")
	mappingID := quest.Mappings[0].ID

	changed, err := env.questShare.RecordShareProgress(share.Token, mappingID, true)
	require.NoError(t, err)
	require.True(t, changed)

	_, err = env.questShare.RecordOwnerProgress(quest.ID, owner.ID, mappingID, true)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindConflict, apperrors.KindOf(err))

	agg, err := env.progress.GetAggregatedProgress(quest.ID)
	require.NoError(t, err)
	require.Len(t, agg, 1)
	assert.Equal(t, 1, agg[0].Count)
	assert.Equal(t, "Alex", agg[0].LastDisplayName)
}

func TestCompetitiveConcurrentClaims(t *testing.T) {
	env := newTestEnv(t)
	owner := env.user(t, "owner")
	quest := env.quest(t, owner.ID, models.QuestModeCompetitive, models.QuestStatusActive, 7)
	mappingID := quest.Mappings[0].ID

	const racers = 8
	tokens := make([]string, racers)
	for i := 0; i < racers; i++ {
		share := env.guestShare(t, quest.ID, owner.ID, "guest"+string(rune('a'+i)))
		tokens[i] = share.Token
	}

	results := make([]error, racers)
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = env.questShare.RecordShareProgress(tokens[i], mappingID, true)
		}(i)
	}
	wg.Wait()

	successes, conflicts := 0, 0
	for _, err := range results {
		switch {
		case err == nil:
			successes++
		case apperrors.KindOf(err) == apperrors.KindConflict:
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, racers-1, conflicts)

	var count int64
	env.db.Model(&models.ProgressEntry{}).
		Where("quest_id = ? AND mapping_id = ?", quest.ID, mappingID).
		Count(&count)
	assert.EqualValues(t, 1, count)
}

func TestFoundTwiceIsNoOp(t *testing.T) {
	env := newTestEnv(t)
	owner := env.user(t, "owner")
	quest := env.quest(t, owner.ID, models.QuestModeCooperative, models.QuestStatusActive, 7)
	share := env.guestShare(t, quest.ID, owner.ID, "Alex")
	mappingID := quest.Mappings[0].ID

	events := env.hub.Subscribe(quest.ID, "viewer")

	changed, err := env.questShare.RecordShareProgress(share.Token, mappingID, true)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = env.questShare.RecordShareProgress(share.Token, mappingID, true)
	require.NoError(t, err)
	assert.False(t, changed)

	var count int64
	env.db.Model(&models.ProgressEntry{}).Where("share_id = ?", share.ID).Count(&count)
	assert.EqualValues(t, 1, count)

	got := drain(events)
	require.Len(t, got, 1)
	assert.Equal(t, ws.EventSpeciesFound, got[0].Type)
	assert.Equal(t, ws.SpeciesPayload{MappingID: mappingID, GuestName: "Alex"}, got[0].Payload)
}

func TestUnfoundAbsentEntryIsNoOp(t *testing.T) {
	env := newTestEnv(t)
	owner := env.user(t, "owner")
	quest := env.quest(t, owner.ID, models.QuestModeCooperative, models.QuestStatusActive, 7)
	share := env.guestShare(t, quest.ID, owner.ID, "Alex")
	mappingID := quest.Mappings[0].ID

	events := env.hub.Subscribe(quest.ID, "viewer")

	changed, err := env.questShare.RecordShareProgress(share.Token, mappingID, false)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Empty(t, drain(events))
}

func TestUnfoundRemovesEntryAndPublishes(t *testing.T) {
	env := newTestEnv(t)
	owner := env.user(t, "owner")
	quest := env.quest(t, owner.ID, models.QuestModeCooperative, models.QuestStatusActive, 7)
	share := env.guestShare(t, quest.ID, owner.ID, "Alex")
	mappingID := quest.Mappings[0].ID

	_, err := env.questShare.RecordShareProgress(share.Token, mappingID, true)
	require.NoError(t, err)

	events := env.hub.Subscribe(quest.ID, "viewer")

	changed, err := env.questShare.RecordShareProgress(share.Token, mappingID, false)
	require.NoError(t, err)
	assert.True(t, changed)

	got := drain(events)
	require.Len(t, got, 1)
	assert.Equal(t, ws.EventSpeciesUnfound, got[0].Type)

	agg, err := env.progress.GetAggregatedProgress(quest.ID)
	require.NoError(t, err)
	assert.Empty(t, agg)
}

func TestMappingFromAnotherQuestRejected(t *testing.T) {
	env := newTestEnv(t)
	owner := env.user(t, "owner")
	quest := env.quest(t, owner.ID, models.QuestModeCooperative, models.QuestStatusActive, 7)
	other := env.quest(t, owner.ID, models.QuestModeCooperative, models.QuestStatusActive, 8)
	share := env.guestShare(t, quest.ID, owner.ID, "Alex")

	_, err := env.questShare.RecordShareProgress(share.Token, other.Mappings[0].ID, true)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindBadRequest, apperrors.KindOf(err))
}

func TestUnknownMappingRejected(t *testing.T) {
	env := newTestEnv(t)
	owner := env.user(t, "owner")
	quest := env.quest(t, owner.ID, models.QuestModeCooperative, models.QuestStatusActive, 7)
	share := env.guestShare(t, quest.ID, owner.ID, "Alex")

	_, err := env.questShare.RecordShareProgress(share.Token, 999, true)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
}

func TestExpiredShareRejectsWritesButKeepsHistory(t *testing.T) {
	env := newTestEnv(t)
	owner := env.user(t, "owner")
	quest := env.quest(t, owner.ID, models.QuestModeCooperative, models.QuestStatusActive, 7, 8)
	share := env.guestShare(t, quest.ID, owner.ID, "Alex")

	_, err := env.questShare.RecordShareProgress(share.Token, quest.Mappings[0].ID, true)
	require.NoError(t, err)

	past := time.Now().Add(-time.Minute)
	require.NoError(t, env.db.Model(&models.Share{}).Where("id = ?", share.ID).
		Update("expires_at", past).Error)

	_, err = env.questShare.RecordShareProgress(share.Token, quest.Mappings[1].ID, true)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindExpired, apperrors.KindOf(err))

	agg, err := env.progress.GetAggregatedProgress(quest.ID)
	require.NoError(t, err)
	require.Len(t, agg, 1)
	assert.Equal(t, 1, agg[0].Count)
}

func TestLeaderboardOrdersByDistinctTaxa(t *testing.T) {
	env := newTestEnv(t)
	owner := env.user(t, "owner")
	quest := env.quest(t, owner.ID, models.QuestModeCooperative, models.QuestStatusActive, 7, 8, 9)
	alex := env.guestShare(t, quest.ID, owner.ID, "Alex")
	blair := env.guestShare(t, quest.ID, owner.ID, "Blair")

	for _, m := range quest.Mappings[:2] {
		_, err := env.questShare.RecordShareProgress(alex.Token, m.ID, true)
		require.NoError(t, err)
	}
	_, err := env.questShare.RecordShareProgress(blair.Token, quest.Mappings[2].ID, true)
	require.NoError(t, err)

	board, err := env.progress.GetLeaderboard(quest.ID)
	require.NoError(t, err)
	require.Len(t, board, 2)
	assert.Equal(t, LeaderboardEntry{DisplayName: "Alex", ObservationCount: 2}, board[0])
	assert.Equal(t, LeaderboardEntry{DisplayName: "Blair", ObservationCount: 1}, board[1])
}

func TestDetailedProgressResolvesDisplayNames(t *testing.T) {
	env := newTestEnv(t)
	owner := env.user(t, "owner")
	friend := env.user(t, "friend")
	quest := env.quest(t, owner.ID, models.QuestModeCooperative, models.QuestStatusActive, 7)
	mappingID := quest.Mappings[0].ID

	invited, err := env.shares.CreateShare(quest.ID, owner.ID, CreateShareInput{InvitedUserID: &friend.ID})
	require.NoError(t, err)

	_, err = env.questShare.RecordShareProgress(invited.Token, mappingID, true)
	require.NoError(t, err)
	_, err = env.questShare.RecordOwnerProgress(quest.ID, owner.ID, mappingID, true)
	require.NoError(t, err)

	details, err := env.progress.GetDetailedProgress(quest.ID)
	require.NoError(t, err)
	require.Len(t, details, 2)

	names := []string{details[0].DisplayName, details[1].DisplayName}
	assert.ElementsMatch(t, []string{"friend", "owner"}, names)
}
