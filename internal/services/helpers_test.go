package services

import (
	"testing"

	"github.com/stevengranter/wilderquest-sub001/internal/database"
	"github.com/stevengranter/wilderquest-sub001/internal/models"
	"github.com/stevengranter/wilderquest-sub001/internal/ws"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type testEnv struct {
	db         *gorm.DB
	hub        *ws.Broadcaster
	lifecycle  *LifecycleService
	shares     *ShareService
	progress   *ProgressService
	quests     *QuestService
	questShare *QuestShareService
}

// newTestEnv wires the full service graph over an in-memory sqlite
// database. The pool is capped at one connection so every goroutine
// sees the same in-memory database.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.Migrate(db))

	hub := ws.NewBroadcaster()
	lifecycle := NewLifecycleService(db, hub)
	shares := NewShareService(db)
	progress := NewProgressService(db, hub, shares)
	quests := NewQuestService(db, lifecycle, hub)
	questShare := NewQuestShareService(db, lifecycle, shares, progress)

	return &testEnv{
		db:         db,
		hub:        hub,
		lifecycle:  lifecycle,
		shares:     shares,
		progress:   progress,
		quests:     quests,
		questShare: questShare,
	}
}

func (e *testEnv) user(t *testing.T, name string) models.User {
	t.Helper()
	u := models.User{Username: name, PasswordHash: "x"}
	require.NoError(t, e.db.Create(&u).Error)
	return u
}

func (e *testEnv) quest(t *testing.T, ownerID uint, mode, status string, taxonIDs ...int) models.Quest {
	t.Helper()
	q := models.Quest{UserID: ownerID, Name: "field day", Mode: mode, Status: status}
	require.NoError(t, e.db.Create(&q).Error)
	for _, id := range taxonIDs {
		require.NoError(t, e.db.Create(&models.TaxonMapping{QuestID: q.ID, TaxonID: id}).Error)
	}
	require.NoError(t, e.db.Preload("Mappings").First(&q, q.ID).Error)
	return q
}

func (e *testEnv) guestShare(t *testing.T, questID, ownerID uint, guestName string) models.Share {
	t.Helper()
	share, err := e.shares.CreateShare(questID, ownerID, CreateShareInput{GuestName: guestName})
	require.NoError(t, err)
	return *share
}

// drain empties a subscription channel of everything published so far.
func drain(ch <-chan ws.Event) []ws.Event {
	var out []ws.Event
	for {
		select {
		case e := <-ch:
			out = append(out, e)
		default:
			return out
		}
	}
}
