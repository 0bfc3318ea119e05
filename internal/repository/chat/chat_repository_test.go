package chat

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/iyunix/go-pdfchat/internal/database"
	"github.com/iyunix/go-pdfchat/internal/domain"
)

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Warn(string, ...interface{})  {}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open(database.Config{
		Driver: database.DriverSQLite,
		DSN:    "file:" + uuid.NewString() + "?mode=memory&cache=shared",
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func newTestRepo(t *testing.T) (*gormChatRepository, *gorm.DB) {
	db := newTestDB(t)
	return NewChatRepository(db, nopLogger{}).(*gormChatRepository), db
}

func TestCreateThenListIncludesChat(t *testing.T) {
	req := require.New(t)
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	created, err := repo.Create(ctx, "user-1", "Quarterly report")
	req.NoError(err)
	req.NotEmpty(created.ID)
	req.Equal(created.CreatedAt, created.LastUpdatedAt)

	chats, err := repo.ListByUser(ctx, "user-1")
	req.NoError(err)
	req.Len(chats, 1)
	req.Equal(created.ID, chats[0].ID)
	req.Equal("Quarterly report", chats[0].Title)
}

func TestCreateRejectsEmptyTitle(t *testing.T) {
	repo, _ := newTestRepo(t)

	_, err := repo.Create(context.Background(), "user-1", "   ")
	require.ErrorIs(t, err, ErrInvalidTitle)
}

func TestListByUserOrdersByRecencyAndScopesByOwner(t *testing.T) {
	req := require.New(t)
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	repo.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}

	first, err := repo.Create(ctx, "user-1", "first")
	req.NoError(err)
	second, err := repo.Create(ctx, "user-1", "second")
	req.NoError(err)
	_, err = repo.Create(ctx, "user-2", "someone else")
	req.NoError(err)

	chats, err := repo.ListByUser(ctx, "user-1")
	req.NoError(err)
	req.Len(chats, 2)
	req.Equal(second.ID, chats[0].ID)
	req.Equal(first.ID, chats[1].ID)

	req.NoError(repo.TouchUpdatedAt(ctx, "user-1", first.ID, base.Add(time.Hour)))

	chats, err = repo.ListByUser(ctx, "user-1")
	req.NoError(err)
	req.Equal(first.ID, chats[0].ID)
	req.Equal(second.ID, chats[1].ID)
}

func TestListByUserEmpty(t *testing.T) {
	req := require.New(t)
	repo, _ := newTestRepo(t)

	chats, err := repo.ListByUser(context.Background(), "nobody")
	req.NoError(err)
	req.NotNil(chats)
	req.Empty(chats)
}

func TestFindByIDIsScopedToOwner(t *testing.T) {
	req := require.New(t)
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	created, err := repo.Create(ctx, "user-1", "private")
	req.NoError(err)

	found, err := repo.FindByID(ctx, "user-1", created.ID)
	req.NoError(err)
	req.Equal("private", found.Title)

	_, err = repo.FindByID(ctx, "user-2", created.ID)
	req.ErrorIs(err, ErrChatNotFound)
}

func TestUpdateRenamesAndRejectsEmptyTitle(t *testing.T) {
	req := require.New(t)
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	created, err := repo.Create(ctx, "user-1", "before")
	req.NoError(err)

	renamed := "after"
	req.NoError(repo.Update(ctx, "user-1", created.ID, ChatUpdate{Title: &renamed}))

	empty := ""
	err = repo.Update(ctx, "user-1", created.ID, ChatUpdate{Title: &empty})
	req.ErrorIs(err, ErrInvalidTitle)

	found, err := repo.FindByID(ctx, "user-1", created.ID)
	req.NoError(err)
	req.Equal("after", found.Title)
}

func TestUpdateUnknownChat(t *testing.T) {
	req := require.New(t)
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	title := "anything"
	err := repo.Update(ctx, "user-1", uuid.NewString(), ChatUpdate{Title: &title})
	req.ErrorIs(err, ErrChatNotFound)

	err = repo.Update(ctx, "user-1", uuid.NewString(), ChatUpdate{})
	req.ErrorIs(err, ErrChatNotFound)
}

func TestDeleteCascadesToMessages(t *testing.T) {
	req := require.New(t)
	repo, db := newTestRepo(t)
	ctx := context.Background()

	created, err := repo.Create(ctx, "user-1", "doomed")
	req.NoError(err)
	kept, err := repo.Create(ctx, "user-1", "kept")
	req.NoError(err)

	now := time.Now().UTC()
	for i := 0; i < 3; i++ {
		req.NoError(db.Create(&domain.Message{
			ChatID:    created.ID,
			SenderID:  "user-1",
			Body:      "hi",
			Timestamp: now.Add(time.Duration(i) * time.Millisecond),
			Seq:       int64(i + 1),
			Source:    domain.SourceChat,
		}).Error)
	}
	req.NoError(db.Create(&domain.Message{
		ChatID: kept.ID, SenderID: "user-1", Body: "stay", Timestamp: now, Seq: 1, Source: domain.SourceChat,
	}).Error)

	req.NoError(repo.Delete(ctx, "user-1", created.ID))

	var remaining int64
	req.NoError(db.Model(&domain.Message{}).Where("chat_id = ?", created.ID).Count(&remaining).Error)
	req.Zero(remaining)
	req.NoError(db.Model(&domain.Message{}).Where("chat_id = ?", kept.ID).Count(&remaining).Error)
	req.EqualValues(1, remaining)

	_, err = repo.FindByID(ctx, "user-1", created.ID)
	req.ErrorIs(err, ErrChatNotFound)

	req.ErrorIs(repo.Delete(ctx, "user-1", created.ID), ErrChatNotFound)
}

func TestDeleteOtherUsersChat(t *testing.T) {
	req := require.New(t)
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	created, err := repo.Create(ctx, "user-1", "mine")
	req.NoError(err)

	req.ErrorIs(repo.Delete(ctx, "user-2", created.ID), ErrChatNotFound)

	_, err = repo.FindByID(ctx, "user-1", created.ID)
	req.NoError(err)
}
