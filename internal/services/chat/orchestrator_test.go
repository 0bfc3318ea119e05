package chat

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/iyunix/go-pdfchat/internal/database"
	"github.com/iyunix/go-pdfchat/internal/domain"
	"github.com/iyunix/go-pdfchat/internal/mocks"
	chatrepo "github.com/iyunix/go-pdfchat/internal/repository/chat"
	msgrepo "github.com/iyunix/go-pdfchat/internal/repository/message"
)

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Warn(string, ...interface{})  {}

var fixedNow = time.Date(2026, 7, 14, 10, 15, 30, 123000000, time.UTC)

type harness struct {
	orchestrator *Orchestrator
	chats        chatrepo.ChatRepository
	messages     msgrepo.MessageRepository
	completions  *mocks.MockCompletionProvider
	extractor    *mocks.MockExtractor
	blobs        *mocks.MockBlobStore
}

func newHarness(t *testing.T) harness {
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

	ctrl := gomock.NewController(t)
	h := harness{
		chats:       chatrepo.NewChatRepository(db, nopLogger{}),
		messages:    msgrepo.NewMessageRepository(db, nopLogger{}),
		completions: mocks.NewMockCompletionProvider(ctrl),
		extractor:   mocks.NewMockExtractor(ctrl),
		blobs:       mocks.NewMockBlobStore(ctrl),
	}
	h.orchestrator = NewOrchestrator(DefaultConfig(), h.chats, h.messages, h.completions, h.extractor, h.blobs, nopLogger{})
	h.orchestrator.now = func() time.Time { return fixedNow }
	return h
}

func TestSendMessageCreatesChatForHello(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)
	ctx := context.Background()

	h.completions.EXPECT().
		GetCompletion(gomock.Any(), DefaultConfig().ChatModel, "Hello").
		Return("Hi there!", nil)

	result, err := h.orchestrator.SendMessage(ctx, SendMessageRequest{UserID: "user-1", Body: "Hello"})
	req.NoError(err)
	req.Equal("Hi there!", result.CompletionText)

	created, ok := result.Chat.(CreatedChat)
	req.True(ok)
	req.NotEmpty(created.ID)

	chats, err := h.chats.ListByUser(ctx, "user-1")
	req.NoError(err)
	req.Len(chats, 1)
	req.Equal(created.ID, chats[0].ID)
	req.Equal("Hello", chats[0].Title)

	messages, err := h.messages.ListByChat(ctx, "user-1", created.ID)
	req.NoError(err)
	req.Len(messages, 2)
	req.Equal("user-1", messages[0].SenderID)
	req.Equal("Hello", messages[0].Body)
	req.Equal(domain.SourceChat, messages[0].Source)
	req.Equal(domain.SenderAI, messages[1].SenderID)
	req.Equal("Hi there!", messages[1].Body)
	req.Equal(domain.SourceChat, messages[1].Source)

	req.True(messages[0].Timestamp.Equal(fixedNow.Truncate(time.Millisecond)))
	req.Equal(ReplyOffset, messages[1].Timestamp.Sub(messages[0].Timestamp))
}

func TestSendMessageDerivesTruncatedTitle(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)
	ctx := context.Background()

	body := strings.Repeat("0123456789", 8)
	h.completions.EXPECT().GetCompletion(gomock.Any(), gomock.Any(), body).Return("ok", nil)

	result, err := h.orchestrator.SendMessage(ctx, SendMessageRequest{UserID: "user-1", Body: body})
	req.NoError(err)

	chat, err := h.chats.FindByID(ctx, "user-1", result.Chat.ChatID())
	req.NoError(err)
	req.Equal(body[:50]+"...", chat.Title)
}

func TestSendMessageToExistingChat(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)
	ctx := context.Background()

	existing, err := h.chats.Create(ctx, "user-1", "Ongoing")
	req.NoError(err)

	h.completions.EXPECT().GetCompletion(gomock.Any(), gomock.Any(), "And then?").Return("Then this.", nil)

	result, err := h.orchestrator.SendMessage(ctx, SendMessageRequest{UserID: "user-1", Body: "And then?", ChatID: existing.ID})
	req.NoError(err)
	req.Equal(ExistingChat{ID: existing.ID}, result.Chat)

	chat, err := h.chats.FindByID(ctx, "user-1", existing.ID)
	req.NoError(err)
	req.Equal("Ongoing", chat.Title)
	req.True(chat.LastUpdatedAt.Equal(fixedNow))

	chats, err := h.chats.ListByUser(ctx, "user-1")
	req.NoError(err)
	req.Len(chats, 1)
}

func TestSendMessageToUnknownChat(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)

	_, err := h.orchestrator.SendMessage(context.Background(), SendMessageRequest{
		UserID: "user-1", Body: "hello?", ChatID: uuid.NewString(),
	})
	req.ErrorIs(err, ErrNotFound)
}

func TestSendMessageToAnotherUsersChat(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)
	ctx := context.Background()

	theirs, err := h.chats.Create(ctx, "user-2", "Theirs")
	req.NoError(err)

	_, err = h.orchestrator.SendMessage(ctx, SendMessageRequest{UserID: "user-1", Body: "hi", ChatID: theirs.ID})
	req.ErrorIs(err, ErrNotFound)

	count, err := h.messages.CountByChat(ctx, "user-2", theirs.ID)
	req.NoError(err)
	req.Zero(count)
}

func TestSendMessageValidation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  SendMessageRequest
		want error
	}{
		{"missing user", SendMessageRequest{Body: "hi"}, ErrUnauthorized},
		{"empty body", SendMessageRequest{UserID: "user-1", Body: ""}, ErrValidationFailed},
		{"blank body", SendMessageRequest{UserID: "user-1", Body: "  \n\t"}, ErrValidationFailed},
		{"empty attachment", SendMessageRequest{UserID: "user-1", Body: "hi", File: &Attachment{Filename: "a.pdf"}}, ErrValidationFailed},
		{"unnamed attachment", SendMessageRequest{UserID: "user-1", Body: "hi", File: &Attachment{Data: []byte("%PDF")}}, ErrValidationFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.orchestrator.SendMessage(ctx, tt.req)
			require.ErrorIs(t, err, tt.want)
		})
	}

	chats, err := h.chats.ListByUser(ctx, "user-1")
	require.NoError(t, err)
	require.Empty(t, chats)
}

func TestSendMessageGenerationFailureDiscardsNewChat(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)
	ctx := context.Background()

	h.completions.EXPECT().GetCompletion(gomock.Any(), gomock.Any(), gomock.Any()).Return("", errors.New("upstream 500"))

	_, err := h.orchestrator.SendMessage(ctx, SendMessageRequest{UserID: "user-1", Body: "Hello"})
	req.ErrorIs(err, ErrGenerationFailed)
	req.Equal(KindGenerationFailed, KindOf(err))

	chats, err := h.chats.ListByUser(ctx, "user-1")
	req.NoError(err)
	req.Empty(chats)
}

func TestSendMessageEmptyCompletionIsGenerationFailure(t *testing.T) {
	h := newHarness(t)

	h.completions.EXPECT().GetCompletion(gomock.Any(), gomock.Any(), gomock.Any()).Return("   ", nil)

	_, err := h.orchestrator.SendMessage(context.Background(), SendMessageRequest{UserID: "user-1", Body: "Hello"})
	require.ErrorIs(t, err, ErrGenerationFailed)
}

func TestSendMessageGenerationFailureKeepsExistingChat(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)
	ctx := context.Background()

	existing, err := h.chats.Create(ctx, "user-1", "Keep me")
	req.NoError(err)

	h.completions.EXPECT().GetCompletion(gomock.Any(), gomock.Any(), gomock.Any()).Return("", errors.New("boom"))

	_, err = h.orchestrator.SendMessage(ctx, SendMessageRequest{UserID: "user-1", Body: "Hello", ChatID: existing.ID})
	req.ErrorIs(err, ErrGenerationFailed)

	_, err = h.chats.FindByID(ctx, "user-1", existing.ID)
	req.NoError(err)
	count, err := h.messages.CountByChat(ctx, "user-1", existing.ID)
	req.NoError(err)
	req.Zero(count)
}

func TestSendMessageWithPDF(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)
	ctx := context.Background()

	data := []byte("%PDF-1.7 fake")
	h.extractor.EXPECT().ExtractText(gomock.Any(), data).Return("Revenue grew 12% in Q2.", nil)

	var prompt string
	h.completions.EXPECT().
		GetCompletion(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _, p string) (string, error) {
			prompt = p
			return "Revenue grew 12%.", nil
		})
	h.blobs.EXPECT().
		Save(gomock.Any(), "user-1", data, "application/pdf").
		Return("http://localhost:8080/api/files/blob:user-1:abc", nil)

	result, err := h.orchestrator.SendMessage(ctx, SendMessageRequest{
		UserID: "user-1",
		Body:   "Summarize this",
		File:   &Attachment{Filename: "q2.pdf", ContentType: "application/pdf", Data: data},
	})
	req.NoError(err)
	req.Contains(prompt, "q2.pdf")
	req.Contains(prompt, "Revenue grew 12% in Q2.")
	req.Contains(prompt, "Summarize this")

	messages, err := h.messages.ListByChat(ctx, "user-1", result.Chat.ChatID())
	req.NoError(err)
	req.Len(messages, 2)
	req.Equal(domain.SourcePDF, messages[0].Source)
	req.Equal(domain.SourcePDF, messages[1].Source)
	req.Equal("q2.pdf", messages[0].AttachmentFilename)
	req.Equal("http://localhost:8080/api/files/blob:user-1:abc", messages[0].AttachmentURL)
	req.Empty(messages[1].AttachmentFilename)
	req.True(messages[1].Timestamp.After(messages[0].Timestamp))
}

func TestSendMessageExtractionFailure(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)
	ctx := context.Background()

	h.extractor.EXPECT().ExtractText(gomock.Any(), gomock.Any()).Return("", errors.New("not a pdf"))

	_, err := h.orchestrator.SendMessage(ctx, SendMessageRequest{
		UserID: "user-1",
		Body:   "Summarize",
		File:   &Attachment{Filename: "x.pdf", ContentType: "application/pdf", Data: []byte("junk")},
	})
	req.ErrorIs(err, ErrExtractionFailed)

	chats, err := h.chats.ListByUser(ctx, "user-1")
	req.NoError(err)
	req.Empty(chats)
}

func TestSendMessageBlobFailureIsStorageUnavailable(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)
	ctx := context.Background()

	h.extractor.EXPECT().ExtractText(gomock.Any(), gomock.Any()).Return("text", nil)
	h.completions.EXPECT().GetCompletion(gomock.Any(), gomock.Any(), gomock.Any()).Return("reply", nil)
	h.blobs.EXPECT().Save(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return("", errors.New("disk full"))

	_, err := h.orchestrator.SendMessage(ctx, SendMessageRequest{
		UserID: "user-1",
		Body:   "Summarize",
		File:   &Attachment{Filename: "x.pdf", ContentType: "application/pdf", Data: []byte("%PDF")},
	})
	req.ErrorIs(err, ErrStorageUnavailable)

	chats, err := h.chats.ListByUser(ctx, "user-1")
	req.NoError(err)
	req.Empty(chats)
}

func TestSendMessageCanceledBeforeLogging(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h.completions.EXPECT().
		GetCompletion(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, string, string) (string, error) {
			cancel()
			return "too late", nil
		})

	_, err := h.orchestrator.SendMessage(ctx, SendMessageRequest{UserID: "user-1", Body: "Hello"})
	req.ErrorIs(err, ErrCanceled)

	chats, err := h.chats.ListByUser(context.Background(), "user-1")
	req.NoError(err)
	req.Empty(chats)
}

// cancelOnAppend cancels the caller's context as the exchange is being written.
type cancelOnAppend struct {
	msgrepo.MessageRepository
	cancel context.CancelFunc
}

func (r cancelOnAppend) AppendExchange(ctx context.Context, userID, chatID string, user, ai msgrepo.NewMessage) (*domain.Message, *domain.Message, error) {
	r.cancel()
	return r.MessageRepository.AppendExchange(ctx, userID, chatID, user, ai)
}

func TestSendMessageCanceledDuringLogging(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h.orchestrator.messageRepo = cancelOnAppend{MessageRepository: h.messages, cancel: cancel}
	h.completions.EXPECT().GetCompletion(gomock.Any(), gomock.Any(), "Hello").Return("Hi there!", nil)

	result, err := h.orchestrator.SendMessage(ctx, SendMessageRequest{UserID: "user-1", Body: "Hello"})
	req.NoError(err)
	req.Equal("Hi there!", result.CompletionText)
	req.Error(ctx.Err())

	count, err := h.messages.CountByChat(context.Background(), "user-1", result.Chat.ChatID())
	req.NoError(err)
	req.Equal(int64(2), count)
}

func TestSendMessageSaveTimeoutIsStorageUnavailable(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)
	ctx := context.Background()

	existing, err := h.chats.Create(ctx, "user-1", "Ongoing")
	req.NoError(err)

	config := DefaultConfig()
	config.SaveTimeout = time.Nanosecond
	h.orchestrator.config = config
	h.completions.EXPECT().GetCompletion(gomock.Any(), gomock.Any(), "Hello").Return("Hi there!", nil)

	_, err = h.orchestrator.SendMessage(ctx, SendMessageRequest{UserID: "user-1", Body: "Hello", ChatID: existing.ID})
	req.ErrorIs(err, ErrStorageUnavailable)
	req.Equal(KindStorageUnavailable, KindOf(err))

	count, err := h.messages.CountByChat(ctx, "user-1", existing.ID)
	req.NoError(err)
	req.Zero(count)
}

func TestSendMessageCanceledBeforeStart(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.orchestrator.SendMessage(ctx, SendMessageRequest{UserID: "user-1", Body: "Hello"})
	require.ErrorIs(t, err, ErrCanceled)
}

func TestFromStoreError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"not found", chatrepo.ErrChatNotFound, KindNotFound},
		{"invalid title", chatrepo.ErrInvalidTitle, KindValidationFailed},
		{"invalid message", msgrepo.ErrInvalidMessage, KindValidationFailed},
		{"deadline", context.DeadlineExceeded, KindCanceled},
		{"database", chatrepo.ErrDatabase, KindStorageUnavailable},
		{"already classified", NewGenerationError("x", nil), KindGenerationFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, KindOf(FromStoreError("op", "chat-1", tt.err)))
		})
	}
	require.NoError(t, FromStoreError("op", "chat-1", nil))
}

func TestBuildDocumentPromptTruncates(t *testing.T) {
	req := require.New(t)
	cfg := DefaultConfig()
	cfg.MaxDocumentChars = 10
	helper := NewContextHelper(cfg, nopLogger{})

	prompt := helper.BuildDocumentPrompt("long.pdf", "abcdefghijklmnop", "what is it?")
	req.Contains(prompt, "abcdefghij\n[document truncated]")
	req.NotContains(prompt, "abcdefghijk")

	prompt = helper.BuildDocumentPrompt("blank.pdf", "  \n \n", "what is it?")
	req.Contains(prompt, "(no extractable text)")

	req.Equal("a b\nc", helper.CleanWhitespace("  a   b \n\n\t c  "))
}
