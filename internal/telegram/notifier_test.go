package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"sampark/backend/internal/localization"
	"sampark/backend/internal/models"
	"sampark/backend/internal/storage"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockSender records every message instead of calling Telegram.
type MockSender struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (m *MockSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		m.sent = append(m.sent, msg.Text)
	}
	return tgbotapi.Message{}, m.err
}

func (m *MockSender) texts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.sent...)
}

type MockTracker struct {
	mock.Mock
}

func (m *MockTracker) TrackByCode(ctx context.Context, code string) (*models.Grievance, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Grievance), args.Error(1)
}

func newTestNotifier(t *testing.T, lang string) (*Notifier, *MockSender) {
	t.Helper()
	loc, err := localization.Default()
	require.NoError(t, err)
	sender := &MockSender{}
	return New(sender, -100123, loc, lang), sender
}

func commandUpdate(t *testing.T, text string) *tgbotapi.Update {
	t.Helper()
	raw := `{"update_id": 1, "message": {"message_id": 7, "date": 0, "chat": {"id": -100123, "type": "group"},
		"text": ` + mustJSON(t, text) + `, "entities": [{"type": "bot_command", "offset": 0, "length": 6}]}}`
	var update tgbotapi.Update
	require.NoError(t, json.Unmarshal([]byte(raw), &update))
	return &update
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}

func TestNotifier_Text(t *testing.T) {
	n, _ := newTestNotifier(t, "en")

	submitted := n.Text(models.StatusEvent{TrackingID: "SMPK123450001", Title: "Pothole", Category: models.CategoryPotholes, Status: models.StatusSubmitted})
	assert.Contains(t, submitted, "SMPK123450001")
	assert.Contains(t, submitted, "Pothole")
	assert.Contains(t, submitted, "Category: Potholes")

	moved := n.Text(models.StatusEvent{TrackingID: "SMPK123450001", Status: models.StatusInProgress, Comment: "crew assigned"})
	assert.Equal(t, "🔄 Grievance SMPK123450001 is now: In progress\nComment: crew assigned", moved)

	hi, _ := newTestNotifier(t, "hi")
	assert.Contains(t, hi.Text(models.StatusEvent{TrackingID: "SMPK1", Status: models.StatusResolved}), "हल की गई")
}

func TestNotifier_RunSendsQueuedEvents(t *testing.T) {
	n, sender := newTestNotifier(t, "en")
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		n.Run(ctx)
		close(done)
	}()

	require.NoError(t, n.Publish(ctx, models.StatusEvent{TrackingID: "SMPK123450001", Status: models.StatusRejected}))

	assert.Eventually(t, func() bool { return len(sender.texts()) == 1 }, time.Second, 10*time.Millisecond)
	assert.Contains(t, sender.texts()[0], "Rejected")

	cancel()
	<-done
}

func TestNotifier_FlushDrainsQueue(t *testing.T) {
	n, sender := newTestNotifier(t, "en")
	ctx := context.Background()

	n.Flush(ctx)
	assert.Empty(t, sender.texts())

	require.NoError(t, n.Publish(ctx, models.StatusEvent{TrackingID: "SMPK1", Status: models.StatusUnderReview}))
	require.NoError(t, n.Publish(ctx, models.StatusEvent{TrackingID: "SMPK2", Status: models.StatusResolved}))
	n.Flush(ctx)

	texts := sender.texts()
	require.Len(t, texts, 2)
	assert.Contains(t, texts[0], "SMPK1")
	assert.Contains(t, texts[1], "SMPK2")
}

func TestNotifier_PublishDropsWhenFull(t *testing.T) {
	n, _ := newTestNotifier(t, "en")
	ctx := context.Background()

	for i := 0; i < queueSize; i++ {
		require.NoError(t, n.Publish(ctx, models.StatusEvent{TrackingID: "SMPK1"}))
	}
	assert.Error(t, n.Publish(ctx, models.StatusEvent{TrackingID: "SMPK1"}))
}

func TestNotifier_SendErrorDoesNotStopPump(t *testing.T) {
	n, sender := newTestNotifier(t, "en")
	sender.err = errors.New("telegram down")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go n.Run(ctx)

	require.NoError(t, n.Publish(ctx, models.StatusEvent{TrackingID: "SMPK1", Status: models.StatusResolved}))
	require.NoError(t, n.Publish(ctx, models.StatusEvent{TrackingID: "SMPK2", Status: models.StatusResolved}))
	assert.Eventually(t, func() bool { return len(sender.texts()) == 2 }, time.Second, 10*time.Millisecond)
}

func TestHandleTrackCommand(t *testing.T) {
	n, sender := newTestNotifier(t, "en")
	tracker := new(MockTracker)
	ctx := context.Background()

	g := &models.Grievance{TrackingID: "SMPK123450001", Title: "Pothole", CurrentStatus: models.StatusUnderReview}
	tracker.On("TrackByCode", ctx, "smpk123450001").Return(g, nil)
	tracker.On("TrackByCode", ctx, "SMPK000000000").Return(nil, storage.ErrNotFound)

	n.HandleTrackCommand(ctx, commandUpdate(t, "/track smpk123450001"), tracker)
	n.HandleTrackCommand(ctx, commandUpdate(t, "/track SMPK000000000"), tracker)
	n.HandleTrackCommand(ctx, commandUpdate(t, "/track"), tracker)

	texts := sender.texts()
	require.Len(t, texts, 3)
	assert.Equal(t, "SMPK123450001: Pothole\nUnder review", texts[0])
	assert.Equal(t, "No grievance with tracking code SMPK000000000", texts[1])
	assert.Contains(t, texts[2], "Usage")
	tracker.AssertExpectations(t)
}

func TestHandleTrackCommand_IgnoresOtherCommands(t *testing.T) {
	n, sender := newTestNotifier(t, "en")
	tracker := new(MockTracker)

	n.HandleTrackCommand(context.Background(), commandUpdate(t, "/start"), tracker)
	n.HandleTrackCommand(context.Background(), &tgbotapi.Update{}, tracker)

	assert.Empty(t, sender.texts())
	tracker.AssertNotCalled(t, "TrackByCode", mock.Anything, mock.Anything)
}
