package notify

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/susaninz/geosite-manager/errors"
)

// adapterMock mocks Adapter.
type adapterMock struct {
	mock.Mock
}

func (m *adapterMock) SendMessage(ctx context.Context, message Message) error {
	return m.Called(ctx, message).Error(0)
}

func (m *adapterMock) EditMessage(ctx context.Context, chatID string, messageID int64, message Message) error {
	return m.Called(ctx, chatID, messageID, message).Error(0)
}

func (m *adapterMock) EditReplyMarkup(ctx context.Context, chatID string, messageID int64, keyboard [][]Button) error {
	return m.Called(ctx, chatID, messageID, keyboard).Error(0)
}

func (m *adapterMock) AnswerCallback(ctx context.Context, callbackID string, text string) error {
	return m.Called(ctx, callbackID, text).Error(0)
}

func TestService_NotifyRecordsDelivered(t *testing.T) {
	adapter := &adapterMock{}
	adapter.On("SendMessage", mock.Anything, mock.Anything).Return(nil)
	defer adapter.AssertExpectations(t)
	service := NewService(adapter)
	base := time.Date(2025, 10, 2, 12, 0, 0, 0, time.UTC)
	service.now = func() time.Time { return base }

	service.Notify(context.Background(), Message{Text: "hello"})

	records := service.Recent(10)
	assert.Len(t, records, 1, "should have recorded the notification")
	assert.True(t, records[0].Delivered, "should be marked delivered")
	assert.Equal(t, "hello", records[0].Text, "text should be recorded")
	assert.Equal(t, base, records[0].SentAt, "timestamp should come from clock")
}

func TestService_NotifyRecordsFailure(t *testing.T) {
	adapter := &adapterMock{}
	adapter.On("SendMessage", mock.Anything, mock.Anything).
		Return(errors.NewCommunicationError(nil, "boom", nil))
	defer adapter.AssertExpectations(t)
	service := NewService(adapter)

	service.Notify(context.Background(), Message{Text: "hello"})

	records := service.Recent(10)
	assert.Len(t, records, 1, "should have recorded the attempt")
	assert.False(t, records[0].Delivered, "should be marked undelivered")
}

func TestService_HistoryCappedAndOrdered(t *testing.T) {
	adapter := &adapterMock{}
	adapter.On("SendMessage", mock.Anything, mock.Anything).Return(nil)
	service := NewService(adapter)
	for i := 0; i < maxHistory+10; i++ {
		service.Notify(context.Background(), Message{Text: "msg"})
	}
	assert.Len(t, service.Recent(maxHistory+10), maxHistory, "history should be capped")
}
