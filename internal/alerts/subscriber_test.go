package alerts

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/abgdnv/stockledger/pkg/messaging/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockAckableMsg struct {
	mock.Mock
}

func (m *mockAckableMsg) Data() []byte {
	args := m.Called()
	return args.Get(0).([]byte)
}

func (m *mockAckableMsg) Subject() string {
	return "inventory.stock.changed"
}

func (m *mockAckableMsg) Ack() error {
	args := m.Called()
	return args.Error(0)
}

func (m *mockAckableMsg) Term() error {
	args := m.Called()
	return args.Error(0)
}

func TestEvaluate(t *testing.T) {
	testCases := []struct {
		name     string
		quantity int32
		want     Severity
		raised   bool
	}{
		{name: "above threshold", quantity: 9},
		{name: "at threshold", quantity: 5},
		{name: "below threshold", quantity: 4, want: SeverityLow, raised: true},
		{name: "sold out", quantity: 0, want: SeverityOutOfStock, raised: true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			alert, ok := Evaluate(events.StockChangedEvent{ProductID: 7, ProductName: "Widget", Quantity: tc.quantity}, 5)
			assert.Equal(t, tc.raised, ok)
			assert.Equal(t, tc.want, alert.Severity)
			if ok {
				assert.Equal(t, int64(7), alert.ProductID)
				assert.Equal(t, "Widget", alert.ProductName)
			}
		})
	}
}

func Test_handleMessage(t *testing.T) {
	payload := func(quantity int32) []byte {
		data, _ := json.Marshal(events.StockChangedEvent{
			ProductID:   1,
			ProductName: "Widget",
			Quantity:    quantity,
			Reason:      events.ReasonSale,
			OccurredAt:  time.Now(),
		})
		return data
	}
	testCases := []struct {
		name       string
		newMockMsg func() *mockAckableMsg
		wantAlert  bool
	}{
		{
			name: "low stock raises an alert",
			newMockMsg: func() *mockAckableMsg {
				msg := new(mockAckableMsg)
				msg.On("Data").Return(payload(2)).Times(1)
				msg.On("Ack").Return(nil).Times(1)
				return msg
			},
			wantAlert: true,
		},
		{
			name: "enough stock is acknowledged quietly",
			newMockMsg: func() *mockAckableMsg {
				msg := new(mockAckableMsg)
				msg.On("Data").Return(payload(40)).Times(1)
				msg.On("Ack").Return(nil).Times(1)
				return msg
			},
		},
		{
			name: "invalid message is terminated",
			newMockMsg: func() *mockAckableMsg {
				msg := new(mockAckableMsg)
				msg.On("Data").Return([]byte("invalid data")).Times(1)
				msg.On("Term").Return(nil).Times(1)
				return msg
			},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			var buf bytes.Buffer
			logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
			mockMsg := tc.newMockMsg()

			// when
			handleMessage(context.Background(), mockMsg, 5, logger)

			// then
			mockMsg.AssertExpectations(t)
			assert.Equal(t, tc.wantAlert, bytes.Contains(buf.Bytes(), []byte(`"msg":"stock alert"`)))
		})
	}
}

func Test_handleMessage_nil(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	require.NotPanics(t, func() {
		handleMessage(context.Background(), nil, 5, logger)
	})
	assert.Contains(t, buf.String(), "received nil message")
}
