package events

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/KotFed0t/finplan/utils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMessage(t *testing.T) {
	userID := uuid.New()
	ctx := utils.WithRequestID(context.Background(), "rq-1")

	msg, err := newMessage(ctx, Event{Type: SIPExecuted, UserID: userID, Payload: map[string]string{"template_id": "t"}})
	require.NoError(t, err)

	assert.Equal(t, userID.String(), string(msg.Key))
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, SIPExecuted, string(msg.Headers[0].Value))

	var decoded Event
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.NotEmpty(t, decoded.ID)
	assert.False(t, decoded.Time.IsZero())
	assert.Equal(t, "rq-1", decoded.RequestID)
	assert.Equal(t, userID, decoded.UserID)
}

func TestNewWithoutBrokers(t *testing.T) {
	p := New(nil, "topic")
	assert.IsType(t, NopPublisher{}, p)
	assert.NoError(t, p.Publish(context.Background(), Event{Type: InvestmentCreated}))
}
