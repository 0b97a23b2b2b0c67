package realtime

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/quotedesk/internal/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestHubDeliversToTopicAndAll(t *testing.T) {
	hub := NewHub()

	quotes, _, err := hub.Subscribe(TopicQuotes)
	require.NoError(t, err)
	defer quotes.Close()
	all, _, err := hub.Subscribe("")
	require.NoError(t, err)
	defer all.Close()

	hub.Publish(Event{Kind: KindCreated, Entity: TopicQuotes, ID: "42"})

	select {
	case ev := <-quotes.Events():
		assert.Equal(t, "42", ev.ID)
	case <-time.After(time.Second):
		t.Fatal("quotes subscriber got nothing")
	}
	select {
	case ev := <-all.Events():
		assert.Equal(t, KindCreated, ev.Kind)
	case <-time.After(time.Second):
		t.Fatal("all subscriber got nothing")
	}
}

func TestHubReplayBufferIsBounded(t *testing.T) {
	hub := NewHub()
	for i := 0; i < DefaultBufferSize+10; i++ {
		hub.Publish(Event{Kind: KindUpdated, Entity: TopicDrafts})
	}

	sub, backlog, err := hub.Subscribe(TopicDrafts)
	require.NoError(t, err)
	defer sub.Close()
	assert.Len(t, backlog, DefaultBufferSize)
}

func TestHubDropsForSlowSubscribers(t *testing.T) {
	hub := NewHub()
	sub, _, err := hub.Subscribe(TopicQuotes)
	require.NoError(t, err)
	defer sub.Close()

	done := make(chan struct{})
	go func() {
		for i := 0; i < DefaultSubscriberBuffer*4; i++ {
			hub.Publish(Event{Kind: KindUpdated, Entity: TopicQuotes})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}
	assert.Len(t, sub.Events(), DefaultSubscriberBuffer)
}

func TestSubscribeRejectsUnknownTopic(t *testing.T) {
	_, _, err := NewHub().Subscribe("invoices")
	assert.ErrorIs(t, err, ErrInvalidTopic)

	var nilHub *Hub
	_, _, err = nilHub.Subscribe(TopicAll)
	assert.ErrorIs(t, err, ErrHubUnavailable)
}

func TestNotifierPublishesNotification(t *testing.T) {
	hub := NewHub()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	n := NewNotifier(NotifierParams{Hub: hub, Clock: clock.NewFakeClock(now), Log: zap.NewNop()})

	sub, _, err := hub.Subscribe(TopicNotifications)
	require.NoError(t, err)
	defer sub.Close()

	n.Notify(context.Background(), LevelSuccess, "Preventivo salvato")
	n.Notify(context.Background(), LevelInfo, "")

	ev := <-sub.Events()
	assert.Equal(t, LevelSuccess, ev.Level)
	assert.Equal(t, now, ev.At)
	assert.Len(t, sub.Events(), 0)
}
