package realtime

import (
	"errors"
	"strings"
	"sync"
	"time"
)

const (
	TopicAll           = "all"
	TopicQuotes        = "quotes"
	TopicDrafts        = "drafts"
	TopicClients       = "clients"
	TopicSettings      = "settings"
	TopicNotifications = "notifications"
)

const (
	KindCreated      = "created"
	KindUpdated      = "updated"
	KindDeleted      = "deleted"
	KindRestored     = "restored"
	KindNotification = "notification"
)

const (
	SourceApp = "app"
	SourceDB  = "db"
)

const (
	DefaultBufferSize       = 50
	DefaultSubscriberBuffer = 16
)

var (
	ErrHubUnavailable = errors.New("hub_unavailable")
	ErrInvalidTopic   = errors.New("invalid_topic")
)

type Event struct {
	Kind    string    `json:"kind"`
	Entity  string    `json:"entity"`
	ID      string    `json:"id,omitempty"`
	Level   Level     `json:"level,omitempty"`
	Message string    `json:"message,omitempty"`
	Source  string    `json:"source"`
	At      time.Time `json:"at"`
}

// Hub fans events out per topic. Every event is also delivered on TopicAll.
// Slow subscribers drop events rather than block publishers.
type Hub struct {
	mu               sync.RWMutex
	streams          map[string]*stream
	bufferSize       int
	subscriberBuffer int
}

type stream struct {
	mu     sync.Mutex
	buffer []Event
	subs   map[uint64]chan Event
	nextID uint64
}

type Subscription struct {
	hub   *Hub
	topic string
	id    uint64
	ch    chan Event
	once  sync.Once
}

func NewHub() *Hub {
	return &Hub{
		streams:          make(map[string]*stream),
		bufferSize:       DefaultBufferSize,
		subscriberBuffer: DefaultSubscriberBuffer,
	}
}

func (h *Hub) Publish(event Event) {
	if h == nil {
		return
	}
	topic := strings.TrimSpace(event.Entity)
	if topic == "" {
		return
	}
	h.deliver(topic, event)
	if topic != TopicAll {
		h.deliver(TopicAll, event)
	}
}

func (h *Hub) deliver(topic string, event Event) {
	stream := h.ensureStream(topic)

	stream.mu.Lock()
	stream.buffer = append(stream.buffer, event)
	if len(stream.buffer) > h.bufferSize {
		stream.buffer = stream.buffer[len(stream.buffer)-h.bufferSize:]
	}
	subs := make([]chan Event, 0, len(stream.subs))
	for _, ch := range stream.subs {
		subs = append(subs, ch)
	}
	stream.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- event:
		default:
		}
	}
}

// Subscribe returns a live subscription plus the buffered backlog of the topic.
func (h *Hub) Subscribe(topic string) (*Subscription, []Event, error) {
	if h == nil {
		return nil, nil, ErrHubUnavailable
	}
	topic = strings.TrimSpace(topic)
	if topic == "" {
		topic = TopicAll
	}
	if !knownTopic(topic) {
		return nil, nil, ErrInvalidTopic
	}

	stream := h.ensureStream(topic)
	stream.mu.Lock()
	id := stream.nextID
	stream.nextID++
	ch := make(chan Event, h.subscriberBuffer)
	stream.subs[id] = ch
	backlog := append([]Event(nil), stream.buffer...)
	stream.mu.Unlock()

	return &Subscription{
		hub:   h,
		topic: topic,
		id:    id,
		ch:    ch,
	}, backlog, nil
}

func (h *Hub) ensureStream(topic string) *stream {
	h.mu.RLock()
	current := h.streams[topic]
	h.mu.RUnlock()
	if current != nil {
		return current
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	current = h.streams[topic]
	if current == nil {
		current = &stream{subs: make(map[uint64]chan Event)}
		h.streams[topic] = current
	}
	return current
}

func (h *Hub) unsubscribe(topic string, id uint64) {
	h.mu.RLock()
	stream := h.streams[topic]
	h.mu.RUnlock()
	if stream == nil {
		return
	}

	stream.mu.Lock()
	delete(stream.subs, id)
	stream.mu.Unlock()
}

func (s *Subscription) Events() <-chan Event {
	if s == nil {
		return nil
	}
	return s.ch
}

func (s *Subscription) Close() {
	if s == nil || s.hub == nil {
		return
	}
	s.once.Do(func() {
		s.hub.unsubscribe(s.topic, s.id)
	})
}

func knownTopic(topic string) bool {
	switch topic {
	case TopicAll, TopicQuotes, TopicDrafts, TopicClients, TopicSettings, TopicNotifications:
		return true
	}
	return false
}
