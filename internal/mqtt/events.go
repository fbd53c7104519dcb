package mqtt

import (
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/AaronLay10/algoscene/internal/journal"
	"github.com/AaronLay10/algoscene/internal/logging"
	"github.com/AaronLay10/algoscene/internal/stream"
)

// DefaultBuffer is the number of decoded events held before the broker
// handler blocks.
const DefaultBuffer = 64

// EndSuffix is appended to the events topic to mark the end of a run.
const EndSuffix = "/end"

// EventSource feeds algorithm events published on a topic into a
// stream.ChanSource. Each message carries one JSON event; any message on
// the topic's end subtopic closes the stream.
type EventSource struct {
	sub    Subscriber
	topic  string
	logger *slog.Logger

	ch   chan stream.Item
	done chan struct{}
	once sync.Once

	mu     sync.RWMutex
	closed bool
}

// NewEventSource prepares a source for topic. Nothing is subscribed until Start.
func NewEventSource(sub Subscriber, topic string, buffer int, logger *slog.Logger) *EventSource {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &EventSource{
		sub:    sub,
		topic:  topic,
		logger: logging.NewComponentLogger(logger, "mqtt"),
		ch:     make(chan stream.Item, buffer),
		done:   make(chan struct{}),
	}
}

// Start subscribes to the events topic and its end subtopic.
func (s *EventSource) Start() error {
	if s.topic == "" {
		return errors.New("mqtt events topic is empty")
	}
	if err := s.sub.Subscribe(s.topic, s.handleEvent); err != nil {
		return err
	}
	return s.sub.Subscribe(s.topic+EndSuffix, func(paho.Client, paho.Message) {
		s.logger.Info("event stream ended by publisher", slog.String("topic", s.topic))
		s.Close()
	})
}

// Source returns the pull side of the stream.
func (s *EventSource) Source() *stream.ChanSource {
	return stream.NewChanSource(s.ch)
}

// Close ends the stream. Events already buffered are still delivered.
func (s *EventSource) Close() {
	s.once.Do(func() {
		close(s.done)
		s.mu.Lock()
		s.closed = true
		close(s.ch)
		s.mu.Unlock()
	})
}

func (s *EventSource) handleEvent(_ paho.Client, msg paho.Message) {
	ev, err := decodeEvent(msg.Payload())
	if err != nil {
		s.logger.Warn("dropping malformed event", slog.String("topic", msg.Topic()), logging.Error(err))
		journal.Emit("warn", "stream.error", "malformed event message", map[string]any{
			"topic": msg.Topic(),
			"error": err.Error(),
		})
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}
	select {
	case s.ch <- stream.Item{Event: ev}:
	case <-s.done:
	}
}

func decodeEvent(raw []byte) (stream.Event, error) {
	ev := stream.Event{Index: stream.Unindexed}
	if err := json.Unmarshal(raw, &ev); err != nil {
		return stream.Event{}, err
	}
	if ev.Type == "" {
		return stream.Event{}, errors.New("event has no type")
	}
	if ev.Payload == nil {
		ev.Payload = stream.NewPayload()
	}
	ev.Index = stream.Unindexed
	return ev, nil
}
