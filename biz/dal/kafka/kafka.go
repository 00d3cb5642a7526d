// Package kafka is the durable Event Sink (C2) backed by segmentio/kafka-go,
// grounded on the teacher's biz/dal/kafka writer-per-topic cache. Publish
// failures are logged and swallowed per §4.6/§7 — the coordinator's
// transaction never rolls back on an event-publish error.
package kafka

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/cloudwego/hertz/pkg/common/hlog"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/cexcore/matchcore/biz/model"
)

// Sink implements ports.EventSink over one kafka.Writer per topic,
// created lazily and cached, mirroring the teacher's GetWriter(topic).
type Sink struct {
	brokers []string
	mu      sync.Mutex
	writers map[string]*kafkago.Writer
}

func NewSink(brokers []string) *Sink {
	return &Sink{brokers: brokers, writers: make(map[string]*kafkago.Writer)}
}

func (s *Sink) writer(topic string) *kafkago.Writer {
	s.mu.Lock()
	defer s.mu.Unlock()
	if w, ok := s.writers[topic]; ok {
		return w
	}
	w := &kafkago.Writer{
		Addr:  kafkago.TCP(s.brokers...),
		Topic: topic,
		Async: true,
		// With Async set, write failures arrive here rather than from
		// WriteMessages.
		Completion: func(messages []kafkago.Message, err error) {
			if err != nil {
				hlog.Errorf("publishing %d message(s) to topic %s failed: %v", len(messages), topic, err)
			}
		},
	}
	s.writers[topic] = w
	return w
}

// Publish implements ports.EventSink. Keys per §4.6: order id for order
// events, trade id for trade events, "{user}:{currency}" for balance
// events — computed by model.Event.Key.
func (s *Sink) Publish(ctx context.Context, event *model.Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		hlog.Errorf("marshalling event %s failed: %v", event.EventID, err)
		return
	}
	msg := kafkago.Message{
		Key:   []byte(event.Key()),
		Value: payload,
	}
	if err := s.writer(event.Topic()).WriteMessages(ctx, msg); err != nil {
		hlog.Errorf("publishing event %s to topic %s failed: %v", event.EventID, event.Topic(), err)
	}
}

func (s *Sink) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, w := range s.writers {
		_ = w.Close()
	}
}
