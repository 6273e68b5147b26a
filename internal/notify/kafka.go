package notify

import (
	"context"
	"log"

	kafkax "github.com/ariefcatur/go-sambatan-pool.git/internal/kafka"
	"github.com/ariefcatur/go-sambatan-pool.git/internal/sambatan"
	kafkago "github.com/segmentio/kafka-go"
)

// KafkaEmitter publishes lifecycle events, one async producer per topic.
// Emit never blocks and never returns an error to the caller: the state
// change sudah commit, event cuma best-effort.
type KafkaEmitter struct {
	producers map[string]*kafkax.Producer
}

func NewKafkaEmitter(ctx context.Context, brokers []string, buf int) *KafkaEmitter {
	e := &KafkaEmitter{producers: make(map[string]*kafkax.Producer, 4)}
	for _, topic := range []string{
		sambatan.TopicNewParticipant,
		sambatan.TopicQuotaReached,
		sambatan.TopicCompleted,
		sambatan.TopicExpired,
	} {
		p := kafkax.NewProducer(brokers, topic, buf)
		p.Start(ctx)
		e.producers[topic] = p
	}
	return e
}

func (e *KafkaEmitter) Emit(ctx context.Context, ev sambatan.Envelope) {
	topic := sambatan.TopicFor(ev.EventType)
	p, ok := e.producers[topic]
	if !ok {
		log.Printf("notify: unknown event type %q, dropping", ev.EventType)
		return
	}
	p.Publish(sambatan.PartitionKey(ev.CorrelationID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(ev.EventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

// Close flushes every producer and waits for their loops to exit.
func (e *KafkaEmitter) Close() {
	for _, p := range e.producers {
		p.Close()
	}
	for _, p := range e.producers {
		p.WaitClosed()
	}
}
