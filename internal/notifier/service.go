// Package notifier turns pool lifecycle events into in-app notification
// feeds. It sits on the consuming side of the emitter contract: kalau worker
// ini mati, transaksi pool tetap jalan.
package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	kafkax "github.com/ariefcatur/go-sambatan-pool.git/internal/kafka"
	"github.com/ariefcatur/go-sambatan-pool.git/internal/redisx"
	"github.com/ariefcatur/go-sambatan-pool.git/internal/sambatan"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
)

// PoolReader is the read-only slice of the repository this worker needs to
// resolve recipients.
type PoolReader interface {
	GetPool(ctx context.Context, poolID string) (sambatan.Pool, error)
	PoolParticipants(ctx context.Context, poolID string) ([]sambatan.Participant, error)
}

type Service struct {
	Pools       PoolReader
	Redis       *redis.Client
	ServiceName string
}

// Notification is the entry pushed onto each recipient's feed.
type Notification struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	PoolID    string    `json:"pool_id"`
	Message   string    `json:"message"`
	At        time.Time `json:"at"`
}

// HandleEvent is wired as the consumer handler for every sambatan topic.
func (s *Service) HandleEvent(ctx context.Context, m kafkago.Message) error {
	var env sambatan.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}

	// Dedup via event_id: consumer group bisa redeliver.
	fresh, err := s.Redis.SetNX(ctx, s.dedupKey(env.EventID), "1", redisx.TTLDedup).Result()
	if err == nil && !fresh {
		return nil
	}

	recipients, msg, err := s.resolve(ctx, env)
	if err != nil {
		return err
	}
	if msg == "" {
		return nil // tipe event yg tidak dikenal: skip, commit offset
	}

	n := Notification{
		EventID:   env.EventID,
		EventType: env.EventType,
		PoolID:    env.CorrelationID,
		Message:   msg,
		At:        env.OccurredAt,
	}
	b, err := json.Marshal(n)
	if err != nil {
		return err
	}
	for _, userID := range recipients {
		key := fmt.Sprintf(redisx.KeyUserNotif, userID)
		pipe := s.Redis.TxPipeline()
		pipe.LPush(ctx, key, b)
		pipe.LTrim(ctx, key, 0, redisx.MaxUserNotif-1)
		pipe.Expire(ctx, key, redisx.TTLUserNotif)
		if _, err := pipe.Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) dedupKey(eventID string) string {
	name := s.ServiceName
	if name == "" {
		name = "notifier"
	}
	return fmt.Sprintf(redisx.KeyDedup, name, eventID)
}

func (s *Service) resolve(ctx context.Context, env sambatan.Envelope) ([]string, string, error) {
	poolID := env.CorrelationID

	switch env.EventType {
	case sambatan.EventNewParticipant:
		// Cukup initiator yg dikabari ada peserta baru.
		pool, err := s.Pools.GetPool(ctx, poolID)
		if err != nil {
			return nil, "", err
		}
		p, err := kafkax.UnwrapPayload[sambatan.NewParticipantPayload](env.Payload)
		if err != nil {
			return nil, "", err
		}
		msg := fmt.Sprintf("Peserta baru bergabung di sambatan kamu (%d/%d unit).",
			p.CurrentQuantity, p.TargetQuantity)
		return []string{pool.InitiatorID}, msg, nil

	case sambatan.EventQuotaReached:
		return s.everyone(ctx, poolID, "Kuota sambatan terpenuhi. Silakan upload bukti pembayaran.")

	case sambatan.EventCompleted:
		return s.everyone(ctx, poolID, "Sambatan selesai: semua pembayaran terverifikasi.")

	case sambatan.EventExpired:
		return s.everyone(ctx, poolID, "Sambatan kedaluwarsa dan dibatalkan.")
	}
	return nil, "", nil
}

// everyone = semua peserta non-cancelled.
func (s *Service) everyone(ctx context.Context, poolID, msg string) ([]string, string, error) {
	parts, err := s.Pools.PoolParticipants(ctx, poolID)
	if err != nil {
		return nil, "", err
	}
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p.PaymentStatus == sambatan.PaymentCancelled {
			continue
		}
		out = append(out, p.UserID)
	}
	return out, msg, nil
}
