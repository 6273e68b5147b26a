package notifier

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/ariefcatur/go-sambatan-pool.git/internal/sambatan"
)

type fakePools struct {
	pool  sambatan.Pool
	parts []sambatan.Participant
	err   error
}

func (f *fakePools) GetPool(context.Context, string) (sambatan.Pool, error) {
	return f.pool, f.err
}

func (f *fakePools) PoolParticipants(context.Context, string) ([]sambatan.Participant, error) {
	return f.parts, f.err
}

func envelope(eventType string, payload []byte) sambatan.Envelope {
	return sambatan.Envelope{
		EventID:       "ev-1",
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
		Producer:      "test",
		CorrelationID: "pool-1",
		Payload:       payload,
	}
}

func TestResolveNewParticipant(t *testing.T) {
	pools := &fakePools{
		pool: sambatan.Pool{ID: "pool-1", InitiatorID: "init-1"},
	}
	svc := &Service{Pools: pools, ServiceName: "test"}

	payload := []byte(`{"pool_id":"pool-1","user_id":"user-2","qty":2,"current_quantity":3,"target_quantity":5}`)
	recipients, msg, err := svc.resolve(context.Background(), envelope(sambatan.EventNewParticipant, payload))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(recipients) != 1 || recipients[0] != "init-1" {
		t.Fatalf("only the initiator should be notified, got %v", recipients)
	}
	if !strings.Contains(msg, "3/5") {
		t.Fatalf("message should carry progress, got %q", msg)
	}
}

func TestResolveBroadcastSkipsCancelled(t *testing.T) {
	pools := &fakePools{
		parts: []sambatan.Participant{
			{UserID: "init-1", PaymentStatus: sambatan.PaymentVerified},
			{UserID: "user-2", PaymentStatus: sambatan.PaymentPending},
			{UserID: "user-3", PaymentStatus: sambatan.PaymentCancelled},
		},
	}
	svc := &Service{Pools: pools, ServiceName: "test"}

	for _, eventType := range []string{
		sambatan.EventQuotaReached,
		sambatan.EventCompleted,
		sambatan.EventExpired,
	} {
		recipients, msg, err := svc.resolve(context.Background(), envelope(eventType, []byte(`{}`)))
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", eventType, err)
		}
		if msg == "" {
			t.Fatalf("%s: expected a message", eventType)
		}
		sort.Strings(recipients)
		if len(recipients) != 2 || recipients[0] != "init-1" || recipients[1] != "user-2" {
			t.Fatalf("%s: cancelled participant must be skipped, got %v", eventType, recipients)
		}
	}
}

func TestResolveUnknownEventType(t *testing.T) {
	svc := &Service{Pools: &fakePools{}, ServiceName: "test"}

	recipients, msg, err := svc.resolve(context.Background(), envelope("something.else", []byte(`{}`)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if recipients != nil || msg != "" {
		t.Fatalf("unknown type should resolve to nothing, got %v %q", recipients, msg)
	}
}

func TestDedupKeyCarriesServiceName(t *testing.T) {
	svc := &Service{ServiceName: "sambatan-notifier"}
	if got := svc.dedupKey("ev-1"); got != "dedup:sambatan-notifier:ev-1" {
		t.Fatalf("unexpected key %q", got)
	}

	// instance tanpa nama tetap dapat namespace yg stabil
	svc = &Service{}
	if got := svc.dedupKey("ev-1"); got != "dedup:notifier:ev-1" {
		t.Fatalf("unexpected fallback key %q", got)
	}
}

func TestResolvePropagatesReaderError(t *testing.T) {
	sentinel := errors.New("db down")
	svc := &Service{Pools: &fakePools{err: sentinel}, ServiceName: "test"}

	_, _, err := svc.resolve(context.Background(), envelope(sambatan.EventQuotaReached, []byte(`{}`)))
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected reader error, got %v", err)
	}
}
