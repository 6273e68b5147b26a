package sambatan

import (
	"context"
	"time"

	"github.com/ariefcatur/go-sambatan-pool.git/internal/clock"
	"github.com/ariefcatur/go-sambatan-pool.git/internal/metrics"
	"github.com/google/uuid"
)

// Repository is the persistence contract for the pool engine. The postgres
// implementation lives in repo.go; tests use an in-memory fake.
//
// Semua mutasi dipanggil di dalam WithTx; GetPoolForUpdate mengunci row pool
// sehingga admission check + increment + insert jadi satu unit atomik.
type Repository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error

	CreatePool(ctx context.Context, p Pool) error
	GetPool(ctx context.Context, poolID string) (Pool, error)
	GetPoolForUpdate(ctx context.Context, poolID string) (Pool, error)
	ListOpenPools(ctx context.Context, now time.Time) ([]Pool, error)

	// CreateParticipant returns ErrAlreadyJoined when the (pool_id, user_id)
	// uniqueness constraint rejects the row.
	CreateParticipant(ctx context.Context, p Participant) error
	GetParticipant(ctx context.Context, poolID, userID string) (Participant, error)
	PoolParticipants(ctx context.Context, poolID string) ([]Participant, error)
	CountActiveParticipants(ctx context.Context, poolID string) (int, error)

	// AddQuantity increments current_quantity guarded by the same admission
	// condition the service already checked under the row lock (status,
	// expiry, capacity). Zero rows affected surfaces as ErrQuotaExceeded.
	AddQuantity(ctx context.Context, poolID string, qty int, now time.Time) error
	ReleaseQuantity(ctx context.Context, poolID string, qty int, now time.Time) error

	SetProofRef(ctx context.Context, poolID, userID, ref string, now time.Time) error
	SetPaymentStatus(ctx context.Context, poolID, userID string, st PaymentStatus, now time.Time) error
	CountPaymentStatus(ctx context.Context, poolID string) (pending, verified, cancelled int, err error)

	// Transition flips status from -> to conditionally; applied=false means
	// the row was no longer in `from`.
	Transition(ctx context.Context, poolID string, from, to Status, now time.Time) (bool, error)

	// ExpireOpenPools cancels every open pool whose expires_at has passed and
	// returns the affected pools. Safe to call repeatedly.
	ExpireOpenPools(ctx context.Context, now time.Time) ([]Pool, error)
}

// ProductCatalog is the read-only product collaborator.
type ProductCatalog interface {
	Product(ctx context.Context, productID string) (ProductInfo, error)
}

// IdentityDirectory answers role checks for restricted operations.
type IdentityDirectory interface {
	IsAdmin(ctx context.Context, actorID string) (bool, error)
}

// Emitter receives lifecycle events after the producing transaction has
// committed. Implementations must never block the caller on delivery.
type Emitter interface {
	Emit(ctx context.Context, ev Envelope)
}

const (
	DefaultExpirationDays = 7
	defaultMaxRetries     = 3
)

type Service struct {
	Repo        Repository
	Products    ProductCatalog
	Identity    IdentityDirectory
	Emitter     Emitter
	Clock       clock.Clock
	ServiceName string
	MaxRetries  int // 0 = defaultMaxRetries
}

type CreatePoolInput struct {
	InitiatorID     string
	ProductID       string
	TargetQuantity  int
	MaxParticipants int // 0 = defaults to TargetQuantity
	ExpirationDays  int // 0 = DefaultExpirationDays
}

func (s *Service) CreatePool(ctx context.Context, in CreatePoolInput) (Pool, error) {
	if in.TargetQuantity < 2 {
		return Pool{}, ErrInvalidTarget
	}
	maxP := in.MaxParticipants
	if maxP == 0 {
		maxP = in.TargetQuantity
	}
	if maxP < in.TargetQuantity {
		return Pool{}, ErrInvalidMaxParticipants
	}

	prod, err := s.Products.Product(ctx, in.ProductID)
	if err != nil {
		return Pool{}, err
	}
	// Seller hard cap menang atas permintaan initiator.
	if prod.MaxBuyers > 0 && maxP > prod.MaxBuyers {
		maxP = prod.MaxBuyers
		if maxP < in.TargetQuantity {
			return Pool{}, ErrInvalidMaxParticipants
		}
	}

	days := in.ExpirationDays
	if days <= 0 {
		days = DefaultExpirationDays
	}

	now := s.Clock.Now()
	pool := Pool{
		ID:              uuid.NewString(),
		ProductID:       in.ProductID,
		InitiatorID:     in.InitiatorID,
		TargetQuantity:  in.TargetQuantity,
		CurrentQuantity: 1, // initiator ikut 1 unit
		MaxParticipants: maxP,
		Status:          StatusOpen,
		CreatedAt:       now,
		ExpiresAt:       now.AddDate(0, 0, days),
		UpdatedAt:       now,
	}
	initiator := Participant{
		ID:            uuid.NewString(),
		PoolID:        pool.ID,
		UserID:        in.InitiatorID,
		Qty:           1,
		PaymentStatus: PaymentPending,
		JoinedAt:      now,
		UpdatedAt:     now,
	}

	err = s.Repo.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.Repo.CreatePool(txCtx, pool); err != nil {
			return err
		}
		return s.Repo.CreateParticipant(txCtx, initiator)
	})
	if err != nil {
		return Pool{}, err
	}
	return pool, nil
}

func (s *Service) JoinPool(ctx context.Context, poolID, userID string, qty int) (Participant, error) {
	if qty <= 0 {
		return Participant{}, ErrInvalidQuantity
	}

	var (
		joined Participant
		pool   Pool
		closed bool
	)
	err := s.retry(func() error {
		closed = false
		return s.Repo.WithTx(ctx, func(txCtx context.Context) error {
			now := s.Clock.Now()

			var err error
			pool, err = s.Repo.GetPoolForUpdate(txCtx, poolID)
			if err != nil {
				return err
			}
			// Cek kapasitas duluan: pool yg CLOSED karena kuotanya penuh
			// tetap dilaporkan sebagai kuota habis, bukan "not open".
			if pool.CurrentQuantity+qty > pool.TargetQuantity {
				return ErrQuotaExceeded
			}
			if pool.Status != StatusOpen {
				return ErrPoolNotOpen
			}
			if !pool.ExpiresAt.After(now) {
				return ErrPoolExpired
			}
			count, err := s.Repo.CountActiveParticipants(txCtx, poolID)
			if err != nil {
				return err
			}
			if count >= pool.MaxParticipants {
				return ErrParticipantLimitReached
			}

			joined = Participant{
				ID:            uuid.NewString(),
				PoolID:        poolID,
				UserID:        userID,
				Qty:           qty,
				PaymentStatus: PaymentPending,
				JoinedAt:      now,
				UpdatedAt:     now,
			}
			// Uniqueness constraint di DB yg menolak duplicate join, bukan
			// pre-check; pre-check sendiri race-prone.
			if err := s.Repo.CreateParticipant(txCtx, joined); err != nil {
				return err
			}
			if err := s.Repo.AddQuantity(txCtx, poolID, qty, now); err != nil {
				return err
			}
			pool.CurrentQuantity += qty

			if pool.CurrentQuantity == pool.TargetQuantity {
				if err := s.closeIfFull(txCtx, pool, now); err != nil {
					return err
				}
				closed = true
			}
			return nil
		})
	})
	if err != nil {
		return Participant{}, err
	}

	s.emit(ctx, pool.ID, EventNewParticipant, NewParticipantPayload{
		PoolID:          pool.ID,
		UserID:          userID,
		Qty:             qty,
		CurrentQuantity: pool.CurrentQuantity,
		TargetQuantity:  pool.TargetQuantity,
	})
	if closed {
		s.emit(ctx, pool.ID, EventQuotaReached, QuotaReachedPayload{
			PoolID:         pool.ID,
			TargetQuantity: pool.TargetQuantity,
		})
	}
	return joined, nil
}

// RecordPaymentProof attaches an opaque proof reference to a participant.
// Calling it again with the same ref is a no-op.
func (s *Service) RecordPaymentProof(ctx context.Context, poolID, userID, proofRef string) error {
	if proofRef == "" {
		return ErrInvalidProofRef
	}
	if _, err := s.Repo.GetPool(ctx, poolID); err != nil {
		return err
	}
	return s.Repo.SetProofRef(ctx, poolID, userID, proofRef, s.Clock.Now())
}

func (s *Service) VerifyPayment(ctx context.Context, poolID, userID string, verified bool, actorID string) error {
	var (
		completed     bool
		verifiedCount int
	)
	err := s.retry(func() error {
		completed = false
		return s.Repo.WithTx(ctx, func(txCtx context.Context) error {
			now := s.Clock.Now()

			pool, err := s.Repo.GetPoolForUpdate(txCtx, poolID)
			if err != nil {
				return err
			}
			if err := s.authorize(txCtx, pool, actorID); err != nil {
				return err
			}
			part, err := s.Repo.GetParticipant(txCtx, poolID, userID)
			if err != nil {
				return err
			}

			if verified {
				if part.PaymentStatus != PaymentVerified {
					if err := s.Repo.SetPaymentStatus(txCtx, poolID, userID, PaymentVerified, now); err != nil {
						return err
					}
				}
			} else if part.PaymentStatus != PaymentCancelled {
				if err := s.Repo.SetPaymentStatus(txCtx, poolID, userID, PaymentCancelled, now); err != nil {
					return err
				}
				// Kuota peserta yg ditolak dilepas dari counter supaya
				// current_quantity tetap = jumlah qty peserta aktif.
				// Pool CLOSED tidak dibuka lagi: kapasitas hangus.
				if err := s.Repo.ReleaseQuantity(txCtx, poolID, part.Qty, now); err != nil {
					return err
				}
			}

			if pool.Status == StatusClosed {
				completed, verifiedCount, err = s.completeIfAllVerified(txCtx, pool, now)
				if err != nil {
					return err
				}
			}
			return nil
		})
	})
	if err != nil {
		return err
	}

	if completed {
		s.emit(ctx, poolID, EventCompleted, CompletedPayload{
			PoolID:        poolID,
			VerifiedCount: verifiedCount,
		})
	}
	return nil
}

// CancelPool is the manual cancel, restricted to the initiator or an admin.
func (s *Service) CancelPool(ctx context.Context, poolID, actorID string) error {
	return s.retry(func() error {
		return s.Repo.WithTx(ctx, func(txCtx context.Context) error {
			pool, err := s.Repo.GetPoolForUpdate(txCtx, poolID)
			if err != nil {
				return err
			}
			if err := s.authorize(txCtx, pool, actorID); err != nil {
				return err
			}
			return s.transition(txCtx, pool, StatusCancelled, s.Clock.Now())
		})
	})
}

// CancelExpired sweeps every stale open pool to CANCELLED and emits one
// expired event per pool. Idempotent: terminal pools are never touched.
func (s *Service) CancelExpired(ctx context.Context) ([]Pool, error) {
	now := s.Clock.Now()
	expired, err := s.Repo.ExpireOpenPools(ctx, now)
	if err != nil {
		return nil, err
	}
	for _, p := range expired {
		s.emit(ctx, p.ID, EventExpired, ExpiredPayload{PoolID: p.ID, ExpiredAt: p.ExpiresAt})
	}
	return expired, nil
}

func (s *Service) GetPool(ctx context.Context, poolID string) (PoolDetail, error) {
	pool, err := s.Repo.GetPool(ctx, poolID)
	if err != nil {
		return PoolDetail{}, err
	}
	parts, err := s.Repo.PoolParticipants(ctx, poolID)
	if err != nil {
		return PoolDetail{}, err
	}
	return PoolDetail{Pool: pool, Participants: parts}, nil
}

func (s *Service) ListOpenPools(ctx context.Context) ([]Pool, error) {
	return s.Repo.ListOpenPools(ctx, s.Clock.Now())
}

// ---- transitions (satu-satunya jalur perubahan status) ----

func (s *Service) closeIfFull(ctx context.Context, pool Pool, now time.Time) error {
	return s.transition(ctx, pool, StatusClosed, now)
}

// completeIfAllVerified: pool CLOSED selesai kalau tidak ada pembayaran
// PENDING dan minimal satu VERIFIED. Peserta CANCELLED diabaikan.
func (s *Service) completeIfAllVerified(ctx context.Context, pool Pool, now time.Time) (bool, int, error) {
	pending, verified, _, err := s.Repo.CountPaymentStatus(ctx, pool.ID)
	if err != nil {
		return false, 0, err
	}
	if pending > 0 || verified == 0 {
		return false, 0, nil
	}
	if err := s.transition(ctx, pool, StatusCompleted, now); err != nil {
		return false, 0, err
	}
	return true, verified, nil
}

func (s *Service) transition(ctx context.Context, pool Pool, to Status, now time.Time) error {
	if !CanTransition(pool.Status, to) {
		return ErrInvalidTransition
	}
	applied, err := s.Repo.Transition(ctx, pool.ID, pool.Status, to, now)
	if err != nil {
		return err
	}
	if !applied {
		// Row sudah pindah status di bawah kita; biarkan caller retry dgn
		// state yg fresh.
		return errSerialization
	}
	metrics.ObserveTransition(string(to))
	return nil
}

func (s *Service) authorize(ctx context.Context, pool Pool, actorID string) error {
	if actorID == pool.InitiatorID {
		return nil
	}
	ok, err := s.Identity.IsAdmin(ctx, actorID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotAuthorized
	}
	return nil
}

func (s *Service) retry(fn func() error) error {
	attempts := s.MaxRetries
	if attempts <= 0 {
		attempts = defaultMaxRetries
	}
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); !Retryable(err) {
			return err
		}
	}
	return ErrRetryExhausted
}

func (s *Service) emit(ctx context.Context, poolID, eventType string, payload any) {
	if s.Emitter == nil {
		return
	}
	s.Emitter.Emit(ctx, Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    s.Clock.Now(),
		Producer:      s.ServiceName,
		CorrelationID: poolID,
		Payload:       mustJSON(payload),
	})
}
