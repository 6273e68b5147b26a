package sambatan

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repo is the pgx-backed Repository.
type Repo struct{ DB *pgxpool.Pool }

type txKey struct{}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (r *Repo) q(ctx context.Context) querier {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx
	}
	return r.DB
}

// WithTx runs fn inside a transaction carried on the context. Nested calls
// reuse the outer transaction.
func (r *Repo) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return fn(ctx)
	}
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	txCtx := context.WithValue(ctx, txKey{}, tx)
	if err := fn(txCtx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return mapPgErr(err)
	}
	return nil
}

const poolColumns = `id, product_id, initiator_id, target_quantity, current_quantity,
	max_participants, status, created_at, expires_at, updated_at`

func (r *Repo) CreatePool(ctx context.Context, p Pool) error {
	_, err := r.q(ctx).Exec(ctx, `
		INSERT INTO pools(id, product_id, initiator_id, target_quantity, current_quantity,
		                  max_participants, status, created_at, expires_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		p.ID, p.ProductID, p.InitiatorID, p.TargetQuantity, p.CurrentQuantity,
		p.MaxParticipants, p.Status, p.CreatedAt, p.ExpiresAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert pool: %w", mapPgErr(err))
	}
	return nil
}

func (r *Repo) GetPool(ctx context.Context, poolID string) (Pool, error) {
	return r.scanPool(r.q(ctx).QueryRow(ctx,
		`SELECT `+poolColumns+` FROM pools WHERE id=$1`, poolID))
}

func (r *Repo) GetPoolForUpdate(ctx context.Context, poolID string) (Pool, error) {
	return r.scanPool(r.q(ctx).QueryRow(ctx,
		`SELECT `+poolColumns+` FROM pools WHERE id=$1 FOR UPDATE`, poolID))
}

func (r *Repo) scanPool(row pgx.Row) (Pool, error) {
	var p Pool
	err := row.Scan(&p.ID, &p.ProductID, &p.InitiatorID, &p.TargetQuantity, &p.CurrentQuantity,
		&p.MaxParticipants, &p.Status, &p.CreatedAt, &p.ExpiresAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Pool{}, ErrPoolNotFound
		}
		return Pool{}, fmt.Errorf("scan pool: %w", mapPgErr(err))
	}
	return p, nil
}

func (r *Repo) ListOpenPools(ctx context.Context, now time.Time) ([]Pool, error) {
	rows, err := r.q(ctx).Query(ctx, `
		SELECT `+poolColumns+` FROM pools
		WHERE status=$1 AND expires_at > $2
		ORDER BY expires_at`, StatusOpen, now)
	if err != nil {
		return nil, fmt.Errorf("list open pools: %w", err)
	}
	defer rows.Close()

	var out []Pool
	for rows.Next() {
		var p Pool
		if err := rows.Scan(&p.ID, &p.ProductID, &p.InitiatorID, &p.TargetQuantity, &p.CurrentQuantity,
			&p.MaxParticipants, &p.Status, &p.CreatedAt, &p.ExpiresAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

const participantColumns = `id, pool_id, user_id, quantity, payment_status,
	COALESCE(proof_ref, ''), joined_at, updated_at`

func (r *Repo) CreateParticipant(ctx context.Context, p Participant) error {
	_, err := r.q(ctx).Exec(ctx, `
		INSERT INTO participants(id, pool_id, user_id, quantity, payment_status, joined_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		p.ID, p.PoolID, p.UserID, p.Qty, p.PaymentStatus, p.JoinedAt, p.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyJoined
		}
		return fmt.Errorf("insert participant: %w", mapPgErr(err))
	}
	return nil
}

func (r *Repo) GetParticipant(ctx context.Context, poolID, userID string) (Participant, error) {
	var p Participant
	err := r.q(ctx).QueryRow(ctx, `
		SELECT `+participantColumns+` FROM participants
		WHERE pool_id=$1 AND user_id=$2`, poolID, userID).
		Scan(&p.ID, &p.PoolID, &p.UserID, &p.Qty, &p.PaymentStatus, &p.ProofRef, &p.JoinedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Participant{}, ErrParticipantNotFound
		}
		return Participant{}, fmt.Errorf("get participant: %w", mapPgErr(err))
	}
	return p, nil
}

func (r *Repo) PoolParticipants(ctx context.Context, poolID string) ([]Participant, error) {
	rows, err := r.q(ctx).Query(ctx, `
		SELECT `+participantColumns+` FROM participants
		WHERE pool_id=$1 ORDER BY joined_at`, poolID)
	if err != nil {
		return nil, fmt.Errorf("pool participants: %w", err)
	}
	defer rows.Close()

	var out []Participant
	for rows.Next() {
		var p Participant
		if err := rows.Scan(&p.ID, &p.PoolID, &p.UserID, &p.Qty, &p.PaymentStatus, &p.ProofRef, &p.JoinedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Repo) CountActiveParticipants(ctx context.Context, poolID string) (int, error) {
	var n int
	err := r.q(ctx).QueryRow(ctx, `
		SELECT COUNT(*) FROM participants
		WHERE pool_id=$1 AND payment_status <> $2`, poolID, PaymentCancelled).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count participants: %w", err)
	}
	return n, nil
}

// AddQuantity re-states the admission condition in the WHERE clause even
// though the caller holds the row lock: rows-affected != 1 berarti ada yg
// salah dan transaksi harus gagal, bukan diam-diam lolos.
func (r *Repo) AddQuantity(ctx context.Context, poolID string, qty int, now time.Time) error {
	ct, err := r.q(ctx).Exec(ctx, `
		UPDATE pools
		SET current_quantity = current_quantity + $2, updated_at = $3
		WHERE id = $1
		  AND status = $4
		  AND expires_at > $3
		  AND current_quantity + $2 <= target_quantity`,
		poolID, qty, now, StatusOpen,
	)
	if err != nil {
		return fmt.Errorf("add quantity: %w", mapPgErr(err))
	}
	if ct.RowsAffected() != 1 {
		return ErrQuotaExceeded
	}
	return nil
}

func (r *Repo) ReleaseQuantity(ctx context.Context, poolID string, qty int, now time.Time) error {
	ct, err := r.q(ctx).Exec(ctx, `
		UPDATE pools
		SET current_quantity = current_quantity - $2, updated_at = $3
		WHERE id = $1 AND current_quantity >= $2`,
		poolID, qty, now,
	)
	if err != nil {
		return fmt.Errorf("release quantity: %w", mapPgErr(err))
	}
	if ct.RowsAffected() != 1 {
		return fmt.Errorf("release quantity: counter underflow for pool %s", poolID)
	}
	return nil
}

func (r *Repo) SetProofRef(ctx context.Context, poolID, userID, ref string, now time.Time) error {
	ct, err := r.q(ctx).Exec(ctx, `
		UPDATE participants SET proof_ref=$3, updated_at=$4
		WHERE pool_id=$1 AND user_id=$2`,
		poolID, userID, ref, now,
	)
	if err != nil {
		return fmt.Errorf("set proof ref: %w", mapPgErr(err))
	}
	if ct.RowsAffected() != 1 {
		return ErrParticipantNotFound
	}
	return nil
}

func (r *Repo) SetPaymentStatus(ctx context.Context, poolID, userID string, st PaymentStatus, now time.Time) error {
	ct, err := r.q(ctx).Exec(ctx, `
		UPDATE participants SET payment_status=$3, updated_at=$4
		WHERE pool_id=$1 AND user_id=$2`,
		poolID, userID, st, now,
	)
	if err != nil {
		return fmt.Errorf("set payment status: %w", mapPgErr(err))
	}
	if ct.RowsAffected() != 1 {
		return ErrParticipantNotFound
	}
	return nil
}

func (r *Repo) CountPaymentStatus(ctx context.Context, poolID string) (pending, verified, cancelled int, err error) {
	err = r.q(ctx).QueryRow(ctx, `
		SELECT COUNT(*) FILTER (WHERE payment_status = $2),
		       COUNT(*) FILTER (WHERE payment_status = $3),
		       COUNT(*) FILTER (WHERE payment_status = $4)
		FROM participants WHERE pool_id = $1`,
		poolID, PaymentPending, PaymentVerified, PaymentCancelled,
	).Scan(&pending, &verified, &cancelled)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("count payment status: %w", err)
	}
	return pending, verified, cancelled, nil
}

func (r *Repo) Transition(ctx context.Context, poolID string, from, to Status, now time.Time) (bool, error) {
	ct, err := r.q(ctx).Exec(ctx, `
		UPDATE pools SET status=$3, updated_at=$4
		WHERE id=$1 AND status=$2`,
		poolID, from, to, now,
	)
	if err != nil {
		return false, fmt.Errorf("transition %s->%s: %w", from, to, mapPgErr(err))
	}
	return ct.RowsAffected() == 1, nil
}

func (r *Repo) ExpireOpenPools(ctx context.Context, now time.Time) ([]Pool, error) {
	rows, err := r.q(ctx).Query(ctx, `
		UPDATE pools SET status=$1, updated_at=$2
		WHERE status=$3 AND expires_at <= $2
		RETURNING `+poolColumns, StatusCancelled, now, StatusOpen)
	if err != nil {
		return nil, fmt.Errorf("expire open pools: %w", err)
	}
	defer rows.Close()

	var out []Pool
	for rows.Next() {
		var p Pool
		if err := rows.Scan(&p.ID, &p.ProductID, &p.InitiatorID, &p.TargetQuantity, &p.CurrentQuantity,
			&p.MaxParticipants, &p.Status, &p.CreatedAt, &p.ExpiresAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ---- SQLSTATE mapping ----

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func mapPgErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// serialization_failure / deadlock_detected: boleh retry.
		if pgErr.Code == "40001" || pgErr.Code == "40P01" {
			return fmt.Errorf("%w: %s", errSerialization, pgErr.Code)
		}
	}
	return err
}
