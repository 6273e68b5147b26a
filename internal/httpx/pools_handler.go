package httpx

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ariefcatur/go-sambatan-pool.git/internal/blob"
	"github.com/ariefcatur/go-sambatan-pool.git/internal/metrics"
	"github.com/ariefcatur/go-sambatan-pool.git/internal/ratelimit"
	"github.com/ariefcatur/go-sambatan-pool.git/internal/redisx"
	"github.com/ariefcatur/go-sambatan-pool.git/internal/sambatan"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
)

// PoolService is the slice of the engine the HTTP layer needs.
type PoolService interface {
	CreatePool(ctx context.Context, in sambatan.CreatePoolInput) (sambatan.Pool, error)
	JoinPool(ctx context.Context, poolID, userID string, qty int) (sambatan.Participant, error)
	RecordPaymentProof(ctx context.Context, poolID, userID, proofRef string) error
	VerifyPayment(ctx context.Context, poolID, userID string, verified bool, actorID string) error
	CancelPool(ctx context.Context, poolID, actorID string) error
	GetPool(ctx context.Context, poolID string) (sambatan.PoolDetail, error)
	ListOpenPools(ctx context.Context) ([]sambatan.Pool, error)
}

type PoolsHandler struct {
	Svc     PoolService
	Redis   *redis.Client
	Limiter *ratelimit.Limiter
	Proofs  blob.Store
}

func (h *PoolsHandler) Register(r *chi.Mux) {
	r.Post("/sambatan", h.createPool)
	r.Get("/sambatan", h.listOpen)
	r.Get("/sambatan/{id}", h.getPool)
	r.Post("/sambatan/{id}/join", h.joinPool)
	r.Post("/sambatan/{id}/proof", h.uploadProof)
	r.Post("/sambatan/{id}/verify", h.verifyPayment)
	r.Post("/sambatan/{id}/cancel", h.cancelPool)
}

// ---- DTOs ----

type poolResp struct {
	ID              string    `json:"id"`
	ProductID       string    `json:"product_id"`
	InitiatorID     string    `json:"initiator_id"`
	TargetQuantity  int       `json:"target_quantity"`
	CurrentQuantity int       `json:"current_quantity"`
	MaxParticipants int       `json:"max_participants"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
	ExpiresAt       time.Time `json:"expires_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type participantResp struct {
	ID            string    `json:"id"`
	PoolID        string    `json:"pool_id"`
	UserID        string    `json:"user_id"`
	Qty           int       `json:"qty"`
	PaymentStatus string    `json:"payment_status"`
	ProofRef      string    `json:"proof_ref,omitempty"`
	JoinedAt      time.Time `json:"joined_at"`
}

type poolDetailResp struct {
	poolResp
	Participants []participantResp `json:"participants"`
}

func toPoolResp(p sambatan.Pool) poolResp {
	return poolResp{
		ID:              p.ID,
		ProductID:       p.ProductID,
		InitiatorID:     p.InitiatorID,
		TargetQuantity:  p.TargetQuantity,
		CurrentQuantity: p.CurrentQuantity,
		MaxParticipants: p.MaxParticipants,
		Status:          string(p.Status),
		CreatedAt:       p.CreatedAt,
		ExpiresAt:       p.ExpiresAt,
		UpdatedAt:       p.UpdatedAt,
	}
}

func toParticipantResp(p sambatan.Participant) participantResp {
	return participantResp{
		ID:            p.ID,
		PoolID:        p.PoolID,
		UserID:        p.UserID,
		Qty:           p.Qty,
		PaymentStatus: string(p.PaymentStatus),
		ProofRef:      p.ProofRef,
		JoinedAt:      p.JoinedAt,
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, err error) {
	writeJSON(w, statusFromErr(err), map[string]string{"error": err.Error()})
}

// ---- handlers ----

type createPoolReq struct {
	InitiatorID     string `json:"initiator_id"`
	ProductID       string `json:"product_id"`
	TargetQuantity  int    `json:"target_quantity"`
	MaxParticipants int    `json:"max_participants"`
	ExpirationDays  int    `json:"expiration_days"`
}

func (h *PoolsHandler) createPool(w http.ResponseWriter, r *http.Request) {
	var req createPoolReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.InitiatorID == "" || req.ProductID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing fields"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if !h.Limiter.Allow(ctx, "create", req.InitiatorID) {
		writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "too many requests"})
		return
	}

	pool, err := h.Svc.CreatePool(ctx, sambatan.CreatePoolInput{
		InitiatorID:     req.InitiatorID,
		ProductID:       req.ProductID,
		TargetQuantity:  req.TargetQuantity,
		MaxParticipants: req.MaxParticipants,
		ExpirationDays:  req.ExpirationDays,
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPoolResp(pool))
}

type joinReq struct {
	UserID string `json:"user_id"`
	Qty    int    `json:"qty"`
}

func (h *PoolsHandler) joinPool(w http.ResponseWriter, r *http.Request) {
	poolID := chi.URLParam(r, "id")
	var req joinReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.UserID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing user_id"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if !h.Limiter.Allow(ctx, "join", req.UserID) {
		writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "too many requests"})
		return
	}

	part, err := h.Svc.JoinPool(ctx, poolID, req.UserID, req.Qty)
	metrics.ObserveJoin(outcome(err))
	if err != nil {
		writeErr(w, err)
		return
	}
	h.invalidate(ctx, poolID)
	writeJSON(w, http.StatusCreated, toParticipantResp(part))
}

type proofReq struct {
	UserID      string `json:"user_id"`
	ProofBase64 string `json:"proof_base64"`
	ContentType string `json:"content_type"`
}

// uploadProof stores the proof blob and records its ref on the participant.
// Upload base64 di body mengikuti pola upload yg sudah dipakai app lain di
// platform ini.
func (h *PoolsHandler) uploadProof(w http.ResponseWriter, r *http.Request) {
	poolID := chi.URLParam(r, "id")
	var req proofReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.UserID == "" || req.ProofBase64 == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing fields"})
		return
	}
	data, err := base64.StdEncoding.DecodeString(req.ProofBase64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid base64"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	ref, err := h.Proofs.Save(ctx, poolID, req.UserID, data, req.ContentType)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if err := h.Svc.RecordPaymentProof(ctx, poolID, req.UserID, ref); err != nil {
		writeErr(w, err)
		return
	}
	h.invalidate(ctx, poolID)
	writeJSON(w, http.StatusOK, map[string]string{"proof_ref": ref})
}

type verifyReq struct {
	UserID   string `json:"user_id"`
	Verified *bool  `json:"verified"`
	ActorID  string `json:"actor_id"`
}

func (h *PoolsHandler) verifyPayment(w http.ResponseWriter, r *http.Request) {
	poolID := chi.URLParam(r, "id")
	var req verifyReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.UserID == "" || req.ActorID == "" || req.Verified == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing fields"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.Svc.VerifyPayment(ctx, poolID, req.UserID, *req.Verified, req.ActorID); err != nil {
		writeErr(w, err)
		return
	}
	h.invalidate(ctx, poolID)
	w.WriteHeader(http.StatusNoContent)
}

type cancelReq struct {
	ActorID string `json:"actor_id"`
}

func (h *PoolsHandler) cancelPool(w http.ResponseWriter, r *http.Request) {
	poolID := chi.URLParam(r, "id")
	var req cancelReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.ActorID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing actor_id"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.Svc.CancelPool(ctx, poolID, req.ActorID); err != nil {
		writeErr(w, err)
		return
	}
	h.invalidate(ctx, poolID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *PoolsHandler) getPool(w http.ResponseWriter, r *http.Request) {
	poolID := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	// 1) coba cache
	key := fmt.Sprintf(redisx.KeyPoolCache, poolID)
	if h.Redis != nil {
		if s, err := h.Redis.Get(ctx, key).Result(); err == nil && s != "" {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(s))
			return
		}
	}

	// 2) fallback DB
	detail, err := h.Svc.GetPool(ctx, poolID)
	if err != nil {
		writeErr(w, err)
		return
	}
	resp := poolDetailResp{poolResp: toPoolResp(detail.Pool)}
	resp.Participants = make([]participantResp, 0, len(detail.Participants))
	for _, p := range detail.Participants {
		resp.Participants = append(resp.Participants, toParticipantResp(p))
	}
	b, _ := json.Marshal(resp)
	if h.Redis != nil {
		_ = h.Redis.Set(ctx, key, b, redisx.TTLPoolCache).Err()
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(b)
}

func (h *PoolsHandler) listOpen(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	pools, err := h.Svc.ListOpenPools(ctx)
	if err != nil {
		writeErr(w, err)
		return
	}
	out := make([]poolResp, 0, len(pools))
	for _, p := range pools {
		out = append(out, toPoolResp(p))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *PoolsHandler) invalidate(ctx context.Context, poolID string) {
	if h.Redis == nil {
		return
	}
	_ = h.Redis.Del(ctx, fmt.Sprintf(redisx.KeyPoolCache, poolID)).Err()
}
