package sambatan

import "time"

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentVerified  PaymentStatus = "VERIFIED"
	PaymentCancelled PaymentStatus = "CANCELLED"
)

type Pool struct {
	ID              string
	ProductID       string
	InitiatorID     string
	TargetQuantity  int
	CurrentQuantity int
	MaxParticipants int
	Status          Status // lihat status.go
	CreatedAt       time.Time
	ExpiresAt       time.Time
	UpdatedAt       time.Time
}

type Participant struct {
	ID            string
	PoolID        string
	UserID        string
	Qty           int
	PaymentStatus PaymentStatus
	ProofRef      string // opaque blob reference, empty until a proof is uploaded
	JoinedAt      time.Time
	UpdatedAt     time.Time
}

// PoolDetail is what GetPool returns: the pool plus its participants.
type PoolDetail struct {
	Pool
	Participants []Participant
}

// ProductInfo is the read-only slice of the product catalog this engine needs.
type ProductInfo struct {
	ID         string
	SellerID   string
	Name       string
	PriceCents int
	// MaxBuyers > 0 is a seller-imposed hard cap on participants.
	MaxBuyers int
}
