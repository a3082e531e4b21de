package repository

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"
)

type Profile struct {
	ID               uuid.UUID      `json:"id"`
	Email            sql.NullString `json:"email"`
	MembershipTier   string         `json:"membership_tier"`
	MembershipStatus string         `json:"membership_status"`
	RenewsAt         sql.NullTime   `json:"renews_at"`
	StripeCustomerID sql.NullString `json:"stripe_customer_id"`
	SubscriptionID   sql.NullString `json:"subscription_id"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

type UsageRecord struct {
	ID        uuid.UUID             `json:"id"`
	UserID    uuid.UUID             `json:"user_id"`
	Namespace string                `json:"namespace"`
	Feature   string                `json:"feature"`
	Metadata  pqtype.NullRawMessage `json:"metadata"`
	CreatedAt time.Time             `json:"created_at"`
}
