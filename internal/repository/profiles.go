package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
)

const profileColumns = `id, email, membership_tier, membership_status, renews_at,
	stripe_customer_id, subscription_id, created_at, updated_at`

func scanProfile(row *sql.Row) (Profile, error) {
	var p Profile
	err := row.Scan(
		&p.ID,
		&p.Email,
		&p.MembershipTier,
		&p.MembershipStatus,
		&p.RenewsAt,
		&p.StripeCustomerID,
		&p.SubscriptionID,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	return p, err
}

const getProfile = `SELECT ` + profileColumns + ` FROM profiles WHERE id = $1`

func (q *Queries) GetProfile(ctx context.Context, id uuid.UUID) (Profile, error) {
	return scanProfile(q.db.QueryRowContext(ctx, getProfile, id))
}

const getProfileByStripeCustomerID = `SELECT ` + profileColumns + ` FROM profiles WHERE stripe_customer_id = $1`

func (q *Queries) GetProfileByStripeCustomerID(ctx context.Context, stripeCustomerID string) (Profile, error) {
	return scanProfile(q.db.QueryRowContext(ctx, getProfileByStripeCustomerID, stripeCustomerID))
}

const updateProfileMembership = `UPDATE profiles
SET membership_tier = $2,
    membership_status = $3,
    subscription_id = $4,
    renews_at = $5,
    updated_at = NOW()
WHERE id = $1`

type UpdateProfileMembershipParams struct {
	ID               uuid.UUID
	MembershipTier   string
	MembershipStatus string
	SubscriptionID   sql.NullString
	RenewsAt         sql.NullTime
}

func (q *Queries) UpdateProfileMembership(ctx context.Context, arg UpdateProfileMembershipParams) error {
	_, err := q.db.ExecContext(ctx, updateProfileMembership,
		arg.ID,
		arg.MembershipTier,
		arg.MembershipStatus,
		arg.SubscriptionID,
		arg.RenewsAt,
	)
	return err
}

const linkProfileStripeCustomer = `UPDATE profiles
SET stripe_customer_id = $2,
    updated_at = NOW()
WHERE id = $1`

// LinkProfileStripeCustomer returns sql.ErrNoRows when no profile has id.
func (q *Queries) LinkProfileStripeCustomer(ctx context.Context, id uuid.UUID, stripeCustomerID string) error {
	res, err := q.db.ExecContext(ctx, linkProfileStripeCustomer, id, stripeCustomerID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
