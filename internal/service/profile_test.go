package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DukeRupert/dealroom/internal/cache"
	"github.com/DukeRupert/dealroom/internal/domain"
	"github.com/DukeRupert/dealroom/internal/repository"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProfileStore struct {
	profiles map[uuid.UUID]repository.Profile
	getErr   error
	gets     int
	updates  []repository.UpdateProfileMembershipParams
}

func (f *fakeProfileStore) LinkProfileStripeCustomer(ctx context.Context, id uuid.UUID, stripeCustomerID string) error {
	p, ok := f.profiles[id]
	if !ok {
		return sql.ErrNoRows
	}
	p.StripeCustomerID = domain.ToNullString(stripeCustomerID)
	f.profiles[id] = p
	return nil
}

func newFakeProfileStore() *fakeProfileStore {
	return &fakeProfileStore{profiles: make(map[uuid.UUID]repository.Profile)}
}

func (f *fakeProfileStore) GetProfile(ctx context.Context, id uuid.UUID) (repository.Profile, error) {
	f.gets++
	if f.getErr != nil {
		return repository.Profile{}, f.getErr
	}
	p, ok := f.profiles[id]
	if !ok {
		return repository.Profile{}, sql.ErrNoRows
	}
	return p, nil
}

func (f *fakeProfileStore) GetProfileByStripeCustomerID(ctx context.Context, customerID string) (repository.Profile, error) {
	for _, p := range f.profiles {
		if p.StripeCustomerID.Valid && p.StripeCustomerID.String == customerID {
			return p, nil
		}
	}
	return repository.Profile{}, sql.ErrNoRows
}

func (f *fakeProfileStore) UpdateProfileMembership(ctx context.Context, arg repository.UpdateProfileMembershipParams) error {
	f.updates = append(f.updates, arg)
	p := f.profiles[arg.ID]
	p.MembershipTier = arg.MembershipTier
	p.MembershipStatus = arg.MembershipStatus
	p.SubscriptionID = arg.SubscriptionID
	p.RenewsAt = arg.RenewsAt
	f.profiles[arg.ID] = p
	return nil
}

func (f *fakeProfileStore) add(tier, status, customerID string) uuid.UUID {
	id := uuid.New()
	f.profiles[id] = repository.Profile{
		ID:               id,
		MembershipTier:   tier,
		MembershipStatus: status,
		StripeCustomerID: domain.ToNullString(customerID),
	}
	return id
}

func TestProfileService_GetCachesProfile(t *testing.T) {
	store := newFakeProfileStore()
	id := store.add("elite", "active", "")
	mem := cache.NewMemory(0)
	defer mem.Close()
	svc := NewProfileService(store, mem, time.Minute, newTestLogger())
	ctx := context.Background()

	p, err := svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.TierElite, p.Tier)

	p, err = svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.TierElite, p.Tier)
	assert.Equal(t, 1, store.gets)
}

func TestProfileService_UpdateMembershipInvalidatesCache(t *testing.T) {
	store := newFakeProfileStore()
	id := store.add("free", "active", "cus_1")
	mem := cache.NewMemory(0)
	defer mem.Close()
	svc := NewProfileService(store, mem, time.Minute, newTestLogger())
	ctx := context.Background()

	_, err := svc.Get(ctx, id)
	require.NoError(t, err)

	err = svc.UpdateMembership(ctx, domain.MembershipUpdateParams{
		UserID: id,
		Tier:   domain.TierInvestor,
		Status: domain.MembershipStatusActive,
	})
	require.NoError(t, err)

	p, err := svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.TierInvestor, p.Tier)
	assert.Equal(t, 2, store.gets)
}

func TestProfileService_UpdateMembershipNormalizesTier(t *testing.T) {
	store := newFakeProfileStore()
	id := store.add("free", "active", "")
	svc := NewProfileService(store, nil, 0, newTestLogger())

	err := svc.UpdateMembership(context.Background(), domain.MembershipUpdateParams{
		UserID: id,
		Tier:   domain.Tier("platinum"),
		Status: domain.MembershipStatusActive,
	})
	require.NoError(t, err)
	assert.Equal(t, "free", store.updates[0].MembershipTier)
}

func TestProfileService_LinkStripeCustomer(t *testing.T) {
	store := newFakeProfileStore()
	id := store.add("free", "active", "")
	mem := cache.NewMemory(0)
	defer mem.Close()
	svc := NewProfileService(store, mem, time.Minute, newTestLogger())
	ctx := context.Background()

	_, err := svc.Get(ctx, id)
	require.NoError(t, err)

	require.NoError(t, svc.LinkStripeCustomer(ctx, id, "cus_9"))

	p, err := svc.GetByStripeCustomerID(ctx, "cus_9")
	require.NoError(t, err)
	assert.Equal(t, id, p.UserID)

	p, err = svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "cus_9", p.StripeCustomerID)
	assert.Equal(t, 2, store.gets)
}

func TestProfileService_LinkStripeCustomerUnknownProfile(t *testing.T) {
	svc := NewProfileService(newFakeProfileStore(), nil, 0, newTestLogger())

	err := svc.LinkStripeCustomer(context.Background(), uuid.New(), "cus_9")
	assert.Equal(t, domain.ENOTFOUND, domain.ErrorCode(err))
}

func TestProfileService_NotFound(t *testing.T) {
	svc := NewProfileService(newFakeProfileStore(), nil, 0, newTestLogger())

	_, err := svc.Get(context.Background(), uuid.New())
	assert.Equal(t, domain.ENOTFOUND, domain.ErrorCode(err))
}

func TestProfileService_ResolveFailsClosed(t *testing.T) {
	store := newFakeProfileStore()
	store.getErr = errors.New("timeout")
	svc := NewProfileService(store, nil, 0, newTestLogger())

	id := uuid.New()
	p := svc.Resolve(context.Background(), id)
	require.NotNil(t, p)
	assert.Equal(t, id, p.UserID)
	assert.Equal(t, domain.TierFree, p.Tier)
}

func TestProfileService_UnknownTierInRowIsFree(t *testing.T) {
	store := newFakeProfileStore()
	id := store.add("diamond", "active", "")
	svc := NewProfileService(store, nil, 0, newTestLogger())

	p, err := svc.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, domain.TierFree, p.Tier)
}

func TestProfileService_GetByStripeCustomerID(t *testing.T) {
	store := newFakeProfileStore()
	id := store.add("elite", "active", "cus_42")
	svc := NewProfileService(store, nil, 0, newTestLogger())

	p, err := svc.GetByStripeCustomerID(context.Background(), "cus_42")
	require.NoError(t, err)
	assert.Equal(t, id, p.UserID)

	_, err = svc.GetByStripeCustomerID(context.Background(), "cus_missing")
	assert.Equal(t, domain.ENOTFOUND, domain.ErrorCode(err))
}
