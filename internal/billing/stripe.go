// Package billing provides the Stripe integration that keeps membership
// tiers in sync with subscriptions.
package billing

import (
	"fmt"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"

	"github.com/DukeRupert/dealroom/internal/domain"
)

// Service defines the billing operations the webhook handler needs.
type Service interface {
	// VerifyWebhookSignature verifies the Stripe webhook signature and returns the event.
	VerifyWebhookSignature(payload []byte, signature string) (stripe.Event, error)

	// TierForPriceID returns the membership tier for a Stripe price ID.
	// Unknown prices return false.
	TierForPriceID(priceID string) (domain.Tier, bool)
}

// PriceConfig holds the Stripe price IDs for each paid tier.
type PriceConfig struct {
	InvestorMonthlyPriceID string
	InvestorYearlyPriceID  string
	EliteMonthlyPriceID    string
	EliteYearlyPriceID     string
	PrivateMonthlyPriceID  string
	PrivateYearlyPriceID   string
}

// stripeService is the concrete implementation of Service.
type stripeService struct {
	webhookSecret string
	priceToTier   map[string]domain.Tier
}

// NewStripeService creates a new Stripe billing service.
//
// The secretKey is used to authenticate Stripe API calls.
// The webhookSecret is used to verify incoming webhook signatures.
func NewStripeService(secretKey, webhookSecret string, prices PriceConfig) Service {
	stripe.Key = secretKey

	priceToTier := make(map[string]domain.Tier)
	add := func(priceID string, tier domain.Tier) {
		if priceID != "" {
			priceToTier[priceID] = tier
		}
	}
	add(prices.InvestorMonthlyPriceID, domain.TierInvestor)
	add(prices.InvestorYearlyPriceID, domain.TierInvestor)
	add(prices.EliteMonthlyPriceID, domain.TierElite)
	add(prices.EliteYearlyPriceID, domain.TierElite)
	add(prices.PrivateMonthlyPriceID, domain.TierPrivate)
	add(prices.PrivateYearlyPriceID, domain.TierPrivate)

	return &stripeService{
		webhookSecret: webhookSecret,
		priceToTier:   priceToTier,
	}
}

func (s *stripeService) VerifyWebhookSignature(payload []byte, signature string) (stripe.Event, error) {
	event, err := webhook.ConstructEvent(payload, signature, s.webhookSecret)
	if err != nil {
		return stripe.Event{}, fmt.Errorf("stripe webhook signature verification failed: %w", err)
	}
	return event, nil
}

func (s *stripeService) TierForPriceID(priceID string) (domain.Tier, bool) {
	tier, ok := s.priceToTier[priceID]
	return tier, ok
}

// MembershipStatusFor maps a Stripe subscription status to a membership status.
func MembershipStatusFor(status stripe.SubscriptionStatus) domain.MembershipStatus {
	switch status {
	case stripe.SubscriptionStatusActive, stripe.SubscriptionStatusTrialing:
		return domain.MembershipStatusActive
	case stripe.SubscriptionStatusCanceled, stripe.SubscriptionStatusUnpaid, stripe.SubscriptionStatusIncompleteExpired:
		return domain.MembershipStatusExpired
	case stripe.SubscriptionStatusPastDue:
		return domain.MembershipStatusPastDue
	default:
		return domain.MembershipStatusInactive
	}
}
