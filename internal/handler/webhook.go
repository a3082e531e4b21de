// Package handler contains HTTP handlers for the dealroom API.
//
// This file implements the Stripe webhook handler, the only writer of
// membership tier and status and of the profile's Stripe customer link.
//
// Route:
//   - POST /webhooks/stripe -> HandleStripeWebhook
//
// This route is PUBLIC (no auth middleware) because Stripe calls it directly.
// Authentication is via the Stripe webhook signature verification.
package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v79"

	"github.com/DukeRupert/dealroom/internal/billing"
	"github.com/DukeRupert/dealroom/internal/domain"
	"github.com/DukeRupert/dealroom/internal/metrics"
	"github.com/DukeRupert/dealroom/internal/service"
)

// webhookTimeout bounds the profile writes for one event.
const webhookTimeout = 10 * time.Second

// WebhookHandler handles incoming webhook events from Stripe.
type WebhookHandler struct {
	billing  billing.Service
	profiles service.ProfileService
	logger   *slog.Logger
}

// NewWebhookHandler creates a new WebhookHandler.
// billingService may be nil when Stripe is not configured.
func NewWebhookHandler(billingService billing.Service, profiles service.ProfileService, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		billing:  billingService,
		profiles: profiles,
		logger:   logger,
	}
}

// RegisterRoutes registers webhook routes on the provided mux.
// These routes are PUBLIC; Stripe signs its own requests.
func (h *WebhookHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /webhooks/stripe", h.HandleStripeWebhook)
}

// HandleStripeWebhook processes incoming Stripe webhook events.
func (h *WebhookHandler) HandleStripeWebhook(w http.ResponseWriter, r *http.Request) {
	if h.billing == nil {
		h.logger.Warn("stripe webhook received but billing is not configured")
		w.WriteHeader(http.StatusOK)
		return
	}

	// Read body (limit to 64KB)
	body, err := io.ReadAll(io.LimitReader(r.Body, 65536))
	if err != nil {
		h.logger.Error("failed to read webhook body", "error", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	signature := r.Header.Get("Stripe-Signature")
	event, err := h.billing.VerifyWebhookSignature(body, signature)
	if err != nil {
		h.logger.Warn("webhook signature verification failed", "error", err)
		metrics.WebhookEvent("unknown", "invalid_signature")
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	h.logger.Info("stripe webhook received", "type", event.Type, "id", event.ID)

	// Stripe retries on its own schedule; processing must not depend on
	// the delivery connection staying open.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), webhookTimeout)
	defer cancel()

	result := h.dispatch(ctx, event)
	metrics.WebhookEvent(string(event.Type), result)

	// Stripe redelivers on any non-2xx response.
	if result == "retry" {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// dispatch routes an event and returns its metrics result label.
func (h *WebhookHandler) dispatch(ctx context.Context, event stripe.Event) string {
	switch event.Type {
	case "checkout.session.completed":
		return h.handleCheckoutCompleted(ctx, event)
	case "customer.subscription.created", "customer.subscription.updated":
		return h.handleSubscriptionChanged(ctx, event)
	case "customer.subscription.deleted":
		return h.handleSubscriptionDeleted(ctx, event)
	case "invoice.payment_succeeded":
		return h.handlePaymentSucceeded(ctx, event)
	case "invoice.payment_failed":
		return h.handlePaymentFailed(ctx, event)
	default:
		h.logger.Debug("unhandled webhook event type", "type", event.Type)
		return "ignored"
	}
}

// handleCheckoutCompleted links the paying Stripe customer to the profile
// named by the session's client_reference_id. The frontend sets that field
// to the Supabase user id when it opens checkout.
func (h *WebhookHandler) handleCheckoutCompleted(ctx context.Context, event stripe.Event) string {
	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		h.logger.Error("failed to parse checkout session", "error", err)
		return "error"
	}

	if session.Customer == nil || session.Customer.ID == "" {
		h.logger.Warn("checkout session missing customer", "session_id", session.ID)
		return "ignored"
	}

	userID, err := uuid.Parse(session.ClientReferenceID)
	if err != nil {
		h.logger.Warn("checkout session has no usable client_reference_id",
			"session_id", session.ID, "client_reference_id", session.ClientReferenceID)
		return "ignored"
	}

	if err := h.profiles.LinkStripeCustomer(ctx, userID, session.Customer.ID); err != nil {
		if domain.ErrorCode(err) == domain.ENOTFOUND {
			h.logger.Warn("profile not found for checkout session",
				"user_id", userID, "session_id", session.ID)
			return "unmatched"
		}
		h.logger.Error("failed to link stripe customer", "error", err, "user_id", userID)
		return "error"
	}

	h.logger.Info("checkout completed", "user_id", userID, "customer_id", session.Customer.ID)
	return "processed"
}

func (h *WebhookHandler) handleSubscriptionChanged(ctx context.Context, event stripe.Event) string {
	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		h.logger.Error("failed to parse subscription event", "error", err, "type", event.Type)
		return "error"
	}

	if sub.Customer == nil {
		h.logger.Warn("subscription event missing customer", "subscription_id", sub.ID)
		return "ignored"
	}

	profile, err := h.profiles.GetByStripeCustomerID(ctx, sub.Customer.ID)
	if err != nil {
		h.logger.Warn("profile not found for subscription event",
			"customer_id", sub.Customer.ID, "subscription_id", sub.ID, "error", err)
		// The subscription can arrive before checkout.session.completed
		// links the customer; ask Stripe to send it again.
		if domain.ErrorCode(err) == domain.ENOTFOUND {
			return "retry"
		}
		return "unmatched"
	}

	tier := profile.Tier
	if len(sub.Items.Data) > 0 && sub.Items.Data[0].Price != nil {
		priceID := sub.Items.Data[0].Price.ID
		if t, ok := h.billing.TierForPriceID(priceID); ok {
			tier = t
		} else {
			h.logger.Warn("subscription price not mapped to a tier, keeping current tier",
				"price_id", priceID, "user_id", profile.UserID)
		}
	}

	status := billing.MembershipStatusFor(sub.Status)
	params := domain.MembershipUpdateParams{
		UserID:         profile.UserID,
		Tier:           tier,
		Status:         status,
		SubscriptionID: sub.ID,
		RenewsAt:       periodEnd(sub.CurrentPeriodEnd),
	}
	if err := h.profiles.UpdateMembership(ctx, params); err != nil {
		h.logger.Error("failed to update membership", "error", err, "user_id", profile.UserID)
		return "error"
	}

	h.logger.Info("subscription event processed",
		"user_id", profile.UserID, "type", event.Type, "status", status, "tier", tier)
	return "processed"
}

// handleSubscriptionDeleted marks the membership expired. The tier is kept
// so the member can still reach account pages to renew.
func (h *WebhookHandler) handleSubscriptionDeleted(ctx context.Context, event stripe.Event) string {
	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		h.logger.Error("failed to parse subscription deleted event", "error", err)
		return "error"
	}

	if sub.Customer == nil {
		h.logger.Warn("subscription deleted event missing customer", "subscription_id", sub.ID)
		return "ignored"
	}

	profile, err := h.profiles.GetByStripeCustomerID(ctx, sub.Customer.ID)
	if err != nil {
		h.logger.Warn("profile not found for subscription deletion", "customer_id", sub.Customer.ID)
		return "unmatched"
	}

	err = h.profiles.UpdateMembership(ctx, domain.MembershipUpdateParams{
		UserID:         profile.UserID,
		Tier:           profile.Tier,
		Status:         domain.MembershipStatusExpired,
		SubscriptionID: sub.ID,
	})
	if err != nil {
		h.logger.Error("failed to expire membership", "error", err, "user_id", profile.UserID)
		return "error"
	}

	h.logger.Info("subscription deleted", "user_id", profile.UserID, "subscription_id", sub.ID)
	return "processed"
}

func (h *WebhookHandler) handlePaymentSucceeded(ctx context.Context, event stripe.Event) string {
	profile, ok := h.invoiceProfile(ctx, event)
	if !ok {
		return "unmatched"
	}

	// Recovery from past_due
	if profile.Status == domain.MembershipStatusActive {
		return "processed"
	}
	err := h.profiles.UpdateMembership(ctx, domain.MembershipUpdateParams{
		UserID:         profile.UserID,
		Tier:           profile.Tier,
		Status:         domain.MembershipStatusActive,
		SubscriptionID: profile.SubscriptionID,
		RenewsAt:       profile.RenewsAt,
	})
	if err != nil {
		h.logger.Error("failed to reactivate on payment success", "error", err, "user_id", profile.UserID)
		return "error"
	}
	return "processed"
}

func (h *WebhookHandler) handlePaymentFailed(ctx context.Context, event stripe.Event) string {
	profile, ok := h.invoiceProfile(ctx, event)
	if !ok {
		return "unmatched"
	}

	err := h.profiles.UpdateMembership(ctx, domain.MembershipUpdateParams{
		UserID:         profile.UserID,
		Tier:           profile.Tier,
		Status:         domain.MembershipStatusPastDue,
		SubscriptionID: profile.SubscriptionID,
		RenewsAt:       profile.RenewsAt,
	})
	if err != nil {
		h.logger.Error("failed to set past_due on payment failure", "error", err, "user_id", profile.UserID)
		return "error"
	}

	h.logger.Warn("payment failed", "user_id", profile.UserID)
	return "processed"
}

func (h *WebhookHandler) invoiceProfile(ctx context.Context, event stripe.Event) (*domain.Profile, bool) {
	var invoice stripe.Invoice
	if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
		h.logger.Error("failed to parse invoice event", "error", err, "type", event.Type)
		return nil, false
	}
	if invoice.Customer == nil {
		return nil, false
	}

	profile, err := h.profiles.GetByStripeCustomerID(ctx, invoice.Customer.ID)
	if err != nil {
		h.logger.Debug("profile not found for invoice event", "customer_id", invoice.Customer.ID)
		return nil, false
	}
	return profile, true
}

func periodEnd(unix int64) *time.Time {
	if unix == 0 {
		return nil
	}
	t := time.Unix(unix, 0).UTC()
	return &t
}
