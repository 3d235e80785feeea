package services

import (
	"context"
	"fmt"
	"log/slog"
	"newton/config"
	"newton/mailer"
	"newton/models"
	"newton/pkg/whop"
	"time"

	"github.com/google/uuid"
)

var tierRank = map[models.Tier]int{
	models.TierFree:     0,
	models.TierMonthly:  1,
	models.TierYearly:   2,
	models.TierLifetime: 3,
}

// SubscriptionService reconciles Whop memberships into subscriptions and
// resolves the entitlements they grant
type SubscriptionService struct {
	repo      SubscriptionRepository
	catalog   *config.PlanCatalog
	checkout  CheckoutClient
	notifier  Notifier
	returnURL string
	now       func() time.Time
}

// NewSubscriptionService creates a new subscription service. checkout and
// notifier may be nil.
func NewSubscriptionService(repo SubscriptionRepository, catalog *config.PlanCatalog, checkout CheckoutClient, notifier Notifier, returnURL string) *SubscriptionService {
	return &SubscriptionService{
		repo:      repo,
		catalog:   catalog,
		checkout:  checkout,
		notifier:  notifier,
		returnURL: returnURL,
		now:       time.Now,
	}
}

// WebhookOutcome describes what a verified webhook delivery changed
type WebhookOutcome struct {
	EventType    string
	MembershipID string
	UserID       string
	Upserted     bool
	Subscription *models.Subscription
}

// ==================== WEBHOOK OPERATIONS ====================

// HandleWebhookEvent audits a verified event and, for membership lifecycle
// events, upserts the subscription keyed by the membership id
func (s *SubscriptionService) HandleWebhookEvent(ctx context.Context, event *whop.Event) (*WebhookOutcome, error) {
	now := s.now().UTC()
	membership := &event.Data
	outcome := &WebhookOutcome{
		EventType:    event.Kind(),
		MembershipID: membership.ID,
		UserID:       membership.UserID(),
	}

	var existing *models.Subscription
	if membership.ID != "" && event.IsMembershipEvent() {
		var err error
		existing, err = s.repo.GetSubscriptionByMembership(membership.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to look up membership: %w", err)
		}
		// Deactivations are not guaranteed to repeat the checkout metadata
		if outcome.UserID == "" && existing != nil {
			outcome.UserID = existing.UserID
		}
	}

	err := s.repo.InsertSubscriptionEvent(&models.SubscriptionEvent{
		ID:               uuid.New().String(),
		WhopMembershipID: membership.ID,
		EventType:        event.Type,
		UserID:           outcome.UserID,
		Payload:          string(event.Raw),
		ReceivedAt:       now,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record webhook event: %w", err)
	}

	if !event.IsMembershipEvent() {
		slog.InfoContext(ctx, "Ignoring webhook event", "type", event.Type, "membership_id", membership.ID)
		return outcome, nil
	}
	if membership.ID == "" {
		slog.WarnContext(ctx, "Membership event without membership id", "type", event.Type)
		return outcome, nil
	}
	if outcome.UserID == "" {
		slog.WarnContext(ctx, "Membership event without user id, subscription not attributed",
			"type", event.Type, "membership_id", membership.ID)
		return outcome, nil
	}

	status := models.SubscriptionActive
	if event.Kind() == whop.EventMembershipDeactivated {
		status = models.SubscriptionCanceled
	}

	sub := &models.Subscription{
		ID:                 uuid.New().String(),
		UserID:             outcome.UserID,
		WhopMembershipID:   membership.ID,
		PlanID:             membership.PlanOrProduct(),
		Tier:               s.resolveTier(membership, existing),
		Status:             status,
		CurrentPeriodStart: membership.RenewalPeriodStart.Ptr(),
		CurrentPeriodEnd:   membership.RenewalPeriodEnd.Ptr(),
		CancelAtPeriodEnd:  membership.CancelAtPeriodEnd,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if sub.PlanID == "" && existing != nil {
		sub.PlanID = existing.PlanID
	}

	if err := s.repo.UpsertSubscription(sub); err != nil {
		return nil, fmt.Errorf("failed to upsert subscription: %w", err)
	}
	outcome.Upserted = true

	stored, err := s.repo.GetSubscriptionByMembership(membership.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload subscription: %w", err)
	}
	if stored == nil {
		stored = sub
	}
	outcome.Subscription = stored

	slog.InfoContext(ctx, "Subscription reconciled",
		"membership_id", membership.ID,
		"user_id", stored.UserID,
		"tier", stored.Tier,
		"status", stored.Status,
	)

	s.notify(stored, membership)
	return outcome, nil
}

// resolveTier maps the delivered plan or product to a tier. Unknown plans
// keep the tier already on record, else default to monthly.
func (s *SubscriptionService) resolveTier(m *whop.Membership, existing *models.Subscription) models.Tier {
	planID, productID := m.PlanIDs()
	if tier, ok := s.catalog.TierFor(planID, productID); ok {
		return tier
	}
	if existing != nil && existing.Tier.Paid() {
		return existing.Tier
	}
	slog.Warn("Unknown Whop plan, defaulting tier", "plan_id", planID, "product_id", productID, "tier", models.TierMonthly)
	return models.TierMonthly
}

func (s *SubscriptionService) notify(sub *models.Subscription, m *whop.Membership) {
	if s.notifier == nil {
		return
	}

	to := mailer.Recipient{Email: m.UserEmail(), Name: m.UserName()}
	user, err := s.repo.GetUser(sub.UserID)
	if err != nil {
		slog.Warn("Failed to load user for subscription email", "user_id", sub.UserID, "error", err)
	}
	if user != nil && user.Email != "" {
		to = mailer.Recipient{Email: user.Email, Name: user.Name}
	}

	s.notifier.NotifySubscriptionChanged(to, sub, s.catalog.LimitsFor(sub.Tier))
}

// ==================== ENTITLEMENT OPERATIONS ====================

// Entitlements returns the tier and limits granted by the best current subscription
func (s *SubscriptionService) Entitlements(userID string) (*models.Entitlements, error) {
	subs, err := s.repo.GetActiveSubscriptions(userID, s.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to load subscriptions: %w", err)
	}

	ent := &models.Entitlements{Tier: models.TierFree}
	for i := range subs {
		if tierRank[subs[i].Tier] > tierRank[ent.Tier] {
			ent.Tier = subs[i].Tier
			ent.Subscription = &subs[i]
		}
	}
	ent.Limits = s.catalog.LimitsFor(ent.Tier)
	return ent, nil
}

// Status returns the entitlements plus the latest subscription on record,
// which may be canceled or expired
func (s *SubscriptionService) Status(userID string) (*models.Entitlements, *models.Subscription, error) {
	ent, err := s.Entitlements(userID)
	if err != nil {
		return nil, nil, err
	}
	latest, err := s.repo.GetLatestSubscription(userID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load latest subscription: %w", err)
	}
	return ent, latest, nil
}

// ListEvents returns the audit trail of webhook deliveries for a user
func (s *SubscriptionService) ListEvents(userID string, limit int) ([]models.SubscriptionEvent, error) {
	if limit < 1 || limit > 100 {
		limit = 50
	}
	return s.repo.ListSubscriptionEvents(userID, limit)
}

// ==================== CHECKOUT OPERATIONS ====================

// CreateCheckout opens a Whop checkout for a paid tier, tagging it with the
// user id so the activation webhook can be attributed
func (s *SubscriptionService) CreateCheckout(ctx context.Context, userID string, tier models.Tier) (*whop.CheckoutSession, error) {
	if s.checkout == nil {
		return nil, ErrCheckoutDisabled
	}
	if !tier.Paid() {
		return nil, ErrUnknownPlan
	}
	planID, ok := s.catalog.PlanID(tier)
	if !ok {
		return nil, ErrUnknownPlan
	}

	session, err := s.checkout.CreateCheckoutSession(ctx, whop.CheckoutRequest{
		PlanID:      planID,
		Metadata:    map[string]string{whop.MetadataUserKey: userID},
		RedirectURL: s.returnURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout: %w", err)
	}
	return session, nil
}
