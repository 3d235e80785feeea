package services

import (
	"context"
	"errors"
	"newton/config"
	"newton/mailer"
	"newton/models"
	"newton/pkg/whop"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// ==================== MOCKS ====================

// MockSubscriptionRepository is a mock implementation of SubscriptionRepository interface
type MockSubscriptionRepository struct {
	mock.Mock
}

var _ SubscriptionRepository = (*MockSubscriptionRepository)(nil)

func (m *MockSubscriptionRepository) UpsertSubscription(sub *models.Subscription) error {
	args := m.Called(sub)
	return args.Error(0)
}

func (m *MockSubscriptionRepository) GetSubscriptionByMembership(membershipID string) (*models.Subscription, error) {
	args := m.Called(membershipID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Subscription), args.Error(1)
}

func (m *MockSubscriptionRepository) GetActiveSubscriptions(userID string, now time.Time) ([]models.Subscription, error) {
	args := m.Called(userID, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Subscription), args.Error(1)
}

func (m *MockSubscriptionRepository) GetLatestSubscription(userID string) (*models.Subscription, error) {
	args := m.Called(userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Subscription), args.Error(1)
}

func (m *MockSubscriptionRepository) InsertSubscriptionEvent(event *models.SubscriptionEvent) error {
	args := m.Called(event)
	return args.Error(0)
}

func (m *MockSubscriptionRepository) ListSubscriptionEvents(userID string, limit int) ([]models.SubscriptionEvent, error) {
	args := m.Called(userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.SubscriptionEvent), args.Error(1)
}

func (m *MockSubscriptionRepository) GetUser(userID string) (*models.User, error) {
	args := m.Called(userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

// MockNotifier is a mock implementation of Notifier interface
type MockNotifier struct {
	mock.Mock
}

var _ Notifier = (*MockNotifier)(nil)

func (m *MockNotifier) NotifySubscriptionChanged(to mailer.Recipient, sub *models.Subscription, limits models.Limits) {
	m.Called(to, sub, limits)
}

func (m *MockNotifier) NotifyFriendRequest(to mailer.Recipient, fromName string) {
	m.Called(to, fromName)
}

// MockCheckoutClient is a mock implementation of CheckoutClient interface
type MockCheckoutClient struct {
	mock.Mock
}

var _ CheckoutClient = (*MockCheckoutClient)(nil)

func (m *MockCheckoutClient) CreateCheckoutSession(ctx context.Context, req whop.CheckoutRequest) (*whop.CheckoutSession, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*whop.CheckoutSession), args.Error(1)
}

func testCatalog() *config.PlanCatalog {
	catalog := config.DefaultPlanCatalog()
	catalog.Plans[models.TierMonthly] = "plan_monthly"
	catalog.Plans[models.TierYearly] = "plan_yearly"
	catalog.Plans[models.TierLifetime] = "plan_lifetime"
	return catalog
}

func mustParseEvent(t *testing.T, body string) *whop.Event {
	t.Helper()
	event, err := whop.ParseEvent([]byte(body))
	require.NoError(t, err)
	return event
}

// ==================== TESTS ====================

func TestSubscriptionService_HandleWebhookEvent_Activation(t *testing.T) {
	mockRepo := new(MockSubscriptionRepository)
	mockNotifier := new(MockNotifier)

	stored := &models.Subscription{
		ID:               "sub1",
		UserID:           "user123",
		WhopMembershipID: "mem_1",
		PlanID:           "plan_yearly",
		Tier:             models.TierYearly,
		Status:           models.SubscriptionActive,
	}

	mockRepo.On("GetSubscriptionByMembership", "mem_1").Return(nil, nil).Once()
	mockRepo.On("InsertSubscriptionEvent", mock.MatchedBy(func(e *models.SubscriptionEvent) bool {
		return e.EventType == "membership.went_valid" && e.WhopMembershipID == "mem_1" && e.UserID == "user123" && e.Payload != ""
	})).Return(nil)
	mockRepo.On("UpsertSubscription", mock.MatchedBy(func(s *models.Subscription) bool {
		return s.WhopMembershipID == "mem_1" &&
			s.UserID == "user123" &&
			s.Tier == models.TierYearly &&
			s.Status == models.SubscriptionActive &&
			s.CurrentPeriodEnd != nil && s.CurrentPeriodEnd.Equal(time.Unix(1767225600, 0)) &&
			!s.CancelAtPeriodEnd
	})).Return(nil)
	mockRepo.On("GetSubscriptionByMembership", "mem_1").Return(stored, nil).Once()
	mockRepo.On("GetUser", "user123").Return(&models.User{ID: "user123", Email: "ada@example.com", Name: "Ada"}, nil)
	catalog := testCatalog()
	mockNotifier.On("NotifySubscriptionChanged", mailer.Recipient{Email: "ada@example.com", Name: "Ada"}, stored, catalog.LimitsFor(models.TierYearly)).Return()

	service := NewSubscriptionService(mockRepo, catalog, nil, mockNotifier, "")
	event := mustParseEvent(t, `{
		"action": "membership.went_valid",
		"data": {
			"id": "mem_1",
			"plan_id": "plan_yearly",
			"metadata": {"supabase_user_id": "user123"},
			"renewal_period_start": 1735689600,
			"renewal_period_end": 1767225600
		}
	}`)

	outcome, err := service.HandleWebhookEvent(context.Background(), event)

	require.NoError(t, err)
	assert.True(t, outcome.Upserted)
	assert.Equal(t, whop.EventMembershipActivated, outcome.EventType)
	assert.Equal(t, stored, outcome.Subscription)
	mockRepo.AssertExpectations(t)
	mockNotifier.AssertExpectations(t)
}

func TestSubscriptionService_HandleWebhookEvent_DeactivationUsesStoredUser(t *testing.T) {
	mockRepo := new(MockSubscriptionRepository)
	existing := &models.Subscription{
		ID:               "sub1",
		UserID:           "user123",
		WhopMembershipID: "mem_1",
		PlanID:           "plan_custom",
		Tier:             models.TierLifetime,
		Status:           models.SubscriptionActive,
	}

	mockRepo.On("GetSubscriptionByMembership", "mem_1").Return(existing, nil)
	mockRepo.On("InsertSubscriptionEvent", mock.MatchedBy(func(e *models.SubscriptionEvent) bool {
		return e.UserID == "user123"
	})).Return(nil)
	// Unknown plan keeps the paid tier on record, plan id is carried over
	mockRepo.On("UpsertSubscription", mock.MatchedBy(func(s *models.Subscription) bool {
		return s.UserID == "user123" && s.Status == models.SubscriptionCanceled && s.Tier == models.TierLifetime && s.PlanID == "plan_custom"
	})).Return(nil)

	service := NewSubscriptionService(mockRepo, testCatalog(), nil, nil, "")
	event := mustParseEvent(t, `{"type": "membership_deactivated", "data": {"id": "mem_1"}}`)

	outcome, err := service.HandleWebhookEvent(context.Background(), event)

	require.NoError(t, err)
	assert.True(t, outcome.Upserted)
	assert.Equal(t, "user123", outcome.UserID)
	mockRepo.AssertExpectations(t)
}

func TestSubscriptionService_HandleWebhookEvent_NotUpserted(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		mockSetup func(*MockSubscriptionRepository)
	}{
		{
			name: "Membership event without user id is audited only",
			body: `{"type": "membership_activated", "data": {"id": "mem_2", "plan_id": "plan_monthly"}}`,
			mockSetup: func(repo *MockSubscriptionRepository) {
				repo.On("GetSubscriptionByMembership", "mem_2").Return(nil, nil)
				repo.On("InsertSubscriptionEvent", mock.MatchedBy(func(e *models.SubscriptionEvent) bool {
					return e.WhopMembershipID == "mem_2" && e.UserID == ""
				})).Return(nil)
			},
		},
		{
			name: "Unknown event type is audited only",
			body: `{"type": "payment.succeeded", "data": {"id": "pay_1"}}`,
			mockSetup: func(repo *MockSubscriptionRepository) {
				repo.On("InsertSubscriptionEvent", mock.MatchedBy(func(e *models.SubscriptionEvent) bool {
					return e.EventType == "payment.succeeded"
				})).Return(nil)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockSubscriptionRepository)
			tt.mockSetup(mockRepo)

			service := NewSubscriptionService(mockRepo, testCatalog(), nil, nil, "")
			outcome, err := service.HandleWebhookEvent(context.Background(), mustParseEvent(t, tt.body))

			require.NoError(t, err)
			assert.False(t, outcome.Upserted)
			mockRepo.AssertNotCalled(t, "UpsertSubscription", mock.Anything)
			mockRepo.AssertExpectations(t)
		})
	}
}

func TestSubscriptionService_HandleWebhookEvent_AuditFailure(t *testing.T) {
	mockRepo := new(MockSubscriptionRepository)
	mockRepo.On("GetSubscriptionByMembership", "mem_1").Return(nil, nil)
	mockRepo.On("InsertSubscriptionEvent", mock.Anything).Return(errors.New("database error"))

	service := NewSubscriptionService(mockRepo, testCatalog(), nil, nil, "")
	event := mustParseEvent(t, `{"type": "membership_activated", "data": {"id": "mem_1", "metadata": {"supabase_user_id": "u"}}}`)

	_, err := service.HandleWebhookEvent(context.Background(), event)

	assert.Error(t, err)
	mockRepo.AssertNotCalled(t, "UpsertSubscription", mock.Anything)
}

func TestSubscriptionService_ResolveTier(t *testing.T) {
	service := NewSubscriptionService(nil, testCatalog(), nil, nil, "")

	tests := []struct {
		name     string
		planID   string
		existing *models.Subscription
		expected models.Tier
	}{
		{name: "Known plan", planID: "plan_lifetime", expected: models.TierLifetime},
		{name: "Unknown plan keeps existing paid tier", planID: "plan_x", existing: &models.Subscription{Tier: models.TierYearly}, expected: models.TierYearly},
		{name: "Unknown plan defaults to monthly", planID: "plan_x", expected: models.TierMonthly},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := service.resolveTier(&whop.Membership{PlanID: tt.planID}, tt.existing)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestSubscriptionService_Entitlements(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name         string
		active       []models.Subscription
		expectedTier models.Tier
	}{
		{
			name:         "No subscription is free",
			active:       []models.Subscription{},
			expectedTier: models.TierFree,
		},
		{
			name:         "Monthly subscription",
			active:       []models.Subscription{{ID: "s1", Tier: models.TierMonthly, Status: models.SubscriptionActive}},
			expectedTier: models.TierMonthly,
		},
		{
			name: "Highest tier wins",
			active: []models.Subscription{
				{ID: "s1", Tier: models.TierMonthly, Status: models.SubscriptionActive},
				{ID: "s2", Tier: models.TierLifetime, Status: models.SubscriptionActive},
				{ID: "s3", Tier: models.TierYearly, Status: models.SubscriptionActive},
			},
			expectedTier: models.TierLifetime,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockSubscriptionRepository)
			mockRepo.On("GetActiveSubscriptions", "user123", now).Return(tt.active, nil)

			catalog := testCatalog()
			service := NewSubscriptionService(mockRepo, catalog, nil, nil, "")
			service.now = func() time.Time { return now }

			ent, err := service.Entitlements("user123")

			require.NoError(t, err)
			assert.Equal(t, tt.expectedTier, ent.Tier)
			assert.Equal(t, catalog.LimitsFor(tt.expectedTier), ent.Limits)
			if tt.expectedTier == models.TierFree {
				assert.Nil(t, ent.Subscription)
			} else {
				require.NotNil(t, ent.Subscription)
				assert.Equal(t, tt.expectedTier, ent.Subscription.Tier)
			}
		})
	}
}

func TestSubscriptionService_CreateCheckout(t *testing.T) {
	t.Run("Success - Tags the checkout with the user id", func(t *testing.T) {
		mockCheckout := new(MockCheckoutClient)
		mockCheckout.On("CreateCheckoutSession", mock.Anything, whop.CheckoutRequest{
			PlanID:      "plan_monthly",
			Metadata:    map[string]string{"supabase_user_id": "user123"},
			RedirectURL: "https://newton.study/billing",
		}).Return(&whop.CheckoutSession{ID: "ch_1", PurchaseURL: "https://whop.com/checkout/ch_1"}, nil)

		service := NewSubscriptionService(nil, testCatalog(), mockCheckout, nil, "https://newton.study/billing")
		session, err := service.CreateCheckout(context.Background(), "user123", models.TierMonthly)

		require.NoError(t, err)
		assert.Equal(t, "https://whop.com/checkout/ch_1", session.PurchaseURL)
		mockCheckout.AssertExpectations(t)
	})

	t.Run("Error - Free is not purchasable", func(t *testing.T) {
		service := NewSubscriptionService(nil, testCatalog(), new(MockCheckoutClient), nil, "")
		_, err := service.CreateCheckout(context.Background(), "user123", models.TierFree)
		assert.ErrorIs(t, err, ErrUnknownPlan)
	})

	t.Run("Error - Plan not configured", func(t *testing.T) {
		service := NewSubscriptionService(nil, config.DefaultPlanCatalog(), new(MockCheckoutClient), nil, "")
		_, err := service.CreateCheckout(context.Background(), "user123", models.TierYearly)
		assert.ErrorIs(t, err, ErrUnknownPlan)
	})

	t.Run("Error - Checkout disabled", func(t *testing.T) {
		service := NewSubscriptionService(nil, testCatalog(), nil, nil, "")
		_, err := service.CreateCheckout(context.Background(), "user123", models.TierYearly)
		assert.ErrorIs(t, err, ErrCheckoutDisabled)
	})
}

func TestSubscriptionService_ListEvents_DefaultLimit(t *testing.T) {
	mockRepo := new(MockSubscriptionRepository)
	mockRepo.On("ListSubscriptionEvents", "user123", 50).Return([]models.SubscriptionEvent{}, nil)

	service := NewSubscriptionService(mockRepo, testCatalog(), nil, nil, "")
	_, err := service.ListEvents("user123", 0)

	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
}
