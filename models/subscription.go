package models

import "time"

// Tier is the plan level a user is entitled to.
type Tier string

const (
	TierFree     Tier = "free"
	TierMonthly  Tier = "monthly"
	TierYearly   Tier = "yearly"
	TierLifetime Tier = "lifetime"
)

// PaidTiers lists the tiers that can be purchased.
var PaidTiers = []Tier{TierMonthly, TierYearly, TierLifetime}

func (t Tier) Paid() bool {
	return t == TierMonthly || t == TierYearly || t == TierLifetime
}

type SubscriptionStatus string

const (
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionCanceled SubscriptionStatus = "canceled"
)

// Unlimited marks a limit that is not enforced.
const Unlimited = -1

// Limits are the entitlement limits derived from a tier.
type Limits struct {
	NotesPerMonth        int  `json:"notes_per_month" koanf:"notes_per_month" validate:"gte=-1"`
	MaxUploadMB          int  `json:"max_upload_mb" koanf:"max_upload_mb" validate:"gte=-1"`
	FlashcardsPerNote    int  `json:"flashcards_per_note" koanf:"flashcards_per_note" validate:"gte=0"`
	QuizQuestions        int  `json:"quiz_questions" koanf:"quiz_questions" validate:"gte=0"`
	MaxRoomParticipants  int  `json:"max_room_participants" koanf:"max_room_participants" validate:"gte=-1"`
	GenerationsPerMinute int  `json:"generations_per_minute" koanf:"generations_per_minute" validate:"gte=-1"`
	AudioUploads         bool `json:"audio_uploads" koanf:"audio_uploads"`
	YouTubeImports       bool `json:"youtube_imports" koanf:"youtube_imports"`
}

// Allows reports whether used+1 stays within limit.
func Allows(limit, used int) bool {
	return limit == Unlimited || used < limit
}

type Subscription struct {
	ID                 string             `json:"id"`
	UserID             string             `json:"user_id"`
	WhopMembershipID   string             `json:"whop_membership_id"`
	PlanID             string             `json:"plan_id"`
	Tier               Tier               `json:"tier"`
	Status             SubscriptionStatus `json:"status"`
	CurrentPeriodStart *time.Time         `json:"current_period_start,omitempty"`
	CurrentPeriodEnd   *time.Time         `json:"current_period_end,omitempty"`
	CancelAtPeriodEnd  bool               `json:"cancel_at_period_end"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

// IsCurrent reports whether the subscription grants its tier at the given time.
func (s *Subscription) IsCurrent(now time.Time) bool {
	if s == nil || s.Status != SubscriptionActive {
		return false
	}
	return s.CurrentPeriodEnd == nil || s.CurrentPeriodEnd.After(now)
}

type SubscriptionEvent struct {
	ID               string    `json:"id"`
	WhopMembershipID string    `json:"whop_membership_id"`
	EventType        string    `json:"event_type"`
	UserID           string    `json:"user_id,omitempty"`
	Payload          string    `json:"payload,omitempty"`
	ReceivedAt       time.Time `json:"received_at"`
}

// Entitlements is what a user may do right now.
type Entitlements struct {
	Tier         Tier          `json:"tier"`
	Limits       Limits        `json:"limits"`
	Subscription *Subscription `json:"subscription,omitempty"`
}

type CheckoutRequest struct {
	Plan string `json:"plan" validate:"required,tier"`
}
