package database

import (
	"database/sql"
	"newton/models"
	"time"
)

// ==================== SUBSCRIPTION OPERATIONS ====================

const subscriptionColumns = `id, user_id, whop_membership_id, plan_id, tier, status,
	current_period_start, current_period_end, cancel_at_period_end, created_at, updated_at`

func scanSubscription(row interface{ Scan(...any) error }) (*models.Subscription, error) {
	var sub models.Subscription
	var tier, status string
	var periodStart, periodEnd sql.NullTime
	var cancelAtPeriodEnd int

	if err := row.Scan(
		&sub.ID, &sub.UserID, &sub.WhopMembershipID, &sub.PlanID, &tier, &status,
		&periodStart, &periodEnd, &cancelAtPeriodEnd, &sub.CreatedAt, &sub.UpdatedAt,
	); err != nil {
		return nil, err
	}

	sub.Tier = models.Tier(tier)
	sub.Status = models.SubscriptionStatus(status)
	sub.CurrentPeriodStart = timePtr(periodStart)
	sub.CurrentPeriodEnd = timePtr(periodEnd)
	sub.CancelAtPeriodEnd = cancelAtPeriodEnd != 0
	return &sub, nil
}

// UpsertSubscription inserts or updates the row for a Whop membership.
// whop_membership_id is the conflict key: re-delivered events converge on one row
// and the original id/created_at are kept.
func (r *Repository) UpsertSubscription(sub *models.Subscription) error {
	_, err := r.db.Exec(`
		INSERT INTO subscriptions (`+subscriptionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(whop_membership_id) DO UPDATE SET
			user_id = excluded.user_id,
			plan_id = excluded.plan_id,
			tier = excluded.tier,
			status = excluded.status,
			current_period_start = excluded.current_period_start,
			current_period_end = excluded.current_period_end,
			cancel_at_period_end = excluded.cancel_at_period_end,
			updated_at = excluded.updated_at
	`,
		sub.ID, sub.UserID, sub.WhopMembershipID, sub.PlanID, string(sub.Tier), string(sub.Status),
		nullTime(sub.CurrentPeriodStart), nullTime(sub.CurrentPeriodEnd),
		boolToInt(sub.CancelAtPeriodEnd), utc(sub.CreatedAt), utc(sub.UpdatedAt),
	)
	return err
}

// GetSubscriptionByMembership retrieves the row for a Whop membership id
func (r *Repository) GetSubscriptionByMembership(membershipID string) (*models.Subscription, error) {
	sub, err := scanSubscription(r.db.QueryRow(`
		SELECT `+subscriptionColumns+`
		FROM subscriptions
		WHERE whop_membership_id = ?
	`, membershipID))

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// GetActiveSubscriptions lists a user's active subscriptions whose period has not ended
func (r *Repository) GetActiveSubscriptions(userID string, now time.Time) ([]models.Subscription, error) {
	rows, err := r.db.Query(`
		SELECT `+subscriptionColumns+`
		FROM subscriptions
		WHERE user_id = ? AND status = ?
			AND (current_period_end IS NULL OR current_period_end > ?)
		ORDER BY updated_at DESC
	`, userID, string(models.SubscriptionActive), utc(now))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []models.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, *sub)
	}
	return subs, rows.Err()
}

// GetLatestSubscription retrieves the most recently updated subscription of a user
func (r *Repository) GetLatestSubscription(userID string) (*models.Subscription, error) {
	sub, err := scanSubscription(r.db.QueryRow(`
		SELECT `+subscriptionColumns+`
		FROM subscriptions
		WHERE user_id = ?
		ORDER BY updated_at DESC
		LIMIT 1
	`, userID))

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// ==================== SUBSCRIPTION EVENT OPERATIONS ====================

// InsertSubscriptionEvent appends to the webhook audit log
func (r *Repository) InsertSubscriptionEvent(event *models.SubscriptionEvent) error {
	_, err := r.db.Exec(`
		INSERT INTO subscription_events (id, whop_membership_id, event_type, user_id, payload, received_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, event.ID, event.WhopMembershipID, event.EventType, event.UserID, event.Payload, utc(event.ReceivedAt))
	return err
}

// ListSubscriptionEvents lists a user's audit events, newest first
func (r *Repository) ListSubscriptionEvents(userID string, limit int) ([]models.SubscriptionEvent, error) {
	rows, err := r.db.Query(`
		SELECT id, whop_membership_id, event_type, user_id, payload, received_at
		FROM subscription_events
		WHERE user_id = ?
		ORDER BY received_at DESC
		LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]models.SubscriptionEvent, 0)
	for rows.Next() {
		var e models.SubscriptionEvent
		if err := rows.Scan(&e.ID, &e.WhopMembershipID, &e.EventType, &e.UserID, &e.Payload, &e.ReceivedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// CountSubscriptionEvents counts audit rows for a membership
func (r *Repository) CountSubscriptionEvents(membershipID string) (int, error) {
	var n int
	err := r.db.QueryRow(`
		SELECT COUNT(*) FROM subscription_events WHERE whop_membership_id = ?
	`, membershipID).Scan(&n)
	return n, err
}
