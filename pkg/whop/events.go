package whop

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Event types handled by the subscription pipeline. Whop has shipped both the
// underscore and the dotted spellings; aliases map onto these two.
const (
	EventMembershipActivated   = "membership_activated"
	EventMembershipDeactivated = "membership_deactivated"
)

var eventAliases = map[string]string{
	"membership_activated":    EventMembershipActivated,
	"membership.activated":    EventMembershipActivated,
	"membership.went_valid":   EventMembershipActivated,
	"membership_went_valid":   EventMembershipActivated,
	"membership_deactivated":  EventMembershipDeactivated,
	"membership.deactivated":  EventMembershipDeactivated,
	"membership.went_invalid": EventMembershipDeactivated,
	"membership_went_invalid": EventMembershipDeactivated,
}

// MetadataUserKey is the checkout metadata key carrying the app's user id.
const MetadataUserKey = "supabase_user_id"

// Event is a decoded webhook delivery.
type Event struct {
	// Type is the raw discriminator: "type", falling back to "action".
	Type string
	Data Membership
	Raw  []byte
}

// Kind returns the normalized event type, or Type itself when it is not a
// membership lifecycle event.
func (e *Event) Kind() string {
	if kind, ok := eventAliases[strings.ToLower(e.Type)]; ok {
		return kind
	}
	return e.Type
}

// IsMembershipEvent reports whether the event drives a subscription upsert.
func (e *Event) IsMembershipEvent() bool {
	kind := e.Kind()
	return kind == EventMembershipActivated || kind == EventMembershipDeactivated
}

type ref struct {
	ID string `json:"id"`
}

type user struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Name     string `json:"name"`
}

// Membership is the data object of membership events.
type Membership struct {
	ID                 string         `json:"id"`
	Status             string         `json:"status"`
	PlanID             string         `json:"plan_id"`
	ProductID          string         `json:"product_id"`
	Plan               *ref           `json:"plan"`
	Product            *ref           `json:"product"`
	User               *user          `json:"user"`
	Email              string         `json:"email"`
	Metadata           map[string]any `json:"metadata"`
	RenewalPeriodStart Timestamp      `json:"renewal_period_start"`
	RenewalPeriodEnd   Timestamp      `json:"renewal_period_end"`
	CancelAtPeriodEnd  bool           `json:"cancel_at_period_end"`
}

// UserID returns the app user id stored in checkout metadata.
func (m *Membership) UserID() string {
	if m.Metadata == nil {
		return ""
	}
	switch v := m.Metadata[MetadataUserKey].(type) {
	case string:
		return strings.TrimSpace(v)
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// PlanOrProduct returns the plan id, falling back to the product id.
func (m *Membership) PlanOrProduct() string {
	if id := m.planID(); id != "" {
		return id
	}
	return m.productID()
}

func (m *Membership) planID() string {
	if m.PlanID != "" {
		return m.PlanID
	}
	if m.Plan != nil {
		return m.Plan.ID
	}
	return ""
}

func (m *Membership) productID() string {
	if m.ProductID != "" {
		return m.ProductID
	}
	if m.Product != nil {
		return m.Product.ID
	}
	return ""
}

// PlanIDs returns the plan and product ids as delivered.
func (m *Membership) PlanIDs() (planID, productID string) {
	return m.planID(), m.productID()
}

// UserEmail returns the buyer's email if the payload carries one.
func (m *Membership) UserEmail() string {
	if m.User != nil && m.User.Email != "" {
		return m.User.Email
	}
	return m.Email
}

// UserName returns the buyer's display name if present.
func (m *Membership) UserName() string {
	if m.User == nil {
		return ""
	}
	if m.User.Name != "" {
		return m.User.Name
	}
	return m.User.Username
}

type envelope struct {
	Type   string          `json:"type"`
	Action string          `json:"action"`
	Data   json.RawMessage `json:"data"`
}

// ParseEvent decodes a verified webhook body.
func ParseEvent(body []byte) (*Event, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("invalid webhook payload: %w", err)
	}

	event := &Event{Type: env.Type, Raw: body}
	if event.Type == "" {
		event.Type = env.Action
	}
	if event.Type == "" {
		return nil, fmt.Errorf("invalid webhook payload: missing event type")
	}

	data := bytes.TrimSpace(env.Data)
	if len(data) > 0 && data[0] == '{' {
		if err := json.Unmarshal(data, &event.Data); err != nil {
			if event.IsMembershipEvent() {
				return nil, fmt.Errorf("invalid membership data: %w", err)
			}
			// Unknown event shapes are still audited
			event.Data = Membership{}
		}
	}

	return event, nil
}

// Timestamp accepts unix seconds (number or numeric string), unix
// milliseconds, RFC3339 strings and null.
type Timestamp struct {
	time.Time
}

// Ptr returns nil for an unset timestamp.
func (t Timestamp) Ptr() *time.Time {
	if t.IsZero() {
		return nil
	}
	v := t.UTC()
	return &v
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" || s == `""` || s == "" {
		t.Time = time.Time{}
		return nil
	}
	s = strings.Trim(s, `"`)

	if n, err := strconv.ParseFloat(s, 64); err == nil {
		t.Time = fromUnix(int64(n))
		return nil
	}

	parsed, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return fmt.Errorf("unsupported timestamp %q", s)
	}
	t.Time = parsed
	return nil
}

func fromUnix(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	// Values this large are milliseconds
	if n > 1e12 {
		return time.UnixMilli(n).UTC()
	}
	return time.Unix(n, 0).UTC()
}
