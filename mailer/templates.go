package mailer

import (
	"context"
	"fmt"
	"io"
	"newton/models"
	"strings"

	"github.com/a-h/templ"
)

// Recipient is who a notification goes to.
type Recipient struct {
	Email string
	Name  string
}

func (r Recipient) greeting() string {
	if r.Name == "" {
		return "Hi there,"
	}
	return "Hi " + r.Name + ","
}

// layout wraps paragraphs and an optional call-to-action in the shared
// email chrome. Every dynamic value is escaped.
func layout(title string, paragraphs []string, ctaLabel, ctaURL string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		b.WriteString(`<!DOCTYPE html><html><body style="font-family:-apple-system,Segoe UI,Helvetica,Arial,sans-serif;background:#f6f7fb;padding:24px">`)
		b.WriteString(`<table role="presentation" width="100%" style="max-width:560px;margin:0 auto;background:#ffffff;border-radius:12px;padding:32px">`)
		b.WriteString(`<tr><td><h1 style="font-size:20px;margin:0 0 16px">`)
		b.WriteString(templ.EscapeString(title))
		b.WriteString(`</h1>`)
		for _, p := range paragraphs {
			b.WriteString(`<p style="font-size:15px;line-height:1.5;color:#333">`)
			b.WriteString(templ.EscapeString(p))
			b.WriteString(`</p>`)
		}
		if ctaURL != "" {
			b.WriteString(`<p style="margin-top:24px"><a href="`)
			b.WriteString(templ.EscapeString(ctaURL))
			b.WriteString(`" style="background:#4f46e5;color:#ffffff;padding:10px 18px;border-radius:8px;text-decoration:none">`)
			b.WriteString(templ.EscapeString(ctaLabel))
			b.WriteString(`</a></p>`)
		}
		b.WriteString(`<p style="font-size:12px;color:#999;margin-top:32px">Newton AI</p></td></tr></table></body></html>`)

		_, err := io.WriteString(w, b.String())
		return err
	})
}

// planHighlights describes what limits grant, e.g. "unlimited notes, audio
// uploads and study rooms for up to 8 people".
func planHighlights(limits models.Limits) string {
	var items []string
	switch {
	case limits.NotesPerMonth == models.Unlimited:
		items = append(items, "unlimited notes")
	case limits.NotesPerMonth > 0:
		items = append(items, fmt.Sprintf("%d notes a month", limits.NotesPerMonth))
	}
	switch {
	case limits.MaxUploadMB == models.Unlimited:
		items = append(items, "uploads of any size")
	case limits.MaxUploadMB > 0:
		items = append(items, fmt.Sprintf("uploads up to %d MB", limits.MaxUploadMB))
	}
	if limits.AudioUploads {
		items = append(items, "audio uploads")
	}
	if limits.YouTubeImports {
		items = append(items, "YouTube imports")
	}
	switch {
	case limits.MaxRoomParticipants == models.Unlimited:
		items = append(items, "study rooms of any size")
	case limits.MaxRoomParticipants > 1:
		items = append(items, fmt.Sprintf("study rooms for up to %d people", limits.MaxRoomParticipants))
	}

	if len(items) < 2 {
		return strings.Join(items, "")
	}
	return strings.Join(items[:len(items)-1], ", ") + " and " + items[len(items)-1]
}

// SubscriptionChangedMessage builds the email for an activated or
// deactivated membership. limits are those of the subscription's tier.
func (m *Mailer) SubscriptionChangedMessage(to Recipient, sub *models.Subscription, limits models.Limits) Message {
	tier := strings.ToUpper(string(sub.Tier[:1])) + string(sub.Tier[1:])

	if sub.Status == models.SubscriptionActive {
		activated := fmt.Sprintf("Your Newton %s plan is now active.", tier)
		if highlights := planHighlights(limits); highlights != "" {
			activated += " It includes " + highlights + "."
		}
		paragraphs := []string{to.greeting(), activated}
		if sub.CurrentPeriodEnd != nil {
			paragraphs = append(paragraphs, "Your plan renews on "+sub.CurrentPeriodEnd.Format("January 2, 2006")+".")
		}
		return Message{
			ToEmail:  to.Email,
			ToName:   to.Name,
			Subject:  "Welcome to Newton " + tier,
			Text:     strings.Join(paragraphs, "\n\n"),
			Body:     layout("Your "+tier+" plan is active", paragraphs, "Start studying", m.appURL+"/dashboard"),
			Category: "subscription",
		}
	}

	paragraphs := []string{
		to.greeting(),
		fmt.Sprintf("Your Newton %s plan has ended and your account is back on the free plan. Your notes and flashcards are still here.", tier),
	}
	return Message{
		ToEmail:  to.Email,
		ToName:   to.Name,
		Subject:  "Your Newton plan has ended",
		Text:     strings.Join(paragraphs, "\n\n"),
		Body:     layout("Your plan has ended", paragraphs, "Resubscribe", m.appURL+"/pricing"),
		Category: "subscription",
	}
}

// FriendRequestMessage builds the email sent to the addressee of a request.
func (m *Mailer) FriendRequestMessage(to Recipient, fromName string) Message {
	if fromName == "" {
		fromName = "Someone"
	}
	paragraphs := []string{
		to.greeting(),
		fromName + " wants to study with you on Newton.",
	}
	return Message{
		ToEmail:  to.Email,
		ToName:   to.Name,
		Subject:  fromName + " sent you a friend request",
		Text:     strings.Join(paragraphs, "\n\n"),
		Body:     layout("New friend request", paragraphs, "View request", m.appURL+"/friends"),
		Category: "social",
	}
}

// NotifySubscriptionChanged sends the subscription email in the background.
func (m *Mailer) NotifySubscriptionChanged(to Recipient, sub *models.Subscription, limits models.Limits) {
	if to.Email == "" || sub == nil || sub.Tier == "" {
		return
	}
	m.SendAsync(m.SubscriptionChangedMessage(to, sub, limits))
}

// NotifyFriendRequest sends the friend request email in the background.
func (m *Mailer) NotifyFriendRequest(to Recipient, fromName string) {
	if to.Email == "" {
		return
	}
	m.SendAsync(m.FriendRequestMessage(to, fromName))
}
