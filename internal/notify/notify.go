// Package notify builds the handoff message a citizen sends to the
// municipal office over WhatsApp.
package notify

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strings"

	"nagarbot/internal/complaint"
)

const (
	defaultGreeting = "Hello Nagar Palika, I want to connect regarding municipal services."
	dateLayout      = "02 Jan 2006"
)

// Translator renders text in the office's preferred language.
type Translator interface {
	Translate(ctx context.Context, text string) (string, error)
}

// Composer builds handoff texts and wa.me links.
type Composer struct {
	phone      string
	translator Translator
}

// NewComposer creates a composer for the given office number (digits only,
// with country code). translator may be nil.
func NewComposer(phone string, translator Translator) *Composer {
	return &Composer{phone: phone, translator: translator}
}

// Compose returns the handoff text for c, or the default greeting when c is nil.
//
// When a translator is configured the translated text is appended below
// the English one. Translation failures are logged and the English text is
// returned alone.
func (p *Composer) Compose(ctx context.Context, c *complaint.Complaint) string {
	text := Text(c)
	if p.translator == nil {
		return text
	}

	translated, err := p.translator.Translate(ctx, text)
	if err != nil {
		log.Printf("⚠️  Handoff translation failed, sending English only: %v", err)
		return text
	}
	if translated == "" || translated == text {
		return text
	}
	return text + "\n\n---\n\n" + translated
}

// DeepLink returns the wa.me URL that opens a chat with the office,
// pre-filled with the composed text.
func (p *Composer) DeepLink(ctx context.Context, c *complaint.Complaint) string {
	return fmt.Sprintf("https://wa.me/%s?text=%s", p.phone, url.QueryEscape(p.Compose(ctx, c)))
}

// Text is the untranslated handoff text.
func Text(c *complaint.Complaint) string {
	if c == nil {
		return defaultGreeting
	}

	var b strings.Builder
	b.WriteString("Hello Nagar Palika,\n\n")
	b.WriteString("Complaint Done!\n\n")
	b.WriteString("Complaint Details:\n")
	fmt.Fprintf(&b, "🆔 ID: %s\n", c.ID)
	fmt.Fprintf(&b, "📝 Category: %s\n", c.Category)
	fmt.Fprintf(&b, "📍 Location: %s\n", c.Location)
	fmt.Fprintf(&b, "📋 Description: %s\n", c.Description)
	fmt.Fprintf(&b, "📊 Status: %s\n", c.Status.Label())
	fmt.Fprintf(&b, "📅 Date: %s\n", c.Timestamp.Format(dateLayout))
	if n := len(c.Images); n > 0 {
		fmt.Fprintf(&b, "📸 Images: %d attached in the app\n", n)
	}

	if fb := c.ResolutionFeedback; fb != nil {
		verdict := "Resolved ✅"
		if !fb.IsResolved {
			verdict = "NOT resolved ❌"
		}
		b.WriteString("\nCitizen Feedback:\n")
		fmt.Fprintf(&b, "🗳️ %s (%s)\n", verdict, fb.FeedbackDate.Format(dateLayout))
		if fb.UserMessage != "" {
			fmt.Fprintf(&b, "💬 \"%s\"\n", fb.UserMessage)
		}
	}

	b.WriteString("\nPlease provide updates on this complaint. Thank you!")
	return b.String()
}
