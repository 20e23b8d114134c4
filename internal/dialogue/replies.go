package dialogue

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"nagarbot/internal/catalog"
	"nagarbot/internal/complaint"
)

const (
	registrationDescLimit = 100
	statusDescLimit       = 50
	dateLayout            = "02 Jan 2006"
)

func categorySelectedText(e catalog.Entry) string {
	return fmt.Sprintf(
		"%s **%s Selected**\n\n"+
			"Great! I'll help you report this issue. Let's start with some basic information.\n\n"+
			"📍 **Step 1: Location Details**\n\n"+
			"Please provide the exact location where the issue is occurring:\n\n"+
			"• Street name and number\n"+
			"• Landmark or nearby reference\n"+
			"• Area/locality name\n"+
			"• Any specific details to help locate the problem\n\n"+
			"💡 **Examples for %s:** %s\n\n"+
			"Please type your location details:",
		e.Emoji, e.Name, strings.ToLower(e.Name), e.Examples,
	)
}

func locationRecordedText(location string, e catalog.Entry) string {
	return fmt.Sprintf(
		"📍 Location recorded: %s\n\n"+
			"%s Now, please describe your %s issue in detail.\n\n"+
			"📸 You can also attach images to help us understand the problem better.\n\n"+
			"💡 Tip: Be specific about the problem, when it started, and how it affects you.",
		location, e.Emoji, e.Key,
	)
}

func registeredText(c complaint.Complaint, emoji string) string {
	var b strings.Builder
	b.WriteString("✅ **Complaint Successfully Registered!**\n\n")
	fmt.Fprintf(&b, "🆔 **Complaint ID:** %s\n", c.ID)
	fmt.Fprintf(&b, "%s **Category:** %s\n", emoji, c.Category)
	fmt.Fprintf(&b, "📍 **Location:** %s\n", c.Location)
	fmt.Fprintf(&b, "📝 **Description:** %s\n", truncate(c.Description, registrationDescLimit))
	if n := len(c.Images); n > 0 {
		fmt.Fprintf(&b, "📸 **Images:** %d attached\n", n)
	}
	fmt.Fprintf(&b, "📊 **Status:** %s\n\n", c.Status.Label())
	b.WriteString("⏰ **Expected Resolution:** 3-5 working days\n")
	b.WriteString("📱 **Updates:** You'll receive notifications via SMS/WhatsApp\n\n")
	b.WriteString("🔍 **Track Status:** Click \"My Complaints\" to view all your complaints\n")
	b.WriteString("💬 **Need Help:** Use WhatsApp button to share complaint details\n")
	b.WriteString("⭐ **Feedback:** Share your experience using the Feedback button")
	return b.String()
}

func statusText(recent []complaint.Complaint) string {
	entries := make([]string, 0, len(recent))
	for _, c := range recent {
		entries = append(entries, fmt.Sprintf(
			"🆔 %s\n📝 %s - %s...\n📍 Location: %s\n📊 Status: %s\n⏰ %s",
			c.ID, c.Category, clip(c.Description, statusDescLimit), c.Location,
			c.Status.Label(), c.Timestamp.Format(dateLayout),
		))
	}
	return "📋 Your Recent Complaints:\n\n" + strings.Join(entries, "\n\n") +
		"\n\n💬 Need help with any complaint? Just mention the complaint ID!" +
		"\n\n👁️ You can also click \"My Complaints\" in quick actions to view all complaints."
}

func resolutionPromptText(c complaint.Complaint, emoji string) string {
	return fmt.Sprintf(
		"🔍 **Resolution Check**\n\n"+
			"🆔 %s\n%s %s - %s\n📍 Location: %s\n📅 Filed: %s\n\n"+
			"Our team has marked this complaint as **RESOLVED**.\n\n"+
			"Is the issue actually fixed? Reply **yes** if it is resolved, or **no** if the problem still persists.",
		c.ID, emoji, c.Category, truncate(c.Description, registrationDescLimit), c.Location,
		c.Timestamp.Format(dateLayout),
	)
}

func resolutionConfirmedText(id string) string {
	return fmt.Sprintf(
		"🎉 **Thank you for confirming!**\n\n"+
			"Complaint %s is now closed as resolved.\n\n"+
			"⭐ We'd love to hear about your experience. Use the Feedback button to rate our service.",
		id,
	)
}

func resolutionEscalatedText(id string) string {
	return fmt.Sprintf(
		"😔 **We're sorry the issue is not fixed.**\n\n"+
			"Complaint %s has been marked **UNRESOLVED** and escalated to the concerned department for priority action.\n\n"+
			"📞 You can also use the WhatsApp button to share the complaint details with the municipal office directly.",
		id,
	)
}

// truncate shortens s to limit runes and appends "..." only when it cut something.
func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit]) + "..."
}

// clip shortens s to limit runes without a marker.
func clip(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}
