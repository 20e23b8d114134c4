package main

import (
	"fmt"
	"strings"

	"nagarbot/internal/chat"
	"nagarbot/internal/complaint"
)

type commandKind int

const (
	cmdUnknown commandKind = iota
	cmdCategory
	cmdRecheck
	cmdComplaints
	cmdHandoff
	cmdAttach
	cmdHelp
	cmdQuit
)

type command struct {
	kind commandKind
	arg  string
}

const helpText = `**Commands**

- /water, /road, /sanitation, /other: report an issue in that category
- /recheck ID: tell us whether a resolved complaint is really fixed
- /complaints: list your complaints
- /attach PATH: attach an image to your next message
- /handoff: WhatsApp message for the municipal office
- /quit: exit`

// parseCommand interprets a line starting with "/".
func parseCommand(input string) command {
	fields := strings.Fields(strings.TrimPrefix(strings.TrimSpace(input), "/"))
	if len(fields) == 0 {
		return command{kind: cmdUnknown}
	}
	name := strings.ToLower(fields[0])
	arg := strings.TrimSpace(strings.Join(fields[1:], " "))

	if _, ok := complaint.ParseCategory(name); ok {
		return command{kind: cmdCategory, arg: name}
	}

	switch name {
	case "recheck":
		return command{kind: cmdRecheck, arg: strings.ToUpper(arg)}
	case "complaints", "list":
		return command{kind: cmdComplaints}
	case "handoff", "whatsapp":
		return command{kind: cmdHandoff}
	case "attach":
		return command{kind: cmdAttach, arg: arg}
	case "help", "?":
		return command{kind: cmdHelp}
	case "quit", "exit":
		return command{kind: cmdQuit}
	}
	return command{kind: cmdUnknown, arg: name}
}

// transcriptMarkdown renders the log as markdown for glamour.
func transcriptMarkdown(msgs []chat.Message) string {
	var b strings.Builder
	for i, m := range msgs {
		if i > 0 {
			b.WriteString("\n\n---\n\n")
		}
		who := "🏛️ **Nagar Palika**"
		if m.Sender == chat.SenderUser {
			who = "🙋 **You**"
		}
		fmt.Fprintf(&b, "%s · %s\n\n", who, m.Timestamp.Format("15:04"))
		if m.Text != "" {
			b.WriteString(m.Text)
		}
		if m.Metadata != nil && len(m.Metadata.Images) > 0 && m.Sender == chat.SenderUser {
			fmt.Fprintf(&b, "\n\n📸 %d image(s) attached", len(m.Metadata.Images))
		}
	}
	return b.String()
}

// complaintsMarkdown lists complaints newest first with a re-check hint.
func complaintsMarkdown(list []complaint.Complaint) string {
	if len(list) == 0 {
		return "📋 You have not filed any complaints yet."
	}
	var b strings.Builder
	b.WriteString("📋 **My Complaints**\n")
	for i := len(list) - 1; i >= 0; i-- {
		c := list[i]
		fmt.Fprintf(&b, "\n- **%s** %s, %s: %s", c.ID, c.Category, c.Location, c.Status.Label())
		if c.CanCheckResolution() {
			fmt.Fprintf(&b, " (`/recheck %s`)", c.ID)
		}
	}
	return b.String()
}
