// Package dialogue drives the conversation.
//
// Controller is the synchronous state machine: every call runs to
// completion and touches the log, repository and session store directly.
// Runner wraps a Controller with the typing delay and a FIFO turn queue so
// that concurrent callers are serialised onto a single goroutine.
//
// Turn flow:
//  1. Accept appends the user message
//  2. The pacer pauses for the typing delay
//  3. Respond continues the active session, or routes the text by intent
package dialogue

import (
	"context"
	"log"
	"strings"
	"time"

	"nagarbot/internal/catalog"
	"nagarbot/internal/chat"
	"nagarbot/internal/complaint"
	apperrors "nagarbot/internal/errors"
	"nagarbot/internal/intent"
	"nagarbot/internal/session"
	"nagarbot/internal/storage"
)

// Pacer simulates the assistant typing. The pause is never cancelled once
// started.
type Pacer interface {
	Pause(d time.Duration)
}

// SleepPacer blocks the calling goroutine for the delay.
type SleepPacer struct{}

func (SleepPacer) Pause(d time.Duration) {
	if d > 0 {
		time.Sleep(d)
	}
}

// NoDelay skips every pause.
type NoDelay struct{}

func (NoDelay) Pause(time.Duration) {}

// Delays configures the simulated typing time.
type Delays struct {
	Typing      time.Duration // before answering free text
	QuickAction time.Duration // before answering a button press
}

// Escalator is told about complaints the citizen reports as not fixed.
type Escalator interface {
	Escalate(ctx context.Context, c complaint.Complaint) error
}

// Controller owns the per-turn state machine.
type Controller struct {
	log       *chat.Log
	repo      *storage.Repository
	sessions  *session.Store
	catalog   *catalog.Catalog
	pacer     Pacer
	delays    Delays
	recent    int
	escalator Escalator
}

// Option configures a Controller.
type Option func(*Controller)

// WithPacer sets how delays are applied. The default is NoDelay.
func WithPacer(p Pacer) Option {
	return func(c *Controller) { c.pacer = p }
}

// WithDelays sets the typing and quick-action delays.
func WithDelays(d Delays) Option {
	return func(c *Controller) { c.delays = d }
}

// WithRecentLimit sets how many complaints a status reply lists.
func WithRecentLimit(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.recent = n
		}
	}
}

// WithEscalator registers the receiver for unresolved complaints.
func WithEscalator(e Escalator) Option {
	return func(c *Controller) { c.escalator = e }
}

// NewController creates a controller over the given state.
func NewController(l *chat.Log, repo *storage.Repository, sessions *session.Store, cat *catalog.Catalog, opts ...Option) *Controller {
	c := &Controller{
		log:      l,
		repo:     repo,
		sessions: sessions,
		catalog:  cat,
		pacer:    NoDelay{},
		recent:   3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Greet appends the welcome message to an empty log.
func (c *Controller) Greet() (chat.Message, bool) {
	if c.log.Len() > 0 {
		return chat.Message{}, false
	}
	return c.log.Append(chat.SenderBot, c.catalog.Texts.Welcome, chat.KindWelcome, nil), true
}

// Handle runs one full turn: accept, pause, respond.
func (c *Controller) Handle(ctx context.Context, text, attachment string) []chat.Message {
	c.Accept(text, attachment)
	c.pacer.Pause(c.delays.Typing)
	return c.Respond(ctx, text, attachment)
}

// Accept appends the user's message. It never fails.
func (c *Controller) Accept(text, attachment string) chat.Message {
	var md *chat.Metadata
	if attachment != "" {
		md = &chat.Metadata{Images: []string{attachment}}
	}
	return c.log.Append(chat.SenderUser, text, chat.KindNone, md)
}

// Respond computes and appends the bot's replies for a turn whose user
// message was already accepted.
//
// Priority:
//  1. An active resolution check consumes the text as a yes/no answer
//  2. An active complaint intake consumes it as location or description
//  3. Otherwise the intent router picks status, menu or guidance
func (c *Controller) Respond(ctx context.Context, text, attachment string) []chat.Message {
	switch s := c.sessions.Current().(type) {
	case session.ResolutionSession:
		return c.answerResolution(ctx, s, text)
	case session.ComplaintSession:
		return c.continueComplaint(s, text, attachment)
	case nil:
		return c.route(text)
	default:
		panic(apperrors.NewInvariantError("unknown session type %T", s))
	}
}

func (c *Controller) answerResolution(ctx context.Context, s session.ResolutionSession, text string) []chat.Message {
	switch intent.ClassifyAnswer(text) {
	case intent.Affirmative:
		c.repo.UpdateResolution(s.ComplaintID, true, text)
		c.sessions.Clear()
		log.Printf("✅ Citizen confirmed complaint %s resolved", s.ComplaintID)
		return c.say(resolutionConfirmedText(s.ComplaintID), chat.KindResolutionCheck, &chat.Metadata{ComplaintID: s.ComplaintID})

	case intent.Negative:
		updated, ok := c.repo.UpdateResolution(s.ComplaintID, false, text)
		c.sessions.Clear()
		log.Printf("⚠️  Citizen reports complaint %s not fixed", s.ComplaintID)
		if ok && c.escalator != nil {
			if err := c.escalator.Escalate(ctx, updated); err != nil {
				log.Printf("⚠️  Escalation for %s failed: %v", s.ComplaintID, err)
			}
		}
		return c.say(resolutionEscalatedText(s.ComplaintID), chat.KindResolutionCheck, &chat.Metadata{ComplaintID: s.ComplaintID})

	default:
		return c.say(c.catalog.Texts.ClarifyResolution, chat.KindResolutionCheck, &chat.Metadata{ComplaintID: s.ComplaintID})
	}
}

func (c *Controller) continueComplaint(s session.ComplaintSession, text, attachment string) []chat.Message {
	entry := c.entry(s.Category)
	images := s.Images
	if attachment != "" {
		images = append(append([]string{}, images...), attachment)
	}

	switch s.Step {
	case session.StepLocation:
		s.Location = text
		s.Images = images
		s.Step = session.StepDescription
		c.sessions.Replace(s)
		return c.say(locationRecordedText(text, entry), chat.KindComplaintForm, &chat.Metadata{
			Category: string(s.Category),
			Location: text,
		})

	case session.StepDescription:
		filed := c.repo.Submit(s.Category, s.Location, text, images)
		c.sessions.Clear()
		return c.say(registeredText(filed, entry.Emoji), chat.KindComplaint, &chat.Metadata{
			Category:    filed.Category,
			Location:    filed.Location,
			Images:      filed.Images,
			ComplaintID: filed.ID,
		})

	default:
		panic(apperrors.NewInvariantError("complaint session at step %q", s.Step))
	}
}

func (c *Controller) route(text string) []chat.Message {
	switch intent.Classify(text) {
	case intent.StatusQuery:
		recent := c.repo.ListRecent(c.recent)
		if len(recent) == 0 {
			return c.say(c.catalog.Texts.NoComplaints, chat.KindStatus, nil)
		}
		return c.say(statusText(recent), chat.KindStatus, nil)
	case intent.HelpQuery:
		return c.say(c.catalog.Texts.Menu, chat.KindMenu, nil)
	default:
		return c.say(c.catalog.Texts.Guidance, chat.KindGuidance, nil)
	}
}

// StartComplaintSession opens the intake flow for a category and asks for
// the location.
//
// Returns:
//   - ValidationError: unknown category
//   - SessionActiveError: another flow is still waiting for input
//
// Neither error changes any state.
func (c *Controller) StartComplaintSession(ctx context.Context, category string) (chat.Message, error) {
	cat, ok := complaint.ParseCategory(category)
	if !ok {
		return chat.Message{}, apperrors.NewValidationError("category", "unknown category "+strings.TrimSpace(category))
	}
	if err := c.sessions.Begin(session.ComplaintSession{Step: session.StepLocation, Category: cat}); err != nil {
		return chat.Message{}, err
	}

	c.pacer.Pause(c.delays.QuickAction)

	msgs := c.say(categorySelectedText(c.entry(cat)), chat.KindCategorySelection, &chat.Metadata{Category: string(cat)})
	return msgs[0], nil
}

// StartResolutionCheck asks the citizen whether a resolved complaint is
// actually fixed.
//
// Returns:
//   - NotFoundError: no complaint with that id
//   - NotEligibleError: not resolved, or already answered
//   - SessionActiveError: another flow is still waiting for input
func (c *Controller) StartResolutionCheck(ctx context.Context, complaintID string) (chat.Message, error) {
	target, ok := c.repo.Get(complaintID)
	if !ok {
		return chat.Message{}, apperrors.NewNotFoundError("complaint", complaintID)
	}
	if !target.CanCheckResolution() {
		return chat.Message{}, apperrors.NewNotEligibleError(target.ID, string(target.Status))
	}
	if err := c.sessions.Begin(session.ResolutionSession{ComplaintID: target.ID, Step: session.StepCheck}); err != nil {
		return chat.Message{}, err
	}

	c.pacer.Pause(c.delays.QuickAction)

	emoji := c.catalog.Emoji(target.CategoryKey())
	msgs := c.say(resolutionPromptText(target, emoji), chat.KindResolutionCheck, &chat.Metadata{ComplaintID: target.ID})
	return msgs[0], nil
}

func (c *Controller) say(text string, kind chat.Kind, md *chat.Metadata) []chat.Message {
	return []chat.Message{c.log.Append(chat.SenderBot, text, kind, md)}
}

func (c *Controller) entry(cat complaint.Category) catalog.Entry {
	e, ok := c.catalog.Lookup(cat)
	if !ok {
		panic(apperrors.NewInvariantError("category %q missing from catalog", cat))
	}
	return e
}
