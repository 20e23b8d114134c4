package dialogue

import (
	"context"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nagarbot/internal/catalog"
	"nagarbot/internal/chat"
	"nagarbot/internal/complaint"
	apperrors "nagarbot/internal/errors"
	"nagarbot/internal/session"
	"nagarbot/internal/storage"
)

type fixture struct {
	log      *chat.Log
	repo     *storage.Repository
	sessions *session.Store
	ctrl     *Controller
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{
		log:      chat.NewLog(),
		repo:     storage.New(storage.WithIDGenerator(&complaint.SequentialIDs{})),
		sessions: session.NewStore(),
	}
	f.ctrl = NewController(f.log, f.repo, f.sessions, catalog.Default(), opts...)
	return f
}

// resolvedComplaint files a complaint and marks it resolved by staff.
func (f *fixture) resolvedComplaint(t *testing.T) complaint.Complaint {
	t.Helper()
	c := f.repo.Submit(complaint.CategoryRoad, "Station Road", "Deep pothole near bus stop", nil)
	resolved, err := f.repo.SetStatus(c.ID, complaint.StatusResolved)
	require.NoError(t, err)
	return resolved
}

func botMessages(msgs []chat.Message) []chat.Message {
	var out []chat.Message
	for _, m := range msgs {
		if m.Sender == chat.SenderBot {
			out = append(out, m)
		}
	}
	return out
}

func TestGreet(t *testing.T) {
	f := newFixture(t)

	msg, ok := f.ctrl.Greet()
	require.True(t, ok)
	assert.Equal(t, chat.KindWelcome, msg.Kind)

	_, ok = f.ctrl.Greet()
	assert.False(t, ok, "welcome is only added once")
	assert.Equal(t, 1, f.log.Len())
}

func TestComplaintIntakeFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	prompt, err := f.ctrl.StartComplaintSession(ctx, "water")
	require.NoError(t, err)
	assert.Equal(t, chat.KindCategorySelection, prompt.Kind)
	assert.Equal(t, "water", prompt.Metadata.Category)
	assert.Contains(t, prompt.Text, "Water Supply Issue Selected")

	replies := f.ctrl.Handle(ctx, "12 MG Road", "")
	require.Len(t, replies, 1)
	assert.Equal(t, chat.KindComplaintForm, replies[0].Kind)
	assert.Contains(t, replies[0].Text, "Location recorded: 12 MG Road")

	before := len(botMessages(f.log.All()))
	replies = f.ctrl.Handle(ctx, "No water since 3 days", "")
	require.Len(t, replies, 1)
	assert.Len(t, botMessages(f.log.All()), before+1, "exactly one bot message for the submission")
	assert.Equal(t, chat.KindComplaint, replies[0].Kind)

	require.Equal(t, 1, f.repo.Count())
	filed, _ := f.repo.Last()
	assert.Equal(t, "Water", filed.Category)
	assert.Equal(t, complaint.StatusPending, filed.Status)
	assert.Equal(t, "12 MG Road", filed.Location)
	assert.Equal(t, "No water since 3 days", filed.Description)
	assert.Regexp(t, regexp.MustCompile(`^NP\d{6}$`), filed.ID)
	assert.Equal(t, filed.ID, replies[0].Metadata.ComplaintID)
	assert.Nil(t, f.sessions.Current())

	// session cleared: the next turn goes through the intent router
	replies = f.ctrl.Handle(ctx, "hello there", "")
	assert.Equal(t, chat.KindGuidance, replies[0].Kind)
	assert.Equal(t, 1, f.repo.Count())
}

func TestUserMessagePrecedesReply(t *testing.T) {
	f := newFixture(t)

	f.ctrl.Handle(context.Background(), "need help", "")

	all := f.log.All()
	require.Len(t, all, 2)
	assert.Equal(t, chat.SenderUser, all[0].Sender)
	assert.Equal(t, chat.SenderBot, all[1].Sender)
	assert.Equal(t, chat.KindMenu, all[1].Kind)
}

func TestIntakeCombinesAttachments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.ctrl.StartComplaintSession(ctx, "sanitation")
	require.NoError(t, err)

	f.ctrl.Handle(ctx, "Ward 7 market", "data:image/png;base64,AAA")
	replies := f.ctrl.Handle(ctx, "Garbage not collected", "data:image/jpeg;base64,BBB")

	filed, _ := f.repo.Last()
	assert.Equal(t, []string{"data:image/png;base64,AAA", "data:image/jpeg;base64,BBB"}, filed.Images)
	assert.Contains(t, replies[0].Text, "📸 **Images:** 2 attached")

	user := f.log.All()[1]
	require.NotNil(t, user.Metadata)
	assert.Equal(t, []string{"data:image/png;base64,AAA"}, user.Metadata.Images)
}

func TestRegistrationTruncatesDescription(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	long := strings.Repeat("a", 120)

	_, err := f.ctrl.StartComplaintSession(ctx, "other")
	require.NoError(t, err)
	f.ctrl.Handle(ctx, "Park", "")
	replies := f.ctrl.Handle(ctx, long, "")

	assert.Contains(t, replies[0].Text, strings.Repeat("a", 100)+"...\n")
	assert.NotContains(t, replies[0].Text, strings.Repeat("a", 101))

	filed, _ := f.repo.Last()
	assert.Equal(t, long, filed.Description, "stored description is not truncated")
}

func TestStatusQuery(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	replies := f.ctrl.Handle(ctx, "What is my complaint status?", "")
	require.Len(t, replies, 1)
	assert.Equal(t, chat.KindStatus, replies[0].Kind)
	assert.Contains(t, replies[0].Text, "No complaints found")
	assert.NotContains(t, replies[0].Text, "Your Recent Complaints")

	for i := 0; i < 4; i++ {
		f.repo.Submit(complaint.CategoryWater, "Loc", "Pipe burst on main road", nil)
	}
	replies = f.ctrl.Handle(ctx, "status", "")
	text := replies[0].Text
	assert.Contains(t, text, "Your Recent Complaints")
	assert.NotContains(t, text, "NP000001")
	assert.Contains(t, text, "NP000002")
	assert.Contains(t, text, "NP000004")
	assert.Less(t, strings.Index(text, "NP000002"), strings.Index(text, "NP000004"))
	assert.Contains(t, text, "📊 Status: PENDING")
}

func TestResolutionAffirmative(t *testing.T) {
	for _, answer := range []string{"yes", "It is FIXED now", "solved, thanks", "resolved"} {
		t.Run(answer, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			c := f.resolvedComplaint(t)

			_, err := f.ctrl.StartResolutionCheck(ctx, c.ID)
			require.NoError(t, err)

			replies := f.ctrl.Handle(ctx, answer, "")
			assert.Equal(t, chat.KindResolutionCheck, replies[0].Kind)

			got, _ := f.repo.Get(c.ID)
			assert.Equal(t, complaint.StatusResolved, got.Status)
			require.NotNil(t, got.ResolutionFeedback)
			assert.True(t, got.ResolutionFeedback.IsResolved)
			assert.Equal(t, answer, got.ResolutionFeedback.UserMessage)
			assert.Nil(t, f.sessions.Current())
		})
	}
}

type recordingEscalator struct {
	got []complaint.Complaint
}

func (r *recordingEscalator) Escalate(_ context.Context, c complaint.Complaint) error {
	r.got = append(r.got, c)
	return nil
}

func TestResolutionNegative(t *testing.T) {
	for _, answer := range []string{"no", "Still leaking", "there is a problem"} {
		t.Run(answer, func(t *testing.T) {
			esc := &recordingEscalator{}
			f := newFixture(t, WithEscalator(esc))
			ctx := context.Background()
			c := f.resolvedComplaint(t)
			f.repo.Submit(complaint.CategoryWater, "Other place", "newer complaint", nil)

			_, err := f.ctrl.StartResolutionCheck(ctx, c.ID)
			require.NoError(t, err)
			replies := f.ctrl.Handle(ctx, answer, "")

			got, _ := f.repo.Get(c.ID)
			assert.Equal(t, complaint.StatusUnresolved, got.Status)
			require.NotNil(t, got.ResolutionFeedback)
			assert.False(t, got.ResolutionFeedback.IsResolved)

			last, _ := f.repo.Last()
			assert.Equal(t, c.ID, last.ID, "last complaint pointer moves to the unresolved one")
			assert.Contains(t, replies[0].Text, "UNRESOLVED")
			assert.Nil(t, f.sessions.Current())

			require.Len(t, esc.got, 1)
			assert.Equal(t, c.ID, esc.got[0].ID)
		})
	}
}

func TestResolutionAmbiguousKeepsSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.resolvedComplaint(t)

	_, err := f.ctrl.StartResolutionCheck(ctx, c.ID)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		replies := f.ctrl.Handle(ctx, "maybe", "")
		assert.Contains(t, replies[0].Text, "couldn't tell")
		assert.NotNil(t, f.sessions.Current())
	}

	got, _ := f.repo.Get(c.ID)
	assert.Nil(t, got.ResolutionFeedback)

	f.ctrl.Handle(ctx, "yes", "")
	got, _ = f.repo.Get(c.ID)
	assert.NotNil(t, got.ResolutionFeedback)
}

func TestResolutionOnVanishedComplaint(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.sessions.Begin(session.ResolutionSession{ComplaintID: "NP424242", Step: session.StepCheck}))

	replies := f.ctrl.Handle(context.Background(), "yes", "")

	require.Len(t, replies, 1)
	assert.Nil(t, f.sessions.Current())
	assert.Equal(t, 0, f.repo.Count())
}

func TestEntryPointGuards(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.resolvedComplaint(t)

	_, err := f.ctrl.StartComplaintSession(ctx, "electricity")
	assert.True(t, apperrors.IsValidation(err))
	assert.Nil(t, f.sessions.Current())

	_, err = f.ctrl.StartResolutionCheck(ctx, "NP999999")
	assert.True(t, apperrors.IsNotFound(err))

	pending := f.repo.Submit(complaint.CategoryWater, "x", "y", nil)
	_, err = f.ctrl.StartResolutionCheck(ctx, pending.ID)
	assert.True(t, apperrors.IsNotEligible(err))

	_, err = f.ctrl.StartComplaintSession(ctx, "road")
	require.NoError(t, err)
	logLen := f.log.Len()

	_, err = f.ctrl.StartComplaintSession(ctx, "water")
	assert.True(t, apperrors.IsSessionActive(err))
	_, err = f.ctrl.StartResolutionCheck(ctx, c.ID)
	assert.True(t, apperrors.IsSessionActive(err))

	assert.Equal(t, logLen, f.log.Len(), "rejected entry points emit nothing")
	cs, ok := f.sessions.Current().(session.ComplaintSession)
	require.True(t, ok)
	assert.Equal(t, complaint.CategoryRoad, cs.Category)
}

func TestResolutionCheckOnlyOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.resolvedComplaint(t)

	_, err := f.ctrl.StartResolutionCheck(ctx, c.ID)
	require.NoError(t, err)
	f.ctrl.Handle(ctx, "yes", "")

	_, err = f.ctrl.StartResolutionCheck(ctx, c.ID)
	assert.True(t, apperrors.IsNotEligible(err))
}

func TestNoPendingComplaintWithFeedback(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	answers := []string{"yes", "no", "maybe", "status", "help"}
	for i, answer := range answers {
		c := f.resolvedComplaint(t)
		_, err := f.ctrl.StartResolutionCheck(ctx, c.ID)
		require.NoError(t, err)
		f.ctrl.Handle(ctx, answer, "")
		if f.sessions.Current() != nil {
			f.ctrl.Handle(ctx, answers[(i+1)%2], "")
		}
	}

	for _, c := range f.repo.All() {
		if c.ResolutionFeedback != nil {
			assert.NotEqual(t, complaint.StatusPending, c.Status, c.ID)
			assert.Contains(t, []complaint.Status{complaint.StatusResolved, complaint.StatusUnresolved}, c.Status)
		}
	}
}
