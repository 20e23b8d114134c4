package dialogue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nagarbot/internal/chat"
	apperrors "nagarbot/internal/errors"
)

// gatePacer blocks each pause until the test releases it.
type gatePacer struct {
	entered chan struct{}
	release chan struct{}
}

func newGatePacer() *gatePacer {
	return &gatePacer{entered: make(chan struct{}, 16), release: make(chan struct{}, 16)}
}

func (g *gatePacer) Pause(time.Duration) {
	g.entered <- struct{}{}
	<-g.release
}

func waitEntered(t *testing.T, g *gatePacer) {
	t.Helper()
	select {
	case <-g.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("turn never reached the typing pause")
	}
}

func TestRunnerSend(t *testing.T) {
	f := newFixture(t)
	r := NewRunner(f.ctrl, 2, nil)
	defer r.Close()

	replies, err := r.Send(context.Background(), "  need help  ", "")
	require.NoError(t, err)
	require.Len(t, replies, 1)
	assert.Equal(t, chat.KindMenu, replies[0].Kind)
	assert.Equal(t, "need help", f.log.All()[0].Text)
	assert.False(t, r.Typing())
}

func TestRunnerRejectsEmptyMessage(t *testing.T) {
	f := newFixture(t)
	r := NewRunner(f.ctrl, 2, nil)
	defer r.Close()

	_, err := r.Send(context.Background(), "   ", "")
	assert.True(t, apperrors.IsValidation(err))
	assert.Equal(t, 0, f.log.Len())

	_, err = r.Send(context.Background(), "", "data:image/png;base64,AAA")
	assert.NoError(t, err, "an attachment alone is a valid turn")
}

func TestRunnerQueuesBackToBackSends(t *testing.T) {
	gate := newGatePacer()
	f := newFixture(t, WithPacer(gate))
	r := NewRunner(f.ctrl, 2, nil)
	defer r.Close()

	ctx := context.Background()
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := r.Send(ctx, "need help", "")
		assert.NoError(t, err)
	}()

	waitEntered(t, gate)
	assert.True(t, r.Typing())

	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := r.Send(ctx, "status", "")
		assert.NoError(t, err)
	}()

	require.Eventually(t, func() bool { return r.Queued() == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, f.log.Len(), "queued turn has not touched the log yet")

	gate.release <- struct{}{}
	waitEntered(t, gate)
	gate.release <- struct{}{}
	wg.Wait()

	all := f.log.All()
	require.Len(t, all, 4)
	assert.Equal(t, "need help", all[0].Text)
	assert.Equal(t, chat.KindMenu, all[1].Kind)
	assert.Equal(t, "status", all[2].Text)
	assert.Equal(t, chat.KindStatus, all[3].Kind)
}

func TestRunnerRejectsWhenQueueFull(t *testing.T) {
	gate := newGatePacer()
	f := newFixture(t, WithPacer(gate))
	r := NewRunner(f.ctrl, 0, nil)
	defer r.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = r.Send(context.Background(), "first", "")
	}()
	waitEntered(t, gate)

	_, err := r.Send(context.Background(), "second", "")
	require.Error(t, err)
	assert.True(t, apperrors.IsBusy(err))

	_, err = r.SelectCategory(context.Background(), "water")
	assert.True(t, apperrors.IsBusy(err))

	gate.release <- struct{}{}
	<-done

	assert.Equal(t, 2, f.log.Len(), "rejected turns leave no trace")
	assert.Nil(t, f.sessions.Current())
}

func TestRunnerWithoutQueueAcceptsSequentialTurns(t *testing.T) {
	for i := 0; i < 20; i++ {
		f := newFixture(t)
		r := NewRunner(f.ctrl, 0, nil)

		want := 0
		for _, text := range []string{"help", "status", "thanks"} {
			replies, err := r.Send(context.Background(), text, "")
			require.NoError(t, err, "idle runner rejected %q", text)
			want += 1 + len(replies)
		}
		r.Close()
		assert.Equal(t, want, f.log.Len())
	}
}

func TestRunnerCallerCancellationDoesNotAbortTurn(t *testing.T) {
	gate := newGatePacer()
	f := newFixture(t, WithPacer(gate))
	r := NewRunner(f.ctrl, 1, nil)
	defer r.Close()

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		_, err := r.Send(ctx, "help", "")
		errc <- err
	}()
	waitEntered(t, gate)

	cancel()
	assert.ErrorIs(t, <-errc, context.Canceled)

	gate.release <- struct{}{}
	require.Eventually(t, func() bool { return f.log.Len() == 2 }, 2*time.Second, 5*time.Millisecond)
}

func TestRunnerQuickActions(t *testing.T) {
	f := newFixture(t)
	var mu sync.Mutex
	var actions []string
	r := NewRunner(f.ctrl, 1, func(action string, err error, _ time.Duration) {
		mu.Lock()
		defer mu.Unlock()
		actions = append(actions, action)
	})

	ctx := context.Background()
	msgs, err := r.SelectCategory(ctx, "road")
	require.NoError(t, err)
	assert.Equal(t, chat.KindCategorySelection, msgs[0].Kind)

	_, err = r.SelectCategory(ctx, "water")
	assert.True(t, apperrors.IsSessionActive(err))

	c := f.resolvedComplaint(t)
	_, err = r.CheckResolution(ctx, c.ID)
	assert.True(t, apperrors.IsSessionActive(err))

	r.Close()
	assert.Equal(t, []string{"category", "category", "resolution-check"}, actions)

	_, err = r.Send(ctx, "hi", "")
	assert.ErrorIs(t, err, ErrClosed)
}
