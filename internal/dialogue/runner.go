package dialogue

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"nagarbot/internal/chat"
	apperrors "nagarbot/internal/errors"
)

// ErrClosed is returned by a Runner after Close.
var ErrClosed = errors.New("dialogue runner closed")

// TurnHook observes every finished job.
type TurnHook func(action string, err error, took time.Duration)

// job is one queued unit of work for the runner goroutine.
type job struct {
	action string
	run    func(ctx context.Context) ([]chat.Message, error)
	ctx    context.Context
	out    []chat.Message
	err    error
	done   chan struct{}
}

// Runner serialises all access to a Controller.
//
// Architecture:
//   - A single goroutine pulls jobs from a buffered channel, FIFO
//   - pending counts the running turn plus the ones waiting behind it
//   - Once pending reaches queueSize+1, new turns are rejected with a BusyError
//   - Callers block until their job finishes or their context ends; a job
//     whose caller went away still runs to completion
type Runner struct {
	ctrl   *Controller
	jobs   chan *job
	hook   TurnHook
	typing atomic.Bool

	mu      sync.Mutex
	closed  bool
	pending int
	limit   int
	wg      sync.WaitGroup
}

// NewRunner starts the runner goroutine.
//
// Parameters:
//   - ctrl: Controller to drive
//   - queueSize: Turns allowed to wait behind the running one; 0 rejects
//     anything sent while a turn is in progress
//   - hook: Optional observer, may be nil
func NewRunner(ctrl *Controller, queueSize int, hook TurnHook) *Runner {
	if queueSize < 0 {
		queueSize = 0
	}
	r := &Runner{
		ctrl:  ctrl,
		jobs:  make(chan *job, queueSize+1),
		hook:  hook,
		limit: queueSize + 1,
	}

	r.wg.Add(1)
	go r.loop()

	log.Printf("✓ Dialogue runner started (queue size %d)", queueSize)
	return r
}

func (r *Runner) loop() {
	defer r.wg.Done()

	for j := range r.jobs {
		start := time.Now()
		r.typing.Store(true)
		j.out, j.err = j.run(j.ctx)
		r.typing.Store(false)

		// Release the slot before waking the caller so its next turn is admitted.
		r.mu.Lock()
		r.pending--
		r.mu.Unlock()
		close(j.done)

		if r.hook != nil {
			r.hook(j.action, j.err, time.Since(start))
		}
	}
}

// Send runs a free-text turn. Empty text is allowed only with an attachment.
//
// Returns the bot messages produced by the turn.
func (r *Runner) Send(ctx context.Context, text, attachment string) ([]chat.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" && attachment == "" {
		return nil, apperrors.NewValidationError("text", "message is empty")
	}
	return r.submit(ctx, "message", func(ctx context.Context) ([]chat.Message, error) {
		return r.ctrl.Handle(ctx, text, attachment), nil
	})
}

// SelectCategory runs the quick action that opens a complaint intake.
func (r *Runner) SelectCategory(ctx context.Context, category string) ([]chat.Message, error) {
	return r.submit(ctx, "category", func(ctx context.Context) ([]chat.Message, error) {
		msg, err := r.ctrl.StartComplaintSession(ctx, category)
		if err != nil {
			return nil, err
		}
		return []chat.Message{msg}, nil
	})
}

// CheckResolution runs the quick action that asks about a resolved complaint.
func (r *Runner) CheckResolution(ctx context.Context, complaintID string) ([]chat.Message, error) {
	return r.submit(ctx, "resolution-check", func(ctx context.Context) ([]chat.Message, error) {
		msg, err := r.ctrl.StartResolutionCheck(ctx, complaintID)
		if err != nil {
			return nil, err
		}
		return []chat.Message{msg}, nil
	})
}

// Typing reports whether a turn is being prepared.
func (r *Runner) Typing() bool {
	return r.typing.Load()
}

// Queued returns how many turns are waiting behind the running one.
func (r *Runner) Queued() int {
	return len(r.jobs)
}

// Close stops accepting turns and waits for queued ones to finish.
func (r *Runner) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	close(r.jobs)
	r.mu.Unlock()

	r.wg.Wait()
	log.Println("🛑 Dialogue runner stopped")
}

func (r *Runner) submit(ctx context.Context, action string, run func(ctx context.Context) ([]chat.Message, error)) ([]chat.Message, error) {
	j := &job{
		action: action,
		run:    run,
		ctx:    context.WithoutCancel(ctx),
		done:   make(chan struct{}),
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, ErrClosed
	}
	if r.pending >= r.limit {
		queued := r.pending - 1
		r.mu.Unlock()
		return nil, apperrors.NewBusyError(queued)
	}
	r.pending++
	// pending never exceeds the buffer, so this send cannot block.
	r.jobs <- j
	r.mu.Unlock()

	select {
	case <-j.done:
		return j.out, j.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
