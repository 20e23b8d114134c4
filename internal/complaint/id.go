package complaint

import (
	"fmt"
	"sync"
	"time"

	apperrors "nagarbot/internal/errors"
)

const (
	idPrefix = "NP"
	idSpace  = 1_000_000 // six digits
)

// IDGenerator issues complaint identifiers.
type IDGenerator interface {
	NextID(now time.Time) string
}

// TimestampIDs derives IDs from the last six digits of the creation time in
// milliseconds. An ID already issued by this generator is bumped to the next
// free number, so duplicates cannot occur within a process.
type TimestampIDs struct {
	mu     sync.Mutex
	issued map[int]struct{}
}

// NewTimestampIDs creates the default generator.
func NewTimestampIDs() *TimestampIDs {
	return &TimestampIDs{issued: make(map[int]struct{})}
}

// NextID returns a fresh "NP" + six digit ID.
func (g *TimestampIDs) NextID(now time.Time) string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if len(g.issued) >= idSpace {
		panic(apperrors.NewInvariantError("complaint id space exhausted"))
	}

	n := int(now.UnixMilli() % idSpace)
	if n < 0 {
		n += idSpace
	}
	for {
		if _, taken := g.issued[n]; !taken {
			break
		}
		n = (n + 1) % idSpace
	}
	g.issued[n] = struct{}{}

	return formatID(n)
}

// SequentialIDs issues NP000001, NP000002, ... and ignores the clock.
// Tests use it for predictable IDs.
type SequentialIDs struct {
	mu   sync.Mutex
	next int
}

// NextID returns the next ID in sequence.
func (g *SequentialIDs) NextID(time.Time) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.next++
	return formatID(g.next % idSpace)
}

func formatID(n int) string {
	return fmt.Sprintf("%s%06d", idPrefix, n)
}
