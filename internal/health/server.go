// Package health provides health check and monitoring for the assistant.
//
// This package implements:
//   - Turn counters fed by the dialogue runner
//   - Service feedback ratings
//   - The /health JSON endpoint
package health

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// Status is returned by the /health endpoint for monitoring tools.
//
// Fields:
//   - Uptime: How long the process has been running
//   - Turns: Dialogue jobs completed, FailedTurns of those returned an error
//   - LastTurnStatus: "ok" or the last job's error
//   - Complaints: Complaints currently in the repository
//   - AverageRating: Mean service feedback rating, 0 when none received
type Status struct {
	Status         string  `json:"status"`
	Uptime         string  `json:"uptime"`
	Turns          int     `json:"turns"`
	FailedTurns    int     `json:"failed_turns"`
	LastTurnTime   string  `json:"last_turn_time"`
	LastTurnStatus string  `json:"last_turn_status"`
	Complaints     int     `json:"complaints"`
	FeedbackCount  int     `json:"feedback_count"`
	AverageRating  float64 `json:"average_rating"`
}

// Monitor tracks application health metrics.
//
// Thread-safety:
//   - All fields are protected by RWMutex
//   - RecordTurn is called from the runner goroutine, GetStatus from HTTP handlers
type Monitor struct {
	mu             sync.RWMutex
	startTime      time.Time
	turns          int
	failedTurns    int
	lastTurnTime   time.Time
	lastTurnStatus string
	ratings        int
	ratingSum      int
	complaints     func() int
}

// NewMonitor creates a new health monitor.
//
// Parameters:
//   - complaints: Returns the current complaint count; may be nil
func NewMonitor(complaints func() int) *Monitor {
	return &Monitor{
		startTime:      time.Now(),
		lastTurnStatus: "not started",
		complaints:     complaints,
	}
}

// RecordTurn matches dialogue.TurnHook so it can be passed to the runner directly.
func (m *Monitor) RecordTurn(action string, err error, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.turns++
	m.lastTurnTime = time.Now()
	if err != nil {
		m.failedTurns++
		m.lastTurnStatus = fmt.Sprintf("%s: %v", action, err)
		return
	}
	m.lastTurnStatus = "ok"
}

// RecordFeedback adds a service rating (1-5).
func (m *Monitor) RecordFeedback(rating int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ratings++
	m.ratingSum += rating
}

// GetStatus returns the current health status.
func (m *Monitor) GetStatus() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	st := Status{
		Status:         "healthy",
		Uptime:         time.Since(m.startTime).Round(time.Second).String(),
		Turns:          m.turns,
		FailedTurns:    m.failedTurns,
		LastTurnStatus: m.lastTurnStatus,
		FeedbackCount:  m.ratings,
	}
	if !m.lastTurnTime.IsZero() {
		st.LastTurnTime = m.lastTurnTime.Format("2006-01-02 15:04:05")
	}
	if m.complaints != nil {
		st.Complaints = m.complaints()
	}
	if m.ratings > 0 {
		st.AverageRating = float64(m.ratingSum) / float64(m.ratings)
	}
	return st
}

// Handler serves GET /health.
//
// Example response:
//
//	{
//	  "status": "healthy",
//	  "uptime": "1h2m3s",
//	  "turns": 12,
//	  "last_turn_status": "ok",
//	  "complaints": 3
//	}
func (m *Monitor) Handler(c *gin.Context) {
	c.JSON(http.StatusOK, m.GetStatus())
}
