package health

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestMonitorCounters(t *testing.T) {
	m := NewMonitor(func() int { return 7 })

	st := m.GetStatus()
	if st.LastTurnStatus != "not started" {
		t.Errorf("expected 'not started' but got %q", st.LastTurnStatus)
	}
	if st.LastTurnTime != "" {
		t.Errorf("expected empty last turn time but got %q", st.LastTurnTime)
	}

	m.RecordTurn("message", nil, 0)
	m.RecordTurn("category", errors.New("session already active: complaint"), 0)
	m.RecordFeedback(5)
	m.RecordFeedback(4)

	st = m.GetStatus()
	if st.Turns != 2 || st.FailedTurns != 1 {
		t.Errorf("expected 2 turns/1 failed but got %d/%d", st.Turns, st.FailedTurns)
	}
	if st.LastTurnStatus != "category: session already active: complaint" {
		t.Errorf("unexpected last turn status %q", st.LastTurnStatus)
	}
	if st.Complaints != 7 {
		t.Errorf("expected 7 complaints but got %d", st.Complaints)
	}
	if st.AverageRating != 4.5 {
		t.Errorf("expected average rating 4.5 but got %v", st.AverageRating)
	}
}

func TestHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewMonitor(nil)

	router := gin.New()
	router.GET("/health", m.Handler)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 but got %d", rec.Code)
	}

	var st Status
	if err := json.Unmarshal(rec.Body.Bytes(), &st); err != nil {
		t.Fatalf("expected JSON body but got: %v", err)
	}
	if st.Status != "healthy" {
		t.Errorf("expected 'healthy' but got %q", st.Status)
	}
}
