package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/isdelr/ender-accounts/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEvents struct {
	limit  int
	events []models.Event
	err    error
}

func (s *stubEvents) CreateEvent(context.Context, string, string, string, *int64) error { return nil }

func (s *stubEvents) GetRecentEvents(_ context.Context, limit int) ([]models.Event, error) {
	s.limit = limit
	return s.events, s.err
}

func (s *stubEvents) PruneEvents(context.Context, time.Time) (int64, error) { return 0, nil }

func TestEventHandler_GetRecent(t *testing.T) {
	svc := &stubEvents{events: []models.Event{{ID: "e1", Type: models.EventUserRegistered, Level: models.LevelInfo}}}
	h := NewEventHandler(svc)

	for _, tc := range []struct {
		query string
		want  int
	}{
		{"", defaultEventLimit},
		{"?limit=5", 5},
		{"?limit=-1", defaultEventLimit},
		{"?limit=abc", defaultEventLimit},
	} {
		rec := httptest.NewRecorder()
		h.GetRecent(rec, httptest.NewRequest(http.MethodGet, "/api/events"+tc.query, nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, tc.want, svc.limit, tc.query)
	}

	rec := httptest.NewRecorder()
	h.GetRecent(rec, httptest.NewRequest(http.MethodGet, "/api/events", nil))
	events := decodeBody[[]models.Event](t, rec)
	require.Len(t, events, 1)
	assert.Equal(t, "e1", events[0].ID)
}

func TestEventHandler_GetRecentFailure(t *testing.T) {
	h := NewEventHandler(&stubEvents{err: errors.New("db closed")})

	rec := httptest.NewRecorder()
	h.GetRecent(rec, httptest.NewRequest(http.MethodGet, "/api/events", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "db closed")
}
