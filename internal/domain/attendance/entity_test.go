package attendance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnledger/attendance-hub/internal/domain/shared"
)

const (
	testAssignmentID = shared.AssignmentID("3f1d7a92-5b44-4c1e-9d6a-2f8b0c7e1a55")
	testCenterID     = shared.TenantID("b2a6e4c8-1d3f-4a5b-8c7d-9e0f1a2b3c4d")
	testActorID      = shared.ActorID("7c9e2b5a-8d1f-4e3c-a6b0-5d4f3e2c1b0a")
)

func baseParams() NewEventParams {
	return NewEventParams{
		ID:           "evt-1",
		AssignmentID: testAssignmentID,
		CenterID:     testCenterID,
		StudentID:    "student-1",
		FacultyID:    "faculty-1",
		Date:         day("2025-11-01"),
		Today:        day("2025-11-01"),
		Status:       StatusPresent,
		InTime:       clock("10:00"),
		OutTime:      clock("11:30"),
		CreatedBy:    testActorID,
		CreatedAt:    time.Date(2025, 11, 1, 11, 35, 0, 0, time.UTC),
	}
}

func TestNewEvent_StampsDuration(t *testing.T) {
	event, err := NewEvent(baseParams())
	require.NoError(t, err)

	require.NotNil(t, event.DurationMinutes)
	assert.Equal(t, 90, *event.DurationMinutes)
	assert.False(t, event.IsBackdated)
}

func TestNewEvent_StampsBackdated(t *testing.T) {
	tests := []struct {
		name string
		date string
		want bool
	}{
		{"same day", "2025-11-10", false},
		{"yesterday within grace", "2025-11-09", false},
		{"two days back", "2025-11-08", true},
		{"ten days back", "2025-10-31", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := baseParams()
			params.Date = day(tt.date)
			params.Today = day("2025-11-10")
			params.Status = StatusAbsent
			params.InTime = nil
			params.OutTime = nil
			params.BackdateReason = "entry recovered from the paper register"

			event, err := NewEvent(params)
			require.NoError(t, err)
			assert.Equal(t, tt.want, event.IsBackdated)
			assert.Nil(t, event.DurationMinutes)
		})
	}
}

func TestNewEvent_NormalizesTopics(t *testing.T) {
	params := baseParams()
	params.Topics = []string{"algebra-1", " algebra-1 ", "", "geometry-2"}

	event, err := NewEvent(params)
	require.NoError(t, err)

	assert.Equal(t, []string{"algebra-1", "geometry-2"}, event.Topics)
	assert.Equal(t, 2, event.TopicCount())
}

func TestNewEvent_RejectsBadIDs(t *testing.T) {
	params := baseParams()
	params.AssignmentID = "not-a-uuid"

	_, err := NewEvent(params)
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrInvalidID)
}

func TestEvent_Overlaps(t *testing.T) {
	build := func(date, in, out string) *Event {
		params := baseParams()
		params.Date = day(date)
		params.Today = day(date)
		params.InTime = clock(in)
		params.OutTime = clock(out)
		event, err := NewEvent(params)
		require.NoError(t, err)
		return event
	}

	morning := build("2025-11-01", "09:00", "10:30")

	assert.True(t, morning.Overlaps(build("2025-11-01", "10:00", "11:00")))
	assert.True(t, morning.Overlaps(build("2025-11-01", "08:00", "09:01")))
	assert.False(t, morning.Overlaps(build("2025-11-01", "10:30", "11:30")))
	assert.False(t, morning.Overlaps(build("2025-11-02", "09:30", "10:00")))

	// Events without times never overlap.
	params := baseParams()
	params.Status = StatusAbsent
	params.InTime = nil
	params.OutTime = nil
	absent, err := NewEvent(params)
	require.NoError(t, err)
	assert.False(t, morning.Overlaps(absent))
}
