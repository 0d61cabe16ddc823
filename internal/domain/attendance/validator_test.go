package attendance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnledger/attendance-hub/internal/domain/directory"
	"github.com/learnledger/attendance-hub/internal/domain/shared"
)

func day(s string) shared.Day {
	d, err := shared.ParseDay(s)
	if err != nil {
		panic(err)
	}
	return d
}

func clock(s string) *shared.ClockTime {
	c, err := shared.ParseClockTime(s)
	if err != nil {
		panic(err)
	}
	return &c
}

func TestValidator_PresentSameDay(t *testing.T) {
	v := NewValidator()

	err := v.Check(Input{
		Role:          directory.RoleFaculty,
		OwnAssignment: true,
		Date:          day("2025-11-01"),
		Today:         day("2025-11-01"),
		Status:        StatusPresent,
		InTime:        clock("10:00"),
		OutTime:       clock("11:30"),
	})

	assert.NoError(t, err)
}

func TestValidator_DateRules(t *testing.T) {
	v := NewValidator()
	today := day("2025-11-10")

	tests := []struct {
		name    string
		in      Input
		wantErr error
		wantMsg string
	}{
		{
			name: "future date rejected for non-holiday",
			in: Input{
				Role: directory.RoleCenterHead, Date: day("2025-11-11"), Today: today,
				Status: StatusAbsent,
			},
			wantErr: shared.ErrFutureDate,
		},
		{
			name: "future holiday allowed",
			in: Input{
				Role: directory.RoleCenterHead, Date: day("2025-11-20"), Today: today,
				Status: StatusHoliday,
			},
		},
		{
			name: "yesterday needs no reason",
			in: Input{
				Role: directory.RoleFaculty, OwnAssignment: true,
				Date: day("2025-11-09"), Today: today,
				Status: StatusPresent, InTime: clock("09:00"), OutTime: clock("10:00"),
			},
		},
		{
			name: "ten days back without reason rejected",
			in: Input{
				Role: directory.RoleCenterHead, Date: day("2025-10-31"), Today: today,
				Status: StatusAbsent,
			},
			wantErr: shared.ErrValidation,
			wantMsg: "backdate_reason required",
		},
		{
			name: "backdate with short reason rejected",
			in: Input{
				Role: directory.RoleCenterHead, Date: day("2025-10-31"), Today: today,
				Status: StatusAbsent, BackdateReason: "late",
			},
			wantErr: shared.ErrValidation,
			wantMsg: "backdate_reason too short",
		},
		{
			name: "backdate with proper reason allowed",
			in: Input{
				Role: directory.RoleCenterHead, Date: day("2025-10-31"), Today: today,
				Status: StatusAbsent, BackdateReason: "student record corrected after parent call",
			},
		},
		{
			name: "faculty cannot backdate another faculty's assignment",
			in: Input{
				Role: directory.RoleFaculty, OwnAssignment: false,
				Date: day("2025-10-31"), Today: today,
				Status: StatusAbsent, BackdateReason: "covering for a colleague during leave",
			},
			wantErr: shared.ErrPermissionDenied,
		},
		{
			name: "faculty may backdate own assignment",
			in: Input{
				Role: directory.RoleFaculty, OwnAssignment: true,
				Date: day("2025-10-31"), Today: today,
				Status: StatusAbsent, BackdateReason: "missed entry on the original day",
			},
		},
		{
			name: "master may backdate on behalf of anyone",
			in: Input{
				Role: directory.RoleMaster, OwnAssignment: false,
				Date: day("2025-10-31"), Today: today,
				Status: StatusAbsent, BackdateReason: "bulk correction after ledger review",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Check(tt.in)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			if tt.wantMsg != "" {
				assert.Contains(t, err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestValidator_TimeRules(t *testing.T) {
	v := NewValidator()
	today := day("2025-11-10")

	tests := []struct {
		name    string
		in      Input
		wantErr error
	}{
		{
			name: "present without times rejected",
			in: Input{
				Role: directory.RoleFaculty, OwnAssignment: true,
				Date: today, Today: today, Status: StatusPresent,
			},
			wantErr: shared.ErrValidation,
		},
		{
			name: "present with out before in rejected",
			in: Input{
				Role: directory.RoleFaculty, OwnAssignment: true,
				Date: today, Today: today, Status: StatusPresent,
				InTime: clock("11:00"), OutTime: clock("10:00"),
			},
			wantErr: shared.ErrValidation,
		},
		{
			name: "present with equal times rejected",
			in: Input{
				Role: directory.RoleFaculty, OwnAssignment: true,
				Date: today, Today: today, Status: StatusPresent,
				InTime: clock("10:00"), OutTime: clock("10:00"),
			},
			wantErr: shared.ErrValidation,
		},
		{
			name: "absent with times rejected",
			in: Input{
				Role: directory.RoleFaculty, OwnAssignment: true,
				Date: today, Today: today, Status: StatusAbsent,
				InTime: clock("10:00"), OutTime: clock("11:00"),
			},
			wantErr: shared.ErrValidation,
		},
		{
			name: "holiday with times rejected",
			in: Input{
				Role: directory.RoleCenterHead,
				Date: today, Today: today, Status: StatusHoliday,
				OutTime: clock("11:00"),
			},
			wantErr: shared.ErrValidation,
		},
		{
			name: "leave without times allowed",
			in: Input{
				Role: directory.RoleFaculty, OwnAssignment: true,
				Date: today, Today: today, Status: StatusLeave,
			},
		},
		{
			name: "completed without times allowed",
			in: Input{
				Role: directory.RoleFaculty, OwnAssignment: true,
				Date: today, Today: today, Status: StatusCompleted,
			},
		},
		{
			name: "unknown status rejected",
			in: Input{
				Role: directory.RoleFaculty, OwnAssignment: true,
				Date: today, Today: today, Status: Status("vacation"),
			},
			wantErr: shared.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Check(tt.in)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestInput_IsBackdated(t *testing.T) {
	today := day("2025-11-10")

	assert.False(t, Input{Date: today, Today: today}.IsBackdated())
	assert.False(t, Input{Date: day("2025-11-09"), Today: today}.IsBackdated())
	assert.True(t, Input{Date: day("2025-11-08"), Today: today}.IsBackdated())
	assert.True(t, Input{Date: day("2025-10-01"), Today: today}.IsBackdated())
}
