// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// ═══════════════════════════════════════════════════════════════════════════
// ID Value Objects
// ═══════════════════════════════════════════════════════════════════════════

// UUID validation regex (simple version).
var uuidRegex = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

func isUUID(s string) bool { return uuidRegex.MatchString(s) }

// ActorID identifies an authenticated identity (UUID format).
type ActorID string

// IsValid checks if the actor ID is a valid UUID.
func (a ActorID) IsValid() bool { return isUUID(string(a)) }

// String returns the string representation.
func (a ActorID) String() string { return string(a) }

// IsEmpty checks if the ID is empty.
func (a ActorID) IsEmpty() bool { return a == "" }

// NewActorID creates a new ActorID with validation.
func NewActorID(id string) (ActorID, error) {
	a := ActorID(strings.ToLower(strings.TrimSpace(id)))
	if !a.IsValid() {
		return "", NewDomainError("shared", "NewActorID", ErrInvalidID, "invalid actor ID format")
	}
	return a, nil
}

// TenantID identifies a center, the visibility boundary of the system.
type TenantID string

// IsValid checks if the tenant ID is a valid UUID.
func (t TenantID) IsValid() bool { return isUUID(string(t)) }

// String returns the string representation.
func (t TenantID) String() string { return string(t) }

// IsEmpty checks if the ID is empty.
func (t TenantID) IsEmpty() bool { return t == "" }

// NewTenantID creates a new TenantID with validation.
func NewTenantID(id string) (TenantID, error) {
	t := TenantID(strings.ToLower(strings.TrimSpace(id)))
	if !t.IsValid() {
		return "", NewDomainError("shared", "NewTenantID", ErrInvalidID, "invalid center ID format")
	}
	return t, nil
}

// AssignmentID identifies a student–subject–faculty link.
type AssignmentID string

// IsValid checks if the assignment ID is a valid UUID.
func (a AssignmentID) IsValid() bool { return isUUID(string(a)) }

// String returns the string representation.
func (a AssignmentID) String() string { return string(a) }

// IsEmpty checks if the ID is empty.
func (a AssignmentID) IsEmpty() bool { return a == "" }

// NewAssignmentID creates a new AssignmentID with validation.
func NewAssignmentID(id string) (AssignmentID, error) {
	a := AssignmentID(strings.ToLower(strings.TrimSpace(id)))
	if !a.IsValid() {
		return "", NewDomainError("shared", "NewAssignmentID", ErrInvalidID, "invalid assignment ID format")
	}
	return a, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// ClockTime Value Object
// ═══════════════════════════════════════════════════════════════════════════

// ClockTime is a time of day expressed as minutes since midnight.
// Session in/out times are wall-clock values local to the center; they never
// carry a date or a zone of their own.
type ClockTime int

const (
	// MinutesPerDay bounds a ClockTime.
	MinutesPerDay = 24 * 60
)

var clockTimeRegex = regexp.MustCompile(`^([01]?\d|2[0-3]):([0-5]\d)$`)

// IsValid checks if the clock time is within a single day.
func (c ClockTime) IsValid() bool { return c >= 0 && c < MinutesPerDay }

// Minutes returns the underlying minutes-since-midnight value.
func (c ClockTime) Minutes() int { return int(c) }

// String formats the clock time as HH:MM.
func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// Before reports whether c is strictly earlier than other.
func (c ClockTime) Before(other ClockTime) bool { return c < other }

// MinutesUntil returns the number of minutes from c to other.
func (c ClockTime) MinutesUntil(other ClockTime) int { return int(other) - int(c) }

// ParseClockTime parses an HH:MM string into a ClockTime.
func ParseClockTime(value string) (ClockTime, error) {
	m := clockTimeRegex.FindStringSubmatch(strings.TrimSpace(value))
	if m == nil {
		return 0, NewDomainError("shared", "ParseClockTime", ErrInvalidFormat, "time must be HH:MM")
	}
	var hour, min int
	fmt.Sscanf(m[1], "%d", &hour)
	fmt.Sscanf(m[2], "%d", &min)
	return ClockTime(hour*60 + min), nil
}

// NewClockTime creates a ClockTime from hours and minutes with validation.
func NewClockTime(hour, minute int) (ClockTime, error) {
	c := ClockTime(hour*60 + minute)
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, NewDomainError("shared", "NewClockTime", ErrValueOutOfRange, "clock time out of range")
	}
	return c, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// Day Value Object
// ═══════════════════════════════════════════════════════════════════════════

// Day is a civil date without a time component. Ledger rows are keyed by
// Day, and the backdating rules compare Days, never instants, so a write a
// minute before midnight behaves the same as one at noon.
type Day struct {
	Year  int
	Month time.Month
	Date  int
}

// DayOf truncates an instant to its civil date in the instant's location.
func DayOf(t time.Time) Day {
	return Day{Year: t.Year(), Month: t.Month(), Date: t.Day()}
}

// ParseDay parses a YYYY-MM-DD string.
func ParseDay(value string) (Day, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(value))
	if err != nil {
		return Day{}, NewDomainError("shared", "ParseDay", ErrInvalidFormat, "date must be YYYY-MM-DD")
	}
	return DayOf(t), nil
}

// IsZero reports whether the day is unset.
func (d Day) IsZero() bool { return d.Year == 0 && d.Date == 0 }

// Time returns the day as midnight UTC, the canonical storage form.
func (d Day) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Date, 0, 0, 0, 0, time.UTC)
}

// String formats the day as YYYY-MM-DD.
func (d Day) String() string { return d.Time().Format("2006-01-02") }

// AddDays returns the day shifted by n calendar days.
func (d Day) AddDays(n int) Day { return DayOf(d.Time().AddDate(0, 0, n)) }

// Before reports whether d is strictly earlier than other.
func (d Day) Before(other Day) bool { return d.Time().Before(other.Time()) }

// After reports whether d is strictly later than other.
func (d Day) After(other Day) bool { return d.Time().After(other.Time()) }

// Equal reports whether two days are the same civil date.
func (d Day) Equal(other Day) bool { return d == other }

// DaysSince returns the number of whole days from other to d.
func (d Day) DaysSince(other Day) int {
	return int(d.Time().Sub(other.Time()).Hours() / 24)
}
