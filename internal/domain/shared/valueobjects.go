// Package shared contains common domain types, errors, and events used
// across all domain packages. This package has zero external dependencies.
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

// StudentID represents a unique student identifier (UUID format).
// Identity is verified upstream; this core only checks the shape.
type StudentID string

// UUID validation regex (simple version).
var uuidRegex = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// IsValid checks if the student ID is a valid UUID.
func (s StudentID) IsValid() bool {
	return uuidRegex.MatchString(string(s))
}

// Validate returns a domain error if the ID is not a valid UUID.
func (s StudentID) Validate() error {
	if !s.IsValid() {
		return NewDomainError("shared", "Validate", ErrInvalidID, "invalid student ID format")
	}
	return nil
}

// String returns the string representation.
func (s StudentID) String() string {
	return string(s)
}

// IsEmpty checks if the ID is empty.
func (s StudentID) IsEmpty() bool {
	return s == ""
}

// NewStudentID creates a new StudentID with validation.
func NewStudentID(id string) (StudentID, error) {
	sid := StudentID(strings.ToLower(strings.TrimSpace(id)))
	if !sid.IsValid() {
		return "", NewDomainError("shared", "NewStudentID", ErrInvalidID, "invalid student ID format")
	}
	return sid, nil
}

// SubjectID identifies a subject in the curriculum catalog. The catalog
// is an external collaborator, so the value is opaque here: any non-empty
// string is accepted and never validated against catalog contents.
type SubjectID string

// IsEmpty checks if the subject ID is empty.
func (s SubjectID) IsEmpty() bool {
	return strings.TrimSpace(string(s)) == ""
}

// String returns the string representation.
func (s SubjectID) String() string {
	return string(s)
}

// OutcomeID identifies a learning outcome in the curriculum catalog.
// Opaque external ID, same contract as SubjectID.
type OutcomeID string

// String returns the string representation.
func (o OutcomeID) String() string {
	return string(o)
}

// ═══════════════════════════════════════════════════════════════════════════
// XP Value Object (Experience Points)
// ═══════════════════════════════════════════════════════════════════════════

// XP represents experience points earned by a student.
// A profile's total XP is monotonically non-decreasing; there is no
// Subtract on purpose.
type XP int

const (
	// XP boundaries
	MinXP XP = 0
	MaxXP XP = 10000000 // 10 million XP cap
)

// IsValid checks if the XP value is within valid range.
func (x XP) IsValid() bool {
	return x >= MinXP && x <= MaxXP
}

// Int returns the underlying int value.
func (x XP) Int() int {
	return int(x)
}

// Add adds XP and returns the result, capped at MaxXP. Negative amounts
// are a programming error, asserted loudly rather than clamped.
func (x XP) Add(amount int) XP {
	Assert(amount >= 0, "XP.Add: negative amount")
	result := XP(int(x) + amount)
	if result > MaxXP {
		return MaxXP
	}
	return result
}

// NewXP creates a new XP value with validation.
func NewXP(amount int) (XP, error) {
	if amount < int(MinXP) {
		return 0, NewDomainError("shared", "NewXP", ErrNegativeValue, "XP cannot be negative")
	}
	if amount > int(MaxXP) {
		return MaxXP, nil // Cap at max
	}
	return XP(amount), nil
}

// ═══════════════════════════════════════════════════════════════════════════
// Level Value Object
// ═══════════════════════════════════════════════════════════════════════════

// Level represents a student's level. Level 1 is the floor: a brand new
// profile with zero XP is level 1, never 0.
type Level int

// MinLevel is the lowest possible level.
const MinLevel Level = 1

// IsValid checks if the level is valid.
func (l Level) IsValid() bool {
	return l >= MinLevel
}

// Int returns the underlying int value.
func (l Level) Int() int {
	return int(l)
}

// ═══════════════════════════════════════════════════════════════════════════
// Grade Value Object (review answer quality)
// ═══════════════════════════════════════════════════════════════════════════

// Grade is the recall quality of a single review answer on the 0-5 scale.
// Grades below PassingGrade count as failed recall.
type Grade int

const (
	// MinGrade is a complete blackout.
	MinGrade Grade = 0
	// MaxGrade is a perfect, effortless answer.
	MaxGrade Grade = 5
	// PassingGrade is the lowest grade that counts as successful recall.
	PassingGrade Grade = 3
)

// IsValid checks if the grade is within the 0-5 scale.
func (g Grade) IsValid() bool {
	return g >= MinGrade && g <= MaxGrade
}

// IsFailure reports whether the answer counts as failed recall.
func (g Grade) IsFailure() bool {
	return g < PassingGrade
}

// Int returns the underlying int value.
func (g Grade) Int() int {
	return int(g)
}

// NewGrade creates a Grade with validation. Out-of-range values are
// rejected before any scheduling state is touched.
func NewGrade(value int) (Grade, error) {
	g := Grade(value)
	if !g.IsValid() {
		return 0, ErrInvalidGrade
	}
	return g, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// Clock
// ═══════════════════════════════════════════════════════════════════════════

// Clock supplies the current time. Handlers take a Clock so tests can pin
// "today" when exercising streak and cap behavior.
type Clock func() time.Time

// SystemClock returns the real current time in UTC.
func SystemClock() time.Time {
	return time.Now().UTC()
}

// ═══════════════════════════════════════════════════════════════════════════
// Assertions
// ═══════════════════════════════════════════════════════════════════════════

// Assert panics with the given message when the condition is false.
// Used for invariants that indicate programming errors (ease factor below
// its floor, negative XP): these must fail loudly, never be clamped
// silently outside the documented clamp points.
func Assert(condition bool, format string, args ...interface{}) {
	if !condition {
		panic(fmt.Sprintf("invariant violation: "+format, args...))
	}
}
