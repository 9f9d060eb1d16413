package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"
)

type CourseStatus string

const (
	CourseDraft     CourseStatus = "draft"
	CoursePublished CourseStatus = "published"
	CourseArchived  CourseStatus = "archived"
	CourseSuspended CourseStatus = "suspended"
)

const (
	maxCourseTags = 15
	maxTagLength  = 50
)

// CourseFields carries the raw candidate values handed to NewCourse.
type CourseFields struct {
	ID               string       `json:"id" validate:"required"`
	Title            string       `json:"title" validate:"required,max=200"`
	Description      string       `json:"description" validate:"max=5000"`
	InstructorID     string       `json:"instructor_id" validate:"required"`
	Tags             []string     `json:"tags"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
	EnrolledStudents []string     `json:"enrolled_students"`
	MaxEnrollment    int          `json:"max_enrollment" validate:"gte=1,lte=1000"`
	Status           CourseStatus `json:"status" validate:"oneof=draft published archived suspended"`
	Category         string       `json:"category" validate:"required,max=100"`
	DurationHours    int          `json:"duration_hours" validate:"gte=0,lte=10000"`
	Prerequisites    []string     `json:"prerequisites"`
}

// Course is a validated, immutable course. The roster is an
// order-irrelevant set of student ids and never exceeds MaxEnrollment.
type Course struct {
	ID               string
	Title            string
	Description      string
	InstructorID     string
	Tags             []string
	CreatedAt        time.Time
	UpdatedAt        time.Time
	EnrolledStudents []string
	MaxEnrollment    int
	Status           CourseStatus
	Category         string
	DurationHours    int
	Prerequisites    []string
}

// NewCourse validates and normalizes the candidate fields. On failure it
// reports every broken rule; an invalid Course is never returned.
func NewCourse(f CourseFields) (Course, Violations) {
	f.ID = strings.TrimSpace(f.ID)
	f.Title = strings.TrimSpace(f.Title)
	f.Description = strings.TrimSpace(f.Description)
	f.InstructorID = strings.TrimSpace(f.InstructorID)
	f.Category = strings.TrimSpace(f.Category)
	tags := normalizeSet(f.Tags)
	roster := normalizeSet(f.EnrolledStudents)
	prerequisites := normalizeSet(f.Prerequisites)

	violations := fieldViolations(validate.Struct(f))
	now := time.Now().UTC()

	if len(tags) > maxCourseTags {
		violations = append(violations, fmt.Sprintf("tags must contain at most %d entries", maxCourseTags))
	}
	for _, tag := range tags {
		if len([]rune(tag)) > maxTagLength {
			violations = append(violations, fmt.Sprintf("tag %q must be at most %d characters", tag, maxTagLength))
		}
	}
	switch {
	case f.CreatedAt.IsZero():
		violations = append(violations, "created_at is required")
	case inFuture(f.CreatedAt, now):
		violations = append(violations, "created_at must not be in the future")
	}
	switch {
	case f.UpdatedAt.IsZero():
		violations = append(violations, "updated_at is required")
	case inFuture(f.UpdatedAt, now):
		violations = append(violations, "updated_at must not be in the future")
	case !f.CreatedAt.IsZero() && f.UpdatedAt.Before(f.CreatedAt):
		violations = append(violations, "updated_at must not precede created_at")
	}
	if f.MaxEnrollment > 0 && len(roster) > f.MaxEnrollment {
		violations = append(violations, "enrolled_students must not exceed max_enrollment")
	}

	if !violations.OK() {
		return Course{}, violations
	}
	return Course{
		ID:               f.ID,
		Title:            f.Title,
		Description:      f.Description,
		InstructorID:     f.InstructorID,
		Tags:             tags,
		CreatedAt:        f.CreatedAt,
		UpdatedAt:        f.UpdatedAt,
		EnrolledStudents: roster,
		MaxEnrollment:    f.MaxEnrollment,
		Status:           f.Status,
		Category:         f.Category,
		DurationHours:    f.DurationHours,
		Prerequisites:    prerequisites,
	}, nil
}

func (c Course) IsEnrolled(studentID string) bool {
	return lo.Contains(c.EnrolledStudents, studentID)
}

// CanEnroll reports whether one more student may join right now.
func (c Course) CanEnroll() bool {
	return c.Status == CoursePublished && len(c.EnrolledStudents) < c.MaxEnrollment
}

// WithStudent returns a copy with studentID on the roster. Adding an
// already-enrolled student or overflowing the enrollment limit is a
// no-op, so the capacity invariant survives any call sequence.
func (c Course) WithStudent(studentID string, now time.Time) Course {
	if c.IsEnrolled(studentID) || len(c.EnrolledStudents) >= c.MaxEnrollment {
		return c
	}
	c.EnrolledStudents = appendUnique(c.EnrolledStudents, studentID)
	c.UpdatedAt = now
	return c
}

// WithoutStudent returns a copy with studentID removed from the roster.
// Removing an absent student is a no-op.
func (c Course) WithoutStudent(studentID string, now time.Time) Course {
	if !c.IsEnrolled(studentID) {
		return c
	}
	c.EnrolledStudents = lo.Without(c.EnrolledStudents, studentID)
	c.UpdatedAt = now
	return c
}

// WithStatus returns a copy in the given status. Every pairing of
// draft, published, suspended and archived is an explicit, reachable
// transition; an unknown status is a no-op.
func (c Course) WithStatus(status CourseStatus, now time.Time) Course {
	switch status {
	case CourseDraft, CoursePublished, CourseArchived, CourseSuspended:
	default:
		return c
	}
	if c.Status == status {
		return c
	}
	c.Status = status
	c.UpdatedAt = now
	return c
}

func (c Course) Publish(now time.Time) Course { return c.WithStatus(CoursePublished, now) }

func (c Course) Suspend(now time.Time) Course { return c.WithStatus(CourseSuspended, now) }

func (c Course) Archive(now time.Time) Course { return c.WithStatus(CourseArchived, now) }
