//go:generate go run go.uber.org/mock/mockgen -source=enrollment_service.go -destination=../mocks/mock_enrollment_service.go -package=mocks
package services

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"campus-lab/domain"
	"campus-lab/errors"
	"campus-lab/repositories"

	"github.com/samber/lo"
)

// enrollmentRetries bounds how often a conflicting transaction is
// replayed against fresh state before giving up with ErrContention.
const enrollmentRetries = 5

const cascadeChunkSize = 10

// Backoff returns how long to wait before retry number attempt.
type Backoff func(attempt int) time.Duration

func defaultBackoff(attempt int) time.Duration {
	return time.Duration(attempt) * 10 * time.Millisecond
}

// Stats is a derived, display-only snapshot. A stale read is fine.
type Stats struct {
	CourseID             string
	EnrolledCount        int
	MaxEnrollment        int
	AvailableSpots       int
	EnrollmentPercentage int
}

// IEnrollmentService is the only component allowed to change a
// (course, student) membership pair. Both sides of the relation are
// written in one transaction, so the course roster and the student's
// course list never disagree.
type IEnrollmentService interface {
	Enroll(ctx context.Context, courseID, studentID string) error
	Unenroll(ctx context.Context, courseID, studentID string) error
	Statistics(courseID string) (Stats, error)
	DeleteCourse(ctx context.Context, courseID string) error
}

type EnrollmentService struct {
	store   repositories.DocumentStore
	courses repositories.ICourseRepository
	users   repositories.IUserRepository
	backoff Backoff
	log     *slog.Logger
}

// NewEnrollmentService wires the coordinator. A nil backoff falls back
// to a small linear wait; tests inject a zero backoff to race without
// sleeping.
func NewEnrollmentService(store repositories.DocumentStore, courses repositories.ICourseRepository,
	users repositories.IUserRepository, backoff Backoff, log *slog.Logger) *EnrollmentService {
	if backoff == nil {
		backoff = defaultBackoff
	}
	return &EnrollmentService{store: store, courses: courses, users: users, backoff: backoff, log: log}
}

// Enroll adds the student to the course roster and the course to the
// student's list, atomically. The capacity check and the write happen
// inside the same transaction: losers of a race for the last seat are
// replayed against fresh state and observe ErrCourseFull.
func (s *EnrollmentService) Enroll(ctx context.Context, courseID, studentID string) error {
	return s.writeWithRetry(ctx, func(txn repositories.Txn) error {
		course, err := s.courses.GetTxn(txn, courseID)
		if err != nil {
			return err
		}
		user, err := s.users.GetTxn(txn, studentID)
		if err != nil {
			return err
		}
		if course.IsEnrolled(studentID) {
			return errors.ErrAlreadyEnrolled
		}
		if len(course.EnrolledStudents) >= course.MaxEnrollment {
			return errors.ErrCourseFull
		}
		if course.Status != domain.CoursePublished {
			return errors.ErrCourseNotAvailable
		}

		now := time.Now().UTC()
		if err := s.courses.SaveTxn(txn, course.WithStudent(studentID, now)); err != nil {
			return err
		}
		return s.users.SaveTxn(txn, user.WithCourse(courseID))
	})
}

// Unenroll removes the pair on both sides. Removing an absent pair is
// not an error; the transaction still runs so the operation stays
// auditable, and updatedAt only moves when something changed.
func (s *EnrollmentService) Unenroll(ctx context.Context, courseID, studentID string) error {
	return s.writeWithRetry(ctx, func(txn repositories.Txn) error {
		course, err := s.courses.GetTxn(txn, courseID)
		if err != nil {
			return err
		}
		user, err := s.users.GetTxn(txn, studentID)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		if err := s.courses.SaveTxn(txn, course.WithoutStudent(studentID, now)); err != nil {
			return err
		}
		return s.users.SaveTxn(txn, user.WithoutCourse(courseID))
	})
}

// Statistics derives the display numbers from a plain read.
func (s *EnrollmentService) Statistics(courseID string) (Stats, error) {
	course, err := s.courses.Get(courseID)
	if err != nil {
		return Stats{}, err
	}
	// Validation forbids a non-positive limit; assert it rather than
	// divide blindly.
	if course.MaxEnrollment <= 0 {
		return Stats{}, fmt.Errorf("course %s: max enrollment %d: %w",
			courseID, course.MaxEnrollment, errors.ErrInvalidEntity)
	}

	enrolled := len(course.EnrolledStudents)
	return Stats{
		CourseID:             courseID,
		EnrolledCount:        enrolled,
		MaxEnrollment:        course.MaxEnrollment,
		AvailableSpots:       course.MaxEnrollment - enrolled,
		EnrollmentPercentage: int(math.Round(float64(enrolled) / float64(course.MaxEnrollment) * 100)),
	}, nil
}

// DeleteCourse removes the course and scrubs it from every enrolled
// student's course list. The cascade runs in small chunks, each its own
// transaction, and removal is idempotent, so a partial failure is fixed
// by running the whole cascade again.
func (s *EnrollmentService) DeleteCourse(ctx context.Context, courseID string) error {
	course, err := s.courses.Get(courseID)
	if err != nil {
		return err
	}

	for _, chunk := range lo.Chunk(course.EnrolledStudents, cascadeChunkSize) {
		for _, studentID := range chunk {
			err := s.writeWithRetry(ctx, func(txn repositories.Txn) error {
				user, err := s.users.GetTxn(txn, studentID)
				if stderrors.Is(err, errors.ErrNotFound) {
					s.log.Warn("Skipping missing student during cascade", "course", courseID, "student", studentID)
					return nil
				}
				if err != nil {
					return err
				}
				return s.users.SaveTxn(txn, user.WithoutCourse(courseID))
			})
			if err != nil {
				return err
			}
		}
	}

	return s.writeWithRetry(ctx, func(txn repositories.Txn) error {
		return s.courses.DeleteTxn(txn, courseID)
	})
}

// writeWithRetry replays fn on optimistic-conflict aborts, re-reading
// fresh state every attempt. Domain errors pass through untouched;
// after the retry budget the contention itself is surfaced.
func (s *EnrollmentService) writeWithRetry(ctx context.Context, fn func(repositories.Txn) error) error {
	for attempt := 1; attempt <= enrollmentRetries; attempt++ {
		err := s.store.Update(fn)
		if !stderrors.Is(err, errors.ErrContention) {
			return err
		}
		s.log.Debug("Transaction conflict, retrying", "attempt", attempt)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.backoff(attempt)):
		}
	}
	return errors.ErrContention
}
