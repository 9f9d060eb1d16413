package services

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"campus-lab/domain"
	"campus-lab/errors"
	"campus-lab/repositories"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"
)

func noBackoff(int) time.Duration { return 0 }

type enrollmentFixture struct {
	store   repositories.BadgerStore
	courses repositories.CourseRepository
	users   repositories.UserRepository
	service *EnrollmentService
}

func newEnrollmentFixture(t *testing.T) enrollmentFixture {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	log := slog.Default()
	store := repositories.NewBadgerStore(db)
	courses := repositories.NewCourseRepository(store, log)
	users := repositories.NewUserRepository(store, log)
	return enrollmentFixture{
		store:   store,
		courses: courses,
		users:   users,
		service: NewEnrollmentService(store, courses, users, noBackoff, log),
	}
}

func (f enrollmentFixture) saveCourse(t *testing.T, id string, max int, status domain.CourseStatus) domain.Course {
	t.Helper()
	now := time.Now().UTC()
	course, violations := domain.NewCourse(domain.CourseFields{
		ID:            id,
		Title:         "Operating Systems",
		InstructorID:  "instructor-1",
		CreatedAt:     now.Add(-time.Hour),
		UpdatedAt:     now,
		MaxEnrollment: max,
		Status:        status,
		Category:      "computer-science",
	})
	require.True(t, violations.OK(), violations.String())
	require.NoError(t, f.courses.Save(course))
	return course
}

func (f enrollmentFixture) saveStudent(t *testing.T, id string) domain.User {
	t.Helper()
	user, violations := domain.NewUser(domain.UserFields{
		ID:    id,
		Email: id + "@campus.test",
		Name:  "Student " + id,
		Role:  domain.RoleStudent,
		Grade: "L2",
	})
	require.True(t, violations.OK(), violations.String())
	require.NoError(t, f.users.Save(user))
	return user
}

func Test_Enroll_Updates_Both_Sides(t *testing.T) {
	req := require.New(t)
	f := newEnrollmentFixture(t)
	f.saveCourse(t, "c1", 10, domain.CoursePublished)
	f.saveStudent(t, "s1")

	req.NoError(f.service.Enroll(context.Background(), "c1", "s1"))

	course, err := f.courses.Get("c1")
	req.NoError(err)
	req.True(course.IsEnrolled("s1"))

	user, err := f.users.Get("s1")
	req.NoError(err)
	req.True(user.IsEnrolledIn("c1"))
}

func Test_Enroll_Unknown_Course_Or_Student(t *testing.T) {
	req := require.New(t)
	f := newEnrollmentFixture(t)
	f.saveCourse(t, "c1", 10, domain.CoursePublished)
	f.saveStudent(t, "s1")

	req.ErrorIs(f.service.Enroll(context.Background(), "ghost", "s1"), errors.ErrNotFound)
	req.ErrorIs(f.service.Enroll(context.Background(), "c1", "ghost"), errors.ErrNotFound)

	course, err := f.courses.Get("c1")
	req.NoError(err)
	req.Empty(course.EnrolledStudents)
}

func Test_Enroll_Twice_Reports_Already_Enrolled(t *testing.T) {
	req := require.New(t)
	f := newEnrollmentFixture(t)
	f.saveCourse(t, "c1", 10, domain.CoursePublished)
	f.saveStudent(t, "s1")

	req.NoError(f.service.Enroll(context.Background(), "c1", "s1"))
	req.ErrorIs(f.service.Enroll(context.Background(), "c1", "s1"), errors.ErrAlreadyEnrolled)

	course, err := f.courses.Get("c1")
	req.NoError(err)
	req.Len(course.EnrolledStudents, 1)
}

func Test_Enroll_Full_Course(t *testing.T) {
	req := require.New(t)
	f := newEnrollmentFixture(t)
	f.saveCourse(t, "c1", 1, domain.CoursePublished)
	f.saveStudent(t, "s1")
	f.saveStudent(t, "s2")

	req.NoError(f.service.Enroll(context.Background(), "c1", "s1"))
	req.ErrorIs(f.service.Enroll(context.Background(), "c1", "s2"), errors.ErrCourseFull)

	course, err := f.courses.Get("c1")
	req.NoError(err)
	req.Equal([]string{"s1"}, course.EnrolledStudents)
}

func Test_Enroll_Unpublished_Course(t *testing.T) {
	req := require.New(t)
	f := newEnrollmentFixture(t)
	f.saveStudent(t, "s1")

	for i, status := range []domain.CourseStatus{domain.CourseDraft, domain.CourseArchived, domain.CourseSuspended} {
		id := fmt.Sprintf("c%d", i)
		f.saveCourse(t, id, 10, status)
		req.ErrorIs(f.service.Enroll(context.Background(), id, "s1"), errors.ErrCourseNotAvailable)
	}
}

// Full beats unavailable: a full draft course reports CourseFull, the
// capacity check runs first.
func Test_Enroll_Error_Order(t *testing.T) {
	req := require.New(t)
	f := newEnrollmentFixture(t)
	f.saveStudent(t, "s1")
	f.saveStudent(t, "s2")

	f.saveCourse(t, "c1", 1, domain.CoursePublished)
	req.NoError(f.service.Enroll(context.Background(), "c1", "s1"))

	course, err := f.courses.Get("c1")
	req.NoError(err)
	req.NoError(f.courses.Save(course.Suspend(time.Now().UTC())))

	req.ErrorIs(f.service.Enroll(context.Background(), "c1", "s2"), errors.ErrCourseFull)
	req.ErrorIs(f.service.Enroll(context.Background(), "c1", "s1"), errors.ErrAlreadyEnrolled)
}

func Test_Unenroll_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	f := newEnrollmentFixture(t)
	f.saveCourse(t, "c1", 10, domain.CoursePublished)
	f.saveStudent(t, "s1")

	req.NoError(f.service.Enroll(context.Background(), "c1", "s1"))
	req.NoError(f.service.Unenroll(context.Background(), "c1", "s1"))
	req.NoError(f.service.Unenroll(context.Background(), "c1", "s1"))

	course, err := f.courses.Get("c1")
	req.NoError(err)
	req.Empty(course.EnrolledStudents)

	user, err := f.users.Get("s1")
	req.NoError(err)
	req.Empty(user.EnrolledCourses)
}

func Test_Unenroll_Then_Reenroll(t *testing.T) {
	req := require.New(t)
	f := newEnrollmentFixture(t)
	f.saveCourse(t, "c1", 1, domain.CoursePublished)
	f.saveStudent(t, "s1")
	f.saveStudent(t, "s2")

	req.NoError(f.service.Enroll(context.Background(), "c1", "s1"))
	req.NoError(f.service.Unenroll(context.Background(), "c1", "s1"))
	req.NoError(f.service.Enroll(context.Background(), "c1", "s2"))

	course, err := f.courses.Get("c1")
	req.NoError(err)
	req.Equal([]string{"s2"}, course.EnrolledStudents)
}

func Test_Statistics(t *testing.T) {
	req := require.New(t)
	f := newEnrollmentFixture(t)
	f.saveCourse(t, "c1", 3, domain.CoursePublished)
	f.saveStudent(t, "s1")
	f.saveStudent(t, "s2")

	req.NoError(f.service.Enroll(context.Background(), "c1", "s1"))
	req.NoError(f.service.Enroll(context.Background(), "c1", "s2"))

	stats, err := f.service.Statistics("c1")
	req.NoError(err)
	req.Equal(2, stats.EnrolledCount)
	req.Equal(3, stats.MaxEnrollment)
	req.Equal(1, stats.AvailableSpots)
	req.Equal(67, stats.EnrollmentPercentage)

	_, err = f.service.Statistics("ghost")
	req.ErrorIs(err, errors.ErrNotFound)
}

func Test_Enroll_Retries_On_Contention(t *testing.T) {
	req := require.New(t)
	log := slog.Default()
	store := repositories.NewMemoryStore()
	courses := repositories.NewCourseRepository(store, log)
	users := repositories.NewUserRepository(store, log)
	service := NewEnrollmentService(store, courses, users, noBackoff, log)

	now := time.Now().UTC()
	course, violations := domain.NewCourse(domain.CourseFields{
		ID: "c1", Title: "Networks", InstructorID: "instructor-1",
		CreatedAt: now.Add(-time.Hour), UpdatedAt: now,
		MaxEnrollment: 5, Status: domain.CoursePublished, Category: "computer-science",
	})
	req.True(violations.OK(), violations.String())
	req.NoError(courses.Save(course))

	user, violations := domain.NewUser(domain.UserFields{
		ID: "s1", Email: "s1@campus.test", Name: "Student One",
		Role: domain.RoleStudent, Grade: "L1",
	})
	req.True(violations.OK(), violations.String())
	req.NoError(users.Save(user))

	other, violations := domain.NewUser(domain.UserFields{
		ID: "s2", Email: "s2@campus.test", Name: "Student Two",
		Role: domain.RoleStudent, Grade: "L1",
	})
	req.True(violations.OK(), violations.String())
	req.NoError(users.Save(other))

	store.InjectConflicts(2)
	req.NoError(service.Enroll(context.Background(), "c1", "s1"))

	fetched, err := courses.Get("c1")
	req.NoError(err)
	req.True(fetched.IsEnrolled("s1"))

	store.InjectConflicts(enrollmentRetries)
	err = service.Enroll(context.Background(), "c1", "s2")
	req.ErrorIs(err, errors.ErrContention)
}

func Test_Concurrent_Enrollment_For_Last_Seat(t *testing.T) {
	req := require.New(t)
	f := newEnrollmentFixture(t)

	const racers = 8
	f.saveCourse(t, "c1", 1, domain.CoursePublished)
	for i := 0; i < racers; i++ {
		f.saveStudent(t, fmt.Sprintf("s%d", i))
	}

	results := make(chan error, racers)
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(studentID string) {
			defer wg.Done()
			results <- f.service.Enroll(context.Background(), "c1", studentID)
		}(fmt.Sprintf("s%d", i))
	}
	wg.Wait()
	close(results)

	var wins, losses int
	for err := range results {
		switch {
		case err == nil:
			wins++
		default:
			req.True(isEnrollmentLoss(err), "unexpected error: %v", err)
			losses++
		}
	}
	req.Equal(1, wins)
	req.Equal(racers-1, losses)

	course, err := f.courses.Get("c1")
	req.NoError(err)
	req.Len(course.EnrolledStudents, 1)
}

func isEnrollmentLoss(err error) bool {
	return stderrors.Is(err, errors.ErrCourseFull) || stderrors.Is(err, errors.ErrContention)
}

func Test_Delete_Course_Cascades_Over_Students(t *testing.T) {
	req := require.New(t)
	f := newEnrollmentFixture(t)

	const students = 25 // more than two cascade chunks
	f.saveCourse(t, "c1", 100, domain.CoursePublished)
	f.saveCourse(t, "c2", 100, domain.CoursePublished)
	for i := 0; i < students; i++ {
		id := fmt.Sprintf("s%d", i)
		f.saveStudent(t, id)
		req.NoError(f.service.Enroll(context.Background(), "c1", id))
	}
	req.NoError(f.service.Enroll(context.Background(), "c2", "s0"))

	req.NoError(f.service.DeleteCourse(context.Background(), "c1"))

	_, err := f.courses.Get("c1")
	req.ErrorIs(err, errors.ErrNotFound)

	for i := 0; i < students; i++ {
		user, err := f.users.Get(fmt.Sprintf("s%d", i))
		req.NoError(err)
		req.False(user.IsEnrolledIn("c1"))
	}

	// Unrelated enrollment survives.
	user, err := f.users.Get("s0")
	req.NoError(err)
	req.True(user.IsEnrolledIn("c2"))

	req.ErrorIs(f.service.DeleteCourse(context.Background(), "c1"), errors.ErrNotFound)
}
