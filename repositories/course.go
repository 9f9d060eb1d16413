//go:generate go run go.uber.org/mock/mockgen -source=course.go -destination=../mocks/mock_course_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"campus-lab/domain"
)

const coursePrefix = "course:"

func courseKey(id string) string { return coursePrefix + id }

type ICourseRepository interface {
	Save(course domain.Course) error
	Get(id string) (domain.Course, error)
	Page(cursor *string, limit int) ([]domain.Course, *string, error)

	// Txn-scoped variants used by the enrollment coordinator so the
	// capacity check and the roster write share one atomic transaction.
	GetTxn(txn Txn, id string) (domain.Course, error)
	SaveTxn(txn Txn, course domain.Course) error
	DeleteTxn(txn Txn, id string) error
}

type CourseRepository struct {
	store DocumentStore
	log   *slog.Logger
}

func NewCourseRepository(store DocumentStore, log *slog.Logger) CourseRepository {
	return CourseRepository{store: store, log: log}
}

func (r CourseRepository) Save(course domain.Course) error {
	return r.store.Update(func(txn Txn) error {
		return r.SaveTxn(txn, course)
	})
}

func (r CourseRepository) Get(id string) (domain.Course, error) {
	var course domain.Course
	err := r.store.View(func(txn Txn) error {
		var err error
		course, err = r.GetTxn(txn, id)
		return err
	})
	return course, err
}

func (r CourseRepository) GetTxn(txn Txn, id string) (domain.Course, error) {
	value, err := txn.Get(courseKey(id))
	if err != nil {
		return domain.Course{}, err
	}
	return decodeCourse(value)
}

func (r CourseRepository) SaveTxn(txn Txn, course domain.Course) error {
	value, err := encodeCourse(course)
	if err != nil {
		return err
	}
	return txn.Set(courseKey(course.ID), value)
}

func (r CourseRepository) DeleteTxn(txn Txn, id string) error {
	return txn.Delete(courseKey(id))
}

// Page walks courses in key order starting after the cursor. The cursor
// is the last course id of the previous page, which keeps paging stable
// under concurrent inserts and deletes. A malformed record is logged and
// skipped; one corrupt document never fails the whole page.
func (r CourseRepository) Page(cursor *string, limit int) ([]domain.Course, *string, error) {
	var courses []domain.Course
	var lastID string

	err := r.store.View(func(txn Txn) error {
		seek := ""
		if cursor != nil {
			seek = courseKey(*cursor)
		}
		skipCursor := cursor != nil
		return txn.Ascend(coursePrefix, seek, func(key string, value []byte) (bool, error) {
			if skipCursor && key == seek {
				return true, nil
			}
			course, err := decodeCourse(value)
			if err != nil {
				r.log.Warn("Skipping undecodable course record", "key", key, "error", err)
				return true, nil
			}
			courses = append(courses, course)
			lastID = course.ID
			return len(courses) < limit, nil
		})
	})
	if err != nil {
		return nil, nil, err
	}
	if len(courses) < limit || lastID == "" {
		return courses, nil, nil
	}
	return courses, &lastID, nil
}

func encodeCourse(course domain.Course) ([]byte, error) {
	return json.Marshal(domain.CourseFields{
		ID:               course.ID,
		Title:            course.Title,
		Description:      course.Description,
		InstructorID:     course.InstructorID,
		Tags:             course.Tags,
		CreatedAt:        course.CreatedAt,
		UpdatedAt:        course.UpdatedAt,
		EnrolledStudents: course.EnrolledStudents,
		MaxEnrollment:    course.MaxEnrollment,
		Status:           course.Status,
		Category:         course.Category,
		DurationHours:    course.DurationHours,
		Prerequisites:    course.Prerequisites,
	})
}

// decodeCourse funnels raw document bytes back through the domain
// validator, so a corrupt or hand-edited record can never produce an
// invariant-breaking Course.
func decodeCourse(value []byte) (domain.Course, error) {
	var fields domain.CourseFields
	if err := json.Unmarshal(value, &fields); err != nil {
		return domain.Course{}, fmt.Errorf("course document: %w", err)
	}
	course, violations := domain.NewCourse(fields)
	if !violations.OK() {
		return domain.Course{}, fmt.Errorf("course document: %s", violations.String())
	}
	return course, nil
}

// courseIDFromKey strips the collection prefix; used by inspection tooling.
func courseIDFromKey(key string) string {
	return strings.TrimPrefix(key, coursePrefix)
}
