//go:generate go run go.uber.org/mock/mockgen -source=catalog_service.go -destination=../mocks/mock_catalog_service.go -package=mocks
package services

import (
	"context"
	stderrors "errors"
	"log/slog"
	"strings"

	"campus-lab/domain"
	"campus-lab/errors"
	"campus-lab/repositories"
	"campus-lab/search"

	"github.com/samber/lo"
)

const reindexPageSize = 50

// CourseFilter narrows a catalog listing. Zero values mean "no filter".
type CourseFilter struct {
	Status       domain.CourseStatus
	InstructorID string
	EnrolledID   string
}

type ICatalogService interface {
	Save(course domain.Course) error
	Get(courseID string) (domain.Course, error)
	Remove(courseID string) error
	List(filter CourseFilter, cursor *string, limit int) ([]domain.Course, *string, error)
	Search(ctx context.Context, input string) ([]domain.Course, error)
	Reindex() (int, error)
}

// CatalogService fronts the course collection. The full-text index is
// best effort: the document store stays the source of truth and every
// index hit is re-checked against the stored course.
type CatalogService struct {
	courses repositories.ICourseRepository
	index   search.ICatalogIndex
	log     *slog.Logger
}

func NewCatalogService(courses repositories.ICourseRepository, index search.ICatalogIndex, log *slog.Logger) *CatalogService {
	return &CatalogService{courses: courses, index: index, log: log}
}

// Save persists the course and refreshes its index entry. An index
// failure is logged, never surfaced: search degrades, reads do not.
func (s *CatalogService) Save(course domain.Course) error {
	if err := s.courses.Save(course); err != nil {
		return err
	}
	if s.index != nil {
		if err := s.index.Index(course); err != nil {
			s.log.Warn("Indexing course failed", "course", course.ID, "error", err)
		}
	}
	return nil
}

func (s *CatalogService) Get(courseID string) (domain.Course, error) {
	return s.courses.Get(courseID)
}

// Remove drops the index entry for a deleted course.
func (s *CatalogService) Remove(courseID string) error {
	if s.index == nil {
		return nil
	}
	return s.index.Remove(courseID)
}

// List pages through the catalog, cursor-based so concurrent inserts
// and deletes never shift the window. The returned cursor is the id of
// the last course of the page.
func (s *CatalogService) List(filter CourseFilter, cursor *string, limit int) ([]domain.Course, *string, error) {
	var out []domain.Course
	next := cursor

	for {
		page, pageCursor, err := s.courses.Page(next, limit)
		if err != nil {
			return nil, nil, err
		}
		for _, course := range page {
			if !matchesFilter(course, filter) {
				continue
			}
			out = append(out, course)
			if len(out) == limit {
				return out, lo.ToPtr(course.ID), nil
			}
		}
		if pageCursor == nil {
			return out, nil, nil
		}
		next = pageCursor
	}
}

// Search resolves the query through the index when one is wired, then
// re-filters the stored courses client-side. Without an index (or when
// it errors) it falls back to a full catalog walk.
func (s *CatalogService) Search(ctx context.Context, input string) ([]domain.Course, error) {
	query := search.ParseQuery(input)

	if s.index != nil {
		ids, err := s.index.Search(ctx, query)
		if err == nil {
			return s.coursesForIDs(ids, query), nil
		}
		s.log.Warn("Index search failed, scanning catalog", "error", err)
	}
	return s.scanCatalog(query)
}

func (s *CatalogService) coursesForIDs(ids []string, query search.Query) []domain.Course {
	var out []domain.Course
	for _, id := range ids {
		course, err := s.courses.Get(id)
		if stderrors.Is(err, errors.ErrNotFound) {
			// The index lags behind a delete.
			continue
		}
		if err != nil {
			s.log.Warn("Skipping unreadable search hit", "course", id, "error", err)
			continue
		}
		if matchesQuery(course, query) {
			out = append(out, course)
		}
	}
	return out
}

func (s *CatalogService) scanCatalog(query search.Query) ([]domain.Course, error) {
	var out []domain.Course
	var cursor *string

	for {
		page, next, err := s.courses.Page(cursor, query.Limit)
		if err != nil {
			return nil, err
		}
		for _, course := range page {
			if matchesQuery(course, query) {
				out = append(out, course)
				if len(out) == query.Limit {
					return out, nil
				}
			}
		}
		if next == nil {
			return out, nil
		}
		cursor = next
	}
}

// Reindex rebuilds the full-text entries from the stored courses, for
// startup after an index wipe or a schema change. Returns how many
// courses were indexed.
func (s *CatalogService) Reindex() (int, error) {
	if s.index == nil {
		return 0, nil
	}

	var indexed int
	var cursor *string
	for {
		page, next, err := s.courses.Page(cursor, reindexPageSize)
		if err != nil {
			return indexed, err
		}
		for _, course := range page {
			if err := s.index.Index(course); err != nil {
				return indexed, err
			}
			indexed++
		}
		if next == nil {
			return indexed, nil
		}
		cursor = next
	}
}

func matchesFilter(course domain.Course, filter CourseFilter) bool {
	if filter.Status != "" && course.Status != filter.Status {
		return false
	}
	if filter.InstructorID != "" && course.InstructorID != filter.InstructorID {
		return false
	}
	if filter.EnrolledID != "" && !course.IsEnrolled(filter.EnrolledID) {
		return false
	}
	return true
}

func matchesQuery(course domain.Course, query search.Query) bool {
	haystack := strings.ToLower(course.Title + " " + course.Description)
	for _, term := range strings.Fields(strings.ToLower(query.Terms)) {
		if !strings.Contains(haystack, term) && !containsFold(course.Tags, term) {
			return false
		}
	}
	for _, tag := range query.Tags {
		if !containsFold(course.Tags, tag) {
			return false
		}
	}
	if query.Category != "" && !strings.EqualFold(course.Category, query.Category) {
		return false
	}
	return true
}

func containsFold(values []string, needle string) bool {
	return lo.ContainsBy(values, func(v string) bool { return strings.EqualFold(v, needle) })
}
