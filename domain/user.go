package domain

import (
	"strings"

	"github.com/samber/lo"
)

type UserRole string

const (
	RoleStudent    UserRole = "student"
	RoleInstructor UserRole = "instructor"
	RoleAdmin      UserRole = "admin"
)

// UserFields carries the raw candidate values handed to NewUser.
type UserFields struct {
	ID               string   `json:"id" validate:"required"`
	Email            string   `json:"email" validate:"required,email"`
	Name             string   `json:"name" validate:"required,min=2,max=100"`
	Role             UserRole `json:"role" validate:"oneof=student instructor admin"`
	FieldOfExpertise string   `json:"field_of_expertise"`
	Grade            string   `json:"grade"`
	EnrolledCourses  []string `json:"enrolled_courses"`
	Bookmarks        []string `json:"bookmarks"`
	LikedPosts       []string `json:"liked_posts"`
}

// User is a validated, immutable platform account. EnrolledCourses must
// agree with every course roster it appears on; only the enrollment
// coordinator is allowed to change either side.
type User struct {
	ID               string
	Email            string
	Name             string
	Role             UserRole
	FieldOfExpertise string
	Grade            string
	EnrolledCourses  []string
	Bookmarks        []string
	LikedPosts       []string
}

// NewUser validates and normalizes the candidate fields. Emails are
// lower-cased; the role-conditional fields are enforced in both
// directions (required for the role, forbidden otherwise).
func NewUser(f UserFields) (User, Violations) {
	f.ID = strings.TrimSpace(f.ID)
	f.Email = strings.ToLower(strings.TrimSpace(f.Email))
	f.Name = strings.TrimSpace(f.Name)
	f.FieldOfExpertise = strings.TrimSpace(f.FieldOfExpertise)
	f.Grade = strings.TrimSpace(f.Grade)
	courses := normalizeSet(f.EnrolledCourses)
	bookmarks := normalizeSet(f.Bookmarks)
	likedPosts := normalizeSet(f.LikedPosts)

	violations := fieldViolations(validate.Struct(f))

	if f.Role == RoleInstructor && f.FieldOfExpertise == "" {
		violations = append(violations, "field_of_expertise is required for instructors")
	}
	if f.Role != RoleInstructor && f.FieldOfExpertise != "" {
		violations = append(violations, "field_of_expertise is only allowed for instructors")
	}
	if f.Role == RoleStudent && f.Grade == "" {
		violations = append(violations, "grade is required for students")
	}
	if f.Role != RoleStudent && f.Grade != "" {
		violations = append(violations, "grade is only allowed for students")
	}

	if !violations.OK() {
		return User{}, violations
	}
	return User{
		ID:               f.ID,
		Email:            f.Email,
		Name:             f.Name,
		Role:             f.Role,
		FieldOfExpertise: f.FieldOfExpertise,
		Grade:            f.Grade,
		EnrolledCourses:  courses,
		Bookmarks:        bookmarks,
		LikedPosts:       likedPosts,
	}, nil
}

func (u User) IsEnrolledIn(courseID string) bool {
	return lo.Contains(u.EnrolledCourses, courseID)
}

// WithCourse returns a copy enrolled in courseID. Already enrolled is a no-op.
func (u User) WithCourse(courseID string) User {
	u.EnrolledCourses = appendUnique(u.EnrolledCourses, courseID)
	return u
}

// WithoutCourse returns a copy no longer enrolled in courseID.
func (u User) WithoutCourse(courseID string) User {
	if !u.IsEnrolledIn(courseID) {
		return u
	}
	u.EnrolledCourses = lo.Without(u.EnrolledCourses, courseID)
	return u
}

func (u User) WithBookmark(postID string) User {
	u.Bookmarks = appendUnique(u.Bookmarks, postID)
	return u
}

func (u User) WithoutBookmark(postID string) User {
	if !lo.Contains(u.Bookmarks, postID) {
		return u
	}
	u.Bookmarks = lo.Without(u.Bookmarks, postID)
	return u
}

func (u User) WithLikedPost(postID string) User {
	u.LikedPosts = appendUnique(u.LikedPosts, postID)
	return u
}

func (u User) WithoutLikedPost(postID string) User {
	if !lo.Contains(u.LikedPosts, postID) {
		return u
	}
	u.LikedPosts = lo.Without(u.LikedPosts, postID)
	return u
}
