package test

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
	"campus-lab/moderation"
	"campus-lab/repositories"
	"campus-lab/search"
	"campus-lab/services"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

type campus struct {
	courses    repositories.ICourseRepository
	users      repositories.IUserRepository
	enrollment *services.EnrollmentService
	catalog    *services.CatalogService
	chat       *services.ChatService
	feed       *services.FeedService
}

func newCampus(t *testing.T) campus {
	t.Helper()
	req := require.New(t)
	// Reduced to 16 Mo for testing (avoid 20 Go of storage)
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).
		WithLoggingLevel(badger.ERROR).
		WithValueLogFileSize(16 << 20))
	req.NoError(err)
	t.Cleanup(func() { _ = db.Close() })

	log := logs.GetLoggerFromLevel(slog.LevelError)
	index, err := search.InMemoryCatalogIndex(log)
	req.NoError(err)
	t.Cleanup(func() { _ = index.Close() })

	moderator, err := moderation.NewModerator([]string{"cheater", "leak"}, '*', log)
	req.NoError(err)

	store := repositories.NewBadgerStore(db)
	courses := repositories.NewCourseRepository(store, log)
	users := repositories.NewUserRepository(store, log)
	chats := repositories.NewChatRepository(store, log)
	messages := repositories.NewMessageRepository(store, log)
	feed := repositories.NewFeedRepository(store, log)

	return campus{
		courses:    courses,
		users:      users,
		enrollment: services.NewEnrollmentService(store, courses, users, nil, log),
		catalog:    services.NewCatalogService(courses, index, log),
		chat:       services.NewChatService(chats, messages, &moderator, log),
		feed:       services.NewFeedService(feed, users, &moderator, log),
	}
}

// Walks one course through its whole life: publication, a stampede on
// the last seats, roster bookkeeping, a study-group chat, a feed thread
// and finally the cascading delete.
func Test_Scenario(t *testing.T) {
	ctx := context.Background()
	req := require.New(t)
	cfg, err := LoadConfig()
	req.NoError(err)
	req.Greater(cfg.RaceEnrollers, cfg.CourseSeats)

	lab := newCampus(t)
	now := time.Now().UTC()

	// 1. A published course with a handful of seats
	course, violations := domain.NewCourse(domain.CourseFields{
		ID:            "c-go101",
		Title:         "Go for Backend Engineers",
		Description:   "Concurrency, interfaces and the standard library.",
		InstructorID:  "u-diane",
		Category:      "programming",
		Tags:          []string{"go", "backend"},
		MaxEnrollment: cfg.CourseSeats,
		Status:        domain.CoursePublished,
		DurationHours: 40,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	req.Empty(violations)
	req.NoError(lab.catalog.Save(course))

	instructor, violations := domain.NewUser(domain.UserFields{
		ID: "u-diane", Email: "diane@campus.dev", Name: "Diane Moreau",
		Role: domain.RoleInstructor, FieldOfExpertise: "Distributed Systems",
	})
	req.Empty(violations)
	req.NoError(lab.users.Save(instructor))

	studentIDs := make([]string, cfg.RaceEnrollers)
	for i := range studentIDs {
		studentIDs[i] = fmt.Sprintf("u-s%02d", i)
		student, violations := domain.NewUser(domain.UserFields{
			ID:    studentIDs[i],
			Email: fmt.Sprintf("s%02d@campus.dev", i),
			Name:  fmt.Sprintf("Student %02d", i),
			Role:  domain.RoleStudent,
		})
		req.Empty(violations)
		req.NoError(lab.users.Save(student))
	}

	// 2. Everybody races for the seats at once
	enrollErrs := make([]error, len(studentIDs))
	var wg sync.WaitGroup
	for i, id := range studentIDs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			enrollErrs[i] = lab.enrollment.Enroll(ctx, "c-go101", id)
		}()
	}
	wg.Wait()

	var winners, losers []string
	for i, err := range enrollErrs {
		if err == nil {
			winners = append(winners, studentIDs[i])
			continue
		}
		req.True(stderrors.Is(err, errors.ErrCourseFull) || stderrors.Is(err, errors.ErrContention),
			"unexpected loss for %s: %v", studentIDs[i], err)
		losers = append(losers, studentIDs[i])
	}
	req.Len(winners, cfg.CourseSeats)

	// 3. Roster and per-user enrollments agree in both directions
	course, err = lab.courses.Get("c-go101")
	req.NoError(err)
	req.ElementsMatch(winners, course.EnrolledStudents)
	for _, id := range winners {
		user, err := lab.users.Get(id)
		req.NoError(err)
		req.True(user.IsEnrolledIn("c-go101"))
	}
	for _, id := range losers {
		user, err := lab.users.Get(id)
		req.NoError(err)
		req.False(user.IsEnrolledIn("c-go101"))
	}

	stats, err := lab.enrollment.Statistics("c-go101")
	req.NoError(err)
	req.Equal(cfg.CourseSeats, stats.EnrolledCount)
	req.Equal(0, stats.AvailableSpots)
	req.Equal(100, stats.EnrollmentPercentage)

	// 4. A freed seat goes to one of the losers
	req.NoError(lab.enrollment.Unenroll(ctx, "c-go101", winners[0]))
	req.NoError(lab.enrollment.Enroll(ctx, "c-go101", losers[0]))
	req.ErrorIs(lab.enrollment.Enroll(ctx, "c-go101", losers[0]), errors.ErrAlreadyEnrolled)

	// 5. The catalog finds the course through the index
	found, err := lab.catalog.Search(ctx, "backend --tag go")
	req.NoError(err)
	req.Len(found, 1)
	req.Equal("c-go101", found[0].ID)

	// 6. The study group chats about it, moderated
	roster := []string{winners[1], winners[2], losers[0]}
	group, err := lab.chat.CreateChat(domain.ChatFields{
		ID: "chat-go101", Title: "Go 101 study group", Type: domain.ChatGroup,
		ParticipantIDs: roster, CreatedBy: roster[0], IsActive: true,
		CreatedAt: now, UpdatedAt: now,
	})
	req.NoError(err)

	message, err := lab.chat.PostMessage(ctx, domain.MessageFields{
		ID: "m-0001", ChatID: group.ID, SenderID: roster[0],
		Content: "Do not be a cheater on the final project",
		Type:    domain.MessageText, Status: domain.StatusSending,
	})
	req.NoError(err)
	req.Equal("Do not be a ******* on the final project", message.Content)
	req.Equal(domain.StatusSent, message.Status)

	// 7. A feed thread about the course
	post, err := lab.feed.CreatePost(domain.PostFields{
		ID: "p-0001", UserID: roster[0],
		Content: "Week one of Go 101 was worth the seat fight",
		Tags:    []string{"go"},
	})
	req.NoError(err)
	post, err = lab.feed.Like(post.ID, roster[1])
	req.NoError(err)
	req.Equal(1, post.LikeCount)
	_, err = lab.feed.AddComment(domain.CommentFields{
		ID: "cm-0001", PostID: post.ID, UserID: roster[2],
		Content: "Same, the channels lab alone was worth it",
	})
	req.NoError(err)
	post, err = lab.feed.Post(post.ID)
	req.NoError(err)
	req.Equal(1, post.CommentCount)

	// 8. Deleting the course clears every student's enrollment list
	req.NoError(lab.enrollment.DeleteCourse(ctx, "c-go101"))
	_, err = lab.courses.Get("c-go101")
	req.ErrorIs(err, errors.ErrNotFound)
	for _, id := range studentIDs {
		user, err := lab.users.Get(id)
		req.NoError(err)
		req.False(user.IsEnrolledIn("c-go101"))
	}
}
