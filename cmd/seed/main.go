package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"campus-lab/domain"
	"campus-lab/internal"
	"campus-lab/moderation"
	"campus-lab/repositories"
	"campus-lab/search"
	"campus-lab/services"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

// Seeds a demo campus: instructors, students, published courses with
// enrollments, a group chat with moderated messages and a small feed.
// Point BADGER_FILEPATH / BLUGE_FILEPATH at a scratch directory first.
func main() {
	if err := run(); err != nil {
		fmt.Printf("❌ Seeding failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("\n✅ Done! Start the server and open the inspector to browse the data")
}

func run() error {
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.ERROR))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer db.Close()

	index, err := search.NewCatalogIndex(config.BlugeFilepath, log)
	if err != nil {
		return fmt.Errorf("catalog index opening failed: %w", err)
	}
	defer index.Close()

	replacement, err := internal.CharacterRune(config.ModerationCharReplacement)
	if err != nil {
		return err
	}
	words := internal.WordList(config.CensoredWords)
	if len(words) == 0 {
		words = []string{"cheater", "plagiarism", "leak"}
	}
	moderator, err := moderation.NewModerator(words, replacement, log)
	if err != nil {
		return fmt.Errorf("moderator setup failed: %w", err)
	}

	store := repositories.NewBadgerStore(db)
	courses := repositories.NewCourseRepository(store, log)
	users := repositories.NewUserRepository(store, log)
	chats := repositories.NewChatRepository(store, log)
	messages := repositories.NewMessageRepository(store, log)
	feed := repositories.NewFeedRepository(store, log)

	enrollment := services.NewEnrollmentService(store, courses, users, nil, log)
	catalog := services.NewCatalogService(courses, index, log)
	chat := services.NewChatService(chats, messages, &moderator, log)
	posts := services.NewFeedService(feed, users, &moderator, log)

	ctx := context.Background()
	fmt.Println("🚀 Campus-Lab : seeding demo data...")

	if err := seedAccounts(users); err != nil {
		return err
	}
	if err := seedCatalog(catalog); err != nil {
		return err
	}
	if err := seedEnrollments(ctx, enrollment); err != nil {
		return err
	}
	if err := seedChats(ctx, chat); err != nil {
		return err
	}
	return seedFeed(posts)
}

func seedAccounts(users repositories.IUserRepository) error {
	accounts := []domain.UserFields{
		{ID: "u-diane", Email: "diane@campus.dev", Name: "Diane Moreau", Role: domain.RoleInstructor, FieldOfExpertise: "Distributed Systems"},
		{ID: "u-karim", Email: "karim@campus.dev", Name: "Karim Haddad", Role: domain.RoleInstructor, FieldOfExpertise: "Databases"},
		{ID: "u-alice", Email: "alice@campus.dev", Name: "Alice Martin", Role: domain.RoleStudent, Grade: "M1"},
		{ID: "u-bob", Email: "bob@campus.dev", Name: "Bob Nguyen", Role: domain.RoleStudent, Grade: "M1"},
		{ID: "u-clara", Email: "clara@campus.dev", Name: "Clara Dubois", Role: domain.RoleStudent, Grade: "L3"},
		{ID: "u-david", Email: "david@campus.dev", Name: "David Rossi", Role: domain.RoleStudent, Grade: "M2"},
		{ID: "u-admin", Email: "root@campus.dev", Name: "Site Admin", Role: domain.RoleAdmin},
	}
	for _, fields := range accounts {
		user, violations := domain.NewUser(fields)
		if len(violations) > 0 {
			return fmt.Errorf("account %s: %v", fields.ID, violations)
		}
		if err := users.Save(user); err != nil {
			return err
		}
	}
	fmt.Printf("👤 Accounts created: %d\n", len(accounts))
	return nil
}

func seedCatalog(catalog services.ICatalogService) error {
	now := time.Now().UTC()
	entries := []domain.CourseFields{
		{
			ID: "c-go101", Title: "Go for Backend Engineers",
			Description:   "Concurrency, interfaces and the standard library, with a weekly project.",
			InstructorID:  "u-diane", Category: "programming",
			Tags:          []string{"go", "backend"},
			MaxEnrollment: 3, Status: domain.CoursePublished,
			DurationHours: 40, CreatedAt: now, UpdatedAt: now,
		},
		{
			ID: "c-db201", Title: "Storage Engines Internals",
			Description:   "LSM trees, write-ahead logs and transaction isolation in practice.",
			InstructorID:  "u-karim", Category: "databases",
			Tags:          []string{"storage", "lsm", "transactions"},
			MaxEnrollment: 25, Status: domain.CoursePublished,
			DurationHours: 30, Prerequisites: []string{"c-go101"},
			CreatedAt: now, UpdatedAt: now,
		},
		{
			ID: "c-dist301", Title: "Distributed Consensus",
			Description:   "Raft, quorums and failure detectors.",
			InstructorID:  "u-diane", Category: "programming",
			Tags:          []string{"raft", "consensus"},
			MaxEnrollment: 15, Status: domain.CourseDraft,
			DurationHours: 25, CreatedAt: now, UpdatedAt: now,
		},
	}
	for _, fields := range entries {
		course, violations := domain.NewCourse(fields)
		if len(violations) > 0 {
			return fmt.Errorf("course %s: %v", fields.ID, violations)
		}
		if err := catalog.Save(course); err != nil {
			return err
		}
	}
	fmt.Printf("📚 Courses published: %d\n", len(entries))
	return nil
}

func seedEnrollments(ctx context.Context, enrollment *services.EnrollmentService) error {
	pairs := []struct{ course, student string }{
		{"c-go101", "u-alice"},
		{"c-go101", "u-bob"},
		{"c-go101", "u-clara"},
		{"c-db201", "u-alice"},
		{"c-db201", "u-david"},
	}
	for _, pair := range pairs {
		if err := enrollment.Enroll(ctx, pair.course, pair.student); err != nil {
			return fmt.Errorf("enroll %s in %s: %w", pair.student, pair.course, err)
		}
	}
	// Demonstrates the capacity guard: c-go101 only seats three.
	if err := enrollment.Enroll(ctx, "c-go101", "u-david"); err == nil {
		return fmt.Errorf("expected c-go101 to be full")
	}
	fmt.Printf("🎓 Enrollments: %d (plus one rejected on a full course)\n", len(pairs))
	return nil
}

func seedChats(ctx context.Context, chat services.IChatService) error {
	now := time.Now().UTC()
	group, err := chat.CreateChat(domain.ChatFields{
		ID: "chat-go101", Title: "Go 101 study group", Type: domain.ChatGroup,
		ParticipantIDs: []string{"u-alice", "u-bob", "u-clara"},
		CreatedBy:      "u-alice", IsActive: true,
		CreatedAt: now, UpdatedAt: now,
	})
	if err != nil {
		return err
	}
	direct, err := chat.CreateChat(domain.ChatFields{
		ID: "chat-alice-diane", Type: domain.ChatDirect,
		ParticipantIDs: []string{"u-alice", "u-diane"},
		CreatedBy:      "u-alice", IsActive: true,
		CreatedAt: now, UpdatedAt: now,
	})
	if err != nil {
		return err
	}

	lines := []struct{ chatID, sender, content string }{
		{group.ID, "u-alice", "Anyone started the goroutine exercise yet?"},
		{group.ID, "u-bob", "Yes, my first attempt deadlocked on an unbuffered channel"},
		{group.ID, "u-clara", "Copying answers makes you a cheater, draw the channel diagram instead"},
		{direct.ID, "u-alice", "Could we get one more office hour before the deadline?"},
	}
	for i, line := range lines {
		_, err := chat.PostMessage(ctx, domain.MessageFields{
			ID:       fmt.Sprintf("m-%04d", i+1),
			ChatID:   line.chatID,
			SenderID: line.sender,
			Content:  line.content,
			Type:     domain.MessageText,
			Status:   domain.StatusSending,
		})
		if err != nil {
			return err
		}
	}
	fmt.Printf("💬 Chats: 2, messages: %d (one censored by the moderator)\n", len(lines))
	return nil
}

func seedFeed(feed services.IFeedService) error {
	post, err := feed.CreatePost(domain.PostFields{
		ID: "p-0001", UserID: "u-bob",
		Content: "Finally understood why a nil map read works but a nil map write panics.",
		Tags:    []string{"go", "til"},
	})
	if err != nil {
		return err
	}
	if _, err := feed.Like(post.ID, "u-alice"); err != nil {
		return err
	}
	if _, err := feed.Like(post.ID, "u-clara"); err != nil {
		return err
	}
	comments := []struct{ id, user, content string }{
		{"cm-0001", "u-alice", "The zero value story is the best part of the language"},
		{"cm-0002", "u-diane", "Covered in week two, bring this up in class!"},
	}
	for _, entry := range comments {
		_, err := feed.AddComment(domain.CommentFields{
			ID: entry.id, PostID: post.ID, UserID: entry.user, Content: entry.content,
		})
		if err != nil {
			return err
		}
	}
	fmt.Printf("📰 Feed: 1 post, %d comments, 2 likes\n", len(comments))
	return nil
}
