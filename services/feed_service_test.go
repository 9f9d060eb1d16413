package services

import (
	"log/slog"
	"strings"
	"testing"
	"time"

	"campus-lab/domain"
	"campus-lab/errors"
	"campus-lab/moderation"
	"campus-lab/repositories"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func newFeedFixture(t *testing.T) (*FeedService, repositories.UserRepository) {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	log := slog.Default()
	store := repositories.NewBadgerStore(db)
	feed := repositories.NewFeedRepository(store, log)
	users := repositories.NewUserRepository(store, log)

	moderator, err := moderation.NewModerator([]string{"cheater"}, '*', log)
	require.NoError(t, err)

	user, violations := domain.NewUser(domain.UserFields{
		ID: "alice", Email: "alice@campus.test", Name: "Alice Martin",
		Role: domain.RoleStudent, Grade: "L3",
	})
	require.True(t, violations.OK(), violations.String())
	require.NoError(t, users.Save(user))

	return NewFeedService(feed, users, &moderator, log), users
}

func postFields(id, content string) domain.PostFields {
	return domain.PostFields{
		ID:        id,
		UserID:    "alice",
		Content:   content,
		Timestamp: time.Now().UTC().Add(-time.Minute),
	}
}

func commentFields(postID, content string) domain.CommentFields {
	return domain.CommentFields{
		ID:        uuid.NewString(),
		PostID:    postID,
		UserID:    "alice",
		Content:   content,
		Timestamp: time.Now().UTC(),
	}
}

func Test_Create_Post_Moderates_Content(t *testing.T) {
	req := require.New(t)
	service, _ := newFeedFixture(t)

	post, err := service.CreatePost(postFields("p1", "my rival is a cheater"))
	req.NoError(err)
	req.Equal("my rival is a *******", post.Content)
}

func Test_Create_Post_Content_Boundary(t *testing.T) {
	req := require.New(t)
	service, _ := newFeedFixture(t)

	_, err := service.CreatePost(postFields("p1", strings.Repeat("a", 5000)))
	req.NoError(err)

	_, err = service.CreatePost(postFields("p2", strings.Repeat("a", 5001)))
	req.ErrorIs(err, errors.ErrInvalidEntity)
}

func Test_Like_Mirrors_On_User(t *testing.T) {
	req := require.New(t)
	service, users := newFeedFixture(t)

	_, err := service.CreatePost(postFields("p1", "hello campus"))
	req.NoError(err)

	post, err := service.Like("p1", "alice")
	req.NoError(err)
	req.Equal(1, post.LikeCount)
	req.True(post.IsLikedBy("alice"))

	user, err := users.Get("alice")
	req.NoError(err)
	req.Contains(user.LikedPosts, "p1")

	// Liking twice changes nothing.
	post, err = service.Like("p1", "alice")
	req.NoError(err)
	req.Equal(1, post.LikeCount)

	post, err = service.Unlike("p1", "alice")
	req.NoError(err)
	req.Equal(0, post.LikeCount)

	user, err = users.Get("alice")
	req.NoError(err)
	req.NotContains(user.LikedPosts, "p1")
}

func Test_Comment_Lifecycle(t *testing.T) {
	req := require.New(t)
	service, _ := newFeedFixture(t)

	_, err := service.CreatePost(postFields("p1", "hello campus"))
	req.NoError(err)

	comment, err := service.AddComment(commentFields("p1", "that cheater again"))
	req.NoError(err)
	req.Equal("that ******* again", comment.Content)

	post, err := service.Post("p1")
	req.NoError(err)
	req.Equal(1, post.CommentCount)
	req.Contains(post.CommentIDs, comment.ID)

	edited, err := service.EditComment(comment, "never mind", time.Now().UTC())
	req.NoError(err)
	req.True(edited.IsEdited)
	req.Equal("never mind", edited.Content)

	post, err = service.RemoveComment(edited)
	req.NoError(err)
	req.Equal(0, post.CommentCount)

	comments, _, err := service.Comments("p1", nil, 10)
	req.NoError(err)
	req.Empty(comments)
}

func Test_Add_Comment_To_Missing_Post(t *testing.T) {
	req := require.New(t)
	service, _ := newFeedFixture(t)

	_, err := service.AddComment(commentFields("ghost", "anyone here?"))
	req.ErrorIs(err, errors.ErrNotFound)
}

func Test_Delete_Post_Cascades_Comments(t *testing.T) {
	req := require.New(t)
	service, _ := newFeedFixture(t)

	_, err := service.CreatePost(postFields("p1", "hello campus"))
	req.NoError(err)
	_, err = service.CreatePost(postFields("p2", "other post"))
	req.NoError(err)

	for _, content := range []string{"one", "two", "three"} {
		_, err := service.AddComment(commentFields("p1", content))
		req.NoError(err)
	}
	keeper, err := service.AddComment(commentFields("p2", "stays"))
	req.NoError(err)

	req.NoError(service.DeletePost("p1"))

	_, err = service.Post("p1")
	req.ErrorIs(err, errors.ErrNotFound)

	comments, _, err := service.Comments("p1", nil, 10)
	req.NoError(err)
	req.Empty(comments)

	comments, _, err = service.Comments("p2", nil, 10)
	req.NoError(err)
	req.Len(comments, 1)
	req.Equal(keeper.ID, comments[0].ID)
}
