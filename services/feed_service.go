//go:generate go run go.uber.org/mock/mockgen -source=feed_service.go -destination=../mocks/mock_feed_service.go -package=mocks
package services

import (
	"log/slog"
	"time"

	"campus-lab/domain"
	"campus-lab/moderation"
	"campus-lab/repositories"
)

type IFeedService interface {
	CreatePost(fields domain.PostFields) (domain.Post, error)
	Post(postID string) (domain.Post, error)
	Posts(cursor *string, limit int) ([]domain.Post, *string, error)
	Like(postID, userID string) (domain.Post, error)
	Unlike(postID, userID string) (domain.Post, error)
	AddComment(fields domain.CommentFields) (domain.Comment, error)
	EditComment(comment domain.Comment, content string, now time.Time) (domain.Comment, error)
	Comments(postID string, cursor *string, limit int) ([]domain.Comment, *string, error)
	RemoveComment(comment domain.Comment) (domain.Post, error)
	DeletePost(postID string) error
}

// FeedService keeps the feed counters honest: a post's like count always
// equals the size of its likedBy set, its comment count the number of
// linked comments, and a user's likedPosts list mirrors the posts that
// carry their like.
type FeedService struct {
	feed      repositories.IFeedRepository
	users     repositories.IUserRepository
	moderator *moderation.Moderator
	log       *slog.Logger
}

func NewFeedService(feed repositories.IFeedRepository, users repositories.IUserRepository,
	moderator *moderation.Moderator, log *slog.Logger) *FeedService {
	return &FeedService{feed: feed, users: users, moderator: moderator, log: log}
}

func (s *FeedService) moderate(content, kind, author string) string {
	if s.moderator == nil || content == "" {
		return content
	}
	review := s.moderator.Check(content)
	if review.Flagged {
		s.log.Warn("Censored feed content",
			"kind", kind,
			"author", author,
			"words", len(review.CensoredWords),
			"lang", review.Language)
	}
	return review.Content
}

func (s *FeedService) CreatePost(fields domain.PostFields) (domain.Post, error) {
	fields.Content = s.moderate(fields.Content, "post", fields.UserID)
	post, violations := domain.NewPost(fields)
	if !violations.OK() {
		return domain.Post{}, invalidEntity(violations)
	}
	if err := s.feed.SavePost(post); err != nil {
		return domain.Post{}, err
	}
	return post, nil
}

func (s *FeedService) Post(postID string) (domain.Post, error) {
	return s.feed.GetPost(postID)
}

func (s *FeedService) Posts(cursor *string, limit int) ([]domain.Post, *string, error) {
	return s.feed.PagePosts(cursor, limit)
}

// Like records the like on the post and mirrors it on the user's
// likedPosts list. Liking twice is a no-op on both sides.
func (s *FeedService) Like(postID, userID string) (domain.Post, error) {
	post, err := s.feed.GetPost(postID)
	if err != nil {
		return domain.Post{}, err
	}
	user, err := s.users.Get(userID)
	if err != nil {
		return domain.Post{}, err
	}

	liked := post.WithLike(userID)
	if err := s.feed.SavePost(liked); err != nil {
		return domain.Post{}, err
	}
	if err := s.users.Save(user.WithLikedPost(postID)); err != nil {
		return domain.Post{}, err
	}
	return liked, nil
}

func (s *FeedService) Unlike(postID, userID string) (domain.Post, error) {
	post, err := s.feed.GetPost(postID)
	if err != nil {
		return domain.Post{}, err
	}
	user, err := s.users.Get(userID)
	if err != nil {
		return domain.Post{}, err
	}

	unliked := post.WithoutLike(userID)
	if err := s.feed.SavePost(unliked); err != nil {
		return domain.Post{}, err
	}
	if err := s.users.Save(user.WithoutLikedPost(postID)); err != nil {
		return domain.Post{}, err
	}
	return unliked, nil
}

// AddComment stores the comment and links it on the parent post.
func (s *FeedService) AddComment(fields domain.CommentFields) (domain.Comment, error) {
	fields.Content = s.moderate(fields.Content, "comment", fields.UserID)
	comment, violations := domain.NewComment(fields)
	if !violations.OK() {
		return domain.Comment{}, invalidEntity(violations)
	}

	post, err := s.feed.GetPost(comment.PostID)
	if err != nil {
		return domain.Comment{}, err
	}
	if err := s.feed.SaveComment(comment); err != nil {
		return domain.Comment{}, err
	}
	if err := s.feed.SavePost(post.WithComment(comment.ID)); err != nil {
		return domain.Comment{}, err
	}
	return comment, nil
}

// EditComment rewrites the comment body and stamps the edit marker. The
// moderated replacement must itself be a valid comment, otherwise the
// original stays.
func (s *FeedService) EditComment(comment domain.Comment, content string, now time.Time) (domain.Comment, error) {
	content = s.moderate(content, "comment", comment.UserID)
	edited := comment.Edited(content, now)
	if edited.Content == comment.Content && !edited.IsEdited {
		return comment, nil
	}
	if err := s.feed.SaveComment(edited); err != nil {
		return domain.Comment{}, err
	}
	return edited, nil
}

func (s *FeedService) Comments(postID string, cursor *string, limit int) ([]domain.Comment, *string, error) {
	return s.feed.CommentsByPost(postID, cursor, limit)
}

// RemoveComment deletes the comment and unlinks it from the parent.
func (s *FeedService) RemoveComment(comment domain.Comment) (domain.Post, error) {
	if err := s.feed.DeleteComment(comment); err != nil {
		return domain.Post{}, err
	}
	post, err := s.feed.GetPost(comment.PostID)
	if err != nil {
		return domain.Post{}, err
	}
	updated := post.WithoutComment(comment.ID)
	if err := s.feed.SavePost(updated); err != nil {
		return domain.Post{}, err
	}
	return updated, nil
}

// DeletePost cascades over the post's comments before removing the post
// itself. Rerunning a partially failed cascade is safe.
func (s *FeedService) DeletePost(postID string) error {
	deleted, err := s.feed.DeleteCommentsByPost(postID)
	if err != nil {
		return err
	}
	s.log.Debug("Deleted post comments", "post", postID, "count", deleted)
	return s.feed.DeletePost(postID)
}
