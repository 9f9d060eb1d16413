//go:generate go run go.uber.org/mock/mockgen -source=feed.go -destination=../mocks/mock_feed_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"campus-lab/domain"
)

const postPrefix = "post:"

func postKey(id string) string { return postPrefix + id }

func commentPrefix(postID string) string {
	return fmt.Sprintf("comment:%s:", postID)
}

// commentKey orders comments chronologically under their post, the same
// layout the message collection uses.
func commentKey(c domain.Comment) string {
	return fmt.Sprintf("%s%019d:%s", commentPrefix(c.PostID), c.Timestamp.UnixNano(), c.ID)
}

type IFeedRepository interface {
	SavePost(post domain.Post) error
	GetPost(id string) (domain.Post, error)
	DeletePost(id string) error
	PagePosts(cursor *string, limit int) ([]domain.Post, *string, error)

	SaveComment(comment domain.Comment) error
	DeleteComment(comment domain.Comment) error
	CommentsByPost(postID string, cursor *string, limit int) ([]domain.Comment, *string, error)
	DeleteCommentsByPost(postID string) (int, error)
}

type FeedRepository struct {
	store DocumentStore
	log   *slog.Logger
}

func NewFeedRepository(store DocumentStore, log *slog.Logger) FeedRepository {
	return FeedRepository{store: store, log: log}
}

func (r FeedRepository) SavePost(post domain.Post) error {
	value, err := encodePost(post)
	if err != nil {
		return err
	}
	return r.store.Update(func(txn Txn) error {
		return txn.Set(postKey(post.ID), value)
	})
}

func (r FeedRepository) GetPost(id string) (domain.Post, error) {
	var post domain.Post
	err := r.store.View(func(txn Txn) error {
		value, err := txn.Get(postKey(id))
		if err != nil {
			return err
		}
		post, err = decodePost(value)
		return err
	})
	return post, err
}

func (r FeedRepository) DeletePost(id string) error {
	return r.store.Update(func(txn Txn) error {
		return txn.Delete(postKey(id))
	})
}

// PagePosts walks posts in key order starting after the cursor,
// skipping and logging malformed records.
func (r FeedRepository) PagePosts(cursor *string, limit int) ([]domain.Post, *string, error) {
	var posts []domain.Post
	var lastID string

	err := r.store.View(func(txn Txn) error {
		seek := ""
		if cursor != nil {
			seek = postKey(*cursor)
		}
		skipCursor := cursor != nil
		return txn.Ascend(postPrefix, seek, func(key string, value []byte) (bool, error) {
			if skipCursor && key == seek {
				return true, nil
			}
			post, err := decodePost(value)
			if err != nil {
				r.log.Warn("Skipping undecodable post record", "key", key, "error", err)
				return true, nil
			}
			posts = append(posts, post)
			lastID = post.ID
			return len(posts) < limit, nil
		})
	})
	if err != nil {
		return nil, nil, err
	}
	if len(posts) < limit || lastID == "" {
		return posts, nil, nil
	}
	return posts, &lastID, nil
}

func (r FeedRepository) SaveComment(comment domain.Comment) error {
	value, err := encodeComment(comment)
	if err != nil {
		return err
	}
	return r.store.Update(func(txn Txn) error {
		return txn.Set(commentKey(comment), value)
	})
}

func (r FeedRepository) DeleteComment(comment domain.Comment) error {
	return r.store.Update(func(txn Txn) error {
		return txn.Delete(commentKey(comment))
	})
}

// CommentsByPost returns up to limit comments, oldest first.
func (r FeedRepository) CommentsByPost(postID string, cursor *string, limit int) ([]domain.Comment, *string, error) {
	prefix := commentPrefix(postID)
	var comments []domain.Comment
	var lastSuffix string

	err := r.store.View(func(txn Txn) error {
		seek := ""
		if cursor != nil {
			seek = prefix + *cursor
		}
		skipCursor := cursor != nil
		return txn.Ascend(prefix, seek, func(key string, value []byte) (bool, error) {
			if skipCursor && key == seek {
				return true, nil
			}
			comment, err := decodeComment(value)
			if err != nil {
				r.log.Warn("Skipping undecodable comment record", "key", key, "error", err)
				return true, nil
			}
			comments = append(comments, comment)
			lastSuffix = key[len(prefix):]
			return len(comments) < limit, nil
		})
	})
	if err != nil {
		return nil, nil, err
	}
	if len(comments) < limit || lastSuffix == "" {
		return comments, nil, nil
	}
	return comments, &lastSuffix, nil
}

// DeleteCommentsByPost removes every comment under a post. Removal by
// full key is idempotent; a partially failed cascade is safe to rerun.
func (r FeedRepository) DeleteCommentsByPost(postID string) (int, error) {
	prefix := commentPrefix(postID)
	var keys []string
	err := r.store.View(func(txn Txn) error {
		return txn.Ascend(prefix, "", func(key string, _ []byte) (bool, error) {
			keys = append(keys, key)
			return true, nil
		})
	})
	if err != nil {
		return 0, err
	}
	for _, key := range keys {
		err := r.store.Update(func(txn Txn) error {
			return txn.Delete(key)
		})
		if err != nil {
			return 0, err
		}
	}
	return len(keys), nil
}

func encodePost(post domain.Post) ([]byte, error) {
	return json.Marshal(domain.PostFields{
		ID:           post.ID,
		UserID:       post.UserID,
		Content:      post.Content,
		Tags:         post.Tags,
		LikedBy:      post.LikedBy,
		LikeCount:    post.LikeCount,
		CommentIDs:   post.CommentIDs,
		CommentCount: post.CommentCount,
		Timestamp:    post.Timestamp,
	})
}

func decodePost(value []byte) (domain.Post, error) {
	var fields domain.PostFields
	if err := json.Unmarshal(value, &fields); err != nil {
		return domain.Post{}, fmt.Errorf("post document: %w", err)
	}
	post, violations := domain.NewPost(fields)
	if !violations.OK() {
		return domain.Post{}, fmt.Errorf("post document: %s", violations.String())
	}
	return post, nil
}

func encodeComment(comment domain.Comment) ([]byte, error) {
	return json.Marshal(domain.CommentFields{
		ID:        comment.ID,
		PostID:    comment.PostID,
		UserID:    comment.UserID,
		Content:   comment.Content,
		Timestamp: comment.Timestamp,
		IsEdited:  comment.IsEdited,
		EditedAt:  comment.EditedAt,
	})
}

func decodeComment(value []byte) (domain.Comment, error) {
	var fields domain.CommentFields
	if err := json.Unmarshal(value, &fields); err != nil {
		return domain.Comment{}, fmt.Errorf("comment document: %w", err)
	}
	comment, violations := domain.NewComment(fields)
	if !violations.OK() {
		return domain.Comment{}, fmt.Errorf("comment document: %s", violations.String())
	}
	return comment, nil
}
