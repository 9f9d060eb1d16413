package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"
)

const (
	maxPostContent = 5000
	maxPostTags    = 10
)

// PostFields carries the raw candidate values handed to NewPost.
type PostFields struct {
	ID           string    `json:"id" validate:"required"`
	UserID       string    `json:"user_id" validate:"required"`
	Content      string    `json:"content" validate:"required,max=5000"`
	Tags         []string  `json:"tags"`
	LikedBy      []string  `json:"liked_by"`
	LikeCount    int       `json:"like_count" validate:"gte=0"`
	CommentIDs   []string  `json:"comment_ids"`
	CommentCount int       `json:"comment_count" validate:"gte=0"`
	Timestamp    time.Time `json:"timestamp"`
}

// Post is a validated, immutable feed entry. The like and comment
// counters are not mere bounds: they always equal the cardinality of
// their backing collections.
type Post struct {
	ID           string
	UserID       string
	Content      string
	Tags         []string
	LikedBy      []string
	LikeCount    int
	CommentIDs   []string
	CommentCount int
	Timestamp    time.Time
}

// NewPost validates and normalizes the candidate fields, reporting every
// broken rule at once.
func NewPost(f PostFields) (Post, Violations) {
	f.ID = strings.TrimSpace(f.ID)
	f.UserID = strings.TrimSpace(f.UserID)
	f.Content = strings.TrimSpace(f.Content)
	tags := normalizeSet(f.Tags)
	likedBy := normalizeSet(f.LikedBy)
	commentIDs := normalizeSet(f.CommentIDs)

	violations := fieldViolations(validate.Struct(f))
	now := time.Now().UTC()

	if len(tags) > maxPostTags {
		violations = append(violations, fmt.Sprintf("tags must contain at most %d entries", maxPostTags))
	}
	for _, tag := range tags {
		if len([]rune(tag)) > maxTagLength {
			violations = append(violations, fmt.Sprintf("tag %q must be at most %d characters", tag, maxTagLength))
		}
	}
	if f.LikeCount != len(likedBy) {
		violations = append(violations, "like_count must equal the number of users in liked_by")
	}
	if f.CommentCount != len(commentIDs) {
		violations = append(violations, "comment_count must equal the number of comment_ids")
	}
	switch {
	case f.Timestamp.IsZero():
		violations = append(violations, "timestamp is required")
	case inFuture(f.Timestamp, now):
		violations = append(violations, "timestamp must not be in the future")
	}

	if !violations.OK() {
		return Post{}, violations
	}
	return Post{
		ID:           f.ID,
		UserID:       f.UserID,
		Content:      f.Content,
		Tags:         tags,
		LikedBy:      likedBy,
		LikeCount:    f.LikeCount,
		CommentIDs:   commentIDs,
		CommentCount: f.CommentCount,
		Timestamp:    f.Timestamp,
	}, nil
}

func (p Post) IsLikedBy(userID string) bool {
	return lo.Contains(p.LikedBy, userID)
}

// WithLike returns a copy liked by userID, keeping the counter equal to
// the backing set. Re-liking is a no-op.
func (p Post) WithLike(userID string) Post {
	if p.IsLikedBy(userID) {
		return p
	}
	p.LikedBy = appendUnique(p.LikedBy, userID)
	p.LikeCount = len(p.LikedBy)
	return p
}

// WithoutLike returns a copy with userID's like removed.
func (p Post) WithoutLike(userID string) Post {
	if !p.IsLikedBy(userID) {
		return p
	}
	p.LikedBy = lo.Without(p.LikedBy, userID)
	p.LikeCount = len(p.LikedBy)
	return p
}

// WithComment returns a copy referencing commentID, keeping the counter
// in step.
func (p Post) WithComment(commentID string) Post {
	if lo.Contains(p.CommentIDs, commentID) {
		return p
	}
	p.CommentIDs = appendUnique(p.CommentIDs, commentID)
	p.CommentCount = len(p.CommentIDs)
	return p
}

// WithoutComment returns a copy with the comment reference removed.
func (p Post) WithoutComment(commentID string) Post {
	if !lo.Contains(p.CommentIDs, commentID) {
		return p
	}
	p.CommentIDs = lo.Without(p.CommentIDs, commentID)
	p.CommentCount = len(p.CommentIDs)
	return p
}
