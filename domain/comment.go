package domain

import (
	"strings"
	"time"
)

const maxCommentContent = 1000

// CommentFields carries the raw candidate values handed to NewComment.
type CommentFields struct {
	ID        string     `json:"id" validate:"required"`
	PostID    string     `json:"post_id" validate:"required"`
	UserID    string     `json:"user_id" validate:"required"`
	Content   string     `json:"content" validate:"required,max=1000"`
	Timestamp time.Time  `json:"timestamp"`
	IsEdited  bool       `json:"is_edited"`
	EditedAt  *time.Time `json:"edited_at"`
}

// Comment is a validated, immutable reply on a post. IsEdited holds
// exactly when EditedAt is present.
type Comment struct {
	ID        string
	PostID    string
	UserID    string
	Content   string
	Timestamp time.Time
	IsEdited  bool
	EditedAt  *time.Time
}

// NewComment validates and normalizes the candidate fields, reporting
// every broken rule at once.
func NewComment(f CommentFields) (Comment, Violations) {
	f.ID = strings.TrimSpace(f.ID)
	f.PostID = strings.TrimSpace(f.PostID)
	f.UserID = strings.TrimSpace(f.UserID)
	f.Content = strings.TrimSpace(f.Content)

	violations := fieldViolations(validate.Struct(f))
	now := time.Now().UTC()

	switch {
	case f.Timestamp.IsZero():
		violations = append(violations, "timestamp is required")
	case inFuture(f.Timestamp, now):
		violations = append(violations, "timestamp must not be in the future")
	}
	if f.IsEdited && f.EditedAt == nil {
		violations = append(violations, "edited_at is required when is_edited is set")
	}
	if !f.IsEdited && f.EditedAt != nil {
		violations = append(violations, "edited_at is only allowed when is_edited is set")
	}
	if f.EditedAt != nil && !f.Timestamp.IsZero() && f.EditedAt.Before(f.Timestamp) {
		violations = append(violations, "edited_at must not precede timestamp")
	}

	if !violations.OK() {
		return Comment{}, violations
	}
	return Comment{
		ID:        f.ID,
		PostID:    f.PostID,
		UserID:    f.UserID,
		Content:   f.Content,
		Timestamp: f.Timestamp,
		IsEdited:  f.IsEdited,
		EditedAt:  f.EditedAt,
	}, nil
}

// Edited returns a copy carrying the new content and an edit mark.
// Content that would not survive validation (empty or over the length
// limit after trimming) leaves the comment unchanged; an edit time
// before the original timestamp is clamped to it.
func (c Comment) Edited(content string, now time.Time) Comment {
	content = strings.TrimSpace(content)
	if content == "" || len([]rune(content)) > maxCommentContent {
		return c
	}
	if now.Before(c.Timestamp) {
		now = c.Timestamp
	}
	at := now
	c.Content = content
	c.IsEdited = true
	c.EditedAt = &at
	return c
}
