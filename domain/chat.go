package domain

import (
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/samber/lo"
)

type ChatType string

const (
	ChatDirect ChatType = "direct"
	ChatGroup  ChatType = "group"
	ChatCourse ChatType = "course"
)

const (
	maxChatParticipants  = 1000
	directParticipants   = 2
	minGroupParticipants = 3
)

// ChatFields carries the raw candidate values handed to NewChat.
type ChatFields struct {
	ID                   string             `json:"id" validate:"required"`
	Title                string             `json:"title" validate:"max=200"`
	Type                 ChatType           `json:"type" validate:"oneof=direct group course"`
	ParticipantIDs       []string           `json:"participant_ids"`
	LastMessageID        string             `json:"last_message_id"`
	LastMessageContent   string             `json:"last_message_content"`
	LastMessageTimestamp *time.Time         `json:"last_message_timestamp"`
	LastMessageSenderID  string             `json:"last_message_sender_id"`
	UnreadCounts         map[string]int     `json:"unread_counts"`
	LastReadTimestamps   map[string]time.Time `json:"last_read_timestamps"`
	CreatedBy            string             `json:"created_by"`
	IsActive             bool               `json:"is_active"`
	CreatedAt            time.Time          `json:"created_at"`
	UpdatedAt            time.Time          `json:"updated_at"`
}

// Chat is a validated, immutable conversation. Direct chats have exactly
// two participants, group chats at least three; the unread and last-read
// bookkeeping only ever references current participants.
type Chat struct {
	ID                   string
	Title                string
	Type                 ChatType
	ParticipantIDs       []string
	LastMessageID        string
	LastMessageContent   string
	LastMessageTimestamp *time.Time
	LastMessageSenderID  string
	UnreadCounts         map[string]int
	LastReadTimestamps   map[string]time.Time
	CreatedBy            string
	IsActive             bool
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// NewChat validates and normalizes the candidate fields, reporting every
// broken rule at once.
func NewChat(f ChatFields) (Chat, Violations) {
	f.ID = strings.TrimSpace(f.ID)
	f.Title = strings.TrimSpace(f.Title)
	f.LastMessageID = strings.TrimSpace(f.LastMessageID)
	f.LastMessageSenderID = strings.TrimSpace(f.LastMessageSenderID)
	f.CreatedBy = strings.TrimSpace(f.CreatedBy)
	participants := normalizeSet(f.ParticipantIDs)

	violations := fieldViolations(validate.Struct(f))
	now := time.Now().UTC()

	switch {
	case len(participants) == 0:
		violations = append(violations, "participant_ids is required")
	case len(participants) > maxChatParticipants:
		violations = append(violations, fmt.Sprintf("participant_ids must contain at most %d entries", maxChatParticipants))
	}
	if f.Type == ChatDirect && len(participants) != directParticipants {
		violations = append(violations, "direct chats must have exactly 2 participants")
	}
	if f.Type == ChatGroup && len(participants) < minGroupParticipants {
		violations = append(violations, "group chats must have at least 3 participants")
	}
	if f.Type != ChatDirect && f.Title == "" {
		violations = append(violations, "title is required for group and course chats")
	}

	// The four last-message fields travel together.
	present := 0
	for _, set := range []bool{
		f.LastMessageID != "",
		f.LastMessageContent != "",
		f.LastMessageTimestamp != nil,
		f.LastMessageSenderID != "",
	} {
		if set {
			present++
		}
	}
	if present != 0 && present != 4 {
		violations = append(violations, "last message fields must be jointly present or jointly absent")
	}
	if f.LastMessageSenderID != "" && !lo.Contains(participants, f.LastMessageSenderID) {
		violations = append(violations, "last_message_sender_id must be a participant")
	}
	if f.LastMessageTimestamp != nil && inFuture(*f.LastMessageTimestamp, now) {
		violations = append(violations, "last_message_timestamp must not be in the future")
	}

	for participant, count := range f.UnreadCounts {
		if count < 0 {
			violations = append(violations, fmt.Sprintf("unread count for %q must not be negative", participant))
		}
		if !lo.Contains(participants, participant) {
			violations = append(violations, fmt.Sprintf("unread count references non-participant %q", participant))
		}
	}
	for participant, at := range f.LastReadTimestamps {
		if !lo.Contains(participants, participant) {
			violations = append(violations, fmt.Sprintf("last read timestamp references non-participant %q", participant))
		}
		if inFuture(at, now) {
			violations = append(violations, fmt.Sprintf("last read timestamp for %q must not be in the future", participant))
		}
	}
	if f.CreatedBy != "" && !lo.Contains(participants, f.CreatedBy) {
		violations = append(violations, "created_by must be a participant")
	}
	switch {
	case f.CreatedAt.IsZero():
		violations = append(violations, "created_at is required")
	case inFuture(f.CreatedAt, now):
		violations = append(violations, "created_at must not be in the future")
	}
	switch {
	case f.UpdatedAt.IsZero():
		violations = append(violations, "updated_at is required")
	case inFuture(f.UpdatedAt, now):
		violations = append(violations, "updated_at must not be in the future")
	case !f.CreatedAt.IsZero() && f.UpdatedAt.Before(f.CreatedAt):
		violations = append(violations, "updated_at must not precede created_at")
	}

	if !violations.OK() {
		return Chat{}, violations
	}
	return Chat{
		ID:                   f.ID,
		Title:                f.Title,
		Type:                 f.Type,
		ParticipantIDs:       participants,
		LastMessageID:        f.LastMessageID,
		LastMessageContent:   f.LastMessageContent,
		LastMessageTimestamp: f.LastMessageTimestamp,
		LastMessageSenderID:  f.LastMessageSenderID,
		UnreadCounts:         maps.Clone(f.UnreadCounts),
		LastReadTimestamps:   maps.Clone(f.LastReadTimestamps),
		CreatedBy:            f.CreatedBy,
		IsActive:             f.IsActive,
		CreatedAt:            f.CreatedAt,
		UpdatedAt:            f.UpdatedAt,
	}, nil
}

func (c Chat) IsParticipant(userID string) bool {
	return lo.Contains(c.ParticipantIDs, userID)
}

// IncrementUnread returns a copy with one more unread message counted
// for the given participant. Unknown participants are a no-op.
func (c Chat) IncrementUnread(participantID string) Chat {
	if !c.IsParticipant(participantID) {
		return c
	}
	counts := maps.Clone(c.UnreadCounts)
	if counts == nil {
		counts = make(map[string]int, 1)
	}
	counts[participantID]++
	c.UnreadCounts = counts
	return c
}

// MarkAsRead zeroes the unread counter and stamps the last-read time for
// the given participant. The two operations are inverse-ish: a read
// swallows everything IncrementUnread accumulated.
func (c Chat) MarkAsRead(participantID string, now time.Time) Chat {
	if !c.IsParticipant(participantID) {
		return c
	}
	counts := maps.Clone(c.UnreadCounts)
	if counts == nil {
		counts = make(map[string]int, 1)
	}
	counts[participantID] = 0
	stamps := maps.Clone(c.LastReadTimestamps)
	if stamps == nil {
		stamps = make(map[string]time.Time, 1)
	}
	stamps[participantID] = now
	c.UnreadCounts = counts
	c.LastReadTimestamps = stamps
	return c
}

// WithParticipant returns a copy with userID added. Direct chats are
// fixed at two members, so adding to one is a no-op, as is adding a
// present member or overflowing the participant cap.
func (c Chat) WithParticipant(userID string, now time.Time) Chat {
	if c.Type == ChatDirect || c.IsParticipant(userID) || len(c.ParticipantIDs) >= maxChatParticipants {
		return c
	}
	c.ParticipantIDs = appendUnique(c.ParticipantIDs, userID)
	c.UpdatedAt = now
	return c
}

// WithoutParticipant returns a copy with userID removed and their
// unread/last-read entries purged. Removals that would leave a direct
// chat below two or a group chat below three members are a no-op.
func (c Chat) WithoutParticipant(userID string, now time.Time) Chat {
	if !c.IsParticipant(userID) {
		return c
	}
	if c.Type == ChatDirect {
		return c
	}
	if c.Type == ChatGroup && len(c.ParticipantIDs) <= minGroupParticipants {
		return c
	}
	c.ParticipantIDs = lo.Without(c.ParticipantIDs, userID)
	counts := maps.Clone(c.UnreadCounts)
	delete(counts, userID)
	stamps := maps.Clone(c.LastReadTimestamps)
	delete(stamps, userID)
	c.UnreadCounts = counts
	c.LastReadTimestamps = stamps
	c.UpdatedAt = now
	return c
}

// WithLastMessage records m as the chat's latest message and counts it
// unread for every participant except the sender. Messages from
// non-participants are a no-op.
func (c Chat) WithLastMessage(m Message, now time.Time) Chat {
	if !c.IsParticipant(m.SenderID) {
		return c
	}
	at := m.Timestamp
	c.LastMessageID = m.ID
	c.LastMessageContent = m.Content
	c.LastMessageTimestamp = &at
	c.LastMessageSenderID = m.SenderID
	counts := maps.Clone(c.UnreadCounts)
	if counts == nil {
		counts = make(map[string]int, len(c.ParticipantIDs))
	}
	for _, participant := range c.ParticipantIDs {
		if participant != m.SenderID {
			counts[participant]++
		}
	}
	c.UnreadCounts = counts
	c.UpdatedAt = now
	return c
}

// WithActive returns a copy with the activity flag set.
func (c Chat) WithActive(active bool, now time.Time) Chat {
	if c.IsActive == active {
		return c
	}
	c.IsActive = active
	c.UpdatedAt = now
	return c
}
