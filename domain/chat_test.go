package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func validGroupChatFields() ChatFields {
	now := time.Now().UTC()
	return ChatFields{
		ID:             "chat-1",
		Title:          "Study group",
		Type:           ChatGroup,
		ParticipantIDs: []string{"alice", "bob", "clara"},
		CreatedBy:      "alice",
		IsActive:       true,
		CreatedAt:      now.Add(-time.Hour),
		UpdatedAt:      now,
	}
}

func Test_NewChat_ParticipantCardinality(t *testing.T) {
	req := require.New(t)

	fields := validGroupChatFields()
	fields.Type = ChatDirect
	fields.Title = ""
	_, violations := NewChat(fields)
	req.Contains(violations.String(), "direct chats must have exactly 2 participants")

	fields = validGroupChatFields()
	fields.ParticipantIDs = []string{"alice", "bob"}
	_, violations = NewChat(fields)
	req.Contains(violations.String(), "group chats must have at least 3 participants")

	fields = validGroupChatFields()
	fields.ParticipantIDs = []string{"alice", "alice", "bob", "clara"}
	chat, violations := NewChat(fields)
	req.True(violations.OK(), violations.String())
	req.Len(chat.ParticipantIDs, 3)
}

func Test_NewChat_LastMessageFieldsTravelTogether(t *testing.T) {
	req := require.New(t)
	fields := validGroupChatFields()
	fields.LastMessageID = "m1"
	fields.LastMessageContent = "hello"

	_, violations := NewChat(fields)
	req.Contains(violations.String(), "last message fields must be jointly present or jointly absent")

	at := time.Now().UTC().Add(-time.Minute)
	fields.LastMessageTimestamp = &at
	fields.LastMessageSenderID = "mallory"
	_, violations = NewChat(fields)
	req.Contains(violations.String(), "last_message_sender_id must be a participant")

	fields.LastMessageSenderID = "bob"
	chat, violations := NewChat(fields)
	req.True(violations.OK(), violations.String())
	req.Equal("bob", chat.LastMessageSenderID)
}

func Test_NewChat_BookkeepingKeysMustBeParticipants(t *testing.T) {
	req := require.New(t)
	fields := validGroupChatFields()
	fields.UnreadCounts = map[string]int{"alice": 2, "mallory": 1, "bob": -1}
	fields.LastReadTimestamps = map[string]time.Time{
		"mallory": time.Now().UTC(),
		"clara":   time.Now().UTC().Add(time.Hour),
	}

	_, violations := NewChat(fields)
	req.Contains(violations.String(), `unread count references non-participant "mallory"`)
	req.Contains(violations.String(), `unread count for "bob" must not be negative`)
	req.Contains(violations.String(), `last read timestamp references non-participant "mallory"`)
	req.Contains(violations.String(), `last read timestamp for "clara" must not be in the future`)
}

func TestChat_UnreadAndReadAreInverseIsh(t *testing.T) {
	req := require.New(t)
	chat, violations := NewChat(validGroupChatFields())
	req.True(violations.OK())

	chat = chat.IncrementUnread("bob").IncrementUnread("bob").IncrementUnread("ghost")
	req.Equal(2, chat.UnreadCounts["bob"])
	req.NotContains(chat.UnreadCounts, "ghost")

	now := time.Now().UTC()
	chat = chat.MarkAsRead("bob", now)
	req.Equal(0, chat.UnreadCounts["bob"])
	req.Equal(now, chat.LastReadTimestamps["bob"])
}

func TestChat_WithoutParticipant_PurgesBookkeeping(t *testing.T) {
	req := require.New(t)
	fields := validGroupChatFields()
	fields.ParticipantIDs = []string{"alice", "bob", "clara", "dave"}
	chat, violations := NewChat(fields)
	req.True(violations.OK())

	now := time.Now().UTC()
	chat = chat.IncrementUnread("dave").MarkAsRead("dave", now)
	chat = chat.WithoutParticipant("dave", now)
	req.False(chat.IsParticipant("dave"))
	req.NotContains(chat.UnreadCounts, "dave")
	req.NotContains(chat.LastReadTimestamps, "dave")

	// Shrinking a group below three members is refused.
	chat = chat.WithoutParticipant("clara", now)
	req.True(chat.IsParticipant("clara"))
}

func TestChat_WithLastMessage_CountsUnreadForOthers(t *testing.T) {
	req := require.New(t)
	chat, violations := NewChat(validGroupChatFields())
	req.True(violations.OK())

	now := time.Now().UTC()
	msg := Message{
		ID:        "m1",
		ChatID:    chat.ID,
		SenderID:  "alice",
		Content:   "anyone up for the lab?",
		Type:      MessageText,
		Status:    StatusSent,
		Timestamp: now,
	}
	chat = chat.WithLastMessage(msg, now)
	req.Equal("m1", chat.LastMessageID)
	req.Equal(0, chat.UnreadCounts["alice"])
	req.Equal(1, chat.UnreadCounts["bob"])
	req.Equal(1, chat.UnreadCounts["clara"])

	// Non-participant senders leave the chat untouched.
	msg.SenderID = "mallory"
	unchanged := chat.WithLastMessage(msg, now)
	req.Equal(chat.LastMessageID, unchanged.LastMessageID)
	req.Equal(chat.UnreadCounts, unchanged.UnreadCounts)
}
