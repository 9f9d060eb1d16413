//go:generate go run go.uber.org/mock/mockgen -source=chat_service.go -destination=../mocks/mock_chat_service.go -package=mocks
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"campus-lab/domain"
	"campus-lab/errors"
	"campus-lab/moderation"
	"campus-lab/repositories"
)

type IChatService interface {
	CreateChat(fields domain.ChatFields) (domain.Chat, error)
	Chat(chatID string) (domain.Chat, error)
	ChatsFor(userID string) ([]domain.Chat, error)
	PostMessage(ctx context.Context, fields domain.MessageFields) (domain.Message, error)
	Messages(chatID string, cursor *string, limit int) ([]domain.Message, *string, error)
	MarkDelivered(message domain.Message, now time.Time) (domain.Message, error)
	MarkRead(chatID, participantID string, message domain.Message, now time.Time) (domain.Message, error)
	AddParticipant(chatID, userID string, now time.Time) (domain.Chat, error)
	RemoveParticipant(chatID, userID string, now time.Time) (domain.Chat, error)
	DeleteChat(chatID string) error
}

type ChatService struct {
	chats     repositories.IChatRepository
	messages  repositories.IMessageRepository
	moderator *moderation.Moderator
	log       *slog.Logger
}

func NewChatService(chats repositories.IChatRepository, messages repositories.IMessageRepository,
	moderator *moderation.Moderator, log *slog.Logger) *ChatService {
	return &ChatService{chats: chats, messages: messages, moderator: moderator, log: log}
}

func invalidEntity(violations domain.Violations) error {
	return fmt.Errorf("%s: %w", violations.String(), errors.ErrInvalidEntity)
}

func (s *ChatService) CreateChat(fields domain.ChatFields) (domain.Chat, error) {
	chat, violations := domain.NewChat(fields)
	if !violations.OK() {
		return domain.Chat{}, invalidEntity(violations)
	}
	if err := s.chats.Save(chat); err != nil {
		return domain.Chat{}, err
	}
	return chat, nil
}

func (s *ChatService) Chat(chatID string) (domain.Chat, error) {
	return s.chats.Get(chatID)
}

func (s *ChatService) ChatsFor(userID string) ([]domain.Chat, error) {
	return s.chats.ForParticipant(userID)
}

// PostMessage validates, moderates and stores a message, then rolls the
// chat's last-message preview and unread counters forward. The sender
// must belong to the chat.
func (s *ChatService) PostMessage(ctx context.Context, fields domain.MessageFields) (domain.Message, error) {
	chat, err := s.chats.Get(fields.ChatID)
	if err != nil {
		return domain.Message{}, err
	}
	if !chat.IsParticipant(fields.SenderID) {
		return domain.Message{}, fmt.Errorf("sender %s is not a participant of chat %s: %w",
			fields.SenderID, fields.ChatID, errors.ErrInvalidEntity)
	}

	if s.moderator != nil && fields.Content != "" {
		review := s.moderator.Check(fields.Content)
		if review.Flagged {
			s.log.Warn("Censored message content",
				"chat", fields.ChatID,
				"sender", fields.SenderID,
				"words", len(review.CensoredWords),
				"lang", review.Language)
		}
		fields.Content = review.Content
	}

	message, violations := domain.NewMessage(fields)
	if !violations.OK() {
		return domain.Message{}, invalidEntity(violations)
	}
	if err := s.messages.Save(message); err != nil {
		return domain.Message{}, err
	}

	sent := message.MarkSent()
	if sent.Status != message.Status {
		if err := s.messages.Save(sent); err != nil {
			return domain.Message{}, err
		}
	}

	now := time.Now().UTC()
	if err := s.chats.Save(chat.WithLastMessage(sent, now)); err != nil {
		return domain.Message{}, err
	}
	return sent, nil
}

func (s *ChatService) Messages(chatID string, cursor *string, limit int) ([]domain.Message, *string, error) {
	return s.messages.Page(chatID, cursor, limit)
}

// MarkDelivered advances the message status. An illegal transition is a
// domain no-op and is simply not persisted.
func (s *ChatService) MarkDelivered(message domain.Message, now time.Time) (domain.Message, error) {
	delivered := message.MarkDelivered(now)
	if delivered.Status == message.Status {
		return message, nil
	}
	if err := s.messages.Save(delivered); err != nil {
		return domain.Message{}, err
	}
	return delivered, nil
}

// MarkRead advances the message and zeroes the reader's unread counter
// on the chat in the same call.
func (s *ChatService) MarkRead(chatID, participantID string, message domain.Message, now time.Time) (domain.Message, error) {
	read := message.MarkRead(now)
	if read.Status != message.Status {
		if err := s.messages.Save(read); err != nil {
			return domain.Message{}, err
		}
	}

	chat, err := s.chats.Get(chatID)
	if err != nil {
		return domain.Message{}, err
	}
	if err := s.chats.Save(chat.MarkAsRead(participantID, now)); err != nil {
		return domain.Message{}, err
	}
	return read, nil
}

func (s *ChatService) AddParticipant(chatID, userID string, now time.Time) (domain.Chat, error) {
	chat, err := s.chats.Get(chatID)
	if err != nil {
		return domain.Chat{}, err
	}
	updated := chat.WithParticipant(userID, now)
	if err := s.chats.Save(updated); err != nil {
		return domain.Chat{}, err
	}
	return updated, nil
}

func (s *ChatService) RemoveParticipant(chatID, userID string, now time.Time) (domain.Chat, error) {
	chat, err := s.chats.Get(chatID)
	if err != nil {
		return domain.Chat{}, err
	}
	updated := chat.WithoutParticipant(userID, now)
	if err := s.chats.Save(updated); err != nil {
		return domain.Chat{}, err
	}
	return updated, nil
}

// DeleteChat removes the conversation and cascades over its messages.
func (s *ChatService) DeleteChat(chatID string) error {
	deleted, err := s.messages.DeleteForChat(chatID)
	if err != nil {
		return err
	}
	s.log.Debug("Deleted chat messages", "chat", chatID, "count", deleted)
	return s.chats.Delete(chatID)
}
