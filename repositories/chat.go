//go:generate go run go.uber.org/mock/mockgen -source=chat.go -destination=../mocks/mock_chat_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"campus-lab/domain"

	"github.com/samber/lo"
)

const chatPrefix = "chat:"

func chatKey(id string) string { return chatPrefix + id }

type IChatRepository interface {
	Save(chat domain.Chat) error
	Get(id string) (domain.Chat, error)
	Delete(id string) error
	ForParticipant(userID string) ([]domain.Chat, error)
}

type ChatRepository struct {
	store DocumentStore
	log   *slog.Logger
}

func NewChatRepository(store DocumentStore, log *slog.Logger) ChatRepository {
	return ChatRepository{store: store, log: log}
}

func (r ChatRepository) Save(chat domain.Chat) error {
	value, err := encodeChat(chat)
	if err != nil {
		return err
	}
	return r.store.Update(func(txn Txn) error {
		return txn.Set(chatKey(chat.ID), value)
	})
}

func (r ChatRepository) Get(id string) (domain.Chat, error) {
	var chat domain.Chat
	err := r.store.View(func(txn Txn) error {
		value, err := txn.Get(chatKey(id))
		if err != nil {
			return err
		}
		chat, err = decodeChat(value)
		return err
	})
	return chat, err
}

func (r ChatRepository) Delete(id string) error {
	return r.store.Update(func(txn Txn) error {
		return txn.Delete(chatKey(id))
	})
}

// ForParticipant scans the chat collection and keeps conversations the
// user belongs to. Malformed records are logged and skipped.
func (r ChatRepository) ForParticipant(userID string) ([]domain.Chat, error) {
	var chats []domain.Chat
	err := r.store.View(func(txn Txn) error {
		return txn.Ascend(chatPrefix, "", func(key string, value []byte) (bool, error) {
			chat, err := decodeChat(value)
			if err != nil {
				r.log.Warn("Skipping undecodable chat record", "key", key, "error", err)
				return true, nil
			}
			if chat.IsParticipant(userID) {
				chats = append(chats, chat)
			}
			return true, nil
		})
	})
	if err != nil {
		return nil, err
	}
	return lo.Filter(chats, func(c domain.Chat, _ int) bool { return c.IsActive }), nil
}

func encodeChat(chat domain.Chat) ([]byte, error) {
	return json.Marshal(domain.ChatFields{
		ID:                   chat.ID,
		Title:                chat.Title,
		Type:                 chat.Type,
		ParticipantIDs:       chat.ParticipantIDs,
		LastMessageID:        chat.LastMessageID,
		LastMessageContent:   chat.LastMessageContent,
		LastMessageTimestamp: chat.LastMessageTimestamp,
		LastMessageSenderID:  chat.LastMessageSenderID,
		UnreadCounts:         chat.UnreadCounts,
		LastReadTimestamps:   chat.LastReadTimestamps,
		CreatedBy:            chat.CreatedBy,
		IsActive:             chat.IsActive,
		CreatedAt:            chat.CreatedAt,
		UpdatedAt:            chat.UpdatedAt,
	})
}

func decodeChat(value []byte) (domain.Chat, error) {
	var fields domain.ChatFields
	if err := json.Unmarshal(value, &fields); err != nil {
		return domain.Chat{}, fmt.Errorf("chat document: %w", err)
	}
	chat, violations := domain.NewChat(fields)
	if !violations.OK() {
		return domain.Chat{}, fmt.Errorf("chat document: %s", violations.String())
	}
	return chat, nil
}
