//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"campus-lab/domain"
)

type IMessageRepository interface {
	Save(message domain.Message) error
	Page(chatID string, cursor *string, limit int) ([]domain.Message, *string, error)
	DeleteForChat(chatID string) (int, error)
}

type MessageRepository struct {
	store DocumentStore
	log   *slog.Logger
}

func NewMessageRepository(store DocumentStore, log *slog.Logger) MessageRepository {
	return MessageRepository{store: store, log: log}
}

func messagePrefix(chatID string) string {
	return fmt.Sprintf("msg:%s:", chatID)
}

// messageKey formats "msg:{chat_id}:{timestamp_padded}:{message_id}" so:
//  1. a prefix scan per chat comes back chronologically sorted thanks to
//     the 19-digit zero padding (lexicographical order), and
//  2. the message id disambiguates two messages arriving on the same
//     nanosecond.
//
// The key is derived from immutable fields, so status updates rewrite
// the same document in place.
func messageKey(m domain.Message) string {
	return fmt.Sprintf("%s%019d:%s", messagePrefix(m.ChatID), m.Timestamp.UnixNano(), m.ID)
}

func (r MessageRepository) Save(message domain.Message) error {
	value, err := encodeMessage(message)
	if err != nil {
		return err
	}
	return r.store.Update(func(txn Txn) error {
		return txn.Set(messageKey(message), value)
	})
}

// Page returns up to limit messages for a chat, newest first. The
// cursor is the key suffix of the last message of the previous page.
// A malformed record is logged and skipped, never failing the page.
func (r MessageRepository) Page(chatID string, cursor *string, limit int) ([]domain.Message, *string, error) {
	prefix := messagePrefix(chatID)
	var messages []domain.Message
	var lastSuffix string

	err := r.store.View(func(txn Txn) error {
		seek := ""
		if cursor != nil {
			seek = prefix + *cursor
		}
		skipCursor := cursor != nil
		return txn.Descend(prefix, seek, func(key string, value []byte) (bool, error) {
			if skipCursor && key == seek {
				return true, nil
			}
			message, err := decodeMessage(value)
			if err != nil {
				r.log.Warn("Skipping undecodable message record", "key", key, "error", err)
				return true, nil
			}
			messages = append(messages, message)
			lastSuffix = key[len(prefix):]
			return len(messages) < limit, nil
		})
	})
	if err != nil {
		return nil, nil, err
	}
	if len(messages) < limit || lastSuffix == "" {
		return messages, nil, nil
	}
	return messages, &lastSuffix, nil
}

// DeleteForChat removes every message of a chat and reports how many
// documents went away. Deletion by full key is idempotent, so a failed
// cascade can simply be retried.
func (r MessageRepository) DeleteForChat(chatID string) (int, error) {
	prefix := messagePrefix(chatID)
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

func encodeMessage(message domain.Message) ([]byte, error) {
	fields := domain.MessageFields{
		ID:          message.ID,
		ChatID:      message.ChatID,
		SenderID:    message.SenderID,
		Content:     message.Content,
		Type:        message.Type,
		Status:      message.Status,
		Timestamp:   message.Timestamp,
		DeliveredAt: message.DeliveredAt,
		ReadAt:      message.ReadAt,
	}
	if message.Attachment != nil {
		fields.Attachment = &domain.AttachmentFields{
			FileName: message.Attachment.FileName,
			FileURL:  message.Attachment.FileURL,
			FileSize: message.Attachment.FileSize,
			MimeType: message.Attachment.MimeType,
		}
	}
	return json.Marshal(fields)
}

func decodeMessage(value []byte) (domain.Message, error) {
	var fields domain.MessageFields
	if err := json.Unmarshal(value, &fields); err != nil {
		return domain.Message{}, fmt.Errorf("message document: %w", err)
	}
	message, violations := domain.NewMessage(fields)
	if !violations.OK() {
		return domain.Message{}, fmt.Errorf("message document: %s", violations.String())
	}
	return message, nil
}
