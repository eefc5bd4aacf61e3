// Package messages delivers user messages by appending them to each
// recipient's inbox document.
package messages

import (
	"context"
	"time"

	"emperror.dev/errors"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/priyxstudio/examination/internal/models"
	"github.com/priyxstudio/examination/store"
)

// Collection holds one inbox document per user id.
const Collection = "UserMessages"

// Sender is the contract the module service relies on to notify users.
type Sender interface {
	// CreateUserMessage delivers msg to every recipient. The returned error
	// combines the failures of the individual deliveries.
	CreateUserMessage(ctx context.Context, msg models.Message, recipients ...string) error
}

// Inbox reads back the messages delivered to a user.
type Inbox interface {
	List(ctx context.Context, userID string) ([]models.Message, error)
}

// StoreSender is a Sender backed by the document store.
type StoreSender struct {
	store store.Store
	now   func() time.Time
}

var (
	_ Sender = (*StoreSender)(nil)
	_ Inbox  = (*StoreSender)(nil)
)

func NewStoreSender(s store.Store) *StoreSender {
	return &StoreSender{store: s, now: time.Now}
}

func (s *StoreSender) CreateUserMessage(ctx context.Context, msg models.Message, recipients ...string) error {
	if len(recipients) == 0 {
		return errors.New("messages: at least one recipient is required")
	}
	if msg.Type == "" || msg.Content == "" || msg.Author == "" {
		return errors.New("messages: message type, content and author must be non-empty")
	}

	var errs []error
	for _, r := range recipients {
		if err := s.deliver(ctx, msg, r); err != nil {
			errs = append(errs, errors.WithDetails(err, "recipient", r))
		}
	}
	return errors.Combine(errs...)
}

func (s *StoreSender) deliver(ctx context.Context, msg models.Message, recipient string) error {
	if recipient == "" {
		return errors.New("messages: recipient must be non-empty")
	}
	msg.ID = uuid.NewString()
	msg.CreatedAt = s.now().UTC()

	err := store.Modify(ctx, s.store, Collection, recipient, func(data []byte) ([]byte, error) {
		var inbox models.Inbox
		if data != nil {
			if err := json.Unmarshal(data, &inbox); err != nil {
				return nil, errors.Wrap(err, "messages: corrupt inbox")
			}
		}
		inbox.Messages = append(inbox.Messages, msg)
		return json.Marshal(inbox)
	})
	return errors.WrapIff(err, "messages: failed to deliver to %s", recipient)
}

// List returns the inbox of a user, oldest first. A user that never received
// anything has an empty inbox.
func (s *StoreSender) List(ctx context.Context, userID string) ([]models.Message, error) {
	if userID == "" {
		return nil, errors.New("messages: user id must be non-empty")
	}
	doc, err := s.store.Get(ctx, Collection, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return []models.Message{}, nil
		}
		return nil, err
	}
	var inbox models.Inbox
	if err := doc.Decode(&inbox); err != nil {
		return nil, err
	}
	if inbox.Messages == nil {
		inbox.Messages = []models.Message{}
	}
	return inbox.Messages, nil
}
