package messages

import (
	"context"
	"testing"
	"time"

	"github.com/priyxstudio/examination/internal/models"
	"github.com/priyxstudio/examination/store"
)

func newTestSender() *StoreSender {
	s := NewStoreSender(store.NewMemory())
	s.now = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }
	return s
}

func TestCreateUserMessage_MultipleRecipients(t *testing.T) {
	s := newTestSender()
	ctx := context.Background()
	msg := models.Message{Type: models.MessageTypeModule, Content: "exam moved", Author: "a1"}

	if err := s.CreateUserMessage(ctx, msg, "s1", "s2"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if err := s.CreateUserMessage(ctx, msg, "s1"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	inbox, err := s.List(ctx, "s1")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(inbox) != 2 {
		t.Fatalf("expected 2 messages for s1, got %d", len(inbox))
	}
	if inbox[0].ID == "" || inbox[0].ID == inbox[1].ID {
		t.Fatalf("expected unique message ids, got %q and %q", inbox[0].ID, inbox[1].ID)
	}
	if !inbox[0].CreatedAt.Equal(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected timestamp %v", inbox[0].CreatedAt)
	}

	inbox, _ = s.List(ctx, "s2")
	if len(inbox) != 1 || inbox[0].Content != "exam moved" {
		t.Fatalf("unexpected inbox for s2: %+v", inbox)
	}
}

func TestCreateUserMessage_Validation(t *testing.T) {
	s := newTestSender()
	ctx := context.Background()

	if err := s.CreateUserMessage(ctx, models.Message{Type: "t", Content: "c", Author: "a"}); err == nil {
		t.Fatal("expected error without recipients")
	}
	if err := s.CreateUserMessage(ctx, models.Message{Type: "t", Author: "a"}, "s1"); err == nil {
		t.Fatal("expected error without content")
	}
}

func TestCreateUserMessage_PartialFailure(t *testing.T) {
	s := newTestSender()
	ctx := context.Background()

	err := s.CreateUserMessage(ctx, models.Message{Type: "t", Content: "c", Author: "a"}, "s1", "", "s2")
	if err == nil {
		t.Fatal("expected error for empty recipient")
	}
	for _, u := range []string{"s1", "s2"} {
		inbox, _ := s.List(ctx, u)
		if len(inbox) != 1 {
			t.Fatalf("expected delivery to %s despite failure, got %d messages", u, len(inbox))
		}
	}
}

func TestList_EmptyInbox(t *testing.T) {
	inbox, err := newTestSender().List(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if inbox == nil || len(inbox) != 0 {
		t.Fatalf("expected empty inbox, got %#v", inbox)
	}
}
