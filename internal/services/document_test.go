package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/textdigest-backend/internal/logger"
	"github.com/yungbote/textdigest-backend/internal/types"
)

func TestToggleSelectionFlips(t *testing.T) {
	userID := uuid.New()
	doc := &types.Document{ID: uuid.New(), UserID: userID, Filename: "a.txt", Selected: true}
	docs := newFakeDocs(doc)
	svc := NewDocumentService(logger.Nop(), docs, newFakeConvs(), &fakeMessages{})

	got, err := svc.ToggleSelection(context.Background(), userID, doc.ID)
	if err != nil {
		t.Fatalf("ToggleSelection: %v", err)
	}
	if got.Selected {
		t.Fatal("expected selected=false after first toggle")
	}
	got, err = svc.ToggleSelection(context.Background(), userID, doc.ID)
	if err != nil {
		t.Fatalf("ToggleSelection: %v", err)
	}
	if !got.Selected {
		t.Fatal("expected selected=true after second toggle")
	}
}

func TestToggleSelectionForeignDocument(t *testing.T) {
	doc := &types.Document{ID: uuid.New(), UserID: uuid.New(), Filename: "a.txt"}
	svc := NewDocumentService(logger.Nop(), newFakeDocs(doc), newFakeConvs(), &fakeMessages{})

	if _, err := svc.ToggleSelection(context.Background(), uuid.New(), doc.ID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected record-not-found, got %v", err)
	}
}

func TestClearConversation(t *testing.T) {
	userID := uuid.New()
	doc := &types.Document{ID: uuid.New(), UserID: userID, Filename: "a.txt"}
	convs := newFakeConvs()
	conv, err := convs.CreateForDocument(context.Background(), nil, doc.ID, userID)
	if err != nil {
		t.Fatalf("seed conversation: %v", err)
	}
	svc := NewDocumentService(logger.Nop(), newFakeDocs(doc), convs, &fakeMessages{})

	if err := svc.ClearConversation(context.Background(), userID, doc.ID); err != nil {
		t.Fatalf("ClearConversation: %v", err)
	}
	if _, err := convs.GetByID(context.Background(), nil, conv.ID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatal("conversation should be gone")
	}
}

func TestMessagesHidesForeignConversation(t *testing.T) {
	owner := uuid.New()
	convs := newFakeConvs()
	docID := uuid.New()
	conv, err := convs.CreateForDocument(context.Background(), nil, docID, owner)
	if err != nil {
		t.Fatalf("seed conversation: %v", err)
	}
	messages := &fakeMessages{}
	if _, err := messages.Create(context.Background(), nil, &types.Message{
		ConversationID: conv.ID,
		Role:           types.RoleUser,
		Content:        "hi",
		Status:         types.MessageDone,
	}); err != nil {
		t.Fatalf("seed message: %v", err)
	}
	svc := NewDocumentService(logger.Nop(), newFakeDocs(), convs, messages)

	if _, err := svc.Messages(context.Background(), uuid.New(), conv.ID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("foreign conversation must look nonexistent, got %v", err)
	}

	msgs, err := svc.Messages(context.Background(), owner, conv.ID)
	if err != nil {
		t.Fatalf("Messages: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Content != "hi" {
		t.Fatalf("unexpected transcript: %+v", msgs)
	}
}
