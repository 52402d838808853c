package comments

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

type sequenceIDProvider struct {
	next int
}

func (p *sequenceIDProvider) NewID() (string, error) {
	p.next++
	return fmt.Sprintf("comment-%d", p.next), nil
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	dsn := fmt.Sprintf("file:comments_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open in-memory database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to access raw database: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	if err := db.AutoMigrate(&Comment{}); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}
	service, err := NewService(ServiceConfig{Database: db, IDProvider: &sequenceIDProvider{}})
	if err != nil {
		t.Fatalf("failed to construct service: %v", err)
	}
	return service
}

func TestAddCommentTrimsBodyAndListsOldestFirst(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	first, err := service.AddComment(ctx, "trip-1", "item-1", "user-1", "  Let's book early  ")
	if err != nil {
		t.Fatalf("unexpected add error: %v", err)
	}
	if first.Body != "Let's book early" {
		t.Fatalf("expected trimmed body, got %q", first.Body)
	}
	if _, err := service.AddComment(ctx, "trip-1", "item-1", "user-2", "Agreed"); err != nil {
		t.Fatalf("unexpected add error: %v", err)
	}
	if _, err := service.AddComment(ctx, "trip-1", "item-2", "user-1", "Different thread"); err != nil {
		t.Fatalf("unexpected add error: %v", err)
	}

	thread, err := service.ListComments(ctx, "trip-1", "item-1")
	if err != nil {
		t.Fatalf("unexpected list error: %v", err)
	}
	if len(thread) != 2 {
		t.Fatalf("expected two comments on item-1, got %d", len(thread))
	}
	if thread[0].CommentID != first.CommentID {
		t.Fatalf("expected oldest comment first, got %q", thread[0].CommentID)
	}
}

func TestAddCommentRejectsEmptyBody(t *testing.T) {
	service := newTestService(t)

	_, err := service.AddComment(context.Background(), "trip-1", "item-1", "user-1", "   ")
	var serviceErr *ServiceError
	if !errors.As(err, &serviceErr) {
		t.Fatalf("expected service error, got %v", err)
	}
	if serviceErr.Code() != "comments.add_comment.empty_body" {
		t.Fatalf("unexpected code %q", serviceErr.Code())
	}
}

func TestListCommentsEmptyThreadReturnsEmptySlice(t *testing.T) {
	service := newTestService(t)

	thread, err := service.ListComments(context.Background(), "trip-1", "item-1")
	if err != nil {
		t.Fatalf("unexpected list error: %v", err)
	}
	if thread == nil || len(thread) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", thread)
	}
}
