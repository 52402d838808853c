// Package comments stores member discussion threads on itinerary items.
package comments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	errMissingDatabase   = errors.New("database handle is required")
	errMissingIDProvider = errors.New("id provider is required")
	errMissingItemID     = errors.New("item identifier is required")
	errMissingAuthorID   = errors.New("author identifier is required")
	errEmptyBody         = errors.New("comment body is required")
	noOpLogger           = zap.NewNop()
)

// Comment is one remark left on an itinerary item.
type Comment struct {
	CommentID string    `gorm:"column:comment_id;primaryKey;size:190;not null"`
	TripID    string    `gorm:"column:trip_id;size:190;not null;index"`
	ItemID    string    `gorm:"column:item_id;size:190;not null;index"`
	AuthorID  string    `gorm:"column:author_id;size:190;not null"`
	Body      string    `gorm:"column:body;type:text;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName provides the explicit table binding for GORM.
func (Comment) TableName() string {
	return "item_comments"
}

type ServiceError struct {
	code string
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

func (e *ServiceError) Code() string {
	return e.code
}

const (
	opServiceNew   = "comments.service.new"
	opAddComment   = "comments.add_comment"
	opListComments = "comments.list_comments"
)

func newServiceError(operation, reason string, cause error) error {
	return &ServiceError{code: fmt.Sprintf("%s.%s", operation, reason), err: cause}
}

type IDProvider interface {
	NewID() (string, error)
}

type ServiceConfig struct {
	Database   *gorm.DB
	IDProvider IDProvider
	Logger     *zap.Logger
}

type Service struct {
	db         *gorm.DB
	idProvider IDProvider
	logger     *zap.Logger
}

func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, newServiceError(opServiceNew, "missing_database", errMissingDatabase)
	}
	if cfg.IDProvider == nil {
		return nil, newServiceError(opServiceNew, "missing_id_provider", errMissingIDProvider)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &Service{db: cfg.Database, idProvider: cfg.IDProvider, logger: logger}, nil
}

// AddComment appends a comment to an item's thread.
func (s *Service) AddComment(ctx context.Context, tripID, itemID, authorID, body string) (Comment, error) {
	if s.db == nil {
		return Comment{}, newServiceError(opAddComment, "missing_database", errMissingDatabase)
	}
	if itemID == "" {
		return Comment{}, newServiceError(opAddComment, "missing_item_id", errMissingItemID)
	}
	if authorID == "" {
		return Comment{}, newServiceError(opAddComment, "missing_author_id", errMissingAuthorID)
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return Comment{}, newServiceError(opAddComment, "empty_body", errEmptyBody)
	}

	commentID, err := s.idProvider.NewID()
	if err != nil {
		return Comment{}, newServiceError(opAddComment, "id_generation_failed", err)
	}

	comment := Comment{
		CommentID: commentID,
		TripID:    tripID,
		ItemID:    itemID,
		AuthorID:  authorID,
		Body:      body,
	}
	if err := s.db.WithContext(ctx).Create(&comment).Error; err != nil {
		s.logger.Error("comments service error",
			zap.String("operation", opAddComment),
			zap.String("reason", "insert_failed"),
			zap.Error(err))
		return Comment{}, newServiceError(opAddComment, "insert_failed", err)
	}

	return comment, nil
}

// ListComments returns an item's thread oldest first.
func (s *Service) ListComments(ctx context.Context, tripID, itemID string) ([]Comment, error) {
	if s.db == nil {
		return nil, newServiceError(opListComments, "missing_database", errMissingDatabase)
	}
	if itemID == "" {
		return nil, newServiceError(opListComments, "missing_item_id", errMissingItemID)
	}

	var result []Comment
	err := s.db.WithContext(ctx).
		Where("trip_id = ? AND item_id = ?", tripID, itemID).
		Order("created_at ASC").
		Find(&result).Error
	if err != nil {
		s.logger.Error("comments service error",
			zap.String("operation", opListComments),
			zap.String("reason", "query_failed"),
			zap.Error(err))
		return nil, newServiceError(opListComments, "query_failed", err)
	}

	if result == nil {
		result = []Comment{}
	}
	return result, nil
}
