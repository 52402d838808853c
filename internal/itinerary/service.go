package itinerary

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	errMissingDatabase   = errors.New("database handle is required")
	errMissingIDProvider = errors.New("id provider is required")
	errMissingTripID     = errors.New("trip identifier is required")
	errMissingItemID     = errors.New("item identifier is required")
	errMissingVoterID    = errors.New("voter identifier is required")
	errMissingTitle      = errors.New("item title is required")
	noOpLogger           = zap.NewNop()
)

// ErrItemNotFound indicates the item does not exist within the trip.
var ErrItemNotFound = errors.New("itinerary: item not found")

// ServiceError wraps a failure with a stable operation.reason code.
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
	opServiceNew   = "itinerary.service.new"
	opListSchedule = "itinerary.list_schedule"
	opCreateItem   = "itinerary.create_item"
	opUpdateItem   = "itinerary.update_item"
	opDeleteItem   = "itinerary.delete_item"
	opReorderItem  = "itinerary.reorder_item"
	opCastVote     = "itinerary.cast_vote"
)

func newServiceError(operation, reason string, cause error) error {
	code := fmt.Sprintf("%s.%s", operation, reason)
	return &ServiceError{code: code, err: cause}
}

// IDProvider issues identifiers for new items.
type IDProvider interface {
	NewID() (string, error)
}

// ServiceConfig carries the dependencies for the itinerary service.
type ServiceConfig struct {
	Database   *gorm.DB
	Clock      func() time.Time
	IDProvider IDProvider
	Logger     *zap.Logger
}

// Service owns itinerary item persistence, ordering, and vote tallies.
type Service struct {
	db         *gorm.DB
	clock      func() time.Time
	idProvider IDProvider
	logger     *zap.Logger
}

// NewService validates the configuration and constructs the service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, newServiceError(opServiceNew, "missing_database", errMissingDatabase)
	}
	if cfg.IDProvider == nil {
		return nil, newServiceError(opServiceNew, "missing_id_provider", errMissingIDProvider)
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}

	return &Service{
		db:         cfg.Database,
		clock:      clock,
		idProvider: cfg.IDProvider,
		logger:     logger,
	}, nil
}

// ListSchedule returns the trip's items grouped and ordered for display.
// Vote tallies are net counts; UserVote reflects the requesting viewer only.
func (s *Service) ListSchedule(ctx context.Context, tripID, viewerID string, durationDays int) ([]DayGroup, error) {
	if s.db == nil {
		return nil, newServiceError(opListSchedule, "missing_database", errMissingDatabase)
	}
	if tripID == "" {
		return nil, newServiceError(opListSchedule, "missing_trip_id", errMissingTripID)
	}

	views, err := s.listItemViews(ctx, tripID, viewerID)
	if err != nil {
		s.logError(opListSchedule, "query_failed", err, zap.String("trip_id", tripID))
		return nil, newServiceError(opListSchedule, "query_failed", err)
	}

	return BuildSchedule(views, durationDays), nil
}

// CreateItemRequest describes a new itinerary entry.
type CreateItemRequest struct {
	TripID    string
	Title     string
	Type      ItemType
	Location  string
	Notes     string
	DayNumber *int
	StartTime string
	EndTime   string
	CreatedBy string
}

// CreateItem appends an item to the end of its target day bucket.
func (s *Service) CreateItem(ctx context.Context, request CreateItemRequest) (ItemView, error) {
	if s.db == nil {
		return ItemView{}, newServiceError(opCreateItem, "missing_database", errMissingDatabase)
	}
	if request.TripID == "" {
		return ItemView{}, newServiceError(opCreateItem, "missing_trip_id", errMissingTripID)
	}
	if request.Title == "" {
		return ItemView{}, newServiceError(opCreateItem, "missing_title", errMissingTitle)
	}

	itemType := request.Type
	if itemType == "" {
		itemType = ItemTypeActivity
	}

	itemID, err := s.idProvider.NewID()
	if err != nil {
		s.logError(opCreateItem, "id_generation_failed", err, zap.String("trip_id", request.TripID))
		return ItemView{}, newServiceError(opCreateItem, "id_generation_failed", err)
	}

	item := Item{
		ItemID:    itemID,
		TripID:    request.TripID,
		Title:     request.Title,
		Type:      itemType,
		Location:  request.Location,
		Notes:     request.Notes,
		DayNumber: request.DayNumber,
		StartTime: request.StartTime,
		EndTime:   request.EndTime,
		CreatedBy: request.CreatedBy,
	}

	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		position, err := nextPosition(tx, request.TripID, request.DayNumber)
		if err != nil {
			return err
		}
		item.Position = position
		return tx.Create(&item).Error
	})
	if txErr != nil {
		s.logError(opCreateItem, "insert_failed", txErr, zap.String("trip_id", request.TripID))
		return ItemView{}, newServiceError(opCreateItem, "insert_failed", txErr)
	}

	return ItemView{Item: item, Votes: 0, UserVote: UserVoteNone}, nil
}

// UpdateItemRequest carries partial edits; nil fields are left untouched.
type UpdateItemRequest struct {
	Title     *string
	Type      *ItemType
	Location  *string
	Notes     *string
	StartTime *string
	EndTime   *string
}

// UpdateItem applies the provided edits to an existing item.
func (s *Service) UpdateItem(ctx context.Context, tripID, itemID string, request UpdateItemRequest) (Item, error) {
	if s.db == nil {
		return Item{}, newServiceError(opUpdateItem, "missing_database", errMissingDatabase)
	}
	if tripID == "" {
		return Item{}, newServiceError(opUpdateItem, "missing_trip_id", errMissingTripID)
	}
	if itemID == "" {
		return Item{}, newServiceError(opUpdateItem, "missing_item_id", errMissingItemID)
	}

	var item Item
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockItem(tx, tripID, itemID, &item); err != nil {
			return err
		}
		if request.Title != nil {
			item.Title = *request.Title
		}
		if request.Type != nil {
			item.Type = *request.Type
		}
		if request.Location != nil {
			item.Location = *request.Location
		}
		if request.Notes != nil {
			item.Notes = *request.Notes
		}
		if request.StartTime != nil {
			item.StartTime = *request.StartTime
		}
		if request.EndTime != nil {
			item.EndTime = *request.EndTime
		}
		return tx.Save(&item).Error
	})
	if txErr != nil {
		if errors.Is(txErr, ErrItemNotFound) {
			return Item{}, newServiceError(opUpdateItem, "item_not_found", txErr)
		}
		s.logError(opUpdateItem, "save_failed", txErr, zap.String("trip_id", tripID), zap.String("item_id", itemID))
		return Item{}, newServiceError(opUpdateItem, "save_failed", txErr)
	}

	return item, nil
}

// DeleteItem removes an item along with its vote rows.
func (s *Service) DeleteItem(ctx context.Context, tripID, itemID string) error {
	if s.db == nil {
		return newServiceError(opDeleteItem, "missing_database", errMissingDatabase)
	}
	if tripID == "" {
		return newServiceError(opDeleteItem, "missing_trip_id", errMissingTripID)
	}
	if itemID == "" {
		return newServiceError(opDeleteItem, "missing_item_id", errMissingItemID)
	}

	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var item Item
		if err := lockItem(tx, tripID, itemID, &item); err != nil {
			return err
		}
		if err := tx.Where("item_id = ?", itemID).Delete(&VoteRecord{}).Error; err != nil {
			return err
		}
		return tx.Delete(&item).Error
	})
	if txErr != nil {
		if errors.Is(txErr, ErrItemNotFound) {
			return newServiceError(opDeleteItem, "item_not_found", txErr)
		}
		s.logError(opDeleteItem, "delete_failed", txErr, zap.String("trip_id", tripID), zap.String("item_id", itemID))
		return newServiceError(opDeleteItem, "delete_failed", txErr)
	}

	return nil
}

// Reorder moves an item to a day and slot, shifting the target bucket's
// trailing items down by one position. A nil day moves the item to the
// unscheduled bucket.
func (s *Service) Reorder(ctx context.Context, tripID, itemID string, day *int, position int) error {
	if s.db == nil {
		return newServiceError(opReorderItem, "missing_database", errMissingDatabase)
	}
	if tripID == "" {
		return newServiceError(opReorderItem, "missing_trip_id", errMissingTripID)
	}
	if itemID == "" {
		return newServiceError(opReorderItem, "missing_item_id", errMissingItemID)
	}
	if position < 0 {
		position = 0
	}

	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var item Item
		if err := lockItem(tx, tripID, itemID, &item); err != nil {
			return err
		}

		shift := tx.Model(&Item{}).
			Where("trip_id = ? AND item_id <> ? AND position >= ?", tripID, itemID, position)
		if day == nil || *day <= 0 {
			shift = shift.Where("day_number IS NULL OR day_number <= 0")
		} else {
			shift = shift.Where("day_number = ?", *day)
		}
		if err := shift.Update("position", gorm.Expr("position + 1")).Error; err != nil {
			return err
		}

		item.DayNumber = normalizeDay(day)
		item.Position = position
		return tx.Save(&item).Error
	})
	if txErr != nil {
		if errors.Is(txErr, ErrItemNotFound) {
			return newServiceError(opReorderItem, "item_not_found", txErr)
		}
		s.logError(opReorderItem, "reorder_failed", txErr, zap.String("trip_id", tripID), zap.String("item_id", itemID))
		return newServiceError(opReorderItem, "reorder_failed", txErr)
	}

	return nil
}

// VoteResult is the authoritative post-vote state for the acting voter.
type VoteResult struct {
	Votes    int      `json:"votes"`
	UserVote UserVote `json:"user_vote"`
}

// CastVote applies one vote click for the voter against the stored per-user
// vote row and returns the recomputed net tally. The stored row and the
// transition table stay in lockstep: the row is deleted on toggle-off,
// rewritten on flip, created on a fresh vote.
func (s *Service) CastVote(ctx context.Context, tripID, itemID, voterID string, clicked Direction) (VoteResult, error) {
	if s.db == nil {
		return VoteResult{}, newServiceError(opCastVote, "missing_database", errMissingDatabase)
	}
	if tripID == "" {
		return VoteResult{}, newServiceError(opCastVote, "missing_trip_id", errMissingTripID)
	}
	if itemID == "" {
		return VoteResult{}, newServiceError(opCastVote, "missing_item_id", errMissingItemID)
	}
	if voterID == "" {
		return VoteResult{}, newServiceError(opCastVote, "missing_voter_id", errMissingVoterID)
	}
	if clicked != DirectionUp && clicked != DirectionDown {
		return VoteResult{}, newServiceError(opCastVote, "invalid_direction", ErrInvalidDirection)
	}

	var result VoteResult
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var item Item
		if err := lockItem(tx, tripID, itemID, &item); err != nil {
			return err
		}

		current := UserVoteNone
		var record VoteRecord
		err := tx.Where("item_id = ? AND user_id = ?", itemID, voterID).Take(&record).Error
		switch {
		case err == nil:
			current = UserVote(record.Direction)
		case errors.Is(err, gorm.ErrRecordNotFound):
			// first vote from this user on this item
		default:
			return err
		}

		outcome := Transition(current, clicked)
		switch {
		case outcome.UserVote == UserVoteNone && current != UserVoteNone:
			if err := tx.Where("item_id = ? AND user_id = ?", itemID, voterID).Delete(&VoteRecord{}).Error; err != nil {
				return err
			}
		case outcome.UserVote != UserVoteNone && current == UserVoteNone:
			if err := tx.Create(&VoteRecord{ItemID: itemID, UserID: voterID, Direction: Direction(outcome.UserVote)}).Error; err != nil {
				return err
			}
		case outcome.UserVote != UserVoteNone:
			record.Direction = Direction(outcome.UserVote)
			if err := tx.Save(&record).Error; err != nil {
				return err
			}
		}

		tally, err := tallyVotes(tx, itemID)
		if err != nil {
			return err
		}
		result = VoteResult{Votes: tally, UserVote: outcome.UserVote}
		return nil
	})
	if txErr != nil {
		if errors.Is(txErr, ErrItemNotFound) {
			return VoteResult{}, newServiceError(opCastVote, "item_not_found", txErr)
		}
		s.logError(opCastVote, "vote_failed", txErr,
			zap.String("trip_id", tripID),
			zap.String("item_id", itemID),
			zap.String("voter_id", voterID))
		return VoteResult{}, newServiceError(opCastVote, "vote_failed", txErr)
	}

	return result, nil
}

func (s *Service) listItemViews(ctx context.Context, tripID, viewerID string) ([]ItemView, error) {
	var items []Item
	if err := s.db.WithContext(ctx).
		Where("trip_id = ?", tripID).
		Order("created_at ASC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return []ItemView{}, nil
	}

	itemIDs := make([]string, 0, len(items))
	for _, item := range items {
		itemIDs = append(itemIDs, item.ItemID)
	}

	var records []VoteRecord
	if err := s.db.WithContext(ctx).
		Where("item_id IN ?", itemIDs).
		Find(&records).Error; err != nil {
		return nil, err
	}

	tallies := make(map[string]int, len(items))
	viewerVotes := make(map[string]UserVote, len(records))
	for _, record := range records {
		tallies[record.ItemID] += voteWeight(UserVote(record.Direction))
		if record.UserID == viewerID {
			viewerVotes[record.ItemID] = UserVote(record.Direction)
		}
	}

	views := make([]ItemView, 0, len(items))
	for _, item := range items {
		views = append(views, ItemView{
			Item:     item,
			Votes:    tallies[item.ItemID],
			UserVote: viewerVotes[item.ItemID],
		})
	}
	return views, nil
}

func (s *Service) loggerOrDefault() *zap.Logger {
	if s == nil || s.logger == nil {
		return noOpLogger
	}
	return s.logger
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.loggerOrDefault().Error("itinerary service error", attrs...)
}

func lockItem(tx *gorm.DB, tripID, itemID string, item *Item) error {
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("trip_id = ? AND item_id = ?", tripID, itemID).
		Take(item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrItemNotFound
	}
	return err
}

func nextPosition(tx *gorm.DB, tripID string, day *int) (int, error) {
	query := tx.Model(&Item{}).Where("trip_id = ?", tripID)
	if day == nil || *day <= 0 {
		query = query.Where("day_number IS NULL OR day_number <= 0")
	} else {
		query = query.Where("day_number = ?", *day)
	}
	var maxPosition *int
	if err := query.Select("MAX(position)").Scan(&maxPosition).Error; err != nil {
		return 0, err
	}
	if maxPosition == nil {
		return 0, nil
	}
	return *maxPosition + 1, nil
}

func tallyVotes(tx *gorm.DB, itemID string) (int, error) {
	var records []VoteRecord
	if err := tx.Where("item_id = ?", itemID).Find(&records).Error; err != nil {
		return 0, err
	}
	tally := 0
	for _, record := range records {
		tally += voteWeight(UserVote(record.Direction))
	}
	return tally, nil
}

func normalizeDay(day *int) *int {
	if day == nil || *day <= 0 {
		return nil
	}
	value := *day
	return &value
}
