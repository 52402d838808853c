package trips

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
	errMissingTripID     = errors.New("trip identifier is required")
	errMissingUserID     = errors.New("user identifier is required")
	errMissingName       = errors.New("trip name is required")
	errInvalidDuration   = errors.New("trip duration must be a positive number of days")
	noOpLogger           = zap.NewNop()
)

var (
	// ErrTripNotFound indicates the trip does not exist.
	ErrTripNotFound = errors.New("trips: trip not found")
	// ErrAlreadyMember indicates the user already belongs to the trip.
	ErrAlreadyMember = errors.New("trips: user is already a member")
)

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
	opServiceNew  = "trips.service.new"
	opCreateTrip  = "trips.create_trip"
	opGetTrip     = "trips.get_trip"
	opListTrips   = "trips.list_trips"
	opAddMember   = "trips.add_member"
	opListMembers = "trips.list_members"
	opIsMember    = "trips.is_member"
)

func newServiceError(operation, reason string, cause error) error {
	code := fmt.Sprintf("%s.%s", operation, reason)
	return &ServiceError{code: code, err: cause}
}

// IDProvider issues identifiers for new trips.
type IDProvider interface {
	NewID() (string, error)
}

// ServiceConfig carries the dependencies for the trips service.
type ServiceConfig struct {
	Database   *gorm.DB
	Clock      func() time.Time
	IDProvider IDProvider
	Logger     *zap.Logger
}

// Service owns trip and membership persistence.
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

// CreateTripRequest describes a new trip.
type CreateTripRequest struct {
	Name         string
	Destination  string
	Description  string
	StartDate    string
	DurationDays int
	CreatorID    string
}

// CreateTrip persists a trip and enrolls the creator as its owner.
func (s *Service) CreateTrip(ctx context.Context, request CreateTripRequest) (Trip, error) {
	if s.db == nil {
		return Trip{}, newServiceError(opCreateTrip, "missing_database", errMissingDatabase)
	}
	if strings.TrimSpace(request.Name) == "" {
		return Trip{}, newServiceError(opCreateTrip, "missing_name", errMissingName)
	}
	if request.DurationDays <= 0 {
		return Trip{}, newServiceError(opCreateTrip, "invalid_duration", errInvalidDuration)
	}
	if request.CreatorID == "" {
		return Trip{}, newServiceError(opCreateTrip, "missing_creator_id", errMissingUserID)
	}

	tripID, err := s.idProvider.NewID()
	if err != nil {
		s.logError(opCreateTrip, "id_generation_failed", err)
		return Trip{}, newServiceError(opCreateTrip, "id_generation_failed", err)
	}

	trip := Trip{
		TripID:       tripID,
		Name:         strings.TrimSpace(request.Name),
		Destination:  request.Destination,
		Description:  request.Description,
		StartDate:    request.StartDate,
		DurationDays: request.DurationDays,
		CreatorID:    request.CreatorID,
	}

	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&trip).Error; err != nil {
			return err
		}
		return tx.Create(&Membership{
			TripID: tripID,
			UserID: request.CreatorID,
			Role:   RoleOwner,
		}).Error
	})
	if txErr != nil {
		s.logError(opCreateTrip, "insert_failed", txErr, zap.String("creator_id", request.CreatorID))
		return Trip{}, newServiceError(opCreateTrip, "insert_failed", txErr)
	}

	return trip, nil
}

// GetTrip returns one trip by id.
func (s *Service) GetTrip(ctx context.Context, tripID string) (Trip, error) {
	if s.db == nil {
		return Trip{}, newServiceError(opGetTrip, "missing_database", errMissingDatabase)
	}
	if tripID == "" {
		return Trip{}, newServiceError(opGetTrip, "missing_trip_id", errMissingTripID)
	}

	var trip Trip
	err := s.db.WithContext(ctx).Where("trip_id = ?", tripID).Take(&trip).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Trip{}, newServiceError(opGetTrip, "trip_not_found", ErrTripNotFound)
	}
	if err != nil {
		s.logError(opGetTrip, "query_failed", err, zap.String("trip_id", tripID))
		return Trip{}, newServiceError(opGetTrip, "query_failed", err)
	}

	return trip, nil
}

// ListTripsForUser returns every trip the user belongs to, newest first.
func (s *Service) ListTripsForUser(ctx context.Context, userID string) ([]Trip, error) {
	if s.db == nil {
		return nil, newServiceError(opListTrips, "missing_database", errMissingDatabase)
	}
	if userID == "" {
		return nil, newServiceError(opListTrips, "missing_user_id", errMissingUserID)
	}

	var result []Trip
	err := s.db.WithContext(ctx).
		Joins("JOIN trip_memberships ON trip_memberships.trip_id = trips.trip_id").
		Where("trip_memberships.user_id = ?", userID).
		Order("trips.created_at DESC").
		Find(&result).Error
	if err != nil {
		s.logError(opListTrips, "query_failed", err, zap.String("user_id", userID))
		return nil, newServiceError(opListTrips, "query_failed", err)
	}

	if result == nil {
		result = []Trip{}
	}
	return result, nil
}

// AddMember enrolls a user into a trip.
func (s *Service) AddMember(ctx context.Context, tripID, userID string, role Role) (Membership, error) {
	if s.db == nil {
		return Membership{}, newServiceError(opAddMember, "missing_database", errMissingDatabase)
	}
	if tripID == "" {
		return Membership{}, newServiceError(opAddMember, "missing_trip_id", errMissingTripID)
	}
	if userID == "" {
		return Membership{}, newServiceError(opAddMember, "missing_user_id", errMissingUserID)
	}
	if role == "" {
		role = RoleMember
	}

	membership := Membership{TripID: tripID, UserID: userID, Role: role}
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var trip Trip
		if err := tx.Where("trip_id = ?", tripID).Take(&trip).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTripNotFound
			}
			return err
		}
		var existing Membership
		err := tx.Where("trip_id = ? AND user_id = ?", tripID, userID).Take(&existing).Error
		if err == nil {
			return ErrAlreadyMember
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		return tx.Create(&membership).Error
	})
	if txErr != nil {
		switch {
		case errors.Is(txErr, ErrTripNotFound):
			return Membership{}, newServiceError(opAddMember, "trip_not_found", txErr)
		case errors.Is(txErr, ErrAlreadyMember):
			return Membership{}, newServiceError(opAddMember, "already_member", txErr)
		}
		s.logError(opAddMember, "insert_failed", txErr, zap.String("trip_id", tripID), zap.String("user_id", userID))
		return Membership{}, newServiceError(opAddMember, "insert_failed", txErr)
	}

	return membership, nil
}

// ListMembers returns a trip's memberships in join order.
func (s *Service) ListMembers(ctx context.Context, tripID string) ([]Membership, error) {
	if s.db == nil {
		return nil, newServiceError(opListMembers, "missing_database", errMissingDatabase)
	}
	if tripID == "" {
		return nil, newServiceError(opListMembers, "missing_trip_id", errMissingTripID)
	}

	var memberships []Membership
	err := s.db.WithContext(ctx).
		Where("trip_id = ?", tripID).
		Order("joined_at ASC").
		Find(&memberships).Error
	if err != nil {
		s.logError(opListMembers, "query_failed", err, zap.String("trip_id", tripID))
		return nil, newServiceError(opListMembers, "query_failed", err)
	}

	if memberships == nil {
		memberships = []Membership{}
	}
	return memberships, nil
}

// IsMember reports whether the user belongs to the trip. Every trip-scoped
// route gates on this before touching trip data.
func (s *Service) IsMember(ctx context.Context, tripID, userID string) (bool, error) {
	if s.db == nil {
		return false, newServiceError(opIsMember, "missing_database", errMissingDatabase)
	}
	if tripID == "" || userID == "" {
		return false, nil
	}

	var count int64
	err := s.db.WithContext(ctx).Model(&Membership{}).
		Where("trip_id = ? AND user_id = ?", tripID, userID).
		Count(&count).Error
	if err != nil {
		s.logError(opIsMember, "query_failed", err, zap.String("trip_id", tripID), zap.String("user_id", userID))
		return false, newServiceError(opIsMember, "query_failed", err)
	}

	return count > 0, nil
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
	s.loggerOrDefault().Error("trips service error", attrs...)
}
